// handlers_stored.go implements the stored playlist commands.
//
// Stored playlists are named lists of song URIs kept by the engine. They are
// independent of the play queue: "save" snapshots the queue into a playlist
// and "load" appends one to the queue, but editing either never touches the
// other.

package main

import (
	"cadence.lopezb.com/internal/command"
	"cadence.lopezb.com/internal/engine"
)

// handleListPlaylists handles the listplaylists command.
// Syntax: listplaylists
func (app *application) handleListPlaylists(c *command.Client, argv []string) error {
	printPlaylists(c, app.engine.Playlists())
	return nil
}

func printPlaylists(c *command.Client, infos []engine.PlaylistInfo) {
	for _, info := range infos {
		c.Pair("playlist", info.Name)
		c.Pair("Last-Modified", info.Modified.UTC().Format(timeFormat))
	}
}

// handleListPlaylist handles the listplaylist command.
// Syntax: listplaylist <name>
func (app *application) handleListPlaylist(c *command.Client, argv []string) error {
	uris, err := app.engine.Playlist(argv[1])
	if err != nil {
		return playlistError(err)
	}
	for _, uri := range uris {
		c.Pair("file", uri)
	}
	return nil
}

// handleListPlaylistInfo handles the listplaylistinfo command.
// Syntax: listplaylistinfo <name>
func (app *application) handleListPlaylistInfo(c *command.Client, argv []string) error {
	uris, err := app.engine.Playlist(argv[1])
	if err != nil {
		return playlistError(err)
	}
	for _, uri := range uris {
		c.Pair("file", uri)
		c.Pair("Title", engine.Song{URI: uri}.Title())
	}
	return nil
}

// handleLoad handles the load command.
// Syntax: load <name>
func (app *application) handleLoad(c *command.Client, argv []string) error {
	return playlistError(app.engine.Load(argv[1]))
}

// handleSave handles the save command.
// Syntax: save <name>
func (app *application) handleSave(c *command.Client, argv []string) error {
	return playlistError(app.engine.Save(argv[1]))
}

// handleRm handles the rm command.
// Syntax: rm <name>
func (app *application) handleRm(c *command.Client, argv []string) error {
	return playlistError(app.engine.Remove(argv[1]))
}

// handleRename handles the rename command.
// Syntax: rename <name> <new name>
func (app *application) handleRename(c *command.Client, argv []string) error {
	return playlistError(app.engine.Rename(argv[1], argv[2]))
}

// handlePlaylistClear handles the playlistclear command.
// Syntax: playlistclear <name>
func (app *application) handlePlaylistClear(c *command.Client, argv []string) error {
	return playlistError(app.engine.PlaylistClear(argv[1]))
}

// handlePlaylistAdd handles the playlistadd command.
// Syntax: playlistadd <name> <path>
func (app *application) handlePlaylistAdd(c *command.Client, argv []string) error {
	return playlistError(app.engine.PlaylistAdd(argv[1], argv[2]))
}

// handlePlaylistDelete handles the playlistdelete command.
// Syntax: playlistdelete <name> <pos>
func (app *application) handlePlaylistDelete(c *command.Client, argv []string) error {
	pos, err := command.ParseInt(argv[2])
	if err != nil {
		return err
	}
	return playlistError(app.engine.PlaylistDelete(argv[1], pos))
}

// handlePlaylistMove handles the playlistmove command.
// Syntax: playlistmove <name> <from> <to>
func (app *application) handlePlaylistMove(c *command.Client, argv []string) error {
	from, err := command.ParseInt(argv[2])
	if err != nil {
		return err
	}
	to, err := command.ParseInt(argv[3])
	if err != nil {
		return err
	}
	return playlistError(app.engine.PlaylistMove(argv[1], from, to))
}
