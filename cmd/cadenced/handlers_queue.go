// handlers_queue.go implements the play queue commands.
//
// Adding Songs
// ============
//
// "add" and "addid" accept three kinds of argument:
//
//   - a database path, which adds the song or every song below the directory
//   - a file:/// URI naming a local file outside the database, allowed only
//     for a client whose operating system user may read that file
//   - any other URI scheme, which is rejected because no remote input
//     plugins exist
//
// Positions and Ids
// =================
//
// Commands ending in "id" address queue entries by their stable id, the rest
// by their current position. Both are parsed as unsigned 32-bit values where
// the protocol requires it; a negative position surfaces as "Bad song index"
// from the engine.

package main

import (
	"strings"

	"cadence.lopezb.com/internal/ack"
	"cadence.lopezb.com/internal/command"
	"cadence.lopezb.com/internal/engine"
)

const fileScheme = "file://"

// addURI appends one argument of add/addid to the queue.
func (app *application) addURI(c *command.Client, uri string) ([]engine.Song, error) {
	switch {
	case strings.HasPrefix(uri, fileScheme+"/"):
		path := strings.TrimPrefix(uri, fileScheme)
		if err := mayAccessPath(c, path); err != nil {
			return nil, err
		}
		s, err := app.engine.AddFile(path)
		if err != nil {
			return nil, playlistError(err)
		}
		return []engine.Song{s}, nil

	case strings.Contains(uri, "://"):
		return nil, ack.New(ack.NotFound, "unsupported URI scheme")
	}

	songs, err := app.engine.AddAll(uri)
	if err != nil {
		return nil, playlistError(err)
	}
	return songs, nil
}

// handleAdd handles the add command.
// Syntax: add <uri>
func (app *application) handleAdd(c *command.Client, argv []string) error {
	_, err := app.addURI(c, argv[1])
	return err
}

// handleAddID handles the addid command.
// Syntax: addid <uri> [pos]
//
// Adds exactly one song and prints its id. With a position the new entry is
// moved there; if the move fails the entry is deleted again so the queue is
// left as it was.
func (app *application) handleAddID(c *command.Client, argv []string) error {
	uri := argv[1]

	to := -1
	if len(argv) > 2 {
		var err error
		if to, err = command.ParseInt(argv[2]); err != nil {
			return err
		}
	}

	var (
		s   engine.Song
		err error
	)
	switch {
	case strings.Contains(uri, "://"):
		var songs []engine.Song
		songs, err = app.addURI(c, uri)
		if err != nil {
			return err
		}
		s = songs[0]
	default:
		s, err = app.engine.Add(uri)
		if err != nil {
			return playlistError(err)
		}
	}

	if len(argv) > 2 {
		if err := app.engine.MoveID(s.ID, to); err != nil {
			_ = app.engine.DeleteID(s.ID)
			return playlistError(err)
		}
	}

	c.Pair("Id", s.ID)
	return nil
}

// handleDelete handles the delete command.
// Syntax: delete <pos>
func (app *application) handleDelete(c *command.Client, argv []string) error {
	pos, err := command.ParseInt(argv[1])
	if err != nil {
		return err
	}
	return playlistError(app.engine.Delete(pos))
}

// handleDeleteID handles the deleteid command.
// Syntax: deleteid <id>
func (app *application) handleDeleteID(c *command.Client, argv []string) error {
	id, err := command.ParseUint(argv[1])
	if err != nil {
		return err
	}
	return playlistError(app.engine.DeleteID(uint32(id)))
}

// handleClear handles the clear command.
// Syntax: clear
func (app *application) handleClear(c *command.Client, argv []string) error {
	return playlistError(app.engine.Clear())
}

// handleShuffle handles the shuffle command.
// Syntax: shuffle
func (app *application) handleShuffle(c *command.Client, argv []string) error {
	return playlistError(app.engine.Shuffle())
}

// handleMove handles the move command.
// Syntax: move <from> <to>
func (app *application) handleMove(c *command.Client, argv []string) error {
	from, err := command.ParseInt(argv[1])
	if err != nil {
		return err
	}
	to, err := command.ParseInt(argv[2])
	if err != nil {
		return err
	}
	return playlistError(app.engine.Move(from, to))
}

// handleMoveID handles the moveid command.
// Syntax: moveid <id> <to>
func (app *application) handleMoveID(c *command.Client, argv []string) error {
	id, err := command.ParseUint(argv[1])
	if err != nil {
		return err
	}
	to, err := command.ParseInt(argv[2])
	if err != nil {
		return err
	}
	return playlistError(app.engine.MoveID(uint32(id), to))
}

// handleSwap handles the swap command.
// Syntax: swap <pos1> <pos2>
func (app *application) handleSwap(c *command.Client, argv []string) error {
	a, err := command.ParseInt(argv[1])
	if err != nil {
		return err
	}
	b, err := command.ParseInt(argv[2])
	if err != nil {
		return err
	}
	return playlistError(app.engine.Swap(a, b))
}

// handleSwapID handles the swapid command.
// Syntax: swapid <id1> <id2>
func (app *application) handleSwapID(c *command.Client, argv []string) error {
	a, err := command.ParseUint(argv[1])
	if err != nil {
		return err
	}
	b, err := command.ParseUint(argv[2])
	if err != nil {
		return err
	}
	return playlistError(app.engine.SwapID(uint32(a), uint32(b)))
}

// handlePlaylist handles the deprecated playlist command.
// Syntax: playlist
func (app *application) handlePlaylist(c *command.Client, argv []string) error {
	for _, s := range app.engine.Queue() {
		c.Printf("%d:%s", s.Pos, s.URI)
	}
	return nil
}

// handlePlaylistInfo handles the playlistinfo command.
// Syntax: playlistinfo [pos]
func (app *application) handlePlaylistInfo(c *command.Client, argv []string) error {
	if len(argv) < 2 {
		for _, s := range app.engine.Queue() {
			printSong(c, s)
		}
		return nil
	}

	pos, err := command.ParseInt(argv[1])
	if err != nil {
		return err
	}
	s, err := app.engine.SongAt(pos)
	if err != nil {
		return playlistError(err)
	}
	printSong(c, s)
	return nil
}

// handlePlaylistID handles the playlistid command.
// Syntax: playlistid [id]
func (app *application) handlePlaylistID(c *command.Client, argv []string) error {
	if len(argv) < 2 {
		for _, s := range app.engine.Queue() {
			printSong(c, s)
		}
		return nil
	}

	id, err := command.ParseUint(argv[1])
	if err != nil {
		return err
	}
	s, err := app.engine.SongByID(uint32(id))
	if err != nil {
		return playlistError(err)
	}
	printSong(c, s)
	return nil
}

// handlePlChanges handles the plchanges command.
// Syntax: plchanges <version>
func (app *application) handlePlChanges(c *command.Client, argv []string) error {
	version, err := command.ParseUint(argv[1])
	if err != nil {
		return err
	}
	for _, s := range app.engine.Changes(uint32(version)) {
		printSong(c, s)
	}
	return nil
}

// handlePlChangesPosID handles the plchangesposid command.
// Syntax: plchangesposid <version>
func (app *application) handlePlChangesPosID(c *command.Client, argv []string) error {
	version, err := command.ParseUint(argv[1])
	if err != nil {
		return err
	}
	for _, s := range app.engine.Changes(uint32(version)) {
		c.Pair("cpos", s.Pos)
		c.Pair("Id", s.ID)
	}
	return nil
}

// handlePlaylistFind handles the playlistfind command.
// Syntax: playlistfind <type> <what> [<type> <what>...]
func (app *application) handlePlaylistFind(c *command.Client, argv []string) error {
	return app.filterQueue(c, argv[1:], true)
}

// handlePlaylistSearch handles the playlistsearch command.
// Syntax: playlistsearch <type> <what> [<type> <what>...]
func (app *application) handlePlaylistSearch(c *command.Client, argv []string) error {
	return app.filterQueue(c, argv[1:], false)
}

func (app *application) filterQueue(c *command.Client, args []string, exact bool) error {
	f, err := parseFilter(args, exact)
	if err != nil {
		return err
	}
	for _, s := range app.engine.Queue() {
		if f.match(s.URI) {
			printSong(c, s)
		}
	}
	return nil
}
