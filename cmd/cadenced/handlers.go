// handlers.go implements the connection-level and status commands.
//
// This file also holds the helpers every handler file shares: the mapping
// from engine errors to protocol failures and the printers for the common
// response blocks (songs, directories).
//
// Error Mapping
// =============
//
// The engine reports failures with plain sentinel errors and knows nothing
// about the wire. playlistError translates them into *ack.Error values with
// the codes and messages clients match on. Anything it does not recognise is
// reported as a system failure by the dispatcher.

package main

import (
	"errors"
	"time"

	"cadence.lopezb.com/internal/ack"
	"cadence.lopezb.com/internal/command"
	"cadence.lopezb.com/internal/engine"
	"cadence.lopezb.com/internal/idle"
)

// timeFormat is how modification times are printed.
const timeFormat = "2006-01-02T15:04:05Z"

// playlistError translates an engine error into a protocol failure.
func playlistError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrDenied):
		return ack.New(ack.NotFound, "Access denied")
	case errors.Is(err, engine.ErrNoSuchSong):
		return ack.New(ack.NotFound, "No such song")
	case errors.Is(err, engine.ErrNoSuchPlaylist):
		return ack.New(ack.NotFound, "No such playlist")
	case errors.Is(err, engine.ErrPlaylistExists):
		return ack.New(ack.AlreadyExists, "Playlist already exists")
	case errors.Is(err, engine.ErrBadName):
		return ack.New(ack.ArgumentFormat,
			"playlist name is invalid: playlist names may not contain slashes, newlines or carriage returns")
	case errors.Is(err, engine.ErrBadRange):
		return ack.New(ack.ArgumentFormat, "Bad song index")
	case errors.Is(err, engine.ErrNotPlaying):
		return ack.New(ack.Conflict, "Not playing")
	case errors.Is(err, engine.ErrPlaylistFull):
		return ack.New(ack.ResourceExhausted, "playlist is at the max size")
	case errors.Is(err, engine.ErrNotFound):
		return ack.New(ack.NotFound, "directory or file not found")
	case errors.Is(err, engine.ErrNoSuchOutput):
		return ack.New(ack.NotFound, "No such audio output")
	case errors.Is(err, engine.ErrBadVolume):
		return ack.New(ack.ArgumentFormat, "Invalid volume value")
	case errors.Is(err, engine.ErrUpdateRunning):
		return ack.New(ack.Conflict, "already updating")
	}
	return err
}

// printSong writes the info block of a queue entry.
func printSong(c *command.Client, s engine.Song) {
	c.Pair("file", s.URI)
	c.Pair("Title", s.Title())
	c.Pair("Pos", s.Pos)
	c.Pair("Id", s.ID)
}

// printEntry writes the info block of a database entry.
func printEntry(c *command.Client, e engine.Entry) {
	if e.Dir {
		c.Pair("directory", e.Path)
		c.Pair("Last-Modified", e.Modified.Format(timeFormat))
		return
	}
	c.Pair("file", e.Path)
	c.Pair("Last-Modified", e.Modified.Format(timeFormat))
	c.Pair("Title", engine.Song{URI: e.Path}.Title())
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// handlePing handles the ping command.
// Syntax: ping
//
// Also serves noidle: outside an idle wait there is nothing to cancel, so the
// reply is a plain OK.
func (app *application) handlePing(c *command.Client, argv []string) error {
	return nil
}

// handleClose handles the close command.
// Syntax: close
func (app *application) handleClose(c *command.Client, argv []string) error {
	return command.ErrClose
}

// handleKill handles the kill command.
// Syntax: kill
//
// The dispatcher reports the outcome to the session, which starts the same
// shutdown sequence a signal would.
func (app *application) handleKill(c *command.Client, argv []string) error {
	return command.ErrKill
}

// handlePassword handles the password command.
// Syntax: password <password>
//
// A known password replaces the connection's permissions with the ones bound
// to it. An unknown password leaves them untouched.
func (app *application) handlePassword(c *command.Client, argv []string) error {
	perm, ok := app.passwords[argv[1]]
	if !ok {
		return ack.New(ack.AuthenticationFailed, "incorrect password")
	}
	c.SetPermission(perm)
	return nil
}

// handleIdle handles the idle command.
// Syntax: idle [subsystem...]
//
// The reply is deferred: the session waits for a matching event and writes
// the "changed:" lines and the OK itself.
func (app *application) handleIdle(c *command.Client, argv []string) error {
	c.RequestIdle(idle.ParseMask(argv[1:]))
	return command.ErrNoReply
}

// handleCommands handles the commands command.
// Syntax: commands
func (app *application) handleCommands(c *command.Client, argv []string) error {
	perm := c.Permission()
	for _, d := range app.dispatcher.Registry().All() {
		if perm.Has(d.Permission) {
			c.Pair("command", d.Name)
		}
	}
	return nil
}

// handleNotCommands handles the notcommands command.
// Syntax: notcommands
func (app *application) handleNotCommands(c *command.Client, argv []string) error {
	perm := c.Permission()
	for _, d := range app.dispatcher.Registry().All() {
		if !perm.Has(d.Permission) {
			c.Pair("command", d.Name)
		}
	}
	return nil
}

// handleTagTypes handles the tagtypes command.
// Syntax: tagtypes
func (app *application) handleTagTypes(c *command.Client, argv []string) error {
	c.Pair("tagtype", "Title")
	return nil
}

// handleURLHandlers handles the urlhandlers command.
// Syntax: urlhandlers
//
// Local files can only be added by a client whose user is known, so the
// file scheme is advertised to those clients alone.
func (app *application) handleURLHandlers(c *command.Client, argv []string) error {
	if c.UID > 0 {
		c.Pair("handler", "file://")
	}
	return nil
}

// handleStatus handles the status command.
// Syntax: status
func (app *application) handleStatus(c *command.Client, argv []string) error {
	st := app.engine.Status()

	c.Pair("volume", st.Volume)
	c.Pair("repeat", boolInt(st.Repeat))
	c.Pair("random", boolInt(st.Random))
	c.Pair("playlist", st.Version)
	c.Pair("playlistlength", st.PlaylistLength)
	c.Pair("xfade", st.Crossfade)
	c.Pair("state", st.State)

	if st.Song >= 0 {
		c.Pair("song", st.Song)
		c.Pair("songid", st.SongID)
	}
	if st.State != engine.Stopped {
		c.Printf("time: %d:%d", st.Elapsed, st.Total)
		c.Pair("bitrate", 0)
		c.Pair("audio", "44100:16:2")
	}
	if st.UpdatingDB != 0 {
		c.Pair("updating_db", st.UpdatingDB)
	}
	if st.Error != "" {
		c.Pair("error", st.Error)
	}
	return nil
}

// handleStats handles the stats command.
// Syntax: stats
//
// Songs carry no tags beyond their title, so artist and album counts and the
// play times are always zero.
func (app *application) handleStats(c *command.Client, argv []string) error {
	st := app.engine.Stats()

	c.Pair("artists", 0)
	c.Pair("albums", 0)
	c.Pair("songs", st.Songs)
	c.Pair("uptime", int64(st.Uptime/time.Second))
	c.Pair("playtime", 0)
	c.Pair("db_playtime", 0)
	c.Pair("db_update", st.DBUpdate.Unix())
	return nil
}

// handleCurrentSong handles the currentsong command.
// Syntax: currentsong
func (app *application) handleCurrentSong(c *command.Client, argv []string) error {
	if s, ok := app.engine.CurrentSong(); ok {
		printSong(c, s)
	}
	return nil
}

// handleClearError handles the clearerror command.
// Syntax: clearerror
func (app *application) handleClearError(c *command.Client, argv []string) error {
	return playlistError(app.engine.ClearError())
}

// handleOutputs handles the outputs command.
// Syntax: outputs
func (app *application) handleOutputs(c *command.Client, argv []string) error {
	for _, o := range app.engine.Outputs() {
		c.Pair("outputid", o.ID)
		c.Pair("outputname", o.Name)
		c.Pair("outputenabled", boolInt(o.Enabled))
	}
	return nil
}

// handleEnableOutput handles the enableoutput command.
// Syntax: enableoutput <id>
func (app *application) handleEnableOutput(c *command.Client, argv []string) error {
	return app.setOutput(argv[1], true)
}

// handleDisableOutput handles the disableoutput command.
// Syntax: disableoutput <id>
func (app *application) handleDisableOutput(c *command.Client, argv []string) error {
	return app.setOutput(argv[1], false)
}

func (app *application) setOutput(arg string, enabled bool) error {
	id, err := command.ParseInt(arg)
	if err != nil {
		return err
	}
	return playlistError(app.engine.SetOutput(id, enabled))
}
