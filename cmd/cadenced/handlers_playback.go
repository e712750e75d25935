// handlers_playback.go implements the player and mixer commands.
//
// Every handler here parses its arguments, calls one engine operation and
// lets playlistError translate the result. Argument parsing failures are
// already *ack.Error values and are returned unchanged.

package main

import (
	"cadence.lopezb.com/internal/ack"
	"cadence.lopezb.com/internal/command"
)

// optionalInt parses the optional argument at argv[1], or returns def.
func optionalInt(argv []string, def int) (int, error) {
	if len(argv) < 2 {
		return def, nil
	}
	return command.ParseInt(argv[1])
}

// handlePlay handles the play command.
// Syntax: play [pos]
func (app *application) handlePlay(c *command.Client, argv []string) error {
	pos, err := optionalInt(argv, -1)
	if err != nil {
		return err
	}
	return playlistError(app.engine.Play(pos))
}

// handlePlayID handles the playid command.
// Syntax: playid [id]
func (app *application) handlePlayID(c *command.Client, argv []string) error {
	id, err := optionalInt(argv, -1)
	if err != nil {
		return err
	}
	return playlistError(app.engine.PlayID(id))
}

// handleStop handles the stop command.
// Syntax: stop
func (app *application) handleStop(c *command.Client, argv []string) error {
	return playlistError(app.engine.Stop())
}

// handlePause handles the pause command.
// Syntax: pause [0|1]
//
// Without an argument the pause state is toggled.
func (app *application) handlePause(c *command.Client, argv []string) error {
	if len(argv) < 2 {
		return playlistError(app.engine.TogglePause())
	}
	paused, err := command.ParseBool(argv[1])
	if err != nil {
		return err
	}
	return playlistError(app.engine.SetPause(paused))
}

// handleNext handles the next command.
// Syntax: next
func (app *application) handleNext(c *command.Client, argv []string) error {
	return playlistError(app.engine.Next())
}

// handlePrevious handles the previous command.
// Syntax: previous
func (app *application) handlePrevious(c *command.Client, argv []string) error {
	return playlistError(app.engine.Previous())
}

// handleSeek handles the seek command.
// Syntax: seek <pos> <seconds>
func (app *application) handleSeek(c *command.Client, argv []string) error {
	pos, err := command.ParseInt(argv[1])
	if err != nil {
		return err
	}
	t, err := command.ParseInt(argv[2])
	if err != nil {
		return err
	}
	return playlistError(app.engine.Seek(pos, t))
}

// handleSeekID handles the seekid command.
// Syntax: seekid <id> <seconds>
func (app *application) handleSeekID(c *command.Client, argv []string) error {
	id, err := command.ParseUint(argv[1])
	if err != nil {
		return err
	}
	t, err := command.ParseInt(argv[2])
	if err != nil {
		return err
	}
	return playlistError(app.engine.SeekID(uint32(id), t))
}

// handleSetVol handles the setvol command.
// Syntax: setvol <0-100>
func (app *application) handleSetVol(c *command.Client, argv []string) error {
	v, err := command.ParseInt(argv[1])
	if err != nil {
		return err
	}
	return playlistError(app.engine.SetVolume(v))
}

// handleVolume handles the deprecated volume command.
// Syntax: volume <delta>
func (app *application) handleVolume(c *command.Client, argv []string) error {
	delta, err := command.ParseInt(argv[1])
	if err != nil {
		return err
	}
	return playlistError(app.engine.ChangeVolume(delta))
}

// handleRepeat handles the repeat command.
// Syntax: repeat <0|1>
func (app *application) handleRepeat(c *command.Client, argv []string) error {
	on, err := parseSwitch(argv[1])
	if err != nil {
		return err
	}
	return playlistError(app.engine.SetRepeat(on))
}

// handleRandom handles the random command.
// Syntax: random <0|1>
func (app *application) handleRandom(c *command.Client, argv []string) error {
	on, err := parseSwitch(argv[1])
	if err != nil {
		return err
	}
	return playlistError(app.engine.SetRandom(on))
}

// parseSwitch parses the integer argument of repeat and random, which must be
// 0 or 1.
func parseSwitch(arg string) (bool, error) {
	v, err := command.ParseInt(arg)
	if err != nil {
		return false, err
	}
	if v != 0 && v != 1 {
		return false, ack.Errorf(ack.ArgumentFormat, "\"%d\" is not 0 or 1", v)
	}
	return v == 1, nil
}

// handleCrossfade handles the crossfade command.
// Syntax: crossfade <seconds>
func (app *application) handleCrossfade(c *command.Client, argv []string) error {
	seconds, err := command.ParseUint(argv[1])
	if err != nil {
		return err
	}
	return playlistError(app.engine.SetCrossfade(seconds))
}
