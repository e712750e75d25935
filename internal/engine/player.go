package engine

import (
	"math/rand/v2"
	"time"

	"cadence.lopezb.com/internal/idle"
)

// PlayState is the player's transport state.
type PlayState int

const (
	Stopped PlayState = iota
	Playing
	Paused
)

func (s PlayState) String() string {
	switch s {
	case Playing:
		return "play"
	case Paused:
		return "pause"
	default:
		return "stop"
	}
}

type player struct {
	state PlayState
	// current is the queue position the player is on, or -1.
	current int

	repeat    bool
	random    bool
	crossfade uint
	err       string

	// Elapsed time is accumulated across pauses; resumed marks the start of
	// the current playing stretch.
	elapsed time.Duration
	resumed time.Time
}

func (p *player) start(pos int) {
	p.current = pos
	p.state = Playing
	p.elapsed = 0
	p.resumed = time.Now()
}

func (p *player) stop() {
	p.state = Stopped
	p.elapsed = 0
}

func (p *player) setPaused(paused bool) {
	switch {
	case paused && p.state == Playing:
		p.elapsed += time.Since(p.resumed)
		p.state = Paused
	case !paused && p.state == Paused:
		p.resumed = time.Now()
		p.state = Playing
	}
}

func (p *player) elapsedSeconds() int {
	d := p.elapsed
	if p.state == Playing {
		d += time.Since(p.resumed)
	}
	return int(d / time.Second)
}

// Play starts playback at queue position pos. A negative pos resumes the
// current song, or starts at the top of the queue. Playing an empty queue
// without a position is a no-op.
func (e *Engine) Play(pos int) error {
	return e.update(func() (idle.Mask, error) {
		if pos < 0 {
			if e.player.state == Paused {
				e.player.setPaused(false)
				return idle.Player, nil
			}
			if e.player.state == Playing {
				return 0, nil
			}
			if e.queue.len() == 0 {
				return 0, nil
			}
			pos = max(e.player.current, 0)
		}
		if _, ok := e.queue.at(pos); !ok {
			return 0, ErrBadRange
		}
		e.player.start(pos)
		e.player.err = ""
		return idle.Player, nil
	})
}

// PlayID starts playback at the entry with the given id. A negative id
// behaves like Play(-1).
func (e *Engine) PlayID(id int) error {
	if id < 0 {
		return e.Play(-1)
	}
	return e.update(func() (idle.Mask, error) {
		pos := e.queue.posOf(uint32(id))
		if pos < 0 {
			return 0, ErrNoSuchSong
		}
		e.player.start(pos)
		e.player.err = ""
		return idle.Player, nil
	})
}

func (e *Engine) Stop() error {
	return e.update(func() (idle.Mask, error) {
		if e.player.state == Stopped {
			return 0, nil
		}
		e.player.stop()
		return idle.Player, nil
	})
}

// TogglePause pauses a playing player and resumes a paused one.
func (e *Engine) TogglePause() error {
	return e.update(func() (idle.Mask, error) {
		switch e.player.state {
		case Playing:
			e.player.setPaused(true)
		case Paused:
			e.player.setPaused(false)
		default:
			return 0, nil
		}
		return idle.Player, nil
	})
}

// SetPause pauses or resumes. It has no effect on a stopped player.
func (e *Engine) SetPause(paused bool) error {
	return e.update(func() (idle.Mask, error) {
		before := e.player.state
		e.player.setPaused(paused)
		if e.player.state == before {
			return 0, nil
		}
		return idle.Player, nil
	})
}

// Next advances to the following song. Past the end of the queue the player
// wraps around in repeat mode and stops otherwise.
func (e *Engine) Next() error {
	return e.update(func() (idle.Mask, error) {
		if e.player.state == Stopped {
			return 0, nil
		}

		n := e.queue.len()
		next := e.player.current + 1
		if e.player.random && n > 1 {
			next = rand.IntN(n - 1)
			if next >= e.player.current {
				next++
			}
		}
		if next >= n {
			if !e.player.repeat || n == 0 {
				e.player.stop()
				e.player.current = -1
				return idle.Player, nil
			}
			next = 0
		}
		e.player.start(next)
		return idle.Player, nil
	})
}

// Previous goes back one song, or to the last one in repeat mode.
func (e *Engine) Previous() error {
	return e.update(func() (idle.Mask, error) {
		if e.player.state == Stopped {
			return 0, nil
		}

		prev := e.player.current - 1
		if prev < 0 {
			if !e.player.repeat {
				prev = 0
			} else {
				prev = e.queue.len() - 1
			}
		}
		if _, ok := e.queue.at(prev); !ok {
			return 0, ErrNotPlaying
		}
		e.player.start(prev)
		return idle.Player, nil
	})
}

// Seek jumps to second t of the song at pos, starting it if necessary.
func (e *Engine) Seek(pos, t int) error {
	return e.update(func() (idle.Mask, error) {
		if _, ok := e.queue.at(pos); !ok {
			return 0, ErrBadRange
		}
		if t < 0 {
			return 0, ErrBadRange
		}
		if e.player.current != pos || e.player.state == Stopped {
			e.player.start(pos)
		}
		e.player.elapsed = time.Duration(t) * time.Second
		e.player.resumed = time.Now()
		return idle.Player, nil
	})
}

// SeekID is Seek addressed by song id.
func (e *Engine) SeekID(id uint32, t int) error {
	e.mu.Lock()
	pos := e.queue.posOf(id)
	e.mu.Unlock()

	if pos < 0 {
		return ErrNoSuchSong
	}
	return e.Seek(pos, t)
}

// SetVolume sets the mixer volume, 0 to 100.
func (e *Engine) SetVolume(v int) error {
	return e.update(func() (idle.Mask, error) {
		if v < 0 || v > 100 {
			return 0, ErrBadVolume
		}
		if e.volume == v {
			return 0, nil
		}
		e.volume = v
		return idle.Mixer, nil
	})
}

// ChangeVolume adjusts the mixer volume by delta, clamping to 0..100.
func (e *Engine) ChangeVolume(delta int) error {
	return e.update(func() (idle.Mask, error) {
		v := min(max(e.volume+delta, 0), 100)
		if e.volume == v {
			return 0, nil
		}
		e.volume = v
		return idle.Mixer, nil
	})
}

func (e *Engine) SetRepeat(on bool) error {
	return e.update(func() (idle.Mask, error) {
		if e.player.repeat == on {
			return 0, nil
		}
		e.player.repeat = on
		return idle.Options, nil
	})
}

func (e *Engine) SetRandom(on bool) error {
	return e.update(func() (idle.Mask, error) {
		if e.player.random == on {
			return 0, nil
		}
		e.player.random = on
		return idle.Options, nil
	})
}

// SetCrossfade sets the crossfade duration in seconds.
func (e *Engine) SetCrossfade(seconds uint) error {
	return e.update(func() (idle.Mask, error) {
		if e.player.crossfade == seconds {
			return 0, nil
		}
		e.player.crossfade = seconds
		return idle.Options, nil
	})
}

// SetError records a player error, reported by status until cleared.
func (e *Engine) SetError(msg string) {
	_ = e.update(func() (idle.Mask, error) {
		e.player.err = msg
		return idle.Player, nil
	})
}

func (e *Engine) ClearError() error {
	return e.update(func() (idle.Mask, error) {
		if e.player.err == "" {
			return 0, nil
		}
		e.player.err = ""
		return idle.Player, nil
	})
}
