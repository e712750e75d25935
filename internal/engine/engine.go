// Package engine is the in-memory state the protocol handlers operate on: the
// play queue, the player, the mixer, the audio outputs, the stored playlists
// and the music database.
//
// None of it produces sound. The engine keeps exactly the state a client can
// observe through the protocol, so the dispatch core has real collaborators to
// validate, route and report errors for.
//
// Change Notification
// ===================
//
// Every successful mutation publishes the idle category it affects through
// the Publisher the engine was built with (in production, the idle.Hub). The
// notification is sent after the engine lock is released, so a subscriber
// woken by it can immediately query the engine without contending with the
// writer that woke it.
//
// Locking
// =======
//
// A single mutex guards queue, player, mixer, outputs and stored playlists.
// Operations are short and never perform I/O while holding it, with the
// exception of AddFile, which stats the file before taking the lock. The
// Database has its own lock because a rescan walks the filesystem.
package engine

import (
	"errors"
	"sync"
	"time"

	"cadence.lopezb.com/internal/idle"
)

var (
	ErrNoSuchSong     = errors.New("engine: no such song")
	ErrNoSuchPlaylist = errors.New("engine: no such playlist")
	ErrPlaylistExists = errors.New("engine: playlist already exists")
	ErrBadName        = errors.New("engine: invalid playlist name")
	ErrBadRange       = errors.New("engine: bad song index")
	ErrNotPlaying     = errors.New("engine: not playing")
	ErrPlaylistFull   = errors.New("engine: playlist is at the max size")
	ErrNoSuchOutput   = errors.New("engine: no such audio output")
	ErrNotFound       = errors.New("engine: directory or file not found")
	ErrDenied         = errors.New("engine: access denied")
	ErrBadVolume      = errors.New("engine: invalid volume")
)

// Publisher receives the idle categories touched by a mutation.
type Publisher interface {
	Publish(m idle.Mask) int
}

type nopPublisher struct{}

func (nopPublisher) Publish(idle.Mask) int { return 0 }

// Config holds the engine's tunables.
type Config struct {
	// MaxQueueLength bounds the play queue. Zero means DefaultMaxQueueLength.
	MaxQueueLength int
	// Outputs names the audio outputs. Empty means a single "default" output.
	Outputs []string
	// Volume is the initial mixer volume.
	Volume int
}

const DefaultMaxQueueLength = 16384

// Engine is the daemon's observable state.
type Engine struct {
	pub Publisher
	db  *Database

	mu       sync.Mutex
	maxQueue int
	queue    queue
	player   player
	volume   int
	outputs  []Output
	stored   map[string]*storedPlaylist

	started time.Time
}

// New returns an engine backed by db. A nil Publisher discards notifications
// and a nil Database behaves like an empty music directory.
func New(cfg Config, pub Publisher, db *Database) *Engine {
	if pub == nil {
		pub = nopPublisher{}
	}
	if db == nil {
		db = NewDatabase("")
	}
	if cfg.MaxQueueLength <= 0 {
		cfg.MaxQueueLength = DefaultMaxQueueLength
	}
	names := cfg.Outputs
	if len(names) == 0 {
		names = []string{"default"}
	}

	e := &Engine{
		pub:      pub,
		db:       db,
		maxQueue: cfg.MaxQueueLength,
		queue:    newQueue(),
		player:   player{current: -1},
		volume:   cfg.Volume,
		stored:   make(map[string]*storedPlaylist),
		started:  time.Now(),
	}
	for i, name := range names {
		e.outputs = append(e.outputs, Output{ID: i, Name: name, Enabled: true})
	}
	return e
}

// Database returns the music database the engine resolves paths against.
func (e *Engine) Database() *Database {
	return e.db
}

// update runs fn under the engine lock and publishes the categories it
// reports once the lock has been released.
func (e *Engine) update(fn func() (idle.Mask, error)) error {
	e.mu.Lock()
	m, err := fn()
	e.mu.Unlock()

	if err == nil && m != 0 {
		e.pub.Publish(m)
	}
	return err
}

// Status is a snapshot of everything the "status" command reports.
type Status struct {
	Volume         int
	Repeat         bool
	Random         bool
	Version        uint32
	PlaylistLength int
	Crossfade      uint
	State          PlayState
	// Song is the queue position of the current song, or -1.
	Song    int
	SongID  uint32
	Elapsed int
	Total   int
	Error   string
	// UpdatingDB is the running database update job, or 0.
	UpdatingDB uint32
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		Volume:         e.volume,
		Repeat:         e.player.repeat,
		Random:         e.player.random,
		Version:        e.queue.version,
		PlaylistLength: e.queue.len(),
		Crossfade:      e.player.crossfade,
		State:          e.player.state,
		Song:           -1,
		Elapsed:        e.player.elapsedSeconds(),
		Error:          e.player.err,
		UpdatingDB:     e.db.Updating(),
	}
	if song, ok := e.queue.at(e.player.current); ok {
		st.Song = e.player.current
		st.SongID = song.ID
	}
	return st
}

// Stats is a snapshot of everything the "stats" command reports.
type Stats struct {
	Songs       int
	Directories int
	Uptime      time.Duration
	DBUpdate    time.Time
}

func (e *Engine) Stats() Stats {
	songs, dirs := e.db.Counts()
	return Stats{
		Songs:       songs,
		Directories: dirs,
		Uptime:      time.Since(e.started),
		DBUpdate:    e.db.LastUpdate(),
	}
}
