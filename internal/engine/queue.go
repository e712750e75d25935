package engine

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"cadence.lopezb.com/internal/idle"
)

// Song is one entry of the play queue.
type Song struct {
	URI string
	// ID is stable for as long as the entry stays in the queue.
	ID  uint32
	Pos int
	// Version is the queue version at which the entry was last added or
	// moved; plchanges reports entries newer than the client's version.
	Version uint32
}

type queue struct {
	items   []Song
	version uint32
	nextID  uint32
}

func newQueue() queue {
	return queue{version: 1}
}

func (q *queue) len() int { return len(q.items) }

func (q *queue) at(pos int) (Song, bool) {
	if pos < 0 || pos >= len(q.items) {
		return Song{}, false
	}
	return q.items[pos], true
}

func (q *queue) posOf(id uint32) int {
	for i := range q.items {
		if q.items[i].ID == id {
			return i
		}
	}
	return -1
}

// bump starts a new queue version and renumbers positions from "from" on,
// stamping every renumbered entry with the new version.
func (q *queue) bump(from int) {
	q.version++
	for i := max(from, 0); i < len(q.items); i++ {
		q.items[i].Pos = i
		q.items[i].Version = q.version
	}
}

func (q *queue) append(uri string) Song {
	q.nextID++
	s := Song{URI: uri, ID: q.nextID, Pos: len(q.items)}
	q.items = append(q.items, s)
	q.bump(s.Pos)
	return q.items[s.Pos]
}

func (q *queue) remove(pos int) {
	q.items = append(q.items[:pos], q.items[pos+1:]...)
	q.bump(pos)
}

func (q *queue) move(from, to int) {
	s := q.items[from]
	q.items = append(q.items[:from], q.items[from+1:]...)
	q.items = append(q.items[:to], append([]Song{s}, q.items[to:]...)...)
	q.bump(min(from, to))
}

// Add appends uri, which must name a song in the database, and returns the
// new entry.
func (e *Engine) Add(uri string) (Song, error) {
	if !e.db.HasSong(uri) {
		return Song{}, ErrNotFound
	}
	return e.appendURI(uri)
}

// AddAll appends every song at or below path in the database. The empty path
// adds the whole database.
func (e *Engine) AddAll(path string) ([]Song, error) {
	uris, err := e.db.SongsUnder(path)
	if err != nil {
		return nil, err
	}

	var added []Song
	err = e.update(func() (idle.Mask, error) {
		if e.queue.len()+len(uris) > e.maxQueue {
			return 0, ErrPlaylistFull
		}
		for _, uri := range uris {
			added = append(added, e.queue.append(uri))
		}
		return idle.Playlist, nil
	})
	return added, err
}

// AddFile appends a local file outside the database, given by absolute path.
// Callers check access first; AddFile only verifies it is a regular file.
func (e *Engine) AddFile(path string) (Song, error) {
	if !filepath.IsAbs(path) {
		return Song{}, ErrNotFound
	}
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Song{}, ErrNoSuchSong
		}
		return Song{}, err
	}
	if !fi.Mode().IsRegular() {
		return Song{}, ErrNoSuchSong
	}
	return e.appendURI("file://" + path)
}

func (e *Engine) appendURI(uri string) (Song, error) {
	var s Song
	err := e.update(func() (idle.Mask, error) {
		if e.queue.len() >= e.maxQueue {
			return 0, ErrPlaylistFull
		}
		s = e.queue.append(uri)
		return idle.Playlist, nil
	})
	return s, err
}

// Delete removes the entry at pos.
func (e *Engine) Delete(pos int) error {
	return e.update(func() (idle.Mask, error) {
		if _, ok := e.queue.at(pos); !ok {
			return 0, ErrBadRange
		}
		return e.deleteLocked(pos), nil
	})
}

// DeleteID removes the entry with the given id.
func (e *Engine) DeleteID(id uint32) error {
	return e.update(func() (idle.Mask, error) {
		pos := e.queue.posOf(id)
		if pos < 0 {
			return 0, ErrNoSuchSong
		}
		return e.deleteLocked(pos), nil
	})
}

func (e *Engine) deleteLocked(pos int) idle.Mask {
	m := idle.Playlist
	switch {
	case pos == e.player.current:
		// The current song went away: playback stops.
		if e.player.state != Stopped {
			m |= idle.Player
		}
		e.player.stop()
		e.player.current = -1
	case pos < e.player.current:
		e.player.current--
	}
	e.queue.remove(pos)
	return m
}

// Clear empties the queue and stops playback.
func (e *Engine) Clear() error {
	return e.update(func() (idle.Mask, error) {
		m := idle.Playlist
		if e.player.state != Stopped {
			m |= idle.Player
		}
		e.player.stop()
		e.player.current = -1
		e.queue.items = nil
		e.queue.bump(0)
		return m, nil
	})
}

// Move moves the entry at from to position to.
func (e *Engine) Move(from, to int) error {
	return e.update(func() (idle.Mask, error) {
		if _, ok := e.queue.at(from); !ok {
			return 0, ErrBadRange
		}
		if _, ok := e.queue.at(to); !ok {
			return 0, ErrBadRange
		}
		e.moveLocked(from, to)
		return idle.Playlist, nil
	})
}

// MoveID moves the entry with the given id to position to.
func (e *Engine) MoveID(id uint32, to int) error {
	return e.update(func() (idle.Mask, error) {
		from := e.queue.posOf(id)
		if from < 0 {
			return 0, ErrNoSuchSong
		}
		if _, ok := e.queue.at(to); !ok {
			return 0, ErrBadRange
		}
		e.moveLocked(from, to)
		return idle.Playlist, nil
	})
}

func (e *Engine) moveLocked(from, to int) {
	cur := e.player.current
	switch {
	case cur == from:
		cur = to
	case from < cur && to >= cur:
		cur--
	case from > cur && to <= cur && cur >= 0:
		cur++
	}
	e.player.current = cur
	e.queue.move(from, to)
}

// Swap exchanges the entries at positions a and b.
func (e *Engine) Swap(a, b int) error {
	return e.update(func() (idle.Mask, error) {
		if _, ok := e.queue.at(a); !ok {
			return 0, ErrBadRange
		}
		if _, ok := e.queue.at(b); !ok {
			return 0, ErrBadRange
		}
		e.swapLocked(a, b)
		return idle.Playlist, nil
	})
}

// SwapID exchanges the entries with ids a and b.
func (e *Engine) SwapID(a, b uint32) error {
	return e.update(func() (idle.Mask, error) {
		pa, pb := e.queue.posOf(a), e.queue.posOf(b)
		if pa < 0 || pb < 0 {
			return 0, ErrNoSuchSong
		}
		e.swapLocked(pa, pb)
		return idle.Playlist, nil
	})
}

func (e *Engine) swapLocked(a, b int) {
	switch e.player.current {
	case a:
		e.player.current = b
	case b:
		e.player.current = a
	}
	items := e.queue.items
	items[a], items[b] = items[b], items[a]
	e.queue.bump(min(a, b))
}

// Shuffle randomizes the queue order. The current song keeps playing.
func (e *Engine) Shuffle() error {
	return e.update(func() (idle.Mask, error) {
		var currentID uint32
		cur, playing := e.queue.at(e.player.current)
		if playing {
			currentID = cur.ID
		}

		items := e.queue.items
		rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		e.queue.bump(0)

		if playing {
			e.player.current = e.queue.posOf(currentID)
		}
		return idle.Playlist, nil
	})
}

// Queue returns a copy of the whole queue.
func (e *Engine) Queue() []Song {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Song(nil), e.queue.items...)
}

// SongAt returns the entry at pos.
func (e *Engine) SongAt(pos int) (Song, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.queue.at(pos)
	if !ok {
		return Song{}, ErrBadRange
	}
	return s, nil
}

// SongByID returns the entry with the given id.
func (e *Engine) SongByID(id uint32) (Song, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos := e.queue.posOf(id)
	if pos < 0 {
		return Song{}, ErrNoSuchSong
	}
	return e.queue.items[pos], nil
}

// CurrentSong returns the entry the player is positioned on.
func (e *Engine) CurrentSong() (Song, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.at(e.player.current)
}

// Changes returns the entries added or moved after version.
func (e *Engine) Changes(version uint32) []Song {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Song
	for _, s := range e.queue.items {
		if s.Version > version {
			out = append(out, s)
		}
	}
	return out
}

// Title derives a display title from a song URI.
func (s Song) Title() string {
	base := s.URI
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
