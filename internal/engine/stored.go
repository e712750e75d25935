package engine

import (
	"slices"
	"strings"
	"time"

	"cadence.lopezb.com/internal/idle"
)

// PlaylistInfo describes a stored playlist.
type PlaylistInfo struct {
	Name     string
	Modified time.Time
}

type storedPlaylist struct {
	uris     []string
	modified time.Time
}

// ValidPlaylistName reports whether name can be used for a stored playlist.
func ValidPlaylistName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/\n\r")
}

func (e *Engine) storedLocked(name string) (*storedPlaylist, error) {
	if !ValidPlaylistName(name) {
		return nil, ErrBadName
	}
	pl, ok := e.stored[name]
	if !ok {
		return nil, ErrNoSuchPlaylist
	}
	return pl, nil
}

// Save stores the current queue under name.
func (e *Engine) Save(name string) error {
	return e.update(func() (idle.Mask, error) {
		if !ValidPlaylistName(name) {
			return 0, ErrBadName
		}
		if _, ok := e.stored[name]; ok {
			return 0, ErrPlaylistExists
		}
		uris := make([]string, 0, e.queue.len())
		for _, s := range e.queue.items {
			uris = append(uris, s.URI)
		}
		e.stored[name] = &storedPlaylist{uris: uris, modified: time.Now()}
		return idle.StoredPlaylist, nil
	})
}

// Load appends the stored playlist to the queue.
func (e *Engine) Load(name string) error {
	return e.update(func() (idle.Mask, error) {
		pl, err := e.storedLocked(name)
		if err != nil {
			return 0, err
		}
		if e.queue.len()+len(pl.uris) > e.maxQueue {
			return 0, ErrPlaylistFull
		}
		for _, uri := range pl.uris {
			e.queue.append(uri)
		}
		return idle.Playlist, nil
	})
}

// Remove deletes a stored playlist.
func (e *Engine) Remove(name string) error {
	return e.update(func() (idle.Mask, error) {
		if _, err := e.storedLocked(name); err != nil {
			return 0, err
		}
		delete(e.stored, name)
		return idle.StoredPlaylist, nil
	})
}

// Rename renames a stored playlist. The new name must be free.
func (e *Engine) Rename(from, to string) error {
	return e.update(func() (idle.Mask, error) {
		pl, err := e.storedLocked(from)
		if err != nil {
			return 0, err
		}
		if !ValidPlaylistName(to) {
			return 0, ErrBadName
		}
		if _, ok := e.stored[to]; ok {
			return 0, ErrPlaylistExists
		}
		delete(e.stored, from)
		pl.modified = time.Now()
		e.stored[to] = pl
		return idle.StoredPlaylist, nil
	})
}

// Playlists lists the stored playlists by name.
func (e *Engine) Playlists() []PlaylistInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]PlaylistInfo, 0, len(e.stored))
	for name, pl := range e.stored {
		out = append(out, PlaylistInfo{Name: name, Modified: pl.modified})
	}
	slices.SortFunc(out, func(a, b PlaylistInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Playlist returns the URIs of a stored playlist.
func (e *Engine) Playlist(name string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pl, err := e.storedLocked(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(pl.uris), nil
}

// PlaylistClear empties a stored playlist, creating it if needed.
func (e *Engine) PlaylistClear(name string) error {
	return e.update(func() (idle.Mask, error) {
		if !ValidPlaylistName(name) {
			return 0, ErrBadName
		}
		e.stored[name] = &storedPlaylist{modified: time.Now()}
		return idle.StoredPlaylist, nil
	})
}

// PlaylistAdd appends every database song at or below path to a stored
// playlist, creating the playlist if needed.
func (e *Engine) PlaylistAdd(name, path string) error {
	uris, err := e.db.SongsUnder(path)
	if err != nil {
		return err
	}
	return e.update(func() (idle.Mask, error) {
		if !ValidPlaylistName(name) {
			return 0, ErrBadName
		}
		pl, ok := e.stored[name]
		if !ok {
			pl = &storedPlaylist{}
			e.stored[name] = pl
		}
		if len(pl.uris)+len(uris) > e.maxQueue {
			return 0, ErrPlaylistFull
		}
		pl.uris = append(pl.uris, uris...)
		pl.modified = time.Now()
		return idle.StoredPlaylist, nil
	})
}

// PlaylistDelete removes the entry at pos from a stored playlist.
func (e *Engine) PlaylistDelete(name string, pos int) error {
	return e.update(func() (idle.Mask, error) {
		pl, err := e.storedLocked(name)
		if err != nil {
			return 0, err
		}
		if pos < 0 || pos >= len(pl.uris) {
			return 0, ErrBadRange
		}
		pl.uris = slices.Delete(pl.uris, pos, pos+1)
		pl.modified = time.Now()
		return idle.StoredPlaylist, nil
	})
}

// PlaylistMove moves an entry of a stored playlist.
func (e *Engine) PlaylistMove(name string, from, to int) error {
	return e.update(func() (idle.Mask, error) {
		pl, err := e.storedLocked(name)
		if err != nil {
			return 0, err
		}
		n := len(pl.uris)
		if from < 0 || from >= n || to < 0 || to >= n {
			return 0, ErrBadRange
		}
		uri := pl.uris[from]
		pl.uris = slices.Delete(pl.uris, from, from+1)
		pl.uris = slices.Insert(pl.uris, to, uri)
		pl.modified = time.Now()
		return idle.StoredPlaylist, nil
	})
}
