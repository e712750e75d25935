package engine

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cadence.lopezb.com/internal/idle"
)

// ErrUpdateRunning is returned when a database update is requested while one
// is already in progress.
var ErrUpdateRunning = errors.New("engine: already updating")

// audioExtensions lists the file suffixes the scanner treats as songs.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".oga":  true,
	".opus": true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".wv":   true,
	".mpc":  true,
}

// Entry is a directory or song in the music database. Path is relative to
// the music directory and always uses forward slashes.
type Entry struct {
	Path     string
	Dir      bool
	Modified time.Time
	Size     int64
}

// Database is an index of the music directory, rebuilt by Scan.
type Database struct {
	root string

	mu       sync.RWMutex
	children map[string][]Entry
	songs    map[string]Entry
	scanned  time.Time

	running atomic.Uint32
	jobs    atomic.Uint32
}

// NewDatabase returns an empty database for the music directory root. The
// empty root yields a database that stays empty.
func NewDatabase(root string) *Database {
	return &Database{
		root:     root,
		children: map[string][]Entry{"": {}},
		songs:    make(map[string]Entry),
	}
}

// Root returns the music directory.
func (db *Database) Root() string {
	return db.root
}

// Scan rebuilds the index from the filesystem. Hidden files and directories
// are skipped, as are entries that cannot be read.
func (db *Database) Scan() error {
	children := map[string][]Entry{"": {}}
	songs := make(map[string]Entry)

	if db.root != "" {
		err := filepath.WalkDir(db.root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == db.root {
					return err
				}
				return nil
			}
			rel, err := filepath.Rel(db.root, p)
			if err != nil || rel == "." {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}

			rel = filepath.ToSlash(rel)
			parent := path.Dir(rel)
			if parent == "." {
				parent = ""
			}

			e := Entry{Path: rel, Modified: info.ModTime().UTC()}
			switch {
			case d.IsDir():
				e.Dir = true
				children[rel] = []Entry{}
			case d.Type().IsRegular() && audioExtensions[strings.ToLower(path.Ext(rel))]:
				e.Size = info.Size()
				songs[rel] = e
			default:
				return nil
			}
			children[parent] = append(children[parent], e)
			return nil
		})
		if err != nil {
			return err
		}
	}

	db.mu.Lock()
	db.children = children
	db.songs = songs
	db.scanned = time.Now()
	db.mu.Unlock()
	return nil
}

func cleanPath(p string) string {
	return strings.Trim(p, "/")
}

// HasSong reports whether uri names a song in the database.
func (db *Database) HasSong(uri string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.songs[cleanPath(uri)]
	return ok
}

// ListDir returns the direct children of the directory at p.
func (db *Database) ListDir(p string) ([]Entry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	entries, ok := db.children[cleanPath(p)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Entry(nil), entries...), nil
}

// ListAll returns every entry at or below p, depth first. A song path yields
// just that song.
func (db *Database) ListAll(p string) ([]Entry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	p = cleanPath(p)
	if song, ok := db.songs[p]; ok {
		return []Entry{song}, nil
	}
	if _, ok := db.children[p]; !ok {
		return nil, ErrNotFound
	}

	var out []Entry
	var walk func(dir string)
	walk = func(dir string) {
		for _, e := range db.children[dir] {
			out = append(out, e)
			if e.Dir {
				walk(e.Path)
			}
		}
	}
	walk(p)
	return out, nil
}

// SongsUnder returns the URIs of every song at or below p.
func (db *Database) SongsUnder(p string) ([]string, error) {
	entries, err := db.ListAll(p)
	if err != nil {
		return nil, err
	}
	var uris []string
	for _, e := range entries {
		if !e.Dir {
			uris = append(uris, e.Path)
		}
	}
	return uris, nil
}

// Counts returns the number of songs and directories indexed.
func (db *Database) Counts() (songs, dirs int) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.songs), len(db.children) - 1
}

// LastUpdate returns when the last scan finished.
func (db *Database) LastUpdate() time.Time {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.scanned
}

// Updating returns the id of the running update job, or 0.
func (db *Database) Updating() uint32 {
	return db.running.Load()
}

// Update rescans the music directory and publishes a database event. The
// returned job id is positive. The path argument only has to exist in the
// current index; the whole directory is rescanned.
func (e *Engine) Update(p string) (uint32, error) {
	if p != "" {
		if _, err := e.db.ListAll(p); err != nil {
			return 0, err
		}
	}

	id := e.db.jobs.Add(1)
	if !e.db.running.CompareAndSwap(0, id) {
		return 0, ErrUpdateRunning
	}
	defer e.db.running.Store(0)

	if err := e.db.Scan(); err != nil {
		return 0, err
	}
	e.pub.Publish(idle.Database)
	return id, nil
}
