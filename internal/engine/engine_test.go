package engine

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence.lopezb.com/internal/idle"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []idle.Mask
}

func (p *recordingPublisher) Publish(m idle.Mask) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, m)
	return 0
}

func (p *recordingPublisher) take() []idle.Mask {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev := p.events
	p.events = nil
	return ev
}

// writeTree creates files under a temporary music directory.
func writeTree(t *testing.T, files ...string) string {
	t.Helper()

	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	return root
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *recordingPublisher) {
	t.Helper()

	root := writeTree(t,
		"a/1.mp3",
		"a/2.flac",
		"b/3.ogg",
		"b/notes.txt",
		".hidden/4.mp3",
		"5.wav",
	)
	db := NewDatabase(root)
	require.NoError(t, db.Scan())

	pub := &recordingPublisher{}
	return New(cfg, pub, db), pub
}

func uris(songs []Song) []string {
	var out []string
	for _, s := range songs {
		out = append(out, s.URI)
	}
	return out
}

func TestDatabaseScan(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	db := e.Database()

	songs, dirs := db.Counts()
	assert.Equal(t, 4, songs)
	assert.Equal(t, 2, dirs)

	root, err := db.ListDir("")
	require.NoError(t, err)
	var paths []string
	for _, ent := range root {
		paths = append(paths, ent.Path)
	}
	assert.Equal(t, []string{"5.wav", "a", "b"}, paths)

	all, err := db.SongsUnder("/a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1.mp3", "a/2.flac"}, all)

	_, err = db.ListDir("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, db.HasSong("b/3.ogg"))
	assert.False(t, db.HasSong("b/notes.txt"))
	assert.False(t, db.HasSong(".hidden/4.mp3"))
}

func TestAddAndPublish(t *testing.T) {
	e, pub := newTestEngine(t, Config{})

	s, err := e.Add("a/1.mp3")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), s.ID)
	assert.Equal(t, 0, s.Pos)
	assert.Equal(t, []idle.Mask{idle.Playlist}, pub.take())

	_, err = e.Add("nope.mp3")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, pub.take(), "failed mutations publish nothing")

	added, err := e.AddAll("")
	require.NoError(t, err)
	assert.Len(t, added, 4)
	assert.Equal(t, 5, e.Status().PlaylistLength)
}

func TestQueueFull(t *testing.T) {
	e, _ := newTestEngine(t, Config{MaxQueueLength: 2})

	_, err := e.AddAll("a")
	require.NoError(t, err)

	_, err = e.Add("5.wav")
	assert.ErrorIs(t, err, ErrPlaylistFull)

	_, err = e.AddAll("b")
	assert.ErrorIs(t, err, ErrPlaylistFull)
}

func TestDeleteMoveSwap(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	_, err := e.AddAll("")
	require.NoError(t, err)
	require.Equal(t, []string{"5.wav", "a/1.mp3", "a/2.flac", "b/3.ogg"}, uris(e.Queue()))

	require.NoError(t, e.Move(0, 3))
	assert.Equal(t, []string{"a/1.mp3", "a/2.flac", "b/3.ogg", "5.wav"}, uris(e.Queue()))

	require.NoError(t, e.Swap(0, 1))
	assert.Equal(t, []string{"a/2.flac", "a/1.mp3", "b/3.ogg", "5.wav"}, uris(e.Queue()))

	require.NoError(t, e.Delete(2))
	assert.Equal(t, []string{"a/2.flac", "a/1.mp3", "5.wav"}, uris(e.Queue()))

	for i, s := range e.Queue() {
		assert.Equal(t, i, s.Pos)
	}

	assert.ErrorIs(t, e.Delete(7), ErrBadRange)
	assert.ErrorIs(t, e.DeleteID(99), ErrNoSuchSong)
	assert.ErrorIs(t, e.Move(0, 9), ErrBadRange)
	assert.ErrorIs(t, e.SwapID(1, 99), ErrNoSuchSong)
}

func TestChangesSinceVersion(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	_, err := e.AddAll("a")
	require.NoError(t, err)

	v := e.Status().Version
	_, err = e.Add("5.wav")
	require.NoError(t, err)

	changed := e.Changes(v)
	assert.Equal(t, []string{"5.wav"}, uris(changed))
	assert.Len(t, e.Changes(0), 3)
}

func TestPlayback(t *testing.T) {
	e, pub := newTestEngine(t, Config{})

	require.NoError(t, e.Play(-1), "empty queue is a no-op")
	assert.Equal(t, Stopped, e.Status().State)

	_, err := e.AddAll("a")
	require.NoError(t, err)
	pub.take()

	assert.ErrorIs(t, e.Play(5), ErrBadRange)

	require.NoError(t, e.Play(1))
	st := e.Status()
	assert.Equal(t, Playing, st.State)
	assert.Equal(t, 1, st.Song)
	assert.Equal(t, uint32(2), st.SongID)
	assert.Equal(t, []idle.Mask{idle.Player}, pub.take())

	require.NoError(t, e.TogglePause())
	assert.Equal(t, Paused, e.Status().State)
	require.NoError(t, e.Play(-1))
	assert.Equal(t, Playing, e.Status().State)

	require.NoError(t, e.Next())
	assert.Equal(t, Stopped, e.Status().State, "next past the end stops without repeat")

	require.NoError(t, e.SetRepeat(true))
	require.NoError(t, e.PlayID(2))
	require.NoError(t, e.Next())
	assert.Equal(t, 0, e.Status().Song, "repeat wraps around")

	require.NoError(t, e.Stop())
	assert.Equal(t, Stopped, e.Status().State)
	assert.ErrorIs(t, e.PlayID(42), ErrNoSuchSong)
}

func TestDeletingCurrentSongStops(t *testing.T) {
	e, pub := newTestEngine(t, Config{})
	_, err := e.AddAll("a")
	require.NoError(t, err)
	require.NoError(t, e.Play(0))
	pub.take()

	require.NoError(t, e.Delete(0))

	assert.Equal(t, Stopped, e.Status().State)
	assert.Equal(t, []idle.Mask{idle.Playlist | idle.Player}, pub.take())
}

func TestCurrentSongFollowsMoves(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	_, err := e.AddAll("")
	require.NoError(t, err)
	require.NoError(t, e.Play(1))

	require.NoError(t, e.Move(1, 3))
	cur, ok := e.CurrentSong()
	require.True(t, ok)
	assert.Equal(t, "a/1.mp3", cur.URI)

	require.NoError(t, e.Shuffle())
	cur, ok = e.CurrentSong()
	require.True(t, ok)
	assert.Equal(t, "a/1.mp3", cur.URI)
}

func TestMixerAndOptions(t *testing.T) {
	e, pub := newTestEngine(t, Config{Volume: 50, Outputs: []string{"alsa", "null"}})

	require.NoError(t, e.SetVolume(80))
	assert.ErrorIs(t, e.SetVolume(101), ErrBadVolume)
	require.NoError(t, e.ChangeVolume(50))
	assert.Equal(t, 100, e.Status().Volume)

	require.NoError(t, e.SetRandom(true))
	require.NoError(t, e.SetCrossfade(3))
	require.NoError(t, e.SetRandom(true))

	require.NoError(t, e.SetOutput(1, false))
	assert.ErrorIs(t, e.SetOutput(2, false), ErrNoSuchOutput)
	assert.False(t, e.Outputs()[1].Enabled)

	assert.Equal(t, []idle.Mask{idle.Mixer, idle.Mixer, idle.Options, idle.Options, idle.Output}, pub.take())
}

func TestPlayerError(t *testing.T) {
	e, pub := newTestEngine(t, Config{})

	e.SetError("decoder failed")
	assert.Equal(t, "decoder failed", e.Status().Error)

	require.NoError(t, e.ClearError())
	assert.Empty(t, e.Status().Error)
	assert.Equal(t, []idle.Mask{idle.Player, idle.Player}, pub.take())
}

func TestStoredPlaylists(t *testing.T) {
	e, pub := newTestEngine(t, Config{})
	_, err := e.AddAll("a")
	require.NoError(t, err)
	pub.take()

	require.NoError(t, e.Save("mix"))
	assert.ErrorIs(t, e.Save("mix"), ErrPlaylistExists)
	assert.ErrorIs(t, e.Save("bad/name"), ErrBadName)

	require.NoError(t, e.PlaylistAdd("mix", "5.wav"))
	got, err := e.Playlist("mix")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1.mp3", "a/2.flac", "5.wav"}, got)

	require.NoError(t, e.PlaylistMove("mix", 2, 0))
	require.NoError(t, e.PlaylistDelete("mix", 1))
	got, _ = e.Playlist("mix")
	assert.Equal(t, []string{"5.wav", "a/2.flac"}, got)

	require.NoError(t, e.Rename("mix", "best"))
	_, err = e.Playlist("mix")
	assert.ErrorIs(t, err, ErrNoSuchPlaylist)

	require.NoError(t, e.Clear())
	require.NoError(t, e.Load("best"))
	assert.Equal(t, []string{"5.wav", "a/2.flac"}, uris(e.Queue()))

	require.Len(t, e.Playlists(), 1)
	require.NoError(t, e.Remove("best"))
	assert.Empty(t, e.Playlists())
	assert.ErrorIs(t, e.Remove("best"), ErrNoSuchPlaylist)

	assert.Contains(t, pub.take(), idle.StoredPlaylist)
}

func TestAddFile(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	dir := t.TempDir()
	p := filepath.Join(dir, "outside.mp3")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	s, err := e.AddFile(p)
	require.NoError(t, err)
	assert.Equal(t, "file://"+p, s.URI)

	_, err = e.AddFile(filepath.Join(dir, "missing.mp3"))
	assert.ErrorIs(t, err, ErrNoSuchSong)

	_, err = e.AddFile("relative.mp3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	e, pub := newTestEngine(t, Config{})
	root := e.Database().Root()
	require.NoError(t, os.WriteFile(filepath.Join(root, "b", "6.mp3"), []byte("x"), 0o644))

	id, err := e.Update("")
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Zero(t, e.Status().UpdatingDB)
	assert.True(t, e.Database().HasSong("b/6.mp3"))
	assert.Equal(t, []idle.Mask{idle.Database}, pub.take())

	_, err = e.Update("nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSongTitle(t *testing.T) {
	assert.Equal(t, "1", Song{URI: "a/1.mp3"}.Title())
	assert.Equal(t, "track", Song{URI: "track.flac"}.Title())
}
