package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fhs/gompd/v2/mpd"

	"cadence.lopezb.com/internal/config"
)

// writeSong creates an empty audio file below dir.
func writeSong(t *testing.T, dir, rel string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatalf("failed to write song: %v", err)
	}
}

// newTestApp is a helper function that creates a new, valid application
// instance for use in tests. The music directory holds a.mp3, dir/b.flac and
// dir/c.ogg. Options may adjust the configuration before the application is
// built.
func newTestApp(t *testing.T, opts ...func(*config.Config)) *application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	musicDir := t.TempDir()
	for _, rel := range []string{"a.mp3", "dir/b.flac", "dir/c.ogg"} {
		writeSong(t, musicDir, rel)
	}

	cfg := &config.Config{
		Port:               0, // Use a random free port
		Bind:               "127.0.0.1",
		MaxConnections:     10,
		ShutdownTimeout:    2 * time.Second,
		ConnectionTimeout:  10 * time.Second,
		MaxCommandListSize: 2097152,
		CommandBurst:       100,
		DefaultPermissions: "read,add,control,admin",
		MusicDir:           musicDir,
		MaxQueueLength:     16384,
		Outputs:            []string{"default"},
		Volume:             100,
		LogLevel:           "info",
		LogFormat:          "text",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	app, err := newApplication(cfg, logger)
	if err != nil {
		t.Fatalf("failed to build application: %v", err)
	}
	return app
}

// startApp runs app until the test ends and returns its TCP address.
func startApp(t *testing.T, app *application) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() { errCh <- app.run(ctx) }()
	<-app.readyCh

	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return app.listener.Addr().String()
}

// testClient is a raw protocol client.
type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

// dial connects and consumes the greeting.
func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect to server: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	c := &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
	if got := c.readLine(); got != "OK MPD 0.14.0\n" {
		t.Fatalf("unexpected greeting: %q", got)
	}
	return c
}

func (c *testClient) send(lines ...string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.WriteString(c.conn, strings.Join(lines, "\n")+"\n"); err != nil {
		c.t.Fatalf("failed to write request: %v", err)
	}
}

func (c *testClient) readLine() string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.t.Fatalf("failed to read response: %v", err)
	}
	return line
}

// response reads up to and including the terminal OK or ACK line.
func (c *testClient) response() string {
	c.t.Helper()
	var sb strings.Builder
	for {
		line := c.readLine()
		sb.WriteString(line)
		if line == "OK\n" || strings.HasPrefix(line, "ACK ") {
			return sb.String()
		}
	}
}

// roundTrip sends one request and returns its full response.
func (c *testClient) roundTrip(line string) string {
	c.t.Helper()
	c.send(line)
	return c.response()
}

// expectClosed asserts that the server closes the connection.
func (c *testClient) expectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// Unread request bytes make the close arrive as a reset, which counts.
	_, err := io.ReadAll(c.reader)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.t.Fatal("expected the server to close the connection")
	}
}

// TestPingServer ensures the greeting and a simple command work over TCP.
func TestPingServer(t *testing.T) {
	addr := startApp(t, newTestApp(t))
	c := dial(t, addr)

	if got := c.roundTrip("ping"); got != "OK\n" {
		t.Errorf("ping: got %q, want %q", got, "OK\n")
	}
	if got := c.roundTrip(""); got != "OK\n" {
		t.Errorf("empty line: got %q, want %q", got, "OK\n")
	}
}

// TestFailureFrames checks the ACK frames of the common failures.
func TestFailureFrames(t *testing.T) {
	addr := startApp(t, newTestApp(t, func(cfg *config.Config) {
		cfg.DefaultPermissions = "read"
	}))
	c := dial(t, addr)

	tests := []struct {
		line string
		want string
	}{
		{"foo", "ACK [5@0] {} unknown command \"foo\"\n"},
		{"PING", "ACK [5@0] {} unknown command \"PING\"\n"},
		{"play", "ACK [4@0] {play} you don't have permission for \"play\"\n"},
		{"status \"open", "ACK [2@0] {} Missing closing '\"'\n"},
		{"listplaylist nope", "ACK [50@0] {listplaylist} No such playlist\n"},
	}

	for _, tt := range tests {
		if got := c.roundTrip(tt.line); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.line, got, tt.want)
		}
	}

	// The connection survives failures.
	if got := c.roundTrip("ping"); got != "OK\n" {
		t.Errorf("ping after failures: got %q", got)
	}
}

// TestCommandList checks a quiet and a verbose command list.
func TestCommandList(t *testing.T) {
	addr := startApp(t, newTestApp(t))
	c := dial(t, addr)

	c.send("command_list_begin", "add a.mp3", "add dir", "command_list_end")
	if got := c.response(); got != "OK\n" {
		t.Errorf("quiet list: got %q", got)
	}

	c.send("command_list_ok_begin", "ping", "playlist", "command_list_end")
	want := "list_OK\n0:a.mp3\n1:dir/b.flac\n2:dir/c.ogg\nOK\n"
	if got := c.response(); got != want {
		t.Errorf("verbose list: got %q, want %q", got, want)
	}
}

// TestCommandListAbort checks that the first failure stops a list and is
// attributed to its position.
func TestCommandListAbort(t *testing.T) {
	addr := startApp(t, newTestApp(t))
	c := dial(t, addr)

	c.send("command_list_ok_begin", "add a.mp3", "play 1 2", "add dir", "command_list_end")
	want := "list_OK\nACK [2@1] {play} too many arguments for \"play\"\n"
	if got := c.response(); got != want {
		t.Errorf("aborted list: got %q, want %q", got, want)
	}

	// Only the entry before the failure ran.
	if got := c.roundTrip("playlist"); got != "0:a.mp3\nOK\n" {
		t.Errorf("playlist after aborted list: got %q", got)
	}

	// A later top-level failure is attributed to position 0 again.
	if got := c.roundTrip("bogus"); got != "ACK [5@0] {} unknown command \"bogus\"\n" {
		t.Errorf("failure after list: got %q", got)
	}
}

// TestCommandListTooLarge checks that an oversized list closes the
// connection.
func TestCommandListTooLarge(t *testing.T) {
	addr := startApp(t, newTestApp(t, func(cfg *config.Config) {
		cfg.MaxCommandListSize = 32
	}))
	c := dial(t, addr)

	c.send("command_list_begin", "add a.mp3", "add dir/b.flac", "add dir/c.ogg", "command_list_end")
	c.expectClosed()
}

// TestIdleWakeup checks that a change made by one client wakes another
// client's idle.
func TestIdleWakeup(t *testing.T) {
	app := newTestApp(t)
	addr := startApp(t, app)
	watcher := dial(t, addr)
	actor := dial(t, addr)

	watcher.send("idle player")

	if got := actor.roundTrip("add a.mp3"); got != "OK\n" {
		t.Fatalf("add: got %q", got)
	}
	if got := actor.roundTrip("play 0"); got != "OK\n" {
		t.Fatalf("play: got %q", got)
	}

	if got := watcher.response(); got != "changed: player\nOK\n" {
		t.Errorf("idle: got %q, want %q", got, "changed: player\nOK\n")
	}

	// The playlist change was cleared by the delivery.
	watcher.send("idle playlist")
	if got := actor.roundTrip("clear"); got != "OK\n" {
		t.Fatalf("clear: got %q", got)
	}
	if got := watcher.response(); got != "changed: playlist\nOK\n" {
		t.Errorf("second idle: got %q", got)
	}

	if app.metrics.IdleWakeups.Load() != 2 {
		t.Errorf("idle wakeups: got %d, want 2", app.metrics.IdleWakeups.Load())
	}
}

// TestIdlePendingEvent checks that an event published before idle is
// reported immediately.
func TestIdlePendingEvent(t *testing.T) {
	addr := startApp(t, newTestApp(t))
	watcher := dial(t, addr)
	actor := dial(t, addr)

	if got := actor.roundTrip("setvol 50"); got != "OK\n" {
		t.Fatalf("setvol: got %q", got)
	}
	if got := watcher.roundTrip("idle"); got != "changed: mixer\nOK\n" {
		t.Errorf("idle: got %q, want %q", got, "changed: mixer\nOK\n")
	}
}

// TestIdleCancelledByInput checks that any input ends an idle wait and is
// then processed as a normal command.
func TestIdleCancelledByInput(t *testing.T) {
	addr := startApp(t, newTestApp(t))
	c := dial(t, addr)

	c.send("idle")
	c.send("noidle")
	if got := c.response(); got != "OK\n" {
		t.Errorf("noidle: got %q, want %q", got, "OK\n")
	}

	c.send("idle database")
	if got := c.roundTrip("status"); !strings.HasPrefix(got, "volume: 100\n") {
		t.Errorf("status after idle: got %q", got)
	}
}

// TestIdleInsideCommandList checks that idle ends a command list and leaves
// the connection waiting.
func TestIdleInsideCommandList(t *testing.T) {
	addr := startApp(t, newTestApp(t))
	c := dial(t, addr)
	actor := dial(t, addr)

	c.send("command_list_begin", "ping", "idle options", "ping", "command_list_end")

	if got := actor.roundTrip("repeat 1"); got != "OK\n" {
		t.Fatalf("repeat: got %q", got)
	}
	if got := c.response(); got != "changed: options\nOK\n" {
		t.Errorf("idle in list: got %q", got)
	}
}

// waitForSubscribers polls until the hub holds want subscriptions.
func waitForSubscribers(t *testing.T, app *application, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for app.hub.Len() != want {
		if time.Now().After(deadline) {
			t.Fatalf("hub holds %d subscriptions, want %d", app.hub.Len(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestIdleReleasedOnClose checks that a client disconnecting mid-idle gives
// up its subscription and no longer receives events.
func TestIdleReleasedOnClose(t *testing.T) {
	app := newTestApp(t)
	addr := startApp(t, app)
	c := dial(t, addr)
	actor := dial(t, addr)

	c.send("idle")
	waitForSubscribers(t, app, 2)

	_ = c.conn.Close()
	waitForSubscribers(t, app, 1)

	if got := actor.roundTrip("repeat 1"); got != "OK\n" {
		t.Fatalf("repeat: got %q", got)
	}
	if got := app.metrics.IdleWakeups.Load(); got != 0 {
		t.Errorf("idle wakeups = %d, want 0", got)
	}
	if got := actor.roundTrip("ping"); got != "OK\n" {
		t.Errorf("ping after close: got %q", got)
	}
}

// TestCloseCommand checks that close ends the connection without a reply.
func TestCloseCommand(t *testing.T) {
	addr := startApp(t, newTestApp(t))
	c := dial(t, addr)

	c.send("close")
	c.expectClosed()
}

// TestPasswordOverTCP checks the authentication flow.
func TestPasswordOverTCP(t *testing.T) {
	addr := startApp(t, newTestApp(t, func(cfg *config.Config) {
		cfg.DefaultPermissions = ""
		cfg.Passwords = []string{"hunter2@read,control"}
	}))
	c := dial(t, addr)

	if got := c.roundTrip("status"); got != "ACK [4@0] {status} you don't have permission for \"status\"\n" {
		t.Errorf("status before password: got %q", got)
	}
	if got := c.roundTrip("password wrong"); got != "ACK [3@0] {password} incorrect password\n" {
		t.Errorf("wrong password: got %q", got)
	}
	if got := c.roundTrip("password hunter2"); got != "OK\n" {
		t.Fatalf("password: got %q", got)
	}
	if got := c.roundTrip("status"); !strings.HasPrefix(got, "volume: ") {
		t.Errorf("status after password: got %q", got)
	}
}

// TestConnectionLimiter verifies that the server correctly limits the number
// of concurrent connections.
func TestConnectionLimiter(t *testing.T) {
	addr := startApp(t, newTestApp(t, func(cfg *config.Config) {
		cfg.MaxConnections = 1
	}))
	_ = dial(t, addr)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect to server: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read rejection: %v", err)
	}
	if want := "ACK [52@0] {} Max connections reached\n"; got != want {
		t.Errorf("rejection: got %q, want %q", got, want)
	}
}

// TestPipelinedRequests checks that requests written in one batch are all
// answered, in order.
func TestPipelinedRequests(t *testing.T) {
	addr := startApp(t, newTestApp(t))
	c := dial(t, addr)

	const n = 50
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "add a.mp3"
	}
	c.send(lines...)
	for i := 0; i < n; i++ {
		if got := c.response(); got != "OK\n" {
			t.Fatalf("response %d: got %q", i, got)
		}
	}

	if got := c.roundTrip("status"); !strings.Contains(got, "playlistlength: 50\n") {
		t.Errorf("status after pipeline: got %q", got)
	}
}

// TestKillStopsServer checks that kill shuts the whole daemon down.
func TestKillStopsServer(t *testing.T) {
	app := newTestApp(t)
	errCh := make(chan error, 1)
	go func() { errCh <- app.run(context.Background()) }()
	<-app.readyCh

	c := dial(t, app.listener.Addr().String())
	c.send("kill")

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after kill")
	}
}

// TestMPDClientLibrary drives the server with a third-party client.
func TestMPDClientLibrary(t *testing.T) {
	addr := startApp(t, newTestApp(t))

	client, err := mpd.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("mpd.Dial: %v", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := client.Add("dir"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	w, err := mpd.NewWatcher("tcp", addr, "", "player")
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer func() { _ = w.Close() }()

	if err := client.Play(1); err != nil {
		t.Fatalf("Play: %v", err)
	}

	select {
	case subsystem := <-w.Event:
		if subsystem != "player" {
			t.Errorf("watcher event: got %q, want %q", subsystem, "player")
		}
	case err := <-w.Error:
		t.Fatalf("watcher error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("no watcher event")
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status["state"] != "play" || status["song"] != "1" || status["playlistlength"] != "2" {
		t.Errorf("unexpected status: %v", status)
	}

	song, err := client.CurrentSong()
	if err != nil {
		t.Fatalf("CurrentSong: %v", err)
	}
	if song["file"] != "dir/c.ogg" {
		t.Errorf("current song: got %v", song)
	}
}
