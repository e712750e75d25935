package command

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"cadence.lopezb.com/internal/idle"
)

// Handler implements one command.
//
// A handler may write response body lines to the client before returning.
// It reports failure by returning an *ack.Error; any other non-nil error is
// reported to the client as a system failure. The sentinel errors ErrNoReply,
// ErrClose and ErrKill are not failures: they tell the connection owner what
// to do after the command.
type Handler interface {
	Handle(c *Client, argv []string) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(c *Client, argv []string) error

func (f HandlerFunc) Handle(c *Client, argv []string) error {
	return f(c, argv)
}

var (
	// ErrNoReply marks a successful command whose default OK must be
	// suppressed because the connection answers later (idle).
	ErrNoReply = errors.New("command: no reply")

	// ErrClose asks the connection owner to close the connection.
	ErrClose = errors.New("command: close connection")

	// ErrKill asks the connection owner to terminate the server.
	ErrKill = errors.New("command: kill server")
)

// Client is the per-connection state handlers operate on. It is owned by a
// single connection and never shared, except for the expired marker, which
// the connection's reader may set concurrently.
type Client struct {
	ID         string
	RemoteAddr string
	// UID is the operating system user of a local client, or -1 when unknown.
	UID    int
	Logger *slog.Logger

	out        io.Writer
	permission Permission
	expired    atomic.Bool

	idleRequested bool
	idleMask      idle.Mask
}

// NewClient returns a client writing response bodies to out and holding the
// given initial permissions.
func NewClient(id, remoteAddr string, out io.Writer, perm Permission) *Client {
	return &Client{
		ID:         id,
		RemoteAddr: remoteAddr,
		UID:        -1,
		Logger:     slog.New(slog.DiscardHandler),
		out:        out,
		permission: perm,
	}
}

// Permission returns the capabilities currently granted to the client.
func (c *Client) Permission() Permission {
	return c.permission
}

// SetPermission replaces the client's capabilities wholesale.
func (c *Client) SetPermission(p Permission) {
	c.permission = p
}

// Write writes raw response body bytes. A failed write marks the client
// expired.
func (c *Client) Write(p []byte) (int, error) {
	n, err := c.out.Write(p)
	if err != nil {
		c.Expire()
	}
	return n, err
}

// Printf writes one formatted response body line. The newline is appended.
func (c *Client) Printf(format string, args ...any) {
	buf := fmt.Appendf(nil, format, args...)
	buf = append(buf, '\n')
	_, _ = c.Write(buf)
}

// Pair writes a "key: value" response body line.
func (c *Client) Pair(key string, value any) {
	c.Printf("%s: %v", key, value)
}

// Expire marks the client's transport as gone. Processing stops at the next
// opportunity and no further output is produced.
func (c *Client) Expire() {
	c.expired.Store(true)
}

// Expired reports whether the client's transport is gone.
func (c *Client) Expired() bool {
	return c.expired.Load()
}

// RequestIdle records that the current command wants the connection to wait
// for the categories in m. The handler must then return ErrNoReply.
func (c *Client) RequestIdle(m idle.Mask) {
	c.idleRequested = true
	c.idleMask = m
}

// TakeIdle returns and clears a pending idle request.
func (c *Client) TakeIdle() (idle.Mask, bool) {
	if !c.idleRequested {
		return 0, false
	}
	c.idleRequested = false
	return c.idleMask, true
}
