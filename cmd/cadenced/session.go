package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"cadence.lopezb.com/internal/command"
	"cadence.lopezb.com/internal/idle"
	"cadence.lopezb.com/internal/protocol"
)

const (
	greeting = "OK MPD 0.14.0\n"

	cmdListBegin   = "command_list_begin"
	cmdListOKBegin = "command_list_ok_begin"
	cmdListEnd     = "command_list_end"

	// inputQueue is how many request lines the reader may run ahead of the
	// session. Queued lines also tell the session to postpone flushing.
	inputQueue = 64
)

// input is one line from the reader goroutine, or the error that ended it.
type input struct {
	line string
	err  error
}

// session is the state machine of one connection.
//
//	Active --idle--> Idle-Waiting --event--> Active (changed: lines, OK)
//	                              --input--> Active (input dispatched)
//	Active --command_list_begin--> Collecting --command_list_end--> Active
//
// Any state ends on close, kill, a read error, or server shutdown.
type session struct {
	app     *application
	conn    net.Conn
	out     *bufio.Writer
	client  *command.Client
	resp    *command.Responder
	sub     *idle.Subscriber
	limiter *rate.Limiter
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	input  chan input

	collecting bool
	listOK     bool
	list       []string
	listSize   int
}

func (app *application) newSession(conn net.Conn) *session {
	id := uuid.NewString()
	remoteAddr := conn.RemoteAddr().String()
	out := bufio.NewWriterSize(conn, 4096)

	logger := app.logger.With("client_id", id, "remote_addr", remoteAddr)
	client := command.NewClient(id, remoteAddr, out, app.defaultPerm)
	client.Logger = logger

	s := &session{
		app:    app,
		conn:   conn,
		out:    out,
		client: client,
		resp:   command.NewResponder(out),
		sub:    app.hub.Subscribe(id),
		logger: logger,
		input:  make(chan input, inputQueue),
	}
	if app.config.CommandRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(app.config.CommandRate), app.config.CommandBurst)
	}
	return s
}

// run serves the connection until it ends.
func (s *session) run() {
	//
	// DESIGN
	// ------
	//
	// 1. SEPARATE READER
	//    A goroutine reads lines into s.input so the session can wait for
	//    input, idle wake-ups and shutdown in a single select. Only the session
	//    goroutine touches the writer and the read deadline.
	//
	// 2. SMART FLUSH
	//    Responses accumulate in a 4KB bufio.Writer. When the reader has
	//    already queued more lines (a pipelining client) the flush is skipped
	//    and the next command is processed immediately; the batch is written
	//    once the queue drains.
	//
	// 3. IDLE
	//    After a command asks for idle, the session blocks on the subscriber's
	//    wake channel and on new input at the same time. Whichever fires first
	//    decides: an event is reported and answered with OK; input cancels the
	//    wait silently and is then dispatched like any other line.
	//
	s.ctx, s.cancel = context.WithCancel(context.Background())
	defer s.cancel()
	go func() {
		select {
		case <-s.app.done:
			s.cancel()
		case <-s.ctx.Done():
		}
	}()

	defer func() { _ = s.flush() }()

	if _, err := io.WriteString(s.out, greeting); err != nil {
		return
	}
	if err := s.flush(); err != nil {
		s.logger.Debug("failed to send greeting", "error", err)
		return
	}

	go s.readLoop()

	var (
		next    input
		hasNext bool
	)
	for {
		var in input
		if hasNext {
			in, hasNext = next, false
		} else {
			s.touchDeadline()
			select {
			case in = <-s.input:
			case <-s.ctx.Done():
				return
			}
		}

		if in.err != nil {
			s.logReadError(in.err)
			return
		}
		if !s.handleLine(in.line) {
			return
		}

		if mask, ok := s.client.TakeIdle(); ok {
			if err := s.flush(); err != nil {
				return
			}
			var alive bool
			next, hasNext, alive = s.idleWait(mask)
			if !alive {
				return
			}
			if hasNext {
				continue
			}
		}

		// Smart Flush: only flush when no further request is queued.
		if len(s.input) == 0 {
			if err := s.flush(); err != nil {
				s.logger.Debug("failed to flush response", "error", err)
				return
			}
		}
	}
}

func (s *session) readLoop() {
	r := protocol.NewLineReader(s.conn)
	for {
		line, err := r.ReadLine()
		select {
		case s.input <- input{line: line, err: err}:
		case <-s.ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// handleLine processes one request line. It returns false when the
// connection must be closed.
func (s *session) handleLine(line string) bool {
	if s.limiter != nil {
		if err := s.limiter.Wait(s.ctx); err != nil {
			return false
		}
	}

	if s.collecting {
		if line == cmdListEnd {
			lines, verbose := s.list, s.listOK
			s.collecting, s.list, s.listSize = false, nil, 0
			return s.finish(s.app.dispatcher.RunList(s.client, s.resp, lines, verbose))
		}

		s.listSize += len(line) + 1
		if s.listSize > s.app.config.MaxCommandListSize {
			s.logger.Warn("command list too large, closing connection",
				"size", s.listSize, "max", s.app.config.MaxCommandListSize)
			return false
		}
		s.list = append(s.list, line)
		return true
	}

	switch line {
	case cmdListBegin, cmdListOKBegin:
		s.collecting = true
		s.listOK = line == cmdListOKBegin
		return true
	}

	return s.finish(s.app.dispatcher.Execute(s.client, s.resp, line))
}

// finish applies the connection-level consequence of a dispatch result.
func (s *session) finish(res command.Result) bool {
	switch res.Outcome {
	case command.Close:
		return false
	case command.Kill:
		s.logger.Info("kill requested by client")
		s.app.kill()
		return false
	}
	return !s.client.Expired()
}

// idleWait blocks until an event matching mask, new input, or shutdown. It
// returns the input that cancelled the wait, if any, and whether the session
// is still alive.
func (s *session) idleWait(mask idle.Mask) (input, bool, bool) {
	// Idle clients are exempt from the connection timeout.
	_ = s.conn.SetReadDeadline(time.Time{})

	select {
	case changed := <-s.sub.Wait(mask):
		changed.Each(func(name string) {
			s.client.Printf("changed: %s", name)
		})
		_ = s.resp.OK()
		s.app.metrics.IdleWakeups.Add(1)
		return input{}, false, !s.client.Expired()

	case in := <-s.input:
		s.sub.Cancel()
		return in, true, true

	case <-s.ctx.Done():
		s.sub.Cancel()
		return input{}, false, false
	}
}

func (s *session) touchDeadline() {
	if s.app.config.ConnectionTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.app.config.ConnectionTimeout))
	}
}

func (s *session) flush() error {
	if s.out.Buffered() == 0 {
		return nil
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.out.Flush(); err != nil {
		s.client.Expire()
		return err
	}
	return nil
}

func (s *session) logReadError(err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		s.logger.Info("client disconnected")
	case errors.As(err, &netErr) && netErr.Timeout():
		s.logger.Info("client timed out")
	case errors.Is(err, protocol.ErrLineTooLong):
		s.logger.Warn("request line too long, closing connection")
	case errors.Is(err, net.ErrClosed):
		s.logger.Debug("connection closed")
	default:
		s.logger.Error("read error", "error", err)
	}
}
