package command

import (
	"errors"
	"time"

	"cadence.lopezb.com/internal/ack"
	"cadence.lopezb.com/internal/protocol"
)

// Outcome is what became of a dispatched request.
type Outcome int

const (
	// OK: the command succeeded and its body, if any, has been written.
	OK Outcome = iota
	// Failed: Result.Err describes the failure.
	Failed
	// NoReply: the command succeeded but the default OK is suppressed.
	NoReply
	// Close: the connection must be closed without a reply.
	Close
	// Kill: the server must terminate.
	Kill
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Failed:
		return "failed"
	case NoReply:
		return "no-reply"
	case Close:
		return "close"
	case Kill:
		return "kill"
	default:
		return "unknown"
	}
}

// Result is the outcome of one request.
type Result struct {
	Outcome Outcome
	// Command is the resolved command name, empty if resolution failed.
	Command string
	// Err is set if and only if Outcome is Failed.
	Err *ack.Error
}

// Tokenizer splits a request line into an argument vector.
type Tokenizer func(line string) ([]string, error)

// Observer is notified after every dispatched request that named a command.
type Observer func(c *Client, argv []string, res Result, elapsed time.Duration)

// Dispatcher routes request lines to handlers.
type Dispatcher struct {
	registry *Registry
	tokenize Tokenizer
	observe  Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTokenizer replaces the default protocol tokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(d *Dispatcher) { d.tokenize = t }
}

// WithObserver installs a hook called after each dispatch.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observe = o }
}

func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		tokenize: protocol.Tokenize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the table the dispatcher routes through.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs a single request line and reports its outcome. It writes the
// handler's body output but never a terminal frame; see Execute and RunList.
func (d *Dispatcher) Dispatch(c *Client, r *Responder, line string) Result {
	r.setCommand("")

	argv, err := d.tokenize(line)
	if err != nil {
		return failed("", tokenizeError(err))
	}
	if len(argv) == 0 {
		return Result{Outcome: OK}
	}

	start := time.Now()
	res := d.dispatchArgv(c, r, argv)
	if d.observe != nil {
		d.observe(c, argv, res, time.Since(start))
	}
	return res
}

func (d *Dispatcher) dispatchArgv(c *Client, r *Responder, argv []string) Result {
	desc, found := d.registry.Lookup(argv[0])
	if !found {
		return failed("", ack.Errorf(ack.UnknownCommand, "unknown command \"%s\"", argv[0]))
	}

	r.setCommand(desc.Name)

	if e := Validate(desc, c.Permission(), argv); e != nil {
		return failed(desc.Name, e)
	}

	return resultFromError(desc.Name, desc.Handler.Handle(c, argv))
}

// Execute dispatches a top-level request and writes its terminal frame: OK on
// success, an ACK on failure, and nothing for the lifecycle outcomes.
func (d *Dispatcher) Execute(c *Client, r *Responder, line string) Result {
	res := d.Dispatch(c, r, line)
	switch res.Outcome {
	case OK:
		_ = r.OK()
	case Failed:
		_ = r.Fail(res.Err)
	}
	return res
}

func failed(name string, e *ack.Error) Result {
	return Result{Outcome: Failed, Command: name, Err: e}
}

// resultFromError translates a handler's return value. Nothing a handler
// returns escapes as a Go error: unexpected errors become system failures.
func resultFromError(name string, err error) Result {
	if err == nil {
		return Result{Outcome: OK, Command: name}
	}

	var e *ack.Error
	switch {
	case errors.Is(err, ErrNoReply):
		return Result{Outcome: NoReply, Command: name}
	case errors.Is(err, ErrClose):
		return Result{Outcome: Close, Command: name}
	case errors.Is(err, ErrKill):
		return Result{Outcome: Kill, Command: name}
	case errors.As(err, &e):
		return failed(name, e)
	default:
		return failed(name, ack.New(ack.SystemFailure, err.Error()))
	}
}

func tokenizeError(err error) *ack.Error {
	switch {
	case errors.Is(err, protocol.ErrUnterminatedQuote):
		return ack.New(ack.ArgumentFormat, "Missing closing '\"'")
	case errors.Is(err, protocol.ErrTooManyArgs):
		return ack.New(ack.ArgumentFormat, "Too many arguments")
	default:
		return ack.New(ack.ArgumentFormat, err.Error())
	}
}
