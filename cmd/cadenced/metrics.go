package main

import (
	"sync/atomic"
	"time"

	"cadence.lopezb.com/internal/command"
)

// Metrics holds the atomic counters for monitoring the server's health.
type Metrics struct {
	TotalConnections  atomic.Uint64 // Counts total connections ever made
	ActiveConnections atomic.Int64  // Connections currently open
	TotalCommands     atomic.Uint64 // Counts total commands ever dispatched
	FailedCommands    atomic.Uint64 // Commands answered with an ACK
	IdleWakeups       atomic.Uint64 // Idle waits ended by an event
	started           time.Time
}

// NewMetrics creates and returns a new Metrics struct.
func NewMetrics() *Metrics {
	return &Metrics{started: time.Now()}
}

// observe is the dispatcher hook: it counts every dispatched command and
// logs it at debug level.
func (app *application) observe(c *command.Client, argv []string, res command.Result, elapsed time.Duration) {
	app.metrics.TotalCommands.Add(1)

	if res.Outcome == command.Failed {
		app.metrics.FailedCommands.Add(1)
		c.Logger.Debug("command failed", "command", argv[0], "error", res.Err, "elapsed", elapsed)
		return
	}
	c.Logger.Debug("command", "command", argv[0], "outcome", res.Outcome.String(), "elapsed", elapsed)
}

// statsSnapshot is served on the HTTP side channel's /stats route.
func (app *application) statsSnapshot() any {
	return map[string]any{
		"connections_total":  app.metrics.TotalConnections.Load(),
		"connections_active": app.metrics.ActiveConnections.Load(),
		"commands_total":     app.metrics.TotalCommands.Load(),
		"commands_failed":    app.metrics.FailedCommands.Load(),
		"idle_wakeups":       app.metrics.IdleWakeups.Load(),
		"subscribers":        app.hub.Len(),
		"uptime_seconds":     int64(time.Since(app.metrics.started) / time.Second),
	}
}
