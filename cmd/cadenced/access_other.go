//go:build !unix

package main

import (
	"cadence.lopezb.com/internal/ack"
	"cadence.lopezb.com/internal/command"
)

// mayAccessPath refuses every local file: without file ownership there is no
// way to tell whether the client could read it.
func mayAccessPath(c *command.Client, path string) error {
	return ack.New(ack.PermissionDenied, "Access denied")
}
