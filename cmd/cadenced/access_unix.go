//go:build unix

package main

import (
	"errors"
	"io/fs"
	"os"
	"syscall"

	"cadence.lopezb.com/internal/ack"
	"cadence.lopezb.com/internal/command"
)

var errAccessDenied = ack.New(ack.PermissionDenied, "Access denied")

// mayAccessPath reports whether the client may add the local file at path.
//
// A client running as the daemon's own user may read anything the daemon can.
// Any other known user needs to own the file or the file must be world
// readable. Clients whose user is unknown (every TCP client) are refused.
func mayAccessPath(c *command.Client, path string) error {
	if c.UID >= 0 && c.UID == os.Geteuid() {
		return nil
	}
	if c.UID <= 0 {
		return errAccessDenied
	}

	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ack.New(ack.NotFound, "No such file or directory")
		}
		return ack.New(ack.SystemFailure, err.Error())
	}

	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return errAccessDenied
	}
	if int(st.Uid) != c.UID && fi.Mode().Perm()&0o444 != 0o444 {
		return errAccessDenied
	}
	return nil
}
