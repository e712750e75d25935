package command

import (
	"io"

	"cadence.lopezb.com/internal/ack"
)

// Pre-allocated terminal frames.
var (
	respOK     = []byte("OK\n")
	respListOK = []byte("list_OK\n")
)

// Responder writes the terminal frames of a connection and remembers what an
// error frame must be attributed to: the command currently being executed
// and its position inside a command list.
//
// The current command is set by the dispatcher once a name has been resolved
// and cleared after every failure frame, so a stale name can never leak into
// an unrelated error.
type Responder struct {
	w         io.Writer
	command   string
	listIndex int
}

func NewResponder(w io.Writer) *Responder {
	return &Responder{w: w}
}

func (r *Responder) setCommand(name string) {
	r.command = name
}

func (r *Responder) setListIndex(i int) {
	r.listIndex = i
}

// OK writes the success frame.
func (r *Responder) OK() error {
	_, err := r.w.Write(respOK)
	return err
}

// ListOK writes the interstitial acknowledgement of a verbose command list.
func (r *Responder) ListOK() error {
	_, err := r.w.Write(respListOK)
	return err
}

// Fail writes a failure frame for e and clears the current command.
func (r *Responder) Fail(e *ack.Error) error {
	err := ack.WriteFrame(r.w, e, r.listIndex, r.command)
	r.command = ""
	return err
}
