// Package ack defines the error taxonomy of the command protocol and the
// wire format used to report failures to clients.
//
// Every failure a client can observe is an *Error carrying a Kind and a
// human-readable message. The Kind determines the integer code printed in
// the failure frame:
//
//	ACK [<code>@<list index>] {<command>} <message>
//
// Several kinds share a wire code. The argument-count kinds, for example, are
// distinct values in Go so callers and tests can tell them apart, but they are
// all reported as code 2 because that is what existing clients expect.
package ack

import (
	"fmt"
	"io"
	"strconv"
)

// Kind classifies a protocol failure.
type Kind int

const (
	UnknownCommand Kind = iota + 1
	PermissionDenied
	WrongArgumentCount
	TooFewArguments
	TooManyArguments
	ArgumentFormat
	NotFound
	AlreadyExists
	Conflict
	ResourceExhausted
	AuthenticationFailed
	SystemFailure
)

// Wire codes understood by clients.
const (
	codeArg          = 2
	codePassword     = 3
	codePermission   = 4
	codeUnknown      = 5
	codeNoExist      = 50
	codePlaylistMax  = 51
	codeSystem       = 52
	codePlayerSync   = 55
	codeExist        = 56
	codeUnclassified = 0
)

// Code returns the integer printed inside the brackets of an ACK frame.
func (k Kind) Code() int {
	switch k {
	case UnknownCommand:
		return codeUnknown
	case PermissionDenied:
		return codePermission
	case WrongArgumentCount, TooFewArguments, TooManyArguments, ArgumentFormat:
		return codeArg
	case NotFound:
		return codeNoExist
	case AlreadyExists:
		return codeExist
	case Conflict:
		return codePlayerSync
	case ResourceExhausted:
		return codePlaylistMax
	case AuthenticationFailed:
		return codePassword
	case SystemFailure:
		return codeSystem
	default:
		return codeUnclassified
	}
}

func (k Kind) String() string {
	switch k {
	case UnknownCommand:
		return "unknown command"
	case PermissionDenied:
		return "permission denied"
	case WrongArgumentCount:
		return "wrong argument count"
	case TooFewArguments:
		return "too few arguments"
	case TooManyArguments:
		return "too many arguments"
	case ArgumentFormat:
		return "argument format"
	case NotFound:
		return "not found"
	case AlreadyExists:
		return "already exists"
	case Conflict:
		return "conflict"
	case ResourceExhausted:
		return "resource exhausted"
	case AuthenticationFailed:
		return "authentication failed"
	case SystemFailure:
		return "system failure"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Error is a failure destined for the client.
type Error struct {
	Kind    Kind
	Message string
}

// New returns an *Error with a fixed message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf returns an *Error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

// AppendFrame appends the wire representation of e to buf.
//
// Format: ACK [<code>@<listIndex>] {<command>} <message>\n
func AppendFrame(buf []byte, e *Error, listIndex int, command string) []byte {
	buf = append(buf, "ACK ["...)
	buf = strconv.AppendInt(buf, int64(e.Kind.Code()), 10)
	buf = append(buf, '@')
	buf = strconv.AppendInt(buf, int64(listIndex), 10)
	buf = append(buf, "] {"...)
	buf = append(buf, command...)
	buf = append(buf, "} "...)
	buf = append(buf, e.Message...)
	buf = append(buf, '\n')
	return buf
}

// WriteFrame writes a single failure frame to w.
func WriteFrame(w io.Writer, e *Error, listIndex int, command string) error {
	buf := make([]byte, 0, 24+len(command)+len(e.Message))
	buf = AppendFrame(buf, e, listIndex, command)
	_, err := w.Write(buf)
	return err
}
