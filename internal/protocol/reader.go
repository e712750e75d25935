// Package protocol implements the byte-level half of the command protocol:
// reading newline-terminated requests from a connection and splitting each
// request into an argument vector.
//
// Framing
// =======
//
// A request is a single line terminated by '\n'. A trailing '\r' is
// tolerated and stripped so that telnet-style clients work unchanged. There
// is no length prefix, so the reader must defend itself against clients that
// never send a newline: ReadLine refuses to buffer more than MaxLineSize
// bytes for a single request.
//
// Tokenizing
// ==========
//
// Arguments are separated by blanks. An argument that starts with a double
// quote extends to the matching closing quote and may contain blanks; inside
// a quoted argument a backslash escapes the following byte. This is what
// clients use to send file names with spaces:
//
//	add "Some Artist/Some Album/01 - Track.flac"
package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// MaxLineSize bounds a single request line.
const MaxLineSize = 64 * 1024

var ErrLineTooLong = errors.New("protocol: line too long")

// LineReader reads request lines from a client connection.
type LineReader struct {
	reader *bufio.Reader
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{
		reader: bufio.NewReaderSize(r, 4096),
	}
}

// ReadLine returns the next request line without its terminator.
//
// The returned string is a copy and remains valid after the next call.
func (lr *LineReader) ReadLine() (string, error) {
	line, isPrefix, err := lr.reader.ReadLine()
	if err != nil {
		return "", err
	}

	// Fast path: line fit in buffer, no continuation needed.
	if !isPrefix {
		return string(bytes.TrimSuffix(line, []byte{'\r'})), nil
	}

	// Slow path: line exceeded buffer, accumulate chunks with size limit.
	var buf bytes.Buffer
	buf.Write(line)

	for isPrefix {
		line, isPrefix, err = lr.reader.ReadLine()
		if err != nil {
			return "", err
		}

		// Check BEFORE writing to prevent allocating beyond limit.
		if buf.Len()+len(line) > MaxLineSize {
			return "", ErrLineTooLong
		}
		buf.Write(line)
	}

	return string(bytes.TrimSuffix(buf.Bytes(), []byte{'\r'})), nil
}
