package protocol

import (
	"errors"
	"strings"
)

// MaxArgs bounds the argument vector of a single request, command name
// included. The largest legitimate requests are tag searches, which never
// come close.
const MaxArgs = 64

var (
	ErrUnterminatedQuote = errors.New("protocol: unterminated quoted argument")
	ErrTooManyArgs       = errors.New("protocol: too many arguments")
)

// Tokenize splits a request line into its argument vector.
//
// An empty or blank line yields an empty vector and no error.
func Tokenize(line string) ([]string, error) {
	var argv []string

	i := 0
	for {
		for i < len(line) && isBlank(line[i]) {
			i++
		}
		if i == len(line) {
			return argv, nil
		}
		if len(argv) == MaxArgs {
			return nil, ErrTooManyArgs
		}

		if line[i] != '"' {
			start := i
			for i < len(line) && !isBlank(line[i]) {
				i++
			}
			argv = append(argv, line[start:i])
			continue
		}

		// Quoted argument: unescape until the closing quote.
		i++
		var sb strings.Builder
		closed := false
		for i < len(line) {
			c := line[i]
			if c == '\\' && i+1 < len(line) {
				sb.WriteByte(line[i+1])
				i += 2
				continue
			}
			i++
			if c == '"' {
				closed = true
				break
			}
			sb.WriteByte(c)
		}
		if !closed {
			return nil, ErrUnterminatedQuote
		}
		argv = append(argv, sb.String())
	}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}
