package command

import (
	"errors"
	"math"
	"strconv"

	"cadence.lopezb.com/internal/ack"
)

// Argument parsers for handlers. They return an *ack.Error (as error) so a
// handler can return the failure unchanged.

// ParseInt parses a signed integer argument.
func ParseInt(s string) (int, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, ack.Errorf(ack.ArgumentFormat, "Number too large: %s", s)
		}
		return 0, ack.Errorf(ack.ArgumentFormat, "Integer expected: %s", s)
	}
	return int(v), nil
}

// ParseUint parses a non-negative integer argument.
func ParseUint(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, ack.Errorf(ack.ArgumentFormat, "Number too large: %s", s)
		}
		return 0, ack.Errorf(ack.ArgumentFormat, "Integer expected: %s", s)
	}
	if v > math.MaxInt32 {
		return 0, ack.Errorf(ack.ArgumentFormat, "Number too large: %s", s)
	}
	return uint(v), nil
}

// ParseBool parses a "0" or "1" argument.
func ParseBool(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, ack.Errorf(ack.ArgumentFormat, "Boolean (0/1) expected: %s", s)
	}
}
