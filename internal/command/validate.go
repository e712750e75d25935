package command

import (
	"cadence.lopezb.com/internal/ack"
)

// Validate checks a request against its descriptor before the handler runs.
// Permission is checked first; arity only once the caller is allowed to run
// the command at all.
func Validate(d *Descriptor, granted Permission, argv []string) *ack.Error {
	if !granted.Has(d.Permission) {
		return ack.Errorf(ack.PermissionDenied, "you don't have permission for \"%s\"", d.Name)
	}

	if d.Min == -1 {
		return nil
	}

	// Both bounds shift by one for the command name in argv[0]. An unchecked
	// maximum of -1 becomes 0, which the last rule treats as "no limit".
	minArgs := d.Min + 1
	maxArgs := d.Max + 1
	argc := len(argv)

	switch {
	case minArgs == maxArgs && argc != maxArgs:
		return ack.Errorf(ack.WrongArgumentCount, "wrong number of arguments for \"%s\"", argv[0])
	case argc < minArgs:
		return ack.Errorf(ack.TooFewArguments, "too few arguments for \"%s\"", argv[0])
	case maxArgs != 0 && argc > maxArgs:
		return ack.Errorf(ack.TooManyArguments, "too many arguments for \"%s\"", argv[0])
	}
	return nil
}
