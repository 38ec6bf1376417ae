package progfile

import (
	"errors"
	"fmt"
)

var (
	ErrDecode  = errors.New("invalid TOML")
	ErrInvalid = errors.New("invalid program")
)

// Error locates a problem in a program file. Path is the block path such as
// "block[1].body[0].predicate"; Hop is the local hop id, if any.
type Error struct {
	File string
	Path string
	Hop  string
	Line int // TOML line, decode errors only
	Err  error
}

func (e *Error) Error() string {
	msg := e.File
	if e.Line > 0 {
		msg += fmt.Sprintf(":%d", e.Line)
	}
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Hop != "" {
		msg += fmt.Sprintf(": hop %q", e.Hop)
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func invalid(path, hopID, format string, args ...any) error {
	return &Error{Path: path, Hop: hopID, Err: fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))}
}
