package solid

import (
	"errors"
	"fmt"

	"github.com/chazu/torus/pkg/kernel"
)

// ErrorKind classifies solid construction failures.
type ErrorKind int

const (
	InvalidSweep ErrorKind = iota
	InvalidWire
	PostOpFailed
	Kernel
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidSweep:
		return "invalid sweep"
	case InvalidWire:
		return "invalid wire"
	case PostOpFailed:
		return "post-op failed"
	case Kernel:
		return "kernel error"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is returned by Build. It wraps the profile or kernel error that
// caused it, so errors.Is(err, profile.ErrInfeasibleArc) still matches.
type Error struct {
	Kind  ErrorKind
	Op    string // post-op description, empty for sweep failures
	Index int    // post-op or wire index, -1 if not applicable
	Err   error
}

func (e *Error) Error() string {
	s := "solid: " + e.Kind.String()
	if e.Op != "" {
		s += fmt.Sprintf(" in %s (op %d)", e.Op, e.Index)
	} else if e.Index >= 0 {
		s += fmt.Sprintf(" (wire %d)", e.Index)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidSweep = &Error{Kind: InvalidSweep, Index: -1}
	ErrInvalidWire  = &Error{Kind: InvalidWire, Index: -1}
	ErrPostOpFailed = &Error{Kind: PostOpFailed, Index: -1}
	ErrKernel       = &Error{Kind: Kernel, Index: -1}
)

// fromKernel maps a kernel error onto the solid taxonomy.
func fromKernel(index int, err error) *Error {
	kind := Kernel
	switch {
	case errors.Is(err, kernel.ErrInvalidWire):
		kind = InvalidWire
	case errors.Is(err, kernel.ErrInvalidSweep):
		kind = InvalidSweep
	}
	return &Error{Kind: kind, Index: index, Err: err}
}

func sweepError(format string, args ...any) *Error {
	return &Error{Kind: InvalidSweep, Index: -1, Err: fmt.Errorf(format, args...)}
}
