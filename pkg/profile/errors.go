package profile

import "fmt"

// ErrorKind classifies profile construction failures.
type ErrorKind int

const (
	InvalidParameter ErrorKind = iota
	DegenerateProfile
	InfeasibleArc
	SelfIntersection
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidParameter:
		return "invalid parameter"
	case DegenerateProfile:
		return "degenerate profile"
	case InfeasibleArc:
		return "infeasible arc"
	case SelfIntersection:
		return "self-intersecting profile"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error reports why a shape could not be turned into a closed, simple wire.
type Error struct {
	Kind  ErrorKind
	Shape ShapeKind // zero when the profile was built directly
	Param string    // offending parameter, if any
	Index int       // offending point index, -1 if not applicable
	Msg   string
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Shape != ShapeUnknown {
		s = e.Shape.String() + ": " + s
	}
	if e.Param != "" {
		s += " (" + e.Param + ")"
	}
	if e.Index >= 0 {
		s += fmt.Sprintf(" at point %d", e.Index)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

// Is matches any *Error of the same kind, so errors.Is(err,
// ErrInfeasibleArc) works regardless of the details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidParameter  = &Error{Kind: InvalidParameter, Index: -1}
	ErrDegenerateProfile = &Error{Kind: DegenerateProfile, Index: -1}
	ErrInfeasibleArc     = &Error{Kind: InfeasibleArc, Index: -1}
	ErrSelfIntersection  = &Error{Kind: SelfIntersection, Index: -1}
)

func invalidParam(shape ShapeKind, param, format string, args ...any) *Error {
	return &Error{Kind: InvalidParameter, Shape: shape, Param: param, Index: -1, Msg: fmt.Sprintf(format, args...)}
}

func degenerate(index int, format string, args ...any) *Error {
	return &Error{Kind: DegenerateProfile, Index: index, Msg: fmt.Sprintf(format, args...)}
}

func infeasibleArc(index int, format string, args ...any) *Error {
	return &Error{Kind: InfeasibleArc, Index: index, Msg: fmt.Sprintf(format, args...)}
}
