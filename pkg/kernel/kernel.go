// Package kernel defines the geometry kernel contract the shape engine
// drives: closed profiles become wires, wires are swept into solids and
// solids are combined with booleans. Implementations (sdfx) provide the
// actual solid modeling behind this interface.
package kernel

import (
	"errors"
	"fmt"

	"github.com/chazu/torus/pkg/profile"
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Wire is a closed planar wire ready to be swept.
type Wire interface {
	Profile() profile.Profile
}

// SweepKind selects how a wire becomes a solid.
type SweepKind int

const (
	SweepRotate SweepKind = iota
	SweepExtrude
)

func (k SweepKind) String() string {
	switch k {
	case SweepRotate:
		return "rotate"
	case SweepExtrude:
		return "extrude"
	}
	return fmt.Sprintf("SweepKind(%d)", int(k))
}

// Sweep describes a rotate or extrude operation.
type Sweep struct {
	Kind      SweepKind
	Workplane profile.Workplane
	Axis      profile.Axis // rotate only; must be the workplane's revolve axis
	Angle     float64      // degrees, rotate only, in (0, 360]
	Distance  float64      // extrude only, > 0
	Both      bool         // extrude symmetrically about the workplane
}

// Rotate returns a rotate sweep about the workplane's revolve axis.
func Rotate(wp profile.Workplane, angle float64) Sweep {
	return Sweep{Kind: SweepRotate, Workplane: wp, Axis: wp.RevolveAxis(), Angle: angle}
}

// Extrude returns a one-sided extrude sweep along the workplane normal.
func Extrude(wp profile.Workplane, distance float64) Sweep {
	return Sweep{Kind: SweepExtrude, Workplane: wp, Distance: distance}
}

// IsFullRevolution reports whether s closes on itself.
func (s Sweep) IsFullRevolution() bool {
	return s.Kind == SweepRotate && s.Angle >= 360
}

// BooleanOp is a solid combination.
type BooleanOp int

const (
	OpUnion BooleanOp = iota
	OpSubtract
	OpIntersect
)

func (op BooleanOp) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpSubtract:
		return "subtract"
	case OpIntersect:
		return "intersect"
	}
	return fmt.Sprintf("BooleanOp(%d)", int(op))
}

// Edge identifies a profile vertex of a swept solid. Sweeping turns every
// profile vertex into an edge of the solid.
type Edge struct {
	Wire   int
	Vertex int
	Point  profile.Vec2
}

// Errors returned by kernels. Callers map them onto their own taxonomy.
var (
	ErrInvalidWire  = errors.New("invalid wire")
	ErrInvalidSweep = errors.New("invalid sweep")
	ErrNoTopology   = errors.New("solid has no edge topology")
	ErrFillet       = errors.New("fillet failed")
	ErrShell        = errors.New("shell failed")
)

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Construction
	MakeWire(p profile.Profile) (Wire, error)
	Sweep(wires []Wire, s Sweep) (Solid, error)
	Boolean(op BooleanOp, a, b Solid) (Solid, error)

	// Post operations
	Edges(s Solid) ([]Edge, error)
	Fillet(s Solid, edges []Edge, radius float64) (Solid, error)
	Shell(s Solid, thickness float64) (Solid, error)

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, axis profile.Axis, degrees float64) Solid

	// Queries
	Inside(s Solid, p [3]float64) bool
	Intersects(a, b Solid) bool

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// BoxesOverlap reports whether two axis-aligned boxes share positive volume.
func BoxesOverlap(amin, amax, bmin, bmax [3]float64) bool {
	for i := 0; i < 3; i++ {
		if amax[i] <= bmin[i] || bmax[i] <= amin[i] {
			return false
		}
	}
	return true
}
