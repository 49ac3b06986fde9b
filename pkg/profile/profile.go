// Package profile builds closed 2D wires from numeric shape parameters.
//
// A Profile is an ordered sequence of points on a workplane. Each point
// carries the type of the edge that joins it to the next point; the last
// point joins back to the first. Shapes (rectangles, coolant channel rings,
// port cutter outlines and so on) are pure functions from their parameters
// to one or more Profiles.
package profile

import (
	"fmt"
	"math"
)

// Workplane identifies the plane a profile is drawn on.
type Workplane int

const (
	// XY maps u to X and v to Y. Its normal is +Z.
	XY Workplane = iota
	// XZ maps u to X and v to Z. Its normal is -Y.
	XZ
	// YZ maps u to Y and v to Z. Its normal is +X.
	YZ
)

func (w Workplane) String() string {
	switch w {
	case XY:
		return "XY"
	case XZ:
		return "XZ"
	case YZ:
		return "YZ"
	}
	return fmt.Sprintf("Workplane(%d)", int(w))
}

// ParseWorkplane converts a plane name such as "XZ" to a Workplane.
func ParseWorkplane(s string) (Workplane, error) {
	switch s {
	case "XY", "xy":
		return XY, nil
	case "XZ", "xz":
		return XZ, nil
	case "YZ", "yz":
		return YZ, nil
	}
	return 0, fmt.Errorf("invalid workplane %q, expected XY, XZ or YZ", s)
}

// RevolveAxis is the axis a rotate sweep on this workplane revolves about.
// It is always the workplane's v direction, so u is the radial distance.
func (w Workplane) RevolveAxis() Axis {
	if w == XY {
		return AxisY
	}
	return AxisZ
}

// Map returns the world coordinates of the workplane point (u, v).
func (w Workplane) Map(u, v float64) [3]float64 {
	switch w {
	case XZ:
		return [3]float64{u, 0, v}
	case YZ:
		return [3]float64{0, u, v}
	}
	return [3]float64{u, v, 0}
}

// Normal returns the unit normal of the workplane.
func (w Workplane) Normal() [3]float64 {
	switch w {
	case XZ:
		return [3]float64{0, -1, 0}
	case YZ:
		return [3]float64{1, 0, 0}
	}
	return [3]float64{0, 0, 1}
}

// Axis is a world coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// ParseAxis converts "x", "y" or "z" (any case) to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "X", "x":
		return AxisX, nil
	case "Y", "y":
		return AxisY, nil
	case "Z", "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected x, y, or z", s)
}

// EdgeKind is the type of the edge from a point to its successor.
type EdgeKind int

const (
	EdgeStraight EdgeKind = iota
	// EdgeSpline joins a run of spline-tagged points, and the point after
	// the run, with one interpolating curve.
	EdgeSpline
	// EdgeArc is a circular arc of a given radius and sense to the next point.
	EdgeArc
	// EdgeArcThrough is a three-point arc: the next point is the via point
	// and the point after it is the end of the arc.
	EdgeArcThrough
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeStraight:
		return "straight"
	case EdgeSpline:
		return "spline"
	case EdgeArc:
		return "arc"
	case EdgeArcThrough:
		return "arc-through"
	}
	return fmt.Sprintf("EdgeKind(%d)", int(k))
}

// ParseEdgeKind converts an edge type name to an EdgeKind. "circle" is
// accepted as an alias of "arc-through".
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch s {
	case "", "straight":
		return EdgeStraight, nil
	case "spline":
		return EdgeSpline, nil
	case "arc":
		return EdgeArc, nil
	case "arc-through", "circle":
		return EdgeArcThrough, nil
	}
	return 0, fmt.Errorf("invalid edge type %q", s)
}

// Sense is the turning direction of an EdgeArc.
type Sense int

const (
	CCW Sense = iota
	CW
)

func (s Sense) String() string {
	if s == CW {
		return "cw"
	}
	return "ccw"
}

// Edge describes how a point connects to the next one.
type Edge struct {
	Kind   EdgeKind
	Radius float64 // EdgeArc only
	Sense  Sense   // EdgeArc only
}

// Vec2 is a coordinate on a workplane.
type Vec2 struct {
	U, V float64
}

func (a Vec2) Add(b Vec2) Vec2                { return Vec2{a.U + b.U, a.V + b.V} }
func (a Vec2) Sub(b Vec2) Vec2                { return Vec2{a.U - b.U, a.V - b.V} }
func (a Vec2) Scale(k float64) Vec2           { return Vec2{a.U * k, a.V * k} }
func (a Vec2) Dot(b Vec2) float64             { return a.U*b.U + a.V*b.V }
func (a Vec2) Cross(b Vec2) float64           { return a.U*b.V - a.V*b.U }
func (a Vec2) Len() float64                   { return math.Hypot(a.U, a.V) }
func (a Vec2) Dist(b Vec2) float64            { return a.Sub(b).Len() }
func (a Vec2) Equal(b Vec2, tol float64) bool { return a.Dist(b) <= tol }

// Point is a profile vertex plus the edge leaving it.
type Point struct {
	Vec2
	Edge Edge
}

// Straight returns a point joined to its successor by a line segment.
func Straight(u, v float64) Point {
	return Point{Vec2: Vec2{u, v}}
}

// Spline returns a point that starts or continues a spline run.
func Spline(u, v float64) Point {
	return Point{Vec2: Vec2{u, v}, Edge: Edge{Kind: EdgeSpline}}
}

// Arc returns a point joined to its successor by the minor circular arc of
// the given radius, turning in the given sense.
func Arc(u, v, radius float64, sense Sense) Point {
	return Point{Vec2: Vec2{u, v}, Edge: Edge{Kind: EdgeArc, Radius: radius, Sense: sense}}
}

// ArcThrough returns a point that starts a three-point arc.
func ArcThrough(u, v float64) Point {
	return Point{Vec2: Vec2{u, v}, Edge: Edge{Kind: EdgeArcThrough}}
}

// Profile is a closed wire on a workplane.
type Profile struct {
	Workplane Workplane
	Points    []Point
}

// New returns a profile on the given workplane. A trailing point equal to
// the first is dropped since closure is implicit.
func New(wp Workplane, points ...Point) Profile {
	pts := make([]Point, len(points))
	copy(pts, points)
	if n := len(pts); n > 1 && pts[n-1].Vec2.Equal(pts[0].Vec2, closeTol) {
		pts = pts[:n-1]
	}
	return Profile{Workplane: wp, Points: pts}
}

// closeTol is the distance under which two points are treated as one.
const closeTol = 1e-9

// Vertices returns the profile's control points in order.
func (p Profile) Vertices() []Vec2 {
	out := make([]Vec2, len(p.Points))
	for i, pt := range p.Points {
		out[i] = pt.Vec2
	}
	return out
}

// Bounds returns the min and max corners of the facetted outline.
func (p Profile) Bounds() (min, max Vec2, err error) {
	poly, err := p.Polyline()
	if err != nil {
		return Vec2{}, Vec2{}, err
	}
	min, max = bounds(poly)
	return min, max, nil
}

// Area returns the signed area of the facetted outline. Positive means the
// points run counter-clockwise.
func (p Profile) Area() (float64, error) {
	poly, err := p.Polyline()
	if err != nil {
		return 0, err
	}
	return signedArea(poly), nil
}

// Translate returns a copy of p moved by (du, dv).
func (p Profile) Translate(du, dv float64) Profile {
	out := Profile{Workplane: p.Workplane, Points: make([]Point, len(p.Points))}
	for i, pt := range p.Points {
		pt.U += du
		pt.V += dv
		out.Points[i] = pt
	}
	return out
}

func signedArea(poly []Vec2) float64 {
	var a float64
	for i := range poly {
		j := (i + 1) % len(poly)
		a += poly[i].Cross(poly[j])
	}
	return a / 2
}
