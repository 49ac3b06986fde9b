package profile

import (
	"fmt"
	"math"
)

// ShapeKind tags a shape variant.
type ShapeKind int

const (
	ShapeUnknown ShapeKind = iota
	ShapePolygon
	ShapeRectangle
	ShapeCircle
	ShapeIsoscelesTriangle
	ShapeTrapezoid
	ShapeHexagon
	ShapeChannelRing
	ShapePortCutter
)

var shapeNames = map[ShapeKind]string{
	ShapeUnknown:           "unknown",
	ShapePolygon:           "polygon",
	ShapeRectangle:         "rectangle",
	ShapeCircle:            "circle",
	ShapeIsoscelesTriangle: "isosceles-triangle",
	ShapeTrapezoid:         "trapezoid",
	ShapeHexagon:           "hexagon",
	ShapeChannelRing:       "channel-ring",
	ShapePortCutter:        "port-cutter",
}

func (k ShapeKind) String() string {
	if s, ok := shapeNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ShapeKind(%d)", int(k))
}

// Shape is a parametric cross-section. Profiles must be a pure function of
// the shape's fields.
type Shape interface {
	Kind() ShapeKind
	Profiles() ([]Profile, error)
}

// Build runs the shape and checks every resulting wire. Validation errors
// are tagged with the shape kind.
func Build(s Shape) ([]Profile, error) {
	profiles, err := s.Profiles()
	if err != nil {
		return nil, tag(err, s.Kind())
	}
	if len(profiles) == 0 {
		return nil, tag(degenerate(-1, "shape produced no wires"), s.Kind())
	}
	for _, p := range profiles {
		if err := Validate(p); err != nil {
			return nil, tag(err, s.Kind())
		}
	}
	return profiles, nil
}

func tag(err error, kind ShapeKind) error {
	if pe, ok := err.(*Error); ok && pe.Shape == ShapeUnknown {
		cp := *pe
		cp.Shape = kind
		return &cp
	}
	return err
}

func positive(kind ShapeKind, name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return invalidParam(kind, name, "must be positive, got %g", v)
	}
	return nil
}

// Polygon is an explicit point list.
type Polygon struct {
	Workplane Workplane
	Points    []Point
}

func (s Polygon) Kind() ShapeKind { return ShapePolygon }

func (s Polygon) Profiles() ([]Profile, error) {
	return []Profile{New(s.Workplane, s.Points...)}, nil
}

// Rectangle is an axis-aligned rectangle centred on (CenterU, CenterV).
type Rectangle struct {
	Workplane        Workplane
	CenterU, CenterV float64
	Width, Height    float64
}

func (s Rectangle) Kind() ShapeKind { return ShapeRectangle }

func (s Rectangle) Profiles() ([]Profile, error) {
	if err := positive(ShapeRectangle, "width", s.Width); err != nil {
		return nil, err
	}
	if err := positive(ShapeRectangle, "height", s.Height); err != nil {
		return nil, err
	}
	w, h := s.Width/2, s.Height/2
	return []Profile{New(s.Workplane,
		Straight(s.CenterU+w, s.CenterV+h),
		Straight(s.CenterU-w, s.CenterV+h),
		Straight(s.CenterU-w, s.CenterV-h),
		Straight(s.CenterU+w, s.CenterV-h),
	)}, nil
}

// Circle is a full circle drawn as four quarter arcs.
type Circle struct {
	Workplane        Workplane
	CenterU, CenterV float64
	Radius           float64
}

func (s Circle) Kind() ShapeKind { return ShapeCircle }

func (s Circle) Profiles() ([]Profile, error) {
	if err := positive(ShapeCircle, "radius", s.Radius); err != nil {
		return nil, err
	}
	return []Profile{circle(s.Workplane, Vec2{s.CenterU, s.CenterV}, s.Radius)}, nil
}

func circle(wp Workplane, c Vec2, r float64) Profile {
	return New(wp,
		Arc(c.U+r, c.V, r, CCW),
		Arc(c.U, c.V+r, r, CCW),
		Arc(c.U-r, c.V, r, CCW),
		Arc(c.U, c.V-r, r, CCW),
	)
}

// IsoscelesTriangle has its base centred on (CenterU, CenterV) and its apex
// Height above it along v.
type IsoscelesTriangle struct {
	Workplane        Workplane
	CenterU, CenterV float64
	Base, Height     float64
}

func (s IsoscelesTriangle) Kind() ShapeKind { return ShapeIsoscelesTriangle }

func (s IsoscelesTriangle) Profiles() ([]Profile, error) {
	if err := positive(ShapeIsoscelesTriangle, "base", s.Base); err != nil {
		return nil, err
	}
	if err := positive(ShapeIsoscelesTriangle, "height", s.Height); err != nil {
		return nil, err
	}
	return []Profile{New(s.Workplane,
		Straight(s.CenterU-s.Base/2, s.CenterV),
		Straight(s.CenterU+s.Base/2, s.CenterV),
		Straight(s.CenterU, s.CenterV+s.Height),
	)}, nil
}

// Trapezoid has a bottom edge of BottomWidth centred on (CenterU, CenterV)
// and a parallel top edge of TopWidth, Height above it.
type Trapezoid struct {
	Workplane             Workplane
	CenterU, CenterV      float64
	BottomWidth, TopWidth float64
	Height                float64
}

func (s Trapezoid) Kind() ShapeKind { return ShapeTrapezoid }

func (s Trapezoid) Profiles() ([]Profile, error) {
	if err := positive(ShapeTrapezoid, "bottom_width", s.BottomWidth); err != nil {
		return nil, err
	}
	if err := positive(ShapeTrapezoid, "top_width", s.TopWidth); err != nil {
		return nil, err
	}
	if err := positive(ShapeTrapezoid, "height", s.Height); err != nil {
		return nil, err
	}
	return []Profile{New(s.Workplane,
		Straight(s.CenterU-s.BottomWidth/2, s.CenterV),
		Straight(s.CenterU+s.BottomWidth/2, s.CenterV),
		Straight(s.CenterU+s.TopWidth/2, s.CenterV+s.Height),
		Straight(s.CenterU-s.TopWidth/2, s.CenterV+s.Height),
	)}, nil
}

// Hexagon is a regular hexagon with the given circumradius. The first vertex
// lies on +u from the centre, rotated by Rotation degrees.
type Hexagon struct {
	Workplane        Workplane
	CenterU, CenterV float64
	Radius           float64
	Rotation         float64
}

func (s Hexagon) Kind() ShapeKind { return ShapeHexagon }

func (s Hexagon) Profiles() ([]Profile, error) {
	if err := positive(ShapeHexagon, "radius", s.Radius); err != nil {
		return nil, err
	}
	pts := make([]Point, 6)
	for i := range pts {
		a := (s.Rotation + float64(i)*60) * math.Pi / 180
		pts[i] = Straight(s.CenterU+s.Radius*math.Cos(a), s.CenterV+s.Radius*math.Sin(a))
	}
	return []Profile{New(s.Workplane, pts...)}, nil
}

// ChannelRing is Count circular channels of ChannelRadius whose centres sit
// on a circle of RingRadius around (CenterU, CenterV), the first on +u.
type ChannelRing struct {
	Workplane        Workplane
	CenterU, CenterV float64
	Count            int
	RingRadius       float64
	ChannelRadius    float64
	StartAngle       float64 // degrees
}

func (s ChannelRing) Kind() ShapeKind { return ShapeChannelRing }

func (s ChannelRing) Profiles() ([]Profile, error) {
	if s.Count < 1 {
		return nil, invalidParam(ShapeChannelRing, "count", "must be at least 1, got %d", s.Count)
	}
	if err := positive(ShapeChannelRing, "ring_radius", s.RingRadius); err != nil {
		return nil, err
	}
	if err := positive(ShapeChannelRing, "channel_radius", s.ChannelRadius); err != nil {
		return nil, err
	}
	if s.Count > 1 {
		gap := 2 * s.RingRadius * math.Sin(math.Pi/float64(s.Count))
		if gap <= 2*s.ChannelRadius {
			return nil, invalidParam(ShapeChannelRing, "channel_radius",
				"channels of radius %g overlap on a ring of radius %g", s.ChannelRadius, s.RingRadius)
		}
	}
	out := make([]Profile, s.Count)
	for i := range out {
		a := (s.StartAngle + float64(i)*360/float64(s.Count)) * math.Pi / 180
		c := Vec2{s.CenterU + s.RingRadius*math.Cos(a), s.CenterV + s.RingRadius*math.Sin(a)}
		out[i] = circle(s.Workplane, c, s.ChannelRadius)
	}
	return out, nil
}

// PortCutterOutline is a Width by Height rectangle centred on
// (CenterU, CenterV), with corners rounded by FilletRadius when it is set.
type PortCutterOutline struct {
	Workplane        Workplane
	CenterU, CenterV float64
	Width, Height    float64
	FilletRadius     float64
}

func (s PortCutterOutline) Kind() ShapeKind { return ShapePortCutter }

func (s PortCutterOutline) Profiles() ([]Profile, error) {
	if err := positive(ShapePortCutter, "width", s.Width); err != nil {
		return nil, err
	}
	if err := positive(ShapePortCutter, "height", s.Height); err != nil {
		return nil, err
	}
	if s.FilletRadius < 0 {
		return nil, invalidParam(ShapePortCutter, "fillet_radius", "must not be negative, got %g", s.FilletRadius)
	}
	w, h, r := s.Width/2, s.Height/2, s.FilletRadius
	if r == 0 {
		return Rectangle{Workplane: s.Workplane, CenterU: s.CenterU, CenterV: s.CenterV, Width: s.Width, Height: s.Height}.Profiles()
	}
	if r >= w || r >= h {
		return nil, invalidParam(ShapePortCutter, "fillet_radius", "%g does not fit a %gx%g outline", r, s.Width, s.Height)
	}
	cu, cv := s.CenterU, s.CenterV
	return []Profile{New(s.Workplane,
		Arc(cu+w, cv+h-r, r, CCW),
		Straight(cu+w-r, cv+h),
		Arc(cu-w+r, cv+h, r, CCW),
		Straight(cu-w, cv+h-r),
		Arc(cu-w, cv-h+r, r, CCW),
		Straight(cu-w+r, cv-h),
		Arc(cu+w-r, cv-h, r, CCW),
		Straight(cu+w, cv-h+r),
	)}, nil
}
