package component

import (
	"math"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/profile"
)

func init() {
	Register("iter-divertor", func() Spec { return DefaultITERDivertor() })
}

// ITERDivertor is an ITER-like divertor cross-section: an inner and an
// outer vertical target, an optional dome between them and a casing
// below. Index 0 of each pair is the inner target, index 1 the outer.
// Angles are in degrees, anticlockwise.
type ITERDivertor struct {
	Anchors       [2][2]float64 `yaml:"anchors"`
	Coverages     [2]float64    `yaml:"coverages" validate:"dive,gt=0,lte=360"`
	Radii         [2]float64    `yaml:"radii" validate:"dive,gt=0"`
	Lengths       [2]float64    `yaml:"lengths" validate:"dive,gt=0"`
	Tilts         [2]float64    `yaml:"tilts" validate:"dive,gte=-180,lte=180"`
	Dome          bool          `yaml:"dome"`
	DomeHeight    float64       `yaml:"dome_height" validate:"gt=0"`
	DomeLength    float64       `yaml:"dome_length" validate:"gt=0"`
	DomeThickness float64       `yaml:"dome_thickness" validate:"gt=0"`
	DomePos       float64       `yaml:"dome_pos" validate:"gte=0,lte=1"`
	RotationAngle float64       `yaml:"rotation_angle,omitempty" validate:"gte=0,lte=360"`
}

func DefaultITERDivertor() ITERDivertor {
	return ITERDivertor{
		Anchors:       [2][2]float64{{450, -300}, {561, -367}},
		Coverages:     [2]float64{90, 180},
		Radii:         [2]float64{50, 25},
		Lengths:       [2]float64{78, 87},
		Tilts:         [2]float64{-27, 0},
		Dome:          true,
		DomeHeight:    43,
		DomeLength:    66,
		DomeThickness: 10,
		DomePos:       0.5,
	}
}

func (s ITERDivertor) Kind() string           { return "iter-divertor" }
func (s ITERDivertor) Dependencies() []string { return nil }

func (s ITERDivertor) Plan(env *Env) (Plan, error) {
	return Plan{
		Shape: profile.Polygon{Workplane: profile.XZ, Points: s.points()},
		Sweep: kernel.Rotate(profile.XZ, env.Angle(s.RotationAngle)),
	}, nil
}

func (s ITERDivertor) points() []profile.Point {
	rad := math.Pi / 180
	var pts []profile.Point

	// Inner target, top to bottom: arc from A through A' to the anchor B,
	// then the leg down to C.
	ivt := target(vec(s.Anchors[0]), s.Coverages[0]*rad, s.Tilts[0]*rad, -s.Radii[0], s.Lengths[0])
	pts = append(pts,
		profile.ArcThrough(ivt[0].U, ivt[0].V),
		profile.Straight(ivt[1].U, ivt[1].V),
		profile.Straight(ivt[2].U, ivt[2].V),
		profile.Straight(ivt[3].U, ivt[3].V),
	)

	// Outer target, walked bottom to top.
	ovt := target(vec(s.Anchors[1]), -s.Coverages[1]*rad, s.Tilts[1]*rad, s.Radii[1], s.Lengths[1])
	c, f := ivt[3], ovt[3]

	if s.Dome {
		base := extend(c, f, s.DomePos*c.Dist(f))
		lower := extend(base, rotate(base, c, -math.Pi/2), s.DomeHeight)
		top := extend(base, lower, s.DomeHeight+s.DomeThickness)
		d := extend(lower, rotate(lower, top, math.Pi/2), s.DomeLength/2)
		e := extend(lower, rotate(lower, top, -math.Pi/2), s.DomeLength/2)
		pts = append(pts,
			profile.ArcThrough(d.U, d.V),
			profile.Straight(top.U, top.V),
			profile.Straight(e.U, e.V),
		)
	}

	pts = append(pts,
		profile.Straight(ovt[3].U, ovt[3].V),
		profile.ArcThrough(ovt[2].U, ovt[2].V),
		profile.Straight(ovt[1].U, ovt[1].V),
		profile.Straight(ovt[0].U, ovt[0].V),
	)

	// Casing under both targets.
	b, g := vec(s.Anchors[0]), vec(s.Anchors[1])
	cf := c.Dist(f)
	for _, q := range []profile.Vec2{
		extend(c, f, 1.1*cf),
		extend(g, f, 1.2*s.Lengths[1]),
		extend(b, c, 1.2*s.Lengths[0]),
		extend(f, c, 1.1*cf),
	} {
		pts = append(pts, profile.Straight(q.U, q.V))
	}
	return pts
}

// target returns the four control points of a vertical target: the upper
// end of its arc, the arc midpoint, the anchor and the foot of the leg.
func target(anchor profile.Vec2, coverage, tilt, radius, length float64) [4]profile.Vec2 {
	base := profile.Vec2{U: anchor.U + radius, V: anchor.V}
	a := rotate(base, anchor, coverage)
	mid := rotate(base, anchor, coverage/2)
	foot := profile.Vec2{U: anchor.U, V: anchor.V - length}
	return [4]profile.Vec2{
		rotate(anchor, a, tilt),
		rotate(anchor, mid, tilt),
		anchor,
		rotate(anchor, foot, tilt),
	}
}

// rotate turns p about origin by angle radians, anticlockwise.
func rotate(origin, p profile.Vec2, angle float64) profile.Vec2 {
	sin, cos := math.Sin(angle), math.Cos(angle)
	d := p.Sub(origin)
	return profile.Vec2{U: origin.U + cos*d.U - sin*d.V, V: origin.V + sin*d.U + cos*d.V}
}

// extend returns the point length along the ray from a through b.
func extend(a, b profile.Vec2, length float64) profile.Vec2 {
	return a.Add(b.Sub(a).Scale(length / a.Dist(b)))
}

func vec(p [2]float64) profile.Vec2 { return profile.Vec2{U: p[0], V: p[1]} }
