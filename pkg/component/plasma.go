package component

import (
	"fmt"
	"math"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/profile"
)

func init() {
	Register("plasma", func() Spec { return DefaultPlasma() })
	Register("blanket-fp", func() Spec { return DefaultBlanketFP() })
}

// Plasma is a D-shaped plasma cross-section in the XZ plane:
//
//	r(t) = MajorRadius + MinorRadius·cos(t + Triangularity·sin t)
//	z(t) = Elongation·MinorRadius·sin t + VerticalDisplacement
//
// sampled at NumPoints angles and joined by a closed spline.
type Plasma struct {
	MajorRadius          float64 `yaml:"major_radius" validate:"gt=0"`
	MinorRadius          float64 `yaml:"minor_radius" validate:"gt=0"`
	Elongation           float64 `yaml:"elongation" validate:"gt=0"`
	Triangularity        float64 `yaml:"triangularity" validate:"gte=-1,lte=1"`
	VerticalDisplacement float64 `yaml:"vertical_displacement,omitempty"`
	NumPoints            int     `yaml:"num_points" validate:"gte=8,lte=400"`
	RotationAngle        float64 `yaml:"rotation_angle,omitempty" validate:"gte=0,lte=360"`
}

func DefaultPlasma() Plasma {
	return Plasma{MajorRadius: 450, MinorRadius: 150, Elongation: 2, Triangularity: 0.55, NumPoints: 48}
}

func (s Plasma) Kind() string           { return "plasma" }
func (s Plasma) Dependencies() []string { return nil }

func (s Plasma) Check() error {
	if s.MinorRadius >= s.MajorRadius {
		return invalid(s.Kind(), "minor_radius", "%g must be below major_radius %g", s.MinorRadius, s.MajorRadius)
	}
	return nil
}

// At returns the outline point at poloidal angle deg. Zero is the outboard
// equator and 90 the top of the plasma.
func (s Plasma) At(deg float64) profile.Vec2 {
	t := deg * math.Pi / 180
	return profile.Vec2{
		U: s.MajorRadius + s.MinorRadius*math.Cos(t+s.Triangularity*math.Sin(t)),
		V: s.Elongation*s.MinorRadius*math.Sin(t) + s.VerticalDisplacement,
	}
}

// Normal returns the outward unit normal of the outline at deg.
func (s Plasma) Normal(deg float64) profile.Vec2 {
	t := deg * math.Pi / 180
	du := -s.MinorRadius * math.Sin(t+s.Triangularity*math.Sin(t)) * (1 + s.Triangularity*math.Cos(t))
	dv := s.Elongation * s.MinorRadius * math.Cos(t)
	l := math.Hypot(du, dv)
	return profile.Vec2{U: dv / l, V: -du / l}
}

// HighPoint is the top of the outline.
func (s Plasma) HighPoint() profile.Vec2 { return s.At(90) }

// LowPoint is the bottom of the outline.
func (s Plasma) LowPoint() profile.Vec2 { return s.At(-90) }

// AngleAtRadius returns the angle in [lo, hi] where the outline reaches
// radius r. The outline radius must be monotonic over the interval.
func (s Plasma) AngleAtRadius(r, lo, hi float64) (float64, error) {
	flo, fhi := s.At(lo).U-r, s.At(hi).U-r
	if flo*fhi > 0 {
		return 0, fmt.Errorf("plasma outline does not reach r=%g between %g and %g degrees", r, lo, hi)
	}
	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		fm := s.At(mid).U - r
		if (fm < 0) == (flo < 0) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, nil
}

func (s Plasma) Plan(env *Env) (Plan, error) {
	pts := make([]profile.Point, s.NumPoints)
	for i := range pts {
		q := s.At(360 * float64(i) / float64(s.NumPoints))
		pts[i] = profile.Spline(q.U, q.V)
	}
	return Plan{
		Shape: profile.Polygon{Workplane: profile.XZ, Points: pts},
		Sweep: kernel.Rotate(profile.XZ, env.Angle(s.RotationAngle)),
	}, nil
}

// BlanketFP is a layer that follows the outline of the plasma named by
// Plasma. Its inner face lies Offset outside the outline and it is
// Thickness thick, running from StartAngle to StopAngle in the plasma's
// poloidal angle.
type BlanketFP struct {
	Plasma        string  `yaml:"plasma" validate:"required"`
	Offset        float64 `yaml:"offset_from_plasma" validate:"gte=0"`
	Thickness     float64 `yaml:"thickness" validate:"gt=0"`
	StartAngle    float64 `yaml:"start_angle"`
	StopAngle     float64 `yaml:"stop_angle"`
	NumPoints     int     `yaml:"num_points" validate:"gte=3,lte=400"`
	RotationAngle float64 `yaml:"rotation_angle,omitempty" validate:"gte=0,lte=360"`
}

func DefaultBlanketFP() BlanketFP {
	return BlanketFP{Plasma: "plasma", Offset: 20, Thickness: 50, StartAngle: 90, StopAngle: -90, NumPoints: 30}
}

func (s BlanketFP) Kind() string           { return "blanket-fp" }
func (s BlanketFP) Dependencies() []string { return []string{s.Plasma} }

func (s BlanketFP) Check() error {
	span := math.Abs(s.StopAngle - s.StartAngle)
	if span == 0 || span >= 360 {
		return invalid(s.Kind(), "stop_angle", "span of %g degrees must be between 0 and 360", span)
	}
	return nil
}

func (s BlanketFP) Plan(env *Env) (Plan, error) {
	v, err := env.Dep(s.Plasma)
	if err != nil {
		return Plan{}, err
	}
	pl, ok := v.Spec.(Plasma)
	if !ok {
		return Plan{}, invalid(s.Kind(), "plasma", "%q is a %s, not a plasma", s.Plasma, kindOf(v.Spec))
	}

	n := s.NumPoints
	inner := make([]profile.Point, n)
	outer := make([]profile.Point, n)
	for i := 0; i < n; i++ {
		a := s.StartAngle + (s.StopAngle-s.StartAngle)*float64(i)/float64(n-1)
		q, nrm := pl.At(a), pl.Normal(a)
		in := q.Add(nrm.Scale(s.Offset))
		out := q.Add(nrm.Scale(s.Offset + s.Thickness))
		if in.U < 0 || out.U < 0 {
			return Plan{}, invalid(s.Kind(), "thickness", "layer crosses the axis at %g degrees", a)
		}
		inner[i] = profile.Spline(in.U, in.V)
		outer[n-1-i] = profile.Spline(out.U, out.V)
	}
	// The ends of the layer are straight.
	inner[n-1].Edge = profile.Edge{Kind: profile.EdgeStraight}
	outer[n-1].Edge = profile.Edge{Kind: profile.EdgeStraight}

	return Plan{
		Shape: profile.Polygon{Workplane: profile.XZ, Points: append(inner, outer...)},
		Sweep: kernel.Rotate(profile.XZ, env.Angle(s.RotationAngle)),
	}, nil
}
