package component

import (
	"fmt"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/profile"
	"github.com/chazu/torus/pkg/solid"
)

func init() {
	Register("center-column-cylinder", func() Spec { return DefaultCenterColumnCylinder() })
	Register("center-column-hyperbola", func() Spec { return DefaultCenterColumnHyperbola() })
	Register("center-column-flat-top-circular", func() Spec { return DefaultCenterColumnFlatTopCircular() })
	Register("inboard-firstwall", func() Spec { return DefaultInboardFirstwall() })
}

// Anchor starts a radial layer Gap past the outer radius of the component
// named After. It is unset when After is empty.
type Anchor struct {
	After string  `yaml:"after,omitempty"`
	Gap   float64 `yaml:"gap,omitempty" validate:"gte=0"`
}

func (a Anchor) deps() []string {
	if a.After == "" {
		return nil
	}
	return []string{a.After}
}

// inner returns the anchored inner radius, or own when unanchored.
func (a Anchor) inner(env *Env, own float64) (float64, error) {
	if a.After == "" {
		return own, nil
	}
	v, err := env.Dep(a.After)
	if err != nil {
		return 0, err
	}
	return v.Extents.OuterRadius + a.Gap, nil
}

// CenterColumnCylinder is a plain cylindrical shell around the Z axis.
type CenterColumnCylinder struct {
	Height        float64 `yaml:"height" validate:"gt=0"`
	InnerRadius   float64 `yaml:"inner_radius" validate:"gte=0"`
	OuterRadius   float64 `yaml:"outer_radius" validate:"gt=0"`
	RotationAngle float64 `yaml:"rotation_angle,omitempty" validate:"gte=0,lte=360"`
	Anchor        `yaml:",inline"`
}

func DefaultCenterColumnCylinder() CenterColumnCylinder {
	return CenterColumnCylinder{Height: 600, InnerRadius: 100, OuterRadius: 200}
}

func (s CenterColumnCylinder) Kind() string           { return "center-column-cylinder" }
func (s CenterColumnCylinder) Dependencies() []string { return s.deps() }

func (s CenterColumnCylinder) Check() error {
	if s.OuterRadius <= s.InnerRadius {
		return invalid(s.Kind(), "outer_radius", "%g must exceed inner_radius %g", s.OuterRadius, s.InnerRadius)
	}
	return nil
}

// Plan keeps the radial thickness when the inner radius is anchored.
func (s CenterColumnCylinder) Plan(env *Env) (Plan, error) {
	r, err := s.inner(env, s.InnerRadius)
	if err != nil {
		return Plan{}, err
	}
	res := s
	res.InnerRadius, res.OuterRadius = r, r+s.OuterRadius-s.InnerRadius
	res.RotationAngle = env.Angle(s.RotationAngle)
	res.Anchor = Anchor{}

	h := s.Height / 2
	return Plan{
		Shape: profile.Polygon{Workplane: profile.XZ, Points: []profile.Point{
			profile.Straight(res.InnerRadius, h),
			profile.Straight(res.OuterRadius, h),
			profile.Straight(res.OuterRadius, -h),
			profile.Straight(res.InnerRadius, -h),
		}},
		Sweep:    kernel.Rotate(profile.XZ, res.RotationAngle),
		Resolved: res,
	}, nil
}

func (s CenterColumnCylinder) Thicken(t float64) (Spec, error) {
	s.OuterRadius += t
	return s, nil
}

// CenterColumnHyperbola has a straight inner face and an outer face bowed
// in to MidRadius at the midplane.
type CenterColumnHyperbola struct {
	Height        float64 `yaml:"height" validate:"gt=0"`
	InnerRadius   float64 `yaml:"inner_radius" validate:"gte=0"`
	MidRadius     float64 `yaml:"mid_radius" validate:"gt=0"`
	OuterRadius   float64 `yaml:"outer_radius" validate:"gt=0"`
	RotationAngle float64 `yaml:"rotation_angle,omitempty" validate:"gte=0,lte=360"`
}

func DefaultCenterColumnHyperbola() CenterColumnHyperbola {
	return CenterColumnHyperbola{Height: 600, InnerRadius: 50, MidRadius: 100, OuterRadius: 150}
}

func (s CenterColumnHyperbola) Kind() string           { return "center-column-hyperbola" }
func (s CenterColumnHyperbola) Dependencies() []string { return nil }

func (s CenterColumnHyperbola) Check() error {
	if s.MidRadius <= s.InnerRadius {
		return invalid(s.Kind(), "mid_radius", "%g must exceed inner_radius %g", s.MidRadius, s.InnerRadius)
	}
	if s.OuterRadius < s.MidRadius {
		return invalid(s.Kind(), "outer_radius", "%g is below mid_radius %g", s.OuterRadius, s.MidRadius)
	}
	return nil
}

func (s CenterColumnHyperbola) Plan(env *Env) (Plan, error) {
	res := s
	res.RotationAngle = env.Angle(s.RotationAngle)
	h := s.Height / 2
	return Plan{
		Shape: profile.Polygon{Workplane: profile.XZ, Points: []profile.Point{
			profile.Straight(s.InnerRadius, 0),
			profile.Straight(s.InnerRadius, h),
			profile.Spline(s.OuterRadius, h),
			profile.Spline(s.MidRadius, 0),
			profile.Straight(s.OuterRadius, -h),
			profile.Straight(s.InnerRadius, -h),
		}},
		Sweep:    kernel.Rotate(profile.XZ, res.RotationAngle),
		Resolved: res,
	}, nil
}

func (s CenterColumnHyperbola) Thicken(t float64) (Spec, error) {
	s.MidRadius += t
	s.OuterRadius += t
	return s, nil
}

// CenterColumnFlatTopCircular has a flat top and bottom and an outer face
// cut by a circular arc of ArcHeight through MidRadius.
type CenterColumnFlatTopCircular struct {
	Height        float64 `yaml:"height" validate:"gt=0"`
	ArcHeight     float64 `yaml:"arc_height" validate:"gt=0"`
	InnerRadius   float64 `yaml:"inner_radius" validate:"gte=0"`
	MidRadius     float64 `yaml:"mid_radius" validate:"gt=0"`
	OuterRadius   float64 `yaml:"outer_radius" validate:"gt=0"`
	RotationAngle float64 `yaml:"rotation_angle,omitempty" validate:"gte=0,lte=360"`
}

func DefaultCenterColumnFlatTopCircular() CenterColumnFlatTopCircular {
	return CenterColumnFlatTopCircular{Height: 600, ArcHeight: 400, InnerRadius: 50, MidRadius: 100, OuterRadius: 150}
}

func (s CenterColumnFlatTopCircular) Kind() string           { return "center-column-flat-top-circular" }
func (s CenterColumnFlatTopCircular) Dependencies() []string { return nil }

func (s CenterColumnFlatTopCircular) Check() error {
	switch {
	case s.ArcHeight >= s.Height:
		return invalid(s.Kind(), "arc_height", "%g must be below height %g", s.ArcHeight, s.Height)
	case s.MidRadius <= s.InnerRadius:
		return invalid(s.Kind(), "mid_radius", "%g must exceed inner_radius %g", s.MidRadius, s.InnerRadius)
	case s.OuterRadius <= s.MidRadius:
		return invalid(s.Kind(), "outer_radius", "%g must exceed mid_radius %g", s.OuterRadius, s.MidRadius)
	}
	return nil
}

func (s CenterColumnFlatTopCircular) Plan(env *Env) (Plan, error) {
	res := s
	res.RotationAngle = env.Angle(s.RotationAngle)
	h, a := s.Height/2, s.ArcHeight/2
	return Plan{
		Shape: profile.Polygon{Workplane: profile.XZ, Points: []profile.Point{
			profile.Straight(s.InnerRadius, 0),
			profile.Straight(s.InnerRadius, h),
			profile.Straight(s.OuterRadius, h),
			profile.ArcThrough(s.OuterRadius, a),
			profile.Straight(s.MidRadius, 0),
			profile.Straight(s.OuterRadius, -a),
			profile.Straight(s.OuterRadius, -h),
			profile.Straight(s.InnerRadius, -h),
		}},
		Sweep:    kernel.Rotate(profile.XZ, res.RotationAngle),
		Resolved: res,
	}, nil
}

func (s CenterColumnFlatTopCircular) Thicken(t float64) (Spec, error) {
	s.MidRadius += t
	s.OuterRadius += t
	return s, nil
}

// InboardFirstwall wraps a center column shield in a layer of Thickness
// and removes the shield from it.
type InboardFirstwall struct {
	Shield    string  `yaml:"shield" validate:"required"`
	Thickness float64 `yaml:"thickness" validate:"gt=0"`
}

func DefaultInboardFirstwall() InboardFirstwall { return InboardFirstwall{Thickness: 20} }

func (s InboardFirstwall) Kind() string           { return "inboard-firstwall" }
func (s InboardFirstwall) Dependencies() []string { return []string{s.Shield} }

func (s InboardFirstwall) Plan(env *Env) (Plan, error) {
	v, err := env.Dep(s.Shield)
	if err != nil {
		return Plan{}, err
	}
	th, ok := v.Spec.(Thickener)
	if !ok {
		return Plan{}, invalid(s.Kind(), "shield", "%q is a %s, which cannot be wrapped", s.Shield, kindOf(v.Spec))
	}
	grown, err := th.Thicken(s.Thickness)
	if err != nil {
		return Plan{}, err
	}
	p, err := grown.Plan(env)
	if err != nil {
		return Plan{}, fmt.Errorf("wrapping %s: %w", s.Shield, err)
	}
	p.PostOps = append(p.PostOps, solid.Subtract{Tool: v.Body})
	p.Resolved = nil
	return p, nil
}
