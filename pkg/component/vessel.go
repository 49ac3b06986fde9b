package component

import (
	"math"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/placement"
	"github.com/chazu/torus/pkg/profile"
)

func init() {
	Register("vacuum-vessel", func() Spec { return DefaultVacuumVessel() })
	Register("blanket-arch", func() Spec { return DefaultBlanketArch() })
	Register("pf-coil", func() Spec { return DefaultPFCoil() })
	Register("pf-coil-set", func() Spec { return DefaultPFCoilSet() })
	Register("tf-coil-rectangle", func() Spec { return DefaultTFCoilRectangle() })
}

// VacuumVessel is a closed cylindrical can: a wall of Thickness around an
// inner cavity of InnerRadius and Height, with lids of the same thickness.
type VacuumVessel struct {
	Height        float64 `yaml:"height" validate:"gt=0"`
	InnerRadius   float64 `yaml:"inner_radius" validate:"gt=0"`
	Thickness     float64 `yaml:"thickness" validate:"gt=0"`
	RotationAngle float64 `yaml:"rotation_angle,omitempty" validate:"gte=0,lte=360"`
	Anchor        `yaml:",inline"`
}

func DefaultVacuumVessel() VacuumVessel {
	return VacuumVessel{Height: 2, InnerRadius: 1, Thickness: 0.2}
}

func (s VacuumVessel) Kind() string           { return "vacuum-vessel" }
func (s VacuumVessel) Dependencies() []string { return s.deps() }

func (s VacuumVessel) Plan(env *Env) (Plan, error) {
	r, err := s.inner(env, s.InnerRadius)
	if err != nil {
		return Plan{}, err
	}
	res := s
	res.InnerRadius = r
	res.RotationAngle = env.Angle(s.RotationAngle)
	res.Anchor = Anchor{}

	h, t := s.Height/2, s.Thickness
	return Plan{
		Shape: profile.Polygon{Workplane: profile.XZ, Points: []profile.Point{
			profile.Straight(r, h),
			profile.Straight(0, h),
			profile.Straight(0, h+t),
			profile.Straight(r+t, h+t),
			profile.Straight(r+t, -h-t),
			profile.Straight(0, -h-t),
			profile.Straight(0, -h),
			profile.Straight(r, -h),
		}},
		Sweep:    kernel.Rotate(profile.XZ, res.RotationAngle),
		Resolved: res,
	}, nil
}

// BlanketArch is a constant-thickness arch whose inner face is the arc
// through InnerUpper, InnerMid and InnerLower.
type BlanketArch struct {
	InnerUpper    [2]float64 `yaml:"inner_upper_point"`
	InnerMid      [2]float64 `yaml:"inner_mid_point"`
	InnerLower    [2]float64 `yaml:"inner_lower_point"`
	Thickness     float64    `yaml:"thickness" validate:"gt=0"`
	RotationAngle float64    `yaml:"rotation_angle,omitempty" validate:"gte=0,lte=360"`
}

func DefaultBlanketArch() BlanketArch {
	return BlanketArch{
		InnerUpper: [2]float64{300, 200},
		InnerMid:   [2]float64{500, 0},
		InnerLower: [2]float64{300, -200},
		Thickness:  20,
	}
}

func (s BlanketArch) Kind() string           { return "blanket-arch" }
func (s BlanketArch) Dependencies() []string { return nil }

func (s BlanketArch) Plan(env *Env) (Plan, error) {
	t := s.Thickness
	u, m, l := s.InnerUpper, s.InnerMid, s.InnerLower
	return Plan{
		Shape: profile.Polygon{Workplane: profile.XZ, Points: []profile.Point{
			profile.ArcThrough(u[0], u[1]),
			profile.Straight(m[0], m[1]),
			profile.Straight(l[0], l[1]),
			profile.ArcThrough(l[0]+t, l[1]),
			profile.Straight(m[0]+t, m[1]),
			profile.Straight(u[0]+t, u[1]),
		}},
		Sweep: kernel.Rotate(profile.XZ, env.Angle(s.RotationAngle)),
	}, nil
}

// PFCoil is a poloidal field coil of rectangular cross-section.
type PFCoil struct {
	Center        [2]float64 `yaml:"center_point"`
	Width         float64    `yaml:"width" validate:"gt=0"`
	Height        float64    `yaml:"height" validate:"gt=0"`
	RotationAngle float64    `yaml:"rotation_angle,omitempty" validate:"gte=0,lte=360"`
}

func DefaultPFCoil() PFCoil {
	return PFCoil{Center: [2]float64{1000, 500}, Width: 100, Height: 100}
}

func (s PFCoil) Kind() string           { return "pf-coil" }
func (s PFCoil) Dependencies() []string { return nil }

func (s PFCoil) Check() error {
	if s.Center[0]-s.Width/2 < 0 {
		return invalid(s.Kind(), "width", "coil of width %g at r=%g crosses the axis", s.Width, s.Center[0])
	}
	return nil
}

func (s PFCoil) Plan(env *Env) (Plan, error) {
	return Plan{
		Shape: profile.Rectangle{
			Workplane: profile.XZ,
			CenterU:   s.Center[0],
			CenterV:   s.Center[1],
			Width:     s.Width,
			Height:    s.Height,
		},
		Sweep: kernel.Rotate(profile.XZ, env.Angle(s.RotationAngle)),
	}, nil
}

// PFCoilSet is several poloidal field coils swept together. The i-th coil
// takes the i-th entry of each list.
type PFCoilSet struct {
	CenterPoints  [][2]float64 `yaml:"center_points" validate:"required,min=1"`
	Widths        []float64    `yaml:"widths" validate:"required,min=1,dive,gt=0"`
	Heights       []float64    `yaml:"heights" validate:"required,min=1,dive,gt=0"`
	RotationAngle float64      `yaml:"rotation_angle,omitempty" validate:"gte=0,lte=360"`
}

func DefaultPFCoilSet() PFCoilSet {
	return PFCoilSet{
		CenterPoints: [][2]float64{{1000, 500}, {1000, -500}},
		Widths:       []float64{100, 100},
		Heights:      []float64{100, 100},
	}
}

func (s PFCoilSet) Kind() string           { return "pf-coil-set" }
func (s PFCoilSet) Dependencies() []string { return nil }

func (s PFCoilSet) Check() error {
	n := len(s.CenterPoints)
	if len(s.Widths) != n {
		return invalid(s.Kind(), "widths", "has %d entries, center_points has %d", len(s.Widths), n)
	}
	if len(s.Heights) != n {
		return invalid(s.Kind(), "heights", "has %d entries, center_points has %d", len(s.Heights), n)
	}
	for i, c := range s.CenterPoints {
		if c[0]-s.Widths[i]/2 < 0 {
			return invalid(s.Kind(), "widths", "coil %d crosses the axis", i)
		}
	}
	return nil
}

func (s PFCoilSet) Plan(env *Env) (Plan, error) {
	var out []profile.Profile
	for i, c := range s.CenterPoints {
		ps, err := profile.Build(profile.Rectangle{
			Workplane: profile.XZ,
			CenterU:   c[0],
			CenterV:   c[1],
			Width:     s.Widths[i],
			Height:    s.Heights[i],
		})
		if err != nil {
			return Plan{}, err
		}
		out = append(out, ps...)
	}
	return Plan{Profiles: out, Sweep: kernel.Rotate(profile.XZ, env.Angle(s.RotationAngle))}, nil
}

// TFCoilRectangle is a rectangular toroidal field coil frame in the XZ
// plane, extruded symmetrically by Distance and repeated NumberOfCoils
// times around Z. HorizontalStart is the inner top corner of the opening
// and VerticalMid the middle of its outer side.
type TFCoilRectangle struct {
	HorizontalStart   [2]float64 `yaml:"horizontal_start_point"`
	VerticalMid       [2]float64 `yaml:"vertical_mid_point"`
	Thickness         float64    `yaml:"thickness" validate:"gt=0"`
	Distance          float64    `yaml:"distance" validate:"gt=0"`
	NumberOfCoils     int        `yaml:"number_of_coils" validate:"gte=1"`
	WithInnerLeg      bool       `yaml:"with_inner_leg"`
	AzimuthStartAngle float64    `yaml:"azimuth_start_angle,omitempty"`
	// SectorAngle keeps only the coils whose azimuth lies in
	// [0, SectorAngle). Zero keeps them all.
	SectorAngle float64 `yaml:"sector_angle,omitempty" validate:"gte=0,lte=360"`
}

func DefaultTFCoilRectangle() TFCoilRectangle {
	return TFCoilRectangle{
		HorizontalStart: [2]float64{200, 700},
		VerticalMid:     [2]float64{1200, 0},
		Thickness:       50,
		Distance:        30,
		NumberOfCoils:   8,
		WithInnerLeg:    true,
	}
}

func (s TFCoilRectangle) Kind() string           { return "tf-coil-rectangle" }
func (s TFCoilRectangle) Dependencies() []string { return nil }

func (s TFCoilRectangle) Check() error {
	if s.VerticalMid[0] <= s.HorizontalStart[0] {
		return invalid(s.Kind(), "vertical_mid_point", "r=%g must be outside horizontal_start_point r=%g",
			s.VerticalMid[0], s.HorizontalStart[0])
	}
	if s.HorizontalStart[1] <= s.VerticalMid[1] {
		return invalid(s.Kind(), "horizontal_start_point", "z=%g must be above vertical_mid_point z=%g",
			s.HorizontalStart[1], s.VerticalMid[1])
	}
	if s.WithInnerLeg && s.HorizontalStart[0]-s.Thickness < 0 {
		return invalid(s.Kind(), "thickness", "inner leg crosses the axis")
	}
	return nil
}

func (s TFCoilRectangle) Plan(*Env) (Plan, error) {
	x0, x1 := s.HorizontalStart[0], s.VerticalMid[0]
	top := s.HorizontalStart[1]
	bot := 2*s.VerticalMid[1] - top
	t := s.Thickness

	frame := profile.New(profile.XZ,
		profile.Straight(x0, top+t),
		profile.Straight(x0, top),
		profile.Straight(x1, top),
		profile.Straight(x1, bot),
		profile.Straight(x0, bot),
		profile.Straight(x0, bot-t),
		profile.Straight(x1+t, bot-t),
		profile.Straight(x1+t, top+t),
	)
	profiles := []profile.Profile{frame}
	if s.WithInnerLeg {
		profiles = append(profiles, profile.New(profile.XZ,
			profile.Straight(x0, top+t),
			profile.Straight(x0-t, top+t),
			profile.Straight(x0-t, bot-t),
			profile.Straight(x0, bot-t),
		))
	}

	angles := make([]float64, 0, s.NumberOfCoils)
	for i := 0; i < s.NumberOfCoils; i++ {
		a := s.AzimuthStartAngle + float64(i)*360/float64(s.NumberOfCoils)
		if s.SectorAngle > 0 && s.SectorAngle < 360 && math.Mod(math.Mod(a, 360)+360, 360) >= s.SectorAngle {
			continue
		}
		angles = append(angles, a)
	}
	if len(angles) == 0 {
		return Plan{}, invalid(s.Kind(), "sector_angle", "no coil lies inside a %g degree sector", s.SectorAngle)
	}
	pl := placement.AtAngles(profile.AxisZ, angles...)
	sw := kernel.Extrude(profile.XZ, s.Distance)
	sw.Both = true
	return Plan{Profiles: profiles, Sweep: sw, Placement: &pl}, nil
}
