package component

import (
	"math"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/placement"
	"github.com/chazu/torus/pkg/profile"
	"github.com/chazu/torus/pkg/solid"
)

func init() {
	Register("polygon-rotate", func() Spec { return DefaultPolygonRotate() })
	Register("polygon-extrude", func() Spec { return DefaultPolygonExtrude() })
	Register("rotate-circle", func() Spec { return DefaultRotateCircle() })
	Register("hollow-cube", func() Spec { return DefaultHollowCube() })
	Register("coolant-channel-ring", func() Spec { return DefaultCoolantChannelRing() })
	Register("port-cutter-rectangular", func() Spec { return DefaultPortCutterRectangular() })
	Register("port-cutter-rotated", func() Spec { return DefaultPortCutterRotated() })
}

// PolygonRotate revolves an explicit point list.
type PolygonRotate struct {
	Points        []PointSpec `yaml:"points" validate:"required,min=3,dive"`
	Workplane     string      `yaml:"workplane" validate:"oneof=XY XZ YZ"`
	RotationAngle float64     `yaml:"rotation_angle,omitempty" validate:"gte=0,lte=360"`
	Placing       `yaml:",inline"`
}

func DefaultPolygonRotate() PolygonRotate {
	return PolygonRotate{
		Points:    []PointSpec{P(100, 0, ""), P(200, 0, ""), P(200, 100, "")},
		Workplane: "XZ",
	}
}

func (s PolygonRotate) Kind() string           { return "polygon-rotate" }
func (s PolygonRotate) Dependencies() []string { return nil }

func (s PolygonRotate) Plan(env *Env) (Plan, error) {
	wp := workplane(s.Workplane)
	poly, err := polygon(wp, s.Points)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		Shape:     poly,
		Sweep:     kernel.Rotate(wp, env.Angle(s.RotationAngle)),
		Placement: s.placement(),
	}, nil
}

// PolygonExtrude extrudes an explicit point list along the workplane normal.
type PolygonExtrude struct {
	Points    []PointSpec `yaml:"points" validate:"required,min=3,dive"`
	Workplane string      `yaml:"workplane" validate:"oneof=XY XZ YZ"`
	Distance  float64     `yaml:"distance" validate:"gt=0"`
	Both      bool        `yaml:"both,omitempty"`
	Placing   `yaml:",inline"`
}

func DefaultPolygonExtrude() PolygonExtrude {
	return PolygonExtrude{
		Points:    []PointSpec{P(0, 0, ""), P(100, 0, ""), P(100, 100, ""), P(0, 100, "")},
		Workplane: "XY",
		Distance:  100,
	}
}

func (s PolygonExtrude) Kind() string           { return "polygon-extrude" }
func (s PolygonExtrude) Dependencies() []string { return nil }

func (s PolygonExtrude) Plan(*Env) (Plan, error) {
	wp := workplane(s.Workplane)
	poly, err := polygon(wp, s.Points)
	if err != nil {
		return Plan{}, err
	}
	sw := kernel.Extrude(wp, s.Distance)
	sw.Both = s.Both
	return Plan{Shape: poly, Sweep: sw, Placement: s.placement()}, nil
}

// RotateCircle revolves a circle centred at Center.
type RotateCircle struct {
	Center        [2]float64 `yaml:"center"`
	Radius        float64    `yaml:"radius" validate:"gt=0"`
	Workplane     string     `yaml:"workplane" validate:"oneof=XY XZ YZ"`
	RotationAngle float64    `yaml:"rotation_angle,omitempty" validate:"gte=0,lte=360"`
	Placing       `yaml:",inline"`
}

func DefaultRotateCircle() RotateCircle {
	return RotateCircle{Center: [2]float64{100, 0}, Radius: 50, Workplane: "XZ"}
}

func (s RotateCircle) Kind() string           { return "rotate-circle" }
func (s RotateCircle) Dependencies() []string { return nil }

func (s RotateCircle) Check() error {
	if s.Center[0]-s.Radius < 0 {
		return invalid(s.Kind(), "radius", "circle of radius %g at u=%g crosses the rotation axis", s.Radius, s.Center[0])
	}
	return nil
}

func (s RotateCircle) Plan(env *Env) (Plan, error) {
	wp := workplane(s.Workplane)
	return Plan{
		Shape:     profile.Circle{Workplane: wp, CenterU: s.Center[0], CenterV: s.Center[1], Radius: s.Radius},
		Sweep:     kernel.Rotate(wp, env.Angle(s.RotationAngle)),
		Placement: s.placement(),
	}, nil
}

// HollowCube is a cube of side Length+Thickness centred on the origin with
// a cube of side Length removed from its middle.
type HollowCube struct {
	Length    float64 `yaml:"length" validate:"gt=0"`
	Thickness float64 `yaml:"thickness" validate:"gt=0"`
}

func DefaultHollowCube() HollowCube { return HollowCube{Length: 100, Thickness: 10} }

func (s HollowCube) Kind() string           { return "hollow-cube" }
func (s HollowCube) Dependencies() []string { return nil }

func (s HollowCube) Plan(env *Env) (Plan, error) {
	inner, err := cube(env.Kernel, s.Length)
	if err != nil {
		return Plan{}, err
	}
	side := s.Length + s.Thickness
	sw := kernel.Extrude(profile.XY, side)
	sw.Both = true
	return Plan{
		Shape:   profile.Rectangle{Workplane: profile.XY, Width: side, Height: side},
		Sweep:   sw,
		PostOps: []solid.PostOp{solid.Subtract{Tool: inner}},
	}, nil
}

func cube(k kernel.Kernel, side float64) (*solid.Solid, error) {
	ps, err := profile.Build(profile.Rectangle{Workplane: profile.XY, Width: side, Height: side})
	if err != nil {
		return nil, err
	}
	sw := kernel.Extrude(profile.XY, side)
	sw.Both = true
	return solid.Build(k, ps, sw)
}

// CoolantChannelRing is Count circular channels running along Z, their
// centres on a ring of RingRadius.
type CoolantChannelRing struct {
	Count         int     `yaml:"number_of_channels" validate:"gte=1"`
	RingRadius    float64 `yaml:"ring_radius" validate:"gt=0"`
	ChannelRadius float64 `yaml:"channel_radius" validate:"gt=0"`
	Height        float64 `yaml:"height" validate:"gt=0"`
	StartAngle    float64 `yaml:"start_angle,omitempty"`
	Both          bool    `yaml:"both,omitempty"`
}

func DefaultCoolantChannelRing() CoolantChannelRing {
	return CoolantChannelRing{Count: 8, RingRadius: 70, ChannelRadius: 10, Height: 100}
}

func (s CoolantChannelRing) Kind() string           { return "coolant-channel-ring" }
func (s CoolantChannelRing) Dependencies() []string { return nil }

func (s CoolantChannelRing) Check() error {
	_, err := profile.ChannelRing{
		Workplane:     profile.XY,
		Count:         s.Count,
		RingRadius:    s.RingRadius,
		ChannelRadius: s.ChannelRadius,
	}.Profiles()
	return err
}

func (s CoolantChannelRing) Plan(*Env) (Plan, error) {
	angles := make([]float64, s.Count)
	for i := range angles {
		angles[i] = s.StartAngle + float64(i)*360/float64(s.Count)
	}
	pl := placement.AtAngles(profile.AxisZ, angles...)
	sw := kernel.Extrude(profile.XY, s.Height)
	sw.Both = s.Both
	return Plan{
		Shape:     profile.Circle{Workplane: profile.XY, CenterU: s.RingRadius, Radius: s.ChannelRadius},
		Sweep:     sw,
		Placement: &pl,
	}, nil
}

// PortCutterRectangular is a rounded rectangle in the YZ plane extruded
// radially along +X, starting Offset from the axis, then placed at the
// requested azimuths.
type PortCutterRectangular struct {
	Width        float64    `yaml:"width" validate:"gt=0"`
	Height       float64    `yaml:"height" validate:"gt=0"`
	Distance     float64    `yaml:"distance" validate:"gt=0"`
	Center       [2]float64 `yaml:"center_point"`
	FilletRadius float64    `yaml:"fillet_radius,omitempty" validate:"gte=0"`
	Offset       float64    `yaml:"extrusion_start_offset" validate:"gte=0"`
	Placing      `yaml:",inline"`
}

func DefaultPortCutterRectangular() PortCutterRectangular {
	return PortCutterRectangular{Width: 100, Height: 100, Distance: 300, Offset: 1}
}

func (s PortCutterRectangular) Kind() string           { return "port-cutter-rectangular" }
func (s PortCutterRectangular) Dependencies() []string { return nil }

func (s PortCutterRectangular) Plan(*Env) (Plan, error) {
	return Plan{
		Shape: profile.PortCutterOutline{
			Workplane:    profile.YZ,
			CenterU:      s.Center[0],
			CenterV:      s.Center[1],
			Width:        s.Width,
			Height:       s.Height,
			FilletRadius: s.FilletRadius,
		},
		Sweep:     kernel.Extrude(profile.YZ, s.Distance),
		Offset:    [3]float64{s.Offset, 0, 0},
		Placement: s.placement(),
	}, nil
}

// PortCutterRotated is a wedge in the XZ plane fanning out from Center at
// PolarPlacementAngle with an opening of PolarCoverageAngle, revolved by
// RotationAngle and centred on each azimuth.
type PortCutterRotated struct {
	Center              [2]float64 `yaml:"center_point"`
	PolarCoverageAngle  float64    `yaml:"polar_coverage_angle" validate:"gt=0,lt=180"`
	PolarPlacementAngle float64    `yaml:"polar_placement_angle" validate:"gte=-90,lte=90"`
	RotationAngle       float64    `yaml:"rotation_angle" validate:"gt=0,lte=360"`
	MaxDistance         float64    `yaml:"max_distance_from_center" validate:"gt=0"`
	Placing             `yaml:",inline"`
}

func DefaultPortCutterRotated() PortCutterRotated {
	return PortCutterRotated{
		Center:             [2]float64{0, 0},
		PolarCoverageAngle: 10,
		RotationAngle:      10,
		MaxDistance:        3000,
	}
}

func (s PortCutterRotated) Kind() string           { return "port-cutter-rotated" }
func (s PortCutterRotated) Dependencies() []string { return nil }

func (s PortCutterRotated) wedge() []profile.Point {
	rad := math.Pi / 180
	lo := (s.PolarPlacementAngle - s.PolarCoverageAngle/2) * rad
	hi := (s.PolarPlacementAngle + s.PolarCoverageAngle/2) * rad
	c := s.Center
	return []profile.Point{
		profile.Straight(c[0], c[1]),
		profile.Straight(c[0]+s.MaxDistance*math.Cos(lo), c[1]+s.MaxDistance*math.Sin(lo)),
		profile.Straight(c[0]+s.MaxDistance*math.Cos(hi), c[1]+s.MaxDistance*math.Sin(hi)),
	}
}

func (s PortCutterRotated) Check() error {
	for _, p := range s.wedge() {
		if p.U < 0 {
			return invalid(s.Kind(), "polar_coverage_angle", "wedge reaches u=%g, past the rotation axis", p.U)
		}
	}
	return nil
}

func (s PortCutterRotated) Plan(*Env) (Plan, error) {
	angles := s.AzimuthAngles
	if len(angles) == 0 {
		n := max(s.Count, 1)
		angles = make([]float64, n)
		for i := range angles {
			angles[i] = float64(i) * 360 / float64(n)
		}
	}
	centred := make([]float64, len(angles))
	for i, a := range angles {
		centred[i] = a - s.RotationAngle/2
	}
	pl := placement.AtAngles(profile.AxisZ, centred...)
	return Plan{
		Shape:     profile.Polygon{Workplane: profile.XZ, Points: s.wedge()},
		Sweep:     kernel.Rotate(profile.XZ, s.RotationAngle),
		Placement: &pl,
	}, nil
}
