package reactor

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/chazu/torus/pkg/component"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CylinderParams describes a cylindrical reactor: a blanket ring with
// lower and upper blanket lids inside a vacuum vessel. Lengths are in cm.
type CylinderParams struct {
	InnerBlanketRadius    float64 `yaml:"inner_blanket_radius" validate:"gt=0"`
	BlanketThickness      float64 `yaml:"blanket_thickness" validate:"gt=0"`
	BlanketHeight         float64 `yaml:"blanket_height" validate:"gt=0"`
	LowerBlanketThickness float64 `yaml:"lower_blanket_thickness" validate:"gt=0"`
	UpperBlanketThickness float64 `yaml:"upper_blanket_thickness" validate:"gt=0"`
	BlanketVVGap          float64 `yaml:"blanket_vv_gap" validate:"gt=0"`
	UpperVVThickness      float64 `yaml:"upper_vv_thickness" validate:"gt=0"`
	VVThickness           float64 `yaml:"vv_thickness" validate:"gt=0"`
	LowerVVThickness      float64 `yaml:"lower_vv_thickness" validate:"gt=0"`
	RotationAngle         float64 `yaml:"rotation_angle" validate:"gt=0,lte=360"`
}

func DefaultCylinderParams() CylinderParams {
	return CylinderParams{
		InnerBlanketRadius:    100,
		BlanketThickness:      60,
		BlanketHeight:         500,
		LowerBlanketThickness: 50,
		UpperBlanketThickness: 40,
		BlanketVVGap:          20,
		UpperVVThickness:      10,
		VVThickness:           10,
		LowerVVThickness:      10,
		RotationAngle:         360,
	}
}

// CylinderReactor builds the component set of a cylindrical reactor.
func CylinderReactor(p CylinderParams, opts ...Option) (*Reactor, error) {
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("cylinder reactor: %w", err)
	}
	h := p.BlanketHeight / 2
	wall := p.InnerBlanketRadius + p.BlanketThickness + p.BlanketVVGap
	top := h + p.UpperVVThickness + p.UpperBlanketThickness
	bottom := -h - p.LowerBlanketThickness - p.LowerVVThickness

	slab := func(z0, z1 float64) component.PolygonRotate {
		return component.PolygonRotate{
			Workplane: "XZ",
			Points: []component.PointSpec{
				component.P(wall, z0, ""),
				component.P(wall, z1, ""),
				component.P(0, z1, ""),
				component.P(0, z0, ""),
			},
		}
	}
	vessel := component.PolygonRotate{
		Workplane: "XZ",
		Points: []component.PointSpec{
			component.P(wall+p.VVThickness, top, ""),
			component.P(wall, top, ""),
			component.P(wall, bottom, ""),
			component.P(wall+p.VVThickness, bottom, ""),
		},
	}

	r := New("cylinder-reactor", append([]Option{WithRotationAngle(p.RotationAngle)}, opts...)...)
	r.Add(
		component.New("blanket", component.CenterColumnCylinder{
			Height:      p.BlanketHeight,
			InnerRadius: p.InnerBlanketRadius,
			OuterRadius: p.InnerBlanketRadius + p.BlanketThickness,
		}, component.WithCut("lower_blanket"), component.WithMaterial("blanket_mat")),
		component.New("vac_ves", vessel, component.WithMaterial("vv_mat")),
		component.New("upper_blanket", slab(h+p.UpperVVThickness, top), component.WithMaterial("blanket_mat")),
		component.New("lower_blanket", slab(-h, -h-p.LowerBlanketThickness), component.WithMaterial("blanket_mat")),
		component.New("lower_vv", slab(-h-p.LowerBlanketThickness, bottom), component.WithMaterial("vv_mat")),
		component.New("upper_vv", slab(h, h+p.UpperVVThickness), component.WithMaterial("vv_mat")),
	)
	return r, nil
}

// ColumnStudyParams describes a radial build around a hyperbolic center
// column: shield, first wall, blanket and vacuum vessel, each layer
// anchored to the outside of the previous one, with rectangular ports cut
// through the outer layers.
type ColumnStudyParams struct {
	Height             float64 `yaml:"height" validate:"gt=0"`
	ShieldInnerRadius  float64 `yaml:"shield_inner_radius" validate:"gte=0"`
	ShieldMidRadius    float64 `yaml:"shield_mid_radius" validate:"gt=0"`
	ShieldOuterRadius  float64 `yaml:"shield_outer_radius" validate:"gt=0"`
	FirstwallThickness float64 `yaml:"firstwall_thickness" validate:"gt=0"`
	PlasmaGap          float64 `yaml:"plasma_gap" validate:"gte=0"`
	BlanketThickness   float64 `yaml:"blanket_thickness" validate:"gt=0"`
	VesselGap          float64 `yaml:"vessel_gap" validate:"gte=0"`
	VesselThickness    float64 `yaml:"vessel_thickness" validate:"gt=0"`
	Ports              int     `yaml:"ports" validate:"gte=0"`
	PortSize           float64 `yaml:"port_size" validate:"gt=0"`
	RotationAngle      float64 `yaml:"rotation_angle" validate:"gt=0,lte=360"`
}

func DefaultColumnStudyParams() ColumnStudyParams {
	return ColumnStudyParams{
		Height:             800,
		ShieldInnerRadius:  20,
		ShieldMidRadius:    60,
		ShieldOuterRadius:  80,
		FirstwallThickness: 10,
		PlasmaGap:          200,
		BlanketThickness:   60,
		VesselGap:          20,
		VesselThickness:    10,
		Ports:              4,
		PortSize:           100,
		RotationAngle:      180,
	}
}

// ColumnStudyReactor builds the component set of a center column study.
func ColumnStudyReactor(p ColumnStudyParams, opts ...Option) (*Reactor, error) {
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("column study reactor: %w", err)
	}

	blanket := component.CenterColumnCylinder{Height: p.Height, OuterRadius: p.BlanketThickness}
	blanket.After, blanket.Gap = "firstwall", p.PlasmaGap
	vessel := component.VacuumVessel{Height: p.Height + 2*p.VesselGap, InnerRadius: 1, Thickness: p.VesselThickness}
	vessel.After, vessel.Gap = "blanket", p.VesselGap

	r := New("column-study-reactor", append([]Option{WithRotationAngle(p.RotationAngle)}, opts...)...)
	r.Add(
		component.New("shield", component.CenterColumnHyperbola{
			Height:      p.Height,
			InnerRadius: p.ShieldInnerRadius,
			MidRadius:   p.ShieldMidRadius,
			OuterRadius: p.ShieldOuterRadius,
		}, component.WithMaterial("shield_mat")),
		component.New("firstwall", component.InboardFirstwall{
			Shield:    "shield",
			Thickness: p.FirstwallThickness,
		}, component.WithMaterial("firstwall_mat")),
		component.New("blanket", blanket, component.WithMaterial("blanket_mat")),
		component.New("vessel", vessel, component.WithMaterial("vv_mat")),
	)
	if p.Ports > 0 {
		port := component.DefaultPortCutterRectangular()
		port.Width, port.Height = p.PortSize, p.PortSize
		port.Distance = 10 * p.Height
		port.Offset = p.ShieldOuterRadius + p.FirstwallThickness + p.PlasmaGap/2
		angles := make([]float64, p.Ports)
		for i := range angles {
			angles[i] = float64(i) * 360 / float64(p.Ports)
		}
		if p.RotationAngle < 360 {
			// keep the ports inside the modelled sector
			for i := range angles {
				angles[i] = p.RotationAngle * (float64(i) + 0.5) / float64(p.Ports)
			}
		}
		port.AzimuthAngles = angles
		r.AddCutter(component.New("ports", port))
	}
	return r, nil
}

// SubmersionParams describes a submersion tokamak: a D-shaped plasma
// inside a firstwall, blanket and rear wall that follow its outline, with
// divertors and supports at its top and bottom, a cylindrical center
// column, optional outboard TF coils and optional PF coils. Lengths are in
// cm and radial thicknesses are listed from the axis outward.
type SubmersionParams struct {
	InnerBoreRadialThickness          float64 `yaml:"inner_bore_radial_thickness" validate:"gte=0"`
	InboardTFLegRadialThickness       float64 `yaml:"inboard_tf_leg_radial_thickness" validate:"gt=0"`
	CenterColumnShieldRadialThickness float64 `yaml:"center_column_shield_radial_thickness" validate:"gt=0"`
	InboardBlanketRadialThickness     float64 `yaml:"inboard_blanket_radial_thickness" validate:"gt=0"`
	FirstwallRadialThickness          float64 `yaml:"firstwall_radial_thickness" validate:"gt=0"`
	InnerPlasmaGapRadialThickness     float64 `yaml:"inner_plasma_gap_radial_thickness" validate:"gte=0"`
	PlasmaRadialThickness             float64 `yaml:"plasma_radial_thickness" validate:"gt=0"`
	OuterPlasmaGapRadialThickness     float64 `yaml:"outer_plasma_gap_radial_thickness" validate:"gte=0"`
	OutboardBlanketRadialThickness    float64 `yaml:"outboard_blanket_radial_thickness" validate:"gt=0"`
	BlanketRearWallRadialThickness    float64 `yaml:"blanket_rear_wall_radial_thickness" validate:"gt=0"`
	DivertorRadialThickness           float64 `yaml:"divertor_radial_thickness" validate:"gt=0"`
	SupportRadialThickness            float64 `yaml:"support_radial_thickness" validate:"gt=0"`

	Elongation    float64 `yaml:"elongation" validate:"gt=0"`
	Triangularity float64 `yaml:"triangularity" validate:"gte=-1,lte=1"`

	// Outboard TF coils are left out when their radial thickness is zero.
	NumberOfTFCoils                 int     `yaml:"number_of_tf_coils" validate:"gte=0"`
	OutboardTFCoilRadialThickness   float64 `yaml:"outboard_tf_coil_radial_thickness" validate:"gte=0"`
	RearBlanketToTFGap              float64 `yaml:"rear_blanket_to_tf_gap" validate:"gte=0"`
	OutboardTFCoilPoloidalThickness float64 `yaml:"outboard_tf_coil_poloidal_thickness" validate:"gte=0"`

	// The i-th PF coil takes the i-th entry of each list. Empty lists mean
	// no PF coils.
	PFCoilRadialThicknesses   []float64 `yaml:"pf_coil_radial_thicknesses" validate:"dive,gt=0"`
	PFCoilVerticalThicknesses []float64 `yaml:"pf_coil_vertical_thicknesses" validate:"dive,gt=0"`
	PFCoilRadialPositions     []float64 `yaml:"pf_coil_radial_positions" validate:"dive,gt=0"`
	PFCoilVerticalPositions   []float64 `yaml:"pf_coil_vertical_positions"`
	PFCoilCaseThickness       float64   `yaml:"pf_coil_case_thickness" validate:"gte=0"`

	DivertorPosition string  `yaml:"divertor_position" validate:"oneof=upper lower both"`
	SupportPosition  string  `yaml:"support_position" validate:"oneof=upper lower both"`
	RotationAngle    float64 `yaml:"rotation_angle" validate:"gt=0,lte=360"`
}

func DefaultSubmersionParams() SubmersionParams {
	return SubmersionParams{
		InnerBoreRadialThickness:          10,
		InboardTFLegRadialThickness:       30,
		CenterColumnShieldRadialThickness: 60,
		InboardBlanketRadialThickness:     20,
		FirstwallRadialThickness:          30,
		InnerPlasmaGapRadialThickness:     30,
		PlasmaRadialThickness:             300,
		OuterPlasmaGapRadialThickness:     30,
		OutboardBlanketRadialThickness:    20,
		BlanketRearWallRadialThickness:    30,
		DivertorRadialThickness:           50,
		SupportRadialThickness:            20,
		Elongation:                        2,
		Triangularity:                     0.5,
		NumberOfTFCoils:                   16,
		OutboardTFCoilRadialThickness:     100,
		RearBlanketToTFGap:                20,
		OutboardTFCoilPoloidalThickness:   50,
		PFCoilRadialThicknesses:           []float64{50, 50, 50, 50},
		PFCoilVerticalThicknesses:         []float64{50, 50, 50, 50},
		PFCoilRadialPositions:             []float64{800, 800, 400, 400},
		PFCoilVerticalPositions:           []float64{250, -250, 600, -600},
		PFCoilCaseThickness:               10,
		DivertorPosition:                  "both",
		SupportPosition:                   "both",
		RotationAngle:                     180,
	}
}

func (p SubmersionParams) check() error {
	n := len(p.PFCoilRadialThicknesses)
	lists := []struct {
		name string
		len  int
	}{
		{"pf_coil_vertical_thicknesses", len(p.PFCoilVerticalThicknesses)},
		{"pf_coil_radial_positions", len(p.PFCoilRadialPositions)},
		{"pf_coil_vertical_positions", len(p.PFCoilVerticalPositions)},
	}
	for _, l := range lists {
		if l.len != n {
			return fmt.Errorf("%s has %d entries, pf_coil_radial_thicknesses has %d", l.name, l.len, n)
		}
	}
	if p.OutboardTFCoilRadialThickness > 0 && p.OutboardTFCoilPoloidalThickness <= 0 {
		return fmt.Errorf("outboard_tf_coil_poloidal_thickness must be positive when outboard TF coils are built")
	}
	return nil
}

// window returns the poloidal angles where a band of width w centred on
// the plasma's top radius meets the outline, on the outboard and inboard
// side of the top.
func window(pl component.Plasma, w float64) (out, in float64, err error) {
	hx := pl.HighPoint().U
	if out, err = pl.AngleAtRadius(hx+w/2, 0, 90); err != nil {
		return 0, 0, err
	}
	if in, err = pl.AngleAtRadius(hx-w/2, 90, 180); err != nil {
		return 0, 0, err
	}
	return out, in, nil
}

// SubmersionReactor builds the component set of a submersion tokamak.
// Divertors and supports take a poloidal window of the firstwall and
// blanket layers, so no two parts overlap.
func SubmersionReactor(p SubmersionParams, opts ...Option) (*Reactor, error) {
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("submersion reactor: %w", err)
	}
	if err := p.check(); err != nil {
		return nil, fmt.Errorf("submersion reactor: %w", err)
	}

	// Radial build, from the axis outward.
	tfStart := p.InnerBoreRadialThickness
	shieldStart := tfStart + p.InboardTFLegRadialThickness
	blanketStart := shieldStart + p.CenterColumnShieldRadialThickness
	blanketEnd := blanketStart + p.InboardBlanketRadialThickness
	innerEq := blanketEnd + p.FirstwallRadialThickness + p.InnerPlasmaGapRadialThickness
	outerEq := innerEq + p.PlasmaRadialThickness

	pl := component.DefaultPlasma()
	pl.MajorRadius = (innerEq + outerEq) / 2
	pl.MinorRadius = pl.MajorRadius - innerEq
	pl.Elongation, pl.Triangularity = p.Elongation, p.Triangularity
	if err := component.Validate(pl); err != nil {
		return nil, fmt.Errorf("submersion reactor: %w", err)
	}
	high := pl.HighPoint()

	// Vertical build above the plasma.
	fwOffset := p.OuterPlasmaGapRadialThickness
	blanketOffset := fwOffset + p.FirstwallRadialThickness
	rearOffset := blanketOffset + p.OutboardBlanketRadialThickness
	rearStart := high.V + rearOffset
	rearEnd := rearStart + p.BlanketRearWallRadialThickness
	rearEndRadius := outerEq + rearOffset + p.BlanketRearWallRadialThickness

	divOut, divIn, err := window(pl, p.DivertorRadialThickness)
	if err != nil {
		return nil, fmt.Errorf("submersion reactor: divertor: %w", err)
	}
	supOut, supIn, err := window(pl, p.SupportRadialThickness)
	if err != nil {
		return nil, fmt.Errorf("submersion reactor: support: %w", err)
	}
	upperDiv := p.DivertorPosition != "lower"
	lowerDiv := p.DivertorPosition != "upper"
	upperSup := p.SupportPosition != "lower"
	lowerSup := p.SupportPosition != "upper"

	layer := func(offset, thickness, start, stop float64) component.BlanketFP {
		fp := component.DefaultBlanketFP()
		fp.Plasma = "plasma"
		fp.Offset, fp.Thickness = offset, thickness
		fp.StartAngle, fp.StopAngle = start, stop
		return fp
	}
	// pick returns a when the window is present, b otherwise.
	pick := func(on bool, a, b float64) float64 {
		if on {
			return a
		}
		return b
	}
	lid := func(z0, z1 float64) component.PolygonRotate {
		return component.PolygonRotate{
			Workplane: "XZ",
			Points: []component.PointSpec{
				component.P(blanketStart, z0, ""),
				component.P(high.U, z0, ""),
				component.P(high.U, z1, ""),
				component.P(blanketStart, z1, ""),
			},
		}
	}

	r := New("submersion-reactor", append([]Option{WithRotationAngle(p.RotationAngle)}, opts...)...)
	r.Add(
		component.New("plasma", pl, component.WithMaterial("DT_plasma")),
		component.New("inboard_tf_coils", component.CenterColumnCylinder{
			Height: 2 * rearEnd, InnerRadius: tfStart, OuterRadius: shieldStart,
		}, component.WithMaterial("inboard_tf_coils_mat")),
		component.New("center_column_shield", component.CenterColumnCylinder{
			Height: 2 * rearEnd, InnerRadius: shieldStart, OuterRadius: blanketStart,
		}, component.WithMaterial("center_column_shield_mat")),
		component.New("inboard_blanket", component.CenterColumnCylinder{
			Height: 2 * rearStart, InnerRadius: blanketStart, OuterRadius: blanketEnd,
		}, component.WithMaterial("blanket_mat")),
		component.New("inboard_firstwall",
			layer(p.InnerPlasmaGapRadialThickness, p.FirstwallRadialThickness,
				pick(upperDiv, divIn, 90), pick(lowerDiv, 360-divIn, 270)),
			component.WithMaterial("firstwall_mat")),
		component.New("outboard_firstwall",
			layer(fwOffset, p.FirstwallRadialThickness, pick(upperDiv, divOut, 90), pick(lowerDiv, -divOut, -90)),
			component.WithMaterial("firstwall_mat")),
	)
	if upperDiv {
		r.Add(component.New("upper_divertor",
			layer(fwOffset, p.FirstwallRadialThickness, divIn, divOut), component.WithMaterial("divertor_mat")))
	}
	if lowerDiv {
		r.Add(component.New("lower_divertor",
			layer(fwOffset, p.FirstwallRadialThickness, -divOut, -divIn), component.WithMaterial("divertor_mat")))
	}
	r.Add(component.New("blanket",
		layer(blanketOffset, p.OutboardBlanketRadialThickness, pick(upperSup, supOut, 90), pick(lowerSup, -supOut, -90)),
		component.WithMaterial("blanket_mat")))
	if upperSup {
		r.Add(component.New("upper_support",
			layer(blanketOffset, p.OutboardBlanketRadialThickness, supIn, supOut), component.WithMaterial("supports_mat")))
	}
	if lowerSup {
		r.Add(component.New("lower_support",
			layer(blanketOffset, p.OutboardBlanketRadialThickness, -supOut, -supIn), component.WithMaterial("supports_mat")))
	}
	r.Add(
		component.New("outboard_rear_blanket_wall",
			layer(rearOffset, p.BlanketRearWallRadialThickness, 90, -90), component.WithMaterial("blanket_rear_wall_mat")),
		component.New("upper_rear_blanket_wall", lid(rearStart, rearEnd), component.WithMaterial("blanket_rear_wall_mat")),
		component.New("lower_rear_blanket_wall", lid(-rearEnd, -rearStart), component.WithMaterial("blanket_rear_wall_mat")),
	)

	pfCoils := len(p.PFCoilRadialThicknesses) > 0
	if p.OutboardTFCoilRadialThickness > 0 && p.NumberOfTFCoils > 1 {
		tf := component.TFCoilRectangle{
			HorizontalStart:   [2]float64{tfStart, rearEnd},
			VerticalMid:       [2]float64{rearEndRadius + p.RearBlanketToTFGap, 0},
			Thickness:         p.OutboardTFCoilRadialThickness,
			Distance:          p.OutboardTFCoilPoloidalThickness,
			NumberOfCoils:     p.NumberOfTFCoils,
			AzimuthStartAngle: 180 / float64(p.NumberOfTFCoils),
		}
		if p.RotationAngle < 360 {
			tf.SectorAngle = p.RotationAngle
		}
		tfOpts := []component.Option{component.WithMaterial("outboard_tf_coil_mat")}
		if pfCoils {
			tfOpts = append(tfOpts, component.WithCut("pf_coils"))
		}
		r.Add(component.New("tf_coils", tf, tfOpts...))
	}
	if pfCoils {
		set := component.PFCoilSet{}
		for i := range p.PFCoilRadialThicknesses {
			set.CenterPoints = append(set.CenterPoints, [2]float64{p.PFCoilRadialPositions[i], p.PFCoilVerticalPositions[i]})
			set.Widths = append(set.Widths, p.PFCoilRadialThicknesses[i])
			set.Heights = append(set.Heights, p.PFCoilVerticalThicknesses[i])
		}
		r.Add(component.New("pf_coils", set, component.WithMaterial("pf_coil_mat")))
		if t := p.PFCoilCaseThickness; t > 0 {
			cases := component.PFCoilSet{CenterPoints: set.CenterPoints}
			for i := range set.Widths {
				cases.Widths = append(cases.Widths, set.Widths[i]+2*t)
				cases.Heights = append(cases.Heights, set.Heights[i]+2*t)
			}
			r.Add(component.New("pf_coil_cases", cases,
				component.WithCut("pf_coils"), component.WithMaterial("pf_coil_case_mat")))
		}
	}
	return r, nil
}
