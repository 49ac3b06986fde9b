package component_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/torus/pkg/component"
	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/kernel/sdfx"
	"github.com/chazu/torus/pkg/profile"
	"github.com/chazu/torus/pkg/solid"
)

// Compile-time interface checks.
var (
	_ component.Thickener = component.CenterColumnCylinder{}
	_ component.Thickener = component.CenterColumnHyperbola{}
	_ component.Thickener = component.CenterColumnFlatTopCircular{}
	_ component.Checker   = component.PFCoilSet{}
)

func build(t *testing.T, c *component.Component, deps ...component.View) *component.Built {
	t.Helper()
	b, err := c.Build(component.NewEnv(sdfx.New(), 0, deps...))
	require.NoError(t, err)
	return b
}

func view(t *testing.T, c *component.Component) component.View {
	t.Helper()
	v, err := c.View()
	require.NoError(t, err)
	return v
}

func TestVacuumVesselExtents(t *testing.T) {
	vv := component.New("vessel", component.VacuumVessel{
		Height:        2,
		InnerRadius:   1,
		Thickness:     0.2,
		RotationAngle: 270,
	})
	b := build(t, vv)

	e := b.Extents
	assert.InDelta(t, 1.2, e.OuterRadius, 1e-9)
	assert.InDelta(t, 0, e.InnerRadius, 1e-9)
	assert.InDelta(t, 270, e.AngularExtent, 1e-9)
	assert.InDelta(t, 2.4, e.Height, 1e-6)
	assert.Len(t, b.Template.EndFaces(), 2)

	got, err := vv.Extents()
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestReactorAngleAppliesWhenUnset(t *testing.T) {
	vv := component.New("vessel", component.DefaultVacuumVessel())
	b, err := vv.Build(component.NewEnv(sdfx.New(), 180))
	require.NoError(t, err)
	assert.InDelta(t, 180, b.Extents.AngularExtent, 1e-9)
}

func TestCoolantChannelRing(t *testing.T) {
	ring := component.New("channels", component.CoolantChannelRing{
		Count:         8,
		RingRadius:    70,
		ChannelRadius: 10,
		Height:        50,
	})
	b := build(t, ring)

	require.Len(t, b.Instances, 8)
	for i, in := range b.Instances {
		want := float64(i) * 45
		assert.InDelta(t, want, in.Angle, 1e-9, "instance %d", i)
		assert.InDelta(t, 70, math.Hypot(in.Center[0], in.Center[1]), 1e-6, "instance %d", i)
		got := math.Atan2(in.Center[1], in.Center[0]) * 180 / math.Pi
		if got < -1e-6 {
			got += 360
		}
		assert.InDelta(t, want, got, 1e-6, "instance %d", i)
	}
	assert.Empty(t, b.Warnings)
	assert.InDelta(t, 80, b.Extents.OuterRadius, 1)
}

func TestCoolantChannelsMustNotOverlap(t *testing.T) {
	_, err := component.New("channels", component.CoolantChannelRing{
		Count:         12,
		RingRadius:    20,
		ChannelRadius: 10,
		Height:        10,
	}).Build(component.NewEnv(sdfx.New(), 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, profile.ErrInvalidParameter), "got %v", err)
}

func TestBuildIsMemoised(t *testing.T) {
	c := component.New("col", component.DefaultCenterColumnCylinder())
	env := component.NewEnv(sdfx.New(), 0)

	first, err := c.Build(env)
	require.NoError(t, err)
	second, err := c.Build(env)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.False(t, c.Stale())

	c.Invalidate()
	assert.True(t, c.Stale())
	_, ok := c.Built()
	assert.False(t, ok)

	third, err := c.Build(env)
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	spec := component.DefaultCenterColumnCylinder()
	spec.OuterRadius = 300
	c.SetSpec(spec)
	fourth, err := c.Build(env)
	require.NoError(t, err)
	assert.InDelta(t, 300, fourth.Extents.OuterRadius, 1e-9)
}

func TestBuildErrorCarriesSnapshot(t *testing.T) {
	c := component.New("col", component.CenterColumnHyperbola{
		Height:      600,
		InnerRadius: 100,
		MidRadius:   50,
		OuterRadius: 150,
	})
	_, err := c.Build(component.NewEnv(sdfx.New(), 0))
	require.Error(t, err)

	var be *component.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "col", be.Component)
	assert.Equal(t, "center-column-hyperbola", be.Kind)
	assert.EqualValues(t, 50, be.Params["mid_radius"])
	assert.True(t, errors.Is(err, profile.ErrInvalidParameter))

	var pe *profile.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "mid_radius", pe.Param)

	_, ok := c.Built()
	assert.False(t, ok)
	_, err = c.Extents()
	assert.ErrorIs(t, err, component.ErrNotBuilt)
}

// filletedBox is a spec whose fillet names a vertex the box does not have.
type filletedBox struct{ vertex int }

func (filletedBox) Kind() string           { return "filleted-box" }
func (filletedBox) Dependencies() []string { return nil }

func (s filletedBox) Plan(*component.Env) (component.Plan, error) {
	return component.Plan{
		Shape: profile.Rectangle{Workplane: profile.XY, Width: 10, Height: 10},
		Sweep: kernel.Extrude(profile.XY, 5),
		PostOps: []solid.PostOp{
			solid.Fillet{Edges: solid.EdgeAt(0, s.vertex), Radius: 1},
		},
	}, nil
}

func TestFilletOnMissingEdgeLeavesCacheUnset(t *testing.T) {
	c := component.New("box", filletedBox{vertex: 7})
	_, err := c.Build(component.NewEnv(sdfx.New(), 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, solid.ErrPostOpFailed), "got %v", err)
	_, ok := c.Built()
	assert.False(t, ok)
	assert.True(t, c.Stale())

	c.SetSpec(filletedBox{vertex: 2})
	b := build(t, c)
	assert.NotNil(t, b.Body)
}

func TestDependencies(t *testing.T) {
	spec := component.DefaultCenterColumnCylinder()
	spec.After = "shield"
	c := component.New("blanket", spec,
		component.WithCut("port", "shield"),
		component.WithUnion("lid"),
		component.WithMaterial("eurofer"),
	)
	assert.Equal(t, []string{"shield", "port", "lid"}, c.Dependencies())
	assert.Equal(t, "eurofer", c.Material)
	assert.Equal(t, "center-column-cylinder", c.Kind())
}

func TestAnchoredCylinder(t *testing.T) {
	inner := component.New("shield", component.CenterColumnCylinder{Height: 600, InnerRadius: 100, OuterRadius: 200})
	build(t, inner)

	spec := component.CenterColumnCylinder{Height: 600, InnerRadius: 0, OuterRadius: 50}
	spec.After, spec.Gap = "shield", 10
	outer := component.New("blanket", spec)
	b := build(t, outer, view(t, inner))

	assert.InDelta(t, 210, b.Extents.InnerRadius, 1e-9)
	assert.InDelta(t, 260, b.Extents.OuterRadius, 1e-9)

	res, ok := view(t, outer).Spec.(component.CenterColumnCylinder)
	require.True(t, ok)
	assert.Equal(t, 210.0, res.InnerRadius)
	assert.Empty(t, res.After)
}

func TestMissingDependencyView(t *testing.T) {
	spec := component.DefaultVacuumVessel()
	spec.After = "blanket"
	_, err := component.New("vessel", spec).Build(component.NewEnv(sdfx.New(), 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `dependency "blanket" is not available`)
}

func TestInboardFirstwall(t *testing.T) {
	k := sdfx.New()
	shield := component.New("shield", component.CenterColumnCylinder{Height: 600, InnerRadius: 100, OuterRadius: 200})
	build(t, shield)

	fw := component.New("firstwall", component.InboardFirstwall{Shield: "shield", Thickness: 20})
	assert.Equal(t, []string{"shield"}, fw.Dependencies())
	b, err := fw.Build(component.NewEnv(k, 0, view(t, shield)))
	require.NoError(t, err)

	assert.InDelta(t, 220, b.Extents.OuterRadius, 1e-9)
	assert.InDelta(t, 360, b.Extents.AngularExtent, 1e-9)
	assert.False(t, k.Inside(b.Body, [3]float64{150, 0, 0}), "shield region must be removed")
	assert.True(t, k.Inside(b.Body, [3]float64{210, 0, 0}))
}

func TestInboardFirstwallNeedsAColumn(t *testing.T) {
	coil := component.New("coil", component.DefaultPFCoil())
	build(t, coil)

	fw := component.New("firstwall", component.InboardFirstwall{Shield: "coil", Thickness: 20})
	_, err := fw.Build(component.NewEnv(sdfx.New(), 0, view(t, coil)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, profile.ErrInvalidParameter))
}

func TestCutReferenceDoesNotNeedOverlap(t *testing.T) {
	k := sdfx.New()
	lower := component.New("lower", component.CenterColumnCylinder{Height: 50, InnerRadius: 100, OuterRadius: 200})
	build(t, lower)

	blanket := component.New("blanket",
		component.CenterColumnCylinder{Height: 600, InnerRadius: 300, OuterRadius: 400},
		component.WithCut("lower"),
	)
	b, err := blanket.Build(component.NewEnv(k, 0, view(t, lower)))
	require.NoError(t, err)
	assert.True(t, k.Inside(b.Body, [3]float64{350, 0, 0}))
}

func TestPortCutterRotatedIsCentredOnAzimuth(t *testing.T) {
	spec := component.DefaultPortCutterRotated()
	spec.AzimuthAngles = []float64{0, 90}
	b := build(t, component.New("port", spec))

	require.Len(t, b.Instances, 2)
	assert.InDelta(t, -5, b.Instances[0].Angle, 1e-9)
	assert.InDelta(t, 85, b.Instances[1].Angle, 1e-9)
}

func TestITERDivertorExtents(t *testing.T) {
	b := build(t, component.New("divertor", component.DefaultITERDivertor()))
	assert.InDelta(t, 611, b.Extents.OuterRadius, 1e-6)
	assert.InDelta(t, 399.95, b.Extents.InnerRadius, 0.01)
}

func TestDefaultsBuild(t *testing.T) {
	k := sdfx.New()
	for _, kind := range component.Kinds() {
		switch kind {
		case "inboard-firstwall", "blanket-fp":
			continue // needs a dependency
		}
		t.Run(kind, func(t *testing.T) {
			spec, ok := component.Lookup(kind)
			require.True(t, ok)
			require.NoError(t, component.Validate(spec))
			b, err := component.New(kind, spec).Build(component.NewEnv(k, 0))
			require.NoError(t, err)
			assert.NotEmpty(t, b.Instances)
		})
	}
}

func TestPlasmaOutline(t *testing.T) {
	pl := component.Plasma{MajorRadius: 450, MinorRadius: 150, Elongation: 2, Triangularity: 0.5, NumPoints: 48}
	require.NoError(t, component.Validate(pl))

	out := pl.At(0)
	assert.InDelta(t, 600, out.U, 1e-9)
	assert.InDelta(t, 0, out.V, 1e-9)
	assert.InDelta(t, 300, pl.At(180).U, 1e-9)
	assert.InDelta(t, 300, pl.HighPoint().V, 1e-9)
	assert.InDelta(t, -300, pl.LowPoint().V, 1e-9)
	assert.InDelta(t, 450-150*math.Sin(0.5), pl.HighPoint().U, 1e-9)

	n := pl.Normal(0)
	assert.InDelta(t, 1, n.U, 1e-9)
	assert.InDelta(t, 0, n.V, 1e-9)
	n = pl.Normal(90)
	assert.InDelta(t, 0, n.U, 1e-9)
	assert.InDelta(t, 1, n.V, 1e-9)

	r := pl.HighPoint().U + 40
	a, err := pl.AngleAtRadius(r, 0, 90)
	require.NoError(t, err)
	assert.InDelta(t, r, pl.At(a).U, 1e-6)
	_, err = pl.AngleAtRadius(1000, 0, 90)
	assert.Error(t, err)

	b := build(t, component.New("plasma", pl))
	assert.InDelta(t, 300, b.Extents.InnerRadius, 1)
	assert.InDelta(t, 600, b.Extents.OuterRadius, 1)
	assert.InDelta(t, 600, b.Extents.Height, 2)
}

func TestPlasmaRejectsMinorAboveMajor(t *testing.T) {
	pl := component.DefaultPlasma()
	pl.MinorRadius = pl.MajorRadius
	err := component.Validate(pl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minor_radius")
}

func TestBlanketFollowsPlasma(t *testing.T) {
	k := sdfx.New()
	pl := component.DefaultPlasma()
	plasma := component.New("plasma", pl)
	build(t, plasma)

	fp := component.DefaultBlanketFP()
	fp.Offset, fp.Thickness = 20, 50
	blanket := component.New("blanket", fp)
	assert.Equal(t, []string{"plasma"}, blanket.Dependencies())
	b, err := blanket.Build(component.NewEnv(k, 0, view(t, plasma)))
	require.NoError(t, err)

	// The outboard equator sits on the layer's centre line.
	eq := pl.At(0).U
	assert.InDelta(t, eq+70, b.Extents.OuterRadius, 1)
	assert.InDelta(t, pl.HighPoint().U, b.Extents.InnerRadius, 1)
	assert.True(t, k.Inside(b.Body, [3]float64{eq + 45, 0, 0}))
	assert.False(t, k.Inside(b.Body, [3]float64{eq + 10, 0, 0}), "the gap stays empty")
	assert.False(t, k.Inside(b.Body, [3]float64{pl.MajorRadius, 0, 0}), "the plasma stays empty")
}

func TestBlanketNeedsAPlasma(t *testing.T) {
	coil := component.New("coil", component.DefaultPFCoil())
	build(t, coil)

	fp := component.DefaultBlanketFP()
	fp.Plasma = "coil"
	_, err := component.New("blanket", fp).Build(component.NewEnv(sdfx.New(), 0, view(t, coil)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, profile.ErrInvalidParameter))
}

func TestTFCoilsInsideSector(t *testing.T) {
	spec := component.DefaultTFCoilRectangle()
	spec.NumberOfCoils = 8
	spec.AzimuthStartAngle = 22.5
	spec.SectorAngle = 180
	b := build(t, component.New("tf", spec))

	require.Len(t, b.Instances, 4)
	for i, in := range b.Instances {
		assert.InDelta(t, 22.5+45*float64(i), in.Angle, 1e-9)
	}

	spec.NumberOfCoils = 1
	spec.AzimuthStartAngle = 270
	_, err := component.New("tf", spec).Build(component.NewEnv(sdfx.New(), 0))
	assert.Error(t, err)
}
