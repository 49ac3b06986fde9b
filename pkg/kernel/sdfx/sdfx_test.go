package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/profile"
)

func rect(wp profile.Workplane, u0, v0, u1, v1 float64) profile.Profile {
	return profile.New(wp,
		profile.Straight(u0, v0),
		profile.Straight(u1, v0),
		profile.Straight(u1, v1),
		profile.Straight(u0, v1),
	)
}

func sweep(t *testing.T, k *SdfxKernel, p profile.Profile, sw kernel.Sweep) kernel.Solid {
	t.Helper()
	w, err := k.MakeWire(p)
	if err != nil {
		t.Fatalf("MakeWire failed: %v", err)
	}
	s, err := k.Sweep([]kernel.Wire{w}, sw)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	return s
}

func polar(r, deg, z float64) [3]float64 {
	a := deg * math.Pi / 180
	return [3]float64{r * math.Cos(a), r * math.Sin(a), z}
}

func TestRevolveFull(t *testing.T) {
	k := New()
	s := sweep(t, k, rect(profile.XZ, 1, -1, 1.2, 1), kernel.Rotate(profile.XZ, 360))

	for _, deg := range []float64{0, 90, 180, 270} {
		if !k.Inside(s, polar(1.1, deg, 0)) {
			t.Errorf("point at %g degrees should be inside the ring", deg)
		}
	}
	if k.Inside(s, [3]float64{0.5, 0, 0}) {
		t.Error("bore should be empty")
	}
	if k.Inside(s, [3]float64{1.1, 0, 1.5}) {
		t.Error("point above the ring should be outside")
	}
	if d := k.Distance(s, [3]float64{1.1, 0, 0}); d >= 0 {
		t.Errorf("full revolution has a face at 0 degrees: distance %g", d)
	}
}

func TestRevolvePartialHasEndFaces(t *testing.T) {
	k := New()
	s := sweep(t, k, rect(profile.XZ, 1, -1, 1.2, 1), kernel.Rotate(profile.XZ, 270))

	for _, deg := range []float64{45, 135, 225} {
		if !k.Inside(s, polar(1.1, deg, 0)) {
			t.Errorf("point at %g degrees should be inside", deg)
		}
	}
	if k.Inside(s, polar(1.1, 315, 0)) {
		t.Error("point at 315 degrees lies in the gap")
	}
	// The start face lies on the XZ plane.
	if d := k.Distance(s, [3]float64{1.1, 0, 0}); math.Abs(d) > 1e-9 {
		t.Errorf("distance at start face = %g, want 0", d)
	}
}

func TestRevolveAboutY(t *testing.T) {
	k := New()
	s := sweep(t, k, rect(profile.XY, 1, 0, 2, 1), kernel.Rotate(profile.XY, 90))

	c := 1.5 * math.Sqrt2 / 2
	if !k.Inside(s, [3]float64{c, 0.5, -c}) {
		t.Error("quarter revolution about Y should sweep towards -Z")
	}
	if k.Inside(s, [3]float64{c, 0.5, c}) {
		t.Error("quarter revolution about Y should not reach +Z")
	}
}

func TestRevolveRejectsAxisCrossing(t *testing.T) {
	k := New()
	w, err := k.MakeWire(rect(profile.XZ, -1, 0, 1, 1))
	if err != nil {
		t.Fatalf("MakeWire failed: %v", err)
	}
	_, err = k.Sweep([]kernel.Wire{w}, kernel.Rotate(profile.XZ, 360))
	if !errors.Is(err, kernel.ErrInvalidWire) {
		t.Fatalf("Sweep() = %v, want ErrInvalidWire", err)
	}
}

func TestSweepValidation(t *testing.T) {
	k := New()
	w, err := k.MakeWire(rect(profile.XZ, 1, 0, 2, 1))
	if err != nil {
		t.Fatalf("MakeWire failed: %v", err)
	}
	tests := []struct {
		name string
		sw   kernel.Sweep
	}{
		{"zero angle", kernel.Rotate(profile.XZ, 0)},
		{"angle above 360", kernel.Rotate(profile.XZ, 400)},
		{"wrong axis", kernel.Sweep{Kind: kernel.SweepRotate, Workplane: profile.XZ, Axis: profile.AxisX, Angle: 90}},
		{"zero distance", kernel.Extrude(profile.XZ, 0)},
		{"workplane mismatch", kernel.Extrude(profile.XY, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.Sweep([]kernel.Wire{w}, tt.sw)
			if !errors.Is(err, kernel.ErrInvalidSweep) {
				t.Fatalf("Sweep() = %v, want ErrInvalidSweep", err)
			}
		})
	}
	if _, err := k.Sweep(nil, kernel.Extrude(profile.XZ, 1)); !errors.Is(err, kernel.ErrInvalidSweep) {
		t.Fatalf("Sweep(nil) = %v, want ErrInvalidSweep", err)
	}
}

func TestMakeWireRejectsDegenerate(t *testing.T) {
	k := New()
	_, err := k.MakeWire(profile.New(profile.XY, profile.Straight(0, 0), profile.Straight(1, 0)))
	if !errors.Is(err, kernel.ErrInvalidWire) {
		t.Fatalf("MakeWire() = %v, want ErrInvalidWire", err)
	}
	if !errors.Is(err, profile.ErrDegenerateProfile) {
		t.Fatalf("MakeWire() = %v, should wrap the profile error", err)
	}
}

func TestExtrudeDirections(t *testing.T) {
	k := New()
	tests := []struct {
		wp      profile.Workplane
		inside  [3]float64
		outside [3]float64
	}{
		{profile.XY, [3]float64{0.5, 1, 1.5}, [3]float64{0.5, 1, -1.5}},
		{profile.XZ, [3]float64{0.5, -1.5, 1}, [3]float64{0.5, 1.5, 1}},
		{profile.YZ, [3]float64{1.5, 0.5, 1}, [3]float64{-1.5, 0.5, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.wp.String(), func(t *testing.T) {
			s := sweep(t, k, rect(tt.wp, 0, 0, 1, 2), kernel.Extrude(tt.wp, 3))
			if !k.Inside(s, tt.inside) {
				t.Errorf("%v should be inside", tt.inside)
			}
			if k.Inside(s, tt.outside) {
				t.Errorf("%v should be outside", tt.outside)
			}
		})
	}
}

func TestExtrudeBoth(t *testing.T) {
	k := New()
	sw := kernel.Extrude(profile.XY, 4)
	sw.Both = true
	s := sweep(t, k, rect(profile.XY, 0, 0, 1, 1), sw)

	min, max := s.BoundingBox()
	const tol = 1e-6
	if math.Abs(min[2]+2) > tol || math.Abs(max[2]-2) > tol {
		t.Errorf("z bounds = [%g, %g], want [-2, 2]", min[2], max[2])
	}
}

func TestSweepUnionsWires(t *testing.T) {
	k := New()
	ps, err := profile.Build(profile.ChannelRing{Workplane: profile.XY, Count: 4, RingRadius: 10, ChannelRadius: 1})
	if err != nil {
		t.Fatal(err)
	}
	var ws []kernel.Wire
	for _, p := range ps {
		w, err := k.MakeWire(p)
		if err != nil {
			t.Fatal(err)
		}
		ws = append(ws, w)
	}
	s, err := k.Sweep(ws, kernel.Extrude(profile.XY, 5))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	for _, deg := range []float64{0, 90, 180, 270} {
		if !k.Inside(s, polar(10, deg, 2.5)) {
			t.Errorf("channel at %g degrees missing", deg)
		}
	}
	if k.Inside(s, polar(10, 45, 2.5)) {
		t.Error("space between channels should be empty")
	}
	edges, err := k.Edges(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 16 {
		t.Errorf("len(Edges) = %d, want 16", len(edges))
	}
}

func TestBooleans(t *testing.T) {
	k := New()
	a := sweep(t, k, rect(profile.XY, 0, 0, 2, 2), kernel.Extrude(profile.XY, 2))
	b := sweep(t, k, rect(profile.XY, 1, 1, 3, 3), kernel.Extrude(profile.XY, 2))

	u, err := k.Boolean(kernel.OpUnion, a, b)
	if err != nil {
		t.Fatal(err)
	}
	d, err := k.Boolean(kernel.OpSubtract, a, b)
	if err != nil {
		t.Fatal(err)
	}
	in, err := k.Boolean(kernel.OpIntersect, a, b)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		s    kernel.Solid
		p    [3]float64
		want bool
	}{
		{"union keeps a", u, [3]float64{0.5, 0.5, 1}, true},
		{"union keeps b", u, [3]float64{2.5, 2.5, 1}, true},
		{"subtract removes overlap", d, [3]float64{1.5, 1.5, 1}, false},
		{"subtract keeps rest of a", d, [3]float64{0.5, 0.5, 1}, true},
		{"intersect keeps overlap", in, [3]float64{1.5, 1.5, 1}, true},
		{"intersect drops a", in, [3]float64{0.5, 0.5, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := k.Inside(tt.s, tt.p); got != tt.want {
				t.Errorf("Inside(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}

	if _, err := k.Edges(u); !errors.Is(err, kernel.ErrNoTopology) {
		t.Errorf("Edges(union) = %v, want ErrNoTopology", err)
	}
	if _, err := k.Edges(d); err != nil {
		t.Errorf("Edges(subtract) = %v, want edges of the base sweep", err)
	}
}

func TestFilletReplaysCuts(t *testing.T) {
	k := New()
	box := sweep(t, k, rect(profile.XY, 0, 0, 2, 2), kernel.Extrude(profile.XY, 1))
	hole := sweep(t, k, rect(profile.XY, 0.5, 0.5, 1, 1), kernel.Extrude(profile.XY, 1))

	cut, err := k.Boolean(kernel.OpSubtract, box, hole)
	if err != nil {
		t.Fatal(err)
	}
	corner := [3]float64{1.95, 1.95, 0.5}
	if !k.Inside(cut, corner) {
		t.Fatal("sharp corner should be solid before filleting")
	}

	edges, err := k.Edges(cut)
	if err != nil {
		t.Fatal(err)
	}
	var sel []kernel.Edge
	for _, e := range edges {
		if e.Point == (profile.Vec2{U: 2, V: 2}) {
			sel = append(sel, e)
		}
	}
	if len(sel) != 1 {
		t.Fatalf("found %d edges at (2, 2), want 1", len(sel))
	}

	f, err := k.Fillet(cut, sel, 0.5)
	if err != nil {
		t.Fatalf("Fillet failed: %v", err)
	}
	if k.Inside(f, corner) {
		t.Error("corner should be rounded away")
	}
	if k.Inside(f, [3]float64{0.75, 0.75, 0.5}) {
		t.Error("hole was not replayed after the fillet")
	}
	if !k.Inside(f, [3]float64{1.5, 1.5, 0.5}) {
		t.Error("fillet removed too much material")
	}
}

func TestFilletErrors(t *testing.T) {
	k := New()
	box := sweep(t, k, rect(profile.XY, 0, 0, 2, 2), kernel.Extrude(profile.XY, 1))
	edges, err := k.Edges(box)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := k.Fillet(box, nil, 0.1); !errors.Is(err, kernel.ErrFillet) {
		t.Errorf("Fillet(no edges) = %v, want ErrFillet", err)
	}
	if _, err := k.Fillet(box, edges[:1], 5); !errors.Is(err, kernel.ErrFillet) {
		t.Errorf("Fillet(huge radius) = %v, want ErrFillet", err)
	}
	moved := k.Translate(box, 1, 0, 0)
	if _, err := k.Fillet(moved, edges[:1], 0.1); !errors.Is(err, kernel.ErrNoTopology) {
		t.Errorf("Fillet(translated) = %v, want ErrNoTopology", err)
	}
}

func TestShell(t *testing.T) {
	k := New()
	box := sweep(t, k, rect(profile.XY, 0, 0, 2, 2), kernel.Extrude(profile.XY, 2))

	s, err := k.Shell(box, 0.2)
	if err != nil {
		t.Fatalf("Shell failed: %v", err)
	}
	if k.Inside(s, [3]float64{1, 1, 1}) {
		t.Error("centre should be hollow")
	}
	if !k.Inside(s, [3]float64{0.1, 1, 1}) {
		t.Error("wall should be solid")
	}
	if _, err := k.Shell(box, 1); !errors.Is(err, kernel.ErrShell) {
		t.Errorf("Shell(1) = %v, want ErrShell", err)
	}
	if _, err := k.Shell(box, 0); !errors.Is(err, kernel.ErrShell) {
		t.Errorf("Shell(0) = %v, want ErrShell", err)
	}
}

func TestTranslateAndRotate(t *testing.T) {
	k := New()
	box := sweep(t, k, rect(profile.XY, -0.5, -0.5, 0.5, 0.5), kernel.Extrude(profile.XY, 1))

	moved := k.Translate(box, 2, 0, 0)
	if !k.Inside(moved, [3]float64{2, 0, 0.5}) {
		t.Error("translated box should contain (2, 0, 0.5)")
	}
	turned := k.Rotate(moved, profile.AxisZ, 90)
	if !k.Inside(turned, [3]float64{0, 2, 0.5}) {
		t.Error("rotating +90 about Z should carry +X to +Y")
	}
	if k.Inside(turned, [3]float64{2, 0, 0.5}) {
		t.Error("rotated box should have left +X")
	}

	min, max := moved.BoundingBox()
	const tol = 1e-6
	if math.Abs(min[0]-1.5) > tol || math.Abs(max[0]-2.5) > tol {
		t.Errorf("translated x bounds = [%g, %g], want [1.5, 2.5]", min[0], max[0])
	}
}

func TestIntersects(t *testing.T) {
	k := New()
	a := sweep(t, k, rect(profile.XY, 0, 0, 1, 1), kernel.Extrude(profile.XY, 1))
	b := sweep(t, k, rect(profile.XY, 0.5, 0.5, 1.5, 1.5), kernel.Extrude(profile.XY, 1))
	c := sweep(t, k, rect(profile.XY, 3, 3, 4, 4), kernel.Extrude(profile.XY, 1))

	if !k.Intersects(a, b) {
		t.Error("overlapping boxes should intersect")
	}
	if k.Intersects(a, c) {
		t.Error("distant boxes should not intersect")
	}

	// A ring and a box in its bore share bounding boxes but no material.
	ring := sweep(t, k, rect(profile.XZ, 5, 0, 6, 1), kernel.Rotate(profile.XZ, 360))
	if k.Intersects(ring, a) {
		t.Error("box in the bore should not intersect the ring")
	}
}

func TestToMesh(t *testing.T) {
	k := New(WithMeshCells(32))
	s := sweep(t, k, rect(profile.XZ, 1, -1, 2, 1), kernel.Rotate(profile.XZ, 360))

	mesh, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}
	min, max := mesh.Bounds()
	const tol = 0.25
	if math.Abs(max[0]-2) > tol || math.Abs(min[0]+2) > tol {
		t.Errorf("mesh x bounds = [%g, %g], want about [-2, 2]", min[0], max[0])
	}
	t.Logf("ring triangle count: %d", mesh.TriangleCount())
}
