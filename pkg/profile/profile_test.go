package profile

import (
	"errors"
	"math"
	"testing"
)

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestNewDropsClosingPoint(t *testing.T) {
	p := New(XZ, Straight(0, 0), Straight(1, 0), Straight(1, 1), Straight(0, 0))
	if len(p.Points) != 3 {
		t.Fatalf("len(Points) = %d, want 3", len(p.Points))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Profile
		want error
	}{
		{
			"unit square",
			New(XY, Straight(0, 0), Straight(1, 0), Straight(1, 1), Straight(0, 1)),
			nil,
		},
		{
			"two points",
			New(XY, Straight(0, 0), Straight(1, 0)),
			ErrDegenerateProfile,
		},
		{
			"collinear",
			New(XY, Straight(0, 0), Straight(1, 0), Straight(2, 0)),
			ErrDegenerateProfile,
		},
		{
			"repeated point",
			New(XY, Straight(0, 0), Straight(1, 0), Straight(1, 0), Straight(0, 1)),
			ErrDegenerateProfile,
		},
		{
			"bow tie",
			New(XY, Straight(0, 0), Straight(2, 2), Straight(2, 0), Straight(0, 1)),
			ErrSelfIntersection,
		},
		{
			"arc chord longer than diameter",
			New(XY, Arc(0, 0, 1, CCW), Straight(3, 0), Straight(3, 3)),
			ErrInfeasibleArc,
		},
		{
			"arc with zero radius",
			New(XY, Arc(0, 0, 0, CCW), Straight(1, 0), Straight(1, 1)),
			ErrInvalidParameter,
		},
		{
			"collinear three-point arc",
			New(XY, ArcThrough(0, 0), Straight(1, 0), Straight(2, 0), Straight(1, 5)),
			ErrInfeasibleArc,
		},
		{
			"non-finite coordinate",
			New(XY, Straight(0, 0), Straight(math.NaN(), 0), Straight(1, 1)),
			ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.p)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestArcByRadiusSemicircle(t *testing.T) {
	// Half disc: the arc runs from (1,0) to (-1,0) counter-clockwise through (0,1).
	p := New(XY, Arc(1, 0, 1, CCW), Straight(-1, 0), Straight(0, -0.0001))
	poly, err := p.Polyline()
	if err != nil {
		t.Fatalf("Polyline() error: %v", err)
	}
	var top float64
	for _, q := range poly {
		if !approx(q.Len(), 1, 1e-9) && q.V > 0 {
			t.Fatalf("arc point %v is not on the unit circle", q)
		}
		top = math.Max(top, q.V)
	}
	if !approx(top, 1, 1e-9) {
		t.Errorf("arc apex = %g, want 1", top)
	}
}

func TestArcSenseChoosesSide(t *testing.T) {
	ccw := New(XY, Arc(1, 0, 1, CCW), Straight(0, 1), Straight(0, 0))
	cw := New(XY, Arc(1, 0, 1, CW), Straight(0, 1), Straight(0, 0))

	a1, err := ccw.Area()
	if err != nil {
		t.Fatal(err)
	}
	a2, err := cw.Area()
	if err != nil {
		t.Fatal(err)
	}
	// Quarter disc bulges away from the origin, the CW arc bulges towards it.
	if !approx(math.Abs(a1), math.Pi/4, 5e-3) {
		t.Errorf("ccw area = %g, want %g", math.Abs(a1), math.Pi/4)
	}
	if !approx(math.Abs(a2), 1-math.Pi/4, 5e-3) {
		t.Errorf("cw area = %g, want %g", math.Abs(a2), 1-math.Pi/4)
	}
}

func TestArcThroughPassesViaPoint(t *testing.T) {
	p := New(XZ,
		ArcThrough(0, 1), Straight(1, 0), Straight(0, -1),
	)
	poly, err := p.Polyline()
	if err != nil {
		t.Fatalf("Polyline() error: %v", err)
	}
	var maxU float64
	for _, q := range poly {
		if !approx(q.Len(), 1, 1e-9) {
			continue
		}
		maxU = math.Max(maxU, q.U)
	}
	if !approx(maxU, 1, 1e-6) {
		t.Errorf("arc reaches u = %g, want 1", maxU)
	}
}

func TestSplineInterpolatesControlPoints(t *testing.T) {
	p := New(XZ,
		Straight(1, 0),
		Straight(1, 5),
		Spline(4, 5),
		Spline(3, 0),
		Straight(4, -5),
		Straight(1, -5),
	)
	if err := Validate(p); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	poly, err := p.Polyline()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, q := range poly {
		if q.Equal(Vec2{3, 0}, 1e-9) {
			found = true
		}
	}
	if !found {
		t.Error("spline outline does not pass through its mid control point")
	}
	if len(poly) <= len(p.Points) {
		t.Errorf("expected spline facets, got %d outline points", len(poly))
	}
}

func TestBoundsAndTranslate(t *testing.T) {
	p := New(XY, Straight(0, 0), Straight(2, 0), Straight(2, 1), Straight(0, 1)).Translate(3, -1)
	min, max, err := p.Bounds()
	if err != nil {
		t.Fatal(err)
	}
	if min != (Vec2{3, -1}) || max != (Vec2{5, 0}) {
		t.Errorf("Bounds() = %v %v, want {3 -1} {5 0}", min, max)
	}
}

func TestWorkplaneMapping(t *testing.T) {
	tests := []struct {
		wp     Workplane
		want   [3]float64
		axis   Axis
		normal [3]float64
	}{
		{XY, [3]float64{1, 2, 0}, AxisY, [3]float64{0, 0, 1}},
		{XZ, [3]float64{1, 0, 2}, AxisZ, [3]float64{0, -1, 0}},
		{YZ, [3]float64{0, 1, 2}, AxisZ, [3]float64{1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.wp.String(), func(t *testing.T) {
			if got := tt.wp.Map(1, 2); got != tt.want {
				t.Errorf("Map(1, 2) = %v, want %v", got, tt.want)
			}
			if got := tt.wp.RevolveAxis(); got != tt.axis {
				t.Errorf("RevolveAxis() = %v, want %v", got, tt.axis)
			}
			if got := tt.wp.Normal(); got != tt.normal {
				t.Errorf("Normal() = %v, want %v", got, tt.normal)
			}
		})
	}
}

func TestParsers(t *testing.T) {
	if wp, err := ParseWorkplane("xz"); err != nil || wp != XZ {
		t.Errorf("ParseWorkplane(xz) = %v, %v", wp, err)
	}
	if _, err := ParseWorkplane("front"); err == nil {
		t.Error("ParseWorkplane(front) should fail")
	}
	if k, err := ParseEdgeKind("circle"); err != nil || k != EdgeArcThrough {
		t.Errorf("ParseEdgeKind(circle) = %v, %v", k, err)
	}
	if a, err := ParseAxis("Z"); err != nil || a != AxisZ {
		t.Errorf("ParseAxis(Z) = %v, %v", a, err)
	}
}
