package profile

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

const (
	// ArcSegments is the number of facets used for a full turn of an arc.
	ArcSegments = 64
	// SplineSamples is the number of facets per spline span.
	SplineSamples = 16
	// maxIntersectionCheck bounds the outline size for the O(n²) simplicity
	// check. Larger outlines are left to the kernel.
	maxIntersectionCheck = 512
)

// Polyline returns the facetted outline of the profile, without repeating
// the first point at the end.
func (p Profile) Polyline() ([]Vec2, error) {
	pts := p.Points
	n := len(pts)
	if n < 3 {
		return nil, degenerate(-1, "%d points, need at least 3", n)
	}
	at := func(i int) Vec2 { return pts[i%n].Vec2 }

	var out []Vec2
	for i := 0; i < n; {
		pt := pts[i]
		switch pt.Edge.Kind {
		case EdgeStraight:
			out = append(out, pt.Vec2)
			i++

		case EdgeArc:
			seg, err := arcByRadius(i, pt.Vec2, at(i+1), pt.Edge.Radius, pt.Edge.Sense)
			if err != nil {
				return nil, err
			}
			out = append(out, seg...)
			i++

		case EdgeArcThrough:
			if i+2 > n {
				return nil, infeasibleArc(i, "three-point arc runs past the start of the profile")
			}
			seg, err := arcThrough(i, pt.Vec2, at(i+1), at(i+2))
			if err != nil {
				return nil, err
			}
			out = append(out, seg...)
			i += 2

		case EdgeSpline:
			j := i
			for j < n && pts[j].Edge.Kind == EdgeSpline {
				j++
			}
			run := make([]Vec2, 0, j-i+1)
			for k := i; k <= j; k++ {
				run = append(run, at(k))
			}
			seg, err := splineRun(i, run)
			if err != nil {
				return nil, err
			}
			out = append(out, seg...)
			i = j

		default:
			return nil, degenerate(i, "unknown edge kind %d", int(pt.Edge.Kind))
		}
	}
	return out, nil
}

// arcByRadius facets the minor arc of radius r from a to b. The end point is
// not included.
func arcByRadius(index int, a, b Vec2, r float64, sense Sense) ([]Vec2, error) {
	if !(r > 0) || math.IsInf(r, 0) {
		return nil, &Error{Kind: InvalidParameter, Param: "radius", Index: index, Msg: "arc radius must be positive"}
	}
	chord := b.Sub(a)
	c := chord.Len()
	if c <= closeTol {
		return nil, degenerate(index, "arc has zero length")
	}
	if c > 2*r*(1+1e-12) {
		return nil, infeasibleArc(index, "chord %.6g exceeds diameter %.6g", c, 2*r)
	}
	h := math.Sqrt(math.Max(r*r-c*c/4, 0))
	mid := a.Add(b).Scale(0.5)
	left := Vec2{-chord.V / c, chord.U / c}
	center := mid.Add(left.Scale(h))
	if sense == CW {
		center = mid.Sub(left.Scale(h))
	}
	a0 := math.Atan2(a.V-center.V, a.U-center.U)
	a1 := math.Atan2(b.V-center.V, b.U-center.U)
	sweep := a1 - a0
	if sense == CCW {
		for sweep <= 0 {
			sweep += 2 * math.Pi
		}
	} else {
		for sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	}
	return arcFacets(center, r, a0, sweep), nil
}

// arcThrough facets the circular arc from a through via to b. The end point
// is not included.
func arcThrough(index int, a, via, b Vec2) ([]Vec2, error) {
	center, r, ok := circumcircle(a, via, b)
	if !ok {
		return nil, infeasibleArc(index, "three-point arc points are collinear")
	}
	a0 := math.Atan2(a.V-center.V, a.U-center.U)
	a1 := math.Atan2(b.V-center.V, b.U-center.U)
	ccw := via.Sub(a).Cross(b.Sub(via)) > 0
	sweep := a1 - a0
	if ccw {
		for sweep <= 0 {
			sweep += 2 * math.Pi
		}
	} else {
		for sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	}
	return arcFacets(center, r, a0, sweep), nil
}

func arcFacets(center Vec2, r, start, sweep float64) []Vec2 {
	segs := int(math.Ceil(math.Abs(sweep) / (2 * math.Pi) * ArcSegments))
	if segs < 2 {
		segs = 2
	}
	out := make([]Vec2, segs)
	for k := 0; k < segs; k++ {
		t := start + sweep*float64(k)/float64(segs)
		out[k] = Vec2{center.U + r*math.Cos(t), center.V + r*math.Sin(t)}
	}
	return out
}

func circumcircle(a, b, c Vec2) (Vec2, float64, bool) {
	d := 2 * (a.U*(b.V-c.V) + b.U*(c.V-a.V) + c.U*(a.V-b.V))
	scale := math.Max(a.Dist(b), math.Max(b.Dist(c), a.Dist(c)))
	if math.Abs(d) <= 1e-12*scale*scale {
		return Vec2{}, 0, false
	}
	a2 := a.Dot(a)
	b2 := b.Dot(b)
	c2 := c.Dot(c)
	center := Vec2{
		U: (a2*(b.V-c.V) + b2*(c.V-a.V) + c2*(a.V-b.V)) / d,
		V: (a2*(c.U-b.U) + b2*(a.U-c.U) + c2*(b.U-a.U)) / d,
	}
	return center, center.Dist(a), true
}

// splineRun interpolates run with a natural cubic spline parameterised by
// cumulative chord length. The last point is not included.
func splineRun(index int, run []Vec2) ([]Vec2, error) {
	if len(run) < 3 {
		return run[:len(run)-1], nil
	}
	ts := make([]float64, len(run))
	us := make([]float64, len(run))
	vs := make([]float64, len(run))
	for k, q := range run {
		if k > 0 {
			d := q.Dist(run[k-1])
			if d <= closeTol {
				return nil, degenerate(index+k, "repeated spline point")
			}
			ts[k] = ts[k-1] + d
		}
		us[k] = q.U
		vs[k] = q.V
	}
	var su, sv interp.NaturalCubic
	if err := su.Fit(ts, us); err != nil {
		return nil, degenerate(index, "spline fit: %v", err)
	}
	if err := sv.Fit(ts, vs); err != nil {
		return nil, degenerate(index, "spline fit: %v", err)
	}
	out := make([]Vec2, 0, (len(run)-1)*SplineSamples)
	for k := 0; k < len(run)-1; k++ {
		out = append(out, run[k])
		for s := 1; s < SplineSamples; s++ {
			t := ts[k] + (ts[k+1]-ts[k])*float64(s)/SplineSamples
			out = append(out, Vec2{su.Predict(t), sv.Predict(t)})
		}
	}
	return out, nil
}

// Validate checks that p is a closed, simple wire with positive area.
func Validate(p Profile) error {
	n := len(p.Points)
	if n < 3 {
		return degenerate(-1, "%d points, need at least 3", n)
	}
	for i, pt := range p.Points {
		if !finite(pt.U) || !finite(pt.V) {
			return &Error{Kind: InvalidParameter, Index: i, Msg: "non-finite coordinate"}
		}
		if pt.Vec2.Equal(p.Points[(i+1)%n].Vec2, closeTol) {
			return degenerate(i, "zero-length segment")
		}
	}
	poly, err := p.Polyline()
	if err != nil {
		return err
	}
	min, max := bounds(poly)
	diag := max.Sub(min).Len()
	if math.Abs(signedArea(poly)) <= 1e-9*diag*diag {
		return degenerate(-1, "profile encloses no area")
	}
	if len(poly) <= maxIntersectionCheck {
		if i, j, ok := firstCrossing(poly); ok {
			return &Error{Kind: SelfIntersection, Index: -1, Msg: fmt.Sprintf("facets %d and %d cross", i, j)}
		}
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func bounds(poly []Vec2) (min, max Vec2) {
	min = Vec2{math.Inf(1), math.Inf(1)}
	max = Vec2{math.Inf(-1), math.Inf(-1)}
	for _, q := range poly {
		min.U = math.Min(min.U, q.U)
		min.V = math.Min(min.V, q.V)
		max.U = math.Max(max.U, q.U)
		max.V = math.Max(max.V, q.V)
	}
	return min, max
}

// firstCrossing finds two non-adjacent facets that properly cross.
func firstCrossing(poly []Vec2) (int, int, bool) {
	n := len(poly)
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			c, d := poly[j], poly[(j+1)%n]
			if segmentsCross(a, b, c, d) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func segmentsCross(a, b, c, d Vec2) bool {
	d1 := b.Sub(a).Cross(c.Sub(a))
	d2 := b.Sub(a).Cross(d.Sub(a))
	d3 := d.Sub(c).Cross(a.Sub(c))
	d4 := d.Sub(c).Cross(b.Sub(c))
	return d1*d2 < 0 && d3*d4 < 0
}
