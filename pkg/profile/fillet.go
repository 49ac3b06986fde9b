package profile

import (
	"fmt"
	"math"
)

// FilletCorner replaces the corner at vertex with a tangent arc of radius r.
// Both edges meeting at the corner must be straight and long enough to
// hold the tangent points.
func FilletCorner(p Profile, vertex int, r float64) (Profile, error) {
	n := len(p.Points)
	if vertex < 0 || vertex >= n {
		return Profile{}, fmt.Errorf("vertex %d out of range [0, %d)", vertex, n)
	}
	if !(r > 0) {
		return Profile{}, invalidParam(ShapeUnknown, "radius", "fillet radius must be positive, got %g", r)
	}
	prev := p.Points[(vertex+n-1)%n]
	cur := p.Points[vertex]
	next := p.Points[(vertex+1)%n]
	if prev.Edge.Kind != EdgeStraight || cur.Edge.Kind != EdgeStraight {
		return Profile{}, fmt.Errorf("vertex %d is not a corner between straight edges", vertex)
	}

	toPrev := prev.Vec2.Sub(cur.Vec2)
	toNext := next.Vec2.Sub(cur.Vec2)
	lp, ln := toPrev.Len(), toNext.Len()
	d1, d2 := toPrev.Scale(1/lp), toNext.Scale(1/ln)
	cos := math.Max(-1, math.Min(1, d1.Dot(d2)))
	theta := math.Acos(cos)
	if theta < 1e-6 || math.Pi-theta < 1e-6 {
		return Profile{}, fmt.Errorf("vertex %d has no corner to round", vertex)
	}
	t := r / math.Tan(theta/2)
	if t > lp || t > ln {
		return Profile{}, fmt.Errorf("fillet radius %g too large for the edges at vertex %d", r, vertex)
	}

	sense := CCW
	if cur.Vec2.Sub(prev.Vec2).Cross(next.Vec2.Sub(cur.Vec2)) < 0 {
		sense = CW
	}
	t1 := cur.Vec2.Add(d1.Scale(t))
	t2 := cur.Vec2.Add(d2.Scale(t))

	pts := make([]Point, 0, n+1)
	pts = append(pts, p.Points[:vertex]...)
	pts = append(pts, Arc(t1.U, t1.V, r, sense))
	if !t2.Equal(next.Vec2, closeTol) {
		pts = append(pts, Straight(t2.U, t2.V))
	}
	pts = append(pts, p.Points[vertex+1:]...)
	if t1.Equal(prev.Vec2, closeTol) && len(pts) > 0 {
		// The tangent point swallowed the previous vertex.
		idx := (vertex + n - 1) % n
		if idx < vertex {
			pts = append(pts[:idx], pts[idx+1:]...)
		} else {
			pts = pts[:len(pts)-1]
		}
	}
	return Profile{Workplane: p.Workplane, Points: pts}, nil
}
