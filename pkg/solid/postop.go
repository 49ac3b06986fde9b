package solid

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/torus/pkg/kernel"
)

// PostOp is a step applied to a freshly swept body.
type PostOp interface {
	fmt.Stringer
	apply(k kernel.Kernel, body kernel.Solid) (kernel.Solid, error)
}

// EdgeSelector picks edges of a swept body for a fillet.
type EdgeSelector interface {
	fmt.Stringer
	Select(edges []kernel.Edge) []kernel.Edge
}

type edgeAt struct{ wire, vertex int }

// EdgeAt selects the edge swept from one profile vertex.
func EdgeAt(wire, vertex int) EdgeSelector { return edgeAt{wire, vertex} }

func (s edgeAt) Select(edges []kernel.Edge) []kernel.Edge {
	for _, e := range edges {
		if e.Wire == s.wire && e.Vertex == s.vertex {
			return []kernel.Edge{e}
		}
	}
	return nil
}

func (s edgeAt) String() string { return fmt.Sprintf("edge(%d, %d)", s.wire, s.vertex) }

type edgesNear struct{ u, v, tol float64 }

// EdgesNear selects every edge swept from a profile vertex within tol of
// (u, v).
func EdgesNear(u, v, tol float64) EdgeSelector { return edgesNear{u, v, tol} }

func (s edgesNear) Select(edges []kernel.Edge) []kernel.Edge {
	var out []kernel.Edge
	for _, e := range edges {
		if math.Hypot(e.Point.U-s.u, e.Point.V-s.v) <= s.tol {
			out = append(out, e)
		}
	}
	return out
}

func (s edgesNear) String() string { return fmt.Sprintf("edges near (%g, %g)", s.u, s.v) }

type allEdges struct{}

// AllEdges selects every edge.
func AllEdges() EdgeSelector { return allEdges{} }

func (allEdges) Select(edges []kernel.Edge) []kernel.Edge { return edges }
func (allEdges) String() string                           { return "all edges" }

// Fillet rounds the selected edges. A selector that matches nothing fails
// the build.
type Fillet struct {
	Edges  EdgeSelector
	Radius float64
}

func (f Fillet) String() string { return fmt.Sprintf("fillet %v r=%g", f.Edges, f.Radius) }

func (f Fillet) apply(k kernel.Kernel, body kernel.Solid) (kernel.Solid, error) {
	if f.Edges == nil {
		return nil, errors.New("no edge selector")
	}
	edges, err := k.Edges(body)
	if err != nil {
		return nil, err
	}
	sel := f.Edges.Select(edges)
	if len(sel) == 0 {
		return nil, fmt.Errorf("%v matched none of %d edges", f.Edges, len(edges))
	}
	return k.Fillet(body, sel, f.Radius)
}

// Subtract cuts Tool out of the body. Tool may be a *Solid or a raw kernel
// solid. It must overlap the body.
type Subtract struct{ Tool kernel.Solid }

func (s Subtract) String() string { return "subtract" }

func (s Subtract) apply(k kernel.Kernel, body kernel.Solid) (kernel.Solid, error) {
	return combine(k, kernel.OpSubtract, body, s.Tool, true)
}

// Union adds With to the body. Disjoint operands give a multi-volume body.
type Union struct{ With kernel.Solid }

func (u Union) String() string { return "union" }

func (u Union) apply(k kernel.Kernel, body kernel.Solid) (kernel.Solid, error) {
	return combine(k, kernel.OpUnion, body, u.With, false)
}

// Intersect keeps the part of the body inside With. It must overlap the body.
type Intersect struct{ With kernel.Solid }

func (i Intersect) String() string { return "intersect" }

func (i Intersect) apply(k kernel.Kernel, body kernel.Solid) (kernel.Solid, error) {
	return combine(k, kernel.OpIntersect, body, i.With, true)
}

// Shell hollows the body leaving walls of the given thickness.
type Shell struct{ Thickness float64 }

func (s Shell) String() string { return fmt.Sprintf("shell t=%g", s.Thickness) }

func (s Shell) apply(k kernel.Kernel, body kernel.Solid) (kernel.Solid, error) {
	return k.Shell(body, s.Thickness)
}

func combine(k kernel.Kernel, op kernel.BooleanOp, body, operand kernel.Solid, mustOverlap bool) (kernel.Solid, error) {
	other := Unwrap(operand)
	if other == nil {
		return nil, fmt.Errorf("%v: nil operand", op)
	}
	if mustOverlap && !k.Intersects(body, other) {
		return nil, fmt.Errorf("%v: operand does not intersect the body", op)
	}
	return k.Boolean(op, body, other)
}

// Unwrap returns the kernel handle behind s, which may be a *Solid.
func Unwrap(s kernel.Solid) kernel.Solid {
	if sol, ok := s.(*Solid); ok {
		if sol == nil {
			return nil
		}
		return sol.body
	}
	return s
}
