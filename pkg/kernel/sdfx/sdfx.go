// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/profile"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

const (
	// defaultMeshCells controls marching cubes tessellation resolution.
	defaultMeshCells = 200
	// probeCells is the per-axis sample count used by Intersects.
	probeCells = 16
	// axisTol is how far a revolved profile may stray past the axis.
	axisTol = 1e-9
)

// sdfxWire is a validated, facetted profile.
type sdfxWire struct {
	p    profile.Profile
	poly []v2.Vec
	s    sdf.SDF2
}

func (w *sdfxWire) Profile() profile.Profile { return w.p }

// sweepSource remembers how a solid was made so that fillets can rebuild
// it from rounded profiles. Cuts applied after the sweep are replayed.
type sweepSource struct {
	wires []*sdfxWire
	sweep kernel.Sweep
	cuts  []sdf.SDF3
}

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s   sdf.SDF3
	src *sweepSource // nil once the solid no longer maps to a single sweep
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution used by ToMesh.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.meshCells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{meshCells: defaultMeshCells}
	for _, o := range opts {
		o(k)
	}
	return k
}

// unwrap extracts the underlying sdfx solid from a kernel.Solid.
func unwrap(s kernel.Solid) *sdfxSolid {
	return s.(*sdfxSolid)
}

// wrap creates a kernel.Solid from an sdf.SDF3 with no sweep history.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// MakeWire facets the profile and builds its 2D distance field.
func (k *SdfxKernel) MakeWire(p profile.Profile) (kernel.Wire, error) {
	if err := profile.Validate(p); err != nil {
		return nil, fmt.Errorf("%w: %w", kernel.ErrInvalidWire, err)
	}
	pts, err := p.Polyline()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kernel.ErrInvalidWire, err)
	}
	poly := make([]v2.Vec, len(pts))
	for i, q := range pts {
		poly[i] = v2.Vec{X: q.U, Y: q.V}
	}
	s2, err := sdf.Polygon2D(poly)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kernel.ErrInvalidWire, err)
	}
	return &sdfxWire{p: p, poly: poly, s: s2}, nil
}

// Sweep revolves or extrudes each wire and unions the results.
func (k *SdfxKernel) Sweep(wires []kernel.Wire, sw kernel.Sweep) (kernel.Solid, error) {
	if len(wires) == 0 {
		return nil, fmt.Errorf("%w: no wires", kernel.ErrInvalidSweep)
	}
	ws := make([]*sdfxWire, len(wires))
	for i, w := range wires {
		xw, ok := w.(*sdfxWire)
		if !ok {
			return nil, fmt.Errorf("%w: wire %d was not made by this kernel", kernel.ErrInvalidWire, i)
		}
		ws[i] = xw
	}
	body, err := sweepWires(ws, sw)
	if err != nil {
		return nil, err
	}
	return &sdfxSolid{s: body, src: &sweepSource{wires: ws, sweep: sw}}, nil
}

func sweepWires(ws []*sdfxWire, sw kernel.Sweep) (sdf.SDF3, error) {
	if err := checkSweep(sw); err != nil {
		return nil, err
	}
	parts := make([]sdf.SDF3, 0, len(ws))
	for i, w := range ws {
		if w.p.Workplane != sw.Workplane {
			return nil, fmt.Errorf("%w: wire %d is on %v, sweep is on %v",
				kernel.ErrInvalidSweep, i, w.p.Workplane, sw.Workplane)
		}
		var (
			s3  sdf.SDF3
			err error
		)
		switch sw.Kind {
		case kernel.SweepRotate:
			s3, err = revolve(w, sw)
		case kernel.SweepExtrude:
			s3 = extrude(w, sw)
		}
		if err != nil {
			return nil, err
		}
		parts = append(parts, s3)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return sdf.Union3D(parts...), nil
}

func checkSweep(sw kernel.Sweep) error {
	switch sw.Kind {
	case kernel.SweepRotate:
		if !(sw.Angle > 0 && sw.Angle <= 360) {
			return fmt.Errorf("%w: rotate angle %g outside (0, 360]", kernel.ErrInvalidSweep, sw.Angle)
		}
		if sw.Axis != sw.Workplane.RevolveAxis() {
			return fmt.Errorf("%w: cannot revolve a %v profile about %v",
				kernel.ErrInvalidSweep, sw.Workplane, sw.Axis)
		}
	case kernel.SweepExtrude:
		if !(sw.Distance > 0) || math.IsInf(sw.Distance, 0) {
			return fmt.Errorf("%w: extrude distance %g must be positive", kernel.ErrInvalidSweep, sw.Distance)
		}
	default:
		return fmt.Errorf("%w: unknown sweep kind %v", kernel.ErrInvalidSweep, sw.Kind)
	}
	return nil
}

// revolve turns the wire about the workplane's v axis. sdfx revolves the
// 2D x coordinate as radius about Z, starting from +X.
func revolve(w *sdfxWire, sw kernel.Sweep) (sdf.SDF3, error) {
	for _, q := range w.poly {
		if q.X < -axisTol {
			return nil, fmt.Errorf("%w: profile crosses the rotation axis (u = %g)", kernel.ErrInvalidWire, q.X)
		}
	}
	var (
		s3  sdf.SDF3
		err error
	)
	if sw.Angle >= 360 {
		s3, err = sdf.Revolve3D(w.s)
	} else {
		s3, err = sdf.RevolveTheta3D(w.s, sw.Angle*math.Pi/180)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kernel.ErrInvalidSweep, err)
	}
	switch sw.Workplane {
	case profile.YZ:
		// Start the revolution on the +Y half plane.
		s3 = sdf.Transform3D(s3, sdf.RotateZ(math.Pi/2))
	case profile.XY:
		// Revolve about Y: local Z becomes Y.
		s3 = sdf.Transform3D(s3, sdf.RotateX(-math.Pi/2))
	}
	return s3, nil
}

// extrude pushes the wire along the workplane normal. sdfx extrudes
// symmetrically about z = 0.
func extrude(w *sdfxWire, sw kernel.Sweep) sdf.SDF3 {
	s3 := sdf.Extrude3D(w.s, sw.Distance)
	if !sw.Both {
		s3 = sdf.Transform3D(s3, sdf.Translate3d(v3.Vec{X: 0, Y: 0, Z: sw.Distance / 2}))
	}
	switch sw.Workplane {
	case profile.XZ:
		s3 = sdf.Transform3D(s3, sdf.RotateX(math.Pi/2))
	case profile.YZ:
		s3 = sdf.Transform3D(s3, sdf.RotateZ(math.Pi/2).Mul(sdf.RotateX(math.Pi/2)))
	}
	return s3
}

// Boolean combines two solids. Subtracting from a swept solid keeps its
// sweep history so it can still be filleted.
func (k *SdfxKernel) Boolean(op kernel.BooleanOp, a, b kernel.Solid) (kernel.Solid, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%v: nil operand", op)
	}
	sa, sb := unwrap(a), unwrap(b)
	switch op {
	case kernel.OpUnion:
		return wrap(sdf.Union3D(sa.s, sb.s)), nil
	case kernel.OpIntersect:
		return wrap(sdf.Intersect3D(sa.s, sb.s)), nil
	case kernel.OpSubtract:
		out := &sdfxSolid{s: sdf.Difference3D(sa.s, sb.s)}
		if sa.src != nil {
			src := *sa.src
			src.cuts = append(append([]sdf.SDF3(nil), sa.src.cuts...), sb.s)
			out.src = &src
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown boolean op %v", op)
}

// Edges lists the profile vertices of a swept solid.
func (k *SdfxKernel) Edges(s kernel.Solid) ([]kernel.Edge, error) {
	src := unwrap(s).src
	if src == nil {
		return nil, kernel.ErrNoTopology
	}
	var out []kernel.Edge
	for wi, w := range src.wires {
		for vi, pt := range w.p.Points {
			out = append(out, kernel.Edge{Wire: wi, Vertex: vi, Point: pt.Vec2})
		}
	}
	return out, nil
}

// Fillet rounds the selected profile corners and rebuilds the solid,
// replaying any cuts made after the sweep.
func (k *SdfxKernel) Fillet(s kernel.Solid, edges []kernel.Edge, radius float64) (kernel.Solid, error) {
	src := unwrap(s).src
	if src == nil {
		return nil, kernel.ErrNoTopology
	}
	if len(edges) == 0 {
		return nil, fmt.Errorf("%w: no edges selected", kernel.ErrFillet)
	}

	byWire := make(map[int][]int)
	for _, e := range edges {
		if e.Wire < 0 || e.Wire >= len(src.wires) {
			return nil, fmt.Errorf("%w: wire %d does not exist", kernel.ErrFillet, e.Wire)
		}
		byWire[e.Wire] = append(byWire[e.Wire], e.Vertex)
	}

	wires := make([]*sdfxWire, len(src.wires))
	copy(wires, src.wires)
	for wi, verts := range byWire {
		// Descending so earlier vertex indices stay valid.
		sort.Sort(sort.Reverse(sort.IntSlice(verts)))
		p := src.wires[wi].p
		for i, v := range verts {
			if i > 0 && v == verts[i-1] {
				continue
			}
			var err error
			p, err = profile.FilletCorner(p, v, radius)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", kernel.ErrFillet, err)
			}
		}
		w, err := k.MakeWire(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", kernel.ErrFillet, err)
		}
		wires[wi] = w.(*sdfxWire)
	}

	body, err := sweepWires(wires, src.sweep)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kernel.ErrFillet, err)
	}
	for _, c := range src.cuts {
		body = sdf.Difference3D(body, c)
	}
	return &sdfxSolid{
		s:   body,
		src: &sweepSource{wires: wires, sweep: src.sweep, cuts: src.cuts},
	}, nil
}

// Shell hollows the solid, leaving a wall of the given thickness inside
// its surface.
func (k *SdfxKernel) Shell(s kernel.Solid, thickness float64) (kernel.Solid, error) {
	if !(thickness > 0) {
		return nil, fmt.Errorf("%w: thickness %g must be positive", kernel.ErrShell, thickness)
	}
	min, max := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if 2*thickness >= max[i]-min[i] {
			return nil, fmt.Errorf("%w: thickness %g leaves no cavity", kernel.ErrShell, thickness)
		}
	}
	body := unwrap(s).s
	return wrap(sdf.Difference3D(body, sdf.Offset3D(body, -thickness))), nil
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s).s, m))
}

// Rotate rotates a solid about a world axis by the given angle in degrees.
func (k *SdfxKernel) Rotate(s kernel.Solid, axis profile.Axis, degrees float64) kernel.Solid {
	rad := degrees * math.Pi / 180.0
	var m sdf.M44
	switch axis {
	case profile.AxisX:
		m = sdf.RotateX(rad)
	case profile.AxisY:
		m = sdf.RotateY(rad)
	default:
		m = sdf.RotateZ(rad)
	}
	return wrap(sdf.Transform3D(unwrap(s).s, m))
}

// Distance returns the signed distance from p to the surface of s.
// Negative values are inside.
func (k *SdfxKernel) Distance(s kernel.Solid, p [3]float64) float64 {
	return unwrap(s).s.Evaluate(v3.Vec{X: p[0], Y: p[1], Z: p[2]})
}

// Inside reports whether p lies strictly inside s.
func (k *SdfxKernel) Inside(s kernel.Solid, p [3]float64) bool {
	return k.Distance(s, p) < 0
}

// Intersects reports whether a and b share interior points. The overlap of
// their bounding boxes is probed on a regular grid.
func (k *SdfxKernel) Intersects(a, b kernel.Solid) bool {
	amin, amax := a.BoundingBox()
	bmin, bmax := b.BoundingBox()
	if !kernel.BoxesOverlap(amin, amax, bmin, bmax) {
		return false
	}
	var lo, step [3]float64
	for i := 0; i < 3; i++ {
		lo[i] = math.Max(amin[i], bmin[i])
		hi := math.Min(amax[i], bmax[i])
		step[i] = (hi - lo[i]) / probeCells
	}
	sa, sb := unwrap(a).s, unwrap(b).s
	for i := 0; i < probeCells; i++ {
		for j := 0; j < probeCells; j++ {
			for l := 0; l < probeCells; l++ {
				p := v3.Vec{
					X: lo[0] + (float64(i)+0.5)*step[0],
					Y: lo[1] + (float64(j)+0.5)*step[1],
					Z: lo[2] + (float64(l)+0.5)*step[2],
				}
				if sa.Evaluate(p) < 0 && sb.Evaluate(p) < 0 {
					return true
				}
			}
		}
	}
	return false
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s).s

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(sdf3, renderer)
	if len(triangles) == 0 {
		return nil, fmt.Errorf("tessellation produced no triangles")
	}

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
