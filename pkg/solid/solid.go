// Package solid turns closed profiles into 3D solids. A Solid is one
// rotate or extrude sweep of one or more wires followed by an ordered list
// of post operations (fillets, booleans, shelling).
package solid

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/profile"
)

// Plane is an oriented plane through Point with outward unit Normal.
type Plane struct {
	Point  [3]float64
	Normal [3]float64
}

// Solid is an immutable built body. It also implements kernel.Solid so it
// can be handed straight to boolean post-ops of another Solid.
type Solid struct {
	body     kernel.Solid
	sweep    kernel.Sweep
	profiles []profile.Profile
	offset   [3]float64
}

// Body returns the kernel handle.
func (s *Solid) Body() kernel.Solid { return s.body }

// Sweep returns the sweep the solid was built with.
func (s *Solid) Sweep() kernel.Sweep { return s.sweep }

// Profiles returns a copy of the wires the solid was swept from.
func (s *Solid) Profiles() []profile.Profile {
	out := make([]profile.Profile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// BoundingBox returns the kernel's axis-aligned bounds of the body.
func (s *Solid) BoundingBox() (min, max [3]float64) {
	return s.body.BoundingBox()
}

// EndFaces returns the flat faces a partial revolution leaves open: none
// for a full revolution or an extrude, otherwise exactly two. The first
// is the start face at angle zero and the second the face at the sweep
// angle. Both normals point out of the body.
func (s *Solid) EndFaces() []Plane {
	if s.sweep.Kind != kernel.SweepRotate || s.sweep.IsFullRevolution() {
		return nil
	}
	r0, t0 := sweepFrame(s.sweep.Workplane)
	a := s.sweep.Angle * math.Pi / 180
	sin, cos := math.Sin(a), math.Cos(a)
	var start, end [3]float64
	for i := 0; i < 3; i++ {
		start[i] = -t0[i]
		end[i] = -sin*r0[i] + cos*t0[i]
	}
	return []Plane{{Normal: start}, {Normal: end}}
}

// sweepFrame returns the radial direction a revolution starts from and the
// direction it initially turns towards.
func sweepFrame(wp profile.Workplane) (radial, tangent [3]float64) {
	switch wp {
	case profile.YZ:
		return [3]float64{0, 1, 0}, [3]float64{-1, 0, 0}
	case profile.XY:
		return [3]float64{1, 0, 0}, [3]float64{0, 0, -1}
	}
	return [3]float64{1, 0, 0}, [3]float64{0, 1, 0}
}

// Translated returns a copy of s moved by d. The copy keeps its sweep and
// profiles for reference but no longer has edge topology.
func (s *Solid) Translated(k kernel.Kernel, d [3]float64) *Solid {
	cp := *s
	cp.body = k.Translate(s.body, d[0], d[1], d[2])
	for i := range d {
		cp.offset[i] += d[i]
	}
	return &cp
}

// Offset returns the translation applied since the sweep.
func (s *Solid) Offset() [3]float64 { return s.offset }

// RadialExtent returns the smallest and largest distance of the swept
// wires from the revolve axis. It is only meaningful for rotate sweeps,
// where the profile's u coordinate is the radius.
func (s *Solid) RadialExtent() (inner, outer float64, ok bool) {
	if s.sweep.Kind != kernel.SweepRotate || len(s.profiles) == 0 || s.offset != ([3]float64{}) {
		return 0, 0, false
	}
	inner, outer = math.Inf(1), math.Inf(-1)
	for _, p := range s.profiles {
		min, max, err := p.Bounds()
		if err != nil {
			return 0, 0, false
		}
		inner = math.Min(inner, min.U)
		outer = math.Max(outer, max.U)
	}
	return inner, outer, true
}

// Build validates the sweep and profiles, sweeps them through the kernel
// and applies ops in order. Nothing is returned unless every step succeeds.
func Build(k kernel.Kernel, profiles []profile.Profile, sw kernel.Sweep, ops ...PostOp) (*Solid, error) {
	if err := checkSweep(sw); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, &Error{Kind: InvalidWire, Index: -1, Err: errors.New("no profiles to sweep")}
	}

	wires := make([]kernel.Wire, len(profiles))
	for i, p := range profiles {
		if p.Workplane != sw.Workplane {
			return nil, &Error{Kind: InvalidSweep, Index: i,
				Err: fmt.Errorf("profile is on %v, sweep is on %v", p.Workplane, sw.Workplane)}
		}
		if err := profile.Validate(p); err != nil {
			return nil, &Error{Kind: InvalidWire, Index: i, Err: err}
		}
		w, err := k.MakeWire(p)
		if err != nil {
			return nil, fromKernel(i, err)
		}
		wires[i] = w
	}

	body, err := k.Sweep(wires, sw)
	if err != nil {
		return nil, fromKernel(-1, err)
	}

	for i, op := range ops {
		body, err = op.apply(k, body)
		if err != nil {
			return nil, &Error{Kind: PostOpFailed, Op: op.String(), Index: i, Err: err}
		}
	}

	ps := make([]profile.Profile, len(profiles))
	copy(ps, profiles)
	return &Solid{body: body, sweep: sw, profiles: ps}, nil
}

func checkSweep(sw kernel.Sweep) error {
	switch sw.Kind {
	case kernel.SweepRotate:
		if math.IsNaN(sw.Angle) || sw.Angle <= 0 || sw.Angle > 360 {
			return sweepError("rotate angle %g outside (0, 360]", sw.Angle)
		}
		if sw.Axis != sw.Workplane.RevolveAxis() {
			return sweepError("a %v profile revolves about %v, not %v",
				sw.Workplane, sw.Workplane.RevolveAxis(), sw.Axis)
		}
	case kernel.SweepExtrude:
		if math.IsNaN(sw.Distance) || math.IsInf(sw.Distance, 0) || sw.Distance <= 0 {
			return sweepError("extrude distance %g must be positive", sw.Distance)
		}
	default:
		return sweepError("unknown sweep kind %v", sw.Kind)
	}
	return nil
}
