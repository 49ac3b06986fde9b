// Package component defines named parametric reactor components. A
// component owns a typed Spec; building it runs the spec's profile through
// a sweep and an optional placement, and caches the result together with
// the extents other components may read.
package component

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/placement"
	"github.com/chazu/torus/pkg/profile"
	"github.com/chazu/torus/pkg/solid"
)

// ErrNotBuilt is returned when cached geometry is read before Build.
var ErrNotBuilt = errors.New("component not built")

// Extents are the derived measurements of a built component. Radii are
// measured from the revolve axis for rotate sweeps and from the Z axis
// otherwise.
type Extents struct {
	InnerRadius   float64
	OuterRadius   float64
	Height        float64
	MinZ, MaxZ    float64
	Centroid      [3]float64
	AngularExtent float64 // degrees swept about the axis, zero for extrudes
	Min, Max      [3]float64
}

// Built is the immutable result of a component build.
type Built struct {
	Template  *solid.Solid
	Instances []placement.Instance
	Body      kernel.Solid // union of the instances
	Extents   Extents
	Warnings  []string
}

// View is the read-only face a built component shows its dependents.
type View struct {
	Name    string
	Spec    Spec // resolved parameters, e.g. after anchoring
	Extents Extents
	Body    kernel.Solid
}

// Env is the context a component is built in: the kernel, the reactor's
// rotation angle and views of already built dependencies.
type Env struct {
	Kernel        kernel.Kernel
	RotationAngle float64 // zero means a full revolution
	deps          map[string]View
}

// NewEnv returns an Env exposing the given dependency views.
func NewEnv(k kernel.Kernel, rotationAngle float64, deps ...View) *Env {
	e := &Env{Kernel: k, RotationAngle: rotationAngle, deps: make(map[string]View, len(deps))}
	for _, d := range deps {
		e.deps[d.Name] = d
	}
	return e
}

// Dep returns the view of a declared dependency.
func (e *Env) Dep(name string) (View, error) {
	if e != nil {
		if v, ok := e.deps[name]; ok {
			return v, nil
		}
	}
	return View{}, fmt.Errorf("dependency %q is not available", name)
}

// Angle returns own if it is set, otherwise the reactor rotation angle,
// otherwise 360.
func (e *Env) Angle(own float64) float64 {
	switch {
	case own != 0:
		return own
	case e != nil && e.RotationAngle != 0:
		return e.RotationAngle
	}
	return 360
}

// Component is a named parametric entity. It is safe for concurrent use.
type Component struct {
	Name     string
	Material string

	// Names of components whose bodies are subtracted from, unioned with
	// or intersected with this one after placement.
	Cut       []string
	Union     []string
	Intersect []string

	mu    sync.Mutex
	spec  Spec
	built *Built
	view  Spec
	stale bool
}

// Option configures a Component.
type Option func(*Component)

// WithMaterial sets the material tag carried into exports.
func WithMaterial(m string) Option { return func(c *Component) { c.Material = m } }

// WithCut subtracts the named components' bodies.
func WithCut(names ...string) Option {
	return func(c *Component) { c.Cut = append(c.Cut, names...) }
}

// WithUnion adds the named components' bodies.
func WithUnion(names ...string) Option {
	return func(c *Component) { c.Union = append(c.Union, names...) }
}

// WithIntersect keeps only the part inside the named components' bodies.
func WithIntersect(names ...string) Option {
	return func(c *Component) { c.Intersect = append(c.Intersect, names...) }
}

// New creates an unbuilt component.
func New(name string, spec Spec, opts ...Option) *Component {
	c := &Component{Name: name, spec: spec}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Kind returns the spec kind.
func (c *Component) Kind() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.spec == nil {
		return ""
	}
	return c.spec.Kind()
}

// Spec returns the component's parameters.
func (c *Component) Spec() Spec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spec
}

// SetSpec replaces the parameters and discards the cached geometry.
func (c *Component) SetSpec(s Spec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spec = s
	c.stale = true
}

// Invalidate marks the cached geometry stale. The next Build rebuilds.
func (c *Component) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale = true
}

// Stale reports whether the next Build has to rebuild.
func (c *Component) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.built == nil || c.stale
}

// Dependencies returns the spec's dependencies followed by the boolean
// references, without duplicates.
func (c *Component) Dependencies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var all []string
	if c.spec != nil {
		all = append(all, c.spec.Dependencies()...)
	}
	all = append(all, c.Cut...)
	all = append(all, c.Union...)
	all = append(all, c.Intersect...)
	seen := make(map[string]bool, len(all))
	out := all[:0]
	for _, d := range all {
		if d != "" && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// Built returns the cached build, if it is current.
func (c *Component) Built() (*Built, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built == nil || c.stale {
		return nil, false
	}
	return c.built, true
}

// Extents returns the cached extents.
func (c *Component) Extents() (Extents, error) {
	b, ok := c.Built()
	if !ok {
		return Extents{}, fmt.Errorf("%s: %w", c.Name, ErrNotBuilt)
	}
	return b.Extents, nil
}

// View returns what dependents of c may read.
func (c *Component) View() (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built == nil || c.stale {
		return View{}, fmt.Errorf("%s: %w", c.Name, ErrNotBuilt)
	}
	return View{Name: c.Name, Spec: c.view, Extents: c.built.Extents, Body: c.built.Body}, nil
}

// Solid builds c without dependencies and returns its body.
func (c *Component) Solid(k kernel.Kernel) (kernel.Solid, error) {
	b, err := c.Build(NewEnv(k, 0))
	if err != nil {
		return nil, err
	}
	return b.Body, nil
}

// Build returns the cached geometry or builds it. A failed build leaves the
// cache unset.
func (c *Component) Build(env *Env) (*Built, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built != nil && !c.stale {
		return c.built, nil
	}
	c.built, c.view = nil, nil

	b, resolved, err := c.build(env)
	if err != nil {
		return nil, &BuildError{
			Component: c.Name,
			Kind:      kindOf(c.spec),
			Params:    Snapshot(c.spec),
			Err:       err,
		}
	}
	c.built, c.view, c.stale = b, resolved, false
	return b, nil
}

func (c *Component) build(env *Env) (*Built, Spec, error) {
	if c.spec == nil {
		return nil, nil, errors.New("no spec")
	}
	if env == nil || env.Kernel == nil {
		return nil, nil, errors.New("no kernel")
	}
	k := env.Kernel
	if err := Validate(c.spec); err != nil {
		return nil, nil, err
	}
	plan, err := c.spec.Plan(env)
	if err != nil {
		return nil, nil, err
	}

	profiles := plan.Profiles
	if plan.Shape != nil {
		if profiles, err = profile.Build(plan.Shape); err != nil {
			return nil, nil, err
		}
	}
	tmpl, err := solid.Build(k, profiles, plan.Sweep, plan.PostOps...)
	if err != nil {
		return nil, nil, err
	}
	if plan.Offset != ([3]float64{}) {
		tmpl = tmpl.Translated(k, plan.Offset)
	}

	b := &Built{Template: tmpl}
	if plan.Placement != nil {
		insts, warns, err := placement.Apply(k, tmpl, *plan.Placement)
		if err != nil {
			return nil, nil, err
		}
		b.Instances = insts
		for _, w := range warns {
			b.Warnings = append(b.Warnings, w.String())
		}
	} else {
		min, max := tmpl.BoundingBox()
		b.Instances = []placement.Instance{{Solid: tmpl.Body(), Center: mid(min, max)}}
	}

	if err := c.applyRefs(k, env, b.Instances); err != nil {
		return nil, nil, err
	}

	b.Body = b.Instances[0].Solid
	for _, in := range b.Instances[1:] {
		if b.Body, err = k.Boolean(kernel.OpUnion, b.Body, in.Solid); err != nil {
			return nil, nil, err
		}
	}
	b.Extents = extentsOf(tmpl, b.Instances)

	resolved := plan.Resolved
	if resolved == nil {
		resolved = c.spec
	}
	return b, resolved, nil
}

// applyRefs runs the cut, union and intersect references on every
// instance, in that order and in declaration order within each list.
func (c *Component) applyRefs(k kernel.Kernel, env *Env, insts []placement.Instance) error {
	steps := []struct {
		op    kernel.BooleanOp
		names []string
	}{
		{kernel.OpSubtract, c.Cut},
		{kernel.OpUnion, c.Union},
		{kernel.OpIntersect, c.Intersect},
	}
	for _, st := range steps {
		for _, name := range st.names {
			v, err := env.Dep(name)
			if err != nil {
				return err
			}
			for i := range insts {
				s, err := k.Boolean(st.op, insts[i].Solid, v.Body)
				if err != nil {
					return fmt.Errorf("%v %s: %w", st.op, name, err)
				}
				insts[i].Solid = s
			}
		}
	}
	return nil
}

func mid(min, max [3]float64) [3]float64 {
	return [3]float64{(min[0] + max[0]) / 2, (min[1] + max[1]) / 2, (min[2] + max[2]) / 2}
}

func extentsOf(tmpl *solid.Solid, insts []placement.Instance) Extents {
	var e Extents
	for i := 0; i < 3; i++ {
		e.Min[i], e.Max[i] = math.Inf(1), math.Inf(-1)
	}
	for _, in := range insts {
		min, max := in.Solid.BoundingBox()
		for i := 0; i < 3; i++ {
			e.Min[i] = math.Min(e.Min[i], min[i])
			e.Max[i] = math.Max(e.Max[i], max[i])
		}
		for i := range e.Centroid {
			e.Centroid[i] += in.Center[i] / float64(len(insts))
		}
	}

	// Placement turns copies about Z, which keeps their distance from the
	// axis, so the template alone fixes the radial extent.
	e.InnerRadius, e.OuterRadius = radialBounds(tmpl.BoundingBox())
	sw := tmpl.Sweep()
	if sw.Kind == kernel.SweepRotate {
		e.AngularExtent = sw.Angle
		if lo, hi, ok := tmpl.RadialExtent(); ok {
			e.InnerRadius, e.OuterRadius = lo, hi
		}
	}
	e.MinZ, e.MaxZ = e.Min[2], e.Max[2]
	e.Height = e.MaxZ - e.MinZ
	return e
}

// radialBounds returns the nearest and farthest XY distance of a box from
// the Z axis.
func radialBounds(min, max [3]float64) (lo, hi float64) {
	dx := math.Max(0, math.Max(min[0], -max[0]))
	dy := math.Max(0, math.Max(min[1], -max[1]))
	fx := math.Max(math.Abs(min[0]), math.Abs(max[0]))
	fy := math.Max(math.Abs(min[1]), math.Abs(max[1]))
	return math.Hypot(dx, dy), math.Hypot(fx, fy)
}

func kindOf(s Spec) string {
	if s == nil {
		return ""
	}
	return s.Kind()
}

// BuildError attaches the failing component's identity and a snapshot of
// its parameters to a build failure.
type BuildError struct {
	Component string
	Kind      string
	Params    map[string]any
	Err       error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("component %q (%s): %v", e.Component, e.Kind, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
