// Package reactor assembles components into a reactor model. It resolves
// the dependency graph, builds every component in dependency order, unions
// the structural parts and subtracts the cutters.
package reactor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/torus/pkg/component"
	"github.com/chazu/torus/pkg/graph"
	"github.com/chazu/torus/pkg/kernel"
)

// State is the build state of one component within a reactor.
type State int

const (
	Unbuilt State = iota
	Resolving
	Built
	Failed
)

func (s State) String() string {
	switch s {
	case Unbuilt:
		return "unbuilt"
	case Resolving:
		return "resolving"
	case Built:
		return "built"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Transition is one state change, reported to the observer.
type Transition struct {
	Component string
	From, To  State
}

// Observer receives transitions in the order they happen.
type Observer func(Transition)

// Reactor is a named set of components. Structural components are unioned
// into the body and cutters are subtracted from it, both in declaration
// order.
type Reactor struct {
	Name          string
	RotationAngle float64

	logger   *slog.Logger
	parallel bool
	observer Observer

	mu       sync.Mutex
	parts    []*part
	byName   map[string]*part
	assembly *Assembly
}

type part struct {
	comp   *component.Component
	cutter bool
	state  State

	// gen counts the builds that produced new geometry. seen holds the
	// dependency generations and angle the current geometry was built
	// against.
	gen   uint64
	seen  map[string]uint64
	angle float64
}

// Option configures a Reactor.
type Option func(*Reactor)

// WithRotationAngle sets the sweep angle components use unless they set
// their own. Zero means a full revolution.
func WithRotationAngle(deg float64) Option {
	return func(r *Reactor) { r.RotationAngle = deg }
}

// WithLogger routes build diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reactor) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithParallel builds the components of each dependency level
// concurrently.
func WithParallel(on bool) Option {
	return func(r *Reactor) { r.parallel = on }
}

// WithObserver registers a hook called on every state transition.
func WithObserver(o Observer) Option {
	return func(r *Reactor) { r.observer = o }
}

// New creates an empty reactor.
func New(name string, opts ...Option) *Reactor {
	r := &Reactor{
		Name:   name,
		logger: slog.New(slog.DiscardHandler),
		byName: make(map[string]*part),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Add declares structural components.
func (r *Reactor) Add(cs ...*component.Component) *Reactor {
	return r.add(false, cs)
}

// AddCutter declares components that are subtracted from every structural
// part they overlap.
func (r *Reactor) AddCutter(cs ...*component.Component) *Reactor {
	return r.add(true, cs)
}

func (r *Reactor) add(cutter bool, cs []*component.Component) *Reactor {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cs {
		p := &part{comp: c, cutter: cutter}
		r.parts = append(r.parts, p)
		if _, dup := r.byName[c.Name]; !dup {
			r.byName[c.Name] = p
		}
	}
	r.assembly = nil
	return r
}

// Component returns the named component, or nil.
func (r *Reactor) Component(name string) *component.Component {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byName[name]; ok {
		return p.comp
	}
	return nil
}

// Components returns every component in declaration order.
func (r *Reactor) Components() []*component.Component {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*component.Component, len(r.parts))
	for i, p := range r.parts {
		out[i] = p.comp
	}
	return out
}

// Graph returns the dependency graph of the declared components.
func (r *Reactor) Graph() *graph.Graph {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graph()
}

func (r *Reactor) graph() *graph.Graph {
	g := graph.New()
	for _, p := range r.parts {
		kind := graph.NodeStructural
		if p.cutter {
			kind = graph.NodeCutter
		}
		g.Add(p.comp.Name, kind, p.comp.Dependencies()...)
	}
	return g
}

// Validate returns every graph finding, including warnings.
func (r *Reactor) Validate() []graph.ValidationError {
	return graph.Validate(r.Graph())
}

// Order returns the build order.
func (r *Reactor) Order() ([]string, error) {
	return graph.Order(r.Graph())
}

// State returns the build state of the named component.
func (r *Reactor) State(name string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byName[name]; ok {
		return p.state
	}
	return Unbuilt
}

// Assembly returns the last successful assembly, if it is still current.
func (r *Reactor) Assembly() (*Assembly, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assembly, r.assembly != nil
}

// Invalidate discards the cached geometry of the named component and of
// everything that depends on it. It returns the names invalidated, the
// named component first.
func (r *Reactor) Invalidate(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return nil
	}
	names := append([]string{name}, r.graph().Downstream(name)...)
	for _, n := range names {
		p := r.byName[n]
		p.comp.Invalidate()
		p.state = Unbuilt
	}
	r.assembly = nil
	return names
}

func (r *Reactor) transition(p *part, to State) {
	r.mu.Lock()
	from := p.state
	p.state = to
	obs := r.observer
	r.mu.Unlock()

	r.logger.Debug("component transition",
		"reactor", r.Name, "component", p.comp.Name, "from", from.String(), "to", to.String())
	if obs != nil {
		obs(Transition{Component: p.comp.Name, From: from, To: to})
	}
}

// Build resolves the graph, builds every component and combines them. Any
// failure aborts the build and no assembly is returned.
func (r *Reactor) Build(ctx context.Context, k kernel.Kernel) (*Assembly, error) {
	start := time.Now()
	r.mu.Lock()
	g := r.graph()
	r.assembly = nil
	r.mu.Unlock()

	findings := graph.Validate(g)
	if err := graph.Check(g); err != nil {
		r.logger.Error("reactor graph rejected", "reactor", r.Name, "error", err)
		return nil, &AssemblyError{Kind: InvalidGraph, Err: err}
	}
	order, err := graph.Order(g)
	if err != nil {
		return nil, &AssemblyError{Kind: InvalidGraph, Err: err}
	}

	if r.parallel {
		err = r.buildLevels(ctx, k, g)
	} else {
		err = r.buildSequential(ctx, k, order)
	}
	if err != nil {
		return nil, err
	}

	a, err := r.assemble(ctx, k, order, findings)
	if err != nil {
		r.logger.Error("reactor assembly failed", "reactor", r.Name, "error", err)
		return nil, err
	}

	r.mu.Lock()
	r.assembly = a
	r.mu.Unlock()
	r.logger.Info("reactor built",
		"reactor", r.Name,
		"parts", len(a.Parts),
		"cutters", len(a.Cutters),
		"warnings", len(a.Warnings),
		"elapsed", time.Since(start))
	return a, nil
}

func (r *Reactor) buildSequential(ctx context.Context, k kernel.Kernel, order []string) error {
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.buildOne(k, name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reactor) buildLevels(ctx context.Context, k kernel.Kernel, g *graph.Graph) error {
	levels, err := graph.Levels(g)
	if err != nil {
		return &AssemblyError{Kind: InvalidGraph, Err: err}
	}
	for _, level := range levels {
		eg, egctx := errgroup.WithContext(ctx)
		for _, name := range level {
			eg.Go(func() error {
				if err := egctx.Err(); err != nil {
					return err
				}
				return r.buildOne(k, name)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reactor) buildOne(k kernel.Kernel, name string) error {
	r.mu.Lock()
	p := r.byName[name]
	state := p.state
	r.mu.Unlock()
	if state == Resolving {
		return &AssemblyError{Kind: InvalidGraph, Component: name,
			Err: &graph.DependencyError{Kind: graph.Cycle, Node: name, Path: []string{name, name}}}
	}
	r.transition(p, Resolving)

	deps := p.comp.Dependencies()
	views := make([]component.View, 0, len(deps))
	gens := make(map[string]uint64, len(deps))
	for _, d := range deps {
		r.mu.Lock()
		dp := r.byName[d]
		gens[d] = dp.gen
		r.mu.Unlock()
		v, err := dp.comp.View()
		if err != nil {
			r.transition(p, Failed)
			return &AssemblyError{Kind: ComponentFailed, Component: name, Err: err}
		}
		views = append(views, v)
	}

	r.mu.Lock()
	angle := r.RotationAngle
	if p.outdated(gens, angle) {
		p.comp.Invalidate()
	}
	r.mu.Unlock()
	rebuild := p.comp.Stale()

	t0 := time.Now()
	b, err := p.comp.Build(component.NewEnv(k, angle, views...))
	if err != nil {
		r.transition(p, Failed)
		return &AssemblyError{Kind: ComponentFailed, Component: name, Err: err}
	}
	if rebuild {
		r.mu.Lock()
		p.gen++
		p.seen, p.angle = gens, angle
		r.mu.Unlock()
	}
	for _, w := range b.Warnings {
		r.logger.Warn("component warning", "reactor", r.Name, "component", name, "warning", w)
	}
	r.logger.Debug("component built",
		"reactor", r.Name, "component", name, "kind", p.comp.Kind(), "elapsed", time.Since(t0))
	r.transition(p, Built)
	return nil
}

// outdated reports whether the cached geometry of p was built against
// other dependency geometry or another reactor angle. Geometry this
// reactor has not built yet is always outdated.
func (p *part) outdated(gens map[string]uint64, angle float64) bool {
	if p.seen == nil {
		return true
	}
	if angle != p.angle || len(gens) != len(p.seen) {
		return true
	}
	for d, g := range gens {
		if seen, ok := p.seen[d]; !ok || seen != g {
			return true
		}
	}
	return false
}
