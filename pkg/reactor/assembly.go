package reactor

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/torus/pkg/component"
	"github.com/chazu/torus/pkg/graph"
	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/profile"
)

// Part is one component's contribution to an assembly. For structural
// parts Solid has every overlapping cutter removed.
type Part struct {
	Name      string
	Kind      string
	Material  string
	Cutter    bool
	Solid     kernel.Solid
	Extents   component.Extents
	Instances int
	Profiles  []profile.Profile // template cross-section, before Offset
	Offset    [3]float64
}

// Assembly is the combined result of a reactor build.
type Assembly struct {
	Name     string
	Body     kernel.Solid // union of the structural parts
	Parts    []Part       // structural, declaration order
	Cutters  []Part       // declaration order
	Order    []string     // build order
	Warnings []graph.ValidationError
}

// Part returns the named structural part or cutter.
func (a *Assembly) Part(name string) (Part, bool) {
	for _, list := range [][]Part{a.Parts, a.Cutters} {
		for _, p := range list {
			if p.Name == name {
				return p, true
			}
		}
	}
	return Part{}, false
}

// AssemblyErrorKind classifies reactor build failures.
type AssemblyErrorKind int

const (
	InvalidGraph AssemblyErrorKind = iota
	ComponentFailed
	CutterMisses
	EmptyBody
)

func (k AssemblyErrorKind) String() string {
	switch k {
	case InvalidGraph:
		return "invalid dependency graph"
	case ComponentFailed:
		return "component failed"
	case CutterMisses:
		return "cutter intersects no part"
	case EmptyBody:
		return "empty assembly"
	}
	return fmt.Sprintf("AssemblyErrorKind(%d)", int(k))
}

// AssemblyError reports why a reactor could not be assembled.
type AssemblyError struct {
	Kind      AssemblyErrorKind
	Component string
	Err       error
}

func (e *AssemblyError) Error() string {
	s := "reactor: " + e.Kind.String()
	if e.Component != "" {
		s += fmt.Sprintf(" (%s)", e.Component)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// Is matches any *AssemblyError of the same kind.
func (e *AssemblyError) Is(target error) bool {
	t, ok := target.(*AssemblyError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidGraph    = &AssemblyError{Kind: InvalidGraph}
	ErrComponentFailed = &AssemblyError{Kind: ComponentFailed}
	ErrCutterMisses    = &AssemblyError{Kind: CutterMisses}
	ErrEmptyBody       = &AssemblyError{Kind: EmptyBody}
)

// assembler holds the parts being cut. Workers cutting different parts
// share it, so every write goes through mu.
type assembler struct {
	mu    sync.Mutex
	parts []Part
	hits  map[string]bool // cutters that overlapped at least one part
}

func (as *assembler) set(i int, s kernel.Solid, hit []string) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.parts[i].Solid = s
	for _, h := range hit {
		as.hits[h] = true
	}
}

func (r *Reactor) assemble(ctx context.Context, k kernel.Kernel, order []string, findings []graph.ValidationError) (*Assembly, error) {
	r.mu.Lock()
	parts := append([]*part(nil), r.parts...)
	r.mu.Unlock()

	a := &Assembly{Name: r.Name, Order: order}
	for _, f := range findings {
		if f.Severity == graph.SeverityWarning {
			a.Warnings = append(a.Warnings, f)
		}
	}

	as := &assembler{hits: make(map[string]bool)}
	for _, p := range parts {
		b, ok := p.comp.Built()
		if !ok {
			return nil, &AssemblyError{Kind: ComponentFailed, Component: p.comp.Name, Err: component.ErrNotBuilt}
		}
		pt := Part{
			Name:      p.comp.Name,
			Kind:      p.comp.Kind(),
			Material:  p.comp.Material,
			Cutter:    p.cutter,
			Solid:     b.Body,
			Extents:   b.Extents,
			Instances: len(b.Instances),
			Profiles:  b.Template.Profiles(),
			Offset:    b.Template.Offset(),
		}
		for _, w := range b.Warnings {
			a.Warnings = append(a.Warnings, graph.ValidationError{
				Node: p.comp.Name, Message: w, Severity: graph.SeverityWarning,
			})
		}
		if p.cutter {
			a.Cutters = append(a.Cutters, pt)
		} else {
			as.parts = append(as.parts, pt)
		}
	}
	if len(as.parts) == 0 {
		return nil, &AssemblyError{Kind: EmptyBody, Err: fmt.Errorf("no structural components")}
	}
	if len(a.Cutters) > 0 && (r.RotationAngle == 0 || r.RotationAngle >= 360) {
		a.Warnings = append(a.Warnings, graph.ValidationError{
			Message:  "full 360 degree revolution with cutters; cut faces may meet the sweep seam",
			Severity: graph.SeverityWarning,
		})
	}

	// Subtract the cutters from every part they overlap, cutter order
	// preserved within each part.
	eg, egctx := errgroup.WithContext(ctx)
	if !r.parallel {
		eg.SetLimit(1)
	}
	for i := range as.parts {
		body := as.parts[i].Solid
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			var hit []string
			for _, c := range a.Cutters {
				if !k.Intersects(body, c.Solid) {
					continue
				}
				cut, err := k.Boolean(kernel.OpSubtract, body, c.Solid)
				if err != nil {
					return &AssemblyError{Kind: ComponentFailed, Component: c.Name, Err: err}
				}
				body = cut
				hit = append(hit, c.Name)
			}
			as.set(i, body, hit)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for _, c := range a.Cutters {
		if !as.hits[c.Name] {
			return nil, &AssemblyError{Kind: CutterMisses, Component: c.Name,
				Err: fmt.Errorf("cutter %q does not intersect any structural part", c.Name)}
		}
	}

	// Union in declaration order.
	a.Parts = as.parts
	body := a.Parts[0].Solid
	for _, p := range a.Parts[1:] {
		u, err := k.Boolean(kernel.OpUnion, body, p.Solid)
		if err != nil {
			return nil, &AssemblyError{Kind: ComponentFailed, Component: p.Name, Err: err}
		}
		body = u
	}
	if empty(body) {
		return nil, &AssemblyError{Kind: EmptyBody, Err: fmt.Errorf("union of %d parts has no volume", len(a.Parts))}
	}
	a.Body = body
	return a, nil
}

func empty(s kernel.Solid) bool {
	if s == nil {
		return true
	}
	min, max := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if !(max[i] > min[i]) {
			return true
		}
	}
	return false
}
