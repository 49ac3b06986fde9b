// Package tessellate turns an assembly into triangle meshes using a
// geometry kernel. One mesh is produced per part.
package tessellate

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/reactor"
)

type options struct {
	cutters bool
	workers int
}

// Option configures Tessellate.
type Option func(*options)

// WithCutters also meshes the cutters, after the structural parts.
func WithCutters() Option {
	return func(o *options) { o.cutters = true }
}

// WithWorkers bounds the number of parts meshed at once.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// Tessellate produces one mesh per structural part of a, in declaration
// order. The assembly is read-only.
func Tessellate(ctx context.Context, a *reactor.Assembly, k kernel.Kernel, opts ...Option) ([]*kernel.Mesh, error) {
	if a == nil {
		return nil, nil
	}
	o := options{workers: runtime.NumCPU()}
	for _, fn := range opts {
		fn(&o)
	}

	parts := append([]reactor.Part(nil), a.Parts...)
	if o.cutters {
		parts = append(parts, a.Cutters...)
	}

	meshes := make([]*kernel.Mesh, len(parts))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.workers)
	for i, p := range parts {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := Part(p, k)
			if err != nil {
				return err
			}
			meshes[i] = m
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return meshes, nil
}

// Part meshes a single part and labels the mesh with its name and
// material.
func Part(p reactor.Part, k kernel.Kernel) (*kernel.Mesh, error) {
	if p.Solid == nil {
		return nil, fmt.Errorf("tessellate: part %q has no solid", p.Name)
	}
	m, err := k.ToMesh(p.Solid)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for part %q: %w", p.Name, err)
	}
	m.PartName = p.Name
	m.Material = p.Material
	return m, nil
}

// Body meshes the unioned assembly body as a single mesh named after the
// reactor.
func Body(a *reactor.Assembly, k kernel.Kernel) (*kernel.Mesh, error) {
	if a == nil || a.Body == nil {
		return nil, fmt.Errorf("tessellate: assembly has no body")
	}
	m, err := k.ToMesh(a.Body)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %q: %w", a.Name, err)
	}
	m.PartName = a.Name
	return m, nil
}
