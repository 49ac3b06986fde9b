// Package export writes reactor assemblies to files: triangulated meshes
// (STL, 3MF), 2D vector drawings (SVG projection, DXF cross-sections) and
// a self-contained HTML viewer.
package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/reactor"
	"github.com/chazu/torus/pkg/tessellate"
)

// Format is an output file format.
type Format int

const (
	STL Format = iota
	ThreeMF
	SVG
	DXF
	HTML
)

var formatNames = []string{"stl", "3mf", "svg", "dxf", "html"}

func (f Format) String() string {
	if f >= 0 && int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Ext returns the file extension for f, with the leading dot.
func (f Format) Ext() string { return "." + f.String() }

// ErrUnknownFormat is returned for format names and extensions that have no
// writer.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat parses a format name such as "stl" or ".3mf".
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	for i, n := range formatNames {
		if n == name {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFor infers the format from the extension of path.
func FormatFor(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return 0, fmt.Errorf("%w: %q has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// Formats lists every supported format.
func Formats() []Format {
	out := make([]Format, len(formatNames))
	for i := range out {
		out[i] = Format(i)
	}
	return out
}

type options struct {
	view    View
	cutters bool
	workers int
}

// Option configures Export.
type Option func(*options)

// WithView sets the projection used by the SVG writer.
func WithView(v View) Option {
	return func(o *options) { o.view = v }
}

// WithCutters includes the cutters in the output next to the structural
// parts.
func WithCutters() Option {
	return func(o *options) { o.cutters = true }
}

// WithWorkers bounds the number of parts tessellated at once.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// Export writes a to path in format f. Mesh formats tessellate the parts
// with k first; DXF draws the part cross-sections and needs no meshing.
func Export(ctx context.Context, a *reactor.Assembly, k kernel.Kernel, f Format, path string, opts ...Option) error {
	if a == nil {
		return errors.New("export: nil assembly")
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	if f == DXF {
		parts := a.Parts
		if o.cutters {
			parts = append(append([]reactor.Part(nil), a.Parts...), a.Cutters...)
		}
		return WriteDXF(path, parts)
	}

	var topts []tessellate.Option
	if o.cutters {
		topts = append(topts, tessellate.WithCutters())
	}
	if o.workers > 0 {
		topts = append(topts, tessellate.WithWorkers(o.workers))
	}
	meshes, err := tessellate.Tessellate(ctx, a, k, topts...)
	if err != nil {
		return fmt.Errorf("export %s: %w", f, err)
	}

	switch f {
	case STL:
		return writeFile(path, func(w io.Writer) error { return WriteSTL(w, a.Name, meshes) })
	case ThreeMF:
		return Write3MF(path, meshes)
	case SVG:
		return writeFile(path, func(w io.Writer) error { return WriteSVG(w, a.Name, meshes, o.view) })
	case HTML:
		return writeFile(path, func(w io.Writer) error { return WriteHTML(w, a, meshes) })
	}
	return fmt.Errorf("%w: %s", ErrUnknownFormat, f)
}

// writeFile creates path and hands a buffered writer to fn. The file is
// removed if fn fails.
func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("export: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// errNoTriangles is returned by the mesh writers when every mesh is empty.
var errNoTriangles = errors.New("export: no triangles to write")
