package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/torus/pkg/config"
	"github.com/chazu/torus/pkg/engine"
	"github.com/chazu/torus/pkg/export"
	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/kernel/sdfx"
	"github.com/chazu/torus/pkg/reactor"
	"github.com/chazu/torus/pkg/tessellate"
)

// App runs reactor descriptions through the whole pipeline: evaluate or
// parse the source, build the reactor, tessellate and export.
type App struct {
	engine   *engine.Engine
	kernel   kernel.Kernel
	logger   *slog.Logger
	cutters  bool
	parallel bool
	workers  int
}

// MeshData is the JSON form of one tessellated part.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Material string    `json:"material,omitempty"`
	Cutter   bool      `json:"cutter,omitempty"`
	Color    string    `json:"color"`
}

// EvalErrorData is the JSON form of an error or warning.
type EvalErrorData struct {
	Line      int    `json:"line"`
	Col       int    `json:"col"`
	Message   string `json:"message"`
	Component string `json:"component,omitempty"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Name     string          `json:"name"`
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// AppOption configures an App.
type AppOption func(*App)

// WithLogger routes pipeline diagnostics to l.
func WithLogger(l *slog.Logger) AppOption {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithCutterMeshes includes cutter parts in meshes and exports.
func WithCutterMeshes(on bool) AppOption {
	return func(a *App) { a.cutters = on }
}

// WithParallelBuild builds independent components concurrently, whatever
// the description says.
func WithParallelBuild(on bool) AppOption {
	return func(a *App) { a.parallel = on }
}

// WithTessellationWorkers bounds the number of parts meshed at once.
func WithTessellationWorkers(n int) AppOption {
	return func(a *App) { a.workers = n }
}

// NewApp creates a new App with an engine and the sdfx kernel.
func NewApp(opts ...AppOption) *App {
	a := &App{
		engine: engine.NewEngine(),
		kernel: sdfx.New(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// isYAML reports whether path names a YAML description. Anything else is
// read as Lisp.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads the description at path. Lisp evaluation errors come back as
// EvalErrors; a YAML file either parses or fails as a whole.
func (a *App) Load(path string) (*config.File, EvalResult, error) {
	result := newResult()
	if isYAML(path) {
		f, err := config.Load(path)
		if err != nil {
			return nil, result, err
		}
		result.Name = f.Name
		return f, result, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, result, err
	}
	res, err := a.engine.EvaluateResult(string(src))
	if err != nil {
		return nil, result, err
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{
			Line: w.Line, Col: w.Col, Message: w.Message, Component: w.Component,
		})
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return nil, result, nil
	}
	result.Name = res.File.Name
	return res.File, result, nil
}

// Build instantiates and assembles the reactor f describes.
func (a *App) Build(ctx context.Context, f *config.File) (*reactor.Assembly, error) {
	opts := []reactor.Option{reactor.WithLogger(a.logger)}
	if a.parallel {
		opts = append(opts, reactor.WithParallel(true))
	}
	r, err := f.Reactor(opts...)
	if err != nil {
		return nil, err
	}
	return r.Build(ctx, a.kernel)
}

// Export writes asm to every output. Missing directories are created.
func (a *App) Export(ctx context.Context, asm *reactor.Assembly, outputs []config.Output) error {
	for _, out := range outputs {
		format, view, err := out.Target()
		if err != nil {
			return err
		}
		if dir := filepath.Dir(out.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("export %s: %w", out.Path, err)
			}
		}
		opts := []export.Option{export.WithView(view)}
		if a.cutters {
			opts = append(opts, export.WithCutters())
		}
		if a.workers > 0 {
			opts = append(opts, export.WithWorkers(a.workers))
		}
		if err := export.Export(ctx, asm, a.kernel, format, out.Path, opts...); err != nil {
			return err
		}
		a.logger.Info("wrote output", "reactor", asm.Name, "path", out.Path, "format", format.String())
	}
	return nil
}

// Evaluate takes Lisp source and returns mesh data + errors.
func (a *App) Evaluate(source string) EvalResult {
	result := newResult()

	res, err := a.engine.EvaluateResult(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.logger.Error("evaluate failed", "error", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{
			Line: w.Line, Col: w.Col, Message: w.Message, Component: w.Component,
		})
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	more := a.EvaluateFile(context.Background(), res.File)
	more.Warnings = append(result.Warnings, more.Warnings...)
	return more
}

// EvaluateFile builds f and tessellates the result. A description that
// declares nothing yields an empty result.
func (a *App) EvaluateFile(ctx context.Context, f *config.File) EvalResult {
	result := newResult()
	result.Name = f.Name
	if f.Recipe == nil && len(f.Components) == 0 {
		return result
	}

	asm, err := a.Build(ctx, f)
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, w := range asm.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message, Component: w.Node})
	}

	var topts []tessellate.Option
	if a.cutters {
		topts = append(topts, tessellate.WithCutters())
	}
	if a.workers > 0 {
		topts = append(topts, tessellate.WithWorkers(a.workers))
	}
	meshes, err := tessellate.Tessellate(ctx, asm, a.kernel, topts...)
	if err != nil {
		a.logger.Error("tessellate failed", "reactor", asm.Name, "error", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}

	for _, m := range meshes {
		p, _ := asm.Part(m.PartName)
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Material: m.Material,
			Cutter:   p.Cutter,
			Color:    export.Color(m),
		})
	}
	return result
}

// newResult returns a result whose slices encode as [] rather than null.
func newResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}
