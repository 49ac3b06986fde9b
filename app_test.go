package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/chazu/torus/pkg/config"
)

func loadExample(t *testing.T, app *App, path string) *config.File {
	t.Helper()
	f, res, err := app.Load(path)
	if err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			t.Errorf("%s:%d: %s", path, e.Line, e.Message)
		}
		t.FailNow()
	}
	return f
}

func requireNoErrors(t *testing.T, result EvalResult) {
	t.Helper()
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
}

// TestE2EStackExample exercises the full pipeline: YAML description →
// reactor → tessellate → meshes.
func TestE2EStackExample(t *testing.T) {
	app := NewApp()
	f := loadExample(t, app, "examples/stack.yaml")

	result := app.EvaluateFile(context.Background(), f)
	requireNoErrors(t, result)

	if result.Name != "stack" {
		t.Errorf("name = %q, want stack", result.Name)
	}
	// The cutter is not meshed by default.
	if len(result.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(result.Meshes))
	}

	expected := map[string]string{
		"shield":  "tungsten",
		"blanket": "lithium-lead",
	}
	for _, m := range result.Meshes {
		material, ok := expected[m.PartName]
		if !ok {
			t.Errorf("unexpected part name: %q", m.PartName)
			continue
		}
		delete(expected, m.PartName)
		if m.Material != material {
			t.Errorf("part %q: material = %q, want %q", m.PartName, m.Material, material)
		}
		if len(m.Vertices) == 0 || len(m.Normals) == 0 || len(m.Indices) == 0 {
			t.Errorf("part %q: empty geometry", m.PartName)
		}
		if m.Color == "" {
			t.Errorf("part %q: no color assigned", m.PartName)
		}
	}
	for name := range expected {
		t.Errorf("missing mesh for part %q", name)
	}
}

func TestE2ECutterMeshes(t *testing.T) {
	app := NewApp(WithCutterMeshes(true))
	f := loadExample(t, app, "examples/stack.yaml")

	result := app.EvaluateFile(context.Background(), f)
	requireNoErrors(t, result)
	if len(result.Meshes) != 3 {
		t.Fatalf("expected 3 meshes, got %d", len(result.Meshes))
	}
	var cutters int
	for _, m := range result.Meshes {
		if m.Cutter {
			cutters++
			if m.PartName != "ports" {
				t.Errorf("cutter mesh %q, want ports", m.PartName)
			}
		}
	}
	if cutters != 1 {
		t.Errorf("expected 1 cutter mesh, got %d", cutters)
	}
}

// TestE2ELispMatchesYAML checks that both description languages produce
// the same component records.
func TestE2ELispMatchesYAML(t *testing.T) {
	app := NewApp()
	fromYAML := loadExample(t, app, "examples/stack.yaml")
	fromLisp := loadExample(t, app, "examples/stack.lisp")

	if fromLisp.Name != fromYAML.Name || fromLisp.RotationAngle != fromYAML.RotationAngle {
		t.Errorf("reactor = %q/%g, want %q/%g",
			fromLisp.Name, fromLisp.RotationAngle, fromYAML.Name, fromYAML.RotationAngle)
	}
	if len(fromLisp.Components) != len(fromYAML.Components) {
		t.Fatalf("expected %d components, got %d", len(fromYAML.Components), len(fromLisp.Components))
	}
	byName := map[string]*config.Component{}
	for i := range fromYAML.Components {
		byName[fromYAML.Components[i].Name] = &fromYAML.Components[i]
	}
	for i := range fromLisp.Components {
		got := &fromLisp.Components[i]
		want, ok := byName[got.Name]
		if !ok {
			t.Errorf("unexpected component %q", got.Name)
			continue
		}
		if got.Kind != want.Kind || got.Material != want.Material || got.Cutter != want.Cutter {
			t.Errorf("%s: got %s/%s/%v, want %s/%s/%v", got.Name,
				got.Kind, got.Material, got.Cutter, want.Kind, want.Material, want.Cutter)
		}
		if !reflect.DeepEqual(got.Spec(), want.Spec()) {
			t.Errorf("%s: spec = %+v, want %+v", got.Name, got.Spec(), want.Spec())
		}
	}
}

func TestE2EExportExample(t *testing.T) {
	app := NewApp()
	f := loadExample(t, app, "examples/stack.yaml")

	asm, err := app.Build(context.Background(), f)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	dir := t.TempDir()
	outs := make([]config.Output, len(f.Outputs))
	for i, o := range f.Outputs {
		o.Path = filepath.Join(dir, "nested", filepath.Base(o.Path))
		outs[i] = o
	}
	if err := app.Export(context.Background(), asm, outs); err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, o := range outs {
		info, err := os.Stat(o.Path)
		if err != nil {
			t.Errorf("%s: %v", o.Path, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", o.Path)
		}
	}
}

func TestE2ERecipeExamples(t *testing.T) {
	tests := []struct {
		path  string
		parts int
	}{
		{"examples/cylinder.yaml", 6},
		{"examples/column_study.lisp", 4},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			app := NewApp()
			f := loadExample(t, app, tt.path)
			result := app.EvaluateFile(context.Background(), f)
			requireNoErrors(t, result)
			if len(result.Meshes) != tt.parts {
				t.Errorf("expected %d meshes, got %d", tt.parts, len(result.Meshes))
			}
		})
	}
}

func TestSubmersionExampleBuilds(t *testing.T) {
	app := NewApp()
	f := loadExample(t, app, "examples/submersion.yaml")

	asm, err := app.Build(context.Background(), f)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if asm.Name != "submersion" {
		t.Errorf("name = %q, want submersion", asm.Name)
	}
	if len(asm.Parts) != 17 {
		t.Errorf("expected 17 parts, got %d", len(asm.Parts))
	}
	if _, ok := asm.Part("plasma"); !ok {
		t.Error("missing plasma part")
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for empty source, got %d", len(result.Meshes))
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("(component \"test\"")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on error, got %d", len(result.Meshes))
	}
}

// TestE2ESingleCoil ensures a minimal single-component source renders one mesh.
func TestE2ESingleCoil(t *testing.T) {
	app := NewApp()
	result := app.Evaluate(`(component "coil" :pf-coil :material :copper)`)
	requireNoErrors(t, result)

	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}
	m := result.Meshes[0]
	if m.PartName != "coil" {
		t.Errorf("expected part name 'coil', got %q", m.PartName)
	}
	if m.Material != "copper" {
		t.Errorf("expected material 'copper', got %q", m.Material)
	}
}

func TestLoadMissingFile(t *testing.T) {
	app := NewApp()
	for _, path := range []string{"examples/missing.yaml", "examples/missing.lisp"} {
		if _, _, err := app.Load(path); err == nil {
			t.Errorf("%s: expected an error", path)
		}
	}
}
