package export_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpinc/go3mf"
	"github.com/hschendel/stl"

	"github.com/chazu/torus/pkg/component"
	"github.com/chazu/torus/pkg/export"
	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/kernel/sdfx"
	"github.com/chazu/torus/pkg/reactor"
	"github.com/chazu/torus/pkg/tessellate"
)

func newKernel() kernel.Kernel {
	return sdfx.New(sdfx.WithMeshCells(40))
}

// rings builds two concentric rings, a quarter sector, with a port cut
// through the outer one.
func rings(t *testing.T, k kernel.Kernel) *reactor.Assembly {
	t.Helper()
	port := component.DefaultPortCutterRectangular()
	port.Width, port.Height = 20, 20
	port.Offset = 70
	port.AzimuthAngles = []float64{45}
	r := reactor.New("rings", reactor.WithRotationAngle(90)).
		Add(
			component.New("inner", component.CenterColumnCylinder{Height: 100, InnerRadius: 20, OuterRadius: 40},
				component.WithMaterial("tungsten")),
			component.New("outer", component.CenterColumnCylinder{Height: 100, InnerRadius: 80, OuterRadius: 100},
				component.WithMaterial("eurofer")),
		).
		AddCutter(component.New("port", port))
	a, err := r.Build(context.Background(), k)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return a
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want export.Format
	}{
		{"stl", export.STL},
		{"STL", export.STL},
		{".3mf", export.ThreeMF},
		{"svg", export.SVG},
		{"dxf", export.DXF},
		{" html ", export.HTML},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := export.ParseFormat(tt.in)
			if err != nil {
				t.Fatalf("ParseFormat(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if _, err := export.ParseFormat("step"); !errors.Is(err, export.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestFormatFor(t *testing.T) {
	f, err := export.FormatFor("out/reactor.3MF")
	if err != nil {
		t.Fatalf("FormatFor: %v", err)
	}
	if f != export.ThreeMF {
		t.Errorf("FormatFor = %v, want 3mf", f)
	}
	if _, err := export.FormatFor("reactor"); !errors.Is(err, export.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat for a bare name, got %v", err)
	}
	for _, f := range export.Formats() {
		if got, err := export.FormatFor("x" + f.Ext()); err != nil || got != f {
			t.Errorf("FormatFor(%q) = %v, %v", "x"+f.Ext(), got, err)
		}
	}
}

func TestSTLHoldsEveryTriangle(t *testing.T) {
	k := newKernel()
	a := rings(t, k)
	meshes, err := tessellate.Tessellate(context.Background(), a, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	want := 0
	for _, m := range meshes {
		want += m.TriangleCount()
	}

	var buf bytes.Buffer
	if err := export.WriteSTL(&buf, a.Name, meshes); err != nil {
		t.Fatalf("WriteSTL failed: %v", err)
	}
	s, err := stl.ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(s.Triangles) != want {
		t.Errorf("STL has %d triangles, want %d", len(s.Triangles), want)
	}
}

func TestWriteSTLRejectsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteSTL(&buf, "empty", nil); err == nil {
		t.Error("expected an error for no meshes")
	}
}

func TestExportFormats(t *testing.T) {
	k := newKernel()
	a := rings(t, k)
	dir := t.TempDir()

	for _, f := range export.Formats() {
		t.Run(f.String(), func(t *testing.T) {
			path := filepath.Join(dir, "rings"+f.Ext())
			if err := export.Export(context.Background(), a, k, f, path); err != nil {
				t.Fatalf("Export failed: %v", err)
			}
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("stat: %v", err)
			}
			if info.Size() == 0 {
				t.Fatal("exported file is empty")
			}
		})
	}
}

func Test3MFObjectsPerPart(t *testing.T) {
	k := newKernel()
	a := rings(t, k)
	path := filepath.Join(t.TempDir(), "rings.3mf")
	if err := export.Export(context.Background(), a, k, export.ThreeMF, path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	r, err := go3mf.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	var model go3mf.Model
	if err := r.Decode(&model); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(model.Resources.Objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(model.Resources.Objects))
	}
	for i, want := range []string{"inner", "outer"} {
		obj := model.Resources.Objects[i]
		if obj.Name != want {
			t.Errorf("object %d = %q, want %q", i, obj.Name, want)
		}
		if obj.Mesh == nil || len(obj.Mesh.Triangles.Triangle) == 0 {
			t.Errorf("object %q has no triangles", obj.Name)
		}
	}
	if len(model.Build.Items) != 2 {
		t.Errorf("expected 2 build items, got %d", len(model.Build.Items))
	}
}

func TestDXFLayersPerPart(t *testing.T) {
	k := newKernel()
	a := rings(t, k)
	path := filepath.Join(t.TempDir(), "rings.dxf")
	if err := export.Export(context.Background(), a, k, export.DXF, path, export.WithCutters()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"LINE", "inner", "outer", "port"} {
		if !strings.Contains(text, want) {
			t.Errorf("DXF output does not mention %q", want)
		}
	}
}

func TestSVGViews(t *testing.T) {
	k := newKernel()
	a := rings(t, k)
	meshes, err := tessellate.Tessellate(context.Background(), a, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	for _, v := range []export.View{export.Side, export.Top, export.Front} {
		t.Run(v.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := export.WriteSVG(&buf, a.Name, meshes, v); err != nil {
				t.Fatalf("WriteSVG failed: %v", err)
			}
			out := buf.String()
			if !strings.Contains(out, "<svg") || !strings.Contains(out, "<polygon") {
				t.Error("SVG output has no polygons")
			}
			if !strings.Contains(out, "outer (eurofer)") {
				t.Error("legend is missing the outer part")
			}
		})
	}

	if _, err := export.ParseView("iso"); err == nil {
		t.Error("expected an error for an unknown view")
	}
}

func TestHTMLViewer(t *testing.T) {
	k := newKernel()
	a := rings(t, k)
	meshes, err := tessellate.Tessellate(context.Background(), a, k, tessellate.WithCutters())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	var buf bytes.Buffer
	if err := export.WriteHTML(&buf, a, meshes); err != nil {
		t.Fatalf("WriteHTML failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"<title>rings</title>", `"name":"outer"`, `"name":"port"`, "tungsten"} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML output does not contain %q", want)
		}
	}
}

func TestExportNilAssembly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.stl")
	if err := export.Export(context.Background(), nil, newKernel(), export.STL, path); err == nil {
		t.Error("expected an error for a nil assembly")
	}
}
