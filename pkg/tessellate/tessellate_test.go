package tessellate_test

import (
	"context"
	"testing"

	"github.com/chazu/torus/pkg/component"
	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/kernel/sdfx"
	"github.com/chazu/torus/pkg/reactor"
	"github.com/chazu/torus/pkg/tessellate"
)

// newKernel returns a coarse sdfx kernel so the tests stay fast.
func newKernel() kernel.Kernel {
	return sdfx.New(sdfx.WithMeshCells(48))
}

func cylinder(inner, outer float64) component.CenterColumnCylinder {
	return component.CenterColumnCylinder{Height: 100, InnerRadius: inner, OuterRadius: outer}
}

// twoRings builds a reactor with two concentric rings and a port through
// the outer one.
func twoRings(t *testing.T, k kernel.Kernel) *reactor.Assembly {
	t.Helper()
	port := component.DefaultPortCutterRectangular()
	port.Width, port.Height = 20, 20
	port.Offset = 70
	r := reactor.New("rings").
		Add(
			component.New("inner", cylinder(20, 40), component.WithMaterial("tungsten")),
			component.New("outer", cylinder(80, 100), component.WithMaterial("eurofer")),
		).
		AddCutter(component.New("port", port))
	a, err := r.Build(context.Background(), k)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return a
}

func TestOneMeshPerPart(t *testing.T) {
	k := newKernel()
	a := twoRings(t, k)

	meshes, err := tessellate.Tessellate(context.Background(), a, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}

	want := []struct{ name, material string }{
		{"inner", "tungsten"},
		{"outer", "eurofer"},
	}
	for i, w := range want {
		m := meshes[i]
		if m.IsEmpty() {
			t.Errorf("mesh %q should not be empty", m.PartName)
		}
		if m.PartName != w.name {
			t.Errorf("mesh %d: PartName = %q, want %q", i, m.PartName, w.name)
		}
		if m.Material != w.material {
			t.Errorf("mesh %d: Material = %q, want %q", i, m.Material, w.material)
		}
		if m.TriangleCount() == 0 {
			t.Errorf("mesh %q should have triangles", m.PartName)
		}
	}
}

func TestMeshBoundsFollowExtents(t *testing.T) {
	k := newKernel()
	a := twoRings(t, k)

	meshes, err := tessellate.Tessellate(context.Background(), a, k, tessellate.WithWorkers(1))
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	min, max := meshes[1].Bounds()

	// Marching cubes is approximate; allow a couple of cells.
	const tol = 10.0
	if abs(max[0]-100) > tol || abs(min[0]+100) > tol {
		t.Errorf("x bounds = [%.1f, %.1f], expected near [-100, 100]", min[0], max[0])
	}
	if abs(max[2]-50) > tol || abs(min[2]+50) > tol {
		t.Errorf("z bounds = [%.1f, %.1f], expected near [-50, 50]", min[2], max[2])
	}
}

func TestWithCutters(t *testing.T) {
	k := newKernel()
	a := twoRings(t, k)

	meshes, err := tessellate.Tessellate(context.Background(), a, k, tessellate.WithCutters())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 3 {
		t.Fatalf("expected 3 meshes, got %d", len(meshes))
	}
	if meshes[2].PartName != "port" {
		t.Errorf("last mesh = %q, want the cutter", meshes[2].PartName)
	}
}

func TestBody(t *testing.T) {
	k := newKernel()
	a := twoRings(t, k)

	m, err := tessellate.Body(a, k)
	if err != nil {
		t.Fatalf("Body failed: %v", err)
	}
	if m.PartName != "rings" {
		t.Errorf("PartName = %q, want %q", m.PartName, "rings")
	}
	if m.IsEmpty() {
		t.Error("body mesh should not be empty")
	}
}

func TestNilAssembly(t *testing.T) {
	meshes, err := tessellate.Tessellate(context.Background(), nil, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 0 {
		t.Fatalf("expected 0 meshes, got %d", len(meshes))
	}
	if _, err := tessellate.Body(nil, newKernel()); err == nil {
		t.Error("expected an error for a nil assembly")
	}
}

func TestCancelled(t *testing.T) {
	k := newKernel()
	a := twoRings(t, k)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tessellate.Tessellate(ctx, a, k); err == nil {
		t.Error("expected a cancelled context to stop tessellation")
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
