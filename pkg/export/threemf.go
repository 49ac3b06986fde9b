package export

import (
	"fmt"

	"github.com/hpinc/go3mf"

	"github.com/chazu/torus/pkg/kernel"
)

// Write3MF writes one 3MF object per mesh, each tagged with a base
// material named after its part material. Lengths are centimetres.
func Write3MF(path string, meshes []*kernel.Mesh) error {
	var model go3mf.Model
	model.Units = go3mf.UnitCentimeter

	mats := &go3mf.BaseMaterials{ID: 1}
	index := make(map[string]uint32)
	for _, m := range meshes {
		key := colorKey(m.PartName, m.Material)
		if _, ok := index[key]; ok {
			continue
		}
		index[key] = uint32(len(mats.Materials))
		mats.Materials = append(mats.Materials, go3mf.Base{Name: key, Color: meshColor(m)})
	}
	model.Resources.Assets = append(model.Resources.Assets, mats)

	var triangles int
	for i, m := range meshes {
		mesh := weld(m)
		triangles += len(mesh.Triangles.Triangle)
		id := uint32(i + 2)
		model.Resources.Objects = append(model.Resources.Objects, &go3mf.Object{
			ID:     id,
			Name:   m.PartName,
			PID:    mats.ID,
			PIndex: index[colorKey(m.PartName, m.Material)],
			Mesh:   mesh,
		})
		model.Build.Items = append(model.Build.Items, &go3mf.Item{ObjectID: id})
	}
	if triangles == 0 {
		return errNoTriangles
	}

	w, err := go3mf.CreateWriter(path)
	if err != nil {
		return fmt.Errorf("export 3mf: %w", err)
	}
	if err := w.Encode(&model); err != nil {
		w.Close()
		return fmt.Errorf("export 3mf: %w", err)
	}
	return w.Close()
}

// weld merges coincident vertices so the 3MF mesh shares its corners, and
// drops triangles that collapse in the process.
func weld(m *kernel.Mesh) *go3mf.Mesh {
	out := new(go3mf.Mesh)
	seen := make(map[[3]float32]uint32)
	vertex := func(p [3]float32) uint32 {
		if i, ok := seen[p]; ok {
			return i
		}
		i := uint32(len(out.Vertices.Vertex))
		seen[p] = i
		out.Vertices.Vertex = append(out.Vertices.Vertex, go3mf.Point3D(p))
		return i
	}
	for i := 0; i < m.TriangleCount(); i++ {
		t := m.Triangle(i)
		a, b, c := vertex(t[0]), vertex(t[1]), vertex(t[2])
		if a == b || b == c || a == c {
			continue
		}
		out.Triangles.Triangle = append(out.Triangles.Triangle, go3mf.Triangle{V1: a, V2: b, V3: c})
	}
	return out
}
