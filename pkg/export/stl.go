package export

import (
	"io"

	"github.com/hschendel/stl"

	"github.com/chazu/torus/pkg/kernel"
)

// WriteSTL writes every mesh into one binary STL solid named name.
func WriteSTL(w io.Writer, name string, meshes []*kernel.Mesh) error {
	s := &stl.Solid{Name: name}
	for _, m := range meshes {
		for i := 0; i < m.TriangleCount(); i++ {
			t := m.Triangle(i)
			s.Triangles = append(s.Triangles, stl.Triangle{
				Normal:   triangleNormal(m, i),
				Vertices: [3]stl.Vec3{t[0], t[1], t[2]},
			})
		}
	}
	if len(s.Triangles) == 0 {
		return errNoTriangles
	}
	return s.WriteAll(w)
}
