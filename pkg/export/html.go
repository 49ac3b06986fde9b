package export

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/reactor"
)

//go:embed viewer.html.tmpl
var viewerSource string

var viewer = template.Must(template.New("viewer").Parse(viewerSource))

type htmlPage struct {
	Title    string
	Parts    []htmlPart
	Warnings []string
}

type htmlPart struct {
	Name          string    `json:"name"`
	Kind          string    `json:"kind"`
	Material      string    `json:"material"`
	Color         string    `json:"color"`
	Cutter        bool      `json:"cutter"`
	InnerRadius   float64   `json:"-"`
	OuterRadius   float64   `json:"-"`
	Height        float64   `json:"-"`
	AngularExtent float64   `json:"-"`
	Instances     int       `json:"-"`
	Positions     []float32 `json:"positions"`
}

// WriteHTML writes a standalone page with a rotatable canvas view of the
// meshes and a table of part extents. Meshes are matched to parts by name.
func WriteHTML(w io.Writer, a *reactor.Assembly, meshes []*kernel.Mesh) error {
	page := htmlPage{Title: a.Name}
	for _, wn := range a.Warnings {
		page.Warnings = append(page.Warnings, wn.Error())
	}

	byName := make(map[string]*kernel.Mesh, len(meshes))
	for _, m := range meshes {
		byName[m.PartName] = m
	}
	var triangles int
	for _, p := range append(append([]reactor.Part(nil), a.Parts...), a.Cutters...) {
		m, ok := byName[p.Name]
		if !ok {
			continue
		}
		hp := htmlPart{
			Name:          p.Name,
			Kind:          p.Kind,
			Material:      p.Material,
			Color:         hexColor(meshColor(m)),
			Cutter:        p.Cutter,
			InnerRadius:   p.Extents.InnerRadius,
			OuterRadius:   p.Extents.OuterRadius,
			Height:        p.Extents.Height,
			AngularExtent: p.Extents.AngularExtent,
			Instances:     p.Instances,
		}
		for i := 0; i < m.TriangleCount(); i++ {
			t := m.Triangle(i)
			hp.Positions = append(hp.Positions, t[0][:]...)
			hp.Positions = append(hp.Positions, t[1][:]...)
			hp.Positions = append(hp.Positions, t[2][:]...)
		}
		triangles += m.TriangleCount()
		page.Parts = append(page.Parts, hp)
	}
	if triangles == 0 {
		return errNoTriangles
	}
	if err := viewer.Execute(w, page); err != nil {
		return fmt.Errorf("export html: %w", err)
	}
	return nil
}
