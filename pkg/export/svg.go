package export

import (
	"fmt"
	"io"
	"math"
	"sort"

	svg "github.com/ajstarks/svgo"

	"github.com/chazu/torus/pkg/kernel"
)

// View is the direction an SVG projection looks from.
type View int

const (
	// Side is an elevation looking along +Y, X to the right and Z up.
	Side View = iota
	// Top is a plan looking down −Z, X to the right and Y up.
	Top
	// Front looks along −X, −Y to the right and Z up.
	Front
)

var viewNames = []string{"side", "top", "front"}

func (v View) String() string {
	if v >= 0 && int(v) < len(viewNames) {
		return viewNames[v]
	}
	return fmt.Sprintf("View(%d)", int(v))
}

// ParseView parses "side", "top" or "front".
func ParseView(s string) (View, error) {
	for i, n := range viewNames {
		if n == s {
			return View(i), nil
		}
	}
	return 0, fmt.Errorf("unknown view %q", s)
}

// project maps a world point to drawing coordinates, y pointing up, and a
// depth that grows away from the viewer.
func (v View) project(p [3]float32) (x, y, depth float64) {
	switch v {
	case Top:
		return float64(p[0]), float64(p[1]), -float64(p[2])
	case Front:
		return -float64(p[1]), float64(p[2]), -float64(p[0])
	}
	return float64(p[0]), float64(p[2]), float64(p[1])
}

// toward returns the unit vector from the scene to the viewer.
func (v View) toward() [3]float64 {
	switch v {
	case Top:
		return [3]float64{0, 0, 1}
	case Front:
		return [3]float64{1, 0, 0}
	}
	return [3]float64{0, -1, 0}
}

const (
	svgWidth  = 800
	svgMargin = 20
	legendRow = 18
)

type face struct {
	xs, ys [3]float64
	depth  float64
	fill   string
}

// WriteSVG draws a flat-shaded projection of the meshes, far faces first,
// with a legend of part names.
func WriteSVG(w io.Writer, title string, meshes []*kernel.Mesh, v View) error {
	var faces []face
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	eye := v.toward()

	for _, m := range meshes {
		base := meshColor(m)
		for i := 0; i < m.TriangleCount(); i++ {
			t := m.Triangle(i)
			var f face
			for j, p := range t {
				x, y, d := v.project(p)
				f.xs[j], f.ys[j] = x, y
				f.depth += d / 3
				minX, maxX = math.Min(minX, x), math.Max(maxX, x)
				minY, maxY = math.Min(minY, y), math.Max(maxY, y)
			}
			n := triangleNormal(m, i)
			lit := math.Abs(float64(n[0])*eye[0] + float64(n[1])*eye[1] + float64(n[2])*eye[2])
			c := shade(base, 0.35+0.65*lit)
			f.fill = fmt.Sprintf("fill:%s;stroke:%s;stroke-width:0.5", hexColor(c), hexColor(c))
			faces = append(faces, f)
		}
	}
	if len(faces) == 0 {
		return errNoTriangles
	}
	sort.SliceStable(faces, func(i, j int) bool { return faces[i].depth > faces[j].depth })

	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	scale := float64(svgWidth-2*svgMargin) / span
	height := int(math.Ceil((maxY-minY)*scale)) + 2*svgMargin + legendRow*len(meshes)
	px := func(x float64) int { return svgMargin + int(math.Round((x-minX)*scale)) }
	py := func(y float64) int { return svgMargin + int(math.Round((maxY-y)*scale)) }

	canvas := svg.New(w)
	canvas.Start(svgWidth, height)
	canvas.Title(fmt.Sprintf("%s (%s view)", title, v))
	canvas.Rect(0, 0, svgWidth, height, "fill:white")
	canvas.Gid("faces")
	for _, f := range faces {
		xs := []int{px(f.xs[0]), px(f.xs[1]), px(f.xs[2])}
		ys := []int{py(f.ys[0]), py(f.ys[1]), py(f.ys[2])}
		canvas.Polygon(xs, ys, f.fill)
	}
	canvas.Gend()

	canvas.Gid("legend")
	y := height - legendRow*len(meshes)
	for _, m := range meshes {
		canvas.Rect(svgMargin, y+3, 12, 12, "fill:"+hexColor(meshColor(m)))
		label := m.PartName
		if m.Material != "" {
			label += " (" + m.Material + ")"
		}
		canvas.Text(svgMargin+18, y+13, label, "font-family:sans-serif;font-size:12px")
		y += legendRow
	}
	canvas.Gend()
	canvas.End()
	return nil
}
