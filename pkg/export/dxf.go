package export

import (
	"fmt"
	"strings"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"

	"github.com/chazu/torus/pkg/reactor"
)

var layerColors = []color.ColorNumber{
	color.Red, color.Yellow, color.Green, color.Cyan, color.Blue, color.Magenta,
}

// layerName replaces characters DXF does not allow in layer names.
func layerName(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>/\":;?*|=',`, r) {
			return '_'
		}
		return r
	}, s)
}

// WriteDXF draws the cross-section of every part as line segments on the
// part's workplane, one layer per part.
func WriteDXF(path string, parts []reactor.Part) error {
	d := dxf.NewDrawing()
	var lines int
	for _, p := range parts {
		key := colorKey(p.Name, p.Material)
		cl := layerColors[paletteIndex(key, len(layerColors))]
		if _, err := d.AddLayer(layerName(p.Name), cl, dxf.DefaultLineType, true); err != nil {
			return fmt.Errorf("export dxf: layer %q: %w", p.Name, err)
		}
		for _, pr := range p.Profiles {
			pts, err := pr.Polyline()
			if err != nil {
				return fmt.Errorf("export dxf: part %q: %w", p.Name, err)
			}
			for i := range pts {
				a := pr.Workplane.Map(pts[i].U, pts[i].V)
				b := pr.Workplane.Map(pts[(i+1)%len(pts)].U, pts[(i+1)%len(pts)].V)
				for j := 0; j < 3; j++ {
					a[j] += p.Offset[j]
					b[j] += p.Offset[j]
				}
				if _, err := d.Line(a[0], a[1], a[2], b[0], b[1], b[2]); err != nil {
					return fmt.Errorf("export dxf: part %q: %w", p.Name, err)
				}
				lines++
			}
		}
	}
	if lines == 0 {
		return fmt.Errorf("export dxf: no cross-sections to draw")
	}
	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("export dxf: %w", err)
	}
	return nil
}
