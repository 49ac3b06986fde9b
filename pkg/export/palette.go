package export

import (
	"fmt"
	"hash/fnv"
	"image/color"

	"github.com/chazu/torus/pkg/kernel"
)

var palette = []color.RGBA{
	{0x4e, 0x79, 0xa7, 0xff},
	{0xf2, 0x8e, 0x2b, 0xff},
	{0xe1, 0x57, 0x59, 0xff},
	{0x76, 0xb7, 0xb2, 0xff},
	{0x59, 0xa1, 0x4f, 0xff},
	{0xed, 0xc9, 0x48, 0xff},
	{0xb0, 0x7a, 0xa1, 0xff},
	{0xff, 0x9d, 0xa7, 0xff},
	{0x9c, 0x75, 0x5f, 0xff},
	{0xba, 0xb0, 0xac, 0xff},
}

// colorKey groups parts by material, falling back to the part name.
func colorKey(name, material string) string {
	if material != "" {
		return material
	}
	return name
}

func paletteIndex(key string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

// colorFor returns a stable color for a material or part name.
func colorFor(key string) color.RGBA {
	return palette[paletteIndex(key, len(palette))]
}

func meshColor(m *kernel.Mesh) color.RGBA {
	return colorFor(colorKey(m.PartName, m.Material))
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func shade(c color.RGBA, f float64) color.RGBA {
	scale := func(v uint8) uint8 { return uint8(float64(v)*f + 0.5) }
	return color.RGBA{scale(c.R), scale(c.G), scale(c.B), c.A}
}

// triangleNormal returns the stored normal of the first corner of
// triangle i, or a zero vector when the mesh has no normals.
func triangleNormal(m *kernel.Mesh, i int) [3]float32 {
	v := int(m.Indices[i*3]) * 3
	if v+2 >= len(m.Normals) {
		return [3]float32{}
	}
	return [3]float32{m.Normals[v], m.Normals[v+1], m.Normals[v+2]}
}

// Color returns the display color of m as a CSS hex string. Parts of the
// same material share a color.
func Color(m *kernel.Mesh) string {
	return hexColor(meshColor(m))
}
