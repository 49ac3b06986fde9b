// Package placement replicates a solid at azimuthal angles about an axis.
package placement

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/profile"
	"github.com/chazu/torus/pkg/solid"
)

// Placement is either an explicit ordered list of angles in degrees or a
// count of evenly spaced copies. Angles wins when both are set.
type Placement struct {
	Angles []float64
	Count  int
	Axis   profile.Axis
}

// Evenly places n copies at i*360/n about axis.
func Evenly(n int, axis profile.Axis) Placement {
	return Placement{Count: n, Axis: axis}
}

// AtAngles places one copy per angle, in order.
func AtAngles(axis profile.Axis, angles ...float64) Placement {
	return Placement{Angles: append([]float64(nil), angles...), Axis: axis}
}

// Instance is one positioned copy of a template solid.
type Instance struct {
	Index  int
	Angle  float64
	Solid  kernel.Solid
	Center [3]float64
}

// Warning flags a placement that is legal but probably unintended.
type Warning struct {
	Index   int
	Message string
}

func (w Warning) String() string { return fmt.Sprintf("instance %d: %s", w.Index, w.Message) }

// ErrInvalid is wrapped by every placement validation error.
var ErrInvalid = errors.New("invalid placement")

// angleTol is the distance in degrees under which two placement angles
// are considered the same.
const angleTol = 1e-9

// Resolve returns the ordered angles of p plus a warning for every angle
// that repeats an earlier one modulo 360.
func (p Placement) Resolve() ([]float64, []Warning, error) {
	var angles []float64
	switch {
	case len(p.Angles) > 0:
		for i, a := range p.Angles {
			if math.IsNaN(a) || math.IsInf(a, 0) {
				return nil, nil, fmt.Errorf("%w: angle %d is %g", ErrInvalid, i, a)
			}
		}
		angles = append(angles, p.Angles...)
	case p.Count >= 1:
		angles = make([]float64, p.Count)
		step := 360 / float64(p.Count)
		for i := range angles {
			angles[i] = float64(i) * step
		}
	default:
		return nil, nil, fmt.Errorf("%w: count %d must be at least 1", ErrInvalid, p.Count)
	}
	switch p.Axis {
	case profile.AxisX, profile.AxisY, profile.AxisZ:
	default:
		return nil, nil, fmt.Errorf("%w: unknown axis %v", ErrInvalid, p.Axis)
	}

	var warnings []Warning
	for i := range angles {
		for j := 0; j < i; j++ {
			if sameAngle(angles[i], angles[j]) {
				warnings = append(warnings, Warning{
					Index:   i,
					Message: fmt.Sprintf("angle %g coincides with instance %d (%g)", angles[i], j, angles[j]),
				})
				break
			}
		}
	}
	return angles, warnings, nil
}

func sameAngle(a, b float64) bool {
	d := math.Mod(math.Abs(a-b), 360)
	return d <= angleTol || 360-d <= angleTol
}

// Apply rotates the template into every placement angle. Copies are
// independent kernel solids; coincident copies are kept and reported.
func Apply(k kernel.Kernel, template *solid.Solid, p Placement) ([]Instance, []Warning, error) {
	if template == nil {
		return nil, nil, fmt.Errorf("%w: nil template", ErrInvalid)
	}
	angles, warnings, err := p.Resolve()
	if err != nil {
		return nil, nil, err
	}
	min, max := template.BoundingBox()
	var c [3]float64
	for i := range c {
		c[i] = (min[i] + max[i]) / 2
	}

	out := make([]Instance, len(angles))
	for i, a := range angles {
		body := template.Body()
		if math.Mod(a, 360) != 0 {
			body = k.Rotate(body, p.Axis, a)
		}
		out[i] = Instance{
			Index:  i,
			Angle:  a,
			Solid:  body,
			Center: RotatePoint(c, p.Axis, a),
		}
	}
	return out, warnings, nil
}

// RotatePoint rotates q about a world axis by degrees, counter-clockwise
// when looking down the axis.
func RotatePoint(q [3]float64, axis profile.Axis, degrees float64) [3]float64 {
	r := degrees * math.Pi / 180
	sin, cos := math.Sin(r), math.Cos(r)
	x, y, z := q[0], q[1], q[2]
	switch axis {
	case profile.AxisX:
		return [3]float64{x, y*cos - z*sin, y*sin + z*cos}
	case profile.AxisY:
		return [3]float64{x*cos + z*sin, y, -x*sin + z*cos}
	}
	return [3]float64{x*cos - y*sin, x*sin + y*cos, z}
}

// Gaps returns the angular gaps between consecutive sorted angles,
// including the wrap-around gap, normalised to [0, 360).
func Gaps(angles []float64) []float64 {
	if len(angles) == 0 {
		return nil
	}
	norm := make([]float64, len(angles))
	for i, a := range angles {
		norm[i] = math.Mod(math.Mod(a, 360)+360, 360)
	}
	sort.Float64s(norm)
	gaps := make([]float64, len(norm))
	for i := range norm {
		next := norm[(i+1)%len(norm)]
		if i == len(norm)-1 {
			next += 360
		}
		gaps[i] = next - norm[i]
	}
	return gaps
}
