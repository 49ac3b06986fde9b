package component

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/chazu/torus/pkg/kernel"
	"github.com/chazu/torus/pkg/placement"
	"github.com/chazu/torus/pkg/profile"
	"github.com/chazu/torus/pkg/solid"
)

// Spec is the typed parameter set of one component kind. Specs are plain
// values; struct tags carry their YAML names and per-field rules.
type Spec interface {
	Kind() string
	// Dependencies lists the components whose extents Plan reads.
	Dependencies() []string
	// Plan turns the parameters into a sweep recipe. It may read the views
	// of declared dependencies from env.
	Plan(env *Env) (Plan, error)
}

// Checker is implemented by specs with rules that span several fields.
type Checker interface {
	Check() error
}

// Thickener is implemented by specs whose outline can be grown outward by
// a uniform thickness, producing the outline of a layer that wraps them.
type Thickener interface {
	Thicken(t float64) (Spec, error)
}

// Plan is what a spec asks the component to build.
type Plan struct {
	// Shape or Profiles supplies the wires; Shape wins when both are set.
	Shape    profile.Shape
	Profiles []profile.Profile

	Sweep   kernel.Sweep
	PostOps []solid.PostOp

	// Offset moves the swept template before placement.
	Offset [3]float64

	Placement *placement.Placement

	// Resolved is the spec with dependency-derived values filled in. It
	// is what dependents see; nil means the spec itself.
	Resolved Spec
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Spec{}
)

// Register makes a spec kind available to Lookup and DecodeSpec. The
// factory returns the kind's defaults. Registering a kind twice panics.
func Register(kind string, factory func() Spec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[kind]; dup {
		panic(fmt.Sprintf("component: kind %q registered twice", kind))
	}
	registry[kind] = factory
}

// Lookup returns the defaults of a registered kind.
func Lookup(kind string) (Spec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[kind]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Kinds returns the registered kinds in sorted order.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ErrUnknownKind is returned for a kind nobody registered.
var ErrUnknownKind = errors.New("unknown component kind")

// DecodeSpec builds a spec of the given kind from loosely typed params,
// starting from the kind's defaults. Unknown keys are rejected.
func DecodeSpec(kind string, params map[string]any) (Spec, error) {
	def, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownKind, kind, strings.Join(Kinds(), ", "))
	}
	raw, err := yaml.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding %s params: %w", kind, err)
	}
	return decodeInto(def, raw)
}

// DecodeSpecNode is DecodeSpec for an already parsed YAML mapping.
func DecodeSpecNode(kind string, node *yaml.Node) (Spec, error) {
	def, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownKind, kind, strings.Join(Kinds(), ", "))
	}
	if node == nil {
		return def, Validate(def)
	}
	raw, err := yaml.Marshal(node)
	if err != nil {
		return nil, err
	}
	return decodeInto(def, raw)
}

func decodeInto(def Spec, raw []byte) (Spec, error) {
	ptr := reflect.New(reflect.TypeOf(def))
	ptr.Elem().Set(reflect.ValueOf(def))

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(ptr.Interface()); err != nil && !errors.Is(err, io.EOF) {
		return nil, &profile.Error{Kind: profile.InvalidParameter, Index: -1,
			Msg: fmt.Sprintf("%s: %v", def.Kind(), err)}
	}
	spec := ptr.Elem().Interface().(Spec)
	if err := Validate(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// Snapshot returns the spec's parameters keyed by their YAML names.
func Snapshot(s Spec) map[string]any {
	if s == nil {
		return nil
	}
	raw, err := yaml.Marshal(s)
	if err != nil {
		return nil
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the field rules and then the spec's own Check. The first
// failure is reported as a profile InvalidParameter error naming the
// parameter.
func Validate(s Spec) error {
	if err := validate.Struct(s); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			fe := ves[0]
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			return &profile.Error{
				Kind:  profile.InvalidParameter,
				Param: fieldPath(fe.Namespace()),
				Index: -1,
				Msg:   fmt.Sprintf("%s: %v violates %s", s.Kind(), fe.Value(), rule),
			}
		}
		return err
	}
	if c, ok := s.(Checker); ok {
		return c.Check()
	}
	return nil
}

// fieldPath drops the struct name validator puts in front of a namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func invalid(kind, param, format string, args ...any) error {
	return &profile.Error{
		Kind:  profile.InvalidParameter,
		Param: param,
		Index: -1,
		Msg:   kind + ": " + fmt.Sprintf(format, args...),
	}
}

// PointSpec is one profile point as written in configuration.
type PointSpec struct {
	U      float64 `yaml:"u"`
	V      float64 `yaml:"v"`
	Edge   string  `yaml:"edge,omitempty" validate:"omitempty,oneof=straight spline arc arc-through circle"`
	Radius float64 `yaml:"radius,omitempty" validate:"gte=0"`
	Sense  string  `yaml:"sense,omitempty" validate:"omitempty,oneof=ccw cw"`
}

// P is shorthand for a PointSpec literal.
func P(u, v float64, edge string) PointSpec { return PointSpec{U: u, V: v, Edge: edge} }

func (p PointSpec) point() (profile.Point, error) {
	kind, err := profile.ParseEdgeKind(p.Edge)
	if err != nil {
		return profile.Point{}, err
	}
	pt := profile.Point{Vec2: profile.Vec2{U: p.U, V: p.V}, Edge: profile.Edge{Kind: kind}}
	if kind == profile.EdgeArc {
		pt.Edge.Radius = p.Radius
		if p.Sense == "cw" {
			pt.Edge.Sense = profile.CW
		}
	}
	return pt, nil
}

func polygon(wp profile.Workplane, pts []PointSpec) (profile.Polygon, error) {
	out := profile.Polygon{Workplane: wp, Points: make([]profile.Point, len(pts))}
	for i, p := range pts {
		pt, err := p.point()
		if err != nil {
			return profile.Polygon{}, &profile.Error{Kind: profile.InvalidParameter, Param: "points", Index: i, Msg: err.Error()}
		}
		out.Points[i] = pt
	}
	return out, nil
}

// Placing is the optional azimuthal placement shared by several kinds.
// Explicit angles win over a count.
type Placing struct {
	AzimuthAngles []float64 `yaml:"azimuth_angles,omitempty" validate:"omitempty,dive,min=-360,max=720"`
	Count         int       `yaml:"count,omitempty" validate:"gte=0"`
}

func (p Placing) placement() *placement.Placement {
	switch {
	case len(p.AzimuthAngles) > 0:
		pl := placement.AtAngles(profile.AxisZ, p.AzimuthAngles...)
		return &pl
	case p.Count > 0:
		pl := placement.Evenly(p.Count, profile.AxisZ)
		return &pl
	}
	return nil
}

func workplane(s string) profile.Workplane {
	wp, err := profile.ParseWorkplane(s)
	if err != nil {
		return profile.XZ
	}
	return wp
}
