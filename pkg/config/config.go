// Package config reads reactor descriptions from YAML.
//
// A file names the reactor, its rotation angle and either a parametric
// recipe or an explicit component list. Component parameters are decoded
// into the typed spec of their kind, starting from that kind's defaults;
// unknown keys anywhere in the file are rejected.
//
//	name: sector
//	rotation_angle: 180
//	components:
//	  - name: shield
//	    kind: center-column-hyperbola
//	    material: tungsten
//	    params:
//	      height: 800
//	      mid_radius: 60
//	  - name: ports
//	    kind: port-cutter-rectangular
//	    cutter: true
//	    params:
//	      azimuth_angles: [45, 135]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/chazu/torus/pkg/component"
	"github.com/chazu/torus/pkg/export"
	"github.com/chazu/torus/pkg/reactor"
)

// MaxFileSize bounds the size of a configuration file.
const MaxFileSize = 4 << 20

// File is a parsed reactor description.
type File struct {
	Name          string      `yaml:"name" validate:"required"`
	RotationAngle float64     `yaml:"rotation_angle" validate:"gte=0,lte=360"`
	Parallel      bool        `yaml:"parallel"`
	Recipe        *Recipe     `yaml:"recipe,omitempty"`
	Components    []Component `yaml:"components,omitempty" validate:"dive"`
	Outputs       []Output    `yaml:"outputs,omitempty" validate:"dive"`
}

// Recipe selects one of the parametric reactors in package reactor.
type Recipe struct {
	Kind   string    `yaml:"kind" validate:"required,oneof=cylinder column-study submersion"`
	Params yaml.Node `yaml:"params,omitempty"`
}

// Component is one component record. Params holds the kind-specific
// parameters and is decoded by Spec.
type Component struct {
	Name      string    `yaml:"name" validate:"required"`
	Kind      string    `yaml:"kind" validate:"required"`
	Cutter    bool      `yaml:"cutter,omitempty"`
	Material  string    `yaml:"material,omitempty"`
	Cut       []string  `yaml:"cut,omitempty" validate:"dive,required"`
	Union     []string  `yaml:"union,omitempty" validate:"dive,required"`
	Intersect []string  `yaml:"intersect,omitempty" validate:"dive,required"`
	Params    yaml.Node `yaml:"params,omitempty"`

	spec component.Spec
}

// Output asks for the built reactor to be written to Path. Format defaults
// to the extension of Path.
type Output struct {
	Path   string `yaml:"path" validate:"required"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=stl 3mf svg dxf html"`
	View   string `yaml:"view,omitempty" validate:"omitempty,oneof=side top front"`
}

// Error reports a configuration problem, naming the component record when
// there is one.
type Error struct {
	Component string
	Err       error
}

func (e *Error) Error() string {
	if e.Component == "" {
		return "config: " + e.Err.Error()
	}
	return fmt.Sprintf("config: component %q: %v", e.Component, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

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

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, &Error{Err: fmt.Errorf("%s is too large: %d bytes (max %d)", path, info.Size(), MaxFileSize)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a reactor description, checks it and decodes every
// component's parameters.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &Error{Err: errors.New("empty configuration")}
		}
		return nil, &Error{Err: err}
	}
	if err := f.Check(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Check validates the file and decodes the component parameters. Parse
// calls it; callers building a File by hand call it before Reactor.
func (f *File) Check() error {
	if err := validate.Struct(f); err != nil {
		return &Error{Err: err}
	}
	if f.Recipe != nil && len(f.Components) > 0 {
		return &Error{Err: errors.New("recipe and components are mutually exclusive")}
	}
	if f.Recipe == nil && len(f.Components) == 0 {
		return &Error{Err: errors.New("no components")}
	}

	seen := make(map[string]bool, len(f.Components))
	for i := range f.Components {
		c := &f.Components[i]
		if seen[c.Name] {
			return &Error{Component: c.Name, Err: errors.New("duplicate component name")}
		}
		seen[c.Name] = true

		var node *yaml.Node
		if !c.Params.IsZero() {
			node = &c.Params
		}
		spec, err := component.DecodeSpecNode(c.Kind, node)
		if err != nil {
			return &Error{Component: c.Name, Err: err}
		}
		c.spec = spec
	}
	if f.Recipe != nil {
		if _, err := f.recipe(); err != nil {
			return err
		}
	}
	return nil
}

// Spec returns the decoded parameters of c. It is nil until the owning
// File has been checked.
func (c *Component) Spec() component.Spec { return c.spec }

// SetSpec replaces the decoded parameters, e.g. for records built in code.
func (c *Component) SetSpec(s component.Spec) { c.spec = s }

// Reactor instantiates the described reactor. opts are applied after the
// file's own settings.
func (f *File) Reactor(opts ...reactor.Option) (*reactor.Reactor, error) {
	base := []reactor.Option{reactor.WithParallel(f.Parallel)}
	if f.RotationAngle > 0 {
		base = append(base, reactor.WithRotationAngle(f.RotationAngle))
	}
	opts = append(base, opts...)

	if f.Recipe != nil {
		build, err := f.recipe()
		if err != nil {
			return nil, err
		}
		r, err := build(opts...)
		if err != nil {
			return nil, &Error{Err: err}
		}
		r.Name = f.Name
		return r, nil
	}

	r := reactor.New(f.Name, opts...)
	for i := range f.Components {
		c := &f.Components[i]
		if c.spec == nil {
			return nil, &Error{Component: c.Name, Err: errors.New("parameters not decoded")}
		}
		comp := component.New(c.Name, c.spec,
			component.WithMaterial(c.Material),
			component.WithCut(c.Cut...),
			component.WithUnion(c.Union...),
			component.WithIntersect(c.Intersect...),
		)
		if c.Cutter {
			r.AddCutter(comp)
		} else {
			r.Add(comp)
		}
	}
	return r, nil
}

type recipeFunc func(opts ...reactor.Option) (*reactor.Reactor, error)

// recipe decodes the recipe parameters over the recipe defaults. The
// file's rotation angle wins over a recipe default when it is set.
func (f *File) recipe() (recipeFunc, error) {
	switch f.Recipe.Kind {
	case "cylinder":
		p := reactor.DefaultCylinderParams()
		if err := decodeParams(&f.Recipe.Params, &p); err != nil {
			return nil, &Error{Err: fmt.Errorf("cylinder recipe: %w", err)}
		}
		if f.RotationAngle > 0 {
			p.RotationAngle = f.RotationAngle
		}
		return func(opts ...reactor.Option) (*reactor.Reactor, error) {
			return reactor.CylinderReactor(p, opts...)
		}, nil
	case "column-study":
		p := reactor.DefaultColumnStudyParams()
		if err := decodeParams(&f.Recipe.Params, &p); err != nil {
			return nil, &Error{Err: fmt.Errorf("column-study recipe: %w", err)}
		}
		if f.RotationAngle > 0 {
			p.RotationAngle = f.RotationAngle
		}
		return func(opts ...reactor.Option) (*reactor.Reactor, error) {
			return reactor.ColumnStudyReactor(p, opts...)
		}, nil
	case "submersion":
		p := reactor.DefaultSubmersionParams()
		if err := decodeParams(&f.Recipe.Params, &p); err != nil {
			return nil, &Error{Err: fmt.Errorf("submersion recipe: %w", err)}
		}
		if f.RotationAngle > 0 {
			p.RotationAngle = f.RotationAngle
		}
		return func(opts ...reactor.Option) (*reactor.Reactor, error) {
			return reactor.SubmersionReactor(p, opts...)
		}, nil
	}
	return nil, &Error{Err: fmt.Errorf("unknown recipe %q", f.Recipe.Kind)}
}

func decodeParams(node *yaml.Node, into any) error {
	if node.IsZero() {
		return nil
	}
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(into); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Target returns the export format and SVG view of o.
func (o Output) Target() (export.Format, export.View, error) {
	var (
		f   export.Format
		err error
	)
	if o.Format != "" {
		f, err = export.ParseFormat(o.Format)
	} else {
		f, err = export.FormatFor(o.Path)
	}
	if err != nil {
		return 0, 0, &Error{Err: err}
	}
	v := export.Side
	if o.View != "" {
		if v, err = export.ParseView(o.View); err != nil {
			return 0, 0, &Error{Err: err}
		}
	}
	return f, v, nil
}
