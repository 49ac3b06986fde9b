package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"gopkg.in/yaml.v3"

	"github.com/chazu/torus/pkg/component"
	"github.com/chazu/torus/pkg/config"
	"github.com/chazu/torus/pkg/profile"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms reactor Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: rotation-angle -> rotation_angle
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpComponentRef is returned by `component` and `cutter` so a declared
// component can be passed wherever a name is expected.
type sexpComponentRef struct {
	name string
}

func (c *sexpComponentRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(component %q)", c.name)
}
func (c *sexpComponentRef) Type() *zygo.RegisteredType { return nil }

// sexpPoint wraps one profile point.
type sexpPoint struct {
	spec component.PointSpec
}

func (p *sexpPoint) SexpString(ps *zygo.PrintState) string {
	if p.spec.Edge == "" {
		return fmt.Sprintf("(pt %g %g)", p.spec.U, p.spec.V)
	}
	return fmt.Sprintf("(pt %g %g :%s)", p.spec.U, p.spec.V, p.spec.Edge)
}
func (p *sexpPoint) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument
// list. order keeps the keywords in source order.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
// Keywords named in flags never take a value; they and a keyword ending
// the list get SexpNull.
func parseArgs(args []zygo.Sexp, flags ...string) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	isFlag := func(name string) bool {
		for _, f := range flags {
			if f == name {
				return true
			}
		}
		return false
	}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if _, seen := result.kw[name]; !seen {
			result.order = append(result.order, name)
		}
		if i+1 < len(args) && !isFlag(name) {
			result.kw[name] = args[i+1]
			i += 2
			continue
		}
		result.kw[name] = zygo.SexpNull
		i++
	}
	return result
}

// take removes and returns a keyword argument.
func (a *kwArgs) take(name string) (zygo.Sexp, bool) {
	v, ok := a.kw[name]
	if ok {
		delete(a.kw, name)
	}
	return v, ok
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toBool accepts true/false, and treats a bare flag keyword as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toName accepts a string, keyword or component reference.
func toName(s zygo.Sexp) (string, error) {
	if ref, ok := s.(*sexpComponentRef); ok {
		return ref.name, nil
	}
	name, err := toKeywordString(s)
	if err != nil {
		return "", fmt.Errorf("expected component name: %w", err)
	}
	return name, nil
}

// toNames accepts a single name or a list or array of names.
func toNames(s zygo.Sexp) ([]string, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		n, nerr := toName(s)
		if nerr != nil {
			return nil, nerr
		}
		return []string{n}, nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		n, err := toName(it)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toValue converts a Sexp into a plain Go value for parameter decoding:
// numbers, strings, booleans, points and nested sequences of those.
func toValue(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return v.Val, nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpStr:
		return strings.TrimPrefix(v.S, kwPrefix), nil
	case *zygo.SexpBool:
		return v.Val, nil
	case *sexpPoint:
		return v.spec, nil
	case *sexpComponentRef:
		return v.name, nil
	case *zygo.SexpPair, *zygo.SexpArray:
		items, err := sexpListToSlice(s)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, it := range items {
			if out[i], err = toValue(it); err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value %T (%s)", s, s.SexpString(nil))
}

// Flag keywords of `recipe` and `pt`.
var (
	recipeKinds = []string{"cylinder", "column-study", "submersion"}
	edgeKinds   = []string{"straight", "spline", "arc", "arc-through", "circle"}
)

// paramName maps a DSL keyword to its YAML parameter name.
func paramName(kw string) string {
	return strings.ReplaceAll(kw, "-", "_")
}

// params converts the remaining keyword arguments into a parameter map.
func (a *kwArgs) params() (map[string]any, error) {
	out := make(map[string]any, len(a.kw))
	for _, k := range a.order {
		v, ok := a.kw[k]
		if !ok {
			continue
		}
		val, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[paramName(k)] = val
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

// builder accumulates the declarations of one evaluation.
type builder struct {
	file     *config.File
	named    bool
	seen     map[string]bool
	warnings []EvalWarning
}

func newBuilder() *builder {
	return &builder{
		file: &config.File{Name: "reactor"},
		seen: make(map[string]bool),
	}
}

// declared reports whether the program declared anything at all.
func (b *builder) declared() bool {
	return b.named || b.file.Recipe != nil || len(b.file.Components) > 0 || len(b.file.Outputs) > 0
}

func (b *builder) warn(comp, format string, args ...any) {
	b.warnings = append(b.warnings, EvalWarning{Component: comp, Message: fmt.Sprintf(format, args...)})
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the reactor DSL builtins into a zygomys
// environment. The builtins record their declarations in b.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (reactor "name" :rotation-angle 180 :parallel true)
	// -----------------------------------------------------------------------
	env.AddFunction("reactor", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("reactor requires a name")
		}
		n, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("reactor: name: %w", err)
		}
		if b.named {
			b.warn("", "reactor %q redeclared as %q", b.file.Name, n)
		}
		b.file.Name = n
		b.named = true

		if v, ok := pa.take("rotation-angle"); ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("reactor: rotation-angle: %w", err)
			}
			b.file.RotationAngle = f
		}
		if v, ok := pa.take("parallel"); ok {
			p, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("reactor: parallel: %w", err)
			}
			b.file.Parallel = p
		}
		for k := range pa.kw {
			return zygo.SexpNull, fmt.Errorf("reactor: unknown keyword :%s", k)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (component "shield" :center-column-hyperbola :material "tungsten"
	//            :cut [port] :height 800 :mid-radius 60)
	// (cutter "ports" :port-cutter-rectangular :azimuth-angles [45 135])
	// -----------------------------------------------------------------------
	declare := func(cutter bool) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args, component.Kinds()...)
			if len(pa.positional) < 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a name", name)
			}
			cname, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: name: %w", name, err)
			}
			if b.seen[cname] {
				return zygo.SexpNull, fmt.Errorf("%s %q declared twice", name, cname)
			}

			// The kind is either the keyword right after the name, or :kind.
			var kindArg zygo.Sexp
			if v, ok := pa.take("kind"); ok {
				kindArg = v
			} else if len(pa.positional) > 1 {
				kindArg = pa.positional[1]
			} else {
				for _, k := range pa.order {
					if _, known := component.Lookup(k); known && pa.kw[k] == zygo.SexpNull {
						kindArg = &zygo.SexpStr{S: k}
						delete(pa.kw, k)
						break
					}
				}
			}
			if kindArg == nil {
				return zygo.SexpNull, fmt.Errorf("%s %q: missing kind", name, cname)
			}
			kind, err := toKeywordString(kindArg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s %q: kind: %w", name, cname, err)
			}

			rec := config.Component{Name: cname, Kind: kind, Cutter: cutter}
			if v, ok := pa.take("material"); ok {
				if rec.Material, err = toKeywordString(v); err != nil {
					return zygo.SexpNull, fmt.Errorf("%s %q: material: %w", name, cname, err)
				}
			}
			if v, ok := pa.take("cutter"); ok {
				if rec.Cutter, err = toBool(v); err != nil {
					return zygo.SexpNull, fmt.Errorf("%s %q: cutter: %w", name, cname, err)
				}
			}
			for _, ref := range []struct {
				kw  string
				dst *[]string
			}{{"cut", &rec.Cut}, {"union", &rec.Union}, {"intersect", &rec.Intersect}} {
				if v, ok := pa.take(ref.kw); ok {
					if *ref.dst, err = toNames(v); err != nil {
						return zygo.SexpNull, fmt.Errorf("%s %q: %s: %w", name, cname, ref.kw, err)
					}
				}
			}

			params, err := pa.params()
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s %q: %w", name, cname, err)
			}
			spec, err := component.DecodeSpec(kind, params)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s %q: %w", name, cname, err)
			}
			if len(params) > 0 {
				if err := rec.Params.Encode(params); err != nil {
					return zygo.SexpNull, fmt.Errorf("%s %q: %w", name, cname, err)
				}
			}
			rec.SetSpec(spec)

			b.seen[cname] = true
			b.file.Components = append(b.file.Components, rec)
			return &sexpComponentRef{name: cname}, nil
		}
	}
	env.AddFunction("component", declare(false))
	env.AddFunction("cutter", declare(true))

	// -----------------------------------------------------------------------
	// (recipe :cylinder :blanket-thickness 80)
	// -----------------------------------------------------------------------
	env.AddFunction("recipe", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args, recipeKinds...)
		var kind string
		switch {
		case len(pa.positional) > 0:
			k, err := toKeywordString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("recipe: kind: %w", err)
			}
			kind = k
		case len(pa.order) > 0 && pa.kw[pa.order[0]] == zygo.SexpNull:
			kind = pa.order[0]
			delete(pa.kw, kind)
		default:
			return zygo.SexpNull, fmt.Errorf("recipe requires a kind")
		}
		if b.file.Recipe != nil {
			return zygo.SexpNull, fmt.Errorf("recipe declared twice")
		}

		params, err := pa.params()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("recipe %s: %w", kind, err)
		}
		r := &config.Recipe{Kind: kind}
		if len(params) > 0 {
			var node yaml.Node
			if err := node.Encode(params); err != nil {
				return zygo.SexpNull, fmt.Errorf("recipe %s: %w", kind, err)
			}
			r.Params = node
		}
		b.file.Recipe = r
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (output "out/sector.svg" :view :top)
	// -----------------------------------------------------------------------
	env.AddFunction("output", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("output requires a path")
		}
		path, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("output: path: %w", err)
		}
		out := config.Output{Path: path}
		if v, ok := pa.take("format"); ok {
			if out.Format, err = toKeywordString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("output: format: %w", err)
			}
		}
		if v, ok := pa.take("view"); ok {
			if out.View, err = toKeywordString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("output: view: %w", err)
			}
		}
		if _, _, err := out.Target(); err != nil {
			return zygo.SexpNull, fmt.Errorf("output %q: %w", path, err)
		}
		b.file.Outputs = append(b.file.Outputs, out)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (pt 100 0 :spline) (pt 300 200 :arc :radius 50 :sense :cw)
	// -----------------------------------------------------------------------
	env.AddFunction("pt", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args, edgeKinds...)
		if len(pa.positional) < 2 {
			return zygo.SexpNull, fmt.Errorf("pt requires u and v")
		}
		u, err := toFloat64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: u: %w", err)
		}
		v, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: v: %w", err)
		}
		p := component.PointSpec{U: u, V: v}
		if r, ok := pa.take("radius"); ok {
			if p.Radius, err = toFloat64(r); err != nil {
				return zygo.SexpNull, fmt.Errorf("pt: radius: %w", err)
			}
		}
		if s, ok := pa.take("sense"); ok {
			if p.Sense, err = toKeywordString(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("pt: sense: %w", err)
			}
		}
		for _, k := range pa.order {
			if _, ok := pa.kw[k]; ok {
				if pa.kw[k] != zygo.SexpNull {
					return zygo.SexpNull, fmt.Errorf("pt: unknown keyword :%s", k)
				}
				if p.Edge != "" {
					return zygo.SexpNull, fmt.Errorf("pt: more than one edge type (%s, %s)", p.Edge, k)
				}
				p.Edge = k
			}
		}
		if _, err := profile.ParseEdgeKind(p.Edge); err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: %w", err)
		}
		return &sexpPoint{spec: p}, nil
	})
}
