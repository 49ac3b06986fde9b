package engine

import (
	"strings"
	"testing"

	"github.com/chazu/torus/pkg/component"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(reactor "r" :parallel true)`,
			expect: `(reactor "r" "__kw_parallel" true)`,
		},
		{
			name:   "multiple keywords",
			input:  `(pf-coil :width 100 :height 50)`,
			expect: `(pf_coil "__kw_width" 100 "__kw_height" 50)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def blanket-gap 20)`,
			expect: `(def blanket_gap 20)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:mid-radius`,
			expect: `"__kw_mid-radius"`,
		},
		{
			name:   "kind string preserved",
			input:  `(component "cc" "center-column-cylinder")`,
			expect: `(component "cc" "center-column-cylinder")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// evaluate runs source and fails the test on any error.
func evaluate(t *testing.T, source string) EvalResult {
	t.Helper()
	res, err := NewEngine().EvaluateResult(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	if res.File == nil {
		t.Fatal("expected non-nil file")
	}
	return res
}

// evalErrors runs source and returns its eval errors, failing on a fatal
// error.
func evalErrors(t *testing.T, source string) []EvalError {
	t.Helper()
	f, errs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(errs) > 0 && f != nil {
		t.Error("expected nil file alongside eval errors")
	}
	return errs
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func TestReactorDeclaration(t *testing.T) {
	res := evaluate(t, `
(reactor "sector" :rotation-angle 180 :parallel true)
(component "shield" :center-column-cylinder :inner-radius 20 :outer-radius 60)
`)
	f := res.File
	if f.Name != "sector" {
		t.Errorf("name = %q, want sector", f.Name)
	}
	if f.RotationAngle != 180 {
		t.Errorf("rotation angle = %g, want 180", f.RotationAngle)
	}
	if !f.Parallel {
		t.Error("expected parallel build")
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestComponentParams(t *testing.T) {
	res := evaluate(t, `
(def gap 20)
(component "shield" :center-column-hyperbola :material "tungsten"
  :height 800 :mid-radius 60)
(component "blanket" :center-column-cylinder :material :lithium-lead
  :after "shield" :gap (* 2 gap) :inner-radius 0 :outer-radius 50)
`)
	comps := res.File.Components
	if len(comps) != 2 {
		t.Fatalf("expected 2 components, got %d", len(comps))
	}

	shield, ok := comps[0].Spec().(component.CenterColumnHyperbola)
	if !ok {
		t.Fatalf("expected CenterColumnHyperbola, got %T", comps[0].Spec())
	}
	if shield.Height != 800 || shield.MidRadius != 60 {
		t.Errorf("shield = %+v", shield)
	}
	def := component.DefaultCenterColumnHyperbola()
	if shield.OuterRadius != def.OuterRadius {
		t.Errorf("outer radius = %g, want default %g", shield.OuterRadius, def.OuterRadius)
	}
	if comps[0].Material != "tungsten" {
		t.Errorf("material = %q", comps[0].Material)
	}

	blanket := comps[1].Spec().(component.CenterColumnCylinder)
	if blanket.After != "shield" || blanket.Gap != 40 {
		t.Errorf("blanket anchor = %q + %g, want shield + 40", blanket.After, blanket.Gap)
	}
	if comps[1].Material != "lithium-lead" {
		t.Errorf("material = %q", comps[1].Material)
	}
}

func TestKindSpellings(t *testing.T) {
	for _, src := range []string{
		`(component "c" :pf-coil :width 10)`,
		`(component "c" :kind "pf-coil" :width 10)`,
		`(component "c" "pf-coil" :width 10)`,
		`(component "c" :width 10 :pf-coil)`,
	} {
		t.Run(src, func(t *testing.T) {
			res := evaluate(t, src)
			c := res.File.Components[0]
			if c.Kind != "pf-coil" {
				t.Errorf("kind = %q", c.Kind)
			}
			if got := c.Spec().(component.PFCoil).Width; got != 10 {
				t.Errorf("width = %g, want 10", got)
			}
		})
	}
}

func TestCutterAndReferences(t *testing.T) {
	res := evaluate(t, `
(def port (cutter "port" :port-cutter-rectangular :azimuth-angles [45 135]))
(component "lid" :pf-coil)
(component "blanket" :center-column-cylinder :cut [port] :union "lid")
`)
	comps := res.File.Components
	if len(comps) != 3 {
		t.Fatalf("expected 3 components, got %d", len(comps))
	}
	if !comps[0].Cutter {
		t.Error("port should be a cutter")
	}
	angles := comps[0].Spec().(component.PortCutterRectangular).AzimuthAngles
	if len(angles) != 2 || angles[0] != 45 || angles[1] != 135 {
		t.Errorf("azimuth angles = %v", angles)
	}
	if got := comps[2].Cut; len(got) != 1 || got[0] != "port" {
		t.Errorf("cut = %v, want [port]", got)
	}
	if got := comps[2].Union; len(got) != 1 || got[0] != "lid" {
		t.Errorf("union = %v, want [lid]", got)
	}
}

func TestPoints(t *testing.T) {
	res := evaluate(t, `
(component "arch" :polygon-rotate
  :points [(pt 100 0) (pt 200 100 :spline) (pt 300 0 :arc :radius 150 :sense :cw) (pt 200 -100)])
`)
	spec := res.File.Components[0].Spec().(component.PolygonRotate)
	if len(spec.Points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(spec.Points))
	}
	want := []component.PointSpec{
		{U: 100, V: 0},
		{U: 200, V: 100, Edge: "spline"},
		{U: 300, V: 0, Edge: "arc", Radius: 150, Sense: "cw"},
		{U: 200, V: -100},
	}
	for i, w := range want {
		if spec.Points[i] != w {
			t.Errorf("point %d = %+v, want %+v", i, spec.Points[i], w)
		}
	}
}

func TestRecipeDeclaration(t *testing.T) {
	res := evaluate(t, `
(reactor "cyl")
(recipe :cylinder :blanket-thickness 80)
`)
	r := res.File.Recipe
	if r == nil || r.Kind != "cylinder" {
		t.Fatalf("recipe = %+v", r)
	}
	reactor, err := res.File.Reactor()
	if err != nil {
		t.Fatalf("Reactor: %v", err)
	}
	if n := len(reactor.Components()); n != 6 {
		t.Errorf("expected 6 components, got %d", n)
	}
}

func TestOutputs(t *testing.T) {
	res := evaluate(t, `
(component "c" :pf-coil)
(output "out/c.stl")
(output "out/c.svg" :view :top)
`)
	outs := res.File.Outputs
	if len(outs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(outs))
	}
	if outs[1].View != "top" {
		t.Errorf("view = %q, want top", outs[1].View)
	}
}

func TestRedeclaredReactorWarns(t *testing.T) {
	res := evaluate(t, `
(reactor "a")
(reactor "b")
(component "c" :pf-coil)
`)
	if res.File.Name != "b" {
		t.Errorf("name = %q, want the last declaration", res.File.Name)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", res.Warnings)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestDeclarationErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"unknown kind", `(component "c" :kind "stellarator")`, "unknown component kind"},
		{"missing kind", `(component "c" :width 10)`, "missing kind"},
		{"unknown param", `(component "c" :pf-coil :colour 3)`, "colour"},
		{"out of range", `(component "c" :pf-coil :width -1)`, "width"},
		{"duplicate", `(component "c" :pf-coil) (component "c" :pf-coil)`, "declared twice"},
		{"bad edge", `(pt 1 2 :wiggly)`, "invalid edge type"},
		{"two edges", `(pt 1 2 :spline :arc)`, "more than one edge"},
		{"bad output", `(output "c.step")`, "unknown export format"},
		{"reactor keyword", `(reactor "r" :speed 3)`, "unknown keyword"},
		{"no components", `(reactor "r")`, "no components"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := evalErrors(t, tt.source)
			if len(errs) == 0 {
				t.Fatal("expected eval errors")
			}
			if !strings.Contains(errs[0].Message, tt.want) {
				t.Errorf("error %q does not mention %q", errs[0].Message, tt.want)
			}
		})
	}
}

func TestEmptySourceStillWorks(t *testing.T) {
	res := evaluate(t, "")
	if len(res.File.Components) != 0 {
		t.Errorf("expected no components, got %d", len(res.File.Components))
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	res := evaluate(t, `
(def inner 100)
(def thickness (+ 10 (* 2 5)))
(component "vv" :vacuum-vessel :inner-radius inner :thickness thickness :height (/ 600 2))
`)
	vv := res.File.Components[0].Spec().(component.VacuumVessel)
	if vv.InnerRadius != 100 || vv.Thickness != 20 || vv.Height != 300 {
		t.Errorf("vessel = %+v", vv)
	}
}
