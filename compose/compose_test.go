package compose

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/varglyph"
)

// mapResolver serves glyphs from a map. Lookups for names in delays block
// first, to let tests force completion order.
type mapResolver struct {
	glyphs map[string]*varglyph.VariableGlyph
	delays map[string]time.Duration
	errs   map[string]error
}

func (r *mapResolver) GetGlyph(ctx context.Context, name string) (*varglyph.VariableGlyph, error) {
	if d := r.delays[name]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := r.errs[name]; err != nil {
		return nil, err
	}
	return r.glyphs[name], nil
}

func squarePath(side float64) varglyph.PackedPath {
	return varglyph.PackedPath{
		Coordinates: []float64{0, 0, side, 0, side, side, 0, side},
		PointTypes: []varglyph.PointType{
			varglyph.PointOnCurve, varglyph.PointOnCurve,
			varglyph.PointOnCurve, varglyph.PointOnCurve,
		},
		ContourInfo: []varglyph.ContourInfo{{EndPoint: 3, IsClosed: true}},
	}
}

// simpleGlyph is a single-source glyph with a square outline of the given
// side and the given components.
func simpleGlyph(name string, side float64, components ...varglyph.Component) *varglyph.VariableGlyph {
	g := varglyph.StaticGlyph{XAdvance: side, Components: components}
	if side > 0 {
		g.Path = squarePath(side)
	}
	return &varglyph.VariableGlyph{
		Name:    name,
		Sources: []varglyph.Source{{Name: "default", LayerName: "default"}},
		Layers:  map[string]varglyph.Layer{"default": {Glyph: g}},
	}
}

func component(name string, translateX, translateY float64) varglyph.Component {
	t := varglyph.IdentityTransform()
	t.TranslateX = translateX
	t.TranslateY = translateY
	return varglyph.Component{Name: name, Transformation: t}
}

func TestInstantiateComposite(t *testing.T) {
	r := &mapResolver{glyphs: map[string]*varglyph.VariableGlyph{
		"a":         simpleGlyph("a", 100),
		"dieresis":  simpleGlyph("dieresis", 40),
		"adieresis": simpleGlyph("adieresis", 0, component("a", 0, 0), component("dieresis", 0, 500)),
	}}
	cp := New(r, nil)

	got, err := cp.Instantiate(context.Background(), "adieresis", varglyph.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", got.Diagnostics)
	}
	if len(got.Components) != 2 {
		t.Fatalf("got %d components, want 2", len(got.Components))
	}

	// The dieresis branch is its default outline translated by (0, 500).
	dieresis := squarePath(40)
	want := dieresis.Transform(varglyph.Translate(0, 500))
	if diff := cmp.Diff(want, got.Components[1].Path); diff != "" {
		t.Errorf("dieresis branch mismatch (-want +got):\n%s", diff)
	}

	// The flattened outline is a's contour followed by the translated
	// dieresis contour.
	flat := squarePath(100)
	flat.AppendPath(want)
	if diff := cmp.Diff(&flat, got.Path); diff != "" {
		t.Errorf("flattened outline mismatch (-want +got):\n%s", diff)
	}

	bounds, ok := got.Bounds()
	if !ok {
		t.Fatal("Bounds() reported empty geometry")
	}
	wantBounds := varglyph.Rect{MinX: 0, MinY: 0, MaxX: 100, MaxY: 540}
	if bounds != wantBounds {
		t.Errorf("Bounds() = %+v, want %+v", bounds, wantBounds)
	}
}

func TestDeclarationOrderUnderConcurrency(t *testing.T) {
	// A resolves last but must still be concatenated first.
	r := &mapResolver{
		glyphs: map[string]*varglyph.VariableGlyph{
			"A":    simpleGlyph("A", 10),
			"B":    simpleGlyph("B", 20),
			"root": simpleGlyph("root", 0, component("A", 0, 0), component("B", 0, 0)),
		},
		delays: map[string]time.Duration{"A": 30 * time.Millisecond},
	}
	cp := New(r, nil, WithConcurrency(8))

	got, err := cp.Instantiate(context.Background(), "root", varglyph.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Components[0].Name != "A" || got.Components[1].Name != "B" {
		t.Fatalf("component order = %s, %s; want A, B",
			got.Components[0].Name, got.Components[1].Name)
	}
	// First contour is A's square (side 10), second is B's (side 20).
	if got.Path.Coordinates[2] != 10 {
		t.Errorf("first contour is not A's: %v", got.Path.Coordinates[:8])
	}
	if got.Path.Coordinates[10] != 20 {
		t.Errorf("second contour is not B's: %v", got.Path.Coordinates[8:16])
	}
}

func TestMissingComponentIsContained(t *testing.T) {
	r := &mapResolver{glyphs: map[string]*varglyph.VariableGlyph{
		"a":    simpleGlyph("a", 100),
		"b":    simpleGlyph("b", 50),
		"root": simpleGlyph("root", 0, component("a", 0, 0), component("nope", 0, 0), component("b", 0, 0)),
	}}
	cp := New(r, nil)

	got, err := cp.Instantiate(context.Background(), "root", varglyph.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(got.Diagnostics), got.Diagnostics)
	}
	var uerr *varglyph.UnresolvedComponentError
	if !errors.As(got.Diagnostics[0], &uerr) {
		t.Fatalf("diagnostic = %v, want UnresolvedComponentError", got.Diagnostics[0])
	}
	if uerr.Parent != "root" || uerr.Component != "nope" {
		t.Errorf("diagnostic names %s/%s, want root/nope", uerr.Parent, uerr.Component)
	}

	// The failed branch contributes empty geometry; siblings are intact and
	// keep their declared positions.
	if !got.Components[1].Path.IsEmpty() {
		t.Error("failed branch has geometry")
	}
	if got.Components[0].Path.IsEmpty() || got.Components[2].Path.IsEmpty() {
		t.Error("sibling branches were dropped")
	}
	if n := got.Path.NumPoints(); n != 8 {
		t.Errorf("flattened outline has %d points, want 8", n)
	}
}

func TestCycleDetection(t *testing.T) {
	r := &mapResolver{glyphs: map[string]*varglyph.VariableGlyph{
		"X": simpleGlyph("X", 100, component("Y", 0, 0)),
		"Y": simpleGlyph("Y", 50, component("X", 0, 0)),
	}}
	cp := New(r, nil)

	got, err := cp.Instantiate(context.Background(), "X", varglyph.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(got.Diagnostics), got.Diagnostics)
	}
	var cerr *varglyph.CyclicComponentError
	if !errors.As(got.Diagnostics[0], &cerr) {
		t.Fatalf("diagnostic = %v, want CyclicComponentError", got.Diagnostics[0])
	}
	if diff := cmp.Diff([]string{"X", "Y", "X"}, cerr.Path); diff != "" {
		t.Errorf("cycle path mismatch (-want +got):\n%s", diff)
	}

	// X's own outline and Y's outline survive; only the back-reference is
	// cut.
	if n := got.Path.NumPoints(); n != 8 {
		t.Errorf("flattened outline has %d points, want 8", n)
	}
}

func TestSelfReference(t *testing.T) {
	r := &mapResolver{glyphs: map[string]*varglyph.VariableGlyph{
		"X": simpleGlyph("X", 100, component("X", 0, 0)),
	}}
	cp := New(r, nil)

	got, err := cp.Instantiate(context.Background(), "X", varglyph.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if varglyph.KindOf(got.Diagnostics[0]) != varglyph.KindCycle {
		t.Errorf("diagnostic kind = %v, want KindCycle", varglyph.KindOf(got.Diagnostics[0]))
	}
}

func TestResolverErrorIsContained(t *testing.T) {
	r := &mapResolver{
		glyphs: map[string]*varglyph.VariableGlyph{
			"root": simpleGlyph("root", 100, component("broken", 0, 0)),
		},
		errs: map[string]error{"broken": errors.New("backend unavailable")},
	}
	cp := New(r, nil)

	got, err := cp.Instantiate(context.Background(), "root", varglyph.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if varglyph.KindOf(got.Diagnostics[0]) != varglyph.KindUnresolvedComponent {
		t.Errorf("diagnostic kind = %v, want KindUnresolvedComponent", varglyph.KindOf(got.Diagnostics[0]))
	}
	if n := got.Path.NumPoints(); n != 4 {
		t.Errorf("flattened outline has %d points, want the root square only", n)
	}
}

func TestRootErrors(t *testing.T) {
	r := &mapResolver{
		glyphs: map[string]*varglyph.VariableGlyph{},
		errs:   map[string]error{"broken": errors.New("backend unavailable")},
	}
	cp := New(r, nil)

	if _, err := cp.Instantiate(context.Background(), "missing", varglyph.Location{}); err == nil {
		t.Error("unknown root glyph should fail")
	} else if varglyph.KindOf(err) != varglyph.KindUnresolvedComponent {
		t.Errorf("error kind = %v, want KindUnresolvedComponent", varglyph.KindOf(err))
	}

	if _, err := cp.Instantiate(context.Background(), "broken", varglyph.Location{}); err == nil {
		t.Error("root resolver error should propagate")
	}
}

func TestNestedTransformsCompose(t *testing.T) {
	r := &mapResolver{glyphs: map[string]*varglyph.VariableGlyph{
		"base":  simpleGlyph("base", 10),
		"mid":   simpleGlyph("mid", 0, component("base", 10, 0)),
		"outer": simpleGlyph("outer", 0, component("mid", 100, 0)),
	}}
	cp := New(r, nil)

	got, err := cp.Instantiate(context.Background(), "outer", varglyph.Location{})
	if err != nil {
		t.Fatal(err)
	}
	// base's square ends up translated by the composed (110, 0).
	base := squarePath(10)
	want := base.Transform(varglyph.Translate(110, 0))
	if diff := cmp.Diff(want, got.Path); diff != "" {
		t.Errorf("composed outline mismatch (-want +got):\n%s", diff)
	}

	nested := got.Components[0].Components[0]
	if nested.Name != "base" {
		t.Fatalf("nested component = %q, want base", nested.Name)
	}
	if p := nested.Transform.TransformPoint(varglyph.Pt(0, 0)); p != varglyph.Pt(110, 0) {
		t.Errorf("composed transform maps origin to %v, want (110, 0)", p)
	}
}

func TestComponentLocationOverridesInherited(t *testing.T) {
	base := &varglyph.VariableGlyph{
		Name: "base",
		Sources: []varglyph.Source{
			{Name: "Regular", LayerName: "regular"},
			{Name: "Bold", LayerName: "bold", Location: varglyph.Location{"wght": 900}},
		},
		Layers: map[string]varglyph.Layer{
			"regular": {Glyph: varglyph.StaticGlyph{Path: squarePath(100), XAdvance: 100}},
			"bold":    {Glyph: varglyph.StaticGlyph{Path: squarePath(200), XAdvance: 200}},
		},
	}
	pinned := component("base", 0, 0)
	pinned.Location = varglyph.Location{"wght": 900}
	r := &mapResolver{glyphs: map[string]*varglyph.VariableGlyph{
		"base":     base,
		"inherits": simpleGlyph("inherits", 0, component("base", 0, 0)),
		"pinsbold": simpleGlyph("pinsbold", 0, pinned),
	}}
	axes := []varglyph.Axis{{Name: "wght", Minimum: 400, Default: 400, Maximum: 900}}
	cp := New(r, axes)

	loc := varglyph.Location{"wght": 650}

	got, err := cp.Instantiate(context.Background(), "inherits", loc)
	if err != nil {
		t.Fatal(err)
	}
	if got.Path.Coordinates[2] != 150 {
		t.Errorf("inherited location: side = %g, want 150", got.Path.Coordinates[2])
	}

	got, err = cp.Instantiate(context.Background(), "pinsbold", loc)
	if err != nil {
		t.Fatal(err)
	}
	if got.Path.Coordinates[2] != 200 {
		t.Errorf("pinned location: side = %g, want 200", got.Path.Coordinates[2])
	}
}

func TestEditableAtSourceLocation(t *testing.T) {
	r := &mapResolver{glyphs: map[string]*varglyph.VariableGlyph{
		"a": simpleGlyph("a", 100),
	}}
	cp := New(r, nil)

	got, err := cp.Instantiate(context.Background(), "a", varglyph.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Editable || got.SourceIndex != 0 {
		t.Errorf("Editable = %v, SourceIndex = %d; want true, 0", got.Editable, got.SourceIndex)
	}
}

func TestInvalidatePicksUpEdits(t *testing.T) {
	glyphs := map[string]*varglyph.VariableGlyph{"a": simpleGlyph("a", 100)}
	cp := New(&mapResolver{glyphs: glyphs}, nil)

	got, err := cp.Instantiate(context.Background(), "a", varglyph.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Path.Coordinates[2] != 100 {
		t.Fatalf("side = %g, want 100", got.Path.Coordinates[2])
	}

	// Edit in place, keeping the same glyph pointer: without Invalidate the
	// controller's caches still answer.
	layer := glyphs["a"].Layers["default"]
	layer.Glyph.Path.Coordinates[2] = 300
	glyphs["a"].Layers["default"] = layer

	cp.Invalidate("a")
	got, err = cp.Instantiate(context.Background(), "a", varglyph.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Path.Coordinates[2] != 300 {
		t.Errorf("side after Invalidate = %g, want 300", got.Path.Coordinates[2])
	}
}

func TestCancellationDegradesBranches(t *testing.T) {
	r := &mapResolver{
		glyphs: map[string]*varglyph.VariableGlyph{
			"root": simpleGlyph("root", 100, component("slow", 0, 0)),
			"slow": simpleGlyph("slow", 50),
		},
		delays: map[string]time.Duration{"slow": time.Second},
	}
	cp := New(r, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := cp.Instantiate(ctx, "root", varglyph.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if varglyph.KindOf(got.Diagnostics[0]) != varglyph.KindUnresolvedComponent {
		t.Errorf("diagnostic kind = %v, want KindUnresolvedComponent", varglyph.KindOf(got.Diagnostics[0]))
	}
	if n := got.Path.NumPoints(); n != 4 {
		t.Errorf("flattened outline has %d points, want the root square only", n)
	}
}
