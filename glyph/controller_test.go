package glyph

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/varglyph"
)

func squareGlyph(side float64) varglyph.StaticGlyph {
	return varglyph.StaticGlyph{
		Path: varglyph.PackedPath{
			Coordinates: []float64{0, 0, side, 0, side, side, 0, side},
			PointTypes: []varglyph.PointType{
				varglyph.PointOnCurve, varglyph.PointOnCurve,
				varglyph.PointOnCurve, varglyph.PointOnCurve,
			},
			ContourInfo: []varglyph.ContourInfo{{EndPoint: 3, IsClosed: true}},
		},
		XAdvance: side,
	}
}

func weightAxis() varglyph.Axis {
	return varglyph.Axis{Name: "wght", Minimum: 400, Default: 400, Maximum: 900}
}

// twoMasterGlyph is a square of side 100 at wght=400 and side 200 at
// wght=900.
func twoMasterGlyph() *varglyph.VariableGlyph {
	return &varglyph.VariableGlyph{
		Name: "square",
		Sources: []varglyph.Source{
			{Name: "Regular", LayerName: "regular", Location: varglyph.Location{"wght": 400}},
			{Name: "Bold", LayerName: "bold", Location: varglyph.Location{"wght": 900}},
		},
		Layers: map[string]varglyph.Layer{
			"regular": {Glyph: squareGlyph(100)},
			"bold":    {Glyph: squareGlyph(200)},
		},
	}
}

func TestInstantiateInterpolates(t *testing.T) {
	c := NewController(twoMasterGlyph(), []varglyph.Axis{weightAxis()})

	got, err := c.Instantiate(varglyph.Location{"wght": 650})
	if err != nil {
		t.Fatal(err)
	}
	want := squareGlyph(150)
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("Instantiate(wght=650) mismatch (-want +got):\n%s", diff)
	}
}

func TestInstantiateAtSources(t *testing.T) {
	c := NewController(twoMasterGlyph(), []varglyph.Axis{weightAxis()})

	tests := []struct {
		name string
		loc  varglyph.Location
		side float64
	}{
		{"default source", varglyph.Location{}, 100},
		{"explicit default", varglyph.Location{"wght": 400}, 100},
		{"bold source", varglyph.Location{"wght": 900}, 200},
		{"clamped beyond max", varglyph.Location{"wght": 1200}, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Instantiate(tt.loc)
			if err != nil {
				t.Fatal(err)
			}
			if got.XAdvance != tt.side {
				t.Errorf("XAdvance = %g, want %g", got.XAdvance, tt.side)
			}
		})
	}
}

func TestSourceIndex(t *testing.T) {
	c := NewController(twoMasterGlyph(), []varglyph.Axis{weightAxis()})

	tests := []struct {
		name    string
		loc     varglyph.Location
		want    int
		matched bool
	}{
		{"default location", varglyph.Location{}, 0, true},
		{"regular", varglyph.Location{"wght": 400}, 0, true},
		{"bold", varglyph.Location{"wght": 900}, 1, true},
		{"between sources", varglyph.Location{"wght": 650}, -1, false},
		{"unknown axis ignored", varglyph.Location{"wght": 900, "BLAH": 123}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.SourceIndex(tt.loc)
			if ok != tt.matched {
				t.Fatalf("SourceIndex() matched = %v, want %v", ok, tt.matched)
			}
			if tt.matched && got != tt.want {
				t.Errorf("SourceIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNearestSourceFallback(t *testing.T) {
	// Declared axis but no source at the default location: the model
	// cannot be built; the nearest (here: only) source must be returned.
	g := &varglyph.VariableGlyph{
		Name: "broken",
		Sources: []varglyph.Source{
			{Name: "Bold", LayerName: "bold", Location: varglyph.Location{"wght": 900}},
		},
		Layers: map[string]varglyph.Layer{
			"bold": {Glyph: squareGlyph(200)},
		},
	}
	c := NewController(g, []varglyph.Axis{weightAxis()})

	got, err := c.Instantiate(varglyph.Location{"wght": 400})
	if err != nil {
		t.Fatalf("fallback should not fail: %v", err)
	}
	if got.XAdvance != 200 {
		t.Errorf("fallback XAdvance = %g, want 200 (the only source)", got.XAdvance)
	}

	if _, err := c.Model(); err == nil {
		t.Error("Model() should fail without a default source")
	} else if varglyph.KindOf(err) != varglyph.KindInterpolation {
		t.Errorf("Model() error kind = %v, want KindInterpolation", varglyph.KindOf(err))
	}
}

func TestInstantiateNoSources(t *testing.T) {
	g := &varglyph.VariableGlyph{Name: "empty"}
	c := NewController(g, nil)
	if _, err := c.Instantiate(varglyph.Location{}); err == nil {
		t.Error("Instantiate() of a sourceless glyph should fail")
	}
}

func TestInactiveSourcesExcluded(t *testing.T) {
	g := twoMasterGlyph()
	g.Sources = append(g.Sources, varglyph.Source{
		Name: "Broken", LayerName: "broken", Location: varglyph.Location{"wght": 650},
		Inactive: true,
	})
	// The inactive source's layer is missing on purpose; an active source
	// with a missing layer would be an error.
	c := NewController(g, []varglyph.Axis{weightAxis()})
	got, err := c.Instantiate(varglyph.Location{"wght": 650})
	if err != nil {
		t.Fatal(err)
	}
	if got.XAdvance != 150 {
		t.Errorf("XAdvance = %g, want 150", got.XAdvance)
	}
}

func TestDesignLocationMapping(t *testing.T) {
	axis := weightAxis()
	axis.Mapping = [][2]float64{{400, 0}, {650, 0.5}, {900, 1}}
	g := twoMasterGlyph()
	c := NewController(g, []varglyph.Axis{axis})

	got := c.DesignLocation(varglyph.Location{"wght": 650})
	want := varglyph.Location{"wght": 0.5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DesignLocation mismatch (-want +got):\n%s", diff)
	}
}

func TestDesignLocationBroadcast(t *testing.T) {
	// Two local alternates of one conceptual axis: a user value keyed by
	// the base name reaches both.
	g := &varglyph.VariableGlyph{
		Name: "nli",
		Axes: []varglyph.Axis{
			{Name: "wght*1", Minimum: 400, Default: 400, Maximum: 900},
			{Name: "wght*2", Minimum: 400, Default: 400, Maximum: 900},
		},
		Sources: []varglyph.Source{
			{Name: "Default", LayerName: "default"},
		},
		Layers: map[string]varglyph.Layer{
			"default": {Glyph: squareGlyph(100)},
		},
	}
	c := NewController(g, nil)

	got := c.DesignLocation(varglyph.Location{"wght": 650})
	want := varglyph.Location{"wght*1": 650, "wght*2": 650}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DesignLocation mismatch (-want +got):\n%s", diff)
	}

	back := c.UserLocation(got)
	if diff := cmp.Diff(varglyph.Location{"wght": 650}, back); diff != "" {
		t.Errorf("UserLocation mismatch (-want +got):\n%s", diff)
	}

	// An explicit per-alternate value wins over the broadcast one.
	got = c.DesignLocation(varglyph.Location{"wght": 650, "wght*2": 500})
	want = varglyph.Location{"wght*1": 650, "wght*2": 500}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DesignLocation with override mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalAxisOverridesGlobal(t *testing.T) {
	// A local axis with the same name replaces the global extent.
	g := twoMasterGlyph()
	g.Axes = []varglyph.Axis{{Name: "wght", Minimum: 400, Default: 400, Maximum: 1000}}
	g.Sources[1].Location = varglyph.Location{"wght": 1000}
	c := NewController(g, []varglyph.Axis{weightAxis()})

	got, err := c.Instantiate(varglyph.Location{"wght": 700})
	if err != nil {
		t.Fatal(err)
	}
	if got.XAdvance != 150 {
		t.Errorf("XAdvance = %g, want 150 (local axis range 400..1000)", got.XAdvance)
	}
}

func TestLocationBase(t *testing.T) {
	g := twoMasterGlyph()
	g.Axes = append(g.Axes, varglyph.Axis{Name: "flourish", Minimum: 0, Default: 0, Maximum: 1})
	g.Sources = append(g.Sources, varglyph.Source{
		Name: "BoldFlourish", LayerName: "boldflourish",
		LocationBase: "Bold",
		Location:     varglyph.Location{"flourish": 1},
	})
	g.Layers["boldflourish"] = varglyph.Layer{Glyph: squareGlyph(300)}
	c := NewController(g, []varglyph.Axis{weightAxis()})

	// The base reference places the source at wght=900, flourish=1.
	idx, ok := c.SourceIndex(varglyph.Location{"wght": 900, "flourish": 1})
	if !ok || idx != 2 {
		t.Errorf("SourceIndex = %d, %v; want 2, true", idx, ok)
	}
}

func TestInvalidateRecomputes(t *testing.T) {
	g := twoMasterGlyph()
	c := NewController(g, []varglyph.Axis{weightAxis()})

	got, err := c.Instantiate(varglyph.Location{"wght": 650})
	if err != nil {
		t.Fatal(err)
	}
	if got.XAdvance != 150 {
		t.Fatalf("XAdvance = %g, want 150", got.XAdvance)
	}

	// Structural edit: replace the bold master. The memoized result must
	// survive until Invalidate, then the chain recomputes from scratch.
	g.Layers["bold"] = varglyph.Layer{Glyph: squareGlyph(400)}

	cached, err := c.Instantiate(varglyph.Location{"wght": 650})
	if err != nil {
		t.Fatal(err)
	}
	if cached.XAdvance != 150 {
		t.Errorf("XAdvance = %g before Invalidate; memo should have answered", cached.XAdvance)
	}

	c.Invalidate()
	fresh, err := c.Instantiate(varglyph.Location{"wght": 650})
	if err != nil {
		t.Fatal(err)
	}
	if fresh.XAdvance != 250 {
		t.Errorf("XAdvance = %g after Invalidate, want 250", fresh.XAdvance)
	}
}

func TestInstantiateReturnsOwnedCopies(t *testing.T) {
	c := NewController(twoMasterGlyph(), []varglyph.Axis{weightAxis()})
	a, err := c.Instantiate(varglyph.Location{"wght": 650})
	if err != nil {
		t.Fatal(err)
	}
	a.Path.Coordinates[0] = 12345

	b, err := c.Instantiate(varglyph.Location{"wght": 650})
	if err != nil {
		t.Fatal(err)
	}
	if b.Path.Coordinates[0] == 12345 {
		t.Error("caller mutation leaked into the memoized instance")
	}
}
