package varglyph

// Axis is a named continuous design dimension. Font-level (global) axes may
// carry a piecewise-linear mapping from user values to design values; glyph
// level (local) axes never do.
type Axis struct {
	Name    string `json:"name"`
	Label   string `json:"label,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Minimum float64 `json:"minValue"`
	Default float64 `json:"defaultValue"`
	Maximum float64 `json:"maxValue"`

	// Mapping is an ordered list of (user value, design value) control
	// points, empty for unmapped axes.
	Mapping [][2]float64 `json:"mapping,omitempty"`

	Hidden bool `json:"hidden,omitempty"`
}

// MapForward maps a user value to a design value through the axis mapping,
// interpolating linearly between control points and extending the edge
// values beyond them. Without a mapping the value is returned unchanged.
func (a *Axis) MapForward(v float64) float64 {
	return piecewiseLinear(v, a.Mapping, false)
}

// MapBackward is the inverse of MapForward: the same control points read in
// reverse, linearly interpolated.
func (a *Axis) MapBackward(v float64) float64 {
	return piecewiseLinear(v, a.Mapping, true)
}

func piecewiseLinear(v float64, mapping [][2]float64, backward bool) float64 {
	if len(mapping) == 0 {
		return v
	}
	in, out := 0, 1
	if backward {
		in, out = 1, 0
	}
	if v <= mapping[0][in] {
		return mapping[0][out]
	}
	last := mapping[len(mapping)-1]
	if v >= last[in] {
		return last[out]
	}
	for i := 1; i < len(mapping); i++ {
		if v <= mapping[i][in] {
			lo, hi := mapping[i-1], mapping[i]
			if hi[in] == lo[in] {
				return hi[out]
			}
			t := (v - lo[in]) / (hi[in] - lo[in])
			return lo[out] + t*(hi[out]-lo[out])
		}
	}
	return last[out]
}

// Source is one concrete sample of a variable glyph: a design-space location
// paired with the name of the layer holding the outline and metrics.
type Source struct {
	Name      string   `json:"name"`
	LayerName string   `json:"layerName"`
	Location  Location `json:"location,omitempty"`

	// LocationBase optionally names another source whose location serves
	// as the base for this one; this source's own entries win.
	LocationBase string `json:"locationBase,omitempty"`

	// Inactive sources are excluded from the variation model.
	Inactive bool `json:"inactive,omitempty"`
}

// Layer holds the static glyph data of one source.
type Layer struct {
	Glyph StaticGlyph `json:"glyph"`
}

// Component is a placed reference to another glyph, with a location in the
// referenced glyph's own design space and a decomposed affine transform.
type Component struct {
	Name           string              `json:"name"`
	Transformation DecomposedTransform `json:"transformation"`
	Location       Location            `json:"location,omitempty"`
}

// Anchor is a named attachment point.
type Anchor struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Guideline is a named guide line with an angle in degrees.
type Guideline struct {
	Name   string  `json:"name,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Angle  float64 `json:"angle,omitempty"`
	Locked bool    `json:"locked,omitempty"`
}

// StaticGlyph is an outline plus metrics at one concrete design-space
// position: either source data or an interpolated instance.
type StaticGlyph struct {
	Path           PackedPath  `json:"path"`
	Components     []Component `json:"components,omitempty"`
	XAdvance       float64     `json:"xAdvance"`
	YAdvance       float64     `json:"yAdvance,omitempty"`
	VerticalOrigin *float64    `json:"verticalOrigin,omitempty"`
	Anchors        []Anchor    `json:"anchors,omitempty"`
	Guidelines     []Guideline `json:"guidelines,omitempty"`
}

// Clone returns a deep copy of the glyph.
func (g *StaticGlyph) Clone() *StaticGlyph {
	if g == nil {
		return nil
	}
	clone := *g
	clone.Path = *g.Path.Clone()
	if g.Components != nil {
		clone.Components = make([]Component, len(g.Components))
		for i, c := range g.Components {
			clone.Components[i] = c
			clone.Components[i].Location = c.Location.Copy()
		}
	}
	clone.Anchors = append([]Anchor(nil), g.Anchors...)
	clone.Guidelines = append([]Guideline(nil), g.Guidelines...)
	if g.VerticalOrigin != nil {
		v := *g.VerticalOrigin
		clone.VerticalOrigin = &v
	}
	return &clone
}

// VariableGlyph is a glyph defined by sources spread over the design space.
type VariableGlyph struct {
	Name    string           `json:"name"`
	Axes    []Axis           `json:"axes,omitempty"`
	Sources []Source         `json:"sources"`
	Layers  map[string]Layer `json:"layers"`
}

// Font is the root of the persisted data this module consumes.
type Font struct {
	UnitsPerEm int                       `json:"unitsPerEm"`
	Axes       []Axis                    `json:"axes,omitempty"`
	Glyphs     map[string]*VariableGlyph `json:"glyphs"`
	GlyphMap   map[string][]rune         `json:"glyphMap,omitempty"`
}
