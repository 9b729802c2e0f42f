package glyph

import (
	"fmt"
	"sort"

	"github.com/gogpu/varglyph"
)

// vectorShape records the structure shared by all sources of a glyph, so
// that their data can be flattened into interpolation vectors and a blended
// vector can be unflattened again. Structural data (point types, contour
// framing, component names, anchor names) is not interpolated; it comes
// from the default source.
type vectorShape struct {
	numPoints  int
	components []componentShape
	numAnchors int
	numGuides  int
	hasVOrigin bool
}

type componentShape struct {
	name string
	axes []string // sorted union of sub-location axis names across sources
}

// transformParams is the number of interpolated parameters per component
// transform (the fields of DecomposedTransform).
const transformParams = 9

// shapeOf derives the common vector shape from a set of source glyphs.
// Sources must agree on point count, component count and referenced glyph
// names, anchor count, guideline count, and per-component sub-location
// axis sets; any mismatch makes interpolation impossible.
func shapeOf(sources []*varglyph.StaticGlyph) (*vectorShape, error) {
	base := sources[0]
	sh := &vectorShape{
		numPoints:  base.Path.NumPoints(),
		numAnchors: len(base.Anchors),
		numGuides:  len(base.Guidelines),
		hasVOrigin: base.VerticalOrigin != nil,
	}
	sh.components = make([]componentShape, len(base.Components))
	for i, c := range base.Components {
		sh.components[i] = componentShape{name: c.Name}
	}

	for _, g := range sources {
		if g.Path.NumPoints() != sh.numPoints {
			return nil, fmt.Errorf("point count mismatch: %d vs %d", g.Path.NumPoints(), sh.numPoints)
		}
		if len(g.Components) != len(sh.components) {
			return nil, fmt.Errorf("component count mismatch: %d vs %d", len(g.Components), len(sh.components))
		}
		for i, c := range g.Components {
			if c.Name != sh.components[i].name {
				return nil, fmt.Errorf("component %d references %q vs %q", i, c.Name, sh.components[i].name)
			}
		}
		if len(g.Anchors) != sh.numAnchors {
			return nil, fmt.Errorf("anchor count mismatch: %d vs %d", len(g.Anchors), sh.numAnchors)
		}
		if len(g.Guidelines) != sh.numGuides {
			return nil, fmt.Errorf("guideline count mismatch: %d vs %d", len(g.Guidelines), sh.numGuides)
		}
		sh.hasVOrigin = sh.hasVOrigin && g.VerticalOrigin != nil
	}

	// Per-component sub-location axes: union over all sources. Every
	// source must carry every axis of the union, or blending would mix
	// incomparable vectors.
	for i := range sh.components {
		axisSet := make(map[string]bool)
		for _, g := range sources {
			for axis := range g.Components[i].Location {
				axisSet[axis] = true
			}
		}
		axes := make([]string, 0, len(axisSet))
		for axis := range axisSet {
			axes = append(axes, axis)
		}
		sort.Strings(axes)
		for _, g := range sources {
			for _, axis := range axes {
				if _, ok := g.Components[i].Location[axis]; !ok && len(g.Components[i].Location) > 0 {
					return nil, fmt.Errorf("component %d (%q) misses sub-location axis %q in one source",
						i, sh.components[i].name, axis)
				}
			}
		}
		sh.components[i].axes = axes
	}
	return sh, nil
}

func (sh *vectorShape) vectorLen() int {
	n := 2*sh.numPoints + 2 // coordinates + x/y advance
	if sh.hasVOrigin {
		n++
	}
	for _, c := range sh.components {
		n += transformParams + len(c.axes)
	}
	n += 2 * sh.numAnchors
	n += 3 * sh.numGuides
	return n
}

// flatten packs the interpolated quantities of one source glyph into a
// vector in the fixed layout implied by the shape.
func (sh *vectorShape) flatten(g *varglyph.StaticGlyph) []float64 {
	vec := make([]float64, 0, sh.vectorLen())
	vec = append(vec, g.Path.Coordinates...)
	vec = append(vec, g.XAdvance, g.YAdvance)
	if sh.hasVOrigin {
		vec = append(vec, *g.VerticalOrigin)
	}
	for i, c := range g.Components {
		t := c.Transformation
		vec = append(vec,
			t.TranslateX, t.TranslateY, t.Rotation,
			t.ScaleX, t.ScaleY, t.SkewX, t.SkewY,
			t.TCenterX, t.TCenterY)
		for _, axis := range sh.components[i].axes {
			vec = append(vec, c.Location[axis])
		}
	}
	for _, a := range g.Anchors {
		vec = append(vec, a.X, a.Y)
	}
	for _, gl := range g.Guidelines {
		vec = append(vec, gl.X, gl.Y, gl.Angle)
	}
	return vec
}

// unflatten rebuilds a glyph from a blended vector, taking all structural
// data from the prototype (the default source).
func (sh *vectorShape) unflatten(vec []float64, proto *varglyph.StaticGlyph) *varglyph.StaticGlyph {
	g := proto.Clone()
	pos := 2 * sh.numPoints
	copy(g.Path.Coordinates, vec[:pos])
	g.XAdvance = vec[pos]
	g.YAdvance = vec[pos+1]
	pos += 2
	if sh.hasVOrigin {
		v := vec[pos]
		g.VerticalOrigin = &v
		pos++
	} else {
		g.VerticalOrigin = nil
	}
	for i := range g.Components {
		c := &g.Components[i]
		c.Transformation = varglyph.DecomposedTransform{
			TranslateX: vec[pos], TranslateY: vec[pos+1], Rotation: vec[pos+2],
			ScaleX: vec[pos+3], ScaleY: vec[pos+4], SkewX: vec[pos+5], SkewY: vec[pos+6],
			TCenterX: vec[pos+7], TCenterY: vec[pos+8],
		}
		pos += transformParams
		if len(sh.components[i].axes) > 0 {
			c.Location = make(varglyph.Location, len(sh.components[i].axes))
			for _, axis := range sh.components[i].axes {
				c.Location[axis] = vec[pos]
				pos++
			}
		}
	}
	for i := range g.Anchors {
		g.Anchors[i].X = vec[pos]
		g.Anchors[i].Y = vec[pos+1]
		pos += 2
	}
	for i := range g.Guidelines {
		g.Guidelines[i].X = vec[pos]
		g.Guidelines[i].Y = vec[pos+1]
		g.Guidelines[i].Angle = vec[pos+2]
		pos += 3
	}
	return g
}
