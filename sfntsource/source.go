// Package sfntsource serves glyphs from a compiled OpenType/TrueType font
// as a read-only font backend. Every glyph becomes a single-source
// variable glyph at the default location, with its outline converted to a
// packed path in font units (y up).
package sfntsource

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/varglyph"
)

// Source is a Backend over one parsed font. It is safe for concurrent
// use; the sfnt buffer is guarded by a mutex.
type Source struct {
	font *sfnt.Font
	upem int

	mu     sync.Mutex
	buf    sfnt.Buffer
	byName map[string]sfnt.GlyphIndex
	runes  map[string][]rune
}

// New parses font data (TTF or OTF) into a Source.
func New(data []byte) (*Source, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("sfntsource: %w", err)
	}
	s := &Source{font: f, upem: int(f.UnitsPerEm())}
	if err := s.buildIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// buildIndex maps glyph names to glyph indices using the font's post
// table, and recovers name-to-rune associations by probing the cmap over
// the Basic Multilingual Plane blocks commonly present in text fonts.
func (s *Source) buildIndex() error {
	s.byName = make(map[string]sfnt.GlyphIndex)
	s.runes = make(map[string][]rune)

	numGlyphs := s.font.NumGlyphs()
	names := make(map[sfnt.GlyphIndex]string, numGlyphs)
	for i := 0; i < numGlyphs; i++ {
		gid := sfnt.GlyphIndex(i)
		name, err := s.font.GlyphName(&s.buf, gid)
		if err != nil || name == "" {
			name = fmt.Sprintf("glyph%05d", i)
		}
		if _, taken := s.byName[name]; taken {
			name = fmt.Sprintf("%s.%05d", name, i)
		}
		s.byName[name] = gid
		names[gid] = name
	}

	for r := rune(0x20); r <= 0x2FF; r++ {
		gid, err := s.font.GlyphIndex(&s.buf, r)
		if err != nil || gid == 0 {
			continue
		}
		if name, ok := names[gid]; ok {
			s.runes[name] = append(s.runes[name], r)
		}
	}
	return nil
}

// GetGlyph implements the backend protocol. Unknown names are (nil, nil).
func (s *Source) GetGlyph(_ context.Context, name string) (*varglyph.VariableGlyph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gid, ok := s.byName[name]
	if !ok {
		return nil, nil
	}

	upem := fixed.I(s.upem)
	segments, err := s.font.LoadGlyph(&s.buf, gid, upem, nil)
	if err != nil {
		return nil, fmt.Errorf("sfntsource: loading %q: %w", name, err)
	}
	advance, err := s.font.GlyphAdvance(&s.buf, gid, upem, 0)
	if err != nil {
		return nil, fmt.Errorf("sfntsource: advance of %q: %w", name, err)
	}

	static := varglyph.StaticGlyph{
		Path:     *segmentsToPath(segments),
		XAdvance: fromFixed(advance),
	}
	return &varglyph.VariableGlyph{
		Name:    name,
		Sources: []varglyph.Source{{Name: "default", LayerName: "default"}},
		Layers:  map[string]varglyph.Layer{"default": {Glyph: static}},
	}, nil
}

// GlyphMap implements the backend protocol.
func (s *Source) GlyphMap(context.Context) (map[string][]rune, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]rune, len(s.byName))
	for name := range s.byName {
		out[name] = append([]rune(nil), s.runes[name]...)
	}
	return out, nil
}

// GlobalAxes implements the backend protocol. Compiled static fonts
// expose no design axes here.
func (s *Source) GlobalAxes(context.Context) ([]varglyph.Axis, error) {
	return nil, nil
}

// UnitsPerEm implements the backend protocol.
func (s *Source) UnitsPerEm(context.Context) (int, error) {
	return s.upem, nil
}

// Close implements the backend protocol.
func (s *Source) Close() error { return nil }

// segmentsToPath converts sfnt segments (26.6 fixed point, y down) into a
// packed path in font units with y up.
func segmentsToPath(segments sfnt.Segments) *varglyph.PackedPath {
	var b varglyph.PathBuilder
	for _, seg := range segments {
		p0 := fromFixedPoint(seg.Args[0])
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			// Glyph contours are implicitly closed; a MoveTo ends the
			// previous one.
			b.ClosePath()
			b.MoveTo(p0.X, p0.Y)
		case sfnt.SegmentOpLineTo:
			b.LineTo(p0.X, p0.Y)
		case sfnt.SegmentOpQuadTo:
			p1 := fromFixedPoint(seg.Args[1])
			b.QuadTo(p0.X, p0.Y, p1.X, p1.Y)
		case sfnt.SegmentOpCubeTo:
			p1 := fromFixedPoint(seg.Args[1])
			p2 := fromFixedPoint(seg.Args[2])
			b.CubeTo(p0.X, p0.Y, p1.X, p1.Y, p2.X, p2.Y)
		}
	}
	b.ClosePath()
	return b.Path()
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func fromFixedPoint(p fixed.Point26_6) varglyph.Point {
	return varglyph.Point{X: fromFixed(p.X), Y: -fromFixed(p.Y)}
}
