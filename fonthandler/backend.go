// Package fonthandler provides read-through, cached access to a font
// backend: glyph loading with LRU caching, glyph dependency tracking and
// invalidation. A Handler satisfies the compositor's Resolver interface.
package fonthandler

import (
	"context"

	"github.com/gogpu/varglyph"
)

// Backend is the storage-side protocol this package consumes. A glyph
// that does not exist is reported as (nil, nil), not as an error.
// Implementations may involve I/O and must be safe for concurrent use.
type Backend interface {
	GetGlyph(ctx context.Context, name string) (*varglyph.VariableGlyph, error)
	GlyphMap(ctx context.Context) (map[string][]rune, error)
	GlobalAxes(ctx context.Context) ([]varglyph.Axis, error)
	UnitsPerEm(ctx context.Context) (int, error)
	Close() error
}

// MemoryBackend serves a Font already loaded in memory.
type MemoryBackend struct {
	font *varglyph.Font
}

// NewMemoryBackend wraps an in-memory font. The font is treated as
// read-only while the backend is in use.
func NewMemoryBackend(font *varglyph.Font) *MemoryBackend {
	return &MemoryBackend{font: font}
}

// GetGlyph implements Backend.
func (b *MemoryBackend) GetGlyph(_ context.Context, name string) (*varglyph.VariableGlyph, error) {
	return b.font.Glyphs[name], nil
}

// GlyphMap implements Backend.
func (b *MemoryBackend) GlyphMap(context.Context) (map[string][]rune, error) {
	return b.font.GlyphMap, nil
}

// GlobalAxes implements Backend.
func (b *MemoryBackend) GlobalAxes(context.Context) ([]varglyph.Axis, error) {
	return b.font.Axes, nil
}

// UnitsPerEm implements Backend.
func (b *MemoryBackend) UnitsPerEm(context.Context) (int, error) {
	return b.font.UnitsPerEm, nil
}

// Close implements Backend.
func (b *MemoryBackend) Close() error { return nil }
