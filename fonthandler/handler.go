package fonthandler

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/gogpu/varglyph"
	"github.com/gogpu/varglyph/cache"
)

// defaultGlyphCacheSize is the default capacity of the glyph cache.
const defaultGlyphCacheSize = 512

// Option configures a Handler.
type Option func(*Handler)

// WithGlyphCacheSize sets the glyph cache capacity.
func WithGlyphCacheSize(n int) Option {
	return func(h *Handler) {
		h.glyphs = cache.New[string, *varglyph.VariableGlyph](n, cache.StringHasher)
	}
}

// Handler is a read-through layer over a Backend. It caches loaded glyphs,
// tracks the dependency graph between glyphs and their components, and
// exposes invalidation that callers chain into their own caches.
//
// A Handler is safe for concurrent use and satisfies compose.Resolver.
type Handler struct {
	backend Backend
	glyphs  *cache.Cache[string, *varglyph.VariableGlyph]

	mu      sync.Mutex
	madeOf  map[string]map[string]bool // glyph -> component names it uses
	usedBy  map[string]map[string]bool // glyph -> glyphs using it
	axes    []varglyph.Axis
	hasAxes bool
}

// New creates a Handler over a backend.
func New(backend Backend, opts ...Option) *Handler {
	h := &Handler{
		backend: backend,
		glyphs:  cache.New[string, *varglyph.VariableGlyph](defaultGlyphCacheSize, cache.StringHasher),
		madeOf:  make(map[string]map[string]bool),
		usedBy:  make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetGlyph returns the named glyph, loading it from the backend on a cache
// miss. An unknown glyph is (nil, nil).
func (h *Handler) GetGlyph(ctx context.Context, name string) (*varglyph.VariableGlyph, error) {
	if g, ok := h.glyphs.Get(name); ok {
		return g, nil
	}
	g, err := h.backend.GetGlyph(ctx, name)
	if err != nil || g == nil {
		return nil, err
	}
	h.glyphs.Set(name, g)
	h.updateDependencies(name, g)
	varglyph.Logger().Debug("glyph loaded from backend", slog.String("glyph", name))
	return g, nil
}

// GlyphMap returns the glyph name to code points mapping.
func (h *Handler) GlyphMap(ctx context.Context) (map[string][]rune, error) {
	return h.backend.GlyphMap(ctx)
}

// GlobalAxes returns the font's global axes, cached after the first call.
func (h *Handler) GlobalAxes(ctx context.Context) ([]varglyph.Axis, error) {
	h.mu.Lock()
	if h.hasAxes {
		axes := h.axes
		h.mu.Unlock()
		return axes, nil
	}
	h.mu.Unlock()

	axes, err := h.backend.GlobalAxes(ctx)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.axes, h.hasAxes = axes, true
	h.mu.Unlock()
	return axes, nil
}

// UnitsPerEm returns the font's units per em.
func (h *Handler) UnitsPerEm(ctx context.Context) (int, error) {
	return h.backend.UnitsPerEm(ctx)
}

// Close closes the underlying backend.
func (h *Handler) Close() error { return h.backend.Close() }

// MadeOf returns the sorted component glyph names the named glyph uses,
// as observed when the glyph was last loaded.
func (h *Handler) MadeOf(name string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sortedKeys(h.madeOf[name])
}

// UsedBy returns the sorted names of the loaded glyphs that reference the
// named glyph as a component.
func (h *Handler) UsedBy(name string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sortedKeys(h.usedBy[name])
}

// Invalidate drops the named glyphs from the cache, or the whole cache
// when called without arguments, forcing a backend reload on next access.
// It returns the names of all dropped glyphs plus the loaded glyphs that
// depend on them, so callers can invalidate downstream caches (glyph
// controllers, compositors) in the same sweep.
func (h *Handler) Invalidate(names ...string) []string {
	if len(names) == 0 {
		h.glyphs.Clear()
		h.mu.Lock()
		affected := sortedKeys(h.madeOf)
		h.mu.Unlock()
		return affected
	}

	affectedSet := make(map[string]bool)
	h.mu.Lock()
	for _, name := range names {
		affectedSet[name] = true
		for user := range h.usedBy[name] {
			affectedSet[user] = true
		}
	}
	h.mu.Unlock()

	affected := sortedKeys(affectedSet)
	for _, name := range affected {
		h.glyphs.Delete(name)
	}
	varglyph.Logger().Debug("glyphs invalidated", slog.Any("glyphs", affected))
	return affected
}

// updateDependencies refreshes the made-of / used-by sets for one glyph
// from its current component references, zapping stale reverse edges.
func (h *Handler) updateDependencies(name string, g *varglyph.VariableGlyph) {
	components := make(map[string]bool)
	for _, layer := range g.Layers {
		for _, comp := range layer.Glyph.Components {
			components[comp.Name] = true
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for old := range h.madeOf[name] {
		if users := h.usedBy[old]; users != nil {
			delete(users, name)
			if len(users) == 0 {
				delete(h.usedBy, old)
			}
		}
	}
	if len(components) > 0 {
		h.madeOf[name] = components
	} else {
		delete(h.madeOf, name)
	}
	for comp := range components {
		if h.usedBy[comp] == nil {
			h.usedBy[comp] = make(map[string]bool)
		}
		h.usedBy[comp][name] = true
	}
}

func sortedKeys[V any](m map[string]V) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
