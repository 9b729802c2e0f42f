// Package glyph implements per-glyph orchestration over the variation
// model: combined axis handling, exact-source lookup, interpolation with
// nearest-source fallback, and a transitively invalidated cache chain.
package glyph

import (
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/varglyph"
	"github.com/gogpu/varglyph/varmodel"
)

// locationMatchEpsilon is the per-axis tolerance when comparing a location
// against a source's own location.
const locationMatchEpsilon = 1e-9

// Controller orchestrates interpolation for one variable glyph. It layers
// the glyph's local axes over the font's global axes, resolves exact-source
// lookups, drives the variation model and falls back to the nearest source
// when the model cannot produce a value.
//
// All derived state (combined axis dictionary, model, deltas, per-location
// instances) is cached behind a generation counter; Invalidate bumps the
// generation and transitively discards the whole chain. A Controller is
// safe for concurrent use.
type Controller struct {
	glyph      *varglyph.VariableGlyph
	globalAxes map[string]*varglyph.Axis

	mu    sync.Mutex
	gen   uint64
	state *cachedState
}

// cachedState is the derived-data chain for one generation. Entries are
// computed lazily, always under the Controller mutex.
type cachedState struct {
	gen uint64

	axes      map[string]varmodel.AxisTriple
	active    []int                // indices of active sources
	designLoc []varglyph.Location  // per active source, locationBase applied
	glyphs    []*varglyph.StaticGlyph // per active source
	defaultAt int                  // position in active of the default source, -1 if none

	model    *varmodel.Model
	modelErr error
	shape    *vectorShape
	values   [][]float64
	deltas   [][]float64
	prepared bool

	sourceIndex map[string]int
	instances   map[string]*varglyph.StaticGlyph
}

// NewController creates a controller for one glyph. The glyph and axes are
// treated as read-only; call Invalidate after any structural edit to them.
func NewController(g *varglyph.VariableGlyph, globalAxes []varglyph.Axis) *Controller {
	byName := make(map[string]*varglyph.Axis, len(globalAxes))
	for i := range globalAxes {
		byName[globalAxes[i].Name] = &globalAxes[i]
	}
	return &Controller{glyph: g, globalAxes: byName}
}

// Name returns the glyph name.
func (c *Controller) Name() string { return c.glyph.Name }

// Glyph returns the underlying variable glyph.
func (c *Controller) Glyph() *varglyph.VariableGlyph { return c.glyph }

// Invalidate discards all cached derived data: the combined axis
// dictionary, the variation model, its deltas and every memoized location.
func (c *Controller) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.state = nil
	c.mu.Unlock()
	varglyph.Logger().Debug("glyph cache invalidated", slog.String("glyph", c.glyph.Name))
}

// current returns the cache for the current generation, creating it if the
// generation moved. Callers must hold c.mu.
func (c *Controller) current() *cachedState {
	if c.state == nil || c.state.gen != c.gen {
		c.state = &cachedState{
			gen:         c.gen,
			defaultAt:   -1,
			sourceIndex: make(map[string]int),
			instances:   make(map[string]*varglyph.StaticGlyph),
		}
	}
	return c.state
}

// CombinedAxes returns the axis dictionary in effect for this glyph:
// global axes mapped through their own piecewise mapping into design
// space, overridden by local axes of the same name. The returned map is
// shared; callers must not modify it.
func (c *Controller) CombinedAxes() map[string]varmodel.AxisTriple {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.combinedAxesLocked()
}

func (c *Controller) combinedAxesLocked() map[string]varmodel.AxisTriple {
	st := c.current()
	if st.axes != nil {
		return st.axes
	}
	axes := make(map[string]varmodel.AxisTriple, len(c.globalAxes)+len(c.glyph.Axes))
	for name, axis := range c.globalAxes {
		axes[name] = varmodel.AxisTriple{
			Minimum: axis.MapForward(axis.Minimum),
			Default: axis.MapForward(axis.Default),
			Maximum: axis.MapForward(axis.Maximum),
		}
	}
	for _, axis := range c.glyph.Axes {
		axes[axis.Name] = varmodel.AxisTriple{
			Minimum: axis.Minimum,
			Default: axis.Default,
			Maximum: axis.Maximum,
		}
	}
	st.axes = axes
	return axes
}

// DesignLocation maps a user-space location into this glyph's design
// space: values keyed by a conceptual base axis name are broadcast to
// every suffixed alternate ("base*1", "base*2", ...), and global axes with
// a piecewise mapping are mapped forward. Keys naming axes absent from the
// combined dictionary are dropped.
func (c *Controller) DesignLocation(loc varglyph.Location) varglyph.Location {
	c.mu.Lock()
	axes := c.combinedAxesLocked()
	c.mu.Unlock()

	out := make(varglyph.Location, len(loc))
	for name := range axes {
		v, ok := loc[name]
		if !ok {
			v, ok = loc[varglyph.BaseAxisName(name)]
		}
		if !ok {
			continue
		}
		if axis, global := c.globalAxes[name]; global && !c.isLocalAxis(name) {
			v = axis.MapForward(v)
		}
		out[name] = v
	}
	return out
}

// UserLocation is the inverse of DesignLocation: global mapped axes are
// mapped backward, and suffixed alternates of one base axis fold into a
// single entry keyed by the base name (the alternates agree by
// construction; the first one in sorted order wins otherwise).
func (c *Controller) UserLocation(loc varglyph.Location) varglyph.Location {
	out := make(varglyph.Location, len(loc))
	for name, v := range loc {
		base := varglyph.BaseAxisName(name)
		if axis, global := c.globalAxes[name]; global && !c.isLocalAxis(name) {
			v = axis.MapBackward(v)
		}
		if base != name {
			if _, done := out[base]; done {
				continue
			}
		}
		out[base] = v
	}
	return out
}

func (c *Controller) isLocalAxis(name string) bool {
	for _, axis := range c.glyph.Axes {
		if axis.Name == name {
			return true
		}
	}
	return false
}

// sources resolves the active sources: their effective design locations
// (locationBase applied, own entries winning) and their layer glyphs.
func (c *Controller) sourcesLocked() ([]int, []varglyph.Location, []*varglyph.StaticGlyph, error) {
	st := c.current()
	if st.glyphs != nil {
		return st.active, st.designLoc, st.glyphs, nil
	}

	byName := make(map[string]*varglyph.Source, len(c.glyph.Sources))
	for i := range c.glyph.Sources {
		byName[c.glyph.Sources[i].Name] = &c.glyph.Sources[i]
	}

	var (
		active []int
		locs   []varglyph.Location
		glyphs []*varglyph.StaticGlyph
	)
	for i := range c.glyph.Sources {
		src := &c.glyph.Sources[i]
		if src.Inactive {
			continue
		}
		layer, ok := c.glyph.Layers[src.LayerName]
		if !ok {
			return nil, nil, nil, &varglyph.InterpolationError{
				Glyph:  c.glyph.Name,
				Reason: "source " + src.Name + " references missing layer " + src.LayerName,
			}
		}
		loc := src.Location
		if src.LocationBase != "" {
			if base, ok := byName[src.LocationBase]; ok {
				loc = base.Location.Merged(src.Location)
			}
		}
		active = append(active, i)
		locs = append(locs, loc)
		glyphs = append(glyphs, &layer.Glyph)
	}
	if len(active) == 0 {
		return nil, nil, nil, varglyph.ErrNoSources
	}
	st.active, st.designLoc, st.glyphs = active, locs, glyphs
	return active, locs, glyphs, nil
}

// prepare builds the variation model, the vector shape and the deltas.
// The first error is cached: a broken model stays broken until Invalidate.
func (c *Controller) prepareLocked() error {
	st := c.current()
	if st.prepared {
		return st.modelErr
	}
	st.prepared = true

	_, locs, glyphs, err := c.sourcesLocked()
	if err != nil {
		st.modelErr = err
		return err
	}
	axes := c.combinedAxesLocked()

	normLocs := make([]varmodel.NormalizedLocation, len(locs))
	for i, loc := range locs {
		normLocs[i] = varmodel.NormalizeLocation(loc, axes)
		if len(normLocs[i]) == 0 {
			st.defaultAt = i
		}
	}
	model, err := varmodel.New(normLocs)
	if err != nil {
		st.modelErr = annotate(err, c.glyph.Name)
		return st.modelErr
	}

	shape, err := shapeOf(glyphs)
	if err != nil {
		st.modelErr = &varglyph.InterpolationError{Glyph: c.glyph.Name, Reason: err.Error()}
		return st.modelErr
	}
	values := make([][]float64, len(glyphs))
	for i, g := range glyphs {
		values[i] = shape.flatten(g)
	}
	deltas, err := model.Deltas(values)
	if err != nil {
		st.modelErr = annotate(err, c.glyph.Name)
		return st.modelErr
	}

	st.model, st.shape, st.values, st.deltas = model, shape, values, deltas
	return nil
}

func annotate(err error, glyphName string) error {
	if ie, ok := err.(*varglyph.InterpolationError); ok && ie.Glyph == "" {
		ie.Glyph = glyphName
	}
	return err
}

// Model returns the glyph's variation model, building it on first use.
func (c *Controller) Model() (*varmodel.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.prepareLocked(); err != nil {
		return nil, err
	}
	return c.state.model, nil
}

// SourceIndex returns the index (into the glyph's Sources) of the source
// whose own location matches loc on every axis of the combined dictionary,
// with missing values on either side filled from the axis default. The
// second return value is false when no source matches. Results are
// memoized by canonical location key.
func (c *Controller) SourceIndex(loc varglyph.Location) (int, bool) {
	designLoc := c.DesignLocation(loc)

	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.current()
	key := designLoc.Key()
	if idx, ok := st.sourceIndex[key]; ok {
		return idx, idx >= 0
	}

	idx := c.findSourceLocked(designLoc)
	st.sourceIndex[key] = idx
	return idx, idx >= 0
}

func (c *Controller) findSourceLocked(designLoc varglyph.Location) int {
	axes := c.combinedAxesLocked()
	active, locs, _, err := c.sourcesLocked()
	if err != nil {
		return -1
	}
	for i, srcLoc := range locs {
		match := true
		for name, triple := range axes {
			want, ok := designLoc[name]
			if !ok {
				want = triple.Default
			}
			got, ok := srcLoc[name]
			if !ok {
				got = triple.Default
			}
			if math.Abs(want-got) > locationMatchEpsilon {
				match = false
				break
			}
		}
		if match {
			return active[i]
		}
	}
	return -1
}

// NearestSourceIndex returns the position (among the active sources) of
// the source with minimum squared Euclidean distance to the target in
// normalized space. An exact match short-circuits the scan.
func (c *Controller) NearestSourceIndex(target varmodel.NormalizedLocation) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nearestSourceLocked(target)
}

func (c *Controller) nearestSourceLocked(target varmodel.NormalizedLocation) int {
	axes := c.combinedAxesLocked()
	_, locs, _, err := c.sourcesLocked()
	if err != nil {
		return -1
	}
	best, bestDist := -1, math.Inf(1)
	for i, loc := range locs {
		norm := varmodel.NormalizeLocation(loc, axes)
		dist := 0.0
		for name := range axes {
			d := target[name] - norm[name]
			dist += d * d
		}
		if dist < bestDist {
			best, bestDist = i, dist
			if dist == 0 {
				break
			}
		}
	}
	return best
}

// Instantiate computes the blended glyph at a user-space location. When
// the variation model cannot produce a value, the nearest source's raw
// glyph is returned instead and the failure is logged as a diagnostic.
// The caller owns the returned glyph.
//
// Instantiate only fails when the glyph has no usable sources at all.
func (c *Controller) Instantiate(loc varglyph.Location) (*varglyph.StaticGlyph, error) {
	designLoc := c.DesignLocation(loc)

	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.current()
	key := designLoc.Key()
	if inst, ok := st.instances[key]; ok {
		return inst.Clone(), nil
	}

	inst, err := c.instantiateLocked(designLoc)
	if err != nil {
		return nil, err
	}
	st.instances[key] = inst
	return inst.Clone(), nil
}

func (c *Controller) instantiateLocked(designLoc varglyph.Location) (*varglyph.StaticGlyph, error) {
	axes := c.combinedAxesLocked()
	normLoc := varmodel.NormalizeLocation(designLoc, axes)

	if err := c.prepareLocked(); err != nil {
		return c.fallbackLocked(normLoc, err)
	}
	st := c.state
	vec := st.model.Interpolate(st.deltas, normLoc)

	proto := st.glyphs[0]
	if st.defaultAt >= 0 {
		proto = st.glyphs[st.defaultAt]
	}
	return st.shape.unflatten(vec, proto), nil
}

// fallbackLocked recovers from a failed interpolation by selecting the
// source nearest to the target, per the error-containment contract: the
// caller receives a correct blend, an explicit fallback, or an explicit
// error, never partial state.
func (c *Controller) fallbackLocked(normLoc varmodel.NormalizedLocation, cause error) (*varglyph.StaticGlyph, error) {
	_, _, glyphs, err := c.sourcesLocked()
	if err != nil {
		return nil, err
	}
	idx := c.nearestSourceLocked(normLoc)
	if idx < 0 {
		return nil, cause
	}
	varglyph.Logger().Warn("interpolation failed, using nearest source",
		slog.String("glyph", c.glyph.Name),
		slog.String("location", varglyph.Location(normLoc).Key()),
		slog.Int("source", idx),
		slog.Any("error", cause))
	return glyphs[idx].Clone(), nil
}
