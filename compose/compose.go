// Package compose resolves glyph component references into flattened
// world-space geometry.
//
// Resolution is recursive: a component names another glyph, which is
// instantiated at the component's sub-location and transformed by the
// component's decomposed affine transform, and may itself contain
// components. Sibling components are resolved concurrently, but geometry
// is always concatenated in declaration order. Failures are contained per
// branch: a missing glyph, an interpolation failure or a reference cycle
// drops that one branch and is reported as a diagnostic, never aborting
// the siblings or the overall glyph.
package compose

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/gogpu/varglyph"
	"github.com/gogpu/varglyph/glyph"
)

// Resolver supplies glyph lookups. It may involve I/O; implementations
// own their caching policy. A glyph that does not exist is reported as
// (nil, nil), not as an error.
type Resolver interface {
	GetGlyph(ctx context.Context, name string) (*varglyph.VariableGlyph, error)
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithConcurrency bounds the number of component branches resolved in
// parallel. The default is 4; values below 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(cp *Compositor) {
		if n < 1 {
			n = 1
		}
		cp.sem = make(chan struct{}, n)
	}
}

// Compositor instantiates glyphs and recursively resolves their component
// references through a Resolver. It keeps one controller per glyph name;
// call Invalidate after structural edits. A Compositor is safe for
// concurrent use.
type Compositor struct {
	resolver   Resolver
	globalAxes []varglyph.Axis
	sem        chan struct{}

	mu          sync.Mutex
	controllers map[string]*glyph.Controller
}

// New creates a Compositor over the given resolver and global axes.
func New(r Resolver, globalAxes []varglyph.Axis, opts ...Option) *Compositor {
	cp := &Compositor{
		resolver:    r,
		globalAxes:  globalAxes,
		sem:         make(chan struct{}, 4),
		controllers: make(map[string]*glyph.Controller),
	}
	for _, opt := range opts {
		opt(cp)
	}
	return cp
}

// Invalidate discards the cached controllers for the named glyphs, or for
// every glyph when called without arguments. The next resolution rebuilds
// them, picking up structural edits.
func (cp *Compositor) Invalidate(names ...string) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if len(names) == 0 {
		clear(cp.controllers)
		return
	}
	for _, name := range names {
		delete(cp.controllers, name)
	}
}

func (cp *Compositor) controller(g *varglyph.VariableGlyph) *glyph.Controller {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	c, ok := cp.controllers[g.Name]
	if !ok || c.Glyph() != g {
		c = glyph.NewController(g, cp.globalAxes)
		cp.controllers[g.Name] = c
	}
	return c
}

// ResolvedComponent is one resolved component branch: the composed
// world-space transform and the referenced glyph's resolved geometry.
type ResolvedComponent struct {
	// Name is the referenced glyph name.
	Name string

	// Transform is the composed world-space affine transform applied to
	// the referenced glyph.
	Transform varglyph.Matrix

	// Path is the branch's flattened world-space outline, including
	// nested components. Empty when the branch failed to resolve.
	Path *varglyph.PackedPath

	// Components are the nested resolved components.
	Components []*ResolvedComponent
}

// ResolvedGlyph is the result of instantiating a glyph and resolving its
// component tree. It is immutable; the derived queries (Bounds,
// ConvexHull) are computed on first access.
type ResolvedGlyph struct {
	// Name is the glyph name.
	Name string

	// Location is the requested user-space location.
	Location varglyph.Location

	// Instance is the blended glyph: its own outline, metrics and
	// unresolved component records.
	Instance *varglyph.StaticGlyph

	// Editable reports whether the location matched a source exactly.
	// Interpolated (non-source) instances are not directly editable.
	Editable bool

	// SourceIndex is the matched source index when Editable, else -1.
	SourceIndex int

	// Path is the flattened world-space outline: the glyph's own contours
	// followed by each component branch in declaration order.
	Path *varglyph.PackedPath

	// Components holds the resolved component tree in declaration order,
	// one entry per component of Instance (failed branches included, with
	// empty geometry).
	Components []*ResolvedComponent

	// Diagnostics collects the non-fatal per-branch failures encountered
	// during resolution: unresolved references, cycles, nested
	// interpolation errors.
	Diagnostics []error

	deriveOnce sync.Once
	bounds     varglyph.Rect
	hasBounds  bool
	hull       []varglyph.Point
}

// Bounds returns the bounding box of the flattened outline. The second
// return value is false for empty geometry.
func (r *ResolvedGlyph) Bounds() (varglyph.Rect, bool) {
	r.derive()
	return r.bounds, r.hasBounds
}

// ConvexHull returns the convex hull of the flattened outline's points.
func (r *ResolvedGlyph) ConvexHull() []varglyph.Point {
	r.derive()
	return r.hull
}

func (r *ResolvedGlyph) derive() {
	r.deriveOnce.Do(func() {
		points := r.Path.Points()
		r.bounds, r.hasBounds = varglyph.BoundsOf(points)
		r.hull = varglyph.ConvexHull(points)
	})
}

// Instantiate resolves the named glyph at a user-space location into
// flattened world-space geometry. It fails only when the root glyph itself
// is unknown or has no usable sources; everything below the root degrades
// per branch into diagnostics.
func (cp *Compositor) Instantiate(ctx context.Context, name string, loc varglyph.Location) (*ResolvedGlyph, error) {
	g, err := cp.resolver.GetGlyph(ctx, name)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, &varglyph.UnresolvedComponentError{Component: name}
	}

	ctrl := cp.controller(g)
	instance, err := ctrl.Instantiate(loc)
	if err != nil {
		return nil, err
	}
	srcIdx, editable := ctrl.SourceIndex(loc)
	if !editable {
		srcIdx = -1
	}

	path, components, diags := cp.resolveComponents(
		ctx, name, instance, loc, varglyph.Identity(), []string{name})

	flat := instance.Path.Clone()
	flat.AppendPath(path)

	return &ResolvedGlyph{
		Name:        name,
		Location:    loc,
		Instance:    instance,
		Editable:    editable,
		SourceIndex: srcIdx,
		Path:        flat,
		Components:  components,
		Diagnostics: diags,
	}, nil
}

// branch is the result of resolving one component subtree.
type branch struct {
	component *ResolvedComponent
	diags     []error
}

// resolveComponents fans out the components of an instance and fans their
// geometry back in strictly in declaration order, regardless of which
// branch completes first. The trail is the stack of in-progress glyph
// names used for cycle detection; each child receives its own copy.
func (cp *Compositor) resolveComponents(
	ctx context.Context,
	parentName string,
	instance *varglyph.StaticGlyph,
	parentLoc varglyph.Location,
	parentTransform varglyph.Matrix,
	trail []string,
) (*varglyph.PackedPath, []*ResolvedComponent, []error) {
	if len(instance.Components) == 0 {
		return &varglyph.PackedPath{}, nil, nil
	}

	branches := make([]branch, len(instance.Components))
	var wg sync.WaitGroup
	for i, comp := range instance.Components {
		i, comp := i, comp
		wg.Add(1)
		go func() {
			defer wg.Done()
			branches[i] = cp.resolveBranch(
				ctx, parentName, comp, parentLoc, parentTransform, slices.Clone(trail))
		}()
	}
	wg.Wait()

	// Fan-in: declaration order is a hard guarantee.
	merged := &varglyph.PackedPath{}
	components := make([]*ResolvedComponent, len(branches))
	var diags []error
	for i, b := range branches {
		merged.AppendPath(b.component.Path)
		components[i] = b.component
		diags = append(diags, b.diags...)
	}
	return merged, components, diags
}

// resolveBranch resolves a single component reference into world-space
// geometry. All failure modes degrade to empty geometry plus a diagnostic.
func (cp *Compositor) resolveBranch(
	ctx context.Context,
	parentName string,
	comp varglyph.Component,
	parentLoc varglyph.Location,
	parentTransform varglyph.Matrix,
	trail []string,
) branch {
	transform := parentTransform.Multiply(comp.Transformation.Matrix())
	resolved := &ResolvedComponent{
		Name:      comp.Name,
		Transform: transform,
		Path:      &varglyph.PackedPath{},
	}

	if slices.Contains(trail, comp.Name) {
		err := &varglyph.CyclicComponentError{Path: append(slices.Clone(trail), comp.Name)}
		varglyph.Logger().Warn("component cycle detected",
			slog.String("glyph", parentName), slog.Any("error", err))
		return branch{component: resolved, diags: []error{err}}
	}

	// Component keys win over the inherited location.
	loc := parentLoc.Merged(comp.Location)

	// The semaphore bounds the concurrent lookup/instantiation work. It
	// must not be held across the recursive wait below, or deep component
	// trees would deadlock with every slot taken by a waiting parent.
	cp.sem <- struct{}{}
	g, err := cp.resolver.GetGlyph(ctx, comp.Name)
	if err != nil || g == nil {
		<-cp.sem
		// Lookup failure and cancellation both degrade to "not found":
		// empty geometry, never a stalled or partially composed branch.
		uerr := &varglyph.UnresolvedComponentError{Parent: parentName, Component: comp.Name}
		varglyph.Logger().Warn("unresolved component",
			slog.String("glyph", parentName),
			slog.String("component", comp.Name),
			slog.Any("cause", err))
		return branch{component: resolved, diags: []error{uerr}}
	}

	instance, err := cp.controller(g).Instantiate(loc)
	<-cp.sem
	if err != nil {
		return branch{component: resolved, diags: []error{annotateGlyph(err, comp.Name)}}
	}

	childPath, children, diags := cp.resolveComponents(
		ctx, comp.Name, instance, loc, transform, append(trail, comp.Name))

	path := instance.Path.Transform(transform)
	path.AppendPath(childPath)
	resolved.Path = path
	resolved.Components = children
	return branch{component: resolved, diags: diags}
}

func annotateGlyph(err error, name string) error {
	if ie, ok := err.(*varglyph.InterpolationError); ok && ie.Glyph == "" {
		ie.Glyph = name
	}
	return err
}
