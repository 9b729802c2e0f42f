// Package varglyph provides the data model and geometry primitives for a
// variable-font glyph engine.
//
// # Overview
//
// A variable glyph is defined by a sparse set of sources, each pairing a
// design-space location with a concrete outline and metrics. The packages in
// this module compute, for any point in the design space, a blended outline
// and metrics, and resolve nested component references into flattened
// world-space geometry:
//
//   - varglyph (this package): Font, VariableGlyph, Source, Layer,
//     StaticGlyph, PackedPath, Component and the supporting geometry types
//     (Point, Matrix, Rect, DecomposedTransform).
//   - varglyph/varmodel: axis normalization and the multi-master
//     variation model.
//   - varglyph/glyph: per-glyph orchestration (source lookup, interpolation,
//     nearest-source fallback, caching).
//   - varglyph/compose: recursive component composition.
//   - varglyph/fonthandler: read-through cached access to a font backend.
//   - varglyph/sfntsource: a backend over compiled OpenType fonts.
//
// # Quick Start
//
//	backend, err := fonthandler.NewFileBackend("MyFont.json")
//	if err != nil { ... }
//	handler := fonthandler.New(backend)
//	axes, _ := handler.GlobalAxes(ctx)
//
//	cp := compose.New(handler, axes)
//	resolved, err := cp.Instantiate(ctx, "dieresis", varglyph.Location{"wght": 650})
//	bounds, ok := resolved.Bounds()
//
// The module owns no file format and renders no pixels; it is a pure
// computation boundary between font storage and editing or rendering layers.
package varglyph
