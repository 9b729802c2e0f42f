// Package varmodel implements axis-value normalization and the sparse
// multi-master variation model used to interpolate glyph data.
package varmodel

import "github.com/gogpu/varglyph"

// AxisTriple is the (minimum, default, maximum) extent of one axis in
// design space, with minimum <= default <= maximum.
type AxisTriple struct {
	Minimum float64
	Default float64
	Maximum float64
}

// NormalizedLocation maps axis names to values in [-1, 1] relative to each
// axis's default: the default normalizes to 0, the minimum to -1 and the
// maximum to +1. A location at every axis default is the empty map.
type NormalizedLocation map[string]float64

// Key returns the canonical string form of the normalized location.
func (l NormalizedLocation) Key() string {
	return varglyph.Location(l).Key()
}

// NormalizeValue maps a raw design-space value into [-1, 1] relative to the
// triple. Out-of-range values clamp to the nearest extreme. An axis whose
// extent collapses on one side of the default maps that side to 0.
func NormalizeValue(v float64, t AxisTriple) float64 {
	switch {
	case v < t.Minimum:
		v = t.Minimum
	case v > t.Maximum:
		v = t.Maximum
	}
	switch {
	case v < t.Default:
		if t.Default == t.Minimum {
			return 0
		}
		return -(t.Default - v) / (t.Default - t.Minimum)
	case v > t.Default:
		if t.Default == t.Maximum {
			return 0
		}
		return (v - t.Default) / (t.Maximum - t.Default)
	default:
		return 0
	}
}

// NormalizeLocation converts a sparse raw location into a normalized one
// over the given axis dictionary. Axes missing from the location sit at
// their default (normalized 0); location keys naming axes absent from the
// dictionary are ignored. Zero entries are dropped, so a location at every
// default normalizes to the empty map.
func NormalizeLocation(loc varglyph.Location, axes map[string]AxisTriple) NormalizedLocation {
	out := make(NormalizedLocation)
	for name, triple := range axes {
		v, ok := loc[name]
		if !ok {
			continue
		}
		if n := NormalizeValue(v, triple); n != 0 {
			out[name] = n
		}
	}
	return out
}
