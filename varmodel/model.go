package varmodel

import (
	"fmt"
	"sort"

	"github.com/gogpu/varglyph"
)

// AxisSupport is the extent of one constrained axis within a support
// region: the delta has full weight at Peak and fades to zero towards
// Lower and Upper.
type AxisSupport struct {
	Lower float64
	Peak  float64
	Upper float64
}

// SupportRegion is the design-space subset over which a source's delta has
// nonzero weight. Axes absent from the map are unconstrained.
type SupportRegion map[string]AxisSupport

// Model is a sparse multi-master variation model. It is constructed from
// the normalized locations of a glyph's sources and computes, for arbitrary
// value vectors sampled at those locations, per-source deltas such that
// evaluation reproduces every source exactly at its own location and blends
// continuously elsewhere.
//
// Sources are processed in ascending specificity (number of constrained
// axes); sources of equal specificity keep their original declaration
// order. The tie-break affects blend shape strictly between sample points,
// never the exact-reproduction guarantee.
//
// A Model is immutable and safe for concurrent use once constructed.
type Model struct {
	locations []NormalizedLocation // original declaration order

	order    []int           // model order -> original index
	supports []SupportRegion // per model position
	// deltaWeights[i][j] is the weight of model-position j's delta at
	// model-position i's own location, for j < i. Zero weights are omitted.
	deltaWeights []map[int]float64
}

// New builds a variation model from the normalized source locations, given
// in declaration order. It fails with an *varglyph.InterpolationError when
// two sources share a location or when no source sits at the all-default
// location.
func New(locations []NormalizedLocation) (*Model, error) {
	if len(locations) == 0 {
		return nil, &varglyph.InterpolationError{Reason: "model has no source locations"}
	}

	seen := make(map[string]int, len(locations))
	hasDefault := false
	for i, loc := range locations {
		key := loc.Key()
		if prev, dup := seen[key]; dup {
			return nil, &varglyph.InterpolationError{
				Location: varglyph.Location(loc),
				Reason:   fmt.Sprintf("sources %d and %d share the same location", prev, i),
			}
		}
		seen[key] = i
		if len(loc) == 0 {
			hasDefault = true
		}
	}
	if !hasDefault {
		return nil, &varglyph.InterpolationError{Reason: "no source at the default location"}
	}

	m := &Model{
		locations: locations,
		order:     make([]int, len(locations)),
	}
	for i := range locations {
		m.order[i] = i
	}
	// Ascending specificity; equal-specificity sources keep declaration
	// order (stable).
	sort.SliceStable(m.order, func(a, b int) bool {
		return len(locations[m.order[a]]) < len(locations[m.order[b]])
	})

	m.computeSupports()
	m.computeDeltaWeights()
	return m, nil
}

// NumSources returns the number of source locations in the model.
func (m *Model) NumSources() int { return len(m.locations) }

// SortedOrder returns, for each model position, the original declaration
// index of the source processed there.
func (m *Model) SortedOrder() []int {
	out := make([]int, len(m.order))
	copy(out, m.order)
	return out
}

// Supports returns the support region of each source in model order.
func (m *Model) Supports() []SupportRegion {
	out := make([]SupportRegion, len(m.supports))
	copy(out, m.supports)
	return out
}

// computeSupports derives each source's support region. On every
// constrained axis a support peaks at the source's value and initially
// extends from 0 to the outermost source value on that side of the axis;
// it is then narrowed by previously processed sources constraining the
// same axis set, so that broader sources fade out exactly where narrower
// ones take over. Without the narrowing, a source strictly between the
// default and another source on the same axis would not be reproduced
// exactly; without the full initial extent, blends would jump past it.
func (m *Model) computeSupports() {
	axisMin := make(map[string]float64)
	axisMax := make(map[string]float64)
	for _, loc := range m.locations {
		for axis, v := range loc {
			if cur, ok := axisMin[axis]; !ok || v < cur {
				axisMin[axis] = v
			}
			if cur, ok := axisMax[axis]; !ok || v > cur {
				axisMax[axis] = v
			}
		}
	}

	m.supports = make([]SupportRegion, len(m.order))
	for i, idx := range m.order {
		loc := m.locations[idx]
		region := make(SupportRegion, len(loc))
		for axis, v := range loc {
			if v > 0 {
				region[axis] = AxisSupport{Lower: 0, Peak: v, Upper: axisMax[axis]}
			} else {
				region[axis] = AxisSupport{Lower: axisMin[axis], Peak: v, Upper: 0}
			}
		}

		for _, prev := range m.supports[:i] {
			if !sameAxisSet(prev, region) {
				continue
			}
			// Only sources whose peak lies inside this region can narrow it.
			relevant := true
			for axis, s := range region {
				p := prev[axis].Peak
				if p != s.Peak && !(s.Lower < p && p < s.Upper) {
					relevant = false
					break
				}
			}
			if !relevant {
				continue
			}

			// Narrow along the axes that retain the largest share of the
			// region; ties narrow every tying axis.
			bestRatio := -1.0
			var bestAxes map[string]AxisSupport
			for _, axis := range sortedAxes(prev) {
				p := prev[axis].Peak
				s := region[axis]
				narrowed := s
				var ratio float64
				switch {
				case p < s.Peak:
					narrowed.Lower = p
					ratio = (p - s.Peak) / (s.Lower - s.Peak)
				case p > s.Peak:
					narrowed.Upper = p
					ratio = (p - s.Peak) / (s.Upper - s.Peak)
				default:
					continue
				}
				if ratio > bestRatio {
					bestRatio = ratio
					bestAxes = make(map[string]AxisSupport)
				}
				if ratio == bestRatio {
					bestAxes[axis] = narrowed
				}
			}
			for axis, s := range bestAxes {
				region[axis] = s
			}
		}

		m.supports[i] = region
	}
}

func (m *Model) computeDeltaWeights() {
	m.deltaWeights = make([]map[int]float64, len(m.order))
	for i, idx := range m.order {
		loc := m.locations[idx]
		weights := make(map[int]float64)
		for j := 0; j < i; j++ {
			if w := SupportScalar(loc, m.supports[j]); w != 0 {
				weights[j] = w
			}
		}
		m.deltaWeights[i] = weights
	}
}

// Deltas computes the per-source deltas for one set of value vectors,
// given in source declaration order. Each delta is the source's raw value
// minus the value the already-processed deltas predict at the source's own
// location, which guarantees exact reproduction at every source location.
// The returned deltas are in model order.
//
// All vectors must share the same length; a mismatch yields an
// *varglyph.InterpolationError.
func (m *Model) Deltas(values [][]float64) ([][]float64, error) {
	if len(values) != len(m.locations) {
		return nil, &varglyph.InterpolationError{
			Reason: fmt.Sprintf("got %d value vectors for %d sources", len(values), len(m.locations)),
		}
	}
	dim := len(values[0])
	for i, v := range values {
		if len(v) != dim {
			return nil, &varglyph.InterpolationError{
				Location: varglyph.Location(m.locations[i]),
				Reason:   fmt.Sprintf("source %d has %d values, expected %d", i, len(v), dim),
			}
		}
	}

	deltas := make([][]float64, len(m.order))
	for i, idx := range m.order {
		delta := make([]float64, dim)
		copy(delta, values[idx])
		for j, weight := range m.deltaWeights[i] {
			for k, d := range deltas[j] {
				delta[k] -= d * weight
			}
		}
		deltas[i] = delta
	}
	return deltas, nil
}

// Scalars returns the weight of every delta (in model order) at the given
// normalized location.
func (m *Model) Scalars(loc NormalizedLocation) []float64 {
	scalars := make([]float64, len(m.supports))
	for i, support := range m.supports {
		scalars[i] = SupportScalar(loc, support)
	}
	return scalars
}

// Interpolate evaluates the blended value at an arbitrary normalized
// location: the weighted sum of the deltas previously computed by Deltas.
func (m *Model) Interpolate(deltas [][]float64, loc NormalizedLocation) []float64 {
	if len(deltas) == 0 {
		return nil
	}
	out := make([]float64, len(deltas[0]))
	for i, scalar := range m.Scalars(loc) {
		if scalar == 0 {
			continue
		}
		for k, d := range deltas[i] {
			out[k] += d * scalar
		}
	}
	return out
}

// InterpolateValues is a convenience wrapper combining Deltas and
// Interpolate for a single evaluation.
func (m *Model) InterpolateValues(values [][]float64, loc NormalizedLocation) ([]float64, error) {
	deltas, err := m.Deltas(values)
	if err != nil {
		return nil, err
	}
	return m.Interpolate(deltas, loc), nil
}

// SupportScalar computes the weight of a delta with the given support at a
// normalized location: the product over the support's constrained axes of
// the distance-to-peak ratio, 0 if the location lies outside the support or
// on the wrong side of the default, 1 on unconstrained axes.
func SupportScalar(loc NormalizedLocation, support SupportRegion) float64 {
	scalar := 1.0
	for axis, s := range support {
		if s.Peak == 0 {
			continue
		}
		if s.Lower > s.Peak || s.Peak > s.Upper {
			continue
		}
		if s.Lower < 0 && s.Upper > 0 {
			// A support straddling the default cannot fade out cleanly;
			// treat the axis as unconstrained.
			continue
		}
		v := loc[axis]
		if v == s.Peak {
			continue
		}
		if v <= s.Lower || s.Upper <= v {
			return 0
		}
		if v < s.Peak {
			scalar *= (v - s.Lower) / (s.Peak - s.Lower)
		} else {
			scalar *= (s.Upper - v) / (s.Upper - s.Peak)
		}
	}
	return scalar
}

func sameAxisSet(a, b SupportRegion) bool {
	if len(a) != len(b) {
		return false
	}
	for axis := range a {
		if _, ok := b[axis]; !ok {
			return false
		}
	}
	return true
}

func sortedAxes(region SupportRegion) []string {
	axes := make([]string, 0, len(region))
	for axis := range region {
		axes = append(axes, axis)
	}
	sort.Strings(axes)
	return axes
}
