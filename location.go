package varglyph

import (
	"sort"
	"strconv"
	"strings"
)

// Location is a sparse design-space position: a mapping from axis name to a
// raw axis value. Axes absent from the map sit at their default value.
type Location map[string]float64

// Copy returns a shallow copy of the location.
func (l Location) Copy() Location {
	out := make(Location, len(l))
	for name, value := range l {
		out[name] = value
	}
	return out
}

// Merged returns a new location with the entries of other layered over l.
// Keys present in both take other's value.
func (l Location) Merged(other Location) Location {
	out := make(Location, len(l)+len(other))
	for name, value := range l {
		out[name] = value
	}
	for name, value := range other {
		out[name] = value
	}
	return out
}

// Key returns a canonical, order-independent string form of the location,
// usable directly as a map key: name=value pairs sorted by axis name.
func (l Location) Key() string {
	if len(l) == 0 {
		return ""
	}
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(l[name], 'g', -1, 64))
	}
	return sb.String()
}

// BaseAxisName strips a non-linear alternate suffix from an axis name:
// local axes named "base*1", "base*2", ... are alternates of the shared
// conceptual axis "base". Names without a suffix are returned unchanged.
func BaseAxisName(name string) string {
	if i := strings.IndexByte(name, '*'); i >= 0 {
		return name[:i]
	}
	return name
}
