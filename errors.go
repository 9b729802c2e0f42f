package varglyph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSources is returned when a glyph has no active sources to
// interpolate or fall back to.
var ErrNoSources = errors.New("varglyph: glyph has no active sources")

// ErrorKind discriminates the error categories of this module. Callers
// should switch on KindOf(err) rather than comparing error strings.
type ErrorKind int

const (
	// KindOther covers errors that are none of the kinds below.
	KindOther ErrorKind = iota

	// KindInterpolation: the variation model cannot produce a value at a
	// location.
	KindInterpolation

	// KindUnresolvedComponent: a referenced glyph does not exist.
	KindUnresolvedComponent

	// KindCycle: a component reference graph reaches back to its origin.
	KindCycle
)

// KindOf returns the ErrorKind of err, or KindOther for foreign errors.
func KindOf(err error) ErrorKind {
	var ie *InterpolationError
	if errors.As(err, &ie) {
		return KindInterpolation
	}
	var ue *UnresolvedComponentError
	if errors.As(err, &ue) {
		return KindUnresolvedComponent
	}
	var ce *CyclicComponentError
	if errors.As(err, &ce) {
		return KindCycle
	}
	return KindOther
}

// InterpolationError reports that the variation model cannot produce a
// value at a location: degenerate or duplicate source locations, a missing
// default source, or structurally incompatible sources.
type InterpolationError struct {
	// Glyph names the glyph being evaluated, if known.
	Glyph string

	// Location is the offending design-space location, if known.
	Location Location

	// Reason describes the failure.
	Reason string
}

func (e *InterpolationError) Error() string {
	var sb strings.Builder
	sb.WriteString("varglyph: interpolation failed")
	if e.Glyph != "" {
		fmt.Fprintf(&sb, " for glyph %q", e.Glyph)
	}
	if len(e.Location) > 0 {
		fmt.Fprintf(&sb, " at {%s}", e.Location.Key())
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	return sb.String()
}

// UnresolvedComponentError reports a component reference to a glyph the
// resolver does not know. It is contained per branch and never fatal.
type UnresolvedComponentError struct {
	// Parent is the glyph containing the reference.
	Parent string

	// Component is the referenced glyph name.
	Component string
}

func (e *UnresolvedComponentError) Error() string {
	return fmt.Sprintf("varglyph: glyph %q references unknown glyph %q", e.Parent, e.Component)
}

// CyclicComponentError reports a component reference cycle. The offending
// branch contributes no geometry; siblings are unaffected.
type CyclicComponentError struct {
	// Path is the chain of glyph names from the resolution origin to the
	// repeated glyph.
	Path []string
}

func (e *CyclicComponentError) Error() string {
	return fmt.Sprintf("varglyph: cyclic component reference: %s", strings.Join(e.Path, " -> "))
}
