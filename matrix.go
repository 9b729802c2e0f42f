package varglyph

import (
	"encoding/json"
	"math"
)

// Matrix represents a 2D affine transformation matrix.
// It uses a 2x3 matrix in row-major order:
//
//	| a  b  c |
//	| d  e  f |
//
// This represents the transformation:
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
type Matrix struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transformation matrix.
func Identity() Matrix {
	return Matrix{
		A: 1, B: 0, C: 0,
		D: 0, E: 1, F: 0,
	}
}

// Translate creates a translation matrix.
func Translate(x, y float64) Matrix {
	return Matrix{
		A: 1, B: 0, C: x,
		D: 0, E: 1, F: y,
	}
}

// Scale creates a scaling matrix.
func Scale(x, y float64) Matrix {
	return Matrix{
		A: x, B: 0, C: 0,
		D: 0, E: y, F: 0,
	}
}

// Rotate creates a rotation matrix (angle in radians).
func Rotate(angle float64) Matrix {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Matrix{
		A: cos, B: -sin, C: 0,
		D: sin, E: cos, F: 0,
	}
}

// Skew creates a skew matrix (angles in radians).
func Skew(x, y float64) Matrix {
	return Matrix{
		A: 1, B: math.Tan(x), C: 0,
		D: math.Tan(y), E: 1, F: 0,
	}
}

// Multiply multiplies two matrices (m * other).
//
// The combined matrix applies other first, then m:
// m.Multiply(other).TransformPoint(p) == m.TransformPoint(other.TransformPoint(p)).
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		A: m.A*other.A + m.B*other.D,
		B: m.A*other.B + m.B*other.E,
		C: m.A*other.C + m.B*other.F + m.C,
		D: m.D*other.A + m.E*other.D,
		E: m.D*other.B + m.E*other.E,
		F: m.D*other.C + m.E*other.F + m.F,
	}
}

// TransformPoint applies the transformation to a point.
func (m Matrix) TransformPoint(p Point) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.C,
		Y: m.D*p.X + m.E*p.Y + m.F,
	}
}

// IsIdentity reports whether m is the identity transformation.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// DecomposedTransform is the transformation of a glyph component, stored in
// decomposed form as the shared schema declares it: translation, rotation in
// degrees, per-axis scale and skew, and a transformation center.
type DecomposedTransform struct {
	TranslateX float64 `json:"translateX,omitempty"`
	TranslateY float64 `json:"translateY,omitempty"`
	Rotation   float64 `json:"rotation,omitempty"`
	ScaleX     float64 `json:"scaleX"`
	ScaleY     float64 `json:"scaleY"`
	SkewX      float64 `json:"skewX,omitempty"`
	SkewY      float64 `json:"skewY,omitempty"`
	TCenterX   float64 `json:"tCenterX,omitempty"`
	TCenterY   float64 `json:"tCenterY,omitempty"`
}

// IdentityTransform returns the neutral decomposed transform (unit scale,
// everything else zero).
func IdentityTransform() DecomposedTransform {
	return DecomposedTransform{ScaleX: 1, ScaleY: 1}
}

// UnmarshalJSON fills absent scale fields with the schema default of 1,
// so that an empty transformation object decodes to the identity.
func (t *DecomposedTransform) UnmarshalJSON(data []byte) error {
	type plain DecomposedTransform
	p := plain(IdentityTransform())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = DecomposedTransform(p)
	return nil
}

// Matrix composes the decomposed parameters into a single affine matrix.
//
// The composition order is: translate by (translateX+tCenterX,
// translateY+tCenterY), rotate, scale, skew, then translate back by
// (-tCenterX, -tCenterY). The rotation and skew angles are in degrees.
func (t DecomposedTransform) Matrix() Matrix {
	const degToRad = math.Pi / 180

	m := Translate(t.TranslateX+t.TCenterX, t.TranslateY+t.TCenterY)
	if t.Rotation != 0 {
		m = m.Multiply(Rotate(t.Rotation * degToRad))
	}
	if t.ScaleX != 1 || t.ScaleY != 1 {
		m = m.Multiply(Scale(t.ScaleX, t.ScaleY))
	}
	if t.SkewX != 0 || t.SkewY != 0 {
		m = m.Multiply(Skew(t.SkewX*degToRad, t.SkewY*degToRad))
	}
	if t.TCenterX != 0 || t.TCenterY != 0 {
		m = m.Multiply(Translate(-t.TCenterX, -t.TCenterY))
	}
	return m
}
