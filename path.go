package varglyph

// PointType describes one point of a packed path. The low bits carry the
// curve type; PointSmooth may be OR-ed onto an on-curve point.
type PointType uint8

const (
	// PointOnCurve is a regular on-curve point.
	PointOnCurve PointType = 0

	// PointOffCurveQuad is a quadratic off-curve control point.
	PointOffCurveQuad PointType = 1

	// PointOffCurveCubic is a cubic off-curve control point.
	PointOffCurveCubic PointType = 2

	// PointSmooth marks an on-curve point as a smooth connection.
	PointSmooth PointType = 8

	pointTypeMask PointType = 3
)

// IsOnCurve reports whether the point lies on the curve.
func (t PointType) IsOnCurve() bool {
	return t&pointTypeMask == PointOnCurve
}

// ContourInfo describes one contour of a packed path by the index of its
// last point and whether the contour is closed.
type ContourInfo struct {
	EndPoint int  `json:"endPoint"`
	IsClosed bool `json:"isClosed"`
}

// PackedPath is an outline stored as flat parallel arrays: interleaved x,y
// coordinates, one point type per point, and per-contour framing. The flat
// layout is what the variation model interpolates over.
type PackedPath struct {
	Coordinates []float64     `json:"coordinates"`
	PointTypes  []PointType   `json:"pointTypes"`
	ContourInfo []ContourInfo `json:"contourInfo"`
}

// NumPoints returns the number of points in the path.
func (p *PackedPath) NumPoints() int {
	if p == nil {
		return 0
	}
	return len(p.Coordinates) / 2
}

// IsEmpty reports whether the path has no points.
func (p *PackedPath) IsEmpty() bool {
	return p.NumPoints() == 0
}

// Clone returns a deep copy of the path.
func (p *PackedPath) Clone() *PackedPath {
	if p == nil {
		return nil
	}
	clone := &PackedPath{
		Coordinates: make([]float64, len(p.Coordinates)),
		PointTypes:  make([]PointType, len(p.PointTypes)),
		ContourInfo: make([]ContourInfo, len(p.ContourInfo)),
	}
	copy(clone.Coordinates, p.Coordinates)
	copy(clone.PointTypes, p.PointTypes)
	copy(clone.ContourInfo, p.ContourInfo)
	return clone
}

// Point returns the i-th point of the path.
func (p *PackedPath) Point(i int) Point {
	return Point{X: p.Coordinates[2*i], Y: p.Coordinates[2*i+1]}
}

// Points returns all points of the path as a slice.
func (p *PackedPath) Points() []Point {
	if p == nil {
		return nil
	}
	points := make([]Point, p.NumPoints())
	for i := range points {
		points[i] = p.Point(i)
	}
	return points
}

// Transform returns a new path with every point transformed by m.
func (p *PackedPath) Transform(m Matrix) *PackedPath {
	if p == nil {
		return nil
	}
	out := p.Clone()
	for i := 0; i < len(out.Coordinates); i += 2 {
		q := m.TransformPoint(Point{X: out.Coordinates[i], Y: out.Coordinates[i+1]})
		out.Coordinates[i] = q.X
		out.Coordinates[i+1] = q.Y
	}
	return out
}

// AppendPath appends all contours of other to p, adjusting the contour
// framing of the appended part. A nil or empty other is a no-op.
func (p *PackedPath) AppendPath(other *PackedPath) {
	if other.IsEmpty() {
		return
	}
	offset := p.NumPoints()
	p.Coordinates = append(p.Coordinates, other.Coordinates...)
	p.PointTypes = append(p.PointTypes, other.PointTypes...)
	for _, ci := range other.ContourInfo {
		p.ContourInfo = append(p.ContourInfo, ContourInfo{
			EndPoint: ci.EndPoint + offset,
			IsClosed: ci.IsClosed,
		})
	}
}

// Bounds returns the control-point bounding box of the path.
// The second return value is false for an empty path.
func (p *PackedPath) Bounds() (Rect, bool) {
	return BoundsOf(p.Points())
}

// PathBuilder incrementally constructs a PackedPath from pen-style
// drawing operations.
type PathBuilder struct {
	path         PackedPath
	contourStart int
	open         bool
}

// MoveTo starts a new contour at the given point.
func (b *PathBuilder) MoveTo(x, y float64) {
	b.endContour()
	b.contourStart = b.path.NumPoints()
	b.open = true
	b.addPoint(x, y, PointOnCurve)
}

// LineTo adds a straight line segment to the current contour.
func (b *PathBuilder) LineTo(x, y float64) {
	b.addPoint(x, y, PointOnCurve)
}

// QuadTo adds a quadratic segment with one control point.
func (b *PathBuilder) QuadTo(cx, cy, x, y float64) {
	b.addPoint(cx, cy, PointOffCurveQuad)
	b.addPoint(x, y, PointOnCurve)
}

// CubeTo adds a cubic segment with two control points.
func (b *PathBuilder) CubeTo(cx1, cy1, cx2, cy2, x, y float64) {
	b.addPoint(cx1, cy1, PointOffCurveCubic)
	b.addPoint(cx2, cy2, PointOffCurveCubic)
	b.addPoint(x, y, PointOnCurve)
}

// ClosePath closes the current contour.
func (b *PathBuilder) ClosePath() {
	if !b.open {
		return
	}
	// Drop a trailing on-curve point that duplicates the contour start.
	n := b.path.NumPoints()
	if n-b.contourStart > 1 {
		first := b.path.Point(b.contourStart)
		last := b.path.Point(n - 1)
		if first == last && b.path.PointTypes[n-1].IsOnCurve() {
			b.path.Coordinates = b.path.Coordinates[:2*(n-1)]
			b.path.PointTypes = b.path.PointTypes[:n-1]
		}
	}
	b.closeContour(true)
}

// Path finishes any open contour and returns the built path.
func (b *PathBuilder) Path() *PackedPath {
	b.endContour()
	path := b.path
	return &path
}

func (b *PathBuilder) addPoint(x, y float64, t PointType) {
	b.path.Coordinates = append(b.path.Coordinates, x, y)
	b.path.PointTypes = append(b.path.PointTypes, t)
}

func (b *PathBuilder) endContour() {
	if b.open {
		b.closeContour(false)
	}
}

func (b *PathBuilder) closeContour(closed bool) {
	n := b.path.NumPoints()
	if n > b.contourStart {
		b.path.ContourInfo = append(b.path.ContourInfo, ContourInfo{
			EndPoint: n - 1,
			IsClosed: closed,
		})
	}
	b.open = false
}
