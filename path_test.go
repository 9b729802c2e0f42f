package varglyph

import (
	"reflect"
	"testing"
)

func buildSquare(side float64) *PackedPath {
	var b PathBuilder
	b.MoveTo(0, 0)
	b.LineTo(side, 0)
	b.LineTo(side, side)
	b.LineTo(0, side)
	b.ClosePath()
	return b.Path()
}

func TestPathBuilder(t *testing.T) {
	p := buildSquare(100)
	wantCoords := []float64{0, 0, 100, 0, 100, 100, 0, 100}
	if !reflect.DeepEqual(p.Coordinates, wantCoords) {
		t.Errorf("Coordinates = %v, want %v", p.Coordinates, wantCoords)
	}
	if p.NumPoints() != 4 {
		t.Errorf("NumPoints() = %d, want 4", p.NumPoints())
	}
	want := []ContourInfo{{EndPoint: 3, IsClosed: true}}
	if !reflect.DeepEqual(p.ContourInfo, want) {
		t.Errorf("ContourInfo = %v, want %v", p.ContourInfo, want)
	}
}

func TestPathBuilderDropsDuplicateClosePoint(t *testing.T) {
	var b PathBuilder
	b.MoveTo(0, 0)
	b.LineTo(10, 0)
	b.LineTo(0, 0) // duplicates the start
	b.ClosePath()
	p := b.Path()
	if p.NumPoints() != 2 {
		t.Errorf("NumPoints() = %d, want 2 (trailing duplicate dropped)", p.NumPoints())
	}
}

func TestPathBuilderOpenContour(t *testing.T) {
	var b PathBuilder
	b.MoveTo(0, 0)
	b.LineTo(10, 10)
	p := b.Path()
	if len(p.ContourInfo) != 1 || p.ContourInfo[0].IsClosed {
		t.Errorf("ContourInfo = %v, want one open contour", p.ContourInfo)
	}
}

func TestPathBuilderCurves(t *testing.T) {
	var b PathBuilder
	b.MoveTo(0, 0)
	b.QuadTo(5, 10, 10, 0)
	b.CubeTo(12, 5, 18, 5, 20, 0)
	b.ClosePath()
	p := b.Path()
	wantTypes := []PointType{
		PointOnCurve,
		PointOffCurveQuad, PointOnCurve,
		PointOffCurveCubic, PointOffCurveCubic, PointOnCurve,
	}
	if !reflect.DeepEqual(p.PointTypes, wantTypes) {
		t.Errorf("PointTypes = %v, want %v", p.PointTypes, wantTypes)
	}
}

func TestAppendPath(t *testing.T) {
	p := buildSquare(10)
	q := buildSquare(20)
	p.AppendPath(q)
	if p.NumPoints() != 8 {
		t.Fatalf("NumPoints() = %d, want 8", p.NumPoints())
	}
	want := []ContourInfo{
		{EndPoint: 3, IsClosed: true},
		{EndPoint: 7, IsClosed: true},
	}
	if !reflect.DeepEqual(p.ContourInfo, want) {
		t.Errorf("ContourInfo = %v, want %v", p.ContourInfo, want)
	}
	// Appending an empty path is a no-op.
	p.AppendPath(&PackedPath{})
	p.AppendPath(nil)
	if p.NumPoints() != 8 {
		t.Errorf("NumPoints() after empty append = %d, want 8", p.NumPoints())
	}
}

func TestPathTransform(t *testing.T) {
	p := buildSquare(10).Transform(Translate(0, 500))
	if got := p.Point(0); got != Pt(0, 500) {
		t.Errorf("Point(0) = %v, want (0, 500)", got)
	}
	if got := p.Point(2); got != Pt(10, 510) {
		t.Errorf("Point(2) = %v, want (10, 510)", got)
	}
}

func TestPathBounds(t *testing.T) {
	p := buildSquare(100)
	bounds, ok := p.Bounds()
	if !ok {
		t.Fatal("Bounds() reported empty for a square")
	}
	want := Rect{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	if bounds != want {
		t.Errorf("Bounds() = %+v, want %+v", bounds, want)
	}

	if _, ok := (&PackedPath{}).Bounds(); ok {
		t.Error("Bounds() of empty path reported non-empty")
	}
}

func TestConvexHullBasic(t *testing.T) {
	points := []Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}, {50, 50}}
	got := ConvexHull(points)
	want := []Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ConvexHull() = %v, want %v", got, want)
	}
}
