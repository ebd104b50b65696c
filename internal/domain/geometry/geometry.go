// Package geometry provides the planar primitives used by the interference
// estimators: points, distances, triangle areas and triangle membership.
package geometry

import "math"

// DefaultTolerance is the absolute area tolerance (pitch units squared) used by
// PointInTriangle when callers have no better value.
const DefaultTolerance = 1e-2

// Point is an immutable coordinate pair in pitch units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is a shorthand constructor for Point.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p scaled by k on both axes.
func (p Point) Scale(k float64) Point { return Point{X: p.X * k, Y: p.Y * k} }

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// SignedArea2x returns twice the signed area of triangle (a, b, c).
// Positive when the vertices are counter-clockwise.
func SignedArea2x(a, b, c Point) float64 {
	return a.X*(b.Y-c.Y) + b.X*(c.Y-a.Y) + c.X*(a.Y-b.Y)
}

// TriangleArea returns the unsigned area of triangle (a, b, c).
func TriangleArea(a, b, c Point) float64 {
	return math.Abs(SignedArea2x(a, b, c)) / 2
}

// PointInTriangle reports whether p lies inside or on triangle (a, b, c) using
// area conservation: the three sub-triangles formed with p must add up to the
// whole within eps. A point outside always yields a strictly larger sum.
//
// For a zero-area triangle every point passes; guard with Degenerate first.
func PointInTriangle(p, a, b, c Point, eps float64) bool {
	total := TriangleArea(a, b, c)
	sum := TriangleArea(p, a, b) + TriangleArea(p, b, c) + TriangleArea(p, c, a)
	return math.Abs(sum-total) < eps
}

// Degenerate reports whether triangle (a, b, c) has an area below eps, in which
// case PointInTriangle no longer discriminates.
func Degenerate(a, b, c Point, eps float64) bool {
	return TriangleArea(a, b, c) < eps
}

// Bounds returns the axis-aligned bounding box of the given points.
func Bounds(pts ...Point) (minPt, maxPt Point) {
	if len(pts) == 0 {
		return Point{}, Point{}
	}
	minPt, maxPt = pts[0], pts[0]
	for _, p := range pts[1:] {
		minPt.X = math.Min(minPt.X, p.X)
		minPt.Y = math.Min(minPt.Y, p.Y)
		maxPt.X = math.Max(maxPt.X, p.X)
		maxPt.Y = math.Max(maxPt.Y, p.Y)
	}
	return minPt, maxPt
}
