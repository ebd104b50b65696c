package interference

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/xsit/internal/domain/geometry"
	"github.com/okian/xsit/internal/domain/scene"
	geom "github.com/peterstace/simplefeatures/geom"
)

// minDiskRadius is the smallest radius whose polygon keeps distinct vertices
// anywhere on the pitch.
const minDiskRadius = 1e-9

// VectorEstimator computes the uncovered share of the lane with exact polygon
// overlay. Disks are approximated by regular polygons.
type VectorEstimator struct {
	tolerance float64
	segments  int
}

// Kind implements Estimator.
func (e *VectorEstimator) Kind() Kind { return Vector }

// Estimate implements Estimator. XSIT is 1 - OpenFraction.
func (e *VectorEstimator) Estimate(ctx context.Context, s scene.Scene) (Result, error) {
	defenders, err := reports(s)
	if err != nil {
		return Result{}, err
	}

	tri := s.Triangle()
	if tri.Degenerate(e.tolerance) {
		return degenerateResult(Vector, defenders), nil
	}

	lanePoly, err := trianglePolygon(tri)
	if err != nil {
		return Result{}, fmt.Errorf("lane polygon: %w: %v", ErrOverlay, err)
	}
	lane := lanePoly.AsGeometry()
	laneArea := lane.Area()

	var cover geom.Geometry
	covered, swallowed := false, false
	for i := range defenders {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		d := &defenders[i]
		if !(d.Radius > 0) {
			continue
		}
		if d.Radius < minDiskRadius {
			// Covers no measurable area; membership is decided by position.
			d.Interferes = tri.Contains(d.Position, e.tolerance)
			continue
		}
		// A disk reaching every vertex contains the whole lane.
		if d.Radius >= farthestVertex(tri, d.Position) {
			d.Interferes, swallowed = true, true
			continue
		}
		poly, err := diskPolygon(d.Position, d.Radius, e.segments)
		if err != nil {
			return Result{}, fmt.Errorf("reach disk %d: %w: %v", i, ErrOverlay, err)
		}
		disk := poly.AsGeometry()
		d.Interferes = geom.Intersects(lane, disk)
		if !d.Interferes || swallowed {
			continue
		}
		if !covered {
			cover, covered = disk, true
			continue
		}
		if cover, err = geom.Union(cover, disk); err != nil {
			return Result{}, fmt.Errorf("union of reach disks: %w: %v", ErrOverlay, err)
		}
	}

	open := 1.0
	switch {
	case swallowed:
		open = 0
	case covered:
		rest, err := geom.Difference(lane, cover)
		if err != nil {
			return Result{}, fmt.Errorf("lane minus reach disks: %w: %v", ErrOverlay, err)
		}
		open = clamp01(rest.Area() / laneArea)
	}

	return Result{
		Kind:         Vector,
		XSIT:         1 - open,
		OpenFraction: open,
		Defenders:    defenders,
	}, nil
}

func farthestVertex(t scene.ShotTriangle, p geometry.Point) float64 {
	far := 0.0
	for _, v := range t.Vertices() {
		far = math.Max(far, geometry.Distance(p, v))
	}
	return far
}

// trianglePolygon builds the lane as a closed single-ring polygon.
func trianglePolygon(t scene.ShotTriangle) (geom.Polygon, error) {
	v := t.Vertices()
	coords := []float64{
		v[0].X, v[0].Y,
		v[1].X, v[1].Y,
		v[2].X, v[2].Y,
		v[0].X, v[0].Y,
	}
	return ringPolygon(coords)
}

// diskPolygon approximates a disk with an n-sided regular polygon.
func diskPolygon(center geometry.Point, radius float64, n int) (geom.Polygon, error) {
	coords := make([]float64, 0, 2*(n+1))
	for k := 0; k < n; k++ {
		theta := 2 * math.Pi * float64(k) / float64(n)
		coords = append(coords, center.X+radius*math.Cos(theta), center.Y+radius*math.Sin(theta))
	}
	coords = append(coords, coords[0], coords[1])
	return ringPolygon(coords)
}

func ringPolygon(coords []float64) (geom.Polygon, error) {
	ring, err := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	if err != nil {
		return geom.Polygon{}, err
	}
	return geom.NewPolygon([]geom.LineString{ring})
}
