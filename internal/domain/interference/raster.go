package interference

import (
	"context"

	"github.com/okian/xsit/internal/domain/scene"
)

// RasterEstimator measures the share of the lane left uncovered by reach disks
// on a discrete pixel grid.
type RasterEstimator struct {
	tolerance     float64
	pixelsPerUnit int
}

// Kind implements Estimator.
func (e *RasterEstimator) Kind() Kind { return Rasterized }

// Estimate implements Estimator. OpenFraction is unrounded and XSIT is
// 1 - OpenFraction.
func (e *RasterEstimator) Estimate(ctx context.Context, s scene.Scene) (Result, error) {
	defenders, err := reports(s)
	if err != nil {
		return Result{}, err
	}

	tri := s.Triangle()
	if tri.Degenerate(e.tolerance) {
		return degenerateResult(Rasterized, defenders), nil
	}

	canvas, masked, err := e.render(ctx, tri, defenders)
	if err != nil {
		return Result{}, err
	}
	if masked == 0 {
		// Lane thinner than a pixel.
		return degenerateResult(Rasterized, defenders), nil
	}

	open := clamp01(float64(canvas.Count(TagTriangle)) / float64(masked))
	return Result{
		Kind:         Rasterized,
		XSIT:         1 - open,
		OpenFraction: open,
		Defenders:    defenders,
	}, nil
}

// render fills the lane and paints every disk over it, goalkeeper last. A
// defender interferes when its disk covers at least one lane pixel.
func (e *RasterEstimator) render(ctx context.Context, tri scene.ShotTriangle, defenders []DefenderReport) (*Canvas, int, error) {
	canvas := NewCanvas(e.pixelsPerUnit)
	masked := canvas.FillTriangle(tri.Ball, tri.Post1, tri.Post2, e.tolerance)

	for i := range defenders {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		d := &defenders[i]
		tag := TagDefender
		if d.Role == scene.Goalkeeper {
			tag = TagGoalkeeper
		}
		d.Interferes = canvas.PaintDisk(d.Position, d.Radius, tag) > 0
	}
	return canvas, masked, nil
}
