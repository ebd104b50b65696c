package interference

import (
	"context"
	"math"

	"github.com/okian/xsit/internal/domain/scene"
)

const roundingFactor = 1e4

// AnalyticEstimator counts defenders whose position lies inside the shooting
// lane. The goalkeeper counts GoalkeeperWeight times.
type AnalyticEstimator struct {
	tolerance float64
}

// Kind implements Estimator.
func (e *AnalyticEstimator) Kind() Kind { return Analytic }

// Estimate implements Estimator. The score is rounded to four decimals.
func (e *AnalyticEstimator) Estimate(ctx context.Context, s scene.Scene) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	defenders, err := reports(s)
	if err != nil {
		return Result{}, err
	}

	tri := s.Triangle()
	if tri.Degenerate(e.tolerance) {
		return degenerateResult(Analytic, defenders), nil
	}

	// Only the defender's position is tested; the reach radius is reported
	// alongside but plays no part in membership here.
	raw := 0
	for i := range defenders {
		d := &defenders[i]
		d.Interferes = tri.Contains(d.Position, e.tolerance)
		if !d.Interferes {
			continue
		}
		if d.Role == scene.Goalkeeper {
			raw += GoalkeeperWeight
		} else {
			raw++
		}
	}

	normalizer := len(s.Outfield) + GoalkeeperWeight
	xsit := 0.0
	if normalizer > 0 {
		xsit = float64(raw) / float64(normalizer)
	}

	return Result{
		Kind:      Analytic,
		XSIT:      math.Round(clamp01(xsit)*roundingFactor) / roundingFactor,
		Defenders: defenders,
	}, nil
}
