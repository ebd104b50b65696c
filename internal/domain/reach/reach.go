// Package reach models how much of the pitch a defender can close down before
// the ball gets to them.
//
// The radius grows with the ratio between the ball's travel time to the
// defender and the defender's reaction time. It is a proxy for "time to close
// the angle", not a physical reach, and is intentionally left unbounded.
package reach

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/xsit/internal/domain/geometry"
)

// kmhToMs converts km/h to m/s.
const kmhToMs = 1000.0 / 3600.0

// Sentinel errors for the reach model.
var (
	ErrInvalidKinematics   = errors.New("ball speed must be positive")
	ErrInvalidReactionTime = errors.New("reaction time must be positive")
)

// Params holds the per-role constants of the model.
type Params struct {
	BaseRadius   float64
	ReactionTime float64 // seconds
}

// Role constants.
var (
	OutfieldParams   = Params{BaseRadius: 1.5, ReactionTime: 0.25}
	GoalkeeperParams = Params{BaseRadius: 2.0, ReactionTime: 0.23}
)

// Disk is a defender's zone of influence.
type Disk struct {
	Center       geometry.Point
	Radius       float64
	TimeToArrive float64
}

// TimeToArrive returns the seconds a ball travelling in a straight line at
// speedKmh needs to get from ball to target.
func TimeToArrive(ball geometry.Point, speedKmh float64, target geometry.Point) (float64, error) {
	if !(speedKmh > 0) || math.IsInf(speedKmh, 0) {
		return 0, fmt.Errorf("speed %v km/h: %w", speedKmh, ErrInvalidKinematics)
	}
	return geometry.Distance(ball, target) / (speedKmh * kmhToMs), nil
}

// EffectiveRadius returns baseRadius scaled by timeToArrive/reactionTime.
func EffectiveRadius(ball geometry.Point, speedKmh float64, target geometry.Point, baseRadius, reactionTime float64) (float64, error) {
	d, err := DiskFor(ball, speedKmh, target, Params{BaseRadius: baseRadius, ReactionTime: reactionTime})
	if err != nil {
		return 0, err
	}
	return d.Radius, nil
}

// DiskFor builds the reach disk for a defender standing at target.
func DiskFor(ball geometry.Point, speedKmh float64, target geometry.Point, p Params) (Disk, error) {
	if !(p.ReactionTime > 0) {
		return Disk{}, fmt.Errorf("reaction time %v: %w", p.ReactionTime, ErrInvalidReactionTime)
	}
	t, err := TimeToArrive(ball, speedKmh, target)
	if err != nil {
		return Disk{}, err
	}
	radius := p.BaseRadius * (t / p.ReactionTime)
	return Disk{Center: target, Radius: math.Max(0, radius), TimeToArrive: t}, nil
}
