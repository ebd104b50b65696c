// Package interference computes the xSIT metric for a scene with one of
// several interchangeable estimators sharing the geometry and reach models.
package interference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/xsit/internal/domain/geometry"
	"github.com/okian/xsit/internal/domain/reach"
	"github.com/okian/xsit/internal/domain/scene"
)

// Default estimator configuration constants.
const (
	GoalkeeperWeight     = 2
	DefaultPixelsPerUnit = 8
	MaxPixelsPerUnit     = 32
	DefaultDiskSegments  = 128
	minDiskSegments      = 8
)

// Sentinel errors for estimator selection and evaluation.
var (
	ErrUnknownEstimator = errors.New("unknown estimator")
	ErrOverlay          = errors.New("polygon overlay failed")
)

// Kind selects an estimator.
type Kind int

// Estimator kinds.
const (
	Analytic Kind = iota
	Rasterized
	Vector
)

// Kinds lists every supported estimator.
var Kinds = []Kind{Analytic, Rasterized, Vector}

func (k Kind) String() string {
	switch k {
	case Analytic:
		return "analytic"
	case Rasterized:
		return "rasterized"
	case Vector:
		return "vector"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the estimator name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind maps a name (case-insensitive) to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "analytic":
		return Analytic, nil
	case "rasterized", "raster":
		return Rasterized, nil
	case "vector":
		return Vector, nil
	default:
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownEstimator)
	}
}

// DefenderReport describes how one defender was evaluated.
type DefenderReport struct {
	Role         scene.Role     `json:"role"`
	Position     geometry.Point `json:"position"`
	TimeToArrive float64        `json:"time_to_arrive"`
	Radius       float64        `json:"radius"`
	Interferes   bool           `json:"interferes"`
}

// Result is the outcome of one estimation.
type Result struct {
	Kind Kind
	// XSIT is in [0, 1]; higher means more of the lane is obstructed.
	XSIT float64
	// OpenFraction is the unobstructed share of the lane (area estimators only).
	OpenFraction float64
	// Degenerate is set when the lane has no area and nothing can interfere.
	Degenerate bool
	// Defenders lists outfield defenders in input order, then the goalkeeper.
	Defenders []DefenderReport
}

// BatchItem is one entry of a batch evaluation. Err is set when the scene
// could not be estimated.
type BatchItem struct {
	Result Result
	Err    error
}

// Estimator computes xSIT for a scene.
type Estimator interface {
	Kind() Kind
	Estimate(ctx context.Context, s scene.Scene) (Result, error)
}

// Options tunes the estimators. Zero values select the defaults.
type Options struct {
	// Tolerance is the area tolerance of the membership test, pitch units squared.
	Tolerance float64
	// PixelsPerUnit is the raster density.
	PixelsPerUnit int
	// DiskSegments is the polygon resolution of reach disks in the vector estimator.
	DiskSegments int
}

func (o Options) withDefaults() Options {
	if !(o.Tolerance > 0) {
		o.Tolerance = geometry.DefaultTolerance
	}
	switch {
	case o.PixelsPerUnit <= 0:
		o.PixelsPerUnit = DefaultPixelsPerUnit
	case o.PixelsPerUnit > MaxPixelsPerUnit:
		o.PixelsPerUnit = MaxPixelsPerUnit
	}
	if o.DiskSegments < minDiskSegments {
		o.DiskSegments = DefaultDiskSegments
	}
	return o
}

// New returns the estimator for kind.
func New(kind Kind, opts Options) (Estimator, error) {
	opts = opts.withDefaults()
	switch kind {
	case Analytic:
		return &AnalyticEstimator{tolerance: opts.Tolerance}, nil
	case Rasterized:
		return &RasterEstimator{tolerance: opts.Tolerance, pixelsPerUnit: opts.PixelsPerUnit}, nil
	case Vector:
		return &VectorEstimator{tolerance: opts.Tolerance, segments: opts.DiskSegments}, nil
	default:
		return nil, fmt.Errorf("%s: %w", kind, ErrUnknownEstimator)
	}
}

// Compute validates s and evaluates it with the estimator for kind.
func Compute(ctx context.Context, s scene.Scene, kind Kind, opts Options) (Result, error) {
	est, err := New(kind, opts)
	if err != nil {
		return Result{}, err
	}
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	return est.Estimate(ctx, s)
}

// paramsFor returns the reach constants of a role.
func paramsFor(r scene.Role) reach.Params {
	if r == scene.Goalkeeper {
		return reach.GoalkeeperParams
	}
	return reach.OutfieldParams
}

// reports computes the reach disk of every defender, outfield first.
func reports(s scene.Scene) ([]DefenderReport, error) {
	defenders := s.Defenders()
	out := make([]DefenderReport, len(defenders))
	for i, d := range defenders {
		disk, err := reach.DiskFor(s.Ball.Position, s.Ball.SpeedKmh, d.Position, paramsFor(d.Role))
		if err != nil {
			return nil, err
		}
		out[i] = DefenderReport{
			Role:         d.Role,
			Position:     d.Position,
			TimeToArrive: disk.TimeToArrive,
			Radius:       disk.Radius,
		}
	}
	return out, nil
}

// degenerateResult is returned when the lane has no area.
func degenerateResult(kind Kind, defenders []DefenderReport) Result {
	return Result{Kind: kind, XSIT: 0, OpenFraction: 0, Degenerate: true, Defenders: defenders}
}

// clamp01 keeps v inside [0, 1].
func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
