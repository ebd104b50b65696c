// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers a YAML file and XSIT_ environment variables on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/xsit/internal/domain/geometry"
	"github.com/okian/xsit/internal/domain/interference"
	"github.com/okian/xsit/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// DefaultEstimator is used when a request carries no estimator parameter.
	DefaultEstimator string `koanf:"default_estimator"`

	// RasterPixelsPerUnit sets the canvas density of the rasterized estimator.
	RasterPixelsPerUnit int `koanf:"raster_pixels_per_unit"`

	// MembershipTolerance is the area-conservation tolerance of the lane test.
	MembershipTolerance float64 `koanf:"membership_tolerance"`

	// BatchWorkers sets the number of workers evaluating batch scenes.
	BatchWorkers int `koanf:"batch_workers"`

	// BatchQueueSize bounds the number of pending batch jobs.
	BatchQueueSize int `koanf:"batch_queue_size"`

	// MaxBatchSize caps the number of scenes in one batch request.
	MaxBatchSize int `koanf:"max_batch_size"`

	// CORSAllowedOrigins lists the origins accepted by the CORS middleware.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           logger.FormatText,
		Addr:                ":5000",
		DefaultEstimator:    interference.Analytic.String(),
		RasterPixelsPerUnit: interference.DefaultPixelsPerUnit,
		MembershipTolerance: geometry.DefaultTolerance,
		BatchWorkers:        runtime.NumCPU(),
		BatchQueueSize:      1024,
		MaxBatchSize:        500,
		CORSAllowedOrigins:  []string{"*"},
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := interference.ParseKind(c.DefaultEstimator); err != nil {
		return fmt.Errorf("%w: default_estimator: %v", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.RasterPixelsPerUnit <= 0 || c.RasterPixelsPerUnit > interference.MaxPixelsPerUnit {
		return fmt.Errorf("%w: raster_pixels_per_unit must be between 1 and %d, got %d",
			ErrInvalidConfig, interference.MaxPixelsPerUnit, c.RasterPixelsPerUnit)
	}
	if !(c.MembershipTolerance > 0) {
		return fmt.Errorf("%w: membership_tolerance must be positive", ErrInvalidConfig)
	}
	if c.BatchWorkers <= 0 || c.BatchQueueSize <= 0 || c.MaxBatchSize <= 0 {
		return fmt.Errorf("%w: batch_workers, batch_queue_size and max_batch_size must be positive", ErrInvalidConfig)
	}
	return nil
}

// EstimatorOptions maps the estimator settings onto interference.Options.
func (c *Config) EstimatorOptions() interference.Options {
	return interference.Options{
		Tolerance:     c.MembershipTolerance,
		PixelsPerUnit: c.RasterPixelsPerUnit,
	}
}
