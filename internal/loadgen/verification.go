package loadgen

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned for a score outside [0, 1].
	ErrOutOfRange = errors.New("xsit out of range")
	// ErrEstimatorMismatch is returned when the answer names another estimator.
	ErrEstimatorMismatch = errors.New("unexpected estimator")
	// ErrInvalidAnswers is returned by Run when any answer failed verification.
	ErrInvalidAnswers = errors.New("invalid answers")
)

// checkResult validates one successful answer.
func checkResult(cfg *Config, r Result) error {
	if r.XSIT < 0 || r.XSIT > 1 {
		return fmt.Errorf("%w: %v", ErrOutOfRange, r.XSIT)
	}
	if cfg.Estimator != "" && r.Estimator != cfg.Estimator {
		return fmt.Errorf("%w: want %s, got %s", ErrEstimatorMismatch, cfg.Estimator, r.Estimator)
	}
	if r.OpenFraction != nil {
		of := *r.OpenFraction
		if of < 0 || of > 1 {
			return fmt.Errorf("%w: open_fraction %v", ErrOutOfRange, of)
		}
		if d := r.XSIT + of - 1; !r.Degenerate && (d > 1e-4 || d < -1e-4) {
			return fmt.Errorf("%w: xsit %v and open_fraction %v do not add up to 1", ErrOutOfRange, r.XSIT, of)
		}
	}
	return nil
}
