package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrMissingData   = errors.New("missing data")
	ErrBatchTooLarge = errors.New("batch too large")
	ErrBodyTooLarge  = errors.New("request body too large")
	ErrBackpressure  = errors.New("backpressure")
	ErrSchemaCompile = errors.New("request schema invalid")
)

// WrapKind tags err with an operation name and a sentinel kind so callers can
// match it with errors.Is.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// bodyError tags a body read or decode failure. Bodies cut off by
// http.MaxBytesReader are ErrBodyTooLarge, everything else ErrBadRequest.
func bodyError(op string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return WrapKind(op, ErrBodyTooLarge, err)
	}
	return WrapKind(op, ErrBadRequest, err)
}

// NewKind returns an error carrying only an operation name and a kind.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}
