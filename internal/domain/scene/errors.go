package scene

import (
	"errors"

	"github.com/okian/xsit/internal/domain/reach"
)

// Sentinel error kinds for scene construction. These allow errors.Is from callers.
var (
	ErrMissingField       = errors.New("missing field")
	ErrInvalidKinematics  = reach.ErrInvalidKinematics
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidRole        = errors.New("invalid defender role")
)
