package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/okian/xsit/internal/domain/geometry"
	"github.com/okian/xsit/internal/domain/scene"
)

// missingDataMessage is the body of every "field absent" rejection.
const missingDataMessage = "Faltan datos"

// Request field names.
const (
	fieldBall       = "pos_balon"
	fieldSpeed      = "velocidad_balon"
	fieldGoalkeeper = "portero"
	fieldOutfield   = "jugadores"
)

// sceneRequest mirrors the JSON body of POST /calculate_xsit.
type sceneRequest struct {
	Ball       []float64   `json:"pos_balon"`
	Speed      float64     `json:"velocidad_balon"`
	Goalkeeper []float64   `json:"portero"`
	Outfield   [][]float64 `json:"jugadores"`
}

// batchRequest mirrors the JSON body of POST /calculate_xsit/batch.
type batchRequest struct {
	Scenes []json.RawMessage `json:"scenes"`
}

// parseScene decodes, checks and converts one scene document. Errors wrap
// ErrMissingData, ErrBadRequest or a scene sentinel.
func parseScene(raw []byte) (scene.Scene, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return scene.Scene{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if doc == nil {
		return scene.Scene{}, fmt.Errorf("%w: body must be a JSON object", ErrBadRequest)
	}
	if err := checkPresent(doc); err != nil {
		return scene.Scene{}, err
	}
	if err := validateScene(doc); err != nil {
		return scene.Scene{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	var req sceneRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return scene.Scene{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return req.toScene()
}

// checkPresent rejects absent or null fields, and empty positions. An empty
// jugadores array is a scene without outfield defenders.
func checkPresent(doc map[string]any) error {
	for _, key := range []string{fieldBall, fieldSpeed, fieldGoalkeeper, fieldOutfield} {
		v, ok := doc[key]
		if !ok || v == nil {
			return fmt.Errorf("%w: %s", ErrMissingData, key)
		}
		if key == fieldBall || key == fieldGoalkeeper {
			if arr, isArr := v.([]any); isArr && len(arr) == 0 {
				return fmt.Errorf("%w: %s", ErrMissingData, key)
			}
		}
	}
	return nil
}

func (r sceneRequest) toScene() (scene.Scene, error) {
	ball, err := toPoint(fieldBall, r.Ball)
	if err != nil {
		return scene.Scene{}, err
	}
	keeper, err := toPoint(fieldGoalkeeper, r.Goalkeeper)
	if err != nil {
		return scene.Scene{}, err
	}
	outfield := make([]geometry.Point, len(r.Outfield))
	for i, xy := range r.Outfield {
		if outfield[i], err = toPoint(fmt.Sprintf("%s[%d]", fieldOutfield, i), xy); err != nil {
			return scene.Scene{}, err
		}
	}
	return scene.New(ball, r.Speed, keeper, outfield)
}

func toPoint(field string, xy []float64) (geometry.Point, error) {
	if len(xy) != 2 {
		return geometry.Point{}, fmt.Errorf("%s must hold two coordinates: %w", field, scene.ErrInvalidCoordinates)
	}
	return geometry.Pt(xy[0], xy[1]), nil
}

// classify maps a parse or estimation error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingData), errors.Is(err, scene.ErrMissingField):
		return statusBadRequest, ""
	case errors.Is(err, scene.ErrInvalidKinematics):
		return statusBadRequest, "invalid_kinematics"
	case errors.Is(err, scene.ErrInvalidCoordinates), errors.Is(err, scene.ErrInvalidRole):
		return statusBadRequest, "invalid_coordinates"
	case errors.Is(err, ErrBodyTooLarge):
		return statusRequestTooLarge, "body_too_large"
	case errors.Is(err, ErrBadRequest):
		return statusBadRequest, "bad_request"
	default:
		return statusInternalError, "internal"
	}
}

// errorBody renders err the way clients expect it.
func errorBody(err error) errorResponse {
	_, code := classify(err)
	switch code {
	case "":
		return errorResponse{Error: missingDataMessage}
	case "invalid_kinematics":
		return errorResponse{Error: "velocidad_balon must be positive", Code: code}
	default:
		return errorResponse{Error: err.Error(), Code: code}
	}
}
