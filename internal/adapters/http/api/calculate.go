package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/xsit/internal/domain/interference"
	"github.com/okian/xsit/internal/domain/scene"
	"github.com/okian/xsit/pkg/logger"
	"github.com/okian/xsit/pkg/metrics"
)

// Request body limits.
const (
	maxSceneBodyBytes = 1 << 20
	maxBatchBodyBytes = 32 << 20
)

// xsitResponse is the body of a successful estimation.
type xsitResponse struct {
	XSIT         float64                       `json:"xsit"`
	Estimator    interference.Kind             `json:"estimator"`
	OpenFraction *float64                      `json:"open_fraction,omitempty"`
	Degenerate   bool                          `json:"degenerate,omitempty"`
	Defenders    []interference.DefenderReport `json:"defenders,omitempty"`
}

// batchEntry is one element of a batch response: a result or an error.
type batchEntry struct {
	*xsitResponse
	*errorResponse
}

type batchResponse struct {
	Results []batchEntry `json:"results"`
}

// CalculateHandler serves the estimation endpoints.
type CalculateHandler struct {
	deps         Dependencies
	logger       logger.Logger
	maxBatchSize int
}

// NewCalculateHandler creates a new calculate handler.
func NewCalculateHandler(deps Dependencies, l logger.Logger, maxBatchSize int) *CalculateHandler {
	if maxBatchSize <= 0 {
		maxBatchSize = defaultMaxBatchSize
	}
	return &CalculateHandler{deps: deps, logger: l, maxBatchSize: maxBatchSize}
}

// HandleCalculate handles POST /calculate_xsit.
func (h *CalculateHandler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "api.calculate_xsit"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	ctx := r.Context()

	kind, detail, err := h.queryOptions(r)
	if err != nil {
		h.reject(w, r, op, WrapKind(op, ErrBadRequest, err))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSceneBodyBytes))
	if err != nil {
		h.reject(w, r, op, bodyError(op, err))
		return
	}
	h.logger.Debug(ctx, "received scene",
		logger.String("request_id", RequestIDFrom(ctx)),
		logger.String("body", string(body)),
	)

	s, err := parseScene(body)
	if err != nil {
		h.reject(w, r, op, err)
		return
	}

	res, err := h.deps.Compute(ctx, s, kind)
	if err != nil {
		h.reject(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res, detail))
}

// HandleBatch handles POST /calculate_xsit/batch.
func (h *CalculateHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.calculate_xsit_batch"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	ctx := r.Context()

	kind, detail, err := h.queryOptions(r)
	if err != nil {
		h.reject(w, r, op, WrapKind(op, ErrBadRequest, err))
		return
	}

	var req batchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.reject(w, r, op, bodyError(op, err))
		return
	}
	if req.Scenes == nil {
		h.reject(w, r, op, WrapKind(op, ErrBadRequest, errors.New("scenes must be an array")))
		return
	}
	if len(req.Scenes) > h.maxBatchSize {
		metrics.RecordValidationError("batch_too_large")
		writeError(w, http.StatusRequestEntityTooLarge, "batch_too_large",
			WrapKind(op, ErrBatchTooLarge, fmt.Errorf("%d scenes, limit %d", len(req.Scenes), h.maxBatchSize)))
		return
	}

	h.logger.Debug(ctx, "received batch",
		logger.String("request_id", RequestIDFrom(ctx)),
		logger.Int("scenes", len(req.Scenes)),
		logger.String("estimator", kind.String()),
	)

	// Scenes that fail to parse are answered directly; the rest go to the pool.
	entries := make([]batchEntry, len(req.Scenes))
	valid := make([]scene.Scene, 0, len(req.Scenes))
	slots := make([]int, 0, len(req.Scenes))
	for i, raw := range req.Scenes {
		s, err := parseScene(raw)
		if err != nil {
			recordRejection(err)
			body := errorBody(err)
			entries[i] = batchEntry{errorResponse: &body}
			continue
		}
		valid = append(valid, s)
		slots = append(slots, i)
	}

	items, err := h.deps.ComputeBatch(ctx, valid, kind)
	if err != nil {
		h.logger.Warn(ctx, "batch failed",
			logger.String("request_id", RequestIDFrom(ctx)),
			logger.Error(err),
		)
		writeError(w, http.StatusServiceUnavailable, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	}
	for j, it := range items {
		i := slots[j]
		if it.Err != nil {
			body := errorBody(it.Err)
			entries[i] = batchEntry{errorResponse: &body}
			continue
		}
		entries[i] = batchEntry{xsitResponse: toResponse(it.Result, detail)}
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: entries})
}

// queryOptions reads ?estimator= and ?detail= from the URL.
func (h *CalculateHandler) queryOptions(r *http.Request) (interference.Kind, bool, error) {
	q := r.URL.Query()
	kind := h.deps.DefaultKind()
	if name := q.Get("estimator"); name != "" {
		k, err := interference.ParseKind(name)
		if err != nil {
			return 0, false, err
		}
		kind = k
	}
	detail := false
	if v := q.Get("detail"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return 0, false, fmt.Errorf("detail: %w", err)
		}
		detail = b
	}
	return kind, detail, nil
}

// reject writes the error response for err and logs it.
func (h *CalculateHandler) reject(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	recordRejection(err)
	if status >= statusInternalError {
		h.logger.Error(r.Context(), "estimation failed",
			logger.String("op", op),
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.Error(err),
		)
	} else {
		h.logger.Debug(r.Context(), "request rejected",
			logger.String("op", op),
			logger.String("code", code),
			logger.Error(err),
		)
	}
	writeJSON(w, status, errorBody(err))
}

func recordRejection(err error) {
	_, code := classify(err)
	if code == "" {
		code = "missing_field"
	}
	metrics.RecordValidationError(code)
}

func toResponse(res interference.Result, detail bool) *xsitResponse {
	out := &xsitResponse{
		XSIT:       res.XSIT,
		Estimator:  res.Kind,
		Degenerate: res.Degenerate,
	}
	if res.Kind != interference.Analytic {
		open := res.OpenFraction
		out.OpenFraction = &open
	}
	if detail {
		out.Defenders = res.Defenders
	}
	return out
}
