// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/apexsports/shotform/internal/app"
	"github.com/apexsports/shotform/internal/domain/model"
)

// AnalyzeDependencies defines the interface for synchronous analysis.
type AnalyzeDependencies interface {
	Analyze(ctx context.Context, sub model.ShotSubmission) (*model.ShotRecord, error)
}

// AnalyzeHandler handles synchronous analysis requests.
type AnalyzeHandler struct {
	deps AnalyzeDependencies
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps AnalyzeDependencies) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps}
}

// HandleAnalyze handles POST /analyze requests. The shot record is returned
// directly and never persisted.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req shotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sub, err := req.submission()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	rec, err := h.deps.Analyze(r.Context(), sub)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientData) {
			writeError(w, http.StatusUnprocessableEntity, "insufficient_data", WrapKind(op, ErrUnprocessable, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
