// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/apexsports/shotform/internal/domain/dedupe"
	"github.com/apexsports/shotform/internal/domain/model"
)

// ShotDependencies defines the interface for async shot processing.
type ShotDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, sub model.ShotSubmission) bool
}

// ShotsHandler handles async shot submissions.
type ShotsHandler struct {
	deps ShotDependencies
}

// NewShotsHandler creates a new shots handler.
func NewShotsHandler(deps ShotDependencies) *ShotsHandler {
	return &ShotsHandler{deps: deps}
}

// HandlePostShot handles POST /shots requests.
func (h *ShotsHandler) HandlePostShot(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_shot"
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

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), sub.ShotID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	// Try to enqueue for async processing
	if ok := h.deps.Enqueue(r.Context(), sub); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), sub.ShotID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
