// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/apexsports/shotform/internal/domain/model"
	"github.com/apexsports/shotform/internal/domain/types"
)

// SessionDependencies defines the interface for session read operations.
type SessionDependencies interface {
	Session(ctx context.Context, sessionID string) (*model.SessionSummary, error)
	Sessions(ctx context.Context) []string
	CoachingPlan(ctx context.Context, sessionID string) (types.Plan, error)
}

// SessionsHandler handles session queries.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type sessionListResponse struct {
	Sessions []string `json:"sessions"`
}

// HandleListSessions handles GET /sessions requests.
func (h *SessionsHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ids := h.deps.Sessions(r.Context())
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, sessionListResponse{Sessions: ids})
}

// HandleGetSession handles GET /sessions/{session_id} and
// GET /sessions/{session_id}/plan requests.
func (h *SessionsHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameters after /sessions/
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	sessionID, rest, _ := strings.Cut(path, "/")
	if sessionID == "" || (rest != "" && rest != "plan") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	if rest == "plan" {
		plan, err := h.deps.CoachingPlan(r.Context(), sessionID)
		if err != nil {
			h.writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plan)
		return
	}

	summary, err := h.deps.Session(r.Context(), sessionID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *SessionsHandler) writeSessionError(w http.ResponseWriter, err error) {
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err)
}
