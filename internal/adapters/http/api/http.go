// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/apexsports/shotform/internal/adapters/repository"
	"github.com/apexsports/shotform/internal/domain/dedupe"
	"github.com/apexsports/shotform/internal/domain/model"
	"github.com/apexsports/shotform/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes a shot for async analysis. Returns false on backpressure.
	Enqueue(ctx context.Context, sub model.ShotSubmission) bool

	// Analyze runs the pipeline synchronously without persisting the result.
	Analyze(ctx context.Context, sub model.ShotSubmission) (*model.ShotRecord, error)

	// Read operations expose session data.
	Session(ctx context.Context, sessionID string) (*model.SessionSummary, error)
	Sessions(ctx context.Context) []string
	CoachingPlan(ctx context.Context, sessionID string) (types.Plan, error)
}

// Plan mirrors the read shape returned by coaching plan queries.
type Plan = types.Plan

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	shotsHandler    *ShotsHandler
	analyzeHandler  *AnalyzeHandler
	sessionsHandler *SessionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		shotsHandler:    NewShotsHandler(deps),
		analyzeHandler:  NewAnalyzeHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux, deps Dependencies) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/shots", MetricsMiddleware(s.shotsHandler.HandlePostShot, "shots"))
	mux.HandleFunc("/analyze", MetricsMiddleware(s.analyzeHandler.HandleAnalyze, "analyze"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleListSessions, "sessions"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleGetSession, "session"))
}

// landmarkRequest is one joint position on the wire.
type landmarkRequest struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// frameRequest carries one frame keyed by joint wire names. Joints absent
// from the map decode as zero-confidence landmarks, which the pipeline
// treats as unreliable.
type frameRequest struct {
	Index     int                        `json:"index"`
	Landmarks map[string]landmarkRequest `json:"landmarks"`
}

// shotRequest mirrors the wire schema for POST /shots and POST /analyze.
type shotRequest struct {
	ShotID    string         `json:"shot_id"`
	SessionID string         `json:"session_id"`
	Frames    []frameRequest `json:"frames"`
}

func (s *shotRequest) validate() error {
	switch {
	case strings.TrimSpace(s.ShotID) == "":
		return errors.New("missing shot_id")
	case strings.TrimSpace(s.SessionID) == "":
		return errors.New("missing session_id")
	case len(s.Frames) == 0:
		return errors.New("missing frames")
	}
	return nil
}

// submission converts the wire shape to the domain submission. Unknown
// joint names are a validation error, never silently dropped.
func (s *shotRequest) submission() (model.ShotSubmission, error) {
	frames := make([]model.Frame, len(s.Frames))
	for i, fr := range s.Frames {
		frames[i].Index = fr.Index
		for name, lm := range fr.Landmarks {
			j, err := model.ParseJoint(name)
			if err != nil {
				return model.ShotSubmission{}, err
			}
			frames[i].Landmarks[j] = model.Landmark{
				X:          lm.X,
				Y:          lm.Y,
				Confidence: lm.Confidence,
			}
		}
	}
	return model.ShotSubmission{
		ShotID:    s.ShotID,
		SessionID: s.SessionID,
		Frames:    frames,
	}, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates the repository's not-found condition to a 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrSessionNotFound)
}
