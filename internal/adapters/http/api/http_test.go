package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/apexsports/shotform/internal/adapters/repository"
	service "github.com/apexsports/shotform/internal/app"
	"github.com/apexsports/shotform/internal/domain/model"
	"github.com/apexsports/shotform/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies implements the Dependencies interface for handler tests.
type mockDependencies struct {
	seen       map[string]bool
	enqueueOK  bool
	enqueued   []model.ShotSubmission
	analyzeRec *model.ShotRecord
	analyzeErr error
	summary    *model.SessionSummary
	sessionErr error
	sessions   []string
	plan       types.Plan
	planErr    error
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		seen:      make(map[string]bool),
		enqueueOK: true,
	}
}

func (m *mockDependencies) SeenAndRecord(ctx context.Context, id string) bool {
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDependencies) Unrecord(ctx context.Context, id string) {
	delete(m.seen, id)
}

func (m *mockDependencies) Size() int64 {
	return int64(len(m.seen))
}

func (m *mockDependencies) Enqueue(ctx context.Context, sub model.ShotSubmission) bool {
	if !m.enqueueOK {
		return false
	}
	m.enqueued = append(m.enqueued, sub)
	return true
}

func (m *mockDependencies) Analyze(ctx context.Context, sub model.ShotSubmission) (*model.ShotRecord, error) {
	if m.analyzeErr != nil {
		return nil, m.analyzeErr
	}
	if m.analyzeRec != nil {
		return m.analyzeRec, nil
	}
	return &model.ShotRecord{
		ShotID:     sub.ShotID,
		SessionID:  sub.SessionID,
		FrameCount: len(sub.Frames),
		Score:      100,
		Grade:      "A",
	}, nil
}

func (m *mockDependencies) Session(ctx context.Context, sessionID string) (*model.SessionSummary, error) {
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	if m.summary != nil {
		return m.summary, nil
	}
	return &model.SessionSummary{SessionID: sessionID}, nil
}

func (m *mockDependencies) Sessions(ctx context.Context) []string {
	return m.sessions
}

func (m *mockDependencies) CoachingPlan(ctx context.Context, sessionID string) (types.Plan, error) {
	if m.planErr != nil {
		return types.Plan{}, m.planErr
	}
	return m.plan, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

// shotBody builds a valid wire payload with the given number of frames.
func shotBody(shotID, sessionID string, frames int) *bytes.Reader {
	req := shotRequest{ShotID: shotID, SessionID: sessionID}
	for i := 0; i < frames; i++ {
		req.Frames = append(req.Frames, frameRequest{
			Index: i,
			Landmarks: map[string]landmarkRequest{
				"right_shoulder": {X: 0.56, Y: 0.45, Confidence: 0.9},
				"right_wrist":    {X: 0.58, Y: 0.60, Confidence: 0.9},
			},
		})
	}
	b, _ := json.Marshal(req)
	return bytes.NewReader(b)
}

func TestServerRegister(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := newMockDependencies()
		statsProvider := &mockStatsProvider{stats: map[string]interface{}{"shots": 0}}
		server := NewServer(deps, statsProvider)
		mux := http.NewServeMux()

		Convey("When registering routes", func() {
			server.Register(context.Background(), mux, deps)

			Convey("Then health endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/healthz", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And stats endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/stats", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "shots")
			})

			Convey("And shots endpoint should reject an empty submission", func() {
				req := httptest.NewRequest("POST", "/shots", strings.NewReader(`{}`))
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And analyze endpoint should reject an empty submission", func() {
				req := httptest.NewRequest("POST", "/analyze", strings.NewReader(`{}`))
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And sessions endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/sessions", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And unknown paths should return not found", func() {
				req := httptest.NewRequest("GET", "/unknown", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestHandlePostShot(t *testing.T) {
	Convey("Given a shots handler", t, func() {
		deps := newMockDependencies()
		handler := NewShotsHandler(deps)

		Convey("When posting a valid shot", func() {
			req := httptest.NewRequest("POST", "/shots", shotBody("shot-1", "session-1", 3))
			w := httptest.NewRecorder()
			handler.HandlePostShot(w, req)

			Convey("Then it should be accepted for processing", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var resp ackResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Status, ShouldEqual, "accepted")
				So(resp.Duplicate, ShouldBeFalse)
				So(deps.enqueued, ShouldHaveLength, 1)
				So(deps.enqueued[0].ShotID, ShouldEqual, "shot-1")
				So(deps.enqueued[0].Frames, ShouldHaveLength, 3)
			})
		})

		Convey("When posting the same shot twice", func() {
			first := httptest.NewRequest("POST", "/shots", shotBody("shot-1", "session-1", 3))
			handler.HandlePostShot(httptest.NewRecorder(), first)

			second := httptest.NewRequest("POST", "/shots", shotBody("shot-1", "session-1", 3))
			w := httptest.NewRecorder()
			handler.HandlePostShot(w, second)

			Convey("Then the duplicate should be acknowledged without enqueueing", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp ackResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Duplicate, ShouldBeTrue)
				So(deps.enqueued, ShouldHaveLength, 1)
			})
		})

		Convey("When the queue applies backpressure", func() {
			deps.enqueueOK = false
			req := httptest.NewRequest("POST", "/shots", shotBody("shot-2", "session-1", 3))
			w := httptest.NewRecorder()
			handler.HandlePostShot(w, req)

			Convey("Then the shot should be rejected and unmarked for retry", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(deps.seen["shot-2"], ShouldBeFalse)
			})
		})

		Convey("When posting malformed JSON", func() {
			req := httptest.NewRequest("POST", "/shots", strings.NewReader(`{not json`))
			w := httptest.NewRecorder()
			handler.HandlePostShot(w, req)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting an unknown joint name", func() {
			body := `{"shot_id":"s1","session_id":"ss1","frames":[{"index":0,"landmarks":{"left_eyebrow":{"x":0.1,"y":0.1,"confidence":0.9}}}]}`
			req := httptest.NewRequest("POST", "/shots", strings.NewReader(body))
			w := httptest.NewRecorder()
			handler.HandlePostShot(w, req)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "unknown joint")
			})
		})

		Convey("When using the wrong method", func() {
			req := httptest.NewRequest("GET", "/shots", nil)
			w := httptest.NewRecorder()
			handler.HandlePostShot(w, req)

			Convey("Then it should not be found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestHandleAnalyze(t *testing.T) {
	Convey("Given an analyze handler", t, func() {
		deps := newMockDependencies()
		handler := NewAnalyzeHandler(deps)

		Convey("When analyzing a valid shot", func() {
			req := httptest.NewRequest("POST", "/analyze", shotBody("shot-1", "session-1", 5))
			w := httptest.NewRecorder()
			handler.HandleAnalyze(w, req)

			Convey("Then the record should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var rec model.ShotRecord
				So(json.NewDecoder(w.Body).Decode(&rec), ShouldBeNil)
				So(rec.ShotID, ShouldEqual, "shot-1")
				So(rec.FrameCount, ShouldEqual, 5)
				So(rec.Score, ShouldEqual, 100)
			})
		})

		Convey("When the shot has too little reliable data", func() {
			deps.analyzeErr = fmt.Errorf("analyze: %w", service.ErrInsufficientData)
			req := httptest.NewRequest("POST", "/analyze", shotBody("shot-1", "session-1", 5))
			w := httptest.NewRecorder()
			handler.HandleAnalyze(w, req)

			Convey("Then it should be unprocessable", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(w.Body.String(), ShouldContainSubstring, "insufficient_data")
			})
		})

		Convey("When analysis fails for another reason", func() {
			deps.analyzeErr = errors.New("boom")
			req := httptest.NewRequest("POST", "/analyze", shotBody("shot-1", "session-1", 5))
			w := httptest.NewRecorder()
			handler.HandleAnalyze(w, req)

			Convey("Then it should be an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestHandleSessions(t *testing.T) {
	Convey("Given a sessions handler", t, func() {
		deps := newMockDependencies()
		handler := NewSessionsHandler(deps)

		Convey("When listing sessions with none recorded", func() {
			req := httptest.NewRequest("GET", "/sessions", nil)
			w := httptest.NewRecorder()
			handler.HandleListSessions(w, req)

			Convey("Then the list should be present and empty", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp sessionListResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Sessions, ShouldBeEmpty)
			})
		})

		Convey("When listing recorded sessions", func() {
			deps.sessions = []string{"morning", "evening"}
			req := httptest.NewRequest("GET", "/sessions", nil)
			w := httptest.NewRecorder()
			handler.HandleListSessions(w, req)

			Convey("Then the ids should be returned in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp sessionListResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Sessions, ShouldResemble, []string{"morning", "evening"})
			})
		})

		Convey("When fetching an existing session", func() {
			deps.summary = &model.SessionSummary{SessionID: "morning", ShotCount: 4}
			req := httptest.NewRequest("GET", "/sessions/morning", nil)
			w := httptest.NewRecorder()
			handler.HandleGetSession(w, req)

			Convey("Then the summary should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var summary model.SessionSummary
				So(json.NewDecoder(w.Body).Decode(&summary), ShouldBeNil)
				So(summary.SessionID, ShouldEqual, "morning")
				So(summary.ShotCount, ShouldEqual, 4)
			})
		})

		Convey("When fetching a missing session", func() {
			deps.sessionErr = fmt.Errorf("lookup: %w", repository.ErrSessionNotFound)
			req := httptest.NewRequest("GET", "/sessions/ghost", nil)
			w := httptest.NewRecorder()
			handler.HandleGetSession(w, req)

			Convey("Then it should not be found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When fetching a coaching plan", func() {
			deps.plan = types.Plan{
				Recommendations: []types.Recommendation{
					{Rank: 1, Flaw: model.ElbowFlare, Occurrence: 3},
				},
			}
			req := httptest.NewRequest("GET", "/sessions/morning/plan", nil)
			w := httptest.NewRecorder()
			handler.HandleGetSession(w, req)

			Convey("Then the plan should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var plan types.Plan
				So(json.NewDecoder(w.Body).Decode(&plan), ShouldBeNil)
				So(plan.Recommendations, ShouldHaveLength, 1)
				So(plan.Recommendations[0].Rank, ShouldEqual, 1)
			})
		})

		Convey("When fetching a plan for a missing session", func() {
			deps.planErr = fmt.Errorf("lookup: %w", repository.ErrSessionNotFound)
			req := httptest.NewRequest("GET", "/sessions/ghost/plan", nil)
			w := httptest.NewRecorder()
			handler.HandleGetSession(w, req)

			Convey("Then it should not be found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the path has an unknown trailing segment", func() {
			req := httptest.NewRequest("GET", "/sessions/morning/extra", nil)
			w := httptest.NewRecorder()
			handler.HandleGetSession(w, req)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestShotRequestValidate(t *testing.T) {
	Convey("Given a shot request", t, func() {
		Convey("When all fields are present", func() {
			req := shotRequest{
				ShotID:    "shot-1",
				SessionID: "session-1",
				Frames:    []frameRequest{{Index: 0}},
			}
			So(req.validate(), ShouldBeNil)
		})

		Convey("When shot_id is blank", func() {
			req := shotRequest{
				ShotID:    "   ",
				SessionID: "session-1",
				Frames:    []frameRequest{{Index: 0}},
			}
			err := req.validate()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "missing shot_id")
		})

		Convey("When session_id is missing", func() {
			req := shotRequest{
				ShotID: "shot-1",
				Frames: []frameRequest{{Index: 0}},
			}
			err := req.validate()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "missing session_id")
		})

		Convey("When frames are missing", func() {
			req := shotRequest{
				ShotID:    "shot-1",
				SessionID: "session-1",
			}
			err := req.validate()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "missing frames")
		})
	})
}
