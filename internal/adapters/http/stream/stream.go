// Package stream accepts live landmark feeds over WebSocket. A client
// opens one connection per capture device, brackets each shot with
// start_shot and end_shot messages, and streams frames in between. The
// buffered shot is handed to the analysis queue on end_shot, so the
// ingest path and the HTTP POST path share the same dedupe and
// backpressure behavior.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/apexsports/shotform/internal/domain/dedupe"
	"github.com/apexsports/shotform/internal/domain/model"
	"github.com/apexsports/shotform/pkg/logger"
)

const (
	maxMessageSize = 10 * 1024 * 1024
	readTimeout    = 60 * time.Second
	writeTimeout   = 10 * time.Second
	pingInterval   = 54 * time.Second
)

// Dependencies required by the stream handler.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes a shot for async analysis. Returns false on backpressure.
	Enqueue(ctx context.Context, sub model.ShotSubmission) bool
}

// Handler upgrades HTTP connections and ingests shot streams.
type Handler struct {
	deps     Dependencies
	logger   logger.Logger
	upgrader websocket.Upgrader
}

// clientMessage is the envelope for every client-to-server message.
type clientMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// serverMessage is the envelope for every server-to-client message.
type serverMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// startShotData identifies the shot a frame stream belongs to.
type startShotData struct {
	ShotID    string `json:"shot_id"`
	SessionID string `json:"session_id"`
}

// frameData is one streamed frame keyed by joint wire names.
type frameData struct {
	Index     int                       `json:"index"`
	Landmarks map[string]model.Landmark `json:"landmarks"`
}

// wsConn wraps a connection with a write lock. The ping loop and the
// message loop write from different goroutines, and gorilla/websocket
// permits at most one concurrent writer per connection.
type wsConn struct {
	*websocket.Conn
	writeMu sync.Mutex
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{Conn: conn}
}

func (c *wsConn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

func (c *wsConn) writePing(deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.Conn.SetWriteDeadline(deadline)
	return c.Conn.WriteMessage(websocket.PingMessage, nil)
}

// NewHandler creates a stream handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		deps:   deps,
		logger: logger.Get().Named("stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleStream handles GET /stream requests by upgrading to WebSocket and
// running the per-connection message loop until the client disconnects.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	conn := newWSConn(raw)
	defer conn.Close()

	ctx := r.Context()
	h.logger.Info(ctx, "stream client connected",
		logger.String("remote", conn.RemoteAddr().String()))

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go h.pingLoop(ctx, conn, ticker, done)

	// Per-connection shot buffer. A connection streams one shot at a time.
	sess := &shotBuffer{}

	for {
		select {
		case <-done:
			return
		default:
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Error(ctx, "stream read failed", logger.Error(err))
				}
				close(done)
				return
			}
			h.handleMessage(ctx, conn, sess, &msg)
		}
	}
}

// shotBuffer accumulates the frames of the in-flight shot. Only the
// connection goroutine touches it.
type shotBuffer struct {
	active    bool
	shotID    string
	sessionID string
	frames    []model.Frame
}

func (h *Handler) handleMessage(ctx context.Context, conn *wsConn, sess *shotBuffer, msg *clientMessage) {
	switch msg.Type {
	case "start_shot":
		h.handleStartShot(ctx, conn, sess, msg)
	case "frame":
		h.handleFrame(ctx, conn, sess, msg)
	case "end_shot":
		h.handleEndShot(ctx, conn, sess)
	case "ping":
		h.send(ctx, conn, "pong", map[string]any{"timestamp": time.Now().Unix()})
	default:
		h.logger.Warn(ctx, "unknown stream message type", logger.String("type", msg.Type))
		h.sendError(ctx, conn, "unknown message type: "+msg.Type)
	}
}

func (h *Handler) handleStartShot(ctx context.Context, conn *wsConn, sess *shotBuffer, msg *clientMessage) {
	if sess.active {
		h.sendError(ctx, conn, "shot already in progress")
		return
	}
	var data startShotData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, "invalid start_shot data")
		return
	}
	if data.ShotID == "" || data.SessionID == "" {
		h.sendError(ctx, conn, "start_shot requires shot_id and session_id")
		return
	}
	sess.active = true
	sess.shotID = data.ShotID
	sess.sessionID = data.SessionID
	sess.frames = sess.frames[:0]
	h.send(ctx, conn, "shot_started", map[string]any{"shot_id": data.ShotID})
}

func (h *Handler) handleFrame(ctx context.Context, conn *wsConn, sess *shotBuffer, msg *clientMessage) {
	if !sess.active {
		h.sendError(ctx, conn, "frame received outside a shot")
		return
	}
	var data frameData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, "invalid frame data")
		return
	}
	frame := model.Frame{Index: data.Index}
	for name, lm := range data.Landmarks {
		j, err := model.ParseJoint(name)
		if err != nil {
			h.sendError(ctx, conn, err.Error())
			return
		}
		frame.Landmarks[j] = lm
	}
	sess.frames = append(sess.frames, frame)
}

func (h *Handler) handleEndShot(ctx context.Context, conn *wsConn, sess *shotBuffer) {
	if !sess.active {
		h.sendError(ctx, conn, "end_shot without start_shot")
		return
	}
	shotID := sess.shotID
	sub := model.ShotSubmission{
		ShotID:    shotID,
		SessionID: sess.sessionID,
		Frames:    append([]model.Frame(nil), sess.frames...),
	}
	sess.active = false
	sess.frames = sess.frames[:0]

	if len(sub.Frames) == 0 {
		h.sendError(ctx, conn, "shot has no frames")
		return
	}

	if h.deps.SeenAndRecord(ctx, shotID) {
		h.send(ctx, conn, "shot_ack", map[string]any{
			"shot_id": shotID, "status": "duplicate",
		})
		return
	}
	if ok := h.deps.Enqueue(ctx, sub); !ok {
		h.deps.Unrecord(ctx, shotID)
		h.send(ctx, conn, "shot_ack", map[string]any{
			"shot_id": shotID, "status": "backpressure",
		})
		return
	}
	h.send(ctx, conn, "shot_ack", map[string]any{
		"shot_id": shotID, "status": "accepted", "frames": len(sub.Frames),
	})
}

func (h *Handler) send(ctx context.Context, conn *wsConn, messageType string, data any) {
	msg := serverMessage{Type: messageType, Data: data}
	if err := conn.writeJSON(msg); err != nil {
		h.logger.Error(ctx, "stream write failed", logger.Error(err))
	}
}

func (h *Handler) sendError(ctx context.Context, conn *wsConn, errorMsg string) {
	h.send(ctx, conn, "error", map[string]any{
		"message":   errorMsg,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handler) pingLoop(ctx context.Context, conn *wsConn, ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-ticker.C:
			if err := conn.writePing(time.Now().Add(writeTimeout)); err != nil {
				h.logger.Error(ctx, "stream ping failed", logger.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
