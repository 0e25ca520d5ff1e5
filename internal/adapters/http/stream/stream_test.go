package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/apexsports/shotform/internal/domain/model"
	"github.com/apexsports/shotform/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockDeps struct {
	mu        sync.Mutex
	seen      map[string]bool
	enqueueOK bool
	enqueued  []model.ShotSubmission
}

func newMockDeps() *mockDeps {
	return &mockDeps{seen: make(map[string]bool), enqueueOK: true}
}

func (m *mockDeps) SeenAndRecord(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDeps) Unrecord(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
}

func (m *mockDeps) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen))
}

func (m *mockDeps) Enqueue(ctx context.Context, sub model.ShotSubmission) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enqueueOK {
		return false
	}
	m.enqueued = append(m.enqueued, sub)
	return true
}

func (m *mockDeps) wasSeen(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[id]
}

func (m *mockDeps) enqueuedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.enqueued)
}

func dialTestServer(t *testing.T, deps *mockDeps) (*websocket.Conn, func()) {
	t.Helper()
	handler := NewHandler(deps)
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleStream))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func sendMessage(conn *websocket.Conn, msgType string, data any) error {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = b
	}
	return conn.WriteJSON(clientMessage{Type: msgType, Data: raw})
}

func readMessage(conn *websocket.Conn) (serverMessage, error) {
	var msg serverMessage
	err := conn.ReadJSON(&msg)
	return msg, err
}

func streamShot(conn *websocket.Conn, shotID, sessionID string, frames int) error {
	if err := sendMessage(conn, "start_shot", startShotData{ShotID: shotID, SessionID: sessionID}); err != nil {
		return err
	}
	if _, err := readMessage(conn); err != nil {
		return err
	}
	for i := 0; i < frames; i++ {
		frame := frameData{
			Index: i,
			Landmarks: map[string]model.Landmark{
				"right_wrist": {X: 0.58, Y: 0.60, Confidence: 0.9},
			},
		}
		if err := sendMessage(conn, "frame", frame); err != nil {
			return err
		}
	}
	return sendMessage(conn, "end_shot", nil)
}

func TestStreamShotIngest(t *testing.T) {
	Convey("Given a connected stream client", t, func() {
		deps := newMockDeps()
		conn, cleanup := dialTestServer(t, deps)
		defer cleanup()

		Convey("When streaming a complete shot", func() {
			So(streamShot(conn, "shot-1", "session-1", 4), ShouldBeNil)
			msg, err := readMessage(conn)
			So(err, ShouldBeNil)

			Convey("Then the shot should be accepted and enqueued", func() {
				So(msg.Type, ShouldEqual, "shot_ack")
				data := msg.Data.(map[string]any)
				So(data["status"], ShouldEqual, "accepted")
				So(data["shot_id"], ShouldEqual, "shot-1")
				So(deps.enqueuedCount(), ShouldEqual, 1)
				deps.mu.Lock()
				sub := deps.enqueued[0]
				deps.mu.Unlock()
				So(sub.SessionID, ShouldEqual, "session-1")
				So(sub.Frames, ShouldHaveLength, 4)
			})
		})

		Convey("When streaming the same shot id twice", func() {
			So(streamShot(conn, "shot-1", "session-1", 2), ShouldBeNil)
			_, err := readMessage(conn)
			So(err, ShouldBeNil)

			So(streamShot(conn, "shot-1", "session-1", 2), ShouldBeNil)
			msg, err := readMessage(conn)
			So(err, ShouldBeNil)

			Convey("Then the second should be acknowledged as a duplicate", func() {
				So(msg.Type, ShouldEqual, "shot_ack")
				data := msg.Data.(map[string]any)
				So(data["status"], ShouldEqual, "duplicate")
				So(deps.enqueuedCount(), ShouldEqual, 1)
			})
		})

		Convey("When the queue applies backpressure", func() {
			deps.mu.Lock()
			deps.enqueueOK = false
			deps.mu.Unlock()

			So(streamShot(conn, "shot-2", "session-1", 2), ShouldBeNil)
			msg, err := readMessage(conn)
			So(err, ShouldBeNil)

			Convey("Then the shot should be rejected and unmarked for retry", func() {
				So(msg.Type, ShouldEqual, "shot_ack")
				data := msg.Data.(map[string]any)
				So(data["status"], ShouldEqual, "backpressure")
				So(deps.wasSeen("shot-2"), ShouldBeFalse)
			})
		})
	})
}

func TestStreamProtocolErrors(t *testing.T) {
	Convey("Given a connected stream client", t, func() {
		deps := newMockDeps()
		conn, cleanup := dialTestServer(t, deps)
		defer cleanup()

		Convey("When sending a frame outside a shot", func() {
			frame := frameData{Index: 0, Landmarks: map[string]model.Landmark{}}
			So(sendMessage(conn, "frame", frame), ShouldBeNil)
			msg, err := readMessage(conn)
			So(err, ShouldBeNil)

			Convey("Then an error should be returned", func() {
				So(msg.Type, ShouldEqual, "error")
			})
		})

		Convey("When ending a shot that was never started", func() {
			So(sendMessage(conn, "end_shot", nil), ShouldBeNil)
			msg, err := readMessage(conn)
			So(err, ShouldBeNil)

			Convey("Then an error should be returned", func() {
				So(msg.Type, ShouldEqual, "error")
			})
		})

		Convey("When starting a shot twice", func() {
			So(sendMessage(conn, "start_shot", startShotData{ShotID: "a", SessionID: "b"}), ShouldBeNil)
			_, err := readMessage(conn)
			So(err, ShouldBeNil)
			So(sendMessage(conn, "start_shot", startShotData{ShotID: "a", SessionID: "b"}), ShouldBeNil)
			msg, err := readMessage(conn)
			So(err, ShouldBeNil)

			Convey("Then an error should be returned", func() {
				So(msg.Type, ShouldEqual, "error")
			})
		})

		Convey("When starting a shot without an id", func() {
			So(sendMessage(conn, "start_shot", startShotData{SessionID: "b"}), ShouldBeNil)
			msg, err := readMessage(conn)
			So(err, ShouldBeNil)

			Convey("Then an error should be returned", func() {
				So(msg.Type, ShouldEqual, "error")
			})
		})

		Convey("When sending a frame with an unknown joint", func() {
			So(sendMessage(conn, "start_shot", startShotData{ShotID: "a", SessionID: "b"}), ShouldBeNil)
			_, err := readMessage(conn)
			So(err, ShouldBeNil)
			frame := frameData{
				Index:     0,
				Landmarks: map[string]model.Landmark{"left_eyebrow": {Confidence: 0.9}},
			}
			So(sendMessage(conn, "frame", frame), ShouldBeNil)
			msg, err := readMessage(conn)
			So(err, ShouldBeNil)

			Convey("Then an error should be returned", func() {
				So(msg.Type, ShouldEqual, "error")
			})
		})

		Convey("When sending a ping", func() {
			So(sendMessage(conn, "ping", nil), ShouldBeNil)
			msg, err := readMessage(conn)
			So(err, ShouldBeNil)

			Convey("Then a pong should be returned", func() {
				So(msg.Type, ShouldEqual, "pong")
			})
		})

		Convey("When sending an unknown message type", func() {
			So(sendMessage(conn, "selfie", nil), ShouldBeNil)
			msg, err := readMessage(conn)
			So(err, ShouldBeNil)

			Convey("Then an error should be returned", func() {
				So(msg.Type, ShouldEqual, "error")
			})
		})
	})
}

func TestStreamConcurrentWrites(t *testing.T) {
	Convey("Given a connection written to by pings and replies at once", t, func() {
		const writers = 4
		const perWriter = 50

		upgrader := websocket.Upgrader{}
		serverDone := make(chan error, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				serverDone <- err
				return
			}
			defer raw.Close()
			conn := newWSConn(raw)

			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < perWriter; j++ {
						if err := conn.writePing(time.Now().Add(time.Second)); err != nil {
							return
						}
						if err := conn.writeJSON(serverMessage{Type: "pong"}); err != nil {
							return
						}
					}
				}()
			}
			wg.Wait()
			serverDone <- nil
		}))
		defer srv.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("When draining every interleaved message", func() {
			received := 0
			for received < writers*perWriter {
				var msg serverMessage
				So(conn.ReadJSON(&msg), ShouldBeNil)
				received++
			}

			Convey("Then the connection survives without a write collision", func() {
				So(received, ShouldEqual, writers*perWriter)
				So(<-serverDone, ShouldBeNil)
			})
		})
	})
}

func TestStreamEmptyShot(t *testing.T) {
	Convey("Given a connected stream client", t, func() {
		deps := newMockDeps()
		conn, cleanup := dialTestServer(t, deps)
		defer cleanup()

		Convey("When ending a shot with no frames", func() {
			So(sendMessage(conn, "start_shot", startShotData{ShotID: "a", SessionID: "b"}), ShouldBeNil)
			_, err := readMessage(conn)
			So(err, ShouldBeNil)
			So(sendMessage(conn, "end_shot", nil), ShouldBeNil)
			msg, err := readMessage(conn)
			So(err, ShouldBeNil)

			Convey("Then an error should be returned and nothing enqueued", func() {
				So(msg.Type, ShouldEqual, "error")
				So(deps.enqueuedCount(), ShouldEqual, 0)
			})
		})
	})
}
