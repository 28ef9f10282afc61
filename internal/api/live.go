package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/certmap/internal/filter"
	"github.com/terra-clan/certmap/internal/sessions"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveMaxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveMessage is a filter command sent by the browser
type LiveMessage struct {
	Type  string `json:"type"` // category, toggle_level, clear_levels, search, flush, clear
	Value string `json:"value,omitempty"`
}

// LiveEvent is pushed to the browser. "state" echoes the selection after a
// command, "view" follows every recompute, "error" reports a rejected command.
type LiveEvent struct {
	Type  string        `json:"type"`
	State *sessionState `json:"state,omitempty"`
	Error string        `json:"error,omitempty"`
}

func (s *Server) handleLiveWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("live websocket connected", "session_id", sess.ID())

	views, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan LiveEvent, 16)
	out <- stateEvent("state", sess, sess.Engine().View())

	var wg sync.WaitGroup

	// Session views and command replies -> WebSocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		// unblocks the reader
		defer conn.Close()

		ticker := time.NewTicker(livePingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-out:
				if err := writeLiveEvent(conn, ev); err != nil {
					return
				}
			case v, ok := <-views:
				if !ok {
					conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
						time.Now().Add(liveWriteWait))
					return
				}
				if err := writeLiveEvent(conn, stateEvent("view", sess, v)); err != nil {
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// WebSocket -> engine commands
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		conn.SetReadLimit(liveMaxMessage)
		conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}

			var msg LiveMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				s.sendLive(ctx, out, LiveEvent{Type: "error", Error: "invalid message format"})
				continue
			}

			if err := applyLiveMessage(sess.Engine(), msg); err != nil {
				s.sendLive(ctx, out, LiveEvent{Type: "error", Error: err.Error()})
				continue
			}
			s.sendLive(ctx, out, stateEvent("state", sess, sess.Engine().View()))
		}
	}()

	wg.Wait()
	slog.Info("live websocket disconnected", "session_id", sess.ID())
}

// applyLiveMessage runs one command against the engine
func applyLiveMessage(e *filter.Engine, msg LiveMessage) error {
	switch msg.Type {
	case "category":
		c, err := filter.ParseCategory(msg.Value)
		if err != nil {
			return err
		}
		return e.SetCategory(c)
	case "toggle_level":
		l, err := filter.ParseSkillLevel(msg.Value)
		if err != nil {
			return err
		}
		return e.ToggleSkillLevel(l)
	case "clear_levels":
		e.ClearSkillLevels()
	case "search":
		e.SetSearchText(msg.Value)
	case "flush":
		e.Flush()
	case "clear":
		e.Clear()
	default:
		return fmt.Errorf("unknown message type: %q", msg.Type)
	}
	return nil
}

func stateEvent(kind string, sess *sessions.Session, v filter.View) LiveEvent {
	st := newSessionState(sess, v)
	return LiveEvent{Type: kind, State: &st}
}

func (s *Server) sendLive(ctx context.Context, out chan<- LiveEvent, ev LiveEvent) {
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}

func writeLiveEvent(conn *websocket.Conn, ev LiveEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to marshal live event", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send live event", "error", err)
		return err
	}
	return nil
}
