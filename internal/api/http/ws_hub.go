package apihttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mediavault/internal/domain"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = 30 * time.Second
	wsSendBacklog = 256
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsEvent is the envelope pushed to browser clients: transfer progress ticks
// and periodic movie summaries share one feed.
type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// wsHub fans events out to every connected player UI. All client bookkeeping
// happens on the run goroutine; the rest of the server only ever touches the
// channels.
type wsHub struct {
	subscribers map[*wsSubscriber]struct{}
	events      chan []byte
	attach      chan *wsSubscriber
	detach      chan *wsSubscriber
	done        chan struct{}
	logger      *slog.Logger
}

func newWSHub(logger *slog.Logger) *wsHub {
	return &wsHub{
		subscribers: make(map[*wsSubscriber]struct{}),
		events:      make(chan []byte, 64),
		attach:      make(chan *wsSubscriber),
		detach:      make(chan *wsSubscriber),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

func (h *wsHub) run() {
	for {
		select {
		case <-h.done:
			for sub := range h.subscribers {
				sub.shutdown()
				delete(h.subscribers, sub)
			}
			h.logger.Debug("ws hub stopped")
			return
		case sub := <-h.attach:
			h.subscribers[sub] = struct{}{}
			h.logger.Debug("ws subscriber attached", slog.Int("total", len(h.subscribers)))
		case sub := <-h.detach:
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.send)
				h.logger.Debug("ws subscriber detached", slog.Int("total", len(h.subscribers)))
			}
		case payload := <-h.events:
			for sub := range h.subscribers {
				select {
				case sub.send <- payload:
				default:
					// A subscriber that cannot keep up is dropped rather than
					// allowed to stall the feed for everyone else.
					delete(h.subscribers, sub)
					close(sub.send)
				}
			}
		}
	}
}

// Broadcast queues one event for every subscriber. Best effort: when the
// event channel is full the update is dropped, a later tick supersedes it.
func (h *wsHub) Broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(wsEvent{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error("ws event marshal failed", slog.String("error", err.Error()))
		return
	}
	select {
	case h.events <- payload:
	default:
	}
}

func (h *wsHub) Close() {
	close(h.done)
}

// hubSink adapts the hub to ports.ProgressSink so the download orchestrator
// can publish task snapshots without knowing about websockets.
type hubSink struct {
	hub *wsHub
}

func (s hubSink) Publish(task domain.DownloadTask) {
	s.hub.Broadcast("transfer", task)
}

type wsSubscriber struct {
	hub  *wsHub
	conn *websocket.Conn
	send chan []byte
}

func (sub *wsSubscriber) shutdown() {
	_ = sub.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(wsWriteWait),
	)
	close(sub.send)
}

func (sub *wsSubscriber) writePump() {
	ping := time.NewTicker(wsPingPeriod)
	defer func() {
		ping.Stop()
		sub.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ping.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains incoming frames to keep pong handling alive; clients only
// ever listen on this feed.
func (sub *wsSubscriber) readPump() {
	defer func() {
		// The run goroutine is gone once the hub closes; never wait on it.
		select {
		case sub.hub.detach <- sub:
		case <-sub.hub.done:
		}
		sub.conn.Close()
	}()
	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	sub.conn.SetPongHandler(func(string) error {
		_ = sub.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}
