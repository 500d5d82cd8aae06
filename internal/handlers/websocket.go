package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/albaliriagomez/proyectoReusetech/internal/metrics"
)

const writeTimeout = 10 * time.Second

// clientFrame is what clients send over the socket. Join and leave carry the
// room token, derived with the same scheme the server uses on send.
type clientFrame struct {
	Type string `json:"type"` // "join" or "leave"
	Room string `json:"room"`
}

// wsSession adapts one websocket connection to the broker's Session
// interface. Writes are serialized: broadcasts arrive from many goroutines
// and gorilla/websocket allows only one concurrent writer.
type wsSession struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSession) ID() string {
	return s.id
}

func (s *wsSession) Deliver(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// createUpgrader creates a WebSocket upgrader with the given allowed origins.
// An empty list allows every origin (development).
func createUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowedMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedMap[origin] = true
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedMap) == 0 {
				return true
			}
			return allowedMap[r.Header.Get("Origin")]
		},
	}
}

// Websocket handles GET /ws. The connection lives in this handler: the read
// loop processes join/leave frames until the peer goes away, and disconnect
// drops every room membership at once.
func (h *Handler) Websocket(w http.ResponseWriter, r *http.Request) {
	upgrader := createUpgrader(h.allowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := &wsSession{id: uuid.New().String(), conn: conn}
	metrics.WebsocketSessions.Inc()
	h.logger.Debug().Str("session_id", sess.id).Msg("websocket connected")

	defer func() {
		h.broker.Disconnect(sess.id)
		conn.Close()
		metrics.WebsocketSessions.Dec()
		h.logger.Debug().Str("session_id", sess.id).Msg("websocket disconnected")
	}()

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		switch frame.Type {
		case "join":
			if frame.Room == "" {
				continue
			}
			h.broker.Join(sess, frame.Room)
		case "leave":
			if frame.Room == "" {
				continue
			}
			h.broker.Leave(sess.id, frame.Room)
		}
	}
}
