package dispatch

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 8
)

// WSSession is one connected client. Writes happen on its own goroutine so a
// slow client never blocks the broadcaster.
type WSSession struct {
	conn *websocket.Conn
	out  chan []byte
	once sync.Once
}

func (s *WSSession) writePump(log *slog.Logger) {
	for msg := range s.out {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug("ws write failed", "error", err)
			_ = s.conn.Close()
			// drain so Broadcast never blocks on a dead session
			for range s.out {
			}
			return
		}
	}
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	_ = s.conn.Close()
}

func (s *WSSession) close() { s.once.Do(func() { close(s.out) }) }

// Hub fans state snapshots out to every connected client and remembers the
// latest one for newcomers.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*WSSession]struct{}
	last     []byte
	log      *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{sessions: make(map[*WSSession]struct{}), log: logger}
}

// Add registers conn and sends it the latest snapshot.
func (h *Hub) Add(conn *websocket.Conn) *WSSession {
	s := &WSSession{conn: conn, out: make(chan []byte, sendBuffer)}
	go s.writePump(h.log)
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	if h.last != nil {
		s.out <- h.last
	}
	h.mu.Unlock()
	return s
}

func (h *Hub) Remove(s *WSSession) {
	h.mu.Lock()
	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		s.close()
	}
	h.mu.Unlock()
}

// Serve blocks reading from the session until the client goes away.
func (h *Hub) Serve(s *WSSession) {
	defer h.Remove(s)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast encodes v once and queues it for every session. A session whose
// buffer is full is dropped.
func (h *Hub) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Error("encode broadcast", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = b
	for s := range h.sessions {
		select {
		case s.out <- b:
		default:
			h.log.Warn("dropping slow ws client")
			delete(h.sessions, s)
			s.close()
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		delete(h.sessions, s)
		s.close()
	}
}
