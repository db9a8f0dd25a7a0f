package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

// Progress states.
const (
	StateStarted = "started"
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// ProgressEvent is sent to websocket clients while a heightmap is generated.
type ProgressEvent struct {
	Run   string `json:"run"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans progress events out to connected websocket clients.
type Hub struct {
	clients map[*websocket.Conn]*sync.Mutex
	mu      sync.RWMutex
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*sync.Mutex)}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if ok {
		_ = conn.Close()
	}
}

// Broadcast sends ev to every client, dropping clients that fail to receive it.
func (h *Hub) Broadcast(ev ProgressEvent) {
	h.mu.RLock()
	var failed []*websocket.Conn
	for conn, mu := range h.clients {
		mu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteJSON(ev)
		mu.Unlock()
		if err != nil {
			log.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("Dropping progress client")
			failed = append(failed, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range failed {
		h.remove(conn)
	}
}

// HandleWebSocket registers a progress subscriber. Incoming messages are
// discarded; the read loop only detects disconnects.
func (s *ServerContext) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	s.hub.add(conn)
	defer s.hub.remove(conn)

	log.Debug().Str("remote", r.RemoteAddr).Msg("Progress client connected")

	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
