package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/kaiplay/internal/app"
	"github.com/ayusman/kaiplay/internal/logging"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Snapshotter provides the state broadcast to clients.
type Snapshotter interface {
	Snapshot() app.State
}

// stateMessage is one broadcast frame.
type stateMessage struct {
	app.State
	Timestamp int64 `json:"timestamp"`
}

// StateHandler broadcasts game snapshots to WebSocket clients. The
// broadcaster only runs while someone is connected.
type StateHandler struct {
	source   Snapshotter
	interval time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]*sync.Mutex
	stop    chan struct{}
	closed  bool
}

// NewStateHandler creates a StateHandler polling source every interval.
func NewStateHandler(source Snapshotter, interval time.Duration) *StateHandler {
	return &StateHandler{
		source:   source,
		interval: interval,
		clients:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug(logging.Fields{"error": err}, "websocket upgrade failed")
		return
	}
	defer conn.Close()

	if !h.add(conn) {
		return
	}
	defer h.remove(conn)

	// Send the current state right away so clients need not wait a tick.
	h.send(conn, h.message())

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *StateHandler) add(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[conn] = &sync.Mutex{}
	if h.stop == nil {
		h.stop = make(chan struct{})
		go h.broadcast(h.stop)
	}
	return true
}

func (h *StateHandler) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	if len(h.clients) == 0 && h.stop != nil {
		close(h.stop)
		h.stop = nil
	}
}

// Clients returns the number of connected clients.
func (h *StateHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *StateHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.clients {
		conn.Close()
	}
}

func (h *StateHandler) message() []byte {
	msg, err := json.Marshal(stateMessage{State: h.source.Snapshot(), Timestamp: time.Now().UnixMilli()})
	if err != nil {
		logging.Warn(logging.Fields{"error": err}, "failed to encode state")
		return nil
	}
	return msg
}

func (h *StateHandler) send(conn *websocket.Conn, msg []byte) {
	if msg == nil {
		return
	}
	h.mu.Lock()
	lock, ok := h.clients[conn]
	h.mu.Unlock()
	if !ok {
		return
	}

	lock.Lock()
	defer lock.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		conn.Close()
	}
}

// broadcast sends the current state to all clients until stop is closed.
func (h *StateHandler) broadcast(stop <-chan struct{}) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		msg := h.message()

		h.mu.Lock()
		conns := make([]*websocket.Conn, 0, len(h.clients))
		for conn := range h.clients {
			conns = append(conns, conn)
		}
		h.mu.Unlock()

		for _, conn := range conns {
			h.send(conn, msg)
		}
	}
}
