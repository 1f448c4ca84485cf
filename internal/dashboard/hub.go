package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ziadkadry99/auto-decide/internal/decision"
	"github.com/ziadkadry99/auto-decide/internal/engine"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	recentKept   = 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame types sent on the live feed.
const (
	FrameNotice   = "notice"
	FrameDecision = "decision"
	FrameStatus   = "status"
	FrameError    = "error"
)

// Frame is the outgoing websocket message format.
type Frame struct {
	Type     string             `json:"type"`
	Notice   *engine.Notice     `json:"notice,omitempty"`
	Decision *decision.Decision `json:"decision,omitempty"`
	Status   *engine.Status     `json:"status,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// clientRequest is the incoming websocket message format.
type clientRequest struct {
	Type string `json:"type"` // "status"
}

type client struct {
	conn *websocket.Conn
	send chan Frame
}

// Hub fans engine events out to connected websocket clients. It implements
// engine.Notifier and engine.Recorder. A client that cannot keep up is
// disconnected rather than slowing the engine down.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	recent  []engine.Notice
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Notify broadcasts a notice frame and remembers the notice for the
// recent activity endpoint.
func (h *Hub) Notify(_ context.Context, n engine.Notice) {
	h.mu.Lock()
	h.recent = append([]engine.Notice{n}, h.recent...)
	if len(h.recent) > recentKept {
		h.recent = h.recent[:recentKept]
	}
	h.mu.Unlock()

	h.Broadcast(Frame{Type: FrameNotice, Notice: &n})
}

// Record broadcasts a decision snapshot frame.
func (h *Hub) Record(_ context.Context, d decision.Decision) error {
	h.Broadcast(Frame{Type: FrameDecision, Decision: &d})
	return nil
}

// Broadcast queues f for every connected client.
func (h *Hub) Broadcast(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.sendLocked(c, f)
	}
}

// Recent returns the latest notices, newest first.
func (h *Hub) Recent() []engine.Notice {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]engine.Notice, len(h.recent))
	copy(out, h.recent)
	return out
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) send(c *client, f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendLocked(c, f)
}

func (h *Hub) sendLocked(c *client, f Frame) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- f:
	default:
		log.Printf("dashboard: dropping slow websocket client %s", c.conn.RemoteAddr())
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("dashboard: websocket upgrade: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan Frame, sendBuffer)}
	d.hub.register(c)
	defer d.hub.unregister(c)

	go writeFrames(c)

	d.hub.send(c, d.statusFrame())

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("dashboard: websocket read: %v", err)
			}
			return
		}

		var req clientRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			d.hub.send(c, Frame{Type: FrameError, Error: "invalid message format"})
			continue
		}

		switch req.Type {
		case FrameStatus:
			d.hub.send(c, d.statusFrame())
		default:
			d.hub.send(c, Frame{Type: FrameError, Error: "unknown message type: " + req.Type})
		}
	}
}

func (d *Dashboard) statusFrame() Frame {
	st := d.engine.Status()
	return Frame{Type: FrameStatus, Status: &st}
}

// writeFrames is the only goroutine that writes to the connection. It
// closes the connection once the hub drops the client.
func writeFrames(c *client) {
	defer c.conn.Close()
	for f := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(f); err != nil {
			log.Printf("dashboard: websocket write: %v", err)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}
