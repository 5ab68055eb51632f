package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	xlogger "StockPulse/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 90 * time.Second
	pingInterval = 45 * time.Second
	clientBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

// Frame is the envelope of every message sent over a socket.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	out  chan Frame
	done chan struct{}
}

// Hub is the in-app notification feed. New clients receive the recent
// notifications first; slow clients miss messages rather than block Publish.
type Hub struct {
	logger *xlogger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	history []models.Notification
	limit   int
}

func NewHub(logger *xlogger.Logger, historyLimit int) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
		limit:   historyLimit,
	}
}

var _ drepo.AlertSink = (*Hub)(nil)

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/notifications", h.Serve)
}

// Publish broadcasts n to every connected client.
func (h *Hub) Publish(_ context.Context, n models.Notification) {
	h.mu.Lock()
	h.history = append(h.history, n)
	if h.limit > 0 && len(h.history) > h.limit {
		h.history = h.history[len(h.history)-h.limit:]
	}
	h.mu.Unlock()

	h.broadcast(Frame{Type: "notification", Data: n})
}

func (h *Hub) broadcast(f Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- f:
		default:
		}
	}
}

// Recent returns the buffered notifications, oldest first.
func (h *Hub) Recent() []models.Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.Notification, len(h.history))
	copy(out, h.history)
	return out
}

// Clients reports the number of connected sockets.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("notification socket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	cl := &client{conn: conn, out: make(chan Frame, clientBuffer), done: make(chan struct{})}
	cl.out <- Frame{Type: "history", Data: h.Recent()}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("notification client connected", xlogger.Int("clients", h.Clients()))

	go writeLoop(conn, cl.out, cl.done)

	// the feed is one-way; reading only services control frames
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(cl.done)
	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	return nil
}

// writeLoop owns all writes to conn.
func writeLoop(conn *websocket.Conn, out <-chan Frame, done <-chan struct{}) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case f := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
