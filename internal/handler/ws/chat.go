package ws

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/usecase"
	xhttp "StockPulse/pkg/http"
	xmiddleware "StockPulse/pkg/http/middleware"
	xlogger "StockPulse/pkg/logger"
)

// ChatError is the payload of an "error" frame.
type ChatError struct {
	Message    string               `json:"message"`
	Transcript []models.ChatMessage `json:"transcript,omitempty"`
}

// ChatHandler streams the session chat over a websocket. The client sends
// {"message": "..."}; the server answers with "delta" frames carrying the
// growing model message, then "done" or "error".
type ChatHandler struct {
	logger  *xlogger.Logger
	chat    *usecase.ChatChannel
	limiter xmiddleware.Allower
}

func NewChatHandler(logger *xlogger.Logger, chat *usecase.ChatChannel, limiter xmiddleware.Allower) *ChatHandler {
	return &ChatHandler{logger: logger, chat: chat, limiter: limiter}
}

func (h *ChatHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/chat", h.Serve)
}

func (h *ChatHandler) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("chat socket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	// ctx ends when either side of the socket is gone, which aborts a
	// running stream.
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	out := make(chan Frame, clientBuffer)
	done := make(chan struct{})
	defer close(done)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		writeLoop(conn, out, done)
	}()

	send := func(f Frame) {
		select {
		case out <- f:
		case <-writerDone:
		}
	}
	send(Frame{Type: "transcript", Data: h.chat.Transcript()})

	requests := make(chan []byte)
	go h.readLoop(ctx, cancel, conn, requests)

	ip := c.RealIP()
	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-requests:
			h.handle(ctx, ip, data, send)
		}
	}
}

// readLoop forwards text messages to requests until the peer goes away.
func (h *ChatHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, requests chan<- []byte) {
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("chat socket closed", xlogger.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if mt != websocket.TextMessage {
			continue
		}
		select {
		case requests <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (h *ChatHandler) handle(ctx context.Context, ip string, data []byte, send func(Frame)) {
	var req models.ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		send(Frame{Type: "error", Data: ChatError{Message: "Malformed message."}})
		return
	}
	if verr := xhttp.ValidateStruct(ctx, &req); verr != nil {
		send(Frame{Type: "error", Data: ChatError{Message: verr[0].Message}})
		return
	}
	if h.limiter != nil && !h.limiter.Allow(ip) {
		send(Frame{Type: "error", Data: ChatError{Message: "Too many requests, slow down."}})
		return
	}

	var last models.ChatMessage
	err := h.chat.Send(ctx, strings.TrimSpace(req.Message), func(m models.ChatMessage) {
		last = m
		send(Frame{Type: "delta", Data: m})
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		msg := err.Error()
		if f, ok := models.AsFailure(err); ok {
			msg = f.Message
		}
		send(Frame{Type: "error", Data: ChatError{Message: msg, Transcript: h.chat.Transcript()}})
		return
	}
	send(Frame{Type: "done", Data: last})
}
