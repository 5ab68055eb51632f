package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"StockPulse/internal/domain/models"
	xlogger "StockPulse/pkg/logger"
)

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f map[string]interface{}
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

func TestHubReplaysHistoryAndBroadcasts(t *testing.T) {
	hub := NewHub(xlogger.NewNop(), 2)
	for _, msg := range []string{"one", "two", "three"} {
		hub.Publish(context.Background(), models.Notification{ID: msg, Message: msg})
	}

	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn := dial(t, srv, "/ws/notifications")
	first := readFrame(t, conn)
	if first["type"] != "history" {
		t.Fatalf("expected history frame, got %v", first)
	}
	history, _ := first["data"].([]interface{})
	if len(history) != 2 {
		t.Fatalf("history should be capped at 2, got %d", len(history))
	}

	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	hub.Publish(context.Background(), models.Notification{ID: "live", Message: "IMPACT ALERT (AAPL): x"})
	live := readFrame(t, conn)
	data, _ := live["data"].(map[string]interface{})
	if live["type"] != "notification" || data["id"] != "live" {
		t.Fatalf("unexpected frame %v", live)
	}
}
