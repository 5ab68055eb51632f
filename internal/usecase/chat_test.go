package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
)

func newTestChat(h *harness, chat *fakeChat) *ChatChannel {
	h.gen.chat = chat
	return NewChatChannel(h.factory, h.creds, h.gate, h.clock.Now, applogger.NewNop(), drepo.NopMetrics{})
}

func TestChatStreamsIntoTranscript(t *testing.T) {
	h := newHarness(t)
	c := newTestChat(h, &fakeChat{chunks: []string{"NVDA is ", "trading ", "higher."}})

	var updates []string
	if err := c.Send(context.Background(), " How is NVDA? ", func(m models.ChatMessage) { updates = append(updates, m.Text) }); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(updates) != 3 || updates[2] != "NVDA is trading higher." {
		t.Fatalf("unexpected updates %q", updates)
	}
	tr := c.Transcript()
	if len(tr) != 2 || tr[0].Role != models.RoleUser || tr[0].Text != "How is NVDA?" || tr[1].Text != "NVDA is trading higher." {
		t.Fatalf("unexpected transcript %+v", tr)
	}
	if len(h.gen.systems) != 1 || !strings.Contains(h.gen.systems[0], "Google Search") {
		t.Fatalf("session should be opened once with the system instruction")
	}
}

func TestChatReusesSession(t *testing.T) {
	h := newHarness(t)
	fc := &fakeChat{chunks: []string{"ok"}}
	c := newTestChat(h, fc)
	for i := 0; i < 3; i++ {
		if err := c.Send(context.Background(), "hi", nil); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if len(h.gen.systems) != 1 || len(fc.sent) != 3 {
		t.Fatalf("expected one session and three sends, got %d / %d", len(h.gen.systems), len(fc.sent))
	}
}

func TestChatCooldown(t *testing.T) {
	h := newHarness(t)
	h.gate.Trip(context.Background(), "test")
	fc := &fakeChat{chunks: []string{"never"}}
	c := newTestChat(h, fc)

	err := c.Send(context.Background(), "hello", nil)
	if f, ok := models.AsFailure(err); !ok || f.Kind != models.FailureCooldown {
		t.Fatalf("unexpected error %v", err)
	}
	tr := c.Transcript()
	if len(tr) != 2 || tr[1].Text != MsgChatCooldown || len(fc.sent) != 0 {
		t.Fatalf("unexpected transcript %+v", tr)
	}
}

func TestChatFailureKeepsPartialAndAppendsOffline(t *testing.T) {
	h := newHarness(t)
	fc := &fakeChat{chunks: []string{"Partial"}, err: errors.New("429 rate limit")}
	c := newTestChat(h, fc)

	err := c.Send(context.Background(), "hello", nil)
	if f, ok := models.AsFailure(err); !ok || f.Message != MsgChatOffline {
		t.Fatalf("unexpected error %v", err)
	}
	tr := c.Transcript()
	if len(tr) != 3 || tr[1].Text != "Partial" || tr[2].Text != MsgChatOffline {
		t.Fatalf("unexpected transcript %+v", tr)
	}
	if len(fc.sent) != 1 {
		t.Fatalf("chat must not retry, sent %d times", len(fc.sent))
	}
	if !h.gate.IsActive(context.Background()) {
		t.Fatalf("rate-limited chat must trip the gate")
	}
}

func TestChatCredentialFailureIsOffline(t *testing.T) {
	h := newHarness(t)
	c := newTestChat(h, &fakeChat{})
	c.creds = NewCredentials("", nil)
	err := c.Send(context.Background(), "hello", nil)
	if !errors.Is(err, models.ErrInvalidCredential) {
		t.Fatalf("unexpected error %v", err)
	}
	if tr := c.Transcript(); tr[len(tr)-1].Text != MsgChatOffline {
		t.Fatalf("expected offline notice, got %+v", tr)
	}
}

func TestChatCloseDropsLateChunks(t *testing.T) {
	h := newHarness(t)
	fc := &fakeChat{chunks: []string{"first", "second"}}
	c := newTestChat(h, fc)
	fc.beforeChunk = func(i int) {
		if i == 1 {
			c.Close()
		}
	}

	calls := 0
	err := c.Send(context.Background(), "hello", func(models.ChatMessage) { calls++ })
	if !errors.Is(err, errChatClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("callback must not run after close, ran %d times", calls)
	}
	tr := c.Transcript()
	if tr[len(tr)-1].Text != "first" {
		t.Fatalf("late chunk leaked into transcript: %+v", tr)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	h := newHarness(t)
	c := newTestChat(h, &fakeChat{})
	if err := c.Send(context.Background(), "  ", nil); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestChatCanceledStreamKeepsPartialAndFreesChannel(t *testing.T) {
	h := newHarness(t)
	fc := &fakeChat{chunks: []string{"first", "second"}}
	c := newTestChat(h, fc)

	ctx, cancel := context.WithCancel(context.Background())
	fc.beforeChunk = func(i int) {
		if i == 1 {
			cancel()
		}
	}
	calls := 0
	err := c.Send(ctx, "hello", func(models.ChatMessage) { calls++ })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("callback ran %d times after cancel", calls)
	}
	tr := c.Transcript()
	if len(tr) != 2 || tr[1].Text != "first" {
		t.Fatalf("unexpected transcript %+v", tr)
	}
	if h.gate.IsActive(context.Background()) {
		t.Fatalf("cancel must not trip the gate")
	}

	fc.beforeChunk = nil
	if err := c.Send(context.Background(), "again", nil); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if tr := c.Transcript(); tr[len(tr)-1].Text != "firstsecond" {
		t.Fatalf("unexpected reply %+v", tr[len(tr)-1])
	}
}
