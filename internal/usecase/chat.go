package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	dservice "StockPulse/internal/domain/service"
	applogger "StockPulse/pkg/logger"
)

var errChatClosed = errors.New("chat channel closed")

// ChatChannel is the single conversational session of the process. The
// session is created on the first message and reused. Chat messages are not
// retried: a failed send appends an offline notice instead.
type ChatChannel struct {
	factory dservice.GeneratorFactory
	creds   *Credentials
	gate    *CooldownGate
	now     Clock
	newID   func() string
	log     *applogger.Logger
	metrics drepo.Metrics

	sendMu sync.Mutex // one send at a time; the provider session is not concurrent

	mu         sync.Mutex
	session    dservice.ChatSession
	transcript []models.ChatMessage
	closed     bool
}

func NewChatChannel(
	factory dservice.GeneratorFactory,
	creds *Credentials,
	gate *CooldownGate,
	now Clock,
	l *applogger.Logger,
	m drepo.Metrics,
) *ChatChannel {
	return &ChatChannel{
		factory: factory,
		creds:   creds,
		gate:    gate,
		now:     now,
		newID:   uuid.NewString,
		log:     l,
		metrics: m,
	}
}

// Transcript returns a copy of the conversation so far.
func (c *ChatChannel) Transcript() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ChatMessage, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Send appends text as a user message and streams the reply into the
// transcript, calling onUpdate with the growing model message after every
// chunk. A returned Failure means the transcript ends with a notice message.
func (c *ChatChannel) Send(ctx context.Context, text string, onUpdate func(models.ChatMessage)) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.NewFailure(models.FailureInput, "Message is empty.", models.ErrInvalidInput)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.append(models.RoleUser, text) {
		return errChatClosed
	}

	if c.gate.IsActive(ctx) {
		c.append(models.RoleModel, MsgChatCooldown)
		return models.NewFailure(models.FailureCooldown, MsgChatCooldown, models.ErrCooldownActive)
	}

	session, err := c.openSession(ctx)
	if err == nil {
		err = c.stream(ctx, session, text, onUpdate)
	}
	if errors.Is(err, errChatClosed) {
		return err
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// the listener went away; keep the partial reply as is
		c.metrics.RecordRemoteCall("chat", "canceled")
		return err
	}
	if err != nil {
		result := "error"
		if IsRateLimit(err) {
			result = "rate_limited"
			c.gate.Trip(ctx, "chat")
		}
		c.metrics.RecordRemoteCall("chat", result)
		c.log.Warn("chat send failed", applogger.Error(err))
		c.append(models.RoleModel, MsgChatOffline)
		return models.NewFailure(models.FailureRemote, MsgChatOffline, err)
	}
	c.metrics.RecordRemoteCall("chat", "ok")
	return nil
}

func (c *ChatChannel) openSession(ctx context.Context) (dservice.ChatSession, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session != nil {
		return session, nil
	}

	key, err := c.creds.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	gen, err := c.factory.ForKey(ctx, key)
	if err != nil {
		return nil, err
	}
	session, err = gen.NewChat(ctx, chatInstruction(c.now()))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errChatClosed
	}
	c.session = session
	c.log.Info("chat session opened")
	return session, nil
}

func (c *ChatChannel) stream(ctx context.Context, session dservice.ChatSession, text string, onUpdate func(models.ChatMessage)) error {
	idx := -1
	return session.SendStream(ctx, text, func(chunk string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return errChatClosed
		}
		if idx < 0 {
			c.transcript = append(c.transcript, models.ChatMessage{ID: c.newID(), Role: models.RoleModel})
			idx = len(c.transcript) - 1
		}
		c.transcript[idx].Text += chunk
		msg := c.transcript[idx]
		c.mu.Unlock()

		if onUpdate != nil {
			onUpdate(msg)
		}
		return nil
	})
}

// append adds a message unless the channel is closed.
func (c *ChatChannel) append(role models.ChatRole, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.transcript = append(c.transcript, models.ChatMessage{ID: c.newID(), Role: role, Text: text})
	return true
}

// Close tears the channel down. Chunks that arrive afterwards are dropped.
func (c *ChatChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.session = nil
}
