package repository

import (
	"context"
	"errors"
	"time"

	"StockPulse/internal/domain/repository"
	pkghttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
)

// PlatformMessage is the payload shipped to platform notification sinks.
type PlatformMessage struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Text   string `json:"text"` // title and body joined, for chat-style webhooks
	SentAt int64  `json:"sentAt"`
}

func newPlatformMessage(title, body string, now time.Time) PlatformMessage {
	return PlatformMessage{
		Title:  title,
		Body:   body,
		Text:   title + ": " + body,
		SentAt: now.UnixMilli(),
	}
}

// WebhookNotifier POSTs notifications as JSON to a fixed URL.
type WebhookNotifier struct {
	client *pkghttp.Client
	url    string
	now    func() time.Time
}

// NewWebhookNotifier creates a webhook sink.
func NewWebhookNotifier(client *pkghttp.Client, url string) *WebhookNotifier {
	return &WebhookNotifier{client: client, url: url, now: time.Now}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Notify(ctx context.Context, title, body string) error {
	return w.client.PostJSON(ctx, w.url, newPlatformMessage(title, body, w.now()), nil)
}

// KafkaNotifier publishes notifications to a topic, keyed by title so one
// ticker's alerts stay ordered.
type KafkaNotifier struct {
	producer *pkgkafka.Producer
	topic    string
	now      func() time.Time
}

// NewKafkaNotifier creates a Kafka sink.
func NewKafkaNotifier(producer *pkgkafka.Producer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic, now: time.Now}
}

func (k *KafkaNotifier) Name() string { return "kafka" }

func (k *KafkaNotifier) Notify(ctx context.Context, title, body string) error {
	return k.producer.Publish(ctx, k.topic, []byte(title), newPlatformMessage(title, body, k.now()))
}

// MultiNotifier fans one notification out to every sink. All sinks are
// attempted; their errors are joined.
type MultiNotifier struct {
	sinks []repository.PlatformNotifier
}

// NewMultiNotifier skips nil sinks.
func NewMultiNotifier(sinks ...repository.PlatformNotifier) *MultiNotifier {
	m := &MultiNotifier{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiNotifier) Name() string { return "multi" }

// Len reports the number of configured sinks.
func (m *MultiNotifier) Len() int { return len(m.sinks) }

// Sinks returns the configured sinks.
func (m *MultiNotifier) Sinks() []repository.PlatformNotifier {
	out := make([]repository.PlatformNotifier, len(m.sinks))
	copy(out, m.sinks)
	return out
}

func (m *MultiNotifier) Notify(ctx context.Context, title, body string) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, title, body); err != nil {
			errs = append(errs, errors.New(s.Name()+": "+err.Error()))
		}
	}
	return errors.Join(errs...)
}
