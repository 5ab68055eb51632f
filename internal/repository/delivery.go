package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"StockPulse/internal/domain/repository"
)

// DeliveryType is the queue message type for platform notifications.
const DeliveryType = "platform_notification"

// Enqueuer accepts work for later delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

type delivery struct {
	Sink  string `json:"sink"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// QueuedNotifier hands notifications to a durable queue instead of
// delivering them inline, so a sink outage does not lose alerts. Each sink
// gets its own delivery; a retry repeats only the sink that failed.
type QueuedNotifier struct {
	queue Enqueuer
	sinks []string
}

func NewQueuedNotifier(q Enqueuer, sinks ...repository.PlatformNotifier) *QueuedNotifier {
	n := &QueuedNotifier{queue: q}
	for _, s := range sinks {
		if s != nil {
			n.sinks = append(n.sinks, s.Name())
		}
	}
	return n
}

func (q *QueuedNotifier) Name() string { return "queued" }

func (q *QueuedNotifier) Notify(ctx context.Context, title, body string) error {
	var errs []error
	for _, sink := range q.sinks {
		if err := q.queue.Enqueue(ctx, DeliveryType, delivery{Sink: sink, Title: title, Body: body}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink, err))
		}
	}
	return errors.Join(errs...)
}

// DeliveryJob drains queued notifications into the sink each one names.
type DeliveryJob struct {
	sinks map[string]repository.PlatformNotifier
}

func NewDeliveryJob(sinks ...repository.PlatformNotifier) *DeliveryJob {
	j := &DeliveryJob{sinks: make(map[string]repository.PlatformNotifier, len(sinks))}
	for _, s := range sinks {
		if s != nil {
			j.sinks[s.Name()] = s
		}
	}
	return j
}

func (j *DeliveryJob) Type() string { return DeliveryType }

func (j *DeliveryJob) Handle(ctx context.Context, payload json.RawMessage) error {
	var d delivery
	if err := json.Unmarshal(payload, &d); err != nil {
		return fmt.Errorf("decode delivery: %w", err)
	}
	sink, ok := j.sinks[d.Sink]
	if !ok {
		return fmt.Errorf("no sink named %q", d.Sink)
	}
	return sink.Notify(ctx, d.Title, d.Body)
}
