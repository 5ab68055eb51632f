package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// Publisher ships aggregated log entries somewhere durable.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type DigestConfig struct {
	Interval       time.Duration // flush interval
	CountThreshold int           // unique entries before an early flush
	Topic          string
	Publisher      Publisher
}

// DigestEntry is one distinct warn/error line with its repeat count.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Digest folds repeated warnings and errors together and publishes them in
// batches. Repeated quota failures from background polling would otherwise
// flood the sink.
type Digest struct {
	cfg     DigestConfig
	entries map[string]*DigestEntry
	mu      sync.Mutex
	flushCh chan []DigestEntry
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewDigest(cfg DigestConfig) *Digest {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}

	d := &Digest{
		cfg:     cfg,
		entries: make(map[string]*DigestEntry),
		flushCh: make(chan []DigestEntry, 8),
		stop:    make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Digest) Add(level, component, message string, fields map[string]interface{}) {
	now := time.Now()
	key := digestKey(level, component, message, fields)

	d.mu.Lock()
	if entry, ok := d.entries[key]; ok {
		entry.Count++
		entry.LastSeen = now
	} else {
		d.entries[key] = &DigestEntry{
			Level:     level,
			Component: component,
			Message:   message,
			Fields:    fields,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	var batch []DigestEntry
	if len(d.entries) >= d.cfg.CountThreshold {
		batch = d.drainLocked()
	}
	d.mu.Unlock()

	if batch != nil {
		select {
		case d.flushCh <- batch:
		default:
			// sink is backed up; drop rather than block the caller
		}
	}
}

// Pending reports how many distinct entries wait for the next flush.
func (d *Digest) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func digestKey(level, component, message string, fields map[string]interface{}) string {
	data, _ := json.Marshal(struct {
		L string                 `json:"l"`
		C string                 `json:"c"`
		M string                 `json:"m"`
		F map[string]interface{} `json:"f"`
	}{level, component, message, fields})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (d *Digest) drainLocked() []DigestEntry {
	if len(d.entries) == 0 {
		return nil
	}
	out := make([]DigestEntry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, *e)
	}
	d.entries = make(map[string]*DigestEntry)
	return out
}

func (d *Digest) drain() []DigestEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drainLocked()
}

func (d *Digest) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.publish(d.drain())
		case batch := <-d.flushCh:
			d.publish(batch)
		case <-d.stop:
			d.publish(d.drain())
			return
		}
	}
}

func (d *Digest) publish(batch []DigestEntry) {
	if len(batch) == 0 || d.cfg.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Nothing sensible to do with a failure here: logging it would feed the digest.
	_ = d.cfg.Publisher.PublishMessage(ctx, d.cfg.Topic, batch)
}

// Close flushes what is pending and stops the background loop.
func (d *Digest) Close() {
	d.once.Do(func() {
		close(d.stop)
		d.wg.Wait()
	})
}
