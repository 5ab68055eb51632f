package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	dservice "StockPulse/internal/domain/service"
	"StockPulse/internal/repository"
	"StockPulse/pkg/cache"
	applogger "StockPulse/pkg/logger"
)

const testKey = "test-key-0123456789"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
	clock *fakeClock
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	if s.clock != nil {
		s.clock.Advance(d)
	}
	return ctx.Err()
}

func (s *recordingSleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

func newTestStore(t *testing.T, clock *fakeClock) *repository.KVStore {
	t.Helper()
	mc := cache.NewMemoryCache(cache.WithMemoryClock(clock.Now))
	t.Cleanup(func() { _ = mc.Close() })
	return repository.NewKVStore(mc, applogger.NewNop())
}

// scriptedGenerator answers Generate calls from a queue keyed by nothing: each
// call pops the next reply. When the queue is empty it repeats the last one.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []reply
	calls   []dservice.GenerateRequest
	chat    *fakeChat
	chatErr error
	systems []string
}

type reply struct {
	resp *dservice.GenerateResponse
	err  error
}

func textReply(s string) reply {
	return reply{resp: &dservice.GenerateResponse{Text: s}}
}

func errReply(err error) reply {
	return reply{err: err}
}

func (g *scriptedGenerator) Generate(_ context.Context, req dservice.GenerateRequest) (*dservice.GenerateResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if len(g.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	r := g.replies[0]
	if len(g.replies) > 1 {
		g.replies = g.replies[1:]
	}
	return r.resp, r.err
}

func (g *scriptedGenerator) NewChat(_ context.Context, system string) (dservice.ChatSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.systems = append(g.systems, system)
	if g.chatErr != nil {
		return nil, g.chatErr
	}
	return g.chat, nil
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeFactory struct {
	gen  *scriptedGenerator
	keys []string
}

func (f *fakeFactory) ForKey(_ context.Context, key string) (dservice.Generator, error) {
	f.keys = append(f.keys, key)
	return f.gen, nil
}

type fakeChat struct {
	chunks []string
	err    error
	sent   []string
	// beforeChunk runs before each chunk is delivered
	beforeChunk func(i int)
}

func (c *fakeChat) SendStream(_ context.Context, text string, onChunk func(string) error) error {
	c.sent = append(c.sent, text)
	for i, ch := range c.chunks {
		if c.beforeChunk != nil {
			c.beforeChunk(i)
		}
		if err := onChunk(ch); err != nil {
			return err
		}
	}
	return c.err
}

type staticPrefs struct {
	prefs models.UserPreferences
}

func (s staticPrefs) Preferences(context.Context) models.UserPreferences { return s.prefs }

type recordingSink struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (s *recordingSink) Publish(_ context.Context, n models.Notification) {
	s.mu.Lock()
	s.sent = append(s.sent, n)
	s.mu.Unlock()
}

type recordingNotifier struct {
	titles []string
	bodies []string
	err    error
}

func (n *recordingNotifier) Name() string { return "test" }

func (n *recordingNotifier) Notify(_ context.Context, title, body string) error {
	n.titles = append(n.titles, title)
	n.bodies = append(n.bodies, body)
	return n.err
}

type permission bool

func (p permission) PushGranted() bool { return bool(p) }

// harness wires the real use cases over an in-memory store.
type harness struct {
	clock     *fakeClock
	sleeper   *recordingSleeper
	store     *repository.KVStore
	gen       *scriptedGenerator
	factory   *fakeFactory
	portfolio *Portfolio
	creds     *Credentials
	gate      *CooldownGate
	executor  *Executor
	analyst   *Analyst
	sink      *recordingSink
	notifier  *recordingNotifier
	alerts    *AlertEngine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{clock: newFakeClock()}
	h.sleeper = &recordingSleeper{clock: h.clock}
	h.store = newTestStore(t, h.clock)
	h.gen = &scriptedGenerator{}
	h.factory = &fakeFactory{gen: h.gen}
	log := applogger.NewNop()
	m := drepo.NopMetrics{}

	h.portfolio = NewPortfolio(h.store, h.clock.Now, log)
	h.creds = NewCredentials(testKey, h.portfolio)
	h.gate = NewCooldownGate(h.store, 5*time.Minute, h.clock.Now, log, m)
	h.executor = NewExecutor(DefaultRetryPolicy(), log, m,
		WithSleeper(h.sleeper.Sleep),
		WithJitter(func(time.Duration) time.Duration { return 0 }),
	)
	h.analyst = NewAnalyst(h.factory, h.creds, h.gate, h.executor, h.clock.Now, log, m)
	h.sink = &recordingSink{}
	h.notifier = &recordingNotifier{}
	h.alerts = NewAlertEngine(h.portfolio, h.store, h.sink, h.notifier, permission(true), 50, h.clock.Now, log, m)
	return h
}

func (h *harness) script(replies ...reply) {
	h.gen.mu.Lock()
	h.gen.replies = replies
	h.gen.mu.Unlock()
}
