package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
)

func newTestExecutor(s *recordingSleeper) *Executor {
	return NewExecutor(DefaultRetryPolicy(), applogger.NewNop(), drepo.NopMetrics{},
		WithSleeper(s.Sleep),
		WithJitter(func(time.Duration) time.Duration { return 0 }),
	)
}

func TestDoReturnsFirstSuccess(t *testing.T) {
	s := &recordingSleeper{}
	calls := 0
	v, err := Do(context.Background(), newTestExecutor(s), "op", func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("unexpected result %d, %v", v, err)
	}
	if calls != 1 || len(s.Waits()) != 0 {
		t.Fatalf("expected one call without waits, got %d calls, waits %v", calls, s.Waits())
	}
}

func TestDoRetriesRateLimitWithBackoff(t *testing.T) {
	s := &recordingSleeper{}
	calls := 0
	v, err := Do(context.Background(), newTestExecutor(s), "op", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &models.RemoteError{Status: 429, Err: errors.New("too many requests")}
		}
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("unexpected result %q, %v", v, err)
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second}
	got := s.Waits()
	if len(got) != len(want) {
		t.Fatalf("unexpected waits %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("wait %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDoExhaustionReturnsQuotaError(t *testing.T) {
	s := &recordingSleeper{}
	calls := 0
	_, err := Do(context.Background(), newTestExecutor(s), "op", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("RESOURCE_EXHAUSTED: Quota exceeded for metric")
	})
	if !errors.Is(err, models.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if calls != 5 {
		t.Fatalf("expected 5 attempts, got %d", calls)
	}
	if got := s.Waits(); len(got) != 4 || got[3] != 40*time.Second {
		t.Fatalf("unexpected waits %v", got)
	}
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	s := &recordingSleeper{}
	calls := 0
	boom := errors.New("boom")
	_, err := Do(context.Background(), newTestExecutor(s), "op", func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected immediate failure, got %v after %d calls", err, calls)
	}
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &recordingSleeper{}
	calls := 0
	_, err := Do(ctx, newTestExecutor(s), "op", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("429")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("expected cancellation after first call, got %v after %d calls", err, calls)
	}
}

func TestDelayAddsJitter(t *testing.T) {
	e := NewExecutor(DefaultRetryPolicy(), applogger.NewNop(), drepo.NopMetrics{},
		WithJitter(func(max time.Duration) time.Duration { return max - time.Millisecond }),
	)
	if got := e.Delay(2); got != 20*time.Second+2*time.Second-time.Millisecond {
		t.Fatalf("unexpected delay %v", got)
	}
}

func TestDoSucceedsOnFifthAttempt(t *testing.T) {
	s := &recordingSleeper{}
	calls := 0
	v, err := Do(context.Background(), newTestExecutor(s), "op", func(context.Context) (string, error) {
		calls++
		if calls < 5 {
			return "", errors.New("429 RESOURCE_EXHAUSTED")
		}
		return "ok", nil
	})
	if err != nil || v != "ok" || calls != 5 {
		t.Fatalf("unexpected result %q, %v after %d calls", v, err, calls)
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second}
	got := s.Waits()
	if len(got) != len(want) {
		t.Fatalf("unexpected waits %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("wait %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIsRateLimit(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("status 429"), true},
		{errors.New("You exceeded your current QUOTA"), true},
		{errors.New("rate_limit_exceeded"), true},
		{&models.RemoteError{Status: 429, Err: errors.New("x")}, true},
		{fmt.Errorf("wrapped: %w", models.ErrQuotaExceeded), true},
		{&models.RemoteError{Status: 500, Err: errors.New("internal")}, false},
		{errors.New("connection reset"), false},
		{models.ErrCooldownActive, false},
		{fmt.Errorf("market pulse: %w", models.ErrCooldownActive), false},
	}
	for _, tc := range cases {
		if got := IsRateLimit(tc.err); got != tc.want {
			t.Fatalf("IsRateLimit(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
