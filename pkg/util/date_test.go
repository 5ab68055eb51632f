package util

import (
	"testing"
	"time"
)

func TestParseEpochMillisRoundTrip(t *testing.T) {
	at := time.Date(2024, 10, 10, 10, 10, 10, 123*int(time.Millisecond), time.UTC)
	got, ok := ParseEpochMillis(FormatEpochMillis(at))
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(at) {
		t.Fatalf("unexpected time %v, want %v", got, at)
	}
}

func TestParseEpochMillisRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "  ", "abc", "-5", "0", "12.5"} {
		if _, ok := ParseEpochMillis(s); ok {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}

func TestHumanDate(t *testing.T) {
	at := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	if got := HumanDate(at); got != "Friday, October 16, 2026" {
		t.Fatalf("unexpected date %q", got)
	}
}
