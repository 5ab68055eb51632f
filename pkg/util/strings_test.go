package util

import "testing"

func TestNormalizeTicker(t *testing.T) {
	cases := map[string]string{
		" aapl ":       "AAPL",
		"nse:reliance": "NSE:RELIANCE",
		"":             "",
	}
	for in, want := range cases {
		if got := NormalizeTicker(in); got != want {
			t.Fatalf("NormalizeTicker(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 8); got != "hello..." {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
}
