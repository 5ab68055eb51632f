package util

import (
	"strconv"
	"strings"
	"time"
)

// EpochMillis returns t as milliseconds since the Unix epoch.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromEpochMillis is the inverse of EpochMillis.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// ParseEpochMillis parses a decimal millisecond timestamp. Empty, non-numeric
// and non-positive inputs report false.
func ParseEpochMillis(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// FormatEpochMillis renders t the way ParseEpochMillis reads it.
func FormatEpochMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// HumanDate renders t the way prompts reference "today", e.g. "Friday, October 16, 2026".
func HumanDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}

// HumanDateTime adds the wall clock and zone to HumanDate.
func HumanDateTime(t time.Time) string {
	return t.Format("Monday, January 2, 2006 15:04 MST")
}
