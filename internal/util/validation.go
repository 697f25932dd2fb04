package util

import (
	"time"
	"unicode/utf8"
)

// TimestampLayout is the storage format for server-generated timestamps.
// Fixed width in UTC, so string order matches time order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

const ellipsis = "…"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseRFC3339 accepts RFC 3339 with or without fractional seconds.
func ParseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// NormalizeTimestamp re-renders a client RFC 3339 value in TimestampLayout.
func NormalizeTimestamp(s string) (string, error) {
	t, err := ParseRFC3339(s)
	if err != nil {
		return "", err
	}
	return FormatTimestamp(t), nil
}

// TruncateBytes cuts s to at most max bytes without splitting a rune.
func TruncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Ellipsize is TruncateBytes plus a trailing "…" when anything was cut.
func Ellipsize(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return TruncateBytes(s, max) + ellipsis
}

func IsValidEnum(value string, validValues []string) bool {
	if value == "" {
		return true
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}
