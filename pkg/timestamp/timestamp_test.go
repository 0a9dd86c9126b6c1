package timestamp

import (
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	ms := ToUnixMs(now)
	back := FromUnixMs(ms)
	if !back.Equal(now) {
		t.Errorf("round trip: got %v, want %v", back, now)
	}
}

func TestZeroValues(t *testing.T) {
	if got := ToUnixMs(time.Time{}); got != 0 {
		t.Errorf("ToUnixMs(zero) = %d, want 0", got)
	}
	if got := FromUnixMs(0); !got.IsZero() {
		t.Errorf("FromUnixMs(0) = %v, want zero time", got)
	}
	if got := Format(0); got != "" {
		t.Errorf("Format(0) = %q, want empty", got)
	}
}

func TestFormat(t *testing.T) {
	ref := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	got := Format(ToUnixMs(ref))
	if got != "2025-03-01T12:00:00Z" {
		t.Errorf("Format = %q", got)
	}
}
