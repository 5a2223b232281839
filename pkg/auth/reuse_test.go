package auth

import (
	"testing"
	"time"
)

func TestWithinWindowBoundaries(t *testing.T) {
	const issued = int64(1_000_000)
	token := TimestampedToken{Token: "id-token", IssuedAtMillis: issued}

	cases := []struct {
		name string
		now  int64
		want bool
	}{
		{"immediately", issued, true},
		{"mid window", issued + 110_000, true},
		{"one ms before boundary", issued + 119_999, true},
		{"exactly at boundary", issued + 120_000, false},
		{"after boundary", issued + 121_000, false},
		// Clock skew yielding negative elapsed is a known boundary case:
		// the token reads as still fresh rather than erroring.
		{"clock skew", issued - 5_000, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := token.WithinWindow(tc.now); got != tc.want {
				t.Fatalf("WithinWindow(%d) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestRemainingClampsAndDecreases(t *testing.T) {
	const issued = int64(1_000_000)
	token := TimestampedToken{Token: "id-token", IssuedAtMillis: issued}

	prev := token.Remaining(issued)
	if prev != ReuseWindowMillis {
		t.Fatalf("expected full window at issue time, got %d", prev)
	}

	for _, now := range []int64{issued + 1, issued + 60_000, issued + 119_999, issued + 120_000, issued + 500_000} {
		got := token.Remaining(now)
		if got > prev {
			t.Fatalf("Remaining increased from %d to %d at now=%d", prev, got, now)
		}
		if got < 0 {
			t.Fatalf("Remaining went negative at now=%d", now)
		}
		prev = got
	}

	if got := token.Remaining(issued + 120_000); got != 0 {
		t.Fatalf("expected zero remaining at the boundary, got %d", got)
	}
}

func TestCaptureTokenStampsCurrentClock(t *testing.T) {
	before := time.Now().UnixMilli()
	token := CaptureToken("  id-token  ")
	after := time.Now().UnixMilli()

	if token.Token != "id-token" {
		t.Fatalf("expected trimmed token, got %q", token.Token)
	}
	if token.IssuedAtMillis < before || token.IssuedAtMillis > after {
		t.Fatalf("IssuedAtMillis %d outside [%d, %d]", token.IssuedAtMillis, before, after)
	}
	if !token.WithinWindow(time.Now().UnixMilli()) {
		t.Fatal("freshly captured token must be within the window")
	}
}
