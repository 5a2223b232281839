package auth

import (
	"strings"
	"time"
)

// ReuseWindowMillis is how long a captured identity-provider token stays
// eligible for replay into the signup flow. Matches the provider's
// token-freshness tolerance.
const ReuseWindowMillis int64 = 120_000

// TimestampedToken pairs an opaque identity-provider credential with the
// wall-clock instant it was captured. IssuedAtMillis is set once and never
// mutated; tokens are held in memory only and discarded once the window
// elapses or the token is spent.
type TimestampedToken struct {
	Token          string
	IssuedAtMillis int64
}

// CaptureToken records the credential together with the current wall-clock
// time. The freshness checks below take "now" explicitly so they stay pure.
func CaptureToken(token string) TimestampedToken {
	return CaptureTokenAt(token, time.Now().UnixMilli())
}

// CaptureTokenAt is CaptureToken with the capture instant supplied by the
// caller, for services that inject their clock.
func CaptureTokenAt(token string, nowMillis int64) TimestampedToken {
	return TimestampedToken{
		Token:          strings.TrimSpace(token),
		IssuedAtMillis: nowMillis,
	}
}

// WithinWindow reports whether the token is still fresh at nowMillis.
// The interval is closed-open: a token exactly ReuseWindowMillis old is
// expired. Negative elapsed time (clock skew) stays within the window.
func (t TimestampedToken) WithinWindow(nowMillis int64) bool {
	return nowMillis-t.IssuedAtMillis < ReuseWindowMillis
}

// Remaining returns how many milliseconds of the reuse window are left at
// nowMillis, clamped at zero. Callers use it for client countdowns; nothing
// is enforced here.
func (t TimestampedToken) Remaining(nowMillis int64) int64 {
	remaining := ReuseWindowMillis - (nowMillis - t.IssuedAtMillis)
	if remaining < 0 {
		return 0
	}
	return remaining
}
