package models

import "time"

// Token is an opaque api key bound to an account until ValidUntil.
type Token struct {
	ID         int64
	UID        string
	Key        string
	AccountID  int64
	ValidUntil time.Time
	CreatedAt  time.Time
}

// Expired reports whether the token is past its raw expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ValidUntil)
}

// Sweepable reports whether the token is past the grace window at now,
// i.e. now - window > ValidUntil.
func (t *Token) Sweepable(now time.Time, window time.Duration) bool {
	return now.Add(-window).After(t.ValidUntil)
}
