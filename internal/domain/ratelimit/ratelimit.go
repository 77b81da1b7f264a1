// Package ratelimit holds the pure sliding-window types shared by the
// rate limiter service and its stores.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"
)

// Endpoint names used when deriving keys.
const (
	EndpointLogin    = "login"
	EndpointRegister = "register"
)

// GlobalSubject is the subject used when a policy shares one bucket across callers.
const GlobalSubject = "global"

// Policy is a per-endpoint sliding window limit.
type Policy struct {
	Endpoint    string
	Window      time.Duration
	MaxAttempts int
}

// Key derives the storage key for a caller. The subject (client address or
// identity) is hashed together with the endpoint so raw addresses never
// appear in keys.
func Key(endpoint, subject string) string {
	sum := sha256.Sum256([]byte(endpoint + ":" + subject))
	return hex.EncodeToString(sum[:])
}

// Entry is one recorded attempt. Entries are append-only.
type Entry struct {
	Key       string
	Endpoint  string
	UserID    *int64
	SourceIP  string
	CreatedAt time.Time
}

// Window is the state of one key inside the trailing window.
type Window struct {
	Count int
	// Oldest is the creation time of the oldest counted entry; zero when Count is 0.
	Oldest time.Time
}

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	// FailedOpen is set when the store could not be consulted.
	FailedOpen bool
}

// Decide applies p to the observed window at now.
func Decide(p Policy, w Window, now time.Time) Decision {
	d := Decision{
		Allowed:   w.Count < p.MaxAttempts,
		Count:     w.Count,
		Limit:     p.MaxAttempts,
		Remaining: max(p.MaxAttempts-w.Count, 0),
	}
	if d.Allowed {
		return d
	}
	retry := time.Second
	if !w.Oldest.IsZero() {
		retry = max(w.Oldest.Add(p.Window).Sub(now), time.Second)
	}
	d.RetryAfter = retry
	return d
}

// ErrLimited is matched by errors.Is for every *LimitedError.
var ErrLimited = errors.New("rate limited")

// LimitedError reports a rejected attempt and when to retry.
type LimitedError struct {
	Endpoint   string
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("%s rate limited, retry after %s", e.Endpoint, e.RetryAfter)
}

// Unwrap lets errors.Is match ErrLimited.
func (e *LimitedError) Unwrap() error { return ErrLimited }

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below 1.
func (e *LimitedError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	return max(secs, 1)
}
