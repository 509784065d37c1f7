package utils

import (
	"sync"
	"time"
)

// Clock is the single source of "now" for the coach. All instants are UTC.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

// Now truncates to microseconds, the precision Postgres keeps.
func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ManualClock is a settable clock for tests and replays.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t.UTC()}
}

func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// MonthBucket returns the UTC calendar month of t as "YYYY-MM".
func MonthBucket(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// FormatRFC3339UTC renders t at second precision with a "Z" suffix.
func FormatRFC3339UTC(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func MaxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
