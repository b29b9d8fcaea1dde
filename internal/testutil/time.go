package testutil

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Epoch is the wall-clock instant used by golden logs.
var Epoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// FixedTime returns a time source that always reports t.
func FixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// SteppingTime returns a time source that starts at start and advances by
// step on every call after the first.
func SteppingTime(start time.Time, step time.Duration) func() time.Time {
	var (
		mu   sync.Mutex
		next = start
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}

// FixedSessionGenerator names every session with the same id.
// If id is empty, Generate() returns "test-session-default".
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a fixed session id generator.
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed id. Implements kernel.SessionIDGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
