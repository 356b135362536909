package redeux

import (
	"strings"
	"time"
)

// FailurePolicy decides what Flush does when an observer fails.
type FailurePolicy string

const (
	// Isolate notifies every observer and returns all failures combined.
	Isolate FailurePolicy = "isolate"
	// FailFast stops at the first failing observer and returns its error.
	FailFast FailurePolicy = "fail_fast"
)

// ParseFailurePolicy maps a config string onto a FailurePolicy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case Isolate, FailFast:
		return p, nil
	case "":
		return Isolate, nil
	}
	return "", ErrUnknownFailurePolicy
}

// Stats is a point-in-time view of engine counters.
type Stats struct {
	Pushed         uint64 // Messages accepted onto the queue
	Duplicates     uint64 // Pushes ignored because the message was already queued
	Flushes        uint64
	Delivered      uint64 // Messages handed to observers, counted once per observer
	ObserverErrors uint64
	Observers      int
	Pending        int // Current queue depth
	LastFlushAt    time.Time
	LastFlushDur   time.Duration
}
