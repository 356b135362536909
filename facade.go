package redeux

import (
	"sync"
)

var (
	defaultRedeux   *Redeux
	defaultRedeuxMu sync.Mutex
)

// Default returns the process-wide engine, creating an empty one on first use.
func Default() *Redeux {
	defaultRedeuxMu.Lock()
	defer defaultRedeuxMu.Unlock()

	if defaultRedeux == nil {
		defaultRedeux = New()
	}
	return defaultRedeux
}

// SetDefault replaces the process-wide engine.
func SetDefault(r *Redeux) {
	if r == nil {
		panic("redeux: SetDefault called with nil Redeux")
	}
	defaultRedeuxMu.Lock()
	defaultRedeux = r
	defaultRedeuxMu.Unlock()
}

// Push is the Facade using the default engine.
func Push(msg *Message) { Default().Push(msg) }

// Flush is the Facade using the default engine.
func Flush() error { return Default().Flush() }

// Subscribe is the Facade using the default engine.
func Subscribe(id Tag, obs Observer) error { return Default().Subscribe(id, obs) }

// Unsubscribe is the Facade using the default engine.
func Unsubscribe(id Tag) { Default().Unsubscribe(id) }
