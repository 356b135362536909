package redeux

import (
	"sync"

	"go.uber.org/multierr"
)

// HandlerFunc processes one message of a flushed batch.
type HandlerFunc func(msg *Message, dispatch Dispatch) error

// Router is an Observer that fans a batch out to handlers keyed by message
// type. Messages without a handler go to the fallback, or are skipped.
type Router struct {
	mu       sync.RWMutex
	handlers map[Tag]HandlerFunc
	fallback HandlerFunc
}

var _ Observer = (*Router)(nil)

func NewRouter() *Router {
	return &Router{handlers: make(map[Tag]HandlerFunc)}
}

// Handle registers h for messages of type t, replacing any previous handler.
func (rt *Router) Handle(t Tag, h HandlerFunc) *Router {
	if h == nil || t.IsZero() {
		return rt
	}
	rt.mu.Lock()
	rt.handlers[t] = h
	rt.mu.Unlock()
	return rt
}

// HandleFactory registers h for the type built by v.
func (rt *Router) HandleFactory(v Validator, h HandlerFunc) *Router {
	return rt.Handle(v.Type(), h)
}

// Fallback sets the handler for unrouted message types.
func (rt *Router) Fallback(h HandlerFunc) *Router {
	rt.mu.Lock()
	rt.fallback = h
	rt.mu.Unlock()
	return rt
}

// Observe runs the matching handler for every message in order. A failing
// handler does not stop the batch; failures are combined.
func (rt *Router) Observe(messages []*Message, dispatch Dispatch) error {
	var errs error
	for _, m := range messages {
		rt.mu.RLock()
		h, ok := rt.handlers[m.Type()]
		if !ok {
			h = rt.fallback
		}
		rt.mu.RUnlock()
		if h == nil {
			continue
		}
		errs = multierr.Append(errs, h(m, dispatch))
	}
	return errs
}
