package redeux

import (
	"strconv"
	"strings"

	"github.com/trickstertwo/xlog"
)

// Dispatch enqueues a message on the engine that is flushing. Messages
// dispatched during a flush are delivered on the next one.
type Dispatch func(msg *Message)

// Observer receives each flushed snapshot. The snapshot is a private copy
// and is safe to retain.
type Observer interface {
	Observe(messages []*Message, dispatch Dispatch) error
}

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(messages []*Message, dispatch Dispatch) error

func (f ObserverFunc) Observe(messages []*Message, dispatch Dispatch) error {
	return f(messages, dispatch)
}

// LoggingObserver is an Adapter that logs one line per flushed batch via xlog.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) Observe(messages []*Message, _ Dispatch) error {
	if o.Logger == nil {
		return nil
	}
	types := make([]string, len(messages))
	for i, m := range messages {
		types[i] = m.Type().Name()
	}
	o.Logger.Debug().
		Str("batch_size", strconv.Itoa(len(messages))).
		Str("types", strings.Join(types, ",")).
		Msg("redeux batch")
	return nil
}
