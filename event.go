package redeux

import (
	"strconv"
	"time"

	"github.com/trickstertwo/xlog"
)

// EventType enumerates engine lifecycle events.
type EventType string

const (
	FlushStart    EventType = "flush_start"
	FlushDone     EventType = "flush_done"
	FlushDropped  EventType = "flush_dropped"
	ObserverFail  EventType = "observer_error"
	PushDuplicate EventType = "push_duplicate"
)

// Event carries telemetry for listeners.
type Event struct {
	Type      EventType
	Observer  Tag // set for ObserverFail
	Messages  int
	Observers int // observers notified; set for FlushDone
	Duration  time.Duration
	Err       error
}

// EventListener receives engine lifecycle events. Listeners are called
// synchronously on the flushing goroutine and should return quickly.
type EventListener interface {
	OnEvent(e Event)
}

// EventListenerFunc is an Adapter that lets a plain function satisfy EventListener.
type EventListenerFunc func(e Event)

func (f EventListenerFunc) OnEvent(e Event) { f(e) }

// LoggingListener is an Adapter that emits engine events via xlog.
type LoggingListener struct {
	Logger *xlog.Logger
}

func (l LoggingListener) OnEvent(e Event) {
	if l.Logger == nil {
		return
	}
	ev := l.Logger.With(
		xlog.Str("type", string(e.Type)),
		xlog.Str("messages", strconv.Itoa(e.Messages)),
	)
	switch e.Type {
	case ObserverFail:
		ev.Warn().Str("observer", e.Observer.Name()).Err(e.Err).Msg("redeux event")
	case FlushDone:
		ev = ev.With(
			xlog.Str("observers", strconv.Itoa(e.Observers)),
			xlog.Dur("duration", e.Duration),
		)
		if e.Err != nil {
			ev.Warn().Err(e.Err).Msg("redeux event")
			return
		}
		ev.Debug().Msg("redeux event")
	default:
		ev.Debug().Msg("redeux event")
	}
}
