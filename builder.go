package redeux

import (
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

type registration struct {
	id  Tag
	obs Observer
}

// Builder constructs Redeux instances (Builder pattern).
type Builder struct {
	logger      *xlog.Logger
	clock       xclock.Clock
	policy      FailurePolicy
	messages    []*Message
	observers   []registration
	middlewares []ObserverMiddleware
	listeners   []EventListener
	logBatches  bool
}

// NewBuilder returns a builder with the Isolate failure policy.
func NewBuilder() *Builder {
	return &Builder{policy: Isolate}
}

func (b *Builder) WithLogger(l *xlog.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithClock(c xclock.Clock) *Builder {
	b.clock = c
	return b
}

// WithMessages seeds the queue, in order.
func (b *Builder) WithMessages(msgs ...*Message) *Builder {
	b.messages = append(b.messages, msgs...)
	return b
}

// WithObserver subscribes obs under id when the engine is built.
func (b *Builder) WithObserver(id Tag, obs Observer) *Builder {
	b.observers = append(b.observers, registration{id: id, obs: obs})
	return b
}

// WithMiddleware wraps every subscribed observer. Recovery is always applied first.
func (b *Builder) WithMiddleware(mw ...ObserverMiddleware) *Builder {
	if len(mw) == 0 {
		return b
	}
	b.middlewares = append(b.middlewares, mw...)
	return b
}

// WithListener attaches listeners for engine lifecycle events.
func (b *Builder) WithListener(ls ...EventListener) *Builder {
	for _, l := range ls {
		if l != nil {
			b.listeners = append(b.listeners, l)
		}
	}
	return b
}

func (b *Builder) WithFailurePolicy(p FailurePolicy) *Builder {
	b.policy = p
	return b
}

// WithBatchLogging subscribes a LoggingObserver using the builder logger.
func (b *Builder) WithBatchLogging() *Builder {
	b.logBatches = true
	return b
}

func (b *Builder) Build() (*Redeux, error) {
	policy, err := ParseFailurePolicy(string(b.policy))
	if err != nil {
		return nil, err
	}

	clk := b.clock
	if clk == nil {
		clk = xclock.Default()
	}
	lg := b.logger
	if lg == nil {
		lg = xlog.Default()
	}

	r := newRedeux(clk, policy, b.middlewares)
	r.AddListener(LoggingListener{Logger: lg})
	for _, l := range b.listeners {
		r.AddListener(l)
	}
	for _, m := range b.messages {
		r.Push(m)
	}
	if b.logBatches {
		if err := r.Subscribe(NewTag("redeux.logging"), LoggingObserver{Logger: lg}); err != nil {
			return nil, err
		}
	}
	for _, reg := range b.observers {
		if err := r.Subscribe(reg.id, reg.obs); err != nil {
			return nil, err
		}
	}
	return r, nil
}
