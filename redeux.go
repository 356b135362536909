package redeux

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
	"go.uber.org/multierr"
)

// Redeux is an in-process message queue that hands its whole content to every
// subscribed observer on Flush.
//
// The queue keeps insertion order and holds each *Message at most once.
// Flush clears the queue before any observer runs, so messages an observer
// dispatches are queued for the next Flush and never seen by the current one.
type Redeux struct {
	clock       xclock.Clock
	policy      FailurePolicy
	middlewares []ObserverMiddleware

	mu        sync.Mutex
	queue     []*Message
	index     map[*Message]struct{}
	observers map[Tag]Observer
	order     []Tag
	listeners []EventListener

	metrics engineMetrics
}

// engineMetrics uses lock-free atomics so Stats never contends with Flush.
type engineMetrics struct {
	pushed         atomic.Uint64
	duplicates     atomic.Uint64
	flushes        atomic.Uint64
	delivered      atomic.Uint64
	observerErrors atomic.Uint64
	lastFlushAt    atomic.Int64
	lastFlushDur   atomic.Int64
}

// New returns an engine seeded with initial, pushed in order. Events are
// logged through xlog.Default.
func New(initial ...*Message) *Redeux {
	r := newRedeux(xclock.Default(), Isolate, nil)
	r.AddListener(LoggingListener{Logger: xlog.Default()})
	for _, m := range initial {
		r.Push(m)
	}
	return r
}

func newRedeux(clk xclock.Clock, policy FailurePolicy, mws []ObserverMiddleware) *Redeux {
	return &Redeux{
		clock:       clk,
		policy:      policy,
		middlewares: mws,
		index:       make(map[*Message]struct{}),
		observers:   make(map[Tag]Observer),
	}
}

// Entries returns a copy of the queue in insertion order.
func (r *Redeux) Entries() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.queue)
}

// Len returns the number of queued messages.
func (r *Redeux) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Push appends msg unless that same message is already queued.
func (r *Redeux) Push(msg *Message) {
	if msg == nil {
		return
	}
	r.mu.Lock()
	if _, ok := r.index[msg]; ok {
		r.mu.Unlock()
		r.metrics.duplicates.Add(1)
		r.notify(Event{Type: PushDuplicate, Messages: 1})
		return
	}
	r.index[msg] = struct{}{}
	r.queue = append(r.queue, msg)
	r.mu.Unlock()
	r.metrics.pushed.Add(1)
}

// Flush delivers the queued messages to every observer in subscription order
// and leaves the queue empty. Observers may Push (or use the dispatch they are
// given) while Flush runs; those messages wait for the next Flush.
//
// The subscription list is read live: an observer unsubscribed by an earlier
// observer in the same flush is not called, and one subscribed during the
// flush is called after the observers already registered.
//
// Under Isolate every observer is notified and all failures are returned
// combined. Under FailFast the first failure is returned and later observers
// are skipped for this flush. The queue is cleared in both cases.
func (r *Redeux) Flush() error {
	start := r.clock.Now()

	r.mu.Lock()
	snapshot := r.queue
	r.queue = nil
	r.index = make(map[*Message]struct{})
	r.mu.Unlock()

	r.notify(Event{Type: FlushStart, Messages: len(snapshot)})

	dispatch := Dispatch(r.Push)
	visited := make(map[Tag]struct{})
	var errs error
	for {
		id, o, ok := r.nextObserver(visited)
		if !ok {
			break
		}
		visited[id] = struct{}{}

		err := o.Observe(slices.Clone(snapshot), dispatch)
		r.metrics.delivered.Add(uint64(len(snapshot)))
		if err == nil {
			continue
		}

		r.metrics.observerErrors.Add(1)
		oerr := &ObserverError{ID: id, Err: err}
		r.notify(Event{Type: ObserverFail, Observer: id, Messages: len(snapshot), Err: err})
		if r.policy == FailFast {
			errs = oerr
			break
		}
		errs = multierr.Append(errs, oerr)
	}

	if len(visited) == 0 && len(snapshot) > 0 {
		r.notify(Event{Type: FlushDropped, Messages: len(snapshot)})
	}
	r.recordFlush(start)
	r.notify(Event{
		Type:      FlushDone,
		Messages:  len(snapshot),
		Observers: len(visited),
		Duration:  r.clock.Since(start),
		Err:       errs,
	})
	return errs
}

// nextObserver returns the first live subscription not yet visited in this flush.
func (r *Redeux) nextObserver(visited map[Tag]struct{}) (Tag, Observer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if _, seen := visited[id]; !seen {
			return id, r.observers[id], true
		}
	}
	return Tag{}, nil, false
}

// Subscribe registers obs under id. Subscribing an id again replaces its
// observer and keeps its place in the delivery order.
func (r *Redeux) Subscribe(id Tag, obs Observer) error {
	if id.IsZero() || obs == nil {
		return ErrInvalidObserver
	}
	mws := append([]ObserverMiddleware{RecoveryMiddleware()}, r.middlewares...)
	wrapped := Chain(obs, mws...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.observers[id]; !ok {
		r.order = append(r.order, id)
	}
	r.observers[id] = wrapped
	return nil
}

// Unsubscribe removes the observer registered under id, if any. Once it
// returns, the observer is not called again, even by a flush in progress.
func (r *Redeux) Unsubscribe(id Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.observers[id]; !ok {
		return
	}
	delete(r.observers, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

// AddListener registers a listener for engine lifecycle events.
func (r *Redeux) AddListener(l EventListener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

func (r *Redeux) notify(e Event) {
	r.mu.Lock()
	ls := slices.Clone(r.listeners)
	r.mu.Unlock()
	for _, l := range ls {
		l.OnEvent(e)
	}
}

// Stats returns current engine counters.
func (r *Redeux) Stats() Stats {
	r.mu.Lock()
	pending, observers := len(r.queue), len(r.order)
	r.mu.Unlock()

	s := Stats{
		Pushed:         r.metrics.pushed.Load(),
		Duplicates:     r.metrics.duplicates.Load(),
		Flushes:        r.metrics.flushes.Load(),
		Delivered:      r.metrics.delivered.Load(),
		ObserverErrors: r.metrics.observerErrors.Load(),
		Observers:      observers,
		Pending:        pending,
		LastFlushDur:   time.Duration(r.metrics.lastFlushDur.Load()),
	}
	if ns := r.metrics.lastFlushAt.Load(); ns != 0 {
		s.LastFlushAt = time.Unix(0, ns)
	}
	return s
}

func (r *Redeux) recordFlush(start time.Time) {
	r.metrics.flushes.Add(1)
	r.metrics.lastFlushAt.Store(start.UnixNano())
	r.metrics.lastFlushDur.Store(int64(r.clock.Since(start)))
}
