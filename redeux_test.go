package redeux

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(name string) *Message {
	return NewFactory(name).Create()
}

// recorder collects every batch it observes.
type recorder struct {
	batches [][]*Message
}

func (r *recorder) Observe(messages []*Message, _ Dispatch) error {
	r.batches = append(r.batches, messages)
	return nil
}

func (r *recorder) all() []*Message {
	var out []*Message
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func TestRedeux_EntriesEmpty(t *testing.T) {
	q := New()
	assert.Empty(t, q.Entries())
	assert.Equal(t, 0, q.Len())
}

func TestRedeux_InitialState(t *testing.T) {
	a, b, c := testMessage("a"), testMessage("b"), testMessage("c")
	q := New(a, b, c)
	assert.Equal(t, []*Message{a, b, c}, q.Entries())
}

func TestRedeux_InitialStateDropsDuplicatesAndNil(t *testing.T) {
	a := testMessage("a")
	q := New(a, nil, a)
	assert.Equal(t, []*Message{a}, q.Entries())
}

func TestRedeux_Push(t *testing.T) {
	q := New()
	m := testMessage("@@REDEUX::TEST")
	q.Push(m)
	require.Len(t, q.Entries(), 1)
	assert.Same(t, m, q.Entries()[0])
}

func TestRedeux_PushSameMessageTwice(t *testing.T) {
	q := New()
	m := testMessage("@@REDEUX::TEST")
	q.Push(m)
	q.Push(m)
	assert.Len(t, q.Entries(), 1)

	st := q.Stats()
	assert.EqualValues(t, 1, st.Pushed)
	assert.EqualValues(t, 1, st.Duplicates)
}

func TestRedeux_PushEqualButDistinctMessages(t *testing.T) {
	f := NewFactory("@@REDEUX::TEST")
	q := New()
	q.Push(f.Create())
	q.Push(f.Create())
	assert.Len(t, q.Entries(), 2)
}

func TestRedeux_EntriesIsACopy(t *testing.T) {
	a, b := testMessage("a"), testMessage("b")
	q := New(a)

	got := q.Entries()
	got[0] = b
	_ = append(got, b)

	assert.Equal(t, []*Message{a}, q.Entries())
}

func TestRedeux_FlushClearsQueue(t *testing.T) {
	q := New()
	q.Push(testMessage("@@REDEUX::TEST"))
	require.NoError(t, q.Flush())
	assert.Empty(t, q.Entries())

	st := q.Stats()
	assert.EqualValues(t, 1, st.Flushes)
	assert.False(t, st.LastFlushAt.IsZero())
}

func TestRedeux_FlushDeliversSnapshot(t *testing.T) {
	q := New()
	rec := &recorder{}
	require.NoError(t, q.Subscribe(NewTag("@@REDEUX::TEST::OBSERVER"), rec))

	a, b := testMessage("a"), testMessage("b")
	q.Push(a)
	q.Push(b)
	require.NoError(t, q.Flush())

	require.Len(t, rec.batches, 1)
	assert.Equal(t, []*Message{a, b}, rec.batches[0])
	assert.Empty(t, q.Entries())
}

func TestRedeux_Unsubscribe(t *testing.T) {
	q := New()
	id := NewTag("@@REDEUX::TEST::OBSERVER")
	rec := &recorder{}

	require.NoError(t, q.Subscribe(id, rec))
	q.Unsubscribe(id)
	q.Push(testMessage("@@REDEUX::TEST"))
	require.NoError(t, q.Flush())

	assert.Empty(t, rec.all())
	assert.Equal(t, 0, q.Stats().Observers)
}

func TestRedeux_UnsubscribeUnknownIsNoop(t *testing.T) {
	q := New()
	rec := &recorder{}
	require.NoError(t, q.Subscribe(NewTag("kept"), rec))

	q.Unsubscribe(NewTag("kept"))
	q.Push(testMessage("x"))
	require.NoError(t, q.Flush())

	assert.Len(t, rec.all(), 1)
}

func TestRedeux_SubscribeReplacesInPlace(t *testing.T) {
	q := New()
	first, second := NewTag("first"), NewTag("second")
	var calls []string

	note := func(s string) ObserverFunc {
		return func([]*Message, Dispatch) error {
			calls = append(calls, s)
			return nil
		}
	}
	require.NoError(t, q.Subscribe(first, note("first-v1")))
	require.NoError(t, q.Subscribe(second, note("second")))
	require.NoError(t, q.Subscribe(first, note("first-v2")))

	require.NoError(t, q.Flush())
	assert.Equal(t, []string{"first-v2", "second"}, calls)
}

func TestRedeux_SubscribeRejectsInvalid(t *testing.T) {
	q := New()
	assert.ErrorIs(t, q.Subscribe(Tag{}, &recorder{}), ErrInvalidObserver)
	assert.ErrorIs(t, q.Subscribe(NewTag("x"), nil), ErrInvalidObserver)
}

func TestRedeux_DispatchDuringFlush(t *testing.T) {
	q := New()
	initial := testMessage("@@REDEUX::TEST::INITIAL_MESSAGE")
	var dispatched *Message

	require.NoError(t, q.Subscribe(NewTag("@@REDEUX::TEST::OBSERVER"), ObserverFunc(func(_ []*Message, dispatch Dispatch) error {
		dispatched = testMessage("@@REDEUX::TEST::OBSERVER_MESSAGE")
		dispatch(dispatched)
		return nil
	})))
	q.Push(initial)
	require.NoError(t, q.Flush())

	assert.Equal(t, []*Message{dispatched}, q.Entries())
}

func TestRedeux_DispatchedMessageOnlySeenNextFlush(t *testing.T) {
	q := New()
	rec := &recorder{}
	follow := testMessage("follow-up")
	sent := false

	require.NoError(t, q.Subscribe(NewTag("dispatcher"), ObserverFunc(func(_ []*Message, dispatch Dispatch) error {
		if !sent {
			sent = true
			dispatch(follow)
		}
		return nil
	})))
	require.NoError(t, q.Subscribe(NewTag("recorder"), rec))

	first := testMessage("first")
	q.Push(first)
	require.NoError(t, q.Flush())

	require.Len(t, rec.batches, 1)
	assert.Equal(t, []*Message{first}, rec.batches[0])
	assert.Equal(t, []*Message{follow}, q.Entries())

	require.NoError(t, q.Flush())
	require.Len(t, rec.batches, 2)
	assert.Equal(t, []*Message{follow}, rec.batches[1])
	assert.Empty(t, q.Entries())
}

// Two observers, one recording and one dispatching on every call.
func TestRedeux_RecorderAndDispatcherScenario(t *testing.T) {
	t1, t2 := NewFactory("T1"), NewFactory("T2")
	q := New()

	o1 := &recorder{}
	var o2Seen [][]*Message
	o2 := ObserverFunc(func(messages []*Message, dispatch Dispatch) error {
		o2Seen = append(o2Seen, messages)
		dispatch(t2.Create())
		return nil
	})
	require.NoError(t, q.Subscribe(NewTag("O1"), o1))
	require.NoError(t, q.Subscribe(NewTag("O2"), o2))

	m1 := t1.Create()
	q.Push(m1)
	require.NoError(t, q.Flush())

	assert.Equal(t, [][]*Message{{m1}}, o1.batches)
	assert.Equal(t, [][]*Message{{m1}}, o2Seen)

	entries := q.Entries()
	require.Len(t, entries, 1)
	assert.True(t, t2.Validate(entries[0]))
}

func TestRedeux_FlushWithoutObserversDiscards(t *testing.T) {
	q := New(testMessage("a"))
	require.NoError(t, q.Flush())
	assert.Empty(t, q.Entries())

	rec := &recorder{}
	require.NoError(t, q.Subscribe(NewTag("late"), rec))
	require.NoError(t, q.Flush())
	require.Len(t, rec.batches, 1)
	assert.Empty(t, rec.batches[0])
}

func TestRedeux_ObserverCannotCorruptOtherSnapshots(t *testing.T) {
	a, b := testMessage("a"), testMessage("b")
	q := New(a)
	rec := &recorder{}

	require.NoError(t, q.Subscribe(NewTag("vandal"), ObserverFunc(func(messages []*Message, _ Dispatch) error {
		messages[0] = b
		return nil
	})))
	require.NoError(t, q.Subscribe(NewTag("recorder"), rec))
	require.NoError(t, q.Flush())

	assert.Equal(t, []*Message{a}, rec.batches[0])
}

func TestRedeux_IsolatePolicyNotifiesEveryObserver(t *testing.T) {
	q := New(testMessage("a"))
	boom := errors.New("boom")
	failing, panicking := NewTag("failing"), NewTag("panicking")
	rec := &recorder{}

	require.NoError(t, q.Subscribe(failing, ObserverFunc(func([]*Message, Dispatch) error { return boom })))
	require.NoError(t, q.Subscribe(panicking, ObserverFunc(func([]*Message, Dispatch) error { panic("kaboom") })))
	require.NoError(t, q.Subscribe(NewTag("recorder"), rec))

	err := q.Flush()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrObserverPanic)

	var oerr *ObserverError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, failing, oerr.ID)

	assert.Len(t, rec.all(), 1)
	assert.Empty(t, q.Entries())
	assert.EqualValues(t, 2, q.Stats().ObserverErrors)
}

func TestRedeux_FailFastPolicyStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{}
	q, err := NewBuilder().
		WithFailurePolicy(FailFast).
		WithMessages(testMessage("a")).
		WithObserver(NewTag("failing"), ObserverFunc(func([]*Message, Dispatch) error { return boom })).
		WithObserver(NewTag("recorder"), rec).
		Build()
	require.NoError(t, err)

	err = q.Flush()
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, rec.batches)
	assert.Empty(t, q.Entries())
}

func TestRedeux_ObserverSubscribedDuringFlushRunsInSameFlush(t *testing.T) {
	a := testMessage("a")
	q := New(a)
	late := &recorder{}
	registered := false

	require.NoError(t, q.Subscribe(NewTag("registrar"), ObserverFunc(func([]*Message, Dispatch) error {
		if registered {
			return nil
		}
		registered = true
		return q.Subscribe(NewTag("late"), late)
	})))
	require.NoError(t, q.Flush())
	assert.Equal(t, [][]*Message{{a}}, late.batches)

	b := testMessage("b")
	q.Push(b)
	require.NoError(t, q.Flush())
	assert.Equal(t, [][]*Message{{a}, {b}}, late.batches)
}

func TestRedeux_ObserverUnsubscribedDuringFlushIsSkipped(t *testing.T) {
	q := New(testMessage("a"))
	victim := NewTag("victim")
	skipped := &recorder{}
	rec := &recorder{}

	require.NoError(t, q.Subscribe(NewTag("remover"), ObserverFunc(func([]*Message, Dispatch) error {
		q.Unsubscribe(victim)
		return nil
	})))
	require.NoError(t, q.Subscribe(victim, skipped))
	require.NoError(t, q.Subscribe(NewTag("recorder"), rec))

	require.NoError(t, q.Flush())
	assert.Empty(t, skipped.batches)
	assert.Len(t, rec.batches, 1)
	assert.Equal(t, 2, q.Stats().Observers)
}

func TestRedeux_ObserverReplacedDuringFlushRunsNewCallback(t *testing.T) {
	q := New(testMessage("a"))
	target := NewTag("target")
	var calls []string

	require.NoError(t, q.Subscribe(NewTag("replacer"), ObserverFunc(func([]*Message, Dispatch) error {
		return q.Subscribe(target, ObserverFunc(func([]*Message, Dispatch) error {
			calls = append(calls, "v2")
			return nil
		}))
	})))
	require.NoError(t, q.Subscribe(target, ObserverFunc(func([]*Message, Dispatch) error {
		calls = append(calls, "v1")
		return nil
	})))

	require.NoError(t, q.Flush())
	assert.Equal(t, []string{"v2"}, calls)
}

func TestRedeux_RedispatchSnapshotMessage(t *testing.T) {
	m := testMessage("again")
	q := New(m)

	require.NoError(t, q.Subscribe(NewTag("echo"), ObserverFunc(func(ms []*Message, d Dispatch) error {
		d(ms[0])
		return nil
	})))
	require.NoError(t, q.Flush())

	assert.Equal(t, []*Message{m}, q.Entries())
	assert.EqualValues(t, 0, q.Stats().Duplicates)
}

func TestRedeux_EmitsLifecycleEvents(t *testing.T) {
	boom := errors.New("boom")
	var events []Event
	failing := NewTag("failing")
	m := testMessage("a")

	q, err := NewBuilder().
		WithListener(EventListenerFunc(func(e Event) { events = append(events, e) })).
		WithObserver(failing, ObserverFunc(func([]*Message, Dispatch) error { return boom })).
		WithObserver(NewTag("ok"), &recorder{}).
		Build()
	require.NoError(t, err)

	q.Push(m)
	q.Push(m)
	flushErr := q.Flush()
	require.Error(t, flushErr)

	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	assert.Equal(t, []EventType{PushDuplicate, FlushStart, ObserverFail, FlushDone}, types)

	assert.Equal(t, failing, events[2].Observer)
	assert.ErrorIs(t, events[2].Err, boom)

	done := events[3]
	assert.Equal(t, 1, done.Messages)
	assert.Equal(t, 2, done.Observers)
	assert.Equal(t, flushErr, done.Err)
}

func TestRedeux_EmitsDroppedWithoutObservers(t *testing.T) {
	var types []EventType
	q, err := NewBuilder().
		WithMessages(testMessage("a")).
		WithListener(EventListenerFunc(func(e Event) { types = append(types, e.Type) })).
		Build()
	require.NoError(t, err)

	require.NoError(t, q.Flush())
	assert.Equal(t, []EventType{FlushStart, FlushDropped, FlushDone}, types)
}

func TestRedeux_StatsCountsDeliveries(t *testing.T) {
	q := New(testMessage("a"), testMessage("b"))
	require.NoError(t, q.Subscribe(NewTag("one"), &recorder{}))
	require.NoError(t, q.Subscribe(NewTag("two"), &recorder{}))
	require.NoError(t, q.Flush())

	st := q.Stats()
	assert.EqualValues(t, 4, st.Delivered)
	assert.Equal(t, 2, st.Observers)
	assert.Equal(t, 0, st.Pending)
}
