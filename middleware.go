package redeux

import (
	"fmt"
	"math/rand"
	"slices"
	"strconv"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// ObserverMiddleware composes cross-cutting concerns around an Observer.
type ObserverMiddleware func(next Observer) Observer

// RecoveryMiddleware converts an observer panic into an error wrapping
// ErrObserverPanic.
func RecoveryMiddleware() ObserverMiddleware {
	return func(next Observer) Observer {
		return ObserverFunc(func(messages []*Message, dispatch Dispatch) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrObserverPanic, r)
				}
			}()
			return next.Observe(messages, dispatch)
		})
	}
}

// RetryConfig controls how often a failing observer is re-run within one flush.
type RetryConfig struct {
	// MaxAttempts is the total number of calls including the first.
	MaxAttempts int
	// Backoff, when set, is the wait before attempt n+1. Nil retries immediately.
	Backoff func(attempt int) time.Duration
	// RetryIf, when set, limits retries to matching errors.
	RetryIf func(err error) bool
	// Jitter adds up to [0, Jitter] to each Backoff wait.
	Jitter time.Duration
}

// RetryMiddleware re-runs a failing observer with the same batch, up to
// cfg.MaxAttempts calls. Waits block the flush, so keep Backoff short or nil.
// Messages dispatched by a failed attempt stay queued.
func RetryMiddleware(cfg RetryConfig) ObserverMiddleware {
	attempts := max(cfg.MaxAttempts, 1)
	shouldRetry := cfg.RetryIf
	if shouldRetry == nil {
		shouldRetry = func(error) bool { return true }
	}
	return func(next Observer) Observer {
		return ObserverFunc(func(messages []*Message, dispatch Dispatch) error {
			var err error
			for i := 1; i <= attempts; i++ {
				if err = next.Observe(messages, dispatch); err == nil {
					return nil
				}
				if i == attempts || !shouldRetry(err) {
					break
				}
				if cfg.Backoff != nil {
					wait := cfg.Backoff(i)
					if cfg.Jitter > 0 {
						wait += time.Duration(rand.Int63n(int64(cfg.Jitter)))
					}
					time.Sleep(wait)
				}
			}
			return err
		})
	}
}

// LoggingMiddleware logs each observer call with its duration measured on clk.
// A nil clk uses xclock.Default; a nil logger disables the middleware.
func LoggingMiddleware(l *xlog.Logger, clk xclock.Clock) ObserverMiddleware {
	if clk == nil {
		clk = xclock.Default()
	}
	return func(next Observer) Observer {
		if l == nil {
			return next
		}
		return ObserverFunc(func(messages []*Message, dispatch Dispatch) error {
			start := clk.Now()
			err := next.Observe(messages, dispatch)
			if err != nil {
				l.Warn().
					Str("batch_size", strconv.Itoa(len(messages))).
					Dur("dur", clk.Since(start)).
					Err(err).
					Msg("redeux observer failed")
				return err
			}
			l.Debug().
				Str("batch_size", strconv.Itoa(len(messages))).
				Dur("dur", clk.Since(start)).
				Msg("redeux observer done")
			return nil
		})
	}
}

// Chain wraps o so that mws[0] is the outermost layer. Nil entries are skipped.
func Chain(o Observer, mws ...ObserverMiddleware) Observer {
	for _, mw := range slices.Backward(mws) {
		if mw != nil {
			o = mw(o)
		}
	}
	return o
}
