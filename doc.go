// Package redeux is a small in-process message queue with observer dispatch.
//
// Producers build immutable messages through a Factory or PayloadFactory,
// Push them onto a Redeux, and call Flush. Flush snapshots and clears the
// queue, then hands the snapshot to every subscribed Observer together with a
// Dispatch bound to Push. Messages dispatched while a flush is running are
// queued for the next Flush.
//
// Example:
//
//	ping := redeux.NewFactory("app.ping")
//	pong := redeux.NewFactory("app.pong")
//
//	q, _ := redeux.NewBuilder().
//	    WithLogger(logger).
//	    WithObserver(redeux.NewTag("responder"), redeux.NewRouter().
//	        HandleFactory(ping, func(_ *redeux.Message, dispatch redeux.Dispatch) error {
//	            dispatch(pong.Create())
//	            return nil
//	        })).
//	    Build()
//
//	q.Push(ping.Create())
//	_ = q.Flush() // responder sees ping; pong is now queued
package redeux
