// Package activity persists the side effects of page views (mark-read and
// link clicks) off the request path.
package activity

import (
	"context"
	"time"
)

// drainTimeout bounds how long pending events are flushed after shutdown.
const drainTimeout = 5 * time.Second

// Run reads events from ch and persists each with write until ch is closed or
// ctx is cancelled. On cancellation it drains what is already queued before
// returning. Failed writes are reported to onErr.
func Run[T any](ctx context.Context, ch <-chan T, write func(context.Context, T) error, onErr func(T, error)) {
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := write(ctx, e); err != nil {
				onErr(e, err)
			}
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			for {
				select {
				case e, ok := <-ch:
					if !ok {
						return
					}
					if err := write(drainCtx, e); err != nil {
						onErr(e, err)
					}
				default:
					return
				}
			}
		}
	}
}

// Send queues e without blocking. It reports false when the queue is full
// and the event was dropped.
func Send[T any](ch chan<- T, e T) bool {
	select {
	case ch <- e:
		return true
	default:
		return false
	}
}
