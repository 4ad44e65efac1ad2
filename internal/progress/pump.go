package progress

import (
	"context"
	"time"
)

// DefaultPumpWait is the bounded wait between checks for worker completion.
const DefaultPumpWait = time.Second

// Pump drains events produced by a background worker and hands each to
// handle, in production order. The worker is the only producer; Pump is the
// only consumer. Pump waits at most wait for the next event before checking
// whether the worker signalled completion on done, and after completion it
// synchronously drains any buffered events before returning. Context
// cancellation stops the pump without error: the caller discards, not
// propagates, cancellation of the progress path.
func Pump(ctx context.Context, events <-chan Event, done <-chan struct{}, wait time.Duration, handle func(Event)) {
	if wait <= 0 {
		wait = DefaultPumpWait
	}
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			handle(event)
		case <-time.After(wait):
			select {
			case <-done:
				drain(events, handle)
				return
			default:
			}
		}
	}
}

func drain(events <-chan Event, handle func(Event)) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			handle(event)
		default:
			return
		}
	}
}
