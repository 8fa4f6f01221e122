package events

import (
	"context"
	"time"
)

// deliveryTimeout bounds one background delivery attempt.
const deliveryTimeout = 10 * time.Second

// worker drains an inbox until it is closed. Delivery errors are already
// logged and counted by the publisher, so the worker keeps going.
type worker struct {
	inbox   <-chan ChangeEvent
	deliver func(context.Context, ChangeEvent) error
}

func newWorker(inbox <-chan ChangeEvent, deliver func(context.Context, ChangeEvent) error) *worker {
	return &worker{inbox: inbox, deliver: deliver}
}

func (w *worker) Run() {
	for event := range w.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		_ = w.deliver(ctx, event)
		cancel()
	}
}
