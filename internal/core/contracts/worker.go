package contracts

import "context"

// OutboxDispatcher drains the durable outbox onto the event bus.
type OutboxDispatcher interface {
	// Run polls for pending entries until ctx is done.
	Run(ctx context.Context) error
	// DispatchPending claims one batch, publishes it, and reports how many
	// entries were delivered.
	DispatchPending(ctx context.Context) (int, error)
}
