package worker

import (
	"context"
	"log/slog"
	"time"

	"dialog/internal/core/contracts"
	"dialog/internal/core/domain"
)

// OutboxWorker drains the event outbox onto the bus. Entries were appended
// inside the transaction that produced them, so a crash between commit and
// publish leaves them pending; the next poll delivers them. Failed publishes
// bump the attempt counter and stay pending for the next round.
type OutboxWorker struct {
	log          *slog.Logger
	outbox       domain.OutboxRepository
	bus          contracts.RawPublisher
	pollInterval time.Duration
	batchSize    int
}

func NewOutboxWorker(
	log *slog.Logger,
	outbox domain.OutboxRepository,
	bus contracts.RawPublisher,
	pollInterval time.Duration,
	batchSize int,
) contracts.OutboxDispatcher {
	return &OutboxWorker{
		log:          log,
		outbox:       outbox,
		bus:          bus,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.InfoContext(ctx, "worker - run - stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.DispatchPending(ctx); err != nil {
				w.log.ErrorContext(ctx, "worker - run - dispatch round failed", "err", err)
			}
		}
	}
}

func (w *OutboxWorker) DispatchPending(ctx context.Context) (int, error) {
	entries, err := w.outbox.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, e := range entries {
		if err := w.bus.PublishRaw(ctx, e.Channel, e.Envelope); err != nil {
			w.log.ErrorContext(ctx, "worker - dispatch - publish failed",
				"outbox_id", e.ID.String(), "channel", e.Channel, "attempts", e.Attempts, "err", err)
			if err := w.outbox.MarkFailed(ctx, e.ID); err != nil {
				w.log.ErrorContext(ctx, "worker - dispatch - mark failed errored", "outbox_id", e.ID.String(), "err", err)
			}
			continue
		}
		if err := w.outbox.MarkPublished(ctx, e.ID); err != nil {
			// Publish went out; marking failed means it may go out again.
			// Subscribers tolerate duplicates over losing events.
			w.log.ErrorContext(ctx, "worker - dispatch - mark published errored", "outbox_id", e.ID.String(), "err", err)
			continue
		}
		published++
	}
	return published, nil
}
