package contracts

import (
	"context"

	"dialog/internal/core/domain"

	"github.com/google/uuid"
)

// EventBus is the injectable fan-out transport. Publish targets a named
// broadcast channel; PublishToUser targets the private per-user channel.
// Implementations carry envelopes verbatim and give no delivery guarantee
// beyond "handed to the transport" — durability lives in the outbox, not here.
type EventBus interface {
	Publish(ctx context.Context, channel string, env domain.Envelope) error
	PublishToUser(ctx context.Context, userID uuid.UUID, env domain.Envelope) error
}

// RawPublisher forwards an already-marshalled envelope. The outbox
// dispatcher uses it because stored entries carry envelope bytes.
type RawPublisher interface {
	PublishRaw(ctx context.Context, channel string, raw []byte) error
}

// BusSubscriber is the consuming side of the bus, used by the session
// registry to bridge channels onto live connections.
type BusSubscriber interface {
	// Subscribe delivers every raw envelope published on channel to handler
	// until ctx is done.
	Subscribe(ctx context.Context, channel string, handler func(data []byte)) error
}
