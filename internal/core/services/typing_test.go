package services

import (
	"context"
	"testing"

	"dialog/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTyping_Relay(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	ind := domain.TypingIndicator{
		ConversationID: uuid.New(),
		UserID:         uuid.New(),
		EventType:      domain.EventTypingStart,
	}

	req.NoError(f.typing.Relay(context.Background(), ind))

	// Straight to the bus, nothing durable
	records := f.bus.records()
	req.Len(records, 1)
	req.Equal(domain.TypingChannel(ind.ConversationID), records[0].channel)
	req.Equal(domain.EventTypingStart, records[0].env.Type)
	req.Equal(ind, records[0].env.Payload)
	req.Empty(f.outbox.entries)
}

func TestTyping_Relay_Rejections(t *testing.T) {
	f := newFixture()
	convID, userID := uuid.New(), uuid.New()

	tests := []struct {
		name string
		ind  domain.TypingIndicator
	}{
		{"missing conversation id", domain.TypingIndicator{UserID: userID, EventType: domain.EventTypingStart}},
		{"missing user id", domain.TypingIndicator{ConversationID: convID, EventType: domain.EventTypingStop}},
		{"wrong event type", domain.TypingIndicator{ConversationID: convID, UserID: userID, EventType: domain.EventNewMessage}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, f.typing.Relay(context.Background(), tt.ind))
		})
	}
	require.Empty(t, f.bus.records())
}
