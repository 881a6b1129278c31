package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"dialog/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBroadcast_NewMessage(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	msg := domain.NewMessage(uuid.New(), uuid.New(), "hello")

	req.NoError(f.broadcast.NewMessage(context.Background(), msg))

	envs := f.outbox.onChannel(domain.ConversationChannel(msg.ConversationID))
	req.Len(envs, 1)
	req.Equal(domain.EventNewMessage, envs[0].Type)

	var payload domain.MessagePayload
	req.NoError(json.Unmarshal(envs[0].Payload, &payload))
	req.Equal(msg.ID, payload.ID)
	req.Equal(msg.ConversationID, payload.ConversationID)
	req.Equal(msg.SenderID, payload.SenderID)
	req.Equal("hello", payload.Content)
}

func TestBroadcast_ConversationUpdate_SkipsInactive(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	conv := domain.NewConversation()
	active := domain.NewParticipant(conv.ID, testUser("alice"))
	departed := domain.NewParticipant(conv.ID, testUser("bob"))
	departed.Membership = departed.Membership.Leave(time.Now())

	err := f.broadcast.ConversationUpdate(context.Background(), conv, []domain.Participant{*active, *departed})
	req.NoError(err)

	req.Len(f.outbox.onChannel(domain.UserChannel(active.UserID)), 1)
	req.Empty(f.outbox.onChannel(domain.UserChannel(departed.UserID)))

	// The entry is addressed for per-user delivery
	req.Len(f.outbox.entries, 1)
	req.NotNil(f.outbox.entries[0].UserID)
	req.Equal(active.UserID, *f.outbox.entries[0].UserID)
}

func TestBroadcast_ConversationUpdate_SkipsUnaddressable(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	conv := domain.NewConversation()
	ghost := domain.Participant{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Membership:     domain.ActiveSince(time.Now()),
	}

	err := f.broadcast.ConversationUpdate(context.Background(), conv, []domain.Participant{ghost})
	req.NoError(err)
	req.Empty(f.outbox.entries)
}

func TestBroadcast_MessageDeleted(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	convID, msgID := uuid.New(), uuid.New()

	req.NoError(f.broadcast.MessageDeleted(context.Background(), convID, msgID))

	envs := f.outbox.onChannel(domain.ConversationChannel(convID))
	req.Len(envs, 1)
	req.Equal(domain.EventMessageDeleted, envs[0].Type)

	var notice domain.MessageDeletedNotice
	req.NoError(json.Unmarshal(envs[0].Payload, &notice))
	req.Equal(msgID, notice.MessageID)
	req.Equal(convID, notice.ConversationID)
}
