package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMembership_LeaveAndRejoin(t *testing.T) {
	req := require.New(t)
	joined := time.Now().Add(-time.Hour)
	m := ActiveSince(joined)

	req.True(m.IsActive())
	req.Equal(joined, m.JoinedAt())

	// When the participant leaves
	leftAt := time.Now()
	left := m.Leave(leftAt)

	// Then the row is inactive but keeps its old boundary
	req.False(left.IsActive())
	req.Equal(joined, left.Since)
	req.NotNil(left.Until)
	req.Equal(leftAt, *left.Until)

	// When they rejoin
	rejoinAt := leftAt.Add(time.Minute)
	back := left.Rejoin(rejoinAt)

	// Then the boundary resets, hiding anything sent before it
	req.True(back.IsActive())
	req.Equal(rejoinAt, back.JoinedAt())
	req.Nil(back.Until)
}

func TestMembership_TransitionsAreNoOpsFromWrongState(t *testing.T) {
	req := require.New(t)
	joined := time.Now().Add(-time.Hour)

	active := ActiveSince(joined)
	req.Equal(active, active.Rejoin(time.Now()))

	left := active.Leave(time.Now())
	again := left.Leave(time.Now().Add(time.Minute))
	req.Equal(left, again)
}

func TestNewParticipant_StartsActive(t *testing.T) {
	req := require.New(t)
	convID := uuid.New()
	user := &User{ID: uuid.New(), Name: "Alice", Email: "alice@example.com"}

	p := NewParticipant(convID, user)

	req.Equal(convID, p.ConversationID)
	req.Equal(user.ID, p.UserID)
	req.Equal("Alice", p.UserName)
	req.Equal("alice@example.com", p.UserEmail)
	req.True(p.Membership.IsActive())
	req.Nil(p.LastReadAt)
}

func TestChannelNaming(t *testing.T) {
	req := require.New(t)
	convID := uuid.New()
	userID := uuid.New()

	req.Equal("conversation:"+convID.String(), ConversationChannel(convID))
	req.Equal("conversation:"+convID.String()+":typing", TypingChannel(convID))
	req.Equal("user:"+userID.String(), UserChannel(userID))
}

func TestErrorTaxonomy(t *testing.T) {
	req := require.New(t)

	for _, err := range []error{ErrUserNotFound, ErrConversationNotFound, ErrParticipantNotFound, ErrMessageNotFound} {
		req.True(IsNotFound(err), err.Error())
		req.False(IsAccessDenied(err), err.Error())
		req.False(IsValidation(err), err.Error())
	}
	for _, err := range []error{ErrNotParticipant, ErrNotMessageAuthor} {
		req.True(IsAccessDenied(err), err.Error())
		req.False(IsNotFound(err), err.Error())
	}
	for _, err := range []error{ErrEmptyContent, ErrSelfConversation, ErrInvalidConversationID, ErrInvalidUserID, ErrInvalidMessageID} {
		req.True(IsValidation(err), err.Error())
		req.False(IsAccessDenied(err), err.Error())
	}
}
