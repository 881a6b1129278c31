package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity read by this core. The identity subsystem owns it;
// nothing here ever writes a user.
type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	CreatedAt time.Time
}

// Conversation is a direct (two-party) thread. UpdatedAt is monotonic
// non-decreasing: it moves only on creation and on each accepted message.
type Conversation struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MembershipState tags a participant's position in the membership timeline.
type MembershipState int

const (
	MembershipActive MembershipState = iota
	MembershipLeft
)

// Membership is the tagged state of a participant row:
// Active{Since} or Left{Since, Until}. Since is the latest join and is the
// lower bound of message visibility; rejoining resets it, so messages sent
// during an earlier interval stay hidden for this participant.
type Membership struct {
	State MembershipState
	Since time.Time
	Until *time.Time
}

func ActiveSince(t time.Time) Membership {
	return Membership{State: MembershipActive, Since: t}
}

func LeftAt(since, until time.Time) Membership {
	return Membership{State: MembershipLeft, Since: since, Until: &until}
}

func (m Membership) IsActive() bool { return m.State == MembershipActive }

// JoinedAt is the visibility boundary: only messages sent after it are
// visible to this participant.
func (m Membership) JoinedAt() time.Time { return m.Since }

// Leave transitions Active -> Left. Calling it on a Left membership is a
// no-op returning the receiver unchanged.
func (m Membership) Leave(now time.Time) Membership {
	if !m.IsActive() {
		return m
	}
	return LeftAt(m.Since, now)
}

// Rejoin transitions Left -> Active with a fresh boundary. This is the only
// way a new visibility boundary comes into existence.
func (m Membership) Rejoin(now time.Time) Membership {
	if m.IsActive() {
		return m
	}
	return ActiveSince(now)
}

// Participant is one user's membership row in a conversation. Exactly two
// rows exist per conversation over its whole lifetime; leave and rejoin
// mutate the same row, never add a third.
type Participant struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	UserID         uuid.UUID
	UserName       string
	UserEmail      string
	Membership     Membership
	LastReadAt     *time.Time
}

func NewParticipant(conversationID uuid.UUID, user *User) *Participant {
	return &Participant{
		ID:             uuid.New(),
		ConversationID: conversationID,
		UserID:         user.ID,
		UserName:       user.Name,
		UserEmail:      user.Email,
		Membership:     ActiveSince(time.Now()),
	}
}

// Message is immutable once created; the only mutation is a hard delete by
// its sender.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Content        string
	SentAt         time.Time
}

func NewMessage(conversationID, senderID uuid.UUID, content string) *Message {
	return &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		SentAt:         time.Now(),
	}
}

// ConversationPreview is the listing projection: the conversation plus the
// most recent message (nil when empty) and the caller's unread flag.
type ConversationPreview struct {
	Conversation  Conversation
	Other         *Participant
	LatestMessage *Message
	Unread        bool
}
