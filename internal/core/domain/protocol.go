package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags the envelope so subscribers can route payloads.
type EventType string

const (
	EventNewMessage         EventType = "NEW_MESSAGE"
	EventConversationUpdate EventType = "CONVERSATION_UPDATE"
	EventMessageDeleted     EventType = "MESSAGE_DELETED"
	EventTypingStart        EventType = "TYPING_START"
	EventTypingStop         EventType = "TYPING_STOP"
	EventError              EventType = "ERROR"
)

// Envelope wraps every distributed event before dispatch.
type Envelope struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// MessagePayload is the NEW_MESSAGE payload broadcast on the conversation
// channel.
type MessagePayload struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sent_at"`
}

// ConversationPayload is the CONVERSATION_UPDATE payload delivered to each
// active participant's private channel.
type ConversationPayload struct {
	ID        uuid.UUID `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageDeletedNotice is the MESSAGE_DELETED payload.
type MessageDeletedNotice struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
}

// TypingIndicator is relayed verbatim on the typing channel.
type TypingIndicator struct {
	ConversationID uuid.UUID `json:"conversation_id" validate:"required"`
	UserID         uuid.UUID `json:"user_id" validate:"required"`
	EventType      EventType `json:"event_type" validate:"required,oneof=TYPING_START TYPING_STOP"`
}

// ErrorNotice is the ERROR payload sent back on a session when a frame is
// rejected.
type ErrorNotice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Inbound wire contracts.

type CreateConversationRequest struct {
	ParticipantID uuid.UUID `json:"participant_id" validate:"required"`
}

type SendMessageRequest struct {
	ConversationID uuid.UUID `json:"conversation_id" validate:"required"`
	Content        string    `json:"content" validate:"required"`
}

// Channel naming. Conversation-wide events share one channel; typing has its
// own; per-user updates go to a private channel resolved from the user id.

func ConversationChannel(convID uuid.UUID) string {
	return "conversation:" + convID.String()
}

func TypingChannel(convID uuid.UUID) string {
	return ConversationChannel(convID) + ":typing"
}

func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}
