package domain

import "errors"

var (
	ErrInvalidConversationID = errors.New("invalid conversation id")
	ErrInvalidUserID         = errors.New("invalid user id")
	ErrInvalidMessageID      = errors.New("invalid message id")
	ErrUserNotFound          = errors.New("user not found")
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrMessageNotFound       = errors.New("message not found")
	ErrNotParticipant        = errors.New("caller is not an active participant")
	ErrNotMessageAuthor      = errors.New("only the author may delete a message")
	ErrEmptyContent          = errors.New("message content must not be blank")
	ErrSelfConversation      = errors.New("a direct conversation needs two distinct users")
)

// IsNotFound reports whether err belongs to the NotFound class of the error
// taxonomy. Handlers map it to 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrConversationNotFound) ||
		errors.Is(err, ErrParticipantNotFound) ||
		errors.Is(err, ErrMessageNotFound)
}

// IsAccessDenied reports whether err belongs to the AccessDenied class.
// Handlers map it to 403.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrNotParticipant) || errors.Is(err, ErrNotMessageAuthor)
}

// IsValidation reports whether err belongs to the Validation class. These are
// rejected before any persistence or side effect. Handlers map it to 400.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrSelfConversation) ||
		errors.Is(err, ErrInvalidConversationID) ||
		errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidMessageID)
}
