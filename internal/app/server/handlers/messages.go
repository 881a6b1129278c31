package handlers

import (
	"net/http"
	"time"

	"dialog/internal/core/domain"
	"dialog/internal/core/services"
	"dialog/internal/platform/logger"
	"dialog/pkg/middleware"

	"github.com/google/uuid"
)

type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type messageResponse struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sent_at"`
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		SentAt:         m.SentAt,
	}
}

// Delete hard-deletes a message; only its author may.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	callerID, ok := middleware.CallerID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	msgID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, domain.ErrInvalidMessageID.Error(), http.StatusBadRequest)
		return
	}
	if err := h.messages.Delete(r.Context(), msgID, callerID); err != nil {
		writeError(w, r, err)
		return
	}
	log.InfoContext(r.Context(), "message handler - delete - removed", logger.Message(msgID.String()))
	w.WriteHeader(http.StatusNoContent)
}
