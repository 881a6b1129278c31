package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"dialog/internal/core/domain"
	"dialog/internal/core/services"
	"dialog/internal/platform/logger"
	"dialog/pkg/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ConversationHandler is the thin REST controller over the directory,
// membership manager, and message pipeline.
type ConversationHandler struct {
	directory  *services.DirectoryService
	membership *services.MembershipService
	messages   *services.MessageService
	validate   *validator.Validate
}

func NewConversationHandler(
	directory *services.DirectoryService,
	membership *services.MembershipService,
	messages *services.MessageService,
) *ConversationHandler {
	return &ConversationHandler{
		directory:  directory,
		membership: membership,
		messages:   messages,
		validate:   validator.New(),
	}
}

type conversationResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toConversationResponse(c *domain.Conversation) conversationResponse {
	return conversationResponse{ID: c.ID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

// Create resolves or lazily creates the direct conversation between the
// caller and the requested participant.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	callerID, ok := middleware.CallerID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req domain.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conv, err := h.directory.FindOrCreate(r.Context(), callerID, req.ParticipantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.InfoContext(r.Context(), "conversation handler - create - resolved", logger.Conversation(conv.ID.String()))
	writeJSON(w, http.StatusOK, toConversationResponse(conv))
}

type previewResponse struct {
	Conversation  conversationResponse `json:"conversation"`
	OtherUserID   *uuid.UUID           `json:"other_user_id,omitempty"`
	OtherUserName string               `json:"other_user_name,omitempty"`
	LatestMessage *messageResponse     `json:"latest_message,omitempty"`
	Unread        bool                 `json:"unread"`
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.CallerID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	previews, err := h.directory.ListConversations(r.Context(), callerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]previewResponse, 0, len(previews))
	for _, pv := range previews {
		resp := previewResponse{
			Conversation: toConversationResponse(&pv.Conversation),
			Unread:       pv.Unread,
		}
		if pv.Other != nil {
			uid := pv.Other.UserID
			resp.OtherUserID = &uid
			resp.OtherUserName = pv.Other.UserName
		}
		if pv.LatestMessage != nil {
			m := toMessageResponse(pv.LatestMessage)
			resp.LatestMessage = &m
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.CallerID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, domain.ErrInvalidConversationID.Error(), http.StatusBadRequest)
		return
	}
	conv, err := h.directory.GetConversation(r.Context(), convID, callerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationResponse(conv))
}

func (h *ConversationHandler) Leave(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.CallerID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, domain.ErrInvalidConversationID.Error(), http.StatusBadRequest)
		return
	}
	if err := h.membership.Leave(r.Context(), convID, callerID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.CallerID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, domain.ErrInvalidConversationID.Error(), http.StatusBadRequest)
		return
	}
	if err := h.membership.MarkRead(r.Context(), convID, callerID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.CallerID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, domain.ErrInvalidConversationID.Error(), http.StatusBadRequest)
		return
	}
	msgs, err := h.messages.ListVisible(r.Context(), convID, callerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]messageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, toMessageResponse(&msgs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
