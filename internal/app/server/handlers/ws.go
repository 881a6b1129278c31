package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"dialog/internal/app/server/ws"
	"dialog/internal/core/contracts"
	"dialog/internal/core/domain"
	"dialog/internal/core/services"
	"dialog/internal/platform/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHandler owns the realtime surface: the handshake authenticator gates
// session establishment, then every frame dispatches into the core services.
type WSHandler struct {
	hub        contracts.Registry
	tokens     *services.TokenService
	users      *services.UserService
	messages   *services.MessageService
	membership *services.MembershipService
	typing     *services.TypingService
	validate   *validator.Validate
}

func NewWSHandler(
	hub contracts.Registry,
	tokens *services.TokenService,
	users *services.UserService,
	messages *services.MessageService,
	membership *services.MembershipService,
	typing *services.TypingService,
) *WSHandler {
	return &WSHandler{
		hub:        hub,
		tokens:     tokens,
		users:      users,
		messages:   messages,
		membership: membership,
		typing:     typing,
		validate:   validator.New(),
	}
}

// authenticate is the Handshake Authenticator. It runs once, on the
// session-establishment request only, and binds the resolved principal to
// the session for the connection's lifetime. A missing, malformed, or
// invalid token is logged and the connection proceeds unauthenticated —
// observed behavior kept deliberately; such a session simply has no
// principal for later dispatches to use.
func (s *WSHandler) authenticate(r *http.Request) *domain.User {
	log := logger.FromContext(r.Context())
	// Header lookup is case-insensitive, covering case variants of the name.
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		log.InfoContext(r.Context(), "ws handler - handshake - no credential, proceeding unauthenticated")
		return nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		log.WarnContext(r.Context(), "ws handler - handshake - malformed credential, proceeding unauthenticated")
		return nil
	}
	subject, err := s.tokens.Subject(parts[1])
	if err != nil {
		log.WarnContext(r.Context(), "ws handler - handshake - verification failed, proceeding unauthenticated", logger.Err(err))
		return nil
	}
	principal, err := s.users.ResolveUser(r.Context(), subject)
	if err != nil {
		log.WarnContext(r.Context(), "ws handler - handshake - principal lookup failed, proceeding unauthenticated",
			logger.User(subject.String()), logger.Err(err))
		return nil
	}
	return principal
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type channelRequest struct {
	ConversationID uuid.UUID `json:"conversation_id" validate:"required"`
}

func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	principal := s.authenticate(r)

	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	// The session ctx must die with the handler: on an abnormal disconnect
	// the read loop exits without a close frame, and this is what stops the
	// client's write loop.
	defer cancel()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade failed", logger.Err(err))
		return
	}
	defer conn.Close()
	conn.SetCloseHandler(func(code int, text string) error {
		cancel()
		return nil
	})
	socket := ws.NewWebSocket(ctx, conn)

	client := ws.NewClient(ctx, socket, uuid.NewString())
	s.hub.Register(client)
	defer s.hub.Unregister(client)
	if principal != nil {
		// The private channel is bound for the connection's lifetime.
		if err := s.hub.Subscribe(client, domain.UserChannel(principal.ID)); err != nil {
			log.ErrorContext(r.Context(), "ws handler - user channel subscription failed", logger.Err(err))
		}
		log.InfoContext(r.Context(), "ws handler - session established", logger.User(principal.ID.String()))
	} else {
		log.InfoContext(r.Context(), "ws handler - unauthenticated session established")
	}

	socket.ReadLoop(func(data []byte) {
		go s.dispatch(ctx, log, client, principal, data)
	})
}

func (s *WSHandler) dispatch(ctx context.Context, log *slog.Logger, client *ws.SessionClient, principal *domain.User, data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		s.sendError(ctx, client, "BAD_FRAME", "frame is not valid JSON")
		return
	}
	if principal == nil {
		s.sendError(ctx, client, "UNAUTHENTICATED", "session has no principal")
		return
	}
	switch f.Type {
	case "send_message":
		var req domain.SendMessageRequest
		if err := json.Unmarshal(f.Payload, &req); err != nil {
			s.sendError(ctx, client, "BAD_PAYLOAD", err.Error())
			return
		}
		if err := s.validate.Struct(req); err != nil {
			s.sendError(ctx, client, "VALIDATION", err.Error())
			return
		}
		if _, err := s.messages.Send(ctx, req.ConversationID, req.Content, principal.ID); err != nil {
			s.sendError(ctx, client, "SEND_REJECTED", err.Error())
		}
	case "typing":
		var ind domain.TypingIndicator
		if err := json.Unmarshal(f.Payload, &ind); err != nil {
			s.sendError(ctx, client, "BAD_PAYLOAD", err.Error())
			return
		}
		if ind.UserID == uuid.Nil {
			ind.UserID = principal.ID
		}
		if err := s.validate.Struct(ind); err != nil {
			s.sendError(ctx, client, "VALIDATION", err.Error())
			return
		}
		if err := s.typing.Relay(ctx, ind); err != nil {
			s.sendError(ctx, client, "TYPING_REJECTED", err.Error())
		}
	case "subscribe":
		var req channelRequest
		if err := json.Unmarshal(f.Payload, &req); err != nil || req.ConversationID == uuid.Nil {
			s.sendError(ctx, client, "BAD_PAYLOAD", "conversation_id required")
			return
		}
		// Subscription-time access control: the channel itself never re-checks.
		if _, err := s.membership.ActiveParticipant(ctx, req.ConversationID, principal.ID); err != nil {
			s.sendError(ctx, client, "SUBSCRIBE_REJECTED", err.Error())
			return
		}
		if err := s.hub.Subscribe(client, domain.ConversationChannel(req.ConversationID)); err != nil {
			s.sendError(ctx, client, "SUBSCRIBE_FAILED", err.Error())
			return
		}
		if err := s.hub.Subscribe(client, domain.TypingChannel(req.ConversationID)); err != nil {
			s.sendError(ctx, client, "SUBSCRIBE_FAILED", err.Error())
		}
	case "unsubscribe":
		var req channelRequest
		if err := json.Unmarshal(f.Payload, &req); err != nil || req.ConversationID == uuid.Nil {
			s.sendError(ctx, client, "BAD_PAYLOAD", "conversation_id required")
			return
		}
		s.hub.Unsubscribe(client, domain.ConversationChannel(req.ConversationID))
		s.hub.Unsubscribe(client, domain.TypingChannel(req.ConversationID))
	default:
		log.WarnContext(ctx, "ws handler - dispatch - unknown frame type", "type", f.Type)
		s.sendError(ctx, client, "UNKNOWN_FRAME", "unknown frame type "+f.Type)
	}
}

func (s *WSHandler) sendError(ctx context.Context, client *ws.SessionClient, code, message string) {
	env := domain.Envelope{
		Type:    domain.EventError,
		Payload: domain.ErrorNotice{Code: code, Message: message},
	}
	raw, _ := json.Marshal(env)
	_ = client.Send(ctx, raw)
}
