package server

import (
	"log/slog"
	"net/http"
	"time"

	"dialog/internal/app/registry"
	"dialog/internal/app/server/handlers"
	"dialog/internal/core/services"
	"dialog/pkg/middleware"
)

type Server struct {
	log      *slog.Logger
	mux      *http.ServeMux
	addr     string
	convs    *handlers.ConversationHandler
	msgs     *handlers.MessageHandler
	wsh      *handlers.WSHandler
	tokenSvc *services.TokenService
}

func NewServer(
	log *slog.Logger,
	addr string,
	tokenSvc *services.TokenService,
	users *services.UserService,
	directory *services.DirectoryService,
	membership *services.MembershipService,
	messages *services.MessageService,
	typing *services.TypingService,
	hub *registry.Registry,
) *Server {
	s := &Server{
		log:      log,
		mux:      http.NewServeMux(),
		addr:     addr,
		convs:    handlers.NewConversationHandler(directory, membership, messages),
		msgs:     handlers.NewMessageHandler(messages),
		wsh:      handlers.NewWSHandler(hub, tokenSvc, users, messages, membership, typing),
		tokenSvc: tokenSvc,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.Auth(s.tokenSvc)

	protected := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}

	s.mux.Handle("POST /conversations", protected(s.convs.Create))
	s.mux.Handle("GET /conversations", protected(s.convs.List))
	s.mux.Handle("GET /conversations/{id}", protected(s.convs.Get))
	s.mux.Handle("POST /conversations/{id}/leave", protected(s.convs.Leave))
	s.mux.Handle("POST /conversations/{id}/read", protected(s.convs.MarkRead))
	s.mux.Handle("GET /conversations/{id}/messages", protected(s.convs.Messages))
	s.mux.Handle("DELETE /messages/{id}", protected(s.msgs.Delete))

	// No Auth middleware here: the handshake authenticator decides what an
	// unauthenticated connection may do.
	s.mux.HandleFunc("/ws", s.wsh.Handler)
}

func (s *Server) Start() error {
	handler := middleware.RequestLogger(s.log)(
		middleware.Tracer("dialog-backend")(s.mux),
	)
	server := &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	s.log.Info("server starting", "addr", s.addr)
	return server.ListenAndServe()
}
