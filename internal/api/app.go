package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/alumnet/server/internal/auth"
	"github.com/alumnet/server/internal/config"
	"github.com/alumnet/server/internal/database"
	"github.com/alumnet/server/internal/gateway"
	"github.com/alumnet/server/internal/types"
	"github.com/gorilla/handlers"
)

// MessageSender is the delivery coordinator contract consumed by the
// message endpoints.
type MessageSender interface {
	Send(senderId, receiverId int, content string) (types.Message, error)
}

type App struct {
	log            *log.Logger
	db             database.MessagingRepository
	mux            *http.Server
	gw             *gateway.Gateway
	sender         MessageSender
	tokens         *auth.TokenManager
	allowedOrigins []string
}

func NewApp(mux *http.ServeMux, logger *log.Logger, gw *gateway.Gateway, db database.MessagingRepository, sender MessageSender, cfg *config.Config) *App {
	s := &App{
		log:            logger,
		db:             db,
		gw:             gw,
		sender:         sender,
		tokens:         auth.NewTokenManager(cfg.SigningKey),
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("POST /api/messages", s.authMiddleware(s.createMessage))
	mux.Handle("GET /api/messages/conversations", s.authMiddleware(s.getConversations))
	mux.Handle("GET /api/messages/conversation/{userId}", s.authMiddleware(s.getConversation))
	mux.Handle("PUT /api/messages/read/{userId}", s.authMiddleware(s.markConversationRead))
	mux.Handle("GET /api/messages/unread-count", s.authMiddleware(s.unreadCount))
	mux.Handle("DELETE /api/messages/conversation/{userId}", s.authMiddleware(s.deleteConversation))
	mux.HandleFunc("GET /ws", s.serveWs)
	mux.HandleFunc("GET /healthz", s.healthCheck)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *App) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
