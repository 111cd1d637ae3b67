// Package httpapi exposes the command surface of the service: session
// provisioning and lifecycle commands, outbound sends and the CRUD
// bookkeeping around contacts, tags and automation rules.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/brendondev/central-empresa/internal/model"
	"github.com/brendondev/central-empresa/internal/session"
	"github.com/brendondev/central-empresa/internal/storage"
)

// SessionService is the session lifecycle surface consumed by the handlers.
// *session.Manager implements it.
type SessionService interface {
	CreateSession(ctx context.Context, s model.Session) (*model.Session, error)
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	ListSessions(ctx context.Context, userID string) ([]model.Session, error)
	UpdateSettings(ctx context.Context, sessionID string, settings datatypes.JSON) (*model.Session, error)
	Connect(ctx context.Context, sessionID string) (*model.Session, error)
	Disconnect(ctx context.Context, sessionID string) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// MessageSender is the outbound surface consumed by the handlers.
// *session.Dispatcher implements it.
type MessageSender interface {
	Send(ctx context.Context, req session.SendRequest) (*model.Message, error)
}

// Server is the command API HTTP server.
type Server struct {
	httpServer  *http.Server
	router      *mux.Router
	sessions    SessionService
	sender      MessageSender
	contacts    storage.ContactRepo
	messages    storage.MessageRepo
	tags        storage.TagRepo
	automations storage.AutomationRepo
	baseLogger  *zap.Logger
}

// NewServer creates the command API server listening on the given port.
func NewServer(
	port int,
	sessions SessionService,
	sender MessageSender,
	contacts storage.ContactRepo,
	messages storage.MessageRepo,
	tags storage.TagRepo,
	automations storage.AutomationRepo,
	baseLogger *zap.Logger,
) *Server {
	s := &Server{
		sessions:    sessions,
		sender:      sender,
		contacts:    contacts,
		messages:    messages,
		tags:        tags,
		automations: automations,
		baseLogger:  baseLogger.Named("httpapi"),
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware, s.accountMiddleware, s.loggingMiddleware)

	r.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{sessionID}", s.handleGetSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{sessionID}", s.handleUpdateSession).Methods(http.MethodPatch)
	r.HandleFunc("/sessions/{sessionID}", s.handleDeleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{sessionID}/connect", s.handleConnectSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{sessionID}/disconnect", s.handleDisconnectSession).Methods(http.MethodPost)

	r.HandleFunc("/sessions/{sessionID}/messages", s.handleSendMessage).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{sessionID}/messages", s.handleListMessages).Methods(http.MethodGet)

	r.HandleFunc("/sessions/{sessionID}/contacts", s.handleCreateContact).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{sessionID}/contacts", s.handleListContacts).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{sessionID}/contacts/{contactID}", s.handleGetContact).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{sessionID}/contacts/{contactID}", s.handleUpdateContact).Methods(http.MethodPatch)
	r.HandleFunc("/sessions/{sessionID}/contacts/{contactID}", s.handleDeleteContact).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{sessionID}/contacts/{contactID}/tags", s.handleReplaceContactTags).Methods(http.MethodPut)

	r.HandleFunc("/sessions/{sessionID}/tags", s.handleCreateTag).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{sessionID}/tags", s.handleListTags).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{sessionID}/tags/{tagID}", s.handleUpdateTag).Methods(http.MethodPatch)
	r.HandleFunc("/sessions/{sessionID}/tags/{tagID}", s.handleDeleteTag).Methods(http.MethodDelete)

	r.HandleFunc("/sessions/{sessionID}/automations", s.handleCreateAutomation).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{sessionID}/automations", s.handleListAutomations).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{sessionID}/automations/{automationID}", s.handleUpdateAutomation).Methods(http.MethodPatch)
	r.HandleFunc("/sessions/{sessionID}/automations/{automationID}", s.handleDeleteAutomation).Methods(http.MethodDelete)

	return r
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.baseLogger.Info("Starting command API server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.baseLogger.Error("Command API server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.baseLogger.Info("Stopping command API server")
	return s.httpServer.Shutdown(ctx)
}
