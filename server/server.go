// Package server exposes the coordinator over a websocket chat endpoint.
//
// Each connection is one session (the session_id query parameter). Messages
// on a connection are handled one at a time in the order received; separate
// connections run concurrently. Every exchange reuses the session's thread.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/hrassist/coordinator"
)

const defaultStatusDelay = 3 * time.Second

// Conversation runs exchanges. *coordinator.Coordinator satisfies it.
type Conversation interface {
	Converse(ctx context.Context, req coordinator.Request) (*coordinator.Result, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for connection-level failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithAgentID sets the agent name reported in answers.
func WithAgentID(id string) Option {
	return func(s *Server) { s.agentID = id }
}

// WithStatusDelay sets how long a stream may go without a first fragment
// before the client is told the agent is still working.
func WithStatusDelay(d time.Duration) Option {
	return func(s *Server) { s.statusDelay = d }
}

// WithHandler mounts h under the path prefix.
func WithHandler(prefix string, h http.Handler) Option {
	return func(s *Server) { s.router.PathPrefix(prefix).Handler(h) }
}

// Server routes /ws and /health.
type Server struct {
	conv        Conversation
	router      *mux.Router
	upgrader    websocket.Upgrader
	logger      *slog.Logger
	agentID     string
	statusDelay time.Duration
}

// New creates a Server over conv.
func New(conv Conversation, opts ...Option) *Server {
	s := &Server{
		conv:        conv,
		router:      mux.NewRouter(),
		logger:      slog.Default(),
		agentID:     "hr_agent",
		statusDelay: defaultStatusDelay,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.serveWS).Methods(http.MethodGet)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("server listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	sess := newSession(s, conn, sessionID)
	sess.debug(LogInfo, "Session started", map[string]any{"session_id": sessionID})

	ctx := r.Context()
	for {
		var in Inbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "session_id", sessionID, "error", err)
			}
			return
		}
		if err := sess.handle(ctx, in); err != nil {
			s.logger.Warn("websocket write failed", "session_id", sessionID, "error", err)
			return
		}
	}
}
