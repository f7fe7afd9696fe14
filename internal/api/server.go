// Package api is the JSON HTTP surface of the chat service.
//
// Routes:
//
//	POST   /chat                        run a conversation turn (canonical)
//	POST   /api/chat                    same handler, prefixed route
//	POST   /api/sessions                mint a server-generated session key
//	GET    /api/sessions                live session count
//	GET    /api/sessions/{id}/messages  session history
//	DELETE /api/sessions/{id}           drop a session
//	GET    /api/tools                   capability listing with input schemas
//	GET    /health                      liveness probe
//	GET    /ready                       readiness probe (database ping)
//
// Health probes sit outside the middleware stack so orchestrator checks
// are never rate limited.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dbchat/dbchat/internal/chat"
	"github.com/dbchat/dbchat/internal/session"
	"github.com/dbchat/dbchat/internal/tools"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	Agent        *chat.Agent   // Required
	SessionStore session.Store // Required
	DB           Pinger        // Optional: nil degrades /ready to a plain health check
	TrustProxy   bool          // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst    int           // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Agent == nil {
		return nil, errors.New("chat agent is required")
	}
	if cfg.SessionStore == nil {
		return nil, errors.New("session store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	descriptors, err := tools.Descriptors()
	if err != nil {
		return nil, err
	}

	ch := &chatHandler{logger: logger, agent: cfg.Agent, sessions: cfg.SessionStore}
	sh := &sessionHandler{logger: logger, store: cfg.SessionStore}
	th := &toolsHandler{logger: logger, descriptors: descriptors}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", ch.send)
	mux.HandleFunc("POST /api/chat", ch.send)

	mux.HandleFunc("POST /api/sessions", sh.create)
	mux.HandleFunc("GET /api/sessions", sh.stats)
	mux.HandleFunc("GET /api/sessions/{id}/messages", sh.history)
	mux.HandleFunc("DELETE /api/sessions/{id}", sh.delete)

	mux.HandleFunc("GET /api/tools", th.list)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → Logging → RateLimit → Routes
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux separates health probes from the middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.DB))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
