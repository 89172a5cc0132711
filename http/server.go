package http

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"wordplay/game"
	"wordplay/ws"
)

type Options struct {
	GatewayToken       string
	RatePerSec         float64
	Burst              int
	DefaultMaxMessages int
}

type Server struct {
	router   *mux.Router
	handlers *Handlers
}

func NewServer(ctx context.Context, engine *game.Engine, wsManager *ws.Manager, opts Options) *Server {
	router := mux.NewRouter()
	handlers := NewHandlers(engine, wsManager, opts.DefaultMaxMessages)

	server := &Server{
		router:   router,
		handlers: handlers,
	}

	server.setupRoutes(ctx, opts)
	return server
}

func (s *Server) setupRoutes(ctx context.Context, opts Options) {
	s.router.Use(LoggingMiddleware)
	s.router.Use(SecurityHeadersMiddleware)
	s.router.Use(CORSMiddleware)

	s.router.HandleFunc("/health", s.handlers.Health).Methods("GET")

	limiter := NewRateLimiter(ctx, rate.Limit(opts.RatePerSec), opts.Burst)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(IdentityMiddleware(opts.GatewayToken))
	if opts.GatewayToken != "" {
		// Forwarded addresses are only trusted once the gateway proved itself.
		api.Use(chimw.RealIP)
	}
	api.Use(limiter.Middleware)

	api.HandleFunc("/games", s.handlers.ListGames).Methods("GET")
	api.HandleFunc("/games", s.handlers.CreateGame).Methods("POST")
	api.HandleFunc("/games/{gameId}", s.handlers.GetGame).Methods("GET")
	api.HandleFunc("/games/{gameId}/join", s.handlers.JoinGame).Methods("POST")
	api.HandleFunc("/games/{gameId}/actions", s.handlers.Action).Methods("POST")

	wsRouter := s.router.PathPrefix("/ws").Subrouter()
	wsRouter.Use(IdentityMiddleware(opts.GatewayToken))
	if opts.GatewayToken != "" {
		wsRouter.Use(chimw.RealIP)
	}
	wsRouter.HandleFunc("/lobby", s.handlers.HandleWebSocket)
	wsRouter.HandleFunc("/games/{gameId}", s.handlers.HandleWebSocket)

	s.router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) GetHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
