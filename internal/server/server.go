package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/choreboss/internal/authz"
	"github.com/dukerupert/choreboss/internal/config"
	"github.com/dukerupert/choreboss/internal/credential"
	"github.com/dukerupert/choreboss/internal/handler"
	"github.com/dukerupert/choreboss/internal/metrics"
	"github.com/dukerupert/choreboss/internal/middleware"
	"github.com/dukerupert/choreboss/internal/store"
	"github.com/dukerupert/choreboss/internal/tracker"
	ws "github.com/dukerupert/choreboss/internal/websocket"
)

const rateLimitCleanupInterval = time.Minute

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	svc         *tracker.Service
	metrics     *metrics.Metrics
	personH     *handler.PersonHandler
	choreH      *handler.ChoreHandler
	pinH        *handler.PINHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger.With("component", "websocket"))
	m := metrics.New()
	m.ObserveDroppedBroadcasts(hub.Dropped)

	hasher := credential.NewBcrypt(cfg.BcryptCost)
	policy, err := authz.New(store.NewPersonStore(db), store.NewChoreStore(db), hasher,
		authz.WithMetrics(m),
		authz.WithLogger(logger.With("component", "authz")),
	)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	svc := tracker.New(db, hasher, policy, tracker.SystemClock{},
		tracker.WithNotifier(hub),
		tracker.WithMetrics(m),
		tracker.WithLogger(logger.With("component", "tracker")),
	)

	return &Server{
		db:          db,
		hub:         hub,
		svc:         svc,
		metrics:     m,
		personH:     handler.NewPersonHandler(svc, logger.With("component", "person")),
		choreH:      handler.NewChoreHandler(svc, logger.With("component", "chore")),
		pinH:        handler.NewPINHandler(svc, logger.With("component", "pin")),
		rateLimiter: middleware.NewRateLimiter(cfg.PINRateLimit, time.Minute),
		logger:      logger,
	}, nil
}

// Service returns the tracker behind the HTTP API.
func (s *Server) Service() *tracker.Service {
	return s.svc
}

// RunBackground starts housekeeping goroutines that stop with ctx.
func (s *Server) RunBackground(ctx context.Context) {
	go s.rateLimiter.RunCleanup(ctx, rateLimitCleanupInterval)
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	pin := middleware.RequirePIN
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	limited := middleware.RateLimit(s.rateLimiter, keyFunc)

	// People. Adding the first admin needs no PIN, so POST stays open and
	// the policy decides.
	mux.HandleFunc("GET /api/people", s.personH.List)
	mux.HandleFunc("POST /api/people", s.personH.Create)
	mux.HandleFunc("GET /api/people/{id}", s.personH.Get)
	mux.Handle("PUT /api/people/{id}", pin(http.HandlerFunc(s.personH.Update)))
	mux.Handle("PUT /api/people/{id}/pin", limited(http.HandlerFunc(s.personH.ChangePIN)))
	mux.Handle("DELETE /api/people/{id}", pin(http.HandlerFunc(s.personH.Delete)))
	mux.HandleFunc("GET /api/people/{id}/next", s.personH.Next)
	mux.Handle("PUT /api/people/{id}/sequence", pin(http.HandlerFunc(s.personH.UpdateSequence)))
	mux.Handle("PUT /api/sequence", pin(http.HandlerFunc(s.personH.Reorder)))

	// Chores
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.Handle("PUT /api/chores/{id}", pin(http.HandlerFunc(s.choreH.Update)))
	mux.Handle("DELETE /api/chores/{id}", pin(http.HandlerFunc(s.choreH.Delete)))
	mux.Handle("POST /api/chores/{id}/complete", pin(http.HandlerFunc(s.choreH.Complete)))
	mux.HandleFunc("GET /api/chores/{id}/completions", s.choreH.Completions)

	mux.Handle("POST /api/verify-pin", limited(http.HandlerFunc(s.pinH.Verify)))

	return middleware.Identify(middleware.RequestLogger(s.logger.With("component", "http"))(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
