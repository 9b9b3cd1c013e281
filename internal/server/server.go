package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/google"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/instrumentation"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

const (
	// DefaultAddr is the default bind address for the API server.
	DefaultAddr = ":8080"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// Gateway serves fresh-enough snapshots.
type Gateway interface {
	GetFreshSnapshot(ctx context.Context, userID string) *calendar.Snapshot
}

// Syncer runs a full sync cycle on demand.
type Syncer interface {
	SyncUser(ctx context.Context, userID string) (*calendar.Snapshot, error)
}

// Mutator performs household-aware event writes.
type Mutator interface {
	CreateEvent(ctx context.Context, userID, calendarID string, input calendar.EventInput) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, userID, eventID string, input calendar.EventInput) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, userID, eventID string) error
}

// TokenProvider hands out valid access tokens for provider accounts.
type TokenProvider interface {
	GetValidToken(ctx context.Context, account *store.Account) (string, error)
}

// ProviderClient performs direct calendar operations against one account,
// bypassing the snapshot cache.
type ProviderClient interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]calendar.Event, error)
	InsertEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.Event, error)
	PatchEvent(ctx context.Context, calendarID, eventID string, input calendar.EventInput) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// ProviderFactory builds a provider client bound to one account's token.
type ProviderFactory func(ctx context.Context, accountID, accessToken string) (ProviderClient, error)

// Config holds the API server configuration.
type Config struct {
	Addr string
}

// Server is the HTTP API server.
type Server struct {
	store   *store.Store
	gateway Gateway
	syncer  Syncer
	mutator Mutator
	oauth   *google.OAuth
	tokens  TokenProvider
	factory ProviderFactory
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	health  *HealthChecker
	httpSrv *http.Server
	addr    string
}

// Option configures a Server.
type Option func(*Server)

// WithOAuth enables the account-connect endpoints.
func WithOAuth(o *google.OAuth) Option {
	return func(s *Server) {
		s.oauth = o
	}
}

// WithMetrics attaches a metrics recorder for HTTP requests.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithProviderAccess enables direct single-account provider reads and
// writes (ad-hoc event ranges, explicit-account mutations).
func WithProviderAccess(tp TokenProvider, factory ProviderFactory) Option {
	return func(s *Server) {
		s.tokens = tp
		s.factory = factory
	}
}

// NewServer creates the API server.
func NewServer(cfg Config, st *store.Store, gw Gateway, sy Syncer, mu Mutator, logger *slog.Logger, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:   st,
		gateway: gw,
		syncer:  sy,
		mutator: mu,
		logger:  logger,
		health:  NewHealthChecker(),
		addr:    cfg.Addr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.health.RegisterHealthEndpoints(mux)

	mux.HandleFunc("GET /api/v1/auth/url", s.handleAuthURL)
	mux.HandleFunc("POST /api/v1/auth/callback", s.withAuth(s.handleAuthCallback))

	mux.HandleFunc("GET /api/v1/accounts", s.withAuth(s.handleListAccounts))
	mux.HandleFunc("DELETE /api/v1/accounts/{accountID}", s.withAuth(s.handleDisconnectAccount))

	mux.HandleFunc("POST /api/v1/sync", s.withAuth(s.handleSync))
	mux.HandleFunc("GET /api/v1/events", s.withAuth(s.handleGetEvents))
	mux.HandleFunc("POST /api/v1/events", s.withAuth(s.handleCreateEvent))
	mux.HandleFunc("PATCH /api/v1/events/{eventID}", s.withAuth(s.handleUpdateEvent))
	mux.HandleFunc("DELETE /api/v1/events/{eventID}", s.withAuth(s.handleDeleteEvent))

	mux.HandleFunc("GET /api/v1/displays/{displayID}/data", s.withAuth(s.handleDisplayData))
	mux.HandleFunc("POST /api/v1/displays/{displayID}/sync", s.withAuth(s.handleDisplaySync))
	mux.HandleFunc("GET /api/v1/displays/{displayID}/events", s.withAuth(s.handleDisplayEvents))
	mux.HandleFunc("POST /api/v1/displays/{displayID}/events", s.withAuth(s.handleDisplayCreateEvent))
	mux.HandleFunc("PATCH /api/v1/displays/{displayID}/events/{eventID}", s.withAuth(s.handleDisplayUpdateEvent))
	mux.HandleFunc("DELETE /api/v1/displays/{displayID}/events/{eventID}", s.withAuth(s.handleDisplayDeleteEvent))

	return s.instrument(mux)
}

// instrument wraps the mux with request metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		if s.metrics != nil {
			// Resource ids in the path would blow up the label space.
			path := instrumentation.NormalizeRoutePath(r.URL.Path)
			s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, sw.status, time.Since(start))
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Start runs the server until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	s.logger.Info("starting API server", slog.String("addr", s.addr))
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetShuttingDown()
	if s.httpSrv != nil {
		s.logger.Info("shutting down API server")
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured bind address.
func (s *Server) Addr() string {
	return s.addr
}
