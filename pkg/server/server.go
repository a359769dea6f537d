// Package server hosts registered strategies behind a small HTTP login flow:
// redirect to the provider, handle the callback, and link the returned
// profile to a local account.
package server

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ideamans/wunderlistauth/pkg/accounts"
	"github.com/ideamans/wunderlistauth/pkg/kvs"
	"github.com/ideamans/wunderlistauth/pkg/logging"
	"github.com/ideamans/wunderlistauth/pkg/ratelimit"
	"github.com/ideamans/wunderlistauth/pkg/strategy"
)

// Config contains the dependencies of a Server
type Config struct {
	Registry *strategy.Registry
	States   kvs.Store // single-use authorization states
	Accounts *accounts.Store
	StateTTL time.Duration // default 10m
	Logger   logging.Logger

	// LoginLimiter, when set, limits login starts per client IP
	LoginLimiter *ratelimit.Limiter
}

// Server serves the login endpoints
type Server struct {
	registry *strategy.Registry
	states   kvs.Store
	accounts *accounts.Store
	stateTTL time.Duration
	logger   logging.Logger
	limiter  *ratelimit.Limiter
	draining atomic.Bool
	mux      *http.ServeMux
}

// New creates a Server
func New(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.States == nil {
		return nil, errors.New("state store is required")
	}
	if cfg.Accounts == nil {
		return nil, errors.New("account store is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	s := &Server{
		registry: cfg.Registry,
		states:   cfg.States,
		accounts: cfg.Accounts,
		stateTTL: ttl,
		logger:   cfg.Logger.WithModule("server"),
		limiter:  cfg.LoginLimiter,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /auth/{strategy}", s.handleLogin)
	s.mux.HandleFunc("GET /auth/{strategy}/callback", s.handleCallback)
	s.mux.HandleFunc("GET /accounts/{id}", s.handleAccount)

	return s, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// SetDraining makes the health check fail so load balancers stop routing
// new logins here during shutdown.
func (s *Server) SetDraining() {
	s.draining.Store(true)
}
