// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"net/http"
	"time"

	"mesplane/internal/controller/handlers"
	"mesplane/internal/controller/middleware"
)

// Options configure the optional surfaces of the server.
type Options struct {
	// APIToken protects every endpoint except the probes and /metrics.
	APIToken string

	// Per-client rate limit in requests/second. 0 disables limiting.
	RateLimit      float64
	RateLimitBurst int
	// TrustForwarded keys the limiter on X-Forwarded-For.
	TrustForwarded bool

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a new controller server.
func New(addr string, deps handlers.Deps, opts Options) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewHandler(deps, opts),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// NewHandler builds the routed handler with its middleware chain.
func NewHandler(deps handlers.Deps, opts Options) http.Handler {
	h := handlers.New(deps)
	authMW := middleware.RequireToken(opts.APIToken)
	var rateOpts []middleware.RateLimitOption
	if opts.TrustForwarded {
		rateOpts = append(rateOpts, middleware.WithTrustForwarded())
	}
	rateMW := middleware.NewRateLimiter(opts.RateLimit, opts.RateLimitBurst, rateOpts...).Middleware()
	protect := func(fn http.HandlerFunc) http.Handler {
		return rateMW(authMW(fn))
	}

	mux := http.NewServeMux()

	// Probes
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	// Online routing
	mux.Handle("POST /process-step", protect(h.ProcessStep))
	mux.Handle("GET /requests/{id}", protect(h.GetRequest))

	// Planning and inspection
	mux.Handle("GET /plans/{productType}", protect(h.GetPlan))
	mux.Handle("POST /schedules", protect(h.CreateSchedule))
	mux.Handle("GET /machines", protect(h.ListMachines))

	return middleware.RequestID(mux)
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
