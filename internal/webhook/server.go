package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/hookgate/internal/metrics"
	"github.com/mattjoyce/hookgate/internal/queue"
)

// Server represents the webhook HTTP server.
type Server struct {
	config   Config
	queue    DeliveryQueuer
	verifier *Verifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	server   *http.Server

	// sources maps source names to their endpoint configuration
	sources map[string]*SourceEndpoint
}

// New creates a new webhook server instance. m may be nil to disable metrics.
func New(config Config, q DeliveryQueuer, verifier *Verifier, m *metrics.Metrics, logger *slog.Logger) *Server {
	sources := make(map[string]*SourceEndpoint)
	for i := range config.Sources {
		ep := &config.Sources[i]

		// Apply defaults
		if ep.MaxBodySize == 0 {
			ep.MaxBodySize = DefaultMaxBodySize
		}
		if ep.SignatureHeader == "" {
			ep.SignatureHeader = DefaultSignatureHeader
		}
		if ep.Tolerance == 0 {
			ep.Tolerance = DefaultTolerance
		}

		sources[ep.Name] = ep
	}

	if verifier == nil {
		verifier = NewVerifier(nil, nil, m, logger)
	}

	return &Server{
		config:   config,
		queue:    q,
		verifier: verifier,
		metrics:  m,
		logger:   logger,
		sources:  sources,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "sources", len(s.sources))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Handler builds the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.config.MetricsPath != "" {
		r.Method(http.MethodGet, s.config.MetricsPath, s.metrics.Handler())
	}

	for _, ep := range s.sources {
		r.With(s.verifier.Middleware(*ep)).Post(ep.Path(), s.handleDelivery)
	}

	return r
}

// loggingMiddleware logs HTTP requests (excludes payloads and headers).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleHealth reports liveness plus delivery counts per status. A queue that
// cannot be read makes the gateway unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	counts, err := s.queue.CountByStatus(r.Context(), "")
	if err != nil {
		s.logger.Error("health check: failed to count deliveries", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": "queue unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"sources":    len(s.sources),
		"deliveries": counts,
	})
}

// handleDelivery enqueues a delivery that already passed verification.
func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	d, ok := DeliveryFromContext(ctx)
	if !ok {
		// Only reachable if the route was registered without the middleware.
		s.logger.Error("delivery handler reached without verification", "path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	id, err := s.queue.Enqueue(ctx, queue.EnqueueRequest{
		Source:         d.Source,
		Payload:        d.Payload,
		SignedAtMillis: d.Header.Timestamp,
		RequestID:      middleware.GetReqID(ctx),
	})
	if err != nil {
		s.logger.Error("failed to enqueue webhook delivery",
			"source", d.Source,
			"error", err,
		)
		respondError(w, http.StatusInternalServerError, "failed to enqueue delivery")
		return
	}
	s.metrics.ObserveEnqueued(d.Source)

	s.logger.Info("webhook delivery enqueued",
		"source", d.Source,
		"delivery_id", id,
		"signed_at", d.Header.Timestamp,
	)

	respondJSON(w, http.StatusAccepted, TriggerResponse{DeliveryID: id})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
