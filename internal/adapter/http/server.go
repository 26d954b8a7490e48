// Package http serves health, readiness, metrics and on-demand line parsing.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
)

// maxParseBody bounds a POST /parse request; cluster lines are well under 100 bytes.
const maxParseBody = 8 << 10

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Classifier parses a single cluster line. *domain.Registry satisfies it.
type Classifier interface {
	Classify(line string) (domain.Classification, error)
}

// Server exposes health, readiness, metrics and parse HTTP endpoints.
type Server struct {
	httpServer *http.Server
	classifier Classifier
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// POST /parse routes. A nil classifier uses domain.DefaultRegistry.
func NewServer(addr string, ready ReadinessChecker, classifier Classifier, logger *slog.Logger) *Server {
	if classifier == nil {
		classifier = domain.DefaultRegistry
	}
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		classifier: classifier,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /parse", s.handleParse)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// parseFailure is the 422 body for a line that produced no spot.
type parseFailure struct {
	Outcome string `json:"outcome"`
	Field   string `json:"field,omitempty"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error"`
}

// handleParse classifies the plain-text request body as one cluster line and
// answers with the spot event envelope.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxParseBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "line too long"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	line := strings.TrimRight(string(body), "\r\n")
	if strings.TrimSpace(line) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty line"})
		return
	}

	c, err := s.classifier.Classify(line)
	if err != nil {
		var malformed *domain.MalformedFieldError
		switch {
		case errors.As(err, &malformed):
			writeJSON(w, http.StatusUnprocessableEntity, parseFailure{
				Outcome: "malformed_field",
				Field:   malformed.Field,
				Text:    malformed.Text,
				Error:   err.Error(),
			})
		case errors.Is(err, domain.ErrUnrecognized):
			writeJSON(w, http.StatusUnprocessableEntity, parseFailure{Outcome: "unrecognized", Error: err.Error()})
		default:
			s.logger.Error("parse request failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}

	ev := domain.NewSpotEvent(domain.RawLine{Text: line, Source: "http", ReceivedAt: time.Now().UTC()}, c)
	writeJSON(w, http.StatusOK, ev)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
