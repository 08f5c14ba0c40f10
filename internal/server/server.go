package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/config"
	"github.com/jonathan/codex-pipeline/internal/logger"
	"github.com/jonathan/codex-pipeline/internal/metrics"
	"github.com/jonathan/codex-pipeline/internal/pipeline"
	"github.com/jonathan/codex-pipeline/internal/server/middleware"
	"github.com/jonathan/codex-pipeline/internal/server/ratelimit"
)

// DefaultMaxUploadBytes bounds uploaded documents
const DefaultMaxUploadBytes = 20 << 20

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	svc         *pipeline.Service
	metrics     *metrics.Metrics
	logger      *zap.Logger
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	validate    *validator.Validate
	maxUpload   int64
}

// Config holds server configuration
type Config struct {
	Port           int
	JWT            *config.JWTConfig // nil leaves mutating routes open
	RateLimit      *ratelimit.Config // nil disables rate limiting
	MaxUploadBytes int64
}

// New builds the router. The service is owned by the caller.
func New(cfg Config, svc *pipeline.Service, m *metrics.Metrics, log *zap.Logger) *Server {
	s := &Server{
		svc:       svc,
		metrics:   m,
		logger:    logger.OrNop(log),
		validate:  newValidator(),
		maxUpload: cfg.MaxUploadBytes,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	if cfg.JWT != nil {
		s.jwtService = NewJWTService(cfg.JWT)
	}
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		s.rateLimiter = ratelimit.NewLimiter(cfg.RateLimit)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", m.Handler())

	// Units
	mux.Handle("POST /units", s.protect(s.handleCreateUnit))
	mux.Handle("POST /units/upload", s.protect(s.handleUploadUnit))
	mux.HandleFunc("GET /units/{id}", s.handleGetUnit)

	// Batches
	mux.Handle("POST /batches", s.protect(s.handleCreateBatch))
	mux.HandleFunc("GET /batches/{id}", s.handleGetBatch)
	mux.HandleFunc("GET /batches/{id}/units", s.handleListBatchUnits)
	mux.HandleFunc("GET /batches/{id}/stream", s.handleBatchStream)

	// Tailoring
	mux.Handle("POST /tailor", s.protect(s.handleTailor))

	// Codexes
	mux.HandleFunc("GET /codexes", s.handleListCodexes)
	mux.HandleFunc("GET /codexes/{id}", s.handleGetCodex)
	mux.Handle("PUT /codexes/{id}", s.protect(s.handlePutCodex))

	var handler http.Handler = s.withLogging(s.withCORS(mux))
	if s.rateLimiter != nil {
		handler = s.withRateLimit(handler)
	}
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      300 * time.Second, // tailoring runs several completion passes
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr), zap.Bool("auth", s.jwtService != nil))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.logger.Info("server stopped")
	return nil
}

// protect requires a bearer token on h when authentication is configured
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	if s.jwtService == nil {
		return h
	}
	return middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(h)
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush lets the batch stream pass through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging logs each request and counts it by status code
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		s.metrics.HTTPRequest(r.Method, strconv.Itoa(rec.status))
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Warn("request failed", fields...)
			return
		}
		s.logger.Debug("request served", fields...)
	})
}

// withRateLimit rejects clients over their per-endpoint budget
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
		}
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		body := map[string]any{
			"error":   "rate_limit_exceeded",
			"message": "Rate limit exceeded. Please try again later.",
			"limit":   info.Limit,
		}
		if info.RetryAfter > 0 {
			seconds := int(info.RetryAfter.Round(time.Second).Seconds())
			body["retry_after"] = seconds
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
		s.logger.Info("rate limit exceeded",
			zap.String("client", clientID(r)),
			zap.String("path", r.URL.Path),
			zap.Int("limit", info.Limit))
		s.jsonResponse(w, http.StatusTooManyRequests, body)
	})
}

// clientID is the remote IP. Forwarding headers are not trusted.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail maps err to a status code and writes it. Server-side causes are logged, not returned.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	s.errorResponse(w, status, publicMessage(err, status))
}

// decodeJSON reads a JSON body into dst and validates it
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return s.check(dst)
}

// check runs struct validation and reports the first failing field
func (s *Server) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ErrValidation{Field: fe.Field(), Message: describe(fe)}
	}
	return &ErrValidation{Field: "body", Message: err.Error()}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required unless " + jsonParam(fe.Param()) + " is given"
	case "excluded_with":
		return "cannot be combined with " + jsonParam(fe.Param())
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "url", "http_url":
		return "must be an http(s) URL"
	}
	return "fails " + fe.Tag()
}

// paramNames maps Go field names used in cross-field tags to their JSON names
var paramNames = map[string]string{
	"Text":         "text",
	"URL":          "url",
	"Resume":       "resume",
	"Job":          "job",
	"ResumeUnitID": "resume_unit_id",
	"JobUnitID":    "job_unit_id",
}

func jsonParam(field string) string {
	if name, ok := paramNames[field]; ok {
		return name
	}
	return strings.ToLower(field)
}
