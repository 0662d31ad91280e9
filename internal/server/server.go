package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teemow/mailrules/internal/auth"
	"github.com/teemow/mailrules/internal/engine"
	"github.com/teemow/mailrules/internal/instrumentation"
	"github.com/teemow/mailrules/internal/logging"
	"github.com/teemow/mailrules/internal/rules"
)

const (
	// UserKeyHeader names the acting identity on every API request.
	UserKeyHeader = "X-User-Key"

	// DefaultAddr is the default address for the API server.
	DefaultAddr = ":8080"

	// DefaultReadHeaderTimeout bounds how long a client may take to send
	// request headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds response writing. Engine runs make
	// provider calls, so this is generous.
	DefaultWriteTimeout = 60 * time.Second

	// DefaultIdleTimeout is the keep-alive idle timeout.
	DefaultIdleTimeout = 60 * time.Second
)

// EmailProcessor runs rules against one email. Satisfied by *engine.Engine.
type EmailProcessor interface {
	ProcessIncomingEmail(ctx context.Context, userKey string, email rules.Email) (*engine.RunReport, error)
}

// RuleService is the rule CRUD surface. Satisfied by *rules.Repository.
type RuleService interface {
	List(ctx context.Context, userKey string) ([]rules.Rule, error)
	Create(ctx context.Context, userKey string, draft rules.Draft) (rules.Rule, error)
	Update(ctx context.Context, userKey string, rule rules.Rule) (rules.Rule, error)
	Delete(ctx context.Context, userKey, id string) error
}

// Config holds configuration for the API server.
type Config struct {
	// Addr is the address to bind to (e.g., ":8080").
	Addr string
}

// Server is the JSON HTTP surface of serve mode.
type Server struct {
	processor  EmailProcessor
	ruleSvc    RuleService
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	health     *HealthChecker
	httpServer *http.Server
	addr       string
}

// New creates a Server. logger and metrics may be nil.
func New(config Config, processor EmailProcessor, ruleSvc RuleService, logger *slog.Logger, metrics *instrumentation.Metrics) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		processor: processor,
		ruleSvc:   ruleSvc,
		logger:    logger,
		metrics:   metrics,
		health:    NewHealthChecker(),
		addr:      config.Addr,
	}
	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
	return s
}

// Handler returns the full route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /v1/process", s.instrument("/v1/process", s.requireUser(s.handleProcess)))
	mux.Handle("GET /v1/rules", s.instrument("/v1/rules", s.requireUser(s.handleListRules)))
	mux.Handle("POST /v1/rules", s.instrument("/v1/rules", s.requireUser(s.handleCreateRule)))
	mux.Handle("PUT /v1/rules/{id}", s.instrument("/v1/rules/{id}", s.requireUser(s.handleUpdateRule)))
	mux.Handle("DELETE /v1/rules/{id}", s.instrument("/v1/rules/{id}", s.requireUser(s.handleDeleteRule)))

	s.health.RegisterHealthEndpoints(mux)
	return mux
}

// Start serves until the listener fails or Shutdown is called. It blocks;
// call in a goroutine for non-blocking operation.
func (s *Server) Start() error {
	s.health.SetReady(true)
	s.logger.Info("starting api server", slog.String("addr", s.addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.logger.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

type userHandler func(w http.ResponseWriter, r *http.Request, userKey string)

func (s *Server) requireUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userKey := r.Header.Get(UserKeyHeader)
		if userKey == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("missing %s header", UserKeyHeader))
			return
		}
		next(w, r, userKey)
	})
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, route, rec.status, time.Since(start))
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request, userKey string) {
	var email rules.Email
	if err := decodeJSON(r, &email); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if email.MessageID == "" {
		writeError(w, http.StatusBadRequest, errors.New("messageId must not be empty"))
		return
	}

	report, err := s.processor.ProcessIncomingEmail(r.Context(), userKey, email)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request, userKey string) {
	list, err := s.ruleSvc.List(r.Context(), userKey)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	if list == nil {
		list = []rules.Rule{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request, userKey string) {
	var draft rules.Draft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rule, err := s.ruleSvc.Create(r.Context(), userKey, draft)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request, userKey string) {
	var rule rules.Rule
	if err := decodeJSON(r, &rule); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// The path is authoritative for the rule identity
	rule.ID = r.PathValue("id")

	updated, err := s.ruleSvc.Update(r.Context(), userKey, rule)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request, userKey string) {
	if err := s.ruleSvc.Delete(r.Context(), userKey, r.PathValue("id")); err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	// ReauthenticationRequired signals that a refresh cannot recover the
	// credential and the user must reconnect their account.
	ReauthenticationRequired bool `json:"reauthenticationRequired,omitempty"`
}

func (s *Server) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rules.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, rules.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, auth.ErrReauthenticationRequired):
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:                    err.Error(),
			ReauthenticationRequired: true,
		})
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err)
	default:
		s.logger.Error("request failed",
			logging.Operation("http_request"),
			slog.String("path", r.URL.Path),
			logging.Err(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
