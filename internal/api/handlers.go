// Package api exposes HTTP handlers for work sessions and submissions.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/rain-droid/orgIO/internal/auth"
	"github.com/rain-droid/orgIO/internal/domain"
)

const maxBodyBytes = 2 << 20

// Option customizes a Handler.
type Option func(*Handler)

// WithLogger overrides the logger used for unexpected errors.
func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithHealthCheck makes /healthz report 503 when check fails.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(h *Handler) {
		h.healthCheck = check
	}
}

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	sessions    *domain.SessionService
	submissions *domain.SubmissionService
	logger      *log.Logger
	healthCheck func(context.Context) error
}

// NewHandler builds a Handler.
func NewHandler(sessions *domain.SessionService, submissions *domain.SubmissionService, opts ...Option) *Handler {
	h := &Handler{
		sessions:    sessions,
		submissions: submissions,
		logger:      log.New(log.Writer(), "[api] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sessions", h.startSession)
	mux.HandleFunc("POST /v1/sessions/analyze", h.analyzeSession)
	mux.HandleFunc("POST /v1/sessions/{id}/end", h.endSession)
	mux.HandleFunc("POST /v1/submissions", h.createSubmission)
	mux.HandleFunc("GET /v1/submissions", h.listSubmissions)
	mux.HandleFunc("GET /v1/submissions/{id}", h.getSubmission)
	mux.HandleFunc("PATCH /v1/submissions/{id}", h.reviewSubmission)
	mux.HandleFunc("GET /healthz", h.healthz)
}

// healthz reports a simple OK status for container health checks.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.healthCheck != nil {
		if err := h.healthCheck(r.Context()); err != nil {
			h.logger.Printf("health check failed: %v", err)
			writeError(w, http.StatusServiceUnavailable, "unavailable", "dependency check failed")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// caller extracts the authenticated identity or writes a 401.
func caller(w http.ResponseWriter, r *http.Request) (domain.Caller, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok || claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return domain.Caller{}, false
	}
	return domain.Caller{
		UserID: claims.UserID,
		OrgID:  claims.OrgID,
		Email:  claims.Email,
		Name:   claims.Name,
	}, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

// writeDomainError maps service errors onto status codes. Anything unknown is
// logged and reported without internals.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation_failed", validation.Error())
	case errors.Is(err, domain.ErrBriefNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound),
		errors.Is(err, domain.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrSessionNotActive):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		h.logger.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "server_error", "an unexpected error occurred")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
