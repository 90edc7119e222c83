package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"cusext/activity"
	"cusext/auth"
	"cusext/dberr"
	"cusext/disagreement"
)

type recordService interface {
	List(ctx context.Context, activityID string, scope disagreement.Scope) ([]disagreement.Summary, error)
	Get(ctx context.Context, recordNumber string, scope disagreement.Scope) (disagreement.Detail, error)
	Create(ctx context.Context, form disagreement.Form, actorID string) (disagreement.Detail, error)
	Update(ctx context.Context, form disagreement.Form, actorID string) (disagreement.Detail, error)
	Delete(ctx context.Context, recordNumber string) error
}

type activityService interface {
	Create(ctx context.Context, a activity.Activity, actorID string) (activity.Activity, error)
	Get(ctx context.Context, id string) (activity.Activity, error)
	Delete(ctx context.Context, id string) (activity.DeleteResult, error)
}

type authService interface {
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(token string) (string, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the HTTP surface onto the service layer.
type Server struct {
	records    recordService
	activities activityService
	auth       authService
	db         pinger
	log        *slog.Logger
}

type ctxKey int

const (
	ctxKeyOperator ctxKey = iota
	ctxKeyRequestID
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/operators/login", s.handleLogin)

		r.Get("/activities/{activityID}", s.handleGetActivity)
		r.Get("/activities/{activityID}/disagreements", s.handleListRecords)
		r.Get("/disagreements/{recordNumber}", s.handleGetRecord)

		r.Group(func(r chi.Router) {
			r.Use(s.requireOperator)
			r.Post("/activities", s.handleCreateActivity)
			r.Delete("/activities/{activityID}", s.handleDeleteActivity)
			r.Post("/disagreements", s.handleCreateRecord)
			r.Put("/disagreements/{recordNumber}", s.handleUpdateRecord)
			r.Delete("/disagreements/{recordNumber}", s.handleDeleteRecord)
		})
	})
	return r
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger().InfoContext(r.Context(), "http request",
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		operatorID, err := s.auth.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyOperator, operatorID)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger().WarnContext(ctx, "health check failed", slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeParam(w, r)
	if !ok {
		return
	}
	items, err := s.records.List(r.Context(), chi.URLParam(r, "activityID"), scope)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeParam(w, r)
	if !ok {
		return
	}
	d, err := s.records.Get(r.Context(), chi.URLParam(r, "recordNumber"), scope)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeParam(w, r)
	if !ok {
		return
	}
	var form disagreement.Form
	if !decodeBody(w, r, &form) {
		return
	}
	form.Scope = scope
	d, err := s.records.Create(r.Context(), form, operatorFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeParam(w, r)
	if !ok {
		return
	}
	var form disagreement.Form
	if !decodeBody(w, r, &form) {
		return
	}
	form.RecordNumber = chi.URLParam(r, "recordNumber")
	form.Scope = scope
	d, err := s.records.Update(r.Context(), form, operatorFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.records.Delete(r.Context(), chi.URLParam(r, "recordNumber")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createActivityRequest struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	HouseholdID string `json:"household_id"`
	Scope       string `json:"scope"`
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var req createActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	scope, ok := disagreement.ParseScope(req.Scope)
	if !ok {
		writeError(w, http.StatusBadRequest, "scope must be branch or hq")
		return
	}
	a, err := s.activities.Create(r.Context(), activity.Activity{
		ID:          req.ID,
		Subject:     req.Subject,
		HouseholdID: req.HouseholdID,
		Scope:       scope,
	}, operatorFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	a, err := s.activities.Get(r.Context(), chi.URLParam(r, "activityID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	res, err := s.activities.Delete(r.Context(), chi.URLParam(r, "activityID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// fail maps err onto a status. Internal causes are logged, never echoed.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger().ErrorContext(r.Context(), "request failed",
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.String("code", string(dberr.CodeOf(err))),
			slog.Any("error", err),
		)
		writeJSON(w, status, errorResponse{Error: http.StatusText(status), Code: string(dberr.CodeOf(err))})
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, disagreement.ErrInvalidForm), errors.Is(err, activity.ErrInvalidActivity):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, disagreement.ErrNotFound),
		errors.Is(err, disagreement.ErrUnknownActivity),
		errors.Is(err, disagreement.ErrOutOfScope),
		errors.Is(err, activity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, activity.ErrDuplicate):
		return http.StatusConflict
	case dberr.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func scopeParam(w http.ResponseWriter, r *http.Request) (disagreement.Scope, bool) {
	scope, ok := disagreement.ParseScope(r.URL.Query().Get("scope"))
	if !ok {
		writeError(w, http.StatusBadRequest, "scope must be branch or hq")
	}
	return scope, ok
}

func operatorFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyOperator).(string)
	return id
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

func (s *Server) logger() *slog.Logger {
	if s.log == nil {
		return slog.Default()
	}
	return s.log
}
