// Package adminapi is the HTTP surface (C15) the subject registry's
// administrative operations are exposed through, bound to
// config.NetworkConfig.AdminAddress and kept on a separate listener from
// the game transport (C13) so an operator never shares a port with
// player traffic.
package adminapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/auth"
	"github.com/mythosmud/mudserver/internal/subject"
	"go.uber.org/zap"
)

// Router builds the admin API's chi.Router, bound to reg.
type Router struct {
	reg   *subject.Registry
	gate  *auth.Gate
	log   *zap.Logger
}

func New(reg *subject.Registry, gate *auth.Gate, log *zap.Logger) *Router {
	return &Router{reg: reg, gate: gate, log: log}
}

// Handler returns the mounted chi router.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/nats/subjects/health", rt.handleHealth)

	r.Group(func(admin chi.Router) {
		admin.Use(rt.requireAdmin)
		admin.Post("/nats/subjects/validate", rt.handleValidate)
		admin.Get("/nats/subjects/patterns", rt.handlePatterns)
		admin.Post("/nats/subjects/patterns", rt.handleRegisterPattern)
	})

	return r
}

// requireAdmin extracts a bearer session token and rejects non-admin
// callers before any handler below it runs.
func (rt *Router) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		user, err := rt.gate.ValidateSessionToken(token, r.RemoteAddr)
		if err != nil {
			writeError(w, apperr.Internalize(err))
			return
		}
		if err := auth.RequireAdmin(user); err != nil {
			writeError(w, apperr.Internalize(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

type healthResponse struct {
	Status         string           `json:"status"`
	PatternCount   int              `json:"pattern_count"`
	Metrics        subject.Snapshot `json:"metrics"`
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		PatternCount: len(rt.reg.AllPatterns()),
		Metrics:      rt.reg.Metrics(),
	})
}

type validateRequest struct {
	Subject string `json:"subject"`
}

type validateResponse struct {
	Subject          string  `json:"subject"`
	IsValid          bool    `json:"is_valid"`
	ValidationTimeMS float64 `json:"validation_time_ms"`
	Details          any     `json:"details"`
}

func (rt *Router) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.InvalidPattern, "malformed request body"))
		return
	}
	start := time.Now()
	valid := rt.reg.Validate(req.Subject)
	elapsed := time.Since(start)
	writeJSON(w, http.StatusOK, validateResponse{
		Subject:          req.Subject,
		IsValid:          valid,
		ValidationTimeMS: float64(elapsed.Microseconds()) / 1000,
	})
}

func (rt *Router) handlePatterns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.reg.AllPatterns())
}

type registerPatternRequest struct {
	Name        string   `json:"name"`
	Template    string   `json:"template"`
	Required    []string `json:"required"`
	Description string   `json:"description"`
}

func (rt *Router) handleRegisterPattern(w http.ResponseWriter, r *http.Request) {
	var req registerPatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.InvalidPattern, "malformed request body"))
		return
	}
	if err := rt.reg.Register(req.Name, req.Template, req.Required, req.Description); err != nil {
		writeError(w, apperr.Internalize(err))
		return
	}
	rt.log.Info("registered subject pattern", zap.String("name", req.Name), zap.String("template", req.Template))
	w.WriteHeader(http.StatusCreated)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.RateLimited:
		return http.StatusTooManyRequests
	case apperr.PatternNotFound:
		return http.StatusNotFound
	case apperr.InvalidPattern, apperr.MissingParameter, apperr.InvalidValue, apperr.SubjectTooLong:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err *apperr.Error) {
	writeJSON(w, statusForKind(err.Kind), errorResponse{
		Kind:      string(err.Kind),
		Message:   err.Message,
		RequestID: err.RequestID,
	})
}
