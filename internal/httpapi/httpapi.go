package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tokokasir/internal/domain"
	"tokokasir/internal/register"
	"tokokasir/internal/search"
	"tokokasir/internal/service"
	"tokokasir/internal/store"
)

const maxBodyBytes = 1 << 20

type API struct {
	service       *service.Service
	registry      *register.Registry
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	validate      *validator.Validate
	logger        zerolog.Logger
}

func New(svc *service.Service, registry *register.Registry, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		service:       svc,
		registry:      registry,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        log.With().Str("component", "httpapi").Logger(),
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("POST /api/v1/auth/login", a.handleLogin)

	readers := []string{domain.RoleCashier, domain.RoleAdmin, domain.RoleManager, domain.RoleWarehouse}
	sellers := []string{domain.RoleCashier, domain.RoleAdmin}

	mux.HandleFunc("GET /api/v1/products", a.requireAuth(a.handleSearchProducts, readers...))
	mux.HandleFunc("GET /api/v1/products/{ref}", a.requireAuth(a.handleGetProduct, readers...))
	mux.HandleFunc("GET /api/v1/members", a.requireAuth(a.handleListMembers, readers...))
	mux.HandleFunc("GET /api/v1/members/{id}", a.requireAuth(a.handleGetMember, readers...))
	mux.HandleFunc("GET /api/v1/attendants", a.requireAuth(a.handleListAttendants, readers...))
	mux.HandleFunc("POST /api/v1/sales", a.requireAuth(a.handleSubmitSale, sellers...))
	mux.HandleFunc("GET /api/v1/sales/{id}", a.requireAuth(a.handleGetSale, domain.RoleCashier, domain.RoleAdmin, domain.RoleManager))
	mux.HandleFunc("GET /api/v1/suspended-sales", a.requireAuth(a.handleListSuspendedSales, sellers...))
	mux.HandleFunc("POST /api/v1/suspended-sales", a.requireAuth(a.handleCreateSuspendedSale, sellers...))
	mux.HandleFunc("DELETE /api/v1/suspended-sales/{id}", a.requireAuth(a.handleDeleteSuspendedSale, sellers...))
	mux.HandleFunc("GET /api/v1/receivables", a.requireAuth(a.handleSearchReceivables, domain.RoleCashier, domain.RoleAdmin, domain.RoleManager))
	mux.HandleFunc("POST /api/v1/receivables/{id}/payments", a.requireAuth(a.handlePayReceivable, sellers...))
	mux.HandleFunc("GET /api/v1/receivables/{id}/payments", a.requireAuth(a.handleListReceivablePayments, domain.RoleCashier, domain.RoleAdmin, domain.RoleManager))
	mux.HandleFunc("GET /api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, domain.RoleAdmin, domain.RoleManager))
	mux.HandleFunc("GET /api/v1/users", a.requireAuth(a.handleListUsers, domain.RoleAdmin))
	mux.HandleFunc("POST /api/v1/users", a.requireAuth(a.handleCreateUser, domain.RoleAdmin))

	a.registerTerminalRoutes(mux, sellers)

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			a.writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if !a.decodeValid(w, r, &req) {
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	role := strings.TrimSpace(r.URL.Query().Get("role"))
	writeJSON(w, http.StatusOK, map[string]any{"users": a.auth.ListUsers(r.Context(), role)})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}

	user, err := a.auth.CreateUser(r.Context(), req)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)

	logs, err := a.service.ListAuditLogs(r.Context(), date, limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(startedAt)).
			Msg("request")
	})
}

// decodeValid decodes the JSON body into dest and runs struct validation.
// It writes a 400 and returns false on failure.
func (a *API) decodeValid(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return false
	}
	if err := a.validate.Struct(dest); err != nil {
		a.writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return errors.New("invalid request: " + strings.Join(parts, ", "))
}

// statusFor maps domain and terminal errors onto HTTP status codes. Store
// sentinels win over the terminal taxonomy so a rejected submission keeps
// the status of its cause.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTransaction):
		return http.StatusBadRequest
	case errors.Is(err, register.ErrBusy),
		errors.Is(err, register.ErrTerminalInUse),
		errors.Is(err, register.ErrStaleConfirmation),
		errors.Is(err, register.ErrConfirmationRequired),
		errors.Is(err, search.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, register.ErrLineNotFound),
		errors.Is(err, register.ErrReceivableNotFound),
		errors.Is(err, register.ErrSuspendedSaleNotFound):
		return http.StatusNotFound
	case errors.Is(err, register.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, register.ErrSubmission):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	a.writeError(w, statusFor(err), err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies never carry the underlying error text.
	msg := err.Error()
	if status >= 500 {
		a.logger.Error().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
		if status == http.StatusBadGateway {
			msg = "submission failed"
		}
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
