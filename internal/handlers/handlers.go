// Package handlers exposes the JSON HTTP API. Handlers translate requests
// into service calls and map service errors onto status codes; every
// permission rule is enforced again inside the services, so nothing here
// is the last line of defense.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"salon-ledger/internal/auth"
	"salon-ledger/internal/inventory"
	"salon-ledger/internal/ledger"
	"salon-ledger/internal/metrics"
	"salon-ledger/internal/report"
	"salon-ledger/internal/sales"
	"salon-ledger/internal/storage"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// identityContextKey is the context key for the resolved identity.
	identityContextKey contextKey = "identity"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "salon_session"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	log          *slog.Logger
	db           *storage.DB
	resolver     *auth.Resolver
	sessions     *auth.SessionManager
	ledger       *ledger.Service
	inventory    *inventory.Service
	sales        *sales.Service
	exporter     *report.Exporter
	sessionTTL   time.Duration
	secureCookie bool
}

// New creates a Handlers instance.
func New(
	log *slog.Logger,
	db *storage.DB,
	resolver *auth.Resolver,
	sessions *auth.SessionManager,
	ledgerSvc *ledger.Service,
	inventorySvc *inventory.Service,
	salesSvc *sales.Service,
	exporter *report.Exporter,
	sessionTTL time.Duration,
	secureCookie bool,
) *Handlers {
	return &Handlers{
		log:          log,
		db:           db,
		resolver:     resolver,
		sessions:     sessions,
		ledger:       ledgerSvc,
		inventory:    inventorySvc,
		sales:        salesSvc,
		exporter:     exporter,
		sessionTTL:   sessionTTL,
		secureCookie: secureCookie,
	}
}

// identityFrom retrieves the authenticated identity from request context.
func identityFrom(r *http.Request) auth.Identity {
	if id, ok := r.Context().Value(identityContextKey).(auth.Identity); ok {
		return id
	}
	return auth.Identity{}
}

// RequireAuth resolves the session cookie into an identity and rejects the
// request if none is valid.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			h.writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}

		id, err := h.sessions.Current(cookie.Value)
		if err != nil {
			if errors.Is(err, auth.ErrNoSession) {
				metrics.SessionsExpired.Inc()
				h.clearSessionCookie(w)
				h.writeError(w, http.StatusUnauthorized, "session expired, please log in again")
				return
			}
			h.serverError(w, "resolve session", err)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireOwner additionally rejects non-owner identities.
func (h *Handlers) RequireOwner(next http.Handler) http.Handler {
	return h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identityFrom(r).IsOwner() {
			h.writeError(w, http.StatusForbidden, "owner access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

type loginRequest struct {
	Key string `json:"key"`
}

type identityView struct {
	Role       string  `json:"role"`
	Name       string  `json:"name"`
	Position   string  `json:"position"`
	EmployeeID int64   `json:"employee_id,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
}

func viewOf(id auth.Identity) identityView {
	v := identityView{Role: string(id.Role), Name: id.Name, Position: id.Position}
	if id.Employee != nil {
		v.EmployeeID = id.Employee.ID
		v.Percentage = id.Employee.Percentage
	}
	return v
}

// Login resolves the presented key, opens a session, and sets the cookie.
// Failures are reported generically so the key space stays opaque.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.resolver.Resolve(req.Key)
	if err != nil {
		if errors.Is(err, auth.ErrNoMatch) {
			metrics.Logins.WithLabelValues("invalid_key").Inc()
			h.writeError(w, http.StatusUnauthorized, "invalid key")
			return
		}
		metrics.Logins.WithLabelValues("error").Inc()
		h.serverError(w, "resolve login key", err)
		return
	}

	s, err := h.sessions.Open(id)
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		h.serverError(w, "open session", err)
		return
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	h.setSessionCookie(w, s.Token)
	h.writeJSON(w, http.StatusOK, map[string]any{"identity": viewOf(id)})
}

// LoginPreview is the non-committing, side-effect-free lookup behind the
// login form's live hint. It shares the resolver with Login, so its answer
// always matches what a submit would do.
func (h *Handlers) LoginPreview(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolver.Resolve(r.URL.Query().Get("key"))
	if err != nil {
		if errors.Is(err, auth.ErrNoMatch) {
			h.writeJSON(w, http.StatusOK, map[string]any{"match": false})
			return
		}
		h.serverError(w, "resolve preview key", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"match": true, "identity": viewOf(id)})
}

// Logout closes the session and clears the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Close(cookie.Value); err != nil {
			h.log.Warn("close session", "error", err)
		}
	}
	h.clearSessionCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

// SessionStatus reports the liveness check result for the caller's
// session: minutes left and the one-shot low-time warning.
func (h *Handlers) SessionStatus(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		h.writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	st, err := h.sessions.Check(cookie.Value)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			h.clearSessionCookie(w)
			h.writeError(w, http.StatusUnauthorized, "session expired, please log in again")
			return
		}
		h.serverError(w, "check session", err)
		return
	}

	id, err := h.sessions.Current(cookie.Value)
	if err != nil {
		h.clearSessionCookie(w)
		h.writeError(w, http.StatusUnauthorized, "session expired, please log in again")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"identity": viewOf(id), "session": st})
}

// ExtendSession re-issues the caller's session with a fresh expiry.
func (h *Handlers) ExtendSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		h.writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	if err := h.sessions.Extend(cookie.Value); err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			h.clearSessionCookie(w)
			h.writeError(w, http.StatusUnauthorized, "session expired, please log in again")
			return
		}
		h.serverError(w, "extend session", err)
		return
	}

	// Refresh the cookie lifetime alongside the server-side record.
	h.setSessionCookie(w, cookie.Value)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"extended":     true,
		"minutes_left": h.sessions.TimeRemaining(cookie.Value),
	})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]any{"error": msg})
}

func (h *Handlers) serverError(w http.ResponseWriter, op string, err error) {
	h.log.Error(op, "error", err)
	h.writeError(w, http.StatusInternalServerError, "internal server error")
}

// serviceError maps the shared service error taxonomy onto status codes.
// Unknown errors are storage failures and surface as 500s.
func (h *Handlers) serviceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrDenied),
		errors.Is(err, inventory.ErrDenied),
		errors.Is(err, sales.ErrDenied):
		h.writeError(w, http.StatusForbidden, "permission denied")
	case errors.Is(err, ledger.ErrInvalid),
		errors.Is(err, inventory.ErrInvalid),
		errors.Is(err, sales.ErrInvalid):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not found")
	default:
		h.serverError(w, op, err)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
