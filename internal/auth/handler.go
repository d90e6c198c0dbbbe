package auth

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/ledgerlink/internal/platform/httpx"
	"github.com/noah-isme/ledgerlink/internal/shared"
)

// Handler wires HTTP endpoints for the OAuth connect flow.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
	}
}

// MountRoutes registers the connect flow routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/connect", h.handleConnect)
	r.Get("/callback", h.handleCallback)
	r.Post("/disconnect", h.handleDisconnect)
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during connect")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	nonce, err := h.service.NewStateNonce()
	if err != nil {
		h.logger.Error("generate state nonce", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.Set(stateNonceKey, nonce)
	http.Redirect(w, r, h.service.ConsentURL(nonce), http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		h.logger.Warn("authorization denied", slog.String("error", errCode),
			slog.String("description", query.Get("error_description")))
		httpx.Problem(w, http.StatusForbidden, "Authorization Failed", errCode)
		return
	}

	expected := sess.Get(stateNonceKey)
	sess.Delete(stateNonceKey)
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(query.Get("state"))) != 1 {
		httpx.RespondError(w, fmt.Errorf("%w: state mismatch", httpx.ErrValidation))
		return
	}

	code := query.Get("code")
	if code == "" {
		httpx.RespondError(w, fmt.Errorf("%w: missing authorization code", httpx.ErrValidation))
		return
	}

	tokenSet, err := h.service.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: token exchange", httpx.ErrUpstream))
		return
	}

	state, err := h.service.BuildAuthState(r.Context(), tokenSet)
	if err != nil {
		h.logger.Error("build auth state", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: tenant resolution", httpx.ErrUpstream))
		return
	}

	if err := state.SaveTo(sess); err != nil {
		h.logger.Error("persist auth state", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	active, _ := state.ActiveTenant()
	h.logger.Info("connected",
		slog.String("tenant_id", active.TenantID),
		slog.String("tenant_name", active.TenantName),
		slog.Int("tenants", len(state.Tenants)),
		slog.Time("token_expiry", state.TokenSet.ExpiresAt))

	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Connected to Xero"})
	http.Redirect(w, r, "/organisation", http.StatusSeeOther)
}

func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RequireState guards routes that need a connected session. It rejects
// token-less sessions up front instead of issuing API calls with an empty
// bearer token, and places the typed state in the request context.
func RequireState(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			state, err := StateFromSession(sess)
			if err != nil {
				if logger != nil {
					logger.Info("unauthenticated request", slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, fmt.Errorf("%w: visit /connect first", httpx.ErrUnauthenticated))
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithState(r.Context(), state)))
		})
	}
}
