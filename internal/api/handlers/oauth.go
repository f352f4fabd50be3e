package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hugh/zenshin-chart/internal/api/validation"
	"github.com/hugh/zenshin-chart/internal/auth"
	"github.com/hugh/zenshin-chart/internal/workspace"
)

const (
	oauthStateCookie    = "oauth_state"
	oauthRedirectCookie = "oauth_redirect"
	oauthFlowTTL        = 10 * time.Minute

	defaultLanding = "/workspaces"
)

// OAuthHandler runs the external sign-in round trip. provider is nil when
// OAuth is not configured.
type OAuthHandler struct {
	provider    auth.IdentityProvider
	authService *auth.Service
	workspaces  *workspace.Service
	cookies     CookieOptions
	logger      *slog.Logger
}

func NewOAuthHandler(
	provider auth.IdentityProvider,
	authService *auth.Service,
	workspaces *workspace.Service,
	cookies CookieOptions,
	logger *slog.Logger,
) *OAuthHandler {
	return &OAuthHandler{
		provider:    provider,
		authService: authService,
		workspaces:  workspaces,
		cookies:     cookies,
		logger:      logger,
	}
}

// Enabled reports whether the login page should offer the provider.
func (h *OAuthHandler) Enabled() bool {
	return h.provider != nil
}

// Login starts the flow: GET /auth/login/oauth?redirect=/w/...
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		http.Redirect(w, r, "/login?error=oauth_disabled", http.StatusFound)
		return
	}

	state, err := randomState()
	if err != nil {
		h.logger.Error("failed to generate oauth state", "error", err)
		http.Redirect(w, r, "/login?error=oauth", http.StatusFound)
		return
	}

	h.cookies.setShortLived(w, oauthStateCookie, state, oauthFlowTTL)
	if target := r.URL.Query().Get("redirect"); validation.IsSafeRedirect(target) {
		h.cookies.setShortLived(w, oauthRedirectCookie, url.QueryEscape(target), oauthFlowTTL)
	}

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the flow: verify state, exchange the code, upsert the
// user, make sure they have a workspace, then start the session.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		http.Redirect(w, r, "/login?error=oauth_disabled", http.StatusFound)
		return
	}

	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		h.logger.Warn("oauth provider returned an error", "error", errParam)
		http.Redirect(w, r, "/login?error=oauth", http.StatusFound)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" ||
		subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(q.Get("state"))) != 1 {
		http.Redirect(w, r, "/login?error=state", http.StatusFound)
		return
	}
	h.cookies.clear(w, oauthStateCookie)

	info, err := h.provider.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		h.logger.Error("oauth exchange failed", "error", err)
		http.Redirect(w, r, "/login?error=oauth", http.StatusFound)
		return
	}

	user, err := h.authService.UpsertExternalUser(r.Context(), *info)
	if err != nil {
		h.logger.Error("failed to upsert external user", "provider", info.Provider, "error", err)
		http.Redirect(w, r, "/login?error=account", http.StatusFound)
		return
	}

	if _, err := h.workspaces.GetOrCreateWorkspace(r.Context(), user.ID); err != nil {
		h.logger.Error("failed to provision workspace", "user_id", user.ID, "error", err)
		http.Redirect(w, r, "/login?error=workspace", http.StatusFound)
		return
	}

	token, err := h.authService.IssueToken(user)
	if err != nil {
		h.logger.Error("failed to issue session token", "user_id", user.ID, "error", err)
		http.Redirect(w, r, "/login?error=oauth", http.StatusFound)
		return
	}
	h.cookies.setSession(w, token)

	target := defaultLanding
	if c, err := r.Cookie(oauthRedirectCookie); err == nil {
		if decoded, err := url.QueryUnescape(c.Value); err == nil {
			target = validation.SafeRedirect(decoded, defaultLanding)
		}
		h.cookies.clear(w, oauthRedirectCookie)
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
