package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/api/dto"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/auth"
	"github.com/hugh/zenshin-chart/internal/locale"
	"github.com/hugh/zenshin-chart/internal/workspace"
)

const localeCookieMaxAge = 365 * 24 * time.Hour

// LocaleStore persists a user's language preference.
type LocaleStore interface {
	UpdateLocale(ctx context.Context, userID uuid.UUID, locale string) error
}

type UserHandler struct {
	locales    LocaleStore
	workspaces *workspace.Service
	resolver   *locale.Resolver
	cookies    CookieOptions
	logger     *slog.Logger
}

func NewUserHandler(locales LocaleStore, workspaces *workspace.Service, resolver *locale.Resolver, cookies CookieOptions, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		locales:    locales,
		workspaces: workspaces,
		resolver:   resolver,
		cookies:    cookies,
		logger:     logger,
	}
}

// UpdateLocale handles PATCH /api/user/locale. The cookie is the source of
// truth for the browser; persisting the preference is best effort and a
// failure is only logged.
func (h *UserHandler) UpdateLocale(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateLocaleRequest
	if !readJSON(w, r, &req) {
		return
	}
	lang := locale.Normalize(req.Locale)
	if !h.resolver.IsSupported(lang) {
		writeValidation(w, map[string]string{"locale": "Unsupported locale"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     locale.CookieName,
		Value:    lang,
		Path:     "/",
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(localeCookieMaxAge.Seconds()),
	})

	userID := middleware.GetUserID(r.Context())
	if err := h.locales.UpdateLocale(r.Context(), userID, lang); err != nil {
		h.logger.Warn("failed to persist locale preference", "user_id", userID, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetPreferredWorkspace handles PUT /api/user/preferred-workspace.
func (h *UserHandler) SetPreferredWorkspace(w http.ResponseWriter, r *http.Request) {
	var req dto.PreferredWorkspaceRequest
	if !readJSON(w, r, &req) {
		return
	}
	workspaceID, err := uuid.Parse(req.WorkspaceID)
	if err != nil {
		writeValidation(w, map[string]string{"workspace_id": "Workspace ID is invalid"})
		return
	}

	if err := h.workspaces.SetPreferredWorkspace(r.Context(), middleware.GetUserID(r.Context()), workspaceID); err != nil {
		switch {
		case errors.Is(err, workspace.ErrNotMember):
			writeError(w, http.StatusNotFound, "Workspace not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to update preferred workspace")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

var _ LocaleStore = (*auth.Service)(nil)
