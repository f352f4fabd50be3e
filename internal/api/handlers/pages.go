package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/api/validation"
	"github.com/hugh/zenshin-chart/internal/charts"
	"github.com/hugh/zenshin-chart/internal/dashboard"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/locale"
	"github.com/hugh/zenshin-chart/internal/web"
	"github.com/hugh/zenshin-chart/internal/workspace"
)

// PageHandler renders the server-side HTML pages.
type PageHandler struct {
	templates    web.Templates
	workspaces   *workspace.Service
	charts       *charts.Service
	dashboard    *dashboard.Service
	appName      string
	oauthEnabled bool
	logger       *slog.Logger
	now          func() time.Time
}

type PageConfig struct {
	Templates    web.Templates
	Workspaces   *workspace.Service
	Charts       *charts.Service
	Dashboard    *dashboard.Service
	AppName      string
	OAuthEnabled bool
	Logger       *slog.Logger
}

func NewPageHandler(cfg PageConfig) *PageHandler {
	return &PageHandler{
		templates:    cfg.Templates,
		workspaces:   cfg.Workspaces,
		charts:       cfg.Charts,
		dashboard:    cfg.Dashboard,
		appName:      cfg.AppName,
		oauthEnabled: cfg.OAuthEnabled,
		logger:       cfg.Logger,
		now:          time.Now,
	}
}

// pageData is embedded by every page view.
type pageData struct {
	AppName   string
	Locale    string
	CSRFToken string
	Msg       locale.Messages
}

func (h *PageHandler) base(r *http.Request) pageData {
	loc := middleware.GetLocale(r.Context())
	return pageData{
		AppName:   h.appName,
		Locale:    loc,
		CSRFToken: middleware.GetCSRFToken(r.Context()),
		Msg:       locale.For(loc),
	}
}

func (h *PageHandler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, name, data); err != nil {
		h.logger.Error("failed to render page", "template", name, "error", err)
	}
}

type loginPage struct {
	pageData
	Redirect     string
	OAuthEnabled bool
	Error        string
}

// Login renders the sign-in page. Only same-origin redirect targets survive.
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "login.html", loginPage{
		pageData:     h.base(r),
		Redirect:     validation.SafeRedirect(r.URL.Query().Get("redirect"), "/workspaces"),
		OAuthEnabled: h.oauthEnabled,
		Error:        validation.TruncateString(r.URL.Query().Get("error"), 200),
	})
}

type workspaceEntry struct {
	workspace.WorkspaceWithRole
	RoleName  string
	Preferred bool
}

type workspacesPage struct {
	pageData
	Workspaces []workspaceEntry
}

// Workspaces applies the landing policy: redirect into the only workspace
// (creating one when needed) or show the picker.
func (h *PageHandler) Workspaces(w http.ResponseWriter, r *http.Request) {
	landing, err := h.workspaces.ResolveLanding(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.logger.Error("failed to resolve landing", "error", err)
		http.Error(w, "Failed to load workspaces", http.StatusInternalServerError)
		return
	}

	if landing.Kind != workspace.LandingPicker {
		http.Redirect(w, r, workspacePath(landing.WorkspaceID), http.StatusFound)
		return
	}

	data := workspacesPage{pageData: h.base(r)}
	for _, ws := range landing.Workspaces {
		data.Workspaces = append(data.Workspaces, workspaceEntry{
			WorkspaceWithRole: ws,
			RoleName:          data.Msg.RoleName(string(ws.Role)),
			Preferred:         ws.ID == landing.WorkspaceID,
		})
	}
	h.render(w, http.StatusOK, "workspaces.html", data)
}

type workspacePage struct {
	pageData
	Workspace *models.Workspace
	RoleName  string
	Charts    []models.Chart
	Summary   *dashboard.Summary
}

// Workspace renders /w/{workspaceID}. Membership is checked by middleware.
func (h *PageHandler) Workspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := middleware.GetWorkspaceID(ctx)

	ws, err := h.workspaces.GetWorkspace(ctx, workspaceID)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	data := workspacePage{
		pageData:  h.base(r),
		Workspace: ws,
		Charts:    h.charts.ListCharts(ctx, workspaceID),
	}
	data.RoleName = data.Msg.RoleName(string(middleware.GetRole(ctx)))

	// The page still renders without the summary.
	if sum, err := h.dashboard.Summary(ctx, workspaceID, dashboard.PeriodThisMonth, h.now()); err != nil {
		h.logger.Warn("failed to load dashboard summary", "workspace_id", workspaceID, "error", err)
	} else {
		data.Summary = sum
	}

	// Visiting a workspace makes it the preferred one.
	if err := h.workspaces.SetPreferredWorkspace(ctx, middleware.GetUserID(ctx), workspaceID); err != nil {
		h.logger.Warn("failed to store preferred workspace", "workspace_id", workspaceID, "error", err)
	}

	h.render(w, http.StatusOK, "workspace.html", data)
}

type invitePage struct {
	pageData
	Invitation *workspace.InvitationView
	Body       string
	SignedIn   bool
	LoginURL   string
	Error      string
}

func (h *PageHandler) invitePage(r *http.Request, inv *workspace.InvitationView) invitePage {
	data := invitePage{
		pageData:   h.base(r),
		Invitation: inv,
		SignedIn:   middleware.GetUserID(r.Context()) != uuid.Nil,
	}
	if inv != nil {
		data.Body = fmt.Sprintf(data.Msg.InviteBody, inv.WorkspaceName, data.Msg.RoleName(string(inv.Role)))
		data.LoginURL = "/login?redirect=" + url.QueryEscape("/invite/"+inv.Code)
	}
	return data
}

// Invite shows a public invitation page. Sessions are optional here.
func (h *PageHandler) Invite(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.workspaces.GetInvitationByCode(r.Context(), chi.URLParam(r, "code"))
	if !ok {
		h.render(w, http.StatusNotFound, "invite.html", h.invitePage(r, nil))
		return
	}
	h.render(w, http.StatusOK, "invite.html", h.invitePage(r, inv))
}

// Join accepts the invitation for the signed-in user and lands them in the
// workspace.
func (h *PageHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	result := h.workspaces.JoinWorkspaceByInvite(r.Context(), middleware.GetUserID(r.Context()), code)
	if result.Success {
		http.Redirect(w, r, workspacePath(result.WorkspaceID), http.StatusSeeOther)
		return
	}

	if result.Error == workspace.JoinMessageInvalid {
		h.render(w, http.StatusNotFound, "invite.html", h.invitePage(r, nil))
		return
	}

	inv, _ := h.workspaces.GetInvitationByCode(r.Context(), code)
	data := h.invitePage(r, inv)
	data.Error = result.Error
	h.render(w, http.StatusInternalServerError, "invite.html", data)
}

// JoinRedirect sends GET /invite/{code}/join, typically reached after a
// login round trip, back to the invitation page.
func (h *PageHandler) JoinRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/invite/"+url.PathEscape(chi.URLParam(r, "code")), http.StatusFound)
}

func workspacePath(id uuid.UUID) string {
	return "/w/" + id.String()
}
