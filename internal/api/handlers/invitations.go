package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/zenshin-chart/internal/api/dto"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/auth"
	"github.com/hugh/zenshin-chart/internal/locale"
	"github.com/hugh/zenshin-chart/internal/mailer"
	"github.com/hugh/zenshin-chart/internal/permissions"
	"github.com/hugh/zenshin-chart/internal/workspace"
)

// InvitationSender delivers invitation email.
type InvitationSender interface {
	SendInvitationEmail(ctx context.Context, inv mailer.InvitationEmail) error
}

type InvitationHandler struct {
	workspaces  *workspace.Service
	authService *auth.Service
	mail        InvitationSender
	resolver    *locale.Resolver
	baseURL     string
	logger      *slog.Logger
}

func NewInvitationHandler(
	workspaces *workspace.Service,
	authService *auth.Service,
	mail InvitationSender,
	resolver *locale.Resolver,
	baseURL string,
	logger *slog.Logger,
) *InvitationHandler {
	return &InvitationHandler{
		workspaces:  workspaces,
		authService: authService,
		mail:        mail,
		resolver:    resolver,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// List shows active invitations to anyone allowed to create them.
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetRole(r.Context())
	if !permissions.CanGenerateInviteLink(role) && !permissions.CanInviteMembers(role) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	invs := h.workspaces.ListInvitations(r.Context(), middleware.GetWorkspaceID(r.Context()))
	out := make([]dto.InvitationResponse, 0, len(invs))
	for i := range invs {
		out = append(out, dto.NewInvitationResponse(&invs[i], h.baseURL))
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: out, Total: len(out)})
}

// CreateLink generates a shareable invitation link.
func (h *InvitationHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanGenerateInviteLink) {
		return
	}

	var req dto.CreateInvitationRequest
	if !readJSON(w, r, &req) {
		return
	}
	role, err := permissions.ParseRole(req.Role)
	if err != nil {
		writeValidation(w, map[string]string{"role": "Role is invalid"})
		return
	}

	inv, err := h.workspaces.CreateInvitation(r.Context(), workspace.CreateInvitationInput{
		WorkspaceID: middleware.GetWorkspaceID(r.Context()),
		InvitedBy:   middleware.GetUserID(r.Context()),
		InviterRole: middleware.GetRole(r.Context()),
		Role:        role,
	})
	if err != nil {
		h.writeInvitationError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewInvitationResponse(inv, h.baseURL))
}

// SendEmail creates an invitation addressed to an email and mails the link.
// A delivery failure is reported as 502 and the invitation is withdrawn.
func (h *InvitationHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanInviteMembers) {
		return
	}

	var req dto.EmailInvitationRequest
	if !readJSON(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}
	role, err := permissions.ParseRole(req.Role)
	if err != nil {
		writeValidation(w, map[string]string{"role": "Role is invalid"})
		return
	}

	ctx := r.Context()
	workspaceID := middleware.GetWorkspaceID(ctx)
	inviterID := middleware.GetUserID(ctx)

	ws, err := h.workspaces.GetWorkspace(ctx, workspaceID)
	if err != nil {
		h.writeInvitationError(w, err)
		return
	}
	inviter, err := h.authService.GetUserByID(ctx, inviterID)
	if err != nil {
		h.logger.Error("failed to load inviter", "user_id", inviterID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create invitation")
		return
	}

	inv, err := h.workspaces.CreateInvitation(ctx, workspace.CreateInvitationInput{
		WorkspaceID: workspaceID,
		InvitedBy:   inviterID,
		InviterRole: middleware.GetRole(ctx),
		Role:        role,
		Email:       req.Email,
	})
	if err != nil {
		h.writeInvitationError(w, err)
		return
	}

	lang := req.Locale
	if !h.resolver.IsSupported(lang) {
		lang = h.resolver.FromRequest(r, inviter.Locale)
	}
	inviterName := inviter.Name
	if strings.TrimSpace(inviterName) == "" {
		inviterName = inviter.Email
	}

	err = h.mail.SendInvitationEmail(ctx, mailer.InvitationEmail{
		To:            inv.Email,
		WorkspaceName: ws.Name,
		InviterName:   inviterName,
		Role:          string(inv.Role),
		JoinURL:       dto.InviteURL(h.baseURL, inv.Code),
		Locale:        lang,
	})
	if err != nil {
		if revokeErr := h.workspaces.RevokeInvitation(ctx, workspaceID, inv.ID); revokeErr != nil {
			h.logger.Error("failed to withdraw undelivered invitation", "invitation_id", inv.ID, "error", revokeErr)
		}
		msg := "Failed to send invitation email: " + err.Error()
		if errors.Is(err, mailer.ErrNotConfigured) {
			msg = "Email delivery is not configured"
		}
		writeError(w, http.StatusBadGateway, msg)
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewInvitationResponse(inv, h.baseURL))
}

func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetRole(r.Context())
	if !permissions.CanGenerateInviteLink(role) && !permissions.CanInviteMembers(role) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	invitationID, ok := uuidParam(w, r, "invitationID", "Invitation")
	if !ok {
		return
	}

	if err := h.workspaces.RevokeInvitation(r.Context(), middleware.GetWorkspaceID(r.Context()), invitationID); err != nil {
		h.writeInvitationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Show is the public lookup behind the invite page. Expired and unknown
// codes are indistinguishable.
func (h *InvitationHandler) Show(w http.ResponseWriter, r *http.Request) {
	view, ok := h.workspaces.GetInvitationByCode(r.Context(), chi.URLParam(r, "code"))
	if !ok {
		writeError(w, http.StatusNotFound, workspace.JoinMessageInvalid)
		return
	}
	writeJSON(w, http.StatusOK, dto.PublicInvitationResponse{
		Code:          view.Code,
		WorkspaceName: view.WorkspaceName,
		Role:          string(view.Role),
		ExpiresAt:     view.ExpiresAt,
	})
}

// Accept joins the caller to the invitation's workspace.
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	result := h.workspaces.JoinWorkspaceByInvite(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "code"))
	switch {
	case result.Success:
		writeJSON(w, http.StatusOK, result)
	case result.Error == workspace.JoinMessageInvalid:
		writeJSON(w, http.StatusNotFound, result)
	default:
		writeJSON(w, http.StatusInternalServerError, result)
	}
}

func (h *InvitationHandler) writeInvitationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workspace.ErrRoleNotInvitable):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, permissions.ErrInvalidRole):
		writeValidation(w, map[string]string{"role": "Role is invalid"})
	case errors.Is(err, workspace.ErrInvitationNotFound):
		writeError(w, http.StatusNotFound, "Invitation not found")
	case errors.Is(err, workspace.ErrWorkspaceNotFound):
		writeError(w, http.StatusNotFound, "Workspace not found")
	default:
		h.logger.Error("invitation operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Invitation operation failed")
	}
}
