package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hugh/zenshin-chart/internal/api/dto"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/permissions"
	"github.com/hugh/zenshin-chart/internal/workspace"
)

type MemberHandler struct {
	workspaces *workspace.Service
	logger     *slog.Logger
}

func NewMemberHandler(workspaces *workspace.Service, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{workspaces: workspaces, logger: logger}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members := h.workspaces.ListMembers(r.Context(), middleware.GetWorkspaceID(r.Context()))
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: members, Total: len(members)})
}

func (h *MemberHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanManageMembers) {
		return
	}
	userID, ok := uuidParam(w, r, "userID", "Member")
	if !ok {
		return
	}

	var req dto.UpdateMemberRequest
	if !readJSON(w, r, &req) {
		return
	}
	role, err := permissions.ParseRole(req.Role)
	if err != nil {
		writeValidation(w, map[string]string{"role": "Role is invalid"})
		return
	}

	workspaceID := middleware.GetWorkspaceID(r.Context())
	if err := h.workspaces.UpdateMemberRole(r.Context(), workspaceID, userID, role); err != nil {
		h.writeMemberError(w, err)
		return
	}

	h.logger.Info("member role updated", "workspace_id", workspaceID, "user_id", userID, "role", role)
	w.WriteHeader(http.StatusNoContent)
}

// Remove deletes a membership. Owners may remove anyone; every member may
// remove themselves.
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID", "Member")
	if !ok {
		return
	}
	self := userID == middleware.GetUserID(r.Context())
	if !self && !allow(w, r, permissions.CanRemoveMembers) {
		return
	}

	workspaceID := middleware.GetWorkspaceID(r.Context())
	if err := h.workspaces.RemoveMember(r.Context(), workspaceID, userID); err != nil {
		h.writeMemberError(w, err)
		return
	}

	h.logger.Info("member removed", "workspace_id", workspaceID, "user_id", userID, "self", self)
	w.WriteHeader(http.StatusNoContent)
}

func (h *MemberHandler) writeMemberError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workspace.ErrNotMember):
		writeError(w, http.StatusNotFound, "Member not found")
	case errors.Is(err, workspace.ErrLastOwner):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, permissions.ErrInvalidRole):
		writeValidation(w, map[string]string{"role": "Role is invalid"})
	default:
		h.logger.Error("member operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Member operation failed")
	}
}
