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

type WorkspaceHandler struct {
	workspaces *workspace.Service
	logger     *slog.Logger
}

func NewWorkspaceHandler(workspaces *workspace.Service, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces, logger: logger}
}

// List returns the caller's workspaces with their role in each.
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.workspaces.GetUserWorkspaces(r.Context(), middleware.GetUserID(r.Context()))
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: list, Total: len(list)})
}

// Create handles POST /api/workspaces: 400 for an empty name, 500 when the
// store fails, 201 with the new workspace otherwise.
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.WorkspaceRequest
	if !readJSON(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	userID := middleware.GetUserID(r.Context())
	ws, err := h.workspaces.CreateWorkspace(r.Context(), userID, req.Name)
	if err != nil {
		if errors.Is(err, workspace.ErrEmptyName) {
			writeValidation(w, map[string]string{"name": "Name is required"})
			return
		}
		h.logger.Error("failed to create workspace", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewWorkspaceResponse(ws, permissions.RoleOwner))
}

// Landing reports where the caller should go: into a freshly created or
// single workspace, or to the picker.
func (h *WorkspaceHandler) Landing(w http.ResponseWriter, r *http.Request) {
	landing, err := h.workspaces.ResolveLanding(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.logger.Error("failed to resolve landing", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to resolve workspace")
		return
	}
	writeJSON(w, http.StatusOK, landing)
}

func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaces.GetWorkspace(r.Context(), middleware.GetWorkspaceID(r.Context()))
	if err != nil {
		h.writeWorkspaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewWorkspaceResponse(ws, middleware.GetRole(r.Context())))
}

func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanManageWorkspace) {
		return
	}

	var req dto.WorkspaceRequest
	if !readJSON(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	ws, err := h.workspaces.RenameWorkspace(r.Context(), middleware.GetWorkspaceID(r.Context()), req.Name)
	if err != nil {
		h.writeWorkspaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewWorkspaceResponse(ws, middleware.GetRole(r.Context())))
}

func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, permissions.CanManageWorkspace) {
		return
	}

	workspaceID := middleware.GetWorkspaceID(r.Context())
	if err := h.workspaces.DeleteWorkspace(r.Context(), workspaceID); err != nil {
		h.writeWorkspaceError(w, err)
		return
	}

	h.logger.Info("workspace deleted", "workspace_id", workspaceID, "user_id", middleware.GetUserID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *WorkspaceHandler) writeWorkspaceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workspace.ErrWorkspaceNotFound):
		writeError(w, http.StatusNotFound, "Workspace not found")
	case errors.Is(err, workspace.ErrEmptyName):
		writeValidation(w, map[string]string{"name": "Name is required"})
	default:
		h.logger.Error("workspace operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Workspace operation failed")
	}
}
