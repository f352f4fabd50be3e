package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/permissions"
	"github.com/hugh/zenshin-chart/internal/workspace"
)

// MembershipReader looks up the caller's membership row.
type MembershipReader interface {
	GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*models.WorkspaceMember, error)
}

// WorkspaceMember resolves the {workspaceID} URL parameter against the
// caller's memberships and stores the workspace id and role in the context.
// Non-members get a 404 so workspace ids are not disclosed.
func WorkspaceMember(members MembershipReader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			workspaceID, err := uuid.Parse(chi.URLParam(r, "workspaceID"))
			if err != nil {
				notFound(w, r)
				return
			}

			m, err := members.GetMembership(r.Context(), workspaceID, GetUserID(r.Context()))
			if err != nil {
				if !errors.Is(err, workspace.ErrNotMember) {
					logger.Error("membership lookup failed", "workspace_id", workspaceID, "error", err)
				}
				notFound(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), WorkspaceIDKey, workspaceID)
			ctx = context.WithValue(ctx, RoleKey, m.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		writeError(w, http.StatusNotFound, "Workspace not found")
		return
	}
	http.NotFound(w, r)
}

func GetWorkspaceID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(WorkspaceIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetRole returns the caller's role in the current workspace. Outside the
// membership middleware it is empty, which no permission check accepts.
func GetRole(ctx context.Context) permissions.Role {
	if role, ok := ctx.Value(RoleKey).(permissions.Role); ok {
		return role
	}
	return ""
}
