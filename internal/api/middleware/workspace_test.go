package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/permissions"
	"github.com/hugh/zenshin-chart/internal/workspace"
	"github.com/stretchr/testify/assert"
)

type fakeMembers struct {
	role permissions.Role
	err  error
}

func (f fakeMembers) GetMembership(_ context.Context, workspaceID, userID uuid.UUID) (*models.WorkspaceMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID, Role: f.role}, nil
}

func membershipRouter(members MembershipReader, final http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/workspaces/{workspaceID}", func(r chi.Router) {
		r.Use(WorkspaceMember(members, slog.New(slog.NewTextHandler(io.Discard, nil))))
		r.Get("/", final)
	})
	return r
}

func TestWorkspaceMember_SetsRole(t *testing.T) {
	wsID := uuid.New()
	var gotRole permissions.Role
	var gotWS uuid.UUID

	h := membershipRouter(fakeMembers{role: permissions.RoleEditor}, func(w http.ResponseWriter, r *http.Request) {
		gotRole = GetRole(r.Context())
		gotWS = GetWorkspaceID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/workspaces/"+wsID.String()+"/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, permissions.RoleEditor, gotRole)
	assert.Equal(t, wsID, gotWS)
}

func TestWorkspaceMember_NonMemberIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not a member", workspace.ErrNotMember},
		{"lookup failure", errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := membershipRouter(fakeMembers{err: tt.err}, func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/workspaces/"+uuid.NewString()+"/", nil))
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestWorkspaceMember_MalformedID(t *testing.T) {
	h := membershipRouter(fakeMembers{role: permissions.RoleOwner}, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/workspaces/not-a-uuid/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRole_NotInContext(t *testing.T) {
	assert.Equal(t, permissions.Role(""), GetRole(context.Background()))
	assert.Equal(t, uuid.Nil, GetWorkspaceID(context.Background()))
}
