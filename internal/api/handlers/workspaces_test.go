package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/api/dto"
	"github.com/hugh/zenshin-chart/internal/api/handlers"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/permissions"
	"github.com/hugh/zenshin-chart/internal/testutil"
	"github.com/hugh/zenshin-chart/internal/workspace"
	"github.com/hugh/zenshin-chart/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWorkspaceTestRouter(t *testing.T) (*chi.Mux, *testEnv) {
	env := newTestEnv(t)
	handler := handlers.NewWorkspaceHandler(env.Workspaces, discard)

	r := env.workspaceRouter(func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Patch("/", handler.Update)
		r.Delete("/", handler.Delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(env.JWTService))
		r.Get("/api/workspaces", handler.List)
		r.Post("/api/workspaces", handler.Create)
		r.Get("/api/workspaces/landing", handler.Landing)
	})

	return r, env
}

func TestWorkspaceHandler_List(t *testing.T) {
	router, env := setupWorkspaceTestRouter(t)

	rr := serve(router, testutil.AuthenticatedRequest(t, "GET", "/api/workspaces", nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp struct {
		Data  []workspace.WorkspaceWithRole `json:"data"`
		Total int                           `json:"total"`
	}
	testutil.ParseJSONResponse(t, rr, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, env.Workspace.ID, resp.Data[0].ID)
	assert.Equal(t, permissions.RoleOwner, resp.Data[0].Role)
}

func TestWorkspaceHandler_Create(t *testing.T) {
	router, env := setupWorkspaceTestRouter(t)

	t.Run("creates with the caller as owner", func(t *testing.T) {
		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", "/api/workspaces",
			map[string]string{"name": "  Product Team  "}, env.Token))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp dto.WorkspaceResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Product Team", resp.Name)
		assert.Equal(t, "owner", resp.Role)

		var member models.WorkspaceMember
		require.NoError(t, env.DB.Where("workspace_id = ? AND user_id = ?", resp.ID, env.User.ID).First(&member).Error)
		assert.Equal(t, permissions.RoleOwner, member.Role)
	})

	t.Run("empty name", func(t *testing.T) {
		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", "/api/workspaces",
			map[string]string{"name": "   "}, env.Token))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Details, "name")
	})

	t.Run("requires a session", func(t *testing.T) {
		rr := serve(router, testutil.UnauthenticatedRequest(t, "POST", "/api/workspaces",
			map[string]string{"name": "Nope"}))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestWorkspaceHandler_CreateStoreFailure(t *testing.T) {
	db, mock := testutil.SetupMockDB(t)
	jwtService := testutil.CreateTestJWTService()
	svc := workspace.NewService(db, discard, metrics.NewNop(), "")
	handler := handlers.NewWorkspaceHandler(svc, discard)

	r := chi.NewRouter()
	r.With(middleware.Auth(jwtService)).Post("/api/workspaces", handler.Create)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	token, err := jwtService.GenerateToken(uuid.New(), "someone@example.com")
	require.NoError(t, err)

	rr := serve(r, testutil.AuthenticatedRequest(t, "POST", "/api/workspaces",
		map[string]string{"name": "Doomed"}, token))
	testutil.AssertStatus(t, rr, http.StatusInternalServerError)

	var resp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Contains(t, resp.Error, "connection refused")
}

func TestWorkspaceHandler_Landing(t *testing.T) {
	router, env := setupWorkspaceTestRouter(t)

	t.Run("single workspace", func(t *testing.T) {
		rr := serve(router, testutil.AuthenticatedRequest(t, "GET", "/api/workspaces/landing", nil, env.Token))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var landing workspace.Landing
		testutil.ParseJSONResponse(t, rr, &landing)
		assert.Equal(t, workspace.LandingSingle, landing.Kind)
		assert.Equal(t, env.Workspace.ID, landing.WorkspaceID)
	})

	t.Run("new user gets a workspace", func(t *testing.T) {
		user := testutil.CreateTestUser(t, env.DB)
		token := testutil.GenerateTestToken(t, env.JWTService, user)

		rr := serve(router, testutil.AuthenticatedRequest(t, "GET", "/api/workspaces/landing", nil, token))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var landing workspace.Landing
		testutil.ParseJSONResponse(t, rr, &landing)
		assert.Equal(t, workspace.LandingCreated, landing.Kind)
		assert.NotEqual(t, uuid.Nil, landing.WorkspaceID)
	})

	t.Run("several workspaces show the picker", func(t *testing.T) {
		testutil.CreateTestWorkspace(t, env.DB, env.User, "Second")

		rr := serve(router, testutil.AuthenticatedRequest(t, "GET", "/api/workspaces/landing", nil, env.Token))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var landing workspace.Landing
		testutil.ParseJSONResponse(t, rr, &landing)
		assert.Equal(t, workspace.LandingPicker, landing.Kind)
		assert.Len(t, landing.Workspaces, 2)
	})
}

func TestWorkspaceHandler_Get(t *testing.T) {
	router, env := setupWorkspaceTestRouter(t)

	t.Run("member sees workspace with role", func(t *testing.T) {
		_, token := env.NewMember(t, permissions.RoleViewer)

		rr := serve(router, testutil.AuthenticatedRequest(t, "GET", env.wsPath(""), nil, token))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.WorkspaceResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Test Workspace", resp.Name)
		assert.Equal(t, "viewer", resp.Role)
	})

	t.Run("non-member gets 404", func(t *testing.T) {
		outsider := testutil.CreateTestUser(t, env.DB)
		token := testutil.GenerateTestToken(t, env.JWTService, outsider)

		rr := serve(router, testutil.AuthenticatedRequest(t, "GET", env.wsPath(""), nil, token))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestWorkspaceHandler_Update(t *testing.T) {
	router, env := setupWorkspaceTestRouter(t)

	t.Run("owner renames", func(t *testing.T) {
		rr := serve(router, testutil.AuthenticatedRequest(t, "PATCH", env.wsPath(""),
			map[string]string{"name": "Renamed"}, env.Token))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.WorkspaceResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Renamed", resp.Name)
	})

	for _, role := range []permissions.Role{permissions.RoleConsultant, permissions.RoleEditor, permissions.RoleViewer} {
		t.Run(string(role)+" is forbidden", func(t *testing.T) {
			_, token := env.NewMember(t, role)

			rr := serve(router, testutil.AuthenticatedRequest(t, "PATCH", env.wsPath(""),
				map[string]string{"name": "Hijacked"}, token))
			testutil.AssertStatus(t, rr, http.StatusForbidden)

			var resp dto.ErrorResponse
			testutil.ParseJSONResponse(t, rr, &resp)
			assert.Equal(t, "Forbidden", resp.Error)
		})
	}
}

func TestWorkspaceHandler_Delete(t *testing.T) {
	router, env := setupWorkspaceTestRouter(t)

	_, editorToken := env.NewMember(t, permissions.RoleEditor)
	rr := serve(router, testutil.AuthenticatedRequest(t, "DELETE", env.wsPath(""), nil, editorToken))
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	rr = serve(router, testutil.AuthenticatedRequest(t, "DELETE", env.wsPath(""), nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	// Gone for everyone afterwards.
	rr = serve(router, testutil.AuthenticatedRequest(t, "GET", env.wsPath(""), nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}
