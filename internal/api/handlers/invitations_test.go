package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/zenshin-chart/internal/api/dto"
	"github.com/hugh/zenshin-chart/internal/api/handlers"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/mailer"
	"github.com/hugh/zenshin-chart/internal/permissions"
	"github.com/hugh/zenshin-chart/internal/testutil"
	"github.com/hugh/zenshin-chart/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://chart.example.com"

type fakeSender struct {
	sent []mailer.InvitationEmail
	err  error
}

func (f *fakeSender) SendInvitationEmail(ctx context.Context, inv mailer.InvitationEmail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, inv)
	return nil
}

func setupInvitationTestRouter(t *testing.T, sender *fakeSender) (*chi.Mux, *testEnv) {
	env := newTestEnv(t)
	handler := handlers.NewInvitationHandler(env.Workspaces, env.Auth, sender, env.Resolver, testBaseURL, discard)

	r := env.workspaceRouter(func(r chi.Router) {
		r.Get("/invitations", handler.List)
		r.Post("/invitations", handler.CreateLink)
		r.Post("/invitations/email", handler.SendEmail)
		r.Delete("/invitations/{invitationID}", handler.Revoke)
	})
	r.Get("/api/invitations/{code}", handler.Show)
	r.With(middleware.Auth(env.JWTService)).Post("/api/invitations/{code}/accept", handler.Accept)

	return r, env
}

func TestInvitationHandler_CreateLink(t *testing.T) {
	router, env := setupInvitationTestRouter(t, &fakeSender{})

	t.Run("owner creates consultant link", func(t *testing.T) {
		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", env.wsPath("/invitations"),
			map[string]string{"role": "consultant"}, env.Token))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp dto.InvitationResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Len(t, resp.Code, 32)
		assert.Equal(t, testBaseURL+"/invite/"+resp.Code, resp.URL)
		assert.Equal(t, "consultant", resp.Role)
		assert.WithinDuration(t, time.Now().Add(workspace.InvitationTTL), resp.ExpiresAt, time.Minute)
	})

	t.Run("editor may invite editors", func(t *testing.T) {
		_, token := env.NewMember(t, permissions.RoleEditor)

		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", env.wsPath("/invitations"),
			map[string]string{"role": "editor"}, token))
		testutil.AssertStatus(t, rr, http.StatusCreated)
	})

	t.Run("editor may not invite consultants", func(t *testing.T) {
		_, token := env.NewMember(t, permissions.RoleEditor)

		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", env.wsPath("/invitations"),
			map[string]string{"role": "consultant"}, token))
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("owner role is never invitable", func(t *testing.T) {
		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", env.wsPath("/invitations"),
			map[string]string{"role": "owner"}, env.Token))
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("viewer cannot create links", func(t *testing.T) {
		_, token := env.NewMember(t, permissions.RoleViewer)

		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", env.wsPath("/invitations"),
			map[string]string{"role": "viewer"}, token))
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("unknown role", func(t *testing.T) {
		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", env.wsPath("/invitations"),
			map[string]string{"role": "admin"}, env.Token))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestInvitationHandler_SendEmail(t *testing.T) {
	t.Run("delivers the join link", func(t *testing.T) {
		sender := &fakeSender{}
		router, env := setupInvitationTestRouter(t, sender)

		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", env.wsPath("/invitations/email"),
			map[string]string{"email": "guest@example.com", "role": "viewer", "locale": "en"}, env.Token))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp dto.InvitationResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "guest@example.com", resp.Email)

		require.Len(t, sender.sent, 1)
		mail := sender.sent[0]
		assert.Equal(t, "guest@example.com", mail.To)
		assert.Equal(t, "Test Workspace", mail.WorkspaceName)
		assert.Equal(t, "Test User", mail.InviterName)
		assert.Equal(t, "viewer", mail.Role)
		assert.Equal(t, resp.URL, mail.JoinURL)
		assert.Equal(t, "en", mail.Locale)
	})

	t.Run("delivery failure is a 502 and withdraws the invitation", func(t *testing.T) {
		sender := &fakeSender{err: errors.New("smtp: 554 rejected")}
		router, env := setupInvitationTestRouter(t, sender)

		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", env.wsPath("/invitations/email"),
			map[string]string{"email": "guest@example.com", "role": "editor"}, env.Token))
		testutil.AssertStatus(t, rr, http.StatusBadGateway)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Error, "554 rejected")

		var count int64
		require.NoError(t, env.DB.Model(&models.Invitation{}).Where("workspace_id = ?", env.Workspace.ID).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("mail not configured", func(t *testing.T) {
		sender := &fakeSender{err: mailer.ErrNotConfigured}
		router, env := setupInvitationTestRouter(t, sender)

		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", env.wsPath("/invitations/email"),
			map[string]string{"email": "guest@example.com", "role": "viewer"}, env.Token))
		testutil.AssertStatus(t, rr, http.StatusBadGateway)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Email delivery is not configured", resp.Error)
	})

	t.Run("only owners send email invitations", func(t *testing.T) {
		sender := &fakeSender{}
		router, env := setupInvitationTestRouter(t, sender)
		_, token := env.NewMember(t, permissions.RoleEditor)

		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", env.wsPath("/invitations/email"),
			map[string]string{"email": "guest@example.com", "role": "viewer"}, token))
		testutil.AssertStatus(t, rr, http.StatusForbidden)
		assert.Empty(t, sender.sent)
	})

	t.Run("invalid email", func(t *testing.T) {
		router, env := setupInvitationTestRouter(t, &fakeSender{})

		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", env.wsPath("/invitations/email"),
			map[string]string{"email": "nope", "role": "viewer"}, env.Token))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestInvitationHandler_ListAndRevoke(t *testing.T) {
	router, env := setupInvitationTestRouter(t, &fakeSender{})

	active := testutil.CreateTestInvitation(t, env.DB, env.Workspace.ID, env.User.ID, "active-code", permissions.RoleViewer, time.Now().Add(time.Hour))
	testutil.CreateTestInvitation(t, env.DB, env.Workspace.ID, env.User.ID, "expired-code", permissions.RoleViewer, time.Now().Add(-time.Hour))

	rr := serve(router, testutil.AuthenticatedRequest(t, "GET", env.wsPath("/invitations"), nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp struct {
		Data  []dto.InvitationResponse `json:"data"`
		Total int                      `json:"total"`
	}
	testutil.ParseJSONResponse(t, rr, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "active-code", resp.Data[0].Code)

	_, viewerToken := env.NewMember(t, permissions.RoleViewer)
	rr = serve(router, testutil.AuthenticatedRequest(t, "GET", env.wsPath("/invitations"), nil, viewerToken))
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	rr = serve(router, testutil.AuthenticatedRequest(t, "DELETE", env.wsPath("/invitations/"+active.ID.String()), nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	_, ok := env.Workspaces.GetInvitationByCode(testutil.TestContext(t), "active-code")
	assert.False(t, ok)
}

func TestInvitationHandler_ShowAndAccept(t *testing.T) {
	router, env := setupInvitationTestRouter(t, &fakeSender{})

	testutil.CreateTestInvitation(t, env.DB, env.Workspace.ID, env.User.ID, "join-me", permissions.RoleEditor, time.Now().Add(time.Hour))
	testutil.CreateTestInvitation(t, env.DB, env.Workspace.ID, env.User.ID, "stale", permissions.RoleEditor, time.Now().Add(-time.Minute))

	t.Run("show is public", func(t *testing.T) {
		rr := serve(router, testutil.UnauthenticatedRequest(t, "GET", "/api/invitations/join-me", nil))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var view dto.PublicInvitationResponse
		testutil.ParseJSONResponse(t, rr, &view)
		assert.Equal(t, "join-me", view.Code)
		assert.Equal(t, "Test Workspace", view.WorkspaceName)
		assert.Equal(t, "editor", view.Role)
	})

	t.Run("show hides the invitee address", func(t *testing.T) {
		inv := testutil.CreateTestInvitation(t, env.DB, env.Workspace.ID, env.User.ID, "mailed", permissions.RoleViewer, time.Now().Add(time.Hour))
		require.NoError(t, env.DB.Model(inv).Update("email", "guest@example.com").Error)

		rr := serve(router, testutil.UnauthenticatedRequest(t, "GET", "/api/invitations/mailed", nil))
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.NotContains(t, rr.Body.String(), "guest@example.com")
		assert.NotContains(t, rr.Body.String(), `"email"`)
	})

	t.Run("expired code is not found", func(t *testing.T) {
		rr := serve(router, testutil.UnauthenticatedRequest(t, "GET", "/api/invitations/stale", nil))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("accept joins at the invited role", func(t *testing.T) {
		user := testutil.CreateTestUser(t, env.DB)
		token := testutil.GenerateTestToken(t, env.JWTService, user)

		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", "/api/invitations/join-me/accept", nil, token))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var result workspace.JoinResult
		testutil.ParseJSONResponse(t, rr, &result)
		assert.True(t, result.Success)
		assert.Equal(t, env.Workspace.ID, result.WorkspaceID)

		m, err := env.Workspaces.GetMembership(testutil.TestContext(t), env.Workspace.ID, user.ID)
		require.NoError(t, err)
		assert.Equal(t, permissions.RoleEditor, m.Role)

		// Links are multi-use until they expire.
		other := testutil.CreateTestUser(t, env.DB)
		rr = serve(router, testutil.AuthenticatedRequest(t, "POST", "/api/invitations/join-me/accept", nil,
			testutil.GenerateTestToken(t, env.JWTService, other)))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("accepting an expired code", func(t *testing.T) {
		user := testutil.CreateTestUser(t, env.DB)
		token := testutil.GenerateTestToken(t, env.JWTService, user)

		rr := serve(router, testutil.AuthenticatedRequest(t, "POST", "/api/invitations/stale/accept", nil, token))
		testutil.AssertStatus(t, rr, http.StatusNotFound)

		var result workspace.JoinResult
		testutil.ParseJSONResponse(t, rr, &result)
		assert.False(t, result.Success)
		assert.Equal(t, workspace.JoinMessageInvalid, result.Error)
	})

	t.Run("accept requires a session", func(t *testing.T) {
		rr := serve(router, testutil.UnauthenticatedRequest(t, "POST", "/api/invitations/join-me/accept", nil))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}
