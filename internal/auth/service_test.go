package auth_test

import (
	"testing"

	"github.com/hugh/zenshin-chart/internal/auth"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*auth.Service, *testutil.TestSetup) {
	t.Helper()
	ts := testutil.NewTestContext(t)
	return auth.NewService(ts.DB, ts.JWTService), ts
}

func TestService_Register(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)

	t.Run("creates user without a workspace", func(t *testing.T) {
		resp, err := svc.Register(ctx, auth.RegisterInput{
			Email:    "  New@Example.com ",
			Password: "password123",
			Name:     "New User",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "new@example.com", resp.User.Email)

		var count int64
		ts.DB.Model(&models.WorkspaceMember{}).Where("user_id = ?", resp.User.ID).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx, auth.RegisterInput{
			Email:    ts.User.Email,
			Password: "password123",
			Name:     "Dup",
		})
		assert.ErrorIs(t, err, auth.ErrUserExists)
	})
}

func TestService_Login(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := svc.Login(ctx, auth.LoginInput{Email: ts.User.Email, Password: "testpassword123"})
		require.NoError(t, err)

		claims, err := ts.JWTService.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, ts.User.ID, claims.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{Email: ts.User.Email, Password: "nope"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{Email: "ghost@example.com", Password: "x"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		other := testutil.CreateTestUser(t, ts.DB)
		require.NoError(t, ts.DB.Model(other).Update("is_active", false).Error)

		_, err := svc.Login(ctx, auth.LoginInput{Email: other.Email, Password: "testpassword123"})
		assert.ErrorIs(t, err, auth.ErrInactiveUser)
	})
}

func TestService_UpsertExternalUser(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)

	t.Run("creates a new user", func(t *testing.T) {
		user, err := svc.UpsertExternalUser(ctx, auth.ExternalUser{
			Provider: "oauth", ExternalID: "ext-1", Email: "ext@example.com", Name: "Ext",
		})
		require.NoError(t, err)
		assert.Equal(t, "ext@example.com", user.Email)

		again, err := svc.UpsertExternalUser(ctx, auth.ExternalUser{
			Provider: "oauth", ExternalID: "ext-1", Email: "changed@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, user.ID, again.ID)
	})

	t.Run("links an existing account by email", func(t *testing.T) {
		user, err := svc.UpsertExternalUser(ctx, auth.ExternalUser{
			Provider: "oauth", ExternalID: "ext-2", Email: ts.User.Email,
		})
		require.NoError(t, err)
		assert.Equal(t, ts.User.ID, user.ID)
	})

	t.Run("requires an email", func(t *testing.T) {
		_, err := svc.UpsertExternalUser(ctx, auth.ExternalUser{Provider: "oauth", ExternalID: "ext-3"})
		assert.Error(t, err)
	})
}

func TestService_UpdateLocale(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)

	require.NoError(t, svc.UpdateLocale(ctx, ts.User.ID, "en"))

	user, err := svc.GetUserByID(ctx, ts.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "en", user.Locale)
}
