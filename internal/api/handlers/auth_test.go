package handlers_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/zenshin-chart/internal/api/dto"
	"github.com/hugh/zenshin-chart/internal/api/handlers"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthTestRouter(t *testing.T) (*chi.Mux, *testEnv) {
	env := newTestEnv(t)
	handler := handlers.NewAuthHandler(env.Auth, env.Resolver, handlers.CookieOptions{})

	r := chi.NewRouter()
	r.Post("/api/auth/register", handler.Register)
	r.Post("/api/auth/login", handler.Login)
	r.Post("/api/auth/logout", handler.Logout)
	r.With(middleware.Auth(env.JWTService)).Get("/api/me", handler.Me)

	return r, env
}

func TestAuthHandler_Register(t *testing.T) {
	router, _ := setupAuthTestRouter(t)

	t.Run("successful registration", func(t *testing.T) {
		body := map[string]string{
			"email":    "newuser@example.com",
			"password": "securepassword123",
			"name":     "New User",
			"locale":   "en",
		}

		rr := serve(router, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/register", body))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "newuser@example.com", resp.User.Email)
		assert.Equal(t, "New User", resp.User.Name)
		assert.Equal(t, "en", resp.User.Locale)

		session := findCookie(rr, middleware.SessionCookie)
		require.NotNil(t, session)
		assert.Equal(t, resp.Token, session.Value)
		assert.True(t, session.HttpOnly)
	})

	t.Run("locale falls back to the browser", func(t *testing.T) {
		body := map[string]string{
			"email":    "browser@example.com",
			"password": "securepassword123",
			"name":     "Browser User",
			"locale":   "fr",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/auth/register", body)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		rr := serve(router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "en", resp.User.Locale)
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := map[string]string{
			"email":    "duplicate@example.com",
			"password": "securepassword123",
			"name":     "First",
		}

		rr := serve(router, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/register", body))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		rr = serve(router, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/register", body))
		testutil.AssertStatus(t, rr, http.StatusConflict)
	})

	t.Run("validation errors", func(t *testing.T) {
		body := map[string]string{
			"email":    "not-an-email",
			"password": "short",
		}

		rr := serve(router, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/register", body))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Details, "email")
		assert.Contains(t, resp.Details, "password")
		assert.Contains(t, resp.Details, "name")
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := serve(router, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/register", nil))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	router, env := setupAuthTestRouter(t)

	t.Run("successful login", func(t *testing.T) {
		body := map[string]string{
			"email":    env.User.Email,
			"password": "testpassword123",
		}

		rr := serve(router, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/login", body))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, env.User.ID.String(), resp.User.ID)
		assert.NotNil(t, findCookie(rr, middleware.SessionCookie))
	})

	t.Run("wrong password", func(t *testing.T) {
		body := map[string]string{
			"email":    env.User.Email,
			"password": "wrongpassword",
		}

		rr := serve(router, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/login", body))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("unknown user", func(t *testing.T) {
		body := map[string]string{
			"email":    "nobody@example.com",
			"password": "testpassword123",
		}

		rr := serve(router, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/login", body))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("inactive user", func(t *testing.T) {
		user := testutil.CreateTestUser(t, env.DB)
		require.NoError(t, env.DB.Model(user).Update("is_active", false).Error)

		body := map[string]string{
			"email":    user.Email,
			"password": "testpassword123",
		}

		rr := serve(router, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/login", body))
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	router, _ := setupAuthTestRouter(t)

	rr := serve(router, testutil.UnauthenticatedRequest(t, "POST", "/api/auth/logout", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	session := findCookie(rr, middleware.SessionCookie)
	require.NotNil(t, session)
	assert.Empty(t, session.Value)
	assert.Negative(t, session.MaxAge)
}

func TestAuthHandler_Me(t *testing.T) {
	router, env := setupAuthTestRouter(t)

	t.Run("returns the caller", func(t *testing.T) {
		rr := serve(router, testutil.AuthenticatedRequest(t, "GET", "/api/me", nil, env.Token))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var user dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &user)
		assert.Equal(t, env.User.Email, user.Email)
	})

	t.Run("requires a session", func(t *testing.T) {
		rr := serve(router, testutil.UnauthenticatedRequest(t, "GET", "/api/me", nil))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}
