package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/zenshin-chart/internal/api/handlers"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/auth"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	user        *auth.ExternalUser
	err         error
	lastCode    string
	lastStateIn string
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	f.lastStateIn = state
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*auth.ExternalUser, error) {
	f.lastCode = code
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func setupOAuthTestRouter(t *testing.T, provider auth.IdentityProvider) (*chi.Mux, *testEnv) {
	env := newTestEnv(t)
	handler := handlers.NewOAuthHandler(provider, env.Auth, env.Workspaces, handlers.CookieOptions{}, discard)

	r := chi.NewRouter()
	r.Get("/auth/login/oauth", handler.Login)
	r.Get("/auth/callback", handler.Callback)
	return r, env
}

// startFlow runs the login leg and returns the cookies a browser would carry
// back to the callback.
func startFlow(t *testing.T, router http.Handler, redirect string) (string, []*http.Cookie) {
	t.Helper()

	path := "/auth/login/oauth"
	if redirect != "" {
		path += "?redirect=" + url.QueryEscape(redirect)
	}
	rr := serve(router, testutil.UnauthenticatedRequest(t, "GET", path, nil))
	require.Equal(t, http.StatusFound, rr.Code)

	state := findCookie(rr, "oauth_state")
	require.NotNil(t, state)
	return state.Value, rr.Result().Cookies()
}

func callback(t *testing.T, router http.Handler, query string, cookies []*http.Cookie) *http.Response {
	t.Helper()

	req := testutil.UnauthenticatedRequest(t, "GET", "/auth/callback?"+query, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return serve(router, req).Result()
}

func TestOAuthHandler_Login(t *testing.T) {
	provider := &fakeProvider{}
	router, _ := setupOAuthTestRouter(t, provider)

	t.Run("redirects to the provider", func(t *testing.T) {
		rr := serve(router, testutil.UnauthenticatedRequest(t, "GET", "/auth/login/oauth?redirect=%2Fw%2Fabc", nil))
		testutil.AssertStatus(t, rr, http.StatusFound)

		state := findCookie(rr, "oauth_state")
		require.NotNil(t, state)
		assert.Equal(t, provider.lastStateIn, state.Value)
		assert.Contains(t, rr.Header().Get("Location"), "https://idp.example.com/authorize")
		assert.NotNil(t, findCookie(rr, "oauth_redirect"))
	})

	t.Run("drops off-site redirect", func(t *testing.T) {
		rr := serve(router, testutil.UnauthenticatedRequest(t, "GET", "/auth/login/oauth?redirect=https%3A%2F%2Fevil.example", nil))
		testutil.AssertStatus(t, rr, http.StatusFound)
		assert.Nil(t, findCookie(rr, "oauth_redirect"))
	})

	t.Run("disabled without provider", func(t *testing.T) {
		router, _ := setupOAuthTestRouter(t, nil)

		rr := serve(router, testutil.UnauthenticatedRequest(t, "GET", "/auth/login/oauth", nil))
		testutil.AssertStatus(t, rr, http.StatusFound)
		assert.Equal(t, "/login?error=oauth_disabled", rr.Header().Get("Location"))
	})
}

func TestOAuthHandler_Callback(t *testing.T) {
	t.Run("new user is provisioned and sent to the preserved path", func(t *testing.T) {
		provider := &fakeProvider{user: &auth.ExternalUser{
			Provider:   "idp",
			ExternalID: "sub-123",
			Email:      "Fresh@Example.com",
			Name:       "Fresh User",
		}}
		router, env := setupOAuthTestRouter(t, provider)

		state, cookies := startFlow(t, router, "/invite/abc")
		resp := callback(t, router, "code=the-code&state="+url.QueryEscape(state), cookies)

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/invite/abc", resp.Header.Get("Location"))
		assert.Equal(t, "the-code", provider.lastCode)

		var session *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == middleware.SessionCookie {
				session = c
			}
		}
		require.NotNil(t, session)
		assert.NotEmpty(t, session.Value)

		var user models.User
		require.NoError(t, env.DB.First(&user, "email = ?", "fresh@example.com").Error)

		workspaces := env.Workspaces.GetUserWorkspaces(testutil.TestContext(t), user.ID)
		assert.Len(t, workspaces, 1)
	})

	t.Run("defaults to the workspace landing", func(t *testing.T) {
		provider := &fakeProvider{user: &auth.ExternalUser{Provider: "idp", ExternalID: "sub-9", Email: "landing@example.com"}}
		router, _ := setupOAuthTestRouter(t, provider)

		state, cookies := startFlow(t, router, "")
		resp := callback(t, router, "code=c&state="+url.QueryEscape(state), cookies)

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/workspaces", resp.Header.Get("Location"))
	})

	t.Run("state mismatch", func(t *testing.T) {
		provider := &fakeProvider{user: &auth.ExternalUser{Provider: "idp", ExternalID: "x", Email: "x@example.com"}}
		router, _ := setupOAuthTestRouter(t, provider)

		_, cookies := startFlow(t, router, "")
		resp := callback(t, router, "code=c&state=forged", cookies)

		assert.Equal(t, "/login?error=state", resp.Header.Get("Location"))
		assert.Empty(t, provider.lastCode)
	})

	t.Run("provider error", func(t *testing.T) {
		router, _ := setupOAuthTestRouter(t, &fakeProvider{})

		resp := callback(t, router, "error=access_denied", nil)
		assert.Equal(t, "/login?error=oauth", resp.Header.Get("Location"))
	})

	t.Run("exchange failure", func(t *testing.T) {
		provider := &fakeProvider{err: errors.New("token endpoint down")}
		router, _ := setupOAuthTestRouter(t, provider)

		state, cookies := startFlow(t, router, "")
		resp := callback(t, router, "code=c&state="+url.QueryEscape(state), cookies)
		assert.Equal(t, "/login?error=oauth", resp.Header.Get("Location"))
	})
}
