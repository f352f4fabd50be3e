package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/auth"
	"github.com/hugh/zenshin-chart/internal/charts"
	"github.com/hugh/zenshin-chart/internal/dashboard"
	"github.com/hugh/zenshin-chart/internal/locale"
	"github.com/hugh/zenshin-chart/internal/mailer"
	"github.com/hugh/zenshin-chart/internal/testutil"
	"github.com/hugh/zenshin-chart/internal/web"
	"github.com/hugh/zenshin-chart/internal/workspace"
	"github.com/hugh/zenshin-chart/pkg/config"
	"github.com/hugh/zenshin-chart/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*Router, *testutil.TestSetup) {
	t.Helper()

	setup := testutil.NewTestContext(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewNop()

	templates, err := web.LoadTemplates()
	require.NoError(t, err)
	static, err := web.GetStaticFS()
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		DB:          setup.DB,
		Logger:      logger,
		Metrics:     m,
		JWTService:  setup.JWTService,
		AuthService: auth.NewService(setup.DB, setup.JWTService),
		Workspaces:  workspace.NewService(setup.DB, logger, m, "My Workspace"),
		Charts:      charts.NewService(setup.DB, logger),
		Dashboard:   dashboard.NewService(setup.DB, logger),
		Resolver:    locale.NewResolver(locale.Japanese, []string{locale.Japanese, locale.English}),
		Mailer:      mailer.NewService(config.SMTPConfig{}, "ZENSHIN CHART", logger, m),
		Templates:   templates,
		StaticFS:    static,
		BaseURL:     "http://localhost:8080",
		AppName:     "ZENSHIN CHART",
	}), setup
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestRouter_PublicEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := do(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "disabled")

	rr = do(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "zenshin_http_requests_total")

	rr = do(r, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `name="csrf-token"`)
}

func TestRouter_Unauthenticated(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := do(r, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(r, httptest.NewRequest(http.MethodGet, "/workspaces", nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login?redirect=%2Fworkspaces", rr.Header().Get("Location"))

	rr = do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), "/login"))
}

func TestRouter_CSRF(t *testing.T) {
	r, setup := newTestRouter(t)

	// A page load hands out the token cookie.
	rr := do(r, httptest.NewRequest(http.MethodGet, "/login", nil))
	var csrf *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "csrf_token" {
			csrf = c
		}
	}
	require.NotNil(t, csrf)

	newRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/workspaces", strings.NewReader(`{"name":"Roadmap"}`))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: setup.Token})
		req.AddCookie(csrf)
		return req
	}

	t.Run("cookie session without token", func(t *testing.T) {
		rr := do(r, newRequest())
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("cookie session with mismatched token", func(t *testing.T) {
		req := newRequest()
		req.Header.Set("X-CSRF-Token", "wrong")
		assert.Equal(t, http.StatusForbidden, do(r, req).Code)
	})

	t.Run("cookie session with token", func(t *testing.T) {
		req := newRequest()
		req.Header.Set("X-CSRF-Token", csrf.Value)
		assert.Equal(t, http.StatusCreated, do(r, req).Code)
	})

	t.Run("bearer token needs no csrf", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodPost, "/api/workspaces", map[string]string{"name": "Ops"}, setup.Token)
		assert.Equal(t, http.StatusCreated, do(r, req).Code)
	})
}

func TestRouter_WorkspaceRoutesRequireMembership(t *testing.T) {
	r, setup := newTestRouter(t)

	outsider := testutil.CreateTestUser(t, setup.DB)
	token := testutil.GenerateTestToken(t, setup.JWTService, outsider)

	req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/workspaces/"+setup.Workspace.ID.String()+"/charts", nil, token)
	assert.Equal(t, http.StatusNotFound, do(r, req).Code)

	req = testutil.AuthenticatedRequest(t, http.MethodGet, "/api/workspaces/"+setup.Workspace.ID.String()+"/charts", nil, setup.Token)
	assert.Equal(t, http.StatusOK, do(r, req).Code)
}

func TestRouter_LocalePrecedence(t *testing.T) {
	r, setup := newTestRouter(t)
	require.NoError(t, setup.DB.Model(setup.User).Update("locale", "en").Error)

	page := func(token, cookie, header string) string {
		req := httptest.NewRequest(http.MethodGet, "/w/"+setup.Workspace.ID.String(), nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: locale.CookieName, Value: cookie})
		}
		req.Header.Set("Accept-Language", header)
		rr := do(r, req)
		require.Equal(t, http.StatusOK, rr.Code)
		return rr.Body.String()
	}

	t.Run("stored preference beats the header", func(t *testing.T) {
		assert.Contains(t, page(setup.Token, "", "ja"), `<html lang="en">`)
	})

	t.Run("cookie beats the stored preference", func(t *testing.T) {
		assert.Contains(t, page(setup.Token, "ja", "en"), `<html lang="ja">`)
	})

	t.Run("header applies without a stored preference", func(t *testing.T) {
		_, token := setup.NewMember(t, "viewer")
		assert.Contains(t, page(token, "", "en-US,en;q=0.9"), `<html lang="en">`)
	})

	t.Run("public invite page honours a signed-in preference", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodGet, "/invite/missing", nil, setup.Token)
		req.Header.Set("Accept-Language", "ja")
		rr := do(r, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), locale.For(locale.English).InviteInvalid)
	})
}
