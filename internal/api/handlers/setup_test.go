package handlers_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/auth"
	"github.com/hugh/zenshin-chart/internal/charts"
	"github.com/hugh/zenshin-chart/internal/locale"
	"github.com/hugh/zenshin-chart/internal/testutil"
	"github.com/hugh/zenshin-chart/internal/workspace"
	"github.com/hugh/zenshin-chart/pkg/metrics"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// testEnv is a seeded database plus the services the handlers need.
type testEnv struct {
	*testutil.TestSetup
	Auth       *auth.Service
	Workspaces *workspace.Service
	Charts     *charts.Service
	Resolver   *locale.Resolver
	Metrics    *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ts := testutil.NewTestContext(t)
	m := metrics.NewNop()
	return &testEnv{
		TestSetup:  ts,
		Auth:       auth.NewService(ts.DB, ts.JWTService),
		Workspaces: workspace.NewService(ts.DB, discard, m, "My Workspace"),
		Charts:     charts.NewService(ts.DB, discard),
		Resolver:   locale.NewResolver(locale.Japanese, []string{locale.Japanese, locale.English}),
		Metrics:    m,
	}
}

// workspaceRouter mounts routes under /api/workspaces/{workspaceID} behind
// the same auth and membership middleware the server uses. Routes added to
// the returned mux afterwards stay public unless they opt in to auth.
func (e *testEnv) workspaceRouter(mount func(r chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/workspaces/{workspaceID}", func(r chi.Router) {
		r.Use(middleware.Auth(e.JWTService))
		r.Use(middleware.WorkspaceMember(e.Workspaces, discard))
		mount(r)
	})
	return r
}

func (e *testEnv) wsPath(suffix string) string {
	return "/api/workspaces/" + e.Workspace.ID.String() + suffix
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
