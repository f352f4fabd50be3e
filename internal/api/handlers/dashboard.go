package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/dashboard"
)

type DashboardHandler struct {
	dashboard *dashboard.Service
	logger    *slog.Logger
	now       func() time.Time
}

func NewDashboardHandler(svc *dashboard.Service, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: svc, logger: logger, now: time.Now}
}

// Summary handles GET /dashboard?period=&tz=. Period boundaries are computed
// in tz (an IANA zone name) when given, else in server time.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	period, err := dashboard.ParsePeriod(q.Get("period"))
	if err != nil {
		writeValidation(w, map[string]string{"period": "Unknown period"})
		return
	}

	now := h.now()
	if tz := q.Get("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			writeValidation(w, map[string]string{"tz": "Unknown time zone"})
			return
		}
		now = now.In(loc)
	}

	sum, err := h.dashboard.Summary(r.Context(), middleware.GetWorkspaceID(r.Context()), period, now)
	if err != nil {
		if errors.Is(err, dashboard.ErrUnknownPeriod) {
			writeValidation(w, map[string]string{"period": "Unknown period"})
			return
		}
		h.logger.Error("failed to build dashboard", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
