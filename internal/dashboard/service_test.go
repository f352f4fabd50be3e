package dashboard_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hugh/zenshin-chart/internal/dashboard"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Summary(t *testing.T) {
	ts := testutil.NewTestContext(t)
	ctx := testutil.TestContext(t)
	svc := dashboard.NewService(ts.DB, slog.New(slog.NewTextHandler(io.Discard, nil)))

	now := time.Now()
	chart := testutil.CreateTestChart(t, ts.DB, ts.Workspace.ID, ts.User.ID, "Launch")
	done := testutil.CreateTestChart(t, ts.DB, ts.Workspace.ID, ts.User.ID, "Shipped")
	require.NoError(t, ts.DB.Model(done).Update("status", models.ChartStatusCompleted).Error)

	completedAt := now.Add(-time.Hour)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)
	require.NoError(t, ts.DB.Create(&[]models.Action{
		{ChartID: chart.ID, Title: "done", Status: models.ActionStatusDone, CompletedAt: &completedAt},
		{ChartID: chart.ID, Title: "late", Status: models.ActionStatusTodo, DueDate: &past},
		{ChartID: chart.ID, Title: "soon", Status: models.ActionStatusInProgress, DueDate: &future},
	}).Error)
	require.NoError(t, ts.DB.Create(&models.Tension{ChartID: chart.ID, Title: "gap", Status: models.TensionStatusActive}).Error)

	// Another workspace's data must not leak in.
	other := testutil.CreateTestWorkspace(t, ts.DB, ts.User, "Other")
	otherChart := testutil.CreateTestChart(t, ts.DB, other.ID, ts.User.ID, "Elsewhere")
	require.NoError(t, ts.DB.Create(&models.Action{ChartID: otherChart.ID, Title: "x", Status: models.ActionStatusTodo, DueDate: &past}).Error)

	sum, err := svc.Summary(ctx, ts.Workspace.ID, dashboard.PeriodAll, now)
	require.NoError(t, err)

	assert.Equal(t, int64(1), sum.ActiveCharts)
	assert.Equal(t, int64(1), sum.CompletedCharts)
	assert.Equal(t, int64(1), sum.ActionsCompleted)
	assert.Equal(t, int64(1), sum.OverdueActions)
	assert.Equal(t, int64(1), sum.OpenTensions)
	require.Len(t, sum.Upcoming, 1)
	assert.Equal(t, "soon", sum.Upcoming[0].Title)

	_, err = svc.Summary(ctx, ts.Workspace.ID, "bogus", now)
	assert.ErrorIs(t, err, dashboard.ErrUnknownPeriod)
}
