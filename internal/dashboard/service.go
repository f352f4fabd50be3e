package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"gorm.io/gorm"
)

// Summary is the workspace dashboard for one period.
type Summary struct {
	Period           Period          `json:"period"`
	Range            Range           `json:"range"`
	ActiveCharts     int64           `json:"active_charts"`
	CompletedCharts  int64           `json:"completed_charts"`
	ActionsCompleted int64           `json:"actions_completed"`
	ActionsDue       int64           `json:"actions_due"`
	OverdueActions   int64           `json:"overdue_actions"`
	OpenTensions     int64           `json:"open_tensions"`
	Upcoming         []models.Action `json:"upcoming"`
}

const upcomingLimit = 10

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Summary counts chart activity in the workspace. Each failed read is logged
// and leaves its figure at zero.
func (s *Service) Summary(ctx context.Context, workspaceID uuid.UUID, period Period, now time.Time) (*Summary, error) {
	rng, err := GetPeriodRange(period, now)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Period: period, Range: rng, Upcoming: []models.Action{}}
	db := s.db.WithContext(ctx)
	charts := func() *gorm.DB {
		return db.Model(&models.Chart{}).Select("id").Where("workspace_id = ?", workspaceID)
	}

	s.count(db.Model(&models.Chart{}).
		Where("workspace_id = ? AND status = ?", workspaceID, models.ChartStatusActive),
		&sum.ActiveCharts, "active_charts")
	s.count(db.Model(&models.Chart{}).
		Where("workspace_id = ? AND status = ?", workspaceID, models.ChartStatusCompleted),
		&sum.CompletedCharts, "completed_charts")

	s.count(inRange(db.Model(&models.Action{}).
		Where("chart_id IN (?) AND status = ?", charts(), models.ActionStatusDone), "completed_at", rng),
		&sum.ActionsCompleted, "actions_completed")
	s.count(inRange(db.Model(&models.Action{}).
		Where("chart_id IN (?) AND due_date IS NOT NULL", charts()), "due_date", rng),
		&sum.ActionsDue, "actions_due")
	s.count(db.Model(&models.Action{}).
		Where("chart_id IN (?) AND status <> ? AND due_date < ?", charts(), models.ActionStatusDone, now),
		&sum.OverdueActions, "overdue_actions")
	s.count(db.Model(&models.Tension{}).
		Where("chart_id IN (?) AND status = ?", charts(), models.TensionStatusActive),
		&sum.OpenTensions, "open_tensions")

	if err := db.Where("chart_id IN (?) AND status <> ? AND due_date >= ?", charts(), models.ActionStatusDone, now).
		Order("due_date ASC").
		Limit(upcomingLimit).
		Find(&sum.Upcoming).Error; err != nil {
		s.logger.Error("dashboard query failed", "metric", "upcoming", "workspace_id", workspaceID, "error", err)
		sum.Upcoming = []models.Action{}
	}

	return sum, nil
}

func (s *Service) count(q *gorm.DB, dst *int64, metric string) {
	if err := q.Count(dst).Error; err != nil {
		s.logger.Error("dashboard query failed", "metric", metric, "error", err)
		*dst = 0
	}
}

func inRange(q *gorm.DB, column string, rng Range) *gorm.DB {
	if !rng.Start.IsZero() {
		q = q.Where(column+" >= ?", rng.Start)
	}
	return q.Where(column+" <= ?", rng.End)
}
