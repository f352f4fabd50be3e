package charts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrChartNotFound = errors.New("chart not found")
	ErrAreaNotFound  = errors.New("area not found")
	ErrItemNotFound  = errors.New("item not found")
	ErrEmptyTitle    = errors.New("title is required")
	ErrEmptyContent  = errors.New("content is required")
	ErrInvalidColor  = errors.New("color must be #rrggbb")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidOrder  = errors.New("order must list every area of the chart exactly once")
	ErrInvalidLink   = errors.New("link must be an http or https url")
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger, now: time.Now}
}

type CreateChartInput struct {
	Title   string
	DueDate *time.Time
}

// UpdateChartInput applies only the non-nil fields. ClearDueDate removes the
// due date.
type UpdateChartInput struct {
	Title        *string
	DueDate      *time.Time
	ClearDueDate bool
	Status       *models.ChartStatus
}

// ListCharts returns the workspace's charts, most recently updated first.
// Read failures are logged and yield an empty list.
func (s *Service) ListCharts(ctx context.Context, workspaceID uuid.UUID) []models.Chart {
	var charts []models.Chart
	if err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("updated_at DESC").
		Find(&charts).Error; err != nil {
		s.logger.Error("failed to list charts", "workspace_id", workspaceID, "error", err)
		return []models.Chart{}
	}
	return charts
}

// GetChart loads a chart only if it belongs to the workspace.
func (s *Service) GetChart(ctx context.Context, workspaceID, chartID uuid.UUID) (*models.Chart, error) {
	var chart models.Chart
	if err := s.db.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", chartID, workspaceID).
		Take(&chart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChartNotFound
		}
		return nil, err
	}
	return &chart, nil
}

func (s *Service) CreateChart(ctx context.Context, workspaceID, userID uuid.UUID, input CreateChartInput) (*models.Chart, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	chart := models.Chart{
		WorkspaceID: workspaceID,
		Title:       title,
		DueDate:     input.DueDate,
		Status:      models.ChartStatusActive,
		CreatedBy:   userID,
	}
	if err := s.db.WithContext(ctx).Create(&chart).Error; err != nil {
		return nil, fmt.Errorf("creating chart: %w", err)
	}
	return &chart, nil
}

func (s *Service) UpdateChart(ctx context.Context, workspaceID, chartID uuid.UUID, input UpdateChartInput) (*models.Chart, error) {
	updates := map[string]interface{}{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrEmptyTitle
		}
		updates["title"] = title
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, ErrInvalidStatus
		}
		updates["status"] = *input.Status
	}
	switch {
	case input.ClearDueDate:
		updates["due_date"] = nil
	case input.DueDate != nil:
		updates["due_date"] = *input.DueDate
	}

	chart, err := s.GetChart(ctx, workspaceID, chartID)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return chart, nil
	}

	if err := s.db.WithContext(ctx).Model(chart).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("updating chart: %w", err)
	}
	return s.GetChart(ctx, workspaceID, chartID)
}

// DeleteChart removes the chart together with its areas, items and comments.
func (s *Service) DeleteChart(ctx context.Context, workspaceID, chartID uuid.UUID) error {
	chart, err := s.GetChart(ctx, workspaceID, chartID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Select(clause.Associations).Delete(chart).Error; err != nil {
		return fmt.Errorf("deleting chart: %w", err)
	}
	return nil
}

// LoadChartTree loads a chart with every child collection in display order.
func (s *Service) LoadChartTree(ctx context.Context, workspaceID, chartID uuid.UUID) (*models.Chart, error) {
	bySort := func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, created_at ASC") }

	var chart models.Chart
	err := s.db.WithContext(ctx).
		Preload("Areas", bySort).
		Preload("Visions", bySort).
		Preload("Realities", bySort).
		Preload("Tensions", bySort).
		Preload("Actions", bySort).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments.Author").
		Where("id = ? AND workspace_id = ?", chartID, workspaceID).
		Take(&chart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChartNotFound
		}
		return nil, err
	}
	return &chart, nil
}

// requireChart checks that chartID exists in the workspace.
func (s *Service) requireChart(tx *gorm.DB, workspaceID, chartID uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.Chart{}).
		Where("id = ? AND workspace_id = ?", chartID, workspaceID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrChartNotFound
	}
	return nil
}

// nextSortOrder returns one past the highest sort_order of model's rows in the chart.
func nextSortOrder(tx *gorm.DB, model interface{}, chartID uuid.UUID) (int, error) {
	var max int
	if err := tx.Model(model).
		Where("chart_id = ?", chartID).
		Select("COALESCE(MAX(sort_order), -1)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max + 1, nil
}
