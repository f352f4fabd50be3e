package charts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"gorm.io/gorm"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// DefaultAreaColor is used when an area is created without a color.
const DefaultAreaColor = "#6b7280"

func validColor(c string) bool {
	return colorPattern.MatchString(c)
}

type AreaInput struct {
	Name  string
	Color string
}

type AreaPatch struct {
	Name  *string
	Color *string
}

func (s *Service) ListAreas(ctx context.Context, workspaceID, chartID uuid.UUID) ([]models.Area, error) {
	db := s.db.WithContext(ctx)
	if err := s.requireChart(db, workspaceID, chartID); err != nil {
		return nil, err
	}

	var areas []models.Area
	if err := db.Where("chart_id = ?", chartID).
		Order("sort_order ASC, created_at ASC").
		Find(&areas).Error; err != nil {
		s.logger.Error("failed to list areas", "chart_id", chartID, "error", err)
		return []models.Area{}, nil
	}
	return areas, nil
}

// CreateArea appends an area after the existing ones.
func (s *Service) CreateArea(ctx context.Context, workspaceID, chartID uuid.UUID, input AreaInput) (*models.Area, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrEmptyTitle
	}
	color := strings.ToLower(strings.TrimSpace(input.Color))
	if color == "" {
		color = DefaultAreaColor
	}
	if !validColor(color) {
		return nil, ErrInvalidColor
	}

	area := models.Area{ChartID: chartID, Name: name, Color: color}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireChart(tx, workspaceID, chartID); err != nil {
			return err
		}
		order, err := nextSortOrder(tx, &models.Area{}, chartID)
		if err != nil {
			return err
		}
		area.SortOrder = order
		return tx.Create(&area).Error
	})
	if err != nil {
		return nil, fmt.Errorf("creating area: %w", err)
	}
	return &area, nil
}

func (s *Service) UpdateArea(ctx context.Context, workspaceID, chartID, areaID uuid.UUID, patch AreaPatch) (*models.Area, error) {
	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrEmptyTitle
		}
		updates["name"] = name
	}
	if patch.Color != nil {
		color := strings.ToLower(strings.TrimSpace(*patch.Color))
		if !validColor(color) {
			return nil, ErrInvalidColor
		}
		updates["color"] = color
	}

	area, err := s.getArea(ctx, workspaceID, chartID, areaID)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(area).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("updating area: %w", err)
		}
	}
	return s.getArea(ctx, workspaceID, chartID, areaID)
}

// DeleteArea removes the area and detaches any items that referenced it.
func (s *Service) DeleteArea(ctx context.Context, workspaceID, chartID, areaID uuid.UUID) error {
	if _, err := s.getArea(ctx, workspaceID, chartID, areaID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&models.Vision{}, &models.Reality{}, &models.Tension{}} {
			if err := tx.Model(m).Where("area_id = ?", areaID).Update("area_id", nil).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Area{}, "id = ?", areaID).Error
	})
	if err != nil {
		return fmt.Errorf("deleting area: %w", err)
	}
	return nil
}

// ReorderAreas rewrites sort orders to match ids. ids must be a permutation
// of the chart's current areas.
func (s *Service) ReorderAreas(ctx context.Context, workspaceID, chartID uuid.UUID, ids []uuid.UUID) ([]models.Area, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireChart(tx, workspaceID, chartID); err != nil {
			return err
		}

		var existing []uuid.UUID
		if err := tx.Model(&models.Area{}).Where("chart_id = ?", chartID).Pluck("id", &existing).Error; err != nil {
			return err
		}
		if !isPermutation(existing, ids) {
			return ErrInvalidOrder
		}

		for i, id := range ids {
			if err := tx.Model(&models.Area{}).Where("id = ?", id).Update("sort_order", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reordering areas: %w", err)
	}
	return s.ListAreas(ctx, workspaceID, chartID)
}

func (s *Service) getArea(ctx context.Context, workspaceID, chartID, areaID uuid.UUID) (*models.Area, error) {
	db := s.db.WithContext(ctx)
	if err := s.requireChart(db, workspaceID, chartID); err != nil {
		return nil, err
	}
	var area models.Area
	if err := db.Where("id = ? AND chart_id = ?", areaID, chartID).Take(&area).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAreaNotFound
		}
		return nil, err
	}
	return &area, nil
}

func isPermutation(existing, proposed []uuid.UUID) bool {
	if len(existing) != len(proposed) {
		return false
	}
	remaining := make(map[uuid.UUID]bool, len(existing))
	for _, id := range existing {
		remaining[id] = true
	}
	for _, id := range proposed {
		if !remaining[id] {
			return false
		}
		delete(remaining, id)
	}
	return true
}
