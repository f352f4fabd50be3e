package charts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"gorm.io/gorm"
)

// Kind names a chart item collection as it appears in URLs.
type Kind string

const (
	KindVision  Kind = "visions"
	KindReality Kind = "realities"
	KindTension Kind = "tensions"
	KindAction  Kind = "actions"
)

var ErrUnknownKind = errors.New("unknown item kind")

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindVision, KindReality, KindTension, KindAction:
		return k, nil
	}
	return "", ErrUnknownKind
}

// newModel returns an empty row of the kind's table.
func (k Kind) newModel() interface{} {
	switch k {
	case KindVision:
		return &models.Vision{}
	case KindReality:
		return &models.Reality{}
	case KindTension:
		return &models.Tension{}
	default:
		return &models.Action{}
	}
}

// ItemInput carries the fields of any item kind. Visions and realities use
// Content; tensions and actions use Title.
type ItemInput struct {
	Content    string
	Title      string
	AreaID     *uuid.UUID
	TensionID  *uuid.UUID
	AssigneeID *uuid.UUID
	DueDate    *time.Time
	Status     string
	LinkURL    string
}

// ItemPatch applies only non-nil fields. The Clear flags null out optional
// references.
type ItemPatch struct {
	Content       *string
	Title         *string
	AreaID        *uuid.UUID
	ClearArea     bool
	TensionID     *uuid.UUID
	ClearTension  bool
	AssigneeID    *uuid.UUID
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
	Status        *string
	LinkURL       *string
	SortOrder     *int
}

func (s *Service) CreateItem(ctx context.Context, workspaceID, chartID uuid.UUID, kind Kind, in ItemInput) (interface{}, error) {
	var item interface{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireChart(tx, workspaceID, chartID); err != nil {
			return err
		}
		if err := s.checkRefs(tx, chartID, in.AreaID, in.TensionID); err != nil {
			return err
		}

		order, err := nextSortOrder(tx, kind.newModel(), chartID)
		if err != nil {
			return err
		}

		item, err = buildItem(chartID, kind, in, order)
		if err != nil {
			return err
		}
		return tx.Create(item).Error
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", kind, err)
	}
	return item, nil
}

func buildItem(chartID uuid.UUID, kind Kind, in ItemInput, order int) (interface{}, error) {
	switch kind {
	case KindVision, KindReality:
		content := strings.TrimSpace(in.Content)
		if content == "" {
			return nil, ErrEmptyContent
		}
		if kind == KindVision {
			return &models.Vision{ChartID: chartID, AreaID: in.AreaID, Content: content, SortOrder: order}, nil
		}
		return &models.Reality{ChartID: chartID, AreaID: in.AreaID, Content: content, SortOrder: order}, nil

	case KindTension:
		title := strings.TrimSpace(in.Title)
		if title == "" {
			return nil, ErrEmptyTitle
		}
		status := models.TensionStatusActive
		if in.Status != "" {
			status = models.TensionStatus(in.Status)
			if status != models.TensionStatusActive && status != models.TensionStatusResolved {
				return nil, ErrInvalidStatus
			}
		}
		return &models.Tension{ChartID: chartID, AreaID: in.AreaID, Title: title, Status: status, SortOrder: order}, nil

	case KindAction:
		title := strings.TrimSpace(in.Title)
		if title == "" {
			return nil, ErrEmptyTitle
		}
		link, err := normalizeLink(in.LinkURL)
		if err != nil {
			return nil, err
		}
		status := models.ActionStatusTodo
		if in.Status != "" {
			status = models.ActionStatus(in.Status)
			if !status.IsValid() {
				return nil, ErrInvalidStatus
			}
		}
		action := &models.Action{
			ChartID:    chartID,
			TensionID:  in.TensionID,
			Title:      title,
			AssigneeID: in.AssigneeID,
			DueDate:    in.DueDate,
			Status:     status,
			LinkURL:    link,
			SortOrder:  order,
		}
		if status == models.ActionStatusDone {
			now := time.Now()
			action.CompletedAt = &now
		}
		return action, nil
	}
	return nil, ErrUnknownKind
}

func (s *Service) UpdateItem(ctx context.Context, workspaceID, chartID uuid.UUID, kind Kind, itemID uuid.UUID, p ItemPatch) (interface{}, error) {
	updates, err := s.patchUpdates(kind, p)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireChart(tx, workspaceID, chartID); err != nil {
			return err
		}
		if err := s.checkRefs(tx, chartID, p.AreaID, p.TensionID); err != nil {
			return err
		}
		if len(updates) == 0 {
			return s.requireItem(tx, chartID, kind, itemID)
		}

		res := tx.Model(kind.newModel()).
			Where("id = ? AND chart_id = ?", itemID, chartID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrItemNotFound
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", kind, err)
	}
	return s.getItem(ctx, chartID, kind, itemID)
}

func (s *Service) patchUpdates(kind Kind, p ItemPatch) (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if p.SortOrder != nil {
		updates["sort_order"] = *p.SortOrder
	}

	switch kind {
	case KindVision, KindReality:
		if p.Content != nil {
			content := strings.TrimSpace(*p.Content)
			if content == "" {
				return nil, ErrEmptyContent
			}
			updates["content"] = content
		}
	case KindTension, KindAction:
		if p.Title != nil {
			title := strings.TrimSpace(*p.Title)
			if title == "" {
				return nil, ErrEmptyTitle
			}
			updates["title"] = title
		}
	}

	if kind != KindAction {
		switch {
		case p.ClearArea:
			updates["area_id"] = nil
		case p.AreaID != nil:
			updates["area_id"] = *p.AreaID
		}
	}

	if kind == KindTension && p.Status != nil {
		status := models.TensionStatus(*p.Status)
		if status != models.TensionStatusActive && status != models.TensionStatusResolved {
			return nil, ErrInvalidStatus
		}
		updates["status"] = status
	}

	if kind == KindAction {
		switch {
		case p.ClearTension:
			updates["tension_id"] = nil
		case p.TensionID != nil:
			updates["tension_id"] = *p.TensionID
		}
		switch {
		case p.ClearAssignee:
			updates["assignee_id"] = nil
		case p.AssigneeID != nil:
			updates["assignee_id"] = *p.AssigneeID
		}
		switch {
		case p.ClearDueDate:
			updates["due_date"] = nil
		case p.DueDate != nil:
			updates["due_date"] = *p.DueDate
		}
		if p.LinkURL != nil {
			link, err := normalizeLink(*p.LinkURL)
			if err != nil {
				return nil, err
			}
			updates["link_url"] = link
		}
		if p.Status != nil {
			status := models.ActionStatus(*p.Status)
			if !status.IsValid() {
				return nil, ErrInvalidStatus
			}
			updates["status"] = status
			if status == models.ActionStatusDone {
				updates["completed_at"] = s.now()
			} else {
				updates["completed_at"] = nil
			}
		}
	}

	return updates, nil
}

// DeleteItem removes an item. Deleting a tension detaches its actions.
func (s *Service) DeleteItem(ctx context.Context, workspaceID, chartID uuid.UUID, kind Kind, itemID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireChart(tx, workspaceID, chartID); err != nil {
			return err
		}
		if kind == KindTension {
			if err := tx.Model(&models.Action{}).
				Where("tension_id = ?", itemID).
				Update("tension_id", nil).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ? AND chart_id = ?", itemID, chartID).Delete(kind.newModel())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrItemNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", kind, err)
	}
	return nil
}

// ToggleAction flips an action between done and todo, stamping CompletedAt.
func (s *Service) ToggleAction(ctx context.Context, workspaceID, chartID, actionID uuid.UUID) (*models.Action, error) {
	var action models.Action

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireChart(tx, workspaceID, chartID); err != nil {
			return err
		}
		if err := tx.Where("id = ? AND chart_id = ?", actionID, chartID).Take(&action).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}

		if action.Status == models.ActionStatusDone {
			action.Status = models.ActionStatusTodo
			action.CompletedAt = nil
		} else {
			now := s.now()
			action.Status = models.ActionStatusDone
			action.CompletedAt = &now
		}
		return tx.Model(&action).Updates(map[string]interface{}{
			"status":       action.Status,
			"completed_at": action.CompletedAt,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("toggling action: %w", err)
	}
	return &action, nil
}

// checkRefs verifies optional area and tension references point into the chart.
func (s *Service) checkRefs(tx *gorm.DB, chartID uuid.UUID, areaID, tensionID *uuid.UUID) error {
	if areaID != nil {
		var n int64
		if err := tx.Model(&models.Area{}).Where("id = ? AND chart_id = ?", *areaID, chartID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrAreaNotFound
		}
	}
	if tensionID != nil {
		var n int64
		if err := tx.Model(&models.Tension{}).Where("id = ? AND chart_id = ?", *tensionID, chartID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrItemNotFound
		}
	}
	return nil
}

func (s *Service) requireItem(tx *gorm.DB, chartID uuid.UUID, kind Kind, itemID uuid.UUID) error {
	var n int64
	if err := tx.Model(kind.newModel()).Where("id = ? AND chart_id = ?", itemID, chartID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *Service) getItem(ctx context.Context, chartID uuid.UUID, kind Kind, itemID uuid.UUID) (interface{}, error) {
	item := kind.newModel()
	if err := s.db.WithContext(ctx).Where("id = ? AND chart_id = ?", itemID, chartID).Take(item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func normalizeLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidLink
	}
	return u.String(), nil
}
