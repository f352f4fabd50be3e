package charts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/pkg/util"
	"gorm.io/gorm"
)

// CommentResult is a stored comment plus the workspace members it mentions.
type CommentResult struct {
	Comment   *models.Comment `json:"comment"`
	Mentioned []uuid.UUID     `json:"mentioned"`
}

func (s *Service) ListComments(ctx context.Context, workspaceID, chartID uuid.UUID) ([]models.Comment, error) {
	db := s.db.WithContext(ctx)
	if err := s.requireChart(db, workspaceID, chartID); err != nil {
		return nil, err
	}

	var comments []models.Comment
	if err := db.Preload("Author").
		Where("chart_id = ?", chartID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		s.logger.Error("failed to list comments", "chart_id", chartID, "error", err)
		return []models.Comment{}, nil
	}
	return comments, nil
}

// CreateComment stores body as written. Mentions of users outside the
// workspace are kept in the text but not reported.
func (s *Service) CreateComment(ctx context.Context, workspaceID, chartID, authorID uuid.UUID, body string) (*CommentResult, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyContent
	}

	comment := models.Comment{ChartID: chartID, AuthorID: authorID, Body: body}
	var mentioned []uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireChart(tx, workspaceID, chartID); err != nil {
			return err
		}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}

		var err error
		mentioned, err = memberMentions(tx, workspaceID, body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	if mentioned == nil {
		mentioned = []uuid.UUID{}
	}
	return &CommentResult{Comment: &comment, Mentioned: mentioned}, nil
}

func memberMentions(tx *gorm.DB, workspaceID uuid.UUID, body string) ([]uuid.UUID, error) {
	var candidates []uuid.UUID
	for _, raw := range util.MentionedUserIDs(body) {
		if id, err := uuid.Parse(raw); err == nil {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var members []uuid.UUID
	if err := tx.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id IN ?", workspaceID, candidates).
		Pluck("user_id", &members).Error; err != nil {
		return nil, err
	}

	// Keep the order in which they were mentioned.
	isMember := make(map[uuid.UUID]bool, len(members))
	for _, id := range members {
		isMember[id] = true
	}
	var out []uuid.UUID
	for _, id := range candidates {
		if isMember[id] {
			out = append(out, id)
		}
	}
	return out, nil
}
