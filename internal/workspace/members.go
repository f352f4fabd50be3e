package workspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/permissions"
	"gorm.io/gorm"
)

// Member is a workspace member with the user's display fields.
type Member struct {
	UserID   uuid.UUID        `json:"user_id"`
	Name     string           `json:"name"`
	Email    string           `json:"email"`
	Role     permissions.Role `json:"role"`
	JoinedAt time.Time        `json:"joined_at"`
}

// GetMembership returns the user's membership, or ErrNotMember when there is
// none or the workspace is deleted.
func (s *Service) GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*models.WorkspaceMember, error) {
	var m models.WorkspaceMember
	err := s.activeMembers(ctx).
		Select("workspace_members.*").
		Where("workspace_members.workspace_id = ? AND workspace_members.user_id = ?", workspaceID, userID).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return &m, nil
}

// ListMembers returns members ordered by join time. Read failures are logged
// and yield an empty list.
func (s *Service) ListMembers(ctx context.Context, workspaceID uuid.UUID) []Member {
	var rows []Member
	err := s.db.WithContext(ctx).
		Table("workspace_members").
		Select("users.id AS user_id, users.name AS name, users.email AS email, workspace_members.role AS role, workspace_members.created_at AS joined_at").
		Joins("JOIN users ON users.id = workspace_members.user_id AND users.deleted_at IS NULL").
		Where("workspace_members.workspace_id = ?", workspaceID).
		Order("workspace_members.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		s.logger.Error("failed to list members", "workspace_id", workspaceID, "error", err)
		return []Member{}
	}
	if rows == nil {
		return []Member{}
	}
	return rows
}

func (s *Service) UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role permissions.Role) error {
	if !role.IsValid() {
		return permissions.ErrInvalidRole
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := memberRole(tx, workspaceID, userID)
		if err != nil {
			return err
		}
		if current == role {
			return nil
		}
		if current == permissions.RoleOwner {
			if err := ensureAnotherOwner(tx, workspaceID); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.WorkspaceMember{}).
			Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
			Update("role", role).Error; err != nil {
			return fmt.Errorf("updating member role: %w", err)
		}
		return nil
	})
}

func (s *Service) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := memberRole(tx, workspaceID, userID)
		if err != nil {
			return err
		}
		if current == permissions.RoleOwner {
			if err := ensureAnotherOwner(tx, workspaceID); err != nil {
				return err
			}
		}

		if err := tx.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
			Delete(&models.WorkspaceMember{}).Error; err != nil {
			return fmt.Errorf("removing member: %w", err)
		}

		// Drop a preference that now points at a workspace the user left.
		return tx.Model(&models.User{}).
			Where("id = ? AND preferred_workspace_id = ?", userID, workspaceID).
			Update("preferred_workspace_id", nil).Error
	})
}

func memberRole(tx *gorm.DB, workspaceID, userID uuid.UUID) (permissions.Role, error) {
	var m models.WorkspaceMember
	if err := tx.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotMember
		}
		return "", err
	}
	return m.Role, nil
}

func ensureAnotherOwner(tx *gorm.DB, workspaceID uuid.UUID) error {
	var owners int64
	if err := tx.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND role = ?", workspaceID, permissions.RoleOwner).
		Count(&owners).Error; err != nil {
		return err
	}
	if owners <= 1 {
		return ErrLastOwner
	}
	return nil
}
