package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/permissions"
	"github.com/hugh/zenshin-chart/pkg/metrics"
	"gorm.io/gorm"
)

var (
	ErrEmptyName         = errors.New("workspace name is required")
	ErrNotMember         = errors.New("user is not a member of this workspace")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrLastOwner         = errors.New("workspace must keep at least one owner")
)

const (
	originExplicit   = "explicit"
	originFirstLogin = "first_login"
)

// WorkspaceWithRole is a membership row joined to its workspace, annotated
// with the caller's role.
type WorkspaceWithRole struct {
	ID       uuid.UUID        `json:"id"`
	Name     string           `json:"name"`
	Role     permissions.Role `json:"role"`
	JoinedAt time.Time        `json:"joined_at"`
}

type Service struct {
	db          *gorm.DB
	logger      *slog.Logger
	metrics     *metrics.Metrics
	defaultName string
	now         func() time.Time
}

func NewService(db *gorm.DB, logger *slog.Logger, m *metrics.Metrics, defaultName string) *Service {
	if defaultName == "" {
		defaultName = "My Workspace"
	}
	return &Service{
		db:          db,
		logger:      logger,
		metrics:     m,
		defaultName: defaultName,
		now:         time.Now,
	}
}

// activeMembers scopes workspace_members to workspaces that are not deleted.
func (s *Service) activeMembers(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("workspace_members").
		Joins("JOIN workspaces ON workspaces.id = workspace_members.workspace_id AND workspaces.deleted_at IS NULL")
}

func (s *Service) listWorkspaces(ctx context.Context, userID uuid.UUID) ([]WorkspaceWithRole, error) {
	var rows []WorkspaceWithRole
	err := s.activeMembers(ctx).
		Select("workspaces.id AS id, workspaces.name AS name, workspace_members.role AS role, workspace_members.created_at AS joined_at").
		Where("workspace_members.user_id = ?", userID).
		Order("workspace_members.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetUserWorkspaces lists every workspace the user belongs to, oldest
// membership first. Read failures are logged and yield an empty list.
func (s *Service) GetUserWorkspaces(ctx context.Context, userID uuid.UUID) []WorkspaceWithRole {
	rows, err := s.listWorkspaces(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list workspaces", "user_id", userID, "error", err)
		return []WorkspaceWithRole{}
	}
	if rows == nil {
		return []WorkspaceWithRole{}
	}
	return rows
}

// GetPreferredWorkspaceID returns the stored preference while the user is
// still a member of it.
func (s *Service) GetPreferredWorkspaceID(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "preferred_workspace_id").
		First(&user, "id = ?", userID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("failed to read preferred workspace", "user_id", userID, "error", err)
		}
		return uuid.Nil, false
	}
	if user.PreferredWorkspaceID == nil {
		return uuid.Nil, false
	}

	if _, err := s.GetMembership(ctx, *user.PreferredWorkspaceID, userID); err != nil {
		if !errors.Is(err, ErrNotMember) {
			s.logger.Error("failed to verify preferred workspace", "user_id", userID, "error", err)
		}
		return uuid.Nil, false
	}
	return *user.PreferredWorkspaceID, true
}

func (s *Service) SetPreferredWorkspace(ctx context.Context, userID, workspaceID uuid.UUID) error {
	if _, err := s.GetMembership(ctx, workspaceID, userID); err != nil {
		return err
	}
	return setPreferred(s.db.WithContext(ctx), userID, workspaceID)
}

func setPreferred(tx *gorm.DB, userID, workspaceID uuid.UUID) error {
	if err := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("preferred_workspace_id", workspaceID).Error; err != nil {
		return fmt.Errorf("saving preferred workspace: %w", err)
	}
	return nil
}

// GetOrCreateWorkspace returns the workspace a user should land in, creating
// a default one owned by the user when they have none. Two concurrent first
// calls for the same user can each create a workspace.
func (s *Service) GetOrCreateWorkspace(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	workspaces, err := s.listWorkspaces(ctx, userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("listing workspaces: %w", err)
	}

	if len(workspaces) == 0 {
		ws, err := s.create(ctx, userID, s.defaultName, originFirstLogin)
		if err != nil {
			return uuid.Nil, err
		}
		return ws.ID, nil
	}

	if id, ok := s.GetPreferredWorkspaceID(ctx, userID); ok {
		return id, nil
	}
	return workspaces[0].ID, nil
}

// CreateWorkspace creates a named workspace with the user as owner.
func (s *Service) CreateWorkspace(ctx context.Context, userID uuid.UUID, name string) (*models.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return s.create(ctx, userID, name, originExplicit)
}

func (s *Service) create(ctx context.Context, userID uuid.UUID, name, origin string) (*models.Workspace, error) {
	ws := models.Workspace{Name: name}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ws).Error; err != nil {
			return err
		}
		return tx.Create(&models.WorkspaceMember{
			WorkspaceID: ws.ID,
			UserID:      userID,
			Role:        permissions.RoleOwner,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	s.metrics.WorkspacesCreated.WithLabelValues(origin).Inc()
	s.logger.Info("workspace created", "workspace_id", ws.ID, "user_id", userID, "origin", origin)
	return &ws, nil
}

func (s *Service) GetWorkspace(ctx context.Context, workspaceID uuid.UUID) (*models.Workspace, error) {
	var ws models.Workspace
	if err := s.db.WithContext(ctx).First(&ws, "id = ?", workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, err
	}
	return &ws, nil
}

func (s *Service) RenameWorkspace(ctx context.Context, workspaceID uuid.UUID, name string) (*models.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	res := s.db.WithContext(ctx).Model(&models.Workspace{}).
		Where("id = ?", workspaceID).
		Update("name", name)
	if res.Error != nil {
		return nil, fmt.Errorf("renaming workspace: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrWorkspaceNotFound
	}
	return s.GetWorkspace(ctx, workspaceID)
}

// DeleteWorkspace soft deletes the workspace. Memberships stay behind but
// are filtered out of every lookup.
func (s *Service) DeleteWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Workspace{}, "id = ?", workspaceID)
	if res.Error != nil {
		return fmt.Errorf("deleting workspace: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrWorkspaceNotFound
	}
	return nil
}
