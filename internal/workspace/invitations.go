package workspace

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/permissions"
	"gorm.io/gorm"
)

// InvitationTTL is how long an invitation code stays valid.
const InvitationTTL = 7 * 24 * time.Hour

// User-facing JoinResult.Error values.
const (
	JoinMessageInvalid = "This invitation link is invalid or has expired."
	JoinMessageFailed  = "Could not join the workspace. Please try again."
)

var (
	ErrInvitationNotFound = errors.New("invitation not found or expired")
	ErrRoleNotInvitable   = errors.New("role cannot be granted by this inviter")
)

type CreateInvitationInput struct {
	WorkspaceID uuid.UUID
	InvitedBy   uuid.UUID
	InviterRole permissions.Role
	Role        permissions.Role
	Email       string
}

// InvitationView is what an invitee sees before joining.
type InvitationView struct {
	ID            uuid.UUID        `json:"id"`
	Code          string           `json:"code"`
	WorkspaceID   uuid.UUID        `json:"workspace_id"`
	WorkspaceName string           `json:"workspace_name"`
	Role          permissions.Role `json:"role"`
	Email         string           `json:"email,omitempty"`
	ExpiresAt     time.Time        `json:"expires_at"`
}

// JoinResult reports the outcome of accepting an invitation. Error carries a
// user-facing message when Success is false.
type JoinResult struct {
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	WorkspaceID   uuid.UUID `json:"workspace_id,omitempty"`
	AlreadyMember bool      `json:"already_member,omitempty"`
}

func (s *Service) CreateInvitation(ctx context.Context, input CreateInvitationInput) (*models.Invitation, error) {
	if !input.Role.IsValid() {
		return nil, permissions.ErrInvalidRole
	}
	if !permissions.CanGrant(input.InviterRole, input.Role) {
		return nil, ErrRoleNotInvitable
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generating invitation code: %w", err)
	}

	inv := models.Invitation{
		Code:        code,
		WorkspaceID: input.WorkspaceID,
		Role:        input.Role,
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		InvitedBy:   input.InvitedBy,
		ExpiresAt:   s.now().Add(InvitationTTL),
	}
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return nil, fmt.Errorf("creating invitation: %w", err)
	}

	s.metrics.InvitationsCreated.WithLabelValues(string(inv.Role)).Inc()
	return &inv, nil
}

// GetInvitationByCode resolves a code. Missing and expired invitations are
// both reported as not found.
func (s *Service) GetInvitationByCode(ctx context.Context, code string) (*InvitationView, bool) {
	inv, err := s.findValidInvitation(s.db.WithContext(ctx), code)
	if err != nil {
		if !errors.Is(err, ErrInvitationNotFound) {
			s.logger.Error("failed to read invitation", "error", err)
		}
		return nil, false
	}

	view := &InvitationView{
		ID:          inv.ID,
		Code:        inv.Code,
		WorkspaceID: inv.WorkspaceID,
		Role:        inv.Role,
		Email:       inv.Email,
		ExpiresAt:   inv.ExpiresAt,
	}
	if inv.Workspace != nil {
		view.WorkspaceName = inv.Workspace.Name
	}
	return view, true
}

func (s *Service) findValidInvitation(tx *gorm.DB, code string) (*models.Invitation, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvitationNotFound
	}

	var inv models.Invitation
	err := tx.Preload("Workspace").
		Where("code = ? AND expires_at > ?", code, s.now()).
		Take(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	// The workspace may have been deleted after the link was issued.
	if inv.Workspace == nil {
		return nil, ErrInvitationNotFound
	}
	return &inv, nil
}

// JoinWorkspaceByInvite adds the user to the invitation's workspace at the
// invitation's role. The code stays valid for other users until it expires.
func (s *Service) JoinWorkspaceByInvite(ctx context.Context, userID uuid.UUID, code string) JoinResult {
	var result JoinResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.findValidInvitation(tx, code)
		if err != nil {
			return err
		}
		result.WorkspaceID = inv.WorkspaceID

		_, err = memberRole(tx, inv.WorkspaceID, userID)
		switch {
		case err == nil:
			result.AlreadyMember = true
		case errors.Is(err, ErrNotMember):
			if err := tx.Create(&models.WorkspaceMember{
				WorkspaceID: inv.WorkspaceID,
				UserID:      userID,
				Role:        inv.Role,
			}).Error; err != nil {
				return fmt.Errorf("creating membership: %w", err)
			}
		default:
			return err
		}

		return setPreferred(tx, userID, inv.WorkspaceID)
	})

	switch {
	case err == nil:
		result.Success = true
		if result.AlreadyMember {
			s.metrics.InvitationsAccepted.WithLabelValues("already_member").Inc()
		} else {
			s.metrics.InvitationsAccepted.WithLabelValues("joined").Inc()
			s.logger.Info("user joined workspace", "workspace_id", result.WorkspaceID, "user_id", userID)
		}
	case errors.Is(err, ErrInvitationNotFound):
		s.metrics.InvitationsAccepted.WithLabelValues("invalid").Inc()
		result = JoinResult{Error: JoinMessageInvalid}
	default:
		s.metrics.InvitationsAccepted.WithLabelValues("error").Inc()
		s.logger.Error("failed to join workspace", "user_id", userID, "error", err)
		result = JoinResult{Error: JoinMessageFailed}
	}
	return result
}

// ListInvitations returns the workspace's unexpired invitations, newest first.
func (s *Service) ListInvitations(ctx context.Context, workspaceID uuid.UUID) []models.Invitation {
	var invs []models.Invitation
	if err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND expires_at > ?", workspaceID, s.now()).
		Order("created_at DESC").
		Find(&invs).Error; err != nil {
		s.logger.Error("failed to list invitations", "workspace_id", workspaceID, "error", err)
		return []models.Invitation{}
	}
	return invs
}

func (s *Service) RevokeInvitation(ctx context.Context, workspaceID, invitationID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", invitationID, workspaceID).
		Delete(&models.Invitation{})
	if res.Error != nil {
		return fmt.Errorf("revoking invitation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

// PurgeExpiredInvitations hard deletes invitations that expired more than
// olderThan ago. Expiry is still enforced on every read.
func (s *Service) PurgeExpiredInvitations(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	res := s.db.WithContext(ctx).Unscoped().
		Where("expires_at <= ?", cutoff).
		Delete(&models.Invitation{})
	if res.Error != nil {
		return 0, fmt.Errorf("purging invitations: %w", res.Error)
	}

	s.metrics.InvitationsPurged.Add(float64(res.RowsAffected))
	return res.RowsAffected, nil
}

// generateCode returns 32 URL-safe characters from 24 random bytes.
func generateCode() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
