package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/permissions"
)

type Workspace struct {
	Base
	Name string `gorm:"not null" json:"name"`

	// Relationships
	Members []WorkspaceMember `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"-"`
	Charts  []Chart           `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Workspace) TableName() string {
	return "workspaces"
}

// WorkspaceMember is the (user, workspace, role) association. The composite
// primary key keeps a single membership per pair.
type WorkspaceMember struct {
	WorkspaceID uuid.UUID        `gorm:"type:uuid;primaryKey" json:"workspace_id"`
	UserID      uuid.UUID        `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	Role        permissions.Role `gorm:"type:varchar(16);not null" json:"role"`
	CreatedAt   time.Time        `json:"created_at"`

	Workspace *Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (WorkspaceMember) TableName() string {
	return "workspace_members"
}

// Invitation is a bearer code granting join rights at a fixed role until ExpiresAt.
type Invitation struct {
	Base
	Code        string           `gorm:"uniqueIndex;size:64;not null" json:"code"`
	WorkspaceID uuid.UUID        `gorm:"type:uuid;index;not null" json:"workspace_id"`
	Role        permissions.Role `gorm:"type:varchar(16);not null" json:"role"`
	Email       string           `json:"email,omitempty"`
	InvitedBy   uuid.UUID        `gorm:"type:uuid" json:"invited_by"`
	ExpiresAt   time.Time        `gorm:"index;not null" json:"expires_at"`

	Workspace *Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
}

func (Invitation) TableName() string {
	return "invitations"
}
