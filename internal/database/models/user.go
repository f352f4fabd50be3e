package models

import "github.com/google/uuid"

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	// Stored preferences
	Locale               string     `gorm:"size:8" json:"locale,omitempty"`
	PreferredWorkspaceID *uuid.UUID `gorm:"type:uuid" json:"preferred_workspace_id,omitempty"`

	// Set for accounts created through the external identity provider
	AuthProvider string `gorm:"size:32" json:"-"`
	ExternalID   string `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
