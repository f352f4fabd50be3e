package dto

import (
	"strings"

	"github.com/hugh/zenshin-chart/internal/api/validation"
	"github.com/hugh/zenshin-chart/internal/database/models"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Locale   string `json:"locale,omitempty"`
}

func (r RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Email is invalid"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if len(r.Password) < 8 {
		errors["password"] = "Password must be at least 8 characters"
	}
	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type UserDTO struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
	Locale               string `json:"locale,omitempty"`
	PreferredWorkspaceID string `json:"preferred_workspace_id,omitempty"`
}

func NewUserDTO(u *models.User) UserDTO {
	out := UserDTO{
		ID:     u.ID.String(),
		Email:  u.Email,
		Name:   u.Name,
		Locale: u.Locale,
	}
	if u.PreferredWorkspaceID != nil {
		out.PreferredWorkspaceID = u.PreferredWorkspaceID.String()
	}
	return out
}

type UpdateLocaleRequest struct {
	Locale string `json:"locale"`
}

type PreferredWorkspaceRequest struct {
	WorkspaceID string `json:"workspace_id"`
}
