package dto

import (
	"strings"
	"time"

	"github.com/hugh/zenshin-chart/internal/api/validation"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/permissions"
)

type WorkspaceRequest struct {
	Name string `json:"name"`
}

func (r WorkspaceRequest) Validate() map[string]string {
	errors := make(map[string]string)

	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		errors["name"] = "Name is required"
	case !validation.IsValidName(name):
		errors["name"] = "Name must be at most 100 characters"
	}

	return errors
}

type WorkspaceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewWorkspaceResponse(ws *models.Workspace, role permissions.Role) WorkspaceResponse {
	return WorkspaceResponse{
		ID:        ws.ID.String(),
		Name:      ws.Name,
		Role:      string(role),
		CreatedAt: ws.CreatedAt,
	}
}

type UpdateMemberRequest struct {
	Role string `json:"role"`
}

type CreateInvitationRequest struct {
	Role string `json:"role"`
}

type EmailInvitationRequest struct {
	Email  string `json:"email"`
	Role   string `json:"role"`
	Locale string `json:"locale,omitempty"`
}

func (r EmailInvitationRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Email is invalid"
	}
	if r.Role == "" {
		errors["role"] = "Role is required"
	}

	return errors
}

type InvitationResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	URL       string    `json:"url"`
	Role      string    `json:"role"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewInvitationResponse(inv *models.Invitation, baseURL string) InvitationResponse {
	return InvitationResponse{
		ID:        inv.ID.String(),
		Code:      inv.Code,
		URL:       InviteURL(baseURL, inv.Code),
		Role:      string(inv.Role),
		Email:     inv.Email,
		ExpiresAt: inv.ExpiresAt,
	}
}

// PublicInvitationResponse is what anyone holding a link may see. It never
// carries the invitee's address.
type PublicInvitationResponse struct {
	Code          string    `json:"code"`
	WorkspaceName string    `json:"workspace_name"`
	Role          string    `json:"role"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// InviteURL is the public join page for code.
func InviteURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/invite/" + code
}
