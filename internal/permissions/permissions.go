// Package permissions holds the workspace role model. Every predicate is a pure
// function of the role; there are no per-resource ACLs.
package permissions

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleOwner      Role = "owner"
	RoleConsultant Role = "consultant"
	RoleEditor     Role = "editor"
	RoleViewer     Role = "viewer"
)

var ErrInvalidRole = errors.New("invalid role")

// AllRoles lists the roles in descending order of privilege.
var AllRoles = []Role{RoleOwner, RoleConsultant, RoleEditor, RoleViewer}

func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleConsultant, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts only the four known roles.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

func CanCreateChart(role Role) bool {
	return role == RoleOwner || role == RoleConsultant
}

// CanDeleteChart follows the create allow-list.
func CanDeleteChart(role Role) bool {
	return CanCreateChart(role)
}

// CanEditContent covers visions, realities, tensions, actions and areas.
func CanEditContent(role Role) bool {
	return role == RoleOwner || role == RoleConsultant || role == RoleEditor
}

func CanComment(role Role) bool {
	return role.IsValid()
}

func CanManageMembers(role Role) bool {
	return role == RoleOwner
}

func CanInviteMembers(role Role) bool {
	return role == RoleOwner
}

func CanRemoveMembers(role Role) bool {
	return role == RoleOwner
}

func CanGenerateInviteLink(role Role) bool {
	return role == RoleOwner || role == RoleEditor
}

func CanManageWorkspace(role Role) bool {
	return role == RoleOwner
}

// InvitableRoles returns the roles an inviter may hand out. Owner is never
// granted through an invitation.
func InvitableRoles(inviter Role) []Role {
	switch inviter {
	case RoleOwner:
		return []Role{RoleConsultant, RoleEditor, RoleViewer}
	case RoleEditor:
		return []Role{RoleEditor, RoleViewer}
	default:
		return nil
	}
}

// CanGrant reports whether inviter may issue an invitation for target.
func CanGrant(inviter, target Role) bool {
	for _, r := range InvitableRoles(inviter) {
		if r == target {
			return true
		}
	}
	return false
}
