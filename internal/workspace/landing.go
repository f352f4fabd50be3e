package workspace

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type LandingKind string

const (
	// LandingCreated: the user had no workspace and one was just created.
	LandingCreated LandingKind = "created"
	// LandingSingle: the user belongs to exactly one workspace.
	LandingSingle LandingKind = "single"
	// LandingPicker: the user belongs to several and must choose.
	LandingPicker LandingKind = "picker"
)

// Landing is where /workspaces sends a signed-in user.
type Landing struct {
	Kind        LandingKind         `json:"kind"`
	WorkspaceID uuid.UUID           `json:"workspace_id,omitempty"`
	Workspaces  []WorkspaceWithRole `json:"workspaces,omitempty"`
}

// ResolveLanding applies the routing policy: create when there is no
// workspace, redirect into a single one, otherwise show the picker.
func (s *Service) ResolveLanding(ctx context.Context, userID uuid.UUID) (Landing, error) {
	workspaces, err := s.listWorkspaces(ctx, userID)
	if err != nil {
		return Landing{}, fmt.Errorf("listing workspaces: %w", err)
	}

	switch len(workspaces) {
	case 0:
		id, err := s.GetOrCreateWorkspace(ctx, userID)
		if err != nil {
			return Landing{}, err
		}
		return Landing{Kind: LandingCreated, WorkspaceID: id}, nil
	case 1:
		return Landing{Kind: LandingSingle, WorkspaceID: workspaces[0].ID, Workspaces: workspaces}, nil
	default:
		landing := Landing{Kind: LandingPicker, Workspaces: workspaces}
		if id, ok := s.GetPreferredWorkspaceID(ctx, userID); ok {
			landing.WorkspaceID = id
		}
		return landing, nil
	}
}
