package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateChartRequest struct {
	Title   string     `json:"title"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

// UpdateChartRequest fields are optional. An explicit "clear_due_date"
// removes the due date.
type UpdateChartRequest struct {
	Title        *string    `json:"title,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ClearDueDate bool       `json:"clear_due_date,omitempty"`
	Status       *string    `json:"status,omitempty"`
}

type AreaRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type AreaPatchRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

type ReorderAreasRequest struct {
	AreaIDs []uuid.UUID `json:"area_ids"`
}

type ItemRequest struct {
	Content    string     `json:"content,omitempty"`
	Title      string     `json:"title,omitempty"`
	AreaID     *uuid.UUID `json:"area_id,omitempty"`
	TensionID  *uuid.UUID `json:"tension_id,omitempty"`
	AssigneeID *uuid.UUID `json:"assignee_id,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	Status     string     `json:"status,omitempty"`
	LinkURL    string     `json:"link_url,omitempty"`
}

type ItemPatchRequest struct {
	Content       *string    `json:"content,omitempty"`
	Title         *string    `json:"title,omitempty"`
	AreaID        *uuid.UUID `json:"area_id,omitempty"`
	ClearArea     bool       `json:"clear_area,omitempty"`
	TensionID     *uuid.UUID `json:"tension_id,omitempty"`
	ClearTension  bool       `json:"clear_tension,omitempty"`
	AssigneeID    *uuid.UUID `json:"assignee_id,omitempty"`
	ClearAssignee bool       `json:"clear_assignee,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	ClearDueDate  bool       `json:"clear_due_date,omitempty"`
	Status        *string    `json:"status,omitempty"`
	LinkURL       *string    `json:"link_url,omitempty"`
	SortOrder     *int       `json:"sort_order,omitempty"`
}

type CommentRequest struct {
	Body string `json:"body"`
}

type ExportResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}
