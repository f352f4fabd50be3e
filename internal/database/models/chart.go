package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/pkg/util"
	"gorm.io/gorm"
)

type ChartStatus string

const (
	ChartStatusActive    ChartStatus = "active"
	ChartStatusCompleted ChartStatus = "completed"
	ChartStatusArchived  ChartStatus = "archived"
)

func (s ChartStatus) IsValid() bool {
	return s == ChartStatusActive || s == ChartStatusCompleted || s == ChartStatusArchived
}

type TensionStatus string

const (
	TensionStatusActive   TensionStatus = "active"
	TensionStatusResolved TensionStatus = "resolved"
)

type ActionStatus string

const (
	ActionStatusTodo       ActionStatus = "todo"
	ActionStatusInProgress ActionStatus = "in_progress"
	ActionStatusDone       ActionStatus = "done"
)

func (s ActionStatus) IsValid() bool {
	return s == ActionStatusTodo || s == ActionStatusInProgress || s == ActionStatusDone
}

// Chart is the root aggregate for a structural tension chart. Children are
// removed with it by the store.
type Chart struct {
	Base
	WorkspaceID uuid.UUID   `gorm:"type:uuid;index;not null" json:"workspace_id"`
	Title       string      `gorm:"not null" json:"title"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Status      ChartStatus `gorm:"type:varchar(16);default:'active'" json:"status"`
	CreatedBy   uuid.UUID   `gorm:"type:uuid" json:"created_by"`

	// Relationships
	Areas     []Area    `gorm:"foreignKey:ChartID;constraint:OnDelete:CASCADE" json:"areas,omitempty"`
	Visions   []Vision  `gorm:"foreignKey:ChartID;constraint:OnDelete:CASCADE" json:"visions,omitempty"`
	Realities []Reality `gorm:"foreignKey:ChartID;constraint:OnDelete:CASCADE" json:"realities,omitempty"`
	Tensions  []Tension `gorm:"foreignKey:ChartID;constraint:OnDelete:CASCADE" json:"tensions,omitempty"`
	Actions   []Action  `gorm:"foreignKey:ChartID;constraint:OnDelete:CASCADE" json:"actions,omitempty"`
	Comments  []Comment `gorm:"foreignKey:ChartID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

func (Chart) TableName() string {
	return "charts"
}

// Area is a user-defined category with a manually maintained ordering.
type Area struct {
	Base
	ChartID   uuid.UUID `gorm:"type:uuid;index;not null" json:"chart_id"`
	Name      string    `gorm:"not null" json:"name"`
	Color     string    `gorm:"size:7" json:"color"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
}

func (Area) TableName() string {
	return "areas"
}

type Vision struct {
	Base
	ChartID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"chart_id"`
	AreaID    *uuid.UUID `gorm:"type:uuid" json:"area_id,omitempty"`
	Content   string     `gorm:"not null" json:"content"`
	SortOrder int        `gorm:"not null;default:0" json:"sort_order"`
}

func (Vision) TableName() string {
	return "visions"
}

type Reality struct {
	Base
	ChartID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"chart_id"`
	AreaID    *uuid.UUID `gorm:"type:uuid" json:"area_id,omitempty"`
	Content   string     `gorm:"not null" json:"content"`
	SortOrder int        `gorm:"not null;default:0" json:"sort_order"`
}

func (Reality) TableName() string {
	return "realities"
}

type Tension struct {
	Base
	ChartID   uuid.UUID     `gorm:"type:uuid;index;not null" json:"chart_id"`
	AreaID    *uuid.UUID    `gorm:"type:uuid" json:"area_id,omitempty"`
	Title     string        `gorm:"not null" json:"title"`
	Status    TensionStatus `gorm:"type:varchar(16);default:'active'" json:"status"`
	SortOrder int           `gorm:"not null;default:0" json:"sort_order"`
}

func (Tension) TableName() string {
	return "tensions"
}

type Action struct {
	Base
	ChartID     uuid.UUID    `gorm:"type:uuid;index;not null" json:"chart_id"`
	TensionID   *uuid.UUID   `gorm:"type:uuid;index" json:"tension_id,omitempty"`
	Title       string       `gorm:"not null" json:"title"`
	AssigneeID  *uuid.UUID   `gorm:"type:uuid" json:"assignee_id,omitempty"`
	DueDate     *time.Time   `gorm:"index" json:"due_date,omitempty"`
	Status      ActionStatus `gorm:"type:varchar(16);default:'todo'" json:"status"`
	CompletedAt *time.Time   `gorm:"index" json:"completed_at,omitempty"`
	LinkURL     string       `json:"link_url,omitempty"`
	SortOrder   int          `gorm:"not null;default:0" json:"sort_order"`

	// Derived from LinkURL, not stored.
	LinkService string `gorm:"-" json:"link_service,omitempty"`
}

func (Action) TableName() string {
	return "actions"
}

func (a *Action) AfterFind(tx *gorm.DB) error {
	a.fillLinkService()
	return nil
}

func (a *Action) AfterSave(tx *gorm.DB) error {
	a.fillLinkService()
	return nil
}

func (a *Action) fillLinkService() {
	if a.LinkURL == "" {
		a.LinkService = ""
		return
	}
	a.LinkService = util.DetectService(a.LinkURL)
}

// Comment bodies may carry mention markup, see util.ExtractMentions.
type Comment struct {
	Base
	ChartID  uuid.UUID `gorm:"type:uuid;index;not null" json:"chart_id"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Body     string    `gorm:"not null" json:"body"`

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

func (Comment) TableName() string {
	return "comments"
}
