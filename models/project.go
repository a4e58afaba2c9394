package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ProjectStatus string

const (
	ProjectPending           ProjectStatus = "pending"
	ProjectAccepted          ProjectStatus = "accepted"
	ProjectRevisionRequested ProjectStatus = "revision_requested"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPending, ProjectAccepted, ProjectRevisionRequested:
		return true
	}
	return false
}

// ProjectFeedback là block nhận xét duy nhất của project, rỗng khi ReviewerID nil.
type ProjectFeedback struct {
	Text       string     `gorm:"type:text" json:"text"`
	ReviewerID *uuid.UUID `gorm:"type:uuid" json:"reviewer_id"`
	WrittenAt  *time.Time `json:"created_at"`
	EditedAt   *time.Time `json:"updated_at"`
}

type Project struct {
	ID          uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string                      `gorm:"size:255;not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	StudentID   uuid.UUID                   `gorm:"type:uuid;not null;index" json:"student_id"`
	Status      ProjectStatus               `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Feedback    ProjectFeedback             `gorm:"embedded;embeddedPrefix:feedback_" json:"feedback"`
	SubmittedAt time.Time                   `json:"submitted_at"`
	CreatedAt   time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`

	ReviewerIDs []uuid.UUID `gorm:"-" json:"reviewer_ids"`
	FileIDs     []uuid.UUID `gorm:"-" json:"file_ids"`
}

func (p *Project) HasReviewer(id uuid.UUID) bool {
	for _, r := range p.ReviewerIDs {
		if r == id {
			return true
		}
	}
	return false
}

type ProjectReviewer struct {
	ProjectID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReviewerID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}
