package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidDateRange = errors.New("end date must be after start date")

type Cohort struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Slug        string    `gorm:"size:255;uniqueIndex" json:"slug"` // slug cho URL thân thiện
	Description string    `gorm:"type:text" json:"description"`
	StartDate   time.Time `gorm:"not null" json:"start_date"`
	EndDate     time.Time `gorm:"not null" json:"end_date"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Được nạp từ bảng cohort_students / cohort_reviewers
	StudentIDs  []uuid.UUID `gorm:"-" json:"student_ids"`
	ReviewerIDs []uuid.UUID `gorm:"-" json:"reviewer_ids"`
}

func (c *Cohort) ValidateDates() error {
	if !c.EndDate.After(c.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

type CohortStudent struct {
	CohortID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type CohortReviewer struct {
	CohortID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReviewerID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}
