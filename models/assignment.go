package models

import (
	"time"

	"github.com/google/uuid"
)

type TargetKind string

const (
	TargetCohort  TargetKind = "cohort"
	TargetStudent TargetKind = "student"
	TargetProject TargetKind = "project"
)

func (k TargetKind) Valid() bool {
	switch k {
	case TargetCohort, TargetStudent, TargetProject:
		return true
	}
	return false
}

// AssignmentTarget trỏ tới cohort, student hoặc project tuỳ Kind.
type AssignmentTarget struct {
	Kind TargetKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_active_assignment,where:is_active = true" json:"kind"`
	ID   uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_active_assignment,where:is_active = true" json:"id"`
}

// REVIEWER ASSIGNMENT
type Assignment struct {
	ID         uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReviewerID uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_active_assignment,where:is_active = true" json:"reviewer_id"`
	Target     AssignmentTarget `gorm:"embedded;embeddedPrefix:target_" json:"target"`
	CreatedBy  uuid.UUID        `gorm:"type:uuid;not null" json:"created_by"`
	IsActive   bool             `gorm:"index" json:"is_active"`
	Notes      string           `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}
