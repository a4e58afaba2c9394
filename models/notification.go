package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationProjectStatus NotificationType = "projectStatus"
	NotificationNewComment    NotificationType = "newComment"
	NotificationNewAssignment NotificationType = "newAssignment"
	NotificationNewSubmission NotificationType = "newSubmission"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationProjectStatus, NotificationNewComment, NotificationNewAssignment, NotificationNewSubmission:
		return true
	}
	return false
}

type ResourceKind string

const (
	ResourceProject    ResourceKind = "project"
	ResourceComment    ResourceKind = "comment"
	ResourceAssignment ResourceKind = "assignment"
	ResourceFile       ResourceKind = "file"
)

type RelatedResource struct {
	Kind ResourceKind `gorm:"type:varchar(20)" json:"kind"`
	ID   uuid.UUID    `gorm:"type:uuid" json:"id"`
}

type Notification struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RecipientID uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_event_recipient" json:"recipient_id"` // người nhận
	EventID     *uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_event_recipient" json:"-"`                           // outbox event tạo ra notification
	Type        NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Content     string           `gorm:"type:text;not null" json:"content"`
	Related     RelatedResource  `gorm:"embedded;embeddedPrefix:related_" json:"related"`
	IsRead      bool             `gorm:"index" json:"is_read"`
	EmailSent   bool             `json:"email_sent"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
}
