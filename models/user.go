package models

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleStudent    UserRole = "student"    // Học viên nộp project
	RoleReviewer   UserRole = "reviewer"   // Người review code
	RoleAdmin      UserRole = "admin"      // Quản trị cohort, assignment
	RoleSuperAdmin UserRole = "superadmin" // Tài khoản gốc, tạo admin
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleReviewer, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin đúng cho cả admin và superadmin.
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// NotificationPreferences là ma trận bật/tắt email và in-app theo từng loại thông báo.
type NotificationPreferences struct {
	EmailProjectStatus bool `json:"email_project_status"`
	EmailNewComment    bool `json:"email_new_comment"`
	EmailNewAssignment bool `json:"email_new_assignment"`
	EmailNewSubmission bool `json:"email_new_submission"`

	InAppProjectStatus bool `json:"in_app_project_status"`
	InAppNewComment    bool `json:"in_app_new_comment"`
	InAppNewAssignment bool `json:"in_app_new_assignment"`
	InAppNewSubmission bool `json:"in_app_new_submission"`
}

func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		EmailProjectStatus: true,
		EmailNewComment:    true,
		EmailNewAssignment: true,
		EmailNewSubmission: true,
		InAppProjectStatus: true,
		InAppNewComment:    true,
		InAppNewAssignment: true,
		InAppNewSubmission: true,
	}
}

func (p NotificationPreferences) EmailEnabled(t NotificationType) bool {
	switch t {
	case NotificationProjectStatus:
		return p.EmailProjectStatus
	case NotificationNewComment:
		return p.EmailNewComment
	case NotificationNewAssignment:
		return p.EmailNewAssignment
	case NotificationNewSubmission:
		return p.EmailNewSubmission
	}
	return false
}

func (p NotificationPreferences) InAppEnabled(t NotificationType) bool {
	switch t {
	case NotificationProjectStatus:
		return p.InAppProjectStatus
	case NotificationNewComment:
		return p.InAppNewComment
	case NotificationNewAssignment:
		return p.InAppNewAssignment
	case NotificationNewSubmission:
		return p.InAppNewSubmission
	}
	return false
}

type User struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name     string     `gorm:"size:150;not null" json:"name"`
	Email    string     `gorm:"size:150;uniqueIndex;not null" json:"email"`
	Password string     `gorm:"type:text" json:"-"`
	Role     UserRole   `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
	CohortID *uuid.UUID `gorm:"type:uuid;index" json:"cohort_id,omitempty"`

	IsActive   bool `json:"is_active"`
	IsVerified bool `json:"is_verified"`

	// Token chỉ lưu dạng hash sha256
	VerificationTokenHash string     `gorm:"size:64;index" json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	ResetTokenHash        string     `gorm:"size:64;index" json:"-"`
	ResetExpiresAt        *time.Time `json:"-"`

	Preferences NotificationPreferences `gorm:"embedded;embeddedPrefix:pref_" json:"notification_preferences"`

	ProfilePicture string     `gorm:"size:500" json:"profile_picture,omitempty"`
	Bio            string     `gorm:"type:text" json:"bio,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
