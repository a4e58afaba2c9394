// Package repository defines the persistence boundary used by the services.
// Two implementations exist: repository/postgres (GORM) and repository/memory.
package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Page là phân trang kiểu page/limit; Limit <= 0 nghĩa là không giới hạn.
type Page struct {
	Page  int
	Limit int
}

// Offset không bao giờ âm; page quá lớn bị chặn ở math.MaxInt thay vì tràn số.
func (p Page) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

type UserFilter struct {
	Role     models.UserRole
	CohortID *uuid.UUID
	Active   *bool
	Search   string
}

type CohortFilter struct {
	Active *bool
	Search string
}

type ProjectFilter struct {
	StudentID  *uuid.UUID
	ReviewerID *uuid.UUID // project có reviewer trong danh sách
	// Project của học viên thuộc các cohort này cũng được tính cho ReviewerID
	CohortIDs          []uuid.UUID
	ReviewedStudentIDs []uuid.UUID
	Status             models.ProjectStatus
	Tag                string
	Search             string
	SortBy             string // created_at | updated_at | title
	SortDesc           bool
}

type CommentFilter struct {
	ProjectID *uuid.UUID
	FileID    *uuid.UUID
}

type AssignmentFilter struct {
	ReviewerID *uuid.UUID
	Kind       models.TargetKind
	TargetID   *uuid.UUID
	Active     *bool
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByVerificationToken(ctx context.Context, hash string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, hash string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context, f UserFilter, p Page) ([]models.User, int64, error)
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type CohortStore interface {
	CreateCohort(ctx context.Context, c *models.Cohort) error
	GetCohort(ctx context.Context, id uuid.UUID) (*models.Cohort, error)
	UpdateCohort(ctx context.Context, c *models.Cohort) error
	DeleteCohort(ctx context.Context, id uuid.UUID) error
	ListCohorts(ctx context.Context, f CohortFilter, p Page) ([]models.Cohort, int64, error)
	ListCohortsByReviewer(ctx context.Context, reviewerID uuid.UUID) ([]uuid.UUID, error)
	AddCohortStudent(ctx context.Context, cohortID, userID uuid.UUID) error
	RemoveCohortStudent(ctx context.Context, cohortID, userID uuid.UUID) error
	AddCohortReviewer(ctx context.Context, cohortID, reviewerID uuid.UUID) error
	RemoveCohortReviewer(ctx context.Context, cohortID, reviewerID uuid.UUID) error
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
	ListProjects(ctx context.Context, f ProjectFilter, p Page) ([]models.Project, int64, error)
	AddProjectReviewer(ctx context.Context, projectID, reviewerID uuid.UUID) error
	RemoveProjectReviewer(ctx context.Context, projectID, reviewerID uuid.UUID) error
}

type FileStore interface {
	CreateFile(ctx context.Context, f *models.File) error
	GetFile(ctx context.Context, id uuid.UUID) (*models.File, error)
	ListFilesByProject(ctx context.Context, projectID uuid.UUID) ([]models.File, error)
	DeleteFile(ctx context.Context, id uuid.UUID) error
}

type CommentStore interface {
	CreateComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	UpdateComment(ctx context.Context, c *models.Comment) error
	DeleteComment(ctx context.Context, id uuid.UUID) error
	ListComments(ctx context.Context, f CommentFilter) ([]models.Comment, error)
	DeleteCommentsByProject(ctx context.Context, projectID uuid.UUID) error
	DeleteCommentsByFile(ctx context.Context, fileID uuid.UUID) error
	AddReply(ctx context.Context, r *models.CommentReply) error
	GetReply(ctx context.Context, id uuid.UUID) (*models.CommentReply, error)
	DeleteReply(ctx context.Context, id uuid.UUID) error
}

type AssignmentStore interface {
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	UpdateAssignment(ctx context.Context, a *models.Assignment) error
	DeleteAssignment(ctx context.Context, id uuid.UUID) error
	ListAssignments(ctx context.Context, f AssignmentFilter, p Page) ([]models.Assignment, int64, error)
	// FindActiveAssignment trả ErrNotFound khi chưa có assignment active cho cặp (reviewer, target).
	FindActiveAssignment(ctx context.Context, reviewerID uuid.UUID, target models.AssignmentTarget) (*models.Assignment, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListNotifications(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, p Page) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	MarkNotificationRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID) error
	DeleteNotification(ctx context.Context, id, recipientID uuid.UUID) error
}

type OutboxStore interface {
	EnqueueEvent(ctx context.Context, e *models.OutboxEvent) error
	ListPendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkEventProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkEventFailed(ctx context.Context, id uuid.UUID, reason string, giveUp bool) error
}

type Store interface {
	UserStore
	CohortStore
	ProjectStore
	FileStore
	CommentStore
	AssignmentStore
	NotificationStore
	OutboxStore

	// Transaction chạy fn trong một transaction; fn trả lỗi thì rollback toàn bộ.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
