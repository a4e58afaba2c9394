package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
	"github.com/vnkhanh/code-review-backend/storage"
)

type CreateProjectInput struct {
	Title       string
	Description string
	Tags        []string
}

type UpdateProjectInput struct {
	Title       *string
	Description *string
	Tags        *[]string
}

type ProjectQuery struct {
	Status    models.ProjectStatus
	Tag       string
	StudentID *uuid.UUID
	Search    string
	SortBy    string
	SortDesc  bool
}

type ProjectService struct {
	store   repository.Store
	objects storage.ObjectStorage
	events  Kicker
	logger  *slog.Logger
	now     func() time.Time
}

func NewProjectService(store repository.Store, objects storage.ObjectStorage, events Kicker, logger *slog.Logger) *ProjectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectService{store: store, objects: objects, events: events, logger: logger, now: time.Now}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func displayName(ctx context.Context, store repository.Store, id uuid.UUID) string {
	u, err := store.GetUser(ctx, id)
	if err != nil || u.Name == "" {
		return "Someone"
	}
	return u.Name
}

// Create nộp project mới ở trạng thái pending và báo cho reviewer liên quan.
func (s *ProjectService) Create(ctx context.Context, actor Actor, in CreateProjectInput) (*models.Project, error) {
	if actor.Role != models.RoleStudent {
		return nil, Forbidden("only students can submit projects")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, BadRequest("title is required")
	}

	p := &models.Project{
		Title:       title,
		Description: in.Description,
		StudentID:   actor.UserID,
		Status:      models.ProjectPending,
		Tags:        normalizeTags(in.Tags),
		SubmittedAt: s.now(),
	}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.CreateProject(ctx, p); err != nil {
			return Internal("failed to create project", err)
		}
		content := fmt.Sprintf("%s submitted a new project %q", displayName(ctx, tx, actor.UserID), p.Title)
		if err := publish(ctx, tx, EventProjectSubmitted, EventPayload{ActorID: actor.UserID, ProjectID: p.ID, Content: content}); err != nil {
			return Internal("failed to record submission event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	kick(s.events)
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Project, error) {
	return loadProject(ctx, s.store, actor, id, accessView)
}

// List: học viên chỉ thấy project của mình, reviewer thấy project được giao, admin thấy tất cả.
func (s *ProjectService) List(ctx context.Context, actor Actor, q ProjectQuery, page repository.Page) ([]models.Project, int64, error) {
	f := repository.ProjectFilter{
		Status:   q.Status,
		Tag:      strings.ToLower(strings.TrimSpace(q.Tag)),
		Search:   q.Search,
		SortBy:   q.SortBy,
		SortDesc: q.SortDesc,
	}
	switch {
	case actor.IsAdmin():
		f.StudentID = q.StudentID
	case actor.Role == models.RoleReviewer:
		f.StudentID = q.StudentID
		f.ReviewerID = &actor.UserID
		cohorts, err := s.store.ListCohortsByReviewer(ctx, actor.UserID)
		if err != nil {
			return nil, 0, Internal("failed to list projects", err)
		}
		f.CohortIDs = cohorts
		active := true
		assigned, _, err := s.store.ListAssignments(ctx, repository.AssignmentFilter{
			ReviewerID: &actor.UserID,
			Kind:       models.TargetStudent,
			Active:     &active,
		}, repository.Page{})
		if err != nil {
			return nil, 0, Internal("failed to list projects", err)
		}
		for _, a := range assigned {
			f.ReviewedStudentIDs = append(f.ReviewedStudentIDs, a.Target.ID)
		}
	default:
		f.StudentID = &actor.UserID
	}

	list, total, err := s.store.ListProjects(ctx, f, page)
	if err != nil {
		return nil, 0, Internal("failed to list projects", err)
	}
	return list, total, nil
}

// Update sửa nội dung project; nếu đang revision_requested thì coi là nộp lại.
func (s *ProjectService) Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateProjectInput) (*models.Project, error) {
	var updated *models.Project
	resubmitted := false
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := loadProject(ctx, tx, actor, id, accessEdit)
		if err != nil {
			return err
		}
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return BadRequest("title is required")
			}
			p.Title = title
		}
		if in.Description != nil {
			p.Description = *in.Description
		}
		if in.Tags != nil {
			p.Tags = normalizeTags(*in.Tags)
		}
		if p.Status == models.ProjectRevisionRequested {
			p.Status = models.ProjectPending
			p.SubmittedAt = s.now()
			resubmitted = true
		}
		if err := tx.UpdateProject(ctx, p); err != nil {
			return Internal("failed to update project", err)
		}
		if resubmitted {
			content := fmt.Sprintf("%s resubmitted project %q", displayName(ctx, tx, actor.UserID), p.Title)
			if err := publish(ctx, tx, EventProjectSubmitted, EventPayload{ActorID: actor.UserID, ProjectID: p.ID, Content: content}); err != nil {
				return Internal("failed to record submission event", err)
			}
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if resubmitted {
		kick(s.events)
	}
	return updated, nil
}

// Delete xoá project cùng file, comment và assignment trỏ tới nó.
func (s *ProjectService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	var keys []string
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := loadProject(ctx, tx, actor, id, accessEdit)
		if err != nil {
			return err
		}
		files, err := tx.ListFilesByProject(ctx, p.ID)
		if err != nil {
			return Internal("failed to load project files", err)
		}
		for _, f := range files {
			keys = append(keys, f.StorageKey)
		}
		if err := tx.DeleteCommentsByProject(ctx, p.ID); err != nil {
			return Internal("failed to delete comments", err)
		}
		if err := deleteAssignmentsForTarget(ctx, tx, models.TargetProject, p.ID); err != nil {
			return Internal("failed to delete project assignments", err)
		}
		if err := tx.DeleteProject(ctx, p.ID); err != nil {
			return Internal("failed to delete project", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Xoá object sau khi commit, lỗi chỉ log lại
	for _, key := range keys {
		if s.objects == nil {
			break
		}
		if err := s.objects.Delete(ctx, key); err != nil {
			s.logger.Warn("delete stored object failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *ProjectService) SetStatus(ctx context.Context, actor Actor, id uuid.UUID, status models.ProjectStatus) (*models.Project, error) {
	if !status.Valid() {
		return nil, BadRequest("invalid project status")
	}
	var updated *models.Project
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := loadProject(ctx, tx, actor, id, accessReview)
		if err != nil {
			return err
		}
		p.Status = status
		if err := tx.UpdateProject(ctx, p); err != nil {
			return Internal("failed to update project status", err)
		}
		content := fmt.Sprintf("%s changed the status of %q to %s", displayName(ctx, tx, actor.UserID), p.Title, status)
		if err := publish(ctx, tx, EventProjectStatusChanged, EventPayload{ActorID: actor.UserID, ProjectID: p.ID, Content: content}); err != nil {
			return Internal("failed to record status event", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	kick(s.events)
	return updated, nil
}

// SetFeedback tạo hoặc sửa block feedback duy nhất của project.
func (s *ProjectService) SetFeedback(ctx context.Context, actor Actor, id uuid.UUID, text string) (*models.Project, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, BadRequest("feedback text is required")
	}
	var updated *models.Project
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := loadProject(ctx, tx, actor, id, accessReview)
		if err != nil {
			return err
		}
		now := s.now()
		if p.Feedback.WrittenAt == nil {
			p.Feedback.WrittenAt = &now
		} else {
			p.Feedback.EditedAt = &now
		}
		reviewerID := actor.UserID
		p.Feedback.Text = text
		p.Feedback.ReviewerID = &reviewerID
		if err := tx.UpdateProject(ctx, p); err != nil {
			return Internal("failed to save feedback", err)
		}
		content := fmt.Sprintf("%s left feedback on %q", displayName(ctx, tx, actor.UserID), p.Title)
		if err := publish(ctx, tx, EventProjectFeedback, EventPayload{ActorID: actor.UserID, ProjectID: p.ID, Content: content}); err != nil {
			return Internal("failed to record feedback event", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	kick(s.events)
	return updated, nil
}
