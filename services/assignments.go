package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

type CreateAssignmentInput struct {
	ReviewerID uuid.UUID
	Target     models.AssignmentTarget
	Notes      string
}

type UpdateAssignmentInput struct {
	IsActive *bool
	Notes    *string
}

// AssignmentService giữ danh sách reviewer trên Cohort/Project khớp với các
// assignment đang active. Mọi ghi của một thao tác nằm trong một transaction.
type AssignmentService struct {
	store  repository.Store
	events Kicker
	logger *slog.Logger
}

func NewAssignmentService(store repository.Store, events Kicker, logger *slog.Logger) *AssignmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssignmentService{store: store, events: events, logger: logger}
}

func (s *AssignmentService) Create(ctx context.Context, actor Actor, in CreateAssignmentInput) (*models.Assignment, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("only admins can create assignments")
	}
	if !in.Target.Kind.Valid() {
		return nil, BadRequest("invalid target kind")
	}

	var created *models.Assignment
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		reviewer, err := tx.GetUser(ctx, in.ReviewerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NotFound("reviewer not found")
			}
			return Internal("failed to load reviewer", err)
		}
		if reviewer.Role != models.RoleReviewer && reviewer.Role != models.RoleAdmin {
			return BadRequest("invalid reviewer role")
		}

		targetName, err := resolveTarget(ctx, tx, in.Target)
		if err != nil {
			return err
		}

		if _, err := tx.FindActiveAssignment(ctx, in.ReviewerID, in.Target); err == nil {
			return Conflict("reviewer is already assigned to this target")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return Internal("failed to check existing assignment", err)
		}

		a := &models.Assignment{
			ReviewerID: in.ReviewerID,
			Target:     in.Target,
			CreatedBy:  actor.UserID,
			IsActive:   true,
			Notes:      in.Notes,
		}
		if err := tx.CreateAssignment(ctx, a); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return Conflict("reviewer is already assigned to this target")
			}
			return Internal("failed to create assignment", err)
		}
		if err := addReviewer(ctx, tx, a); err != nil {
			return Internal("failed to update reviewer list", err)
		}

		content := fmt.Sprintf("You have been assigned to review %s %s", a.Target.Kind, targetName)
		if err := publish(ctx, tx, EventAssignmentCreated, EventPayload{
			ActorID:      actor.UserID,
			AssignmentID: a.ID,
			ReviewerID:   a.ReviewerID,
			Content:      content,
		}); err != nil {
			return Internal("failed to record assignment event", err)
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	kick(s.events)
	return created, nil
}

// resolveTarget kiểm tra target tồn tại đúng loại và trả về tên hiển thị.
func resolveTarget(ctx context.Context, tx repository.Store, t models.AssignmentTarget) (string, error) {
	switch t.Kind {
	case models.TargetCohort:
		c, err := tx.GetCohort(ctx, t.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", NotFound("cohort not found")
			}
			return "", Internal("failed to load cohort", err)
		}
		return fmt.Sprintf("%q", c.Name), nil
	case models.TargetStudent:
		u, err := tx.GetUser(ctx, t.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return "", Internal("failed to load student", err)
		}
		if u == nil || u.Role != models.RoleStudent {
			return "", NotFound("student not found")
		}
		return u.Name, nil
	case models.TargetProject:
		p, err := tx.GetProject(ctx, t.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", NotFound("project not found")
			}
			return "", Internal("failed to load project", err)
		}
		return fmt.Sprintf("%q", p.Title), nil
	}
	return "", BadRequest("invalid target kind")
}

// addReviewer / removeReviewer cập nhật tập reviewer của target; student không có tập riêng.
func addReviewer(ctx context.Context, tx repository.Store, a *models.Assignment) error {
	switch a.Target.Kind {
	case models.TargetCohort:
		return tx.AddCohortReviewer(ctx, a.Target.ID, a.ReviewerID)
	case models.TargetProject:
		return tx.AddProjectReviewer(ctx, a.Target.ID, a.ReviewerID)
	}
	return nil
}

func removeReviewer(ctx context.Context, tx repository.Store, a *models.Assignment) error {
	switch a.Target.Kind {
	case models.TargetCohort:
		return tx.RemoveCohortReviewer(ctx, a.Target.ID, a.ReviewerID)
	case models.TargetProject:
		return tx.RemoveProjectReviewer(ctx, a.Target.ID, a.ReviewerID)
	}
	return nil
}

func (s *AssignmentService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Assignment, error) {
	a, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("assignment not found")
		}
		return nil, Internal("failed to load assignment", err)
	}
	if !actor.IsAdmin() && !actor.Is(a.ReviewerID) {
		return nil, Forbidden("you do not have access to this assignment")
	}
	return a, nil
}

func (s *AssignmentService) List(ctx context.Context, actor Actor, f repository.AssignmentFilter, page repository.Page) ([]models.Assignment, int64, error) {
	if !actor.IsAdmin() {
		f.ReviewerID = &actor.UserID
	}
	list, total, err := s.store.ListAssignments(ctx, f, page)
	if err != nil {
		return nil, 0, Internal("failed to list assignments", err)
	}
	return list, total, nil
}

// Update đổi ghi chú và/hoặc trạng thái active; đổi trạng thái sẽ thêm hoặc
// bỏ reviewer khỏi target.
func (s *AssignmentService) Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateAssignmentInput) (*models.Assignment, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("only admins can update assignments")
	}

	var updated *models.Assignment
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		a, err := tx.GetAssignment(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NotFound("assignment not found")
			}
			return Internal("failed to load assignment", err)
		}

		if in.Notes != nil {
			a.Notes = *in.Notes
		}

		toggled := in.IsActive != nil && *in.IsActive != a.IsActive
		if toggled && *in.IsActive {
			if other, err := tx.FindActiveAssignment(ctx, a.ReviewerID, a.Target); err == nil && other.ID != a.ID {
				return Conflict("reviewer is already assigned to this target")
			} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return Internal("failed to check existing assignment", err)
			}
		}
		if in.IsActive != nil {
			a.IsActive = *in.IsActive
		}

		if err := tx.UpdateAssignment(ctx, a); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return Conflict("reviewer is already assigned to this target")
			}
			return Internal("failed to update assignment", err)
		}

		if toggled {
			if a.IsActive {
				err = addReviewer(ctx, tx, a)
			} else {
				err = removeReviewer(ctx, tx, a)
			}
			if err != nil {
				return Internal("failed to update reviewer list", err)
			}
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *AssignmentService) SetActive(ctx context.Context, actor Actor, id uuid.UUID, active bool) (*models.Assignment, error) {
	return s.Update(ctx, actor, id, UpdateAssignmentInput{IsActive: &active})
}

// Delete bỏ reviewer khỏi target nếu assignment còn active rồi xoá bản ghi.
func (s *AssignmentService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return Forbidden("only admins can delete assignments")
	}
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		a, err := tx.GetAssignment(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NotFound("assignment not found")
			}
			return Internal("failed to load assignment", err)
		}
		if a.IsActive {
			if err := removeReviewer(ctx, tx, a); err != nil {
				return Internal("failed to update reviewer list", err)
			}
		}
		if err := tx.DeleteAssignment(ctx, id); err != nil {
			return Internal("failed to delete assignment", err)
		}
		return nil
	})
}

// deleteAssignmentsForTarget xoá mọi assignment trỏ tới target (khi target bị xoá).
func deleteAssignmentsForTarget(ctx context.Context, tx repository.Store, kind models.TargetKind, id uuid.UUID) error {
	list, _, err := tx.ListAssignments(ctx, repository.AssignmentFilter{Kind: kind, TargetID: &id}, repository.Page{})
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].IsActive {
			if err := removeReviewer(ctx, tx, &list[i]); err != nil {
				return err
			}
		}
		if err := tx.DeleteAssignment(ctx, list[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// deactivateReviewerAssignments tắt mọi assignment active của reviewer và gỡ
// reviewer khỏi các target tương ứng.
func deactivateReviewerAssignments(ctx context.Context, tx repository.Store, reviewerID uuid.UUID) error {
	active := true
	list, _, err := tx.ListAssignments(ctx, repository.AssignmentFilter{ReviewerID: &reviewerID, Active: &active}, repository.Page{})
	if err != nil {
		return err
	}
	for i := range list {
		list[i].IsActive = false
		if err := tx.UpdateAssignment(ctx, &list[i]); err != nil {
			return err
		}
		if err := removeReviewer(ctx, tx, &list[i]); err != nil {
			return err
		}
	}
	return nil
}

// EnsureReviewerSets thêm lại reviewer còn thiếu cho mọi assignment active.
func (s *AssignmentService) EnsureReviewerSets(ctx context.Context) (int, error) {
	active := true
	list, _, err := s.store.ListAssignments(ctx, repository.AssignmentFilter{Active: &active}, repository.Page{})
	if err != nil {
		return 0, err
	}
	fixed := 0
	for i := range list {
		a := &list[i]
		missing := false
		switch a.Target.Kind {
		case models.TargetCohort:
			c, err := s.store.GetCohort(ctx, a.Target.ID)
			if err != nil {
				continue
			}
			missing = !containsID(c.ReviewerIDs, a.ReviewerID)
		case models.TargetProject:
			p, err := s.store.GetProject(ctx, a.Target.ID)
			if err != nil {
				continue
			}
			missing = !p.HasReviewer(a.ReviewerID)
		}
		if !missing {
			continue
		}
		if err := addReviewer(ctx, s.store, a); err != nil {
			return fixed, err
		}
		fixed++
	}
	if fixed > 0 {
		s.logger.Info("reviewer sets repaired", slog.Int("count", fixed))
	}
	return fixed, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
