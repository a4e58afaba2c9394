package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

type accessLevel int

const (
	accessView   accessLevel = iota // xem project, file, comment
	accessEdit                      // chủ project hoặc admin
	accessReview                    // reviewer có trong danh sách hoặc admin
)

// loadProject nạp project và kiểm tra quyền của actor theo level.
func loadProject(ctx context.Context, store repository.Store, actor Actor, id uuid.UUID, level accessLevel) (*models.Project, error) {
	p, err := store.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("project not found")
		}
		return nil, Internal("failed to load project", err)
	}

	switch level {
	case accessEdit:
		if !canEditProject(actor, p) {
			return nil, Forbidden("only the project owner or an admin can modify this project")
		}
	case accessReview:
		if !canReviewProject(actor, p) {
			return nil, Forbidden("only an assigned reviewer or an admin can review this project")
		}
	default:
		ok, err := canViewProject(ctx, store, actor, p)
		if err != nil {
			return nil, Internal("failed to check project access", err)
		}
		if !ok {
			return nil, Forbidden("you do not have access to this project")
		}
	}
	return p, nil
}

func canEditProject(actor Actor, p *models.Project) bool {
	return actor.IsAdmin() || actor.Is(p.StudentID)
}

func canReviewProject(actor Actor, p *models.Project) bool {
	return actor.IsAdmin() || (actor.Role == models.RoleReviewer && p.HasReviewer(actor.UserID))
}

func canViewProject(ctx context.Context, store repository.Store, actor Actor, p *models.Project) (bool, error) {
	if canEditProject(actor, p) || p.HasReviewer(actor.UserID) {
		return true, nil
	}
	if actor.Role != models.RoleReviewer {
		return false, nil
	}

	owner, err := store.GetUser(ctx, p.StudentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if owner.CohortID != nil {
		cohort, err := store.GetCohort(ctx, *owner.CohortID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return false, err
		}
		if cohort != nil {
			for _, id := range cohort.ReviewerIDs {
				if id == actor.UserID {
					return true, nil
				}
			}
		}
	}

	_, err = store.FindActiveAssignment(ctx, actor.UserID, models.AssignmentTarget{Kind: models.TargetStudent, ID: owner.ID})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, err
}
