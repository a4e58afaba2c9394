package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

type CohortInput struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	IsActive    *bool
}

type CohortService struct {
	store repository.Store
}

func NewCohortService(store repository.Store) *CohortService {
	return &CohortService{store: store}
}

func (s *CohortService) apply(c *models.Cohort, in CohortInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return BadRequest("cohort name is required")
	}
	c.Name = name
	c.Slug = slug.Make(name)
	c.Description = in.Description
	c.StartDate = in.StartDate
	c.EndDate = in.EndDate
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if err := c.ValidateDates(); err != nil {
		return BadRequest("end date must be after start date")
	}
	return nil
}

func (s *CohortService) Create(ctx context.Context, actor Actor, in CohortInput) (*models.Cohort, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("only admins can manage cohorts")
	}
	c := &models.Cohort{IsActive: true}
	if err := s.apply(c, in); err != nil {
		return nil, err
	}
	if err := s.store.CreateCohort(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("a cohort with this name already exists")
		}
		return nil, Internal("failed to create cohort", err)
	}
	return c, nil
}

func (s *CohortService) Get(ctx context.Context, id uuid.UUID) (*models.Cohort, error) {
	c, err := s.store.GetCohort(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("cohort not found")
		}
		return nil, Internal("failed to load cohort", err)
	}
	return c, nil
}

func (s *CohortService) List(ctx context.Context, f repository.CohortFilter, page repository.Page) ([]models.Cohort, int64, error) {
	list, total, err := s.store.ListCohorts(ctx, f, page)
	if err != nil {
		return nil, 0, Internal("failed to list cohorts", err)
	}
	return list, total, nil
}

func (s *CohortService) Update(ctx context.Context, actor Actor, id uuid.UUID, in CohortInput) (*models.Cohort, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("only admins can manage cohorts")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(c, in); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCohort(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("a cohort with this name already exists")
		}
		return nil, Internal("failed to update cohort", err)
	}
	return c, nil
}

// Delete từ chối khi cohort còn học viên; assignment trỏ tới cohort bị xoá theo.
func (s *CohortService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return Forbidden("only admins can manage cohorts")
	}
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		c, err := tx.GetCohort(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NotFound("cohort not found")
			}
			return Internal("failed to load cohort", err)
		}
		if len(c.StudentIDs) > 0 {
			return Conflict("cannot delete a cohort that still has students")
		}
		if err := deleteAssignmentsForTarget(ctx, tx, models.TargetCohort, c.ID); err != nil {
			return Internal("failed to delete cohort assignments", err)
		}
		if err := tx.DeleteCohort(ctx, c.ID); err != nil {
			return Internal("failed to delete cohort", err)
		}
		return nil
	})
}

// AddStudent chuyển học viên sang cohort này (rời cohort cũ nếu có).
func (s *CohortService) AddStudent(ctx context.Context, actor Actor, cohortID, userID uuid.UUID) (*models.Cohort, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("only admins can manage cohorts")
	}
	var updated *models.Cohort
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		c, err := tx.GetCohort(ctx, cohortID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NotFound("cohort not found")
			}
			return Internal("failed to load cohort", err)
		}
		u, err := tx.GetUser(ctx, userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return Internal("failed to load student", err)
		}
		if u == nil || u.Role != models.RoleStudent {
			return NotFound("student not found")
		}
		if u.CohortID != nil && *u.CohortID != c.ID {
			if err := tx.RemoveCohortStudent(ctx, *u.CohortID, u.ID); err != nil {
				return Internal("failed to leave previous cohort", err)
			}
		}
		u.CohortID = &c.ID
		if err := tx.UpdateUser(ctx, u); err != nil {
			return Internal("failed to update student", err)
		}
		if err := tx.AddCohortStudent(ctx, c.ID, u.ID); err != nil {
			return Internal("failed to add student", err)
		}
		updated, err = tx.GetCohort(ctx, c.ID)
		if err != nil {
			return Internal("failed to load cohort", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *CohortService) RemoveStudent(ctx context.Context, actor Actor, cohortID, userID uuid.UUID) (*models.Cohort, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("only admins can manage cohorts")
	}
	var updated *models.Cohort
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		c, err := tx.GetCohort(ctx, cohortID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NotFound("cohort not found")
			}
			return Internal("failed to load cohort", err)
		}
		if !containsID(c.StudentIDs, userID) {
			return NotFound("student is not in this cohort")
		}
		if err := tx.RemoveCohortStudent(ctx, c.ID, userID); err != nil {
			return Internal("failed to remove student", err)
		}
		u, err := tx.GetUser(ctx, userID)
		if err == nil && u.CohortID != nil && *u.CohortID == c.ID {
			u.CohortID = nil
			if err := tx.UpdateUser(ctx, u); err != nil {
				return Internal("failed to update student", err)
			}
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return Internal("failed to load student", err)
		}
		updated, err = tx.GetCohort(ctx, c.ID)
		if err != nil {
			return Internal("failed to load cohort", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
