package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) cohortConflict(c *models.Cohort) bool {
	for id, existing := range s.st.cohorts {
		if id == c.ID {
			continue
		}
		if existing.Name == c.Name || (c.Slug != "" && existing.Slug == c.Slug) {
			return true
		}
	}
	return false
}

func (s *Store) withMembers(c models.Cohort) models.Cohort {
	c.StudentIDs = append([]uuid.UUID{}, s.st.cohortStudents[c.ID]...)
	c.ReviewerIDs = append([]uuid.UUID{}, s.st.cohortReviewers[c.ID]...)
	return c
}

func (s *Store) CreateCohort(ctx context.Context, c *models.Cohort) error {
	defer s.lock()()
	if s.cohortConflict(c) {
		return repository.ErrDuplicate
	}
	s.st.track(&c.ID)
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	stored := *c
	stored.StudentIDs, stored.ReviewerIDs = nil, nil
	s.st.cohorts[c.ID] = stored
	*c = s.withMembers(stored)
	return nil
}

func (s *Store) GetCohort(ctx context.Context, id uuid.UUID) (*models.Cohort, error) {
	defer s.rlock()()
	c, ok := s.st.cohorts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = s.withMembers(c)
	return &c, nil
}

func (s *Store) UpdateCohort(ctx context.Context, c *models.Cohort) error {
	defer s.lock()()
	if _, ok := s.st.cohorts[c.ID]; !ok {
		return repository.ErrNotFound
	}
	if s.cohortConflict(c) {
		return repository.ErrDuplicate
	}
	c.UpdatedAt = s.now()
	stored := *c
	stored.StudentIDs, stored.ReviewerIDs = nil, nil
	s.st.cohorts[c.ID] = stored
	return nil
}

func (s *Store) DeleteCohort(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.st.cohorts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.st.cohorts, id)
	delete(s.st.cohortStudents, id)
	delete(s.st.cohortReviewers, id)
	return nil
}

func (s *Store) ListCohorts(ctx context.Context, f repository.CohortFilter, p repository.Page) ([]models.Cohort, int64, error) {
	defer s.rlock()()
	var ids []uuid.UUID
	for id, c := range s.st.cohorts {
		if f.Active != nil && c.IsActive != *f.Active {
			continue
		}
		if f.Search != "" && !containsFold(c.Name, f.Search) {
			continue
		}
		ids = append(ids, id)
	}
	s.sortByCreated(ids, func(id uuid.UUID) time.Time { return s.st.cohorts[id].StartDate }, true)

	out := make([]models.Cohort, 0, len(ids))
	for _, id := range pageOf(ids, p) {
		out = append(out, s.withMembers(s.st.cohorts[id]))
	}
	return out, int64(len(ids)), nil
}

func (s *Store) ListCohortsByReviewer(ctx context.Context, reviewerID uuid.UUID) ([]uuid.UUID, error) {
	defer s.rlock()()
	ids := []uuid.UUID{}
	for cohortID, reviewers := range s.st.cohortReviewers {
		for _, r := range reviewers {
			if r == reviewerID {
				ids = append(ids, cohortID)
				break
			}
		}
	}
	return ids, nil
}

func (s *Store) AddCohortStudent(ctx context.Context, cohortID, userID uuid.UUID) error {
	defer s.lock()()
	s.st.cohortStudents[cohortID] = addToSet(s.st.cohortStudents[cohortID], userID)
	return nil
}

func (s *Store) RemoveCohortStudent(ctx context.Context, cohortID, userID uuid.UUID) error {
	defer s.lock()()
	s.st.cohortStudents[cohortID] = removeFromSet(s.st.cohortStudents[cohortID], userID)
	return nil
}

func (s *Store) AddCohortReviewer(ctx context.Context, cohortID, reviewerID uuid.UUID) error {
	defer s.lock()()
	s.st.cohortReviewers[cohortID] = addToSet(s.st.cohortReviewers[cohortID], reviewerID)
	return nil
}

func (s *Store) RemoveCohortReviewer(ctx context.Context, cohortID, reviewerID uuid.UUID) error {
	defer s.lock()()
	s.st.cohortReviewers[cohortID] = removeFromSet(s.st.cohortReviewers[cohortID], reviewerID)
	return nil
}
