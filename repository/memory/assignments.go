package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

// activeConflict mô phỏng partial unique index idx_active_assignment.
func (s *Store) activeConflict(a *models.Assignment) bool {
	if !a.IsActive {
		return false
	}
	for id, existing := range s.st.assignments {
		if id != a.ID && existing.IsActive && existing.ReviewerID == a.ReviewerID && existing.Target == a.Target {
			return true
		}
	}
	return false
}

func (s *Store) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	defer s.lock()()
	if s.activeConflict(a) {
		return repository.ErrDuplicate
	}
	s.st.track(&a.ID)
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.st.assignments[a.ID] = *a
	return nil
}

func (s *Store) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	defer s.rlock()()
	a, ok := s.st.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (s *Store) UpdateAssignment(ctx context.Context, a *models.Assignment) error {
	defer s.lock()()
	if _, ok := s.st.assignments[a.ID]; !ok {
		return repository.ErrNotFound
	}
	if s.activeConflict(a) {
		return repository.ErrDuplicate
	}
	a.UpdatedAt = s.now()
	s.st.assignments[a.ID] = *a
	return nil
}

func (s *Store) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.st.assignments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.st.assignments, id)
	return nil
}

func (s *Store) ListAssignments(ctx context.Context, f repository.AssignmentFilter, p repository.Page) ([]models.Assignment, int64, error) {
	defer s.rlock()()
	var ids []uuid.UUID
	for id, a := range s.st.assignments {
		if f.ReviewerID != nil && a.ReviewerID != *f.ReviewerID {
			continue
		}
		if f.Kind != "" && a.Target.Kind != f.Kind {
			continue
		}
		if f.TargetID != nil && a.Target.ID != *f.TargetID {
			continue
		}
		if f.Active != nil && a.IsActive != *f.Active {
			continue
		}
		ids = append(ids, id)
	}
	s.sortByCreated(ids, func(id uuid.UUID) time.Time { return s.st.assignments[id].CreatedAt }, true)

	out := make([]models.Assignment, 0, len(ids))
	for _, id := range pageOf(ids, p) {
		out = append(out, s.st.assignments[id])
	}
	return out, int64(len(ids)), nil
}

func (s *Store) FindActiveAssignment(ctx context.Context, reviewerID uuid.UUID, target models.AssignmentTarget) (*models.Assignment, error) {
	defer s.rlock()()
	for _, a := range s.st.assignments {
		if a.IsActive && a.ReviewerID == reviewerID && a.Target == target {
			a := a
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}
