package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) CreateFile(ctx context.Context, f *models.File) error {
	defer s.lock()()
	s.st.track(&f.ID)
	f.CreatedAt = s.now()
	s.st.files[f.ID] = *f
	return nil
}

func (s *Store) GetFile(ctx context.Context, id uuid.UUID) (*models.File, error) {
	defer s.rlock()()
	f, ok := s.st.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &f, nil
}

func (s *Store) ListFilesByProject(ctx context.Context, projectID uuid.UUID) ([]models.File, error) {
	defer s.rlock()()
	var ids []uuid.UUID
	for id, f := range s.st.files {
		if f.ProjectID == projectID {
			ids = append(ids, id)
		}
	}
	s.sortByCreated(ids, func(id uuid.UUID) time.Time { return s.st.files[id].CreatedAt }, false)
	out := make([]models.File, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.st.files[id])
	}
	return out, nil
}

func (s *Store) DeleteFile(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.st.files[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.st.files, id)
	return nil
}
