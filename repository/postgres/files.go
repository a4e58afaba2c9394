package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) CreateFile(ctx context.Context, f *models.File) error {
	return translate(s.db.WithContext(ctx).Create(f).Error)
}

func (s *Store) GetFile(ctx context.Context, id uuid.UUID) (*models.File, error) {
	var f models.File
	if err := s.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (s *Store) ListFilesByProject(ctx context.Context, projectID uuid.UUID) ([]models.File, error) {
	var files []models.File
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&files).Error
	return files, err
}

func (s *Store) DeleteFile(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.File{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
