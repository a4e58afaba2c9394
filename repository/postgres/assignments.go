package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	return translate(s.db.WithContext(ctx).Create(a).Error)
}

func (s *Store) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var a models.Assignment
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) UpdateAssignment(ctx context.Context, a *models.Assignment) error {
	return translate(s.db.WithContext(ctx).Save(a).Error)
}

func (s *Store) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Assignment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) ListAssignments(ctx context.Context, f repository.AssignmentFilter, p repository.Page) ([]models.Assignment, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Assignment{})
	if f.ReviewerID != nil {
		q = q.Where("reviewer_id = ?", *f.ReviewerID)
	}
	if f.Kind != "" {
		q = q.Where("target_kind = ?", f.Kind)
	}
	if f.TargetID != nil {
		q = q.Where("target_id = ?", *f.TargetID)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.Assignment
	if err := paginate(q.Order("created_at DESC"), p).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *Store) FindActiveAssignment(ctx context.Context, reviewerID uuid.UUID, target models.AssignmentTarget) (*models.Assignment, error) {
	var a models.Assignment
	err := s.db.WithContext(ctx).
		Where("reviewer_id = ? AND target_kind = ? AND target_id = ? AND is_active = ?", reviewerID, target.Kind, target.ID, true).
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}
