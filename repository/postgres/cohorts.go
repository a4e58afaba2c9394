package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) CreateCohort(ctx context.Context, c *models.Cohort) error {
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *Store) GetCohort(ctx context.Context, id uuid.UUID) (*models.Cohort, error) {
	var c models.Cohort
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	if err := s.loadCohortMembers(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) loadCohortMembers(ctx context.Context, c *models.Cohort) error {
	c.StudentIDs = []uuid.UUID{}
	c.ReviewerIDs = []uuid.UUID{}
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.CohortStudent{}).
		Where("cohort_id = ?", c.ID).Order("created_at").
		Pluck("user_id", &c.StudentIDs).Error; err != nil {
		return err
	}
	return db.Model(&models.CohortReviewer{}).
		Where("cohort_id = ?", c.ID).Order("created_at").
		Pluck("reviewer_id", &c.ReviewerIDs).Error
}

func (s *Store) UpdateCohort(ctx context.Context, c *models.Cohort) error {
	return translate(s.db.WithContext(ctx).Save(c).Error)
}

func (s *Store) DeleteCohort(ctx context.Context, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("cohort_id = ?", id).Delete(&models.CohortReviewer{}).Error; err != nil {
		return err
	}
	if err := db.Where("cohort_id = ?", id).Delete(&models.CohortStudent{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Cohort{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) ListCohorts(ctx context.Context, f repository.CohortFilter, p repository.Page) ([]models.Cohort, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Cohort{})
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if f.Search != "" {
		q = q.Where("name ILIKE ?", likePattern(f.Search))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var cohorts []models.Cohort
	if err := paginate(q.Order("start_date DESC"), p).Find(&cohorts).Error; err != nil {
		return nil, 0, err
	}
	for i := range cohorts {
		if err := s.loadCohortMembers(ctx, &cohorts[i]); err != nil {
			return nil, 0, err
		}
	}
	return cohorts, total, nil
}

func (s *Store) ListCohortsByReviewer(ctx context.Context, reviewerID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := s.db.WithContext(ctx).Model(&models.CohortReviewer{}).
		Where("reviewer_id = ?", reviewerID).
		Pluck("cohort_id", &ids).Error
	return ids, err
}

// Thêm vào tập hợp: trùng thì bỏ qua
func (s *Store) AddCohortStudent(ctx context.Context, cohortID, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CohortStudent{CohortID: cohortID, UserID: userID}).Error
}

func (s *Store) RemoveCohortStudent(ctx context.Context, cohortID, userID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("cohort_id = ? AND user_id = ?", cohortID, userID).
		Delete(&models.CohortStudent{}).Error
}

func (s *Store) AddCohortReviewer(ctx context.Context, cohortID, reviewerID uuid.UUID) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CohortReviewer{CohortID: cohortID, ReviewerID: reviewerID}).Error
}

func (s *Store) RemoveCohortReviewer(ctx context.Context, cohortID, reviewerID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("cohort_id = ? AND reviewer_id = ?", cohortID, reviewerID).
		Delete(&models.CohortReviewer{}).Error
}
