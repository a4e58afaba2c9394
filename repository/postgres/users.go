package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetUserByVerificationToken(ctx context.Context, hash string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("verification_token_hash = ?", hash).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetUserByResetToken(ctx context.Context, hash string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("reset_token_hash = ?", hash).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Save(u).Error)
}

func (s *Store) ListUsers(ctx context.Context, f repository.UserFilter, p repository.Page) ([]models.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.CohortID != nil {
		q = q.Where("cohort_id = ?", *f.CohortID)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if f.Search != "" {
		q = q.Where("name ILIKE ? OR email ILIKE ?", likePattern(f.Search), likePattern(f.Search))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := paginate(q.Order("created_at DESC"), p).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ClearExpiredTokens xoá token xác thực / reset đã hết hạn.
func (s *Store) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	db := s.db.WithContext(ctx)
	r1 := db.Model(&models.User{}).
		Where("reset_expires_at IS NOT NULL AND reset_expires_at < ?", now).
		Updates(map[string]interface{}{"reset_token_hash": "", "reset_expires_at": nil})
	if r1.Error != nil {
		return 0, r1.Error
	}
	r2 := db.Model(&models.User{}).
		Where("verification_expires_at IS NOT NULL AND verification_expires_at < ?", now).
		Updates(map[string]interface{}{"verification_token_hash": "", "verification_expires_at": nil})
	if r2.Error != nil {
		return r1.RowsAffected, r2.Error
	}
	return r1.RowsAffected + r2.RowsAffected, nil
}
