package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate(s.db.WithContext(ctx).Create(n).Error)
}

func (s *Store) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

func (s *Store) ListNotifications(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, p repository.Page) ([]models.Notification, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.Notification
	if err := paginate(q.Order("created_at DESC"), p).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *Store) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkNotificationRead chỉ cập nhật thông báo thuộc về recipientID.
func (s *Store) MarkNotificationRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) error {
	db := s.db.WithContext(ctx)
	var n models.Notification
	if err := db.Select("id", "is_read").First(&n, "id = ? AND recipient_id = ?", id, recipientID).Error; err != nil {
		return translate(err)
	}
	if n.IsRead {
		return nil
	}
	return db.Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (s *Store) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("email_sent", true).Error
}

func (s *Store) DeleteNotification(ctx context.Context, id, recipientID uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Notification{}, "id = ? AND recipient_id = ?", id, recipientID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
