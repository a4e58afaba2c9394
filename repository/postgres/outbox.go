package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/code-review-backend/models"
)

func (s *Store) EnqueueEvent(ctx context.Context, e *models.OutboxEvent) error {
	if e.Status == "" {
		e.Status = models.OutboxPending
	}
	return translate(s.db.WithContext(ctx).Create(e).Error)
}

func (s *Store) ListPendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	q := s.db.WithContext(ctx).Where("status = ?", models.OutboxPending).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&events).Error
	return events, err
}

func (s *Store) MarkEventProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.OutboxProcessed,
			"processed_at": at,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
}

// giveUp = true thì chuyển sang failed, ngược lại giữ pending để thử lại.
func (s *Store) MarkEventFailed(ctx context.Context, id uuid.UUID, reason string, giveUp bool) error {
	status := models.OutboxPending
	if giveUp {
		status = models.OutboxFailed
	}
	return s.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": reason,
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error
}
