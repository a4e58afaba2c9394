package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) EnqueueEvent(ctx context.Context, e *models.OutboxEvent) error {
	defer s.lock()()
	s.st.track(&e.ID)
	if e.Status == "" {
		e.Status = models.OutboxPending
	}
	e.CreatedAt = s.now()
	s.st.outbox[e.ID] = *e
	return nil
}

func (s *Store) ListPendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	defer s.rlock()()
	var ids []uuid.UUID
	for id, e := range s.st.outbox {
		if e.Status == models.OutboxPending {
			ids = append(ids, id)
		}
	}
	s.sortByCreated(ids, func(id uuid.UUID) time.Time { return s.st.outbox[id].CreatedAt }, false)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]models.OutboxEvent, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.st.outbox[id])
	}
	return out, nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	defer s.lock()()
	e, ok := s.st.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = models.OutboxProcessed
	e.ProcessedAt = &at
	e.Attempts++
	s.st.outbox[id] = e
	return nil
}

func (s *Store) MarkEventFailed(ctx context.Context, id uuid.UUID, reason string, giveUp bool) error {
	defer s.lock()()
	e, ok := s.st.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Attempts++
	e.LastError = reason
	if giveUp {
		e.Status = models.OutboxFailed
	}
	s.st.outbox[id] = e
	return nil
}
