package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	defer s.lock()()
	if n.EventID != nil {
		for _, other := range s.st.notifications {
			if other.EventID != nil && *other.EventID == *n.EventID && other.RecipientID == n.RecipientID {
				return repository.ErrDuplicate
			}
		}
	}
	s.st.track(&n.ID)
	n.CreatedAt = s.now()
	s.st.notifications[n.ID] = *n
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	defer s.rlock()()
	n, ok := s.st.notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &n, nil
}

func (s *Store) ListNotifications(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, p repository.Page) ([]models.Notification, int64, error) {
	defer s.rlock()()
	var ids []uuid.UUID
	for id, n := range s.st.notifications {
		if n.RecipientID != recipientID || (unreadOnly && n.IsRead) {
			continue
		}
		ids = append(ids, id)
	}
	s.sortByCreated(ids, func(id uuid.UUID) time.Time { return s.st.notifications[id].CreatedAt }, true)

	out := make([]models.Notification, 0, len(ids))
	for _, id := range pageOf(ids, p) {
		out = append(out, s.st.notifications[id])
	}
	return out, int64(len(ids)), nil
}

func (s *Store) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	defer s.rlock()()
	var n int64
	for _, notif := range s.st.notifications {
		if notif.RecipientID == recipientID && !notif.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) error {
	defer s.lock()()
	n, ok := s.st.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return repository.ErrNotFound
	}
	if n.IsRead {
		return nil
	}
	n.IsRead = true
	n.ReadAt = &at
	s.st.notifications[id] = n
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	defer s.lock()()
	var count int64
	for id, n := range s.st.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			readAt := at
			n.IsRead = true
			n.ReadAt = &readAt
			s.st.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()
	n, ok := s.st.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.EmailSent = true
	s.st.notifications[id] = n
	return nil
}

func (s *Store) DeleteNotification(ctx context.Context, id, recipientID uuid.UUID) error {
	defer s.lock()()
	n, ok := s.st.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return repository.ErrNotFound
	}
	delete(s.st.notifications, id)
	return nil
}
