package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	defer s.lock()()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range s.st.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	s.st.track(&u.ID)
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.st.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer s.rlock()()
	u, ok := s.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *Store) findUser(match func(models.User) bool) (*models.User, error) {
	for _, u := range s.st.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.rlock()()
	email = strings.ToLower(email)
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

func (s *Store) GetUserByVerificationToken(ctx context.Context, hash string) (*models.User, error) {
	defer s.rlock()()
	if hash == "" {
		return nil, repository.ErrNotFound
	}
	return s.findUser(func(u models.User) bool { return u.VerificationTokenHash == hash })
}

func (s *Store) GetUserByResetToken(ctx context.Context, hash string) (*models.User, error) {
	defer s.rlock()()
	if hash == "" {
		return nil, repository.ErrNotFound
	}
	return s.findUser(func(u models.User) bool { return u.ResetTokenHash == hash })
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	defer s.lock()()
	if _, ok := s.st.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	u.Email = strings.ToLower(u.Email)
	for id, existing := range s.st.users {
		if id != u.ID && existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.UpdatedAt = s.now()
	s.st.users[u.ID] = *u
	return nil
}

func (s *Store) ListUsers(ctx context.Context, f repository.UserFilter, p repository.Page) ([]models.User, int64, error) {
	defer s.rlock()()
	var ids []uuid.UUID
	for id, u := range s.st.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.CohortID != nil && (u.CohortID == nil || *u.CohortID != *f.CohortID) {
			continue
		}
		if f.Active != nil && u.IsActive != *f.Active {
			continue
		}
		if f.Search != "" && !containsFold(u.Name, f.Search) && !containsFold(u.Email, f.Search) {
			continue
		}
		ids = append(ids, id)
	}
	s.sortByCreated(ids, func(id uuid.UUID) time.Time { return s.st.users[id].CreatedAt }, true)

	users := make([]models.User, 0, len(ids))
	for _, id := range pageOf(ids, p) {
		users = append(users, s.st.users[id])
	}
	return users, int64(len(ids)), nil
}

func (s *Store) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	defer s.lock()()
	var n int64
	for id, u := range s.st.users {
		changed := false
		if u.ResetExpiresAt != nil && u.ResetExpiresAt.Before(now) {
			u.ResetTokenHash, u.ResetExpiresAt = "", nil
			changed = true
		}
		if u.VerificationExpiresAt != nil && u.VerificationExpiresAt.Before(now) {
			u.VerificationTokenHash, u.VerificationExpiresAt = "", nil
			changed = true
		}
		if changed {
			s.st.users[id] = u
			n++
		}
	}
	return n, nil
}
