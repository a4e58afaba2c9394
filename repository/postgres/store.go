// Package postgres is the GORM-backed implementation of repository.Store.
package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vnkhanh/code-review-backend/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate đổi lỗi gorm sang lỗi của repository.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	}
	return err
}

func paginate(q *gorm.DB, p repository.Page) *gorm.DB {
	if p.Limit > 0 {
		q = q.Limit(p.Limit).Offset(p.Offset())
	}
	return q
}

func likePattern(s string) string {
	return "%" + s + "%"
}
