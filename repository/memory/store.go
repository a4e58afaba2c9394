// Package memory is an in-process implementation of repository.Store used for
// local runs (DB_DRIVER=memory) and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

type state struct {
	seq   int64
	order map[uuid.UUID]int64

	users            map[uuid.UUID]models.User
	cohorts          map[uuid.UUID]models.Cohort
	cohortStudents   map[uuid.UUID][]uuid.UUID
	cohortReviewers  map[uuid.UUID][]uuid.UUID
	projects         map[uuid.UUID]models.Project
	projectReviewers map[uuid.UUID][]uuid.UUID
	files            map[uuid.UUID]models.File
	comments         map[uuid.UUID]models.Comment
	replies          map[uuid.UUID]models.CommentReply
	assignments      map[uuid.UUID]models.Assignment
	notifications    map[uuid.UUID]models.Notification
	outbox           map[uuid.UUID]models.OutboxEvent
}

func newState() *state {
	return &state{
		order:            map[uuid.UUID]int64{},
		users:            map[uuid.UUID]models.User{},
		cohorts:          map[uuid.UUID]models.Cohort{},
		cohortStudents:   map[uuid.UUID][]uuid.UUID{},
		cohortReviewers:  map[uuid.UUID][]uuid.UUID{},
		projects:         map[uuid.UUID]models.Project{},
		projectReviewers: map[uuid.UUID][]uuid.UUID{},
		files:            map[uuid.UUID]models.File{},
		comments:         map[uuid.UUID]models.Comment{},
		replies:          map[uuid.UUID]models.CommentReply{},
		assignments:      map[uuid.UUID]models.Assignment{},
		notifications:    map[uuid.UUID]models.Notification{},
		outbox:           map[uuid.UUID]models.OutboxEvent{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSets(m map[uuid.UUID][]uuid.UUID) map[uuid.UUID][]uuid.UUID {
	out := make(map[uuid.UUID][]uuid.UUID, len(m))
	for k, v := range m {
		out[k] = append([]uuid.UUID(nil), v...)
	}
	return out
}

func (st *state) clone() *state {
	return &state{
		seq:              st.seq,
		order:            cloneMap(st.order),
		users:            cloneMap(st.users),
		cohorts:          cloneMap(st.cohorts),
		cohortStudents:   cloneSets(st.cohortStudents),
		cohortReviewers:  cloneSets(st.cohortReviewers),
		projects:         cloneMap(st.projects),
		projectReviewers: cloneSets(st.projectReviewers),
		files:            cloneMap(st.files),
		comments:         cloneMap(st.comments),
		replies:          cloneMap(st.replies),
		assignments:      cloneMap(st.assignments),
		notifications:    cloneMap(st.notifications),
		outbox:           cloneMap(st.outbox),
	}
}

// track gán ID nếu trống và ghi nhớ thứ tự chèn để sắp xếp ổn định.
func (st *state) track(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	st.seq++
	st.order[*id] = st.seq
}

type Store struct {
	mu   *sync.RWMutex
	st   *state
	inTx bool
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.RWMutex{}, st: newState(), now: time.Now}
}

func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Transaction chạy fn trên bản sao của state và chỉ thay thế state khi fn thành công.
func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, st: s.st.clone(), inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) sortByCreated(ids []uuid.UUID, created func(uuid.UUID) time.Time, desc bool) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := created(ids[i]), created(ids[j])
		if !a.Equal(b) {
			if desc {
				return a.After(b)
			}
			return a.Before(b)
		}
		if desc {
			return s.st.order[ids[i]] > s.st.order[ids[j]]
		}
		return s.st.order[ids[i]] < s.st.order[ids[j]]
	})
}

func pageOf[T any](items []T, p repository.Page) []T {
	if p.Limit <= 0 {
		return items
	}
	start := p.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func addToSet(set []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, v := range set {
		if v == id {
			return set
		}
	}
	return append(set, id)
}

func removeFromSet(set []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := set[:0:0]
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
