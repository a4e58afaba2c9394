package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) withReplies(c models.Comment) models.Comment {
	var ids []uuid.UUID
	for id, r := range s.st.replies {
		if r.CommentID == c.ID {
			ids = append(ids, id)
		}
	}
	s.sortByCreated(ids, func(id uuid.UUID) time.Time { return s.st.replies[id].CreatedAt }, false)
	c.Replies = make([]models.CommentReply, 0, len(ids))
	for _, id := range ids {
		c.Replies = append(c.Replies, s.st.replies[id])
	}
	return c
}

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	defer s.lock()()
	s.st.track(&c.ID)
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	c.Replies = []models.CommentReply{}
	s.st.comments[c.ID] = *c
	return nil
}

func (s *Store) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	defer s.rlock()()
	c, ok := s.st.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = s.withReplies(c)
	return &c, nil
}

func (s *Store) UpdateComment(ctx context.Context, c *models.Comment) error {
	defer s.lock()()
	if _, ok := s.st.comments[c.ID]; !ok {
		return repository.ErrNotFound
	}
	c.UpdatedAt = s.now()
	stored := *c
	stored.Replies = nil
	s.st.comments[c.ID] = stored
	return nil
}

func (s *Store) deleteCommentLocked(id uuid.UUID) {
	delete(s.st.comments, id)
	for rid, r := range s.st.replies {
		if r.CommentID == id {
			delete(s.st.replies, rid)
		}
	}
}

func (s *Store) DeleteComment(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.st.comments[id]; !ok {
		return repository.ErrNotFound
	}
	s.deleteCommentLocked(id)
	return nil
}

func (s *Store) ListComments(ctx context.Context, f repository.CommentFilter) ([]models.Comment, error) {
	defer s.rlock()()
	var ids []uuid.UUID
	for id, c := range s.st.comments {
		if f.ProjectID != nil && c.ProjectID != *f.ProjectID {
			continue
		}
		if f.FileID != nil && c.FileID != *f.FileID {
			continue
		}
		ids = append(ids, id)
	}
	s.sortByCreated(ids, func(id uuid.UUID) time.Time { return s.st.comments[id].CreatedAt }, false)
	sort.SliceStable(ids, func(i, j int) bool {
		return s.st.comments[ids[i]].LineNumber < s.st.comments[ids[j]].LineNumber
	})
	out := make([]models.Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.withReplies(s.st.comments[id]))
	}
	return out, nil
}

func (s *Store) DeleteCommentsByProject(ctx context.Context, projectID uuid.UUID) error {
	defer s.lock()()
	for id, c := range s.st.comments {
		if c.ProjectID == projectID {
			s.deleteCommentLocked(id)
		}
	}
	return nil
}

func (s *Store) DeleteCommentsByFile(ctx context.Context, fileID uuid.UUID) error {
	defer s.lock()()
	for id, c := range s.st.comments {
		if c.FileID == fileID {
			s.deleteCommentLocked(id)
		}
	}
	return nil
}

func (s *Store) AddReply(ctx context.Context, r *models.CommentReply) error {
	defer s.lock()()
	c, ok := s.st.comments[r.CommentID]
	if !ok {
		return repository.ErrNotFound
	}
	s.st.track(&r.ID)
	r.CreatedAt = s.now()
	s.st.replies[r.ID] = *r
	c.UpdatedAt = r.CreatedAt
	s.st.comments[c.ID] = c
	return nil
}

func (s *Store) GetReply(ctx context.Context, id uuid.UUID) (*models.CommentReply, error) {
	defer s.rlock()()
	r, ok := s.st.replies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *Store) DeleteReply(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.st.replies[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.st.replies, id)
	return nil
}
