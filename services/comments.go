package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

type CreateCommentInput struct {
	ProjectID  uuid.UUID
	FileID     uuid.UUID
	LineNumber int
	Text       string
}

type CommentService struct {
	store  repository.Store
	events Kicker
}

func NewCommentService(store repository.Store, events Kicker) *CommentService {
	return &CommentService{store: store, events: events}
}

func (s *CommentService) Create(ctx context.Context, actor Actor, in CreateCommentInput) (*models.Comment, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, BadRequest("comment text is required")
	}
	if in.LineNumber < 1 {
		return nil, BadRequest("line number must be at least 1")
	}

	var created *models.Comment
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := loadProject(ctx, tx, actor, in.ProjectID, accessView)
		if err != nil {
			return err
		}
		f, err := tx.GetFile(ctx, in.FileID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NotFound("file not found")
			}
			return Internal("failed to load file", err)
		}
		if f.ProjectID != p.ID {
			return BadRequest("file does not belong to this project")
		}

		c := &models.Comment{
			ProjectID:  p.ID,
			FileID:     f.ID,
			LineNumber: in.LineNumber,
			AuthorID:   actor.UserID,
			Text:       text,
		}
		if err := tx.CreateComment(ctx, c); err != nil {
			return Internal("failed to create comment", err)
		}
		content := fmt.Sprintf("%s commented on %s line %d in %q", displayName(ctx, tx, actor.UserID), f.Filename, c.LineNumber, p.Title)
		if err := publish(ctx, tx, EventCommentCreated, EventPayload{
			ActorID:   actor.UserID,
			ProjectID: p.ID,
			CommentID: c.ID,
			Content:   content,
		}); err != nil {
			return Internal("failed to record comment event", err)
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	kick(s.events)
	return created, nil
}

// List trả comment của project, lọc thêm theo file nếu có.
func (s *CommentService) List(ctx context.Context, actor Actor, projectID uuid.UUID, fileID *uuid.UUID) ([]models.Comment, error) {
	if _, err := loadProject(ctx, s.store, actor, projectID, accessView); err != nil {
		return nil, err
	}
	list, err := s.store.ListComments(ctx, repository.CommentFilter{ProjectID: &projectID, FileID: fileID})
	if err != nil {
		return nil, Internal("failed to list comments", err)
	}
	return list, nil
}

func (s *CommentService) ListByFile(ctx context.Context, actor Actor, fileID uuid.UUID) ([]models.Comment, error) {
	f, _, err := loadFile(ctx, s.store, actor, fileID, accessView)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListComments(ctx, repository.CommentFilter{FileID: &f.ID})
	if err != nil {
		return nil, Internal("failed to list comments", err)
	}
	return list, nil
}

func (s *CommentService) loadComment(ctx context.Context, store repository.Store, actor Actor, id uuid.UUID) (*models.Comment, *models.Project, error) {
	c, err := store.GetComment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, NotFound("comment not found")
		}
		return nil, nil, Internal("failed to load comment", err)
	}
	p, err := loadProject(ctx, store, actor, c.ProjectID, accessView)
	if err != nil {
		return nil, nil, err
	}
	return c, p, nil
}

func (s *CommentService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Comment, error) {
	c, _, err := s.loadComment(ctx, s.store, actor, id)
	return c, err
}

// Update: chỉ tác giả được sửa nội dung.
func (s *CommentService) Update(ctx context.Context, actor Actor, id uuid.UUID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, BadRequest("comment text is required")
	}
	c, _, err := s.loadComment(ctx, s.store, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.Is(c.AuthorID) {
		return nil, Forbidden("only the author can edit this comment")
	}
	c.Text = text
	if err := s.store.UpdateComment(ctx, c); err != nil {
		return nil, Internal("failed to update comment", err)
	}
	return c, nil
}

func (s *CommentService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("comment not found")
		}
		return Internal("failed to load comment", err)
	}
	if !actor.Is(c.AuthorID) && !actor.IsAdmin() {
		return Forbidden("only the author or an admin can delete this comment")
	}
	if err := s.store.DeleteComment(ctx, id); err != nil {
		return Internal("failed to delete comment", err)
	}
	return nil
}

func (s *CommentService) AddReply(ctx context.Context, actor Actor, commentID uuid.UUID, text string) (*models.CommentReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, BadRequest("reply text is required")
	}
	var created *models.CommentReply
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		c, p, err := s.loadComment(ctx, tx, actor, commentID)
		if err != nil {
			return err
		}
		r := &models.CommentReply{CommentID: c.ID, AuthorID: actor.UserID, Text: text}
		if err := tx.AddReply(ctx, r); err != nil {
			return Internal("failed to add reply", err)
		}
		content := fmt.Sprintf("%s replied to a comment in %q", displayName(ctx, tx, actor.UserID), p.Title)
		if err := publish(ctx, tx, EventReplyCreated, EventPayload{
			ActorID:   actor.UserID,
			ProjectID: p.ID,
			CommentID: c.ID,
			Content:   content,
		}); err != nil {
			return Internal("failed to record reply event", err)
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	kick(s.events)
	return created, nil
}

func (s *CommentService) DeleteReply(ctx context.Context, actor Actor, commentID, replyID uuid.UUID) error {
	r, err := s.store.GetReply(ctx, replyID)
	if err != nil || r.CommentID != commentID {
		if err == nil || errors.Is(err, repository.ErrNotFound) {
			return NotFound("reply not found")
		}
		return Internal("failed to load reply", err)
	}
	if !actor.Is(r.AuthorID) && !actor.IsAdmin() {
		return Forbidden("only the author or an admin can delete this reply")
	}
	if err := s.store.DeleteReply(ctx, replyID); err != nil {
		return Internal("failed to delete reply", err)
	}
	return nil
}
