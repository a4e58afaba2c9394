package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func orderedReplies(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	if c.Replies == nil {
		c.Replies = []models.CommentReply{}
	}
	return translate(s.db.WithContext(ctx).Omit("Replies").Create(c).Error)
}

func (s *Store) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).Preload("Replies", orderedReplies).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) UpdateComment(ctx context.Context, c *models.Comment) error {
	return translate(s.db.WithContext(ctx).Omit("Replies").Save(c).Error)
}

func (s *Store) DeleteComment(ctx context.Context, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("comment_id = ?", id).Delete(&models.CommentReply{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Comment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) ListComments(ctx context.Context, f repository.CommentFilter) ([]models.Comment, error) {
	q := s.db.WithContext(ctx).Preload("Replies", orderedReplies)
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.FileID != nil {
		q = q.Where("file_id = ?", *f.FileID)
	}
	var comments []models.Comment
	if err := q.Order("line_number ASC, created_at ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Store) DeleteCommentsByProject(ctx context.Context, projectID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	ids := db.Model(&models.Comment{}).Select("id").Where("project_id = ?", projectID)
	if err := db.Where("comment_id IN (?)", ids).Delete(&models.CommentReply{}).Error; err != nil {
		return err
	}
	return db.Where("project_id = ?", projectID).Delete(&models.Comment{}).Error
}

func (s *Store) DeleteCommentsByFile(ctx context.Context, fileID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	ids := db.Model(&models.Comment{}).Select("id").Where("file_id = ?", fileID)
	if err := db.Where("comment_id IN (?)", ids).Delete(&models.CommentReply{}).Error; err != nil {
		return err
	}
	return db.Where("file_id = ?", fileID).Delete(&models.Comment{}).Error
}

func (s *Store) AddReply(ctx context.Context, r *models.CommentReply) error {
	db := s.db.WithContext(ctx)
	if err := db.Create(r).Error; err != nil {
		return translate(err)
	}
	// reply mới cũng tính là comment được cập nhật
	return db.Model(&models.Comment{}).Where("id = ?", r.CommentID).Update("updated_at", r.CreatedAt).Error
}

func (s *Store) GetReply(ctx context.Context, id uuid.UUID) (*models.CommentReply, error) {
	var r models.CommentReply
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) DeleteReply(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.CommentReply{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
