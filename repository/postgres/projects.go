package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	if err := s.loadProjectRefs(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) loadProjectRefs(ctx context.Context, p *models.Project) error {
	p.ReviewerIDs = []uuid.UUID{}
	p.FileIDs = []uuid.UUID{}
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.ProjectReviewer{}).
		Where("project_id = ?", p.ID).Order("created_at").
		Pluck("reviewer_id", &p.ReviewerIDs).Error; err != nil {
		return err
	}
	return db.Model(&models.File{}).
		Where("project_id = ?", p.ID).Order("created_at").
		Pluck("id", &p.FileIDs).Error
}

func (s *Store) UpdateProject(ctx context.Context, p *models.Project) error {
	return translate(s.db.WithContext(ctx).Save(p).Error)
}

func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("project_id = ?", id).Delete(&models.ProjectReviewer{}).Error; err != nil {
		return err
	}
	if err := db.Where("project_id = ?", id).Delete(&models.File{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Project{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// projectQuery dựng điều kiện lọc project; reviewer thấy project được gán trực tiếp
// hoặc của học viên trong cohort / học viên được giao.
func projectQuery(db *gorm.DB, f repository.ProjectFilter) *gorm.DB {
	q := db.Model(&models.Project{})
	if f.StudentID != nil {
		q = q.Where("student_id = ?", *f.StudentID)
	}
	if f.ReviewerID != nil {
		assigned := db.Model(&models.ProjectReviewer{}).Select("project_id").Where("reviewer_id = ?", *f.ReviewerID)
		cond := db.Where("id IN (?)", assigned)
		if len(f.CohortIDs) > 0 {
			students := db.Model(&models.CohortStudent{}).Select("user_id").Where("cohort_id IN ?", f.CohortIDs)
			cond = cond.Or("student_id IN (?)", students)
		}
		if len(f.ReviewedStudentIDs) > 0 {
			cond = cond.Or("student_id IN ?", f.ReviewedStudentIDs)
		}
		q = q.Where(cond)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Tag != "" {
		tag, _ := json.Marshal([]string{f.Tag})
		q = q.Where("tags @> ?::jsonb", string(tag))
	}
	if f.Search != "" {
		q = q.Where("title ILIKE ? OR description ILIKE ?", likePattern(f.Search), likePattern(f.Search))
	}
	return q
}

var projectSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title",
}

func (s *Store) ListProjects(ctx context.Context, f repository.ProjectFilter, p repository.Page) ([]models.Project, int64, error) {
	q := projectQuery(s.db.WithContext(ctx), f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := projectSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: f.SortDesc})

	var projects []models.Project
	if err := paginate(q, p).Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	for i := range projects {
		if err := s.loadProjectRefs(ctx, &projects[i]); err != nil {
			return nil, 0, err
		}
	}
	return projects, total, nil
}

func (s *Store) AddProjectReviewer(ctx context.Context, projectID, reviewerID uuid.UUID) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ProjectReviewer{ProjectID: projectID, ReviewerID: reviewerID}).Error
}

func (s *Store) RemoveProjectReviewer(ctx context.Context, projectID, reviewerID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("project_id = ? AND reviewer_id = ?", projectID, reviewerID).
		Delete(&models.ProjectReviewer{}).Error
}
