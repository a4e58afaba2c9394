package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func (s *Store) withRefs(p models.Project) models.Project {
	p.Tags = append([]string{}, p.Tags...)
	p.ReviewerIDs = append([]uuid.UUID{}, s.st.projectReviewers[p.ID]...)
	var fileIDs []uuid.UUID
	for id, f := range s.st.files {
		if f.ProjectID == p.ID {
			fileIDs = append(fileIDs, id)
		}
	}
	s.sortByCreated(fileIDs, func(id uuid.UUID) time.Time { return s.st.files[id].CreatedAt }, false)
	p.FileIDs = append([]uuid.UUID{}, fileIDs...)
	return p
}

func stripRefs(p models.Project) models.Project {
	p.Tags = append([]string{}, p.Tags...)
	p.ReviewerIDs, p.FileIDs = nil, nil
	return p
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	defer s.lock()()
	s.st.track(&p.ID)
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Status == "" {
		p.Status = models.ProjectPending
	}
	s.st.projects[p.ID] = stripRefs(*p)
	*p = s.withRefs(s.st.projects[p.ID])
	return nil
}

func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	defer s.rlock()()
	p, ok := s.st.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = s.withRefs(p)
	return &p, nil
}

func (s *Store) UpdateProject(ctx context.Context, p *models.Project) error {
	defer s.lock()()
	if _, ok := s.st.projects[p.ID]; !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = s.now()
	s.st.projects[p.ID] = stripRefs(*p)
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.st.projects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.st.projects, id)
	delete(s.st.projectReviewers, id)
	for fid, f := range s.st.files {
		if f.ProjectID == id {
			delete(s.st.files, fid)
		}
	}
	return nil
}

func (s *Store) projectMatches(p models.Project, f repository.ProjectFilter) bool {
	if f.StudentID != nil && p.StudentID != *f.StudentID {
		return false
	}
	if f.ReviewerID != nil {
		listed := false
		for _, r := range s.st.projectReviewers[p.ID] {
			if r == *f.ReviewerID {
				listed = true
				break
			}
		}
		if !listed {
			for _, cohortID := range f.CohortIDs {
				for _, st := range s.st.cohortStudents[cohortID] {
					if st == p.StudentID {
						listed = true
					}
				}
			}
		}
		for _, st := range f.ReviewedStudentIDs {
			if st == p.StudentID {
				listed = true
			}
		}
		if !listed {
			return false
		}
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range p.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" && !containsFold(p.Title, f.Search) && !containsFold(p.Description, f.Search) {
		return false
	}
	return true
}

func (s *Store) ListProjects(ctx context.Context, f repository.ProjectFilter, p repository.Page) ([]models.Project, int64, error) {
	defer s.rlock()()
	var ids []uuid.UUID
	for id, proj := range s.st.projects {
		if s.projectMatches(proj, f) {
			ids = append(ids, id)
		}
	}

	switch f.SortBy {
	case "title":
		sort.SliceStable(ids, func(i, j int) bool {
			a, b := strings.ToLower(s.st.projects[ids[i]].Title), strings.ToLower(s.st.projects[ids[j]].Title)
			if f.SortDesc {
				return a > b
			}
			return a < b
		})
	case "updated_at":
		s.sortByCreated(ids, func(id uuid.UUID) time.Time { return s.st.projects[id].UpdatedAt }, f.SortDesc)
	default:
		s.sortByCreated(ids, func(id uuid.UUID) time.Time { return s.st.projects[id].CreatedAt }, f.SortDesc)
	}

	out := make([]models.Project, 0, len(ids))
	for _, id := range pageOf(ids, p) {
		out = append(out, s.withRefs(s.st.projects[id]))
	}
	return out, int64(len(ids)), nil
}

func (s *Store) AddProjectReviewer(ctx context.Context, projectID, reviewerID uuid.UUID) error {
	defer s.lock()()
	s.st.projectReviewers[projectID] = addToSet(s.st.projectReviewers[projectID], reviewerID)
	return nil
}

func (s *Store) RemoveProjectReviewer(ctx context.Context, projectID, reviewerID uuid.UUID) error {
	defer s.lock()()
	s.st.projectReviewers[projectID] = removeFromSet(s.st.projectReviewers[projectID], reviewerID)
	return nil
}
