package services

import (
	"context"
	"time"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

type DailyPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type DashboardOverview struct {
	UsersByRole       map[models.UserRole]int64      `json:"users_by_role"`
	ProjectsByStatus  map[models.ProjectStatus]int64 `json:"projects_by_status"`
	ActiveCohorts     int64                          `json:"active_cohorts"`
	ActiveAssignments int64                          `json:"active_assignments"`
	PendingEvents     int                            `json:"pending_events"`
}

// StatsService tổng hợp số liệu cho dashboard admin.
type StatsService struct {
	store repository.Store
	now   func() time.Time
}

func NewStatsService(store repository.Store) *StatsService {
	return &StatsService{store: store, now: time.Now}
}

// count chỉ cần total nên lấy trang 1 phần tử.
var countPage = repository.Page{Page: 1, Limit: 1}

func (s *StatsService) Overview(ctx context.Context, actor Actor) (*DashboardOverview, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("only admins can view statistics")
	}
	out := &DashboardOverview{
		UsersByRole:      map[models.UserRole]int64{},
		ProjectsByStatus: map[models.ProjectStatus]int64{},
	}

	for _, role := range []models.UserRole{models.RoleStudent, models.RoleReviewer, models.RoleAdmin, models.RoleSuperAdmin} {
		_, total, err := s.store.ListUsers(ctx, repository.UserFilter{Role: role}, countPage)
		if err != nil {
			return nil, Internal("failed to count users", err)
		}
		out.UsersByRole[role] = total
	}
	for _, status := range []models.ProjectStatus{models.ProjectPending, models.ProjectAccepted, models.ProjectRevisionRequested} {
		_, total, err := s.store.ListProjects(ctx, repository.ProjectFilter{Status: status}, countPage)
		if err != nil {
			return nil, Internal("failed to count projects", err)
		}
		out.ProjectsByStatus[status] = total
	}

	active := true
	_, cohorts, err := s.store.ListCohorts(ctx, repository.CohortFilter{Active: &active}, countPage)
	if err != nil {
		return nil, Internal("failed to count cohorts", err)
	}
	out.ActiveCohorts = cohorts
	_, assignments, err := s.store.ListAssignments(ctx, repository.AssignmentFilter{Active: &active}, countPage)
	if err != nil {
		return nil, Internal("failed to count assignments", err)
	}
	out.ActiveAssignments = assignments

	pending, err := s.store.ListPendingEvents(ctx, 0)
	if err != nil {
		return nil, Internal("failed to count pending events", err)
	}
	out.PendingEvents = len(pending)
	return out, nil
}

// DailySubmissions đếm project theo ngày nộp trong [from, to], ngày trống trả 0.
func (s *StatsService) DailySubmissions(ctx context.Context, actor Actor, from, to time.Time) ([]DailyPoint, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("only admins can view statistics")
	}
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -7)
	}
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	if to.Before(from) {
		return nil, BadRequest("'to' must not be before 'from'")
	}
	if to.Sub(from) > 366*24*time.Hour {
		return nil, BadRequest("date range must be at most one year")
	}

	projects, _, err := s.store.ListProjects(ctx, repository.ProjectFilter{}, repository.Page{})
	if err != nil {
		return nil, Internal("failed to list projects", err)
	}
	counts := map[string]int64{}
	for _, p := range projects {
		counts[p.SubmittedAt.UTC().Format("2006-01-02")]++
	}

	var out []DailyPoint
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		out = append(out, DailyPoint{Date: key, Count: counts[key]})
	}
	return out, nil
}
