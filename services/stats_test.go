package services

import (
	"context"
	"testing"
	"time"

	"github.com/vnkhanh/code-review-backend/models"
)

func TestStats_OverviewCountsByRoleAndStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	stats := NewStatsService(e.store)
	admin := e.user(t, "admin", models.RoleAdmin)
	alice := e.user(t, "alice", models.RoleStudent)
	e.user(t, "bob", models.RoleReviewer)
	e.project(t, alice, "one")
	e.project(t, alice, "two")

	if _, err := stats.Overview(ctx, alice); err == nil {
		t.Fatal("student should not see statistics")
	} else {
		wantKind(t, err, KindForbidden)
	}

	out, err := stats.Overview(ctx, admin)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if out.UsersByRole[models.RoleStudent] != 1 || out.UsersByRole[models.RoleReviewer] != 1 || out.UsersByRole[models.RoleAdmin] != 1 {
		t.Fatalf("users by role = %v", out.UsersByRole)
	}
	if out.ProjectsByStatus[models.ProjectPending] != 2 {
		t.Fatalf("pending projects = %d, want 2", out.ProjectsByStatus[models.ProjectPending])
	}

	e.drain(t)
	out, err = stats.Overview(ctx, admin)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if out.PendingEvents != 0 {
		t.Fatalf("pending events after drain = %d", out.PendingEvents)
	}
}

func TestStats_DailySubmissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	stats := NewStatsService(e.store)
	admin := e.user(t, "admin", models.RoleAdmin)
	alice := e.user(t, "alice", models.RoleStudent)
	e.project(t, alice, "today")

	today := time.Now().UTC()
	points, err := stats.DailySubmissions(ctx, admin, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if len(points) != 8 {
		t.Fatalf("default range has %d points, want 8", len(points))
	}
	last := points[len(points)-1]
	if last.Date != today.Format("2006-01-02") || last.Count != 1 {
		t.Fatalf("last point = %+v", last)
	}

	_, err = stats.DailySubmissions(ctx, admin, today, today.AddDate(0, 0, -1))
	wantKind(t, err, KindBadRequest)
	_, err = stats.DailySubmissions(ctx, admin, today.AddDate(-2, 0, 0), today)
	wantKind(t, err, KindBadRequest)
}
