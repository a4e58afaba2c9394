package services

import (
	"context"
	"testing"
	"time"

	"github.com/vnkhanh/code-review-backend/models"
)

func newCohort(t *testing.T, e *env, admin Actor, name string) *models.Cohort {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := e.cohorts.Create(context.Background(), admin, CohortInput{Name: name, StartDate: start, EndDate: start.AddDate(0, 5, 0)})
	if err != nil {
		t.Fatalf("create cohort: %v", err)
	}
	return c
}

func TestCohort_DateRange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin", models.RoleAdmin)
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	c, err := e.cohorts.Create(ctx, admin, CohortInput{Name: "Spring 2024", StartDate: jan, EndDate: jun})
	if err != nil {
		t.Fatalf("valid range rejected: %v", err)
	}
	if c.Slug != "spring-2024" {
		t.Fatalf("slug = %q", c.Slug)
	}

	_, err = e.cohorts.Create(ctx, admin, CohortInput{Name: "Backwards", StartDate: jun, EndDate: jan})
	wantKind(t, err, KindBadRequest)
}

func TestCohort_AdminOnlyAndUniqueName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin", models.RoleAdmin)
	reviewer := e.user(t, "bob", models.RoleReviewer)
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := e.cohorts.Create(ctx, reviewer, CohortInput{Name: "K24", StartDate: jan, EndDate: jan.AddDate(0, 1, 0)})
	wantKind(t, err, KindForbidden)

	newCohort(t, e, admin, "K24")
	_, err = e.cohorts.Create(ctx, admin, CohortInput{Name: "K24", StartDate: jan, EndDate: jan.AddDate(0, 1, 0)})
	wantKind(t, err, KindConflict)
}

func TestCohort_MoveStudentAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin", models.RoleAdmin)
	alice := e.user(t, "alice", models.RoleStudent)
	k24 := newCohort(t, e, admin, "K24")
	k25 := newCohort(t, e, admin, "K25")

	if _, err := e.cohorts.AddStudent(ctx, admin, k24.ID, alice.UserID); err != nil {
		t.Fatalf("add: %v", err)
	}
	wantKind(t, e.cohorts.Delete(ctx, admin, k24.ID), KindConflict)

	moved, err := e.cohorts.AddStudent(ctx, admin, k25.ID, alice.UserID)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(moved.StudentIDs) != 1 {
		t.Fatalf("k25 students = %v", moved.StudentIDs)
	}
	old, _ := e.cohorts.Get(ctx, k24.ID)
	if len(old.StudentIDs) != 0 {
		t.Fatalf("k24 students = %v", old.StudentIDs)
	}
	u, _ := e.store.GetUser(ctx, alice.UserID)
	if u.CohortID == nil || *u.CohortID != k25.ID {
		t.Fatalf("user cohort not updated")
	}

	if err := e.cohorts.Delete(ctx, admin, k24.ID); err != nil {
		t.Fatalf("delete empty cohort: %v", err)
	}
	_, err = e.cohorts.Get(ctx, k24.ID)
	wantKind(t, err, KindNotFound)

	_, err = e.cohorts.RemoveStudent(ctx, admin, k25.ID, admin.UserID)
	wantKind(t, err, KindNotFound)
	if _, err := e.cohorts.RemoveStudent(ctx, admin, k25.ID, alice.UserID); err != nil {
		t.Fatalf("remove: %v", err)
	}
}
