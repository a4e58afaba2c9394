package services

import (
	"context"
	"testing"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

func TestProject_OnlyStudentsSubmit(t *testing.T) {
	e := newEnv(t)
	reviewer := e.user(t, "bob", models.RoleReviewer)
	_, err := e.projects.Create(context.Background(), reviewer, CreateProjectInput{Title: "x"})
	wantKind(t, err, KindForbidden)

	student := e.user(t, "alice", models.RoleStudent)
	_, err = e.projects.Create(context.Background(), student, CreateProjectInput{Title: "   "})
	wantKind(t, err, KindBadRequest)
}

func TestProject_CreateNormalizesTags(t *testing.T) {
	e := newEnv(t)
	student := e.user(t, "alice", models.RoleStudent)
	p, err := e.projects.Create(context.Background(), student, CreateProjectInput{Title: "api", Tags: []string{"Go", " go ", "", "REST"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "go" || p.Tags[1] != "rest" {
		t.Fatalf("tags = %v", p.Tags)
	}
	if p.Status != models.ProjectPending {
		t.Fatalf("status = %s", p.Status)
	}
}

func TestProject_StudentCannotTouchOthers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", models.RoleStudent)
	mallory := e.user(t, "mallory", models.RoleStudent)
	p := e.project(t, alice, "todo app")

	title := "hijacked"
	_, err := e.projects.Update(ctx, mallory, p.ID, UpdateProjectInput{Title: &title})
	wantKind(t, err, KindForbidden)
	wantKind(t, e.projects.Delete(ctx, mallory, p.ID), KindForbidden)
	_, err = e.projects.Get(ctx, mallory, p.ID)
	wantKind(t, err, KindForbidden)
}

func TestProject_StatusRequiresListedReviewer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin", models.RoleAdmin)
	alice := e.user(t, "alice", models.RoleStudent)
	bob := e.user(t, "bob", models.RoleReviewer)
	p := e.project(t, alice, "todo app")

	_, err := e.projects.SetStatus(ctx, bob, p.ID, models.ProjectAccepted)
	wantKind(t, err, KindForbidden)
	_, err = e.projects.SetStatus(ctx, alice, p.ID, models.ProjectAccepted)
	wantKind(t, err, KindForbidden)

	if _, err := e.assignments.Create(ctx, admin, CreateAssignmentInput{ReviewerID: bob.UserID, Target: models.AssignmentTarget{Kind: models.TargetProject, ID: p.ID}}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	_, err = e.projects.SetStatus(ctx, bob, p.ID, "done")
	wantKind(t, err, KindBadRequest)

	got, err := e.projects.SetStatus(ctx, bob, p.ID, models.ProjectRevisionRequested)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if got.Status != models.ProjectRevisionRequested {
		t.Fatalf("status = %s", got.Status)
	}

	e.drain(t)
	if n := len(e.notificationsOf(t, alice.UserID, models.NotificationProjectStatus)); n != 1 {
		t.Fatalf("alice status notifications = %d, want 1", n)
	}
	if n := len(e.notificationsOf(t, bob.UserID, models.NotificationProjectStatus)); n != 0 {
		t.Fatalf("bob should not be notified of his own change")
	}

	// sửa project khi đang revision_requested là nộp lại
	desc := "fixed"
	updated, err := e.projects.Update(ctx, alice, p.ID, UpdateProjectInput{Description: &desc})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != models.ProjectPending {
		t.Fatalf("status after resubmit = %s", updated.Status)
	}
}

func TestProject_FeedbackWrittenThenEdited(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin", models.RoleAdmin)
	alice := e.user(t, "alice", models.RoleStudent)
	p := e.project(t, alice, "todo app")

	_, err := e.projects.SetFeedback(ctx, admin, p.ID, "  ")
	wantKind(t, err, KindBadRequest)

	got, err := e.projects.SetFeedback(ctx, admin, p.ID, "nice work")
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if got.Feedback.WrittenAt == nil || got.Feedback.EditedAt != nil {
		t.Fatalf("first feedback should only set written_at")
	}
	got, _ = e.projects.SetFeedback(ctx, admin, p.ID, "nice work, add tests")
	if got.Feedback.EditedAt == nil || got.Feedback.Text != "nice work, add tests" {
		t.Fatalf("second feedback should edit: %+v", got.Feedback)
	}
}

func TestProject_SubmissionNotifiesCohortReviewers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin", models.RoleAdmin)
	alice := e.user(t, "alice", models.RoleStudent)
	bob := e.user(t, "bob", models.RoleReviewer)
	carol := e.user(t, "carol", models.RoleReviewer)

	c := newCohort(t, e, admin, "K24")
	if _, err := e.cohorts.AddStudent(ctx, admin, c.ID, alice.UserID); err != nil {
		t.Fatalf("add student: %v", err)
	}
	if _, err := e.assignments.Create(ctx, admin, CreateAssignmentInput{ReviewerID: bob.UserID, Target: models.AssignmentTarget{Kind: models.TargetCohort, ID: c.ID}}); err != nil {
		t.Fatalf("assign cohort: %v", err)
	}
	if _, err := e.assignments.Create(ctx, admin, CreateAssignmentInput{ReviewerID: carol.UserID, Target: models.AssignmentTarget{Kind: models.TargetStudent, ID: alice.UserID}}); err != nil {
		t.Fatalf("assign student: %v", err)
	}

	p := e.project(t, alice, "todo app")
	e.drain(t)

	for _, r := range []Actor{bob, carol} {
		if n := len(e.notificationsOf(t, r.UserID, models.NotificationNewSubmission)); n != 1 {
			t.Fatalf("reviewer %s submission notifications = %d, want 1", r.UserID, n)
		}
		// reviewer của cohort / học viên được xem project
		if _, err := e.projects.Get(ctx, r, p.ID); err != nil {
			t.Fatalf("reviewer should view project: %v", err)
		}
	}

	list, total, err := e.projects.List(ctx, bob, ProjectQuery{}, repository.Page{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || list[0].ID != p.ID {
		t.Fatalf("bob list total = %d", total)
	}
}

func TestProject_DeleteCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin", models.RoleAdmin)
	alice := e.user(t, "alice", models.RoleStudent)
	bob := e.user(t, "bob", models.RoleReviewer)
	p := e.project(t, alice, "todo app")
	a, err := e.assignments.Create(ctx, admin, CreateAssignmentInput{ReviewerID: bob.UserID, Target: models.AssignmentTarget{Kind: models.TargetProject, ID: p.ID}})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := e.projects.Delete(ctx, alice, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = e.projects.Get(ctx, alice, p.ID)
	wantKind(t, err, KindNotFound)
	_, err = e.assignments.Get(ctx, admin, a.ID)
	wantKind(t, err, KindNotFound)

	// event submission còn trong outbox nhưng project đã mất thì bỏ qua
	e.drain(t)
	pending, _ := e.store.ListPendingEvents(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("pending events = %d", len(pending))
	}
}
