package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/storage"
)

func TestScenario_AssignThenDeactivateProjectReviewer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin", models.RoleAdmin)
	auth := NewAuthService(e.store, nil, e.mailer, nil, quietLogger(), "http://localhost:5173")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cohort, err := e.cohorts.Create(ctx, admin, CohortInput{Name: "K24", StartDate: start, EndDate: start.AddDate(0, 5, 0)})
	if err != nil {
		t.Fatalf("create cohort: %v", err)
	}

	a, err := auth.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret1", CohortID: &cohort.ID})
	if err != nil {
		t.Fatalf("register student: %v", err)
	}
	b, err := auth.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "secret1", Role: models.RoleReviewer})
	if err != nil {
		t.Fatalf("register reviewer: %v", err)
	}
	alice := Actor{UserID: a.ID, Role: a.Role}

	p := e.project(t, alice, "todo app")
	asg, err := e.assignments.Create(ctx, admin, CreateAssignmentInput{ReviewerID: b.ID, Target: models.AssignmentTarget{Kind: models.TargetProject, ID: p.ID}})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	got, err := e.projects.Get(ctx, alice, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if !got.HasReviewer(b.ID) {
		t.Fatalf("reviewers = %v, want bob", got.ReviewerIDs)
	}

	if _, err := e.assignments.SetActive(ctx, admin, asg.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, _ = e.projects.Get(ctx, alice, p.ID)
	if got.HasReviewer(b.ID) {
		t.Fatalf("reviewers = %v, bob should be removed", got.ReviewerIDs)
	}

	e.drain(t)
	if n := len(e.notificationsOf(t, b.ID, models.NotificationNewAssignment)); n != 1 {
		t.Fatalf("bob assignment notifications = %d, want 1", n)
	}
}

func TestScenario_ReplyNotifiesCommentAuthorOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	objects, err := storage.NewLocalStorage(t.TempDir(), "")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	files := NewFileService(e.store, objects, nil, quietLogger(), 0)

	admin := e.user(t, "admin", models.RoleAdmin)
	alice := e.user(t, "alice", models.RoleStudent)
	bob := e.user(t, "bob", models.RoleReviewer)
	p := e.project(t, alice, "todo app")
	if _, err := e.assignments.Create(ctx, admin, CreateAssignmentInput{ReviewerID: bob.UserID, Target: models.AssignmentTarget{Kind: models.TargetProject, ID: p.ID}}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	e.drain(t)

	src := "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"
	f, err := files.Upload(ctx, alice, p.ID, UploadInput{Filename: "main.go", ContentType: "text/plain", Size: int64(len(src)), Body: strings.NewReader(src)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if f.Language != "go" || f.Content != src {
		t.Fatalf("file language=%q content stored=%v", f.Language, f.Content == src)
	}

	c, err := e.comments.Create(ctx, alice, CreateCommentInput{ProjectID: p.ID, FileID: f.ID, LineNumber: 5, Text: "is this ok?"})
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	e.drain(t)

	if n := len(e.notificationsOf(t, alice.UserID, models.NotificationNewComment)); n != 0 {
		t.Fatalf("alice got %d notifications for her own comment", n)
	}
	bobBefore := len(e.notificationsOf(t, bob.UserID, models.NotificationNewComment))
	if bobBefore != 1 {
		t.Fatalf("bob comment notifications = %d, want 1", bobBefore)
	}

	if _, err := e.comments.AddReply(ctx, bob, c.ID, "looks fine"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	e.drain(t)

	if n := len(e.notificationsOf(t, alice.UserID, models.NotificationNewComment)); n != 1 {
		t.Fatalf("alice notifications = %d, want exactly 1", n)
	}
	if n := len(e.notificationsOf(t, bob.UserID, models.NotificationNewComment)); n != bobBefore {
		t.Fatalf("bob received a notification for his own reply")
	}
}
