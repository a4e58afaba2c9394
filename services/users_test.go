package services

import (
	"context"
	"strings"
	"testing"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
	"github.com/vnkhanh/code-review-backend/storage"
)

func newUserService(t *testing.T, e *env) *UserService {
	t.Helper()
	objects, err := storage.NewLocalStorage(t.TempDir(), "http://cdn.test")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	return NewUserService(e.store, objects, e.mailer, quietLogger(), "http://localhost:5173", 1<<20)
}

func TestUsers_RoleGrants(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	users := newUserService(t, e)
	root := e.user(t, "root", models.RoleSuperAdmin)
	admin := e.user(t, "admin", models.RoleAdmin)
	bob := e.user(t, "bob", models.RoleReviewer)

	_, err := users.Create(ctx, admin, CreateUserInput{Name: "Eve", Email: "eve@example.com", Password: "secret1", Role: models.RoleAdmin})
	wantKind(t, err, KindForbidden)
	_, err = users.Create(ctx, root, CreateUserInput{Name: "Eve", Email: "eve@example.com", Password: "secret1", Role: models.RoleSuperAdmin})
	wantKind(t, err, KindBadRequest)

	eve, err := users.Create(ctx, root, CreateUserInput{Name: "Eve", Email: "eve@example.com", Password: "secret1", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("superadmin creates admin: %v", err)
	}
	if !eve.IsVerified || e.mailer.count() != 1 {
		t.Fatalf("created user should be verified and welcomed")
	}

	_, err = users.SetRole(ctx, admin, bob.UserID, models.RoleAdmin, nil)
	wantKind(t, err, KindForbidden)
	_, err = users.SetActive(ctx, admin, eve.ID, false)
	wantKind(t, err, KindForbidden)
	_, err = users.SetActive(ctx, admin, admin.UserID, false)
	wantKind(t, err, KindBadRequest)

	u, err := users.SetActive(ctx, admin, bob.UserID, false)
	if err != nil || u.IsActive {
		t.Fatalf("deactivate reviewer: %v", err)
	}
}

func TestUsers_ProfileAndPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	users := newUserService(t, e)
	root := e.user(t, "root", models.RoleSuperAdmin)

	created, err := users.Create(ctx, root, CreateUserInput{Name: "Bob", Email: "bob2@example.com", Password: "secret1", Role: models.RoleReviewer})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	bob := Actor{UserID: created.ID, Role: created.Role}

	bio := "  Go dev  "
	u, err := users.UpdateProfile(ctx, bob, ProfileInput{Bio: &bio})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if u.Bio != "Go dev" {
		t.Fatalf("bio = %q", u.Bio)
	}

	wantKind(t, users.ChangePassword(ctx, bob, "wrong", "another1"), KindUnauthorized)
	if err := users.ChangePassword(ctx, bob, "secret1", "another1"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	prefs := models.DefaultNotificationPreferences()
	prefs.EmailNewComment = false
	u, err = users.UpdatePreferences(ctx, bob, prefs)
	if err != nil || u.Preferences.EmailNewComment {
		t.Fatalf("preferences not saved: %v", err)
	}

	_, err = users.UploadAvatar(ctx, bob, UploadInput{Filename: "a.txt", ContentType: "text/plain", Size: 1, Body: strings.NewReader("x")})
	wantKind(t, err, KindBadRequest)
	u, err = users.UploadAvatar(ctx, bob, UploadInput{Filename: "me.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")})
	if err != nil {
		t.Fatalf("avatar: %v", err)
	}
	if !strings.HasPrefix(u.ProfilePicture, "http://cdn.test/avatars/") {
		t.Fatalf("profile picture = %q", u.ProfilePicture)
	}
}

func TestUsers_StudentCannotViewOthers(t *testing.T) {
	e := newEnv(t)
	users := newUserService(t, e)
	alice := e.user(t, "alice", models.RoleStudent)
	mallory := e.user(t, "mallory", models.RoleStudent)
	_, err := users.Get(context.Background(), mallory, alice.UserID)
	wantKind(t, err, KindForbidden)
	_, _, err = users.List(context.Background(), mallory, repository.UserFilter{}, repository.Page{})
	wantKind(t, err, KindForbidden)
}

func TestUsers_DemotedReviewerLosesAssignments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	users := newUserService(t, e)
	root := e.user(t, "root", models.RoleSuperAdmin)
	alice := e.user(t, "alice", models.RoleStudent)
	bob := e.user(t, "bob", models.RoleReviewer)
	p := e.project(t, alice, "todo app")
	cohort := newCohort(t, e, root, "Spring")

	projectTarget := models.AssignmentTarget{Kind: models.TargetProject, ID: p.ID}
	cohortTarget := models.AssignmentTarget{Kind: models.TargetCohort, ID: cohort.ID}
	for _, target := range []models.AssignmentTarget{projectTarget, cohortTarget} {
		if _, err := e.assignments.Create(ctx, root, CreateAssignmentInput{ReviewerID: bob.UserID, Target: target}); err != nil {
			t.Fatalf("assign %s: %v", target.Kind, err)
		}
	}

	_, err := users.SetRole(ctx, root, bob.UserID, models.RoleStudent, nil)
	wantKind(t, err, KindBadRequest)

	u, err := users.SetRole(ctx, root, bob.UserID, models.RoleStudent, &cohort.ID)
	if err != nil {
		t.Fatalf("demote: %v", err)
	}
	if u.Role != models.RoleStudent || u.CohortID == nil || *u.CohortID != cohort.ID {
		t.Fatalf("demoted user = %+v", u)
	}

	got, err := e.store.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.HasReviewer(bob.UserID) {
		t.Fatalf("project reviewers after demotion = %v", got.ReviewerIDs)
	}
	c, err := e.store.GetCohort(ctx, cohort.ID)
	if err != nil {
		t.Fatalf("get cohort: %v", err)
	}
	if containsID(c.ReviewerIDs, bob.UserID) || !containsID(c.StudentIDs, bob.UserID) {
		t.Fatalf("cohort reviewers=%v students=%v", c.ReviewerIDs, c.StudentIDs)
	}
	active := true
	_, n, err := e.store.ListAssignments(ctx, repository.AssignmentFilter{ReviewerID: &bob.UserID, Active: &active}, repository.Page{})
	if err != nil || n != 0 {
		t.Fatalf("active assignments after demotion = %d (%v)", n, err)
	}

	demoted := Actor{UserID: bob.UserID, Role: models.RoleStudent}
	_, err = e.projects.SetStatus(ctx, demoted, p.ID, models.ProjectAccepted)
	wantKind(t, err, KindForbidden)

	// quay lại reviewer thì rời cohort
	u, err = users.SetRole(ctx, root, bob.UserID, models.RoleReviewer, nil)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if u.CohortID != nil {
		t.Fatalf("reviewer still has cohort %v", *u.CohortID)
	}
	c, _ = e.store.GetCohort(ctx, cohort.ID)
	if containsID(c.StudentIDs, bob.UserID) {
		t.Fatalf("cohort students after promotion = %v", c.StudentIDs)
	}
}
