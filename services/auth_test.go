package services

import (
	"context"
	"testing"
	"time"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/utils"
)

func newAuthEnv(t *testing.T) (*env, *AuthService, *models.Cohort) {
	t.Helper()
	e := newEnv(t)
	admin := e.user(t, "admin", models.RoleAdmin)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := e.cohorts.Create(context.Background(), admin, CohortInput{Name: "K24", StartDate: start, EndDate: start.AddDate(0, 5, 0)})
	if err != nil {
		t.Fatalf("create cohort: %v", err)
	}
	auth := NewAuthService(e.store, utils.NewTokenManager("test-secret", time.Hour), e.mailer, nil, quietLogger(), "http://localhost:5173")
	return e, auth, c
}

func TestRegister_Validation(t *testing.T) {
	_, auth, cohort := newAuthEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
		kind ErrorKind
	}{
		{"bad email", RegisterInput{Name: "A", Email: "nope", Password: "secret1", CohortID: &cohort.ID}, KindBadRequest},
		{"short password", RegisterInput{Name: "A", Email: "a@example.com", Password: "123", CohortID: &cohort.ID}, KindBadRequest},
		{"student without cohort", RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1"}, KindBadRequest},
		{"admin self signup", RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1", Role: models.RoleAdmin}, KindBadRequest},
		{"missing name", RegisterInput{Email: "a@example.com", Password: "secret1", CohortID: &cohort.ID}, KindBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Register(ctx, tc.in)
			wantKind(t, err, tc.kind)
		})
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	_, auth, cohort := newAuthEnv(t)
	ctx := context.Background()
	in := RegisterInput{Name: "Alice", Email: "Alice@Example.com", Password: "secret1", CohortID: &cohort.ID}
	if _, err := auth.Register(ctx, in); err != nil {
		t.Fatalf("register: %v", err)
	}
	in.Email = "alice@example.com"
	_, err := auth.Register(ctx, in)
	wantKind(t, err, KindConflict)
}

func TestRegister_JoinsCohortAndSendsVerification(t *testing.T) {
	e, auth, cohort := newAuthEnv(t)
	ctx := context.Background()
	u, err := auth.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret1", CohortID: &cohort.ID})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.IsVerified {
		t.Fatalf("new user must not be verified")
	}
	c, _ := e.store.GetCohort(ctx, cohort.ID)
	if len(c.StudentIDs) != 1 || c.StudentIDs[0] != u.ID {
		t.Fatalf("cohort students = %v", c.StudentIDs)
	}
	if e.mailer.count() != 1 {
		t.Fatalf("verification email not sent")
	}
}

func TestLogin_RequiresVerification(t *testing.T) {
	e, auth, cohort := newAuthEnv(t)
	ctx := context.Background()
	if _, err := auth.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret1", CohortID: &cohort.ID}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, err := auth.Login(ctx, "alice@example.com", "wrong-pass")
	wantKind(t, err, KindUnauthorized)

	_, _, err = auth.Login(ctx, "alice@example.com", "secret1")
	wantKind(t, err, KindForbidden)

	token := e.mailer.lastToken(t, "verify_email")
	if _, err := auth.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	// token chỉ dùng một lần
	_, err = auth.VerifyEmail(ctx, token)
	wantKind(t, err, KindBadRequest)

	u, jwtToken, err := auth.Login(ctx, " ALICE@example.com ", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.LastLogin == nil {
		t.Fatalf("last login should be set")
	}

	actor, _, err := auth.Authenticate(ctx, jwtToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if actor.UserID != u.ID || actor.Role != models.RoleStudent {
		t.Fatalf("actor = %+v", actor)
	}

	_, _, err = auth.Authenticate(ctx, jwtToken+"x")
	wantKind(t, err, KindUnauthorized)
}

func TestPasswordReset_Flow(t *testing.T) {
	e, auth, _ := newAuthEnv(t)
	ctx := context.Background()
	bob := e.user(t, "bob", models.RoleReviewer)

	if err := auth.ForgotPassword(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if e.mailer.count() != 0 {
		t.Fatalf("no email for unknown address")
	}

	if err := auth.ForgotPassword(ctx, "bob@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	token := e.mailer.lastToken(t, "reset_password")

	wantKind(t, auth.ResetPassword(ctx, token, "123"), KindBadRequest)
	if err := auth.ResetPassword(ctx, token, "new-secret"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	wantKind(t, auth.ResetPassword(ctx, token, "new-secret"), KindBadRequest)

	u, _, err := auth.Login(ctx, "bob@example.com", "new-secret")
	if err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if u.ID != bob.UserID {
		t.Fatalf("logged in as wrong user")
	}
}

func TestAuthenticate_RejectsDeactivatedUser(t *testing.T) {
	e, auth, _ := newAuthEnv(t)
	ctx := context.Background()
	bob := e.user(t, "bob", models.RoleReviewer)

	token, err := utils.NewTokenManager("test-secret", time.Hour).GenerateToken(bob.UserID.String(), string(bob.Role))
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	u, _ := e.store.GetUser(ctx, bob.UserID)
	u.IsActive = false
	_ = e.store.UpdateUser(ctx, u)

	_, _, err = auth.Authenticate(ctx, token)
	wantKind(t, err, KindForbidden)
}
