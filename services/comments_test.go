package services

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/storage"
)

type commentFixture struct {
	e     *env
	files *FileService
	admin Actor
	alice Actor
	bob   Actor
	p     *models.Project
	f     *models.File
}

func newCommentFixture(t *testing.T) *commentFixture {
	t.Helper()
	e := newEnv(t)
	objects, err := storage.NewLocalStorage(t.TempDir(), "")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	fx := &commentFixture{
		e:     e,
		files: NewFileService(e.store, objects, nil, quietLogger(), 1<<10),
		admin: e.user(t, "admin", models.RoleAdmin),
		alice: e.user(t, "alice", models.RoleStudent),
		bob:   e.user(t, "bob", models.RoleReviewer),
	}
	fx.p = e.project(t, fx.alice, "todo app")
	src := "console.log('hi')\n"
	fx.f, err = fx.files.Upload(context.Background(), fx.alice, fx.p.ID, UploadInput{Filename: "index.js", Size: int64(len(src)), Body: strings.NewReader(src)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return fx
}

func TestComment_Validation(t *testing.T) {
	fx := newCommentFixture(t)
	ctx := context.Background()

	_, err := fx.e.comments.Create(ctx, fx.alice, CreateCommentInput{ProjectID: fx.p.ID, FileID: fx.f.ID, LineNumber: 0, Text: "x"})
	wantKind(t, err, KindBadRequest)
	_, err = fx.e.comments.Create(ctx, fx.alice, CreateCommentInput{ProjectID: fx.p.ID, FileID: fx.f.ID, LineNumber: 1, Text: " "})
	wantKind(t, err, KindBadRequest)

	// reviewer chưa được giao thì không xem được project
	_, err = fx.e.comments.Create(ctx, fx.bob, CreateCommentInput{ProjectID: fx.p.ID, FileID: fx.f.ID, LineNumber: 1, Text: "x"})
	wantKind(t, err, KindForbidden)

	other := fx.e.project(t, fx.alice, "other")
	_, err = fx.e.comments.Create(ctx, fx.alice, CreateCommentInput{ProjectID: other.ID, FileID: fx.f.ID, LineNumber: 1, Text: "x"})
	wantKind(t, err, KindBadRequest)
}

func TestComment_EditAndDeletePermissions(t *testing.T) {
	fx := newCommentFixture(t)
	ctx := context.Background()
	if _, err := fx.e.assignments.Create(ctx, fx.admin, CreateAssignmentInput{ReviewerID: fx.bob.UserID, Target: models.AssignmentTarget{Kind: models.TargetProject, ID: fx.p.ID}}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	c, err := fx.e.comments.Create(ctx, fx.bob, CreateCommentInput{ProjectID: fx.p.ID, FileID: fx.f.ID, LineNumber: 1, Text: "use const"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = fx.e.comments.Update(ctx, fx.alice, c.ID, "nope")
	wantKind(t, err, KindForbidden)
	updated, err := fx.e.comments.Update(ctx, fx.bob, c.ID, "prefer const")
	if err != nil || updated.Text != "prefer const" {
		t.Fatalf("update: %v", err)
	}

	r, err := fx.e.comments.AddReply(ctx, fx.alice, c.ID, "ok")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	wantKind(t, fx.e.comments.DeleteReply(ctx, fx.bob, c.ID, r.ID), KindForbidden)
	if err := fx.e.comments.DeleteReply(ctx, fx.admin, c.ID, r.ID); err != nil {
		t.Fatalf("admin delete reply: %v", err)
	}

	list, err := fx.e.comments.ListByFile(ctx, fx.alice, fx.f.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list by file = %d, %v", len(list), err)
	}

	wantKind(t, fx.e.comments.Delete(ctx, fx.alice, c.ID), KindForbidden)
	if err := fx.e.comments.Delete(ctx, fx.bob, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestComment_SelfCommentOnOwnProjectNotifiesNobodyElse(t *testing.T) {
	fx := newCommentFixture(t)
	ctx := context.Background()
	if _, err := fx.e.comments.Create(ctx, fx.alice, CreateCommentInput{ProjectID: fx.p.ID, FileID: fx.f.ID, LineNumber: 1, Text: "note to self"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	fx.e.drain(t)
	if n := len(fx.e.notificationsOf(t, fx.alice.UserID, models.NotificationNewComment)); n != 0 {
		t.Fatalf("self notifications = %d", n)
	}
}

func TestFile_UploadLimitsAndDelete(t *testing.T) {
	fx := newCommentFixture(t)
	ctx := context.Background()

	big := strings.Repeat("a", 2<<10)
	_, err := fx.files.Upload(ctx, fx.alice, fx.p.ID, UploadInput{Filename: "big.txt", Size: int64(len(big)), Body: strings.NewReader(big)})
	wantKind(t, err, KindTooLarge)
	// Size khai báo sai vẫn bị chặn khi đọc
	_, err = fx.files.Upload(ctx, fx.alice, fx.p.ID, UploadInput{Filename: "big.txt", Size: 1, Body: strings.NewReader(big)})
	wantKind(t, err, KindTooLarge)

	_, err = fx.files.Upload(ctx, fx.bob, fx.p.ID, UploadInput{Filename: "x.go", Size: 1, Body: strings.NewReader("x")})
	wantKind(t, err, KindForbidden)

	_, err = fx.files.ReviewHints(ctx, fx.alice, fx.f.ID)
	wantKind(t, err, KindUnavailable)

	if _, err := fx.e.comments.Create(ctx, fx.alice, CreateCommentInput{ProjectID: fx.p.ID, FileID: fx.f.ID, LineNumber: 1, Text: "todo"}); err != nil {
		t.Fatalf("comment: %v", err)
	}

	_, body, err := fx.files.Download(ctx, fx.alice, fx.f.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	body.Close()

	if err := fx.files.Delete(ctx, fx.alice, fx.f.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = fx.files.Get(ctx, fx.alice, fx.f.ID)
	wantKind(t, err, KindNotFound)
	list, _ := fx.e.comments.List(ctx, fx.alice, fx.p.ID, nil)
	if len(list) != 0 {
		t.Fatalf("comments should be deleted with the file")
	}
}

type stubGenerator struct{ prompt string }

func (g *stubGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return "looks good", nil
}

func TestFile_ReviewHintsUsesContent(t *testing.T) {
	fx := newCommentFixture(t)
	gen := &stubGenerator{}
	objects, _ := storage.NewLocalStorage(t.TempDir(), "")
	files := NewFileService(fx.e.store, objects, gen, quietLogger(), 0)

	hint, err := files.ReviewHints(context.Background(), fx.alice, fx.f.ID)
	if err != nil {
		t.Fatalf("hints: %v", err)
	}
	if hint != "looks good" || !strings.Contains(gen.prompt, "console.log") {
		t.Fatalf("hint = %q, prompt = %q", hint, gen.prompt)
	}
}

func TestTruncateUTF8(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"xin chào", 7, "xin ch"}, // "à" chiếm 2 byte
		{"日本語", 4, "日"},
		{"日本語", 2, ""},
	}
	for _, c := range cases {
		got := truncateUTF8(c.in, c.limit)
		if got != c.want || !utf8.ValidString(got) {
			t.Errorf("truncateUTF8(%q, %d) = %q, want %q", c.in, c.limit, got, c.want)
		}
	}
}
