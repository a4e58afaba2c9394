package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
	"github.com/vnkhanh/code-review-backend/repository/memory"
)

func init() {
	passwordCost = bcrypt.MinCost
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMail struct {
	To       string
	Subject  string
	Template string
	Data     any
}

type fakeMailer struct {
	mu   sync.Mutex
	fail bool
	sent []sentMail
}

func (m *fakeMailer) SendTemplate(ctx context.Context, to, subject, name string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Template: name, Data: data})
	return nil
}

// lastToken lấy token trong link của email gần nhất dùng template name.
func (m *fakeMailer) lastToken(t *testing.T, name string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Template != name {
			continue
		}
		data, _ := m.sent[i].Data.(map[string]interface{})
		link, _ := data["Link"].(string)
		if idx := strings.Index(link, "token="); idx >= 0 {
			return link[idx+len("token="):]
		}
	}
	t.Fatalf("no %s email with a token link", name)
	return ""
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakePusher struct {
	mu     sync.Mutex
	pushes map[string]int
	badges map[string]int64
}

func newFakePusher() *fakePusher {
	return &fakePusher{pushes: map[string]int{}, badges: map[string]int64{}}
}

func (p *fakePusher) PushToUser(userID string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes[userID]++
}

func (p *fakePusher) SendBadgeUpdate(userID string, count int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.badges[userID] = count
}

// env dựng đủ service trên memory store để test như gọi qua API.
type env struct {
	store         *memory.Store
	mailer        *fakeMailer
	pusher        *fakePusher
	notifications *NotificationService
	relay         *Relay
	projects      *ProjectService
	assignments   *AssignmentService
	comments      *CommentService
	cohorts       *CohortService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	mailer := &fakeMailer{}
	pusher := newFakePusher()
	logger := quietLogger()
	notifications := NewNotificationService(store, mailer, pusher, logger, "http://localhost:5173")
	relay := NewRelay(store, notifications, logger, time.Second)
	return &env{
		store:         store,
		mailer:        mailer,
		pusher:        pusher,
		notifications: notifications,
		relay:         relay,
		projects:      NewProjectService(store, nil, relay, logger),
		assignments:   NewAssignmentService(store, relay, logger),
		comments:      NewCommentService(store, relay),
		cohorts:       NewCohortService(store),
	}
}

func (e *env) user(t *testing.T, name string, role models.UserRole) Actor {
	t.Helper()
	u := &models.User{
		Name:        name,
		Email:       name + "@example.com",
		Role:        role,
		IsActive:    true,
		IsVerified:  true,
		Preferences: models.DefaultNotificationPreferences(),
	}
	if err := e.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return Actor{UserID: u.ID, Role: role}
}

func (e *env) project(t *testing.T, owner Actor, title string) *models.Project {
	t.Helper()
	p, err := e.projects.Create(context.Background(), owner, CreateProjectInput{Title: title})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

// drain chạy relay cho tới khi outbox trống.
func (e *env) drain(t *testing.T) {
	t.Helper()
	for i := 0; i < 10; i++ {
		n, err := e.relay.ProcessPending(context.Background())
		if err != nil {
			t.Fatalf("process outbox: %v", err)
		}
		if n == 0 {
			return
		}
	}
}

func (e *env) notificationsOf(t *testing.T, id uuid.UUID, typ models.NotificationType) []models.Notification {
	t.Helper()
	list, _, err := e.store.ListNotifications(context.Background(), id, false, repository.Page{})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	var out []models.Notification
	for _, n := range list {
		if typ == "" || n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error kind %d, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected error kind %d, got %d (%v)", kind, got, err)
	}
}
