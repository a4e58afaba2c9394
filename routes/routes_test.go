package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/code-review-backend/repository/memory"
	"github.com/vnkhanh/code-review-backend/services"
	"github.com/vnkhanh/code-review-backend/storage"
	"github.com/vnkhanh/code-review-backend/utils"
	"github.com/vnkhanh/code-review-backend/ws"
)

type testServer struct {
	router *gin.Engine
	relay  *services.Relay
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	objects, err := storage.NewLocalStorage(t.TempDir(), "")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	mailer, err := utils.NewMailer(utils.MailConfig{}, logger)
	if err != nil {
		t.Fatalf("mailer: %v", err)
	}
	hub := ws.NewHub(logger)
	notifications := services.NewNotificationService(store, mailer, hub, logger, "")
	relay := services.NewRelay(store, notifications, logger, time.Second)
	auth := services.NewAuthService(store, utils.NewTokenManager("test-secret", time.Hour), mailer, nil, logger, "")

	if err := services.EnsureSuperAdmin(context.Background(), store, "root@example.com", "rootpass", logger); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := gin.New()
	SetupRouter(r, Deps{
		Store:          store,
		Auth:           auth,
		Users:          services.NewUserService(store, objects, mailer, logger, "", 0),
		Cohorts:        services.NewCohortService(store),
		Projects:       services.NewProjectService(store, objects, relay, logger),
		Files:          services.NewFileService(store, objects, nil, logger, 0),
		Comments:       services.NewCommentService(store, relay),
		Assignments:    services.NewAssignmentService(store, relay, logger),
		Notifications:  notifications,
		Stats:          services.NewStatsService(store),
		Hub:            hub,
		Logger:         logger,
		CookieName:     "auth_token",
		MaxUploadBytes: 1 << 20,
	})
	return &testServer{router: r, relay: relay}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	if code != http.StatusOK {
		t.Fatalf("login %s: %d %v", email, code, body)
	}
	return body["token"].(string)
}

func (s *testServer) createUser(t *testing.T, adminToken string, body map[string]string) string {
	t.Helper()
	code, resp := s.do(t, http.MethodPost, "/api/users", adminToken, body)
	if code != http.StatusCreated {
		t.Fatalf("create user: %d %v", code, resp)
	}
	return resp["id"].(string)
}

func hasReviewer(project map[string]any, id string) bool {
	list, _ := project["reviewer_ids"].([]any)
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func TestHealthAndAuthGate(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/health", "", nil)
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: %d %v", code, body)
	}

	code, _ = s.do(t, http.MethodGet, "/api/projects", "", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("projects without token = %d, want 401", code)
	}
	code, _ = s.do(t, http.MethodGet, "/api/projects", "garbage", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("projects with bad token = %d, want 401", code)
	}

	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "root@example.com", "password": "nope"})
	if code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d, want 401", code)
	}
}

func TestAssignmentLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	root := s.login(t, "root@example.com", "rootpass")

	code, cohort := s.do(t, http.MethodPost, "/api/cohorts", root, map[string]string{
		"name": "K24", "start_date": "2024-01-01", "end_date": "2024-06-01",
	})
	if code != http.StatusCreated {
		t.Fatalf("create cohort: %d %v", code, cohort)
	}
	code, _ = s.do(t, http.MethodPost, "/api/cohorts", root, map[string]string{
		"name": "Backwards", "start_date": "2024-06-01", "end_date": "2024-01-01",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("swapped dates = %d, want 400", code)
	}

	aliceID := s.createUser(t, root, map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret1", "role": "student", "cohort_id": cohort["id"].(string),
	})
	bobID := s.createUser(t, root, map[string]string{
		"name": "Bob", "email": "bob@example.com", "password": "secret1", "role": "reviewer",
	})
	alice := s.login(t, "alice@example.com", "secret1")
	bob := s.login(t, "bob@example.com", "secret1")

	code, project := s.do(t, http.MethodPost, "/api/projects", alice, map[string]any{"title": "todo app", "tags": []string{"go"}})
	if code != http.StatusCreated {
		t.Fatalf("create project: %d %v", code, project)
	}
	projectID := project["id"].(string)

	code, _ = s.do(t, http.MethodPost, "/api/projects", bob, map[string]any{"title": "not mine"})
	if code != http.StatusForbidden {
		t.Fatalf("reviewer creating project = %d, want 403", code)
	}
	code, _ = s.do(t, http.MethodPatch, "/api/projects/"+projectID+"/status", bob, map[string]string{"status": "accepted"})
	if code != http.StatusForbidden {
		t.Fatalf("unassigned reviewer status = %d, want 403", code)
	}

	assign := map[string]string{"reviewer_id": bobID, "target_kind": "project", "target_id": projectID}
	code, _ = s.do(t, http.MethodPost, "/api/assignments", bob, assign)
	if code != http.StatusForbidden {
		t.Fatalf("non-admin assignment = %d, want 403", code)
	}
	code, asg := s.do(t, http.MethodPost, "/api/assignments", root, assign)
	if code != http.StatusCreated {
		t.Fatalf("create assignment: %d %v", code, asg)
	}
	code, _ = s.do(t, http.MethodPost, "/api/assignments", root, assign)
	if code != http.StatusConflict {
		t.Fatalf("duplicate assignment = %d, want 409", code)
	}

	_, got := s.do(t, http.MethodGet, "/api/projects/"+projectID, alice, nil)
	if !hasReviewer(got, bobID) {
		t.Fatalf("bob should be a reviewer: %v", got["reviewer_ids"])
	}

	code, _ = s.do(t, http.MethodPatch, "/api/projects/"+projectID+"/status", bob, map[string]string{"status": "accepted"})
	if code != http.StatusOK {
		t.Fatalf("assigned reviewer status = %d", code)
	}

	code, _ = s.do(t, http.MethodPatch, "/api/assignments/"+asg["id"].(string)+"/active", root, map[string]bool{"is_active": false})
	if code != http.StatusOK {
		t.Fatalf("deactivate: %d", code)
	}
	_, got = s.do(t, http.MethodGet, "/api/projects/"+projectID, alice, nil)
	if hasReviewer(got, bobID) {
		t.Fatalf("bob should be removed: %v", got["reviewer_ids"])
	}

	if _, err := s.relay.ProcessPending(context.Background()); err != nil {
		t.Fatalf("relay: %v", err)
	}
	code, count := s.do(t, http.MethodGet, "/api/notifications/unread-count", alice, nil)
	if code != http.StatusOK {
		t.Fatalf("unread count: %d", code)
	}
	// đổi trạng thái project gửi thông báo cho học viên
	if n, _ := count["unread_count"].(float64); n != 1 {
		t.Fatalf("alice unread = %v, want 1 (user %s)", count, aliceID)
	}
}

func TestStudentCannotReachAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	root := s.login(t, "root@example.com", "rootpass")
	s.createUser(t, root, map[string]string{"name": "Bob", "email": "bob@example.com", "password": "secret1", "role": "reviewer"})
	bob := s.login(t, "bob@example.com", "secret1")

	for _, path := range []string{"/api/users", "/api/assignments", "/api/stats/overview"} {
		code, _ := s.do(t, http.MethodGet, path, bob, nil)
		if code != http.StatusForbidden {
			t.Fatalf("GET %s as reviewer = %d, want 403", path, code)
		}
	}
	code, _ := s.do(t, http.MethodGet, "/api/assignments/me", bob, nil)
	if code != http.StatusOK {
		t.Fatalf("GET /api/assignments/me = %d", code)
	}
}

func TestHugePageReturnsEmptyList(t *testing.T) {
	s := newTestServer(t)
	root := s.login(t, "root@example.com", "rootpass")

	for _, path := range []string{
		"/api/users?page=9223372036854775807&limit=100",
		"/api/notifications?page=922337203685477580",
	} {
		code, body := s.do(t, http.MethodGet, path, root, nil)
		if code != http.StatusOK {
			t.Fatalf("GET %s = %d %v", path, code, body)
		}
		for key, v := range body {
			if list, ok := v.([]any); ok && len(list) != 0 {
				t.Fatalf("GET %s %s = %v, want empty", path, key, list)
			}
		}
	}
}
