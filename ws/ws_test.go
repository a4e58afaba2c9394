package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/services"
)

type stubAuth struct{ userID uuid.UUID }

func (a stubAuth) Authenticate(ctx context.Context, token string) (services.Actor, *models.User, error) {
	if token != "good" {
		return services.Actor{}, nil, errors.New("bad token")
	}
	return services.Actor{UserID: a.userID, Role: models.RoleStudent}, &models.User{ID: a.userID}, nil
}

func newWSServer(t *testing.T, hub *Hub, userID uuid.UUID) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := gin.New()
	r.GET("/ws", HandleUserWebSocket(hub, stubAuth{userID: userID}, "auth_token", nil, logger))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestHandleUserWebSocket_Auth(t *testing.T) {
	hub := NewHub(nil)
	userID := uuid.New()
	url := newWSServer(t, hub, userID)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("dial without token: err=%v resp=%v", err, resp)
	}

	for name, dial := range map[string]func() (*websocket.Conn, *http.Response, error){
		"query": func() (*websocket.Conn, *http.Response, error) {
			return websocket.DefaultDialer.Dial(url+"?token=good", nil)
		},
		"cookie": func() (*websocket.Conn, *http.Response, error) {
			return websocket.DefaultDialer.Dial(url, http.Header{"Cookie": {"auth_token=good"}})
		},
	} {
		conn, _, err := dial()
		if err != nil {
			t.Fatalf("%s dial: %v", name, err)
		}
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("%s read: %v", name, err)
		}
		if msg["type"] != "connected" {
			t.Fatalf("%s first message = %v", name, msg)
		}
		if !hub.IsOnline(userID.String()) {
			t.Fatalf("%s: user should be online", name)
		}
		conn.Close()
	}
}

func TestReadPump_ExpiresSilentPeer(t *testing.T) {
	done := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		readPump(conn, 100*time.Millisecond)
		close(done)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not give up on a silent connection")
	}
}
