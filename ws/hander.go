package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/services"
)

// Authenticator xác minh token của websocket (query param hoặc cookie).
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (services.Actor, *models.User, error)
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// HandleUserWebSocket mở kênh thông báo realtime: /ws/notifications?token=...
// hoặc dùng cookie đăng nhập khi không có token.
func HandleUserWebSocket(hub *Hub, auth Authenticator, cookieName string, allowedOrigins []string, logger *slog.Logger) gin.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" && cookieName != "" {
			token, _ = c.Cookie(cookieName)
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		actor, _, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			var status = http.StatusUnauthorized
			if services.KindOf(err) == services.KindForbidden {
				status = http.StatusForbidden
			}
			c.JSON(status, gin.H{"error": "invalid or expired token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
			return
		}
		userID := actor.UserID.String()
		hub.RegisterUser(userID, conn)
		defer hub.UnregisterUser(userID, conn)
		logger.Debug("user ws connected", slog.String("user_id", userID))

		hub.PushToUser(userID, gin.H{"type": "connected", "message": "Connected to notification stream"})

		readPump(conn, pongWait)
		logger.Debug("user ws disconnected", slog.String("user_id", userID))
	}
}
