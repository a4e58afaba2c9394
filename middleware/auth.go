package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/services"
)

const actorKey = "actor"

// Authenticator xác minh token và nạp user, trả Actor cho controller.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (services.Actor, *models.User, error)
}

// bearerToken lấy token từ "Authorization: Bearer <token>", không có thì thử cookie.
func bearerToken(c *gin.Context, cookieName string) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil {
			return token
		}
	}
	return ""
}

func AuthMiddleware(auth Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization token"})
			return
		}

		actor, _, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			msg := "invalid or expired token"
			switch services.KindOf(err) {
			case services.KindForbidden:
				status, msg = http.StatusForbidden, "account is deactivated"
			case services.KindInternal:
				status, msg = http.StatusInternalServerError, "failed to authenticate"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		// Lưu thông tin vào context để controller dùng
		c.Set(actorKey, actor)
		c.Set("user_id", actor.UserID.String())
		c.Set("role", string(actor.Role))
		c.Next()
	}
}

// CurrentActor trả Actor đã được AuthMiddleware gắn vào context.
func CurrentActor(c *gin.Context) (services.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}
