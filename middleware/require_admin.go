package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/code-review-backend/models"
)

// RequireRoles cho phép chỉ định nhiều vai trò được quyền truy cập.
// Phải đặt sau AuthMiddleware.
func RequireRoles(allowedRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unable to determine user role"})
			return
		}

		for _, allowed := range allowedRoles {
			if actor.Role == allowed {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "you do not have permission to access this resource",
		})
	}
}

// RequireAdmin = admin hoặc superadmin.
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
}
