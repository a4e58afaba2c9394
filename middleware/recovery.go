package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery bắt panic, log stack và trả 500; chi tiết lỗi chỉ hiện ngoài production.
func Recovery(logger *slog.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error("panic recovered",
				slog.Any("panic", rec),
				slog.String("path", c.Request.URL.Path),
				slog.String("stack", string(debug.Stack())),
			)
			body := gin.H{"error": "internal server error"}
			if !production {
				body["detail"] = fmt.Sprint(rec)
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
