package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodyLimit giới hạn kích thước body; phần dư cho multipart overhead.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes+(1<<20) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+(1<<20))
		c.Next()
	}
}
