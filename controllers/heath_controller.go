package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type StatsProvider interface {
	GetStats() map[string]int
}

func HealthCheck(db Pinger, hub StatsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Mặc định trạng thái OK
		response := gin.H{
			"status":    "ok",
			"message":   "Service is healthy",
			"timestamp": time.Now().Unix(),
			"db":        "ok",
		}
		if hub != nil {
			response["websocket"] = gin.H{
				"enabled": true,
				"stats":   hub.GetStats(),
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			response["db"] = "error: cannot connect to DB"
			response["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}

		c.JSON(http.StatusOK, response)
	}
}
