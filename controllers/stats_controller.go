package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/code-review-backend/services"
)

type StatsController struct {
	stats *services.StatsService
}

func NewStatsController(stats *services.StatsService) *StatsController {
	return &StatsController{stats: stats}
}

func (sc *StatsController) Overview(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	out, err := sc.stats.Overview(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// DailySubmissions: ?from=2024-01-01&to=2024-01-31, mặc định 7 ngày gần nhất.
func (sc *StatsController) DailySubmissions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' date"})
			return
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' date"})
			return
		}
		to = t
	}
	points, err := sc.stats.DailySubmissions(c.Request.Context(), actor, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}
