package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/middleware"
	"github.com/vnkhanh/code-review-backend/repository"
	"github.com/vnkhanh/code-review-backend/services"
)

// exposeInternalErrors bật chi tiết lỗi 500 ngoài production.
var exposeInternalErrors = false

func SetDebugErrors(enabled bool) {
	exposeInternalErrors = enabled
}

// respondError map lỗi service sang HTTP status và body {"error": msg}.
func respondError(c *gin.Context, err error) {
	var appErr *services.AppError
	if !errors.As(err, &appErr) {
		appErr = services.Internal("internal server error", err)
	}
	status := appErr.Status()
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", appErr.Error()),
		)
		body := gin.H{"error": appErr.Message}
		if exposeInternalErrors && appErr.Err != nil {
			body["detail"] = appErr.Err.Error()
		}
		c.JSON(status, body)
		return
	}
	c.JSON(status, gin.H{"error": appErr.Message})
}

func bindError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// currentActor lấy Actor do AuthMiddleware gắn; thiếu thì trả 401.
func currentActor(c *gin.Context) (services.Actor, bool) {
	if actor, ok := middleware.CurrentActor(c); ok {
		return actor, true
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	return services.Actor{}, false
}

func parseUUIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + label + " id"})
		return uuid.Nil, false
	}
	return id, true
}

// parseOptionalUUID đọc query param dạng uuid; rỗng thì nil.
func parseOptionalUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &id, true
}

func parseOptionalBool(raw string) *bool {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxPage         = 1_000_000
)

func parsePage(c *gin.Context) repository.Page {
	page := 1
	limit := defaultPageSize
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page > maxPage {
		page = maxPage
	}
	return repository.Page{Page: page, Limit: limit}
}

func paginated(key string, items any, total int64, p repository.Page) gin.H {
	return gin.H{
		key:     items,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}
}

// parseDate nhận "2006-01-02" hoặc RFC3339.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
