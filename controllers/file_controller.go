package controllers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/code-review-backend/services"
)

type FileController struct {
	files *services.FileService
}

func NewFileController(files *services.FileService) *FileController {
	return &FileController{files: files}
}

// POST /projects/:id/files (multipart, field "file")
func (fc *FileController) Upload(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	projectID, ok := parseUUIDParam(c, "id", "project")
	if !ok {
		return
	}
	in, closeFn, ok := formUpload(c, "file")
	if !ok {
		return
	}
	defer closeFn()

	file, err := fc.files.Upload(c.Request.Context(), actor, projectID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func (fc *FileController) ListByProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	projectID, ok := parseUUIDParam(c, "id", "project")
	if !ok {
		return
	}
	files, err := fc.files.ListByProject(c.Request.Context(), actor, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (fc *FileController) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "file")
	if !ok {
		return
	}
	file, err := fc.files.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (fc *FileController) Download(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "file")
	if !ok {
		return
	}
	file, body, err := fc.files.Download(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Content-Type", file.MimeType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		slog.Warn("file download interrupted", slog.String("file_id", file.ID.String()), slog.String("error", err.Error()))
	}
}

func (fc *FileController) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "file")
	if !ok {
		return
	}
	if err := fc.files.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted"})
}

// POST /files/:id/review-hints
func (fc *FileController) ReviewHints(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "file")
	if !ok {
		return
	}
	hints, err := fc.files.ReviewHints(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"file_id": id, "hints": hints})
}
