package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/code-review-backend/services"
)

// formUpload mở file multipart theo field; caller gọi closeFn khi xong.
func formUpload(c *gin.Context, field string) (services.UploadInput, func(), bool) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the upload limit"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		}
		return services.UploadInput{}, nil, false
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open uploaded file"})
		return services.UploadInput{}, nil, false
	}
	in := services.UploadInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	}
	return in, func() { file.Close() }, true
}
