package models

import (
	"time"

	"github.com/google/uuid"
)

type File struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Filename   string    `gorm:"size:255;not null" json:"filename"`
	StorageKey string    `gorm:"type:text;not null" json:"-"`
	URL        string    `gorm:"type:text" json:"url"`
	Content    string    `gorm:"type:text" json:"content,omitempty"` // nội dung text hoặc text trích từ PDF
	MimeType   string    `gorm:"size:100" json:"mime_type"`
	Size       int64     `json:"size"` // bytes
	Language   string    `gorm:"size:50" json:"language"`
	UploadedBy uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
