package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxProcessed OutboxStatus = "processed"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxEvent được ghi cùng transaction với thay đổi dữ liệu, relay sẽ xử lý sau.
type OutboxEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type        string         `gorm:"size:64;not null" json:"type"`
	Payload     datatypes.JSON `json:"payload"`
	Status      OutboxStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Attempts    int            `json:"attempts"`
	LastError   string         `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}
