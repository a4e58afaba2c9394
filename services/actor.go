package services

import (
	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
)

// Actor là người dùng đã xác thực đang thực hiện thao tác.
type Actor struct {
	UserID uuid.UUID
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

func (a Actor) Is(id uuid.UUID) bool {
	return a.UserID == id
}
