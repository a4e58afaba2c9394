package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
	"github.com/vnkhanh/code-review-backend/services"
)

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

type UpdateProfileInput struct {
	Name *string `json:"name"`
	Bio  *string `json:"bio"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type CreateUserInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=student reviewer admin"`
	CohortID string `json:"cohort_id" binding:"omitempty,uuid"`
}

type SetRoleInput struct {
	Role     string `json:"role" binding:"required,oneof=student reviewer admin"`
	CohortID string `json:"cohort_id" binding:"omitempty,uuid"`
}

type SetActiveInput struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// GET /users (admin)
func (uc *UserController) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	cohortID, ok := parseOptionalUUID(c, "cohort_id")
	if !ok {
		return
	}
	f := repository.UserFilter{
		Role:     models.UserRole(c.Query("role")),
		CohortID: cohortID,
		Active:   parseOptionalBool(c.Query("active")),
		Search:   c.Query("search"),
	}
	page := parsePage(c)
	users, total, err := uc.users.List(c.Request.Context(), actor, f, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginated("users", users, total, page))
}

func (uc *UserController) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "user")
	if !ok {
		return
	}
	user, err := uc.users.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	user, err := uc.users.UpdateProfile(c.Request.Context(), actor, services.ProfileInput{Name: input.Name, Bio: input.Bio})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Đổi mật khẩu
func (uc *UserController) ChangePassword(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	if err := uc.users.ChangePassword(c.Request.Context(), actor, input.OldPassword, input.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}

func (uc *UserController) UpdatePreferences(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var prefs models.NotificationPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		bindError(c, err)
		return
	}
	user, err := uc.users.UpdatePreferences(c.Request.Context(), actor, prefs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification_preferences": user.Preferences})
}

func (uc *UserController) UploadAvatar(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	in, closeFn, ok := formUpload(c, "file")
	if !ok {
		return
	}
	defer closeFn()

	user, err := uc.users.UploadAvatar(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile_picture": user.ProfilePicture})
}

// POST /users (admin)
func (uc *UserController) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	in := services.CreateUserInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     models.UserRole(input.Role),
	}
	if input.CohortID != "" {
		id := uuid.MustParse(input.CohortID)
		in.CohortID = &id
	}
	user, err := uc.users.Create(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (uc *UserController) SetRole(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "user")
	if !ok {
		return
	}
	var input SetRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	var cohortID *uuid.UUID
	if input.CohortID != "" {
		parsed := uuid.MustParse(input.CohortID)
		cohortID = &parsed
	}
	user, err := uc.users.SetRole(c.Request.Context(), actor, id, models.UserRole(input.Role), cohortID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (uc *UserController) SetActive(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "user")
	if !ok {
		return
	}
	var input SetActiveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	user, err := uc.users.SetActive(c.Request.Context(), actor, id, *input.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
