package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
	"github.com/vnkhanh/code-review-backend/services"
)

type AssignmentController struct {
	assignments *services.AssignmentService
}

func NewAssignmentController(assignments *services.AssignmentService) *AssignmentController {
	return &AssignmentController{assignments: assignments}
}

type CreateAssignmentInput struct {
	ReviewerID string `json:"reviewer_id" binding:"required,uuid"`
	TargetKind string `json:"target_kind" binding:"required,oneof=cohort student project"`
	TargetID   string `json:"target_id" binding:"required,uuid"`
	Notes      string `json:"notes"`
}

type UpdateAssignmentInput struct {
	IsActive *bool   `json:"is_active"`
	Notes    *string `json:"notes"`
}

type AssignmentActiveInput struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// POST /assignments (admin)
func (ac *AssignmentController) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input CreateAssignmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	assignment, err := ac.assignments.Create(c.Request.Context(), actor, services.CreateAssignmentInput{
		ReviewerID: uuid.MustParse(input.ReviewerID),
		Target: models.AssignmentTarget{
			Kind: models.TargetKind(input.TargetKind),
			ID:   uuid.MustParse(input.TargetID),
		},
		Notes: input.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

// GET /assignments?reviewer_id=&target_kind=&target_id=&active=
func (ac *AssignmentController) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	reviewerID, ok := parseOptionalUUID(c, "reviewer_id")
	if !ok {
		return
	}
	targetID, ok := parseOptionalUUID(c, "target_id")
	if !ok {
		return
	}
	kind := models.TargetKind(c.Query("target_kind"))
	if kind != "" && !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target_kind"})
		return
	}
	f := repository.AssignmentFilter{
		ReviewerID: reviewerID,
		Kind:       kind,
		TargetID:   targetID,
		Active:     parseOptionalBool(c.Query("active")),
	}
	page := parsePage(c)
	list, total, err := ac.assignments.List(c.Request.Context(), actor, f, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginated("assignments", list, total, page))
}

// GET /assignments/me: assignment của reviewer đang đăng nhập
func (ac *AssignmentController) Mine(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	f := repository.AssignmentFilter{
		ReviewerID: &actor.UserID,
		Active:     parseOptionalBool(c.Query("active")),
	}
	page := parsePage(c)
	list, total, err := ac.assignments.List(c.Request.Context(), actor, f, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginated("assignments", list, total, page))
}

func (ac *AssignmentController) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "assignment")
	if !ok {
		return
	}
	assignment, err := ac.assignments.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

func (ac *AssignmentController) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "assignment")
	if !ok {
		return
	}
	var input UpdateAssignmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	assignment, err := ac.assignments.Update(c.Request.Context(), actor, id, services.UpdateAssignmentInput{
		IsActive: input.IsActive,
		Notes:    input.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// PATCH /assignments/:id/active
func (ac *AssignmentController) SetActive(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "assignment")
	if !ok {
		return
	}
	var input AssignmentActiveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	assignment, err := ac.assignments.SetActive(c.Request.Context(), actor, id, *input.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

func (ac *AssignmentController) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "assignment")
	if !ok {
		return
	}
	if err := ac.assignments.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Assignment deleted"})
}
