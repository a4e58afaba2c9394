package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/repository"
	"github.com/vnkhanh/code-review-backend/services"
)

type CohortController struct {
	cohorts *services.CohortService
}

func NewCohortController(cohorts *services.CohortService) *CohortController {
	return &CohortController{cohorts: cohorts}
}

type CohortInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
	IsActive    *bool  `json:"is_active"`
}

type CohortStudentInput struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

func (cc *CohortController) bindCohort(c *gin.Context) (services.CohortInput, bool) {
	var input CohortInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return services.CohortInput{}, false
	}
	start, err := parseDate(input.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return services.CohortInput{}, false
	}
	end, err := parseDate(input.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return services.CohortInput{}, false
	}
	return services.CohortInput{
		Name:        input.Name,
		Description: input.Description,
		StartDate:   start,
		EndDate:     end,
		IsActive:    input.IsActive,
	}, true
}

func (cc *CohortController) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	in, ok := cc.bindCohort(c)
	if !ok {
		return
	}
	cohort, err := cc.cohorts.Create(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cohort)
}

func (cc *CohortController) List(c *gin.Context) {
	f := repository.CohortFilter{
		Active: parseOptionalBool(c.Query("active")),
		Search: c.Query("search"),
	}
	page := parsePage(c)
	cohorts, total, err := cc.cohorts.List(c.Request.Context(), f, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginated("cohorts", cohorts, total, page))
}

func (cc *CohortController) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "cohort")
	if !ok {
		return
	}
	cohort, err := cc.cohorts.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cohort)
}

func (cc *CohortController) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "cohort")
	if !ok {
		return
	}
	in, ok := cc.bindCohort(c)
	if !ok {
		return
	}
	cohort, err := cc.cohorts.Update(c.Request.Context(), actor, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cohort)
}

func (cc *CohortController) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "cohort")
	if !ok {
		return
	}
	if err := cc.cohorts.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cohort deleted"})
}

func (cc *CohortController) AddStudent(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "cohort")
	if !ok {
		return
	}
	var input CohortStudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	cohort, err := cc.cohorts.AddStudent(c.Request.Context(), actor, id, uuid.MustParse(input.UserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cohort)
}

func (cc *CohortController) RemoveStudent(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "cohort")
	if !ok {
		return
	}
	userID, ok := parseUUIDParam(c, "userId", "user")
	if !ok {
		return
	}
	cohort, err := cc.cohorts.RemoveStudent(c.Request.Context(), actor, id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cohort)
}
