package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/services"
)

type ProjectController struct {
	projects *services.ProjectService
}

func NewProjectController(projects *services.ProjectService) *ProjectController {
	return &ProjectController{projects: projects}
}

type CreateProjectInput struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type UpdateProjectInput struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

type ProjectStatusInput struct {
	Status string `json:"status" binding:"required,oneof=pending accepted revision_requested"`
}

type FeedbackInput struct {
	Text string `json:"text" binding:"required"`
}

func (pc *ProjectController) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input CreateProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	project, err := pc.projects.Create(c.Request.Context(), actor, services.CreateProjectInput{
		Title:       input.Title,
		Description: input.Description,
		Tags:        input.Tags,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// GET /projects?status=&tag=&student_id=&search=&sort=updated_at&order=desc&page=&limit=
func (pc *ProjectController) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	studentID, ok := parseOptionalUUID(c, "student_id")
	if !ok {
		return
	}
	status := models.ProjectStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	q := services.ProjectQuery{
		Status:    status,
		Tag:       c.Query("tag"),
		StudentID: studentID,
		Search:    c.Query("search"),
		SortBy:    c.DefaultQuery("sort", "created_at"),
		SortDesc:  !strings.EqualFold(c.Query("order"), "asc"),
	}
	page := parsePage(c)
	projects, total, err := pc.projects.List(c.Request.Context(), actor, q, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginated("projects", projects, total, page))
}

func (pc *ProjectController) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "project")
	if !ok {
		return
	}
	project, err := pc.projects.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (pc *ProjectController) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "project")
	if !ok {
		return
	}
	var input UpdateProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	project, err := pc.projects.Update(c.Request.Context(), actor, id, services.UpdateProjectInput{
		Title:       input.Title,
		Description: input.Description,
		Tags:        input.Tags,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (pc *ProjectController) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "project")
	if !ok {
		return
	}
	if err := pc.projects.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

func (pc *ProjectController) SetStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "project")
	if !ok {
		return
	}
	var input ProjectStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	project, err := pc.projects.SetStatus(c.Request.Context(), actor, id, models.ProjectStatus(input.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (pc *ProjectController) SetFeedback(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "project")
	if !ok {
		return
	}
	var input FeedbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	project, err := pc.projects.SetFeedback(c.Request.Context(), actor, id, input.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}
