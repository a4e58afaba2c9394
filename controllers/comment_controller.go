package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/services"
)

type CommentController struct {
	comments *services.CommentService
}

func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

type CreateCommentInput struct {
	ProjectID  string `json:"project_id" binding:"required,uuid"`
	FileID     string `json:"file_id" binding:"required,uuid"`
	LineNumber int    `json:"line_number" binding:"required,min=1"`
	Text       string `json:"text" binding:"required"`
}

type CommentTextInput struct {
	Text string `json:"text" binding:"required"`
}

func (cc *CommentController) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input CreateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	comment, err := cc.comments.Create(c.Request.Context(), actor, services.CreateCommentInput{
		ProjectID:  uuid.MustParse(input.ProjectID),
		FileID:     uuid.MustParse(input.FileID),
		LineNumber: input.LineNumber,
		Text:       input.Text,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// GET /projects/:id/comments?file_id=
func (cc *CommentController) ListByProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	projectID, ok := parseUUIDParam(c, "id", "project")
	if !ok {
		return
	}
	fileID, ok := parseOptionalUUID(c, "file_id")
	if !ok {
		return
	}
	comments, err := cc.comments.List(c.Request.Context(), actor, projectID, fileID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// GET /files/:id/comments
func (cc *CommentController) ListByFile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	fileID, ok := parseUUIDParam(c, "id", "file")
	if !ok {
		return
	}
	comments, err := cc.comments.ListByFile(c.Request.Context(), actor, fileID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (cc *CommentController) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "comment")
	if !ok {
		return
	}
	comment, err := cc.comments.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (cc *CommentController) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "comment")
	if !ok {
		return
	}
	var input CommentTextInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	comment, err := cc.comments.Update(c.Request.Context(), actor, id, input.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (cc *CommentController) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "comment")
	if !ok {
		return
	}
	if err := cc.comments.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

func (cc *CommentController) AddReply(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "comment")
	if !ok {
		return
	}
	var input CommentTextInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	reply, err := cc.comments.AddReply(c.Request.Context(), actor, id, input.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

func (cc *CommentController) DeleteReply(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "comment")
	if !ok {
		return
	}
	replyID, ok := parseUUIDParam(c, "replyId", "reply")
	if !ok {
		return
	}
	if err := cc.comments.DeleteReply(c.Request.Context(), actor, id, replyID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reply deleted"})
}
