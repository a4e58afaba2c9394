package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/services"
)

type AuthController struct {
	auth         *services.AuthService
	cookieName   string
	secureCookie bool
}

func NewAuthController(auth *services.AuthService, cookieName string, secureCookie bool) *AuthController {
	return &AuthController{auth: auth, cookieName: cookieName, secureCookie: secureCookie}
}

// ====== INPUT STRUCTS ======
type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=student reviewer"`
	CohortID string `json:"cohort_id" binding:"omitempty,uuid"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type GoogleLoginInput struct {
	IDToken string `json:"id_token" binding:"required"`
}

type TokenInput struct {
	Token string `json:"token" binding:"required"`
}

type EmailInput struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordInput struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// ====== HANDLERS ======
func (ac *AuthController) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	in := services.RegisterInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     models.UserRole(input.Role),
	}
	if input.CohortID != "" {
		id := uuid.MustParse(input.CohortID)
		in.CohortID = &id
	}

	user, err := ac.auth.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful, please check your email to verify your account",
		"user":    user,
	})
}

func (ac *AuthController) setAuthCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ac.cookieName, token, int(ac.auth.TokenExpiry().Seconds()), "/", "", ac.secureCookie, true)
}

func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	user, token, err := ac.auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	ac.setAuthCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

func (ac *AuthController) GoogleLogin(c *gin.Context) {
	var input GoogleLoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	user, token, err := ac.auth.GoogleLogin(c.Request.Context(), input.IDToken)
	if err != nil {
		respondError(c, err)
		return
	}
	ac.setAuthCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

func (ac *AuthController) VerifyEmail(c *gin.Context) {
	var input TokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	user, err := ac.auth.VerifyEmail(c.Request.Context(), input.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified", "user": user})
}

func (ac *AuthController) ResendVerification(c *gin.Context) {
	var input EmailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	if err := ac.auth.ResendVerification(c.Request.Context(), input.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the account exists and is not verified, a new link has been sent"})
}

func (ac *AuthController) ForgotPassword(c *gin.Context) {
	var input EmailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	if err := ac.auth.ForgotPassword(c.Request.Context(), input.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the email is registered, a reset link has been sent"})
}

func (ac *AuthController) ResetPassword(c *gin.Context) {
	var input ResetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	if err := ac.auth.ResetPassword(c.Request.Context(), input.Token, input.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

func (ac *AuthController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ac.cookieName, "", -1, "/", "", ac.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (ac *AuthController) Me(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	user, err := ac.auth.Me(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
