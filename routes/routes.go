package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vnkhanh/code-review-backend/controllers"
	"github.com/vnkhanh/code-review-backend/middleware"
	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/services"
	"github.com/vnkhanh/code-review-backend/ws"
)

// Deps gom các service và hạ tầng mà router cần.
type Deps struct {
	Store         controllers.Pinger
	Auth          *services.AuthService
	Users         *services.UserService
	Cohorts       *services.CohortService
	Projects      *services.ProjectService
	Files         *services.FileService
	Comments      *services.CommentService
	Assignments   *services.AssignmentService
	Notifications *services.NotificationService
	Stats         *services.StatsService
	Hub           *ws.Hub
	AuthLimiter   middleware.RateLimiter
	Logger        *slog.Logger

	CookieName     string
	SecureCookie   bool
	AllowedOrigins []string
	MaxUploadBytes int64
}

func SetupRouter(r *gin.Engine, d Deps) *gin.Engine {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", controllers.HealthCheck(d.Store, d.Hub))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws/notifications", ws.HandleUserWebSocket(d.Hub, d.Auth, d.CookieName, d.AllowedOrigins, d.Logger))

	authCtl := controllers.NewAuthController(d.Auth, d.CookieName, d.SecureCookie)
	userCtl := controllers.NewUserController(d.Users)
	cohortCtl := controllers.NewCohortController(d.Cohorts)
	projectCtl := controllers.NewProjectController(d.Projects)
	fileCtl := controllers.NewFileController(d.Files)
	commentCtl := controllers.NewCommentController(d.Comments)
	assignmentCtl := controllers.NewAssignmentController(d.Assignments)
	notificationCtl := controllers.NewNotificationController(d.Notifications)
	statsCtl := controllers.NewStatsController(d.Stats)

	requireAuth := middleware.AuthMiddleware(d.Auth, d.CookieName)
	requireAdmin := middleware.RequireAdmin()
	limitAuth := middleware.RateLimit(d.AuthLimiter, "auth", d.Logger)
	uploadLimit := middleware.BodyLimit(d.MaxUploadBytes)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", limitAuth, authCtl.Register)
		auth.POST("/login", limitAuth, authCtl.Login)
		auth.POST("/google", limitAuth, authCtl.GoogleLogin)
		auth.POST("/verify-email", authCtl.VerifyEmail)
		auth.POST("/resend-verification", limitAuth, authCtl.ResendVerification)
		auth.POST("/forgot-password", limitAuth, authCtl.ForgotPassword)
		auth.POST("/reset-password", limitAuth, authCtl.ResetPassword)
		auth.POST("/logout", authCtl.Logout)
		auth.GET("/me", requireAuth, authCtl.Me)
	}

	users := api.Group("/users", requireAuth)
	{
		users.PUT("/me", userCtl.UpdateProfile)
		users.PUT("/me/password", limitAuth, userCtl.ChangePassword)
		users.PUT("/me/preferences", userCtl.UpdatePreferences)
		users.POST("/me/avatar", uploadLimit, userCtl.UploadAvatar)
		users.GET("/:id", userCtl.Get)

		users.GET("", requireAdmin, userCtl.List)
		users.POST("", requireAdmin, userCtl.Create)
		users.PATCH("/:id/role", requireAdmin, userCtl.SetRole)
		users.PATCH("/:id/status", requireAdmin, userCtl.SetActive)
	}

	cohorts := api.Group("/cohorts", requireAuth)
	{
		cohorts.GET("", cohortCtl.List)
		cohorts.GET("/:id", cohortCtl.Get)
		cohorts.POST("", requireAdmin, cohortCtl.Create)
		cohorts.PUT("/:id", requireAdmin, cohortCtl.Update)
		cohorts.DELETE("/:id", requireAdmin, cohortCtl.Delete)
		cohorts.POST("/:id/students", requireAdmin, cohortCtl.AddStudent)
		cohorts.DELETE("/:id/students/:userId", requireAdmin, cohortCtl.RemoveStudent)
	}

	projects := api.Group("/projects", requireAuth)
	{
		projects.POST("", middleware.RequireRoles(models.RoleStudent), projectCtl.Create)
		projects.GET("", projectCtl.List)
		projects.GET("/:id", projectCtl.Get)
		projects.PUT("/:id", projectCtl.Update)
		projects.DELETE("/:id", projectCtl.Delete)
		projects.PATCH("/:id/status", projectCtl.SetStatus)
		projects.PUT("/:id/feedback", projectCtl.SetFeedback)
		projects.POST("/:id/files", uploadLimit, fileCtl.Upload)
		projects.GET("/:id/files", fileCtl.ListByProject)
		projects.GET("/:id/comments", commentCtl.ListByProject)
	}

	files := api.Group("/files", requireAuth)
	{
		files.GET("/:id", fileCtl.Get)
		files.GET("/:id/download", fileCtl.Download)
		files.DELETE("/:id", fileCtl.Delete)
		files.GET("/:id/comments", commentCtl.ListByFile)
		files.POST("/:id/review-hints", fileCtl.ReviewHints)
	}

	comments := api.Group("/comments", requireAuth)
	{
		comments.POST("", commentCtl.Create)
		comments.GET("/:id", commentCtl.Get)
		comments.PUT("/:id", commentCtl.Update)
		comments.DELETE("/:id", commentCtl.Delete)
		comments.POST("/:id/replies", commentCtl.AddReply)
		comments.DELETE("/:id/replies/:replyId", commentCtl.DeleteReply)
	}

	assignments := api.Group("/assignments", requireAuth)
	{
		assignments.GET("/me", middleware.RequireRoles(models.RoleReviewer, models.RoleAdmin, models.RoleSuperAdmin), assignmentCtl.Mine)
		assignments.GET("/:id", assignmentCtl.Get)
		assignments.GET("", requireAdmin, assignmentCtl.List)
		assignments.POST("", requireAdmin, assignmentCtl.Create)
		assignments.PUT("/:id", requireAdmin, assignmentCtl.Update)
		assignments.PATCH("/:id/active", requireAdmin, assignmentCtl.SetActive)
		assignments.DELETE("/:id", requireAdmin, assignmentCtl.Delete)
	}

	notifications := api.Group("/notifications", requireAuth)
	{
		notifications.GET("", notificationCtl.List)
		notifications.GET("/unread-count", notificationCtl.UnreadCount)
		notifications.PATCH("/read-all", notificationCtl.MarkAllRead)
		notifications.PATCH("/:id/read", notificationCtl.MarkRead)
		notifications.DELETE("/:id", notificationCtl.Delete)
	}

	stats := api.Group("/stats", requireAuth, requireAdmin)
	{
		stats.GET("/overview", statsCtl.Overview)
		stats.GET("/submissions", statsCtl.DailySubmissions)
	}

	return r
}
