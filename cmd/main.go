package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/vnkhanh/code-review-backend/config"
	"github.com/vnkhanh/code-review-backend/controllers"
	"github.com/vnkhanh/code-review-backend/middleware"
	"github.com/vnkhanh/code-review-backend/ratelimit"
	"github.com/vnkhanh/code-review-backend/repository"
	"github.com/vnkhanh/code-review-backend/repository/memory"
	"github.com/vnkhanh/code-review-backend/repository/postgres"
	"github.com/vnkhanh/code-review-backend/routes"
	"github.com/vnkhanh/code-review-backend/services"
	"github.com/vnkhanh/code-review-backend/storage"
	"github.com/vnkhanh/code-review-backend/utils"
	"github.com/vnkhanh/code-review-backend/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Lỗi đọc cấu hình: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel, cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func openStore(cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.DB.Driver == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	}
	db, err := config.InitDB(cfg.DB, cfg.IsProduction(), logger)
	if err != nil {
		return nil, err
	}
	return postgres.New(db), nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, func(), error) {
	switch cfg.Driver {
	case "supabase":
		s, err := storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
		return s, func() {}, err
	case "gridfs":
		s, err := storage.NewGridFSStorage(ctx, cfg.MongoURI, cfg.MongoDB, "uploads")
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Close(closeCtx)
		}, nil
	default:
		s, err := storage.NewLocalStorage(cfg.LocalDir, cfg.PublicURL)
		return s, func() {}, err
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	objects, closeObjects, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeObjects()

	mailer, err := utils.NewMailer(utils.MailConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)
	if err != nil {
		return err
	}

	tokens := utils.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	hub := ws.NewHub(logger)

	var google services.IDTokenVerifier
	if cfg.Google.ClientID != "" {
		google = &services.GoogleVerifier{ClientID: cfg.Google.ClientID}
	}

	var hints services.TextGenerator
	if cfg.Gemini.APIKey != "" {
		gemini, err := services.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			logger.Warn("gemini disabled", slog.String("error", err.Error()))
		} else {
			defer gemini.Close()
			hints = gemini
		}
	}

	var authLimiter middleware.RateLimiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, rate limiting fails open", slog.String("error", err.Error()))
		}
		authLimiter = ratelimit.NewLimiter(rdb, "ratelimit", cfg.Redis.LoginPerMinute, time.Minute)
	}

	notifications := services.NewNotificationService(store, mailer, hub, logger, cfg.FrontendURL)
	relay := services.NewRelay(store, notifications, logger, cfg.Outbox)
	relay.Start(ctx)

	authSvc := services.NewAuthService(store, tokens, mailer, google, logger, cfg.FrontendURL)
	assignments := services.NewAssignmentService(store, relay, logger)

	if err := services.EnsureSuperAdmin(ctx, store, cfg.SuperAdminEmail, cfg.SuperAdminPassword, logger); err != nil {
		return err
	}

	utils.StartCleanupJob(ctx, cfg.Cleanup, logger,
		utils.CleanupTask{Name: "expired_tokens", Run: func(ctx context.Context) (int64, error) {
			return store.ClearExpiredTokens(ctx, time.Now())
		}},
		utils.CleanupTask{Name: "reviewer_sets", Run: func(ctx context.Context) (int64, error) {
			n, err := assignments.EnsureReviewerSets(ctx)
			return int64(n), err
		}},
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	controllers.SetDebugErrors(!cfg.IsProduction())

	r := gin.New()
	r.Use(middleware.Recovery(logger, cfg.IsProduction()))
	r.Use(middleware.RequestLogger(logger))

	//Bật CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
	}))

	routes.SetupRouter(r, routes.Deps{
		Store:          store,
		Auth:           authSvc,
		Users:          services.NewUserService(store, objects, mailer, logger, cfg.FrontendURL, cfg.MaxBytes),
		Cohorts:        services.NewCohortService(store),
		Projects:       services.NewProjectService(store, objects, relay, logger),
		Files:          services.NewFileService(store, objects, hints, logger, cfg.MaxBytes),
		Comments:       services.NewCommentService(store, relay),
		Assignments:    assignments,
		Notifications:  notifications,
		Stats:          services.NewStatsService(store),
		Hub:            hub,
		AuthLimiter:    authLimiter,
		Logger:         logger,
		CookieName:     cfg.JWT.CookieName,
		SecureCookie:   cfg.IsProduction(),
		AllowedOrigins: cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxBytes,
	})

	// Route test server
	r.GET("/", func(c *gin.Context) {
		c.String(200, "Code review server is running")
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
