package config

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/code-review-backend/models"
)

// InitDB kết nối PostgreSQL, cấu hình pool và AutoMigrate các model.
func InitDB(cfg DBConfig, production bool, log *slog.Logger) (*gorm.DB, error) {
	logLevel := logger.Warn
	if production {
		logLevel = logger.Silent
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// Lấy *sql.DB để config connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Cohort{},
		&models.CohortStudent{},
		&models.CohortReviewer{},
		&models.Project{},
		&models.ProjectReviewer{},
		&models.File{},
		&models.Comment{},
		&models.CommentReply{},
		&models.Assignment{},
		&models.Notification{},
		&models.OutboxEvent{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("postgres connected and migrated")
	return db, nil
}
