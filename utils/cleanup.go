package utils

import (
	"context"
	"log/slog"
	"time"
)

// CleanupTask là một việc dọn dẹp định kỳ, trả về số bản ghi đã xử lý.
type CleanupTask struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// RunCleanup chạy lần lượt các task, lỗi của task này không chặn task khác.
func RunCleanup(ctx context.Context, logger *slog.Logger, tasks ...CleanupTask) {
	for _, t := range tasks {
		n, err := t.Run(ctx)
		if err != nil {
			logger.Error("cleanup task failed", slog.String("task", t.Name), slog.String("error", err.Error()))
			continue
		}
		if n > 0 {
			logger.Info("cleanup task done", slog.String("task", t.Name), slog.Int64("affected", n))
		}
	}
}

// StartCleanupJob chạy cleanup ngay lần đầu rồi lặp lại theo interval cho tới khi ctx bị huỷ.
func StartCleanupJob(ctx context.Context, interval time.Duration, logger *slog.Logger, tasks ...CleanupTask) {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	RunCleanup(ctx, logger, tasks...)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				RunCleanup(ctx, logger, tasks...)
			}
		}
	}()

	logger.Info("cleanup job started", slog.String("interval", interval.String()))
}
