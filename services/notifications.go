package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/metrics"
	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

// Mailer gửi email theo template đã đăng ký.
type Mailer interface {
	SendTemplate(ctx context.Context, to, subject, name string, data any) error
}

// Pusher đẩy dữ liệu realtime tới các kết nối websocket của một user.
type Pusher interface {
	PushToUser(userID string, payload any)
	SendBadgeUpdate(userID string, count int64)
}

var notificationSubjects = map[models.NotificationType]string{
	models.NotificationProjectStatus: "Your project status was updated",
	models.NotificationNewComment:    "New comment on a project",
	models.NotificationNewAssignment: "You have a new review assignment",
	models.NotificationNewSubmission: "New project submission to review",
}

type NotificationService struct {
	store       repository.Store
	mailer      Mailer
	pusher      Pusher
	logger      *slog.Logger
	frontendURL string
	now         func() time.Time
}

func NewNotificationService(store repository.Store, mailer Mailer, pusher Pusher, logger *slog.Logger, frontendURL string) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		store:       store,
		mailer:      mailer,
		pusher:      pusher,
		logger:      logger,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

// Notify luôn lưu thông báo trước, sau đó mới gửi email / realtime theo
// preference của người nhận. Lỗi gửi email chỉ được log, EmailSent giữ false.
func (s *NotificationService) Notify(ctx context.Context, recipientID uuid.UUID, typ models.NotificationType, content string, related models.RelatedResource) (*models.Notification, error) {
	return s.deliver(ctx, nil, recipientID, typ, content, related)
}

// NotifyForEvent như Notify nhưng mỗi (event, recipient) chỉ tạo một notification;
// relay chạy lại event thì người đã nhận được bỏ qua (trả nil, nil).
func (s *NotificationService) NotifyForEvent(ctx context.Context, eventID, recipientID uuid.UUID, typ models.NotificationType, content string, related models.RelatedResource) (*models.Notification, error) {
	return s.deliver(ctx, &eventID, recipientID, typ, content, related)
}

func (s *NotificationService) deliver(ctx context.Context, eventID *uuid.UUID, recipientID uuid.UUID, typ models.NotificationType, content string, related models.RelatedResource) (*models.Notification, error) {
	if !typ.Valid() {
		return nil, BadRequest("invalid notification type")
	}

	n := &models.Notification{
		RecipientID: recipientID,
		EventID:     eventID,
		Type:        typ,
		Content:     content,
		Related:     related,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		if eventID != nil && errors.Is(err, repository.ErrDuplicate) {
			return nil, nil
		}
		return nil, Internal("failed to create notification", err)
	}
	metrics.NotificationsCreatedTotal.WithLabelValues(string(typ)).Inc()

	recipient, err := s.store.GetUser(ctx, recipientID)
	if err != nil {
		s.logger.Warn("notification recipient not loaded",
			slog.String("recipient_id", recipientID.String()),
			slog.String("error", err.Error()),
		)
		return n, nil
	}

	if recipient.Preferences.EmailEnabled(typ) && s.mailer != nil {
		s.sendEmail(ctx, recipient, n)
	}

	if recipient.Preferences.InAppEnabled(typ) && s.pusher != nil {
		s.pusher.PushToUser(recipientID.String(), map[string]interface{}{
			"type":         "notification",
			"notification": n,
		})
		s.pushBadge(ctx, recipientID)
	}

	return n, nil
}

func (s *NotificationService) sendEmail(ctx context.Context, recipient *models.User, n *models.Notification) {
	data := map[string]interface{}{
		"Name":    recipient.Name,
		"Content": n.Content,
		"Link":    s.relatedLink(n.Related),
	}
	if err := s.mailer.SendTemplate(ctx, recipient.Email, notificationSubjects[n.Type], "notification", data); err != nil {
		metrics.EmailsTotal.WithLabelValues("notification", "failed").Inc()
		s.logger.Warn("notification email failed",
			slog.String("notification_id", n.ID.String()),
			slog.String("to", recipient.Email),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.EmailsTotal.WithLabelValues("notification", "sent").Inc()

	if err := s.store.MarkEmailSent(ctx, n.ID); err != nil {
		s.logger.Error("mark email sent failed",
			slog.String("notification_id", n.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	n.EmailSent = true
}

func (s *NotificationService) relatedLink(r models.RelatedResource) string {
	if s.frontendURL == "" || r.ID == uuid.Nil {
		return ""
	}
	switch r.Kind {
	case models.ResourceProject:
		return fmt.Sprintf("%s/projects/%s", s.frontendURL, r.ID)
	case models.ResourceComment:
		return fmt.Sprintf("%s/comments/%s", s.frontendURL, r.ID)
	case models.ResourceAssignment:
		return fmt.Sprintf("%s/assignments/%s", s.frontendURL, r.ID)
	case models.ResourceFile:
		return fmt.Sprintf("%s/files/%s", s.frontendURL, r.ID)
	}
	return s.frontendURL
}

// Cập nhật badge số lượng chưa đọc
func (s *NotificationService) pushBadge(ctx context.Context, userID uuid.UUID) {
	if s.pusher == nil {
		return
	}
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Warn("count unread failed", slog.String("user_id", userID.String()), slog.String("error", err.Error()))
		return
	}
	s.pusher.SendBadgeUpdate(userID.String(), count)
}

func (s *NotificationService) List(ctx context.Context, actor Actor, unreadOnly bool, page repository.Page) ([]models.Notification, int64, error) {
	list, total, err := s.store.ListNotifications(ctx, actor.UserID, unreadOnly, page)
	if err != nil {
		return nil, 0, Internal("failed to fetch notifications", err)
	}
	return list, total, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	count, err := s.store.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, Internal("failed to count notifications", err)
	}
	return count, nil
}

// MarkRead chỉ cho phép đánh dấu thông báo của chính mình.
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id uuid.UUID) (*models.Notification, error) {
	if err := s.store.MarkNotificationRead(ctx, id, actor.UserID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("notification not found")
		}
		return nil, Internal("failed to update notification", err)
	}
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return nil, Internal("failed to load notification", err)
	}
	s.pushBadge(ctx, actor.UserID)
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	updated, err := s.store.MarkAllNotificationsRead(ctx, actor.UserID, s.now())
	if err != nil {
		return 0, Internal("failed to mark all read", err)
	}
	if s.pusher != nil {
		s.pusher.SendBadgeUpdate(actor.UserID.String(), 0)
	}
	return updated, nil
}

func (s *NotificationService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.store.DeleteNotification(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("notification not found")
		}
		return Internal("failed to delete notification", err)
	}
	s.pushBadge(ctx, actor.UserID)
	return nil
}
