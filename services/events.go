package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/vnkhanh/code-review-backend/metrics"
	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

const (
	EventCommentCreated       = "comment.created"
	EventReplyCreated         = "reply.created"
	EventProjectStatusChanged = "project.status_changed"
	EventProjectFeedback      = "project.feedback"
	EventProjectSubmitted     = "project.submitted"
	EventAssignmentCreated    = "assignment.created"
)

// EventPayload là dữ liệu của một outbox event; field nào không dùng thì để zero.
type EventPayload struct {
	ActorID      uuid.UUID `json:"actor_id"`
	ProjectID    uuid.UUID `json:"project_id,omitempty"`
	CommentID    uuid.UUID `json:"comment_id,omitempty"`
	AssignmentID uuid.UUID `json:"assignment_id,omitempty"`
	ReviewerID   uuid.UUID `json:"reviewer_id,omitempty"`
	Content      string    `json:"content"`
}

// Kicker đánh thức relay sau khi transaction commit.
type Kicker interface {
	Kick()
}

func publish(ctx context.Context, tx repository.Store, eventType string, payload EventPayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return tx.EnqueueEvent(ctx, &models.OutboxEvent{Type: eventType, Payload: datatypes.JSON(b)})
}

func kick(k Kicker) {
	if k != nil {
		k.Kick()
	}
}

type Relay struct {
	store       repository.Store
	notifier    *NotificationService
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
	kick        chan struct{}
	now         func() time.Time
}

func NewRelay(store repository.Store, notifier *NotificationService, logger *slog.Logger, interval time.Duration) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Relay{
		store:       store,
		notifier:    notifier,
		logger:      logger,
		interval:    interval,
		batchSize:   100,
		maxAttempts: 5,
		kick:        make(chan struct{}, 1),
		now:         time.Now,
	}
}

func (r *Relay) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Start chạy relay trong goroutine riêng cho tới khi ctx bị huỷ.
func (r *Relay) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		r.logger.Info("outbox relay started", slog.String("interval", r.interval.String()))
		for {
			r.safeProcess(ctx)
			select {
			case <-ctx.Done():
				r.logger.Info("outbox relay stopped")
				return
			case <-ticker.C:
			case <-r.kick:
			}
		}
	}()
}

func (r *Relay) safeProcess(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("outbox relay panic", slog.Any("panic", rec))
		}
	}()
	if _, err := r.ProcessPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("outbox relay failed", slog.String("error", err.Error()))
	}
}

// ProcessPending xử lý tuần tự các event đang chờ, trả về số event đã xử lý xong.
func (r *Relay) ProcessPending(ctx context.Context) (int, error) {
	events, err := r.store.ListPendingEvents(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := r.dispatch(ctx, e); err != nil {
			giveUp := e.Attempts+1 >= r.maxAttempts
			metrics.OutboxEventsTotal.WithLabelValues(e.Type, "failed").Inc()
			r.logger.Warn("outbox event failed",
				slog.String("event_id", e.ID.String()),
				slog.String("type", e.Type),
				slog.Int("attempts", e.Attempts+1),
				slog.String("error", err.Error()),
			)
			if markErr := r.store.MarkEventFailed(ctx, e.ID, err.Error(), giveUp); markErr != nil {
				return done, markErr
			}
			continue
		}
		if err := r.store.MarkEventProcessed(ctx, e.ID, r.now()); err != nil {
			return done, err
		}
		metrics.OutboxEventsTotal.WithLabelValues(e.Type, "processed").Inc()
		done++
	}
	return done, nil
}

func (r *Relay) dispatch(ctx context.Context, e models.OutboxEvent) error {
	var p EventPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	var (
		recipients []uuid.UUID
		typ        models.NotificationType
		related    models.RelatedResource
		err        error
	)

	switch e.Type {
	case EventCommentCreated:
		typ = models.NotificationNewComment
		related = models.RelatedResource{Kind: models.ResourceComment, ID: p.CommentID}
		recipients, err = r.projectParticipants(ctx, p.ProjectID)
	case EventReplyCreated:
		typ = models.NotificationNewComment
		related = models.RelatedResource{Kind: models.ResourceComment, ID: p.CommentID}
		recipients, err = r.projectParticipants(ctx, p.ProjectID)
		if err == nil {
			var c *models.Comment
			c, err = r.store.GetComment(ctx, p.CommentID)
			if err == nil {
				recipients = append(recipients, c.AuthorID)
			}
		}
	case EventProjectStatusChanged, EventProjectFeedback:
		typ = models.NotificationProjectStatus
		related = models.RelatedResource{Kind: models.ResourceProject, ID: p.ProjectID}
		recipients, err = r.projectParticipants(ctx, p.ProjectID)
	case EventProjectSubmitted:
		typ = models.NotificationNewSubmission
		related = models.RelatedResource{Kind: models.ResourceProject, ID: p.ProjectID}
		recipients, err = r.submissionReviewers(ctx, p.ProjectID)
	case EventAssignmentCreated:
		typ = models.NotificationNewAssignment
		related = models.RelatedResource{Kind: models.ResourceAssignment, ID: p.AssignmentID}
		recipients = []uuid.UUID{p.ReviewerID}
	default:
		r.logger.Warn("unknown outbox event type", slog.String("type", e.Type))
		return nil
	}

	if errors.Is(err, repository.ErrNotFound) {
		// tài nguyên đã bị xoá trước khi relay chạy
		r.logger.Info("outbox event target gone", slog.String("event_id", e.ID.String()), slog.String("type", e.Type))
		return nil
	}
	if err != nil {
		return err
	}

	// lỗi của một người nhận không chặn người khác; lần chạy lại bỏ qua người đã nhận
	var errs []error
	for _, id := range FanOutRecipients(recipients, p.ActorID) {
		if _, err := r.notifier.NotifyForEvent(ctx, e.ID, id, typ, p.Content, related); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// projectParticipants gồm chủ project và mọi reviewer đang được gán.
func (r *Relay) projectParticipants(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	p, err := r.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return append([]uuid.UUID{p.StudentID}, p.ReviewerIDs...), nil
}

// submissionReviewers gồm reviewer của project, reviewer của cohort của học viên
// và reviewer được giao trực tiếp học viên đó.
func (r *Relay) submissionReviewers(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	p, err := r.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	recipients := append([]uuid.UUID{}, p.ReviewerIDs...)

	owner, err := r.store.GetUser(ctx, p.StudentID)
	if err != nil {
		return nil, err
	}
	if owner.CohortID != nil {
		cohort, err := r.store.GetCohort(ctx, *owner.CohortID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if cohort != nil {
			recipients = append(recipients, cohort.ReviewerIDs...)
		}
	}

	active := true
	list, _, err := r.store.ListAssignments(ctx, repository.AssignmentFilter{
		Kind:     models.TargetStudent,
		TargetID: &owner.ID,
		Active:   &active,
	}, repository.Page{})
	if err != nil {
		return nil, err
	}
	for _, a := range list {
		recipients = append(recipients, a.ReviewerID)
	}
	return recipients, nil
}

// FanOutRecipients loại trùng, giữ thứ tự và bỏ người gây ra sự kiện.
func FanOutRecipients(candidates []uuid.UUID, actorID uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(candidates))
	out := make([]uuid.UUID, 0, len(candidates))
	for _, id := range candidates {
		if id == uuid.Nil || id == actorID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
