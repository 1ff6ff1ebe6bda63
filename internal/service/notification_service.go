package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emrecanisildak/diet/internal/audit"
	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/metrics"
	"github.com/emrecanisildak/diet/internal/push"
	"github.com/emrecanisildak/diet/internal/repository"
	"github.com/emrecanisildak/diet/internal/scheduler"
	"github.com/emrecanisildak/diet/pkg/log"
)

// FanoutConfig bounds push delivery to many recipients.
type FanoutConfig struct {
	Timeout     time.Duration
	Concurrency int
}

type notificationService struct {
	store   repository.Store
	push    push.Gateway
	fanout  FanoutConfig
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewNotificationService(store repository.Store, gateway push.Gateway, fanout FanoutConfig, m *metrics.Metrics) NotificationService {
	if fanout.Timeout <= 0 {
		fanout.Timeout = 10 * time.Second
	}
	if fanout.Concurrency <= 0 {
		fanout.Concurrency = 16
	}
	return &notificationService{
		store:   store,
		push:    gateway,
		fanout:  fanout,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NotifyUser stores a notification for one user and pushes it to their
// device if they registered one.
func (s *notificationService) NotifyUser(ctx context.Context, userID, title, body string) (*domain.Notification, error) {
	if err := validateMessage(title, body); err != nil {
		return nil, err
	}
	token, err := s.store.Users().GetPushToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	n := &domain.Notification{UserID: userID, Title: title, Body: body, CreatedAt: s.now()}
	if err := s.store.Notifications().Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	if token != nil {
		s.sendOne(ctx, userID, *token, title, body)
	}
	return n, nil
}

// SendBulk notifies every client immediately.
func (s *notificationService) SendBulk(ctx context.Context, actorID, title, body string) (int, error) {
	if err := validateMessage(title, body); err != nil {
		return 0, err
	}
	clients, err := s.store.Users().ListByRole(ctx, domain.RoleClient)
	if err != nil {
		return 0, fmt.Errorf("failed to list clients: %w", err)
	}

	now := s.now()
	rows := make([]*domain.Notification, 0, len(clients))
	for _, u := range clients {
		rows = append(rows, &domain.Notification{UserID: u.ID, Title: title, Body: body, CreatedAt: now})
	}
	if err := s.store.Notifications().CreateBatch(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to store notifications: %w", err)
	}

	attempted, failed := s.PushToRecipients(ctx, clients, title, body)
	audit.LogWithDetail(ctx, audit.ActionSendBulk, actorID,
		fmt.Sprintf("recipients=%d pushed=%d failed=%d", len(clients), attempted, failed),
		"bulk notification sent")
	return len(clients), nil
}

func (s *notificationService) PushToRecipients(ctx context.Context, users []*domain.User, title, body string) (attempted, failed int) {
	var sent, errs atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(s.fanout.Concurrency)
	for _, u := range users {
		if !u.HasPushToken() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		u := u
		g.Go(func() error {
			sent.Add(1)
			if err := s.sendOne(ctx, u.ID, *u.APNsToken, title, body); err != nil {
				errs.Add(1)
			}
			// One recipient's failure never stops the batch.
			return nil
		})
	}
	g.Wait()

	return int(sent.Load()), int(errs.Load())
}

// sendOne pushes to one device under the per-send timeout. Failures are
// logged and returned for counting.
func (s *notificationService) sendOne(ctx context.Context, userID, token, title, body string) error {
	pctx, cancel := context.WithTimeout(ctx, s.fanout.Timeout)
	defer cancel()

	err := s.push.SendPush(pctx, token, title, body)
	s.metrics.PushAttempted(err)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).
			Str(log.FieldRecipientID, userID).
			Msg("push delivery failed")
	}
	return err
}

func (s *notificationService) ListInbox(ctx context.Context, userID string) ([]*domain.Notification, error) {
	return s.store.Notifications().ListByUser(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.Notifications().MarkRead(ctx, notificationID, userID)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.store.Notifications().MarkAllRead(ctx, userID)
}

func (s *notificationService) RegisterToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError("token", "is required")
	}
	if err := s.store.Users().SetPushToken(ctx, userID, token); err != nil {
		return err
	}
	audit.Log(ctx, audit.ActionRegisterToken, userID, "device token registered")
	return nil
}

func (s *notificationService) CreateScheduled(ctx context.Context, actorID string, in ScheduleInput) (*domain.ScheduledNotification, error) {
	if err := validateMessage(in.Title, in.Body); err != nil {
		return nil, err
	}
	if in.Kind != domain.ScheduleOnce && in.Kind != domain.ScheduleDaily {
		return nil, domain.NewValidationError("schedule_type", "must be once or daily")
	}
	if err := scheduler.Validate(in.Kind, in.ScheduledTime); err != nil {
		return nil, domain.NewValidationError("scheduled_time", err.Error())
	}

	def := &domain.ScheduledNotification{
		Title:         in.Title,
		Body:          in.Body,
		Kind:          in.Kind,
		ScheduledTime: strings.TrimSpace(in.ScheduledTime),
		TargetType:    "all",
		Active:        true,
		CreatedAt:     s.now(),
	}
	if err := s.store.Scheduled().Create(ctx, def); err != nil {
		return nil, fmt.Errorf("failed to store scheduled notification: %w", err)
	}
	def.State = def.DeriveState()

	audit.LogTarget(ctx, audit.ActionScheduleCreate, actorID, def.ID, "scheduled notification created")
	return def, nil
}

func (s *notificationService) ListScheduled(ctx context.Context) ([]*domain.ScheduledNotification, error) {
	defs, err := s.store.Scheduled().List(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range defs {
		d.State = d.DeriveState()
	}
	return defs, nil
}

func (s *notificationService) DeactivateScheduled(ctx context.Context, actorID, id string) error {
	inactive := false
	if err := s.store.Scheduled().Update(ctx, id, repository.ScheduledUpdate{Active: &inactive}); err != nil {
		return err
	}
	audit.LogTarget(ctx, audit.ActionScheduleDeactivate, actorID, id, "scheduled notification deactivated")
	return nil
}

func (s *notificationService) DeleteScheduled(ctx context.Context, actorID, id string) error {
	if err := s.store.Scheduled().Delete(ctx, id); err != nil {
		return err
	}
	audit.LogTarget(ctx, audit.ActionScheduleDelete, actorID, id, "scheduled notification deleted")
	return nil
}

func validateMessage(title, body string) error {
	if strings.TrimSpace(title) == "" {
		return domain.NewValidationError("title", "is required")
	}
	if strings.TrimSpace(body) == "" {
		return domain.NewValidationError("content", "is required")
	}
	return nil
}
