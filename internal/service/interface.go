package service

import (
	"context"

	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/registry"
)

// MessageService implements persist-then-notify delivery of chat messages.
type MessageService interface {
	// Send persists a message and forwards it to the recipient's live
	// channel when one is registered. Delivery is best effort.
	Send(ctx context.Context, senderID, recipientID string, content, imageURL *string) (*domain.Message, error)
	// SendLive is Send for a frame read from origin; the persisted message
	// is also echoed back to origin.
	SendLive(ctx context.Context, origin registry.Channel, senderID string, in *domain.InboundMessage) (*domain.Message, error)
	MarkRead(ctx context.Context, callerID, counterpartID string) (int64, error)
	GetConversation(ctx context.Context, callerID, counterpartID string) ([]*domain.Message, error)
	ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error)
}

// ScheduleInput is an administrative request to schedule a broadcast.
type ScheduleInput struct {
	Title         string
	Body          string
	Kind          domain.ScheduleKind
	ScheduledTime string
}

// NotificationService delivers notifications to user inboxes and devices.
type NotificationService interface {
	NotifyUser(ctx context.Context, userID, title, body string) (*domain.Notification, error)
	SendBulk(ctx context.Context, actorID, title, body string) (int, error)
	// PushToRecipients pushes to every user with a device token, with
	// bounded concurrency and a timeout per send. Failures are logged and
	// counted, never returned.
	PushToRecipients(ctx context.Context, users []*domain.User, title, body string) (attempted, failed int)

	ListInbox(ctx context.Context, userID string) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	RegisterToken(ctx context.Context, userID, token string) error

	CreateScheduled(ctx context.Context, actorID string, in ScheduleInput) (*domain.ScheduledNotification, error)
	ListScheduled(ctx context.Context) ([]*domain.ScheduledNotification, error)
	DeactivateScheduled(ctx context.Context, actorID, id string) error
	DeleteScheduled(ctx context.Context, actorID, id string) error
}
