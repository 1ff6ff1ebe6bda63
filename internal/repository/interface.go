package repository

import (
	"context"
	"time"

	"github.com/emrecanisildak/diet/internal/domain"
)

// UserRepository reads the accounts this service delivers to.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
	ListByRole(ctx context.Context, role string) ([]*domain.User, error)
	GetPushToken(ctx context.Context, userID string) (*string, error)
	SetPushToken(ctx context.Context, userID, token string) error
}

// MessageRepository persists chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListConversation returns the messages between a and b in either
	// direction, oldest first.
	ListConversation(ctx context.Context, a, b string) ([]*domain.Message, error)
	// MarkRead flips is_read on every unread message from counterpart to
	// recipient and returns how many rows changed.
	MarkRead(ctx context.Context, counterpartID, recipientID string) (int64, error)
	// LatestPerCounterpart returns the newest message exchanged with each
	// counterpart of userID.
	LatestPerCounterpart(ctx context.Context, userID string) (map[string]*domain.Message, error)
	// UnreadCountsBySender returns the number of unread messages addressed
	// to recipientID, keyed by sender.
	UnreadCountsBySender(ctx context.Context, recipientID string) (map[string]int64, error)
}

// NotificationRepository persists delivered notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	CreateBatch(ctx context.Context, ns []*domain.Notification) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// ScheduledUpdate lists the scheduled definition fields that may change.
// Nil fields are left untouched.
type ScheduledUpdate struct {
	Active      *bool
	LastFiredAt *time.Time
}

// ScheduledRepository persists scheduled notification definitions.
type ScheduledRepository interface {
	Create(ctx context.Context, s *domain.ScheduledNotification) error
	GetByID(ctx context.Context, id string) (*domain.ScheduledNotification, error)
	// GetForUpdate reads a definition and locks its row until the
	// surrounding transaction ends, where the database supports it.
	GetForUpdate(ctx context.Context, id string) (*domain.ScheduledNotification, error)
	List(ctx context.Context) ([]*domain.ScheduledNotification, error)
	ListActive(ctx context.Context) ([]*domain.ScheduledNotification, error)
	Update(ctx context.Context, id string, fields ScheduledUpdate) error
	Delete(ctx context.Context, id string) error
}

// Store groups the repositories so they can share a transaction.
type Store interface {
	Users() UserRepository
	Messages() MessageRepository
	Notifications() NotificationRepository
	Scheduled() ScheduledRepository
	// WithinTx runs fn against a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
