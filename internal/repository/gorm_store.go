package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/idgen"
)

// Models lists every table owned by the store, for auto-migration.
func Models() []interface{} {
	return []interface{}{
		&domain.UserModel{},
		&domain.MessageModel{},
		&domain.NotificationModel{},
		&domain.ScheduledNotificationModel{},
	}
}

// GormStore implements Store using GORM.
type GormStore struct {
	db     *gorm.DB
	ids    idgen.Generator
	msgIDs idgen.Generator
	users  *GormUserRepository
	msgs   *GormMessageRepository
	notifs *GormNotificationRepository
	sched  *GormScheduledRepository
}

// NewGormStore creates a store. Messages get ULIDs so they sort by creation;
// every other row gets a UUID.
func NewGormStore(db *gorm.DB) *GormStore {
	return newGormStore(db, idgen.NewUUIDGenerator(), idgen.NewULIDGenerator())
}

func newGormStore(db *gorm.DB, ids, msgIDs idgen.Generator) *GormStore {
	return &GormStore{
		db:     db,
		ids:    ids,
		msgIDs: msgIDs,
		users:  &GormUserRepository{db: db, ids: ids},
		msgs:   &GormMessageRepository{db: db, ids: msgIDs},
		notifs: &GormNotificationRepository{db: db, ids: ids},
		sched:  &GormScheduledRepository{db: db, ids: ids},
	}
}

func (s *GormStore) Users() UserRepository                 { return s.users }
func (s *GormStore) Messages() MessageRepository           { return s.msgs }
func (s *GormStore) Notifications() NotificationRepository { return s.notifs }
func (s *GormStore) Scheduled() ScheduledRepository        { return s.sched }

// WithinTx runs fn in a database transaction.
func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newGormStore(tx, s.ids, s.msgIDs))
	})
}

// ensureExists returns a NotFoundError unless a row of model with id exists.
func ensureExists(ctx context.Context, db *gorm.DB, model interface{}, entity, id string) error {
	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.NewNotFoundError(entity, id)
	}
	return nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
