package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/idgen"
)

const insertBatchSize = 200

// GormNotificationRepository implements NotificationRepository using GORM.
type GormNotificationRepository struct {
	db  *gorm.DB
	ids idgen.Generator
}

func (r *GormNotificationRepository) prepare(n *domain.Notification) error {
	if n.ID == "" {
		id, err := r.ids.Generate()
		if err != nil {
			return err
		}
		n.ID = id
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = nowUTC()
	}
	return nil
}

func (r *GormNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if err := r.prepare(n); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(domain.NotificationToModel(n)).Error
}

// CreateBatch inserts all rows in one statement per batch.
func (r *GormNotificationRepository) CreateBatch(ctx context.Context, ns []*domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	models := make([]*domain.NotificationModel, 0, len(ns))
	for _, n := range ns {
		if err := r.prepare(n); err != nil {
			return err
		}
		models = append(models, domain.NotificationToModel(n))
	}
	return r.db.WithContext(ctx).CreateInBatches(models, insertBatchSize).Error
}

// ListByUser returns the user's notifications, newest first.
func (r *GormNotificationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Notification, error) {
	var models []domain.NotificationModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Notification, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToDomain())
	}
	return out, nil
}

// MarkRead marks one notification read. A notification owned by someone
// else is reported as not found.
func (r *GormNotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	var model domain.NotificationModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).Find(&model).Error
	if err != nil {
		return err
	}
	if model.ID == "" {
		return domain.NewNotFoundError("notification", id)
	}
	if model.IsRead {
		return nil
	}

	return r.db.WithContext(ctx).Model(&domain.NotificationModel{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.NotificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}
