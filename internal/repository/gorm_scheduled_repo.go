package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/idgen"
)

// GormScheduledRepository implements ScheduledRepository using GORM.
type GormScheduledRepository struct {
	db  *gorm.DB
	ids idgen.Generator
}

func (r *GormScheduledRepository) Create(ctx context.Context, s *domain.ScheduledNotification) error {
	if s.ID == "" {
		id, err := r.ids.Generate()
		if err != nil {
			return err
		}
		s.ID = id
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = nowUTC()
	}
	if s.TargetType == "" {
		s.TargetType = "all"
	}

	return r.db.WithContext(ctx).Create(domain.ScheduledNotificationToModel(s)).Error
}

func (r *GormScheduledRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledNotification, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *GormScheduledRepository) GetForUpdate(ctx context.Context, id string) (*domain.ScheduledNotification, error) {
	q := r.db.WithContext(ctx)
	// sqlite has no row locks; its single writer already serialises transactions.
	if r.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.get(q, id)
}

func (r *GormScheduledRepository) get(q *gorm.DB, id string) (*domain.ScheduledNotification, error) {
	var model domain.ScheduledNotificationModel
	if err := q.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("scheduled notification", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns every definition, newest first.
func (r *GormScheduledRepository) List(ctx context.Context) ([]*domain.ScheduledNotification, error) {
	return r.find(r.db.WithContext(ctx).Order("created_at DESC"))
}

// ListActive returns active definitions, oldest first.
func (r *GormScheduledRepository) ListActive(ctx context.Context) ([]*domain.ScheduledNotification, error) {
	return r.find(r.db.WithContext(ctx).Where("is_active = ?", true).Order("created_at ASC"))
}

func (r *GormScheduledRepository) find(q *gorm.DB) ([]*domain.ScheduledNotification, error) {
	var models []domain.ScheduledNotificationModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.ScheduledNotification, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToDomain())
	}
	return out, nil
}

func (r *GormScheduledRepository) Update(ctx context.Context, id string, fields ScheduledUpdate) error {
	updates := map[string]interface{}{}
	if fields.Active != nil {
		updates["is_active"] = *fields.Active
	}
	if fields.LastFiredAt != nil {
		updates["last_sent_at"] = fields.LastFiredAt.UTC()
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&domain.ScheduledNotificationModel{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// mysql reports 0 rows for a no-op update
		return ensureExists(ctx, r.db, &domain.ScheduledNotificationModel{}, "scheduled notification", id)
	}
	return nil
}

func (r *GormScheduledRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.ScheduledNotificationModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("scheduled notification", id)
	}
	return nil
}
