package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/idgen"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db  *gorm.DB
	ids idgen.Generator
}

// Create inserts a user. Accounts are normally provisioned by the user
// management service; this exists for seeding and tests.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		id, err := r.ids.Generate()
		if err != nil {
			return err
		}
		user.ID = id
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = nowUTC()
	}

	model := &domain.UserModel{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		APNsToken: user.APNsToken,
		CreatedAt: user.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("user", id)
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByIDs retrieves the users that exist among ids.
func (r *GormUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	for i := range models {
		out[models[i].ID] = models[i].ToDomain()
	}
	return out, nil
}

// ListByRole returns every user with role, ordered by ID for stable batches.
func (r *GormUserRepository) ListByRole(ctx context.Context, role string) ([]*domain.User, error) {
	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Where("role = ?", role).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(models))
	for i := range models {
		users = append(users, models[i].ToDomain())
	}
	return users, nil
}

// GetPushToken returns the user's device token, or nil if none is registered.
func (r *GormUserRepository) GetPushToken(ctx context.Context, userID string) (*string, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasPushToken() {
		return nil, nil
	}
	return user.APNsToken, nil
}

// SetPushToken stores the user's device token.
func (r *GormUserRepository) SetPushToken(ctx context.Context, userID, token string) error {
	result := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", userID).
		Update("apns_token", token)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ensureExists(ctx, r.db, &domain.UserModel{}, "user", userID)
	}
	return nil
}
