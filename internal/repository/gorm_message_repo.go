package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/idgen"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db  *gorm.DB
	ids idgen.Generator
}

// Create persists a message, assigning its ID and timestamp when unset.
func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		id, err := r.ids.Generate()
		if err != nil {
			return err
		}
		msg.ID = id
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = nowUTC()
	}

	return r.db.WithContext(ctx).Create(domain.MessageToModel(msg)).Error
}

func (r *GormMessageRepository) ListConversation(ctx context.Context, a, b string) ([]*domain.Message, error) {
	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC").Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toMessages(models), nil
}

func (r *GormMessageRepository) MarkRead(ctx context.Context, counterpartID, recipientID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", counterpartID, recipientID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *GormMessageRepository) LatestPerCounterpart(ctx context.Context, userID string) (map[string]*domain.Message, error) {
	// Newest first, so the first row seen per counterpart is the latest.
	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").Order("id DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	latest := make(map[string]*domain.Message)
	for i := range models {
		counterpart := models[i].RecipientID
		if counterpart == userID {
			counterpart = models[i].SenderID
		}
		if _, seen := latest[counterpart]; !seen {
			latest[counterpart] = models[i].ToDomain()
		}
	}
	return latest, nil
}

func (r *GormMessageRepository) UnreadCountsBySender(ctx context.Context, recipientID string) (map[string]int64, error) {
	var rows []struct {
		SenderID string
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Select("sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND is_read = ?", recipientID, false).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.SenderID] = row.Count
	}
	return counts, nil
}

func toMessages(models []domain.MessageModel) []*domain.Message {
	out := make([]*domain.Message, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToDomain())
	}
	return out
}
