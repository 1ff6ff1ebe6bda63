package domain

import "time"

// ImagePlaceholder stands in for the text of an image-only message in
// conversation previews.
const ImagePlaceholder = "[image]"

// Message is a persisted chat message between two users.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"receiver_id"`
	Content     *string   `json:"content"`
	ImageURL    *string   `json:"image_url"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Preview returns the text shown for the message in a conversation list.
func (m *Message) Preview() string {
	if m.Content != nil && *m.Content != "" {
		return *m.Content
	}
	return ImagePlaceholder
}

// Conversation summarizes the exchange between the caller and one counterpart.
type Conversation struct {
	UserID        string    `json:"user_id"`
	FullName      string    `json:"full_name"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int64     `json:"unread_count"`
}

// MessageModel is the GORM model for messages table.
type MessageModel struct {
	ID          string    `gorm:"type:varchar(26);primaryKey"`
	SenderID    string    `gorm:"type:varchar(36);not null;index:idx_messages_pair,priority:1"`
	RecipientID string    `gorm:"column:receiver_id;type:varchar(36);not null;index:idx_messages_pair,priority:2;index:idx_messages_unread,priority:1"`
	Content     *string   `gorm:"type:text"`
	ImageURL    *string   `gorm:"type:varchar(500)"`
	IsRead      bool      `gorm:"not null;default:false;index:idx_messages_unread,priority:2"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		ImageURL:    m.ImageURL,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(m *Message) *MessageModel {
	return &MessageModel{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		ImageURL:    m.ImageURL,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt,
	}
}
