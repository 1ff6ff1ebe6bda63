package domain

import "time"

// Notification is a notification delivered to one user's inbox.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ScheduleKind is the cadence of a scheduled notification.
type ScheduleKind string

const (
	ScheduleOnce  ScheduleKind = "once"
	ScheduleDaily ScheduleKind = "daily"
)

// ScheduleState is the lifecycle position of a scheduled notification.
type ScheduleState string

const (
	StatePending    ScheduleState = "pending"
	StateFiredOnce  ScheduleState = "fired_once"
	StateArmedDaily ScheduleState = "armed_daily"
	StateInactive   ScheduleState = "inactive"
)

// ScheduledNotification is a broadcast to all clients, fired by the scheduler.
type ScheduledNotification struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Body          string        `json:"content"`
	Kind          ScheduleKind  `json:"schedule_type"`
	ScheduledTime string        `json:"scheduled_time"`
	TargetType    string        `json:"target_type"`
	Active        bool          `json:"is_active"`
	LastFiredAt   *time.Time    `json:"last_sent_at"`
	CreatedAt     time.Time     `json:"created_at"`
	State         ScheduleState `json:"state,omitempty"`
}

// DeriveState derives the lifecycle state from the stored flags.
func (s *ScheduledNotification) DeriveState() ScheduleState {
	switch {
	case s.Kind == ScheduleOnce && !s.Active && s.LastFiredAt != nil:
		return StateFiredOnce
	case !s.Active:
		return StateInactive
	case s.Kind == ScheduleDaily:
		return StateArmedDaily
	default:
		return StatePending
	}
}

// NotificationModel is the GORM model for notifications table.
type NotificationModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);not null;index:idx_notifications_user,priority:1"`
	Title     string    `gorm:"type:varchar(255);not null"`
	Body      string    `gorm:"column:content;type:text;not null"`
	IsRead    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null;index:idx_notifications_user,priority:2"`
}

// TableName specifies the table name for NotificationModel.
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts NotificationModel to domain Notification.
func (m *NotificationModel) ToDomain() *Notification {
	return &Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Body:      m.Body,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

// NotificationToModel converts domain Notification to NotificationModel.
func NotificationToModel(n *Notification) *NotificationModel {
	return &NotificationModel{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Body:      n.Body,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

// ScheduledNotificationModel is the GORM model for scheduled_notifications table.
type ScheduledNotificationModel struct {
	ID            string     `gorm:"type:varchar(36);primaryKey"`
	Title         string     `gorm:"type:varchar(255);not null"`
	Body          string     `gorm:"column:content;type:text;not null"`
	Kind          string     `gorm:"column:schedule_type;type:varchar(50);not null;default:once"`
	ScheduledTime string     `gorm:"type:varchar(50);not null"`
	TargetType    string     `gorm:"type:varchar(50);not null;default:all"`
	Active        bool       `gorm:"column:is_active;not null;index"`
	LastFiredAt   *time.Time `gorm:"column:last_sent_at"`
	CreatedAt     time.Time  `gorm:"not null"`
}

// TableName specifies the table name for ScheduledNotificationModel.
func (ScheduledNotificationModel) TableName() string {
	return "scheduled_notifications"
}

// ToDomain converts ScheduledNotificationModel to domain ScheduledNotification.
func (m *ScheduledNotificationModel) ToDomain() *ScheduledNotification {
	s := &ScheduledNotification{
		ID:            m.ID,
		Title:         m.Title,
		Body:          m.Body,
		Kind:          ScheduleKind(m.Kind),
		ScheduledTime: m.ScheduledTime,
		TargetType:    m.TargetType,
		Active:        m.Active,
		CreatedAt:     m.CreatedAt.UTC(),
	}
	if m.LastFiredAt != nil {
		t := m.LastFiredAt.UTC()
		s.LastFiredAt = &t
	}
	return s
}

// ScheduledNotificationToModel converts domain ScheduledNotification to its model.
func ScheduledNotificationToModel(s *ScheduledNotification) *ScheduledNotificationModel {
	return &ScheduledNotificationModel{
		ID:            s.ID,
		Title:         s.Title,
		Body:          s.Body,
		Kind:          string(s.Kind),
		ScheduledTime: s.ScheduledTime,
		TargetType:    s.TargetType,
		Active:        s.Active,
		LastFiredAt:   s.LastFiredAt,
		CreatedAt:     s.CreatedAt,
	}
}
