package pubsub

// Channels carrying domain events. Kafka maps them to topics of the same
// name with dots replaced by dashes.
const (
	ChannelChat          = "diet.chat"
	ChannelNotifications = "diet.notifications"
)

// Event types.
const (
	EventMessageCreated    = "chat.message.created"
	EventNotificationFired = "notification.fired"
)

// MessageCreatedPayload is published after a chat message is persisted.
type MessageCreatedPayload struct {
	MessageID   string `json:"message_id"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"receiver_id"`
	HasImage    bool   `json:"has_image"`
	Delivered   bool   `json:"delivered"`
}

// NotificationFiredPayload is published after a scheduled definition fires.
type NotificationFiredPayload struct {
	DefinitionID string `json:"definition_id"`
	ScheduleType string `json:"schedule_type"`
	Recipients   int    `json:"recipients"`
	Failed       int    `json:"failed"`
}
