package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emrecanisildak/diet/internal/audit"
	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/metrics"
	"github.com/emrecanisildak/diet/internal/registry"
	"github.com/emrecanisildak/diet/internal/repository"
	"github.com/emrecanisildak/diet/pkg/log"
	"github.com/emrecanisildak/diet/pkg/pubsub"
)

type messageService struct {
	store    repository.Store
	registry *registry.Registry
	events   pubsub.Publisher
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewMessageService creates the dispatcher. events and m may be nil.
func NewMessageService(store repository.Store, reg *registry.Registry, events pubsub.Publisher, m *metrics.Metrics) MessageService {
	if events == nil {
		events = pubsub.NopPublisher{}
	}
	return &messageService{
		store:    store,
		registry: reg,
		events:   events,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *messageService) Send(ctx context.Context, senderID, recipientID string, content, imageURL *string) (*domain.Message, error) {
	msg, data, err := s.persist(ctx, senderID, recipientID, content, imageURL)
	if err != nil {
		return nil, err
	}

	delivered := s.deliver(ctx, msg, data, nil)
	s.metrics.MessageSent(metrics.PathHTTP, delivered)
	s.publish(ctx, msg, delivered)
	audit.LogTarget(ctx, audit.ActionSendMessage, senderID, msg.ID, "message sent")
	return msg, nil
}

func (s *messageService) SendLive(ctx context.Context, origin registry.Channel, senderID string, in *domain.InboundMessage) (*domain.Message, error) {
	msg, data, err := s.persist(ctx, senderID, in.RecipientID, in.Content, in.ImageURL)
	if err != nil {
		return nil, err
	}

	if !origin.Send(data) {
		l := log.Ctx(ctx)
		l.Warn().Err(domain.ErrDeliveryDegraded).
			Str(log.FieldMessageID, msg.ID).
			Msg("echo to sender dropped")
	}
	delivered := s.deliver(ctx, msg, data, origin)
	s.metrics.MessageSent(metrics.PathLive, delivered)
	s.publish(ctx, msg, delivered)
	audit.LogTarget(ctx, audit.ActionSendMessage, senderID, msg.ID, "message sent over live channel")
	return msg, nil
}

// persist validates and stores the message. The returned bytes are the
// wire form sent to live channels.
func (s *messageService) persist(ctx context.Context, senderID, recipientID string, content, imageURL *string) (*domain.Message, []byte, error) {
	content, imageURL = normalize(content), normalize(imageURL)
	if content == nil && imageURL == nil {
		return nil, nil, domain.NewValidationError("content", "content or image_url is required")
	}
	if strings.TrimSpace(recipientID) == "" {
		return nil, nil, domain.NewValidationError("receiver_id", "is required")
	}
	if _, err := s.store.Users().GetByID(ctx, recipientID); err != nil {
		return nil, nil, err
	}

	msg := &domain.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		ImageURL:    imageURL,
		CreatedAt:   s.now(),
	}
	if err := s.store.Messages().Create(ctx, msg); err != nil {
		return nil, nil, fmt.Errorf("failed to persist message: %w", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return msg, data, nil
}

// deliver hands the message to the recipient's live channel, if any.
// skip is the sender's own channel, which already got the echo.
func (s *messageService) deliver(ctx context.Context, msg *domain.Message, data []byte, skip registry.Channel) bool {
	ch, online := s.registry.Lookup(msg.RecipientID)
	if !online || (skip != nil && ch == skip) {
		return false
	}
	if ch.Send(data) {
		return true
	}

	l := log.Ctx(ctx)
	l.Warn().Err(domain.ErrDeliveryDegraded).
		Str(log.FieldMessageID, msg.ID).
		Str(log.FieldRecipientID, msg.RecipientID).
		Str(log.FieldConnID, ch.ID()).
		Msg("live delivery dropped; recipient will see it on next fetch")
	return false
}

func (s *messageService) publish(ctx context.Context, msg *domain.Message, delivered bool) {
	event, err := pubsub.NewEvent(pubsub.EventMessageCreated, msg.ID, pubsub.MessageCreatedPayload{
		MessageID:   msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		HasImage:    msg.ImageURL != nil,
		Delivered:   delivered,
	})
	if err == nil {
		err = s.events.Publish(ctx, pubsub.ChannelChat, event)
	}
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to publish message event")
	}
}

func (s *messageService) MarkRead(ctx context.Context, callerID, counterpartID string) (int64, error) {
	n, err := s.store.Messages().MarkRead(ctx, counterpartID, callerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	if n > 0 {
		audit.LogTarget(ctx, audit.ActionMarkRead, callerID, counterpartID, "conversation marked read")
	}
	return n, nil
}

// GetConversation returns the conversation oldest first, then marks the
// counterpart's messages to the caller as read.
func (s *messageService) GetConversation(ctx context.Context, callerID, counterpartID string) ([]*domain.Message, error) {
	msgs, err := s.store.Messages().ListConversation(ctx, callerID, counterpartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}

	n, err := s.MarkRead(ctx, callerID, counterpartID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		for _, m := range msgs {
			if m.SenderID == counterpartID && m.RecipientID == callerID {
				m.IsRead = true
			}
		}
	}
	return msgs, nil
}

// ListConversations summarizes every conversation of userID, most recent first.
func (s *messageService) ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	latest, err := s.store.Messages().LatestPerCounterpart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	unread, err := s.store.Messages().UnreadCountsBySender(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}

	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	users, err := s.store.Users().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load counterparts: %w", err)
	}

	out := make([]*domain.Conversation, 0, len(latest))
	for id, msg := range latest {
		user, ok := users[id]
		if !ok {
			continue
		}
		out = append(out, &domain.Conversation{
			UserID:        id,
			FullName:      user.FullName,
			LastMessage:   msg.Preview(),
			LastMessageAt: msg.CreatedAt,
			UnreadCount:   unread[id],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

func normalize(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
