package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/idgen"
	"github.com/emrecanisildak/diet/internal/push"
	"github.com/emrecanisildak/diet/internal/registry"
	"github.com/emrecanisildak/diet/internal/service"
	"github.com/emrecanisildak/diet/pkg/middleware"
	"github.com/emrecanisildak/diet/pkg/response"
)

// Handler handles HTTP requests for messaging and notifications.
type Handler struct {
	messages      service.MessageService
	notifications service.NotificationService
	auth          *middleware.Authenticator
	registry      *registry.Registry
	push          push.Gateway
	ids           idgen.Generator
}

// NewHandler creates a new HTTP handler.
func NewHandler(messages service.MessageService, notifications service.NotificationService, auth *middleware.Authenticator, reg *registry.Registry, gateway push.Gateway) *Handler {
	return &Handler{
		messages:      messages,
		notifications: notifications,
		auth:          auth,
		registry:      reg,
		push:          gateway,
		ids:           idgen.NewUUIDGenerator(),
	}
}

// RegisterRoutes registers all routes onto the Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		messages := api.Group("/messages", h.auth.RequireAuth())
		{
			messages.GET("/conversations", h.ListConversations)
			messages.GET("/:user_id", h.GetConversation)
			messages.POST("", h.SendMessage)
			messages.POST("/:user_id/read", h.MarkConversationRead)
		}

		notifications := api.Group("/notifications", h.auth.RequireAuth())
		{
			notifications.GET("", h.ListInbox)
			notifications.POST("/:id/read", h.MarkNotificationRead)
			notifications.POST("/read-all", h.MarkAllNotificationsRead)
			notifications.POST("/register-token", h.RegisterToken)

			admin := notifications.Group("", h.auth.RequireRole(domain.RoleDietitian))
			admin.POST("/send-bulk", h.SendBulk)
			admin.POST("/schedule", h.CreateScheduled)
			admin.GET("/scheduled", h.ListScheduled)
			admin.POST("/scheduled/:id/deactivate", h.DeactivateScheduled)
			admin.DELETE("/scheduled/:id", h.DeleteScheduled)
		}
	}
}

// Health handles GET /health. push_breaker is present only when the push
// gateway runs behind a circuit breaker.
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "connections": h.registry.Len()}
	if b, ok := h.push.(interface{ State() string }); ok {
		body["push_breaker"] = b.State()
	}
	response.Success(c, body)
}

// pathID reads and validates a UUID path parameter.
func (h *Handler) pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if err := h.ids.Validate(id); err != nil {
		response.BadRequest(c, "invalid "+name)
		return "", false
	}
	return id, true
}

type sendMessageRequest struct {
	RecipientID string  `json:"receiver_id" binding:"required"`
	Content     *string `json:"content"`
	ImageURL    *string `json:"image_url"`
}

// SendMessage handles POST /api/messages.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "receiver_id is required")
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), middleware.GetUserID(c), req.RecipientID, req.Content, req.ImageURL)
	if err != nil {
		respondError(c, err, "send message")
		return
	}
	response.Created(c, msg)
}

// ListConversations handles GET /api/messages/conversations.
func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.messages.ListConversations(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "list conversations")
		return
	}
	response.Success(c, convs)
}

// GetConversation handles GET /api/messages/:user_id. Reading marks the
// counterpart's messages as read.
func (h *Handler) GetConversation(c *gin.Context) {
	counterpart, ok := h.pathID(c, "user_id")
	if !ok {
		return
	}

	msgs, err := h.messages.GetConversation(c.Request.Context(), middleware.GetUserID(c), counterpart)
	if err != nil {
		respondError(c, err, "get conversation")
		return
	}
	response.Success(c, msgs)
}

// MarkConversationRead handles POST /api/messages/:user_id/read.
func (h *Handler) MarkConversationRead(c *gin.Context) {
	counterpart, ok := h.pathID(c, "user_id")
	if !ok {
		return
	}

	n, err := h.messages.MarkRead(c.Request.Context(), middleware.GetUserID(c), counterpart)
	if err != nil {
		respondError(c, err, "mark messages read")
		return
	}
	response.Success(c, gin.H{"updated": n})
}

// ListInbox handles GET /api/notifications.
func (h *Handler) ListInbox(c *gin.Context) {
	items, err := h.notifications.ListInbox(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "list notifications")
		return
	}
	response.Success(c, items)
}

// MarkNotificationRead handles POST /api/notifications/:id/read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err, "mark notification read")
		return
	}
	response.Success(c, gin.H{"message": "marked as read"})
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all.
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "mark notifications read")
		return
	}
	response.Success(c, gin.H{"updated": n})
}

type registerTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RegisterToken handles POST /api/notifications/register-token.
func (h *Handler) RegisterToken(c *gin.Context) {
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token is required")
		return
	}

	if err := h.notifications.RegisterToken(c.Request.Context(), middleware.GetUserID(c), req.Token); err != nil {
		respondError(c, err, "register token")
		return
	}
	response.Success(c, gin.H{"message": "token registered"})
}

type bulkRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SendBulk handles POST /api/notifications/send-bulk.
func (h *Handler) SendBulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	n, err := h.notifications.SendBulk(c.Request.Context(), middleware.GetUserID(c), req.Title, req.Content)
	if err != nil {
		respondError(c, err, "send notifications")
		return
	}
	response.Success(c, gin.H{"recipients": n})
}

type scheduleRequest struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	ScheduleType  string `json:"schedule_type"`
	ScheduledTime string `json:"scheduled_time"`
}

// CreateScheduled handles POST /api/notifications/schedule.
func (h *Handler) CreateScheduled(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	def, err := h.notifications.CreateScheduled(c.Request.Context(), middleware.GetUserID(c), service.ScheduleInput{
		Title:         req.Title,
		Body:          req.Content,
		Kind:          domain.ScheduleKind(req.ScheduleType),
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		respondError(c, err, "schedule notification")
		return
	}
	response.Created(c, def)
}

// ListScheduled handles GET /api/notifications/scheduled.
func (h *Handler) ListScheduled(c *gin.Context) {
	defs, err := h.notifications.ListScheduled(c.Request.Context())
	if err != nil {
		respondError(c, err, "list scheduled notifications")
		return
	}
	response.Success(c, defs)
}

// DeactivateScheduled handles POST /api/notifications/scheduled/:id/deactivate.
func (h *Handler) DeactivateScheduled(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.DeactivateScheduled(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err, "deactivate scheduled notification")
		return
	}
	response.Success(c, gin.H{"message": "deactivated"})
}

// DeleteScheduled handles DELETE /api/notifications/scheduled/:id.
func (h *Handler) DeleteScheduled(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.DeleteScheduled(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err, "delete scheduled notification")
		return
	}
	c.Status(http.StatusNoContent)
}
