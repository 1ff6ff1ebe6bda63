package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/emrecanisildak/diet/internal/audit"
	"github.com/emrecanisildak/diet/internal/config"
	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/hub"
	"github.com/emrecanisildak/diet/internal/registry"
	"github.com/emrecanisildak/diet/internal/service"
	pkglog "github.com/emrecanisildak/diet/pkg/log"
	"github.com/emrecanisildak/diet/pkg/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler serves the live message channel.
type WSHandler struct {
	auth     *middleware.Authenticator
	messages service.MessageService
	registry *registry.Registry
	wsCfg    config.WebSocketConfig
}

func NewWSHandler(auth *middleware.Authenticator, messages service.MessageService, reg *registry.Registry, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		auth:     auth,
		messages: messages,
		registry: reg,
		wsCfg:    wsCfg,
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/messages/ws", h.HandleWebSocket)
	r.GET("/api/messages/ws/:token", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection, then authenticates it. A bad
// token closes the socket with a policy violation before the user is
// registered.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	l := pkglog.Ctx(c.Request.Context())

	token := c.Param("token")
	if token == "" {
		token = c.Query("token")
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	identity, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		audit.Log(c.Request.Context(), audit.ActionAuthFailed, "", "live channel rejected: "+err.Error())
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "could not validate credentials"), deadline)
		conn.Close()
		return
	}

	client := hub.NewClient(uuid.New().String(), identity.UserID, conn, h.wsCfg)

	// The request context ends with this handler; the session outlives it.
	sessionLog := l.With().
		Str(pkglog.FieldUserID, identity.UserID).
		Str(pkglog.FieldConnID, client.ID()).
		Logger()
	ctx := pkglog.WithLogger(context.Background(), sessionLog)

	h.registry.Register(identity.UserID, client)
	audit.LogTarget(ctx, audit.ActionConnect, identity.UserID, client.ID(), "live channel opened")

	go client.WritePump()
	go client.ReadPump(
		func(cl *hub.Client, frame []byte) { h.handleFrame(ctx, cl, frame) },
		func(cl *hub.Client) { h.closeSession(ctx, cl) },
	)
}

// closeSession releases the registry slot and records how many outbound
// frames the connection lost to a full send queue.
func (h *WSHandler) closeSession(ctx context.Context, client *hub.Client) {
	h.registry.Unregister(client.UserID, client)
	audit.LogWithDetail(ctx, audit.ActionDisconnect, client.UserID,
		fmt.Sprintf("conn=%s dropped_frames=%d", client.ID(), client.Dropped()),
		"live channel closed")
}

func (h *WSHandler) handleFrame(ctx context.Context, client *hub.Client, frame []byte) {
	var in domain.InboundMessage
	if err := json.Unmarshal(frame, &in); err != nil {
		h.sendError(ctx, client, domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid message format"))
		return
	}

	if _, err := h.messages.SendLive(ctx, client, client.UserID, &in); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str(pkglog.FieldRecipientID, in.RecipientID).Msg("live message rejected")
		h.sendError(ctx, client, frameError(err))
	}
}

func (h *WSHandler) sendError(ctx context.Context, client *hub.Client, msg *domain.ErrorMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Msg("failed to encode error frame")
		return
	}
	client.Send(data)
}
