package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/emrecanisildak/diet/internal/config"
	"github.com/emrecanisildak/diet/pkg/log"
)

// Client is one user's websocket connection. Outbound frames go through a
// bounded queue drained by WritePump, which is the only writer on Conn.
type Client struct {
	id     string
	UserID string
	Conn   *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64

	config config.WebSocketConfig
	logger zerolog.Logger
}

func NewClient(id, userID string, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	size := cfg.SendBuffer
	if size <= 0 {
		size = 64
	}
	l := log.L()
	return &Client{
		id:     id,
		UserID: userID,
		Conn:   conn,
		send:   make(chan []byte, size),
		done:   make(chan struct{}),
		config: cfg,
		logger: l.With().Str(log.FieldConnID, id).Str(log.FieldUserID, userID).Logger(),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues a frame without blocking. Frames are dropped when the queue
// is full or the client is closed.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		n := c.dropped.Add(1)
		c.logger.Warn().Int64("dropped", n).Msg("send queue full, dropping frame")
		return false
	}
}

// Close asks WritePump to send a close frame and release the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Dropped reports how many outbound frames were discarded.
func (c *Client) Dropped() int64 {
	return c.dropped.Load()
}

// ReadPump reads frames until the connection fails, passing each to handler.
// onClose runs once the loop exits.
func (c *Client) ReadPump(handler func(*Client, []byte), onClose func(*Client)) {
	defer func() {
		if onClose != nil {
			onClose(c)
		}
		c.Close()
		c.Conn.Close()
	}()

	if c.config.MaxMessageSize > 0 {
		c.Conn.SetReadLimit(c.config.MaxMessageSize)
	}
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read error")
			}
			break
		}

		// Extend on any frame, not only pongs.
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		handler(c, message)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	interval := c.config.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.Close()
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "connection replaced or server shutting down"))
			return
		}
	}
}
