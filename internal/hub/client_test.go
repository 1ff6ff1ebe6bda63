package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrecanisildak/diet/internal/config"
)

var testCfg = config.WebSocketConfig{
	PingInterval:   time.Second,
	PongWait:       2 * time.Second,
	WriteWait:      time.Second,
	MaxMessageSize: 1024,
	SendBuffer:     1,
}

func TestSendDropsWhenFull(t *testing.T) {
	c := NewClient("conn-1", "u1", nil, testCfg)

	assert.True(t, c.Send([]byte("a")))
	assert.False(t, c.Send([]byte("b")))
	assert.Equal(t, int64(1), c.Dropped())

	c.Close()
	c.Close()
	assert.False(t, c.Send([]byte("c")))

	select {
	case <-c.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestPumps(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan string, 1)
	closed := make(chan struct{})
	var server *Client

	ready := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		cfg := testCfg
		cfg.SendBuffer = 8
		server = NewClient("conn-1", "u1", conn, cfg)
		close(ready)
		go server.WritePump()
		go server.ReadPump(func(_ *Client, msg []byte) {
			received <- string(msg)
		}, func(*Client) { close(closed) })
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()
	<-ready

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("hello")))
	assert.Equal(t, "hello", <-received)

	assert.True(t, server.Send([]byte(`{"id":"m1"}`)))
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"m1"}`, string(data))

	// closing the server side sends a close frame
	server.Close()
	_, _, err = ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))

	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("read pump did not exit")
	}
}
