package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestHubDeliversToRegisteredClients(t *testing.T) {
	hub, _ := startHub(t)

	a := NewClient("a")
	b := NewClient("b")
	require.True(t, hub.Register(a))
	require.True(t, hub.Register(b))
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(MsgLiveStatus, map[string]bool{"running": true}))

	for _, c := range []*Client{a, b} {
		select {
		case data := <-c.Send:
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			assert.Equal(t, MsgLiveStatus, msg.Type)
			assert.JSONEq(t, `{"running":true}`, string(msg.Payload))
		case <-time.After(time.Second):
			t.Fatalf("client %s received nothing", c.ID)
		}
	}

	hub.Unregister(a)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	_, open := <-a.Send
	assert.False(t, open)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, cancel := startHub(t)

	c := NewClient("c")
	require.True(t, hub.Register(c))
	cancel()

	select {
	case _, open := <-c.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("client channel not closed on shutdown")
	}

	assert.False(t, hub.Register(NewClient("late")))
	assert.NoError(t, hub.Publish(MsgReport, "ignored"))
}

func TestPublishRejectsUnencodablePayload(t *testing.T) {
	hub, _ := startHub(t)
	assert.Error(t, hub.Publish(MsgReport, make(chan int)))
}

func TestServeWS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub, _ := startHub(t)

	router := gin.New()
	router.GET("/ws", NewHandler(hub, nil).ServeWS)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hub.Publish(MsgReport, map[string]string{"id": "r1"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MsgReport, msg.Type)
	assert.JSONEq(t, `{"id":"r1"}`, string(msg.Payload))
}
