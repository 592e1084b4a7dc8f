package socket_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargo-connect-api-server/internal/socket"
)

// dialTestClient upgrades a connection against an in-process server and
// registers the server side of it in the hub under userID.
func dialTestClient(t *testing.T, hub *socket.Hub, userID string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	handlerDone := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(userID, conn)
		go func() {
			defer close(handlerDone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
		select {
		case <-handlerDone:
		case <-time.After(time.Second):
			t.Error("server read loop did not exit")
		}
	})
	return client
}

func TestHubSend(t *testing.T) {
	hub := socket.NewHub()
	client := dialTestClient(t, hub, "USR-HUB00001")
	defer hub.Unregister("USR-HUB00001")

	require.NoError(t, hub.Send("USR-HUB00001", []byte(`{"event":"bid_accepted"}`)))

	client.SetReadDeadline(time.Now().Add(time.Second))
	msgType, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)
	assert.JSONEq(t, `{"event":"bid_accepted"}`, string(msg))
}

func TestHubSendToOfflineUser(t *testing.T) {
	hub := socket.NewHub()
	assert.NoError(t, hub.Send("USR-NOBODY01", []byte("hello")), "offline users are skipped, not errors")
}

func TestHubUnregister(t *testing.T) {
	hub := socket.NewHub()
	client := dialTestClient(t, hub, "USR-HUB00002")

	hub.Unregister("USR-HUB00002")
	assert.NoError(t, hub.Send("USR-HUB00002", []byte("gone")))

	// Nothing was written to the connection after unregistering.
	client.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := client.ReadMessage()
	assert.Error(t, err)
}
