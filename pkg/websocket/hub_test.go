package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func registerClient(t *testing.T, hub *Hub, id, role string) *Client {
	t.Helper()
	client := NewClient(id, dialTestConn(t), hub, role, nil)
	hub.Register <- client
	require.Eventually(t, func() bool {
		c, ok := hub.GetClient(id)
		return ok && c == client
	}, time.Second, 5*time.Millisecond)
	return client
}

func receive(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("client %s received nothing", c.ID)
		return nil
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, "manager-1", "manager")
	assert.Equal(t, 1, hub.GetClientCount())

	hub.Unregister <- client
	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-client.Send
	assert.False(t, open, "send channel is closed on unregister")
}

func TestReconnectReplacesOldConnection(t *testing.T) {
	hub := startHub(t)
	first := registerClient(t, hub, "manager-1", "manager")
	require.True(t, hub.JoinRoom(first.ID, "engineering"))

	second := registerClient(t, hub, "manager-1", "manager")
	assert.Equal(t, 1, hub.GetClientCount())
	assert.Equal(t, 0, hub.GetRoomCount(), "replaced connection leaves its room")

	// the stale connection unregistering must not evict the new one
	hub.Unregister <- first
	time.Sleep(20 * time.Millisecond)
	c, ok := hub.GetClient("manager-1")
	require.True(t, ok)
	assert.Same(t, second, c)
}

func TestRooms(t *testing.T) {
	hub := startHub(t)
	a := registerClient(t, hub, "a", "manager")
	b := registerClient(t, hub, "b", "manager")
	other := registerClient(t, hub, "c", "manager")

	require.True(t, hub.JoinRoom(a.ID, "engineering"))
	require.True(t, hub.JoinRoom(b.ID, "engineering"))
	require.True(t, hub.JoinRoom(other.ID, "warehouse"))
	assert.False(t, hub.JoinRoom("ghost", "engineering"))

	assert.Equal(t, 2, hub.GetRoomCount())
	assert.Len(t, hub.GetClientsInRoom("engineering"), 2)

	sent := hub.SendToRoom("engineering", NewMessage("fraud_alert", map[string]interface{}{"severity": "HIGH"}))
	assert.Equal(t, 2, sent)
	assert.Equal(t, "engineering", receive(t, a).Room)
	receive(t, b)
	assert.Empty(t, other.Send)

	// moving rooms leaves the old one
	require.True(t, hub.JoinRoom(a.ID, "warehouse"))
	assert.Len(t, hub.GetClientsInRoom("engineering"), 1)
	assert.Equal(t, "warehouse", a.Room())

	hub.LeaveRoom(b.ID, "engineering")
	assert.Len(t, hub.GetClientsInRoom("engineering"), 0)
	assert.Equal(t, 1, hub.GetRoomCount())
}

func TestSendToUser(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, "manager-1", "manager")

	assert.True(t, hub.SendToUser("manager-1", NewMessage("notification", nil)))
	assert.Equal(t, "notification", receive(t, client).Type)

	assert.False(t, hub.SendToUser("nobody", NewMessage("notification", nil)))
}

func TestBroadcastChannel(t *testing.T) {
	hub := startHub(t)
	clients := []*Client{
		registerClient(t, hub, "a", "manager"),
		registerClient(t, hub, "b", "admin"),
	}

	hub.Broadcast <- NewMessage("system", nil)
	for _, c := range clients {
		assert.Equal(t, "system", receive(t, c).Type)
	}
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, "slow", "manager")

	for i := 0; i < sendBuffer; i++ {
		require.True(t, hub.SendToUser("slow", NewMessage("fill", nil)))
	}
	assert.False(t, hub.SendToUser("slow", NewMessage("overflow", nil)))
	assert.Len(t, client.Send, sendBuffer)
}

func TestHandleMessage(t *testing.T) {
	hub := NewHub()
	var got *Message
	hub.RegisterHandler("join_department", func(c *Client, msg *Message) { got = msg })

	hub.HandleMessage(&Client{ID: "x"}, &Message{Type: "join_department"})
	require.NotNil(t, got)

	got = nil
	hub.HandleMessage(&Client{ID: "x"}, &Message{Type: "unknown"})
	assert.Nil(t, got)
}

func TestStopClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	client := registerClient(t, hub, "a", "manager")

	hub.Stop()
	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-client.Send
	assert.False(t, open)
}

func TestConcurrentRoomTraffic(t *testing.T) {
	hub := startHub(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("m-%d", i)
			client := NewClient(id, nil, hub, "manager", nil)
			hub.Register <- client
			for !hub.JoinRoom(id, "engineering") {
				time.Sleep(time.Millisecond)
			}
			hub.SendToRoom("engineering", NewMessage("ping", nil))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, hub.GetClientCount())
	assert.Len(t, hub.GetClientsInRoom("engineering"), 10)
}

func TestAcceptEndToEnd(t *testing.T) {
	hub := startHub(t)
	received := make(chan string, 1)
	hub.RegisterHandler("ack", func(c *Client, msg *Message) { received <- c.ID })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = hub.Accept(NewUpgrader([]string{"*"}), w, r, "manager-1", "manager", "engineering", nil)
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return len(hub.GetClientsInRoom("engineering")) == 1 }, time.Second, 5*time.Millisecond)

	hub.SendToRoom("engineering", NewMessage("fraud_alert", map[string]interface{}{"employee_id": "e-1"}))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "fraud_alert", msg.Type)
	assert.Equal(t, "e-1", msg.Data["employee_id"])

	require.NoError(t, conn.WriteJSON(Message{Type: "ack"}))
	select {
	case id := <-received:
		assert.Equal(t, "manager-1", id)
	case <-time.After(time.Second):
		t.Fatal("ack not dispatched")
	}
}

func TestUpgraderOrigins(t *testing.T) {
	up := NewUpgrader([]string{"https://app.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, up.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, up.CheckOrigin(req))
}
