package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Client is one connected user
type Client struct {
	ID   string
	Role string
	Conn *websocket.Conn
	Hub  *Hub
	Send chan *Message

	mu    sync.RWMutex
	room  string
	log   *zap.Logger
	close sync.Once
}

// NewClient creates a client; log may be nil
func NewClient(id string, conn *websocket.Conn, hub *Hub, role string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		ID:   id,
		Role: role,
		Conn: conn,
		Hub:  hub,
		Send: make(chan *Message, sendBuffer),
		log:  log.With(zap.String("client_id", id)),
	}
}

// Room returns the room the client joined, or ""
func (c *Client) Room() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room
}

func (c *Client) setRoom(room string) {
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()
}

// deliver queues msg without blocking; a full buffer drops the message
func (c *Client) deliver(msg *Message) bool {
	select {
	case c.Send <- msg:
		return true
	default:
		c.log.Warn("Dropping websocket message, client too slow", zap.String("type", msg.Type))
		return false
	}
}

func (c *Client) closeSend() {
	c.close.Do(func() { close(c.Send) })
}

// ReadPump reads frames until the connection fails and dispatches them to
// the hub's handlers. It unregisters the client on return.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.remove(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Websocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("Ignoring malformed websocket frame", zap.Error(err))
			continue
		}
		c.Hub.HandleMessage(c, &msg)
	}
}

// WritePump writes queued messages and keepalive pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(msg); err != nil {
				c.log.Debug("Websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
