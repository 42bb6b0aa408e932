package websocket

import (
	"sync"
)

// HandlerFunc handles one inbound message type
type HandlerFunc func(client *Client, msg *Message)

// Hub tracks connected clients by user ID and by room. A user holds at most
// one connection; a newer connection replaces the older one.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan *Message

	mu       sync.RWMutex
	clients  map[string]*Client
	rooms    map[string]map[string]*Client
	handlers map[string]HandlerFunc

	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates an idle hub; call Run to start it
func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *Message, 256),
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		handlers:   make(map[string]HandlerFunc),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case msg := <-h.Broadcast:
			h.SendToAll(msg)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop shuts the hub down and closes every client's send channel
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// remove unregisters client unless the hub has already stopped
func (h *Hub) remove(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[client.ID]; ok && old != client {
		h.leaveLocked(old)
		old.closeSend()
	}
	h.clients[client.ID] = client
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// a replaced connection must not evict its successor
	if current, ok := h.clients[client.ID]; !ok || current != client {
		return
	}
	h.leaveLocked(client)
	delete(h.clients, client.ID)
	client.closeSend()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.closeSend()
		delete(h.clients, id)
	}
	h.rooms = make(map[string]map[string]*Client)
}

func (h *Hub) leaveLocked(client *Client) {
	room := client.Room()
	if room == "" {
		return
	}
	if members, ok := h.rooms[room]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	client.setRoom("")
}

// JoinRoom moves a registered client into room, leaving its previous room
func (h *Hub) JoinRoom(clientID, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return false
	}
	h.leaveLocked(client)

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[clientID] = client
	client.setRoom(room)
	return true
}

// LeaveRoom removes a client from room
func (h *Hub) LeaveRoom(clientID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[clientID]; ok && client.Room() == room {
		h.leaveLocked(client)
	}
}

// GetClient returns a connected client by user ID
func (h *Hub) GetClient(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// GetClientCount returns the number of connected users
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetRoomCount returns the number of non-empty rooms
func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// GetClientsInRoom returns the clients currently in room
func (h *Hub) GetClientsInRoom(room string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		out = append(out, c)
	}
	return out
}

// SendToUser delivers msg to one user; it reports whether the user is connected
func (h *Hub) SendToUser(userID string, msg *Message) bool {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return client.deliver(msg)
}

// SendToRoom delivers msg to every client in room and returns how many received it
func (h *Hub) SendToRoom(room string, msg *Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg.Room = room
	sent := 0
	for _, c := range h.rooms[room] {
		if c.deliver(msg) {
			sent++
		}
	}
	return sent
}

// SendToAll delivers msg to every connected client
func (h *Hub) SendToAll(msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.deliver(msg)
	}
}

// RegisterHandler routes inbound messages of msgType to handler
func (h *Hub) RegisterHandler(msgType string, handler HandlerFunc) {
	h.mu.Lock()
	h.handlers[msgType] = handler
	h.mu.Unlock()
}

// HandleMessage dispatches an inbound message; unknown types are ignored
func (h *Hub) HandleMessage(client *Client, msg *Message) {
	h.mu.RLock()
	handler, ok := h.handlers[msg.Type]
	h.mu.RUnlock()
	if ok {
		handler(client, msg)
	}
}
