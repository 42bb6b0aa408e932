package websocket

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// NewUpgrader returns an upgrader accepting the given origins; "*" or an
// empty list accepts any origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSpace(o)] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
		},
	}
}

// Accept upgrades the request, registers the client and starts its pumps.
// When room is non-empty the client joins it.
func (h *Hub) Accept(upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, id, role, room string, log *zap.Logger) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	client := NewClient(id, conn, h, role, log)
	select {
	case <-h.done:
		conn.Close()
		return nil, http.ErrServerClosed
	default:
	}
	h.register(client)
	if room != "" {
		h.JoinRoom(id, room)
	}

	go client.WritePump()
	go client.ReadPump()
	return client, nil
}
