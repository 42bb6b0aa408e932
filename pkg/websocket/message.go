// Package websocket is the in-app live channel: managers connect once and
// receive fraud alerts and attendance events for their department.
package websocket

import "time"

// Message is the JSON frame exchanged with clients
type Message struct {
	Type      string                 `json:"type"`
	Room      string                 `json:"room,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewMessage stamps a message with the current time
func NewMessage(msgType string, data map[string]interface{}) *Message {
	return &Message{Type: msgType, Data: data, Timestamp: time.Now()}
}
