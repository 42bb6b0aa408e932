// Package eventbus publishes and consumes domain events over NATS.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"go.uber.org/zap"
)

// Event is the envelope every message on the bus carries
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals the event payload into v
func (e *Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s event: %w", e.Type, err)
	}
	return nil
}

// Handler consumes one event. A returned error is logged; NATS core
// subscriptions do not redeliver.
type Handler func(ctx context.Context, event *Event) error

// Bus is a NATS-backed event bus
type Bus struct {
	conn   *nats.Conn
	source string
	subs   []*nats.Subscription
}

// Connect dials NATS with reconnects enabled. source names this service in
// every published envelope.
func Connect(url, source string) (*Bus, error) {
	conn, err := nats.Connect(url,
		nats.Name(source),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Bus{conn: conn, source: source}, nil
}

// Publish sends data on subject, using the subject as the event type
func (b *Bus) Publish(ctx context.Context, subject string, data interface{}) error {
	event, err := NewEvent(subject, b.source, data)
	if err != nil {
		return err
	}
	event.CorrelationID = logger.CorrelationID(ctx)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}
	if err := b.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe delivers events on subject to handler. Subscribers sharing a
// queue name split the traffic between them.
func (b *Bus) Subscribe(ctx context.Context, subject, queue string, handler Handler) error {
	sub, err := b.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Warn("Dropping malformed event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}

		hctx := ctx
		if event.CorrelationID != "" {
			hctx = logger.ContextWithCorrelationID(ctx, event.CorrelationID)
		}
		if err := handler(hctx, &event); err != nil {
			logger.WithContext(hctx).Error("Event handler failed",
				zap.String("subject", msg.Subject),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

// Healthy reports whether the connection is up
func (b *Bus) Healthy() error {
	if b.conn == nil || !b.conn.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

// Close drains subscriptions and closes the connection
func (b *Bus) Close() {
	if b.conn == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		logger.Warn("NATS drain failed", zap.Error(err))
		b.conn.Close()
	}
}
