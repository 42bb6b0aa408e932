package eventbus

import (
	"context"
	"strings"
	"sync"

	"github.com/richxcame/attendance-tracker/pkg/logger"
	"go.uber.org/zap"
)

// Local is an in-process bus used when NATS is disabled. Subjects follow
// NATS wildcard rules: "*" matches one token and a trailing ">" matches the
// rest. Handlers run on their own goroutine, so Publish never blocks on them.
type Local struct {
	source string

	mu   sync.RWMutex
	subs []localSub
	wg   sync.WaitGroup
}

type localSub struct {
	ctx     context.Context
	pattern string
	handler Handler
}

// NewLocal creates an in-process bus
func NewLocal(source string) *Local {
	return &Local{source: source}
}

// Publish hands the event to every matching subscriber
func (l *Local) Publish(ctx context.Context, subject string, data interface{}) error {
	event, err := NewEvent(subject, l.source, data)
	if err != nil {
		return err
	}
	event.CorrelationID = logger.CorrelationID(ctx)

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, sub := range l.subs {
		if !subjectMatches(sub.pattern, subject) {
			continue
		}
		l.wg.Add(1)
		go func(sub localSub) {
			defer l.wg.Done()
			hctx := sub.ctx
			if event.CorrelationID != "" {
				hctx = logger.ContextWithCorrelationID(hctx, event.CorrelationID)
			}
			if err := sub.handler(hctx, event); err != nil {
				logger.WithContext(hctx).Error("Event handler failed",
					zap.String("subject", subject),
					zap.String("event_id", event.ID),
					zap.Error(err))
			}
		}(sub)
	}
	return nil
}

// Subscribe registers handler for subject. The queue name is ignored since
// there is only one consumer per process.
func (l *Local) Subscribe(ctx context.Context, subject, _ string, handler Handler) error {
	l.mu.Lock()
	l.subs = append(l.subs, localSub{ctx: ctx, pattern: subject, handler: handler})
	l.mu.Unlock()
	return nil
}

// Healthy always succeeds
func (l *Local) Healthy() error {
	return nil
}

// Close waits for in-flight handlers
func (l *Local) Close() {
	l.wg.Wait()
}

func subjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, p := range pt {
		if p == ">" {
			return i < len(st)
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
