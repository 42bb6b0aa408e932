package resilience

import (
	"context"

	"github.com/richxcame/attendance-tracker/pkg/logger"
	"go.uber.org/zap"
)

// FallbackFunc answers for a breaker that is open or overloaded
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// NoopFallback surfaces ErrCircuitOpen
func NoopFallback(ctx context.Context, err error) (interface{}, error) {
	return nil, ErrCircuitOpen
}

// SkipDelivery logs that a notification channel is degraded and surfaces
// ErrCircuitOpen so the caller can record the channel as failed.
func SkipDelivery(channel string) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.WithContext(ctx).Warn("Notification channel degraded, skipping delivery",
			zap.String("channel", channel),
			zap.Error(err),
		)
		return nil, ErrCircuitOpen
	}
}
