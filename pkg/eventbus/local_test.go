package eventbus

import (
	"context"
	"sync"
	"testing"

	"github.com/richxcame/attendance-tracker/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectMatches(t *testing.T) {
	tests := []struct {
		pattern, subject string
		want             bool
	}{
		{"fraud.alert", "fraud.alert", true},
		{"fraud.alert", "fraud.alerts", false},
		{"attendance.>", "attendance.check_in", true},
		{"attendance.>", "attendance", false},
		{"attendance.*", "attendance.check_in", true},
		{"attendance.*", "attendance.check_in.extra", false},
		{">", "anything.at.all", true},
		{"fraud.alert.more", "fraud.alert", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, subjectMatches(tt.pattern, tt.subject), "%s vs %s", tt.pattern, tt.subject)
	}
}

func TestLocalDeliversToMatchingSubscribers(t *testing.T) {
	bus := NewLocal("attendance-service")
	ctx := context.Background()

	var mu sync.Mutex
	got := map[string][]string{}
	record := func(name string) Handler {
		return func(ctx context.Context, event *Event) error {
			mu.Lock()
			defer mu.Unlock()
			got[name] = append(got[name], event.Type+"|"+logger.CorrelationID(ctx))
			return nil
		}
	}

	require.NoError(t, bus.Subscribe(ctx, "attendance.>", "q", record("attendance")))
	require.NoError(t, bus.Subscribe(ctx, "fraud.alert", "q", record("fraud")))

	pubCtx := logger.ContextWithCorrelationID(ctx, "req-1")
	require.NoError(t, bus.Publish(pubCtx, "attendance.check_in", map[string]string{"a": "b"}))
	require.NoError(t, bus.Publish(ctx, "fraud.alert", map[string]string{"c": "d"}))
	require.NoError(t, bus.Publish(ctx, "geofence.reloaded", nil))
	bus.Close()

	assert.Equal(t, []string{"attendance.check_in|req-1"}, got["attendance"])
	assert.Equal(t, []string{"fraud.alert|"}, got["fraud"])
	assert.NoError(t, bus.Healthy())
}

func TestLocalPublishRejectsUnmarshalable(t *testing.T) {
	bus := NewLocal("svc")
	assert.Error(t, bus.Publish(context.Background(), "x", make(chan int)))
}
