package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"github.com/richxcame/attendance-tracker/pkg/redis"
	"go.uber.org/zap"
)

const historyTTL = 24 * time.Hour

// HistoryCache keeps the last samples per employee in a capped Redis list,
// newest first, and falls back to the backing reader on a miss.
type HistoryCache struct {
	client   *redis.Client
	fallback HistoryReader
	capacity int
}

var _ HistoryReader = (*HistoryCache)(nil)

// NewHistoryCache creates a cache holding up to capacity samples per employee
func NewHistoryCache(client *redis.Client, fallback HistoryReader, capacity int) *HistoryCache {
	if capacity <= 0 {
		capacity = DefaultThresholds().HistoryLimit
	}
	return &HistoryCache{client: client, fallback: fallback, capacity: capacity}
}

func historyKey(employeeID uuid.UUID) string {
	return "fraud:history:" + employeeID.String()
}

// RecentLocations returns up to limit samples, oldest first
func (h *HistoryCache) RecentLocations(ctx context.Context, employeeID uuid.UUID, limit int) ([]LocationSample, error) {
	if limit > h.capacity {
		return h.fallback.RecentLocations(ctx, employeeID, limit)
	}

	raw, err := h.client.Latest(ctx, historyKey(employeeID), int64(limit))
	if err != nil {
		logger.Warn("History cache read failed, using database",
			zap.String("employee_id", employeeID.String()), zap.Error(err))
		return h.fallback.RecentLocations(ctx, employeeID, limit)
	}

	if len(raw) > 0 {
		samples := make([]LocationSample, len(raw))
		for i, item := range raw {
			// list is newest first
			if err := json.Unmarshal([]byte(item), &samples[len(raw)-1-i]); err != nil {
				return nil, fmt.Errorf("failed to decode cached sample: %w", err)
			}
		}
		return samples, nil
	}

	samples, err := h.fallback.RecentLocations(ctx, employeeID, h.capacity)
	if err != nil {
		return nil, err
	}
	h.seed(ctx, employeeID, samples)

	if len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}
	return samples, nil
}

// Append records a newly stored sample
func (h *HistoryCache) Append(ctx context.Context, employeeID uuid.UUID, sample LocationSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return h.client.PushCapped(ctx, historyKey(employeeID), data, int64(h.capacity), historyTTL)
}

func (h *HistoryCache) seed(ctx context.Context, employeeID uuid.UUID, samples []LocationSample) {
	if len(samples) == 0 {
		return
	}
	values := make([]interface{}, 0, len(samples))
	for i := len(samples) - 1; i >= 0; i-- {
		data, err := json.Marshal(samples[i])
		if err != nil {
			return
		}
		values = append(values, data)
	}
	if err := h.client.ReplaceList(ctx, historyKey(employeeID), values, historyTTL); err != nil {
		logger.Warn("Failed to seed history cache",
			zap.String("employee_id", employeeID.String()), zap.Error(err))
	}
}
