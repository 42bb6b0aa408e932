package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestCache(capacity int) (*HistoryCache, redismock.ClientMock, *mockHistory) {
	db, cacheMock := redismock.NewClientMock()
	fallback := new(mockHistory)
	return NewHistoryCache(&redis.Client{Client: db}, fallback, capacity), cacheMock, fallback
}

func encode(t *testing.T, s LocationSample) []byte {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	return data
}

func TestHistoryCacheHitReturnsChronologicalOrder(t *testing.T) {
	cache, cacheMock, fallback := newTestCache(10)
	ctx := context.Background()
	employee := uuid.New()
	samples := walk(origin, morning, time.Minute, 20, 25, 30)

	// newest first, as stored
	cacheMock.ExpectLRange(historyKey(employee), 0, 2).SetVal([]string{
		string(encode(t, samples[3])),
		string(encode(t, samples[2])),
		string(encode(t, samples[1])),
	})

	got, err := cache.RecentLocations(ctx, employee, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, s := range samples[1:] {
		assert.True(t, s.CapturedAt.Equal(got[i].CapturedAt))
		assert.InDelta(t, s.Point.Longitude, got[i].Point.Longitude, 1e-9)
	}
	assert.NoError(t, cacheMock.ExpectationsWereMet())
	fallback.AssertNotCalled(t, "RecentLocations", mock.Anything, mock.Anything, mock.Anything)
}

func TestHistoryCacheMissSeedsFromFallback(t *testing.T) {
	cache, cacheMock, fallback := newTestCache(4)
	ctx := context.Background()
	employee := uuid.New()
	samples := walk(origin, morning, time.Minute, 20, 25, 30)

	fallback.On("RecentLocations", ctx, employee, 4).Return(samples, nil)

	cacheMock.ExpectLRange(historyKey(employee), 0, 1).SetVal([]string{})
	cacheMock.ExpectTxPipeline()
	cacheMock.ExpectDel(historyKey(employee)).SetVal(0)
	cacheMock.ExpectRPush(historyKey(employee),
		encode(t, samples[3]), encode(t, samples[2]), encode(t, samples[1]), encode(t, samples[0])).SetVal(4)
	cacheMock.ExpectExpire(historyKey(employee), historyTTL).SetVal(true)
	cacheMock.ExpectTxPipelineExec()

	got, err := cache.RecentLocations(ctx, employee, 2)
	require.NoError(t, err)
	assert.Equal(t, samples[2:], got)
	assert.NoError(t, cacheMock.ExpectationsWereMet())
}

func TestHistoryCacheReadErrorFallsBack(t *testing.T) {
	cache, cacheMock, fallback := newTestCache(10)
	ctx := context.Background()
	employee := uuid.New()
	samples := walk(origin, morning, time.Minute, 20)

	cacheMock.ExpectLRange(historyKey(employee), 0, 9).SetErr(errors.New("connection refused"))
	fallback.On("RecentLocations", ctx, employee, 10).Return(samples, nil)

	got, err := cache.RecentLocations(ctx, employee, 10)
	require.NoError(t, err)
	assert.Equal(t, samples, got)
	fallback.AssertExpectations(t)
}

func TestHistoryCacheLimitAboveCapacityBypassesCache(t *testing.T) {
	cache, cacheMock, fallback := newTestCache(5)
	ctx := context.Background()
	employee := uuid.New()

	fallback.On("RecentLocations", ctx, employee, 50).Return([]LocationSample{}, nil)

	_, err := cache.RecentLocations(ctx, employee, 50)
	require.NoError(t, err)
	assert.NoError(t, cacheMock.ExpectationsWereMet())
	fallback.AssertExpectations(t)
}

func TestHistoryCacheAppend(t *testing.T) {
	cache, cacheMock, _ := newTestCache(10)
	ctx := context.Background()
	employee := uuid.New()
	sample := sampleAt(origin, morning)

	cacheMock.ExpectTxPipeline()
	cacheMock.ExpectLPush(historyKey(employee), encode(t, sample)).SetVal(1)
	cacheMock.ExpectLTrim(historyKey(employee), 0, 9).SetVal("OK")
	cacheMock.ExpectExpire(historyKey(employee), historyTTL).SetVal(true)
	cacheMock.ExpectTxPipelineExec()

	require.NoError(t, cache.Append(ctx, employee, sample))
	assert.NoError(t, cacheMock.ExpectationsWereMet())
}
