package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errProvider  = errors.New("provider unavailable")
	errTransient = errors.New("transient")
	errPermanent = errors.New("invalid recipient")
)

func fastRetry(attempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func countingOp(failures int, err error) (Operation, *int) {
	calls := 0
	return func(ctx context.Context) (interface{}, error) {
		calls++
		if calls <= failures {
			return nil, err
		}
		return "sent", nil
	}, &calls
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		config    RetryConfig
		failures  int
		err       error
		wantErr   error
		wantCalls int
	}{
		{"first attempt succeeds", fastRetry(3), 0, nil, nil, 1},
		{"succeeds after retries", fastRetry(3), 2, errProvider, nil, 3},
		{"gives up after max attempts", fastRetry(3), 10, errProvider, errProvider, 3},
		{"zero attempts still tries once", fastRetry(0), 0, nil, nil, 1},
		{"open circuit is not retried", fastRetry(3), 10, ErrCircuitOpen, ErrCircuitOpen, 1},
		{"cancellation is not retried", fastRetry(3), 10, context.Canceled, context.Canceled, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, calls := countingOp(tt.failures, tt.err)

			result, err := Retry(context.Background(), tt.config, op)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "sent", result)
			}
			assert.Equal(t, tt.wantCalls, *calls)
		})
	}
}

func TestRetryOnlyListedErrors(t *testing.T) {
	cfg := fastRetry(3)
	cfg.RetryableErrors = []error{errTransient}

	op, calls := countingOp(10, errPermanent)
	_, err := Retry(context.Background(), cfg, op)
	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, *calls)

	op, calls = countingOp(10, errTransient)
	_, err = Retry(context.Background(), cfg, op)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, *calls)
}

func TestRetryCustomChecker(t *testing.T) {
	cfg := fastRetry(4)
	cfg.RetryableChecker = func(err error) bool { return errors.Is(err, errPermanent) }

	op, calls := countingOp(10, errPermanent)
	_, err := Retry(context.Background(), cfg, op)
	assert.Error(t, err)
	assert.Equal(t, 4, *calls)
}

func TestRetryStopsWhenContextDone(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Second
	cfg.EnableJitter = false

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	op, calls := countingOp(10, errProvider)
	start := time.Now()
	_, err := Retry(ctx, cfg, op)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, *calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff:    time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2,
	}

	assert.Equal(t, time.Second, calculateBackoff(1, cfg))
	assert.Equal(t, 2*time.Second, calculateBackoff(2, cfg))
	assert.Equal(t, 8*time.Second, calculateBackoff(4, cfg))
	assert.Equal(t, 10*time.Second, calculateBackoff(5, cfg))

	cfg.EnableJitter = true
	for i := 0; i < 20; i++ {
		d := calculateBackoff(3, cfg)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 4*time.Second)
	}
}

func TestAddJitterZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), addJitter(0))
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, status := range []int{http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		assert.True(t, IsRetryableHTTPStatus(status), status)
	}
	for _, status := range []int{http.StatusOK, http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound} {
		assert.False(t, IsRetryableHTTPStatus(status), status)
	}
}

func TestCircuitBreakerOpensAndFallsBack(t *testing.T) {
	fellBack := 0
	breaker := NewCircuitBreaker(Settings{
		Name:             "test-sms",
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, func(ctx context.Context, err error) (interface{}, error) {
		fellBack++
		return nil, ErrCircuitOpen
	})

	op, calls := countingOp(10, errProvider)
	for i := 0; i < 2; i++ {
		_, err := breaker.Execute(context.Background(), op)
		assert.ErrorIs(t, err, errProvider)
	}
	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	_, err := breaker.Execute(context.Background(), op)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, *calls, "open breaker must not reach the provider")
	assert.Equal(t, 1, fellBack)
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{Name: "test-push", FailureThreshold: 1}, nil)

	op, _ := countingOp(10, context.Canceled)
	_, err := breaker.Execute(context.Background(), op)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestRetryWithBreaker(t *testing.T) {
	breaker := NewCircuitBreaker(ProviderSettings("test-retry"), SkipDelivery("push"))

	op, calls := countingOp(1, errProvider)
	result, err := RetryWithBreaker(context.Background(), fastRetry(3), breaker, op)

	require.NoError(t, err)
	assert.Equal(t, "sent", result)
	assert.Equal(t, 2, *calls)
}

func TestBuildSettingsDefaults(t *testing.T) {
	s := BuildSettings("x", 0, -1, 0, 0)
	assert.Equal(t, time.Minute, s.Interval)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, uint32(5), s.FailureThreshold)
	assert.Equal(t, uint32(1), s.SuccessThreshold)
}

func TestUnnamedBreakersGetDistinctNames(t *testing.T) {
	a := NewCircuitBreaker(Settings{}, nil)
	b := NewCircuitBreaker(Settings{}, nil)
	assert.NotEqual(t, a.Name(), b.Name())
}
