// Package health builds the dependency checks behind the readiness endpoint.
package health

import (
	"context"
	"fmt"
	"time"
)

// CheckerConfig bounds each dependency probe
type CheckerConfig struct {
	Timeout time.Duration
}

// DefaultCheckerConfig returns a 2 second probe timeout
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{Timeout: 2 * time.Second}
}

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusReporter is satisfied by *eventbus.Bus
type StatusReporter interface {
	Healthy() error
}

// RedisPinger is the part of a redis client the probe needs
type RedisPinger interface {
	PingErr(ctx context.Context) error
}

// PingChecker probes anything with a context-aware Ping, such as the Postgres pool
func PingChecker(p Pinger, cfg CheckerConfig) func() error {
	return func() error {
		ctx, cancel := withTimeout(cfg)
		defer cancel()
		return p.Ping(ctx)
	}
}

// RedisChecker probes the history cache
func RedisChecker(client RedisPinger, cfg CheckerConfig) func() error {
	return func() error {
		ctx, cancel := withTimeout(cfg)
		defer cancel()
		return client.PingErr(ctx)
	}
}

// StatusChecker adapts a connection that reports its own state, such as NATS
func StatusChecker(r StatusReporter) func() error {
	return r.Healthy
}

// FreshnessChecker fails when the timestamp returned by loadedAt is older
// than maxAge, e.g. a work-area snapshot the refresher stopped updating.
func FreshnessChecker(loadedAt func() time.Time, maxAge time.Duration) func() error {
	return func() error {
		at := loadedAt()
		if at.IsZero() {
			return fmt.Errorf("never loaded")
		}
		if age := time.Since(at); age > maxAge {
			return fmt.Errorf("stale for %s", age.Round(time.Second))
		}
		return nil
	}
}

func withTimeout(cfg CheckerConfig) (context.Context, context.CancelFunc) {
	if cfg.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), cfg.Timeout)
}
