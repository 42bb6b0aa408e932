package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/attendance-tracker/pkg/resilience"
)

// TxBeginner is satisfied by *pgxpool.Pool and pgx transactions
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IsRetryable reports whether err is a transient PostgreSQL or network
// failure that a fresh attempt may not hit.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03", // serialization, deadlock, lock not available
			"53000", "53300", "53400", // resources, too many connections, config limit
			"57P01", "57P02", "57P03", // shutdowns, cannot connect now
			"58000", "XX000":
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08")
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"too many connections",
		"server closed",
		"unexpected eof",
		"temporary failure",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// TxRetryConfig retries transient failures a few times with short backoff
func TxRetryConfig() resilience.RetryConfig {
	cfg := resilience.DeliveryRetryConfig()
	cfg.MaxAttempts = 3
	cfg.RetryableChecker = IsRetryable
	return cfg
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error. Transient failures rerun the whole transaction.
func WithTx(ctx context.Context, db TxBeginner, fn func(tx pgx.Tx) error) error {
	_, err := resilience.Retry(ctx, TxRetryConfig(), func(ctx context.Context) (interface{}, error) {
		return nil, runTx(ctx, db, fn)
	})
	return err
}

func runTx(ctx context.Context, db TxBeginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
