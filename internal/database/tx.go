package database

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"
)

// TxOptions carries the isolation level and the retry budget used when a
// transaction hits a serialization conflict.
type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
	MaxRetries     int
	InitialBackoff time.Duration
}

func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
	}
}

// SerializableTxOptions is what checkout runs under. Serializable
// isolation turns write skew on stock rows into a 40001 that WithRetry
// absorbs.
func SerializableTxOptions() TxOptions {
	opts := DefaultTxOptions()
	opts.IsolationLevel = sql.LevelSerializable
	return opts
}

// WithTransaction runs fn inside a single transaction, rolling back on
// error and committing otherwise. No retry happens at this level.
func WithTransaction(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{
		Isolation: opts.IsolationLevel,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// WithRetry reruns fn in a fresh transaction until it commits, the error
// classifies as permanent, or the retry budget runs out. Serialization
// failures surfacing only at commit retry the same as ones raised
// mid-transaction.
func WithRetry(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	base := opts.InitialBackoff
	if base <= 0 {
		base = 50 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := WithTransaction(ctx, db, opts, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt == opts.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", opts.MaxRetries, err)
		}

		backoff := base << attempt
		backoff += time.Duration(rand.Int63n(int64(backoff / 4)))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
