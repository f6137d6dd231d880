package block

import (
	"context"
	"errors"
	log "log/slog"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry executes task with Fibonacci backoff up to 5 retries. CassandraStore,
// S3Store, and RedisMirror wrap every network call through it: a dropped
// packet against a remote backend shouldn't be treated the same as a failed
// local disk write, which LocalStore and DirectIOStore surface immediately.
func Retry(ctx context.Context, task func(ctx context.Context) error) error {
	b := retry.NewFibonacci(50 * time.Millisecond)
	if err := retry.Do(ctx, retry.WithMaxRetries(5, b), func(ctx context.Context) error {
		err := task(ctx)
		if err == nil {
			return nil
		}
		if ShouldRetry(err) {
			return retry.RetryableError(err)
		}
		return err
	}); err != nil {
		log.Warn("retry exhausted", "error", err.Error())
		return err
	}
	return nil
}

// ShouldRetry reports whether err looks transient. Permanent failures
// (missing key, permission denied, closed handle) are never retried.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) || errors.Is(err, os.ErrClosed) {
		return false
	}
	if _, ok := err.(ErrNotFound); ok {
		return false
	}
	return true
}
