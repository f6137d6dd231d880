package block

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not exist", os.ErrNotExist, false},
		{"permission", os.ErrPermission, false},
		{"closed", os.ErrClosed, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"not found", ErrNotFound(7), false},
		{"transient", fmt.Errorf("connection reset"), true},
	}
	for _, c := range cases {
		if got := ShouldRetry(c.err); got != c.want {
			t.Errorf("ShouldRetry(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		attempts++
		return os.ErrPermission
	})
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("Retry error = %v, want os.ErrPermission", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry on a permanent error)", attempts)
	}
}

func TestRetry_ExhaustsAfterMaxRetries(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("connection reset")
	})
	if err == nil {
		t.Fatalf("expected error after retries exhausted")
	}
	if attempts != 6 {
		t.Fatalf("attempts = %d, want 6 (1 initial + 5 retries)", attempts)
	}
}
