package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vendhub/marketplace/internal/apperrors"
	"github.com/vendhub/marketplace/pkg/config"
)

// executeWithRetry re-invokes op while it fails with ErrOptimisticLock,
// up to cfg.MaxAttempts, sleeping an exponentially growing backoff between
// attempts. op must be a pure re-read-and-redecide closure over its original
// request parameters: it re-reads fresh state itself on every invocation and
// carries nothing over from a failed attempt. Every other error kind
// propagates immediately.
func executeWithRetry[T any](ctx context.Context, cfg config.RetryConfig, logger *slog.Logger, operation string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	backoff := cfg.InitialBackoff
	for attempt := uint(1); ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, apperrors.ErrOptimisticLock) {
			return zero, err
		}
		if attempt >= cfg.MaxAttempts {
			logger.WarnContext(ctx, "Retry attempts exhausted",
				"operation", operation, "attempts", attempt)
			return zero, fmt.Errorf("%s failed after %d attempts: %w", operation, attempt, err)
		}
		logger.DebugContext(ctx, "Concurrent modification detected, retrying",
			"operation", operation, "attempt", attempt, "backoff", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}
