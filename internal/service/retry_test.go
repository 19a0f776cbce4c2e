package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendhub/marketplace/internal/apperrors"
	"github.com/vendhub/marketplace/pkg/config"
)

func Test_executeWithRetry(t *testing.T) {
	errBoom := errors.New("boom")

	testCases := []struct {
		name          string
		cfg           config.RetryConfig
		lockFailures  int
		finalErr      error
		expectedCalls int
		expectErr     error
		expectValue   int
	}{
		{
			name:          "Success - first attempt",
			cfg:           config.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
			lockFailures:  0,
			expectedCalls: 1,
			expectValue:   42,
		},
		{
			name:          "Success - after two version conflicts",
			cfg:           config.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
			lockFailures:  2,
			expectedCalls: 3,
			expectValue:   42,
		},
		{
			name:          "Error - attempts exhausted",
			cfg:           config.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
			lockFailures:  3,
			expectedCalls: 3,
			expectErr:     apperrors.ErrOptimisticLock,
		},
		{
			name:          "Error - non-conflict error fails immediately",
			cfg:           config.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
			finalErr:      errBoom,
			expectedCalls: 1,
			expectErr:     errBoom,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			calls := 0
			op := func(_ context.Context) (int, error) {
				calls++
				if calls <= tc.lockFailures {
					return 0, apperrors.ErrOptimisticLock
				}
				if tc.finalErr != nil {
					return 0, tc.finalErr
				}
				return 42, nil
			}
			// when
			got, err := executeWithRetry(context.Background(), tc.cfg, testLogger(), "test.op", op)
			// then
			assert.Equal(t, tc.expectedCalls, calls)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectValue, got)
		})
	}
}

func Test_executeWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	// given
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour}
	calls := 0
	op := func(_ context.Context) (int, error) {
		calls++
		cancel()
		return 0, apperrors.ErrOptimisticLock
	}
	// when
	_, err := executeWithRetry(ctx, cfg, testLogger(), "test.op", op)
	// then
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func Test_validateHardDeleteReason(t *testing.T) {
	testCases := []struct {
		name      string
		reason    string
		expectErr bool
	}{
		{name: "valid reason", reason: "fraudulent listings reported"},
		{name: "too short", reason: "spam", expectErr: true},
		{name: "whitespace does not count", reason: "   spam      ", expectErr: true},
		{name: "too long", reason: string(make([]byte, 501)), expectErr: true},
		{name: "exactly at lower bound", reason: "0123456789"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateHardDeleteReason(tc.reason)
			if tc.expectErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
