package database

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agritour-certification/internal/common/logger"
)

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return stderrors.New("connection refused")
		}
		return nil
	}, 5, time.Millisecond, logger.NewTestLogger(t), "postgres")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	calls := 0
	cause := stderrors.New("connection refused")
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return cause
	}, 3, time.Millisecond, logger.NewTestLogger(t), "redis")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "redis failed after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return stderrors.New("down")
	}, 5, time.Hour, logger.NewTestLogger(t), "zeebe")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
