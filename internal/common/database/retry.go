// internal/common/database/retry.go
package database

import (
	"context"
	"fmt"
	"time"

	"agritour-certification/internal/common/logger"
)

// RetryWithBackoff runs operation until it succeeds, doubling the delay after each
// failure. Dependencies started by docker compose are often not up yet when the
// services boot.
func RetryWithBackoff(ctx context.Context, operation func(ctx context.Context) error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(ctx); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}

		log.Warn(operationName+" failed, retrying", map[string]interface{}{
			"error":       err.Error(),
			"attempt":     i + 1,
			"maxRetries":  maxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", operationName, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
