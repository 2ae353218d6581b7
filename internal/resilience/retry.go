// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig shapes the backoff schedule for one class of input.
type RetryConfig struct {
	// MaxRetries is the attempt count after the first try
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Multiplier grows the delay each attempt; 2.0 doubles it
	Multiplier float64
	// Jitter adds up to 25% random noise so parallel workers hitting
	// the same throttled source do not retry in lockstep
	Jitter bool
	// OnRetry, when set, is invoked before each retry attempt
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig suits local file reads: short delays, few
// attempts. A local failure that survives two retries is not going
// away.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// RemoteRetryConfig suits registry and bucket downloads, where
// throttling and brief unavailability are routine.
func RemoteRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     16 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// RetryableOperation is one attempt at reading an input.
type RetryableOperation func(ctx context.Context) error

// RetryWithBackoff runs the operation, retrying transient failures on
// an exponential schedule. The delay before attempt n is
// InitialInterval * Multiplier^(n-1), capped at MaxInterval.
// Non-retryable failures and context cancellation return immediately.
func RetryWithBackoff(ctx context.Context, config RetryConfig, operation RetryableOperation) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := float64(config.InitialInterval)
			for i := 1; i < attempt; i++ {
				delay *= config.Multiplier
			}
			if config.Jitter {
				delay += delay * 0.25 * rand.Float64()
			}
			capped := min(time.Duration(delay), config.MaxInterval)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(capped):
			}

			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !ClassifyError(err).IsRetryable() {
			return err
		}
	}

	return lastErr
}

// RetryManager holds the retry schedule for each input class, keyed by
// name. The worker pool registers one schedule for local reads and one
// for remote fetches.
type RetryManager struct {
	configs map[string]RetryConfig
}

// NewRetryManager creates an empty manager
func NewRetryManager() *RetryManager {
	return &RetryManager{configs: make(map[string]RetryConfig)}
}

// SetConfig registers the schedule for an input class
func (rm *RetryManager) SetConfig(class string, config RetryConfig) {
	rm.configs[class] = config
}

// GetConfig returns the schedule for an input class, falling back to
// the local-read defaults
func (rm *RetryManager) GetConfig(class string) RetryConfig {
	if config, exists := rm.configs[class]; exists {
		return config
	}
	return DefaultRetryConfig()
}

// Retry runs an operation under the named class's schedule
func (rm *RetryManager) Retry(ctx context.Context, class string, operation RetryableOperation) error {
	return RetryWithBackoff(ctx, rm.GetConfig(class), operation)
}
