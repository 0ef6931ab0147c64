/*
 * Copyright 2018-present HiveMQ and the HiveMQ Community
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package trello

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig holds configuration for retrying rate-limited calls
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	Multiplier        float64
	RespectRetryAfter bool
	TotalWaitCap      time.Duration
}

// DefaultRetryConfig returns sensible default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialDelay:      1 * time.Second,
		MaxDelay:          30 * time.Second,
		Multiplier:        2.0,
		RespectRetryAfter: true,
		TotalWaitCap:      2 * time.Minute,
	}
}

// Validate checks if the retry configuration is valid
func (rc *RetryConfig) Validate() error {
	if rc.MaxAttempts < 1 {
		return fmt.Errorf("MaxAttempts must be >= 1, got %d", rc.MaxAttempts)
	}
	if rc.Multiplier < 1.0 {
		return fmt.Errorf("Multiplier must be >= 1.0, got %f", rc.Multiplier)
	}
	if rc.InitialDelay <= 0 {
		return fmt.Errorf("InitialDelay must be > 0, got %v", rc.InitialDelay)
	}
	if rc.MaxDelay < rc.InitialDelay {
		return fmt.Errorf("MaxDelay (%v) must be >= InitialDelay (%v)", rc.MaxDelay, rc.InitialDelay)
	}
	if rc.TotalWaitCap < rc.InitialDelay {
		return fmt.Errorf("TotalWaitCap (%v) must be >= InitialDelay (%v)", rc.TotalWaitCap, rc.InitialDelay)
	}
	return nil
}

// parseRetryAfter parses a Retry-After header value, either delay-seconds
// or an HTTP-date
func parseRetryAfter(retryAfterHeader string) time.Duration {
	if retryAfterHeader == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfterHeader); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	formats := []string{
		time.RFC1123,
		time.RFC850,
		time.ANSIC,
		time.RFC3339,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, retryAfterHeader); err == nil {
			duration := time.Until(t)
			if duration > 0 {
				return duration
			}
			return 0
		}
	}

	return 0
}

// exponentialBackoffWithJitter calculates the delay before the next attempt
// using full jitter
func exponentialBackoffWithJitter(cfg RetryConfig, attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 && cfg.RespectRetryAfter {
		return retryAfter
	}

	base := cfg.InitialDelay
	if attempt > 0 {
		base = time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt)))
	}

	if base > cfg.MaxDelay || base < 0 {
		base = cfg.MaxDelay
	}

	maxNanos := base.Nanoseconds()
	if maxNanos <= 0 {
		return 0
	}

	return time.Duration(rand.Int63n(maxNanos + 1))
}

// rateLimitBackOff is a backoff.BackOff that yields full-jitter delays,
// prefers a server supplied Retry-After, and stops once the summed waits
// would pass TotalWaitCap.
type rateLimitBackOff struct {
	cfg        RetryConfig
	attempt    int
	retryAfter time.Duration
	waited     time.Duration
	capped     bool
}

func (b *rateLimitBackOff) NextBackOff() time.Duration {
	delay := exponentialBackoffWithJitter(b.cfg, b.attempt, b.retryAfter)
	b.attempt++
	b.retryAfter = 0

	if b.waited+delay > b.cfg.TotalWaitCap {
		b.capped = true
		return backoff.Stop
	}
	b.waited += delay
	return delay
}

func (b *rateLimitBackOff) Reset() {
	b.attempt = 0
	b.retryAfter = 0
	b.waited = 0
	b.capped = false
}

// WithRetry runs op and re-runs it while it fails with a *RateLimitError.
// Any other error is returned immediately, unwrapped. The plain client
// methods never retry on their own; callers opt in through this.
func (c *Client) WithRetry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid retry config: %w", err)
	}

	policy := &rateLimitBackOff{cfg: cfg}
	attempts := 0

	operation := func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}

		var rlErr *RateLimitError
		if !errors.As(err, &rlErr) {
			return backoff.Permanent(err)
		}
		policy.retryAfter = rlErr.RetryAfter
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("rate limit hit, retrying",
			"attempt", attempts, "max_attempts", cfg.MaxAttempts, "wait", wait)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(cfg.MaxAttempts-1)), ctx)
	err := backoff.RetryNotify(operation, b, notify)
	if err == nil {
		if attempts > 1 {
			c.logger.Info("succeeded after retry", "attempts", attempts, "waited", policy.waited)
		}
		return nil
	}

	switch {
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return fmt.Errorf("request canceled: %w", err)
	case !IsRateLimited(err):
		return err
	case policy.capped:
		c.logger.Warn("would exceed total wait cap, aborting", "cap", cfg.TotalWaitCap)
		return fmt.Errorf("total wait time would exceed cap (%v): %w", cfg.TotalWaitCap, err)
	default:
		c.logger.Warn("max attempts exceeded", "max_attempts", cfg.MaxAttempts)
		return fmt.Errorf("max retries exceeded: %w", err)
	}
}
