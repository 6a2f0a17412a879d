package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Config configures retry behavior with exponential backoff. This is for
// idempotent infrastructure operations (connection pings, lookups); approval
// item execution is never retried automatically, the operator owns that.
type Config struct {
	MaxRetries int           `json:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay"`
	Multiplier float64       `json:"multiplier"`
	// Jitter adds randomness to each delay to prevent thundering herd.
	Jitter bool `json:"jitter"`
}

// Result describes how the retried operation went.
type Result struct {
	Attempts      int           `json:"attempts"`
	TotalDuration time.Duration `json:"total_duration"`
	LastError     error         `json:"-"`
	Success       bool          `json:"success"`
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// WithBackoff executes op with exponential backoff until it succeeds, the
// retries run out, or ctx is done.
func WithBackoff(ctx context.Context, config Config, name string, op func() error) Result {
	start := time.Now()
	result := Result{}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		if attempt > 0 {
			delay := backoffDelay(config, attempt)
			log.Warn().
				Str("operation", name).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(result.LastError).
				Msg("retrying after backoff")
			select {
			case <-ctx.Done():
				result.LastError = ctx.Err()
				result.TotalDuration = time.Since(start)
				return result
			case <-time.After(delay):
			}
		}

		if err := op(); err != nil {
			result.LastError = err
			continue
		}
		result.Success = true
		result.LastError = nil
		break
	}

	result.TotalDuration = time.Since(start)
	return result
}

func backoffDelay(config Config, attempt int) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	if config.Jitter {
		// Up to 25% extra, never less than the computed delay.
		delay += delay * 0.25 * rand.Float64()
	}
	return time.Duration(delay)
}
