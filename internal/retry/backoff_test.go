package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries=3, got %d", config.MaxRetries)
	}

	if config.BaseDelay != time.Second {
		t.Errorf("Expected BaseDelay=1s, got %v", config.BaseDelay)
	}

	if config.MaxDelay != 30*time.Second {
		t.Errorf("Expected MaxDelay=30s, got %v", config.MaxDelay)
	}

	if !config.Jitter {
		t.Error("Expected Jitter=true")
	}
}

func TestWithBackoffSucceedsFirstTry(t *testing.T) {
	calls := 0
	result := WithBackoff(context.Background(), DefaultConfig(), "noop", func() error {
		calls++
		return nil
	})

	if !result.Success {
		t.Error("Expected success")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	if result.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", result.Attempts)
	}
}

func TestWithBackoffEventualSuccess(t *testing.T) {
	config := Config{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	calls := 0
	result := WithBackoff(context.Background(), config, "flaky", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if !result.Success {
		t.Errorf("Expected eventual success, last error %v", result.LastError)
	}
	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}
}

func TestWithBackoffExhaustsRetries(t *testing.T) {
	config := Config{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	wantErr := errors.New("permanent")
	result := WithBackoff(context.Background(), config, "broken", func() error {
		return wantErr
	})

	if result.Success {
		t.Error("Expected failure")
	}
	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got %d", result.Attempts)
	}
	if !errors.Is(result.LastError, wantErr) {
		t.Errorf("Expected last error %v, got %v", wantErr, result.LastError)
	}
}

func TestWithBackoffHonorsContext(t *testing.T) {
	config := Config{MaxRetries: 10, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2.0}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := WithBackoff(ctx, config, "cancelled", func() error {
		return errors.New("transient")
	})

	if result.Success {
		t.Error("Expected failure")
	}
	if !errors.Is(result.LastError, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", result.LastError)
	}
}
