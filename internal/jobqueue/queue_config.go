package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds all configurable parameters for the job queue
type QueueConfig struct {
	// MaxWorkers bounds concurrent sweep runs. One is enough: the sweep
	// itself is idempotent but there is no point racing two.
	MaxWorkers int

	// SweepInterval is how often the periodic sweep fires.
	SweepInterval time.Duration

	// JobTimeout is the maximum time a single sweep can run.
	JobTimeout time.Duration
}

// DefaultQueueConfig returns the default configuration
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers:    1,
		SweepInterval: 15 * time.Minute,
		JobTimeout:    5 * time.Minute,
	}
}

// RiverQueueConfig returns the River queue configuration
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: c.MaxWorkers},
	}
}
