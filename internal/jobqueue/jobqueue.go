/*
Package jobqueue provides a River-based periodic runner for the workflow
timeout sweep, for deployments that already operate a River pool. Smaller
installs can use the in-process scanner instead; both drive the same sweep.

For configuration options see queue_config.go.
*/
package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/storeclerk/internal/workflow"
)

// SweepJobArgs is the (empty) payload for one timeout sweep run.
type SweepJobArgs struct{}

// Kind returns the job kind for River
func (SweepJobArgs) Kind() string { return "workflow_sweep" }

// SweepWorker runs the escalation/reminder sweep for overdue workflows.
type SweepWorker struct {
	river.WorkerDefaults[SweepJobArgs]
	svc     *workflow.Service
	timeout time.Duration
}

func (w *SweepWorker) Timeout(*river.Job[SweepJobArgs]) time.Duration { return w.timeout }

func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepJobArgs]) error {
	res, err := w.svc.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("workflow sweep: %w", err)
	}
	if res.Escalated > 0 || res.Reminded > 0 {
		log.Info().
			Int("escalated", res.Escalated).
			Int("reminded", res.Reminded).
			Msg("workflow sweep job finished")
	}
	return nil
}

// JobQueue manages the River client and its periodic sweep.
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	config *QueueConfig
}

// NewJobQueue creates a job queue whose only periodic job is the workflow
// sweep.
func NewJobQueue(databaseURL string, svc *workflow.Service, config *QueueConfig) (*JobQueue, error) {
	if config == nil {
		config = DefaultQueueConfig()
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &SweepWorker{svc: svc, timeout: config.JobTimeout})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  config.RiverQueueConfig(),
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(config.SweepInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return SweepJobArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{client: client, pool: pool, config: config}, nil
}

// Start starts the job queue workers
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the job queue workers and closes the pool.
func (jq *JobQueue) Stop(ctx context.Context) error {
	err := jq.client.Stop(ctx)
	jq.pool.Close()
	return err
}

// TriggerSweep queues an immediate sweep, outside the periodic schedule.
func (jq *JobQueue) TriggerSweep(ctx context.Context) error {
	if _, err := jq.client.Insert(ctx, SweepJobArgs{}, nil); err != nil {
		return fmt.Errorf("failed to queue sweep job: %w", err)
	}
	return nil
}
