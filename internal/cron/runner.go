package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/metrics"
	"go.uber.org/multierr"
)

// Job is one scheduled unit of work. Run returns a human-readable outcome
// line for the job log.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) (string, error)
}

// lockManager serializes a job across worker replicas.
type lockManager interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// Runner ticks registered jobs on their intervals. A Redis lock keyed by job
// name keeps one replica per tick.
type Runner struct {
	mtx     sync.Mutex
	jobs    map[string]Job
	locks   lockManager
	metrics *metrics.JobMetrics
	logg    *logger.Logger
	lockTTL time.Duration
}

// RunnerParams bundles the dependencies required to build a cron runner.
type RunnerParams struct {
	Locks   lockManager
	Metrics *metrics.JobMetrics
	Logger  *logger.Logger
	LockTTL time.Duration
}

// NewRunner constructs an empty runner.
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Locks == nil {
		return nil, fmt.Errorf("lock manager is required")
	}
	if params.LockTTL <= 0 {
		params.LockTTL = 5 * time.Minute
	}
	return &Runner{
		jobs:    map[string]Job{},
		locks:   params.Locks,
		metrics: params.Metrics,
		logg:    params.Logger,
		lockTTL: params.LockTTL,
	}, nil
}

// Register adds a job. Registering the same name twice is a programming error.
func (r *Runner) Register(job Job) error {
	if job == nil || job.Name() == "" {
		return fmt.Errorf("job with a name is required")
	}
	if job.Interval() <= 0 {
		return fmt.Errorf("job %q needs a positive interval", job.Name())
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, exists := r.jobs[job.Name()]; exists {
		return fmt.Errorf("job %q already registered", job.Name())
	}
	r.jobs[job.Name()] = job
	return nil
}

// JobNames lists registered jobs in stable order.
func (r *Runner) JobNames() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start launches one ticker goroutine per job and blocks until the context
// is cancelled.
func (r *Runner) Start(ctx context.Context) {
	var wg sync.WaitGroup
	r.mtx.Lock()
	jobs := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	r.mtx.Unlock()

	for _, job := range jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			ticker := time.NewTicker(job.Interval())
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := r.RunJob(ctx, job.Name()); err != nil && r.logg != nil {
						r.logg.Error(ctx, fmt.Sprintf("job %s failed", job.Name()), err)
					}
				}
			}
		}(job)
	}
	wg.Wait()
}

// RunJob executes one registered job immediately, honoring the lock.
func (r *Runner) RunJob(ctx context.Context, name string) error {
	r.mtx.Lock()
	job, ok := r.jobs[name]
	r.mtx.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return r.runLocked(ctx, job)
}

// RunAll executes every registered job once, collecting failures.
func (r *Runner) RunAll(ctx context.Context) error {
	var errs error
	for _, name := range r.JobNames() {
		if err := r.RunJob(ctx, name); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errs
}

func (r *Runner) runLocked(ctx context.Context, job Job) error {
	acquired, err := r.locks.Acquire(ctx, job.Name(), r.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		// Another replica holds the tick.
		return nil
	}
	defer func() {
		if releaseErr := r.locks.Release(ctx, job.Name()); releaseErr != nil && r.logg != nil {
			r.logg.Error(ctx, fmt.Sprintf("releasing lock for %s failed", job.Name()), releaseErr)
		}
	}()

	started := time.Now()
	outcome, runErr := job.Run(ctx)
	duration := time.Since(started)
	if r.metrics != nil {
		r.metrics.ObserveDuration(job.Name(), duration)
	}

	if runErr != nil {
		if r.metrics != nil {
			r.metrics.IncFailure(job.Name())
		}
		return runErr
	}

	if r.metrics != nil {
		r.metrics.IncSuccess(job.Name())
	}
	if r.logg != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"job":         job.Name(),
			"duration_ms": duration.Milliseconds(),
			"outcome":     outcome,
		})
		r.logg.Info(logCtx, "job completed")
	}
	return nil
}
