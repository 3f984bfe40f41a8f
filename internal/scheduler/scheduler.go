package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "rentdesk/internal/log"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// cronLogger routes cron's internal logging to the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}

// Runner runs jobs on cron schedules. Overlapping runs of the same job are
// skipped, not queued.
type Runner struct {
	cron *cron.Cron

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Runner evaluating schedules in loc.
func New(loc *time.Location) *Runner {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Validate checks a standard five-field cron expression (descriptors such
// as "@hourly" are accepted too).
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Add registers job under name on spec.
func (r *Runner) Add(name, spec string, job Job) error {
	if err := Validate(spec); err != nil {
		return err
	}
	_, err := r.cron.AddFunc(spec, func() { r.run(name, job) })
	if err != nil {
		return err
	}
	appLog.Info("scheduled job", "name", name, "spec", spec)
	return nil
}

// RunNow executes job once, synchronously, with the runner's context.
func (r *Runner) RunNow(name string, job Job) error {
	return r.run(name, job)
}

func (r *Runner) run(name string, job Job) error {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()

	start := time.Now()
	err := job(ctx)
	if err != nil {
		appLog.Error("job failed", err, "name", name, "took", time.Since(start).Round(time.Millisecond))
		return err
	}
	appLog.Debug("job done", "name", name, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// Start begins running scheduled jobs in the background.
func (r *Runner) Start() { r.cron.Start() }

// Stop cancels running jobs and waits for them to return or ctx to expire.
func (r *Runner) Stop(ctx context.Context) {
	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()

	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		appLog.Warn("scheduler stop timed out")
	}
}
