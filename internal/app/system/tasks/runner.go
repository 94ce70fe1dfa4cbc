// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// Job is a task run once at Start and then every Interval.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run. Zero means the run is only cancelled by
	// Stop.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// JobStatus is the outcome of a job's most recent run.
type JobStatus struct {
	Name     string        `json:"name"`
	Running  bool          `json:"running"`
	Runs     int           `json:"runs"`
	LastRun  time.Time     `json:"last_run,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	LastErr  string        `json:"last_error,omitempty"`
}

// Runner runs registered jobs on their intervals until Stop.
type Runner struct {
	logger *zap.Logger
	jobs   []Job
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu     sync.Mutex
	status map[string]*JobStatus
}

// New creates a new task runner.
func New(logger *zap.Logger) *Runner {
	return &Runner{
		logger: logger,
		status: map[string]*JobStatus{},
	}
}

// Register adds a job. Jobs registered after Start are not run.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
	r.mu.Lock()
	r.status[job.Name] = &JobStatus{Name: job.Name}
	r.mu.Unlock()
}

// Start launches one goroutine per registered job.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}

	r.logger.Info("background task runner started",
		zap.Int("job_count", len(r.jobs)))
}

// Stop cancels every job and waits for them to return, or for ctx to end.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("background task runner stopped gracefully")
		return nil
	case <-ctx.Done():
		var stillRunning []string
		for _, s := range r.Status() {
			if s.Running {
				stillRunning = append(stillRunning, s.Name)
			}
		}
		r.logger.Warn("background task runner shutdown timed out",
			zap.Strings("jobs_still_running", stillRunning))
		return ctx.Err()
	}
}

// Status returns a snapshot of every job, sorted by name.
func (r *Runner) Status() []JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]JobStatus, 0, len(r.status))
	for _, s := range r.status {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Check reports the first job whose latest run failed. It matches the
// health package's check signature.
func (r *Runner) Check(context.Context) error {
	for _, s := range r.Status() {
		if s.LastErr != "" {
			return fmt.Errorf("%s: %s", s.Name, s.LastErr)
		}
	}
	return nil
}

// RunOnce runs the named job now, outside its schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	for _, job := range r.jobs {
		if job.Name == name {
			return r.execute(ctx, job)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	r.execute(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("job stopped", zap.String("job", job.Name))
			return
		case <-ticker.C:
			r.execute(ctx, job)
		}
	}
}

func (r *Runner) execute(ctx context.Context, job Job) error {
	start := time.Now()
	r.update(job.Name, func(s *JobStatus) { s.Running = true })

	runCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	err := job.Run(runCtx)
	took := time.Since(start)

	// A run interrupted by Stop is not a failure.
	if err != nil && ctx.Err() != nil {
		r.update(job.Name, func(s *JobStatus) { s.Running = false })
		r.logger.Debug("job cancelled during shutdown", zap.String("job", job.Name))
		return err
	}

	r.update(job.Name, func(s *JobStatus) {
		s.Running = false
		s.Runs++
		s.LastRun = start
		s.Duration = took
		s.LastErr = ""
		if err != nil {
			s.LastErr = err.Error()
		}
	})

	if err != nil {
		r.logger.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", took),
			zap.Error(err))
		return err
	}
	r.logger.Debug("job completed",
		zap.String("job", job.Name),
		zap.Duration("duration", took))
	return nil
}

func (r *Runner) update(name string, fn func(*JobStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.status[name]
	if !ok {
		s = &JobStatus{Name: name}
		r.status[name] = s
	}
	fn(s)
}
