package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/metrics"
)

// Func is the body of a scheduled job.
type Func func(ctx context.Context) error

// JobStatus describes a registered job
type JobStatus struct {
	Name    string    `json:"name"`
	Spec    string    `json:"spec"`
	NextRun time.Time `json:"nextRun"`
	PrevRun time.Time `json:"prevRun"`
}

type job struct {
	name    string
	spec    string
	timeout time.Duration
	fn      Func
	entry   cron.EntryID
}

// Scheduler runs named jobs on six-field cron expressions (seconds first).
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]*job
	logger  *zap.Logger
	mu      sync.RWMutex
	running bool
}

// NewScheduler creates a scheduler in the given location. A nil location means UTC.
func NewScheduler(logger *zap.Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		jobs:   make(map[string]*job),
		logger: logger,
	}
}

// Add registers fn under name, replacing any job already using that name.
// An empty spec leaves the job disabled.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, fn Func) error {
	if spec == "" {
		s.logger.Info("Job disabled", zap.String("job", name))
		return nil
	}
	if err := ValidateSpec(spec); err != nil {
		return fmt.Errorf("invalid schedule for %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[name]; ok {
		s.cron.Remove(existing.entry)
	}

	j := &job{name: name, spec: spec, timeout: timeout, fn: fn}
	entry, err := s.cron.AddFunc(spec, func() { s.execute(context.Background(), j) })
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	j.entry = entry
	s.jobs[name] = j

	s.logger.Info("Added job", zap.String("job", name), zap.String("cron", spec))
	return nil
}

// Remove unregisters the named job.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.jobs[name]; ok {
		s.cron.Remove(j.entry)
		delete(s.jobs, name)
		s.logger.Info("Removed job", zap.String("job", name))
	}
}

// Run executes the named job immediately, outside its schedule.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	return s.execute(ctx, j)
}

func (s *Scheduler) execute(ctx context.Context, j *job) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	err := j.fn(ctx)
	if err != nil {
		metrics.JobRuns.WithLabelValues(j.name, "error").Inc()
		s.logger.Error("Job failed", zap.String("job", j.name), zap.Error(err))
		return err
	}

	metrics.JobRuns.WithLabelValues(j.name, "success").Inc()
	s.logger.Debug("Job completed",
		zap.String("job", j.name),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Start starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.cron.Start()

	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Status reports the schedule of the named job.
func (s *Scheduler) Status(name string) (*JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("job %s not found", name)
	}

	entry := s.cron.Entry(j.entry)
	return &JobStatus{
		Name:    j.name,
		Spec:    j.spec,
		NextRun: entry.Next,
		PrevRun: entry.Prev,
	}, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSpec checks a six-field cron expression or a descriptor such as @hourly.
func ValidateSpec(spec string) error {
	_, err := parser.Parse(spec)
	return err
}
