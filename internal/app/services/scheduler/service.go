package scheduler

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quantfabric/fincore/internal/app/metrics"
	pipelinesvc "github.com/quantfabric/fincore/internal/app/services/pipeline"
	"github.com/quantfabric/fincore/pkg/faults"
	"github.com/quantfabric/fincore/pkg/logger"
)

// Job describes a recurring pipeline submission. Spec accepts standard
// five-field cron expressions and @every/@hourly style descriptors.
type Job struct {
	Name     string
	Spec     string
	Pipeline string
	Payload  map[string]any
}

// PipelineRunner submits pipeline runs. The pipeline service implements
// it.
type PipelineRunner interface {
	Submit(ctx context.Context, name string, payload map[string]any) (*pipelinesvc.Run, error)
}

// Service drives recurring pipeline submissions from cron schedules.
type Service struct {
	runner     PipelineRunner
	log        *logger.Logger
	runTimeout time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	jobs    map[string]Job
	running bool
}

// New constructs a scheduler submitting through runner.
func New(runner PipelineRunner, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("scheduler")
	}
	return &Service{
		runner:     runner,
		log:        log,
		runTimeout: time.Minute,
		cron:       cron.New(),
		entries:    make(map[string]cron.EntryID),
		jobs:       make(map[string]Job),
	}
}

// AddJob registers a recurring job. The schedule is validated before
// anything is queued, so a bad spec never reaches the cron runner.
func (s *Service) AddJob(job Job) error {
	job.Name = strings.TrimSpace(job.Name)
	job.Spec = strings.TrimSpace(job.Spec)
	job.Pipeline = strings.TrimSpace(job.Pipeline)

	if job.Name == "" {
		return faults.Argumentf("job name is required")
	}
	if job.Pipeline == "" {
		return faults.Argumentf("job %s has no pipeline", job.Name)
	}
	if _, err := cron.ParseStandard(job.Spec); err != nil {
		return faults.Argumentf("job %s has invalid schedule %q: %v", job.Name, job.Spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[job.Name]; ok {
		return faults.Argumentf("job %s already scheduled", job.Name)
	}

	id, err := s.cron.AddFunc(job.Spec, func() { s.dispatch(job) })
	if err != nil {
		return err
	}
	s.entries[job.Name] = id
	s.jobs[job.Name] = job
	s.log.WithField("job", job.Name).
		WithField("schedule", job.Spec).
		WithField("pipeline", job.Pipeline).
		Info("job scheduled")
	return nil
}

// RemoveJob unschedules a job by name.
func (s *Service) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[name]
	if !ok {
		return faults.Argumentf("job %s is not scheduled", name)
	}
	s.cron.Remove(id)
	delete(s.entries, name)
	delete(s.jobs, name)
	s.log.WithField("job", name).Info("job removed")
	return nil
}

// Jobs returns the scheduled jobs sorted by name.
func (s *Service) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// dispatch submits one run for job and waits for it to settle, within
// the run timeout. A run that outlives the timeout is cancelled.
func (s *Service) dispatch(job Job) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	run, err := s.runner.Submit(ctx, job.Pipeline, job.Payload)
	if err != nil {
		metrics.RecordScheduledJob(job.Name, time.Since(started), false)
		s.log.WithError(err).WithField("job", job.Name).Warn("scheduled submission failed")
		return
	}

	if err := run.Task.Wait(ctx); err != nil {
		run.Token.Cancel()
	}
	success := run.Task.Succeeded()
	metrics.RecordScheduledJob(job.Name, time.Since(started), success)
	if !success {
		s.log.WithField("job", job.Name).
			WithField("run_id", run.ID).
			WithField("state", run.Task.State().String()).
			Warn("scheduled run did not succeed")
		return
	}
	s.log.WithField("job", job.Name).
		WithField("run_id", run.ID).
		Debug("scheduled run settled")
}

// Name implements system.Service.
func (s *Service) Name() string { return "scheduler" }

// Start begins firing schedules. Starting a running scheduler is a
// no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.cron.Start()
	s.running = true
	s.log.WithField("jobs", len(s.entries)).Info("scheduler started")
	return nil
}

// Stop halts the schedule and waits for in-flight dispatches to
// finish.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("scheduler stopped")
	return nil
}
