package pipeline

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantfabric/fincore/internal/app/domain/journal"
	"github.com/quantfabric/fincore/internal/app/domain/pipeline"
	"github.com/quantfabric/fincore/internal/app/metrics"
	"github.com/quantfabric/fincore/pkg/faults"
	"github.com/quantfabric/fincore/pkg/logger"
	"github.com/quantfabric/fincore/pkg/pubsub"
	"github.com/quantfabric/fincore/pkg/task"
)

// recordTimeout bounds the journal write performed after a run settles.
const recordTimeout = 5 * time.Second

// Handler executes one pipeline run. The context is cancelled when the
// run's token is, so handlers can pass it to blocking calls; handlers
// doing their own loops should poll token.Check instead.
type Handler func(ctx context.Context, token *task.CancelToken, payload map[string]any) (map[string]any, error)

// Recorder persists settled run results. The journal service implements
// it.
type Recorder interface {
	Record(ctx context.Context, res pipeline.RunResult) (journal.Record, error)
}

// Run is a live handle on a submitted pipeline run.
type Run struct {
	ID        string
	Pipeline  string
	Task      *task.Task[map[string]any]
	Token     *task.CancelToken
	StartedAt time.Time
}

// Service executes registered pipelines as cancellable tasks on a
// bounded worker pool. Every run settles exactly once, and every
// settlement is journaled and published on the settlement topic whether
// the run succeeded, faulted or was cancelled.
type Service struct {
	recorder   Recorder
	topic      *pubsub.Topic[pipeline.RunResult]
	log        *logger.Logger
	workers    int
	queueDepth int

	mu       sync.Mutex
	handlers map[string]Handler
	runs     map[string]*Run
	pool     *task.WorkerPool
	running  bool
	submits  sync.WaitGroup
}

// New constructs a pipeline service. Runs execute on workers goroutines
// behind a queue of queueDepth submissions; non-positive values fall
// back to 4 workers and a queue of 16.
func New(recorder Recorder, topic *pubsub.Topic[pipeline.RunResult], workers, queueDepth int, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("pipelines")
	}
	if workers <= 0 {
		workers = 4
	}
	if queueDepth <= 0 {
		queueDepth = 16
	}
	return &Service{
		recorder:   recorder,
		topic:      topic,
		log:        log,
		workers:    workers,
		queueDepth: queueDepth,
		handlers:   make(map[string]Handler),
		runs:       make(map[string]*Run),
	}
}

// Register makes a handler submittable under name.
func (s *Service) Register(name string, h Handler) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return faults.Argumentf("pipeline name is required")
	}
	if h == nil {
		return faults.Argumentf("pipeline %s has no handler", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[name]; ok {
		return faults.Argumentf("pipeline %s already registered", name)
	}
	s.handlers[name] = h
	s.log.WithField("pipeline", name).Info("pipeline registered")
	return nil
}

// Pipelines returns the registered pipeline names, sorted.
func (s *Service) Pipelines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name implements system.Service.
func (s *Service) Name() string { return "pipelines" }

// Start brings up the worker pool. Starting a running service is a
// no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.pool = task.NewWorkerPool(s.workers, s.queueDepth)
	s.running = true
	s.log.WithField("workers", s.workers).
		WithField("queue_depth", s.queueDepth).
		Info("pipeline executor started")
	return nil
}

// Stop cancels live runs and drains the worker pool. Their settlement
// continuations still fire, so cancelled runs are journaled like any
// other outcome.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	pool := s.pool
	s.pool = nil
	tokens := make([]*task.CancelToken, 0, len(s.runs))
	for _, run := range s.runs {
		tokens = append(tokens, run.Token)
	}
	s.mu.Unlock()

	// Accepted submissions must reach the queue before it closes.
	s.submits.Wait()
	for _, token := range tokens {
		token.Cancel()
	}

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("pipeline executor stopped")
	return nil
}

// Submit schedules one run of the named pipeline. It blocks while the
// submission queue is full and returns a handle as soon as the run is
// queued; the handle's Task observes the outcome.
func (s *Service) Submit(ctx context.Context, name string, payload map[string]any) (*Run, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, faults.Argumentf("pipeline name is required")
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil, faults.InvalidOperationf("pipeline executor is not running")
	}
	h, ok := s.handlers[name]
	if !ok {
		s.mu.Unlock()
		return nil, faults.Argumentf("pipeline %s is not registered", name)
	}
	pool := s.pool
	run := &Run{
		ID:        uuid.NewString(),
		Pipeline:  name,
		Token:     task.NewCancelToken(),
		StartedAt: time.Now().UTC(),
	}
	s.runs[run.ID] = run
	s.submits.Add(1)
	s.mu.Unlock()
	defer s.submits.Done()

	metrics.PipelineRunStarted()
	run.Task = task.RunOn(pool, run.Token, func(t *task.CancelToken) (map[string]any, error) {
		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		remove := t.AddCancelListener(cancel)
		defer remove()
		return h(runCtx, t, payload)
	})
	task.Continue(run.Task, func(ct *task.Task[map[string]any]) (struct{}, error) {
		s.settle(run, ct)
		return struct{}{}, nil
	})
	return run, nil
}

// settle journals and publishes one settled run. It runs on whichever
// goroutine won the settlement race.
func (s *Service) settle(run *Run, ct *task.Task[map[string]any]) {
	settledAt := time.Now().UTC()
	res := pipeline.RunResult{
		RunID:     run.ID,
		Pipeline:  run.Pipeline,
		State:     ct.State().String(),
		StartedAt: run.StartedAt,
		SettledAt: settledAt,
		Duration:  settledAt.Sub(run.StartedAt),
	}
	if ct.Succeeded() {
		out, _ := ct.Result()
		res.Output = out
	} else if err := ct.Err(); err != nil {
		res.Error = err.Error()
	}

	metrics.RecordPipelineRun(res.Pipeline, res.State, res.Duration)

	if s.recorder != nil {
		recordCtx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if _, err := s.recorder.Record(recordCtx, res); err != nil {
			s.log.WithError(err).WithField("run_id", res.RunID).Warn("journal write failed")
		}
		cancel()
	}
	if s.topic != nil {
		if err := s.topic.Publish(res); err != nil {
			s.log.WithError(err).WithField("run_id", res.RunID).Warn("settlement publish failed")
		} else {
			metrics.RecordEventPublished(s.topic.Name())
		}
	}

	s.mu.Lock()
	delete(s.runs, run.ID)
	s.mu.Unlock()

	s.log.WithField("run_id", res.RunID).
		WithField("pipeline", res.Pipeline).
		WithField("state", res.State).
		WithField("duration", res.Duration.String()).
		Info("pipeline run settled")
}

// SubmitBatch schedules one run per payload and returns a task that
// settles once every run has, alongside the individual handles.
func (s *Service) SubmitBatch(ctx context.Context, name string, payloads []map[string]any) (*task.Task[[]map[string]any], []*Run, error) {
	runs := make([]*Run, 0, len(payloads))
	tasks := make([]*task.Task[map[string]any], 0, len(payloads))
	for _, payload := range payloads {
		run, err := s.Submit(ctx, name, payload)
		if err != nil {
			for _, r := range runs {
				r.Token.Cancel()
			}
			return nil, nil, err
		}
		runs = append(runs, run)
		tasks = append(tasks, run.Task)
	}
	return task.WhenAll(tasks...), runs, nil
}

// CancelRun requests cancellation of a live run. Unknown runs, which
// include runs that already settled and were evicted, return an
// ArgumentError.
func (s *Service) CancelRun(runID string) error {
	s.mu.Lock()
	run, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return faults.Argumentf("run %s not found", runID)
	}
	run.Token.Cancel()
	return nil
}

// ActiveRuns returns handles for runs that have not settled yet.
func (s *Service) ActiveRuns() []*Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		active = append(active, run)
	}
	return active
}
