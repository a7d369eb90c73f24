package journal

import (
	"context"
	"strings"

	"github.com/quantfabric/fincore/internal/app/domain/journal"
	"github.com/quantfabric/fincore/internal/app/domain/pipeline"
	"github.com/quantfabric/fincore/internal/app/metrics"
	"github.com/quantfabric/fincore/internal/app/storage"
	"github.com/quantfabric/fincore/pkg/faults"
	"github.com/quantfabric/fincore/pkg/logger"
	"github.com/quantfabric/fincore/pkg/serializer"
)

// Service persists settled pipeline runs so their outcomes survive process
// restarts and can be inspected after the fact.
type Service struct {
	store storage.JournalStore
	codec serializer.Serializer[pipeline.RunResult]
	log   *logger.Logger
}

// New constructs a journal service.
func New(store storage.JournalStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("journal")
	}
	return &Service{
		store: store,
		codec: serializer.JSON[pipeline.RunResult](),
		log:   log,
	}
}

// Record journals one settled run. The full result is serialized into the
// record payload so Result can reconstruct it later.
func (s *Service) Record(ctx context.Context, res pipeline.RunResult) (journal.Record, error) {
	if strings.TrimSpace(res.RunID) == "" {
		return journal.Record{}, faults.Argumentf("run_id is required")
	}
	if strings.TrimSpace(res.Pipeline) == "" {
		return journal.Record{}, faults.Argumentf("pipeline is required")
	}
	if strings.TrimSpace(res.State) == "" {
		return journal.Record{}, faults.Argumentf("state is required")
	}

	payload, err := s.codec.Serialize(res)
	if err != nil {
		return journal.Record{}, err
	}

	rec := journal.Record{
		RunID:     res.RunID,
		Pipeline:  res.Pipeline,
		State:     res.State,
		Payload:   payload,
		Error:     res.Error,
		StartedAt: res.StartedAt,
		SettledAt: res.SettledAt,
	}
	created, err := s.store.CreateJournalRecord(ctx, rec)
	if err != nil {
		return journal.Record{}, err
	}
	metrics.RecordJournalRecord(created.State)
	s.log.WithField("run_id", created.RunID).
		WithField("pipeline", created.Pipeline).
		WithField("state", created.State).
		Info("pipeline run journaled")
	return created, nil
}

// Result reconstructs the run result journaled for the given run.
func (s *Service) Result(ctx context.Context, runID string) (pipeline.RunResult, error) {
	rec, err := s.store.GetJournalRecordByRun(ctx, runID)
	if err != nil {
		return pipeline.RunResult{}, err
	}
	return s.codec.Deserialize(rec.Payload)
}

// Get retrieves a journal record by identifier.
func (s *Service) Get(ctx context.Context, id string) (journal.Record, error) {
	return s.store.GetJournalRecord(ctx, id)
}

// GetByRun retrieves the journal record for a run.
func (s *Service) GetByRun(ctx context.Context, runID string) (journal.Record, error) {
	return s.store.GetJournalRecordByRun(ctx, runID)
}

// List returns journal records, optionally filtered by pipeline name.
// Records come back newest first.
func (s *Service) List(ctx context.Context, pipelineName string) ([]journal.Record, error) {
	return s.store.ListJournalRecords(ctx, pipelineName)
}

// ListByState returns journal records whose settlement state matches,
// newest first.
func (s *Service) ListByState(ctx context.Context, state string) ([]journal.Record, error) {
	records, err := s.store.ListJournalRecords(ctx, "")
	if err != nil {
		return nil, err
	}
	matched := make([]journal.Record, 0, len(records))
	for _, rec := range records {
		if strings.EqualFold(rec.State, state) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}
