package app

import (
	"context"
	"fmt"

	"github.com/quantfabric/fincore/internal/app/domain/pipeline"
	"github.com/quantfabric/fincore/internal/app/services/journal"
	"github.com/quantfabric/fincore/internal/app/services/ledger"
	pipelinesvc "github.com/quantfabric/fincore/internal/app/services/pipeline"
	"github.com/quantfabric/fincore/internal/app/services/rates"
	"github.com/quantfabric/fincore/internal/app/services/scheduler"
	"github.com/quantfabric/fincore/internal/app/storage"
	"github.com/quantfabric/fincore/internal/app/storage/memory"
	"github.com/quantfabric/fincore/internal/app/system"
	"github.com/quantfabric/fincore/pkg/financial"
	"github.com/quantfabric/fincore/pkg/logger"
	"github.com/quantfabric/fincore/pkg/pubsub"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Ledger  storage.LedgerStore
	Rates   storage.RateStore
	Journal storage.JournalStore
}

// Options tunes service construction.
type Options struct {
	LedgerDigits int
	LedgerMode   financial.RoundMode
	Workers      int
	QueueDepth   int
}

// DefaultOptions returns two-digit half-away rounding over a small pool.
func DefaultOptions() Options {
	return Options{
		LedgerDigits: 2,
		LedgerMode:   financial.ModeRound,
		Workers:      4,
		QueueDepth:   64,
	}
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Ledger      *ledger.Service
	Rates       *rates.Service
	Journal     *journal.Service
	Pipelines   *pipelinesvc.Service
	Scheduler   *scheduler.Service
	Settlements *pubsub.Topic[pipeline.RunResult]
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Ledger == nil {
		stores.Ledger = mem
	}
	if stores.Rates == nil {
		stores.Rates = mem
	}
	if stores.Journal == nil {
		stores.Journal = mem
	}

	manager := system.NewManager()
	settlements := pubsub.NewTopic[pipeline.RunResult]("settlements")

	journalService := journal.New(stores.Journal, log)
	ledgerService := ledger.New(stores.Ledger, opts.LedgerDigits, opts.LedgerMode, log)
	ratesService := rates.New(stores.Rates, log)
	pipelineService := pipelinesvc.New(journalService, settlements, opts.Workers, opts.QueueDepth, log)
	schedulerService := scheduler.New(pipelineService, log)

	for _, name := range []string{"ledger", "rates", "journal"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	// The scheduler registers after the executor so reverse-order shutdown
	// stops submissions before the pool drains.
	for _, svc := range []system.Service{pipelineService, schedulerService} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:     manager,
		log:         log,
		Ledger:      ledgerService,
		Rates:       ratesService,
		Journal:     journalService,
		Pipelines:   pipelineService,
		Scheduler:   schedulerService,
		Settlements: settlements,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
