// Package runtime assembles a complete fincore application from
// configuration: storage, services, built-in pipelines, scheduled jobs
// and the optional metrics listener.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/quantfabric/fincore/internal/app"
	"github.com/quantfabric/fincore/internal/app/metrics"
	"github.com/quantfabric/fincore/internal/app/services/pipeline"
	"github.com/quantfabric/fincore/internal/app/services/scheduler"
	"github.com/quantfabric/fincore/internal/app/storage/postgres"
	"github.com/quantfabric/fincore/internal/config"
	"github.com/quantfabric/fincore/internal/platform/migrations"
	"github.com/quantfabric/fincore/pkg/faults"
	"github.com/quantfabric/fincore/pkg/financial"
	"github.com/quantfabric/fincore/pkg/lifecycle"
	"github.com/quantfabric/fincore/pkg/logger"
	"github.com/quantfabric/fincore/pkg/serializer"
	"github.com/quantfabric/fincore/pkg/task"
)

// Application owns the configured service graph and the resources it
// must release on shutdown.
type Application struct {
	cfg      *config.Config
	log      *logger.Logger
	app      *app.Application
	cleanup  *lifecycle.Scope
	settings config.Settings
	digits   int
	mode     financial.RoundMode

	metricsSrv *http.Server
}

// NewApplication assembles an application from the configuration file,
// falling back to defaults when none is present.
func NewApplication() (*Application, error) {
	return NewApplicationFromConfig(config.LoadOrDefault())
}

// NewApplicationFromConfig assembles an application from an explicit
// configuration.
func NewApplicationFromConfig(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.New(cfg.Logging)

	var settings config.Settings
	if cfg.Settings != "" {
		var err error
		if settings, err = config.OpenSettings(cfg.Settings); err != nil {
			return nil, fmt.Errorf("open settings: %w", err)
		}
	}

	scope := lifecycle.NewScope()
	fail := func(err error) (*Application, error) {
		if cerr := scope.Close(); cerr != nil {
			log.WithError(cerr).Warn("error releasing resources")
		}
		return nil, err
	}

	stores, store, err := buildStores(cfg)
	if err != nil {
		return fail(fmt.Errorf("configure storage: %w", err))
	}
	if store != nil {
		if err := scope.AddFunc(store.Close); err != nil {
			return fail(err)
		}
	}

	mode, err := financial.ParseRoundMode(cfg.Financial.RoundMode)
	if err != nil {
		return fail(err)
	}

	application, err := app.New(stores, app.Options{
		LedgerDigits: cfg.Financial.FracDigits,
		LedgerMode:   mode,
		Workers:      cfg.Pipeline.Workers,
		QueueDepth:   cfg.Pipeline.QueueDepth,
	}, log)
	if err != nil {
		return fail(err)
	}
	// Scope releases in reverse order: the topic closes before the store
	// it publishes settlements from.
	if err := scope.AddFunc(func() error {
		application.Settlements.Close()
		return nil
	}); err != nil {
		return fail(err)
	}

	rt := &Application{
		cfg:      cfg,
		log:      log,
		app:      application,
		cleanup:  scope,
		settings: settings,
		digits:   cfg.Financial.FracDigits,
		mode:     mode,
	}
	if err := rt.registerBuiltins(); err != nil {
		return fail(err)
	}
	if err := rt.scheduleJobs(); err != nil {
		return fail(err)
	}
	return rt, nil
}

// Services exposes the assembled service graph, for callers that embed
// the runtime and register their own pipelines before Run.
func (a *Application) Services() *app.Application {
	return a.app
}

// Run starts every registered service and blocks until ctx is cancelled
// or the metrics listener fails. Call Shutdown afterwards.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	if addr := a.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		a.metricsSrv = &http.Server{Addr: addr, Handler: mux}
		go func() {
			a.log.WithField("addr", addr).Info("metrics listener started")
			if err := a.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("metrics listener: %w", err)
	}
}

// Shutdown stops the services in reverse registration order, then
// releases the topic and storage handle. Resource release errors are
// logged, not returned, so a slow database close cannot mask a service
// stop failure.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics listener: %w", err))
		}
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := a.cleanup.Close(); err != nil {
		a.log.WithError(err).Warn("error releasing resources")
	}
	return faults.Aggregate(errs)
}

// buildStores resolves the storage driver. The memory driver returns
// zero stores so app.New falls back to a shared in-memory store.
func buildStores(cfg *config.Config) (app.Stores, *postgres.Store, error) {
	switch cfg.Storage.Driver {
	case "", "memory":
		return app.Stores{}, nil, nil
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		store, err := postgres.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			return app.Stores{}, nil, err
		}
		if err := migrations.Apply(ctx, store.DB().DB); err != nil {
			store.Close()
			return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
		}
		return app.Stores{Ledger: store, Rates: store, Journal: store}, store, nil
	default:
		return app.Stores{}, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// registerBuiltins installs the stock pipelines so configured schedules
// have something to drive without custom wiring.
func (a *Application) registerBuiltins() error {
	builtins := map[string]pipeline.Handler{
		"rate-ingest": a.rateIngest,
		"fx-convert":  a.fxConvert,
		"ledger-post": a.ledgerPost,
	}
	for name, handler := range builtins {
		if err := a.app.Pipelines.Register(name, handler); err != nil {
			return fmt.Errorf("register pipeline %s: %w", name, err)
		}
	}
	return nil
}

func (a *Application) scheduleJobs() error {
	for _, job := range a.cfg.Scheduler.Jobs {
		payload, err := parseJobPayload(job.Payload)
		if err != nil {
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
		if err := a.app.Scheduler.AddJob(scheduler.Job{
			Name:     job.Name,
			Spec:     job.Spec,
			Pipeline: job.Pipeline,
			Payload:  payload,
		}); err != nil {
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
	}
	return nil
}

// rateIngest records a rate snapshot, registering the feed on first
// sight. Payload: base, quote, rate and an optional source, which falls
// back to pipelines.rate-ingest.source in the settings document.
func (a *Application) rateIngest(ctx context.Context, _ *task.CancelToken, payload map[string]any) (map[string]any, error) {
	base, err := payloadString(payload, "base")
	if err != nil {
		return nil, err
	}
	quote, err := payloadString(payload, "quote")
	if err != nil {
		return nil, err
	}
	rate, err := payloadAmount(payload, "rate")
	if err != nil {
		return nil, err
	}
	source, _ := payload["source"].(string)
	if source == "" && a.settings != nil {
		source, _ = a.settings.GetString("pipelines.rate-ingest.source")
	}

	pair := strings.ToUpper(strings.TrimSpace(base)) + "/" + strings.ToUpper(strings.TrimSpace(quote))
	if _, err := a.app.Rates.Latest(ctx, pair); err != nil {
		if _, err := a.app.Rates.RegisterFeed(ctx, base, quote, source); err != nil && !faults.IsArgument(err) {
			return nil, err
		}
	}

	snap, err := a.app.Rates.Record(ctx, pair, rate, source, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return map[string]any{"pair": pair, "rate": snap.Rate.String()}, nil
}

// fxConvert converts an amount through a recorded rate, rounding with
// the configured presentation precision. Payload: amount and pair; an
// absent pair falls back to pipelines.fx-convert.pair in the settings
// document.
func (a *Application) fxConvert(ctx context.Context, _ *task.CancelToken, payload map[string]any) (map[string]any, error) {
	amount, err := payloadAmount(payload, "amount")
	if err != nil {
		return nil, err
	}
	pair, err := a.payloadStringDefault(payload, "pair", "pipelines.fx-convert.pair")
	if err != nil {
		return nil, err
	}

	converted, err := a.app.Rates.Convert(ctx, amount, pair, a.digits, a.mode)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"pair":      strings.ToUpper(strings.TrimSpace(pair)),
		"amount":    amount.String(),
		"converted": converted.String(),
	}, nil
}

// ledgerPost posts a deposit or withdrawal, creating the account on
// first sight. Payload: owner, currency, kind, amount and an optional
// reference; an absent currency falls back to
// pipelines.ledger-post.currency in the settings document.
func (a *Application) ledgerPost(ctx context.Context, _ *task.CancelToken, payload map[string]any) (map[string]any, error) {
	owner, err := payloadString(payload, "owner")
	if err != nil {
		return nil, err
	}
	currency, err := a.payloadStringDefault(payload, "currency", "pipelines.ledger-post.currency")
	if err != nil {
		return nil, err
	}
	kind, err := payloadString(payload, "kind")
	if err != nil {
		return nil, err
	}
	amount, err := payloadAmount(payload, "amount")
	if err != nil {
		return nil, err
	}
	reference, _ := payload["reference"].(string)

	account, err := a.app.Ledger.EnsureAccount(ctx, owner, currency)
	if err != nil {
		return nil, err
	}

	post := a.app.Ledger.Deposit
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "deposit":
	case "withdrawal":
		post = a.app.Ledger.Withdraw
	default:
		return nil, faults.Argumentf("kind must be deposit or withdrawal, got %q", kind)
	}

	account, entry, err := post(ctx, account.ID, amount, reference)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"account_id": account.ID,
		"entry_id":   entry.ID,
		"balance":    account.Balance.String(),
	}, nil
}

// parseJobPayload decodes a configured payload document. Numbers decode
// as json.Number, so decimal fields reach the engine verbatim.
func parseJobPayload(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	return serializer.JSON[map[string]any]().Deserialize([]byte(raw))
}

func payloadString(payload map[string]any, key string) (string, error) {
	raw, ok := payload[key]
	if !ok {
		return "", faults.Argumentf("payload field %s is required", key)
	}
	value, ok := raw.(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", faults.Argumentf("payload field %s must be a non-empty string", key)
	}
	return value, nil
}

// payloadStringDefault reads a string payload field, falling back to the
// settings document when the field is absent. A field that is present but
// malformed still fails, so a typo is never papered over by a default.
func (a *Application) payloadStringDefault(payload map[string]any, key, settingPath string) (string, error) {
	if _, ok := payload[key]; !ok && a.settings != nil {
		if value, ok := a.settings.GetString(settingPath); ok && strings.TrimSpace(value) != "" {
			return value, nil
		}
	}
	return payloadString(payload, key)
}

// payloadAmount reads a decimal payload field. Strings and json.Number
// both parse; float64 is rejected to keep binary floating point out of
// the books.
func payloadAmount(payload map[string]any, key string) (financial.Financial, error) {
	raw, ok := payload[key]
	if !ok {
		return financial.Zero(), faults.Argumentf("payload field %s is required", key)
	}
	switch value := raw.(type) {
	case string:
		return financial.Parse(value)
	case json.Number:
		return financial.Parse(value.String())
	default:
		return financial.Zero(), faults.Argumentf("payload field %s must be a decimal string, got %T", key, raw)
	}
}
