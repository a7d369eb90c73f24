package system

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantfabric/fincore/pkg/faults"
	"github.com/quantfabric/fincore/pkg/logger"
)

// Manager owns the lifecycle of registered services: Start brings them up in
// registration order, Stop takes them down in reverse. A failed Start rolls
// back the services already running before it returns.
type Manager struct {
	mu       sync.Mutex
	log      *logger.Logger
	services []Service
	names    map[string]struct{}
	started  []Service
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		log:   logger.NewDefault("system"),
		names: make(map[string]struct{}),
	}
}

// Register adds a service. Service names must be unique and non-empty.
func (m *Manager) Register(svc Service) error {
	if svc == nil {
		return faults.Argumentf("service is nil")
	}
	name := svc.Name()
	if name == "" {
		return faults.Argumentf("service name is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.names[name]; exists {
		return faults.Argumentf("service %s already registered", name)
	}
	m.names[name] = struct{}{}
	m.services = append(m.services, svc)
	return nil
}

// Start starts every registered service in registration order. When one
// fails, the services started so far are stopped in reverse order and the
// start error is returned, combined with any rollback failures.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.started) > 0 {
		return faults.InvalidOperationf("manager already started")
	}
	for _, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			err = fmt.Errorf("start %s: %w", svc.Name(), err)
			if rollback := m.stopLocked(ctx); rollback != nil {
				return faults.NewAggregate(err, rollback)
			}
			return err
		}
		m.started = append(m.started, svc)
		m.log.WithField("service", svc.Name()).Info("service started")
	}
	return nil
}

// Stop stops started services in reverse order. Every service gets its Stop
// call even when an earlier one fails; the failures come back combined in an
// AggregateError.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		svc := m.started[i]
		if err := svc.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", svc.Name(), err))
			m.log.WithError(err).WithField("service", svc.Name()).Warn("service stop failed")
			continue
		}
		m.log.WithField("service", svc.Name()).Info("service stopped")
	}
	m.started = nil
	return faults.Aggregate(errs)
}
