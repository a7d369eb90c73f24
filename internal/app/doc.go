// Package app composes the fincore services into a running application.
//
// # Architecture Role
//
// The app package sits above the reusable packages under pkg/ and is
// responsible for wiring, not business rules. Domain behavior belongs in
// internal/app/services/.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── ledger/         # Accounts and posted entries
//	│   ├── rates/          # Rate feeds and snapshots
//	│   ├── journal/        # Persisted run settlements
//	│   └── pipeline/       # Run result envelope
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # Store interfaces (LedgerStore, RateStore, ...)
//	│   ├── memory/         # In-memory implementation for testing
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/           # Business logic (ledger, rates, journal,
//	│                       # pipeline executor, scheduler)
//	├── system/             # Lifecycle manager and service contract
//	├── runtime/            # Config-driven assembly for the binaries
//	└── metrics/            # Prometheus collectors
//
// # Responsibilities
//
// The app package composes services with their stores, owns the
// settlement topic, and manages startup and shutdown ordering through
// the system manager. Services start in registration order and stop in
// reverse, so the scheduler always stops submitting before the pipeline
// executor drains its pool.
//
// # Adding a New Domain
//
// When adding a new domain (e.g. "fees"):
//
//  1. Create domain models in internal/app/domain/fees/
//  2. Add a store interface to internal/app/storage/interfaces.go
//  3. Implement it in internal/app/storage/memory/ and postgres/
//  4. Create the service in internal/app/services/fees/
//  5. Wire it in internal/app/application.go
package app
