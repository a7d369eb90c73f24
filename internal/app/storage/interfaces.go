package storage

import (
	"context"

	"github.com/quantfabric/fincore/internal/app/domain/journal"
	"github.com/quantfabric/fincore/internal/app/domain/ledger"
	"github.com/quantfabric/fincore/internal/app/domain/rates"
)

// LedgerStore persists ledger accounts and their posted entries.
type LedgerStore interface {
	CreateLedgerAccount(ctx context.Context, acct ledger.Account) (ledger.Account, error)
	UpdateLedgerAccount(ctx context.Context, acct ledger.Account) (ledger.Account, error)
	GetLedgerAccount(ctx context.Context, id string) (ledger.Account, error)
	GetLedgerAccountByOwner(ctx context.Context, owner, currency string) (ledger.Account, error)
	ListLedgerAccounts(ctx context.Context) ([]ledger.Account, error)

	AppendLedgerEntry(ctx context.Context, entry ledger.Entry) (ledger.Entry, error)
	ListLedgerEntries(ctx context.Context, accountID string) ([]ledger.Entry, error)
}

// RateStore persists rate feed definitions and observed snapshots.
type RateStore interface {
	CreateRateFeed(ctx context.Context, feed rates.Feed) (rates.Feed, error)
	UpdateRateFeed(ctx context.Context, feed rates.Feed) (rates.Feed, error)
	GetRateFeed(ctx context.Context, id string) (rates.Feed, error)
	GetRateFeedByPair(ctx context.Context, pair string) (rates.Feed, error)
	ListRateFeeds(ctx context.Context) ([]rates.Feed, error)

	CreateRateSnapshot(ctx context.Context, snap rates.Snapshot) (rates.Snapshot, error)
	LatestRateSnapshot(ctx context.Context, feedID string) (rates.Snapshot, error)
	ListRateSnapshots(ctx context.Context, feedID string) ([]rates.Snapshot, error)
}

// JournalStore persists pipeline run settlement records.
type JournalStore interface {
	CreateJournalRecord(ctx context.Context, rec journal.Record) (journal.Record, error)
	GetJournalRecord(ctx context.Context, id string) (journal.Record, error)
	GetJournalRecordByRun(ctx context.Context, runID string) (journal.Record, error)
	ListJournalRecords(ctx context.Context, pipeline string) ([]journal.Record, error)
}
