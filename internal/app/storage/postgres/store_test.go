package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/quantfabric/fincore/internal/app/domain/journal"
	"github.com/quantfabric/fincore/internal/app/domain/ledger"
	"github.com/quantfabric/fincore/internal/app/domain/rates"
	"github.com/quantfabric/fincore/internal/platform/migrations"
	"github.com/quantfabric/fincore/pkg/financial"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.Apply(ctx, db.DB); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := New(db)

	owner := fmt.Sprintf("owner-%s", uuid.NewString())
	acct, err := store.CreateLedgerAccount(ctx, ledger.Account{Owner: owner, Currency: "USD", Balance: financial.Zero()})
	if err != nil {
		t.Fatalf("create ledger account: %v", err)
	}

	amount := financial.MustParse("25.00")
	entry, err := store.AppendLedgerEntry(ctx, ledger.Entry{
		AccountID: acct.ID,
		Kind:      ledger.EntryDeposit,
		Amount:    amount,
		Balance:   amount,
		Reference: "seed deposit",
	})
	if err != nil {
		t.Fatalf("append ledger entry: %v", err)
	}

	acct.Balance = entry.Balance
	if _, err := store.UpdateLedgerAccount(ctx, acct); err != nil {
		t.Fatalf("update ledger account: %v", err)
	}

	got, err := store.GetLedgerAccountByOwner(ctx, owner, "usd")
	if err != nil {
		t.Fatalf("get ledger account by owner: %v", err)
	}
	if !got.Balance.Equals(amount) {
		t.Fatalf("balance did not round-trip: %s", got.Balance)
	}

	entries, err := store.ListLedgerEntries(ctx, acct.ID)
	if err != nil {
		t.Fatalf("list ledger entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Amount.String() != "25.00" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	pair := fmt.Sprintf("T%s/USD", uuid.NewString()[:8])
	feed, err := store.CreateRateFeed(ctx, rates.Feed{BaseAsset: "EUR", QuoteAsset: "USD", Pair: pair, Source: "manual", Active: true})
	if err != nil {
		t.Fatalf("create rate feed: %v", err)
	}
	snap, err := store.CreateRateSnapshot(ctx, rates.Snapshot{FeedID: feed.ID, Rate: financial.MustParse("1.0842"), Source: "manual"})
	if err != nil {
		t.Fatalf("create rate snapshot: %v", err)
	}
	latest, err := store.LatestRateSnapshot(ctx, feed.ID)
	if err != nil {
		t.Fatalf("latest rate snapshot: %v", err)
	}
	if !latest.Rate.Equals(snap.Rate) {
		t.Fatalf("latest snapshot rate mismatch: %s", latest.Rate)
	}

	runID := uuid.NewString()
	rec, err := store.CreateJournalRecord(ctx, journal.Record{
		RunID:     runID,
		Pipeline:  "fx-settle",
		State:     "succeeded",
		Payload:   []byte(`{"run_id":"` + runID + `"}`),
		StartedAt: time.Now().UTC(),
		SettledAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create journal record: %v", err)
	}
	byRun, err := store.GetJournalRecordByRun(ctx, runID)
	if err != nil {
		t.Fatalf("get journal record by run: %v", err)
	}
	if byRun.ID != rec.ID {
		t.Fatalf("run lookup returned wrong record: %s vs %s", byRun.ID, rec.ID)
	}
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestGetLedgerAccountScansBalance(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "owner", "currency", "balance", "created_at", "updated_at"}).
		AddRow("acct-1", "ops", "USD", "1204.50", now, now)
	mock.ExpectQuery("SELECT id, owner, currency, balance").WillReturnRows(rows)

	acct, err := store.GetLedgerAccount(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("get ledger account: %v", err)
	}
	if acct.Balance.String() != "1204.50" {
		t.Fatalf("balance did not preserve scale: %s", acct.Balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendLedgerEntryWritesCanonicalText(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO fincore_ledger_entries").
		WithArgs(sqlmock.AnyArg(), "acct-1", ledger.EntryDeposit, "10.00", "35.00", "invoice 7", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := store.AppendLedgerEntry(context.Background(), ledger.Entry{
		AccountID: "acct-1",
		Kind:      ledger.EntryDeposit,
		Amount:    financial.MustParse("10.00"),
		Balance:   financial.MustParse("35.00"),
		Reference: "invoice 7",
	})
	if err != nil {
		t.Fatalf("append ledger entry: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestRateSnapshotNoRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, feed_id, rate").
		WillReturnRows(sqlmock.NewRows([]string{"id", "feed_id", "rate", "source", "collected_at", "created_at"}))

	_, err := store.LatestRateSnapshot(context.Background(), "feed-1")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}
