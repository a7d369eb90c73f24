package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quantfabric/fincore/internal/app/domain/journal"
	"github.com/quantfabric/fincore/internal/app/domain/ledger"
	"github.com/quantfabric/fincore/internal/app/domain/rates"
	"github.com/quantfabric/fincore/internal/app/storage"
	"github.com/quantfabric/fincore/pkg/financial"
)

// Store implements the storage interfaces backed by PostgreSQL. Monetary
// columns are stored as canonical decimal text, so values round-trip without
// losing scale.
type Store struct {
	db *sqlx.DB
}

var _ storage.LedgerStore = (*Store)(nil)
var _ storage.RateStore = (*Store)(nil)
var _ storage.JournalStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// DB exposes the underlying handle for migrations and shutdown.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type ledgerAccountRow struct {
	ID        string              `db:"id"`
	Owner     string              `db:"owner"`
	Currency  string              `db:"currency"`
	Balance   financial.Financial `db:"balance"`
	CreatedAt time.Time           `db:"created_at"`
	UpdatedAt time.Time           `db:"updated_at"`
}

func (r ledgerAccountRow) account() ledger.Account {
	return ledger.Account{
		ID:        r.ID,
		Owner:     r.Owner,
		Currency:  r.Currency,
		Balance:   r.Balance,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type ledgerEntryRow struct {
	ID        string              `db:"id"`
	AccountID string              `db:"account_id"`
	Kind      string              `db:"kind"`
	Amount    financial.Financial `db:"amount"`
	Balance   financial.Financial `db:"balance"`
	Reference string              `db:"reference"`
	CreatedAt time.Time           `db:"created_at"`
}

func (r ledgerEntryRow) entry() ledger.Entry {
	return ledger.Entry{
		ID:        r.ID,
		AccountID: r.AccountID,
		Kind:      r.Kind,
		Amount:    r.Amount,
		Balance:   r.Balance,
		Reference: r.Reference,
		CreatedAt: r.CreatedAt,
	}
}

type rateFeedRow struct {
	ID         string    `db:"id"`
	BaseAsset  string    `db:"base_asset"`
	QuoteAsset string    `db:"quote_asset"`
	Pair       string    `db:"pair"`
	Source     string    `db:"source"`
	Active     bool      `db:"active"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r rateFeedRow) feed() rates.Feed {
	return rates.Feed{
		ID:         r.ID,
		BaseAsset:  r.BaseAsset,
		QuoteAsset: r.QuoteAsset,
		Pair:       r.Pair,
		Source:     r.Source,
		Active:     r.Active,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type rateSnapshotRow struct {
	ID          string              `db:"id"`
	FeedID      string              `db:"feed_id"`
	Rate        financial.Financial `db:"rate"`
	Source      string              `db:"source"`
	CollectedAt time.Time           `db:"collected_at"`
	CreatedAt   time.Time           `db:"created_at"`
}

func (r rateSnapshotRow) snapshot() rates.Snapshot {
	return rates.Snapshot{
		ID:          r.ID,
		FeedID:      r.FeedID,
		Rate:        r.Rate,
		Source:      r.Source,
		CollectedAt: r.CollectedAt,
		CreatedAt:   r.CreatedAt,
	}
}

type journalRecordRow struct {
	ID        string    `db:"id"`
	RunID     string    `db:"run_id"`
	Pipeline  string    `db:"pipeline"`
	State     string    `db:"state"`
	Payload   []byte    `db:"payload"`
	Error     string    `db:"error"`
	StartedAt time.Time `db:"started_at"`
	SettledAt time.Time `db:"settled_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (r journalRecordRow) record() journal.Record {
	return journal.Record{
		ID:        r.ID,
		RunID:     r.RunID,
		Pipeline:  r.Pipeline,
		State:     r.State,
		Payload:   r.Payload,
		Error:     r.Error,
		StartedAt: r.StartedAt,
		SettledAt: r.SettledAt,
		CreatedAt: r.CreatedAt,
	}
}

// --- LedgerStore ------------------------------------------------------------

func (s *Store) CreateLedgerAccount(ctx context.Context, acct ledger.Account) (ledger.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fincore_ledger_accounts (id, owner, currency, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, acct.ID, acct.Owner, acct.Currency, acct.Balance, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return ledger.Account{}, err
	}
	return acct, nil
}

func (s *Store) UpdateLedgerAccount(ctx context.Context, acct ledger.Account) (ledger.Account, error) {
	existing, err := s.GetLedgerAccount(ctx, acct.ID)
	if err != nil {
		return ledger.Account{}, err
	}

	acct.Owner = existing.Owner
	acct.Currency = existing.Currency
	acct.CreatedAt = existing.CreatedAt
	acct.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE fincore_ledger_accounts
		SET balance = $2, updated_at = $3
		WHERE id = $1
	`, acct.ID, acct.Balance, acct.UpdatedAt)
	if err != nil {
		return ledger.Account{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ledger.Account{}, sql.ErrNoRows
	}
	return acct, nil
}

func (s *Store) GetLedgerAccount(ctx context.Context, id string) (ledger.Account, error) {
	var row ledgerAccountRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner, currency, balance, created_at, updated_at
		FROM fincore_ledger_accounts
		WHERE id = $1
	`, id)
	if err != nil {
		return ledger.Account{}, err
	}
	return row.account(), nil
}

func (s *Store) GetLedgerAccountByOwner(ctx context.Context, owner, currency string) (ledger.Account, error) {
	var row ledgerAccountRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner, currency, balance, created_at, updated_at
		FROM fincore_ledger_accounts
		WHERE lower(owner) = lower($1) AND upper(currency) = upper($2)
	`, owner, currency)
	if err != nil {
		return ledger.Account{}, err
	}
	return row.account(), nil
}

func (s *Store) ListLedgerAccounts(ctx context.Context) ([]ledger.Account, error) {
	var rows []ledgerAccountRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, owner, currency, balance, created_at, updated_at
		FROM fincore_ledger_accounts
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}

	result := make([]ledger.Account, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.account())
	}
	return result, nil
}

func (s *Store) AppendLedgerEntry(ctx context.Context, entry ledger.Entry) (ledger.Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fincore_ledger_entries (id, account_id, kind, amount, balance, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.AccountID, entry.Kind, entry.Amount, entry.Balance, entry.Reference, entry.CreatedAt)
	if err != nil {
		return ledger.Entry{}, err
	}
	return entry, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, accountID string) ([]ledger.Entry, error) {
	var rows []ledgerEntryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, account_id, kind, amount, balance, reference, created_at
		FROM fincore_ledger_entries
		WHERE account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}

	result := make([]ledger.Entry, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.entry())
	}
	return result, nil
}

// --- RateStore --------------------------------------------------------------

func (s *Store) CreateRateFeed(ctx context.Context, feed rates.Feed) (rates.Feed, error) {
	if feed.ID == "" {
		feed.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	feed.CreatedAt = now
	feed.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fincore_rate_feeds (id, base_asset, quote_asset, pair, source, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, feed.ID, feed.BaseAsset, feed.QuoteAsset, feed.Pair, feed.Source, feed.Active, feed.CreatedAt, feed.UpdatedAt)
	if err != nil {
		return rates.Feed{}, err
	}
	return feed, nil
}

func (s *Store) UpdateRateFeed(ctx context.Context, feed rates.Feed) (rates.Feed, error) {
	existing, err := s.GetRateFeed(ctx, feed.ID)
	if err != nil {
		return rates.Feed{}, err
	}

	feed.BaseAsset = existing.BaseAsset
	feed.QuoteAsset = existing.QuoteAsset
	feed.Pair = existing.Pair
	feed.CreatedAt = existing.CreatedAt
	feed.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE fincore_rate_feeds
		SET source = $2, active = $3, updated_at = $4
		WHERE id = $1
	`, feed.ID, feed.Source, feed.Active, feed.UpdatedAt)
	if err != nil {
		return rates.Feed{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return rates.Feed{}, sql.ErrNoRows
	}
	return feed, nil
}

func (s *Store) GetRateFeed(ctx context.Context, id string) (rates.Feed, error) {
	var row rateFeedRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, base_asset, quote_asset, pair, source, active, created_at, updated_at
		FROM fincore_rate_feeds
		WHERE id = $1
	`, id)
	if err != nil {
		return rates.Feed{}, err
	}
	return row.feed(), nil
}

func (s *Store) GetRateFeedByPair(ctx context.Context, pair string) (rates.Feed, error) {
	var row rateFeedRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, base_asset, quote_asset, pair, source, active, created_at, updated_at
		FROM fincore_rate_feeds
		WHERE upper(pair) = upper($1)
	`, pair)
	if err != nil {
		return rates.Feed{}, err
	}
	return row.feed(), nil
}

func (s *Store) ListRateFeeds(ctx context.Context) ([]rates.Feed, error) {
	var rows []rateFeedRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, base_asset, quote_asset, pair, source, active, created_at, updated_at
		FROM fincore_rate_feeds
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}

	result := make([]rates.Feed, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.feed())
	}
	return result, nil
}

func (s *Store) CreateRateSnapshot(ctx context.Context, snap rates.Snapshot) (rates.Snapshot, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	snap.CreatedAt = now
	if snap.CollectedAt.IsZero() {
		snap.CollectedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fincore_rate_snapshots (id, feed_id, rate, source, collected_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, snap.ID, snap.FeedID, snap.Rate, snap.Source, snap.CollectedAt, snap.CreatedAt)
	if err != nil {
		return rates.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) LatestRateSnapshot(ctx context.Context, feedID string) (rates.Snapshot, error) {
	var row rateSnapshotRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, feed_id, rate, source, collected_at, created_at
		FROM fincore_rate_snapshots
		WHERE feed_id = $1
		ORDER BY collected_at DESC
		LIMIT 1
	`, feedID)
	if err != nil {
		return rates.Snapshot{}, err
	}
	return row.snapshot(), nil
}

func (s *Store) ListRateSnapshots(ctx context.Context, feedID string) ([]rates.Snapshot, error) {
	var rows []rateSnapshotRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, feed_id, rate, source, collected_at, created_at
		FROM fincore_rate_snapshots
		WHERE feed_id = $1
		ORDER BY collected_at DESC
	`, feedID)
	if err != nil {
		return nil, err
	}

	result := make([]rates.Snapshot, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.snapshot())
	}
	return result, nil
}

// --- JournalStore -----------------------------------------------------------

func (s *Store) CreateJournalRecord(ctx context.Context, rec journal.Record) (journal.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fincore_journal_records (id, run_id, pipeline, state, payload, error, started_at, settled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.RunID, rec.Pipeline, rec.State, rec.Payload, rec.Error, rec.StartedAt, rec.SettledAt, rec.CreatedAt)
	if err != nil {
		return journal.Record{}, err
	}
	return rec, nil
}

func (s *Store) GetJournalRecord(ctx context.Context, id string) (journal.Record, error) {
	var row journalRecordRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, run_id, pipeline, state, payload, error, started_at, settled_at, created_at
		FROM fincore_journal_records
		WHERE id = $1
	`, id)
	if err != nil {
		return journal.Record{}, err
	}
	return row.record(), nil
}

func (s *Store) GetJournalRecordByRun(ctx context.Context, runID string) (journal.Record, error) {
	var row journalRecordRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, run_id, pipeline, state, payload, error, started_at, settled_at, created_at
		FROM fincore_journal_records
		WHERE run_id = $1
	`, runID)
	if err != nil {
		return journal.Record{}, err
	}
	return row.record(), nil
}

func (s *Store) ListJournalRecords(ctx context.Context, pipeline string) ([]journal.Record, error) {
	var rows []journalRecordRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, run_id, pipeline, state, payload, error, started_at, settled_at, created_at
		FROM fincore_journal_records
		WHERE $1 = '' OR pipeline = $1
		ORDER BY created_at DESC
	`, pipeline)
	if err != nil {
		return nil, err
	}

	result := make([]journal.Record, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.record())
	}
	return result, nil
}
