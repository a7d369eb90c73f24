package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quantfabric/fincore/internal/app/domain/journal"
	"github.com/quantfabric/fincore/internal/app/domain/ledger"
	"github.com/quantfabric/fincore/internal/app/domain/rates"
	"github.com/quantfabric/fincore/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu              sync.RWMutex
	nextID          int64
	accounts        map[string]ledger.Account
	accountsByOwner map[string]string
	entries         map[string][]ledger.Entry
	feeds           map[string]rates.Feed
	feedsByPair     map[string]string
	snapshots       map[string][]rates.Snapshot
	records         []journal.Record
	recordsByID     map[string]int
	recordsByRun    map[string]int
}

var _ storage.LedgerStore = (*Store)(nil)
var _ storage.RateStore = (*Store)(nil)
var _ storage.JournalStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:          1,
		accounts:        make(map[string]ledger.Account),
		accountsByOwner: make(map[string]string),
		entries:         make(map[string][]ledger.Entry),
		feeds:           make(map[string]rates.Feed),
		feedsByPair:     make(map[string]string),
		snapshots:       make(map[string][]rates.Snapshot),
		recordsByID:     make(map[string]int),
		recordsByRun:    make(map[string]int),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func ownerKey(owner, currency string) string {
	return strings.ToLower(strings.TrimSpace(owner)) + "/" + strings.ToUpper(strings.TrimSpace(currency))
}

// LedgerStore implementation --------------------------------------------------

func (s *Store) CreateLedgerAccount(_ context.Context, acct ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == "" {
		acct.ID = s.nextIDLocked()
	} else if _, exists := s.accounts[acct.ID]; exists {
		return ledger.Account{}, fmt.Errorf("ledger account %s already exists", acct.ID)
	}

	acct.Owner = strings.TrimSpace(acct.Owner)
	acct.Currency = strings.ToUpper(strings.TrimSpace(acct.Currency))
	key := ownerKey(acct.Owner, acct.Currency)
	if existing, exists := s.accountsByOwner[key]; exists {
		return ledger.Account{}, fmt.Errorf("owner %s already has ledger account %s for %s", acct.Owner, existing, acct.Currency)
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	s.accounts[acct.ID] = acct
	s.accountsByOwner[key] = acct.ID
	return acct, nil
}

func (s *Store) UpdateLedgerAccount(_ context.Context, acct ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.accounts[acct.ID]
	if !ok {
		return ledger.Account{}, fmt.Errorf("ledger account %s not found", acct.ID)
	}

	// Owner and currency are immutable once the account exists.
	acct.Owner = original.Owner
	acct.Currency = original.Currency
	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()

	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) GetLedgerAccount(_ context.Context, id string) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, fmt.Errorf("ledger account %s not found", id)
	}
	return acct, nil
}

func (s *Store) GetLedgerAccountByOwner(_ context.Context, owner, currency string) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.accountsByOwner[ownerKey(owner, currency)]; ok {
		return s.accounts[id], nil
	}
	return ledger.Account{}, fmt.Errorf("ledger account for owner %s (%s) not found", owner, currency)
}

func (s *Store) ListLedgerAccounts(_ context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ledger.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		result = append(result, acct)
	}
	return result, nil
}

func (s *Store) AppendLedgerEntry(_ context.Context, entry ledger.Entry) (ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[entry.AccountID]; !ok {
		return ledger.Entry{}, fmt.Errorf("ledger account %s not found", entry.AccountID)
	}
	if entry.ID == "" {
		entry.ID = s.nextIDLocked()
	}
	entry.CreatedAt = time.Now().UTC()

	s.entries[entry.AccountID] = append(s.entries[entry.AccountID], entry)
	return entry, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, accountID string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]ledger.Entry(nil), s.entries[accountID]...), nil
}

// RateStore implementation ----------------------------------------------------

func (s *Store) CreateRateFeed(_ context.Context, feed rates.Feed) (rates.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if feed.ID == "" {
		feed.ID = s.nextIDLocked()
	} else if _, exists := s.feeds[feed.ID]; exists {
		return rates.Feed{}, fmt.Errorf("rate feed %s already exists", feed.ID)
	}

	pairKey := strings.ToUpper(strings.TrimSpace(feed.Pair))
	if existing, exists := s.feedsByPair[pairKey]; exists {
		return rates.Feed{}, fmt.Errorf("rate feed for pair %s already exists as %s", feed.Pair, existing)
	}

	now := time.Now().UTC()
	feed.CreatedAt = now
	feed.UpdatedAt = now

	s.feeds[feed.ID] = feed
	s.feedsByPair[pairKey] = feed.ID
	return feed, nil
}

func (s *Store) UpdateRateFeed(_ context.Context, feed rates.Feed) (rates.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.feeds[feed.ID]
	if !ok {
		return rates.Feed{}, fmt.Errorf("rate feed %s not found", feed.ID)
	}

	feed.BaseAsset = original.BaseAsset
	feed.QuoteAsset = original.QuoteAsset
	feed.Pair = original.Pair
	feed.CreatedAt = original.CreatedAt
	feed.UpdatedAt = time.Now().UTC()

	s.feeds[feed.ID] = feed
	return feed, nil
}

func (s *Store) GetRateFeed(_ context.Context, id string) (rates.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feed, ok := s.feeds[id]
	if !ok {
		return rates.Feed{}, fmt.Errorf("rate feed %s not found", id)
	}
	return feed, nil
}

func (s *Store) GetRateFeedByPair(_ context.Context, pair string) (rates.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.feedsByPair[strings.ToUpper(strings.TrimSpace(pair))]; ok {
		return s.feeds[id], nil
	}
	return rates.Feed{}, fmt.Errorf("rate feed for pair %s not found", pair)
}

func (s *Store) ListRateFeeds(_ context.Context) ([]rates.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]rates.Feed, 0, len(s.feeds))
	for _, feed := range s.feeds {
		result = append(result, feed)
	}
	return result, nil
}

func (s *Store) CreateRateSnapshot(_ context.Context, snap rates.Snapshot) (rates.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.feeds[snap.FeedID]; !ok {
		return rates.Snapshot{}, fmt.Errorf("rate feed %s not found", snap.FeedID)
	}
	if snap.ID == "" {
		snap.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	snap.CreatedAt = now
	if snap.CollectedAt.IsZero() {
		snap.CollectedAt = now
	}

	s.snapshots[snap.FeedID] = append(s.snapshots[snap.FeedID], snap)
	return snap, nil
}

func (s *Store) LatestRateSnapshot(_ context.Context, feedID string) (rates.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.snapshots[feedID]
	if len(snaps) == 0 {
		return rates.Snapshot{}, fmt.Errorf("no snapshots recorded for feed %s", feedID)
	}
	latest := snaps[0]
	for _, snap := range snaps[1:] {
		if snap.CollectedAt.After(latest.CollectedAt) {
			latest = snap
		}
	}
	return latest, nil
}

func (s *Store) ListRateSnapshots(_ context.Context, feedID string) ([]rates.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.snapshots[feedID]
	result := make([]rates.Snapshot, 0, len(snaps))
	for i := len(snaps) - 1; i >= 0; i-- {
		result = append(result, snaps[i])
	}
	return result, nil
}

// JournalStore implementation -------------------------------------------------

func (s *Store) CreateJournalRecord(_ context.Context, rec journal.Record) (journal.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	} else if _, exists := s.recordsByID[rec.ID]; exists {
		return journal.Record{}, fmt.Errorf("journal record %s already exists", rec.ID)
	}
	if rec.RunID != "" {
		if _, exists := s.recordsByRun[rec.RunID]; exists {
			return journal.Record{}, fmt.Errorf("journal record for run %s already exists", rec.RunID)
		}
	}
	rec.CreatedAt = time.Now().UTC()
	rec.Payload = append([]byte(nil), rec.Payload...)

	s.records = append(s.records, rec)
	s.recordsByID[rec.ID] = len(s.records) - 1
	if rec.RunID != "" {
		s.recordsByRun[rec.RunID] = len(s.records) - 1
	}
	return cloneRecord(rec), nil
}

func (s *Store) GetJournalRecord(_ context.Context, id string) (journal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.recordsByID[id]
	if !ok {
		return journal.Record{}, fmt.Errorf("journal record %s not found", id)
	}
	return cloneRecord(s.records[idx]), nil
}

func (s *Store) GetJournalRecordByRun(_ context.Context, runID string) (journal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.recordsByRun[runID]
	if !ok {
		return journal.Record{}, fmt.Errorf("journal record for run %s not found", runID)
	}
	return cloneRecord(s.records[idx]), nil
}

func (s *Store) ListJournalRecords(_ context.Context, pipeline string) ([]journal.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]journal.Record, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if pipeline == "" || rec.Pipeline == pipeline {
			result = append(result, cloneRecord(rec))
		}
	}
	return result, nil
}

// Helpers ---------------------------------------------------------------------

func cloneRecord(rec journal.Record) journal.Record {
	rec.Payload = append([]byte(nil), rec.Payload...)
	return rec
}
