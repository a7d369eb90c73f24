package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantfabric/fincore/internal/app/domain/rates"
	"github.com/quantfabric/fincore/internal/app/storage"
	"github.com/quantfabric/fincore/pkg/faults"
	"github.com/quantfabric/fincore/pkg/financial"
	"github.com/quantfabric/fincore/pkg/logger"
)

// Service manages exchange rate feeds and their observed snapshots, and
// converts amounts between assets with exact decimal arithmetic.
type Service struct {
	store storage.RateStore
	log   *logger.Logger
}

// New constructs a rates service.
func New(store storage.RateStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("rates")
	}
	return &Service{store: store, log: log}
}

// RegisterFeed creates a feed for the base/quote pair. Pairs are unique
// and stored uppercase.
func (s *Service) RegisterFeed(ctx context.Context, baseAsset, quoteAsset, source string) (rates.Feed, error) {
	baseAsset = strings.ToUpper(strings.TrimSpace(baseAsset))
	quoteAsset = strings.ToUpper(strings.TrimSpace(quoteAsset))
	source = strings.TrimSpace(source)

	if baseAsset == "" || quoteAsset == "" {
		return rates.Feed{}, faults.Argumentf("base_asset and quote_asset are required")
	}
	if baseAsset == quoteAsset {
		return rates.Feed{}, faults.Argumentf("base and quote assets must differ")
	}
	if source == "" {
		source = "manual"
	}

	pair := baseAsset + "/" + quoteAsset
	if _, err := s.store.GetRateFeedByPair(ctx, pair); err == nil {
		return rates.Feed{}, faults.Argumentf("rate feed for pair %s already exists", pair)
	}

	feed, err := s.store.CreateRateFeed(ctx, rates.Feed{
		BaseAsset:  baseAsset,
		QuoteAsset: quoteAsset,
		Pair:       pair,
		Source:     source,
		Active:     true,
	})
	if err != nil {
		return rates.Feed{}, err
	}
	s.log.WithField("feed_id", feed.ID).
		WithField("pair", feed.Pair).
		Info("rate feed registered")
	return feed, nil
}

// Record stores one rate observation against the feed for pair.
func (s *Service) Record(ctx context.Context, pair string, rate financial.Financial, source string, collectedAt time.Time) (rates.Snapshot, error) {
	if rate.Sign() <= 0 {
		return rates.Snapshot{}, faults.Argumentf("rate must be positive")
	}

	feed, err := s.store.GetRateFeedByPair(ctx, strings.ToUpper(strings.TrimSpace(pair)))
	if err != nil {
		return rates.Snapshot{}, err
	}
	if !feed.Active {
		return rates.Snapshot{}, faults.InvalidOperationf("rate feed %s is disabled", feed.Pair)
	}

	source = strings.TrimSpace(source)
	if source == "" {
		source = "manual"
	}

	snap := rates.Snapshot{
		FeedID:      feed.ID,
		Rate:        rate,
		Source:      source,
		CollectedAt: collectedAt.UTC(),
	}
	if snap.CollectedAt.IsZero() {
		snap.CollectedAt = time.Now().UTC()
	}
	return s.store.CreateRateSnapshot(ctx, snap)
}

// Latest returns the most recent snapshot recorded for pair.
func (s *Service) Latest(ctx context.Context, pair string) (rates.Snapshot, error) {
	feed, err := s.store.GetRateFeedByPair(ctx, strings.ToUpper(strings.TrimSpace(pair)))
	if err != nil {
		return rates.Snapshot{}, err
	}
	return s.store.LatestRateSnapshot(ctx, feed.ID)
}

// Convert applies the latest rate for pair to amount, rounding the
// product to fracDigits with the given mode. When only the inverted
// pair has a feed, the amount is divided by its rate instead.
func (s *Service) Convert(ctx context.Context, amount financial.Financial, pair string, fracDigits int, mode financial.RoundMode) (financial.Financial, error) {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	base, quote, ok := strings.Cut(pair, "/")
	if !ok || base == "" || quote == "" {
		return financial.Financial{}, faults.Argumentf("pair must be BASE/QUOTE, got %q", pair)
	}

	if feed, err := s.store.GetRateFeedByPair(ctx, pair); err == nil {
		snap, err := s.store.LatestRateSnapshot(ctx, feed.ID)
		if err != nil {
			return financial.Financial{}, err
		}
		return amount.Mul(snap.Rate, fracDigits, mode)
	}

	if feed, err := s.store.GetRateFeedByPair(ctx, quote+"/"+base); err == nil {
		snap, err := s.store.LatestRateSnapshot(ctx, feed.ID)
		if err != nil {
			return financial.Financial{}, err
		}
		return amount.Div(snap.Rate, fracDigits, mode)
	}

	return financial.Financial{}, fmt.Errorf("no rate feed covers pair %s", pair)
}

// SetActive toggles whether a feed accepts new snapshots.
func (s *Service) SetActive(ctx context.Context, feedID string, active bool) (rates.Feed, error) {
	feed, err := s.store.GetRateFeed(ctx, feedID)
	if err != nil {
		return rates.Feed{}, err
	}
	if feed.Active == active {
		return feed, nil
	}

	feed.Active = active
	feed, err = s.store.UpdateRateFeed(ctx, feed)
	if err != nil {
		return rates.Feed{}, err
	}
	s.log.WithField("feed_id", feed.ID).
		WithField("pair", feed.Pair).
		WithField("active", active).
		Info("rate feed state changed")
	return feed, nil
}

// GetFeed retrieves a single feed by identifier.
func (s *Service) GetFeed(ctx context.Context, feedID string) (rates.Feed, error) {
	return s.store.GetRateFeed(ctx, feedID)
}

// ListFeeds returns every registered feed.
func (s *Service) ListFeeds(ctx context.Context) ([]rates.Feed, error) {
	return s.store.ListRateFeeds(ctx)
}

// ListSnapshots returns recorded rates for a feed, newest first.
func (s *Service) ListSnapshots(ctx context.Context, feedID string) ([]rates.Snapshot, error) {
	return s.store.ListRateSnapshots(ctx, feedID)
}
