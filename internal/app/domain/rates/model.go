package rates

import (
	"time"

	"github.com/quantfabric/fincore/pkg/financial"
)

// Feed represents a registered exchange rate pair.
type Feed struct {
	ID         string
	BaseAsset  string
	QuoteAsset string
	Pair       string
	Source     string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Snapshot captures an observed exchange rate for a feed.
type Snapshot struct {
	ID          string
	FeedID      string
	Rate        financial.Financial
	Source      string
	CollectedAt time.Time
	CreatedAt   time.Time
}
