package ledger

import (
	"time"

	"github.com/quantfabric/fincore/pkg/financial"
)

// Entry kinds recorded against a ledger account.
const (
	EntryDeposit    = "deposit"
	EntryWithdrawal = "withdrawal"
)

// Account represents a balance-carrying ledger account for a single owner and
// currency.
type Account struct {
	ID        string
	Owner     string
	Currency  string
	Balance   financial.Financial
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry captures a single posted movement on an account. Balance holds the
// account balance after the entry was applied.
type Entry struct {
	ID        string
	AccountID string
	Kind      string
	Amount    financial.Financial
	Balance   financial.Financial
	Reference string
	CreatedAt time.Time
}
