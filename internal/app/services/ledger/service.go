package ledger

import (
	"context"
	"strings"

	"github.com/quantfabric/fincore/internal/app/domain/ledger"
	"github.com/quantfabric/fincore/internal/app/metrics"
	"github.com/quantfabric/fincore/internal/app/storage"
	"github.com/quantfabric/fincore/pkg/faults"
	"github.com/quantfabric/fincore/pkg/financial"
	"github.com/quantfabric/fincore/pkg/logger"
)

// Service manages ledger accounts and their entry history. Every posted
// amount is normalized to the service's fractional precision before it
// touches a balance, so balances stay exact at a fixed scale.
type Service struct {
	store  storage.LedgerStore
	digits int
	mode   financial.RoundMode
	log    *logger.Logger
}

// New constructs a ledger service. digits and mode control how amounts
// are normalized when entries are posted.
func New(store storage.LedgerStore, digits int, mode financial.RoundMode, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Service{store: store, digits: digits, mode: mode, log: log}
}

// EnsureAccount returns the account for owner and currency, creating it
// with a zero balance when it does not exist yet.
func (s *Service) EnsureAccount(ctx context.Context, owner, currency string) (ledger.Account, error) {
	owner = strings.TrimSpace(owner)
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if owner == "" {
		return ledger.Account{}, faults.Argumentf("owner is required")
	}
	if currency == "" {
		return ledger.Account{}, faults.Argumentf("currency is required")
	}

	if acct, err := s.store.GetLedgerAccountByOwner(ctx, owner, currency); err == nil {
		return acct, nil
	}

	acct, err := s.store.CreateLedgerAccount(ctx, ledger.Account{
		Owner:    owner,
		Currency: currency,
		Balance:  financial.Zero(),
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.log.WithField("account_id", acct.ID).
		WithField("owner", owner).
		WithField("currency", currency).
		Info("ledger account created")
	return acct, nil
}

// Deposit credits the account and appends a deposit entry carrying the
// balance after the credit.
func (s *Service) Deposit(ctx context.Context, accountID string, amount financial.Financial, reference string) (ledger.Account, ledger.Entry, error) {
	return s.post(ctx, accountID, ledger.EntryDeposit, amount, reference)
}

// Withdraw debits the account and appends a withdrawal entry. A debit
// exceeding the available balance is rejected without touching the
// account.
func (s *Service) Withdraw(ctx context.Context, accountID string, amount financial.Financial, reference string) (ledger.Account, ledger.Entry, error) {
	return s.post(ctx, accountID, ledger.EntryWithdrawal, amount, reference)
}

func (s *Service) post(ctx context.Context, accountID, kind string, amount financial.Financial, reference string) (ledger.Account, ledger.Entry, error) {
	if amount.Sign() <= 0 {
		return ledger.Account{}, ledger.Entry{}, faults.Argumentf("amount must be positive")
	}
	amt, err := amount.Round(s.digits, s.mode)
	if err != nil {
		return ledger.Account{}, ledger.Entry{}, err
	}
	if amt.IsZero() {
		return ledger.Account{}, ledger.Entry{}, faults.Argumentf("amount %s rounds to zero at %d digits", amount, s.digits)
	}

	acct, err := s.store.GetLedgerAccount(ctx, accountID)
	if err != nil {
		return ledger.Account{}, ledger.Entry{}, err
	}

	switch kind {
	case ledger.EntryDeposit:
		acct.Balance = acct.Balance.Add(amt)
	case ledger.EntryWithdrawal:
		if acct.Balance.Lt(amt) {
			metrics.RecordInsufficientFunds()
			return ledger.Account{}, ledger.Entry{}, faults.InvalidOperationf(
				"insufficient funds: balance %s, requested %s", acct.Balance, amt)
		}
		acct.Balance = acct.Balance.Sub(amt)
	default:
		return ledger.Account{}, ledger.Entry{}, faults.Argumentf("unknown entry kind %q", kind)
	}

	acct, err = s.store.UpdateLedgerAccount(ctx, acct)
	if err != nil {
		return ledger.Account{}, ledger.Entry{}, err
	}

	entry, err := s.store.AppendLedgerEntry(ctx, ledger.Entry{
		AccountID: acct.ID,
		Kind:      kind,
		Amount:    amt,
		Balance:   acct.Balance,
		Reference: strings.TrimSpace(reference),
	})
	if err != nil {
		return ledger.Account{}, ledger.Entry{}, err
	}

	metrics.RecordLedgerEntry(kind)
	s.log.WithField("account_id", acct.ID).
		WithField("kind", kind).
		WithField("amount", amt.String()).
		WithField("balance", acct.Balance.String()).
		Info("ledger entry posted")
	return acct, entry, nil
}

// Transfer moves amount between two accounts of the same currency,
// posting a withdrawal on the source and a matching deposit on the
// destination.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount financial.Financial, reference string) (ledger.Entry, ledger.Entry, error) {
	if fromID == toID {
		return ledger.Entry{}, ledger.Entry{}, faults.Argumentf("source and destination accounts must differ")
	}

	from, err := s.store.GetLedgerAccount(ctx, fromID)
	if err != nil {
		return ledger.Entry{}, ledger.Entry{}, err
	}
	to, err := s.store.GetLedgerAccount(ctx, toID)
	if err != nil {
		return ledger.Entry{}, ledger.Entry{}, err
	}
	if !strings.EqualFold(from.Currency, to.Currency) {
		return ledger.Entry{}, ledger.Entry{}, faults.InvalidOperationf(
			"currency mismatch: %s account cannot fund %s account", from.Currency, to.Currency)
	}

	_, debit, err := s.Withdraw(ctx, fromID, amount, reference)
	if err != nil {
		return ledger.Entry{}, ledger.Entry{}, err
	}
	_, credit, err := s.Deposit(ctx, toID, amount, reference)
	if err != nil {
		// A failed credit reverses the debit.
		if _, _, rerr := s.Deposit(ctx, fromID, amount, "reversal: "+reference); rerr != nil {
			return debit, ledger.Entry{}, faults.NewAggregate(err, rerr)
		}
		return ledger.Entry{}, ledger.Entry{}, err
	}
	return debit, credit, nil
}

// Balance returns the current balance of an account.
func (s *Service) Balance(ctx context.Context, accountID string) (financial.Financial, error) {
	acct, err := s.store.GetLedgerAccount(ctx, accountID)
	if err != nil {
		return financial.Financial{}, err
	}
	return acct.Balance, nil
}

// History returns the entries posted against an account, oldest first.
func (s *Service) History(ctx context.Context, accountID string) ([]ledger.Entry, error) {
	return s.store.ListLedgerEntries(ctx, accountID)
}

// Get retrieves an account by identifier.
func (s *Service) Get(ctx context.Context, accountID string) (ledger.Account, error) {
	return s.store.GetLedgerAccount(ctx, accountID)
}

// Accounts lists every ledger account.
func (s *Service) Accounts(ctx context.Context) ([]ledger.Account, error) {
	return s.store.ListLedgerAccounts(ctx)
}
