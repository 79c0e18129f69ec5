package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/bankaccount/internal/account"
	"github.com/congo-pay/bankaccount/internal/journal"
	"github.com/congo-pay/bankaccount/internal/metrics"
)

// Service exposes account operations to the HTTP layer and journals every
// applied transaction.
type Service struct {
	repo    Repository
	journal journal.Journal
	metrics *metrics.Recorder
	logger  *slog.Logger
	clock   account.Clock
}

// Option customises a Service.
type Option func(*Service)

// WithJournal sets the sink applied transactions are sent to.
func WithJournal(j journal.Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithMetrics sets the Prometheus recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithClock sets the clock handed to every account opened by the service.
func WithClock(c account.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

const (
	// MaxScale is the number of fractional digits an amount may carry.
	MaxScale = 8
	// maxExponent keeps comparisons against maxAmount cheap.
	maxExponent = 18
)

// maxAmount caps a single opening balance, deposit or withdrawal.
var maxAmount = decimal.New(1, 15)

// checkAmount bounds the precision and magnitude of a caller supplied amount.
// The amount itself is left out of the error since it may be enormous.
func checkAmount(amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if amount.Exponent() < -MaxScale {
		return fmt.Errorf("%w: amount has more than %d fractional digits", account.ErrInvalidArgument, MaxScale)
	}
	if amount.Exponent() > maxExponent || amount.Abs().GreaterThan(maxAmount) {
		return fmt.Errorf("%w: amount exceeds %s", account.ErrInvalidArgument, maxAmount)
	}
	return nil
}

// NewService builds an account service instance.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, logger: logger, clock: account.SystemClock()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Opened describes a newly opened account.
type Opened struct {
	ID      string
	Balance decimal.Decimal
	Opening account.Transaction
}

// Open creates an account with the given opening balance.
func (s *Service) Open(ctx context.Context, opening decimal.Decimal) (Opened, error) {
	if err := checkAmount(opening); err != nil {
		s.metrics.Observe(metrics.OperationOpen, metrics.OutcomeRejected, decimal.Zero)
		return Opened{}, err
	}
	acct, err := account.New(opening, account.WithClock(s.clock))
	if err != nil {
		s.metrics.Observe(metrics.OperationOpen, outcome(err), opening)
		return Opened{}, err
	}

	id := uuid.NewString()
	if err := s.repo.Create(ctx, id, acct); err != nil {
		s.metrics.Observe(metrics.OperationOpen, metrics.OutcomeError, opening)
		return Opened{}, err
	}

	first, err := acct.LastTransaction()
	if err != nil {
		return Opened{}, err
	}
	s.metrics.Observe(metrics.OperationOpen, metrics.OutcomeSuccess, opening)
	s.publish(ctx, id, first)

	return Opened{ID: id, Balance: acct.Balance(), Opening: first}, nil
}

// Deposit credits the account and returns the resulting ledger entry.
func (s *Service) Deposit(ctx context.Context, id string, amount decimal.Decimal) (account.Transaction, error) {
	return s.mutate(ctx, id, metrics.OperationDeposit, amount, (*account.Account).Deposit)
}

// Withdraw debits the account and returns the resulting ledger entry.
func (s *Service) Withdraw(ctx context.Context, id string, amount decimal.Decimal) (account.Transaction, error) {
	return s.mutate(ctx, id, metrics.OperationWithdraw, amount, (*account.Account).Withdraw)
}

// Balance returns the current balance.
func (s *Service) Balance(ctx context.Context, id string) (decimal.Decimal, error) {
	h, err := s.repo.Get(ctx, id)
	if err != nil {
		return decimal.Decimal{}, err
	}
	var balance decimal.Decimal
	_ = h.With(func(a *account.Account) error {
		balance = a.Balance()
		return nil
	})
	return balance, nil
}

// Transactions returns the account's ledger, oldest first.
func (s *Service) Transactions(ctx context.Context, id string) ([]account.Transaction, error) {
	h, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var txs []account.Transaction
	_ = h.With(func(a *account.Account) error {
		txs = a.Transactions()
		return nil
	})
	return txs, nil
}

// MostRecent returns the latest ledger entry.
func (s *Service) MostRecent(ctx context.Context, id string) (account.Transaction, error) {
	h, err := s.repo.Get(ctx, id)
	if err != nil {
		return account.Transaction{}, err
	}
	var latest account.Transaction
	err = h.With(func(a *account.Account) error {
		var err error
		latest, err = a.MostRecentTransaction()
		return err
	})
	return latest, err
}

func (s *Service) mutate(ctx context.Context, id, operation string, amount decimal.Decimal, apply func(*account.Account, decimal.Decimal) error) (account.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		s.metrics.Observe(operation, metrics.OutcomeRejected, decimal.Zero)
		return account.Transaction{}, err
	}
	h, err := s.repo.Get(ctx, id)
	if err != nil {
		return account.Transaction{}, err
	}

	var tx account.Transaction
	err = h.With(func(a *account.Account) error {
		if err := apply(a, amount); err != nil {
			return err
		}
		var err error
		tx, err = a.LastTransaction()
		return err
	})
	s.metrics.Observe(operation, outcome(err), amount)
	if err != nil {
		s.logger.Debug("operation rejected",
			slog.String("account_id", id),
			slog.String("operation", operation),
			slog.String("amount", amount.String()),
			slog.Any("error", err))
		return account.Transaction{}, err
	}

	s.publish(ctx, id, tx)
	return tx, nil
}

// Now reads the clock the service stamps ledger entries with.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

func (s *Service) publish(ctx context.Context, id string, tx account.Transaction) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, journal.Entry{AccountID: id, Transaction: tx}); err != nil {
		s.logger.Warn("journal transaction",
			slog.String("account_id", id),
			slog.Int64("transaction_id", tx.ID),
			slog.Any("error", err))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, account.ErrInvalidArgument):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
