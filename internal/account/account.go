// Package account models a single-owner account holding a running balance and
// an append-only ledger of the transactions that produced it.
//
// An Account is not safe for concurrent use. Callers sharing one across
// goroutines must serialise access themselves.
package account

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// BankAccount is the capability set exposed by an account.
type BankAccount interface {
	Deposit(amount decimal.Decimal) error
	Withdraw(amount decimal.Decimal) error
	Balance() decimal.Decimal
	Transactions() []Transaction
	MostRecentTransaction() (Transaction, error)
}

var _ BankAccount = (*Account)(nil)

// Account holds the current balance and the ledger of every transaction
// applied to it, starting with the opening balance.
type Account struct {
	balance decimal.Decimal
	ledger  []Transaction
	clock   Clock
}

// Option customises a new Account.
type Option func(*Account)

// WithClock overrides the clock used to timestamp ledger entries.
func WithClock(c Clock) Option {
	return func(a *Account) {
		if c != nil {
			a.clock = c
		}
	}
}

// New opens an account with the given balance and records it as the first
// ledger entry.
func New(opening decimal.Decimal, opts ...Option) (*Account, error) {
	if opening.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance %s cannot be negative", ErrInvalidArgument, opening)
	}

	a := &Account{clock: SystemClock()}
	for _, opt := range opts {
		opt(a)
	}

	a.balance = opening
	a.record(KindOpening, opening)
	return a, nil
}

// Deposit adds a strictly positive amount to the balance.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: deposit amount %s must be positive", ErrInvalidArgument, amount)
	}
	a.balance = a.balance.Add(amount)
	a.record(KindDeposit, amount)
	return nil
}

// Withdraw removes a strictly positive amount no larger than the balance.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: withdrawal amount %s must be positive", ErrInvalidArgument, amount)
	}
	if amount.GreaterThan(a.balance) {
		return fmt.Errorf("withdraw %s from balance %s: %w", amount, a.balance, ErrInsufficientFunds)
	}
	a.balance = a.balance.Sub(amount)
	a.record(KindWithdrawal, amount)
	return nil
}

// Balance returns the current balance.
func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

// Transactions returns a copy of the ledger, oldest first.
func (a *Account) Transactions() []Transaction {
	if len(a.ledger) == 0 {
		return []Transaction{}
	}
	return slices.Clone(a.ledger)
}

// MostRecentTransaction returns the entry with the latest timestamp. When
// several entries share it, the last appended one wins.
func (a *Account) MostRecentTransaction() (Transaction, error) {
	if len(a.ledger) == 0 {
		return Transaction{}, fmt.Errorf("%w: no transactions found", ErrIllegalState)
	}
	latest := a.ledger[0]
	for _, tx := range a.ledger[1:] {
		if !tx.Timestamp.Before(latest.Timestamp) {
			latest = tx
		}
	}
	return latest, nil
}

// LastTransaction returns the entry appended last, whatever its timestamp.
// Use it to read back the result of a Deposit or Withdraw.
func (a *Account) LastTransaction() (Transaction, error) {
	if len(a.ledger) == 0 {
		return Transaction{}, fmt.Errorf("%w: no transactions found", ErrIllegalState)
	}
	return a.ledger[len(a.ledger)-1], nil
}

// record must run after the balance has been updated.
func (a *Account) record(kind Kind, amount decimal.Decimal) {
	if a.clock == nil {
		a.clock = SystemClock()
	}
	a.ledger = append(a.ledger, Transaction{
		ID:           int64(len(a.ledger)) + 1,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: a.balance,
		Timestamp:    a.clock.Now(),
	})
}
