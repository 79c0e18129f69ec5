package account

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the operation that produced a ledger entry.
type Kind string

const (
	// KindOpening marks the entry recording the opening balance.
	KindOpening Kind = "opening"
	// KindDeposit marks a deposit entry.
	KindDeposit Kind = "deposit"
	// KindWithdrawal marks a withdrawal entry.
	KindWithdrawal Kind = "withdrawal"
)

// Transaction is a single ledger entry. Amount is always the magnitude of the
// operation; the effect on the balance is captured by BalanceAfter.
type Transaction struct {
	ID           int64           `json:"id"`
	Kind         Kind            `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after_transaction"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Equal reports whether t and other share ID, Amount and BalanceAfter.
// Timestamp and Kind do not take part in the comparison.
func (t Transaction) Equal(other Transaction) bool {
	return t.ID == other.ID &&
		t.Amount.Equal(other.Amount) &&
		t.BalanceAfter.Equal(other.BalanceAfter)
}

// String renders the transaction as JSON.
func (t Transaction) String() string {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Sprintf("transaction %d: %v", t.ID, err)
	}
	return string(b)
}

// VerifyLedger checks that txs form a well-formed ledger: sequence numbers
// start at 1 and increase by one, the first entry is the opening balance, and
// every BalanceAfter follows from its predecessor and the entry's kind.
func VerifyLedger(txs []Transaction) error {
	if len(txs) == 0 {
		return fmt.Errorf("%w: empty ledger", ErrIllegalState)
	}

	var prev decimal.Decimal
	for i, tx := range txs {
		if want := int64(i + 1); tx.ID != want {
			return fmt.Errorf("%w: entry %d has id %d", ErrIllegalState, want, tx.ID)
		}
		if tx.Amount.IsNegative() || tx.BalanceAfter.IsNegative() {
			return fmt.Errorf("%w: entry %d carries a negative value", ErrIllegalState, tx.ID)
		}

		var expected decimal.Decimal
		switch {
		case i == 0 && tx.Kind == KindOpening:
			expected = tx.Amount
		case i > 0 && tx.Kind == KindDeposit:
			expected = prev.Add(tx.Amount)
		case i > 0 && tx.Kind == KindWithdrawal:
			expected = prev.Sub(tx.Amount)
		default:
			return fmt.Errorf("%w: entry %d has unexpected kind %q", ErrIllegalState, tx.ID, tx.Kind)
		}
		if !tx.BalanceAfter.Equal(expected) {
			return fmt.Errorf("%w: entry %d balance %s, expected %s", ErrIllegalState, tx.ID, tx.BalanceAfter, expected)
		}
		prev = tx.BalanceAfter
	}
	return nil
}
