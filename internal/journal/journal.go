// Package journal ships recorded account transactions to write-only audit
// sinks. Nothing in the service reads a journal back.
package journal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/congo-pay/bankaccount/internal/account"
)

// Entry is a transaction tagged with the account it belongs to.
type Entry struct {
	AccountID   string
	Transaction account.Transaction
}

// Journal records ledger entries to a downstream system.
type Journal interface {
	Record(ctx context.Context, entry Entry) error
}

// LoggerJournal writes entries to the structured logger.
type LoggerJournal struct {
	logger *slog.Logger
}

// NewLoggerJournal constructs a journal backed by slog.
func NewLoggerJournal(logger *slog.Logger) *LoggerJournal {
	return &LoggerJournal{logger: logger}
}

// Record logs the entry at info level.
func (j *LoggerJournal) Record(_ context.Context, entry Entry) error {
	if j == nil || j.logger == nil {
		return nil
	}
	tx := entry.Transaction
	j.logger.Info("transaction recorded",
		slog.String("account_id", entry.AccountID),
		slog.Int64("transaction_id", tx.ID),
		slog.String("kind", string(tx.Kind)),
		slog.String("amount", tx.Amount.String()),
		slog.String("balance_after", tx.BalanceAfter.String()),
		slog.Time("timestamp", tx.Timestamp),
	)
	return nil
}

type multi []Journal

// Multi fans an entry out to every non-nil journal and joins their errors.
func Multi(journals ...Journal) Journal {
	out := make(multi, 0, len(journals))
	for _, j := range journals {
		if j != nil {
			out = append(out, j)
		}
	}
	return out
}

func (m multi) Record(ctx context.Context, entry Entry) error {
	var errs []error
	for _, j := range m {
		if err := j.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
