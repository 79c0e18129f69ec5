package journal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the table PostgresJournal writes to.
const Schema = `CREATE TABLE IF NOT EXISTS account_transactions (
    account_id    UUID        NOT NULL,
    sequence      BIGINT      NOT NULL,
    kind          TEXT        NOT NULL,
    amount        NUMERIC     NOT NULL,
    balance_after NUMERIC     NOT NULL,
    recorded_at   TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (account_id, sequence)
)`

// Execer is the subset of pgxpool.Pool the journal needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresJournal appends entries to the account_transactions table.
type PostgresJournal struct {
	db Execer
}

// NewPostgresJournal constructs a Postgres-backed journal.
func NewPostgresJournal(db Execer) *PostgresJournal {
	return &PostgresJournal{db: db}
}

// Migrate ensures the journal table exists.
func (j *PostgresJournal) Migrate(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

// Record inserts the entry. Replaying an already journaled entry is a no-op.
func (j *PostgresJournal) Record(ctx context.Context, entry Entry) error {
	accountID, err := uuid.Parse(entry.AccountID)
	if err != nil {
		return fmt.Errorf("journal account id: %w", err)
	}
	tx := entry.Transaction
	_, err = j.db.Exec(ctx, `INSERT INTO account_transactions (account_id, sequence, kind, amount, balance_after, recorded_at)
        VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6)
        ON CONFLICT (account_id, sequence) DO NOTHING`,
		accountID, tx.ID, string(tx.Kind), tx.Amount.String(), tx.BalanceAfter.String(), tx.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("journal transaction %d: %w", tx.ID, err)
	}
	return nil
}
