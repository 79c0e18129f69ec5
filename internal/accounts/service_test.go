package accounts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/bankaccount/internal/account"
	"github.com/congo-pay/bankaccount/internal/journal"
	"github.com/congo-pay/bankaccount/internal/logging"
	"github.com/congo-pay/bankaccount/internal/metrics"
)

type testJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
	err     error
}

func (j *testJournal) Record(_ context.Context, entry journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	return j.err
}

func newTestService(t *testing.T, j journal.Journal, opts ...Option) *Service {
	t.Helper()
	rec, err := metrics.NewRecorder(prometheus.NewRegistry())
	require.NoError(t, err)
	return NewService(NewMemoryRepository(), logging.Discard(), append([]Option{WithJournal(j), WithMetrics(rec)}, opts...)...)
}

func TestServiceOpenDepositWithdraw(t *testing.T) {
	j := &testJournal{}
	svc := newTestService(t, j)
	ctx := context.Background()

	opened, err := svc.Open(ctx, decimal.NewFromInt(1_000))
	require.NoError(t, err)
	_, err = uuid.Parse(opened.ID)
	require.NoError(t, err, "account id should be a uuid")
	assert.Equal(t, int64(1), opened.Opening.ID)
	assert.True(t, opened.Balance.Equal(decimal.NewFromInt(1_000)))

	tx, err := svc.Deposit(ctx, opened.ID, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), tx.ID)
	assert.True(t, tx.BalanceAfter.Equal(decimal.NewFromInt(1_010)))

	tx, err = svc.Withdraw(ctx, opened.ID, decimal.NewFromInt(1_010))
	require.NoError(t, err)
	assert.Equal(t, int64(3), tx.ID)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(1_010)))
	assert.True(t, tx.BalanceAfter.IsZero())

	balance, err := svc.Balance(ctx, opened.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	txs, err := svc.Transactions(ctx, opened.ID)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	require.Len(t, j.entries, 3)
	for i, e := range j.entries {
		assert.Equal(t, opened.ID, e.AccountID)
		assert.True(t, e.Transaction.Equal(txs[i]), "journal entry %d mismatch: %+v", i, e)
	}
}

func TestServiceReturnsAppliedEntryWhenClockStepsBack(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(-time.Second), base.Add(-2 * time.Second)}
	i := 0
	clock := account.ClockFunc(func() time.Time {
		ts := times[i]
		i++
		return ts
	})
	j := &testJournal{}
	svc := newTestService(t, j, WithClock(clock))
	ctx := context.Background()

	opened, err := svc.Open(ctx, decimal.NewFromInt(1_000))
	require.NoError(t, err)

	tx, err := svc.Deposit(ctx, opened.ID, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), tx.ID)
	assert.Equal(t, account.KindDeposit, tx.Kind)
	assert.True(t, tx.BalanceAfter.Equal(decimal.NewFromInt(1_010)))

	tx, err = svc.Withdraw(ctx, opened.ID, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, int64(3), tx.ID)
	assert.True(t, tx.BalanceAfter.Equal(decimal.NewFromInt(1_005)))

	require.Len(t, j.entries, 3)
	for n, e := range j.entries {
		assert.Equal(t, int64(n+1), e.Transaction.ID, "each entry is journaled once, in order")
	}

	// the opening entry still carries the latest timestamp
	latest, err := svc.MostRecent(ctx, opened.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), latest.ID)
}

func TestServiceRejectsInvalidOperations(t *testing.T) {
	j := &testJournal{}
	svc := newTestService(t, j)
	ctx := context.Background()

	_, err := svc.Open(ctx, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, account.ErrInvalidArgument)

	opened, err := svc.Open(ctx, decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, opened.ID, decimal.Zero)
	assert.ErrorIs(t, err, account.ErrInvalidArgument)
	_, err = svc.Withdraw(ctx, opened.ID, decimal.NewFromInt(101))
	assert.ErrorIs(t, err, account.ErrInsufficientFunds)
	assert.Len(t, j.entries, 1, "rejected operations must not be journaled")

	_, err = svc.Balance(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.MostRecent(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceBoundsAmountPrecisionAndSize(t *testing.T) {
	j := &testJournal{}
	svc := newTestService(t, j)
	ctx := context.Background()

	opened, err := svc.Open(ctx, decimal.NewFromInt(100))
	require.NoError(t, err)

	for _, raw := range []string{"1e-3000000", "0.000000001", "1e400", "1000000000000000.01"} {
		amount := decimal.RequireFromString(raw)
		_, err := svc.Deposit(ctx, opened.ID, amount)
		assert.ErrorIs(t, err, account.ErrInvalidArgument, raw)
		_, err = svc.Withdraw(ctx, opened.ID, amount)
		assert.ErrorIs(t, err, account.ErrInvalidArgument, raw)
		_, err = svc.Open(ctx, amount)
		assert.ErrorIs(t, err, account.ErrInvalidArgument, raw)
	}

	tx, err := svc.Deposit(ctx, opened.ID, decimal.RequireFromString("0.00000001"))
	require.NoError(t, err)
	assert.Equal(t, "100.00000001", tx.BalanceAfter.String())

	_, err = svc.Deposit(ctx, opened.ID, decimal.New(1, 15))
	require.NoError(t, err, "the cap itself is accepted")

	balance, err := svc.Balance(ctx, opened.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000100.00000001", balance.String())
	assert.Len(t, j.entries, 3)
}

func TestServiceNowUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2024, 6, 30, 8, 0, 0, 0, time.UTC)
	svc := newTestService(t, nil, WithClock(account.ClockFunc(func() time.Time { return fixed })))

	assert.Equal(t, fixed, svc.Now())

	opened, err := svc.Open(context.Background(), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, fixed, opened.Opening.Timestamp)
}

func TestServiceJournalFailureKeepsTransaction(t *testing.T) {
	j := &testJournal{err: errors.New("sink offline")}
	svc := newTestService(t, j)
	ctx := context.Background()

	opened, err := svc.Open(ctx, decimal.NewFromInt(5))
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, opened.ID, decimal.NewFromInt(5))
	require.NoError(t, err, "deposit should succeed despite journal failure")

	latest, err := svc.MostRecent(ctx, opened.ID)
	require.NoError(t, err)
	assert.True(t, latest.BalanceAfter.Equal(decimal.NewFromInt(10)))
}

func TestServiceConcurrentMutations(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	opened, err := svc.Open(ctx, decimal.NewFromInt(10_000))
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Deposit(ctx, opened.ID, decimal.NewFromInt(50))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Withdraw(ctx, opened.ID, decimal.NewFromInt(30))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, err := svc.Balance(ctx, opened.ID)
	require.NoError(t, err)
	want := decimal.NewFromInt(10_000 + workers*20)
	assert.True(t, balance.Equal(want), "expected balance %s, got %s", want, balance)

	txs, err := svc.Transactions(ctx, opened.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1+2*workers)
	assert.NoError(t, account.VerifyLedger(txs), "ledger broken after concurrent use")
}
