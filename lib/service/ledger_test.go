package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/makbank/bankhub.go/common"
	"github.com/makbank/bankhub.go/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdraw(t *testing.T) {
	svc := newTestService(nil)
	alice := createTestAccount(t, svc, "alice")

	balance, err := svc.Withdraw(context.Background(), alice.ID, 2500, "  rent  ")
	require.NoError(t, err)
	assert.Equal(t, int64(7500), balance)
	assert.Equal(t, int64(7500), balanceOf(t, svc, alice.ID))

	entries, err := svc.TransactionEntriesFor(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, common.EntryTypeWithdrawal, entries[0].Type)
	assert.Equal(t, common.EntryDirectionDebit, entries[0].Direction)
	assert.Equal(t, int64(2500), entries[0].Amount)
	assert.Equal(t, "rent", entries[0].Description)
}

func TestWithdrawDefaultDescription(t *testing.T) {
	svc := newTestService(nil)
	alice := createTestAccount(t, svc, "alice")

	_, err := svc.Withdraw(context.Background(), alice.ID, 1, "")
	require.NoError(t, err)
	entries, err := svc.TransactionEntriesFor(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, common.DefaultWithdrawalDescription, entries[0].Description)
}

func TestWithdrawRejectsOverdraft(t *testing.T) {
	svc := newTestService(nil)
	alice := createTestAccount(t, svc, "alice")

	_, err := svc.Withdraw(context.Background(), alice.ID, 10001, "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(10000), balanceOf(t, svc, alice.ID))

	entries, err := svc.TransactionEntriesFor(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// the whole balance can be withdrawn
	balance, err := svc.Withdraw(context.Background(), alice.ID, 10000, "")
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestWithdrawRejectsInvalidAmount(t *testing.T) {
	svc := newTestService(nil)
	alice := createTestAccount(t, svc, "alice")

	for _, amount := range []int64{0, -5} {
		_, err := svc.Withdraw(context.Background(), alice.ID, amount, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.Equal(t, int64(10000), balanceOf(t, svc, alice.ID))
}

func TestWithdrawUnknownAccount(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.Withdraw(context.Background(), 404, 10, "")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	svc := newTestService(nil)
	svc.Config.SeedBalance = 100
	alice := createTestAccount(t, svc, "alice")

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Withdraw(context.Background(), alice.ID, 80, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	failures := 0
	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrInsufficientFunds)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, int64(20), balanceOf(t, svc, alice.ID))

	entries, err := svc.TransactionEntriesFor(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestTransfer(t *testing.T) {
	svc := newTestService(nil)
	alice := createTestAccount(t, svc, "alice")
	bob := createTestAccount(t, svc, "bob")

	balance, err := svc.Transfer(context.Background(), alice.ID, bob.AccountNumber, 3000, "lunch")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), balance)
	assert.Equal(t, int64(7000), balanceOf(t, svc, alice.ID))
	assert.Equal(t, int64(13000), balanceOf(t, svc, bob.ID))

	aliceEntries, err := svc.TransactionEntriesFor(context.Background(), alice.ID)
	require.NoError(t, err)
	bobEntries, err := svc.TransactionEntriesFor(context.Background(), bob.ID)
	require.NoError(t, err)
	require.Len(t, aliceEntries, 2)
	require.Len(t, bobEntries, 2)

	debit, credit := aliceEntries[0], bobEntries[0]
	assert.Equal(t, common.EntryTypeTransfer, debit.Type)
	assert.Equal(t, common.EntryDirectionDebit, debit.Direction)
	assert.Equal(t, common.EntryDirectionCredit, credit.Direction)
	assert.Equal(t, int64(3000), debit.Amount)
	assert.Equal(t, int64(3000), credit.Amount)
	assert.Equal(t, bob.AccountNumber, debit.Recipient)
	assert.Equal(t, alice.AccountNumber, credit.Recipient)
	assert.NotEmpty(t, debit.TransferID)
	assert.Equal(t, debit.TransferID, credit.TransferID)
	assert.Equal(t, "Transfer to bob: lunch", debit.Description)
	assert.Equal(t, "Received from alice: lunch", credit.Description)
}

func TestTransferWithoutDescription(t *testing.T) {
	svc := newTestService(nil)
	alice := createTestAccount(t, svc, "alice")
	bob := createTestAccount(t, svc, "bob")

	_, err := svc.Transfer(context.Background(), alice.ID, bob.AccountNumber, 1, "")
	require.NoError(t, err)
	entries, err := svc.TransactionEntriesFor(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Transfer to bob", entries[0].Description)
}

func TestTransferRejections(t *testing.T) {
	svc := newTestService(nil)
	alice := createTestAccount(t, svc, "alice")
	bob := createTestAccount(t, svc, "bob")

	tests := []struct {
		name      string
		recipient string
		amount    int64
		want      error
	}{
		{name: "unknown recipient", recipient: "MAK000000", amount: 10, want: ErrRecipientNotFound},
		{name: "missing recipient", recipient: "", amount: 10, want: ErrMissingField},
		{name: "self transfer", recipient: alice.AccountNumber, amount: 10, want: ErrSelfTransfer},
		{name: "zero amount", recipient: bob.AccountNumber, amount: 0, want: ErrInvalidAmount},
		{name: "negative amount", recipient: bob.AccountNumber, amount: -10, want: ErrInvalidAmount},
		{name: "insufficient balance", recipient: bob.AccountNumber, amount: 10001, want: ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Transfer(context.Background(), alice.ID, tt.recipient, tt.amount, "")
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int64(10000), balanceOf(t, svc, alice.ID))
			assert.Equal(t, int64(10000), balanceOf(t, svc, bob.ID))
		})
	}
}

func TestTransferRollsBackWhenLogWriteFails(t *testing.T) {
	faulty := &faultyStore{Store: store.NewMemoryStore()}
	svc := newTestService(faulty)
	alice := createTestAccount(t, svc, "alice")
	bob := createTestAccount(t, svc, "bob")

	// the credit entry is the second append of the transfer
	faulty.wrapTx = func(tx store.Tx) store.Tx {
		calls := 0
		return &failingAppendTx{Tx: tx, calls: &calls, failOn: 2}
	}
	_, err := svc.Transfer(context.Background(), alice.ID, bob.AccountNumber, 500, "")
	assert.ErrorIs(t, err, ErrStorage)
	faulty.wrapTx = nil

	assert.Equal(t, int64(10000), balanceOf(t, svc, alice.ID))
	assert.Equal(t, int64(10000), balanceOf(t, svc, bob.ID))
	for _, id := range []int64{alice.ID, bob.ID} {
		entries, err := svc.TransactionEntriesFor(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	}
}

func TestConcurrentTransfersConserveMoney(t *testing.T) {
	svc := newTestService(nil)
	accounts := []int64{}
	numbers := []string{}
	for _, name := range []string{"alice", "bob", "carol"} {
		account := createTestAccount(t, svc, name)
		accounts = append(accounts, account.ID)
		numbers = append(numbers, account.AccountNumber)
	}

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := i%3, (i+1+i/3%2)%3
			_, err := svc.Transfer(context.Background(), accounts[from], numbers[to], int64(100+i*37), "")
			if err != nil {
				assert.ErrorIs(t, err, ErrInsufficientFunds)
			}
		}(i)
	}
	wg.Wait()

	var total int64
	for _, id := range accounts {
		balance := balanceOf(t, svc, id)
		assert.GreaterOrEqual(t, balance, int64(0))
		total += balance
	}
	assert.Equal(t, int64(30000), total)

	mismatches, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestLedgerOperationTimesOutWaitingForLock(t *testing.T) {
	svc := newTestService(nil)
	svc.Config.DatabaseTimeout = 1
	alice := createTestAccount(t, svc, "alice")

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- svc.Store.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			if err := tx.LockAccounts(ctx, alice.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	start := time.Now()
	_, err := svc.Withdraw(context.Background(), alice.ID, 10, "")
	assert.ErrorIs(t, err, ErrStorageTimeout)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Less(t, time.Since(start), 5*time.Second)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int64(10000), balanceOf(t, svc, alice.ID))
}

func TestLedgerRetriesTransientFailures(t *testing.T) {
	faulty := &faultyStore{Store: store.NewMemoryStore()}
	svc := newTestService(faulty)
	alice := createTestAccount(t, svc, "alice")

	faulty.runErrs = []error{
		&store.TransientError{Err: errors.New("could not serialize access")},
		&store.TransientError{Err: errors.New("deadlock detected")},
	}
	balance, err := svc.Withdraw(context.Background(), alice.ID, 100, "")
	require.NoError(t, err)
	assert.Equal(t, int64(9900), balance)
	assert.Empty(t, faulty.runErrs)
}

func TestLedgerGivesUpAfterMaxRetries(t *testing.T) {
	faulty := &faultyStore{Store: store.NewMemoryStore()}
	svc := newTestService(faulty)
	alice := createTestAccount(t, svc, "alice")

	for i := 0; i <= svc.Config.LedgerMaxRetries; i++ {
		faulty.runErrs = append(faulty.runErrs, &store.TransientError{Err: errors.New("deadlock detected")})
	}
	_, err := svc.Withdraw(context.Background(), alice.ID, 100, "")
	assert.ErrorIs(t, err, ErrStorage)
	assert.False(t, errors.Is(err, ErrStorageTimeout))
	assert.Equal(t, int64(10000), balanceOf(t, svc, alice.ID))
}

func TestLedgerReportsFailedRollback(t *testing.T) {
	faulty := &faultyStore{Store: store.NewMemoryStore()}
	svc := newTestService(faulty)
	alice := createTestAccount(t, svc, "alice")
	bob := createTestAccount(t, svc, "bob")

	faulty.runErrs = []error{&store.IntegrityError{
		Cause:       errors.New("connection reset"),
		RollbackErr: errors.New("connection reset"),
	}}
	_, err := svc.Transfer(context.Background(), alice.ID, bob.AccountNumber, 100, "")
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.False(t, IsBusinessError(err))
}
