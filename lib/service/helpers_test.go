package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/makbank/bankhub.go/db/models"
	"github.com/makbank/bankhub.go/lib"
	"github.com/makbank/bankhub.go/lib/store"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery staple"

func newTestConfig() *Config {
	return &Config{
		DatabaseUri:          "memory://",
		DatabaseTimeout:      10,
		LedgerMaxRetries:     3,
		JWTSecret:            []byte("SECRET"),
		JWTAccessTokenExpiry: 3600,
		AllowAccountCreation: true,
		SeedBalance:          10000,
		AccountNumberPrefix:  "MAK",
		AccountNumberRetries: 5,
	}
}

func newTestService(s store.Store) *BankService {
	if s == nil {
		s = store.NewMemoryStore()
	}
	return &BankService{
		Config:      newTestConfig(),
		Store:       s,
		Logger:      lib.Logger(""),
		EntryPubSub: NewPubsub(),
	}
}

func createTestAccount(t *testing.T, svc *BankService, name string) *models.Account {
	t.Helper()
	account, err := svc.CreateAccount(context.Background(), name, fmt.Sprintf("%s@example.com", name), testPassword)
	require.NoError(t, err)
	return account
}

func balanceOf(t *testing.T, svc *BankService, id int64) int64 {
	t.Helper()
	account, err := svc.FindAccount(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

// faultyStore injects failures into an otherwise working store.
type faultyStore struct {
	store.Store

	mu sync.Mutex
	// returned by RunInTx, one per call, before the real transaction runs
	runErrs []error
	wrapTx  func(tx store.Tx) store.Tx
}

func (s *faultyStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	var injected error
	if len(s.runErrs) > 0 {
		injected, s.runErrs = s.runErrs[0], s.runErrs[1:]
	}
	wrap := s.wrapTx
	s.mu.Unlock()
	if injected != nil {
		return injected
	}
	return s.Store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if wrap != nil {
			tx = wrap(tx)
		}
		return fn(ctx, tx)
	})
}

// failingAppendTx fails the AppendEntry call number failOn, counting from 1.
type failingAppendTx struct {
	store.Tx
	calls  *int
	failOn int
}

func (tx *failingAppendTx) AppendEntry(ctx context.Context, entry *models.TransactionEntry) error {
	*tx.calls++
	if *tx.calls == tx.failOn {
		return errors.New("disk full")
	}
	return tx.Tx.AppendEntry(ctx, entry)
}

// collidingTx reports an account number collision for the first collisions creates.
type collidingTx struct {
	store.Tx
	remaining *int
}

func (tx *collidingTx) CreateAccount(ctx context.Context, account *models.Account) error {
	if *tx.remaining > 0 {
		*tx.remaining--
		return store.ErrDuplicateAccountNumber
	}
	return tx.Tx.CreateAccount(ctx, account)
}

type recordingNotifier struct {
	err  error
	sent chan models.Account
}

func (n *recordingNotifier) SendWelcome(ctx context.Context, account models.Account) error {
	n.sent <- account
	return n.err
}
