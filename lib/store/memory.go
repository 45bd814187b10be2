package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/makbank/bankhub.go/db/models"
)

// MemoryStore keeps accounts and entries in process memory.
// Every account row has its own lock, held by at most one transaction at a time.
// Transactions work on private copies and publish them on commit, so readers only
// ever see committed state.
type MemoryStore struct {
	mu            sync.RWMutex
	accounts      map[int64]*memRow
	byEmail       map[string]int64
	byNumber      map[string]int64
	reserved      map[string]struct{}
	entries       []models.TransactionEntry
	lastAccountID int64
	lastEntryID   int64
}

type memRow struct {
	lock    chan struct{}
	account models.Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]*memRow),
		byEmail:  make(map[string]int64),
		byNumber: make(map[string]int64),
		reserved: make(map[string]struct{}),
	}
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	account := row.account
	return &account, nil
}

func (s *MemoryStore) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.FindAccount(ctx, id)
}

func (s *MemoryStore) FindAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	s.mu.RLock()
	id, ok := s.byNumber[accountNumber]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.FindAccount(ctx, id)
}

func (s *MemoryStore) TransactionEntriesFor(ctx context.Context, accountID int64) ([]models.TransactionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []models.TransactionEntry{}
	for _, entry := range s.entries {
		if entry.AccountID == accountID {
			result = append(result, entry)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (s *MemoryStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Account, 0, len(s.accounts))
	for _, row := range s.accounts {
		result = append(result, row.account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return timeoutErr(err)
	}
	tx := &memTx{
		s:       s,
		held:    make(map[int64]*memRow),
		working: make(map[int64]*models.Account),
		created: make(map[int64]*models.Account),
	}
	return finishTx(ctx, tx, func(ctx context.Context) error {
		return fn(ctx, tx)
	})
}

func sortNewestFirst(entries []models.TransactionEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date.Equal(entries[j].Date) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Date.After(entries[j].Date)
	})
}

func timeoutErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

type memTx struct {
	s         *MemoryStore
	held      map[int64]*memRow
	lockOrder []int64
	working   map[int64]*models.Account
	created   map[int64]*models.Account
	createdAt []int64
	reserved  []string
	entries   []models.TransactionEntry
	done      bool
}

func (tx *memTx) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	if account, ok := tx.created[id]; ok {
		copied := *account
		return &copied, nil
	}
	if account, ok := tx.working[id]; ok {
		copied := *account
		return &copied, nil
	}
	return tx.s.FindAccount(ctx, id)
}

func (tx *memTx) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	for _, account := range tx.created {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	account, err := tx.s.FindAccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return tx.FindAccount(ctx, account.ID)
}

func (tx *memTx) FindAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	for _, account := range tx.created {
		if account.AccountNumber == accountNumber {
			copied := *account
			return &copied, nil
		}
	}
	account, err := tx.s.FindAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	return tx.FindAccount(ctx, account.ID)
}

func (tx *memTx) TransactionEntriesFor(ctx context.Context, accountID int64) ([]models.TransactionEntry, error) {
	result, err := tx.s.TransactionEntriesFor(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, entry := range tx.entries {
		if entry.AccountID == accountID {
			result = append(result, entry)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (tx *memTx) CreateAccount(ctx context.Context, account *models.Account) error {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	emailKey := "email:" + account.Email
	numberKey := "number:" + account.AccountNumber
	if _, ok := s.byEmail[account.Email]; ok {
		return ErrDuplicateEmail
	}
	if _, ok := s.reserved[emailKey]; ok {
		return ErrDuplicateEmail
	}
	if _, ok := s.byNumber[account.AccountNumber]; ok {
		return ErrDuplicateAccountNumber
	}
	if _, ok := s.reserved[numberKey]; ok {
		return ErrDuplicateAccountNumber
	}
	s.reserved[emailKey] = struct{}{}
	s.reserved[numberKey] = struct{}{}
	tx.reserved = append(tx.reserved, emailKey, numberKey)

	s.lastAccountID++
	account.ID = s.lastAccountID
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	copied := *account
	tx.created[account.ID] = &copied
	tx.createdAt = append(tx.createdAt, account.ID)
	return nil
}

func (tx *memTx) LockAccounts(ctx context.Context, ids ...int64) error {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, id := range sorted {
		if err := tx.lock(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (tx *memTx) lock(ctx context.Context, id int64) error {
	if _, ok := tx.created[id]; ok {
		return nil
	}
	if _, ok := tx.held[id]; ok {
		return nil
	}
	tx.s.mu.RLock()
	row, ok := tx.s.accounts[id]
	tx.s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	select {
	case row.lock <- struct{}{}:
	case <-ctx.Done():
		return timeoutErr(ctx.Err())
	}
	tx.held[id] = row
	tx.lockOrder = append(tx.lockOrder, id)
	return nil
}

func (tx *memTx) ApplyDelta(ctx context.Context, id int64, delta int64) (int64, error) {
	account, ok := tx.created[id]
	if !ok {
		if err := tx.lock(ctx, id); err != nil {
			return 0, err
		}
		account, ok = tx.working[id]
		if !ok {
			// the row lock is held, so the committed copy cannot change underneath us
			tx.s.mu.RLock()
			copied := tx.held[id].account
			tx.s.mu.RUnlock()
			account = &copied
			tx.working[id] = account
		}
	}
	balance := account.Balance + delta
	if balance < 0 {
		return account.Balance, ErrInsufficientFunds
	}
	account.Balance = balance
	account.UpdatedAt = time.Now()
	return balance, nil
}

func (tx *memTx) AppendEntry(ctx context.Context, entry *models.TransactionEntry) error {
	if _, ok := tx.created[entry.AccountID]; !ok {
		if _, err := tx.s.FindAccount(ctx, entry.AccountID); err != nil {
			return err
		}
	}
	if entry.Date.IsZero() {
		entry.Date = time.Now()
	}
	tx.s.mu.Lock()
	tx.s.lastEntryID++
	entry.ID = tx.s.lastEntryID
	tx.s.mu.Unlock()
	stored := *entry
	stored.Account = nil
	tx.entries = append(tx.entries, stored)
	return nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	s := tx.s
	s.mu.Lock()
	for _, id := range tx.createdAt {
		account := tx.created[id]
		s.accounts[id] = &memRow{lock: make(chan struct{}, 1), account: *account}
		s.byEmail[account.Email] = id
		s.byNumber[account.AccountNumber] = id
	}
	for id, account := range tx.working {
		s.accounts[id].account = *account
	}
	s.entries = append(s.entries, tx.entries...)
	tx.unreserve()
	s.mu.Unlock()
	tx.release()
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	tx.s.mu.Lock()
	tx.unreserve()
	tx.s.mu.Unlock()
	tx.release()
	return nil
}

// unreserve must be called with s.mu held.
func (tx *memTx) unreserve() {
	for _, key := range tx.reserved {
		delete(tx.s.reserved, key)
	}
	tx.reserved = nil
}

func (tx *memTx) release() {
	for i := len(tx.lockOrder) - 1; i >= 0; i-- {
		<-tx.held[tx.lockOrder[i]].lock
	}
	tx.lockOrder = nil
	tx.held = nil
}
