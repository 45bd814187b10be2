package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/makbank/bankhub.go/db/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// BunStore is the Postgres backed store.
// Balances are changed with a single conditional UPDATE so that a concurrent
// writer can never turn a checked balance into a negative one.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

func (s *BunStore) DB() *bun.DB {
	return s.db
}

func (s *BunStore) Close() error {
	return s.db.Close()
}

func (s *BunStore) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	return findAccount(ctx, s.db, "id = ?", id)
}

func (s *BunStore) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return findAccount(ctx, s.db, "email = ?", email)
}

func (s *BunStore) FindAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	return findAccount(ctx, s.db, "account_number = ?", accountNumber)
}

func (s *BunStore) TransactionEntriesFor(ctx context.Context, accountID int64) ([]models.TransactionEntry, error) {
	return transactionEntriesFor(ctx, s.db, accountID)
}

func (s *BunStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	accounts := []models.Account{}
	err := s.db.NewSelect().Model(&accounts).OrderExpr("id ASC").Scan(ctx)
	return accounts, classifyError(err)
}

func (s *BunStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return classifyError(err)
	}
	err = finishTx(ctx, &tx, func(ctx context.Context) error {
		return fn(ctx, &bunTx{tx: tx})
	})
	return classifyError(err)
}

type bunTx struct {
	tx bun.Tx
}

func (t *bunTx) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	return findAccount(ctx, t.tx, "id = ?", id)
}

func (t *bunTx) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return findAccount(ctx, t.tx, "email = ?", email)
}

func (t *bunTx) FindAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	return findAccount(ctx, t.tx, "account_number = ?", accountNumber)
}

func (t *bunTx) TransactionEntriesFor(ctx context.Context, accountID int64) ([]models.TransactionEntry, error) {
	return transactionEntriesFor(ctx, t.tx, accountID)
}

func (t *bunTx) CreateAccount(ctx context.Context, account *models.Account) error {
	_, err := t.tx.NewInsert().Model(account).Returning("*").Exec(ctx)
	return classifyError(err)
}

func (t *bunTx) LockAccounts(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	// rows are locked in ascending id order, two transfers touching the same
	// pair of accounts therefore queue up instead of deadlocking
	var locked []int64
	err := t.tx.NewSelect().
		Model((*models.Account)(nil)).
		Column("id").
		Where("id IN (?)", bun.In(sorted)).
		OrderExpr("id ASC").
		For("UPDATE").
		Scan(ctx, &locked)
	if err != nil {
		return classifyError(err)
	}
	if len(locked) != len(uniqueIDs(sorted)) {
		return ErrNotFound
	}
	return nil
}

func (t *bunTx) ApplyDelta(ctx context.Context, id int64, delta int64) (int64, error) {
	var balance int64
	err := t.tx.NewUpdate().
		Model((*models.Account)(nil)).
		Set("balance = balance + ?", delta).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("balance + ? >= 0", delta).
		Returning("balance").
		Scan(ctx, &balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, classifyError(err)
	}
	// nothing was updated: either the account is missing or the guard refused the change
	if _, findErr := t.FindAccount(ctx, id); findErr != nil {
		return 0, findErr
	}
	return 0, ErrInsufficientFunds
}

func (t *bunTx) AppendEntry(ctx context.Context, entry *models.TransactionEntry) error {
	if entry.Date.IsZero() {
		entry.Date = time.Now()
	}
	_, err := t.tx.NewInsert().Model(entry).Exec(ctx)
	return classifyError(err)
}

func findAccount(ctx context.Context, db bun.IDB, where string, arg interface{}) (*models.Account, error) {
	var account models.Account
	err := db.NewSelect().Model(&account).Where(where, arg).Limit(1).Scan(ctx)
	if err != nil {
		return nil, classifyError(err)
	}
	return &account, nil
}

func transactionEntriesFor(ctx context.Context, db bun.IDB, accountID int64) ([]models.TransactionEntry, error) {
	entries := []models.TransactionEntry{}
	err := db.NewSelect().
		Model(&entries).
		Where("account_id = ?", accountID).
		OrderExpr("date DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, classifyError(err)
	}
	return entries, nil
}

func uniqueIDs(sorted []int64) []int64 {
	result := make([]int64, 0, len(sorted))
	for i, id := range sorted {
		if i == 0 || sorted[i-1] != id {
			result = append(result, id)
		}
	}
	return result
}

// classifyError maps driver errors onto the store's error vocabulary.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var integrity *IntegrityError
	if errors.As(err, &integrity) || IsTransient(err) {
		return err
	}
	for _, known := range []error{ErrNotFound, ErrInsufficientFunds, ErrDuplicateEmail, ErrDuplicateAccountNumber, ErrTimeout} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Field('C') {
	case pgerrcode.UniqueViolation:
		constraint := pgErr.Field('n')
		if strings.Contains(constraint, "email") {
			return ErrDuplicateEmail
		}
		if strings.Contains(constraint, "account_number") {
			return ErrDuplicateAccountNumber
		}
		return err
	case pgerrcode.CheckViolation:
		if strings.Contains(pgErr.Field('n'), "balance") {
			return ErrInsufficientFunds
		}
		return err
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return &TransientError{Err: err}
	case pgerrcode.QueryCanceled:
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
