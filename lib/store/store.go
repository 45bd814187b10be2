// Package store holds the account store and the transaction log.
//
// Both live behind one Store so that a ledger operation can change balances and
// append log entries inside a single transaction. Two backends exist: Postgres
// through bun, and an in-memory store used for development and tests.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/makbank/bankhub.go/db/models"
)

var (
	ErrNotFound               = errors.New("store: record not found")
	ErrInsufficientFunds      = errors.New("store: balance would become negative")
	ErrDuplicateEmail         = errors.New("store: email already exists")
	ErrDuplicateAccountNumber = errors.New("store: account number already exists")
	ErrTimeout                = errors.New("store: operation timed out")
)

// Reader is the read side shared by the store and an open transaction.
type Reader interface {
	FindAccount(ctx context.Context, id int64) (*models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	FindAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error)
	TransactionEntriesFor(ctx context.Context, accountID int64) ([]models.TransactionEntry, error)
}

// Tx is a unit of work. Writes made through it become visible to other
// callers only once the enclosing RunInTx commits.
type Tx interface {
	Reader
	CreateAccount(ctx context.Context, account *models.Account) error
	// LockAccounts takes row locks in ascending id order regardless of argument order.
	LockAccounts(ctx context.Context, ids ...int64) error
	// ApplyDelta adds delta to the balance and returns the new balance.
	// It fails with ErrInsufficientFunds instead of letting the balance drop below zero.
	ApplyDelta(ctx context.Context, id int64, delta int64) (int64, error)
	AppendEntry(ctx context.Context, entry *models.TransactionEntry) error
}

type Store interface {
	Reader
	ListAccounts(ctx context.Context) ([]models.Account, error)
	// RunInTx commits when fn returns nil and rolls back on error or panic.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// TransientError marks a failure where running the whole transaction again may succeed
// (serialization failures, deadlocks, lock contention).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("store: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IntegrityError is returned when a transaction failed and rolling it back failed too.
// Partial writes may have survived, so the affected accounts need reconciliation.
type IntegrityError struct {
	Cause       error
	RollbackErr error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("store: rollback failed (%v) after: %v", e.RollbackErr, e.Cause)
}

func (e *IntegrityError) Unwrap() error {
	return e.Cause
}
