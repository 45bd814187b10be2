package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/makbank/bankhub.go/lib/store"
)

var (
	ErrInvalidAmount      = errors.New("amount must be a positive integer")
	ErrMissingField       = errors.New("missing required field")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrAccountNotFound    = errors.New("account not found")
	ErrRecipientNotFound  = errors.New("recipient not found")
	ErrEmailTaken         = errors.New("user already exists")
	ErrAccountNumberTaken = errors.New("account number already exists")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrSelfTransfer       = errors.New("cannot transfer to your own account")
	ErrBadCredentials     = errors.New("invalid credentials")

	ErrStorage        = errors.New("storage failure")
	ErrStorageTimeout = fmt.Errorf("%w: operation timed out", ErrStorage)
	// ErrIntegrity means a failed transaction could not be rolled back.
	ErrIntegrity = errors.New("transaction rollback failed")
)

var businessErrors = []error{
	ErrInvalidAmount,
	ErrMissingField,
	ErrWeakPassword,
	ErrAccountNotFound,
	ErrRecipientNotFound,
	ErrEmailTaken,
	ErrAccountNumberTaken,
	ErrInsufficientFunds,
	ErrSelfTransfer,
	ErrBadCredentials,
}

// IsBusinessError reports whether err is an expected outcome of a request
// rather than a failure of the system.
func IsBusinessError(err error) bool {
	for _, known := range businessErrors {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}

// mapStoreError translates store errors into service errors.
// notFound is returned for store.ErrNotFound so callers can tell which lookup failed.
func mapStoreError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	var integrity *store.IntegrityError
	if errors.As(err, &integrity) {
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	if IsBusinessError(err) || errors.Is(err, ErrStorage) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFound
	case errors.Is(err, store.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, store.ErrDuplicateEmail):
		return ErrEmailTaken
	case errors.Is(err, store.ErrDuplicateAccountNumber):
		return ErrAccountNumberTaken
	case errors.Is(err, store.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrStorageTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
