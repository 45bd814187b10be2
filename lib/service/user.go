package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/makbank/bankhub.go/common"
	"github.com/makbank/bankhub.go/db/models"
	"github.com/makbank/bankhub.go/lib/security"
	"github.com/makbank/bankhub.go/lib/store"
	passwordvalidator "github.com/wagslane/go-password-validator"
)

// CreateAccount registers a new account holder.
// The account is opened with the configured seed balance, recorded as a deposit entry
// in the same transaction. A welcome notification is sent once the account exists.
func (svc *BankService) CreateAccount(ctx context.Context, name, email, password string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingField
	}
	if svc.Config.MinPasswordEntropy > 0 {
		entropy := passwordvalidator.GetEntropy(password)
		if entropy < float64(svc.Config.MinPasswordEntropy) {
			return nil, fmt.Errorf("%w: entropy is too low (%f), required is %d", ErrWeakPassword, entropy, svc.Config.MinPasswordEntropy)
		}
	}

	// we only store the hashed password
	hashedPassword, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}

	attempts := svc.Config.AccountNumberRetries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		accountNumber, err := GenerateAccountNumber(svc.Config.AccountNumberPrefix)
		if err != nil {
			return nil, err
		}
		account := &models.Account{
			Name:          name,
			Email:         email,
			Password:      hashedPassword,
			AccountNumber: accountNumber,
		}
		var seedEntry *models.TransactionEntry
		err = svc.runLedgerTx(ctx, func(ctx context.Context, tx store.Tx) error {
			seedEntry = nil
			if err := tx.CreateAccount(ctx, account); err != nil {
				return err
			}
			if svc.Config.SeedBalance <= 0 {
				return nil
			}
			balance, err := tx.ApplyDelta(ctx, account.ID, svc.Config.SeedBalance)
			if err != nil {
				return err
			}
			account.Balance = balance
			entry := &models.TransactionEntry{
				AccountID:   account.ID,
				Type:        common.EntryTypeDeposit,
				Direction:   common.EntryDirectionCredit,
				Amount:      svc.Config.SeedBalance,
				Description: common.SeedDepositDescription,
			}
			if err := tx.AppendEntry(ctx, entry); err != nil {
				return err
			}
			seedEntry = entry
			return nil
		})
		if errors.Is(err, ErrAccountNumberTaken) {
			svc.Logger.Warnf("Account number collision on attempt %d of %d", attempt, attempts)
			continue
		}
		if err != nil {
			svc.logLedgerFailure("register", err)
			return nil, err
		}

		svc.Logger.Infof("Created account id:%v account_number:%s", account.ID, account.AccountNumber)
		if seedEntry != nil {
			svc.publishEntries(*seedEntry)
		}
		svc.SendWelcomeNotification(*account)
		return account, nil
	}
	err = fmt.Errorf("%w: no unique account number after %d attempts", ErrStorage, attempts)
	svc.logLedgerFailure("register", err)
	return nil, err
}

// Login checks the credentials and returns a fresh access token.
// Unknown emails and wrong passwords both fail with ErrBadCredentials.
func (svc *BankService) Login(ctx context.Context, email, password string) (string, *models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, ErrMissingField
	}
	account, err := svc.Store.FindAccountByEmail(ctx, email)
	if err != nil {
		err = mapStoreError(err, ErrBadCredentials)
		if !errors.Is(err, ErrBadCredentials) {
			svc.Logger.Errorf("Failed to load account for login: %v", err)
		}
		return "", nil, err
	}
	if !security.CheckPassword(account.Password, password) {
		return "", nil, ErrBadCredentials
	}
	token, err := svc.GenerateToken(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

func (svc *BankService) FindAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	account, err := svc.Store.FindAccount(ctx, accountID)
	if err != nil {
		return nil, mapStoreError(err, ErrAccountNotFound)
	}
	return account, nil
}

// TransactionEntriesFor returns the account's entries, newest first.
func (svc *BankService) TransactionEntriesFor(ctx context.Context, accountID int64) ([]models.TransactionEntry, error) {
	entries, err := svc.Store.TransactionEntriesFor(ctx, accountID)
	if err != nil {
		return nil, mapStoreError(err, ErrAccountNotFound)
	}
	return entries, nil
}
