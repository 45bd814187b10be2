package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/makbank/bankhub.go/common"
	"github.com/makbank/bankhub.go/db/models"
	"github.com/makbank/bankhub.go/lib/store"
)

// Withdraw debits amount from the account and returns the new balance.
func (svc *BankService) Withdraw(ctx context.Context, accountID int64, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = common.DefaultWithdrawalDescription
	}

	var balance int64
	var entry models.TransactionEntry
	err := svc.runLedgerTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.LockAccounts(ctx, accountID); err != nil {
			return err
		}
		newBalance, err := tx.ApplyDelta(ctx, accountID, -amount)
		if err != nil {
			return err
		}
		entry = models.TransactionEntry{
			AccountID:   accountID,
			Type:        common.EntryTypeWithdrawal,
			Direction:   common.EntryDirectionDebit,
			Amount:      amount,
			Description: description,
		}
		if err := tx.AppendEntry(ctx, &entry); err != nil {
			return err
		}
		balance = newBalance
		return nil
	})
	if err != nil {
		svc.logLedgerFailure("withdraw", err, accountID)
		return 0, err
	}

	svc.Logger.Infof("Withdrawal completed account_id:%v amount:%v balance:%v", accountID, amount, balance)
	svc.publishEntries(entry)
	return balance, nil
}

// Transfer moves amount from the sender to the account behind recipientAccountNumber
// and returns the sender's new balance. Both balance changes and both log entries
// are committed together or not at all.
func (svc *BankService) Transfer(ctx context.Context, senderID int64, recipientAccountNumber string, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	description = strings.TrimSpace(description)

	var balance int64
	var entries []models.TransactionEntry
	var recipientID int64
	err := svc.runLedgerTx(ctx, func(ctx context.Context, tx store.Tx) error {
		entries = nil
		recipient, err := ResolveAccountNumber(ctx, tx, recipientAccountNumber)
		if errors.Is(err, ErrAccountNotFound) {
			return ErrRecipientNotFound
		}
		if err != nil {
			return err
		}
		recipientID = recipient.ID
		sender, err := tx.FindAccount(ctx, senderID)
		if err != nil {
			return err
		}
		if sender.ID == recipient.ID {
			return ErrSelfTransfer
		}

		if err := tx.LockAccounts(ctx, sender.ID, recipient.ID); err != nil {
			return err
		}
		newBalance, err := tx.ApplyDelta(ctx, sender.ID, -amount)
		if err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, recipient.ID, amount); err != nil {
			return err
		}

		transferID := uuid.NewString()
		debit := models.TransactionEntry{
			AccountID:   sender.ID,
			Type:        common.EntryTypeTransfer,
			Direction:   common.EntryDirectionDebit,
			Amount:      amount,
			Recipient:   recipient.AccountNumber,
			TransferID:  transferID,
			Description: transferDescription("Transfer to", recipient.Name, description),
		}
		credit := models.TransactionEntry{
			AccountID:   recipient.ID,
			Type:        common.EntryTypeTransfer,
			Direction:   common.EntryDirectionCredit,
			Amount:      amount,
			Recipient:   sender.AccountNumber,
			TransferID:  transferID,
			Description: transferDescription("Received from", sender.Name, description),
		}
		if err := tx.AppendEntry(ctx, &debit); err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, &credit); err != nil {
			return err
		}
		entries = []models.TransactionEntry{debit, credit}
		balance = newBalance
		return nil
	})
	if err != nil {
		svc.logLedgerFailure("transfer", err, senderID, recipientID)
		return 0, err
	}

	svc.Logger.Infof("Transfer completed sender_id:%v recipient_id:%v amount:%v", senderID, recipientID, amount)
	svc.publishEntries(entries...)
	return balance, nil
}

func transferDescription(prefix, counterparty, description string) string {
	if description == "" {
		return fmt.Sprintf("%s %s", prefix, counterparty)
	}
	return fmt.Sprintf("%s %s: %s", prefix, counterparty, description)
}

// runLedgerTx runs fn in one store transaction bounded by the operation timeout.
// Transient conflicts rerun fn from scratch, so fn must not keep state between calls.
func (svc *BankService) runLedgerTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, svc.Config.OperationTimeout())
	defer cancel()

	retries := svc.Config.LedgerMaxRetries
	if retries < 0 {
		retries = 0
	}
	expontentialBackoff := backoff.NewExponentialBackOff()
	expontentialBackoff.InitialInterval = 20 * time.Millisecond
	expontentialBackoff.MaxInterval = time.Second
	b := backoff.WithContext(backoff.WithMaxRetries(expontentialBackoff, uint64(retries)), ctx)

	err := backoff.RetryNotify(func() error {
		err := svc.Store.RunInTx(ctx, fn)
		if err == nil || store.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, wait time.Duration) {
		svc.Logger.Warnf("Retrying ledger transaction in %v after transient failure: %v", wait, err)
	})
	return mapStoreError(err, ErrAccountNotFound)
}

func (svc *BankService) logLedgerFailure(operation string, err error, accountIDs ...int64) {
	switch {
	case errors.Is(err, ErrIntegrity):
		svc.Logger.Errorj(log.JSON{
			"message":     "ledger transaction could not be rolled back",
			"operation":   operation,
			"account_ids": accountIDs,
			"error":       err.Error(),
		})
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("operation", operation)
			scope.SetExtra("account_ids", accountIDs)
			sentry.CaptureException(err)
		})
	case IsBusinessError(err):
		svc.Logger.Infof("%s rejected account_ids:%v reason: %v", operation, accountIDs, err)
	default:
		svc.Logger.Errorf("%s failed account_ids:%v error: %v", operation, accountIDs, err)
		sentry.CaptureException(err)
	}
}
