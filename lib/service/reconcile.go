package service

import (
	"context"

	"github.com/makbank/bankhub.go/lib/store"
)

// Reconciliation compares a stored balance with the balance implied by the log.
type Reconciliation struct {
	AccountID     int64  `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
	Balance       int64  `json:"balance"`
	LogBalance    int64  `json:"logBalance"`
	Entries       int    `json:"entries"`
}

func (r Reconciliation) Consistent() bool {
	return r.Balance == r.LogBalance
}

// ReconcileAccount reads the balance and the entries of one account under its row lock,
// so a transfer committing in between cannot skew the comparison.
func (svc *BankService) ReconcileAccount(ctx context.Context, accountID int64) (Reconciliation, error) {
	result := Reconciliation{AccountID: accountID}
	err := svc.runLedgerTx(ctx, func(ctx context.Context, tx store.Tx) error {
		result = Reconciliation{AccountID: accountID}
		if err := tx.LockAccounts(ctx, accountID); err != nil {
			return err
		}
		account, err := tx.FindAccount(ctx, accountID)
		if err != nil {
			return err
		}
		entries, err := tx.TransactionEntriesFor(ctx, accountID)
		if err != nil {
			return err
		}
		result.AccountNumber = account.AccountNumber
		result.Balance = account.Balance
		for i := range entries {
			result.LogBalance += entries[i].SignedAmount()
		}
		result.Entries = len(entries)
		return nil
	})
	return result, err
}

// ReconcileAll checks every account and returns the ones whose balance does not match the log.
func (svc *BankService) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	accounts, err := svc.Store.ListAccounts(ctx)
	if err != nil {
		return nil, mapStoreError(err, ErrAccountNotFound)
	}
	mismatches := []Reconciliation{}
	for _, account := range accounts {
		result, err := svc.ReconcileAccount(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		if !result.Consistent() {
			svc.Logger.Warnf("Balance mismatch account_id:%v balance:%v log_balance:%v", result.AccountID, result.Balance, result.LogBalance)
			mismatches = append(mismatches, result)
		}
	}
	svc.Logger.Infof("Reconciled %d accounts, %d mismatches", len(accounts), len(mismatches))
	return mismatches, nil
}
