package common

const (
	EntryTypeDeposit    = "deposit"
	EntryTypeWithdrawal = "withdrawal"
	EntryTypeTransfer   = "transfer"

	EntryDirectionCredit = "credit"
	EntryDirectionDebit  = "debit"

	DefaultWithdrawalDescription = "Withdrawal"
	SeedDepositDescription       = "Initial deposit"

	AccountNumberDigits = 6
)
