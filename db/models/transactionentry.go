package models

import (
	"time"

	"github.com/makbank/bankhub.go/common"
	"github.com/uptrace/bun"
)

// TransactionEntry : Transaction Entries Model
// Entries are immutable once written. A transfer is recorded as two entries,
// one debit under the sender and one credit under the recipient, sharing TransferID.
type TransactionEntry struct {
	bun.BaseModel `bun:"table:transaction_entries,alias:entry"`

	ID          int64     `json:"id" bun:",pk,autoincrement"`
	AccountID   int64     `json:"accountId" bun:",notnull"`
	Account     *Account  `json:"-" bun:"rel:belongs-to,join:account_id=id"`
	Type        string    `json:"type" bun:",notnull"`
	Direction   string    `json:"direction" bun:",notnull"`
	Amount      int64     `json:"amount" bun:",notnull"`
	Recipient   string    `json:"recipient,omitempty" bun:",nullzero"`
	TransferID  string    `json:"transferId,omitempty" bun:",nullzero"`
	Description string    `json:"description" bun:",nullzero"`
	Date        time.Time `json:"date" bun:",nullzero,notnull,default:current_timestamp"`
}

// SignedAmount returns the entry's effect on the owning account's balance.
func (e *TransactionEntry) SignedAmount() int64 {
	if e.Direction == common.EntryDirectionDebit {
		return -e.Amount
	}
	return e.Amount
}
