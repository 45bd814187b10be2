package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Account : Account Model
// Balance is kept in minor units and is only ever changed through the store's ApplyDelta.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:account"`

	ID            int64     `json:"id" bun:",pk,autoincrement"`
	Name          string    `json:"name" bun:",notnull"`
	Email         string    `json:"email" bun:",notnull,unique"`
	Password      string    `json:"-" bun:",notnull"`
	AccountNumber string    `json:"accountNumber" bun:",notnull,unique"`
	Balance       int64     `json:"balance" bun:",notnull,default:0"`
	CreatedAt     time.Time `json:"createdAt" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `json:"updatedAt" bun:",nullzero,notnull,default:current_timestamp"`
}
