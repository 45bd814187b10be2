package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if db.Dialect().Name().String() != "pg" {
			fmt.Printf("\033[1;31m%s\033[0m", "You are not using PostgreSQL. DB level checks can not be enabled!\n")
			return nil
		}
		sql := `
			-- the conditional update in ApplyDelta already refuses to overdraw,
			-- this is the last line of defense if anything writes balances directly
				ALTER TABLE accounts
				ADD CONSTRAINT check_balance_not_negative
				CHECK (balance >= 0);

			-- ledger lines always carry a positive amount, the direction carries the sign
				ALTER TABLE transaction_entries
				ADD CONSTRAINT check_amount_positive
				CHECK (amount > 0);

				ALTER TABLE transaction_entries
				ADD CONSTRAINT check_direction
				CHECK (direction IN ('credit', 'debit'));

			-- transfer lines must name the counterparty account number
				ALTER TABLE transaction_entries
				ADD CONSTRAINT check_transfer_recipient
				CHECK (type <> 'transfer' OR (recipient IS NOT NULL AND transfer_id IS NOT NULL));
		`
		if _, err := db.Exec(sql); err != nil {
			return err
		}
		return nil
	}, nil)
}
