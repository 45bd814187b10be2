package migrations

import (
	"context"

	"github.com/makbank/bankhub.go/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// GET /transactions lists an account's entries newest first
		_, err := db.NewCreateIndex().
			Model((*models.TransactionEntry)(nil)).
			Index("transaction_entries_account_id_date_idx").
			IfNotExists().
			ColumnExpr("account_id, date DESC, id DESC").
			Exec(ctx)
		return err
	}, nil)
}
