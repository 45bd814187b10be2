package migrations

import (
	"context"

	"github.com/makbank/bankhub.go/db/models"
	"github.com/uptrace/bun"
)

/* Since this init will reflect the latest model fields when run on fresh db
make sure that when you add/remove columns in subsequent migrations IfNotExists/IfExists is used
otherwise it's going to result in errors.
*/
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if _, err := db.NewCreateTable().Model((*models.Account)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.TransactionEntry)(nil)).
			IfNotExists().
			ForeignKey(`("account_id") REFERENCES "accounts" ("id")`).
			Exec(ctx); err != nil {
			return err
		}

		return nil
	}, nil)
}
