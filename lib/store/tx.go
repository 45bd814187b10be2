package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type txFinisher interface {
	Commit() error
	Rollback() error
}

// finishTx runs fn and then commits, or rolls back on error or panic.
func finishTx(ctx context.Context, tx txFinisher, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = rollback(tx, fmt.Errorf("store: panic in transaction: %v", p))
		}
	}()

	if err := fn(ctx); err != nil {
		return rollback(tx, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func rollback(tx txFinisher, cause error) error {
	// database/sql rolls back by itself when the context is done, ErrTxDone means nothing is left to undo
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		return &IntegrityError{Cause: cause, RollbackErr: rbErr}
	}
	return cause
}
