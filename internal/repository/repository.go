package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cardvault/card-service/internal/service"
)

const defaultPageLimit = 50

// Repository provides database operations over Postgres. Audit writes run on
// the bare connection pool, never inside a caller's transaction, so a rolled
// back business operation cannot undo its audit trail.
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// WithinTx runs fn inside a read-committed transaction. Any error from fn
// rolls the whole unit of work back.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx service.TransferTx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&transferTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func limitOffset(page service.Page) (int, int) {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
