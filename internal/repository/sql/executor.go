package sql

import (
	"context"
	"database/sql"
)

// dbExecutor is satisfied by both *sql.DB and *sql.Tx, so ProductRepository
// runs the same statements inside and outside WithinTransaction.
type dbExecutor interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
