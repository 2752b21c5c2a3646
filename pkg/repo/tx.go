// Package repo holds the thin database abstractions shared by all
// persistence code. Repositories never open connections themselves; they
// receive a Tx through the context (see pkg/composables).
package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Tx is the subset of pgx.Tx repositories are allowed to use. Both pgx.Tx
// and *pgxpool.Pool satisfy it, so read paths can run outside an explicit
// transaction while writes run inside one.
type Tx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
