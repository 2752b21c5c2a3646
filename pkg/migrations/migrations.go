// Package migrations runs embedded goose migrations against the pool the
// rest of the engine uses.
package migrations

import (
	"context"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type Runner struct {
	pool *pgxpool.Pool
	fsys fs.FS // rooted at the directory holding the .sql files
}

func NewRunner(pool *pgxpool.Pool, fsys fs.FS) *Runner {
	return &Runner{pool: pool, fsys: fsys}
}

func (r *Runner) Up(ctx context.Context) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, stdlib.OpenDBFromPool(r.pool), r.fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

func (r *Runner) Down(ctx context.Context) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, stdlib.OpenDBFromPool(r.pool), r.fsys)
	if err != nil {
		return err
	}
	_, err = provider.Down(ctx)
	return err
}
