// Package projects wires the key/slug engine together: repositories,
// services and the embedded database schema. The surrounding CRUD layer
// consumes it as an in-process library.
package projects

import (
	"embed"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/pmkit/modules/projects/infrastructure/persistence"
	"github.com/iota-uz/pmkit/modules/projects/services"
	"github.com/iota-uz/pmkit/pkg/configuration"
	"github.com/iota-uz/pmkit/pkg/eventbus"
	"github.com/iota-uz/pmkit/pkg/migrations"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

// SchemaFS returns the embedded goose migrations, rooted at the directory
// containing the .sql files.
func SchemaFS() fs.FS {
	sub, err := fs.Sub(migrationFiles, "infrastructure/persistence/schema")
	if err != nil {
		panic(err)
	}
	return sub
}

func Migrations(pool *pgxpool.Pool) *migrations.Runner {
	return migrations.NewRunner(pool, SchemaFS())
}

type Services struct {
	Keys      *services.KeyService
	Slugs     *services.SlugService
	Migration *services.MigrationService
}

// NewServices builds the engine's service graph on the standard
// repositories.
func NewServices(publisher eventbus.EventBus, engine configuration.KeyEngineOptions) *Services {
	keyRepo := persistence.NewProjectKeyRepository()
	itemRepo := persistence.NewWorkItemRepository()
	scopeRepo := persistence.NewScopeRepository()

	keySvc := services.NewKeyService(keyRepo, scopeRepo, publisher, engine)
	slugSvc := services.NewSlugService(keyRepo, itemRepo, scopeRepo, publisher, engine)

	return &Services{
		Keys:      keySvc,
		Slugs:     slugSvc,
		Migration: services.NewMigrationService(keyRepo, itemRepo, scopeRepo, keySvc, slugSvc),
	}
}
