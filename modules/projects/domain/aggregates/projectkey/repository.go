package projectkey

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/workitem"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Key, error)

	// GetByValue looks a key string up across the whole registry, all
	// tenants included: key uniqueness is global.
	GetByValue(ctx context.Context, value string) (Key, error)

	// Exists reports registry membership of a key string, globally.
	Exists(ctx context.Context, value string) (bool, error)

	// GetDefaultForScope returns the active default key of the exact
	// (tenant, department) scope; departmentID nil means the tenant-level
	// scope. ErrNotFound when the scope has no key yet.
	GetDefaultForScope(ctx context.Context, departmentID *uuid.UUID) (Key, error)

	Create(ctx context.Context, key Key) (Key, error)

	// DemoteDefaults clears is_default on every key of the scope, so a new
	// default can be inserted while preserving one-default-per-scope.
	DemoteDefaults(ctx context.Context, departmentID *uuid.UUID) error

	// IncrementCounter performs the conditional write at the heart of slug
	// assignment: bump the kind's counter from current to current+1 only
	// if it still holds current. Returns false when the row has moved on,
	// i.e. a concurrent assigner won the race.
	IncrementCounter(ctx context.Context, id uuid.UUID, kind workitem.Kind, current int) (bool, error)

	// DeleteAll removes every key of the current tenant. Bulk migration only.
	DeleteAll(ctx context.Context) error
}
