package workitem

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// GetSlug returns the entity's current slug, empty when none is
	// assigned yet. ErrNotFound when the entity does not exist.
	GetSlug(ctx context.Context, ref Ref) (string, error)

	// SetSlugIfEmpty writes the slug onto the entity only when no slug is
	// present. It returns the slug now on the entity and whether this call
	// wrote it; wrote == false means a concurrent assigner won.
	SetSlugIfEmpty(ctx context.Context, ref Ref, slug string) (string, bool, error)

	// FindBySlug looks one table up by exact slug. ErrNotFound on miss.
	FindBySlug(ctx context.Context, kind Kind, slug string) (Ref, error)

	// ResolveDepartment returns the department the entity belongs to
	// (through its project for sprints and tasks), nil when the entity
	// hangs directly off the organization. ErrNotFound when the entity or
	// its parent project is missing.
	ResolveDepartment(ctx context.Context, ref Ref) (*uuid.UUID, error)

	// ListForMigration returns every entity of a kind for the current
	// tenant ordered by creation time, oldest first.
	ListForMigration(ctx context.Context, kind Kind) ([]Item, error)

	// ClearSlugs nulls out the slug on every task, project and sprint of
	// the current tenant. Bulk migration only.
	ClearSlugs(ctx context.Context) error
}
