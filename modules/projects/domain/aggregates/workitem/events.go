package workitem

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/pmkit/pkg/composables"
)

// SlugAssignedEvent is published once per entity, after its permanent slug
// is persisted.
type SlugAssignedEvent struct {
	TenantID uuid.UUID
	Ref      Ref
	Slug     string
	Number   int
}

func NewSlugAssignedEvent(ctx context.Context, ref Ref, slug string, number int) (*SlugAssignedEvent, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return &SlugAssignedEvent{
		TenantID: tenantID,
		Ref:      ref,
		Slug:     slug,
		Number:   number,
	}, nil
}
