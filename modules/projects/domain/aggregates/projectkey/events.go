package projectkey

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/pmkit/pkg/composables"
)

type CreatedEvent struct {
	TenantID uuid.UUID
	Result   Key
}

func NewCreatedEvent(ctx context.Context) (*CreatedEvent, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return &CreatedEvent{TenantID: tenantID}, nil
}
