// Package projectkey holds the key registry aggregate: the durable binding
// between a short human-readable key (ACME) and the scope it was minted
// for, together with the per-kind slug counters.
package projectkey

import (
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/workitem"
)

const (
	MinKeyLength = 2
	MaxKeyLength = 8
)

type Key struct {
	id           uuid.UUID
	tenantID     uuid.UUID
	departmentID *uuid.UUID
	value        string
	description  string
	isDefault    bool
	isActive     bool

	lastTaskNumber    int
	lastSprintNumber  int
	lastProjectNumber int

	createdBy uuid.UUID
	createdAt time.Time
	updatedAt time.Time
}

type Option func(*Key)

func WithDepartmentID(departmentID *uuid.UUID) Option {
	return func(k *Key) { k.departmentID = departmentID }
}

func WithDescription(description string) Option {
	return func(k *Key) { k.description = description }
}

func WithDefault(isDefault bool) Option {
	return func(k *Key) { k.isDefault = isDefault }
}

func WithCreatedBy(userID uuid.UUID) Option {
	return func(k *Key) { k.createdBy = userID }
}

// New builds an unsaved key with all counters at zero.
func New(tenantID uuid.UUID, value string, opts ...Option) Key {
	k := Key{
		tenantID:  tenantID,
		value:     value,
		isDefault: true,
		isActive:  true,
	}
	for _, opt := range opts {
		opt(&k)
	}
	return k
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	departmentID *uuid.UUID,
	value string,
	description string,
	isDefault bool,
	isActive bool,
	lastTaskNumber int,
	lastSprintNumber int,
	lastProjectNumber int,
	createdBy uuid.UUID,
	createdAt time.Time,
	updatedAt time.Time,
) Key {
	return Key{
		id:                id,
		tenantID:          tenantID,
		departmentID:      departmentID,
		value:             value,
		description:       description,
		isDefault:         isDefault,
		isActive:          isActive,
		lastTaskNumber:    lastTaskNumber,
		lastSprintNumber:  lastSprintNumber,
		lastProjectNumber: lastProjectNumber,
		createdBy:         createdBy,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

func (k Key) ID() uuid.UUID               { return k.id }
func (k Key) TenantID() uuid.UUID         { return k.tenantID }
func (k Key) DepartmentID() *uuid.UUID    { return k.departmentID }
func (k Key) Value() string               { return k.value }
func (k Key) Description() string         { return k.description }
func (k Key) IsDefault() bool             { return k.isDefault }
func (k Key) IsActive() bool              { return k.isActive }
func (k Key) CreatedBy() uuid.UUID        { return k.createdBy }
func (k Key) CreatedAt() time.Time        { return k.createdAt }
func (k Key) UpdatedAt() time.Time        { return k.updatedAt }
func (k Key) IsZero() bool                { return k.id == uuid.Nil && k.value == "" }

// Counter returns the last number handed out for the given entity kind.
func (k Key) Counter(kind workitem.Kind) int {
	switch kind {
	case workitem.KindSprint:
		return k.lastSprintNumber
	case workitem.KindProject:
		return k.lastProjectNumber
	default:
		return k.lastTaskNumber
	}
}
