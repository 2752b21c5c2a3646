// Package scope describes what a key is minted for: the tenant's
// organization, optionally narrowed to one department.
package scope

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("scope not found")

type Scope struct {
	TenantID         uuid.UUID
	DepartmentID     *uuid.UUID
	OrganizationName string
	DepartmentName   string
}

func (s Scope) IsDepartment() bool { return s.DepartmentID != nil }

type Repository interface {
	// Get validates that the scope exists and returns its display names.
	// departmentID nil addresses the tenant-level scope.
	Get(ctx context.Context, departmentID *uuid.UUID) (Scope, error)

	// ListDepartments returns every department scope of the current
	// tenant, used by the bulk migration to re-derive one key per scope.
	ListDepartments(ctx context.Context) ([]Scope, error)
}
