package persistence

import (
	"context"
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/pmkit/modules/projects/domain/entities/scope"
	"github.com/iota-uz/pmkit/pkg/composables"
)

type ScopeRepository struct{}

func NewScopeRepository() scope.Repository {
	return &ScopeRepository{}
}

func (r *ScopeRepository) Get(ctx context.Context, departmentID *uuid.UUID) (scope.Scope, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return scope.Scope{}, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return scope.Scope{}, err
	}

	if departmentID == nil {
		var orgName string
		if err := tx.QueryRow(ctx, "SELECT name FROM tenants WHERE id = $1", tenantID.String()).Scan(&orgName); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return scope.Scope{}, scope.ErrNotFound
			}
			return scope.Scope{}, gerrors.Wrap(err, "failed to read tenant")
		}
		return scope.Scope{TenantID: tenantID, OrganizationName: orgName}, nil
	}

	query := `SELECT t.name, d.name FROM departments d
		JOIN tenants t ON t.id = d.tenant_id
		WHERE d.id = $1 AND d.tenant_id = $2`
	var orgName, deptName string
	if err := tx.QueryRow(ctx, query, departmentID.String(), tenantID.String()).Scan(&orgName, &deptName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scope.Scope{}, scope.ErrNotFound
		}
		return scope.Scope{}, gerrors.Wrap(err, "failed to read department")
	}
	return scope.Scope{
		TenantID:         tenantID,
		DepartmentID:     departmentID,
		OrganizationName: orgName,
		DepartmentName:   deptName,
	}, nil
}

func (r *ScopeRepository) ListDepartments(ctx context.Context) ([]scope.Scope, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT d.id, t.name, d.name FROM departments d
		JOIN tenants t ON t.id = d.tenant_id
		WHERE d.tenant_id = $1 ORDER BY d.created_at, d.id`
	rows, err := tx.Query(ctx, query, tenantID.String())
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list departments")
	}
	defer rows.Close()

	var scopes []scope.Scope
	for rows.Next() {
		var idStr, orgName, deptName string
		if err := rows.Scan(&idStr, &orgName, &deptName); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan department row")
		}
		deptID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, scope.Scope{
			TenantID:         tenantID,
			DepartmentID:     &deptID,
			OrganizationName: orgName,
			DepartmentName:   deptName,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "row iteration error")
	}
	return scopes, nil
}
