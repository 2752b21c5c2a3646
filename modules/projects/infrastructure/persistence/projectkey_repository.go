package persistence

import (
	"context"
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/projectkey"
	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/workitem"
	"github.com/iota-uz/pmkit/modules/projects/infrastructure/persistence/models"
	"github.com/iota-uz/pmkit/pkg/composables"
)

const (
	uniqueViolation = "23505"

	keySelectQuery = `
		SELECT id, tenant_id, department_id, key, description, is_default, is_active,
		       last_task_number, last_sprint_number, last_project_number,
		       created_by, created_at, updated_at
		FROM project_keys`
)

type ProjectKeyRepository struct{}

func NewProjectKeyRepository() projectkey.Repository {
	return &ProjectKeyRepository{}
}

func (r *ProjectKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (projectkey.Key, error) {
	return r.queryOne(ctx, keySelectQuery+" WHERE id = $1", id.String())
}

func (r *ProjectKeyRepository) GetByValue(ctx context.Context, value string) (projectkey.Key, error) {
	// Deliberately not tenant-filtered: key uniqueness is global.
	return r.queryOne(ctx, keySelectQuery+" WHERE key = $1", value)
}

func (r *ProjectKeyRepository) Exists(ctx context.Context, value string) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM project_keys WHERE key = $1)", value).Scan(&exists); err != nil {
		return false, gerrors.Wrap(err, "failed to check key existence")
	}
	return exists, nil
}

func (r *ProjectKeyRepository) GetDefaultForScope(ctx context.Context, departmentID *uuid.UUID) (projectkey.Key, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return projectkey.Key{}, err
	}
	query := keySelectQuery + ` WHERE tenant_id = $1
		AND department_id IS NOT DISTINCT FROM $2
		AND is_default AND is_active`
	return r.queryOne(ctx, query, tenantID.String(), uuidOrNil(departmentID))
}

func (r *ProjectKeyRepository) Create(ctx context.Context, key projectkey.Key) (projectkey.Key, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return projectkey.Key{}, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return projectkey.Key{}, err
	}

	query := `
		INSERT INTO project_keys (tenant_id, department_id, key, description, is_default, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		tenantID.String(),
		uuidOrNil(key.DepartmentID()),
		key.Value(),
		key.Description(),
		key.IsDefault(),
		key.IsActive(),
		uuidOrNilValue(key.CreatedBy()),
	).Scan(&idStr); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return projectkey.Key{}, projectkey.ErrKeyTaken
		}
		return projectkey.Key{}, gerrors.Wrap(err, "failed to insert project key")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return projectkey.Key{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *ProjectKeyRepository) DemoteDefaults(ctx context.Context, departmentID *uuid.UUID) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := `
		UPDATE project_keys SET is_default = FALSE, updated_at = now()
		WHERE tenant_id = $1 AND department_id IS NOT DISTINCT FROM $2 AND is_default`
	if _, err := tx.Exec(ctx, query, tenantID.String(), uuidOrNil(departmentID)); err != nil {
		return gerrors.Wrap(err, "failed to demote default keys")
	}
	return nil
}

// IncrementCounter is the engine's only counter write path. The WHERE clause
// carries the value read by the caller; zero rows affected means another
// assigner committed first and the caller must re-read and retry.
func (r *ProjectKeyRepository) IncrementCounter(ctx context.Context, id uuid.UUID, kind workitem.Kind, current int) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}

	var column string
	switch kind {
	case workitem.KindSprint:
		column = "last_sprint_number"
	case workitem.KindProject:
		column = "last_project_number"
	case workitem.KindTask:
		column = "last_task_number"
	default:
		return false, gerrors.Errorf("unknown work item kind: %q", kind)
	}

	query := `UPDATE project_keys SET ` + column + ` = $2 + 1, updated_at = now() WHERE id = $1 AND ` + column + ` = $2`
	tag, err := tx.Exec(ctx, query, id.String(), current)
	if err != nil {
		return false, gerrors.Wrap(err, "failed to increment slug counter")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ProjectKeyRepository) DeleteAll(ctx context.Context) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM project_keys WHERE tenant_id = $1", tenantID.String()); err != nil {
		return gerrors.Wrap(err, "failed to delete project keys")
	}
	return nil
}

func (r *ProjectKeyRepository) queryOne(ctx context.Context, query string, args ...interface{}) (projectkey.Key, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return projectkey.Key{}, err
	}

	var row models.ProjectKey
	if err := tx.QueryRow(ctx, query, args...).Scan(
		&row.ID,
		&row.TenantID,
		&row.DepartmentID,
		&row.Key,
		&row.Description,
		&row.IsDefault,
		&row.IsActive,
		&row.LastTaskNumber,
		&row.LastSprintNumber,
		&row.LastProjectNumber,
		&row.CreatedBy,
		&row.CreatedAt,
		&row.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return projectkey.Key{}, projectkey.ErrNotFound
		}
		return projectkey.Key{}, gerrors.Wrap(err, "failed to query project key")
	}
	return toDomainKey(&row), nil
}

func toDomainKey(row *models.ProjectKey) projectkey.Key {
	id, _ := uuid.Parse(row.ID)
	tenantID, _ := uuid.Parse(row.TenantID)

	var departmentID *uuid.UUID
	if row.DepartmentID.Valid {
		if parsed, err := uuid.Parse(row.DepartmentID.String); err == nil {
			departmentID = &parsed
		}
	}
	createdBy := uuid.Nil
	if row.CreatedBy.Valid {
		createdBy, _ = uuid.Parse(row.CreatedBy.String)
	}

	return projectkey.Hydrate(
		id,
		tenantID,
		departmentID,
		row.Key,
		row.Description,
		row.IsDefault,
		row.IsActive,
		row.LastTaskNumber,
		row.LastSprintNumber,
		row.LastProjectNumber,
		createdBy,
		row.CreatedAt,
		row.UpdatedAt,
	)
}

func uuidOrNil(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func uuidOrNilValue(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}
