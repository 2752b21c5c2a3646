package persistence

import (
	"context"
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/workitem"
	"github.com/iota-uz/pmkit/modules/projects/infrastructure/persistence/models"
	"github.com/iota-uz/pmkit/pkg/composables"
)

type WorkItemRepository struct{}

func NewWorkItemRepository() workitem.Repository {
	return &WorkItemRepository{}
}

func tableFor(kind workitem.Kind) (string, error) {
	switch kind {
	case workitem.KindTask:
		return "tasks", nil
	case workitem.KindProject:
		return "projects", nil
	case workitem.KindSprint:
		return "sprints", nil
	}
	return "", gerrors.Errorf("unknown work item kind: %q", kind)
}

func (r *WorkItemRepository) GetSlug(ctx context.Context, ref workitem.Ref) (string, error) {
	table, err := tableFor(ref.Kind)
	if err != nil {
		return "", err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return "", err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return "", err
	}

	var slug *string
	query := `SELECT slug FROM ` + table + ` WHERE id = $1 AND tenant_id = $2`
	if err := tx.QueryRow(ctx, query, ref.ID.String(), tenantID.String()).Scan(&slug); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", workitem.ErrNotFound
		}
		return "", gerrors.Wrap(err, "failed to read slug")
	}
	if slug == nil {
		return "", nil
	}
	return *slug, nil
}

func (r *WorkItemRepository) SetSlugIfEmpty(ctx context.Context, ref workitem.Ref, slug string) (string, bool, error) {
	table, err := tableFor(ref.Kind)
	if err != nil {
		return "", false, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return "", false, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return "", false, err
	}

	query := `UPDATE ` + table + ` SET slug = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND slug IS NULL`
	tag, err := tx.Exec(ctx, query, ref.ID.String(), tenantID.String(), slug)
	if err != nil {
		return "", false, gerrors.Wrap(err, "failed to write slug")
	}
	if tag.RowsAffected() == 1 {
		return slug, true, nil
	}

	// Lost the entity-write race (or the entity vanished): report whatever
	// slug is on the row now.
	current, err := r.GetSlug(ctx, ref)
	if err != nil {
		return "", false, err
	}
	return current, false, nil
}

func (r *WorkItemRepository) FindBySlug(ctx context.Context, kind workitem.Kind, slug string) (workitem.Ref, error) {
	table, err := tableFor(kind)
	if err != nil {
		return workitem.Ref{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return workitem.Ref{}, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return workitem.Ref{}, err
	}

	var idStr string
	query := `SELECT id FROM ` + table + ` WHERE slug = $1 AND tenant_id = $2`
	if err := tx.QueryRow(ctx, query, slug, tenantID.String()).Scan(&idStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return workitem.Ref{}, workitem.ErrNotFound
		}
		return workitem.Ref{}, gerrors.Wrap(err, "failed to look up slug")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return workitem.Ref{}, err
	}
	return workitem.Ref{Kind: kind, ID: id}, nil
}

func (r *WorkItemRepository) ResolveDepartment(ctx context.Context, ref workitem.Ref) (*uuid.UUID, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var query string
	switch ref.Kind {
	case workitem.KindProject:
		query = `SELECT department_id FROM projects WHERE id = $1 AND tenant_id = $2`
	case workitem.KindSprint:
		query = `SELECT p.department_id FROM sprints s
			JOIN projects p ON p.id = s.project_id
			WHERE s.id = $1 AND s.tenant_id = $2`
	case workitem.KindTask:
		query = `SELECT p.department_id FROM tasks t
			JOIN projects p ON p.id = t.project_id
			WHERE t.id = $1 AND t.tenant_id = $2`
	default:
		return nil, gerrors.Errorf("unknown work item kind: %q", ref.Kind)
	}

	var deptStr *string
	if err := tx.QueryRow(ctx, query, ref.ID.String(), tenantID.String()).Scan(&deptStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workitem.ErrNotFound
		}
		return nil, gerrors.Wrap(err, "failed to resolve work item scope")
	}
	if deptStr == nil {
		return nil, nil
	}
	deptID, err := uuid.Parse(*deptStr)
	if err != nil {
		return nil, err
	}
	return &deptID, nil
}

func (r *WorkItemRepository) ListForMigration(ctx context.Context, kind workitem.Kind) ([]workitem.Item, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	projectCol := "project_id"
	if kind == workitem.KindProject {
		projectCol = "NULL"
	}
	query := `SELECT id, ` + projectCol + `, name, created_at FROM ` + table + `
		WHERE tenant_id = $1 ORDER BY created_at, id`
	rows, err := tx.Query(ctx, query, tenantID.String())
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list work items")
	}
	defer rows.Close()

	var items []workitem.Item
	for rows.Next() {
		var row models.WorkItem
		if err := rows.Scan(&row.ID, &row.ProjectID, &row.Name, &row.CreatedAt); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan work item row")
		}
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, err
		}
		projectID := uuid.Nil
		if row.ProjectID.Valid {
			projectID, _ = uuid.Parse(row.ProjectID.String)
		}
		items = append(items, workitem.Item{
			Ref:       workitem.Ref{Kind: kind, ID: id},
			ProjectID: projectID,
			Name:      row.Name,
			CreatedAt: row.CreatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "row iteration error")
	}
	return items, nil
}

func (r *WorkItemRepository) ClearSlugs(ctx context.Context) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, table := range []string{"tasks", "sprints", "projects"} {
		query := `UPDATE ` + table + ` SET slug = NULL, updated_at = now() WHERE tenant_id = $1 AND slug IS NOT NULL`
		if _, err := tx.Exec(ctx, query, tenantID.String()); err != nil {
			return gerrors.Wrap(err, "failed to clear slugs")
		}
	}
	return nil
}
