package services

import (
	"context"

	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/projectkey"
	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/workitem"
	"github.com/iota-uz/pmkit/modules/projects/domain/entities/scope"
	"github.com/iota-uz/pmkit/pkg/composables"
)

// MigrationOptions tunes the bulk re-derivation. PreferredKeys maps known
// organization/department names to the key they should receive, taking
// precedence over generated candidates.
type MigrationOptions struct {
	PreferredKeys map[string]string
}

type MigrationReport struct {
	Processed int
	Migrated  int
	Failed    int
}

// MigrationService clears and regenerates every key and slug of a tenant.
// It assumes exclusive access to the tenant's data: it must not run
// concurrently with normal traffic. Admin tooling only.
type MigrationService struct {
	keys    projectkey.Repository
	items   workitem.Repository
	scopes  scope.Repository
	keySvc  *KeyService
	slugSvc *SlugService
}

func NewMigrationService(
	keys projectkey.Repository,
	items workitem.Repository,
	scopes scope.Repository,
	keySvc *KeyService,
	slugSvc *SlugService,
) *MigrationService {
	return &MigrationService{
		keys:    keys,
		items:   items,
		scopes:  scopes,
		keySvc:  keySvc,
		slugSvc: slugSvc,
	}
}

func (s *MigrationService) Run(ctx context.Context, opts MigrationOptions) (MigrationReport, error) {
	logger := composables.UseLogger(ctx)
	report := MigrationReport{}

	// Phase 1: wipe. One transaction so a failure leaves the old state.
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		if err := s.keys.DeleteAll(txCtx); err != nil {
			return err
		}
		return s.items.ClearSlugs(txCtx)
	})
	if err != nil {
		return report, err
	}

	// Phase 2: one key per scope, tenant-level first so it exists as the
	// fallback for department scopes that fail.
	tenantScope, err := s.scopes.Get(ctx, nil)
	if err != nil {
		return report, err
	}
	if _, err := s.keySvc.Generate(ctx, GenerateKeyInput{
		CustomKey: opts.PreferredKeys[tenantScope.OrganizationName],
		IsDefault: true,
	}); err != nil {
		logger.WithError(err).WithField("scope", tenantScope.OrganizationName).
			Warn("migration: failed to generate tenant key")
	}

	departments, err := s.scopes.ListDepartments(ctx)
	if err != nil {
		return report, err
	}
	for _, dept := range departments {
		if _, err := s.keySvc.Generate(ctx, GenerateKeyInput{
			DepartmentID: dept.DepartmentID,
			CustomKey:    opts.PreferredKeys[dept.DepartmentName],
			IsDefault:    true,
		}); err != nil {
			logger.WithError(err).WithField("scope", dept.DepartmentName).
				Warn("migration: failed to generate department key")
		}
	}

	// Phase 3: re-assign slugs in creation order, projects before their
	// sprints and tasks, so historical numbering is preserved as closely
	// as possible. Per-entity failures are counted, never fatal.
	for _, kind := range workitem.Kinds {
		items, err := s.items.ListForMigration(ctx, kind)
		if err != nil {
			return report, err
		}
		for _, item := range items {
			report.Processed++
			slug, err := s.slugSvc.Assign(ctx, item.Ref)
			if err != nil {
				report.Failed++
				logger.WithError(err).WithField("ref", item.Ref.String()).
					Error("migration: failed to assign slug")
				continue
			}
			report.Migrated++
			logger.WithField("ref", item.Ref.String()).WithField("slug", slug).
				Debug("migration: slug assigned")
		}
	}

	return report, nil
}
