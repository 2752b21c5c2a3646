package services_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/projectkey"
	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/workitem"
	"github.com/iota-uz/pmkit/modules/projects/services"
)

func TestMigration_RegeneratesKeysAndSlugs(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "Acme Corp")
	deptID := f.scopes.addDepartment(f.tenantID, "Marketing")

	tenantProject := f.addProject(nil, "Launch")
	taskA := f.addTask(tenantProject, "Deploy")
	taskB := f.addTask(tenantProject, "Announce")
	deptProject := f.addProject(deptID, "Campaign")
	deptTask := f.addTask(deptProject, "Brief")

	report, err := f.migSvc.Run(f.ctx, services.MigrationOptions{
		PreferredKeys: map[string]string{
			"Acme Corp": "ACME",
			"Marketing": "MKT",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, report.Processed)
	assert.Equal(t, 5, report.Migrated)
	assert.Equal(t, 0, report.Failed)

	want := map[workitem.Ref]string{
		tenantProject: "ACME-P-1",
		taskA:         "ACME-1",
		taskB:         "ACME-2",
		deptProject:   "MKT-P-1",
		deptTask:      "MKT-1",
	}
	for ref, expected := range want {
		slug, err := f.items.GetSlug(f.ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, expected, slug, "ref %s", ref.String())
	}
}

func TestMigration_WipesPreviousKeysAndSlugs(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "Acme")

	_, err := f.keySvc.Generate(f.ctx, services.GenerateKeyInput{
		CustomKey: "OLD",
		IsDefault: true,
	})
	require.NoError(t, err)

	project := f.addProject(nil, "Launch")
	task := f.addTask(project, "Deploy")
	slug, err := f.slugSvc.Assign(f.ctx, task)
	require.NoError(t, err)
	assert.Equal(t, "OLD-1", slug)

	report, err := f.migSvc.Run(f.ctx, services.MigrationOptions{
		PreferredKeys: map[string]string{"Acme": "NEWK"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Failed)

	slug, err = f.items.GetSlug(f.ctx, task)
	require.NoError(t, err)
	assert.Equal(t, "NEWK-1", slug)

	_, err = f.keys.GetByValue(f.ctx, "OLD")
	require.ErrorIs(t, err, projectkey.ErrNotFound)
}

func TestMigration_NumbersFollowCreationOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "Acme")
	project := f.addProject(nil, "Launch")

	first := f.addTask(project, "first")
	second := f.addTask(project, "second")
	third := f.addTask(project, "third")

	report, err := f.migSvc.Run(f.ctx, services.MigrationOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Failed)

	for ref, expected := range map[workitem.Ref]string{
		first:  "ACME-1",
		second: "ACME-2",
		third:  "ACME-3",
	} {
		slug, err := f.items.GetSlug(f.ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, expected, slug)
	}
}

func TestMigration_PerEntityFailureIsCounted(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "Acme")
	project := f.addProject(nil, "Launch")
	f.addTask(project, "Deploy")

	// A task pointing at a project that no longer exists cannot resolve a
	// scope; it fails without aborting the run.
	f.items.add(f.tenantID, workitem.KindTask, uuid.New(), nil, "orphan")

	report, err := f.migSvc.Run(f.ctx, services.MigrationOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 2, report.Migrated)
	assert.Equal(t, 1, report.Failed)
}
