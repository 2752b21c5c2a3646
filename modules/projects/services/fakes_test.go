package services_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/projectkey"
	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/workitem"
	"github.com/iota-uz/pmkit/modules/projects/domain/entities/scope"
	"github.com/iota-uz/pmkit/modules/projects/services"
	"github.com/iota-uz/pmkit/pkg/composables"
	"github.com/iota-uz/pmkit/pkg/configuration"
	"github.com/iota-uz/pmkit/pkg/eventbus"
)

// stubTx satisfies pgx.Tx so InTx reuses it instead of demanding a pool.
// The fakes below never execute SQL, so the embedded interface is never
// called.
type stubTx struct{ pgx.Tx }

func testEngineOptions() configuration.KeyEngineOptions {
	return configuration.KeyEngineOptions{
		AssignAttempts: 8,
		AssignBackoff:  time.Millisecond,
		SuffixCeiling:  99,
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// ---- key registry fake ----

type keyRow struct {
	id           uuid.UUID
	tenantID     uuid.UUID
	departmentID *uuid.UUID
	value        string
	description  string
	isDefault    bool
	isActive     bool
	counters     map[workitem.Kind]int
	createdAt    time.Time
}

type memKeyRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*keyRow
}

func newMemKeyRepo() *memKeyRepo {
	return &memKeyRepo{rows: make(map[uuid.UUID]*keyRow)}
}

func (r *memKeyRepo) toDomain(row *keyRow) projectkey.Key {
	return projectkey.Hydrate(
		row.id, row.tenantID, row.departmentID, row.value, row.description,
		row.isDefault, row.isActive,
		row.counters[workitem.KindTask],
		row.counters[workitem.KindSprint],
		row.counters[workitem.KindProject],
		uuid.Nil, row.createdAt, row.createdAt,
	)
}

func (r *memKeyRepo) GetByID(_ context.Context, id uuid.UUID) (projectkey.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return projectkey.Key{}, projectkey.ErrNotFound
	}
	return r.toDomain(row), nil
}

func (r *memKeyRepo) GetByValue(_ context.Context, value string) (projectkey.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.value == value {
			return r.toDomain(row), nil
		}
	}
	return projectkey.Key{}, projectkey.ErrNotFound
}

func (r *memKeyRepo) Exists(_ context.Context, value string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.value == value {
			return true, nil
		}
	}
	return false, nil
}

func (r *memKeyRepo) GetDefaultForScope(ctx context.Context, departmentID *uuid.UUID) (projectkey.Key, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return projectkey.Key{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.tenantID == tenantID && sameDept(row.departmentID, departmentID) && row.isDefault && row.isActive {
			return r.toDomain(row), nil
		}
	}
	return projectkey.Key{}, projectkey.ErrNotFound
}

func (r *memKeyRepo) Create(ctx context.Context, key projectkey.Key) (projectkey.Key, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return projectkey.Key{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.value == key.Value() {
			return projectkey.Key{}, projectkey.ErrKeyTaken
		}
	}
	row := &keyRow{
		id:           uuid.New(),
		tenantID:     tenantID,
		departmentID: key.DepartmentID(),
		value:        key.Value(),
		description:  key.Description(),
		isDefault:    key.IsDefault(),
		isActive:     key.IsActive(),
		counters:     make(map[workitem.Kind]int),
		createdAt:    time.Now(),
	}
	r.rows[row.id] = row
	return r.toDomain(row), nil
}

func (r *memKeyRepo) DemoteDefaults(ctx context.Context, departmentID *uuid.UUID) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.tenantID == tenantID && sameDept(row.departmentID, departmentID) {
			row.isDefault = false
		}
	}
	return nil
}

func (r *memKeyRepo) IncrementCounter(_ context.Context, id uuid.UUID, kind workitem.Kind, current int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	if row.counters[kind] != current {
		return false, nil
	}
	row.counters[kind] = current + 1
	return true, nil
}

func (r *memKeyRepo) DeleteAll(ctx context.Context) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.tenantID == tenantID {
			delete(r.rows, id)
		}
	}
	return nil
}

func sameDept(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ---- work item fake ----

type itemRow struct {
	ref          workitem.Ref
	tenantID     uuid.UUID
	projectID    uuid.UUID
	departmentID *uuid.UUID // projects only
	name         string
	slug         string
	createdAt    time.Time
}

type memItemRepo struct {
	mu    sync.Mutex
	rows  map[workitem.Ref]*itemRow
	clock time.Time
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{
		rows:  make(map[workitem.Ref]*itemRow),
		clock: time.Unix(1700000000, 0),
	}
}

func (r *memItemRepo) add(tenantID uuid.UUID, kind workitem.Kind, projectID uuid.UUID, departmentID *uuid.UUID, name string) workitem.Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = r.clock.Add(time.Second)
	ref := workitem.Ref{Kind: kind, ID: uuid.New()}
	r.rows[ref] = &itemRow{
		ref:          ref,
		tenantID:     tenantID,
		projectID:    projectID,
		departmentID: departmentID,
		name:         name,
		createdAt:    r.clock,
	}
	return ref
}

func (r *memItemRepo) GetSlug(ctx context.Context, ref workitem.Ref) (string, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[ref]
	if !ok || row.tenantID != tenantID {
		return "", workitem.ErrNotFound
	}
	return row.slug, nil
}

func (r *memItemRepo) SetSlugIfEmpty(ctx context.Context, ref workitem.Ref, slug string) (string, bool, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return "", false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[ref]
	if !ok || row.tenantID != tenantID {
		return "", false, workitem.ErrNotFound
	}
	if row.slug != "" {
		return row.slug, false, nil
	}
	row.slug = slug
	return slug, true, nil
}

func (r *memItemRepo) FindBySlug(ctx context.Context, kind workitem.Kind, slug string) (workitem.Ref, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return workitem.Ref{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ref.Kind == kind && row.tenantID == tenantID && row.slug == slug && row.slug != "" {
			return row.ref, nil
		}
	}
	return workitem.Ref{}, workitem.ErrNotFound
}

func (r *memItemRepo) ResolveDepartment(ctx context.Context, ref workitem.Ref) (*uuid.UUID, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[ref]
	if !ok || row.tenantID != tenantID {
		return nil, workitem.ErrNotFound
	}
	if ref.Kind == workitem.KindProject {
		return row.departmentID, nil
	}
	parent, ok := r.rows[workitem.Ref{Kind: workitem.KindProject, ID: row.projectID}]
	if !ok {
		return nil, workitem.ErrNotFound
	}
	return parent.departmentID, nil
}

func (r *memItemRepo) ListForMigration(ctx context.Context, kind workitem.Kind) ([]workitem.Item, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []workitem.Item
	for _, row := range r.rows {
		if row.ref.Kind != kind || row.tenantID != tenantID {
			continue
		}
		items = append(items, workitem.Item{
			Ref:       row.ref,
			ProjectID: row.projectID,
			Name:      row.name,
			CreatedAt: row.createdAt,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return strings.Compare(items[i].Ref.ID.String(), items[j].Ref.ID.String()) < 0
	})
	return items, nil
}

func (r *memItemRepo) ClearSlugs(ctx context.Context) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.tenantID == tenantID {
			row.slug = ""
		}
	}
	return nil
}

// ---- scope fake ----

type memScopeRepo struct {
	mu    sync.Mutex
	orgs  map[uuid.UUID]string
	depts map[uuid.UUID]scope.Scope
}

func newMemScopeRepo() *memScopeRepo {
	return &memScopeRepo{
		orgs:  make(map[uuid.UUID]string),
		depts: make(map[uuid.UUID]scope.Scope),
	}
}

func (r *memScopeRepo) addOrg(tenantID uuid.UUID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orgs[tenantID] = name
}

func (r *memScopeRepo) addDepartment(tenantID uuid.UUID, name string) *uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.depts[id] = scope.Scope{
		TenantID:         tenantID,
		DepartmentID:     &id,
		OrganizationName: r.orgs[tenantID],
		DepartmentName:   name,
	}
	return &id
}

func (r *memScopeRepo) Get(ctx context.Context, departmentID *uuid.UUID) (scope.Scope, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return scope.Scope{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	orgName, ok := r.orgs[tenantID]
	if !ok {
		return scope.Scope{}, scope.ErrNotFound
	}
	if departmentID == nil {
		return scope.Scope{TenantID: tenantID, OrganizationName: orgName}, nil
	}
	dept, ok := r.depts[*departmentID]
	if !ok || dept.TenantID != tenantID {
		return scope.Scope{}, scope.ErrNotFound
	}
	return dept, nil
}

func (r *memScopeRepo) ListDepartments(ctx context.Context) ([]scope.Scope, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []scope.Scope
	for _, dept := range r.depts {
		if dept.TenantID == tenantID {
			out = append(out, dept)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].DepartmentID.String(), out[j].DepartmentID.String()) < 0
	})
	return out, nil
}

// ---- fixture ----

type fixture struct {
	t        *testing.T
	tenantID uuid.UUID
	ctx      context.Context

	keys   *memKeyRepo
	items  *memItemRepo
	scopes *memScopeRepo

	keySvc  *services.KeyService
	slugSvc *services.SlugService
	migSvc  *services.MigrationService
}

func newFixture(t *testing.T, orgName string) *fixture {
	t.Helper()
	return newFixtureWithRegistry(t, orgName, newMemKeyRepo())
}

// newFixtureWithRegistry shares a key registry between fixtures, modelling
// the global key uniqueness constraint across tenants.
func newFixtureWithRegistry(t *testing.T, orgName string, keys *memKeyRepo) *fixture {
	t.Helper()

	tenantID := uuid.New()
	items := newMemItemRepo()
	scopes := newMemScopeRepo()
	scopes.addOrg(tenantID, orgName)

	publisher := eventbus.NewEventPublisher(quietLogger())
	engine := testEngineOptions()

	keySvc := services.NewKeyService(keys, scopes, publisher, engine)
	slugSvc := services.NewSlugService(keys, items, scopes, publisher, engine)
	migSvc := services.NewMigrationService(keys, items, scopes, keySvc, slugSvc)

	ctx := composables.WithTx(context.Background(), stubTx{})
	ctx = composables.WithTenantID(ctx, tenantID)
	ctx = composables.WithLogger(ctx, logrus.NewEntry(quietLogger()))

	return &fixture{
		t:        t,
		tenantID: tenantID,
		ctx:      ctx,
		keys:     keys,
		items:    items,
		scopes:   scopes,
		keySvc:   keySvc,
		slugSvc:  slugSvc,
		migSvc:   migSvc,
	}
}

func (f *fixture) addProject(departmentID *uuid.UUID, name string) workitem.Ref {
	return f.items.add(f.tenantID, workitem.KindProject, uuid.Nil, departmentID, name)
}

func (f *fixture) addTask(project workitem.Ref, name string) workitem.Ref {
	return f.items.add(f.tenantID, workitem.KindTask, project.ID, nil, name)
}

func (f *fixture) addSprint(project workitem.Ref, name string) workitem.Ref {
	return f.items.add(f.tenantID, workitem.KindSprint, project.ID, nil, name)
}
