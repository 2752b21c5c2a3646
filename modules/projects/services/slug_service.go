package services

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/projectkey"
	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/workitem"
	"github.com/iota-uz/pmkit/modules/projects/domain/entities/scope"
	"github.com/iota-uz/pmkit/pkg/composables"
	"github.com/iota-uz/pmkit/pkg/configuration"
	"github.com/iota-uz/pmkit/pkg/eventbus"
)

type SlugService struct {
	keys      projectkey.Repository
	items     workitem.Repository
	scopes    scope.Repository
	publisher eventbus.EventBus
	engine    configuration.KeyEngineOptions
}

func NewSlugService(
	keys projectkey.Repository,
	items workitem.Repository,
	scopes scope.Repository,
	publisher eventbus.EventBus,
	engine configuration.KeyEngineOptions,
) *SlugService {
	return &SlugService{
		keys:      keys,
		items:     items,
		scopes:    scopes,
		publisher: publisher,
		engine:    engine,
	}
}

// Assign attaches a permanent slug to the entity. Idempotent: an entity
// that already carries a slug gets it back unchanged, with no counter
// increment. Concurrency-safe through the conditional counter write; no
// lock is held between the read and the write.
func (s *SlugService) Assign(ctx context.Context, ref workitem.Ref) (string, error) {
	if !ref.Kind.Valid() {
		return "", gerrors.Errorf("unknown work item kind: %q", ref.Kind)
	}

	existing, err := s.items.GetSlug(ctx, ref)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}

	departmentID, err := s.items.ResolveDepartment(ctx, ref)
	if err != nil {
		return "", err
	}

	key, err := s.keyForScope(ctx, departmentID)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < s.engine.AssignAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(s.engine.AssignBackoff)
			key, err = s.keys.GetByID(ctx, key.ID())
			if err != nil {
				return "", err
			}
		}

		current := key.Counter(ref.Kind)
		won, err := s.keys.IncrementCounter(ctx, key.ID(), ref.Kind, current)
		if err != nil {
			return "", err
		}
		if !won {
			continue
		}

		slug := workitem.FormatSlug(key.Value(), ref.Kind, current+1)
		onEntity, wrote, err := s.items.SetSlugIfEmpty(ctx, ref, slug)
		if err != nil {
			return "", err
		}
		if !wrote {
			// Another assigner slugged this entity between our existence
			// check and now. Our counter increment stays behind as an
			// accepted gap; uniqueness is unaffected.
			return onEntity, nil
		}

		if ev, evErr := workitem.NewSlugAssignedEvent(ctx, ref, slug, current+1); evErr == nil {
			s.publisher.Publish(ev)
		}
		return slug, nil
	}

	return "", projectkey.ErrConcurrentAssignment.WithDetails(
		"key %s, kind %s, %d attempts", key.Value(), ref.Kind, s.engine.AssignAttempts)
}

// keyForScope finds the registry row slugs are minted from: the exact
// department scope first, then the tenant-level default. A scope with no
// key at all takes the degraded inline path and mints one on the fly.
func (s *SlugService) keyForScope(ctx context.Context, departmentID *uuid.UUID) (projectkey.Key, error) {
	key, err := s.keys.GetDefaultForScope(ctx, departmentID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, projectkey.ErrNotFound) {
		return projectkey.Key{}, err
	}

	if departmentID != nil {
		key, err = s.keys.GetDefaultForScope(ctx, nil)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, projectkey.ErrNotFound) {
			return projectkey.Key{}, err
		}
	}

	return s.mintFallbackKey(ctx, departmentID)
}

// mintFallbackKey creates a registry row inline during assignment. Keys
// minted here can be low quality (down to a timestamp-derived string when
// the scope has no usable name); explicit key generation ahead of first
// use is the supported path.
func (s *SlugService) mintFallbackKey(ctx context.Context, departmentID *uuid.UUID) (projectkey.Key, error) {
	logger := composables.UseLogger(ctx)

	var created projectkey.Key
	var err error
	for attempt := 0; ; attempt++ {
		created, err = composables.InTxResult(ctx, func(txCtx context.Context) (projectkey.Key, error) {
			// Double-check inside the transaction; a concurrent assigner
			// may have minted the scope's key already.
			if existing, err := s.keys.GetDefaultForScope(txCtx, departmentID); err == nil {
				return existing, nil
			} else if !errors.Is(err, projectkey.ErrNotFound) {
				return projectkey.Key{}, err
			}

			sc, err := s.scopes.Get(txCtx, departmentID)
			if err != nil {
				if errors.Is(err, scope.ErrNotFound) {
					return projectkey.Key{}, projectkey.ErrScopeNotFound
				}
				return projectkey.Key{}, err
			}

			candidates := projectkey.Candidates(sc.OrganizationName, sc.DepartmentName)
			if len(candidates) == 0 {
				candidates = []string{projectkey.FallbackCandidate(time.Now())}
			}
			value, err := resolveUniqueKey(txCtx, s.keys, candidates, s.engine.SuffixCeiling)
			if err != nil {
				return projectkey.Key{}, err
			}

			entity := projectkey.New(
				sc.TenantID,
				value,
				projectkey.WithDepartmentID(departmentID),
				projectkey.WithDescription("auto-generated during slug assignment"),
				projectkey.WithDefault(true),
			)
			return s.keys.Create(txCtx, entity)
		})
		if errors.Is(err, projectkey.ErrKeyTaken) && attempt < insertRaces {
			continue
		}
		break
	}
	if err != nil {
		return projectkey.Key{}, err
	}

	logger.WithField("key", created.Value()).
		Warn("minted fallback project key during slug assignment; prefer explicit key generation")
	return created, nil
}

// Resolve finds the entity a slug names. The entity kind is inferred from
// the slug's shape unless the caller supplies a hint; unrecognizable
// shapes fall back to probing tasks, then projects, then sprints. Never
// mutates state; a miss is workitem.ErrNotFound, not a failure.
func (s *SlugService) Resolve(ctx context.Context, raw string, hint workitem.Kind) (workitem.Ref, error) {
	slug := workitem.NormalizeSlug(raw)
	if slug == "" {
		return workitem.Ref{}, workitem.ErrNotFound
	}

	if hint != "" {
		if !hint.Valid() {
			return workitem.Ref{}, gerrors.Errorf("unknown work item kind: %q", hint)
		}
		return s.items.FindBySlug(ctx, hint, slug)
	}

	if kind, ok := workitem.GuessKind(slug); ok {
		return s.items.FindBySlug(ctx, kind, slug)
	}

	for _, kind := range []workitem.Kind{workitem.KindTask, workitem.KindProject, workitem.KindSprint} {
		ref, err := s.items.FindBySlug(ctx, kind, slug)
		if err == nil {
			return ref, nil
		}
		if !errors.Is(err, workitem.ErrNotFound) {
			return workitem.Ref{}, err
		}
	}
	return workitem.Ref{}, workitem.ErrNotFound
}
