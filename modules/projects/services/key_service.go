package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"

	"github.com/iota-uz/pmkit/modules/projects/domain/aggregates/projectkey"
	"github.com/iota-uz/pmkit/modules/projects/domain/entities/scope"
	"github.com/iota-uz/pmkit/pkg/composables"
	"github.com/iota-uz/pmkit/pkg/configuration"
	"github.com/iota-uz/pmkit/pkg/eventbus"
)

// insertRaces bounds re-resolution after losing an insert race on the
// global key unique index to another transaction.
const insertRaces = 3

type GenerateKeyInput struct {
	DepartmentID *uuid.UUID
	CustomKey    string
	Description  string
	IsDefault    bool
	CreatedBy    uuid.UUID
}

type KeyService struct {
	keys      projectkey.Repository
	scopes    scope.Repository
	publisher eventbus.EventBus
	engine    configuration.KeyEngineOptions
}

func NewKeyService(
	keys projectkey.Repository,
	scopes scope.Repository,
	publisher eventbus.EventBus,
	engine configuration.KeyEngineOptions,
) *KeyService {
	return &KeyService{
		keys:      keys,
		scopes:    scopes,
		publisher: publisher,
		engine:    engine,
	}
}

// Generate settles on a globally-unique key for the scope and persists it.
// Idempotent for scopes that already carry an active default key (unless a
// custom key is forced). The returned key has all counters at zero.
func (s *KeyService) Generate(ctx context.Context, input GenerateKeyInput) (projectkey.Key, error) {
	createdEvent, err := projectkey.NewCreatedEvent(ctx)
	if err != nil {
		return projectkey.Key{}, err
	}

	var created projectkey.Key
	var reused bool
	for attempt := 0; ; attempt++ {
		created, reused, err = s.generateInTx(ctx, input)
		if errors.Is(err, projectkey.ErrKeyTaken) && attempt < insertRaces {
			continue
		}
		break
	}
	if err != nil {
		return projectkey.Key{}, err
	}

	if !reused {
		createdEvent.Result = created
		s.publisher.Publish(createdEvent)
	}
	return created, nil
}

func (s *KeyService) generateInTx(ctx context.Context, input GenerateKeyInput) (projectkey.Key, bool, error) {
	var reused bool
	created, err := composables.InTxResult(ctx, func(txCtx context.Context) (projectkey.Key, error) {
		sc, err := s.scopes.Get(txCtx, input.DepartmentID)
		if err != nil {
			if errors.Is(err, scope.ErrNotFound) {
				return projectkey.Key{}, projectkey.ErrScopeNotFound
			}
			return projectkey.Key{}, err
		}

		// First use of a scope is the only time candidate generation runs.
		if input.CustomKey == "" {
			existing, err := s.keys.GetDefaultForScope(txCtx, input.DepartmentID)
			if err == nil {
				reused = true
				return existing, nil
			}
			if !errors.Is(err, projectkey.ErrNotFound) {
				return projectkey.Key{}, err
			}
		}

		candidates, err := candidatesFor(sc, input.CustomKey)
		if err != nil {
			return projectkey.Key{}, err
		}

		value, err := resolveUniqueKey(txCtx, s.keys, candidates, s.engine.SuffixCeiling)
		if err != nil {
			return projectkey.Key{}, err
		}

		if input.IsDefault {
			if err := s.keys.DemoteDefaults(txCtx, input.DepartmentID); err != nil {
				return projectkey.Key{}, err
			}
		}

		entity := projectkey.New(
			sc.TenantID,
			value,
			projectkey.WithDepartmentID(input.DepartmentID),
			projectkey.WithDescription(input.Description),
			projectkey.WithDefault(input.IsDefault),
			projectkey.WithCreatedBy(input.CreatedBy),
		)
		return s.keys.Create(txCtx, entity)
	})
	return created, reused, err
}

func candidatesFor(sc scope.Scope, customKey string) ([]string, error) {
	if customKey != "" {
		norm := projectkey.NormalizeKey(customKey)
		if norm == "" {
			return nil, projectkey.ErrEmptyName.WithDetails("custom key %q", customKey)
		}
		return []string{norm}, nil
	}
	candidates := projectkey.Candidates(sc.OrganizationName, sc.DepartmentName)
	if len(candidates) == 0 {
		return nil, projectkey.ErrEmptyName.WithDetails("organization %q", sc.OrganizationName)
	}
	return candidates, nil
}

// resolveUniqueKey walks the ranked candidates and accepts the first free
// one; when all collide it suffixes the top candidate numerically until the
// ceiling is hit.
func resolveUniqueKey(ctx context.Context, keys projectkey.Repository, candidates []string, ceiling int) (string, error) {
	for _, candidate := range candidates {
		taken, err := keys.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	base := candidates[0]
	for i := 1; i <= ceiling; i++ {
		suffix := strconv.Itoa(i)
		trimmed := base
		if len(trimmed)+len(suffix) > projectkey.MaxKeyLength {
			trimmed = trimmed[:projectkey.MaxKeyLength-len(suffix)]
		}
		variant := trimmed + suffix
		taken, err := keys.Exists(ctx, variant)
		if err != nil {
			return "", err
		}
		if !taken {
			return variant, nil
		}
	}
	return "", projectkey.ErrKeyExhausted.WithDetails("base %q, ceiling %d", base, ceiling)
}
