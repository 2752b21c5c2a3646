package projectkey

import (
	"errors"

	"github.com/iota-uz/pmkit/pkg/serrors"
)

var (
	ErrNotFound = errors.New("project key not found")

	// ErrKeyTaken surfaces a lost insert race on the global key unique
	// index; the resolver retries with the next variant.
	ErrKeyTaken = errors.New("project key already registered")

	// ErrEmptyName: candidate generation was given no usable name text.
	ErrEmptyName = serrors.NewError("KEY_EMPTY_NAME", "no usable name text to derive a key from", "")

	// ErrScopeNotFound: the referenced organization or department does not exist.
	ErrScopeNotFound = serrors.NewError("SCOPE_NOT_FOUND", "scope does not exist", "")

	// ErrKeyExhausted: the uniqueness search ran out of suffix variants.
	// Requires operator intervention (manual key assignment).
	ErrKeyExhausted = serrors.NewError("KEY_EXHAUSTED", "no free key variant within the attempt ceiling", "")

	// ErrConcurrentAssignment: the optimistic retry ceiling was exceeded
	// under contention. Transient; the whole operation may be retried.
	ErrConcurrentAssignment = serrors.NewError("CONCURRENT_ASSIGNMENT", "slug assignment retries exhausted", "")
)
