// Package workitem models the slug-bearing entities of the portal: tasks,
// projects and sprints. The package owns the slug wire format; everything
// else about these entities (their CRUD, their fields) lives outside the
// key engine.
package workitem

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindTask    Kind = "task"
	KindProject Kind = "project"
	KindSprint  Kind = "sprint"
)

// Kinds lists all slug-bearing kinds in migration order: projects first so
// their slugs exist before their sprints and tasks are renumbered.
var Kinds = []Kind{KindProject, KindSprint, KindTask}

func (k Kind) Valid() bool {
	switch k {
	case KindTask, KindProject, KindSprint:
		return true
	}
	return false
}

// Ref identifies one slug-bearing entity.
type Ref struct {
	Kind Kind
	ID   uuid.UUID
}

func (r Ref) IsZero() bool { return r.ID == uuid.Nil }

func (r Ref) String() string { return fmt.Sprintf("%s/%s", r.Kind, r.ID) }

var ErrNotFound = errors.New("work item not found")

const (
	sprintInfix  = "-S-"
	projectInfix = "-P-"
)

// FormatSlug renders the permanent identifier for the n-th entity of the
// given kind under a key: ACME-7, ACME-S-2, ACME-P-4.
func FormatSlug(key string, kind Kind, n int) string {
	switch kind {
	case KindSprint:
		return fmt.Sprintf("%s%s%d", key, sprintInfix, n)
	case KindProject:
		return fmt.Sprintf("%s%s%d", key, projectInfix, n)
	default:
		return fmt.Sprintf("%s-%d", key, n)
	}
}

// NormalizeSlug prepares caller-supplied slug text for lookup.
func NormalizeSlug(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// GuessKind infers the entity kind from the shape of a normalized slug.
// Sprint and project slugs carry their infix marker; a bare trailing number
// after a single separator is a task. The second return value is false when
// the shape matches nothing, in which case lookup falls back to trying each
// table in a fixed order.
func GuessKind(slug string) (Kind, bool) {
	if strings.Contains(slug, sprintInfix) {
		return KindSprint, true
	}
	if strings.Contains(slug, projectInfix) {
		return KindProject, true
	}
	if i := strings.LastIndex(slug, "-"); i > 0 && i < len(slug)-1 {
		if _, err := strconv.Atoi(slug[i+1:]); err == nil {
			return KindTask, true
		}
	}
	return "", false
}

// Item is the migration-time view of an entity: enough to re-assign its
// slug in original creation order.
type Item struct {
	Ref       Ref
	ProjectID uuid.UUID // uuid.Nil for projects themselves
	Name      string
	CreatedAt time.Time
}
