package composite

import (
	"context"
	"fmt"

	"github.com/helix-search/helix/internal/domain"
)

// AggregateSuffix is appended to an operation name shared by several
// components when the router resolves the conflict automatically.
const AggregateSuffix = "_all"

// ConflictPolicy governs how a multi-provider operation name is resolved.
type ConflictPolicy string

// Conflict policies.
const (
	// AutoAggregate registers an "<op>_all" fan-out entry for every
	// operation name exposed by more than one component.
	AutoAggregate ConflictPolicy = "auto_aggregate"
	// ManualOnly records conflicted names as unresolved until an explicit
	// AddRoute call binds them.
	ManualOnly ConflictPolicy = "manual_only"
)

// Combinator declares how an aggregate entry folds member results.
type Combinator string

// Aggregate combinators.
const (
	// CombineCollect invokes every member and returns the ordered result list.
	CombineCollect Combinator = "collect"
	// CombineAll invokes every member and returns true iff all results are true.
	CombineAll Combinator = "all"
	// CombineAny invokes every member and returns true if any result is true.
	CombineAny Combinator = "any"
)

type entryKind string

const (
	kindDirect     entryKind = "direct"
	kindAggregate  entryKind = "aggregate"
	kindUnresolved entryKind = "unresolved"
)

// binding points at one component's operation.
type binding struct {
	component Component
	op        Op
}

// routeEntry is one resolved name in the route table.
type routeEntry struct {
	kind       entryKind
	bindings   []binding
	combinator Combinator
}

// invoke dispatches the entry. Members of an aggregate run sequentially in
// component order; nothing runs concurrently at this layer.
func (e *routeEntry) invoke(ctx context.Context, name string, args ...any) (any, error) {
	switch e.kind {
	case kindUnresolved:
		return nil, fmt.Errorf("operation %q needs a manual route: %w", name, domain.ErrUnresolvedRoute)
	case kindDirect:
		b := e.bindings[0]
		return b.component.Ops()[b.op](ctx, args...)
	case kindAggregate:
		results := make([]any, 0, len(e.bindings))
		for _, b := range e.bindings {
			r, err := b.component.Ops()[b.op](ctx, args...)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", b.component.Name(), b.op, err)
			}
			results = append(results, r)
		}
		return e.combinator.fold(results), nil
	default:
		return nil, fmt.Errorf("operation %q: %w", name, domain.ErrNoRoute)
	}
}

// fold reduces aggregate member results per the declared combinator.
func (c Combinator) fold(results []any) any {
	switch c {
	case CombineAll:
		for _, r := range results {
			if !truthy(r) {
				return false
			}
		}
		return true
	case CombineAny:
		for _, r := range results {
			if truthy(r) {
				return true
			}
		}
		return false
	default:
		return results
	}
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
