package engine

import (
	"github.com/storefront-labs/aegis/model"
)

// Owned is implemented by records that expose their owner.
type Owned interface {
	OwnedBy() string
}

// FilterByPermission narrows items to the subset the principal may access
// for (resource, action). An ALL-scoped grant passes the input through
// unchanged, an OWN-scoped grant keeps only the principal's own records,
// and no grant yields an empty (non-nil) slice.
func FilterByPermission[T Owned](e *Evaluator, principal model.Principal, items []T, resource, action string) []T {
	if !principal.Active || !model.KnownResource(resource) || !model.KnownAction(action) {
		return []T{}
	}

	scope, ok := e.matrix.Grant(principal.Role, resource, action)
	if !ok {
		return []T{}
	}
	if scope == model.ScopeAll {
		return items
	}

	owned := make([]T, 0, len(items))
	for _, item := range items {
		if item.OwnedBy() == principal.ID {
			owned = append(owned, item)
		}
	}
	return owned
}
