package engine

import (
	"github.com/storefront-labs/aegis/model"
)

// Matrix is the immutable mapping from role to its capability grants.
// It is constructed once at process start; lookups need no locking.
type Matrix struct {
	grants map[model.Role][]model.CapabilityGrant
}

// NewMatrix copies the given grants into a Matrix. The input map is not
// retained, so callers cannot mutate the matrix afterwards.
func NewMatrix(grants map[model.Role][]model.CapabilityGrant) *Matrix {
	copied := make(map[model.Role][]model.CapabilityGrant, len(grants))
	for role, gs := range grants {
		copied[role] = append([]model.CapabilityGrant(nil), gs...)
	}
	return &Matrix{grants: copied}
}

// DefaultMatrix returns the built-in capability table.
//
// A role with higher rank gets superset access only through the explicit
// grants below; rank alone never widens access.
func DefaultMatrix() *Matrix {
	return NewMatrix(map[model.Role][]model.CapabilityGrant{
		model.RoleAdmin: {
			{Resource: model.ResourceAny, Action: model.ActionAny, Scope: model.ScopeAll},
		},
		model.RoleEditor: {
			{Resource: model.ResourceProducts, Action: model.ActionCreate, Scope: model.ScopeAll},
			{Resource: model.ResourceProducts, Action: model.ActionRead, Scope: model.ScopeAll},
			{Resource: model.ResourceProducts, Action: model.ActionUpdate, Scope: model.ScopeOwn},
			{Resource: model.ResourceProducts, Action: model.ActionDelete, Scope: model.ScopeOwn},
			{Resource: model.ResourcePages, Action: model.ActionCreate, Scope: model.ScopeAll},
			{Resource: model.ResourcePages, Action: model.ActionRead, Scope: model.ScopeAll},
			{Resource: model.ResourcePages, Action: model.ActionUpdate, Scope: model.ScopeOwn},
			{Resource: model.ResourcePages, Action: model.ActionDelete, Scope: model.ScopeOwn},
			{Resource: model.ResourceCategories, Action: model.ActionRead, Scope: model.ScopeAll},
			{Resource: model.ResourceMedia, Action: model.ActionCreate, Scope: model.ScopeAll},
			{Resource: model.ResourceMedia, Action: model.ActionRead, Scope: model.ScopeAll},
			{Resource: model.ResourceMedia, Action: model.ActionUpdate, Scope: model.ScopeOwn},
			{Resource: model.ResourceMedia, Action: model.ActionDelete, Scope: model.ScopeOwn},
		},
		model.RoleViewer: {
			{Resource: model.ResourceProducts, Action: model.ActionRead, Scope: model.ScopeAll},
			{Resource: model.ResourcePages, Action: model.ActionRead, Scope: model.ScopeAll},
			{Resource: model.ResourceCategories, Action: model.ActionRead, Scope: model.ScopeAll},
			{Resource: model.ResourceMedia, Action: model.ActionRead, Scope: model.ScopeAll},
		},
	})
}

// Grant looks up the effective scope a role holds for (resource, action).
// When both an ALL and an OWN grant match, ALL wins. The second return
// value is false when no grant matches.
func (m *Matrix) Grant(role model.Role, resource, action string) (model.Scope, bool) {
	var (
		scope model.Scope
		found bool
	)
	for _, g := range m.grants[role] {
		if !g.Matches(resource, action) {
			continue
		}
		if g.Scope == model.ScopeAll {
			return model.ScopeAll, true
		}
		scope, found = g.Scope, true
	}
	return scope, found
}

// Roles lists the roles that hold at least one grant.
func (m *Matrix) Roles() []model.Role {
	roles := make([]model.Role, 0, len(m.grants))
	for role := range m.grants {
		roles = append(roles, role)
	}
	return roles
}
