package model

import (
	"fmt"

	"github.com/storefront-labs/aegis/apperrors"
)

// PermissionRequest asks whether an action on a resource is permitted.
// ResourceOwnerID is set when the check concerns one concrete resource
// instance; it is empty for capability-only checks.
type PermissionRequest struct {
	Resource        string `json:"resource"`
	Action          string `json:"action"`
	ResourceOwnerID string `json:"resourceOwnerId,omitempty"`
}

// Validate surfaces malformed requests as a distinct error so bugs in
// collaborators are caught early instead of being silently denied.
func (r PermissionRequest) Validate() error {
	if r.Resource == "" {
		return fmt.Errorf("%w: resource is required", apperrors.ErrInvalidRequest)
	}
	if r.Action == "" {
		return fmt.Errorf("%w: action is required", apperrors.ErrInvalidRequest)
	}
	if r.Resource == ResourceAny || r.Action == ActionAny {
		return fmt.Errorf("%w: wildcards are not allowed in requests", apperrors.ErrInvalidRequest)
	}
	return nil
}

// ResourcePermissions is the aggregate capability view of one resource
// for a principal. Scope is ScopeAll if any reported action is granted
// at full scope, ScopeOwn if at least one is owner-bound, and empty when
// the principal has no access at all.
type ResourcePermissions struct {
	CanCreate bool  `json:"canCreate"`
	CanRead   bool  `json:"canRead"`
	CanUpdate bool  `json:"canUpdate"`
	CanDelete bool  `json:"canDelete"`
	CanManage bool  `json:"canManage"`
	Scope     Scope `json:"scope,omitempty"`
}

// HasAny reports whether any action is granted.
func (rp ResourcePermissions) HasAny() bool {
	return rp.CanCreate || rp.CanRead || rp.CanUpdate || rp.CanDelete || rp.CanManage
}
