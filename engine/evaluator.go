package engine

import (
	"go.uber.org/zap"

	"github.com/storefront-labs/aegis/logging"
	"github.com/storefront-labs/aegis/model"
)

// Evaluator computes permission decisions against a capability matrix.
// It is pure: no caching, no side effects beyond a warning log for
// misconfigured requests.
type Evaluator struct {
	matrix *Matrix
}

// NewEvaluator creates an evaluator over the given matrix.
func NewEvaluator(matrix *Matrix) *Evaluator {
	return &Evaluator{matrix: matrix}
}

// Evaluate decides a single permission request.
//
// The decision is fail-closed: an inactive principal, a missing grant, or
// an unregistered resource/action all deny. An OWN-scoped grant allows
// only when the request carries an ownership fact matching the principal;
// capability-only questions about OWN grants belong to
// ResourcePermissions, not here.
func (e *Evaluator) Evaluate(principal model.Principal, request model.PermissionRequest) (bool, error) {
	if err := request.Validate(); err != nil {
		return false, err
	}

	if !principal.Active {
		return false, nil
	}

	if !model.KnownResource(request.Resource) || !model.KnownAction(request.Action) {
		logging.Warn("permission request for unregistered resource or action",
			zap.String("resource", request.Resource),
			zap.String("action", request.Action),
			zap.String("principalID", principal.ID))
		return false, nil
	}

	scope, ok := e.matrix.Grant(principal.Role, request.Resource, request.Action)
	if !ok {
		return false, nil
	}

	switch scope {
	case model.ScopeAll:
		return true, nil
	case model.ScopeOwn:
		return request.ResourceOwnerID != "" && request.ResourceOwnerID == principal.ID, nil
	default:
		logging.Warn("grant with unknown scope",
			zap.String("scope", string(scope)),
			zap.String("resource", request.Resource),
			zap.String("action", request.Action))
		return false, nil
	}
}

// ResourcePermissions reports, per action, whether the principal holds a
// grant for the resource and at what scope. This is the capability-only
// view: no single resource instance is in question, so OWN grants are
// reported as conditional capability rather than resolved to a boolean.
func (e *Evaluator) ResourcePermissions(principal model.Principal, resource string) model.ResourcePermissions {
	var perms model.ResourcePermissions
	if !principal.Active {
		return perms
	}
	if !model.KnownResource(resource) {
		logging.Warn("resource permissions query for unregistered resource",
			zap.String("resource", resource),
			zap.String("principalID", principal.ID))
		return perms
	}

	for _, action := range model.CRUDActions() {
		scope, ok := e.matrix.Grant(principal.Role, resource, action)
		if !ok {
			continue
		}
		switch action {
		case model.ActionCreate:
			perms.CanCreate = true
		case model.ActionRead:
			perms.CanRead = true
		case model.ActionUpdate:
			perms.CanUpdate = true
		case model.ActionDelete:
			perms.CanDelete = true
		case model.ActionManage:
			perms.CanManage = true
		}
		if scope == model.ScopeAll {
			perms.Scope = model.ScopeAll
		} else if perms.Scope != model.ScopeAll {
			perms.Scope = model.ScopeOwn
		}
	}
	return perms
}

// CanAccessOwnResource decides access to a resource instance identified
// only by its owner. An empty ownerID makes this a capability-only check,
// which an OWN-scoped grant cannot satisfy.
func (e *Evaluator) CanAccessOwnResource(principal model.Principal, resource, action, ownerID string) (bool, error) {
	return e.Evaluate(principal, model.PermissionRequest{
		Resource:        resource,
		Action:          action,
		ResourceOwnerID: ownerID,
	})
}
