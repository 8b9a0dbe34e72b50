package authz

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/aegis/audit"
	"github.com/storefront-labs/aegis/broadcast"
	"github.com/storefront-labs/aegis/cache"
	"github.com/storefront-labs/aegis/engine"
	"github.com/storefront-labs/aegis/model"
)

// Evaluator is the uncached decision source the checker wraps.
type Evaluator interface {
	Evaluate(principal model.Principal, request model.PermissionRequest) (bool, error)
	ResourcePermissions(principal model.Principal, resource string) model.ResourcePermissions
}

var _ Evaluator = (*engine.Evaluator)(nil)

// Checker answers permission checks cache-first and keeps the cache
// consistent through the invalidation broadcaster. The broadcaster is
// injected; there is no ambient global instance.
type Checker struct {
	evaluator   Evaluator
	cache       *cache.DecisionCache
	broadcaster *broadcast.Broadcaster
	ttl         time.Duration
	recorder    audit.Recorder
	unsubscribe func()
}

// Option configures optional checker behavior.
type Option func(*Checker)

// WithAudit records every decision through rec.
func WithAudit(rec audit.Recorder) Option {
	return func(c *Checker) {
		c.recorder = rec
	}
}

// NewChecker wires the evaluator, decision cache, and broadcaster
// together. The checker subscribes its cache to the broadcaster; Close
// releases the subscription. A nil decisionCache degrades to direct
// evaluation on every call.
func NewChecker(evaluator Evaluator, decisionCache *cache.DecisionCache, broadcaster *broadcast.Broadcaster, ttl time.Duration, opts ...Option) *Checker {
	c := &Checker{
		evaluator:   evaluator,
		cache:       decisionCache,
		broadcaster: broadcaster,
		ttl:         ttl,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cache != nil {
		c.unsubscribe = broadcaster.Subscribe(c.cache.Invalidate)
	}
	return c
}

// Close unsubscribes the checker's cache from the broadcaster.
func (c *Checker) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// CheckPermission decides one permission request, serving from cache when
// a fresh entry exists.
func (c *Checker) CheckPermission(ctx context.Context, principal model.Principal, request model.PermissionRequest) (bool, error) {
	if err := request.Validate(); err != nil {
		return false, err
	}

	if c.cache == nil {
		decision, err := c.evaluator.Evaluate(principal, request)
		if err != nil {
			return false, err
		}
		c.record(principal, request, decision, false)
		return decision, nil
	}

	key := cache.NewKey(principal, request)
	if decision, ok := c.cache.Get(key); ok {
		c.record(principal, request, decision, true)
		return decision, nil
	}

	decision, err := c.evaluator.Evaluate(principal, request)
	if err != nil {
		return false, err
	}
	c.cache.Put(key, decision, c.ttl)
	c.record(principal, request, decision, false)
	return decision, nil
}

// CheckMultiplePermissions evaluates the requests in order, one decision
// per request.
func (c *Checker) CheckMultiplePermissions(ctx context.Context, principal model.Principal, requests []model.PermissionRequest) ([]bool, error) {
	decisions := make([]bool, len(requests))
	for i, request := range requests {
		decision, err := c.CheckPermission(ctx, principal, request)
		if err != nil {
			return nil, err
		}
		decisions[i] = decision
	}
	return decisions, nil
}

// HasAnyPermission reports whether at least one request is allowed. An
// empty request list yields false: no permission can be had from zero
// requests.
func (c *Checker) HasAnyPermission(ctx context.Context, principal model.Principal, requests []model.PermissionRequest) (bool, error) {
	for _, request := range requests {
		decision, err := c.CheckPermission(ctx, principal, request)
		if err != nil {
			return false, err
		}
		if decision {
			return true, nil
		}
	}
	return false, nil
}

// HasAllPermissions reports whether every request is allowed. An empty
// request list is vacuously true.
func (c *Checker) HasAllPermissions(ctx context.Context, principal model.Principal, requests []model.PermissionRequest) (bool, error) {
	for _, request := range requests {
		decision, err := c.CheckPermission(ctx, principal, request)
		if err != nil {
			return false, err
		}
		if !decision {
			return false, nil
		}
	}
	return true, nil
}

// GetResourcePermissions reports the capability-only view of a resource.
// Never cached: the aggregate is cheap and carries no ownership fact.
func (c *Checker) GetResourcePermissions(principal model.Principal, resource string) model.ResourcePermissions {
	return c.evaluator.ResourcePermissions(principal, resource)
}

// CanAccessOwnResource decides access to one resource instance identified
// by its owner. An empty ownerID is a capability-only check and an
// OWN-scoped grant cannot satisfy it.
func (c *Checker) CanAccessOwnResource(ctx context.Context, principal model.Principal, resource, action, ownerID string) (bool, error) {
	return c.CheckPermission(ctx, principal, model.PermissionRequest{
		Resource:        resource,
		Action:          action,
		ResourceOwnerID: ownerID,
	})
}

// InvalidateCache clears every cached decision, locally before returning
// and remotely via the broadcaster.
func (c *Checker) InvalidateCache(ctx context.Context) {
	c.broadcaster.Publish(ctx, model.NewInvalidateAll())
}

// InvalidateUserCache clears cached decisions for one principal.
func (c *Checker) InvalidateUserCache(ctx context.Context, userID string) {
	c.broadcaster.Publish(ctx, model.NewInvalidateUser(userID))
}

// InvalidateResourceCache clears cached decisions tied to a resource type
// or resource owner.
func (c *Checker) InvalidateResourceCache(ctx context.Context, resourceID string) {
	c.broadcaster.Publish(ctx, model.NewInvalidateResource(resourceID))
}

// SubscribeToUpdates registers a handler for invalidation events reaching
// this context and returns its unsubscribe function.
func (c *Checker) SubscribeToUpdates(handler broadcast.Handler) (unsubscribe func()) {
	return c.broadcaster.Subscribe(handler)
}

func (c *Checker) record(principal model.Principal, request model.PermissionRequest, decision, cached bool) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(audit.Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		UserID:    principal.ID,
		Role:      principal.Role.String(),
		Resource:  request.Resource,
		Action:    request.Action,
		OwnerID:   request.ResourceOwnerID,
		Allowed:   decision,
		Cached:    cached,
	})
}
