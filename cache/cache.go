package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/storefront-labs/aegis/apperrors"
	"github.com/storefront-labs/aegis/logging"
	"github.com/storefront-labs/aegis/model"
)

// Key identifies one cached decision. Two requests that the evaluator
// would treat identically produce the same key.
type Key struct {
	PrincipalID string
	Role        model.Role
	Resource    string
	Action      string
	OwnerID     string
}

// NewKey derives the cache key for a (principal, request) pair.
func NewKey(principal model.Principal, request model.PermissionRequest) Key {
	return Key{
		PrincipalID: principal.ID,
		Role:        principal.Role,
		Resource:    request.Resource,
		Action:      request.Action,
		OwnerID:     request.ResourceOwnerID,
	}
}

type entry struct {
	decision  bool
	expiresAt time.Time
}

// DecisionCache is a bounded, time-expiring store of permission
// decisions. Capacity overflow evicts in least-recently-used order;
// expiry is lazy on lookup, with an optional periodic sweep. All methods
// are safe for concurrent use.
type DecisionCache struct {
	store *lru.Cache[Key, entry]
	now   func() time.Time
}

// New creates a cache bounded to maxEntries decisions.
func New(maxEntries int) (*DecisionCache, error) {
	store, err := lru.New[Key, entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err)
	}
	return &DecisionCache{store: store, now: time.Now}, nil
}

// Get returns the cached decision for key. An expired entry behaves like
// a miss and is removed.
func (c *DecisionCache) Get(key Key) (bool, bool) {
	e, ok := c.store.Get(key)
	if !ok {
		return false, false
	}
	if c.now().After(e.expiresAt) {
		c.store.Remove(key)
		return false, false
	}
	return e.decision, true
}

// Put stores a decision under key for the given TTL.
func (c *DecisionCache) Put(key Key, decision bool, ttl time.Duration) {
	c.store.Add(key, entry{decision: decision, expiresAt: c.now().Add(ttl)})
}

// Invalidate removes the entries the event targets.
func (c *DecisionCache) Invalidate(event model.InvalidationEvent) {
	switch event.Scope {
	case model.InvalidateAll:
		c.store.Purge()
	case model.InvalidateUser:
		for _, key := range c.store.Keys() {
			if key.PrincipalID == event.TargetID {
				c.store.Remove(key)
			}
		}
	case model.InvalidateResource:
		for _, key := range c.store.Keys() {
			if key.Resource == event.TargetID || key.OwnerID == event.TargetID {
				c.store.Remove(key)
			}
		}
	default:
		logging.Warn("invalidation event with unknown scope",
			zap.Int("scope", int(event.Scope)),
			zap.String("targetID", event.TargetID))
	}
}

// Len returns the number of stored entries, including any not yet swept
// expired ones.
func (c *DecisionCache) Len() int {
	return c.store.Len()
}

// Purge drops every entry.
func (c *DecisionCache) Purge() {
	c.store.Purge()
}

// StartSweeper reclaims expired entries every interval until ctx is
// cancelled. Correctness does not depend on it; lazy expiry already
// keeps stale entries from being served.
func (c *DecisionCache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.removeExpired()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *DecisionCache) removeExpired() {
	now := c.now()
	for _, key := range c.store.Keys() {
		if e, ok := c.store.Peek(key); ok && now.After(e.expiresAt) {
			c.store.Remove(key)
		}
	}
}
