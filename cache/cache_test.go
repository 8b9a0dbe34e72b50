package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/aegis/model"
)

func testKey(principalID, resource, action, ownerID string) Key {
	return Key{
		PrincipalID: principalID,
		Role:        model.RoleEditor,
		Resource:    resource,
		Action:      action,
		OwnerID:     ownerID,
	}
}

func TestPutGet(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	key := testKey("u1", model.ResourceProducts, model.ActionRead, "")
	c.Put(key, true, time.Minute)

	decision, ok := c.Get(key)
	assert.True(t, ok)
	assert.True(t, decision)

	_, ok = c.Get(testKey("u2", model.ResourceProducts, model.ActionRead, ""))
	assert.False(t, ok)
}

func TestKeyDeterminism(t *testing.T) {
	p := model.Principal{ID: "u1", Role: model.RoleEditor, Active: true}
	req := model.PermissionRequest{Resource: model.ResourceProducts, Action: model.ActionUpdate, ResourceOwnerID: "u1"}

	assert.Equal(t, NewKey(p, req), NewKey(p, req))

	other := req
	other.ResourceOwnerID = "u2"
	assert.NotEqual(t, NewKey(p, req), NewKey(p, other))
}

func TestExpiredEntryBehavesLikeMiss(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	now := time.Now()
	c.now = func() time.Time { return now }

	key := testKey("u1", model.ResourceProducts, model.ActionRead, "")
	c.Put(key, true, time.Minute)

	now = now.Add(30 * time.Second)
	_, ok := c.Get(key)
	assert.True(t, ok, "entry must survive until its TTL elapses")

	now = now.Add(31 * time.Second)
	_, ok = c.Get(key)
	assert.False(t, ok, "expired entry must behave like a miss")
	assert.Equal(t, 0, c.Len(), "lazy expiry must remove the stale entry")
}

func TestCapacityEvictsLRU(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	k1 := testKey("u1", model.ResourceProducts, model.ActionRead, "")
	k2 := testKey("u2", model.ResourceProducts, model.ActionRead, "")
	k3 := testKey("u3", model.ResourceProducts, model.ActionRead, "")

	c.Put(k1, true, time.Minute)
	c.Put(k2, true, time.Minute)

	// Touch k1 so k2 becomes the least recently used entry.
	_, ok := c.Get(k1)
	require.True(t, ok)

	c.Put(k3, true, time.Minute)

	_, ok = c.Get(k2)
	assert.False(t, ok, "least recently used entry must be evicted")
	_, ok = c.Get(k1)
	assert.True(t, ok)
	_, ok = c.Get(k3)
	assert.True(t, ok)
}

func TestInvalidateAll(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	c.Put(testKey("u1", model.ResourceProducts, model.ActionRead, ""), true, time.Minute)
	c.Put(testKey("u2", model.ResourcePages, model.ActionRead, ""), false, time.Minute)

	c.Invalidate(model.NewInvalidateAll())
	assert.Equal(t, 0, c.Len())
}

func TestInvalidateUser(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	u1Read := testKey("u1", model.ResourceProducts, model.ActionRead, "")
	u1Update := testKey("u1", model.ResourceProducts, model.ActionUpdate, "u1")
	u2Read := testKey("u2", model.ResourceProducts, model.ActionRead, "")

	c.Put(u1Read, true, time.Minute)
	c.Put(u1Update, true, time.Minute)
	c.Put(u2Read, true, time.Minute)

	c.Invalidate(model.NewInvalidateUser("u1"))

	_, ok := c.Get(u1Read)
	assert.False(t, ok)
	_, ok = c.Get(u1Update)
	assert.False(t, ok)
	_, ok = c.Get(u2Read)
	assert.True(t, ok, "other principals' entries must survive")
}

func TestInvalidateResource(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	byType := testKey("u1", model.ResourceProducts, model.ActionRead, "")
	byOwner := testKey("u2", model.ResourcePages, model.ActionUpdate, "owner-9")
	untouched := testKey("u3", model.ResourceMedia, model.ActionRead, "")

	c.Put(byType, true, time.Minute)
	c.Put(byOwner, true, time.Minute)
	c.Put(untouched, true, time.Minute)

	c.Invalidate(model.NewInvalidateResource(model.ResourceProducts))
	_, ok := c.Get(byType)
	assert.False(t, ok, "entries for the resource type must be removed")

	c.Invalidate(model.NewInvalidateResource("owner-9"))
	_, ok = c.Get(byOwner)
	assert.False(t, ok, "entries referencing the owner must be removed")

	_, ok = c.Get(untouched)
	assert.True(t, ok)
}

func TestSweeperRemovesExpired(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put(testKey("u1", model.ResourceProducts, model.ActionRead, ""), true, time.Millisecond)
	now = now.Add(time.Second)

	c.removeExpired()
	assert.Equal(t, 0, c.Len())
}
