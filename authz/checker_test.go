package authz_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/aegis/apperrors"
	"github.com/storefront-labs/aegis/audit"
	"github.com/storefront-labs/aegis/authz"
	"github.com/storefront-labs/aegis/broadcast"
	"github.com/storefront-labs/aegis/cache"
	"github.com/storefront-labs/aegis/engine"
	"github.com/storefront-labs/aegis/model"
)

// countingEvaluator counts pass-through evaluations so tests can tell
// cache hits from recomputations.
type countingEvaluator struct {
	inner *engine.Evaluator
	calls atomic.Int64
}

func (c *countingEvaluator) Evaluate(p model.Principal, r model.PermissionRequest) (bool, error) {
	c.calls.Add(1)
	return c.inner.Evaluate(p, r)
}

func (c *countingEvaluator) ResourcePermissions(p model.Principal, resource string) model.ResourcePermissions {
	return c.inner.ResourcePermissions(p, resource)
}

func newTestChecker(t *testing.T, opts ...authz.Option) (*authz.Checker, *countingEvaluator) {
	t.Helper()

	evaluator := &countingEvaluator{inner: engine.NewEvaluator(engine.DefaultMatrix())}
	decisionCache, err := cache.New(128)
	require.NoError(t, err)
	broadcaster := broadcast.New(broadcast.NoopTransport{})

	checker := authz.NewChecker(evaluator, decisionCache, broadcaster, time.Minute, opts...)
	t.Cleanup(checker.Close)
	return checker, evaluator
}

func TestCheckPermission_Idempotent(t *testing.T) {
	checker, evaluator := newTestChecker(t)
	ctx := context.Background()
	editor := model.Principal{ID: "editor-1", Role: model.RoleEditor, Active: true}
	request := model.PermissionRequest{Resource: model.ResourceProducts, Action: model.ActionRead}

	first, err := checker.CheckPermission(ctx, editor, request)
	require.NoError(t, err)
	second, err := checker.CheckPermission(ctx, editor, request)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), evaluator.calls.Load(), "second call must be served from cache")
}

func TestCheckPermission_CachedMatchesUncached(t *testing.T) {
	checker, _ := newTestChecker(t)
	uncached := engine.NewEvaluator(engine.DefaultMatrix())
	ctx := context.Background()

	principals := []model.Principal{
		{ID: "admin-1", Role: model.RoleAdmin, Active: true},
		{ID: "editor-1", Role: model.RoleEditor, Active: true},
		{ID: "viewer-1", Role: model.RoleViewer, Active: true},
		{ID: "ghost", Role: model.RoleAdmin, Active: false},
	}
	requests := []model.PermissionRequest{
		{Resource: model.ResourceProducts, Action: model.ActionRead},
		{Resource: model.ResourceProducts, Action: model.ActionUpdate, ResourceOwnerID: "editor-1"},
		{Resource: model.ResourceUsers, Action: model.ActionManage},
	}

	for _, p := range principals {
		for _, r := range requests {
			want, err := uncached.Evaluate(p, r)
			require.NoError(t, err)

			got, err := checker.CheckPermission(ctx, p, r)
			require.NoError(t, err)
			assert.Equal(t, want, got, "principal %s request %+v", p.ID, r)

			// And again, now served from cache.
			got, err = checker.CheckPermission(ctx, p, r)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	}
}

func TestInvalidateUserCache_ForcesRecompute(t *testing.T) {
	checker, evaluator := newTestChecker(t)
	ctx := context.Background()
	editor := model.Principal{ID: "editor-1", Role: model.RoleEditor, Active: true}
	viewer := model.Principal{ID: "viewer-1", Role: model.RoleViewer, Active: true}
	request := model.PermissionRequest{Resource: model.ResourceProducts, Action: model.ActionRead}

	_, err := checker.CheckPermission(ctx, editor, request)
	require.NoError(t, err)
	_, err = checker.CheckPermission(ctx, viewer, request)
	require.NoError(t, err)
	require.Equal(t, int64(2), evaluator.calls.Load())

	checker.InvalidateUserCache(ctx, "editor-1")

	_, err = checker.CheckPermission(ctx, editor, request)
	require.NoError(t, err)
	assert.Equal(t, int64(3), evaluator.calls.Load(), "invalidated principal must be recomputed")

	_, err = checker.CheckPermission(ctx, viewer, request)
	require.NoError(t, err)
	assert.Equal(t, int64(3), evaluator.calls.Load(), "other principals stay cached")
}

func TestInvalidateCache_ClearsEverything(t *testing.T) {
	checker, evaluator := newTestChecker(t)
	ctx := context.Background()
	editor := model.Principal{ID: "editor-1", Role: model.RoleEditor, Active: true}
	request := model.PermissionRequest{Resource: model.ResourceProducts, Action: model.ActionRead}

	_, err := checker.CheckPermission(ctx, editor, request)
	require.NoError(t, err)

	checker.InvalidateCache(ctx)

	_, err = checker.CheckPermission(ctx, editor, request)
	require.NoError(t, err)
	assert.Equal(t, int64(2), evaluator.calls.Load())
}

func TestInvalidateResourceCache(t *testing.T) {
	checker, evaluator := newTestChecker(t)
	ctx := context.Background()
	editor := model.Principal{ID: "editor-1", Role: model.RoleEditor, Active: true}

	products := model.PermissionRequest{Resource: model.ResourceProducts, Action: model.ActionRead}
	pages := model.PermissionRequest{Resource: model.ResourcePages, Action: model.ActionRead}

	_, err := checker.CheckPermission(ctx, editor, products)
	require.NoError(t, err)
	_, err = checker.CheckPermission(ctx, editor, pages)
	require.NoError(t, err)
	require.Equal(t, int64(2), evaluator.calls.Load())

	checker.InvalidateResourceCache(ctx, model.ResourceProducts)

	_, err = checker.CheckPermission(ctx, editor, products)
	require.NoError(t, err)
	assert.Equal(t, int64(3), evaluator.calls.Load())

	_, err = checker.CheckPermission(ctx, editor, pages)
	require.NoError(t, err)
	assert.Equal(t, int64(3), evaluator.calls.Load(), "unrelated resource stays cached")
}

func TestCheckMultiplePermissions_MatchesSingleChecks(t *testing.T) {
	checker, _ := newTestChecker(t)
	ctx := context.Background()
	editor := model.Principal{ID: "editor-1", Role: model.RoleEditor, Active: true}

	requests := []model.PermissionRequest{
		{Resource: model.ResourceProducts, Action: model.ActionRead},
		{Resource: model.ResourceProducts, Action: model.ActionUpdate, ResourceOwnerID: "other"},
		{Resource: model.ResourceUsers, Action: model.ActionRead},
		{Resource: model.ResourcePages, Action: model.ActionCreate},
	}

	batch, err := checker.CheckMultiplePermissions(ctx, editor, requests)
	require.NoError(t, err)
	require.Len(t, batch, len(requests))

	for i, request := range requests {
		single, err := checker.CheckPermission(ctx, editor, request)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "index %d", i)
	}
}

func TestHasAnyAndAllPermissions(t *testing.T) {
	checker, _ := newTestChecker(t)
	ctx := context.Background()
	editor := model.Principal{ID: "editor-1", Role: model.RoleEditor, Active: true}

	allowedAndDenied := []model.PermissionRequest{
		{Resource: model.ResourceProducts, Action: model.ActionRead},
		{Resource: model.ResourceUsers, Action: model.ActionRead},
	}

	any, err := checker.HasAnyPermission(ctx, editor, allowedAndDenied)
	require.NoError(t, err)
	assert.True(t, any)

	all, err := checker.HasAllPermissions(ctx, editor, allowedAndDenied)
	require.NoError(t, err)
	assert.False(t, all)
}

func TestVacuousBatches(t *testing.T) {
	checker, _ := newTestChecker(t)
	ctx := context.Background()
	editor := model.Principal{ID: "editor-1", Role: model.RoleEditor, Active: true}

	any, err := checker.HasAnyPermission(ctx, editor, nil)
	require.NoError(t, err)
	assert.False(t, any, "no permission can be had from zero requests")

	all, err := checker.HasAllPermissions(ctx, editor, nil)
	require.NoError(t, err)
	assert.True(t, all, "empty conjunction is vacuously true")
}

func TestMalformedRequestSurfacesError(t *testing.T) {
	checker, _ := newTestChecker(t)
	ctx := context.Background()
	editor := model.Principal{ID: "editor-1", Role: model.RoleEditor, Active: true}

	_, err := checker.CheckPermission(ctx, editor, model.PermissionRequest{Action: model.ActionRead})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	_, err = checker.CheckMultiplePermissions(ctx, editor, []model.PermissionRequest{
		{Resource: model.ResourceProducts, Action: model.ActionRead},
		{Resource: "", Action: model.ActionRead},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestNilCacheFallsBackToDirectEvaluation(t *testing.T) {
	evaluator := &countingEvaluator{inner: engine.NewEvaluator(engine.DefaultMatrix())}
	broadcaster := broadcast.New(broadcast.NoopTransport{})
	checker := authz.NewChecker(evaluator, nil, broadcaster, time.Minute)
	defer checker.Close()

	ctx := context.Background()
	editor := model.Principal{ID: "editor-1", Role: model.RoleEditor, Active: true}
	request := model.PermissionRequest{Resource: model.ResourceProducts, Action: model.ActionRead}

	first, err := checker.CheckPermission(ctx, editor, request)
	require.NoError(t, err)
	assert.True(t, first)

	_, err = checker.CheckPermission(ctx, editor, request)
	require.NoError(t, err)
	assert.Equal(t, int64(2), evaluator.calls.Load(), "without a cache every call evaluates directly")
}

func TestTTLExpiryForcesRecompute(t *testing.T) {
	evaluator := &countingEvaluator{inner: engine.NewEvaluator(engine.DefaultMatrix())}
	decisionCache, err := cache.New(128)
	require.NoError(t, err)
	broadcaster := broadcast.New(broadcast.NoopTransport{})
	checker := authz.NewChecker(evaluator, decisionCache, broadcaster, 20*time.Millisecond)
	defer checker.Close()

	ctx := context.Background()
	editor := model.Principal{ID: "editor-1", Role: model.RoleEditor, Active: true}
	request := model.PermissionRequest{Resource: model.ResourceProducts, Action: model.ActionRead}

	_, err = checker.CheckPermission(ctx, editor, request)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = checker.CheckPermission(ctx, editor, request)
	require.NoError(t, err)
	assert.Equal(t, int64(2), evaluator.calls.Load(), "expired entry must be recomputed")
}

func TestAuditRecordsDecisions(t *testing.T) {
	repo := audit.NewMemoryRepository()
	auditService := audit.NewService(repo)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	auditService.Start(ctx)

	checker, _ := newTestChecker(t, authz.WithAudit(auditService))
	editor := model.Principal{ID: "editor-1", Role: model.RoleEditor, Active: true}
	request := model.PermissionRequest{Resource: model.ResourceProducts, Action: model.ActionRead}

	_, err := checker.CheckPermission(ctx, editor, request)
	require.NoError(t, err)
	_, err = checker.CheckPermission(ctx, editor, request)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return repo.Len() == 2 }, time.Second, 10*time.Millisecond)

	entries, err := repo.Query(ctx, time.Now().Add(-time.Minute), time.Now().Add(time.Minute), "editor-1", model.ResourceProducts)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Cached)
	assert.True(t, entries[1].Cached)
	assert.True(t, entries[0].Allowed)
}

func TestSubscribeToUpdates(t *testing.T) {
	checker, _ := newTestChecker(t)
	ctx := context.Background()

	var got []model.InvalidationEvent
	unsubscribe := checker.SubscribeToUpdates(func(e model.InvalidationEvent) {
		got = append(got, e)
	})
	defer unsubscribe()

	checker.InvalidateUserCache(ctx, "u1")

	require.Len(t, got, 1)
	assert.Equal(t, model.InvalidateUser, got[0].Scope)
	assert.Equal(t, "u1", got[0].TargetID)
}
