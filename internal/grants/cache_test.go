package grants

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tilldesk/tilldesk-backend/internal/access"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
)

type fakeCache struct {
	data    map[string]string
	getErr  error
	setErr  error
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		f.deletes = append(f.deletes, k)
		delete(f.data, k)
	}
	return nil
}

type fakeKeys struct{}

func (fakeKeys) GrantKey(userID, scope string, scopeID int64) string {
	return fmt.Sprintf("td:grant:%s:%s:%d", userID, scope, scopeID)
}
func (fakeKeys) TeamOwnershipKey(userID string, companyID int64) string {
	return fmt.Sprintf("td:team_owner:%s:%d", userID, companyID)
}
func (fakeKeys) AncestorKey(scope string, scopeID int64) string {
	return fmt.Sprintf("td:ancestor:%s:%d", scope, scopeID)
}

// countingStore wraps fakeStore from resolver-style tests and counts hits.
type countingStore struct {
	grants     map[access.ScopeRef]*access.DirectGrant
	parents    map[access.ScopeRef]access.ScopeRef
	owners     map[int64]bool
	grantCalls int
	teamCalls  int
	err        error
}

func (c *countingStore) GetDirectGrant(_ context.Context, _ uuid.UUID, ref access.ScopeRef) (*access.DirectGrant, error) {
	c.grantCalls++
	if c.err != nil {
		return nil, c.err
	}
	return c.grants[ref], nil
}

func (c *countingStore) GetAncestor(_ context.Context, ref access.ScopeRef) (*access.ScopeRef, error) {
	parent, ok := c.parents[ref]
	if !ok {
		return nil, nil
	}
	return &parent, nil
}

func (c *countingStore) GetTeamOwnership(_ context.Context, companyID int64, _ uuid.UUID) (bool, error) {
	c.teamCalls++
	if c.err != nil {
		return false, c.err
	}
	return c.owners[companyID], nil
}

func newCachedStoreForTest(inner access.MembershipStore, cache *fakeCache) *CachedStore {
	return &CachedStore{
		inner:   inner,
		cache:   cache,
		keys:    fakeKeys{},
		ttl:     time.Minute,
		enabled: true,
		log:     logger.New(logger.Options{Level: zerolog.ErrorLevel}),
	}
}

func TestCachedStoreGrantHitAndMiss(t *testing.T) {
	ref := access.ScopeRef{Scope: enums.ScopeShop, ID: 7}
	inner := &countingStore{grants: map[access.ScopeRef]*access.DirectGrant{
		ref: {Role: enums.RoleShopManager},
	}}
	cache := newFakeCache()
	store := newCachedStoreForTest(inner, cache)
	user := uuid.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		grant, err := store.GetDirectGrant(ctx, user, ref)
		if err != nil {
			t.Fatalf("GetDirectGrant: %v", err)
		}
		if grant == nil || grant.Role != enums.RoleShopManager {
			t.Fatalf("got %+v, want shop_manager grant", grant)
		}
	}
	if inner.grantCalls != 1 {
		t.Errorf("inner store called %d times, want 1", inner.grantCalls)
	}
}

func TestCachedStoreCachesMisses(t *testing.T) {
	ref := access.ScopeRef{Scope: enums.ScopeBrand, ID: 3}
	inner := &countingStore{}
	cache := newFakeCache()
	store := newCachedStoreForTest(inner, cache)
	ctx := context.Background()
	user := uuid.New()

	for i := 0; i < 2; i++ {
		grant, err := store.GetDirectGrant(ctx, user, ref)
		if err != nil {
			t.Fatalf("GetDirectGrant: %v", err)
		}
		if grant != nil {
			t.Fatalf("got %+v, want nil", grant)
		}
	}
	if inner.grantCalls != 1 {
		t.Errorf("inner store called %d times, want 1 (miss should be cached)", inner.grantCalls)
	}
}

func TestCachedStoreInvalidateGrant(t *testing.T) {
	ref := access.ScopeRef{Scope: enums.ScopeShop, ID: 7}
	inner := &countingStore{grants: map[access.ScopeRef]*access.DirectGrant{
		ref: {Role: enums.RoleViewer},
	}}
	cache := newFakeCache()
	store := newCachedStoreForTest(inner, cache)
	ctx := context.Background()
	user := uuid.New()

	if _, err := store.GetDirectGrant(ctx, user, ref); err != nil {
		t.Fatalf("GetDirectGrant: %v", err)
	}

	inner.grants[ref] = &access.DirectGrant{Role: enums.RoleShopManager}
	store.InvalidateGrant(ctx, user, ref)

	grant, err := store.GetDirectGrant(ctx, user, ref)
	if err != nil {
		t.Fatalf("GetDirectGrant: %v", err)
	}
	if grant == nil || grant.Role != enums.RoleShopManager {
		t.Fatalf("got %+v after invalidation, want shop_manager", grant)
	}
	if inner.grantCalls != 2 {
		t.Errorf("inner store called %d times, want 2", inner.grantCalls)
	}
}

func TestCachedStoreTeamOwnership(t *testing.T) {
	inner := &countingStore{owners: map[int64]bool{5: true}}
	cache := newFakeCache()
	store := newCachedStoreForTest(inner, cache)
	ctx := context.Background()
	user := uuid.New()

	for i := 0; i < 2; i++ {
		owns, err := store.GetTeamOwnership(ctx, 5, user)
		if err != nil {
			t.Fatalf("GetTeamOwnership: %v", err)
		}
		if !owns {
			t.Fatal("expected ownership")
		}
	}
	if inner.teamCalls != 1 {
		t.Errorf("inner store called %d times, want 1", inner.teamCalls)
	}

	inner.owners[5] = false
	store.InvalidateTeamOwnership(ctx, user, 5)
	owns, err := store.GetTeamOwnership(ctx, 5, user)
	if err != nil {
		t.Fatalf("GetTeamOwnership: %v", err)
	}
	if owns {
		t.Error("ownership should be gone after invalidation")
	}
}

func TestCachedStoreFallsThroughOnCacheFailure(t *testing.T) {
	ref := access.ScopeRef{Scope: enums.ScopeShop, ID: 7}
	inner := &countingStore{grants: map[access.ScopeRef]*access.DirectGrant{
		ref: {Role: enums.RoleUser},
	}}
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	store := newCachedStoreForTest(inner, cache)

	grant, err := store.GetDirectGrant(context.Background(), uuid.New(), ref)
	if err != nil {
		t.Fatalf("cache outage must not fail the lookup: %v", err)
	}
	if grant == nil || grant.Role != enums.RoleUser {
		t.Fatalf("got %+v, want user grant from backing store", grant)
	}
}

func TestCachedStoreDisabledBypassesRedis(t *testing.T) {
	ref := access.ScopeRef{Scope: enums.ScopeShop, ID: 7}
	inner := &countingStore{grants: map[access.ScopeRef]*access.DirectGrant{
		ref: {Role: enums.RoleViewer},
	}}
	cache := newFakeCache()
	store := newCachedStoreForTest(inner, cache)
	store.enabled = false
	ctx := context.Background()
	user := uuid.New()

	for i := 0; i < 2; i++ {
		grant, err := store.GetDirectGrant(ctx, user, ref)
		if err != nil {
			t.Fatalf("GetDirectGrant: %v", err)
		}
		if grant == nil || grant.Role != enums.RoleViewer {
			t.Fatalf("got %+v, want viewer grant", grant)
		}
	}
	if inner.grantCalls != 2 {
		t.Errorf("inner store called %d times, want 2 (no caching when disabled)", inner.grantCalls)
	}
	if len(cache.data) != 0 {
		t.Errorf("redis written to while disabled: %v", cache.data)
	}

	store.InvalidateGrant(ctx, user, ref)
	store.InvalidateTeamOwnership(ctx, user, 5)
	if len(cache.deletes) != 0 {
		t.Errorf("redis deletes issued while disabled: %v", cache.deletes)
	}
}

func TestCachedStorePropagatesBackingFailure(t *testing.T) {
	inner := &countingStore{err: errors.New("connection refused")}
	store := newCachedStoreForTest(inner, newFakeCache())

	_, err := store.GetDirectGrant(context.Background(), uuid.New(), access.ScopeRef{Scope: enums.ScopeShop, ID: 1})
	if err == nil {
		t.Fatal("backing store failure must propagate")
	}
}
