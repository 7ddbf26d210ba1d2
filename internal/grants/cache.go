package grants

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/internal/access"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
	"github.com/tilldesk/tilldesk-backend/pkg/redis"
)

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type cacheKeyer interface {
	GrantKey(userID string, scope string, scopeID int64) string
	TeamOwnershipKey(userID string, companyID int64) string
	AncestorKey(scope string, scopeID int64) string
}

// CachedStore fronts a membership store with Redis. Direct grant and
// team ownership lookups are cached under exact keys so write paths can
// invalidate precisely; ancestor links only change when the org tree is
// edited, so they ride on the TTL alone. Cache trouble is logged and
// the lookup falls through to the backing store, keeping Redis out of
// the availability equation for access decisions.
type CachedStore struct {
	inner   access.MembershipStore
	cache   cacheStore
	keys    cacheKeyer
	ttl     time.Duration
	enabled bool
	log     *logger.Logger
}

// NewCachedStore wraps the inner store. A zero TTL falls back to five
// minutes. With enabled false every lookup goes straight to the backing
// store and invalidation is a no-op, so operators can switch Redis out
// of the read path without rewiring anything.
func NewCachedStore(inner access.MembershipStore, client *redis.Client, ttl time.Duration, enabled bool, log *logger.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{inner: inner, cache: client, keys: client, ttl: ttl, enabled: enabled, log: log}
}

// cachedGrant is the envelope stored per (user, scope, scope_id) key.
// Misses are cached too; exact-key invalidation on writes keeps the
// negative entries honest.
type cachedGrant struct {
	Found     bool       `json:"found"`
	Role      enums.Role `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type cachedAncestor struct {
	Found bool        `json:"found"`
	Scope enums.Scope `json:"scope,omitempty"`
	ID    int64       `json:"id,omitempty"`
}

// GetDirectGrant serves the grant from Redis when present, otherwise
// asks the backing store and fills the cache.
func (s *CachedStore) GetDirectGrant(ctx context.Context, userID uuid.UUID, ref access.ScopeRef) (*access.DirectGrant, error) {
	if !s.enabled {
		return s.inner.GetDirectGrant(ctx, userID, ref)
	}
	key := s.keys.GrantKey(userID.String(), ref.Scope.String(), ref.ID)

	var entry cachedGrant
	if s.getJSON(ctx, key, &entry) {
		if !entry.Found {
			return nil, nil
		}
		return &access.DirectGrant{Role: entry.Role, ExpiresAt: entry.ExpiresAt}, nil
	}

	grant, err := s.inner.GetDirectGrant(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	entry = cachedGrant{Found: grant != nil}
	if grant != nil {
		entry.Role = grant.Role
		entry.ExpiresAt = grant.ExpiresAt
	}
	s.setJSON(ctx, key, entry)
	return grant, nil
}

// GetAncestor caches parent links under the child's key.
func (s *CachedStore) GetAncestor(ctx context.Context, ref access.ScopeRef) (*access.ScopeRef, error) {
	if !s.enabled {
		return s.inner.GetAncestor(ctx, ref)
	}
	key := s.keys.AncestorKey(ref.Scope.String(), ref.ID)

	var entry cachedAncestor
	if s.getJSON(ctx, key, &entry) {
		if !entry.Found {
			return nil, nil
		}
		return &access.ScopeRef{Scope: entry.Scope, ID: entry.ID}, nil
	}

	parent, err := s.inner.GetAncestor(ctx, ref)
	if err != nil {
		return nil, err
	}
	entry = cachedAncestor{Found: parent != nil}
	if parent != nil {
		entry.Scope = parent.Scope
		entry.ID = parent.ID
	}
	s.setJSON(ctx, key, entry)
	return parent, nil
}

// GetTeamOwnership caches the leader check per (user, company).
func (s *CachedStore) GetTeamOwnership(ctx context.Context, companyID int64, userID uuid.UUID) (bool, error) {
	if !s.enabled {
		return s.inner.GetTeamOwnership(ctx, companyID, userID)
	}
	key := s.keys.TeamOwnershipKey(userID.String(), companyID)

	if raw, err := s.cache.Get(ctx, key); err == nil {
		return raw == "1", nil
	} else if !redis.IsNil(err) {
		s.log.Warn(ctx, "team ownership cache read failed")
	}

	owns, err := s.inner.GetTeamOwnership(ctx, companyID, userID)
	if err != nil {
		return false, err
	}
	value := "0"
	if owns {
		value = "1"
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.log.Warn(ctx, "team ownership cache write failed")
	}
	return owns, nil
}

// InvalidateGrant drops the cached entry for one (user, scope) pair.
// Called by every grant write so replaced or revoked roles take effect
// on the next request.
func (s *CachedStore) InvalidateGrant(ctx context.Context, userID uuid.UUID, ref access.ScopeRef) {
	if !s.enabled {
		return
	}
	key := s.keys.GrantKey(userID.String(), ref.Scope.String(), ref.ID)
	if err := s.cache.Del(ctx, key); err != nil {
		s.log.Warn(ctx, "grant cache invalidation failed")
	}
}

// InvalidateTeamOwnership drops the cached leader check for one
// (user, company) pair after team membership changes.
func (s *CachedStore) InvalidateTeamOwnership(ctx context.Context, userID uuid.UUID, companyID int64) {
	if !s.enabled {
		return
	}
	key := s.keys.TeamOwnershipKey(userID.String(), companyID)
	if err := s.cache.Del(ctx, key); err != nil {
		s.log.Warn(ctx, "team ownership cache invalidation failed")
	}
}

func (s *CachedStore) getJSON(ctx context.Context, key string, out any) bool {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !redis.IsNil(err) {
			s.log.Warn(ctx, "cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.log.Warn(ctx, "cache entry corrupt")
		return false
	}
	return true
}

func (s *CachedStore) setJSON(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		s.log.Warn(ctx, "cache write failed")
	}
}
