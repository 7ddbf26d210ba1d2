// Package session binds every issued JWT to a revocable redis entry.
// A token whose session is gone is dead regardless of its expiry, which
// is what makes logout and refresh rotation effective immediately.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/tilldesk/tilldesk-backend/pkg/config"
	redisclient "github.com/tilldesk/tilldesk-backend/pkg/redis"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is the read-only slice the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager stores one refresh token per access id, keyed under the td:
// session namespace, expiring with the refresh TTL.
type Manager struct {
	store sessionStore
	ttl   time.Duration
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("session manager needs a redis client")
	}
	refreshTTL := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if refreshTTL <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	// A refresh token outliving its access token is the whole point.
	if refreshTTL <= accessTTL {
		return nil, fmt.Errorf("refresh ttl %s must exceed access ttl %s", refreshTTL, accessTTL)
	}
	return &Manager{store: client, ttl: refreshTTL}, nil
}

// NewAccessID mints the identifier shared by the JWT jti claim and the
// session key.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate mints and stores a refresh token for a fresh login.
func (m *Manager) Generate(ctx context.Context, accessID string) (string, error) {
	if err := requireID(accessID); err != nil {
		return "", err
	}
	token, err := mintRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), token, m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate swaps a valid (accessID, refresh token) pair for a new one and
// retires the old session. The comparison is constant time; a missing
// session and a wrong token are indistinguishable to the caller.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, presented string) (string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(presented) == "" {
		return "", "", ErrInvalidRefreshToken
	}

	oldKey := m.store.AccessSessionKey(oldAccessID)
	stored, err := m.store.Get(ctx, oldKey)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", "", ErrInvalidRefreshToken
		}
		return "", "", err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	// Write the replacement before deleting the old entry so a crash in
	// between leaves the user with at least one working session.
	nextID := NewAccessID()
	nextToken, err := mintRefreshToken()
	if err != nil {
		return "", "", err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(nextID), nextToken, m.ttl); err != nil {
		return "", "", err
	}
	if err := m.store.Del(ctx, oldKey); err != nil {
		return "", "", err
	}
	return nextID, nextToken, nil
}

// Revoke ends the session; outstanding JWTs with this access id stop
// passing the middleware check immediately.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if err := requireID(accessID); err != nil {
		return err
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if err := requireID(accessID); err != nil {
		return false, err
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redislib.Nil):
		return false, nil
	default:
		return false, err
	}
}

func requireID(accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return nil
}

func mintRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("minting refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
