package session

import (
	"context"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeStore) AccessSessionKey(accessID string) string {
	return "td:session:access:" + accessID
}

func newTestManager() (*Manager, *fakeStore) {
	store := newFakeStore()
	return &Manager{store: store, ttl: time.Hour}, store
}

func TestGenerateStoresToken(t *testing.T) {
	mgr, store := newTestManager()
	token, err := mgr.Generate(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if store.values["td:session:access:access-1"] != token {
		t.Fatal("token not stored under session key")
	}
}

func TestRotateSwapsSession(t *testing.T) {
	mgr, store := newTestManager()
	token, err := mgr.Generate(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	newID, newToken, err := mgr.Rotate(context.Background(), "access-1", token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newID == "access-1" {
		t.Fatal("expected a fresh access id")
	}
	if _, ok := store.values["td:session:access:access-1"]; ok {
		t.Fatal("old session should be deleted")
	}
	if store.values["td:session:access:"+newID] != newToken {
		t.Fatal("new session not stored")
	}
}

func TestRotateRejectsWrongToken(t *testing.T) {
	mgr, _ := newTestManager()
	if _, err := mgr.Generate(context.Background(), "access-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := mgr.Rotate(context.Background(), "access-1", "forged"); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestHasSession(t *testing.T) {
	mgr, _ := newTestManager()
	ok, err := mgr.HasSession(context.Background(), "missing")
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if ok {
		t.Fatal("expected no session")
	}

	if _, err := mgr.Generate(context.Background(), "access-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	ok, err = mgr.HasSession(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if !ok {
		t.Fatal("expected session to exist")
	}
}

func TestRevoke(t *testing.T) {
	mgr, store := newTestManager()
	if _, err := mgr.Generate(context.Background(), "access-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := mgr.Revoke(context.Background(), "access-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if len(store.values) != 0 {
		t.Fatal("expected store to be empty after revoke")
	}
}
