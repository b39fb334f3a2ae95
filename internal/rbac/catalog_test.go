package rbac

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubStore struct {
	mu       sync.Mutex
	roles    []Role
	getCalls int
}

func (s *stubStore) GetRole(_ context.Context, id int64) (Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	for _, role := range s.roles {
		if role.ID == id {
			return role, nil
		}
	}
	return Role{}, ErrRoleNotFound
}

func (s *stubStore) ListRoles(_ context.Context) ([]Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Role, len(s.roles))
	copy(out, s.roles)
	return out, nil
}

func (s *stubStore) setRoles(roles []Role) {
	s.mu.Lock()
	s.roles = roles
	s.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestCatalogServesSnapshotAfterReload(t *testing.T) {
	store := &stubStore{roles: []Role{
		{ID: 1, Name: "admin", IsActive: true},
		{ID: 2, Name: "approver", IsActive: true},
	}}
	catalog := NewCatalog(store, testLogger())
	if err := catalog.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	store.mu.Lock()
	store.getCalls = 0
	store.mu.Unlock()

	role, err := catalog.GetRole(context.Background(), 2)
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if role.Name != "approver" {
		t.Fatalf("expected approver, got %s", role.Name)
	}
	store.mu.Lock()
	calls := store.getCalls
	store.mu.Unlock()
	if calls != 0 {
		t.Fatalf("snapshot hit must not touch the store, got %d calls", calls)
	}

	if got := len(catalog.ListRoles()); got != 2 {
		t.Fatalf("expected 2 roles in snapshot, got %d", got)
	}
}

func TestCatalogFallsBackToStoreOnMiss(t *testing.T) {
	store := &stubStore{roles: []Role{{ID: 1, Name: "admin", IsActive: true}}}
	catalog := NewCatalog(store, testLogger())
	if err := catalog.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	store.setRoles([]Role{
		{ID: 1, Name: "admin", IsActive: true},
		{ID: 3, Name: "coordinator", IsActive: true},
	})

	role, err := catalog.GetRole(context.Background(), 3)
	if err != nil {
		t.Fatalf("expected store fallback, got %v", err)
	}
	if role.Name != "coordinator" {
		t.Fatalf("expected coordinator, got %s", role.Name)
	}

	if _, err := catalog.GetRole(context.Background(), 99); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestSubscribeInvalidationReloadsOnMessage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() {
		_ = client.Close()
	}()

	store := &stubStore{roles: []Role{{ID: 1, Name: "admin", IsActive: true}}}
	catalog := NewCatalog(store, testLogger())
	if err := catalog.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- catalog.SubscribeInvalidation(ctx, client, "rbac:invalidate")
	}()

	// Give the subscription time to register before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for mr.Publish("rbac:invalidate", "warm-up") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	store.setRoles([]Role{
		{ID: 1, Name: "admin", IsActive: true},
		{ID: 2, Name: "approver", IsActive: true},
	})
	mr.Publish("rbac:invalidate", "roles-changed")

	deadline = time.Now().Add(2 * time.Second)
	for len(catalog.ListRoles()) != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never reloaded, still %d roles", len(catalog.ListRoles()))
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop on cancel")
	}
}
