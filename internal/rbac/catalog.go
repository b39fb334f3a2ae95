package rbac

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store defines the persistence surface the catalog reads through.
type Store interface {
	GetRole(ctx context.Context, id int64) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
}

// Catalog is a read-through snapshot of the seeded role catalog. The
// persistent store stays the source of truth; the snapshot is replaced
// wholesale on reload, never mutated in place.
type Catalog struct {
	store  Store
	logger *slog.Logger

	mu      sync.RWMutex
	byID    map[int64]Role
	ordered []Role
}

// NewCatalog constructs an empty catalog. Call Reload before first use.
func NewCatalog(store Store, logger *slog.Logger) *Catalog {
	return &Catalog{store: store, logger: logger, byID: map[int64]Role{}}
}

// Reload replaces the snapshot with the current store contents.
func (c *Catalog) Reload(ctx context.Context) error {
	if c == nil || c.store == nil {
		return errors.New("rbac: catalog not configured")
	}
	roles, err := c.store.ListRoles(ctx)
	if err != nil {
		return err
	}
	byID := make(map[int64]Role, len(roles))
	for _, role := range roles {
		byID[role.ID] = role
	}
	c.mu.Lock()
	c.byID = byID
	c.ordered = roles
	c.mu.Unlock()
	return nil
}

// GetRole returns the role by ID, falling back to the store when the
// snapshot misses (e.g. a role created after the last reload).
func (c *Catalog) GetRole(ctx context.Context, id int64) (Role, error) {
	c.mu.RLock()
	role, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		return role, nil
	}
	return c.store.GetRole(ctx, id)
}

// ListRoles returns the snapshot ordered by name.
func (c *Catalog) ListRoles() []Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	roles := make([]Role, len(c.ordered))
	copy(roles, c.ordered)
	return roles
}

// SubscribeInvalidation reloads the snapshot whenever a message arrives on
// the given channel. Role edits publish to the channel after committing.
// Blocks until the context is cancelled.
func (c *Catalog) SubscribeInvalidation(ctx context.Context, client *redis.Client, channel string) error {
	if client == nil {
		return errors.New("rbac: redis client required for invalidation")
	}
	pubsub := client.Subscribe(ctx, channel)
	defer func() {
		_ = pubsub.Close()
	}()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			if err := c.Reload(ctx); err != nil {
				if c.logger != nil {
					c.logger.Error("reload role catalog", slog.Any("error", err))
				}
			}
		}
	}
}
