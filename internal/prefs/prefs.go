// Package prefs stores per-workspace display preferences.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"costbook/internal/units"
	"costbook/models"
)

// ErrWorkspaceNotFound is returned when the workspace row does not exist.
var ErrWorkspaceNotFound = errors.New("prefs: workspace not found")

// Repository reads and writes the unit system a workspace displays
// quantities in.
type Repository interface {
	UnitSystem(ctx context.Context, workspaceID uint) (units.System, error)
	SetUnitSystem(ctx context.Context, workspaceID uint, system units.System) error
}

// Store is the gorm backed Repository.
type Store struct {
	db       *gorm.DB
	fallback units.System
}

// NewStore returns a Store that answers fallback for workspaces whose stored
// value is not a known system.
func NewStore(db *gorm.DB, fallback units.System) *Store {
	if !units.ValidSystem(string(fallback)) {
		fallback = units.SystemSmall
	}
	return &Store{db: db, fallback: fallback}
}

func (s *Store) UnitSystem(ctx context.Context, workspaceID uint) (units.System, error) {
	var workspace models.Workspace
	err := s.db.WithContext(ctx).Select("id", "unit_system").First(&workspace, workspaceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: #%d", ErrWorkspaceNotFound, workspaceID)
		}
		return "", fmt.Errorf("load workspace %d: %w", workspaceID, err)
	}
	if !units.ValidSystem(workspace.UnitSystem) {
		return s.fallback, nil
	}
	return units.System(workspace.UnitSystem), nil
}

func (s *Store) SetUnitSystem(ctx context.Context, workspaceID uint, system units.System) error {
	if !units.ValidSystem(string(system)) {
		return fmt.Errorf("unknown unit system %q", system)
	}
	result := s.db.WithContext(ctx).Model(&models.Workspace{}).
		Where("id = ?", workspaceID).
		Update("unit_system", string(system))
	if result.Error != nil {
		return fmt.Errorf("update workspace %d: %w", workspaceID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: #%d", ErrWorkspaceNotFound, workspaceID)
	}
	return nil
}

// Cached memoises another Repository. Writes go through and drop the cached
// entry so the next read observes them. A read that raced with a write is
// returned but not cached.
type Cached struct {
	next  Repository
	cache *cache.Cache

	mu          sync.Mutex
	generations map[uint]uint64
}

// NewCached wraps next with an expiring cache.
func NewCached(next Repository, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cached{
		next:        next,
		cache:       cache.New(ttl, 2*ttl),
		generations: make(map[uint]uint64),
	}
}

func cacheKey(workspaceID uint) string {
	return strconv.FormatUint(uint64(workspaceID), 10)
}

func (c *Cached) generation(workspaceID uint) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[workspaceID]
}

func (c *Cached) UnitSystem(ctx context.Context, workspaceID uint) (units.System, error) {
	if value, ok := c.cache.Get(cacheKey(workspaceID)); ok {
		return value.(units.System), nil
	}
	seen := c.generation(workspaceID)
	system, err := c.next.UnitSystem(ctx, workspaceID)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[workspaceID] == seen {
		c.cache.SetDefault(cacheKey(workspaceID), system)
	}
	return system, nil
}

func (c *Cached) SetUnitSystem(ctx context.Context, workspaceID uint, system units.System) error {
	c.Invalidate(workspaceID)
	defer c.Invalidate(workspaceID)
	return c.next.SetUnitSystem(ctx, workspaceID, system)
}

// Invalidate drops the cached value for a workspace and keeps reads already
// in flight from caching what they loaded.
func (c *Cached) Invalidate(workspaceID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[workspaceID]++
	c.cache.Delete(cacheKey(workspaceID))
}
