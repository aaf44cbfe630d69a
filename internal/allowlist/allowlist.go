// Package allowlist implements the Table Allow-List Cache (C2): an
// in-memory, periodically refreshed snapshot of which (schema, table)
// pairs are safe to query, backed by a metadata source and protected
// against cache-stampede reloads with singleflight.
package allowlist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nexushealth/data-explorer/internal/errors"
	"github.com/nexushealth/data-explorer/internal/sqlsafety"
)

// Source loads the current set of allowed tables from the system of
// record (the metadata service's Postgres-backed catalogue, per C6).
type Source interface {
	LoadAllowedTables(ctx context.Context) ([]sqlsafety.TableIdentity, error)
}

// snapshot is the immutable value swapped atomically on reload.
type snapshot struct {
	tables  map[sqlsafety.TableIdentity]bool
	loadErr error
	loadAt  time.Time
}

// Cache is the allow-list cache described in spec §4.2: an atomically
// swapped immutable snapshot refreshed on a TTL, with concurrent
// reloads collapsed into one by singleflight.
type Cache struct {
	source Source
	ttl    time.Duration

	current atomic.Pointer[snapshot]
	group   singleflight.Group

	mu   sync.Mutex // guards nothing but keeps Invalidate/get ordering obvious
}

// New creates a Cache. ttl defaults to 60 seconds per spec §4.2 when
// zero or negative is supplied.
func New(source Source, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Cache{source: source, ttl: ttl}
}

// IsTableAllowed reports whether identity is present in the current
// allow-list snapshot, triggering a reload first if the snapshot is
// absent or stale. Fails closed: any reload failure with no usable
// cached snapshot surfaces as ErrAllowListUnavailable rather than
// defaulting to "allowed".
func (c *Cache) IsTableAllowed(ctx context.Context, identity sqlsafety.TableIdentity) (bool, error) {
	snap, err := c.getSnapshot(ctx)
	if err != nil {
		return false, err
	}
	return snap.tables[identity], nil
}

// AllowedTables returns a copy of the full allow-list currently cached.
func (c *Cache) AllowedTables(ctx context.Context) ([]sqlsafety.TableIdentity, error) {
	snap, err := c.getSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]sqlsafety.TableIdentity, 0, len(snap.tables))
	for id := range snap.tables {
		out = append(out, id)
	}
	return out, nil
}

// Invalidate forces the next access to reload from source regardless of
// TTL.
func (c *Cache) Invalidate() {
	c.current.Store(nil)
}

// getSnapshot returns the current snapshot, reloading through
// singleflight if it is missing or has outlived the TTL. A concurrent
// burst of callers observing a stale snapshot collapses into a single
// reload, the same pattern used for cache-stampede prevention in the
// rest of this pack.
func (c *Cache) getSnapshot(ctx context.Context) (*snapshot, error) {
	snap := c.current.Load()
	if snap != nil && snap.loadErr == nil && time.Since(snap.loadAt) < c.ttl {
		return snap, nil
	}

	v, err, _ := c.group.Do("reload", func() (interface{}, error) {
		// Re-check: another goroutine may have already refreshed while we
		// waited to enter the singleflight group.
		if s := c.current.Load(); s != nil && s.loadErr == nil && time.Since(s.loadAt) < c.ttl {
			return s, nil
		}

		tables, loadErr := c.source.LoadAllowedTables(ctx)
		if loadErr != nil {
			if snap != nil && snap.loadErr == nil {
				// Stale-but-usable: keep serving the last good snapshot rather
				// than failing closed on a transient catalogue outage, but do
				// not pretend the reload succeeded.
				return snap, nil
			}
			return nil, errors.NewAllowListUnavailable(loadErr)
		}

		next := &snapshot{
			tables: make(map[sqlsafety.TableIdentity]bool, len(tables)),
			loadAt: time.Now(),
		}
		for _, t := range tables {
			next.tables[t] = true
		}
		c.current.Store(next)
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot), nil
}
