package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Key string

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusStale   Status = "stale"
	StatusError   Status = "error"
)

type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	fetch      Fetcher
	data       any
	err        error
	fetched    bool
	stale      bool
	loading    int
	generation uint64
	fetchedAt  time.Time
}

// Snapshot is what a reader sees of one key without triggering a fetch.
type Snapshot struct {
	Data      any
	Err       error
	Status    Status
	FetchedAt time.Time
}

// Cache holds whole snapshots of remote collections. Snapshots are only
// ever replaced by a fresh fetch, never patched.
type Cache struct {
	sugar   *zap.SugaredLogger
	mutex   sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
}

func New(sugar *zap.SugaredLogger) *Cache {
	return &Cache{
		sugar:   sugar,
		entries: make(map[Key]*entry),
	}
}

func (c *Cache) Register(key Key, fetch Fetcher) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &entry{fetch: fetch}
}

func (c *Cache) lookup(key Key) (*entry, error) {
	e, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("query %q is not registered", key)
	}
	return e, nil
}

// Fetch returns the cached snapshot when it is fresh and fetches otherwise.
func (c *Cache) Fetch(ctx context.Context, key Key) (any, error) {
	c.mutex.Lock()
	e, err := c.lookup(key)
	if err != nil {
		c.mutex.Unlock()
		return nil, err
	}
	if e.fetched && !e.stale && e.err == nil {
		data := e.data
		c.mutex.Unlock()
		return data, nil
	}
	c.mutex.Unlock()

	return c.Refresh(ctx, key)
}

// Refresh always goes to the remote side. Concurrent refreshes of one key
// share a single call unless an invalidation happened in between, then the
// later caller gets a call of its own. The shared call is not cancelled
// when one caller gives up.
func (c *Cache) Refresh(ctx context.Context, key Key) (any, error) {
	c.mutex.Lock()
	e, err := c.lookup(key)
	if err != nil {
		c.mutex.Unlock()
		return nil, err
	}
	fetch := e.fetch
	generation := e.generation
	e.loading++
	c.mutex.Unlock()

	defer func() {
		c.mutex.Lock()
		e.loading--
		c.mutex.Unlock()
	}()

	flightCtx := context.WithoutCancel(ctx)
	resultCh := c.group.DoChan(fmt.Sprintf("%s#%d", key, generation), func() (any, error) {
		c.sugar.Debugf("Fetching query [%s]", key)
		data, err := fetch(flightCtx)
		c.settle(key, e, generation, data, err)
		return data, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultCh:
		return result.Val, result.Err
	}
}

// settle stores the outcome of a fetch, unless the key was invalidated
// after the fetch started.
func (c *Cache) settle(key Key, e *entry, generation uint64, data any, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if generation != e.generation {
		c.sugar.Debugf("Dropping result of query [%s], invalidated while in flight", key)
		return
	}

	e.fetched = true
	e.fetchedAt = time.Now()
	if err != nil {
		c.sugar.Debugf("Query [%s] failed: %v", key, err)
		e.err = err
		return
	}

	e.data = data
	e.err = nil
	e.stale = false
}

// Invalidate marks keys stale. The next Fetch of a stale key refetches.
func (c *Cache) Invalidate(keys ...Key) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, key := range keys {
		if e, ok := c.entries[key]; ok {
			e.stale = true
			e.generation++
		}
	}
}

func (c *Cache) Peek(key Key) Snapshot {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Snapshot{Status: StatusIdle}
	}

	snapshot := Snapshot{Data: e.data, Err: e.err, FetchedAt: e.fetchedAt}
	switch {
	case e.loading > 0:
		snapshot.Status = StatusLoading
	case !e.fetched:
		snapshot.Status = StatusIdle
	case e.err != nil:
		snapshot.Status = StatusError
	case e.stale:
		snapshot.Status = StatusStale
	default:
		snapshot.Status = StatusReady
	}
	return snapshot
}

// Get is a typed Fetch.
func Get[T any](ctx context.Context, c *Cache, key Key) (T, error) {
	var zero T

	data, err := c.Fetch(ctx, key)
	if err != nil {
		return zero, err
	}

	typed, ok := data.(T)
	if !ok {
		return zero, fmt.Errorf("query %q holds %T, not %T", key, data, zero)
	}
	return typed, nil
}

// PeekAs is a typed Peek, the zero value when nothing was fetched yet.
func PeekAs[T any](c *Cache, key Key) (T, Snapshot) {
	snapshot := c.Peek(key)
	typed, _ := snapshot.Data.(T)
	return typed, snapshot
}
