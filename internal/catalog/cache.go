package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Illuminatus66/byqr/internal/model"
	"github.com/Illuminatus66/byqr/pkg/kit"
)

type Fetcher interface {
	FetchProducts(ctx context.Context) ([]model.Product, error)
}

// Snapshot is an immutable view of one successful fetch.
type Snapshot struct {
	byID  map[string]model.Product
	order []string
}

func NewSnapshot(products []model.Product) Snapshot {
	s := Snapshot{
		byID:  make(map[string]model.Product, len(products)),
		order: make([]string, 0, len(products)),
	}
	for _, p := range products {
		if _, dup := s.byID[p.ID]; !dup {
			s.order = append(s.order, p.ID)
		}
		s.byID[p.ID] = p
	}
	return s
}

func (s Snapshot) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

func (s Snapshot) Lookup(id string) (model.Product, bool) {
	p, ok := s.byID[id]
	return p, ok
}

func (s Snapshot) Len() int { return len(s.order) }

func (s Snapshot) Products() []model.Product {
	out := make([]model.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

type State struct {
	Products  []model.Product
	Loading   bool
	Err       error
	FetchedAt time.Time
}

// Cache holds the last catalog snapshot fetched from the API.
type Cache struct {
	fetcher Fetcher
	log     *zap.Logger
	group   singleflight.Group

	mu        sync.RWMutex
	snap      Snapshot
	loading   bool
	err       error
	fetchedAt time.Time
	listeners []func(Snapshot)
}

func NewCache(f Fetcher, log *zap.Logger) *Cache {
	return &Cache{
		fetcher: f,
		log:     kit.OrNop(log),
		snap:    NewSnapshot(nil),
	}
}

// OnRefresh registers fn to run after every successful refresh, outside the cache lock.
func (c *Cache) OnRefresh(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Refresh replaces the snapshot with a full fetch. Concurrent callers share one request.
// On failure the previous snapshot stays in place.
func (c *Cache) Refresh(ctx context.Context) ([]model.Product, error) {
	v, err, _ := c.group.Do("fetchall", func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(Snapshot).Products(), nil
}

func (c *Cache) refresh(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	c.loading = true
	c.err = nil
	c.mu.Unlock()

	products, err := c.fetcher.FetchProducts(ctx)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.err = fmt.Errorf("refresh catalog: %w", err)
		c.mu.Unlock()
		c.log.Warn("catalog refresh failed", zap.Error(err))
		return Snapshot{}, c.err
	}
	snap := NewSnapshot(products)
	c.snap = snap
	c.fetchedAt = time.Now()
	listeners := append([]func(Snapshot){}, c.listeners...)
	c.mu.Unlock()

	c.log.Debug("catalog refreshed", zap.Int("products", snap.Len()))
	for _, fn := range listeners {
		fn(snap)
	}
	return snap, nil
}

// Lookup may miss for ids that were removed since a cart or wishlist referenced them.
func (c *Cache) Lookup(id string) (model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Lookup(id)
}

func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Products:  c.snap.Products(),
		Loading:   c.loading,
		Err:       c.err,
		FetchedAt: c.fetchedAt,
	}
}
