package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/pkg/kit"
)

// Gateway serializes writes to the Store and restricts them to the whitelisted keys.
type Gateway struct {
	mu    sync.Mutex
	store Store
	log   *zap.Logger
}

func NewGateway(store Store, log *zap.Logger) *Gateway {
	return &Gateway{store: store, log: kit.OrNop(log)}
}

func (g *Gateway) Save(ctx context.Context, key string, v any) error {
	if !Whitelisted(key) {
		return fmt.Errorf("%w: %s", ErrNotWhitelisted, key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.store.Put(ctx, key, raw); err != nil {
		g.log.Warn("persist write failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// Load decodes key into v and reports whether it was present.
func (g *Gateway) Load(ctx context.Context, key string, v any) (bool, error) {
	if !Whitelisted(key) {
		return false, fmt.Errorf("%w: %s", ErrNotWhitelisted, key)
	}
	raw, ok, err := g.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("restore %s: %w", key, err)
	}
	return true, nil
}

func (g *Gateway) Remove(ctx context.Context, keys ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.Delete(ctx, keys...)
}

// SaveTimestamp stores t as an epoch-millis string.
func (g *Gateway) SaveTimestamp(ctx context.Context, key string, t time.Time) error {
	if !Whitelisted(key) {
		return fmt.Errorf("%w: %s", ErrNotWhitelisted, key)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.Put(ctx, key, []byte(strconv.FormatInt(t.UnixMilli(), 10)))
}

func (g *Gateway) LoadTimestamp(ctx context.Context, key string) (time.Time, bool, error) {
	raw, ok, err := g.store.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("restore %s: %w", key, err)
	}
	return time.UnixMilli(ms), true, nil
}
