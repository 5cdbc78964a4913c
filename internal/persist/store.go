package persist

import (
	"context"
	"errors"
)

var (
	ErrNotWhitelisted = errors.New("key is not persisted")
	ErrUnknownDriver  = errors.New("unknown persistence driver")
)

// Store is the durable key/value medium underneath the Gateway.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	KeyProfile        = "Profile"
	KeyTokenTimestamp = "tokenTimestamp"
	KeyCart           = "persist:cart"
	KeyWishlist       = "persist:wishlist"
	KeyOrders         = "persist:orders"
	KeyComparison     = "persist:comparison"
)

// The catalog is refetched on every start and never written.
var whitelist = map[string]struct{}{
	KeyProfile:        {},
	KeyTokenTimestamp: {},
	KeyCart:           {},
	KeyWishlist:       {},
	KeyOrders:         {},
	KeyComparison:     {},
}

func Whitelisted(key string) bool {
	_, ok := whitelist[key]
	return ok
}
