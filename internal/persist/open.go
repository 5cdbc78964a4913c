package persist

import (
	"context"
	"fmt"
)

type Options struct {
	Driver        string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	PostgresDSN   string
}

func Open(ctx context.Context, o Options) (Store, error) {
	switch o.Driver {
	case "", "memory":
		return NewMemStore(), nil
	case "file":
		return NewFileStore(o.Path)
	case "redis":
		rdb, err := DialRedis(ctx, o.RedisAddr, o.RedisPassword, o.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("redis %s: %w", o.RedisAddr, err)
		}
		return NewRedisStore(rdb, o.RedisPrefix), nil
	case "postgres":
		return OpenPostgres(ctx, o.PostgresDSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, o.Driver)
	}
}
