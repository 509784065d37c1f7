package memcache_fx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"glucoach/internal/config"
	"glucoach/internal/infra"
	mem "glucoach/pkg/memcache"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Provide(
	provideRedisClient, provideIdempotencyStore)

// provideRedisClient returns nil when REDIS_ADDR is unset.
func provideRedisClient(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := infra.NewRedisClient(ctx, cfg.Redis)
	if err != nil || client == nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func provideIdempotencyStore(lc fx.Lifecycle, client *redis.Client, log *zap.Logger) mem.IdempotencyStore {
	if client != nil {
		log.Info("idempotency store: redis")
		return mem.NewRedisStore(client)
	}

	log.Info("idempotency store: in-process")
	store := mem.NewMemoryStore(nil)
	stop := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ticker := time.NewTicker(10 * time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if n := store.Sweep(); n > 0 {
							log.Debug("idempotency records expired", zap.Int("count", n))
						}
					case <-stop:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			return nil
		},
	})
	return store
}
