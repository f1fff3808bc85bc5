package locker

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/craftbase/paylane/internal/config"
)

// New selects the lock backend: redis when configured (multi-replica
// deployments), in-process otherwise.
func New(cfg config.Config, policy *config.SettlementPolicyHolder, log *zap.Logger) KeyedLocker {
	wait := policy.Get().LockWait()

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		log.Info("resource locks backed by redis", zap.String("addr", cfg.RedisAddr))
		return NewRedisLocker(client, wait, 3*wait)
	}

	return NewMemoryLocker(wait)
}

// Module wires the resource locker.
var Module = fx.Module("locker",
	fx.Provide(New),
)
