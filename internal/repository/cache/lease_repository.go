package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/domain/repository"
)

// releaseScript удаляет ключ, только если он принадлежит владельцу токена
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type leaseRepository struct {
	client *redis.Client
	logger *zap.Logger
}

func NewLeaseRepository(redis *Redis) repository.LeaseRepository {
	return &leaseRepository{
		client: redis.Client(),
		logger: redis.logger,
	}
}

func (r *leaseRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	// SET key token PX ttl NX
	acquired, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		r.logger.Error("Failed to acquire lease", zap.String("key", key), zap.Error(err))
		return "", false, fmt.Errorf("lease acquire error: %w", err)
	}
	if !acquired {
		r.logger.Debug("Lease already held", zap.String("key", key))
		return "", false, nil
	}

	r.logger.Debug("Lease acquired", zap.String("key", key), zap.Duration("ttl", ttl))
	return token, true, nil
}

func (r *leaseRepository) Release(ctx context.Context, key, token string) error {
	released, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int()
	if err != nil {
		r.logger.Error("Failed to release lease", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("lease release error: %w", err)
	}
	if released == 0 {
		r.logger.Warn("Lease expired before release", zap.String("key", key))
	}
	return nil
}
