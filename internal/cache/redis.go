package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"food-order-service/internal/model"
)

// RedisTokenCache cachea el resultado de /validate-token para no golpear al
// auth-service en cada request.
type RedisTokenCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTokenCache(addr, password string, db int, ttl time.Duration) *RedisTokenCache {
	return &RedisTokenCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func (r *RedisTokenCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get devuelve (nil, nil) si la clave no existe.
func (r *RedisTokenCache) Get(ctx context.Context, key string) (*model.Identity, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var id model.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *RedisTokenCache) Set(ctx context.Context, key string, id *model.Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *RedisTokenCache) Close() error {
	return r.client.Close()
}
