// Package clients builds the shared external-service clients nimbus-director
// wires into its components: currently just the Redis client the liveness
// oracle reads from.
package clients

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nimbusio/nimbus-director/config"
)

// NewRedisClient builds and pings a Redis client from cfg, mirroring the
// director's original StrictRedis(host, port, db) construction.
func NewRedisClient(cfg *config.Config) (redis.UniversalClient, error) {
	r := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		DB:   cfg.RedisDB,
	})

	if err := r.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return r, nil
}
