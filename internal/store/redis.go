package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string        // Redis server address (host:port)
	Password string        // Redis password (optional)
	DB       int           // Redis database number
	Prefix   string        // key namespace, defaults to "clipdesk:session:"
	TTL      time.Duration // zero keeps keys until overwritten
}

// Redis is a KV shared with other local processes through Redis, so a
// scheduling stage running elsewhere on the machine can read the handoff.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("connected to redis session store", "addr", cfg.Addr, "db", cfg.DB)
	return newRedisWithClient(client, cfg, logger), nil
}

func newRedisWithClient(client *redis.Client, cfg RedisConfig, logger *slog.Logger) *Redis {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "clipdesk:session:"
	}
	return &Redis{client: client, prefix: prefix, ttl: cfg.TTL, logger: logger}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
