package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/certmap/internal/models"
	"github.com/terra-clan/certmap/internal/schema"
)

// DefaultRedisKey holds the catalog as a JSON array
const DefaultRedisKey = "certmap:catalog"

// RedisSource reads the catalog from a single Redis key
type RedisSource struct {
	client *redis.Client
	key    string
}

// NewRedisSource connects to Redis and verifies the connection
func NewRedisSource(ctx context.Context, address, password string, db int, key string) (*RedisSource, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSource{client: client, key: key}, nil
}

func (s *RedisSource) Name() string {
	return "redis:" + s.key
}

// Fetch reads and decodes the catalog key
func (s *RedisSource) Fetch(ctx context.Context) ([]any, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCatalogMissing
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	return schema.DecodeCollection(data)
}

// Store writes records to the catalog key
func (s *RedisSource) Store(ctx context.Context, records []*models.Certification) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.key, err)
	}

	slog.Info("catalog stored in redis", "key", s.key, "count", len(records))
	return nil
}

// HealthCheck verifies Redis connectivity
func (s *RedisSource) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisSource) Close() error {
	return s.client.Close()
}
