package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Config holds the configuration for the Redis-backed session store.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Key is the hash under which the session fields live. Required so two
	// embedding applications sharing one Redis never clobber each other.
	Key string
}

// NewRedisClient connects and pings the Redis server.
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	options := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := redis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// Store keeps all session fields inside a single Redis hash, so composite
// writes and removals land in one command and no reader sees a partial set.
type Store struct {
	client *redis.Client
	key    string
}

func New(client *redis.Client, cfg Config) (*Store, error) {
	if cfg.Key == "" {
		return nil, errors.New("hash key is required")
	}
	return &Store{client: client, key: cfg.Key}, nil
}

func (s *Store) SetItem(ctx context.Context, key string, value []byte) error {
	return s.client.HSet(ctx, s.key, key, value).Err()
}

func (s *Store) GetItem(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.HGet(ctx, s.key, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) RemoveItem(ctx context.Context, key string) error {
	return s.client.HDel(ctx, s.key, key).Err()
}

func (s *Store) SetItems(ctx context.Context, items map[string][]byte) error {
	pairs := make([]interface{}, 0, len(items)*2)
	for key, value := range items {
		pairs = append(pairs, key, value)
	}
	return s.client.HSet(ctx, s.key, pairs...).Err()
}

func (s *Store) RemoveItems(ctx context.Context, keys ...string) error {
	return s.client.HDel(ctx, s.key, keys...).Err()
}

func (s *Store) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
