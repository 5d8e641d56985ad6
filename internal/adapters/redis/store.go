// Package redis provides a Redis-backed TokenStore.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

// DefaultTokenKey is the key the access token is stored under.
const DefaultTokenKey = "emotune:spotify_token"

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// TTL bounds how long a token is kept. Zero keeps it until cleared.
	TTL time.Duration
}

// TokenStore keeps the access token under a single key.
type TokenStore struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
}

var _ ports.TokenStore = (*TokenStore)(nil)

// Connect opens a client and verifies it with a PING.
func Connect(ctx context.Context, opts Options) (*TokenStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewTokenStore(client, opts.Key, opts.TTL), nil
}

// NewTokenStore wraps an existing client.
func NewTokenStore(client *goredis.Client, key string, ttl time.Duration) *TokenStore {
	if key == "" {
		key = DefaultTokenKey
	}
	return &TokenStore{client: client, key: key, ttl: ttl}
}

// LoadToken returns the stored token or domain.ErrNotFound.
func (s *TokenStore) LoadToken(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	if token == "" {
		return "", domain.ErrNotFound
	}
	return token, nil
}

// SaveToken stores token, replacing any previous one.
func (s *TokenStore) SaveToken(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// ClearToken deletes the key. A missing key is not an error.
func (s *TokenStore) ClearToken(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *TokenStore) Close() error {
	return s.client.Close()
}
