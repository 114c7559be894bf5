// Package redis stores snapshots in Redis.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/matzehuels/routegraph/pkg/store"
)

// Store is a [store.Store] backed by a Redis client.
type Store struct {
	rdb *goredis.Client
}

// New creates a store for the server at addr.
func New(addr, password string, db int) *Store {
	return &Store{rdb: goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Open creates a store from a redis:// URL.
func Open(url string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Store{rdb: goredis.NewClient(opts)}, nil
}

// Addr returns the server address.
func (s *Store) Addr() string { return s.rdb.Options().Addr }

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := store.RetryWithBackoff(ctx, func() error {
		v, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			return store.Classify(err)
		}
		data = v
		return nil
	})
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return store.RetryWithBackoff(ctx, func() error {
		return store.Classify(s.rdb.Set(ctx, key, data, ttl).Err())
	})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return store.RetryWithBackoff(ctx, func() error {
		return store.Classify(s.rdb.Del(ctx, key).Err())
	})
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *Store) Close() error { return s.rdb.Close() }

var _ store.Store = (*Store)(nil)
