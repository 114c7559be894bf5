package store

import (
	"context"
	"time"
)

// NullStore never stores anything.
type NullStore struct{}

// NewNullStore creates a null store.
func NewNullStore() Store { return &NullStore{} }

func (s *NullStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *NullStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

func (s *NullStore) Delete(ctx context.Context, key string) error { return nil }
func (s *NullStore) Close() error                                 { return nil }

var _ Store = (*NullStore)(nil)
