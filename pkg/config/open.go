package config

import (
	"context"

	"github.com/matzehuels/routegraph/pkg/store"
	"github.com/matzehuels/routegraph/pkg/store/mongo"
	"github.com/matzehuels/routegraph/pkg/store/postgres"
	"github.com/matzehuels/routegraph/pkg/store/redis"
)

// OpenStore connects the configured backend.
func (c StoreConfig) OpenStore(ctx context.Context) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch c.Backend {
	case BackendNull:
		return store.NewNullStore(), nil
	case BackendRedis:
		s, err = redis.Open(c.URL)
	case BackendPostgres:
		s, err = postgres.Open(ctx, c.URL)
	case BackendMongo:
		s, err = mongo.Open(ctx, c.URL, c.Database)
	default:
		s, err = store.NewFileStore(c.Path)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Keyer returns the key scheme, scoped by Prefix when set.
func (c StoreConfig) Keyer() store.Keyer {
	if c.Prefix == "" {
		return store.NewDefaultKeyer()
	}
	return store.NewScopedKeyer(nil, c.Prefix)
}
