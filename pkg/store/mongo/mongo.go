// Package mongo stores snapshots as documents of a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/routegraph/pkg/store"
)

// DefaultCollection is the collection used by Open.
const DefaultCollection = "routing_snapshots"

// Store is a [store.Store] backed by a MongoDB collection. Documents are
// keyed by _id.
type Store struct {
	coll   *mongo.Collection
	client *mongo.Client
}

type entry struct {
	Key       string     `bson:"_id"`
	Data      []byte     `bson:"data"`
	SavedAt   time.Time  `bson:"saved_at"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// New wraps an existing collection. Close leaves the client connected.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// Open connects to uri and uses the routing_snapshots collection of database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return &Store{
		coll:   client.Database(database).Collection(DefaultCollection),
		client: client,
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var e entry
	err := store.RetryWithBackoff(ctx, func() error {
		return store.Classify(s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&e))
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if e.ExpiresAt != nil && time.Now().After(*e.ExpiresAt) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return e.Data, true, nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	e := entry{Key: key, Data: data, SavedAt: time.Now().UTC()}
	if ttl > 0 {
		t := e.SavedAt.Add(ttl)
		e.ExpiresAt = &t
	}
	return store.RetryWithBackoff(ctx, func() error {
		_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, e, options.Replace().SetUpsert(true))
		return store.Classify(err)
	})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return store.RetryWithBackoff(ctx, func() error {
		_, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
		return store.Classify(err)
	})
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

var _ store.Store = (*Store)(nil)
