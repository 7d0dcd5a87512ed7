package cryptovault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"
)

// Store is a durable key/value medium for serialized collections.
//
// Get returns an error wrapping fs.ErrNotExist when the key has never been written.
// Put must be durable when it returns without error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Collection persists an ordered sequence of T under a fixed key of a Store.
type Collection[T any] struct {
	store Store
	key   string
	log   *zap.Logger
}

// NewCollection returns the collection stored under key in s.
func NewCollection[T any](s Store, key string, log *zap.Logger) *Collection[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collection[T]{store: s, key: key, log: log.With(zap.String("collection", key))}
}

// Load reads the collection. ok is false when the collection is absent or cannot be
// decoded: both cases are logged and the caller starts from an empty collection.
func (c *Collection[T]) Load(ctx context.Context) (items []T, ok bool) {
	data, err := c.store.Get(ctx, c.key)
	if errors.Is(err, fs.ErrNotExist) {
		c.log.Debug("collection does not exist yet")
		return nil, false
	}
	if err != nil {
		c.log.Warn("cannot read collection", zap.Error(err))
		return nil, false
	}
	if err := json.Unmarshal(data, &items); err != nil {
		c.log.Warn("malformed collection, ignored", zap.Error(err))
		return nil, false
	}
	return items, true
}

// Save writes the full collection, replacing the previous one.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cannot encode collection %q: %w", c.key, err)
	}
	if err := c.store.Put(ctx, c.key, data); err != nil {
		return fmt.Errorf("cannot write collection %q: %w", c.key, err)
	}
	return nil
}
