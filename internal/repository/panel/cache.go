package panel

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key is absent from the cache.
var ErrNotFound = errors.New("cache key not found")

// Cache is the key-value storage behind the panel flag.
type Cache interface {
	GetBool(ctx context.Context, key string) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
}
