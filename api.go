package kvstore

import "context"

// Getter reads the value stored for a single key.
// Get returns (value, true, nil) on hit and (zero, false, nil) when nothing is
// stored under key. A non-nil error means presence could not be determined.
// Get must not mutate the store.
type Getter[K, V any] interface {
	Get(ctx context.Context, key K) (v V, ok bool, err error)
}

// Setter associates a value with a single key.
// Set fully replaces any existing value and returns the value it replaced:
// (prev, true, nil) when key was already set, (zero, false, nil) otherwise.
type Setter[K, V any] interface {
	Set(ctx context.Context, key K, val V) (prev V, ok bool, err error)
}

// Store is the aggregate capability of a usable key-value backend.
type Store[K, V any] interface {
	Getter[K, V]
	Setter[K, V]
}

// Closer is implemented by stores that hold releasable resources.
type Closer interface {
	Close(ctx context.Context) error
}

// Close closes s if it implements Closer. Otherwise it is a no-op.
func Close(ctx context.Context, s any) error {
	if c, ok := s.(Closer); ok {
		return c.Close(ctx)
	}
	return nil
}
