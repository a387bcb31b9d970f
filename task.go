package kvstore

import "context"

// Lookup is the outcome of a single-key read or replace: Found is false when
// no value was (or had been) stored.
type Lookup[V any] struct {
	Value V
	Found bool
}

// Task is a pending or completed unit of work producing T.
// A Task resolves exactly once. Abandoning a Task does not undo work it has
// already committed.
type Task[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Resolved returns a Task that is already complete.
// Backends that do their work synchronously and never block hand these out.
func Resolved[T any](v T, err error) *Task[T] {
	t := &Task[T]{done: make(chan struct{}), val: v, err: err}
	close(t.done)
	return t
}

// Go runs fn in its own goroutine and returns a Task for its result.
// The work happens inside the task: ctx is handed to fn so cancelling it
// reaches lock acquisition and I/O waits.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.val, t.err = fn(ctx)
	}()
	return t
}

// Done is closed once the task has resolved.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Await blocks until the task resolves or ctx is done.
// When ctx wins, ctx.Err() is returned and the result is discarded.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	default:
	}
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// GetAsync runs g.Get as a Task.
func GetAsync[K, V any](ctx context.Context, g Getter[K, V], key K) *Task[Lookup[V]] {
	return Go(ctx, func(ctx context.Context) (Lookup[V], error) {
		v, ok, err := g.Get(ctx, key)
		return Lookup[V]{Value: v, Found: ok}, err
	})
}

// SetAsync runs s.Set as a Task. The Lookup holds the replaced value.
func SetAsync[K, V any](ctx context.Context, s Setter[K, V], key K, val V) *Task[Lookup[V]] {
	return Go(ctx, func(ctx context.Context) (Lookup[V], error) {
		prev, ok, err := s.Set(ctx, key, val)
		return Lookup[V]{Value: prev, Found: ok}, err
	})
}
