// Package typed exposes a kvstore.Store over arbitrary key and value types by
// translating through codecs into an inner byte store.
//
// Keys are encoded with a deterministic codec (codec.Binary by default) and
// compared by the inner store as opaque bytes, so two logically equal keys
// always address the same entry. Values are decoded on the way out; bytes the
// codec cannot decode are reported as errors, never as absence.
package typed

import (
	"context"

	"github.com/unkn0wn-root/kvstore"
	"github.com/unkn0wn-root/kvstore/codec"
	"github.com/unkn0wn-root/kvstore/internal/util"
)

// Options tune the adapter. Every field is optional.
type Options[K, V any] struct {
	KeyCodec   codec.Codec[K] // nil => codec.Binary[K]; MUST be deterministic
	ValueCodec codec.Codec[V] // nil => codec.Binary[V]
	Logger     kvstore.Logger // nil => NopLogger
	Hooks      kvstore.Hooks  // nil => NopHooks
}

// Store is a typed view over a byte store.
type Store[K, V any] struct {
	inner kvstore.Store[[]byte, []byte]
	keys  codec.Codec[K]
	vals  codec.Codec[V]
	log   kvstore.Logger
	hooks kvstore.Hooks
}

var _ kvstore.Store[string, int] = (*Store[string, int])(nil)

// New wraps inner. It fails only when inner is nil.
func New[K, V any](inner kvstore.Store[[]byte, []byte], opts Options[K, V]) (*Store[K, V], error) {
	if inner == nil {
		return nil, kvstore.ErrNilStore
	}
	s := &Store[K, V]{
		inner: inner,
		keys:  opts.KeyCodec,
		vals:  opts.ValueCodec,
	}
	if s.keys == nil {
		s.keys = codec.Binary[K]{}
	}
	if s.vals == nil {
		s.vals = codec.Binary[V]{}
	}
	s.log = kvstore.WithFields(util.Coalesce[kvstore.Logger](opts.Logger, kvstore.NopLogger{}),
		kvstore.Fields{"component": "typed"})
	s.hooks = util.Coalesce[kvstore.Hooks](opts.Hooks, kvstore.NopHooks{})
	return s, nil
}

// Must is like New with default Options but panics on error.
// Handy for tests/examples.
func Must[K, V any](inner kvstore.Store[[]byte, []byte]) *Store[K, V] {
	s, err := New[K, V](inner, Options[K, V]{})
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Store[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	bk, err := s.keys.Encode(key)
	if err != nil {
		return zero, false, s.codecErr("get", "key", "encode key", err)
	}
	raw, ok, err := s.inner.Get(ctx, bk)
	if err != nil {
		return zero, false, s.backendErr("get", err)
	}
	if !ok {
		return zero, false, nil
	}
	v, err := s.vals.Decode(raw)
	if err != nil {
		return zero, false, s.codecErr("get", "value", "decode value", err)
	}
	return v, true, nil
}

func (s *Store[K, V]) Set(ctx context.Context, key K, val V) (V, bool, error) {
	var zero V
	bk, err := s.keys.Encode(key)
	if err != nil {
		return zero, false, s.codecErr("set", "key", "encode key", err)
	}
	bv, err := s.vals.Encode(val)
	if err != nil {
		return zero, false, s.codecErr("set", "value", "encode value", err)
	}
	raw, ok, err := s.inner.Set(ctx, bk, bv)
	if err != nil {
		return zero, false, s.backendErr("set", err)
	}
	if !ok {
		return zero, false, nil
	}
	// the new value is stored even when the prior one cannot be decoded
	prev, err := s.vals.Decode(raw)
	if err != nil {
		return zero, false, s.codecErr("set", "prior", "decode prior value", err)
	}
	return prev, true, nil
}

// Close closes the inner store if it is a kvstore.Closer.
func (s *Store[K, V]) Close(ctx context.Context) error {
	return kvstore.Close(ctx, s.inner)
}

func (s *Store[K, V]) codecErr(op, part, msg string, err error) error {
	s.hooks.CodecFailure(op, part, err)
	s.log.Warn("codec failure", kvstore.Fields{"op": op, "part": part, "err": err})
	return &kvstore.Error{Op: op, Msg: msg, Err: err}
}

func (s *Store[K, V]) backendErr(op string, err error) error {
	s.hooks.BackendFailure(op, err)
	s.log.Debug("inner store failure", kvstore.Fields{"op": op, "err": err})
	return &kvstore.Error{Op: op, Msg: "inner store", Err: err}
}
