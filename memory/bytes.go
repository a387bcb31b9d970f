package memory

import (
	"bytes"
	"context"

	"github.com/unkn0wn-root/kvstore"
)

// Bytes is a byte-keyed, byte-valued Store, the usual inner store for the
// typed adapter. []byte is not comparable, so keys are held as strings.
// Values are cloned in and out; callers may reuse their buffers.
type Bytes struct {
	s *Store[string, []byte]
}

var _ kvstore.Store[[]byte, []byte] = (*Bytes)(nil)

func NewBytes() *Bytes {
	return &Bytes{s: NewWithClone[string, []byte](cloneBytes)}
}

func (b *Bytes) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	return b.s.Get(ctx, string(key))
}

func (b *Bytes) Set(ctx context.Context, key, val []byte) ([]byte, bool, error) {
	return b.s.Set(ctx, string(key), val)
}

func (b *Bytes) Len() int { return b.s.Len() }

func (b *Bytes) Close(ctx context.Context) error { return b.s.Close(ctx) }

// cloneBytes keeps nil as nil so a stored nil reads back as nil.
func cloneBytes(b []byte) []byte { return bytes.Clone(b) }
