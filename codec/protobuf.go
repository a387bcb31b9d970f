package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
)

var errNilMessage = errors.New("codec: nil proto message")

// Protobuf encodes proto messages with deterministic marshaling (map entries
// ordered), which makes it usable for keys within a single binary version.
// The zero value is NOT ready to use. Construct with NewProtobuf.
type Protobuf[T proto.Message] struct {
	new    func() T // e.g. func() *mypb.User { return &mypb.User{} }
	strict bool
}

// NewProtobuf builds a codec around ctor, which must return a fresh message.
// Unknown fields are kept on decode; see Strict.
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

// Strict returns a copy that rejects payloads carrying fields unknown to T.
// Foreign writers with a newer schema then fail instead of silently losing data.
func (c Protobuf[T]) Strict() Protobuf[T] {
	c.strict = true
	return c
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	if !v.ProtoReflect().IsValid() {
		return nil, errNilMessage
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	if err := proto.Unmarshal(b, m); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if c.strict && len(m.ProtoReflect().GetUnknown()) > 0 {
		var zero T
		return zero, fmt.Errorf("%w: unknown fields in %s", ErrMalformed, m.ProtoReflect().Descriptor().FullName())
	}
	return m, nil
}
