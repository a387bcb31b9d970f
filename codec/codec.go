// Package codec converts typed keys and values to and from bytes.
//
// Codecs used for keys MUST be deterministic: encoding logically equal values
// must always yield identical bytes, because byte stores compare encoded keys
// as opaque strings. Every codec in this package is deterministic for the
// types it supports (CBOR only when built with deterministic=true).
//
// Decode must fail, never panic, on bytes the codec did not produce.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
