// Package wire holds the bounds-checked little-endian primitives behind the
// binary codec.
//
// Layout rules:
//
//	fixed-size ints   little-endian, natural width (u8/u16/u32/u64)
//	byte sequences    len(u64 le) | bytes(len)
//
// Reader never slices past the end of its input; a short buffer or a length
// prefix announcing more than is available yields ErrTruncated.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var (
	ErrTruncated     = errors.New("wire: truncated input")
	ErrTrailingBytes = errors.New("wire: trailing bytes")
)

// Writer appends fixed-width and length-prefixed fields to a buffer.
// The zero value is ready to use.
type Writer struct {
	buf bytes.Buffer
}

// Grow reserves room for n more bytes.
func (w *Writer) Grow(n int) { w.buf.Grow(n) }

func (w *Writer) Uint8(v uint8) { w.buf.WriteByte(v) }

func (w *Writer) Uint16(v uint16) {
	var u2 [2]byte
	binary.LittleEndian.PutUint16(u2[:], v)
	w.buf.Write(u2[:])
}

func (w *Writer) Uint32(v uint32) {
	var u4 [4]byte
	binary.LittleEndian.PutUint32(u4[:], v)
	w.buf.Write(u4[:])
}

func (w *Writer) Uint64(v uint64) {
	var u8 [8]byte
	binary.LittleEndian.PutUint64(u8[:], v)
	w.buf.Write(u8[:])
}

// Len writes a u64 length prefix.
func (w *Writer) Len(n int) { w.Uint64(uint64(n)) }

// Raw appends b with no framing.
func (w *Writer) Raw(b []byte) { w.buf.Write(b) }

// Blob writes len(b) followed by b.
func (w *Writer) Blob(b []byte) {
	w.Len(len(b))
	w.buf.Write(b)
}

// Text writes len(s) followed by the bytes of s.
func (w *Writer) Text(s string) {
	w.Len(len(s))
	w.buf.WriteString(s)
}

// Out returns the encoded bytes. The slice aliases the Writer's buffer
// until the next write.
func (w *Writer) Out() []byte { return w.buf.Bytes() }

func (w *Writer) Size() int { return w.buf.Len() }

// Reader consumes fields from b in order.
type Reader struct {
	b   []byte
	off int
}

func NewReader(b []byte) *Reader { return &Reader{b: b} }

// Remaining is the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.b) - r.off }

func (r *Reader) next(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() { // overflow-safe bound check
		return nil, ErrTruncated
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p, nil
}

func (r *Reader) Uint8() (uint8, error) {
	p, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (r *Reader) Uint16() (uint16, error) {
	p, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

func (r *Reader) Uint32() (uint32, error) {
	p, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

func (r *Reader) Uint64() (uint64, error) {
	p, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

// Len reads a u64 length prefix and checks that at least n*unit bytes
// remain. unit is the smallest encoded size of one element; 0 skips the check.
func (r *Reader) Len(unit int) (int, error) {
	u, err := r.Uint64()
	if err != nil {
		return 0, err
	}
	if unit > 0 && u > uint64(r.Remaining()/unit) {
		return 0, ErrTruncated
	}
	if u > uint64(int(^uint(0)>>1)) {
		return 0, ErrTruncated
	}
	return int(u), nil
}

// Blob reads a length-prefixed byte sequence. The result aliases the input.
func (r *Reader) Blob() ([]byte, error) {
	n, err := r.Len(1)
	if err != nil {
		return nil, err
	}
	return r.next(n)
}

// Text reads a length-prefixed string.
func (r *Reader) Text() (string, error) {
	p, err := r.Blob()
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// Done fails with ErrTrailingBytes unless the input is fully consumed.
func (r *Reader) Done() error {
	if r.Remaining() != 0 {
		return ErrTrailingBytes
	}
	return nil
}
