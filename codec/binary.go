package codec

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"sync"

	"github.com/unkn0wn-root/kvstore/internal/wire"
)

// Binary is the deterministic binary codec. The zero value is ready to use.
//
// Layout (all integers little-endian, no padding, no delimiters):
//
//	bool                 u8 (0 or 1)
//	int8/uint8           1 byte
//	int16/uint16         2 bytes
//	int32/uint32         4 bytes
//	int64/uint64/int/uint 8 bytes
//	float32/float64      IEEE-754 bits, 4/8 bytes
//	complex64/128        real | imag
//	string, []T          len(u64) | elements
//	[N]T                 N elements
//	map[K]V              len(u64) | (key | value)*, sorted by encoded key bytes
//	*T                   u8 tag (0 nil, 1 present) | T
//	struct               exported fields in declaration order (`bin:"-"` skips)
//	BinaryMarshaler      len(u64) | MarshalBinary()
//
// Interfaces, channels, funcs, uintptr and unsafe pointers are not supported
// and fail with *UnsupportedTypeError. Empty slices and maps decode as nil.
// Decode rejects truncated input, trailing bytes and invalid bool/tag bytes.
type Binary[V any] struct{}

var _ Codec[struct{}] = Binary[struct{}]{}

var (
	// ErrMalformed reports input that is structurally invalid for the target type.
	ErrMalformed = errors.New("codec: malformed input")
	// ErrTruncated reports input that ends before the value does.
	ErrTruncated = wire.ErrTruncated
	// ErrTrailingBytes reports input with bytes left over after the value.
	ErrTrailingBytes = wire.ErrTrailingBytes
	// ErrTooDeep reports values nested past maxDepth, usually a pointer cycle.
	ErrTooDeep = errors.New("codec: value nested too deep")
)

// UnsupportedTypeError is returned for types Binary cannot represent.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return "codec: unsupported type " + e.Type.String()
}

const (
	maxDepth = 512
	// cap on element count for element types that encode to zero bytes
	maxZeroSizeElems = 1 << 20
)

func (Binary[V]) Encode(v V) ([]byte, error) {
	if err := checkType(reflect.TypeOf((*V)(nil)).Elem()); err != nil {
		return nil, err
	}
	var w wire.Writer
	rv := reflect.ValueOf(&v).Elem()
	w.Grow(minSize(rv.Type()))
	if err := encodeValue(&w, rv, 0); err != nil {
		return nil, err
	}
	return w.Out(), nil
}

func (Binary[V]) Decode(b []byte) (V, error) {
	var v V
	if err := checkType(reflect.TypeOf((*V)(nil)).Elem()); err != nil {
		return v, err
	}
	r := wire.NewReader(b)
	if err := decodeValue(r, reflect.ValueOf(&v).Elem(), 0); err != nil {
		var zero V
		return zero, err
	}
	if err := r.Done(); err != nil {
		var zero V
		return zero, err
	}
	return v, nil
}

var (
	binaryMarshalerType   = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()
	binaryUnmarshalerType = reflect.TypeOf((*encoding.BinaryUnmarshaler)(nil)).Elem()
)

// usesBinaryMarshal reports whether t delegates to its own binary
// (un)marshaling. Both directions must exist or neither is used.
func usesBinaryMarshal(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
		return false
	}
	return t.Implements(binaryMarshalerType) && reflect.PointerTo(t).Implements(binaryUnmarshalerType)
}

func encodeValue(w *wire.Writer, v reflect.Value, depth int) error {
	if depth > maxDepth {
		return ErrTooDeep
	}
	t := v.Type()
	if usesBinaryMarshal(t) {
		b, err := v.Interface().(encoding.BinaryMarshaler).MarshalBinary()
		if err != nil {
			return fmt.Errorf("codec: %s: %w", t, err)
		}
		w.Blob(b)
		return nil
	}

	switch t.Kind() {
	case reflect.Bool:
		if v.Bool() {
			w.Uint8(1)
		} else {
			w.Uint8(0)
		}
	case reflect.Int8:
		w.Uint8(uint8(v.Int()))
	case reflect.Int16:
		w.Uint16(uint16(v.Int()))
	case reflect.Int32:
		w.Uint32(uint32(v.Int()))
	case reflect.Int64, reflect.Int:
		w.Uint64(uint64(v.Int()))
	case reflect.Uint8:
		w.Uint8(uint8(v.Uint()))
	case reflect.Uint16:
		w.Uint16(uint16(v.Uint()))
	case reflect.Uint32:
		w.Uint32(uint32(v.Uint()))
	case reflect.Uint64, reflect.Uint:
		w.Uint64(v.Uint())
	case reflect.Float32:
		w.Uint32(math.Float32bits(float32(posZero(v.Float()))))
	case reflect.Float64:
		w.Uint64(math.Float64bits(posZero(v.Float())))
	case reflect.Complex64:
		c := v.Complex()
		w.Uint32(math.Float32bits(float32(posZero(real(c)))))
		w.Uint32(math.Float32bits(float32(posZero(imag(c)))))
	case reflect.Complex128:
		c := v.Complex()
		w.Uint64(math.Float64bits(posZero(real(c))))
		w.Uint64(math.Float64bits(posZero(imag(c))))
	case reflect.String:
		w.Text(v.String())
	case reflect.Slice:
		if isByteSeq(t) {
			w.Blob(v.Bytes())
			return nil
		}
		w.Len(v.Len())
		for i := 0; i < v.Len(); i++ {
			if err := encodeValue(w, v.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := encodeValue(w, v.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		return encodeMap(w, v, depth)
	case reflect.Pointer:
		if v.IsNil() {
			w.Uint8(0)
			return nil
		}
		w.Uint8(1)
		return encodeValue(w, v.Elem(), depth+1)
	case reflect.Struct:
		for _, i := range cachedFields(t) {
			if err := encodeValue(w, v.Field(i), depth+1); err != nil {
				return err
			}
		}
	default:
		return &UnsupportedTypeError{Type: t}
	}
	return nil
}

// posZero maps -0 to +0. They compare equal, so they must encode equally.
func posZero(f float64) float64 {
	if f == 0 {
		return 0
	}
	return f
}

type mapEntry struct {
	key []byte
	val reflect.Value
}

// encodeMap writes entries ordered by their encoded key so that map
// iteration order never leaks into the output.
func encodeMap(w *wire.Writer, v reflect.Value, depth int) error {
	entries := make([]mapEntry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		var kw wire.Writer
		if err := encodeValue(&kw, iter.Key(), depth+1); err != nil {
			return err
		}
		entries = append(entries, mapEntry{key: kw.Out(), val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	w.Len(len(entries))
	for _, e := range entries {
		w.Raw(e.key)
		if err := encodeValue(w, e.val, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// decodeValue fills v, which must be settable.
func decodeValue(r *wire.Reader, v reflect.Value, depth int) error {
	if depth > maxDepth {
		return ErrTooDeep
	}
	t := v.Type()
	if usesBinaryMarshal(t) {
		p, err := r.Blob()
		if err != nil {
			return err
		}
		u := v.Addr().Interface().(encoding.BinaryUnmarshaler)
		if err := u.UnmarshalBinary(bytes.Clone(p)); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformed, t, err)
		}
		return nil
	}

	switch t.Kind() {
	case reflect.Bool:
		b, err := r.Uint8()
		if err != nil {
			return err
		}
		if b > 1 {
			return fmt.Errorf("%w: bool byte %#x", ErrMalformed, b)
		}
		v.SetBool(b == 1)
	case reflect.Int8:
		u, err := r.Uint8()
		if err != nil {
			return err
		}
		v.SetInt(int64(int8(u)))
	case reflect.Int16:
		u, err := r.Uint16()
		if err != nil {
			return err
		}
		v.SetInt(int64(int16(u)))
	case reflect.Int32:
		u, err := r.Uint32()
		if err != nil {
			return err
		}
		v.SetInt(int64(int32(u)))
	case reflect.Int64, reflect.Int:
		u, err := r.Uint64()
		if err != nil {
			return err
		}
		if v.OverflowInt(int64(u)) {
			return fmt.Errorf("%w: %d overflows %s", ErrMalformed, int64(u), t)
		}
		v.SetInt(int64(u))
	case reflect.Uint8:
		u, err := r.Uint8()
		if err != nil {
			return err
		}
		v.SetUint(uint64(u))
	case reflect.Uint16:
		u, err := r.Uint16()
		if err != nil {
			return err
		}
		v.SetUint(uint64(u))
	case reflect.Uint32:
		u, err := r.Uint32()
		if err != nil {
			return err
		}
		v.SetUint(uint64(u))
	case reflect.Uint64, reflect.Uint:
		u, err := r.Uint64()
		if err != nil {
			return err
		}
		if v.OverflowUint(u) {
			return fmt.Errorf("%w: %d overflows %s", ErrMalformed, u, t)
		}
		v.SetUint(u)
	case reflect.Float32:
		u, err := r.Uint32()
		if err != nil {
			return err
		}
		v.SetFloat(float64(math.Float32frombits(u)))
	case reflect.Float64:
		u, err := r.Uint64()
		if err != nil {
			return err
		}
		v.SetFloat(math.Float64frombits(u))
	case reflect.Complex64:
		re, err := r.Uint32()
		if err != nil {
			return err
		}
		im, err := r.Uint32()
		if err != nil {
			return err
		}
		v.SetComplex(complex(float64(math.Float32frombits(re)), float64(math.Float32frombits(im))))
	case reflect.Complex128:
		re, err := r.Uint64()
		if err != nil {
			return err
		}
		im, err := r.Uint64()
		if err != nil {
			return err
		}
		v.SetComplex(complex(math.Float64frombits(re), math.Float64frombits(im)))
	case reflect.String:
		s, err := r.Text()
		if err != nil {
			return err
		}
		v.SetString(s)
	case reflect.Slice:
		return decodeSlice(r, v, depth)
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := decodeValue(r, v.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		return decodeMap(r, v, depth)
	case reflect.Pointer:
		tag, err := r.Uint8()
		if err != nil {
			return err
		}
		switch tag {
		case 0:
			v.SetZero()
		case 1:
			p := reflect.New(t.Elem())
			if err := decodeValue(r, p.Elem(), depth+1); err != nil {
				return err
			}
			v.Set(p)
		default:
			return fmt.Errorf("%w: pointer tag %#x", ErrMalformed, tag)
		}
	case reflect.Struct:
		for _, i := range cachedFields(t) {
			if err := decodeValue(r, v.Field(i), depth+1); err != nil {
				return err
			}
		}
	default:
		return &UnsupportedTypeError{Type: t}
	}
	return nil
}

func decodeSlice(r *wire.Reader, v reflect.Value, depth int) error {
	t := v.Type()
	if isByteSeq(t) {
		p, err := r.Blob()
		if err != nil {
			return err
		}
		if len(p) > 0 {
			v.SetBytes(bytes.Clone(p))
		}
		return nil
	}

	n, err := readLen(r, minSize(t.Elem()))
	if err != nil || n == 0 {
		return err
	}
	s := reflect.MakeSlice(t, n, n)
	for i := 0; i < n; i++ {
		if err := decodeValue(r, s.Index(i), depth+1); err != nil {
			return err
		}
	}
	v.Set(s)
	return nil
}

func decodeMap(r *wire.Reader, v reflect.Value, depth int) error {
	t := v.Type()
	n, err := readLen(r, minSize(t.Key())+minSize(t.Elem()))
	if err != nil || n == 0 {
		return err
	}
	m := reflect.MakeMapWithSize(t, n)
	for i := 0; i < n; i++ {
		k := reflect.New(t.Key()).Elem()
		if err := decodeValue(r, k, depth+1); err != nil {
			return err
		}
		if m.MapIndex(k).IsValid() {
			return fmt.Errorf("%w: duplicate map key", ErrMalformed)
		}
		e := reflect.New(t.Elem()).Elem()
		if err := decodeValue(r, e, depth+1); err != nil {
			return err
		}
		m.SetMapIndex(k, e)
	}
	v.Set(m)
	return nil
}

// readLen reads an element count. When elements have a non-zero minimum
// size the count is bounded by the remaining input, so a forged prefix
// cannot force a huge allocation.
func readLen(r *wire.Reader, unit int) (int, error) {
	n, err := r.Len(unit)
	if err != nil {
		return 0, err
	}
	if unit == 0 && n > maxZeroSizeElems {
		return 0, fmt.Errorf("%w: %d zero-size elements", ErrMalformed, n)
	}
	return n, nil
}

func isByteSeq(t reflect.Type) bool {
	return t.Elem().Kind() == reflect.Uint8 && !usesBinaryMarshal(t.Elem())
}

// minSize is the smallest number of bytes a value of type t encodes to.
func minSize(t reflect.Type) int {
	if usesBinaryMarshal(t) {
		return 8
	}
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8, reflect.Pointer:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint, reflect.Float64, reflect.Complex64:
		return 8
	case reflect.Complex128:
		return 16
	case reflect.String, reflect.Slice, reflect.Map:
		return 8
	case reflect.Array:
		return t.Len() * minSize(t.Elem())
	case reflect.Struct:
		n := 0
		for _, i := range cachedFields(t) {
			n += minSize(t.Field(i).Type)
		}
		return n
	default:
		return 0
	}
}

var typeCache sync.Map // map[reflect.Type]error

// checkType rejects a type that contains an unsupported kind anywhere, so an
// empty []func() fails the same way a non-empty one does.
func checkType(t reflect.Type) error {
	if e, ok := typeCache.Load(t); ok {
		err, _ := e.(error)
		return err
	}
	err := walkType(t, make(map[reflect.Type]bool))
	typeCache.Store(t, err)
	return err
}

func walkType(t reflect.Type, seen map[reflect.Type]bool) error {
	if seen[t] {
		return nil
	}
	seen[t] = true
	if usesBinaryMarshal(t) {
		return nil
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return nil
	case reflect.Slice, reflect.Array, reflect.Pointer:
		return walkType(t.Elem(), seen)
	case reflect.Map:
		if err := walkType(t.Key(), seen); err != nil {
			return err
		}
		return walkType(t.Elem(), seen)
	case reflect.Struct:
		for _, i := range cachedFields(t) {
			if err := walkType(t.Field(i).Type, seen); err != nil {
				return err
			}
		}
		return nil
	default:
		return &UnsupportedTypeError{Type: t}
	}
}

var fieldCache sync.Map // map[reflect.Type][]int

// cachedFields returns the indices of the struct fields Binary encodes.
func cachedFields(t reflect.Type) []int {
	if f, ok := fieldCache.Load(t); ok {
		return f.([]int)
	}
	fields := make([]int, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Tag.Get("bin") == "-" {
			continue
		}
		fields = append(fields, i)
	}
	f, _ := fieldCache.LoadOrStore(t, fields)
	return f.([]int)
}
