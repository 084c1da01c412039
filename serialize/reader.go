package serialize

import (
	"fmt"
	"math"
	"time"

	"github.com/joshuapare/nodestore/internal/buf"
)

// Reader is a forward-only cursor over an encoded payload, the exact inverse
// of Writer.
type Reader struct {
	b   []byte
	off int
}

// NewReader wraps b for sequential decoding starting at offset 0.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.b) - r.off
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.b) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, r.Remaining())
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a fixed-width, little-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return buf.U16LE(b), nil
}

// ReadU32 reads a fixed-width, little-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return buf.U32LE(b), nil
}

// ReadU64 reads a fixed-width, little-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return buf.U64LE(b), nil
}

// ReadI32 reads a fixed-width, little-endian int32.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadI64 reads a fixed-width, little-endian int64.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadF32 reads an IEEE-754 binary32 value.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64 reads an IEEE-754 binary64 value.
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadRaw reads exactly n bytes with no length prefix. The returned slice
// aliases the reader's underlying buffer; copy it if it must outlive the
// buffer.
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	return r.take(n)
}

// ReadLen reads a usize length/count prefix.
func (r *Reader) ReadLen() (int, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// ReadString reads a usize byte length followed by that many raw bytes and
// returns them as a freshly allocated string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadLen()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadTime reads a time point encoded as signed milliseconds since the Unix
// epoch. A stored 0 decodes to the zero time.Time ("never"), the exact
// inverse of Writer.WriteTime.
func (r *Reader) ReadTime() (time.Time, error) {
	ms, err := r.ReadI64()
	if err != nil {
		return time.Time{}, err
	}
	if ms == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms).UTC(), nil
}

// ReadTag reads a tagged union's variant index.
func (r *Reader) ReadTag() (int, error) {
	return r.ReadLen()
}

// ReadSlice reads a variable sequence written by WriteSlice.
func ReadSlice[T any](r *Reader, readItem func(*Reader) (T, error)) ([]T, error) {
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	if n < 0 || n > r.Remaining() {
		return nil, fmt.Errorf("%w: slice length %d exceeds remaining input", ErrTruncated, n)
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		item, err := readItem(r)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// ReadMap reads a mapping written by WriteMap.
func ReadMap[K comparable, V any](r *Reader, readKey func(*Reader) (K, error), readVal func(*Reader) (V, error)) (map[K]V, error) {
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	if n < 0 || n > r.Remaining() {
		return nil, fmt.Errorf("%w: map length %d exceeds remaining input", ErrTruncated, n)
	}
	out := make(map[K]V, n)
	for i := 0; i < n; i++ {
		k, err := readKey(r)
		if err != nil {
			return nil, err
		}
		v, err := readVal(r)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
