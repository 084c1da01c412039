// Package serialize implements the length-prefixed binary encoding used for
// the store's record payloads: property values, node records, and B+-tree
// nodes. The volume header and free-records blocks are laid out at fixed
// offsets by the volume package instead. One write/read pair exists per shape in spec.md §4.1:
// fixed-width primitives, fixed arrays, variable sequences, strings,
// mappings, time points, and tagged unions. Every Write is matched by a Read
// that is its exact inverse — round-tripping is a correctness invariant
// (spec.md §8, property 1), not a convenience.
package serialize

import (
	"bytes"
	"math"
	"time"

	"github.com/joshuapare/nodestore/internal/buf"
)

// Writer accumulates an encoded payload. The zero value is not usable; use
// NewWriter.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer ready for use.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the encoded payload accumulated so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// WriteU8 writes a single byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf.WriteByte(v)
}

// WriteU16 writes a fixed-width, little-endian uint16.
func (w *Writer) WriteU16(v uint16) {
	var tmp [2]byte
	buf.PutU16LE(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteU32 writes a fixed-width, little-endian uint32.
func (w *Writer) WriteU32(v uint32) {
	var tmp [4]byte
	buf.PutU32LE(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteU64 writes a fixed-width, little-endian uint64. Variable-length
// sequence/mapping/string prefixes and tagged-union tag indices all use this
// width (spec.md's "usize" is widened to 64 bits here — see SPEC_FULL.md §4.1).
func (w *Writer) WriteU64(v uint64) {
	var tmp [8]byte
	buf.PutU64LE(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteI32 writes a fixed-width, little-endian int32.
func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

// WriteI64 writes a fixed-width, little-endian int64.
func (w *Writer) WriteI64(v int64) {
	w.WriteU64(uint64(v))
}

// WriteF32 writes an IEEE-754 binary32 value.
func (w *Writer) WriteF32(v float32) {
	w.WriteU32(math.Float32bits(v))
}

// WriteF64 writes an IEEE-754 binary64 value.
func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// WriteRaw writes a fixed-size array of bytes with no length prefix — the
// caller (and the matching ReadRaw) must already know the length.
func (w *Writer) WriteRaw(b []byte) {
	w.buf.Write(b)
}

// WriteLen writes a usize length/count prefix.
func (w *Writer) WriteLen(n int) {
	w.WriteU64(uint64(n))
}

// WriteString writes a usize byte length followed by the raw UTF-8 bytes,
// no terminator.
func (w *Writer) WriteString(s string) {
	w.WriteLen(len(s))
	w.buf.WriteString(s)
}

// WriteTime writes a time point as 64-bit signed milliseconds since the Unix
// epoch. The zero Time value (time.Time{}) encodes to the sentinel 0, which
// node.Node treats as "never" for time_to_remove.
func (w *Writer) WriteTime(t time.Time) {
	if t.IsZero() {
		w.WriteI64(0)
		return
	}
	w.WriteI64(t.UnixMilli())
}

// WriteTag writes the tag index (position in the declared variant list) that
// precedes a tagged union's selected alternative.
func (w *Writer) WriteTag(tag int) {
	w.WriteLen(tag)
}

// WriteSlice writes a variable sequence: a usize length prefix followed by
// each element written in order via writeItem.
func WriteSlice[T any](w *Writer, items []T, writeItem func(*Writer, T)) {
	w.WriteLen(len(items))
	for _, item := range items {
		writeItem(w, item)
	}
}

// WriteMap writes an unordered mapping: a usize entry count followed by
// concatenated key,value pairs in map iteration order (arbitrary — the
// contract only requires that ReadMap recover the same set of pairs).
func WriteMap[K comparable, V any](w *Writer, m map[K]V, writeKey func(*Writer, K), writeVal func(*Writer, V)) {
	w.WriteLen(len(m))
	for k, v := range m {
		writeKey(w, k)
		writeVal(w, v)
	}
}
