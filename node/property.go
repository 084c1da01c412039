package node

import (
	"math"

	"github.com/joshuapare/nodestore/serialize"
	"github.com/joshuapare/nodestore/volume"
)

// Kind identifies which alternative of the property tagged union a Value
// holds (spec.md §3).
type Kind int

const (
	KindInt32 Kind = iota
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindFloat80
	KindString
	KindBlob
)

// Value is a single property's stored value: exactly one of its fields is
// meaningful, selected by Kind. Blob values do not carry their bytes here —
// BlobSize/BlobRecord point at a side record managed by Node.
type Value struct {
	Kind       Kind
	i64        int64
	u64        uint64
	f64        float64
	F80        [10]byte
	Str        string
	BlobSize   uint64
	BlobRecord volume.RecordID
}

func Int32Value(v int32) Value   { return Value{Kind: KindInt32, i64: int64(v)} }
func Uint32Value(v uint32) Value { return Value{Kind: KindUint32, u64: uint64(v)} }
func Int64Value(v int64) Value   { return Value{Kind: KindInt64, i64: v} }
func Uint64Value(v uint64) Value { return Value{Kind: KindUint64, u64: v} }
func Float32Value(v float32) Value {
	return Value{Kind: KindFloat32, f64: float64(v)}
}
func Float64Value(v float64) Value { return Value{Kind: KindFloat64, f64: v} }
func Float80Value(v [10]byte) Value {
	return Value{Kind: KindFloat80, F80: v}
}
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

func blobValue(size uint64, record volume.RecordID) Value {
	return Value{Kind: KindBlob, BlobSize: size, BlobRecord: record}
}

// isNumeric reports whether v's kind participates in the arithmetic
// conversion rules (everything except String, Blob, and Float80, which has
// no defined conversion target besides itself).
func (v Value) isNumeric() bool {
	switch v.Kind {
	case KindInt32, KindUint32, KindInt64, KindUint64, KindFloat32, KindFloat64:
		return true
	default:
		return false
	}
}

func (v Value) asInt64() (int64, bool) {
	switch v.Kind {
	case KindInt32, KindInt64:
		return v.i64, true
	case KindUint32:
		return int64(v.u64), true
	case KindUint64:
		if v.u64 > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(v.u64), true
	case KindFloat32, KindFloat64:
		return int64(v.f64), true
	default:
		return 0, false
	}
}

func (v Value) asUint64() (uint64, bool) {
	switch v.Kind {
	case KindInt32, KindInt64:
		if v.i64 < 0 {
			return 0, true
		}
		return uint64(v.i64), true
	case KindUint32, KindUint64:
		return v.u64, true
	case KindFloat32, KindFloat64:
		if v.f64 < 0 {
			return 0, true
		}
		return uint64(v.f64), true
	default:
		return 0, false
	}
}

func (v Value) asFloat64() (float64, bool) {
	switch v.Kind {
	case KindInt32, KindInt64:
		return float64(v.i64), true
	case KindUint32, KindUint64:
		return float64(v.u64), true
	case KindFloat32, KindFloat64:
		return v.f64, true
	default:
		return 0, false
	}
}

// AsInt32 converts v to int32: identical types pass through; signed
// narrowing wraps, matching a plain Go conversion; unsigned and float
// sources widen/truncate the same way.
func (v Value) AsInt32() (int32, error) {
	i, ok := v.asInt64()
	if !ok {
		return 0, ErrIncompatibleType
	}
	return int32(i), nil
}

// AsUint32 converts v to uint32, saturating at 0 and math.MaxUint32 rather
// than wrapping when the source value falls outside that range.
func (v Value) AsUint32() (uint32, error) {
	u, ok := v.asUint64()
	if !ok {
		return 0, ErrIncompatibleType
	}
	if u > math.MaxUint32 {
		return math.MaxUint32, nil
	}
	return uint32(u), nil
}

// AsInt64 converts v to int64.
func (v Value) AsInt64() (int64, error) {
	i, ok := v.asInt64()
	if !ok {
		return 0, ErrIncompatibleType
	}
	return i, nil
}

// AsUint64 converts v to uint64, saturating negative sources at 0.
func (v Value) AsUint64() (uint64, error) {
	u, ok := v.asUint64()
	if !ok {
		return 0, ErrIncompatibleType
	}
	return u, nil
}

// AsFloat32 converts v to float32 via a plain Go conversion (no
// saturation — floats overflow to +/-Inf like any Go float narrowing).
func (v Value) AsFloat32() (float32, error) {
	f, ok := v.asFloat64()
	if !ok {
		return 0, ErrIncompatibleType
	}
	return float32(f), nil
}

// AsFloat64 converts v to float64.
func (v Value) AsFloat64() (float64, error) {
	f, ok := v.asFloat64()
	if !ok {
		return 0, ErrIncompatibleType
	}
	return f, nil
}

// AsFloat80 returns v's raw 80-bit float bytes. There is no conversion path
// into or out of Float80 — it is opaque storage, identity-only.
func (v Value) AsFloat80() ([10]byte, error) {
	if v.Kind != KindFloat80 {
		return [10]byte{}, ErrIncompatibleType
	}
	return v.F80, nil
}

// AsString returns v's string contents. There is no numeric↔string
// conversion.
func (v Value) AsString() (string, error) {
	if v.Kind != KindString {
		return "", ErrIncompatibleType
	}
	return v.Str, nil
}

func encodeValue(w *serialize.Writer, v Value) {
	w.WriteTag(int(v.Kind))
	switch v.Kind {
	case KindInt32:
		w.WriteI32(int32(v.i64))
	case KindUint32:
		w.WriteU32(uint32(v.u64))
	case KindInt64:
		w.WriteI64(v.i64)
	case KindUint64:
		w.WriteU64(v.u64)
	case KindFloat32:
		w.WriteF32(float32(v.f64))
	case KindFloat64:
		w.WriteF64(v.f64)
	case KindFloat80:
		w.WriteRaw(v.F80[:])
	case KindString:
		w.WriteString(v.Str)
	case KindBlob:
		w.WriteU64(v.BlobSize)
		w.WriteU64(uint64(v.BlobRecord))
	}
}

func decodeValue(r *serialize.Reader) (Value, error) {
	tag, err := r.ReadTag()
	if err != nil {
		return Value{}, err
	}
	switch Kind(tag) {
	case KindInt32:
		x, err := r.ReadI32()
		return Int32Value(x), err
	case KindUint32:
		x, err := r.ReadU32()
		return Uint32Value(x), err
	case KindInt64:
		x, err := r.ReadI64()
		return Int64Value(x), err
	case KindUint64:
		x, err := r.ReadU64()
		return Uint64Value(x), err
	case KindFloat32:
		x, err := r.ReadF32()
		return Float32Value(x), err
	case KindFloat64:
		x, err := r.ReadF64()
		return Float64Value(x), err
	case KindFloat80:
		raw, err := r.ReadRaw(10)
		if err != nil {
			return Value{}, err
		}
		var arr [10]byte
		copy(arr[:], raw)
		return Float80Value(arr), nil
	case KindString:
		s, err := r.ReadString()
		return StringValue(s), err
	case KindBlob:
		size, err := r.ReadU64()
		if err != nil {
			return Value{}, err
		}
		rec, err := r.ReadU64()
		return blobValue(size, volume.RecordID(rec)), err
	default:
		return Value{}, ErrIncompatibleType
	}
}
