package serialize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteU8(0xAB)
	w.WriteU16(0x1234)
	w.WriteU32(0xDEADBEEF)
	w.WriteU64(0x0102030405060708)
	w.WriteI32(-42)
	w.WriteI64(-9001)
	w.WriteF32(3.5)
	w.WriteF64(2.71828)

	r := NewReader(w.Bytes())
	u8, err := r.ReadU8()
	require.NoError(t, err)
	require.EqualValues(t, 0xAB, u8)

	u16, err := r.ReadU16()
	require.NoError(t, err)
	require.EqualValues(t, 0x1234, u16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	require.EqualValues(t, 0xDEADBEEF, u32)

	u64, err := r.ReadU64()
	require.NoError(t, err)
	require.EqualValues(t, 0x0102030405060708, u64)

	i32, err := r.ReadI32()
	require.NoError(t, err)
	require.EqualValues(t, -42, i32)

	i64, err := r.ReadI64()
	require.NoError(t, err)
	require.EqualValues(t, -9001, i64)

	f32, err := r.ReadF32()
	require.NoError(t, err)
	require.Equal(t, float32(3.5), f32)

	f64, err := r.ReadF64()
	require.NoError(t, err)
	require.Equal(t, 2.71828, f64)

	require.Zero(t, r.Remaining())
}

func TestStringRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteString("hello, world")
	w.WriteString("")

	r := NewReader(w.Bytes())
	s, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "hello, world", s)

	empty, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "", empty)
}

func TestFixedArrayRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteRaw([]byte{1, 2, 3, 4, 5})

	r := NewReader(w.Bytes())
	got, err := r.ReadRaw(5)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, got)
}

func TestSliceRoundTrip(t *testing.T) {
	w := NewWriter()
	WriteSlice(w, []int32{10, 20, 30}, (*Writer).WriteI32)

	r := NewReader(w.Bytes())
	got, err := ReadSlice(r, (*Reader).ReadI32)
	require.NoError(t, err)
	require.Equal(t, []int32{10, 20, 30}, got)
}

func TestMapRoundTrip(t *testing.T) {
	w := NewWriter()
	m := map[string]uint32{"a": 1, "b": 2, "c": 3}
	WriteMap(w, m, (*Writer).WriteString, (*Writer).WriteU32)

	r := NewReader(w.Bytes())
	got, err := ReadMap(r, (*Reader).ReadString, (*Reader).ReadU32)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestTimeRoundTrip(t *testing.T) {
	w := NewWriter()
	now := time.UnixMilli(1_700_000_000_123).UTC()
	w.WriteTime(now)
	w.WriteTime(time.Time{})

	r := NewReader(w.Bytes())
	got, err := r.ReadTime()
	require.NoError(t, err)
	require.True(t, now.Equal(got))

	never, err := r.ReadTime()
	require.NoError(t, err)
	require.True(t, never.IsZero())
}

func TestTaggedUnionRoundTrip(t *testing.T) {
	type value struct {
		tag int
		i   int32
		s   string
	}
	values := []value{{0, 7, ""}, {1, 0, "blob-ish"}}

	w := NewWriter()
	for _, v := range values {
		w.WriteTag(v.tag)
		switch v.tag {
		case 0:
			w.WriteI32(v.i)
		case 1:
			w.WriteString(v.s)
		}
	}

	r := NewReader(w.Bytes())
	for _, want := range values {
		tag, err := r.ReadTag()
		require.NoError(t, err)
		require.Equal(t, want.tag, tag)
		switch tag {
		case 0:
			i, err := r.ReadI32()
			require.NoError(t, err)
			require.Equal(t, want.i, i)
		case 1:
			s, err := r.ReadString()
			require.NoError(t, err)
			require.Equal(t, want.s, s)
		}
	}
}

func TestTruncatedInputErrors(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.ReadU32()
	require.ErrorIs(t, err, ErrTruncated)
}
