package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// Layout of a TransformHex payload: nine float32 matrix entries, four bytes
// of padding that align the offset to eight bytes, then three float64 offset
// components.
const (
	transformOffsetAt = 40
	transformBytes    = transformOffsetAt + 3*8
)

// TransformHexLen is the length of a TransformHex token.
const TransformHexLen = transformBytes * 2

// Int32Bytes packs v as little-endian int32 words.
func Int32Bytes(v []int32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(x))
	}
	return out
}

// BytesInt32 is the inverse of Int32Bytes.
func BytesInt32(b []byte) ([]int32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of int32", ErrCorrupt, len(b))
	}
	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// Float32Bytes packs v as little-endian IEEE-754 single precision words.
func Float32Bytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math32.Float32bits(x))
	}
	return out
}

// BytesFloat32 is the inverse of Float32Bytes.
func BytesFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of float32", ErrCorrupt, len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math32.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// EncodeTransform returns the TransformHex token for a 3x3 linear part given
// in row-major order and a translation. The linear part is stored as float32
// and the translation as float64, so large world coordinates keep their
// precision.
func EncodeTransform(linear [9]float64, offset [3]float64) string {
	var buf [transformBytes]byte
	for i, v := range linear {
		binary.LittleEndian.PutUint32(buf[i*4:], math32.Float32bits(float32(v)))
	}
	for i, v := range offset {
		binary.LittleEndian.PutUint64(buf[transformOffsetAt+i*8:], math.Float64bits(v))
	}
	return HexEncode(buf[:])
}

// DecodeTransform is the inverse of EncodeTransform. The linear entries come
// back at float32 precision.
func DecodeTransform(token string) (linear [9]float64, offset [3]float64, err error) {
	if len(token) != TransformHexLen {
		return linear, offset, fmt.Errorf("%w: transform token has %d digits, want %d", ErrCorrupt, len(token), TransformHexLen)
	}
	b, err := HexDecode(token)
	if err != nil {
		return linear, offset, err
	}
	for i := range linear {
		linear[i] = float64(math32.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	for i := range offset {
		offset[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[transformOffsetAt+i*8:]))
	}
	return linear, offset, nil
}
