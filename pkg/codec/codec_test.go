package codec

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBuffers() [][]byte {
	r := rand.New(rand.NewSource(7))
	bufs := [][]byte{nil, {}, {0}, {0xff}, {1, 2}, {1, 2, 3}}
	for _, n := range []int{4, 5, 31, 64, 255, 1024, 4097} {
		b := make([]byte, n)
		r.Read(b)
		bufs = append(bufs, b)
	}
	// Highly compressible input exercises short compressed payloads.
	bufs = append(bufs, bytes.Repeat([]byte{0x3f, 0x80, 0, 0}, 500))
	return bufs
}

func TestPackedRoundTrip(t *testing.T) {
	for _, b := range randomBuffers() {
		token, err := Encode(b)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(token, Magic))

		got, err := Decode(token)
		require.NoError(t, err, "len %d", len(b))
		assert.Equal(t, len(b), len(got))
		assert.True(t, bytes.Equal(b, got), "round trip mismatch for len %d", len(b))
	}
}

func TestHexRoundTrip(t *testing.T) {
	for _, b := range randomBuffers() {
		token := HexEncode(b)
		assert.Len(t, token, len(b)*2)

		got, err := Decode(token)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(b, got), "round trip mismatch for len %d", len(b))
	}
}

func TestHexEncodeNibbleOrder(t *testing.T) {
	assert.Equal(t, "00FF1A", HexEncode([]byte{0x00, 0xff, 0x1a}))

	got, err := HexDecode("00ff1a")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff, 0x1a}, got)
}

func TestPackedHeader(t *testing.T) {
	b := bytes.Repeat([]byte("abcd"), 100)
	token, err := Encode(b)
	require.NoError(t, err)

	assert.Equal(t, "ZIPC", token[:4])
	assert.Equal(t, "00000190", token[4:12])

	body := token[headerLen:]
	assert.Zero(t, len(body)%3, "body must be whole words")
	for i := 0; i < len(body); i++ {
		assert.True(t, strings.IndexByte(alphabet, body[i]) >= 0, "symbol %q outside alphabet", body[i])
	}
}

func TestAlphabetSize(t *testing.T) {
	assert.Equal(t, 41, len(alphabet))
	assert.GreaterOrEqual(t, base*base*base, 1<<16)
}

func TestEncodingFailureYieldsNoToken(t *testing.T) {
	token, err := Encoder{Level: 42}.Encode([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrEncoding)
	assert.Empty(t, token)
}

func TestDecodeCorrupt(t *testing.T) {
	cases := map[string]string{
		"odd hex":        "ABC",
		"bad hex digit":  "ZZ",
		"short header":   "ZIPC0000",
		"bad length":     "ZIPCXXXXXXXX00000000",
		"truncated body": "ZIPC0000000400000010" + "000",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(token)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}

	good, err := Encode([]byte("hello world"))
	require.NoError(t, err)
	bad := []byte(good)
	bad[len(bad)-1] = '~'
	_, err = Decode(string(bad))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeDistrustsClaimedLength(t *testing.T) {
	good, err := Encode([]byte("hello world"))
	require.NoError(t, err)

	huge := good[:4] + "FFFFFFFF" + good[12:]
	got, err := Decode(huge)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Nil(t, got)

	short := good[:4] + "00000004" + good[12:]
	_, err = Decode(short)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestNumericBuffers(t *testing.T) {
	ints := []int32{0, 1, -1, 1 << 30, -(1 << 31)}
	gotInts, err := BytesInt32(Int32Bytes(ints))
	require.NoError(t, err)
	assert.Equal(t, ints, gotInts)

	floats := []float32{0, 1.5, -2.25, 3.4e38}
	gotFloats, err := BytesFloat32(Float32Bytes(floats))
	require.NoError(t, err)
	assert.Equal(t, floats, gotFloats)

	// 1.0f little-endian.
	assert.Equal(t, "0000803F", HexEncode(Float32Bytes([]float32{1})))

	_, err = BytesInt32([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestTransformHexBitExact(t *testing.T) {
	identity := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	token := EncodeTransform(identity, [3]float64{0, 0, 0})
	// 64 bytes: the renderer reads the payload as a C struct whose
	// double offset is 8-byte aligned.
	require.Len(t, token, 128)
	assert.Equal(t, 128, TransformHexLen)

	want := "0000803F" + "00000000" + "00000000" +
		"00000000" + "0000803F" + "00000000" +
		"00000000" + "00000000" + "0000803F" +
		"00000000" + // padding
		strings.Repeat("0", 48)
	assert.Equal(t, want, token)

	// The offset starts at byte 40; 1, 2, 3 as float64 little-endian.
	token = EncodeTransform(identity, [3]float64{1, 2, 3})
	assert.Equal(t, "00000000", token[72:80], "padding stays zero")
	assert.Equal(t, "000000000000F03F", token[80:96])
	assert.Equal(t, "0000000000000040", token[96:112])
	assert.Equal(t, "0000000000000840", token[112:128])
}

func TestTransformRoundTripKeepsDoubleOffset(t *testing.T) {
	linear := [9]float64{0.5, 0.25, 0, 0, 1, 0, 0, 0, 2}
	offset := [3]float64{123456789.123456, -0.000001, 42}

	gotLinear, gotOffset, err := DecodeTransform(EncodeTransform(linear, offset))
	require.NoError(t, err)
	assert.Equal(t, linear, gotLinear)
	assert.Equal(t, offset, gotOffset, "offset must survive at double precision")

	_, _, err = DecodeTransform("00")
	assert.ErrorIs(t, err, ErrCorrupt)
}
