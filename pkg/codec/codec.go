// Package codec converts raw numeric buffers to and from the compact ASCII
// tokens embedded in scene files (ListIntHex, ListVectorHex, TransformHex...).
//
// Two token forms exist. The packed form is zlib-compressed and spells every
// 16-bit compressed word with three symbols of a 41-symbol alphabet:
//
//	ZIPC <8 hex: original length> <8 hex: compressed length> <symbols...>
//
// The plain form is a bare upper-case hex dump, two digits per byte.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/zlib"
)

// Magic prefixes every packed token.
const Magic = "ZIPC"

// alphabet holds the 41 symbols used by packed tokens. Only the first 41 of
// the 62 alphanumerics are used: 41^3 is the smallest cube above 65535.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcde"

const (
	base       = len(alphabet)
	headerLen  = len(Magic) + 8 + 8
	symPerWord = 3
	hexDigits  = "0123456789ABCDEF"

	// maxRatio bounds how far deflate can expand its input.
	maxRatio = 1032
)

var (
	// ErrEncoding reports a compression backend failure. It is never fatal:
	// callers log it and omit the attribute being encoded.
	ErrEncoding = errors.New("codec: encoding failed")

	// ErrCorrupt reports a token that cannot be decoded.
	ErrCorrupt = errors.New("codec: corrupt token")
)

// symbolValue maps an ASCII byte back to its alphabet index, or -1.
var symbolValue = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < base; i++ {
		t[alphabet[i]] = int8(i)
	}
	return t
}()

// Encoder produces packed tokens at a given zlib level.
type Encoder struct {
	// Level is passed to the zlib writer. The zero value selects BestSpeed.
	Level int
}

// DefaultEncoder compresses with zlib.BestSpeed.
var DefaultEncoder = Encoder{Level: zlib.BestSpeed}

// Encode compresses b with the default encoder and returns a packed token.
func Encode(b []byte) (string, error) {
	return DefaultEncoder.Encode(b)
}

// Encode compresses b and returns the packed token. A backend failure is
// reported as ErrEncoding and yields no token.
func (e Encoder) Encode(b []byte) (string, error) {
	level := e.Level
	if level == 0 {
		level = zlib.BestSpeed
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if _, err := zw.Write(b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	compressed := buf.Bytes()

	words := (len(compressed) + 1) / 2
	out := make([]byte, 0, headerLen+words*symPerWord)
	out = append(out, Magic...)
	out = appendHex32(out, uint32(len(b)))
	out = appendHex32(out, uint32(len(compressed)))

	for i := 0; i < len(compressed); i += 2 {
		w := uint32(compressed[i])
		if i+1 < len(compressed) {
			w |= uint32(compressed[i+1]) << 8
		}
		out = append(out,
			alphabet[w%uint32(base)],
			alphabet[(w/uint32(base))%uint32(base)],
			alphabet[w/uint32(base*base)],
		)
	}
	return string(out), nil
}

// HexEncode returns the plain form of b: two upper-case hex digits per byte,
// most significant nibble first.
func HexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

// Decode is the inverse of Encode and HexEncode. Tokens starting with Magic
// are treated as packed, anything else as plain hex.
func Decode(token string) ([]byte, error) {
	if len(token) >= len(Magic) && token[:len(Magic)] == Magic {
		return decodePacked(token)
	}
	return HexDecode(token)
}

// HexDecode decodes the plain form. Both upper- and lower-case digits are
// accepted.
func HexDecode(token string) ([]byte, error) {
	if len(token)%2 != 0 {
		return nil, fmt.Errorf("%w: odd hex length %d", ErrCorrupt, len(token))
	}
	out := make([]byte, len(token)/2)
	for i := range out {
		hi := hexValue(token[i*2])
		lo := hexValue(token[i*2+1])
		if hi < 0 || lo < 0 {
			return nil, fmt.Errorf("%w: invalid hex digit at %d", ErrCorrupt, i*2)
		}
		out[i] = byte(hi<<4 | lo)
	}
	return out, nil
}

func decodePacked(token string) ([]byte, error) {
	if len(token) < headerLen {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	origLen, err := strconv.ParseUint(token[4:12], 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: original length: %v", ErrCorrupt, err)
	}
	compLen, err := strconv.ParseUint(token[12:20], 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: compressed length: %v", ErrCorrupt, err)
	}

	body := token[headerLen:]
	words := (int(compLen) + 1) / 2
	if len(body) != words*symPerWord {
		return nil, fmt.Errorf("%w: body has %d symbols, want %d", ErrCorrupt, len(body), words*symPerWord)
	}

	compressed := make([]byte, 0, words*2)
	for i := 0; i < len(body); i += symPerWord {
		d0 := symbolValue[body[i]]
		d1 := symbolValue[body[i+1]]
		d2 := symbolValue[body[i+2]]
		if d0 < 0 || d1 < 0 || d2 < 0 {
			return nil, fmt.Errorf("%w: invalid symbol near %d", ErrCorrupt, headerLen+i)
		}
		w := uint32(d0) + uint32(d1)*uint32(base) + uint32(d2)*uint32(base*base)
		if w > 0xffff {
			return nil, fmt.Errorf("%w: word overflow near %d", ErrCorrupt, headerLen+i)
		}
		compressed = append(compressed, byte(w), byte(w>>8))
	}
	compressed = compressed[:compLen]

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()

	// The header is untrusted: size the buffer by what the compressed body
	// can expand to and never read past the claimed length.
	out := make([]byte, 0, min(origLen, maxRatio*compLen))
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, io.LimitReader(zr, int64(origLen)+1)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if uint64(buf.Len()) != origLen {
		return nil, fmt.Errorf("%w: decoded %d bytes, header says %d", ErrCorrupt, buf.Len(), origLen)
	}
	return buf.Bytes(), nil
}

func appendHex32(dst []byte, v uint32) []byte {
	for shift := 28; shift >= 0; shift -= 4 {
		dst = append(dst, hexDigits[(v>>uint(shift))&0x0f])
	}
	return dst
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c - 'A' + 10)
	case c >= 'a' && c <= 'f':
		return int(c - 'a' + 10)
	default:
		return -1
	}
}
