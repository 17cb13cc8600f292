package record

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash is a content hash of a record.
type Hash [32]byte

// String returns the lowercase hex form.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex digits, for logs.
func (h Hash) Short() string {
	return h.String()[:12]
}

// ContentHash hashes the type and attributes of r. The record name is not
// part of the hash. Floats are hashed by their exact bits, so changes below
// the printed precision still count.
func ContentHash(r *Record) Hash {
	h := sha256.New()
	buf := appendString(nil, r.Type)
	for _, a := range r.attrs {
		buf = appendString(buf, a.Name)
		buf = appendValue(buf, a.Value)
		h.Write(buf)
		buf = buf[:0]
	}
	h.Write(buf)
	var sum Hash
	h.Sum(sum[:0])
	return sum
}

func appendString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

func appendFloat(b []byte, v float64) []byte {
	if v == 0 {
		// Negative zero prints as zero.
		v = 0
	}
	return binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
}

func appendVector(b []byte, v Vector) []byte {
	return appendFloat(appendFloat(appendFloat(b, v.X), v.Y), v.Z)
}

func appendColor(b []byte, c Color) []byte {
	return appendFloat(appendFloat(appendFloat(b, c.R), c.G), c.B)
}

func appendReference(b []byte, r Reference) []byte {
	return appendString(appendString(b, r.Name), r.Channel)
}

func appendValue(b []byte, v Value) []byte {
	if v == nil {
		v = Null{}
	}
	b = append(b, byte(v.Kind()))
	switch v := v.(type) {
	case Null:
	case Bool:
		if v {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	case Int:
		b = binary.AppendVarint(b, int64(v))
	case Float:
		b = appendFloat(b, float64(v))
	case Vector:
		b = appendVector(b, v)
	case Color:
		b = appendColor(b, v)
	case AColor:
		b = appendFloat(appendColor(b, v.Color), v.A)
	case Matrix:
		for _, row := range v {
			b = appendVector(b, row)
		}
	case Transform:
		for _, row := range v.M {
			b = appendVector(b, row)
		}
		b = appendVector(b, v.Offset)
	case String:
		b = appendString(b, string(v))
	case Reference:
		b = appendReference(b, v)
	case IntList:
		b = binary.AppendUvarint(b, uint64(len(v)))
		for _, x := range v {
			b = binary.AppendVarint(b, int64(x))
		}
	case FloatList:
		b = binary.AppendUvarint(b, uint64(len(v)))
		for _, x := range v {
			b = appendFloat(b, float64(x))
		}
	case VectorList:
		b = binary.AppendUvarint(b, uint64(len(v)))
		for _, x := range v {
			b = appendVector(b, x)
		}
	case ColorList:
		b = binary.AppendUvarint(b, uint64(len(v)))
		for _, x := range v {
			b = appendColor(b, x)
		}
	case ReferenceList:
		b = binary.AppendUvarint(b, uint64(len(v)))
		for _, x := range v {
			b = appendReference(b, x)
		}
	case StringList:
		b = binary.AppendUvarint(b, uint64(len(v)))
		for _, x := range v {
			b = appendString(b, x)
		}
	case List:
		b = binary.AppendUvarint(b, uint64(len(v)))
		for _, x := range v {
			b = appendValue(b, x)
		}
	}
	return b
}

// CleanName maps s onto the characters allowed in record names. Anything
// outside [A-Za-z0-9_@|] becomes an underscore, and a leading digit is
// prefixed with one.
func CleanName(s string) string {
	if s == "" {
		return "_"
	}
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '@', c == '|':
		default:
			b[i] = '_'
		}
	}
	if b[0] >= '0' && b[0] <= '9' {
		return "_" + string(b)
	}
	return string(b)
}
