package record

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/chazu/vrexport/pkg/codec"
)

// DefaultHexThreshold is the list length from which numeric lists are written
// as codec tokens instead of literal element lists.
const DefaultHexThreshold = 16

// floatDecimals is the single precision used for every float literal.
const floatDecimals = 6

// NullLiteral is the text written for Null values.
const NullLiteral = "NULL"

// Formatter turns values and records into scene text.
type Formatter struct {
	// HexThreshold selects codec tokens for numeric lists of at least this
	// many elements. Zero means DefaultHexThreshold; a negative value
	// disables tokens.
	HexThreshold int

	// CompactTransforms writes transforms as TransformHex tokens.
	CompactTransforms bool

	// PlainHex skips compression and writes bare hex tokens.
	PlainHex bool

	// Encoder compresses list payloads. The zero value uses BestSpeed.
	Encoder codec.Encoder

	// Logger receives notices about omitted attributes. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// DefaultFormatter is used by the package-level helpers.
var DefaultFormatter = Formatter{}

// Format formats v with DefaultFormatter.
func Format(v Value) (string, error) {
	return DefaultFormatter.Value(v)
}

// FormatRecord formats r with DefaultFormatter.
func FormatRecord(r *Record) string {
	return DefaultFormatter.Record(r)
}

// FormatRecordAt formats r with DefaultFormatter as a keyframe at frame.
func FormatRecordAt(r *Record, frame int) string {
	return DefaultFormatter.RecordAt(r, frame)
}

func (f Formatter) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

func (f Formatter) useHex(n int) bool {
	t := f.HexThreshold
	if t == 0 {
		t = DefaultHexThreshold
	}
	return t > 0 && n >= t
}

// Record formats r as a block:
//
//	TypeName Name {
//		attr=value;
//	}
//
// Attributes whose payload cannot be encoded are omitted and logged.
func (f Formatter) Record(r *Record) string {
	return f.record(r, nil)
}

// RecordAt formats r with every attribute wrapped as a keyframe at frame.
func (f Formatter) RecordAt(r *Record, frame int) string {
	return f.record(r, &frame)
}

func (f Formatter) record(r *Record, frame *int) string {
	var sb strings.Builder
	sb.WriteString(r.Type)
	sb.WriteByte(' ')
	sb.WriteString(r.Name)
	sb.WriteString(" {")
	for _, a := range r.attrs {
		text, err := f.Value(a.Value)
		if err != nil {
			f.logger().Warn("record: omitting attribute",
				"record", r.Name,
				"attr", a.Name,
				"error", err)
			continue
		}
		sb.WriteString("\n\t")
		sb.WriteString(a.Name)
		sb.WriteByte('=')
		if frame != nil {
			sb.WriteString("interpolate((")
			sb.WriteString(strconv.Itoa(*frame))
			sb.WriteString(", ")
			sb.WriteString(text)
			sb.WriteString("))")
		} else {
			sb.WriteString(text)
		}
		sb.WriteByte(';')
	}
	sb.WriteString("\n}\n")
	return sb.String()
}

// Value formats a single attribute value. The only error is a codec
// failure on a bulk list, reported as codec.ErrEncoding.
func (f Formatter) Value(v Value) (string, error) {
	switch v := v.(type) {
	case nil, Null:
		return NullLiteral, nil
	case Bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case Int:
		return strconv.FormatInt(int64(v), 10), nil
	case Float:
		return formatFloat(float64(v)), nil
	case Vector:
		return formatVector(v), nil
	case Color:
		return formatColor(v), nil
	case AColor:
		return "AColor(" + formatFloat(v.R) + "," + formatFloat(v.G) + "," +
			formatFloat(v.B) + "," + formatFloat(v.A) + ")", nil
	case Matrix:
		return formatMatrix(v), nil
	case Transform:
		if f.CompactTransforms {
			return `TransformHex("` + codec.EncodeTransform(v.M.Flat(), [3]float64{v.Offset.X, v.Offset.Y, v.Offset.Z}) + `")`, nil
		}
		return "Transform(" + formatMatrix(v.M) + "," + formatVector(v.Offset) + ")", nil
	case String:
		return quote(string(v)), nil
	case Reference:
		return formatReference(v), nil
	case IntList:
		if f.useHex(len(v)) {
			return f.hexList("ListIntHex", codec.Int32Bytes(v))
		}
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = strconv.FormatInt(int64(x), 10)
		}
		return "ListInt(" + strings.Join(parts, ",") + ")", nil
	case FloatList:
		if f.useHex(len(v)) {
			return f.hexList("ListFloatHex", codec.Float32Bytes(v))
		}
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = formatFloat(float64(x))
		}
		return "ListFloat(" + strings.Join(parts, ",") + ")", nil
	case VectorList:
		if f.useHex(len(v)) {
			return f.hexList("ListVectorHex", codec.Float32Bytes(flattenVectors(v)))
		}
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = formatVector(x)
		}
		return "ListVector(" + strings.Join(parts, ",") + ")", nil
	case ColorList:
		if f.useHex(len(v)) {
			return f.hexList("ListColorHex", codec.Float32Bytes(flattenColors(v)))
		}
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = formatColor(x)
		}
		return "ListColor(" + strings.Join(parts, ",") + ")", nil
	case ReferenceList:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = formatReference(x)
		}
		return "List(" + strings.Join(parts, ",") + ")", nil
	case StringList:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = quote(x)
		}
		return "List(" + strings.Join(parts, ",") + ")", nil
	case List:
		parts := make([]string, len(v))
		for i, x := range v {
			text, err := f.Value(x)
			if err != nil {
				return "", err
			}
			parts[i] = text
		}
		return "List(" + strings.Join(parts, ",") + ")", nil
	default:
		return "", fmt.Errorf("record: unsupported value %T", v)
	}
}

func (f Formatter) hexList(keyword string, payload []byte) (string, error) {
	var token string
	if f.PlainHex {
		token = codec.HexEncode(payload)
	} else {
		var err error
		token, err = f.Encoder.Encode(payload)
		if err != nil {
			return "", fmt.Errorf("record: %s: %w", keyword, err)
		}
	}
	return keyword + `("` + token + `")`, nil
}

// IsEncodingFailure reports whether err came from the codec backend.
func IsEncodingFailure(err error) bool {
	return errors.Is(err, codec.ErrEncoding)
}

func formatFloat(v float64) string {
	if v == 0 {
		// Collapses negative zero.
		return "0.0"
	}
	s := strconv.FormatFloat(v, 'f', floatDecimals, 64)
	if strings.IndexByte(s, '.') >= 0 {
		s = strings.TrimRight(s, "0")
		if strings.HasSuffix(s, ".") {
			s += "0"
		}
	}
	if s == "-0.0" {
		return "0.0"
	}
	return s
}

func formatVector(v Vector) string {
	return "Vector(" + formatFloat(v.X) + "," + formatFloat(v.Y) + "," + formatFloat(v.Z) + ")"
}

func formatColor(c Color) string {
	return "Color(" + formatFloat(c.R) + "," + formatFloat(c.G) + "," + formatFloat(c.B) + ")"
}

func formatMatrix(m Matrix) string {
	return "Matrix(" + formatVector(m[0]) + "," + formatVector(m[1]) + "," + formatVector(m[2]) + ")"
}

func formatReference(r Reference) string {
	if r.Name == "" {
		return NullLiteral
	}
	if r.Channel != "" {
		return r.Name + "::" + r.Channel
	}
	return r.Name
}

func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func flattenVectors(v []Vector) []float32 {
	out := make([]float32, 0, len(v)*3)
	for _, x := range v {
		out = append(out, float32(x.X), float32(x.Y), float32(x.Z))
	}
	return out
}

func flattenColors(v []Color) []float32 {
	out := make([]float32, 0, len(v)*3)
	for _, x := range v {
		out = append(out, float32(x.R), float32(x.G), float32(x.B))
	}
	return out
}
