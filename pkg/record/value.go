// Package record defines the typed records written to scene files and the
// text formatting of their attribute values.
package record

// Kind enumerates the attribute value types a record can hold.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindVector
	KindColor
	KindAColor
	KindMatrix
	KindTransform
	KindString
	KindReference
	KindIntList
	KindFloatList
	KindVectorList
	KindColorList
	KindReferenceList
	KindStringList
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindVector:
		return "vector"
	case KindColor:
		return "color"
	case KindAColor:
		return "acolor"
	case KindMatrix:
		return "matrix"
	case KindTransform:
		return "transform"
	case KindString:
		return "string"
	case KindReference:
		return "reference"
	case KindIntList:
		return "list<int>"
	case KindFloatList:
		return "list<float>"
	case KindVectorList:
		return "list<vector>"
	case KindColorList:
		return "list<color>"
	case KindReferenceList:
		return "list<reference>"
	case KindStringList:
		return "list<string>"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is an attribute value. The set of implementations is closed.
type Value interface {
	Kind() Kind
	value()
}

// Null is the sentinel written for unresolved or missing inputs.
type Null struct{}

type (
	Bool   bool
	Int    int64
	Float  float64
	String string
)

// Reference names another record, optionally selecting one of its output
// channels.
type Reference struct {
	Name    string
	Channel string
}

// Ref is shorthand for a channel-less reference.
func Ref(name string) Reference { return Reference{Name: name} }

// IsZero reports whether r names nothing.
func (r Reference) IsZero() bool { return r.Name == "" }

type (
	IntList       []int32
	FloatList     []float32
	VectorList    []Vector
	ColorList     []Color
	ReferenceList []Reference
	StringList    []string
	// List is a heterogeneous list written element by element.
	List []Value
)

func (Null) Kind() Kind          { return KindNull }
func (Bool) Kind() Kind          { return KindBool }
func (Int) Kind() Kind           { return KindInt }
func (Float) Kind() Kind         { return KindFloat }
func (Vector) Kind() Kind        { return KindVector }
func (Color) Kind() Kind         { return KindColor }
func (AColor) Kind() Kind        { return KindAColor }
func (Matrix) Kind() Kind        { return KindMatrix }
func (Transform) Kind() Kind     { return KindTransform }
func (String) Kind() Kind        { return KindString }
func (Reference) Kind() Kind     { return KindReference }
func (IntList) Kind() Kind       { return KindIntList }
func (FloatList) Kind() Kind     { return KindFloatList }
func (VectorList) Kind() Kind    { return KindVectorList }
func (ColorList) Kind() Kind     { return KindColorList }
func (ReferenceList) Kind() Kind { return KindReferenceList }
func (StringList) Kind() Kind    { return KindStringList }
func (List) Kind() Kind          { return KindList }

func (Null) value()          {}
func (Bool) value()          {}
func (Int) value()           {}
func (Float) value()         {}
func (Vector) value()        {}
func (Color) value()         {}
func (AColor) value()        {}
func (Matrix) value()        {}
func (Transform) value()     {}
func (String) value()        {}
func (Reference) value()     {}
func (IntList) value()       {}
func (FloatList) value()     {}
func (VectorList) value()    {}
func (ColorList) value()     {}
func (ReferenceList) value() {}
func (StringList) value()    {}
func (List) value()          {}

// IsNull reports whether v is nil or the Null sentinel.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}
