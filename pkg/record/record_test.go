package record

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/vrexport/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFormat(t *testing.T, f Formatter, v Value) string {
	t.Helper()
	s, err := f.Value(v)
	require.NoError(t, err)
	return s
}

func TestFormatScalars(t *testing.T) {
	f := Formatter{}
	cases := []struct {
		v    Value
		want string
	}{
		{Bool(true), "1"},
		{Bool(false), "0"},
		{Int(-42), "-42"},
		{Float(1), "1.0"},
		{Float(0.5), "0.5"},
		{Float(1.0 / 3.0), "0.333333"},
		{Float(-0.0000001), "0.0"},
		{Float(123456.25), "123456.25"},
		{Vector{1, 2, 3}, "Vector(1.0,2.0,3.0)"},
		{Color{0.8, 0.8, 0.8}, "Color(0.8,0.8,0.8)"},
		{AColor{Color{1, 0, 0}, 0.5}, "AColor(1.0,0.0,0.0,0.5)"},
		{String(`say "hi"`), `"say \"hi\""`},
		{Ref("BRDFDiffuse1"), "BRDFDiffuse1"},
		{Reference{Name: "RecordC", Channel: "alpha"}, "RecordC::alpha"},
		{Null{}, "NULL"},
		{nil, "NULL"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, mustFormat(t, f, c.v), "kind %s", c.v)
	}
}

func TestFormatTransform(t *testing.T) {
	tm := Translation(Vector{1, 2, 3})

	text := mustFormat(t, Formatter{}, tm)
	assert.Equal(t, "Transform(Matrix(Vector(1.0,0.0,0.0),Vector(0.0,1.0,0.0),Vector(0.0,0.0,1.0)),Vector(1.0,2.0,3.0))", text)

	compact := mustFormat(t, Formatter{CompactTransforms: true}, tm)
	require.True(t, strings.HasPrefix(compact, `TransformHex("`))
	token := strings.TrimSuffix(strings.TrimPrefix(compact, `TransformHex("`), `")`)
	assert.Len(t, token, codec.TransformHexLen)

	linear, offset, err := codec.DecodeTransform(token)
	require.NoError(t, err)
	assert.Equal(t, Identity(), MatrixFromFlat(linear))
	assert.Equal(t, [3]float64{1, 2, 3}, offset)
}

func TestFormatSmallLists(t *testing.T) {
	f := Formatter{}
	assert.Equal(t, "ListInt(0,1,2)", mustFormat(t, f, IntList{0, 1, 2}))
	assert.Equal(t, "ListFloat(0.5,1.0)", mustFormat(t, f, FloatList{0.5, 1}))
	assert.Equal(t, "ListVector(Vector(0.0,0.0,1.0))", mustFormat(t, f, VectorList{{0, 0, 1}}))
	assert.Equal(t, "ListColor(Color(1.0,1.0,1.0))", mustFormat(t, f, ColorList{{1, 1, 1}}))
	assert.Equal(t, "List(A,B::alpha)", mustFormat(t, f, ReferenceList{Ref("A"), {Name: "B", Channel: "alpha"}}))
	assert.Equal(t, `List("a","b")`, mustFormat(t, f, StringList{"a", "b"}))
	assert.Equal(t, "List(1,0.5,X)", mustFormat(t, f, List{Int(1), Float(0.5), Ref("X")}))
}

func TestFormatLargeListsUseCodec(t *testing.T) {
	ints := make(IntList, 40)
	for i := range ints {
		ints[i] = int32(i)
	}

	packed := mustFormat(t, Formatter{}, ints)
	require.True(t, strings.HasPrefix(packed, `ListIntHex("ZIPC`), packed)
	token := strings.TrimSuffix(strings.TrimPrefix(packed, `ListIntHex("`), `")`)
	raw, err := codec.Decode(token)
	require.NoError(t, err)
	got, err := codec.BytesInt32(raw)
	require.NoError(t, err)
	assert.Equal(t, []int32(ints), got)

	plain := mustFormat(t, Formatter{PlainHex: true}, ints)
	assert.True(t, strings.HasPrefix(plain, `ListIntHex("00000000`), plain)

	verts := make(VectorList, 20)
	assert.True(t, strings.HasPrefix(mustFormat(t, Formatter{}, verts), `ListVectorHex("ZIPC`))

	// Threshold is configurable and can be disabled.
	assert.True(t, strings.HasPrefix(mustFormat(t, Formatter{HexThreshold: 2}, IntList{1, 2}), "ListIntHex"))
	assert.True(t, strings.HasPrefix(mustFormat(t, Formatter{HexThreshold: -1}, ints), "ListInt("))
}

func TestFormatRecord(t *testing.T) {
	r := New("BRDFDiffuse", "Diffuse1").
		Set("color", Color{1, 0, 0}).
		Set("transparency", Float(0))

	want := "BRDFDiffuse Diffuse1 {\n\tcolor=Color(1.0,0.0,0.0);\n\ttransparency=0.0;\n}\n"
	assert.Equal(t, want, FormatRecord(r))

	keyed := "BRDFDiffuse Diffuse1 {\n\tcolor=interpolate((12, Color(1.0,0.0,0.0)));\n\ttransparency=interpolate((12, 0.0));\n}\n"
	assert.Equal(t, keyed, FormatRecordAt(r, 12))
}

func TestFormatRecordOmitsUnencodable(t *testing.T) {
	ints := make(IntList, 64)
	r := New("GeomStaticMesh", "Mesh").
		Set("faces", ints).
		Set("dynamic_geometry", Bool(false))

	text := Formatter{Encoder: codec.Encoder{Level: 99}}.Record(r)
	assert.NotContains(t, text, "faces=")
	assert.Contains(t, text, "dynamic_geometry=0;")

	_, err := Formatter{Encoder: codec.Encoder{Level: 99}}.Value(ints)
	assert.True(t, IsEncodingFailure(err))
}

func TestRecordSetKeepsOrder(t *testing.T) {
	r := New("T", "n").Set("a", Int(1)).Set("b", Int(2)).Set("a", Int(3))
	require.Equal(t, 2, r.Len())
	assert.Equal(t, "a", r.Attrs()[0].Name)
	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, Int(3), v)

	c := r.Clone()
	c.Set("c", Int(4))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 3, c.Len())
}

func TestContentHash(t *testing.T) {
	a := New("T", "one").Set("x", Float(1))
	b := New("T", "two").Set("x", Float(1))
	c := New("T", "one").Set("x", Float(2))

	assert.Equal(t, ContentHash(a), ContentHash(b), "name is not part of the hash")
	assert.NotEqual(t, ContentHash(a), ContentHash(c))
	assert.Len(t, ContentHash(a).String(), 64)
}

func TestContentHashIsExact(t *testing.T) {
	// Both print as 0.0 at six decimals.
	a := New("T", "n").Set("x", Float(1e-7))
	b := New("T", "n").Set("x", Float(4e-7))
	assert.NotEqual(t, ContentHash(a), ContentHash(b))

	m := New("T", "n").Set("xf", Translation(Vector{X: 1}))
	n := New("T", "n").Set("xf", Translation(Vector{X: 1 + 1e-9}))
	assert.NotEqual(t, ContentHash(m), ContentHash(n))

	pz := New("T", "n").Set("x", Float(0))
	nz := New("T", "n").Set("x", Float(math.Copysign(0, -1)))
	assert.Equal(t, ContentHash(pz), ContentHash(nz))

	// Attribute boundaries are part of the hash.
	ab := New("T", "n").Set("a", String("b")).Set("c", String(""))
	ac := New("T", "n").Set("a", String("")).Set("bc", String(""))
	assert.NotEqual(t, ContentHash(ab), ContentHash(ac))
}

func TestTransformCompose(t *testing.T) {
	rot := Transform{M: Matrix{{0, 1, 0}, {-1, 0, 0}, {0, 0, 1}}}
	move := Translation(Vector{1, 0, 0})

	got := move.Mul(rot)
	assert.Equal(t, Vector{1, 0, 0}, got.Offset)
	assert.Equal(t, Vector{0, 1, 0}, got.M.Apply(Vector{1, 0, 0}))

	got = rot.Mul(move)
	assert.Equal(t, Vector{0, 1, 0}, got.Offset)
}

func TestEulerAndScale(t *testing.T) {
	m := Euler(Vector{0, 0, 90})
	v := m.Apply(Vector{1, 0, 0})
	assert.InDelta(t, 0, v.X, 1e-12)
	assert.InDelta(t, 1, v.Y, 1e-12)

	v = Euler(Vector{90, 0, 0}).Apply(Vector{0, 1, 0})
	assert.InDelta(t, 1, v.Z, 1e-12)

	assert.Equal(t, Vector{2, 3, 4}, Scale(Vector{2, 3, 4}).Apply(Vector{1, 1, 1}))
	assert.Equal(t, Identity(), Euler(Vector{}))
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "NTMaterial_Tree@NDiffuse_1", CleanName("NTMaterial Tree@NDiffuse.1"))
	assert.Equal(t, "_3D", CleanName("3D"))
	assert.Equal(t, "_", CleanName(""))
}
