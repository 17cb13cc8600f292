package graph

import (
	"fmt"

	"github.com/chazu/vrexport/pkg/record"
)

// SocketSpec declares one socket of a node type. For plugin nodes the socket
// name doubles as the record attribute name.
type SocketSpec struct {
	Name     string
	Category Category
	Kind     record.Kind  // attribute kind of an unlinked value
	Default  record.Value // nil means the attribute is omitted when unlinked
}

// PropSpec declares a node property that is not a socket.
type PropSpec struct {
	Name    string
	Kind    record.Kind
	Default record.Value
}

// Schema describes a node type.
type Schema struct {
	Type TypeID

	// Plugin is the record type written for the node. Empty for nodes that
	// only forward or compute values.
	Plugin string

	Inputs  []SocketSpec
	Outputs []SocketSpec
	Props   []PropSpec

	// Transparent nodes forward a value without a record of their own.
	Transparent bool
}

// Input returns the input spec called name.
func (s *Schema) Input(name string) (SocketSpec, bool) {
	for _, in := range s.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return SocketSpec{}, false
}

// Prop returns the property spec called name.
func (s *Schema) Prop(name string) (PropSpec, bool) {
	for _, p := range s.Props {
		if p.Name == name {
			return p, true
		}
	}
	return PropSpec{}, false
}

// AttrKind returns the value kind an input or property accepts.
func (s *Schema) AttrKind(name string) (record.Kind, bool) {
	if in, ok := s.Input(name); ok {
		return in.Kind, true
	}
	if p, ok := s.Prop(name); ok {
		return p.Kind, true
	}
	return record.KindNull, false
}

var schemas [TypeCount]*Schema

// SchemaOf returns the schema for t. It panics on an invalid type.
func SchemaOf(t TypeID) *Schema {
	if !t.Valid() || schemas[t] == nil {
		panic(fmt.Sprintf("graph: no schema for %s", t))
	}
	return schemas[t]
}

func in(name string, cat Category, kind record.Kind, def record.Value) SocketSpec {
	return SocketSpec{Name: name, Category: cat, Kind: kind, Default: def}
}

func out(name string, cat Category) SocketSpec {
	return SocketSpec{Name: name, Category: cat}
}

func gray(v float64) record.Color { return record.Color{R: v, G: v, B: v} }

func register(s *Schema) {
	if schemas[s.Type] != nil {
		panic(fmt.Sprintf("graph: schema for %s registered twice", s.Type))
	}
	schemas[s.Type] = s
}

func init() {
	identity := record.IdentityTransform()

	register(&Schema{
		Type:    TypeFloat,
		Outputs: []SocketSpec{out("value", CategoryScalar)},
		Props:   []PropSpec{{Name: "value", Kind: record.KindFloat, Default: record.Float(0)}},
	})
	register(&Schema{
		Type:    TypeColor,
		Outputs: []SocketSpec{out("color", CategoryColor)},
		Props:   []PropSpec{{Name: "value", Kind: record.KindColor, Default: gray(0)}},
	})
	register(&Schema{
		Type:    TypeVector,
		Outputs: []SocketSpec{out("vector", CategoryVector)},
		Props:   []PropSpec{{Name: "value", Kind: record.KindVector, Default: record.Vector{}}},
	})
	register(&Schema{
		Type: TypeTransform,
		Inputs: []SocketSpec{
			in("offset", CategoryVector, record.KindVector, record.Vector{}),
			in("rotate", CategoryVector, record.KindVector, record.Vector{}),
			in("scale", CategoryVector, record.KindVector, record.Vector{X: 1, Y: 1, Z: 1}),
		},
		Outputs: []SocketSpec{out("transform", CategoryTransform)},
	})

	register(&Schema{
		Type:        TypeReroute,
		Inputs:      []SocketSpec{in("input", CategoryAny, record.KindNull, nil)},
		Outputs:     []SocketSpec{out("output", CategoryAny)},
		Transparent: true,
	})
	// Group sockets mirror the embedded tree's interface; see Tree.AddGroup.
	register(&Schema{Type: TypeGroup, Transparent: true})
	register(&Schema{Type: TypeGroupInput, Transparent: true})
	register(&Schema{Type: TypeGroupOutput, Transparent: true})

	register(&Schema{
		Type:   TypeBRDFDiffuse,
		Plugin: "BRDFDiffuse",
		Inputs: []SocketSpec{
			in("color", CategoryColor, record.KindColor, gray(0.8)),
			in("transparency", CategoryColor, record.KindColor, gray(0)),
			in("roughness", CategoryScalar, record.KindFloat, record.Float(0)),
		},
		Outputs: []SocketSpec{out("brdf", CategoryBRDF)},
	})
	register(&Schema{
		Type:   TypeBRDFVRayMtl,
		Plugin: "BRDFVRayMtl",
		Inputs: []SocketSpec{
			in("diffuse", CategoryColor, record.KindColor, gray(0.5)),
			in("opacity", CategoryScalar, record.KindFloat, record.Float(1)),
			in("reflect", CategoryColor, record.KindColor, gray(0)),
			in("reflect_glossiness", CategoryScalar, record.KindFloat, record.Float(1)),
			in("refract", CategoryColor, record.KindColor, gray(0)),
			in("refract_ior", CategoryScalar, record.KindFloat, record.Float(1.6)),
			in("fresnel", CategoryScalar, record.KindBool, record.Bool(true)),
		},
		Outputs: []SocketSpec{out("brdf", CategoryBRDF)},
	})
	register(&Schema{
		Type:    TypeMtlSingleBRDF,
		Plugin:  "MtlSingleBRDF",
		Inputs:  []SocketSpec{in("brdf", CategoryBRDF, record.KindReference, nil)},
		Outputs: []SocketSpec{out("material", CategoryMaterial)},
	})
	register(&Schema{
		Type:   TypeMtlMulti,
		Plugin: "MtlMulti",
		Inputs: []SocketSpec{
			in("mtl_1", CategoryMaterial, record.KindReference, nil),
			in("mtl_2", CategoryMaterial, record.KindReference, nil),
			in("mtl_3", CategoryMaterial, record.KindReference, nil),
			in("mtl_4", CategoryMaterial, record.KindReference, nil),
		},
		Outputs: []SocketSpec{out("material", CategoryMaterial)},
	})
	register(&Schema{
		Type:   TypeTexChecker,
		Plugin: "TexChecker",
		Inputs: []SocketSpec{
			in("white_color", CategoryColor, record.KindColor, gray(1)),
			in("black_color", CategoryColor, record.KindColor, gray(0)),
			in("uvwgen", CategoryMapping, record.KindReference, nil),
		},
		Outputs: []SocketSpec{
			out("color", CategoryTexture),
			out("alpha", CategoryScalar),
		},
	})
	register(&Schema{
		Type:   TypeTexBitmap,
		Plugin: "TexBitmap",
		Inputs: []SocketSpec{
			in("bitmap", CategoryBitmap, record.KindReference, nil),
			in("uvwgen", CategoryMapping, record.KindReference, nil),
			in("tile", CategoryScalar, record.KindInt, record.Int(1)),
		},
		Outputs: []SocketSpec{
			out("color", CategoryTexture),
			out("alpha", CategoryScalar),
		},
	})
	register(&Schema{
		Type:   TypeBitmapBuffer,
		Plugin: "BitmapBuffer",
		Inputs: []SocketSpec{
			in("gamma", CategoryScalar, record.KindFloat, record.Float(1)),
			in("filter_type", CategoryScalar, record.KindInt, record.Int(1)),
		},
		Outputs: []SocketSpec{out("bitmap", CategoryBitmap)},
		Props:   []PropSpec{{Name: "file", Kind: record.KindString, Default: record.String("")}},
	})
	register(&Schema{
		Type:   TypeUVWGenChannel,
		Plugin: "UVWGenChannel",
		Inputs: []SocketSpec{
			in("uvw_channel", CategoryScalar, record.KindInt, record.Int(1)),
			in("uvw_transform", CategoryTransform, record.KindTransform, identity),
		},
		Outputs: []SocketSpec{out("uvwgen", CategoryMapping)},
	})

	register(&Schema{
		Type:   TypeLightOmni,
		Plugin: "LightOmni",
		Inputs: []SocketSpec{
			in("color", CategoryColor, record.KindColor, gray(1)),
			in("intensity", CategoryScalar, record.KindFloat, record.Float(1)),
			in("shadows", CategoryScalar, record.KindBool, record.Bool(true)),
			in("transform", CategoryTransform, record.KindTransform, identity),
		},
		Outputs: []SocketSpec{out("light", CategoryObject)},
	})
	register(&Schema{
		Type:   TypeLightRectangle,
		Plugin: "LightRectangle",
		Inputs: []SocketSpec{
			in("color", CategoryColor, record.KindColor, gray(1)),
			in("intensity", CategoryScalar, record.KindFloat, record.Float(1)),
			in("u_size", CategoryScalar, record.KindFloat, record.Float(1)),
			in("v_size", CategoryScalar, record.KindFloat, record.Float(1)),
			in("invisible", CategoryScalar, record.KindBool, record.Bool(false)),
			in("transform", CategoryTransform, record.KindTransform, identity),
		},
		Outputs: []SocketSpec{out("light", CategoryObject)},
	})
	register(&Schema{
		Type:   TypeEnvironmentFog,
		Plugin: "EnvironmentFog",
		Inputs: []SocketSpec{
			in("color", CategoryColor, record.KindColor, gray(1)),
			in("emission", CategoryColor, record.KindColor, gray(0)),
			in("distance", CategoryScalar, record.KindFloat, record.Float(10)),
			in("gizmos", CategoryObject, record.KindList, nil),
		},
		Outputs: []SocketSpec{out("effect", CategoryObject)},
	})
	register(&Schema{
		Type:   TypeSphereFadeGizmo,
		Plugin: "SphereFadeGizmo",
		Inputs: []SocketSpec{
			in("radius", CategoryScalar, record.KindFloat, record.Float(1)),
			in("invert", CategoryScalar, record.KindBool, record.Bool(false)),
			in("transform", CategoryTransform, record.KindTransform, identity),
		},
		Outputs: []SocketSpec{out("gizmo", CategoryObject)},
	})

	register(&Schema{
		Type:    TypeGeomStaticMesh,
		Plugin:  "GeomStaticMesh",
		Outputs: []SocketSpec{out("geometry", CategoryGeometry)},
		Props: []PropSpec{
			{Name: "shape", Kind: record.KindString, Default: record.String("box")},
			{Name: "size", Kind: record.KindVector, Default: record.Vector{X: 1, Y: 1, Z: 1}},
			{Name: "radius", Kind: record.KindFloat, Default: record.Float(0.5)},
			{Name: "height", Kind: record.KindFloat, Default: record.Float(1)},
			{Name: "hole", Kind: record.KindFloat, Default: record.Float(0)},
			{Name: "dynamic_geometry", Kind: record.KindBool, Default: record.Bool(false)},
		},
	})
	register(&Schema{
		Type:    TypeGeomPlane,
		Plugin:  "GeomPlane",
		Outputs: []SocketSpec{out("geometry", CategoryGeometry)},
	})
	register(&Schema{
		Type:   TypeObjectOutput,
		Plugin: "Node",
		Inputs: []SocketSpec{
			in("geometry", CategoryGeometry, record.KindReference, nil),
			in("material", CategoryMaterial, record.KindReference, nil),
			in("transform", CategoryTransform, record.KindTransform, identity),
			in("visible", CategoryScalar, record.KindBool, record.Bool(true)),
			in("objectID", CategoryScalar, record.KindInt, record.Int(0)),
		},
		Outputs: []SocketSpec{out("object", CategoryObject)},
	})
	register(&Schema{
		Type:    TypeInstancer,
		Inputs:  []SocketSpec{in("object", CategoryObject, record.KindReference, nil)},
		Outputs: []SocketSpec{out("instances", CategoryGroup)},
	})

	for t := TypeInvalid + 1; t < TypeCount; t++ {
		if schemas[t] == nil {
			panic(fmt.Sprintf("graph: missing schema for %s", t))
		}
	}
}
