package graph

import "fmt"

// TypeID identifies the type of a node. Every TypeID has a schema and a
// compiler handler.
type TypeID int

const (
	TypeInvalid TypeID = iota

	// constants
	TypeFloat
	TypeColor
	TypeVector
	TypeTransform

	// structure
	TypeReroute
	TypeGroup
	TypeGroupInput
	TypeGroupOutput

	// shading
	TypeBRDFDiffuse
	TypeBRDFVRayMtl
	TypeMtlSingleBRDF
	TypeMtlMulti
	TypeTexChecker
	TypeTexBitmap
	TypeBitmapBuffer
	TypeUVWGenChannel

	// lights and volumetrics
	TypeLightOmni
	TypeLightRectangle
	TypeEnvironmentFog
	TypeSphereFadeGizmo

	// geometry and placement
	TypeGeomStaticMesh
	TypeGeomPlane
	TypeObjectOutput
	TypeInstancer

	// TypeCount is the number of node types, for handler tables.
	TypeCount
)

var typeNames = [TypeCount]string{
	TypeInvalid:         "Invalid",
	TypeFloat:           "Float",
	TypeColor:           "Color",
	TypeVector:          "Vector",
	TypeTransform:       "Transform",
	TypeReroute:         "Reroute",
	TypeGroup:           "Group",
	TypeGroupInput:      "GroupInput",
	TypeGroupOutput:     "GroupOutput",
	TypeBRDFDiffuse:     "BRDFDiffuse",
	TypeBRDFVRayMtl:     "BRDFVRayMtl",
	TypeMtlSingleBRDF:   "MtlSingleBRDF",
	TypeMtlMulti:        "MtlMulti",
	TypeTexChecker:      "TexChecker",
	TypeTexBitmap:       "TexBitmap",
	TypeBitmapBuffer:    "BitmapBuffer",
	TypeUVWGenChannel:   "UVWGenChannel",
	TypeLightOmni:       "LightOmni",
	TypeLightRectangle:  "LightRectangle",
	TypeEnvironmentFog:  "EnvironmentFog",
	TypeSphereFadeGizmo: "SphereFadeGizmo",
	TypeGeomStaticMesh:  "GeomStaticMesh",
	TypeGeomPlane:       "GeomPlane",
	TypeObjectOutput:    "ObjectOutput",
	TypeInstancer:       "Instancer",
}

var typesByName = func() map[string]TypeID {
	m := make(map[string]TypeID, TypeCount)
	for id := TypeInvalid + 1; id < TypeCount; id++ {
		m[typeNames[id]] = id
	}
	return m
}()

func (t TypeID) String() string {
	if t >= 0 && t < TypeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("TypeID(%d)", int(t))
}

// Valid reports whether t names a real node type.
func (t TypeID) Valid() bool {
	return t > TypeInvalid && t < TypeCount
}

// ParseTypeID looks a type up by its name, as written in scene scripts.
func ParseTypeID(name string) (TypeID, error) {
	if id, ok := typesByName[name]; ok {
		return id, nil
	}
	return TypeInvalid, fmt.Errorf("graph: unknown node type %q", name)
}

// Category is the capability class of a socket.
type Category int

const (
	CategoryAny Category = iota // reroute and group sockets
	CategoryGeometry
	CategoryMaterial
	CategoryBRDF
	CategoryTexture
	CategoryMapping
	CategoryObject
	CategoryGroup
	CategoryScalar
	CategoryVector
	CategoryColor
	CategoryTransform
	CategoryBitmap
)

func (c Category) String() string {
	switch c {
	case CategoryAny:
		return "any"
	case CategoryGeometry:
		return "geometry"
	case CategoryMaterial:
		return "material"
	case CategoryBRDF:
		return "brdf"
	case CategoryTexture:
		return "texture"
	case CategoryMapping:
		return "mapping"
	case CategoryObject:
		return "object"
	case CategoryGroup:
		return "group"
	case CategoryScalar:
		return "scalar"
	case CategoryVector:
		return "vector"
	case CategoryColor:
		return "color"
	case CategoryTransform:
		return "transform"
	case CategoryBitmap:
		return "bitmap"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// valueLike categories carry plain or textured values and convert freely.
func (c Category) valueLike() bool {
	switch c {
	case CategoryScalar, CategoryVector, CategoryColor, CategoryTexture:
		return true
	}
	return false
}

// Accepts reports whether an input socket of category c can be fed by an
// output socket of category out.
func (c Category) Accepts(out Category) bool {
	if c == CategoryAny || out == CategoryAny || c == out {
		return true
	}
	return c.valueLike() && out.valueLike()
}
