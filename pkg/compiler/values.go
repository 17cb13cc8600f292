package compiler

import "github.com/chazu/vrexport/pkg/record"

// coerce converts a plain value to the attribute kind a socket declares.
// References and values with no sensible conversion pass through unchanged.
func coerce(v record.Value, kind record.Kind) record.Value {
	switch kind {
	case record.KindFloat:
		if f, ok := asFloat(v); ok {
			return record.Float(f)
		}
	case record.KindInt:
		if f, ok := asFloat(v); ok {
			return record.Int(int64(f))
		}
	case record.KindBool:
		if b, ok := asBool(v); ok {
			return record.Bool(b)
		}
	case record.KindColor:
		switch x := v.(type) {
		case record.Float:
			f := float64(x)
			return record.Color{R: f, G: f, B: f}
		case record.Int:
			f := float64(x)
			return record.Color{R: f, G: f, B: f}
		case record.Vector:
			return record.Color{R: x.X, G: x.Y, B: x.Z}
		case record.AColor:
			return x.Color
		}
	case record.KindVector:
		if c, ok := v.(record.Color); ok {
			return record.Vector{X: c.R, Y: c.G, Z: c.B}
		}
	}
	return v
}

func asFloat(v record.Value) (float64, bool) {
	switch x := v.(type) {
	case record.Float:
		return float64(x), true
	case record.Int:
		return float64(x), true
	case record.Bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func asBool(v record.Value) (bool, bool) {
	if b, ok := v.(record.Bool); ok {
		return bool(b), true
	}
	f, ok := asFloat(v)
	return f != 0, ok
}

func asVector(v record.Value) (record.Vector, bool) {
	switch x := v.(type) {
	case record.Vector:
		return x, true
	case record.Color:
		return record.Vector{X: x.R, Y: x.G, Z: x.B}, true
	case record.Float:
		f := float64(x)
		return record.Vector{X: f, Y: f, Z: f}, true
	}
	return record.Vector{}, false
}
