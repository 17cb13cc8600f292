package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/vrexport/pkg/graph"
	"github.com/chazu/vrexport/pkg/record"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNode wraps a node declared with (node ...) or (group ...).
type sexpNode struct {
	spec *nodeSpec
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(node %q %q)", n.spec.typ, n.spec.name)
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

// sexpOutput selects a named output of a node: (out node "alpha").
type sexpOutput struct {
	spec   *nodeSpec
	output string
}

func (o *sexpOutput) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(out %q %q)", o.spec.name, o.output)
}
func (o *sexpOutput) Type() *zygo.RegisteredType { return nil }

// sexpGroupInput binds an input to a socket of the group interface.
type sexpGroupInput struct {
	name string
}

func (g *sexpGroupInput) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(group-input %q)", g.name)
}
func (g *sexpGroupInput) Type() *zygo.RegisteredType { return nil }

// sexpGroupOutput declares a group interface output inside (tree ...).
type sexpGroupOutput struct {
	out ifaceOutput
}

func (g *sexpGroupOutput) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(group-output %q)", g.out.name)
}
func (g *sexpGroupOutput) Type() *zygo.RegisteredType { return nil }

// sexpTree wraps a built tree so it can be embedded by (group ...).
type sexpTree struct {
	tree *graph.Tree
}

func (t *sexpTree) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(tree %q)", t.tree.Name)
}
func (t *sexpTree) Type() *zygo.RegisteredType { return nil }

// sexpValue wraps a literal attribute value: vectors, colors, transforms.
type sexpValue struct {
	v record.Value
}

func (v *sexpValue) SexpString(ps *zygo.PrintState) string {
	s, err := record.Format(v.v)
	if err != nil {
		return v.v.Kind().String()
	}
	return s
}
func (v *sexpValue) Type() *zygo.RegisteredType { return nil }

type sexpInstance struct {
	inst graph.Instance
}

func (i *sexpInstance) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(instance %d)", i.inst.ID)
}
func (i *sexpInstance) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
// Hyphens in keyword names are read as underscores.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		name = strings.ReplaceAll(name, "-", "_")
		if _, dup := result.kw[name]; !dup {
			result.order = append(result.order, name)
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// Keyword at end with no value: treat as flag with nil.
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_Float) and plain strings ("Float").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpInt:
		return v.Val != 0, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

func toVector(s zygo.Sexp) (record.Vector, error) {
	if v, ok := s.(*sexpValue); ok {
		if vec, ok := v.v.(record.Vector); ok {
			return vec, nil
		}
	}
	return record.Vector{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toTransform(s zygo.Sexp) (record.Transform, error) {
	if v, ok := s.(*sexpValue); ok {
		if xf, ok := v.v.(record.Transform); ok {
			return xf, nil
		}
	}
	return record.Transform{}, fmt.Errorf("expected transform, got %T (%s)", s, s.SexpString(nil))
}

func toNode(s zygo.Sexp) (*nodeSpec, error) {
	if n, ok := s.(*sexpNode); ok {
		return n.spec, nil
	}
	return nil, fmt.Errorf("expected node, got %T (%s)", s, s.SexpString(nil))
}

// toValue converts a literal Sexp to an attribute value.
func toValue(s zygo.Sexp) (record.Value, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return record.Int(v.Val), nil
	case *zygo.SexpFloat:
		return record.Float(v.Val), nil
	case *zygo.SexpBool:
		return record.Bool(v.Val), nil
	case *zygo.SexpStr:
		if _, kw := isKW(v); kw {
			return nil, fmt.Errorf("unexpected keyword %s", v.S[len(kwPrefix):])
		}
		return record.String(v.S), nil
	case *sexpValue:
		return v.v, nil
	}
	return nil, fmt.Errorf("expected a value, got %T (%s)", s, s.SexpString(nil))
}

// toBinding converts the value given for an input socket.
func toBinding(s zygo.Sexp) (binding, error) {
	switch v := s.(type) {
	case *sexpNode:
		return binding{from: v.spec}, nil
	case *sexpOutput:
		return binding{from: v.spec, output: v.output}, nil
	case *sexpGroupInput:
		return binding{groupInput: v.name}, nil
	}
	val, err := toValue(s)
	if err != nil {
		return binding{}, err
	}
	return binding{value: val}, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func numbers(fn string, args []zygo.Sexp) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", fn, i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene DSL builtins into a zygomys
// environment. Declarations are collected by b; the scene is assembled once
// the script has run.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		f, err := numbers("vec3", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpValue{v: record.Vector{X: f[0], Y: f[1], Z: f[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (color 1 0.5 0) or (color 1 0.5 0 1)
	// -----------------------------------------------------------------------
	env.AddFunction("color", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 && len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("color requires 3 or 4 arguments, got %d", len(args))
		}
		f, err := numbers("color", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		c := record.Color{R: f[0], G: f[1], B: f[2]}
		if len(f) == 4 {
			return &sexpValue{v: record.AColor{Color: c, A: f[3]}}, nil
		}
		return &sexpValue{v: c}, nil
	})

	// -----------------------------------------------------------------------
	// (transform :offset (vec3 0 0 1) :rotate (vec3 0 0 90) :scale (vec3 1 1 1))
	// Rotation is in degrees, applied X then Y then Z after scaling.
	// -----------------------------------------------------------------------
	env.AddFunction("transform", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var offset, rot record.Vector
		scale := record.Vector{X: 1, Y: 1, Z: 1}
		for key, dst := range map[string]*record.Vector{"offset": &offset, "rotate": &rot, "scale": &scale} {
			v, ok := pa.kw[key]
			if !ok {
				continue
			}
			vec, err := toVector(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("transform: %s: %w", key, err)
			}
			*dst = vec
		}
		return &sexpValue{v: record.Transform{
			M:      record.Euler(rot).Mul(record.Scale(scale)),
			Offset: offset,
		}}, nil
	})

	// -----------------------------------------------------------------------
	// (node "TexChecker" "Checker" :white_color (color 1 1 1) :uvwgen uvw)
	//
	// Keywords name inputs or properties of the node type. The name may be
	// left out; a unique one is generated.
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("node requires a type argument")
		}
		typeName, err := toKeywordString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: type: %w", err)
		}
		typ, err := graph.ParseTypeID(typeName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: %w", err)
		}
		if typ == graph.TypeGroup || typ == graph.TypeGroupInput || typ == graph.TypeGroupOutput {
			return zygo.SexpNull, fmt.Errorf("node: %s nodes are declared with group, group-input and group-output", typ)
		}

		var nodeName string
		if len(pa.positional) > 1 {
			if nodeName, err = toString(pa.positional[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("node: name: %w", err)
			}
		}

		spec := b.newSpec(typ, nodeName)
		schema := graph.SchemaOf(typ)
		for _, key := range pa.order {
			v := pa.kw[key]
			switch {
			case key == "instances" && typ == graph.TypeInstancer:
				items, err := sexpListToSlice(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("node %q: instances: %w", spec.name, err)
				}
				for _, item := range items {
					inst, ok := item.(*sexpInstance)
					if !ok {
						return zygo.SexpNull, fmt.Errorf("node %q: instances: expected instance, got %T", spec.name, item)
					}
					spec.instances = append(spec.instances, inst.inst)
				}
			default:
				if _, isProp := schema.Prop(key); isProp {
					val, err := toValue(v)
					if err != nil {
						return zygo.SexpNull, fmt.Errorf("node %q: %s: %w", spec.name, key, err)
					}
					spec.props = append(spec.props, namedValue{name: key, v: val})
					continue
				}
				if _, isInput := schema.Input(key); !isInput {
					return zygo.SexpNull, fmt.Errorf("node %q: %s has no input or property %q", spec.name, typ, key)
				}
				bd, err := toBinding(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("node %q: %s: %w", spec.name, key, err)
				}
				spec.inputs = append(spec.inputs, namedBinding{name: key, b: bd})
			}
		}
		return &sexpNode{spec: spec}, nil
	})

	// -----------------------------------------------------------------------
	// (out checker "alpha")
	// -----------------------------------------------------------------------
	env.AddFunction("out", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("out requires a node and an output name")
		}
		spec, err := toNode(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("out: %w", err)
		}
		output, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("out: output: %w", err)
		}
		return &sexpOutput{spec: spec, output: output}, nil
	})

	// -----------------------------------------------------------------------
	// (instance 3 (transform ...) :visible false)
	// -----------------------------------------------------------------------
	env.AddFunction("instance", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("instance requires an id")
		}
		id, ok := pa.positional[0].(*zygo.SexpInt)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("instance: id: expected integer, got %T", pa.positional[0])
		}
		inst := graph.Instance{ID: id.Val, Transform: record.IdentityTransform(), Visible: true}
		if len(pa.positional) > 1 {
			xf, err := toTransform(pa.positional[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("instance: %w", err)
			}
			inst.Transform = xf
		}
		if v, ok := pa.kw["visible"]; ok {
			vis, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("instance: visible: %w", err)
			}
			inst.Visible = vis
		}
		return &sexpInstance{inst: inst}, nil
	})

	// -----------------------------------------------------------------------
	// (group-input "tint")
	//
	// Registered as "group_input"; the preprocessor converts group-input.
	// -----------------------------------------------------------------------
	env.AddFunction("group_input", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("group-input requires a socket name")
		}
		socket, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group-input: %w", err)
		}
		return &sexpGroupInput{name: socket}, nil
	})

	// -----------------------------------------------------------------------
	// (group-output "color" mix)
	// -----------------------------------------------------------------------
	env.AddFunction("group_output", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("group-output requires a socket name and a value")
		}
		socket, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group-output: %w", err)
		}
		bd, err := toBinding(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group-output %q: %w", socket, err)
		}
		return &sexpGroupOutput{out: ifaceOutput{name: socket, b: bd}}, nil
	})

	// -----------------------------------------------------------------------
	// (tree "Tint" root... (group-output ...)...)
	// -----------------------------------------------------------------------
	env.AddFunction("tree", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("tree requires a name argument")
		}
		treeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tree: name: %w", err)
		}

		var (
			roots []*nodeSpec
			outs  []ifaceOutput
		)
		for i := 1; i < len(args); i++ {
			switch v := args[i].(type) {
			case *sexpNode:
				roots = append(roots, v.spec)
			case *sexpGroupOutput:
				outs = append(outs, v.out)
			default:
				return zygo.SexpNull, fmt.Errorf("tree %q: item %d: expected node or group-output, got %T (%s)",
					treeName, i, args[i], args[i].SexpString(nil))
			}
		}

		t, err := b.buildTree(treeName, roots, outs)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tree %q: %w", treeName, err)
		}
		return &sexpTree{tree: t}, nil
	})

	// -----------------------------------------------------------------------
	// (group "G1" tint-tree :tint (color 1 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("group", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("group requires a name and a tree")
		}
		groupName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group: name: %w", err)
		}
		sub, ok := pa.positional[1].(*sexpTree)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("group %q: expected tree, got %T", groupName, pa.positional[1])
		}

		spec := b.newSpec(graph.TypeGroup, groupName)
		spec.sub = sub.tree
		for _, key := range pa.order {
			bd, err := toBinding(pa.kw[key])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("group %q: %s: %w", groupName, key, err)
			}
			spec.inputs = append(spec.inputs, namedBinding{name: key, b: bd})
		}
		return &sexpNode{spec: spec}, nil
	})

	// -----------------------------------------------------------------------
	// (object "Cube" output :touched false)
	// -----------------------------------------------------------------------
	env.AddFunction("object", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("object requires a name and a root node")
		}
		objName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("object: name: %w", err)
		}
		root, err := toNode(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("object %q: root: %w", objName, err)
		}

		obj := &objectSpec{name: objName, root: root, touched: true}
		if v, ok := pa.kw["touched"]; ok {
			if obj.touched, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("object %q: touched: %w", objName, err)
			}
		}
		b.objects = append(b.objects, obj)
		return pa.positional[1], nil
	})
}
