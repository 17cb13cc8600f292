package engine

import (
	"fmt"

	"github.com/chazu/vrexport/pkg/graph"
	"github.com/chazu/vrexport/pkg/record"
)

// binding is the source of one input: a literal, an output of another node,
// or a socket of the enclosing group's interface.
type binding struct {
	value      record.Value
	from       *nodeSpec
	output     string // producer output; empty selects the first
	groupInput string
}

type namedBinding struct {
	name string
	b    binding
}

type namedValue struct {
	name string
	v    record.Value
}

// nodeSpec is a node described by a script. It becomes a graph.Node when a
// tree containing it is built.
type nodeSpec struct {
	typ       graph.TypeID
	name      string
	inputs    []namedBinding
	props     []namedValue
	sub       *graph.Tree
	instances []graph.Instance

	node *graph.Node
}

// ifaceOutput is a group output socket declared with (group-output ...).
type ifaceOutput struct {
	name string
	b    binding
}

type objectSpec struct {
	name    string
	root    *nodeSpec
	touched bool
}

// builder collects what a script declares and assembles the scene.
type builder struct {
	trees   map[string]*graph.Tree
	specs   []*nodeSpec
	objects []*objectSpec
	anon    map[graph.TypeID]int
}

func newBuilder() *builder {
	return &builder{
		trees: make(map[string]*graph.Tree),
		anon:  make(map[graph.TypeID]int),
	}
}

func (b *builder) newSpec(typ graph.TypeID, name string) *nodeSpec {
	if name == "" {
		b.anon[typ]++
		name = fmt.Sprintf("%s.%03d", typ, b.anon[typ])
	}
	s := &nodeSpec{typ: typ, name: name}
	b.specs = append(b.specs, s)
	return s
}

// buildTree creates the tree called name from every node reachable from
// roots and outs.
func (b *builder) buildTree(name string, roots []*nodeSpec, outs []ifaceOutput) (*graph.Tree, error) {
	if _, ok := b.trees[name]; ok {
		return nil, fmt.Errorf("tree %q already defined", name)
	}
	t := graph.NewTree(name)

	var (
		order []*nodeSpec
		seen  = make(map[*nodeSpec]bool)
	)
	var visit func(*nodeSpec)
	visit = func(s *nodeSpec) {
		if s == nil || seen[s] {
			return
		}
		seen[s] = true
		for _, in := range s.inputs {
			visit(in.b.from)
		}
		order = append(order, s)
	}
	for _, r := range roots {
		visit(r)
	}
	for _, o := range outs {
		visit(o.b.from)
	}

	for _, s := range order {
		if s.node != nil {
			return nil, fmt.Errorf("node %q already belongs to tree %q", s.name, s.node.Tree().Name)
		}
		if err := b.addNode(t, s); err != nil {
			return nil, err
		}
	}
	for _, s := range order {
		for _, in := range s.inputs {
			sock := s.node.Input(in.name)
			if sock == nil {
				return nil, fmt.Errorf("%s node %q has no input %q", s.typ, s.name, in.name)
			}
			if err := bind(t, sock, in.b); err != nil {
				return nil, fmt.Errorf("%s node %q input %q: %w", s.typ, s.name, in.name, err)
			}
		}
	}
	for _, o := range outs {
		if err := bindOutput(t, o); err != nil {
			return nil, fmt.Errorf("group output %q: %w", o.name, err)
		}
	}

	b.trees[name] = t
	return t, nil
}

func (b *builder) addNode(t *graph.Tree, s *nodeSpec) error {
	var (
		n   *graph.Node
		err error
	)
	if s.typ == graph.TypeGroup {
		n, err = t.AddGroup(s.name, s.sub)
	} else {
		n, err = t.AddNode(s.typ, s.name)
	}
	if err != nil {
		return err
	}
	for _, p := range s.props {
		spec, ok := n.Schema().Prop(p.name)
		if !ok {
			return fmt.Errorf("%s node %q has no property %q", s.typ, s.name, p.name)
		}
		if err := n.SetProp(p.name, literal(spec.Kind, p.v)); err != nil {
			return err
		}
	}
	n.Instances = s.instances
	s.node = n
	return nil
}

func bind(t *graph.Tree, sock *graph.Socket, b binding) error {
	switch {
	case b.from != nil:
		out, err := producerOutput(b)
		if err != nil {
			return err
		}
		_, err = t.Link(out, sock)
		return err
	case b.groupInput != "":
		iface := t.AddInterfaceInput(graph.SocketSpec{
			Name:     b.groupInput,
			Category: sock.Category,
			Kind:     sock.Kind,
			Default:  sock.Default,
		})
		_, err := t.Link(iface, sock)
		return err
	default:
		sock.Default = literal(sock.Kind, b.value)
		return nil
	}
}

func bindOutput(t *graph.Tree, o ifaceOutput) error {
	spec := graph.SocketSpec{Name: o.name}
	var out *graph.Socket
	switch {
	case o.b.from != nil:
		var err error
		if out, err = producerOutput(o.b); err != nil {
			return err
		}
		spec.Category, spec.Kind = out.Category, out.Kind
	case o.b.groupInput != "":
		return fmt.Errorf("group input %q cannot feed a group output directly", o.b.groupInput)
	default:
		spec.Category, spec.Kind = categoryOf(o.b.value), o.b.value.Kind()
		spec.Default = o.b.value
	}

	sock := t.AddInterfaceOutput(spec)
	if out == nil {
		sock.Default = o.b.value
		return nil
	}
	_, err := t.Link(out, sock)
	return err
}

func producerOutput(b binding) (*graph.Socket, error) {
	n := b.from.node
	if n == nil {
		return nil, fmt.Errorf("producer %q is not in the tree", b.from.name)
	}
	if b.output == "" {
		if out := n.DefaultOutput(); out != nil {
			return out, nil
		}
		return nil, fmt.Errorf("%s node %q has no outputs", n.Type, n.Name)
	}
	out := n.Output(b.output)
	if out == nil {
		return nil, fmt.Errorf("%s node %q has no output %q", n.Type, n.Name, b.output)
	}
	return out, nil
}

// finish builds implicit trees for objects whose root is not yet in a tree
// and registers every object as a scene entity.
func (b *builder) finish() (*graph.Scene, error) {
	scene := graph.NewScene()
	for _, o := range b.objects {
		if o.root.node == nil {
			if _, err := b.buildTree(o.name, []*nodeSpec{o.root}, nil); err != nil {
				return nil, fmt.Errorf("object %q: %w", o.name, err)
			}
		}
		if _, err := scene.AddEntity(o.name, o.root.node, o.touched); err != nil {
			return nil, err
		}
	}
	return scene, nil
}

// unplaced returns the names of nodes that were declared but never built
// into a tree.
func (b *builder) unplaced() []string {
	var names []string
	for _, s := range b.specs {
		if s.node == nil {
			names = append(names, s.name)
		}
	}
	return names
}

// literal adapts a script value to the kind an input or property expects.
// Values with no sensible conversion are returned unchanged.
func literal(kind record.Kind, v record.Value) record.Value {
	switch x := v.(type) {
	case record.Int:
		switch kind {
		case record.KindFloat:
			return record.Float(x)
		case record.KindBool:
			return record.Bool(x != 0)
		case record.KindColor:
			f := float64(x)
			return record.Color{R: f, G: f, B: f}
		case record.KindVector:
			f := float64(x)
			return record.Vector{X: f, Y: f, Z: f}
		}
	case record.Float:
		switch kind {
		case record.KindInt:
			return record.Int(int64(x))
		case record.KindColor:
			f := float64(x)
			return record.Color{R: f, G: f, B: f}
		case record.KindVector:
			f := float64(x)
			return record.Vector{X: f, Y: f, Z: f}
		}
	case record.Vector:
		if kind == record.KindColor {
			return record.Color{R: x.X, G: x.Y, B: x.Z}
		}
	case record.Color:
		if kind == record.KindVector {
			return record.Vector{X: x.R, Y: x.G, Z: x.B}
		}
	}
	return v
}

func categoryOf(v record.Value) graph.Category {
	switch v.Kind() {
	case record.KindColor, record.KindAColor:
		return graph.CategoryColor
	case record.KindVector:
		return graph.CategoryVector
	case record.KindTransform:
		return graph.CategoryTransform
	case record.KindBool, record.KindInt, record.KindFloat:
		return graph.CategoryScalar
	}
	return graph.CategoryAny
}
