package graph

import (
	"fmt"

	"github.com/chazu/vrexport/pkg/record"
)

// Socket is a typed input or output port on a node.
type Socket struct {
	Name     string
	Category Category
	Kind     record.Kind

	// Default is the inline value used when an input has no link.
	Default record.Value

	// Link is the producing link of an input socket, or nil.
	Link *Link

	node   *Node
	output bool
}

// Node returns the socket's owner.
func (s *Socket) Node() *Node { return s.node }

// IsOutput reports whether s is an output socket.
func (s *Socket) IsOutput() bool { return s.output }

// Linked reports whether an input socket is fed by a link.
func (s *Socket) Linked() bool { return s.Link != nil }

func (s *Socket) String() string {
	if s.node == nil {
		return s.Name
	}
	return s.node.Name + "." + s.Name
}

// Link connects an output socket to an input socket.
type Link struct {
	From *Socket
	To   *Socket
}

// Instance is one placement produced by an instancer node.
type Instance struct {
	ID        int64
	Transform record.Transform
	Visible   bool
}

// Node is one element of a Tree.
type Node struct {
	Name string
	Type TypeID

	Inputs  []*Socket
	Outputs []*Socket

	// Props holds non-socket properties keyed by name.
	Props map[string]record.Value

	// Group is the embedded tree of a group node.
	Group *Tree

	// Instances are the placements of an instancer node.
	Instances []Instance

	tree *Tree
}

func newNode(t *Tree, typ TypeID, name string) *Node {
	n := &Node{Name: name, Type: typ, tree: t, Props: make(map[string]record.Value)}
	s := SchemaOf(typ)
	for _, spec := range s.Inputs {
		n.addSocket(spec, false)
	}
	for _, spec := range s.Outputs {
		n.addSocket(spec, true)
	}
	return n
}

func (n *Node) addSocket(spec SocketSpec, output bool) *Socket {
	s := &Socket{
		Name:     spec.Name,
		Category: spec.Category,
		Kind:     spec.Kind,
		Default:  spec.Default,
		node:     n,
		output:   output,
	}
	if output {
		n.Outputs = append(n.Outputs, s)
	} else {
		n.Inputs = append(n.Inputs, s)
	}
	return s
}

// Tree returns the tree the node belongs to.
func (n *Node) Tree() *Tree { return n.tree }

// Schema returns the node's type schema.
func (n *Node) Schema() *Schema { return SchemaOf(n.Type) }

// Input returns the input socket called name, or nil.
func (n *Node) Input(name string) *Socket {
	for _, s := range n.Inputs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Output returns the output socket called name, or nil.
func (n *Node) Output(name string) *Socket {
	for _, s := range n.Outputs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// DefaultOutput returns the first output socket, or nil.
func (n *Node) DefaultOutput() *Socket {
	if len(n.Outputs) == 0 {
		return nil
	}
	return n.Outputs[0]
}

// Prop returns a property, falling back to the schema default.
func (n *Node) Prop(name string) record.Value {
	if v, ok := n.Props[name]; ok {
		return v
	}
	if p, ok := n.Schema().Prop(name); ok {
		return p.Default
	}
	return record.Null{}
}

// SetProp sets a declared property.
func (n *Node) SetProp(name string, v record.Value) error {
	if _, ok := n.Schema().Prop(name); !ok {
		return fmt.Errorf("graph: %s node %q has no property %q", n.Type, n.Name, name)
	}
	n.Props[name] = v
	return nil
}

// SetDefault sets the inline value of an unlinked input.
func (n *Node) SetDefault(name string, v record.Value) error {
	s := n.Input(name)
	if s == nil {
		return fmt.Errorf("graph: %s node %q has no input %q", n.Type, n.Name, name)
	}
	s.Default = v
	return nil
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.Type, n.Name)
}
