package graph

import (
	"errors"
	"fmt"
)

// Names of the interface nodes inside a group tree.
const (
	GroupInputName  = "Group Input"
	GroupOutputName = "Group Output"
)

var (
	// ErrDuplicateNode is returned when a node name is already taken in a tree.
	ErrDuplicateNode = errors.New("graph: duplicate node name")
	// ErrBadLink is returned for links that do not join an output to an input
	// of the same tree.
	ErrBadLink = errors.New("graph: invalid link")
)

// Tree is an ordered set of nodes and the links between their sockets. An
// output may feed any number of inputs; an input has at most one producer.
type Tree struct {
	Name  string
	Nodes []*Node
	Links []*Link

	byName map[string]*Node
}

// NewTree creates an empty tree.
func NewTree(name string) *Tree {
	return &Tree{Name: name, byName: make(map[string]*Node)}
}

// AddNode appends a node of type typ.
func (t *Tree) AddNode(typ TypeID, name string) (*Node, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("graph: invalid node type %s", typ)
	}
	if typ == TypeGroup {
		return nil, fmt.Errorf("graph: group node %q needs AddGroup", name)
	}
	if _, ok := t.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q in tree %q", ErrDuplicateNode, name, t.Name)
	}
	n := newNode(t, typ, name)
	t.Nodes = append(t.Nodes, n)
	t.byName[name] = n
	return n, nil
}

// MustAddNode is AddNode that panics on error.
func (t *Tree) MustAddNode(typ TypeID, name string) *Node {
	n, err := t.AddNode(typ, name)
	if err != nil {
		panic(err)
	}
	return n
}

// AddGroup appends a group node embedding sub. The node's sockets mirror the
// interface sub has at this point.
func (t *Tree) AddGroup(name string, sub *Tree) (*Node, error) {
	if sub == nil {
		return nil, fmt.Errorf("graph: group %q without a tree", name)
	}
	if sub == t {
		return nil, fmt.Errorf("graph: group %q embeds its own tree", name)
	}
	if _, ok := t.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q in tree %q", ErrDuplicateNode, name, t.Name)
	}
	n := newNode(t, TypeGroup, name)
	n.Group = sub
	if gi := sub.GroupInput(); gi != nil {
		for _, s := range gi.Outputs {
			n.addSocket(SocketSpec{Name: s.Name, Category: s.Category, Kind: s.Kind, Default: s.Default}, false)
		}
	}
	if gout := sub.GroupOutput(); gout != nil {
		for _, s := range gout.Inputs {
			n.addSocket(SocketSpec{Name: s.Name, Category: s.Category, Kind: s.Kind}, true)
		}
	}
	t.Nodes = append(t.Nodes, n)
	t.byName[name] = n
	return n, nil
}

// AddInterfaceInput declares a group input socket, creating the group input
// node on first use.
func (t *Tree) AddInterfaceInput(spec SocketSpec) *Socket {
	n := t.GroupInput()
	if n == nil {
		n = t.MustAddNode(TypeGroupInput, GroupInputName)
	}
	if s := n.Output(spec.Name); s != nil {
		return s
	}
	return n.addSocket(spec, true)
}

// AddInterfaceOutput declares a group output socket, creating the group
// output node on first use.
func (t *Tree) AddInterfaceOutput(spec SocketSpec) *Socket {
	n := t.GroupOutput()
	if n == nil {
		n = t.MustAddNode(TypeGroupOutput, GroupOutputName)
	}
	if s := n.Input(spec.Name); s != nil {
		return s
	}
	return n.addSocket(spec, false)
}

// GroupInput returns the tree's group input node, or nil.
func (t *Tree) GroupInput() *Node { return t.firstOfType(TypeGroupInput) }

// GroupOutput returns the tree's group output node, or nil.
func (t *Tree) GroupOutput() *Node { return t.firstOfType(TypeGroupOutput) }

func (t *Tree) firstOfType(typ TypeID) *Node {
	for _, n := range t.Nodes {
		if n.Type == typ {
			return n
		}
	}
	return nil
}

// Lookup returns the node called name, or nil.
func (t *Tree) Lookup(name string) *Node {
	return t.byName[name]
}

// MustLookup returns the node called name, or panics.
func (t *Tree) MustLookup(name string) *Node {
	n := t.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q in tree %q", name, t.Name))
	}
	return n
}

// Contains reports whether n belongs to t.
func (t *Tree) Contains(n *Node) bool {
	return n != nil && n.tree == t && t.byName[n.Name] == n
}

// Link wires from into to, replacing any link to already had. Categories
// are not checked here; the compiler treats a mismatch as unresolved.
func (t *Tree) Link(from, to *Socket) (*Link, error) {
	switch {
	case from == nil || to == nil:
		return nil, fmt.Errorf("%w: missing socket", ErrBadLink)
	case !from.output || to.output:
		return nil, fmt.Errorf("%w: %s -> %s must join an output to an input", ErrBadLink, from, to)
	case !t.Contains(from.node) || !t.Contains(to.node):
		return nil, fmt.Errorf("%w: %s -> %s crosses trees", ErrBadLink, from, to)
	}
	t.Unlink(to)
	l := &Link{From: from, To: to}
	to.Link = l
	t.Links = append(t.Links, l)
	return l, nil
}

// Connect links fromNode's output outName to toNode's input inName.
func (t *Tree) Connect(fromNode *Node, outName string, toNode *Node, inName string) (*Link, error) {
	if fromNode == nil || toNode == nil {
		return nil, fmt.Errorf("%w: missing node", ErrBadLink)
	}
	from := fromNode.Output(outName)
	if from == nil {
		return nil, fmt.Errorf("%w: %s has no output %q", ErrBadLink, fromNode, outName)
	}
	to := toNode.Input(inName)
	if to == nil {
		return nil, fmt.Errorf("%w: %s has no input %q", ErrBadLink, toNode, inName)
	}
	return t.Link(from, to)
}

// Unlink removes the producing link of an input socket.
func (t *Tree) Unlink(to *Socket) {
	if to == nil || to.Link == nil {
		return
	}
	for i, l := range t.Links {
		if l == to.Link {
			t.Links = append(t.Links[:i], t.Links[i+1:]...)
			break
		}
	}
	to.Link = nil
}

// Consumers returns every input socket fed by out.
func (t *Tree) Consumers(out *Socket) []*Socket {
	var ins []*Socket
	for _, l := range t.Links {
		if l.From == out {
			ins = append(ins, l.To)
		}
	}
	return ins
}

// NodeCount returns the number of nodes.
func (t *Tree) NodeCount() int { return len(t.Nodes) }
