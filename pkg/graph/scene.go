package graph

import "fmt"

// Entity is a top-level scene object whose node tree is exported from Root.
type Entity struct {
	Name string
	Tree *Tree
	Root *Node

	// Touched marks entities the host changed this frame. The Simple
	// animation policy only re-emits touched entities.
	Touched bool
}

// Scene is the input of one export pass: the entities to export and every
// tree they reference.
type Scene struct {
	Entities []*Entity
	Trees    []*Tree

	entities map[string]*Entity
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{entities: make(map[string]*Entity)}
}

// AddTree registers a tree. Trees embedded by group nodes need not be added.
func (s *Scene) AddTree(t *Tree) {
	for _, have := range s.Trees {
		if have == t {
			return
		}
	}
	s.Trees = append(s.Trees, t)
}

// AddEntity registers an entity exported from root.
func (s *Scene) AddEntity(name string, root *Node, touched bool) (*Entity, error) {
	if root == nil || root.tree == nil {
		return nil, fmt.Errorf("graph: entity %q has no root node", name)
	}
	if _, ok := s.entities[name]; ok {
		return nil, fmt.Errorf("graph: duplicate entity %q", name)
	}
	e := &Entity{Name: name, Tree: root.tree, Root: root, Touched: touched}
	s.Entities = append(s.Entities, e)
	s.entities[name] = e
	s.AddTree(root.tree)
	return e, nil
}

// Entity returns the entity called name, or nil.
func (s *Scene) Entity(name string) *Entity {
	return s.entities[name]
}

// Walk calls fn for every tree reachable from the scene, embedded group trees
// included, each once.
func (s *Scene) Walk(fn func(*Tree)) {
	seen := make(map[*Tree]bool)
	var visit func(*Tree)
	visit = func(t *Tree) {
		if t == nil || seen[t] {
			return
		}
		seen[t] = true
		fn(t)
		for _, n := range t.Nodes {
			if n.Group != nil {
				visit(n.Group)
			}
		}
	}
	for _, t := range s.Trees {
		visit(t)
	}
}
