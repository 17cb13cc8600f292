package compiler

import (
	"fmt"
	"strings"

	"github.com/chazu/vrexport/pkg/graph"
	"github.com/chazu/vrexport/pkg/record"
)

// Override replaces per-placement properties of objects exported below an
// instancer. Only the ObjectOutput handler applies it.
type Override struct {
	NamePrefix string
	ID         int64
	Visible    bool
	Transform  record.Transform

	active bool
}

// Active reports whether the override is in effect.
func (o Override) Active() bool { return o.active }

func (o Override) signature() string {
	if !o.active {
		return ""
	}
	return fmt.Sprintf("%s|%d|%t|%v", o.NamePrefix, o.ID, o.Visible, o.Transform)
}

// scope is one level of group nesting: the tree holding a group node and
// the node itself.
type scope struct {
	tree  *graph.Tree
	group *graph.Node
}

// Context carries the state of one entity's export walk. Handlers may push
// and pop scopes but must leave the stack as they found it.
type Context struct {
	entity   *graph.Entity
	scopes   []scope
	override Override
}

// NewContext starts a walk for e. A nil entity is allowed for exporting
// bare trees.
func NewContext(e *graph.Entity) *Context {
	return &Context{entity: e}
}

// Entity returns the entity being exported, or nil.
func (c *Context) Entity() *graph.Entity { return c.entity }

// Depth returns the group nesting depth.
func (c *Context) Depth() int { return len(c.scopes) }

// Override returns the active override.
func (c *Context) Override() Override { return c.override }

// Touched reports whether the entity changed this frame.
func (c *Context) Touched() bool { return c.entity == nil || c.entity.Touched }

func (c *Context) push(t *graph.Tree, group *graph.Node) {
	c.scopes = append(c.scopes, scope{tree: t, group: group})
}

func (c *Context) pop() scope {
	top := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]
	return top
}

// inScope reports whether t is already being walked through a group.
func (c *Context) inScope(t *graph.Tree) bool {
	for _, s := range c.scopes {
		if s.tree == t || s.group.Group == t {
			return true
		}
	}
	return false
}

// withOverride installs o until the returned func is called.
func (c *Context) withOverride(o Override) func() {
	prev := c.override
	o.active = true
	c.override = o
	return func() { c.override = prev }
}

// path names the scope chain: the outermost tree followed by every group
// node entered on the way down.
func (c *Context) path(current *graph.Tree) string {
	var b strings.Builder
	if len(c.scopes) > 0 {
		b.WriteString(c.scopes[0].tree.Name)
	} else if current != nil {
		b.WriteString(current.Name)
	}
	for _, s := range c.scopes {
		b.WriteString("@G")
		b.WriteString(s.group.Name)
	}
	return b.String()
}

// RecordName returns the record name for n under the current scopes.
// Nodes reached through different group instances get different names.
func (c *Context) RecordName(n *graph.Node) string {
	return record.CleanName("NT" + c.path(n.Tree()) + "@N" + n.Name)
}
