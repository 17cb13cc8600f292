// Package compiler walks node graphs and turns them into scene records. Each
// node type has a handler; handlers export their inputs recursively and
// write records through the registry, returning the value that consuming
// sockets reference.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/vrexport/pkg/graph"
	"github.com/chazu/vrexport/pkg/kernel"
	"github.com/chazu/vrexport/pkg/record"
)

// Exporter receives finished records. *registry.Registry implements it.
type Exporter interface {
	ExportTouched(r *record.Record, touched bool) error
}

// MeshSource supplies tessellated meshes. *tessellate.Table implements it.
type MeshSource interface {
	Mesh(n *graph.Node) (*kernel.Mesh, error)
}

// Handler exports node n. from is the output socket being resolved, or nil
// when the node is exported directly.
type Handler func(c *Compiler, ctx *Context, n *graph.Node, from *graph.Socket) (record.Value, error)

// Options configures a Compiler.
type Options struct {
	Meshes MeshSource
	Logger *slog.Logger
}

// Stats counts compiler activity since creation.
type Stats struct {
	Nodes      int // handler invocations
	MemoHits   int
	Unresolved int
	GraphErrs  int
}

type memoKey struct {
	node     *graph.Node
	socket   string
	scope    string
	override string
	entity   string
	// Untouched and touched entities may share a node; the touched request
	// must reach the registry too.
	touched bool
}

// Compiler dispatches nodes to handlers. It is not safe for concurrent use.
type Compiler struct {
	out      Exporter
	meshes   MeshSource
	log      *slog.Logger
	handlers [graph.TypeCount]Handler

	memo  map[memoKey]record.Value
	path  map[memoKey]bool
	errs  []error
	stats Stats
}

// New creates a compiler writing to out. Every node type must have a
// handler; New panics otherwise.
func New(out Exporter, opts Options) *Compiler {
	if out == nil {
		panic("compiler: nil exporter")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	c := &Compiler{
		out:    out,
		meshes: opts.Meshes,
		log:    log,
		memo:   make(map[memoKey]record.Value),
		path:   make(map[memoKey]bool),
	}
	c.handlers = defaultHandlers()
	for t := graph.TypeInvalid + 1; t < graph.TypeCount; t++ {
		if c.handlers[t] == nil {
			panic(fmt.Sprintf("compiler: no handler for %s", t))
		}
	}
	return c
}

// Handle replaces the handler for t.
func (c *Compiler) Handle(t graph.TypeID, h Handler) {
	if !t.Valid() || h == nil {
		panic(fmt.Sprintf("compiler: bad handler registration for %s", t))
	}
	c.handlers[t] = h
}

// SetMeshes replaces the mesh source.
func (c *Compiler) SetMeshes(m MeshSource) { c.meshes = m }

// Reset starts a new pass. Values memoized in the previous pass are dropped.
func (c *Compiler) Reset() {
	clear(c.memo)
	clear(c.path)
}

// Stats returns the counters.
func (c *Compiler) Stats() Stats { return c.stats }

// ExportEntity exports e from its root node.
func (c *Compiler) ExportEntity(e *graph.Entity) (record.Value, error) {
	return c.ExportNode(NewContext(e), e.Root, nil)
}

// ExportNode exports n and everything it depends on. Recoverable faults
// found anywhere below n are joined into the returned error as GraphErrors;
// the value is still usable. Other errors abort the walk.
func (c *Compiler) ExportNode(ctx *Context, n *graph.Node, from *graph.Socket) (record.Value, error) {
	saved := c.errs
	c.errs = nil
	defer func() { c.errs = saved }()

	v, err := c.exportNode(ctx, n, from)
	if err != nil {
		var ge *GraphError
		if !errors.As(err, &ge) {
			return nil, err
		}
		c.report(ge)
		v = record.Null{}
	}
	return v, errors.Join(c.errs...)
}

// ExportSocket resolves one input socket: the exported producer when the
// socket is linked, its inline value otherwise. An absent socket yields
// NULL. The result is nil when an unlinked socket has no value.
func (c *Compiler) ExportSocket(ctx *Context, s *graph.Socket) (record.Value, error) {
	if s == nil {
		return record.Null{}, nil
	}
	if s.Link == nil {
		return s.Default, nil
	}

	owner := s.Node()
	from := s.Link.From
	if from == nil || from.Node() == nil || !owner.Tree().Contains(from.Node()) {
		c.report(c.fault(UnresolvedReference, owner, s.Name, ErrDangling))
		return record.Null{}, nil
	}
	if !s.Category.Accepts(from.Category) {
		c.report(c.fault(UnresolvedReference, owner, s.Name,
			fmt.Errorf("%w: %s input fed by %s output %s", ErrCategory, s.Category, from.Category, from)))
		return record.Null{}, nil
	}

	producer := from.Node()
	v, err := c.exportNode(ctx, producer, from)
	if err != nil {
		var ge *GraphError
		if errors.As(err, &ge) {
			c.report(ge)
			return record.Null{}, nil
		}
		return nil, err
	}
	if v == nil {
		return record.Null{}, nil
	}

	// Sockets of multi-output records are addressed by channel.
	if ref, ok := v.(record.Reference); ok && ref.Channel == "" &&
		!producer.Schema().Transparent && len(producer.Outputs) > 1 {
		ref.Channel = from.Name
		v = ref
	}
	return v, nil
}

// Input is ExportSocket for n's input called name.
func (c *Compiler) Input(ctx *Context, n *graph.Node, name string) (record.Value, error) {
	return c.ExportSocket(ctx, n.Input(name))
}

func (c *Compiler) exportNode(ctx *Context, n *graph.Node, from *graph.Socket) (record.Value, error) {
	if n == nil {
		return nil, &GraphError{Kind: UnresolvedReference, Err: ErrDangling}
	}

	key := memoKey{
		node:     n,
		scope:    ctx.path(n.Tree()),
		override: ctx.override.signature(),
		touched:  ctx.Touched(),
	}
	if n.Schema().Transparent && from != nil {
		key.socket = from.Name
	}
	if n.Type == graph.TypeObjectOutput && ctx.entity != nil {
		key.entity = ctx.entity.Name
	}
	if v, ok := c.memo[key]; ok {
		c.stats.MemoHits++
		return v, nil
	}
	// The walk path ignores the override: an instancer that reaches itself
	// again nests a new override each time and would never repeat a key.
	onPath := key
	onPath.override = ""
	if c.path[onPath] {
		return nil, c.fault(RecoverableGraphError, n, socketName(from), ErrCycle)
	}

	c.path[onPath] = true
	c.stats.Nodes++
	v, err := c.handlers[n.Type](c, ctx, n, from)
	delete(c.path, onPath)
	if err != nil {
		return nil, err
	}
	c.memo[key] = v
	return v, nil
}

// write sends rec to the exporter.
func (c *Compiler) write(ctx *Context, rec *record.Record) error {
	if err := c.out.ExportTouched(rec, ctx.Touched()); err != nil {
		return fmt.Errorf("compiler: export %s: %w", rec.Name, err)
	}
	return nil
}

func (c *Compiler) fault(kind ErrorKind, n *graph.Node, socket string, err error) *GraphError {
	ge := &GraphError{Kind: kind, Socket: socket, Err: err}
	if n != nil {
		ge.Node = n.Name
		if t := n.Tree(); t != nil {
			ge.Tree = t.Name
		}
	}
	return ge
}

func (c *Compiler) report(ge *GraphError) {
	switch ge.Kind {
	case UnresolvedReference:
		c.stats.Unresolved++
	default:
		c.stats.GraphErrs++
	}
	c.log.Warn("compiler: "+ge.Kind.String(),
		"tree", ge.Tree,
		"node", ge.Node,
		"socket", ge.Socket,
		"error", ge.Err)
	c.errs = append(c.errs, ge)
}

func socketName(s *graph.Socket) string {
	if s == nil {
		return ""
	}
	return s.Name
}
