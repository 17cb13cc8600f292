package compiler

import (
	"fmt"

	"github.com/chazu/vrexport/pkg/graph"
	"github.com/chazu/vrexport/pkg/record"
)

func defaultHandlers() [graph.TypeCount]Handler {
	var h [graph.TypeCount]Handler

	h[graph.TypeFloat] = exportConstant
	h[graph.TypeColor] = exportConstant
	h[graph.TypeVector] = exportConstant
	h[graph.TypeTransform] = exportTransform

	h[graph.TypeReroute] = exportReroute
	h[graph.TypeGroup] = exportGroup
	h[graph.TypeGroupInput] = exportGroupInput
	h[graph.TypeGroupOutput] = exportGroupOutput

	for _, t := range []graph.TypeID{
		graph.TypeBRDFDiffuse,
		graph.TypeBRDFVRayMtl,
		graph.TypeMtlSingleBRDF,
		graph.TypeTexChecker,
		graph.TypeTexBitmap,
		graph.TypeBitmapBuffer,
		graph.TypeUVWGenChannel,
		graph.TypeLightOmni,
		graph.TypeLightRectangle,
		graph.TypeSphereFadeGizmo,
		graph.TypeGeomPlane,
	} {
		h[t] = exportPlugin
	}
	h[graph.TypeMtlMulti] = exportMtlMulti
	h[graph.TypeEnvironmentFog] = exportEnvironmentFog
	h[graph.TypeGeomStaticMesh] = exportStaticMesh

	h[graph.TypeObjectOutput] = exportObject
	h[graph.TypeInstancer] = exportInstancer
	return h
}

func exportConstant(_ *Compiler, _ *Context, n *graph.Node, _ *graph.Socket) (record.Value, error) {
	return n.Prop("value"), nil
}

func exportReroute(c *Compiler, ctx *Context, n *graph.Node, _ *graph.Socket) (record.Value, error) {
	return c.Input(ctx, n, "input")
}

// exportGroup resolves one output of a group node inside the embedded tree.
func exportGroup(c *Compiler, ctx *Context, n *graph.Node, from *graph.Socket) (record.Value, error) {
	sub := n.Group
	if sub == nil {
		return nil, c.fault(UnresolvedReference, n, socketName(from), fmt.Errorf("%w: group has no tree", ErrDangling))
	}
	if sub == n.Tree() || ctx.inScope(sub) {
		return nil, c.fault(RecoverableGraphError, n, socketName(from), ErrRecursiveGroup)
	}
	out := sub.GroupOutput()
	if out == nil {
		return record.Null{}, nil
	}
	if from == nil {
		from = n.DefaultOutput()
		if from == nil {
			return record.Null{}, nil
		}
	}

	if out.Input(from.Name) == nil {
		return nil, c.fault(UnresolvedReference, n, from.Name, ErrInterface)
	}

	ctx.push(n.Tree(), n)
	defer ctx.pop()
	return c.Input(ctx, out, from.Name)
}

// exportGroupInput steps out to the enclosing tree and resolves the matching
// input of the group node there.
func exportGroupInput(c *Compiler, ctx *Context, n *graph.Node, from *graph.Socket) (record.Value, error) {
	if ctx.Depth() == 0 {
		return nil, c.fault(UnresolvedReference, n, socketName(from), ErrScope)
	}
	if from == nil {
		return record.Null{}, nil
	}

	top := ctx.pop()
	defer ctx.push(top.tree, top.group)
	if top.group.Input(from.Name) == nil {
		return nil, c.fault(UnresolvedReference, top.group, from.Name, ErrInterface)
	}
	return c.Input(ctx, top.group, from.Name)
}

func exportGroupOutput(c *Compiler, ctx *Context, n *graph.Node, _ *graph.Socket) (record.Value, error) {
	if len(n.Inputs) == 0 {
		return record.Null{}, nil
	}
	return c.ExportSocket(ctx, n.Inputs[0])
}

// pluginRecord builds the record for a plugin node from its inputs and
// properties. Unlinked inputs without a value are left out.
func (c *Compiler) pluginRecord(ctx *Context, n *graph.Node) (*record.Record, error) {
	schema := n.Schema()
	rec := record.New(schema.Plugin, ctx.RecordName(n))
	for _, s := range n.Inputs {
		v, err := c.ExportSocket(ctx, s)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		rec.Set(s.Name, coerce(v, s.Kind))
	}
	for _, p := range schema.Props {
		rec.Set(p.Name, n.Prop(p.Name))
	}
	return rec, nil
}

func exportPlugin(c *Compiler, ctx *Context, n *graph.Node, _ *graph.Socket) (record.Value, error) {
	rec, err := c.pluginRecord(ctx, n)
	if err != nil {
		return nil, err
	}
	if err := c.write(ctx, rec); err != nil {
		return nil, err
	}
	return record.Ref(rec.Name), nil
}

func exportMtlMulti(c *Compiler, ctx *Context, n *graph.Node, _ *graph.Socket) (record.Value, error) {
	var (
		mtls record.List
		ids  record.IntList
	)
	for i, s := range n.Inputs {
		v, err := c.ExportSocket(ctx, s)
		if err != nil {
			return nil, err
		}
		if record.IsNull(v) {
			continue
		}
		mtls = append(mtls, v)
		ids = append(ids, int32(i+1))
	}
	rec := record.New(n.Schema().Plugin, ctx.RecordName(n)).
		Set("mtls_list", mtls).
		Set("ids_list", ids)
	if err := c.write(ctx, rec); err != nil {
		return nil, err
	}
	return record.Ref(rec.Name), nil
}

func exportEnvironmentFog(c *Compiler, ctx *Context, n *graph.Node, _ *graph.Socket) (record.Value, error) {
	rec, err := c.pluginRecord(ctx, n)
	if err != nil {
		return nil, err
	}
	// gizmos is a list attribute fed by a single socket.
	if g, ok := rec.Get("gizmos"); ok && !record.IsNull(g) {
		rec.Set("gizmos", record.List{g})
	}
	if err := c.write(ctx, rec); err != nil {
		return nil, err
	}
	return record.Ref(rec.Name), nil
}

func exportStaticMesh(c *Compiler, ctx *Context, n *graph.Node, _ *graph.Socket) (record.Value, error) {
	if c.meshes == nil {
		return nil, c.fault(RecoverableGraphError, n, "", ErrNoMeshes)
	}
	m, err := c.meshes.Mesh(n)
	if err != nil {
		return nil, c.fault(RecoverableGraphError, n, "", err)
	}

	verts := make(record.VectorList, m.VertexCount())
	normals := make(record.VectorList, len(m.Normals)/3)
	for i := range verts {
		verts[i] = record.Vector{
			X: float64(m.Vertices[3*i]),
			Y: float64(m.Vertices[3*i+1]),
			Z: float64(m.Vertices[3*i+2]),
		}
	}
	for i := range normals {
		normals[i] = record.Vector{
			X: float64(m.Normals[3*i]),
			Y: float64(m.Normals[3*i+1]),
			Z: float64(m.Normals[3*i+2]),
		}
	}
	faces := make(record.IntList, len(m.Indices))
	for i, idx := range m.Indices {
		faces[i] = int32(idx)
	}

	rec := record.New(n.Schema().Plugin, ctx.RecordName(n)).
		Set("vertices", verts).
		Set("faces", faces).
		Set("normals", normals).
		Set("faceNormals", faces).
		Set("dynamic_geometry", n.Prop("dynamic_geometry"))
	if err := c.write(ctx, rec); err != nil {
		return nil, err
	}
	return record.Ref(rec.Name), nil
}

// exportTransform evaluates a Transform node to a literal: rotation (degrees,
// X then Y then Z) applied after scale, then the offset.
func exportTransform(c *Compiler, ctx *Context, n *graph.Node, _ *graph.Socket) (record.Value, error) {
	offset, err := c.vectorInput(ctx, n, "offset")
	if err != nil {
		return nil, err
	}
	rot, err := c.vectorInput(ctx, n, "rotate")
	if err != nil {
		return nil, err
	}
	scale, err := c.vectorInput(ctx, n, "scale")
	if err != nil {
		return nil, err
	}
	return record.Transform{
		M:      record.Euler(rot).Mul(record.Scale(scale)),
		Offset: offset,
	}, nil
}

// exportObject writes the Node record placing geometry in the scene. Under
// an instancer the override supplies name prefix, ID, visibility and an
// outer transform.
func exportObject(c *Compiler, ctx *Context, n *graph.Node, _ *graph.Socket) (record.Value, error) {
	name := ctx.RecordName(n)
	if e := ctx.Entity(); e != nil && e.Root == n {
		name = record.CleanName("OB" + e.Name)
	}

	geom, err := c.Input(ctx, n, "geometry")
	if err != nil {
		return nil, err
	}
	mtl, err := c.Input(ctx, n, "material")
	if err != nil {
		return nil, err
	}
	xf, err := c.transformInput(ctx, n, "transform")
	if err != nil {
		return nil, err
	}
	visible, err := c.boolInput(ctx, n, "visible")
	if err != nil {
		return nil, err
	}
	id, err := c.Input(ctx, n, "objectID")
	if err != nil {
		return nil, err
	}
	objectID, _ := asFloat(id)

	if o := ctx.Override(); o.Active() {
		name = o.NamePrefix + name
		xf = o.Transform.Mul(xf)
		visible = visible && o.Visible
		objectID = float64(o.ID)
	}

	if geom == nil {
		geom = record.Null{}
	}
	rec := record.New(n.Schema().Plugin, name).Set("geometry", geom)
	if mtl != nil {
		rec.Set("material", mtl)
	}
	rec.Set("transform", xf).
		Set("visible", record.Bool(visible)).
		Set("objectID", record.Int(int64(objectID)))
	if err := c.write(ctx, rec); err != nil {
		return nil, err
	}
	return record.Ref(name), nil
}

// exportInstancer exports the linked object once per instance with an
// override. It writes no record of its own.
func exportInstancer(c *Compiler, ctx *Context, n *graph.Node, _ *graph.Socket) (record.Value, error) {
	base := ctx.Override()
	prefix := base.NamePrefix + ctx.RecordName(n) + "@"

	refs := make(record.ReferenceList, 0, len(n.Instances))
	for _, inst := range n.Instances {
		o := Override{
			NamePrefix: fmt.Sprintf("%s%d@", prefix, inst.ID),
			ID:         inst.ID,
			Visible:    inst.Visible,
			Transform:  inst.Transform,
		}
		if base.Active() {
			o.Transform = base.Transform.Mul(inst.Transform)
			o.Visible = o.Visible && base.Visible
		}

		restore := ctx.withOverride(o)
		v, err := c.Input(ctx, n, "object")
		restore()
		if err != nil {
			return nil, err
		}
		if ref, ok := v.(record.Reference); ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (c *Compiler) vectorInput(ctx *Context, n *graph.Node, name string) (record.Vector, error) {
	v, err := c.Input(ctx, n, name)
	if err != nil {
		return record.Vector{}, err
	}
	if vec, ok := asVector(v); ok {
		return vec, nil
	}
	c.badValue(n, name, v)
	def, _ := inputDefault(n, name).(record.Vector)
	return def, nil
}

func (c *Compiler) transformInput(ctx *Context, n *graph.Node, name string) (record.Transform, error) {
	v, err := c.Input(ctx, n, name)
	if err != nil {
		return record.Transform{}, err
	}
	if xf, ok := v.(record.Transform); ok {
		return xf, nil
	}
	c.badValue(n, name, v)
	return record.IdentityTransform(), nil
}

func (c *Compiler) boolInput(ctx *Context, n *graph.Node, name string) (bool, error) {
	v, err := c.Input(ctx, n, name)
	if err != nil {
		return false, err
	}
	if b, ok := asBool(v); ok {
		return b, nil
	}
	c.badValue(n, name, v)
	def, _ := asBool(inputDefault(n, name))
	return def, nil
}

func inputDefault(n *graph.Node, name string) record.Value {
	if s := n.Input(name); s != nil {
		return s.Default
	}
	return nil
}

// badValue reports a socket that resolved to something other than the
// literal its consumer needs. NULL was already reported where it arose.
func (c *Compiler) badValue(n *graph.Node, socket string, v record.Value) {
	if record.IsNull(v) {
		return
	}
	c.report(c.fault(UnresolvedReference, n, socket, fmt.Errorf("%w: %s", ErrValueKind, v.Kind())))
}
