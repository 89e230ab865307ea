package fbx

import "fmt"

// Connection kinds handled by the graph.
const (
	ConnObjectObject   = "OO"
	ConnObjectProperty = "OP"
)

// Connection is a directed edge between two objects. Property names the
// animatable channel on the target for "OP" edges.
type Connection struct {
	Kind     string
	Source   int64
	Target   int64
	Property string
}

// ObjectGraph indexes object records by ID and connections by either endpoint.
type ObjectGraph struct {
	tree     *Tree
	objects  map[int64]Handle
	conns    []Connection
	bySource map[int64][]int
	byTarget map[int64][]int
}

// NewObjectGraph indexes the direct children of the top-level "Objects"
// record and the "C" children of the top-level "Connections" record.
// Either record may be absent. A repeated object ID is an error.
func NewObjectGraph(doc *Document) (*ObjectGraph, error) {
	g := &ObjectGraph{
		tree:     doc.Tree,
		objects:  make(map[int64]Handle),
		bySource: make(map[int64][]int),
		byTarget: make(map[int64][]int),
	}

	root := doc.Root()
	for _, obj := range root.Child("Objects").Children() {
		id := obj.ID()
		if id == 0 {
			continue
		}
		if prev, dup := g.objects[id]; dup {
			return nil, fmt.Errorf("%w: %d (%s at offset %d, %s at offset %d)",
				ErrDuplicateObject, id, g.tree.Node(prev).Name(), g.tree.Node(prev).Offset(), obj.Name(), obj.Offset())
		}
		g.objects[id] = obj.Handle()
	}

	for _, c := range root.Child("Connections").ChildrenNamed("C") {
		kind := c.PropString(0)
		if kind != ConnObjectObject && kind != ConnObjectProperty {
			continue
		}
		src, err := c.Prop(1).AsInt64()
		if err != nil {
			return nil, fmt.Errorf("connection at offset %d source: %w", c.Offset(), err)
		}
		dst, err := c.Prop(2).AsInt64()
		if err != nil {
			return nil, fmt.Errorf("connection at offset %d target: %w", c.Offset(), err)
		}
		conn := Connection{Kind: kind, Source: src, Target: dst}
		if kind == ConnObjectProperty {
			conn.Property = c.PropString(3)
		}
		g.add(conn)
	}

	return g, nil
}

func (g *ObjectGraph) add(c Connection) {
	i := len(g.conns)
	g.conns = append(g.conns, c)
	g.bySource[c.Source] = append(g.bySource[c.Source], i)
	g.byTarget[c.Target] = append(g.byTarget[c.Target], i)
}

// ObjectCount returns the number of indexed objects.
func (g *ObjectGraph) ObjectCount() int { return len(g.objects) }

// Connections returns every indexed connection in file order.
func (g *ObjectGraph) Connections() []Connection { return g.conns }

// ConnectionsOf returns every connection with id at either end, each once.
// It never fails; an ID without connections yields an empty slice.
func (g *ObjectGraph) ConnectionsOf(id int64) []Connection {
	out := make([]Connection, 0, len(g.bySource[id])+len(g.byTarget[id]))
	for _, i := range g.bySource[id] {
		out = append(out, g.conns[i])
	}
	for _, i := range g.byTarget[id] {
		if g.conns[i].Source == id {
			continue // self edge, already listed
		}
		out = append(out, g.conns[i])
	}
	return out
}

// Targets returns the connections leaving id.
func (g *ObjectGraph) Targets(id int64) []Connection {
	return g.collect(g.bySource[id])
}

// Sources returns the connections arriving at id.
func (g *ObjectGraph) Sources(id int64) []Connection {
	return g.collect(g.byTarget[id])
}

func (g *ObjectGraph) collect(idx []int) []Connection {
	out := make([]Connection, len(idx))
	for n, i := range idx {
		out[n] = g.conns[i]
	}
	return out
}

// RecordWithID returns the object record for id, or a *ReferenceError.
func (g *ObjectGraph) RecordWithID(id int64) (Node, error) {
	n, ok := g.RecordWithIDOrNone(id)
	if !ok {
		return Node{}, &ReferenceError{ID: id}
	}
	return n, nil
}

// RecordWithIDOrNone is the non-failing variant of RecordWithID.
func (g *ObjectGraph) RecordWithIDOrNone(id int64) (Node, bool) {
	h, ok := g.objects[id]
	if !ok {
		return Node{}, false
	}
	return g.tree.Node(h), true
}

// SourceObjects returns the object records connected into id whose record
// name is name (any name if empty). Unresolvable sources are skipped.
func (g *ObjectGraph) SourceObjects(id int64, name string) []Node {
	var out []Node
	for _, c := range g.Sources(id) {
		if n, ok := g.RecordWithIDOrNone(c.Source); ok && (name == "" || n.Name() == name) {
			out = append(out, n)
		}
	}
	return out
}

// TargetObjects returns the object records id connects to whose record
// name is name (any name if empty). Unresolvable targets are skipped.
func (g *ObjectGraph) TargetObjects(id int64, name string) []Node {
	var out []Node
	for _, c := range g.Targets(id) {
		if n, ok := g.RecordWithIDOrNone(c.Target); ok && (name == "" || n.Name() == name) {
			out = append(out, n)
		}
	}
	return out
}

// ResolveSources is SourceObjects for builders that must not lose data: a
// connection into id from an object that does not exist fails with a
// *ReferenceError. The scene root (ID 0) is never looked up.
func (g *ObjectGraph) ResolveSources(id int64, name string) ([]Node, error) {
	var out []Node
	for _, c := range g.Sources(id) {
		if c.Source == 0 {
			continue
		}
		n, ok := g.RecordWithIDOrNone(c.Source)
		if !ok {
			return nil, &ReferenceError{ID: c.Source, Context: fmt.Sprintf("connected into object %d", id)}
		}
		if name == "" || n.Name() == name {
			out = append(out, n)
		}
	}
	return out, nil
}

// ResolveTargets is the TargetObjects counterpart of ResolveSources.
func (g *ObjectGraph) ResolveTargets(id int64, name string) ([]Node, error) {
	var out []Node
	for _, c := range g.Targets(id) {
		if c.Target == 0 {
			continue
		}
		n, ok := g.RecordWithIDOrNone(c.Target)
		if !ok {
			return nil, &ReferenceError{ID: c.Target, Context: fmt.Sprintf("target of object %d", id)}
		}
		if name == "" || n.Name() == name {
			out = append(out, n)
		}
	}
	return out, nil
}
