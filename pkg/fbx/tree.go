package fbx

// Handle indexes a record in its Tree. Handles are only meaningful for the
// tree that issued them.
type Handle int32

// NoHandle is returned by lookups that find nothing.
const NoHandle Handle = -1

// Record is one named node of the container. Children are handles into the
// owning tree, so a record never points at its parent.
type Record struct {
	Name     string
	Props    []Property
	Children []Handle

	// ID is the object ID for direct children of the top-level "Objects"
	// record and 0 for everything else.
	ID int64

	// Offset is the stream position of the record header.
	Offset int64
}

// Tree owns every record of one load. Index 0 is a synthetic root whose
// children are the top-level records.
type Tree struct {
	records []Record
}

func newTree() *Tree {
	return &Tree{records: []Record{{}}}
}

func (t *Tree) add(r Record) Handle {
	t.records = append(t.records, r)
	return Handle(len(t.records) - 1)
}

// Len returns the number of records, including the synthetic root.
func (t *Tree) Len() int { return len(t.records) }

// Root returns the synthetic root node.
func (t *Tree) Root() Node { return Node{t: t, h: 0} }

// Node returns a view of the record at h. Invalid handles yield an empty node.
func (t *Tree) Node(h Handle) Node {
	if h < 0 || int(h) >= len(t.records) {
		return Node{t: t, h: NoHandle}
	}
	return Node{t: t, h: h}
}

// Node is a cheap value view of a record. The zero Node and nodes for
// missing children are valid receivers: they report no name, properties
// or children, which lets lookups chain without nil checks.
type Node struct {
	t *Tree
	h Handle
}

// Valid reports whether the node refers to a record.
func (n Node) Valid() bool { return n.t != nil && n.h != NoHandle }

// Handle returns the node's handle in its tree.
func (n Node) Handle() Handle {
	if n.t == nil {
		return NoHandle
	}
	return n.h
}

func (n Node) record() *Record {
	if !n.Valid() {
		return nil
	}
	return &n.t.records[n.h]
}

func (n Node) Name() string {
	if r := n.record(); r != nil {
		return r.Name
	}
	return ""
}

// ID returns the object ID, or 0 if the record is not an object.
func (n Node) ID() int64 {
	if r := n.record(); r != nil {
		return r.ID
	}
	return 0
}

// Offset returns the byte offset of the record header.
func (n Node) Offset() int64 {
	if r := n.record(); r != nil {
		return r.Offset
	}
	return -1
}

func (n Node) Props() []Property {
	if r := n.record(); r != nil {
		return r.Props
	}
	return nil
}

// Prop returns property i. Out-of-range indices yield a zero Property,
// whose accessors all fail with ErrPropertyType.
func (n Node) Prop(i int) Property {
	props := n.Props()
	if i < 0 || i >= len(props) {
		return Property{}
	}
	return props[i]
}

// PropString returns property i as a string, or "" if it is not one.
func (n Node) PropString(i int) string {
	s, _ := n.Prop(i).AsString()
	return s
}

func (n Node) Children() []Node {
	r := n.record()
	if r == nil {
		return nil
	}
	out := make([]Node, len(r.Children))
	for i, h := range r.Children {
		out[i] = Node{t: n.t, h: h}
	}
	return out
}

// Child returns the first child with the given name.
func (n Node) Child(name string) Node {
	r := n.record()
	if r == nil {
		return Node{t: n.t, h: NoHandle}
	}
	for _, h := range r.Children {
		if n.t.records[h].Name == name {
			return Node{t: n.t, h: h}
		}
	}
	return Node{t: n.t, h: NoHandle}
}

// ChildrenNamed returns all children with the given name, in file order.
func (n Node) ChildrenNamed(name string) []Node {
	r := n.record()
	if r == nil {
		return nil
	}
	var out []Node
	for _, h := range r.Children {
		if n.t.records[h].Name == name {
			out = append(out, Node{t: n.t, h: h})
		}
	}
	return out
}

// ObjectName returns the display name of an object record. Object names
// are stored as "Name\x00\x01Class"; only the first part is returned.
func (n Node) ObjectName() string {
	s := n.PropString(1)
	for i := 0; i+1 < len(s); i++ {
		if s[i] == 0 && s[i+1] == 1 {
			return s[:i]
		}
	}
	return s
}

// Kind returns the object subclass, e.g. "LimbNode" for a Model or
// "Cluster" for a Deformer.
func (n Node) Kind() string {
	return n.PropString(2)
}
