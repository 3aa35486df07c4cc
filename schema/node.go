package schema

import (
	"fmt"
	"strconv"
)

// ID is a node identity. It is assigned once by the owning Graph, never
// reassigned, and is the join key across backends and placeholders. Zero
// means "no node".
type ID uint32

func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Target names a backend. Exports and their hooks are keyed by it.
type Target string

// Hook runs at a pipeline phase for one node.
type Hook func(g *Graph, n *Node) error

// ExportHook runs once per export when the node becomes a standalone symbol
// for a target. It may read and override the export's derived attributes.
type ExportHook func(g *Graph, n *Node, x *Export) error

// Export is one standalone emission of a node by one backend in one run.
// Its attributes hold derived values such as the output path; they live only
// as long as the export, so separate runs and separate export names never
// observe each other's values.
type Export struct {
	Target Target
	Name   string
	attrs  map[string]string
}

// NewExport returns an export of name for target with the given defaults.
func NewExport(target Target, name string, defaults map[string]string) *Export {
	x := &Export{Target: target, Name: name, attrs: map[string]string{}}
	for k, v := range defaults {
		x.attrs[k] = v
	}
	return x
}

// Attr returns a derived value.
func (x *Export) Attr(key string) (string, bool) {
	v, ok := x.attrs[key]
	return v, ok
}

// SetAttr overrides a derived value.
func (x *Export) SetAttr(key, value string) {
	if x.attrs == nil {
		x.attrs = map[string]string{}
	}
	x.attrs[key] = value
}

// Node is one schema construct. Shape (kind, children, options, meta) is
// mutable only until the node is frozen by Graph.Load.
type Node struct {
	id       ID
	kind     Kind
	children []ID
	opts     any
	meta     Meta
	name     string
	hint     string

	onLoad     []Hook
	onExport   []ExportHook
	onGenerate []Hook
	lazy       func() *Node

	loaded bool
}

func (n *Node) ID() ID { return n.id }
func (n *Node) Kind() Kind { return n.kind }
func (n *Node) Name() string { return n.name }

// Hint is the name derived from the declaring property during the Load that
// froze the node; empty when that walk did not reach it through an object
// property.
func (n *Node) Hint() string { return n.hint }

// Commutative reports whether the node is an optional/nullable/ref wrapper.
func (n *Node) Commutative() bool { return n.kind.Commutative() }

// Children returns child identities in order. The slice must not be modified.
func (n *Node) Children() []ID { return n.children }

// Options returns the kind-specific options value (nil when none).
func (n *Node) Options() any { return n.opts }

// Meta returns the node annotations. Callers must not mutate the result
// after Load.
func (n *Node) Meta() *Meta { return &n.meta }

// Loaded reports whether Load has frozen the node.
func (n *Node) Loaded() bool { return n.loaded }

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.name != "" {
		return fmt.Sprintf("%s#%d(%s)", n.kind, n.id, n.name)
	}
	return fmt.Sprintf("%s#%d", n.kind, n.id)
}

func (n *Node) mustMutable() {
	if n.loaded {
		panic(fmt.Sprintf("schema: node %d is frozen", n.id))
	}
}

// SetName assigns the human name. It panics after Load.
func (n *Node) SetName(name string) *Node { n.mustMutable(); n.name = name; return n }

// SetOptions replaces the kind options. It panics after Load.
func (n *Node) SetOptions(opts any) *Node { n.mustMutable(); n.opts = opts; return n }

// UpdateMeta applies fn to the annotations. It panics after Load.
func (n *Node) UpdateMeta(fn func(m *Meta)) *Node { n.mustMutable(); fn(&n.meta); return n }

// OnLoad appends a hook fired once, the first time a Load walk reaches n.
func (n *Node) OnLoad(h Hook) *Node { n.mustMutable(); n.onLoad = append(n.onLoad, h); return n }

// OnExport appends a hook fired for every export of n.
func (n *Node) OnExport(h ExportHook) *Node {
	n.mustMutable()
	n.onExport = append(n.onExport, h)
	return n
}

// OnGenerate appends a hook fired whenever a synthetic value is built for n.
func (n *Node) OnGenerate(h Hook) *Node {
	n.mustMutable()
	n.onGenerate = append(n.onGenerate, h)
	return n
}

// SetLazy installs a thunk resolving the sole child of a ref node on Load.
func (n *Node) SetLazy(fn func() *Node) *Node { n.mustMutable(); n.lazy = fn; return n }

// typed option accessors; absent options yield the zero value.

func (n *Node) StringOptions() StringOptions { o, _ := n.opts.(StringOptions); return o }
func (n *Node) NumberOptions() NumberOptions { o, _ := n.opts.(NumberOptions); return o }
func (n *Node) ObjectOptions() ObjectOptions { o, _ := n.opts.(ObjectOptions); return o }
func (n *Node) ArrayOptions() ArrayOptions { o, _ := n.opts.(ArrayOptions); return o }
func (n *Node) TupleOptions() TupleOptions { o, _ := n.opts.(TupleOptions); return o }
func (n *Node) RecordOptions() RecordOptions { o, _ := n.opts.(RecordOptions); return o }
func (n *Node) UnionOptions() UnionOptions { o, _ := n.opts.(UnionOptions); return o }
func (n *Node) EnumOptions() EnumOptions { o, _ := n.opts.(EnumOptions); return o }
func (n *Node) ConstOptions() ConstOptions { o, _ := n.opts.(ConstOptions); return o }
func (n *Node) ValidatorOptions() ValidatorOptions { o, _ := n.opts.(ValidatorOptions); return o }
func (n *Node) CustomOptions() CustomOptions { o, _ := n.opts.(CustomOptions); return o }
