package arbor

// CallContext carries bound call-argument information through a call
// resolution. Opaque to the inference core.
type CallContext struct {
	Args     []Node
	Keywords []*Keyword
}

// pathEntry is one visited (node, lookup name) pair.
type pathEntry struct {
	node Node
	name string
}

// InferenceContext carries the visited-path cycle guard and the current
// lookup name across one resolution chain. Contexts are cheap values:
// Clone copies the per-branch fields while sharing the visited path, so a
// sub-resolution may vary its lookup name without losing cycle detection
// for the chain as a whole.
type InferenceContext struct {
	// Start is the node the resolution chain began from. Informational.
	Start Node

	// LookupName is the identifier currently being resolved; "" when the
	// resolution is not name-driven.
	LookupName string

	CallContext *CallContext

	// BoundNode is the receiver for a bound-method resolution.
	BoundNode Value

	// path is shared by every clone in the chain.
	path *[]pathEntry
}

// NewContext returns a context rooted at start (which may be nil).
func NewContext(start Node) *InferenceContext {
	path := make([]pathEntry, 0, 8)
	return &InferenceContext{Start: start, path: &path}
}

// Push records (n, LookupName) as visited and reports true. If the pair is
// already on the path the recursion must not be entered: Push reports
// false and the caller yields nothing for that branch. This is the sole
// guarantee of termination on cyclic reference graphs.
func (c *InferenceContext) Push(n Node) bool {
	for _, e := range *c.path {
		if e.node == n && e.name == c.LookupName {
			return false
		}
	}
	*c.path = append(*c.path, pathEntry{node: n, name: c.LookupName})
	return true
}

// Pop removes the most recently pushed pair. Paired with a successful Push
// when the recursion frame returns.
func (c *InferenceContext) Pop() {
	p := *c.path
	if len(p) > 0 {
		*c.path = p[:len(p)-1]
	}
}

// Clone returns an independent context sharing the visited path.
func (c *InferenceContext) Clone() *InferenceContext {
	cp := *c
	return &cp
}
