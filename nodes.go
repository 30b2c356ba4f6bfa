package arbor

import (
	"fmt"
	"iter"
)

// Value is anything inference can produce: a syntax node, a runtime proxy
// (Instance, BoundMethod, Generator), or the Unknown sentinel.
type Value interface {
	// Infer produces the candidate resolved values for this value. A yielded
	// (v, nil) pair is a result; a yielded (nil, err) pair is a typed failure
	// (see errors.go). The sequence is lazy: the consumer may stop at any
	// point with no side effects.
	Infer(ctx *InferenceContext) iter.Seq2[Value, error]
}

// Node is one element of the owned Python syntax tree. Concrete kinds live
// in nodes_stmts.go and nodes_exprs.go; the set is closed: new kinds are
// added by extending the variant and every place that matches over it.
type Node interface {
	Value

	// Parent is the non-owning back-reference to the exclusive owner.
	// Nil only for the tree root (a *Module).
	Parent() Node

	// Children returns the node's owned children in source order. Each call
	// builds a fresh slice; callers may not mutate the tree through it.
	Children() []Node

	// IsStatement reports whether the node is a top-level executable unit
	// within a block. Fixed per kind.
	IsStatement() bool

	// FromLine and ToLine are 1-based line metadata populated by the builder.
	FromLine() int
	ToLine() int

	base() *baseNode
}

// baseNode carries the attributes common to every node kind. Concrete kinds
// embed it (or stmtNode) and the builder populates parent and lines.
type baseNode struct {
	parent   Node
	fromLine int
	toLine   int

	// lastLine memoizes LastLine; 0 means not yet computed.
	lastLine int
}

func (b *baseNode) Parent() Node      { return b.parent }
func (b *baseNode) FromLine() int     { return b.fromLine }
func (b *baseNode) ToLine() int       { return b.toLine }
func (b *baseNode) IsStatement() bool { return false }
func (b *baseNode) base() *baseNode   { return b }

// SetParent records the owning parent. Builder use only; the tree is
// immutable once built.
func (b *baseNode) SetParent(p Node) { b.parent = p }

// SetLines records the node's source line span. Builder use only.
func (b *baseNode) SetLines(from, to int) {
	b.fromLine = from
	b.toLine = to
}

// stmtNode is the base for statement kinds.
type stmtNode struct {
	baseNode
}

func (*stmtNode) IsStatement() bool { return true }

// localTable is the local-binding table owned by scope-opening node kinds.
// It maps an identifier to the statements that bind it, in registration
// order. Append-only, written exclusively during tree construction.
type localTable struct {
	locals map[string][]Node
}

// Locals returns the binding table, never nil.
func (t *localTable) Locals() map[string][]Node {
	if t.locals == nil {
		t.locals = make(map[string][]Node)
	}
	return t.locals
}

func (t *localTable) addLocal(name string, stmt Node) {
	if t.locals == nil {
		t.locals = make(map[string][]Node)
	}
	t.locals[name] = append(t.locals[name], stmt)
}

// Scope is a node kind that opens a lexical scope and owns a local-binding
// table: Module, ClassDef, FunctionDef, Lambda, GenExp.
type Scope interface {
	Node
	Locals() map[string][]Node
	addLocal(name string, stmt Node)
	scopeNode()
}

// Frame is the Scope subset used as the target of name-binding
// registration: Module, ClassDef, FunctionDef.
type Frame interface {
	Scope
	frameNode()
}

// Root walks parent links to the tree root (a *Module for built trees).
func Root(n Node) Node {
	for n.Parent() != nil {
		n = n.Parent()
	}
	return n
}

// ParentOf reports whether n appears in other's parent chain.
func ParentOf(n, other Node) bool {
	for p := other.Parent(); p != nil; p = p.Parent() {
		if p == n {
			return true
		}
	}
	return false
}

// StatementOf returns n itself if n is a statement, else the nearest
// statement ancestor. Built trees guarantee a statement ancestor for every
// non-root node; reaching the root without one is a precondition violation.
func StatementOf(n Node) (Node, error) {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.IsStatement() {
			return cur, nil
		}
	}
	return nil, fmt.Errorf("node at line %d has no statement ancestor", n.FromLine())
}

// FrameOf returns the nearest enclosing frame, inclusive of n itself when n
// is a frame kind. Nil only for detached fragments.
func FrameOf(n Node) Frame {
	for cur := n; cur != nil; cur = cur.Parent() {
		if f, ok := cur.(Frame); ok {
			return f
		}
	}
	return nil
}

// ScopeOf is FrameOf over the broader scope set, which additionally
// includes Lambda and GenExp.
func ScopeOf(n Node) Scope {
	for cur := n; cur != nil; cur = cur.Parent() {
		if s, ok := cur.(Scope); ok {
			return s
		}
	}
	return nil
}

// SetLocal registers stmt as a binding of name in the nearest enclosing
// frame, inclusive of n itself. Builder use only: this is the single
// mutation path for local-binding tables and must never run during
// inference.
func SetLocal(n Node, name string, stmt Node) {
	if f := FrameOf(n); f != nil {
		f.addLocal(name, stmt)
	}
}

// NextSibling returns the statement following n's enclosing statement in
// its block, or nil at the end of the block.
func NextSibling(n Node) Node {
	return sibling(n, +1)
}

// PreviousSibling returns the statement preceding n's enclosing statement
// in its block, or nil at the start of the block.
func PreviousSibling(n Node) Node {
	return sibling(n, -1)
}

func sibling(n Node, offset int) Node {
	stmt, err := StatementOf(n)
	if err != nil {
		return nil
	}
	parent := stmt.Parent()
	if parent == nil {
		return nil
	}
	var stmts []Node
	for _, c := range parent.Children() {
		if c.IsStatement() {
			stmts = append(stmts, c)
		}
	}
	for i, s := range stmts {
		if s == stmt {
			j := i + offset
			if j < 0 || j >= len(stmts) {
				return nil
			}
			return stmts[j]
		}
	}
	return nil
}

// Nearest returns the candidate with the greatest source line not exceeding
// n's own line, or nil if none qualifies. Candidates must belong to the
// same tree as n and be supplied in non-decreasing line order: the scan
// stops at the first candidate past n's line.
func Nearest(n Node, candidates []Node) Node {
	line := n.FromLine()
	var best Node
	bestLine := 0
	for _, c := range candidates {
		cl := c.FromLine()
		if cl > line {
			break
		}
		if cl > bestLine {
			best, bestLine = c, cl
		}
	}
	return best
}

// LastLine returns the last source line covered by n, i.e. the maximum of
// n's own lines and the recursively computed last line of every child.
// Memoized per node: compound statements' line metadata is not contiguous,
// so the span must be derived once and cached.
func LastLine(n Node) int {
	b := n.base()
	if b.lastLine != 0 {
		return b.lastLine
	}
	last := b.fromLine
	if b.toLine > last {
		last = b.toLine
	}
	for _, c := range n.Children() {
		if l := LastLine(c); l > last {
			last = l
		}
	}
	b.lastLine = last
	return last
}

// Find yields n and its descendants depth-first in pre-order, filtered by
// match. When skip is non-nil, a descendant matching skip is still yielded
// (if it matches) but its subtree is not entered. Each call is an
// independent traversal and the consumer may stop early.
func Find(n Node, match, skip func(Node) bool) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		findWalk(n, match, skip, yield, true)
	}
}

func findWalk(n Node, match, skip func(Node) bool, yield func(Node) bool, root bool) bool {
	if match(n) && !yield(n) {
		return false
	}
	if !root && skip != nil && skip(n) {
		return true
	}
	for _, c := range n.Children() {
		if !findWalk(c, match, skip, yield, false) {
			return false
		}
	}
	return true
}

// OfType returns a predicate matching nodes of the given concrete kind,
// for use with Find.
func OfType[T Node]() func(Node) bool {
	return func(n Node) bool {
		_, ok := n.(T)
		return ok
	}
}
