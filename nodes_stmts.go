package arbor

import (
	"fmt"
	"strings"
)

// ModuleResolver maps an importable module name to its built tree. The
// Engine installs one on every root Module it owns so Import/ImportFrom
// inference can cross file boundaries within the indexed set.
type ModuleResolver interface {
	ResolveModule(name string) *Module
}

// Module is the tree root.
type Module struct {
	baseNode
	localTable
	Name string
	Path string
	Body *Block

	resolver ModuleResolver
}

func (m *Module) Children() []Node { return blockChild(m.Body) }
func (*Module) scopeNode()         {}
func (*Module) frameNode()         {}

// SetResolver installs the cross-module import resolver. Engine use only.
func (m *Module) SetResolver(r ModuleResolver) { m.resolver = r }

func (m *Module) String() string { return fmt.Sprintf("Module(%s)", m.Name) }

// Block is the suite container: an ordered run of statements forming one
// body of a compound statement (or the module body). It is not itself a
// statement, which keeps sibling queries branch-local.
type Block struct {
	baseNode
	Stmts []Node
}

func (b *Block) Children() []Node { return append([]Node(nil), b.Stmts...) }

// FunctionDef is a def statement. Kind is one of "function", "method",
// "staticmethod", "classmethod" and is fixed by the builder from the
// definition site and its decorators.
type FunctionDef struct {
	stmtNode
	localTable
	Name        string
	Args        *Arguments
	Body        *Block
	Decorators  []Node
	Kind        string
	IsGenerator bool
}

func (f *FunctionDef) Children() []Node {
	var out []Node
	out = append(out, f.Decorators...)
	if f.Args != nil {
		out = append(out, f.Args)
	}
	out = append(out, blockChild(f.Body)...)
	return out
}

func (*FunctionDef) scopeNode() {}
func (*FunctionDef) frameNode() {}

func (f *FunctionDef) String() string { return fmt.Sprintf("FunctionDef(%s)", f.Name) }

// ClassDef is a class statement. InstanceAttrs maps attribute names bound
// on self inside the class's methods to the binding statements; it backs
// the instance side of attribute lookup.
type ClassDef struct {
	stmtNode
	localTable
	Name          string
	Bases         []Node
	Body          *Block
	Decorators    []Node
	InstanceAttrs map[string][]Node
}

func (c *ClassDef) Children() []Node {
	var out []Node
	out = append(out, c.Decorators...)
	out = append(out, c.Bases...)
	out = append(out, blockChild(c.Body)...)
	return out
}

func (*ClassDef) scopeNode() {}
func (*ClassDef) frameNode() {}

func (c *ClassDef) addInstanceAttr(name string, stmt Node) {
	if c.InstanceAttrs == nil {
		c.InstanceAttrs = make(map[string][]Node)
	}
	c.InstanceAttrs[name] = append(c.InstanceAttrs[name], stmt)
}

func (c *ClassDef) String() string { return fmt.Sprintf("ClassDef(%s)", c.Name) }

// Assign is an assignment statement. Targets holds one entry per `=` on
// the left (chained assignment), each an AssignName, AssignAttr, Subscript
// or Tuple/List pattern.
type Assign struct {
	stmtNode
	Targets []Node
	Value   Node
}

func (a *Assign) Children() []Node {
	out := append([]Node(nil), a.Targets...)
	return appendNode(out, a.Value)
}

// AugAssign is an augmented assignment (x += 1).
type AugAssign struct {
	stmtNode
	Target Node
	Op     string
	Value  Node
}

func (a *AugAssign) Children() []Node {
	return appendNode(appendNode(nil, a.Target), a.Value)
}

// ExprStmt is a bare expression used as a statement.
type ExprStmt struct {
	stmtNode
	Value Node
}

func (e *ExprStmt) Children() []Node { return appendNode(nil, e.Value) }

// Return is a return statement; Value is nil for a bare return.
type Return struct {
	stmtNode
	Value Node
}

func (r *Return) Children() []Node { return appendNode(nil, r.Value) }

// IfBranch is one (condition, body) arm of an if/elif chain.
type IfBranch struct {
	Cond Node
	Body *Block
}

// If is an if statement with its elif arms flattened into Branches.
type If struct {
	stmtNode
	Branches []IfBranch
	Else     *Block
}

func (n *If) Children() []Node {
	var out []Node
	for _, br := range n.Branches {
		out = appendNode(out, br.Cond)
		out = append(out, blockChild(br.Body)...)
	}
	out = append(out, blockChild(n.Else)...)
	return out
}

// For is a for loop; Target receives the iteration variable bindings.
type For struct {
	stmtNode
	Target Node
	Iter   Node
	Body   *Block
	Else   *Block
}

func (n *For) Children() []Node {
	out := appendNode(appendNode(nil, n.Target), n.Iter)
	out = append(out, blockChild(n.Body)...)
	out = append(out, blockChild(n.Else)...)
	return out
}

// While is a while loop.
type While struct {
	stmtNode
	Cond Node
	Body *Block
	Else *Block
}

func (n *While) Children() []Node {
	out := appendNode(nil, n.Cond)
	out = append(out, blockChild(n.Body)...)
	out = append(out, blockChild(n.Else)...)
	return out
}

// ExceptClause is one except arm of a TryExcept. Type is the guard
// expression (nil for a bare except), Name the `as` binding ("" if none).
type ExceptClause struct {
	baseNode
	Type Node
	Name string
	Body *Block
}

func (h *ExceptClause) Children() []Node {
	return append(appendNode(nil, h.Type), blockChild(h.Body)...)
}

// TryExcept is a try statement with except arms. A trailing finally is
// represented by nesting the TryExcept inside a TryFinally.
type TryExcept struct {
	stmtNode
	Body     *Block
	Handlers []*ExceptClause
	Else     *Block
}

func (n *TryExcept) Children() []Node {
	out := blockChild(n.Body)
	for _, h := range n.Handlers {
		out = append(out, h)
	}
	out = append(out, blockChild(n.Else)...)
	return out
}

// TryFinally is a try statement with a finally suite.
type TryFinally struct {
	stmtNode
	Body  *Block
	Final *Block
}

func (n *TryFinally) Children() []Node {
	return append(blockChild(n.Body), blockChild(n.Final)...)
}

// With is a with statement. Items pairs each context expression with its
// optional `as` target (nil target when absent).
type With struct {
	stmtNode
	Items []WithItem
	Body  *Block
}

// WithItem is one `expr as target` clause of a With.
type WithItem struct {
	Expr   Node
	Target Node
}

func (n *With) Children() []Node {
	var out []Node
	for _, it := range n.Items {
		out = appendNode(out, it.Expr)
		out = appendNode(out, it.Target)
	}
	return append(out, blockChild(n.Body)...)
}

// ImportName is one imported (name, asname) pair; asname is "" when the
// import is not aliased.
type ImportName struct {
	Name   string
	AsName string
}

// Import is an `import a, b as c` statement.
type Import struct {
	stmtNode
	Names []ImportName
}

func (n *Import) Children() []Node { return nil }

// ImportFrom is a `from mod import a, b as c` statement. A wildcard import
// is a single name "*".
type ImportFrom struct {
	stmtNode
	Module string
	Names  []ImportName
}

func (n *ImportFrom) Children() []Node { return nil }

// RealName maps a locally visible alias back to the imported name, e.g.
// "c" -> "b" for `import b as c`. Fails with ErrNotFound when the alias is
// not introduced by this statement; a wildcard matches any alias.
func RealName(names []ImportName, asname string) (string, error) {
	for _, in := range names {
		name := in.Name
		if name == "*" {
			return asname, nil
		}
		local := in.AsName
		if local == "" {
			// `import a.b` binds the top-level package name.
			name, _, _ = strings.Cut(name, ".")
			local = name
		}
		if local == asname {
			return name, nil
		}
	}
	return "", fmt.Errorf("real name of %q: %w", asname, ErrNotFound)
}

// Global is a global statement.
type Global struct {
	stmtNode
	Names []string
}

func (n *Global) Children() []Node { return nil }

// Raise is a raise statement; all expression slots may be nil.
type Raise struct {
	stmtNode
	Exc   Node
	Cause Node
}

func (n *Raise) Children() []Node {
	return appendNode(appendNode(nil, n.Exc), n.Cause)
}

// Assert is an assert statement; Msg may be nil.
type Assert struct {
	stmtNode
	Test Node
	Msg  Node
}

func (n *Assert) Children() []Node {
	return appendNode(appendNode(nil, n.Test), n.Msg)
}

// Delete is a del statement.
type Delete struct {
	stmtNode
	Targets []Node
}

func (n *Delete) Children() []Node { return append([]Node(nil), n.Targets...) }

// Pass, Break and Continue are bodyless statements.
type Pass struct{ stmtNode }
type Break struct{ stmtNode }
type Continue struct{ stmtNode }

func (*Pass) Children() []Node     { return nil }
func (*Break) Children() []Node    { return nil }
func (*Continue) Children() []Node { return nil }

func blockChild(b *Block) []Node {
	if b == nil {
		return nil
	}
	return []Node{b}
}

func appendNode(out []Node, n Node) []Node {
	if n == nil {
		return out
	}
	return append(out, n)
}
