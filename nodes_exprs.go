package arbor

import "fmt"

// Name is a load occurrence of an identifier.
type Name struct {
	baseNode
	Name string
}

func (n *Name) Children() []Node { return nil }
func (n *Name) String() string   { return fmt.Sprintf("Name(%s)", n.Name) }

// AssignName is a binding occurrence of an identifier (assignment target,
// for target, with target, parameter, except binding).
type AssignName struct {
	baseNode
	Name string
}

func (n *AssignName) Children() []Node { return nil }

// Attribute is a load occurrence of `expr.attr`.
type Attribute struct {
	baseNode
	Expr Node
	Attr string
}

func (n *Attribute) Children() []Node { return appendNode(nil, n.Expr) }
func (n *Attribute) String() string   { return fmt.Sprintf("Attribute(%s)", n.Attr) }

// AssignAttr is a binding occurrence of `expr.attr`.
type AssignAttr struct {
	baseNode
	Expr Node
	Attr string
}

func (n *AssignAttr) Children() []Node { return appendNode(nil, n.Expr) }

// Call is a call expression.
type Call struct {
	baseNode
	Func     Node
	Args     []Node
	Keywords []*Keyword
}

func (n *Call) Children() []Node {
	out := appendNode(nil, n.Func)
	out = append(out, n.Args...)
	for _, k := range n.Keywords {
		out = append(out, k)
	}
	return out
}

// Keyword is one `name=value` call argument.
type Keyword struct {
	baseNode
	Name  string
	Value Node
}

func (n *Keyword) Children() []Node { return appendNode(nil, n.Value) }

// Const is a literal constant: string, bytes, int or float. None, True and
// False are not Consts; the builder routes them through the constant
// transform tables to NoneConst/BoolConst so attribute lookups on them use
// the proxy fallback rules.
type Const struct {
	baseNode
	Value any
}

func (n *Const) Children() []Node { return nil }
func (n *Const) String() string   { return fmt.Sprintf("Const(%v)", n.Value) }

// NoneConst is the dedicated node for the None literal.
type NoneConst struct {
	baseNode
}

func (n *NoneConst) Children() []Node { return nil }
func (n *NoneConst) String() string   { return "None" }

// BoolConst is the dedicated node for True/False literals.
type BoolConst struct {
	baseNode
	Value bool
}

func (n *BoolConst) Children() []Node { return nil }
func (n *BoolConst) String() string   { return fmt.Sprintf("%v", n.Value) }

// Tuple, List and Dict are container literals. Tuple doubles as the
// unpacking pattern on assignment and for targets.
type Tuple struct {
	baseNode
	Elts []Node
}

func (n *Tuple) Children() []Node { return append([]Node(nil), n.Elts...) }

type List struct {
	baseNode
	Elts []Node
}

func (n *List) Children() []Node { return append([]Node(nil), n.Elts...) }

// DictItem is one key/value pair of a Dict.
type DictItem struct {
	Key   Node
	Value Node
}

type Dict struct {
	baseNode
	Items []DictItem
}

func (n *Dict) Children() []Node {
	var out []Node
	for _, it := range n.Items {
		out = appendNode(out, it.Key)
		out = appendNode(out, it.Value)
	}
	return out
}

// Subscript is `expr[index]`.
type Subscript struct {
	baseNode
	Expr  Node
	Index Node
}

func (n *Subscript) Children() []Node {
	return appendNode(appendNode(nil, n.Expr), n.Index)
}

// BinOp is a binary arithmetic/bitwise expression.
type BinOp struct {
	baseNode
	Left  Node
	Op    string
	Right Node
}

func (n *BinOp) Children() []Node {
	return appendNode(appendNode(nil, n.Left), n.Right)
}

// BoolOp is an and/or chain.
type BoolOp struct {
	baseNode
	Op     string
	Values []Node
}

func (n *BoolOp) Children() []Node { return append([]Node(nil), n.Values...) }

// UnaryOp is a unary expression.
type UnaryOp struct {
	baseNode
	Op      string
	Operand Node
}

func (n *UnaryOp) Children() []Node { return appendNode(nil, n.Operand) }

// Compare is a comparison chain.
type Compare struct {
	baseNode
	Left Node
	Ops  []CompareOp
}

// CompareOp is one `op expr` link of a comparison chain.
type CompareOp struct {
	Op   string
	Expr Node
}

func (n *Compare) Children() []Node {
	out := appendNode(nil, n.Left)
	for _, op := range n.Ops {
		out = appendNode(out, op.Expr)
	}
	return out
}

// Arguments is a function's formal parameter list. Defaults align with the
// tail of Names.
type Arguments struct {
	baseNode
	Names    []string
	Defaults []Node
	Vararg   string
	Kwarg    string
}

func (n *Arguments) Children() []Node { return append([]Node(nil), n.Defaults...) }

// Lambda opens a scope but is not a frame.
type Lambda struct {
	baseNode
	localTable
	Args *Arguments
	Body Node
}

func (n *Lambda) Children() []Node {
	var out []Node
	if n.Args != nil {
		out = append(out, n.Args)
	}
	return appendNode(out, n.Body)
}

func (*Lambda) scopeNode() {}

// Comprehension is one `for target in iter [if cond]*` clause of a GenExp.
type Comprehension struct {
	Target Node
	Iter   Node
	Ifs    []Node
}

// GenExp is a generator expression. Like Lambda it opens a scope but is
// not a frame.
type GenExp struct {
	baseNode
	localTable
	Elt   Node
	Comps []Comprehension
}

func (n *GenExp) Children() []Node {
	out := appendNode(nil, n.Elt)
	for _, c := range n.Comps {
		out = appendNode(out, c.Target)
		out = appendNode(out, c.Iter)
		out = append(out, c.Ifs...)
	}
	return out
}

func (*GenExp) scopeNode() {}

// Yield is a yield expression; Value is nil for a bare yield. Its presence
// anywhere in a function body (own scope only) marks the function as a
// generator.
type Yield struct {
	baseNode
	Value Node
}

func (n *Yield) Children() []Node { return appendNode(nil, n.Value) }

// OpaqueExpr stands in for any construct the builder does not model. It
// infers to Unknown, which keeps unhandled syntax from failing whole
// queries.
type OpaqueExpr struct {
	baseNode
	Kind string
}

func (n *OpaqueExpr) Children() []Node { return nil }
func (n *OpaqueExpr) String() string   { return fmt.Sprintf("OpaqueExpr(%s)", n.Kind) }
