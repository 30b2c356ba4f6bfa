package arbor

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Builder converts a tree-sitter Python parse into an arbor tree: it owns
// node construction, parent links, line metadata, local-binding
// registration and the per-function classification (method kind, generator
// flag). Inference never mutates what the builder produced.
type Builder struct{}

// NewBuilder returns a Builder. Builders are stateless and safe to reuse.
func NewBuilder() *Builder { return &Builder{} }

// BuildSource parses src with tree-sitter and builds the module tree.
// name becomes the module's importable name; path is recorded verbatim.
func (b *Builder) BuildSource(ctx context.Context, src []byte, path string) (*Module, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("build %s: parse: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("build %s: empty parse tree", path)
	}

	bs := &buildState{src: src}
	mod := &Module{
		Name: moduleName(path),
		Path: path,
	}
	bs.pos(mod, root)
	mod.Body = bs.block(root)

	setParents(mod)
	registerBindings(mod)
	classifyFunctions(mod)
	return mod, nil
}

// moduleName derives the importable name from a file path.
func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type buildState struct {
	src []byte
}

func (b *buildState) text(ts *sitter.Node) string {
	return ts.Content(b.src)
}

// pos stamps 1-based line metadata from the tree-sitter span. A span ending
// at column zero ends at the end of the previous line, not on the row the
// parser reports, so the end row is pulled back.
func (b *buildState) pos(n Node, ts *sitter.Node) Node {
	start := int(ts.StartPoint().Row)
	end := int(ts.EndPoint().Row)
	if ts.EndPoint().Column == 0 && end > start {
		end--
	}
	n.base().SetLines(start+1, end+1)
	return n
}

// block converts a suite: a run of statement children.
func (b *buildState) block(ts *sitter.Node) *Block {
	blk := &Block{}
	b.pos(blk, ts)
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		child := ts.NamedChild(i)
		if s := b.stmt(child); s != nil {
			blk.Stmts = append(blk.Stmts, s)
		}
	}
	return blk
}

func (b *buildState) fieldBlock(ts *sitter.Node, field string) *Block {
	body := ts.ChildByFieldName(field)
	if body == nil {
		return &Block{}
	}
	return b.block(body)
}

// stmt converts one statement node; nil for comments and other
// non-statement children.
func (b *buildState) stmt(ts *sitter.Node) Node {
	switch ts.Type() {
	case "comment":
		return nil
	case "expression_statement":
		return b.exprStatement(ts)
	case "function_definition":
		return b.functionDef(ts, nil)
	case "class_definition":
		return b.classDef(ts, nil)
	case "decorated_definition":
		return b.decorated(ts)
	case "if_statement":
		return b.ifStmt(ts)
	case "for_statement":
		return b.forStmt(ts)
	case "while_statement":
		return b.whileStmt(ts)
	case "try_statement":
		return b.tryStmt(ts)
	case "with_statement":
		return b.withStmt(ts)
	case "import_statement", "future_import_statement":
		return b.importStmt(ts)
	case "import_from_statement":
		return b.importFromStmt(ts)
	case "global_statement", "nonlocal_statement":
		g := &Global{}
		for i := 0; i < int(ts.NamedChildCount()); i++ {
			g.Names = append(g.Names, b.text(ts.NamedChild(i)))
		}
		return b.pos(g, ts)
	case "return_statement":
		r := &Return{}
		if ts.NamedChildCount() > 0 {
			r.Value = b.expr(ts.NamedChild(0))
		}
		return b.pos(r, ts)
	case "raise_statement":
		r := &Raise{}
		if ts.NamedChildCount() > 0 {
			r.Exc = b.expr(ts.NamedChild(0))
		}
		if cause := ts.ChildByFieldName("cause"); cause != nil {
			r.Cause = b.expr(cause)
		}
		return b.pos(r, ts)
	case "assert_statement":
		a := &Assert{}
		if ts.NamedChildCount() > 0 {
			a.Test = b.expr(ts.NamedChild(0))
		}
		if ts.NamedChildCount() > 1 {
			a.Msg = b.expr(ts.NamedChild(1))
		}
		return b.pos(a, ts)
	case "delete_statement":
		d := &Delete{}
		for i := 0; i < int(ts.NamedChildCount()); i++ {
			d.Targets = append(d.Targets, b.expr(ts.NamedChild(i)))
		}
		return b.pos(d, ts)
	case "pass_statement":
		return b.pos(&Pass{}, ts)
	case "break_statement":
		return b.pos(&Break{}, ts)
	case "continue_statement":
		return b.pos(&Continue{}, ts)
	default:
		// Unmodelled statements still take a slot in the block so
		// sibling queries stay in source order.
		e := &ExprStmt{Value: b.opaque(ts)}
		return b.pos(e, ts)
	}
}

func (b *buildState) exprStatement(ts *sitter.Node) Node {
	if ts.NamedChildCount() == 0 {
		return b.pos(&ExprStmt{Value: b.opaque(ts)}, ts)
	}
	inner := ts.NamedChild(0)
	switch inner.Type() {
	case "assignment":
		return b.assignment(ts, inner)
	case "augmented_assignment":
		a := &AugAssign{
			Target: b.target(inner.ChildByFieldName("left")),
			Op:     opText(b, inner),
			Value:  b.expr(inner.ChildByFieldName("right")),
		}
		return b.pos(a, ts)
	default:
		e := &ExprStmt{Value: b.expr(inner)}
		return b.pos(e, ts)
	}
}

func (b *buildState) assignment(stmtTS, ts *sitter.Node) Node {
	a := &Assign{}
	b.pos(a, stmtTS)
	// Chained assignment nests: a = b = 1 parses with the inner
	// assignment as the right operand.
	cur := ts
	for cur != nil && cur.Type() == "assignment" {
		if left := cur.ChildByFieldName("left"); left != nil {
			a.Targets = append(a.Targets, b.target(left))
		}
		right := cur.ChildByFieldName("right")
		if right == nil {
			// Bare annotation (x: int) binds nothing inferable.
			a.Value = b.opaque(cur)
			return a
		}
		if right.Type() == "assignment" {
			cur = right
			continue
		}
		a.Value = b.expr(right)
		return a
	}
	return a
}

// target converts a binding-position expression.
func (b *buildState) target(ts *sitter.Node) Node {
	if ts == nil {
		return nil
	}
	switch ts.Type() {
	case "identifier":
		return b.pos(&AssignName{Name: b.text(ts)}, ts)
	case "attribute":
		t := &AssignAttr{Attr: b.text(ts.ChildByFieldName("attribute"))}
		t.Expr = b.expr(ts.ChildByFieldName("object"))
		return b.pos(t, ts)
	case "pattern_list", "tuple_pattern", "expression_list", "tuple":
		t := &Tuple{}
		for i := 0; i < int(ts.NamedChildCount()); i++ {
			t.Elts = append(t.Elts, b.target(ts.NamedChild(i)))
		}
		return b.pos(t, ts)
	case "list_pattern", "list":
		t := &List{}
		for i := 0; i < int(ts.NamedChildCount()); i++ {
			t.Elts = append(t.Elts, b.target(ts.NamedChild(i)))
		}
		return b.pos(t, ts)
	case "subscript":
		return b.expr(ts)
	default:
		return b.opaque(ts)
	}
}

func (b *buildState) decorated(ts *sitter.Node) Node {
	var decorators []Node
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		child := ts.NamedChild(i)
		if child.Type() == "decorator" {
			if child.NamedChildCount() > 0 {
				decorators = append(decorators, b.expr(child.NamedChild(0)))
			}
			continue
		}
		switch child.Type() {
		case "function_definition":
			return b.functionDef(child, decorators)
		case "class_definition":
			return b.classDef(child, decorators)
		}
	}
	return b.pos(&ExprStmt{Value: b.opaque(ts)}, ts)
}

func (b *buildState) functionDef(ts *sitter.Node, decorators []Node) Node {
	f := &FunctionDef{
		Name:       b.text(ts.ChildByFieldName("name")),
		Args:       b.parameters(ts.ChildByFieldName("parameters")),
		Decorators: decorators,
		Kind:       "function",
	}
	f.Body = b.fieldBlock(ts, "body")
	return b.pos(f, ts)
}

func (b *buildState) classDef(ts *sitter.Node, decorators []Node) Node {
	c := &ClassDef{
		Name:       b.text(ts.ChildByFieldName("name")),
		Decorators: decorators,
	}
	if supers := ts.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			arg := supers.NamedChild(i)
			if arg.Type() == "keyword_argument" {
				continue // metaclass= and friends
			}
			c.Bases = append(c.Bases, b.expr(arg))
		}
	}
	c.Body = b.fieldBlock(ts, "body")
	return b.pos(c, ts)
}

func (b *buildState) parameters(ts *sitter.Node) *Arguments {
	args := &Arguments{}
	if ts == nil {
		return args
	}
	b.pos(args, ts)
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		p := ts.NamedChild(i)
		switch p.Type() {
		case "identifier":
			args.Names = append(args.Names, b.text(p))
		case "typed_parameter":
			if p.NamedChildCount() > 0 {
				args.Names = append(args.Names, b.text(p.NamedChild(0)))
			}
		case "default_parameter", "typed_default_parameter":
			if name := p.ChildByFieldName("name"); name != nil {
				args.Names = append(args.Names, b.text(name))
			}
			if v := p.ChildByFieldName("value"); v != nil {
				args.Defaults = append(args.Defaults, b.expr(v))
			}
		case "list_splat_pattern":
			if p.NamedChildCount() > 0 {
				args.Vararg = b.text(p.NamedChild(0))
			}
		case "dictionary_splat_pattern":
			if p.NamedChildCount() > 0 {
				args.Kwarg = b.text(p.NamedChild(0))
			}
		}
	}
	return args
}

func (b *buildState) ifStmt(ts *sitter.Node) Node {
	n := &If{}
	n.Branches = append(n.Branches, IfBranch{
		Cond: b.expr(ts.ChildByFieldName("condition")),
		Body: b.fieldBlock(ts, "consequence"),
	})
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		alt := ts.NamedChild(i)
		switch alt.Type() {
		case "elif_clause":
			n.Branches = append(n.Branches, IfBranch{
				Cond: b.expr(alt.ChildByFieldName("condition")),
				Body: b.fieldBlock(alt, "consequence"),
			})
		case "else_clause":
			n.Else = b.fieldBlock(alt, "body")
		}
	}
	return b.pos(n, ts)
}

func (b *buildState) forStmt(ts *sitter.Node) Node {
	n := &For{
		Target: b.target(ts.ChildByFieldName("left")),
		Iter:   b.expr(ts.ChildByFieldName("right")),
		Body:   b.fieldBlock(ts, "body"),
	}
	if alt := ts.ChildByFieldName("alternative"); alt != nil {
		n.Else = b.fieldBlock(alt, "body")
	}
	return b.pos(n, ts)
}

func (b *buildState) whileStmt(ts *sitter.Node) Node {
	n := &While{
		Cond: b.expr(ts.ChildByFieldName("condition")),
		Body: b.fieldBlock(ts, "body"),
	}
	if alt := ts.ChildByFieldName("alternative"); alt != nil {
		n.Else = b.fieldBlock(alt, "body")
	}
	return b.pos(n, ts)
}

// tryStmt builds TryExcept and/or TryFinally. A try with both except arms
// and a finally nests the TryExcept inside the TryFinally, so each block
// query sees one statement kind.
func (b *buildState) tryStmt(ts *sitter.Node) Node {
	var handlers []*ExceptClause
	var elseBlock, finalBlock *Block
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		child := ts.NamedChild(i)
		switch child.Type() {
		case "except_clause":
			handlers = append(handlers, b.exceptClause(child))
		case "else_clause":
			elseBlock = b.fieldBlock(child, "body")
		case "finally_clause":
			if child.NamedChildCount() > 0 {
				finalBlock = b.block(child.NamedChild(int(child.NamedChildCount()) - 1))
			}
		}
	}
	body := b.fieldBlock(ts, "body")

	var inner Node
	if len(handlers) > 0 {
		te := &TryExcept{Body: body, Handlers: handlers, Else: elseBlock}
		b.pos(te, ts)
		inner = te
	}
	if finalBlock == nil {
		if inner != nil {
			return inner
		}
		return b.pos(&TryFinally{Body: body}, ts)
	}
	tf := &TryFinally{Final: finalBlock}
	if inner != nil {
		// The nested TryExcept must not span the finally suite.
		end := LastLine(body)
		for _, h := range handlers {
			if l := LastLine(h); l > end {
				end = l
			}
		}
		if elseBlock != nil {
			if l := LastLine(elseBlock); l > end {
				end = l
			}
		}
		inner.base().SetLines(inner.FromLine(), end)
		wrap := &Block{Stmts: []Node{inner}}
		wrap.SetLines(inner.FromLine(), end)
		tf.Body = wrap
	} else {
		tf.Body = body
	}
	return b.pos(tf, ts)
}

func (b *buildState) exceptClause(ts *sitter.Node) *ExceptClause {
	h := &ExceptClause{}
	b.pos(h, ts)
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		child := ts.NamedChild(i)
		switch {
		case child.Type() == "block":
			h.Body = b.block(child)
		case child.Type() == "as_pattern":
			// "except Boom as err" wraps guard and alias in one node.
			if v := child.NamedChild(0); v != nil {
				h.Type = b.expr(v)
			}
			if alias := child.ChildByFieldName("alias"); alias != nil {
				h.Name = b.text(namedLeaf(alias))
			}
		case h.Type == nil:
			h.Type = b.expr(child)
		case child.Type() == "identifier":
			h.Name = b.text(child)
		}
	}
	if h.Body == nil {
		h.Body = &Block{}
	}
	return h
}

func (b *buildState) withStmt(ts *sitter.Node) Node {
	n := &With{Body: b.fieldBlock(ts, "body")}
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		clause := ts.NamedChild(i)
		if clause.Type() != "with_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			item := clause.NamedChild(j)
			if item.Type() != "with_item" {
				continue
			}
			v := item.ChildByFieldName("value")
			if v == nil && item.NamedChildCount() > 0 {
				v = item.NamedChild(0)
			}
			if v == nil {
				continue
			}
			wi := WithItem{}
			if v.Type() == "as_pattern" {
				wi.Expr = b.expr(v.NamedChild(0))
				if alias := v.ChildByFieldName("alias"); alias != nil {
					wi.Target = b.target(namedLeaf(alias))
				}
			} else {
				wi.Expr = b.expr(v)
			}
			n.Items = append(n.Items, wi)
		}
	}
	return b.pos(n, ts)
}

// namedLeaf unwraps single-child wrappers like as_pattern_target.
func namedLeaf(ts *sitter.Node) *sitter.Node {
	for ts.NamedChildCount() == 1 && ts.Type() != "identifier" {
		ts = ts.NamedChild(0)
	}
	return ts
}

func (b *buildState) importStmt(ts *sitter.Node) Node {
	n := &Import{}
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		child := ts.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			n.Names = append(n.Names, ImportName{Name: b.text(child)})
		case "aliased_import":
			n.Names = append(n.Names, ImportName{
				Name:   b.text(child.ChildByFieldName("name")),
				AsName: b.text(child.ChildByFieldName("alias")),
			})
		}
	}
	return b.pos(n, ts)
}

func (b *buildState) importFromStmt(ts *sitter.Node) Node {
	n := &ImportFrom{}
	mod := ts.ChildByFieldName("module_name")
	if mod != nil {
		n.Module = strings.TrimLeft(b.text(mod), ".")
	}
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		child := ts.NamedChild(i)
		if mod != nil && child.StartByte() == mod.StartByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name", "identifier":
			n.Names = append(n.Names, ImportName{Name: b.text(child)})
		case "aliased_import":
			n.Names = append(n.Names, ImportName{
				Name:   b.text(child.ChildByFieldName("name")),
				AsName: b.text(child.ChildByFieldName("alias")),
			})
		case "wildcard_import":
			n.Names = append(n.Names, ImportName{Name: "*"})
		}
	}
	return b.pos(n, ts)
}

// expr converts an expression node. Constructs outside the modelled set
// become OpaqueExpr and infer to Unknown.
func (b *buildState) expr(ts *sitter.Node) Node {
	if ts == nil {
		return nil
	}
	switch ts.Type() {
	case "identifier":
		if c, ok := ConstForName(b.text(ts)); ok {
			return b.pos(c, ts)
		}
		return b.pos(&Name{Name: b.text(ts)}, ts)
	case "true":
		return b.pos(ConstForValue(true), ts)
	case "false":
		return b.pos(ConstForValue(false), ts)
	case "none":
		return b.pos(ConstForValue(nil), ts)
	case "integer":
		if v, err := strconv.ParseInt(b.text(ts), 0, 64); err == nil {
			return b.pos(&Const{Value: v}, ts)
		}
		return b.pos(&Const{Value: b.text(ts)}, ts)
	case "float":
		if v, err := strconv.ParseFloat(b.text(ts), 64); err == nil {
			return b.pos(&Const{Value: v}, ts)
		}
		return b.pos(&Const{Value: b.text(ts)}, ts)
	case "string", "concatenated_string":
		return b.pos(&Const{Value: stringValue(b.text(ts))}, ts)
	case "attribute":
		n := &Attribute{Attr: b.text(ts.ChildByFieldName("attribute"))}
		n.Expr = b.expr(ts.ChildByFieldName("object"))
		return b.pos(n, ts)
	case "call":
		return b.call(ts)
	case "subscript":
		n := &Subscript{
			Expr:  b.expr(ts.ChildByFieldName("value")),
			Index: b.expr(ts.ChildByFieldName("subscript")),
		}
		return b.pos(n, ts)
	case "binary_operator":
		n := &BinOp{
			Left:  b.expr(ts.ChildByFieldName("left")),
			Op:    opText(b, ts),
			Right: b.expr(ts.ChildByFieldName("right")),
		}
		return b.pos(n, ts)
	case "boolean_operator":
		n := &BoolOp{Op: opText(b, ts)}
		n.Values = append(n.Values,
			b.expr(ts.ChildByFieldName("left")),
			b.expr(ts.ChildByFieldName("right")))
		return b.pos(n, ts)
	case "not_operator":
		n := &UnaryOp{Op: "not", Operand: b.expr(ts.ChildByFieldName("argument"))}
		return b.pos(n, ts)
	case "unary_operator":
		n := &UnaryOp{Op: opText(b, ts), Operand: b.expr(ts.ChildByFieldName("argument"))}
		return b.pos(n, ts)
	case "comparison_operator":
		return b.comparison(ts)
	case "tuple", "expression_list":
		n := &Tuple{}
		for i := 0; i < int(ts.NamedChildCount()); i++ {
			n.Elts = append(n.Elts, b.expr(ts.NamedChild(i)))
		}
		return b.pos(n, ts)
	case "list":
		n := &List{}
		for i := 0; i < int(ts.NamedChildCount()); i++ {
			n.Elts = append(n.Elts, b.expr(ts.NamedChild(i)))
		}
		return b.pos(n, ts)
	case "dictionary":
		n := &Dict{}
		for i := 0; i < int(ts.NamedChildCount()); i++ {
			pair := ts.NamedChild(i)
			if pair.Type() != "pair" {
				continue
			}
			n.Items = append(n.Items, DictItem{
				Key:   b.expr(pair.ChildByFieldName("key")),
				Value: b.expr(pair.ChildByFieldName("value")),
			})
		}
		return b.pos(n, ts)
	case "lambda":
		n := &Lambda{
			Args: b.parameters(ts.ChildByFieldName("parameters")),
			Body: b.expr(ts.ChildByFieldName("body")),
		}
		return b.pos(n, ts)
	case "generator_expression":
		return b.genExp(ts)
	case "parenthesized_expression":
		if ts.NamedChildCount() > 0 {
			return b.expr(ts.NamedChild(0))
		}
		return b.opaque(ts)
	case "yield":
		n := &Yield{}
		if ts.NamedChildCount() > 0 {
			n.Value = b.expr(ts.NamedChild(0))
		}
		return b.pos(n, ts)
	default:
		return b.opaque(ts)
	}
}

func (b *buildState) call(ts *sitter.Node) Node {
	n := &Call{Func: b.expr(ts.ChildByFieldName("function"))}
	if args := ts.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)
			if arg.Type() == "keyword_argument" {
				kw := &Keyword{
					Name:  b.text(arg.ChildByFieldName("name")),
					Value: b.expr(arg.ChildByFieldName("value")),
				}
				b.pos(kw, arg)
				n.Keywords = append(n.Keywords, kw)
				continue
			}
			n.Args = append(n.Args, b.expr(arg))
		}
	}
	return b.pos(n, ts)
}

func (b *buildState) comparison(ts *sitter.Node) Node {
	n := &Compare{}
	var ops []string
	for i := 0; i < int(ts.ChildCount()); i++ {
		child := ts.Child(i)
		if !child.IsNamed() {
			ops = append(ops, child.Content(b.src))
		}
	}
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		operand := b.expr(ts.NamedChild(i))
		if i == 0 {
			n.Left = operand
			continue
		}
		op := ""
		if i-1 < len(ops) {
			op = ops[i-1]
		}
		n.Ops = append(n.Ops, CompareOp{Op: op, Expr: operand})
	}
	return b.pos(n, ts)
}

func (b *buildState) genExp(ts *sitter.Node) Node {
	n := &GenExp{Elt: b.expr(ts.ChildByFieldName("body"))}
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		child := ts.NamedChild(i)
		switch child.Type() {
		case "for_in_clause":
			n.Comps = append(n.Comps, Comprehension{
				Target: b.target(child.ChildByFieldName("left")),
				Iter:   b.expr(child.ChildByFieldName("right")),
			})
		case "if_clause":
			if len(n.Comps) > 0 && child.NamedChildCount() > 0 {
				last := &n.Comps[len(n.Comps)-1]
				last.Ifs = append(last.Ifs, b.expr(child.NamedChild(0)))
			}
		}
	}
	return b.pos(n, ts)
}

func (b *buildState) opaque(ts *sitter.Node) Node {
	n := &OpaqueExpr{Kind: ts.Type()}
	b.pos(n, ts)
	return n
}

// opText extracts the anonymous operator token of an operator node.
func opText(b *buildState, ts *sitter.Node) string {
	if op := ts.ChildByFieldName("operator"); op != nil {
		return op.Content(b.src)
	}
	for i := 0; i < int(ts.ChildCount()); i++ {
		child := ts.Child(i)
		if !child.IsNamed() {
			return child.Content(b.src)
		}
	}
	return ""
}

// stringValue strips matching quotes and prefixes from a string literal's
// source text. Best effort: escapes are left as written.
func stringValue(text string) string {
	for len(text) > 0 {
		switch text[0] {
		case 'r', 'b', 'u', 'f', 'R', 'B', 'U', 'F':
			text = text[1:]
			continue
		}
		break
	}
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) && len(text) >= 2*len(q) {
			return text[len(q) : len(text)-len(q)]
		}
	}
	return text
}

// setParents walks the built tree and records the owning parent on every
// child. Done once, after construction, so ownership stays exclusive.
func setParents(n Node) {
	for _, c := range n.Children() {
		c.base().SetParent(n)
		setParents(c)
	}
}

// registerBindings populates the frame local-binding tables: the builder
// is the only writer, inference only reads.
func registerBindings(n Node) {
	switch t := n.(type) {
	case *Assign:
		for _, target := range t.Targets {
			registerTarget(target, t)
		}
	case *AugAssign:
		registerTarget(t.Target, t)
	case *For:
		registerTarget(t.Target, t)
	case *With:
		for _, it := range t.Items {
			if it.Target != nil {
				registerTarget(it.Target, t)
			}
		}
	case *FunctionDef:
		if t.Parent() != nil {
			SetLocal(t.Parent(), t.Name, t)
		}
		registerParams(t, t.Args)
	case *ClassDef:
		if t.Parent() != nil {
			SetLocal(t.Parent(), t.Name, t)
		}
	case *Lambda:
		if t.Args != nil {
			for _, name := range t.Args.Names {
				t.addLocal(name, t.Args)
			}
			if t.Args.Vararg != "" {
				t.addLocal(t.Args.Vararg, t.Args)
			}
			if t.Args.Kwarg != "" {
				t.addLocal(t.Args.Kwarg, t.Args)
			}
		}
	case *GenExp:
		for _, c := range t.Comps {
			registerScopeTarget(c.Target, t)
		}
	case *Import:
		for _, in := range t.Names {
			local := in.AsName
			if local == "" {
				local, _, _ = strings.Cut(in.Name, ".")
			}
			SetLocal(t, local, t)
		}
	case *ImportFrom:
		for _, in := range t.Names {
			if in.Name == "*" {
				continue
			}
			local := in.AsName
			if local == "" {
				local = in.Name
			}
			SetLocal(t, local, t)
		}
	case *Global:
		for _, name := range t.Names {
			SetLocal(t, name, t)
		}
	case *TryExcept:
		for _, h := range t.Handlers {
			if h.Name != "" {
				SetLocal(h, h.Name, t)
			}
		}
	}
	for _, c := range n.Children() {
		registerBindings(c)
	}
}

func registerParams(f *FunctionDef, args *Arguments) {
	if args == nil {
		return
	}
	for _, name := range args.Names {
		f.addLocal(name, args)
	}
	if args.Vararg != "" {
		f.addLocal(args.Vararg, args)
	}
	if args.Kwarg != "" {
		f.addLocal(args.Kwarg, args)
	}
}

// registerTarget registers the names bound by an assignment-position
// pattern. Attribute targets on self feed the class's instance attribute
// table instead of a frame.
func registerTarget(target Node, stmt Node) {
	switch t := target.(type) {
	case *AssignName:
		SetLocal(t, t.Name, stmt)
	case *AssignAttr:
		recv, ok := t.Expr.(*Name)
		if !ok {
			return
		}
		fn, ok := FrameOf(t).(*FunctionDef)
		if !ok || len(fn.Args.Names) == 0 || fn.Args.Names[0] != recv.Name {
			return
		}
		if cls, ok := FrameOf(fn.Parent()).(*ClassDef); ok {
			cls.addInstanceAttr(t.Attr, stmt)
		}
	case *Tuple:
		for _, e := range t.Elts {
			registerTarget(e, stmt)
		}
	case *List:
		for _, e := range t.Elts {
			registerTarget(e, stmt)
		}
	}
}

// registerScopeTarget binds comprehension targets into the comprehension's
// own scope rather than the enclosing frame. The binding node is the target
// itself; comprehension loop variables are not tracked element-wise.
func registerScopeTarget(target Node, sc Scope) {
	switch t := target.(type) {
	case *AssignName:
		sc.addLocal(t.Name, t)
	case *Tuple:
		for _, e := range t.Elts {
			registerScopeTarget(e, sc)
		}
	case *List:
		for _, e := range t.Elts {
			registerScopeTarget(e, sc)
		}
	}
}

// classifyFunctions assigns each function's kind and generator flag, both
// of which need the finished tree.
func classifyFunctions(mod *Module) {
	for n := range Find(mod, OfType[*FunctionDef](), nil) {
		fn := n.(*FunctionDef)
		if fn.Parent() != nil {
			if _, ok := FrameOf(fn.Parent()).(*ClassDef); ok {
				fn.Kind = "method"
			}
		}
		for _, dec := range fn.Decorators {
			switch decoratorName(dec) {
			case "staticmethod":
				fn.Kind = "staticmethod"
			case "classmethod":
				fn.Kind = "classmethod"
			}
		}
		for range Find(fn, OfType[*Yield](), skipScopes) {
			fn.IsGenerator = true
			break
		}
	}
}

func decoratorName(dec Node) string {
	switch d := dec.(type) {
	case *Name:
		return d.Name
	case *Attribute:
		return d.Attr
	case *Call:
		return decoratorName(d.Func)
	}
	return ""
}
