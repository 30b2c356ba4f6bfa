package arbor

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

// inferEnd is the inference of an already-resolved terminal value: it
// yields the value itself and nothing else.
func inferEnd(v Value) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		yield(v, nil)
	}
}

// inferFailed is the inference of node kinds that carry no value of their
// own. Multi-candidate resolution converts this failure into Unknown.
func inferFailed(n Node) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		yield(nil, fmt.Errorf("cannot infer %T at line %d: %w", n, n.FromLine(), ErrInference))
	}
}

// guarded wraps a recursive inference producer with the visited-path cycle
// check. Re-entering an already-visited (node, name) pair yields no further
// results for that branch; it is not an error.
func guarded(n Node, ctx *InferenceContext, produce func(ctx *InferenceContext, yield func(Value, error) bool)) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		if ctx == nil {
			ctx = NewContext(n)
		}
		if !ctx.Push(n) {
			return
		}
		defer ctx.Pop()
		produce(ctx, yield)
	}
}

// forward drains seq into yield, reporting false when the consumer stopped.
func forward(seq iter.Seq2[Value, error], yield func(Value, error) bool) bool {
	for v, err := range seq {
		if !yield(v, err) {
			return false
		}
	}
	return true
}

// recoverable reports failures that multi-candidate resolution skips.
func recoverable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnresolvable)
}

// InferAll drains an inference sequence eagerly. It returns the produced
// values and the first hard failure, if any.
func InferAll(v Value, ctx *InferenceContext) ([]Value, error) {
	var out []Value
	for res, err := range v.Infer(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

// InferName resolves name from the scope enclosing n and infers every
// binding candidate. This is the main entry point for name queries.
func InferName(n Node, name string) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		frame, stmts, err := Lookup(n, name)
		if err != nil {
			yield(nil, err)
			return
		}
		ctx := NewContext(n)
		ctx.LookupName = name
		forward(inferStmts(nodeValues(stmts), ctx, frame), yield)
	}
}

// Lookup resolves name against the local-binding tables of n's enclosing
// scopes, innermost first, and returns the owning scope and the binding
// statements. Class scopes are visible only to code directly in the class
// body, matching the host language's lookup rules.
func Lookup(n Node, name string) (Scope, []Node, error) {
	first := true
	for sc := ScopeOf(n); sc != nil; {
		_, isClass := sc.(*ClassDef)
		if first || !isClass {
			if stmts := sc.Locals()[name]; len(stmts) > 0 {
				return sc, stmts, nil
			}
		}
		first = false
		p := sc.Parent()
		if p == nil {
			break
		}
		sc = ScopeOf(p)
	}
	return nil, nil, fmt.Errorf("name %q: %w", name, ErrNotFound)
}

// inferName computes the per-candidate lookup name: only import-like,
// global and try/except statements, plus a function or lambda that is the
// current frame, carry the name into their own inference. Every other kind
// resolves with the name unset.
func inferName(n Node, frame Scope, name string) string {
	switch n.(type) {
	case *Import, *ImportFrom, *Global, *TryExcept, *Arguments:
		return name
	case *FunctionDef, *Lambda:
		if sc, ok := n.(Scope); ok && Scope(sc) == frame {
			return name
		}
	}
	return ""
}

// inferStmts is multi-candidate resolution: it infers each candidate
// binding statement in turn, skipping candidates that cannot resolve the
// name at all and converting per-candidate inference failures into one
// Unknown. If no candidate ever yields, the whole resolution fails with
// ErrInference.
func inferStmts(stmts []Value, ctx *InferenceContext, frame Scope) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		var name string
		if ctx != nil {
			name = ctx.LookupName
			ctx = ctx.Clone()
		} else {
			ctx = NewContext(nil)
		}
		inferred := false
		for _, cand := range stmts {
			if cand == Unknown {
				if !yield(Unknown, nil) {
					return
				}
				inferred = true
				continue
			}
			node, ok := cand.(Node)
			if !ok {
				// Proxies are their own inference result.
				if !yield(cand, nil) {
					return
				}
				inferred = true
				continue
			}
			ctx.LookupName = inferName(node, frame, name)
			for v, err := range node.Infer(ctx) {
				if err != nil {
					if recoverable(err) {
						break // try the next candidate
					}
					if errors.Is(err, ErrInference) {
						if !yield(Unknown, nil) {
							return
						}
						inferred = true
						break
					}
					yield(nil, err)
					return
				}
				if !yield(v, nil) {
					return
				}
				inferred = true
			}
		}
		if !inferred {
			yield(nil, fmt.Errorf("no candidate for %q resolved: %w", name, ErrInference))
		}
	}
}

func nodeValues(nodes []Node) []Value {
	out := make([]Value, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

// attrInferrer is implemented by values that can answer inferred attribute
// lookups: Module, ClassDef, Instance and the Unknown sentinel.
type attrInferrer interface {
	IGetAttr(name string, ctx *InferenceContext) iter.Seq2[Value, error]
}

// Callable is implemented by values that can answer what calling them
// produces.
type Callable interface {
	InferCallResult(caller Node, ctx *InferenceContext) iter.Seq2[Value, error]
}

// --- terminal kinds: a fully defined construct is its own inference ---

func (n *Module) Infer(*InferenceContext) iter.Seq2[Value, error]      { return inferEnd(n) }
func (n *FunctionDef) Infer(*InferenceContext) iter.Seq2[Value, error] { return inferEnd(n) }
func (n *ClassDef) Infer(*InferenceContext) iter.Seq2[Value, error]    { return inferEnd(n) }
func (n *Lambda) Infer(*InferenceContext) iter.Seq2[Value, error]      { return inferEnd(n) }
func (n *GenExp) Infer(*InferenceContext) iter.Seq2[Value, error]      { return inferEnd(n) }
func (n *Const) Infer(*InferenceContext) iter.Seq2[Value, error]       { return inferEnd(n) }
func (n *NoneConst) Infer(*InferenceContext) iter.Seq2[Value, error]   { return inferEnd(n) }
func (n *BoolConst) Infer(*InferenceContext) iter.Seq2[Value, error]   { return inferEnd(n) }
func (n *Tuple) Infer(*InferenceContext) iter.Seq2[Value, error]       { return inferEnd(n) }
func (n *List) Infer(*InferenceContext) iter.Seq2[Value, error]        { return inferEnd(n) }
func (n *Dict) Infer(*InferenceContext) iter.Seq2[Value, error]        { return inferEnd(n) }

// --- kinds that never carry a value of their own ---

func (n *Block) Infer(*InferenceContext) iter.Seq2[Value, error]        { return inferFailed(n) }
func (n *ExprStmt) Infer(*InferenceContext) iter.Seq2[Value, error]     { return inferFailed(n) }
func (n *Return) Infer(*InferenceContext) iter.Seq2[Value, error]       { return inferFailed(n) }
func (n *If) Infer(*InferenceContext) iter.Seq2[Value, error]           { return inferFailed(n) }
func (n *For) Infer(*InferenceContext) iter.Seq2[Value, error]          { return inferFailed(n) }
func (n *While) Infer(*InferenceContext) iter.Seq2[Value, error]        { return inferFailed(n) }
func (n *TryFinally) Infer(*InferenceContext) iter.Seq2[Value, error]   { return inferFailed(n) }
func (n *With) Infer(*InferenceContext) iter.Seq2[Value, error]         { return inferFailed(n) }
func (n *ExceptClause) Infer(*InferenceContext) iter.Seq2[Value, error] { return inferFailed(n) }
func (n *Raise) Infer(*InferenceContext) iter.Seq2[Value, error]        { return inferFailed(n) }
func (n *Assert) Infer(*InferenceContext) iter.Seq2[Value, error]       { return inferFailed(n) }
func (n *Delete) Infer(*InferenceContext) iter.Seq2[Value, error]       { return inferFailed(n) }
func (n *Pass) Infer(*InferenceContext) iter.Seq2[Value, error]         { return inferFailed(n) }
func (n *Break) Infer(*InferenceContext) iter.Seq2[Value, error]        { return inferFailed(n) }
func (n *Continue) Infer(*InferenceContext) iter.Seq2[Value, error]     { return inferFailed(n) }
func (n *Keyword) Infer(*InferenceContext) iter.Seq2[Value, error]      { return inferFailed(n) }
func (n *AugAssign) Infer(*InferenceContext) iter.Seq2[Value, error]    { return inferFailed(n) }
func (n *AssignAttr) Infer(*InferenceContext) iter.Seq2[Value, error]   { return inferFailed(n) }

// OpaqueExpr degrades to Unknown rather than failing whole queries.
func (n *OpaqueExpr) Infer(*InferenceContext) iter.Seq2[Value, error] { return inferEnd(Unknown) }

// The value a yield expression receives is never tracked.
func (n *Yield) Infer(*InferenceContext) iter.Seq2[Value, error] { return inferEnd(Unknown) }

// --- best-effort composites ---

func (n *BinOp) Infer(*InferenceContext) iter.Seq2[Value, error]     { return inferEnd(Unknown) }
func (n *UnaryOp) Infer(*InferenceContext) iter.Seq2[Value, error]   { return inferEnd(Unknown) }
func (n *Compare) Infer(*InferenceContext) iter.Seq2[Value, error]   { return inferEnd(Unknown) }
func (n *Subscript) Infer(*InferenceContext) iter.Seq2[Value, error] { return inferEnd(Unknown) }

// A boolean chain may produce any of its operands.
func (n *BoolOp) Infer(ctx *InferenceContext) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		for _, operand := range n.Values {
			if !forwardOrUnknown(operand.Infer(ctx), yield) {
				return
			}
		}
	}
}

// forwardOrUnknown forwards seq's values, replacing any failure with one
// Unknown. Reports false when the consumer stopped.
func forwardOrUnknown(seq iter.Seq2[Value, error], yield func(Value, error) bool) bool {
	for v, err := range seq {
		if err != nil {
			return yield(Unknown, nil)
		}
		if !yield(v, nil) {
			return false
		}
	}
	return true
}

// --- name resolution ---

func (n *Name) Infer(ctx *InferenceContext) iter.Seq2[Value, error] {
	return guarded(n, ctx, func(ctx *InferenceContext, yield func(Value, error) bool) {
		frame, stmts, err := Lookup(n, n.Name)
		if err != nil {
			yield(nil, fmt.Errorf("name %q: %w", n.Name, ErrUnresolvable))
			return
		}
		c := ctx.Clone()
		c.LookupName = n.Name
		forward(inferStmts(nodeValues(stmts), c, frame), yield)
	})
}

// A binding occurrence resolves through the statement that performs the
// binding. Comprehension loop variables are not tracked element-wise and
// degrade to Unknown.
func (n *AssignName) Infer(ctx *InferenceContext) iter.Seq2[Value, error] {
	for p := n.Parent(); p != nil && !p.IsStatement(); p = p.Parent() {
		if _, ok := p.(*GenExp); ok {
			return inferEnd(Unknown)
		}
	}
	return func(yield func(Value, error) bool) {
		stmt, err := StatementOf(n)
		if err != nil {
			yield(nil, fmt.Errorf("assign name %q: %w", n.Name, ErrUnresolvable))
			return
		}
		forward(stmt.Infer(ctx), yield)
	}
}

// An assignment passes its right-hand side through unchanged. Unpacking
// targets are not tracked element-wise; they degrade to Unknown.
func (n *Assign) Infer(ctx *InferenceContext) iter.Seq2[Value, error] {
	for _, t := range n.Targets {
		switch t.(type) {
		case *Tuple, *List:
			return inferEnd(Unknown)
		}
	}
	if n.Value == nil {
		return inferFailed(n)
	}
	return n.Value.Infer(ctx)
}

// --- imports ---

func resolveModule(n Node, name string) *Module {
	root, ok := Root(n).(*Module)
	if !ok || root.resolver == nil {
		return nil
	}
	return root.resolver.ResolveModule(name)
}

func (n *Import) Infer(ctx *InferenceContext) iter.Seq2[Value, error] {
	return guarded(n, ctx, func(ctx *InferenceContext, yield func(Value, error) bool) {
		name := ctx.LookupName
		if name == "" {
			yield(nil, fmt.Errorf("import without lookup name: %w", ErrInference))
			return
		}
		real, err := RealName(n.Names, name)
		if err != nil {
			yield(nil, err)
			return
		}
		mod := resolveModule(n, real)
		if mod == nil {
			yield(nil, fmt.Errorf("module %q: %w", real, ErrUnresolvable))
			return
		}
		yield(mod, nil)
	})
}

func (n *ImportFrom) Infer(ctx *InferenceContext) iter.Seq2[Value, error] {
	return guarded(n, ctx, func(ctx *InferenceContext, yield func(Value, error) bool) {
		name := ctx.LookupName
		if name == "" {
			yield(nil, fmt.Errorf("import from without lookup name: %w", ErrInference))
			return
		}
		real, err := RealName(n.Names, name)
		if err != nil {
			yield(nil, err)
			return
		}
		mod := resolveModule(n, n.Module)
		if mod == nil {
			yield(nil, fmt.Errorf("module %q: %w", n.Module, ErrUnresolvable))
			return
		}
		forward(mod.IGetAttr(real, ctx), yield)
	})
}

// A global statement re-resolves the name in the root module's frame.
func (n *Global) Infer(ctx *InferenceContext) iter.Seq2[Value, error] {
	return guarded(n, ctx, func(ctx *InferenceContext, yield func(Value, error) bool) {
		name := ctx.LookupName
		root, ok := Root(n).(*Module)
		if !ok || name == "" {
			yield(nil, fmt.Errorf("global %q: %w", name, ErrUnresolvable))
			return
		}
		stmts := root.Locals()[name]
		if len(stmts) == 0 {
			yield(nil, fmt.Errorf("global %q: %w", name, ErrUnresolvable))
			return
		}
		c := ctx.Clone()
		c.LookupName = name
		forward(inferStmts(nodeValues(stmts), c, root), yield)
	})
}

// An except binding resolves to instances of the inferred guard classes.
func (n *TryExcept) Infer(ctx *InferenceContext) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		var name string
		if ctx != nil {
			name = ctx.LookupName
		}
		if name == "" {
			forward(inferFailed(n), yield)
			return
		}
		inferred := false
		for _, h := range n.Handlers {
			if h.Name != name {
				continue
			}
			if h.Type == nil {
				if !yield(Unknown, nil) {
					return
				}
				inferred = true
				continue
			}
			for v, err := range h.Type.Infer(ctx) {
				if err != nil {
					break
				}
				if cls, ok := v.(*ClassDef); ok {
					if !yield(NewInstance(cls), nil) {
						return
					}
				} else if !yield(Unknown, nil) {
					return
				}
				inferred = true
			}
		}
		if !inferred {
			yield(nil, fmt.Errorf("except binding %q: %w", name, ErrInference))
		}
	}
}

// --- attribute access ---

func (n *Attribute) Infer(ctx *InferenceContext) iter.Seq2[Value, error] {
	return guarded(n, ctx, func(ctx *InferenceContext, yield func(Value, error) bool) {
		inferred := false
		for owner, err := range n.Expr.Infer(ctx) {
			if err != nil {
				if recoverable(err) || errors.Is(err, ErrInference) {
					break
				}
				yield(nil, err)
				return
			}
			ai, ok := owner.(attrInferrer)
			if !ok {
				// Owner kind has no attribute model; degrade.
				if !yield(Unknown, nil) {
					return
				}
				inferred = true
				continue
			}
			for v, err := range ai.IGetAttr(n.Attr, ctx) {
				if err != nil {
					break // this owner cannot provide the attribute; try the next
				}
				if !yield(v, nil) {
					return
				}
				inferred = true
			}
		}
		if !inferred {
			yield(nil, fmt.Errorf("attribute %q: %w", n.Attr, ErrInference))
		}
	})
}

// IGetAttr infers a module-level attribute through the module's
// local-binding table.
func (m *Module) IGetAttr(name string, ctx *InferenceContext) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		stmts := m.Locals()[name]
		if len(stmts) == 0 {
			yield(nil, fmt.Errorf("module %s attribute %q: %w", m.Name, name, ErrNotFound))
			return
		}
		if ctx == nil {
			ctx = NewContext(m)
		}
		c := ctx.Clone()
		c.LookupName = name
		forward(inferStmts(nodeValues(stmts), c, m), yield)
	}
}

// GetAttr looks name up on the class and then along its base-class chain.
// The chain is resolved by inference and cycle-guarded, so self-inheriting
// class graphs terminate.
func (c *ClassDef) GetAttr(name string) ([]Node, error) {
	return c.getAttr(name, make(map[*ClassDef]bool))
}

func (c *ClassDef) getAttr(name string, seen map[*ClassDef]bool) ([]Node, error) {
	if seen[c] {
		return nil, fmt.Errorf("class %s attribute %q: %w", c.Name, name, ErrNotFound)
	}
	seen[c] = true
	if name == "__name__" {
		return []Node{&Const{Value: c.Name}}, nil
	}
	if stmts := c.Locals()[name]; len(stmts) > 0 {
		return stmts, nil
	}
	for _, base := range c.Bases {
		for v, err := range base.Infer(nil) {
			if err != nil {
				break
			}
			bc, ok := v.(*ClassDef)
			if !ok {
				continue
			}
			if attrs, err := bc.getAttr(name, seen); err == nil {
				return attrs, nil
			}
		}
	}
	return nil, fmt.Errorf("class %s attribute %q: %w", c.Name, name, ErrNotFound)
}

// IGetAttr infers a class attribute through GetAttr.
func (c *ClassDef) IGetAttr(name string, ctx *InferenceContext) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		attrs, err := c.GetAttr(name)
		if err != nil {
			yield(nil, err)
			return
		}
		if ctx == nil {
			ctx = NewContext(c)
		}
		cc := ctx.Clone()
		cc.LookupName = name
		forward(inferStmts(nodeValues(attrs), cc, c), yield)
	}
}

// InferCallResult of a class is an instance of that class.
func (c *ClassDef) InferCallResult(caller Node, ctx *InferenceContext) iter.Seq2[Value, error] {
	return inferEnd(NewInstance(c))
}

// --- calls ---

func (n *Call) Infer(ctx *InferenceContext) iter.Seq2[Value, error] {
	return guarded(n, ctx, func(ctx *InferenceContext, yield func(Value, error) bool) {
		callCtx := ctx.Clone()
		callCtx.CallContext = &CallContext{Args: n.Args, Keywords: n.Keywords}
		callCtx.LookupName = ""
		inferred := false
		for callee, err := range n.Func.Infer(ctx) {
			if err != nil {
				if recoverable(err) || errors.Is(err, ErrInference) {
					break
				}
				yield(nil, err)
				return
			}
			if callee == Unknown {
				if !yield(Unknown, nil) {
					return
				}
				inferred = true
				continue
			}
			c, ok := callee.(Callable)
			if !ok {
				if !yield(Unknown, nil) {
					return
				}
				inferred = true
				continue
			}
			for v, err := range c.InferCallResult(n, callCtx) {
				if err != nil {
					break // this callee's result is unknowable; try the next
				}
				if !yield(v, nil) {
					return
				}
				inferred = true
			}
		}
		if !inferred {
			yield(nil, fmt.Errorf("call at line %d: %w", n.FromLine(), ErrInference))
		}
	})
}

// InferCallResult of a function infers its return expressions. Generator
// functions produce a generator object instead of running their body.
func (f *FunctionDef) InferCallResult(caller Node, ctx *InferenceContext) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		if f.IsGenerator {
			yield(&Generator{Fn: f}, nil)
			return
		}
		if f.Body == nil {
			yield(ConstForValue(nil), nil)
			return
		}
		returned := false
		for ret := range Find(f.Body, OfType[*Return](), skipScopes) {
			returned = true
			r := ret.(*Return)
			if r.Value == nil {
				if !yield(ConstForValue(nil), nil) {
					return
				}
				continue
			}
			if !forwardOrUnknown(r.Value.Infer(ctx), yield) {
				return
			}
		}
		if !returned {
			// Falling off the end returns None.
			yield(ConstForValue(nil), nil)
		}
	}
}

// Infer resolves one formal parameter, named by the context's lookup name.
// The receiver parameter of a method resolves to the bound value when one
// is known and otherwise to a fresh instance of the enclosing class; other
// parameters resolve through the caller's arguments when a call context is
// present and degrade to Unknown when it is not.
func (a *Arguments) Infer(ctx *InferenceContext) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		var name string
		if ctx != nil {
			name = ctx.LookupName
		}
		if name == "" {
			forward(inferFailed(a), yield)
			return
		}
		if name == a.Vararg || name == a.Kwarg {
			yield(Unknown, nil)
			return
		}
		idx := slices.Index(a.Names, name)
		if idx < 0 {
			yield(nil, fmt.Errorf("parameter %q: %w", name, ErrNotFound))
			return
		}

		fn, _ := a.Parent().(*FunctionDef)
		if fn != nil && idx == 0 {
			switch fn.Kind {
			case "method":
				if ctx.BoundNode != nil {
					yield(ctx.BoundNode, nil)
					return
				}
				if cls, ok := FrameOf(fn.Parent()).(*ClassDef); ok {
					yield(NewInstance(cls), nil)
					return
				}
			case "classmethod":
				if cls, ok := FrameOf(fn.Parent()).(*ClassDef); ok {
					yield(cls, nil)
					return
				}
			}
		}

		cc := ctx.CallContext
		if cc == nil {
			yield(Unknown, nil)
			return
		}
		for _, kw := range cc.Keywords {
			if kw.Name == name && kw.Value != nil {
				forwardOrUnknown(kw.Value.Infer(ctx.Clone()), yield)
				return
			}
		}
		pos := idx
		if fn != nil && fn.Kind == "method" {
			pos-- // the receiver is never in the caller's argument list
		}
		if pos >= 0 && pos < len(cc.Args) {
			forwardOrUnknown(cc.Args[pos].Infer(ctx.Clone()), yield)
			return
		}
		if d := a.defaultFor(idx); d != nil {
			forwardOrUnknown(d.Infer(ctx.Clone()), yield)
			return
		}
		yield(Unknown, nil)
	}
}

// defaultFor returns the default expression of parameter i, nil if none.
// Defaults align with the tail of Names.
func (a *Arguments) defaultFor(i int) Node {
	j := i - (len(a.Names) - len(a.Defaults))
	if j < 0 || j >= len(a.Defaults) {
		return nil
	}
	return a.Defaults[j]
}

// skipScopes prunes nested scopes during body traversals: a return inside
// a nested def belongs to that def.
func skipScopes(n Node) bool {
	switch n.(type) {
	case *FunctionDef, *ClassDef, *Lambda, *GenExp:
		return true
	}
	return false
}
