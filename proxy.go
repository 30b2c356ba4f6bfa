package arbor

import (
	"errors"
	"fmt"
	"iter"
)

// UnknownValue is the absorbing "inference gave up" sentinel. Attribute
// access, calls and further inference on it always produce itself, so a
// degraded answer propagates instead of failing the whole query.
type UnknownValue struct{}

// Unknown is the singleton UnknownValue.
var Unknown = &UnknownValue{}

func (u *UnknownValue) Infer(*InferenceContext) iter.Seq2[Value, error] { return inferEnd(u) }

func (u *UnknownValue) IGetAttr(string, *InferenceContext) iter.Seq2[Value, error] {
	return inferEnd(u)
}

func (u *UnknownValue) InferCallResult(Node, *InferenceContext) iter.Seq2[Value, error] {
	return inferEnd(u)
}

func (u *UnknownValue) String() string { return "Unknown" }

// Instance represents "an object of this class" without simulating
// execution. It wraps the class-definition node and forwards what it does
// not override to the class.
type Instance struct {
	Cls *ClassDef
}

// NewInstance wraps cls in an Instance proxy.
func NewInstance(cls *ClassDef) *Instance { return &Instance{Cls: cls} }

// A proxy, once constructed, is itself its own inference result.
func (i *Instance) Infer(*InferenceContext) iter.Seq2[Value, error] { return inferEnd(i) }

// Proxied returns the wrapped class-definition node.
func (i *Instance) Proxied() Node { return i.Cls }

func (i *Instance) String() string {
	root, _ := Root(i.Cls).(*Module)
	if root != nil {
		return fmt.Sprintf("Instance of %s.%s", root.Name, i.Cls.Name)
	}
	return fmt.Sprintf("Instance of %s", i.Cls.Name)
}

// GetAttr looks name up on the instance-level attribute table, then the
// special names, then (when lookupClass is set) the wrapped class's own
// lookup. __name__ always fails for instances even though it succeeds for
// classes; the asymmetry is deliberate and observable.
func (i *Instance) GetAttr(name string, lookupClass bool) ([]Node, error) {
	if attrs := i.Cls.InstanceAttrs[name]; len(attrs) > 0 {
		return attrs, nil
	}
	if name == "__class__" {
		return []Node{i.Cls}, nil
	}
	if name == "__name__" {
		return nil, fmt.Errorf("instance attribute %q: %w", name, ErrNotFound)
	}
	if lookupClass {
		return i.Cls.GetAttr(name)
	}
	return nil, fmt.Errorf("instance attribute %q: %w", name, ErrNotFound)
}

// IGetAttr wraps instance-level attribute lookup through inference,
// re-wrapping method-kind functions as bound methods. On instance-level
// failure it falls back to the class's inferred lookup (which carries the
// base-chain logic); if that also fails the lookup fails with ErrInference.
func (i *Instance) IGetAttr(name string, ctx *InferenceContext) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		if ctx == nil {
			ctx = NewContext(nil)
		}
		if attrs, err := i.GetAttr(name, false); err == nil {
			c := ctx.Clone()
			c.LookupName = name
			c.BoundNode = i
			forward(bindMethods(inferStmts(nodeValues(attrs), c, nil)), yield)
			return
		}
		for v, err := range bindMethods(i.Cls.IGetAttr(name, ctx)) {
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					err = fmt.Errorf("instance attribute %q: %w", name, ErrInference)
				}
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// bindMethods re-wraps any method-kind function flowing through seq in a
// BoundMethod proxy; everything else passes unchanged.
func bindMethods(seq iter.Seq2[Value, error]) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		for v, err := range seq {
			if fn, ok := v.(*FunctionDef); ok && fn.Kind == "method" {
				v = &BoundMethod{Fn: fn}
			}
			if !yield(v, err) {
				return
			}
		}
	}
}

// InferCallResult resolves what calling the instance yields: each inferred
// __call__ candidate is asked for its own call result. Calling an instance
// with no resolvable __call__ fails with ErrInference.
func (i *Instance) InferCallResult(caller Node, ctx *InferenceContext) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		inferred := false
		for v, err := range i.IGetAttr("__call__", ctx) {
			if err != nil {
				break
			}
			c, ok := v.(Callable)
			if !ok {
				continue
			}
			for res, err := range c.InferCallResult(caller, ctx) {
				if err != nil {
					break
				}
				if !yield(res, nil) {
					return
				}
				inferred = true
			}
		}
		if !inferred {
			yield(nil, fmt.Errorf("instance of %s is not callable: %w", i.Cls.Name, ErrInference))
		}
	}
}

// IsCallable reports whether __call__ resolves by plain lookup.
func (i *Instance) IsCallable() bool {
	_, err := i.GetAttr("__call__", true)
	return err == nil
}

// BoundMethod represents a function bound to a receiver instance.
type BoundMethod struct {
	Fn *FunctionDef
}

func (b *BoundMethod) Infer(*InferenceContext) iter.Seq2[Value, error] { return inferEnd(b) }

// Proxied returns the wrapped function node.
func (b *BoundMethod) Proxied() Node { return b.Fn }

func (b *BoundMethod) IsBound() bool { return true }

func (b *BoundMethod) InferCallResult(caller Node, ctx *InferenceContext) iter.Seq2[Value, error] {
	return b.Fn.InferCallResult(caller, ctx)
}

func (b *BoundMethod) String() string {
	owner := FrameOf(b.Fn.Parent())
	if cls, ok := owner.(*ClassDef); ok {
		return fmt.Sprintf("Bound method %s of %s", b.Fn.Name, cls.Name)
	}
	return fmt.Sprintf("Bound method %s", b.Fn.Name)
}

// Generator represents the generator object produced by calling a
// generator function.
type Generator struct {
	Fn *FunctionDef
}

func (g *Generator) Infer(*InferenceContext) iter.Seq2[Value, error] { return inferEnd(g) }

// Proxied returns the wrapped function node.
func (g *Generator) Proxied() Node { return g.Fn }

func (g *Generator) IsCallable() bool { return true }

func (g *Generator) String() string { return fmt.Sprintf("Generator(%s)", g.Fn.Name) }

// The None/True/False literals get dedicated proxy-bearing nodes instead
// of generic names, so attribute lookups on them route through the proxy
// fallback rules. Both tables are process-wide and immutable after init.
var constNameTransforms = map[string]func() Node{
	"None":  func() Node { return &NoneConst{} },
	"True":  func() Node { return &BoolConst{Value: true} },
	"False": func() Node { return &BoolConst{Value: false} },
}

var constValueTransforms = map[any]func() Node{
	nil:   func() Node { return &NoneConst{} },
	true:  func() Node { return &BoolConst{Value: true} },
	false: func() Node { return &BoolConst{Value: false} },
}

// ConstForName builds the node for a constant literal spelling, reporting
// false for spellings that are not constants.
func ConstForName(spelling string) (Node, bool) {
	f, ok := constNameTransforms[spelling]
	if !ok {
		return nil, false
	}
	return f(), true
}

// ConstForValue builds the node for a runtime constant value.
func ConstForValue(v any) Node {
	if f, ok := constValueTransforms[v]; ok {
		return f()
	}
	return &Const{Value: v}
}

// None and booleans have no class definition in the analyzed program, so
// attribute lookups on them absorb to Unknown rather than failing.
func (n *NoneConst) IGetAttr(string, *InferenceContext) iter.Seq2[Value, error] {
	return inferEnd(Unknown)
}

func (n *BoolConst) IGetAttr(string, *InferenceContext) iter.Seq2[Value, error] {
	return inferEnd(Unknown)
}
