package arbor

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widgetSrc = `class Widget:
    def __init__(self):
        self.size = 1

    def grow(self):
        return self.size
`

func TestInstance_GetAttrNameClassAsymmetry(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, widgetSrc)
	cls := classNamed(t, mod, "Widget")
	inst := NewInstance(cls)

	// __class__ always resolves to the wrapped class.
	attrs, err := inst.GetAttr("__class__", true)
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	assert.Same(t, Node(cls), attrs[0])

	// __name__ fails on instances even though the class answers it.
	_, err = inst.GetAttr("__name__", true)
	assert.ErrorIs(t, err, ErrNotFound)

	clsAttrs, err := cls.GetAttr("__name__")
	require.NoError(t, err)
	require.Len(t, clsAttrs, 1)
	assert.Equal(t, "Widget", clsAttrs[0].(*Const).Value)
}

func TestInstance_GetAttrPrefersInstanceAttributes(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, widgetSrc)
	inst := NewInstance(classNamed(t, mod, "Widget"))

	attrs, err := inst.GetAttr("size", false)
	require.NoError(t, err)
	assert.NotEmpty(t, attrs)
}

func TestInstance_GetAttrClassFallbackIsOptIn(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, widgetSrc)
	inst := NewInstance(classNamed(t, mod, "Widget"))

	// grow lives on the class, not the instance.
	_, err := inst.GetAttr("grow", false)
	assert.ErrorIs(t, err, ErrNotFound)

	attrs, err := inst.GetAttr("grow", true)
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	assert.IsType(t, &FunctionDef{}, attrs[0])
}

func TestInstance_IGetAttrBindsMethods(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, widgetSrc)
	inst := NewInstance(classNamed(t, mod, "Widget"))

	vals, err := collect(inst.IGetAttr("grow", nil))
	require.NoError(t, err)
	require.Len(t, vals, 1)
	bm, ok := vals[0].(*BoundMethod)
	require.True(t, ok, "method attribute should come back bound, got %T", vals[0])
	assert.Equal(t, "grow", bm.Fn.Name)
	assert.True(t, bm.IsBound())
}

func TestInstance_IGetAttrMissingFailsWithInferenceError(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, widgetSrc)
	inst := NewInstance(classNamed(t, mod, "Widget"))

	_, err := collect(inst.IGetAttr("missing", nil))
	assert.ErrorIs(t, err, ErrInference)
}

func TestInstance_InferCallResult(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `class Adder:
    def __call__(self):
        return 5

class Plain:
    pass
`)
	callable := NewInstance(classNamed(t, mod, "Adder"))
	vals, err := collect(callable.InferCallResult(nil, nil))
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, int64(5), vals[0].(*Const).Value)
	assert.True(t, callable.IsCallable())

	plain := NewInstance(classNamed(t, mod, "Plain"))
	_, err = collect(plain.InferCallResult(nil, nil))
	assert.ErrorIs(t, err, ErrInference)
	assert.False(t, plain.IsCallable())
}

func TestUnknown_AbsorbsEverything(t *testing.T) {
	t.Parallel()

	vals, err := InferAll(Unknown, nil)
	require.NoError(t, err)
	assert.Equal(t, []Value{Unknown}, vals)

	vals, err = collect(Unknown.IGetAttr("anything", nil))
	require.NoError(t, err)
	assert.Equal(t, []Value{Unknown}, vals)

	vals, err = collect(Unknown.InferCallResult(nil, nil))
	require.NoError(t, err)
	assert.Equal(t, []Value{Unknown}, vals)
}

func TestGenerator_IsCallable(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "def gen():\n    yield 1\n")
	fn := funcNamed(t, mod, "gen")
	require.True(t, fn.IsGenerator)

	g := &Generator{Fn: fn}
	assert.True(t, g.IsCallable())
	assert.Same(t, Node(fn), g.Proxied())
}

func TestConstTransformTables(t *testing.T) {
	t.Parallel()

	n, ok := ConstForName("None")
	require.True(t, ok)
	assert.IsType(t, &NoneConst{}, n)

	n, ok = ConstForName("True")
	require.True(t, ok)
	assert.Equal(t, true, n.(*BoolConst).Value)

	n, ok = ConstForName("False")
	require.True(t, ok)
	assert.Equal(t, false, n.(*BoolConst).Value)

	_, ok = ConstForName("nil")
	assert.False(t, ok)

	assert.IsType(t, &NoneConst{}, ConstForValue(nil))
	assert.IsType(t, &BoolConst{}, ConstForValue(true))
	assert.Equal(t, int64(9), ConstForValue(int64(9)).(*Const).Value)
}

func TestNoneAndBoolAttributesAbsorbToUnknown(t *testing.T) {
	t.Parallel()

	none := &NoneConst{}
	vals, err := collect(none.IGetAttr("bit_length", nil))
	require.NoError(t, err)
	assert.Equal(t, []Value{Unknown}, vals)

	b := &BoolConst{Value: true}
	vals, err = collect(b.IGetAttr("real", nil))
	require.NoError(t, err)
	assert.Equal(t, []Value{Unknown}, vals)
}

func TestContext_PushDetectsRevisit(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "a = 1\n")
	n := nameOrNode(mod)

	ctx := NewContext(n)
	ctx.LookupName = "a"
	require.True(t, ctx.Push(n))
	assert.False(t, ctx.Push(n), "same (node, name) pair must be rejected")

	// A different lookup name is a different pair.
	ctx.LookupName = "b"
	assert.True(t, ctx.Push(n))

	ctx.Pop()
	ctx.LookupName = "a"
	assert.False(t, ctx.Push(n))
	ctx.Pop()
	assert.True(t, ctx.Push(n))
}

func TestContext_CloneSharesThePath(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "a = 1\n")
	n := nameOrNode(mod)

	ctx := NewContext(n)
	ctx.LookupName = "a"
	clone := ctx.Clone()
	clone.LookupName = "a"

	require.True(t, ctx.Push(n))
	assert.False(t, clone.Push(n), "a clone shares cycle detection with its origin")

	// Per-branch fields stay independent.
	clone.LookupName = "other"
	assert.Equal(t, "a", ctx.LookupName)
}

func nameOrNode(mod *Module) Node {
	for n := range Find(mod, OfType[*Assign](), nil) {
		return n
	}
	return mod
}

// collect drains an inference sequence, stopping at the first failure.
func collect(seq iter.Seq2[Value, error]) ([]Value, error) {
	var out []Value
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
