package arbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inferAt drains InferName from n.
func inferAt(n Node, name string) ([]Value, error) {
	return collect(InferName(n, name))
}

func constValues(t *testing.T, vals []Value) []any {
	t.Helper()
	out := make([]any, 0, len(vals))
	for _, v := range vals {
		c, ok := v.(*Const)
		require.True(t, ok, "expected *Const, got %T", v)
		out = append(out, c.Value)
	}
	return out
}

func TestInferName_MultipleAssignmentsInSourceOrder(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "x = 1\nx = 2\nx = 3\n")

	vals, err := inferAt(mod, "x")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, constValues(t, vals))
}

func TestInferName_CycleTerminates(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "a = b\nb = a\n")

	vals, err := inferAt(mod, "a")
	require.NoError(t, err)
	assert.Equal(t, []Value{Unknown}, vals)
}

func TestInferName_UnknownNameFailsLookup(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "a = 1\n")

	_, err := inferAt(mod, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInferName_DefinitionsYieldThemselves(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `def f():
    pass

class C:
    pass
`)

	vals, err := inferAt(mod, "f")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Same(t, funcNamed(t, mod, "f"), vals[0])

	vals, err = inferAt(mod, "C")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Same(t, classNamed(t, mod, "C"), vals[0])
}

func TestInferName_CallOnClassYieldsInstance(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `class C:
    pass

obj = C()
`)

	vals, err := inferAt(mod, "obj")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	inst, ok := vals[0].(*Instance)
	require.True(t, ok, "expected *Instance, got %T", vals[0])
	assert.Equal(t, "C", inst.Cls.Name)
}

func TestInferName_FunctionCallInfersReturns(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `def pick(flag):
    if flag:
        return 1
    return 2

r = pick(True)
`)

	vals, err := inferAt(mod, "r")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, constValues(t, vals))
}

func TestInferName_FunctionWithoutReturnYieldsNone(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "def noop():\n    pass\n\nr = noop()\n")

	vals, err := inferAt(mod, "r")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.IsType(t, &NoneConst{}, vals[0])
}

func TestInferName_NestedReturnsBelongToTheirOwnDef(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `def outer():
    def inner():
        return 99
    return 1

r = outer()
`)

	vals, err := inferAt(mod, "r")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, constValues(t, vals))
}

func TestInferName_GeneratorCallYieldsGeneratorProxy(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `def gen():
    yield 1

g = gen()
`)

	vals, err := inferAt(mod, "g")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	genp, ok := vals[0].(*Generator)
	require.True(t, ok, "expected *Generator, got %T", vals[0])
	assert.Equal(t, "gen", genp.Fn.Name)
}

func TestInferName_TupleUnpackDegradesToUnknown(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "a, b = pair\n")

	vals, err := inferAt(mod, "a")
	require.NoError(t, err)
	assert.Equal(t, []Value{Unknown}, vals)
}

func TestInferName_BoolOpForwardsEachOperand(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "x = undefined or 3\n")

	vals, err := inferAt(mod, "x")
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Same(t, Value(Unknown), vals[0])
	assert.Equal(t, int64(3), vals[1].(*Const).Value)
}

func TestInferName_GlobalRebindsToModuleFrame(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `count = 1

def bump():
    global count
    count = 2
`)
	bump := funcNamed(t, mod, "bump")

	vals, err := inferAt(bump.Body, "count")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, constValues(t, vals))
}

func TestInferName_ExceptBindingYieldsGuardInstance(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `class Boom:
    pass

try:
    x = 1
except Boom as err:
    pass
`)

	vals, err := inferAt(mod, "err")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	inst, ok := vals[0].(*Instance)
	require.True(t, ok, "expected *Instance, got %T", vals[0])
	assert.Equal(t, "Boom", inst.Cls.Name)
}

func TestInferName_BareExceptBindingIsUnknown(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `try:
    x = 1
except Exception as e:
    pass
`)

	// Exception itself is unresolvable here, so the binding degrades.
	vals, err := inferAt(mod, "e")
	require.NoError(t, err)
	for _, v := range vals {
		assert.Same(t, Value(Unknown), v)
	}
}

type mapResolver map[string]*Module

func (m mapResolver) ResolveModule(name string) *Module { return m[name] }

func TestInferName_ImportResolvesThroughResolver(t *testing.T) {
	t.Parallel()
	lib := buildModule(t, "value = 7\n")
	lib.Name = "lib"
	main := buildModule(t, "import lib\nfrom lib import value as v\n")
	r := mapResolver{"lib": lib}
	main.SetResolver(r)
	lib.SetResolver(r)

	vals, err := inferAt(main, "lib")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Same(t, lib, vals[0])

	vals, err = inferAt(main, "v")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, int64(7), vals[0].(*Const).Value)
}

func TestInferName_DottedImportBindsTopPackage(t *testing.T) {
	t.Parallel()
	pkg := buildModule(t, "flag = True\n")
	pkg.Name = "os"
	main := buildModule(t, "import os.path\n")
	main.SetResolver(mapResolver{"os": pkg})

	vals, err := inferAt(main, "os")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Same(t, pkg, vals[0])
}

func TestInferName_UnresolvableImportFailsInference(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "import nowhere\n")

	_, err := inferAt(mod, "nowhere")
	assert.ErrorIs(t, err, ErrInference)
}

func TestInferName_MethodReceiverIsAnInstance(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `class C:
    def m(self):
        return self
`)
	m := funcNamed(t, mod, "m")

	vals, err := inferAt(m.Body, "self")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	inst, ok := vals[0].(*Instance)
	require.True(t, ok, "expected *Instance, got %T", vals[0])
	assert.Equal(t, "C", inst.Cls.Name)
}

func TestInferName_ParameterWithoutCallContextIsUnknown(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "def f(a, b=3):\n    return b\n")
	f := funcNamed(t, mod, "f")

	vals, err := inferAt(f.Body, "b")
	require.NoError(t, err)
	assert.Equal(t, []Value{Unknown}, vals)
}

func TestInferName_ParameterResolvesThroughCallSite(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `def ident(a):
    return a

r = ident(10)
k = ident(a=11)
`)

	vals, err := inferAt(mod, "r")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(10)}, constValues(t, vals))

	vals, err = inferAt(mod, "k")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(11)}, constValues(t, vals))
}

func TestInferName_ParameterDefaultUsedWhenCallOmitsIt(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `def f(a, b=3):
    return b

r = f(1)
`)

	vals, err := inferAt(mod, "r")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3)}, constValues(t, vals))
}

func TestInferName_MethodArgumentsShiftPastTheReceiver(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `class C:
    def update(self, value):
        return value

c = C()
r = c.update(42)
`)

	vals, err := inferAt(mod, "r")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(42)}, constValues(t, vals))
}

func TestInferName_ClassmethodReceiverIsTheClass(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `class C:
    @classmethod
    def make(cls):
        return cls

r = C.make()
`)

	vals, err := inferAt(mod, "r")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Same(t, classNamed(t, mod, "C"), vals[0])
}

func TestAssignName_ComprehensionTargetIsUnknown(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "g = (i for i in xs)\n")
	var target *AssignName
	for _, an := range findAll[*AssignName](mod) {
		if an.Name == "i" {
			target = an
		}
	}
	require.NotNil(t, target)

	vals, err := collect(target.Infer(nil))
	require.NoError(t, err)
	assert.Equal(t, []Value{Unknown}, vals)
}

func TestAttribute_MethodCallThroughInstance(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `class Engine:
    def start(self):
        return True

e = Engine()
flag = e.start()
`)

	vals, err := inferAt(mod, "flag")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, true, vals[0].(*BoolConst).Value)
}

func TestAttribute_InstanceAttributeSetInInit(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `class Counter:
    def __init__(self):
        self.count = 0

c = Counter()
n = c.count
`)

	vals, err := inferAt(mod, "n")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0)}, constValues(t, vals))
}

func TestLookup_ClassScopeIsInvisibleToMethodBodies(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `class C:
    x = 1

    def m(self):
        return x
`)
	cls := classNamed(t, mod, "C")
	m := funcNamed(t, mod, "m")

	// Directly in the class body the class locals are visible.
	sc, stmts, err := Lookup(cls.Body.Stmts[0], "x")
	require.NoError(t, err)
	assert.Same(t, Scope(cls), sc)
	assert.NotEmpty(t, stmts)

	// From inside a method the class scope is skipped.
	_, _, err = Lookup(m.Body, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestModule_IGetAttr(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "answer = 41\nanswer = 42\n")

	vals, err := collect(mod.IGetAttr("answer", nil))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(41), int64(42)}, constValues(t, vals))

	_, err = collect(mod.IGetAttr("question", nil))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClassDef_GetAttrWalksBaseChain(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `class Base:
    def ping(self):
        return 1

class Child(Base):
    pass
`)
	child := classNamed(t, mod, "Child")

	attrs, err := child.GetAttr("ping")
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	assert.Equal(t, "ping", attrs[0].(*FunctionDef).Name)
}

func TestClassDef_GetAttrSelfInheritanceTerminates(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "class A(A):\n    pass\n")
	a := classNamed(t, mod, "A")

	_, err := a.GetAttr("anything")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInferAll_StopsAtFirstHardFailure(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "a = 1\n")
	undefined := &Name{Name: "zzz"}
	undefined.SetParent(mod)

	vals, err := InferAll(undefined, NewContext(nil))
	assert.Empty(t, vals)
	assert.ErrorIs(t, err, ErrUnresolvable)
}
