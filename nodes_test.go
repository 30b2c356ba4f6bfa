package arbor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildModule parses src into a module tree for tests.
func buildModule(t *testing.T, src string) *Module {
	t.Helper()
	mod, err := NewBuilder().BuildSource(context.Background(), []byte(src), "fixture.py")
	require.NoError(t, err)
	return mod
}

func findFirst[T Node](t *testing.T, root Node) T {
	t.Helper()
	for n := range Find(root, OfType[T](), nil) {
		return n.(T)
	}
	t.Fatalf("tree has no node of the requested kind")
	panic("unreachable")
}

func findAll[T Node](root Node) []T {
	var out []T
	for n := range Find(root, OfType[T](), nil) {
		out = append(out, n.(T))
	}
	return out
}

// nameNode finds the first load occurrence of ident.
func nameNode(t *testing.T, root Node, ident string) *Name {
	t.Helper()
	for n := range Find(root, OfType[*Name](), nil) {
		if n.(*Name).Name == ident {
			return n.(*Name)
		}
	}
	t.Fatalf("no Name node for %q", ident)
	panic("unreachable")
}

func classNamed(t *testing.T, root Node, name string) *ClassDef {
	t.Helper()
	for n := range Find(root, OfType[*ClassDef](), nil) {
		if n.(*ClassDef).Name == name {
			return n.(*ClassDef)
		}
	}
	t.Fatalf("no class %q", name)
	panic("unreachable")
}

func funcNamed(t *testing.T, root Node, name string) *FunctionDef {
	t.Helper()
	for n := range Find(root, OfType[*FunctionDef](), nil) {
		if n.(*FunctionDef).Name == name {
			return n.(*FunctionDef)
		}
	}
	t.Fatalf("no function %q", name)
	panic("unreachable")
}

const scopesSrc = `x = 1
def outer():
    y = 2
    return y

class Box:
    def get(self):
        return self.value
`

func TestRoot_EveryNodeReachesTheModule(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, scopesSrc)

	require.Nil(t, mod.Parent())
	for n := range Find(mod, func(Node) bool { return true }, nil) {
		assert.Same(t, mod, Root(n))
	}
}

func TestParentOf_AncestorChain(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, scopesSrc)
	outer := funcNamed(t, mod, "outer")
	y := nameNode(t, mod, "y")

	assert.True(t, ParentOf(mod, y))
	assert.True(t, ParentOf(outer, y))
	assert.False(t, ParentOf(y, outer))
	assert.False(t, ParentOf(y, y))
}

func TestStatementOf_ClimbsToEnclosingStatement(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, scopesSrc)
	y := nameNode(t, mod, "y")

	stmt, err := StatementOf(y)
	require.NoError(t, err)
	assert.IsType(t, &Return{}, stmt)

	// A statement is its own statement.
	self, err := StatementOf(stmt)
	require.NoError(t, err)
	assert.Same(t, stmt, self)
}

func TestFrameOf_MethodBodyIsTheMethod(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, scopesSrc)
	selfName := nameNode(t, mod, "self")

	frame := FrameOf(selfName)
	require.IsType(t, &FunctionDef{}, frame)
	assert.Equal(t, "get", frame.(*FunctionDef).Name)

	// A frame kind is its own frame.
	assert.Same(t, frame, FrameOf(frame))
}

func TestScopeOf_LambdaIsAScopeButNotAFrame(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "f = lambda v: v + 1\n")
	v := nameNode(t, mod, "v")

	assert.IsType(t, &Lambda{}, ScopeOf(v))
	assert.Same(t, Frame(mod), FrameOf(v))
}

func TestSiblings_WithinOneBlock(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "a = 1\nb = 2\nc = 3\n")
	assigns := findAll[*Assign](mod)
	require.Len(t, assigns, 3)

	assert.Same(t, Node(assigns[1]), NextSibling(assigns[0]))
	assert.Same(t, Node(assigns[2]), NextSibling(assigns[1]))
	assert.Nil(t, NextSibling(assigns[2]))
	assert.Nil(t, PreviousSibling(assigns[0]))
	assert.Same(t, Node(assigns[0]), PreviousSibling(assigns[1]))
}

func TestSiblings_NormalizeExpressionsToTheirStatement(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "a = 1\nb = a\n")
	a := nameNode(t, mod, "a")

	// The sibling of the expression is the sibling of its statement.
	assert.Nil(t, NextSibling(a))
	prev := PreviousSibling(a)
	require.IsType(t, &Assign{}, prev)
	assert.Equal(t, 1, prev.FromLine())
}

func TestSiblings_AreBranchLocal(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `if cond:
    a = 1
    b = 2
else:
    c = 3
`)
	assigns := findAll[*Assign](mod)
	require.Len(t, assigns, 3)

	// a and b share the then-suite.
	assert.Same(t, Node(assigns[1]), NextSibling(assigns[0]))

	// The last statement of the then-suite does not see the else-suite.
	assert.Nil(t, NextSibling(assigns[1]))
	assert.Nil(t, PreviousSibling(assigns[2]))
}

func TestLastLine_SpansCompoundStatements(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, scopesSrc)
	outer := funcNamed(t, mod, "outer")

	assert.Equal(t, 4, LastLine(outer))
	assert.Equal(t, 8, LastLine(mod))

	// Memoized: a second query returns the same answer.
	assert.Equal(t, 4, LastLine(outer))
}

func TestNearest_PicksGreatestLineNotPastOwn(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "a = 1\nb = 2\nc = 3\nd = 4\n")
	assigns := findAll[*Assign](mod)
	require.Len(t, assigns, 4)

	cands := []Node{assigns[0], assigns[1], assigns[3]}
	assert.Same(t, Node(assigns[1]), Nearest(assigns[2], cands))
	assert.Same(t, Node(assigns[3]), Nearest(assigns[3], cands))
	assert.Nil(t, Nearest(assigns[0], []Node{assigns[1], assigns[3]}))
}

func TestFind_SkippedSubtreeRootIsStillYielded(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, `a = 1
def f():
    inner = 2
b = 3
`)

	var got []Node
	for n := range Find(mod, func(n Node) bool { return n.IsStatement() }, OfType[*FunctionDef]()) {
		got = append(got, n)
	}

	// Two top-level statements plus the def itself; the def body is not
	// entered, so the nested assignment never appears.
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].FromLine())
	assert.IsType(t, &FunctionDef{}, got[1])
	assert.Equal(t, 4, got[2].FromLine())
}

func TestFind_IsRestartableAndLazy(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, "a = 1\nb = 2\n")

	count := 0
	for range Find(mod, OfType[*Assign](), nil) {
		count++
		break // early termination must be safe
	}
	assert.Equal(t, 1, count)

	assert.Len(t, findAll[*Assign](mod), 2)
}

func TestSetLocal_RegistersInNearestFrame(t *testing.T) {
	t.Parallel()
	mod := buildModule(t, scopesSrc)
	outer := funcNamed(t, mod, "outer")

	// The builder registered y against the function, not the module.
	assert.NotEmpty(t, outer.Locals()["y"])
	assert.Empty(t, mod.Locals()["y"])
}
