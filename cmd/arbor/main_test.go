package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jward/arbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))

	err := validateFormat("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yaml")
}

func TestParseIntArg(t *testing.T) {
	n, err := parseIntArg("42", "line")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	for _, bad := range []string{"0", "-3", "abc", ""} {
		_, err := parseIntArg(bad, "line")
		require.Error(t, err, "value %q", bad)
		assert.Contains(t, err.Error(), "line")
	}
}

func TestFindRepoRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "src", "pkg")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, root, findRepoRoot(nested))
	assert.Equal(t, root, findRepoRoot(root))

	// Without a .git directory anywhere above, the start dir is returned.
	bare := t.TempDir()
	assert.Equal(t, bare, findRepoRoot(bare))
}

func TestResolveDBPath(t *testing.T) {
	orig := flagDB
	t.Cleanup(func() { flagDB = orig })

	flagDB = ""
	assert.Equal(t, filepath.Join("/repo", ".arbor", "index.db"), resolveDBPath("/repo"))

	flagDB = "custom.db"
	assert.Equal(t, filepath.Join("/repo", "custom.db"), resolveDBPath("/repo"))

	flagDB = "/abs/custom.db"
	assert.Equal(t, "/abs/custom.db", resolveDBPath("/repo"))
}

func TestResolveTargetDir(t *testing.T) {
	dir := t.TempDir()

	got, err := resolveTargetDir([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = resolveTargetDir([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)

	file := filepath.Join(dir, "f.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0o644))
	_, err = resolveTargetDir([]string{file})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestFormatInferredText(t *testing.T) {
	var buf bytes.Buffer
	formatInferredText(&buf, []arbor.InferredValue{
		{Kind: "const", Repr: "Const(1)"},
		{Kind: "instance", Repr: "Instance of app.Greeter"},
	})

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "KIND")
	assert.Contains(t, lines[1], "Const(1)")
	assert.Contains(t, lines[2], "Instance of app.Greeter")
}

func TestFormatSymbolsText(t *testing.T) {
	var buf bytes.Buffer
	formatSymbolsText(&buf, []CLISymbol{
		{ID: 1, Name: "Greeter", Kind: "class", File: "app.py", FromLine: 1, ToLine: 5},
	})

	out := buf.String()
	assert.Contains(t, out, "Greeter")
	assert.Contains(t, out, "1-5")
}

func TestFormatHierarchyText(t *testing.T) {
	var buf bytes.Buffer
	formatHierarchyText(&buf, CLIHierarchy{
		Class:      "Dog",
		Bases:      []string{"Animal"},
		Subclasses: []string{"Puppy", "Stray"},
	})

	out := buf.String()
	assert.Contains(t, out, "Class: Dog")
	assert.Contains(t, out, "Bases: Animal")
	assert.Contains(t, out, "Subclasses: Puppy, Stray")

	buf.Reset()
	formatHierarchyText(&buf, CLIHierarchy{Class: "Animal"})
	assert.Equal(t, "Class: Animal\n", buf.String())
}
