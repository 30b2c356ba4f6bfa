package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func insertTestFile(t *testing.T, s *Store, path, module string) int64 {
	t.Helper()
	id, err := s.InsertFile(&File{
		Path:        path,
		Module:      module,
		Hash:        "abc123",
		LineCount:   10,
		LastIndexed: time.Now(),
	})
	require.NoError(t, err)
	return id
}

func insertTestSymbol(t *testing.T, s *Store, fileID int64, name, kind string, from, to int, parent *int64) int64 {
	t.Helper()
	id, err := s.InsertSymbol(&Symbol{
		FileID:         fileID,
		Name:           name,
		Kind:           kind,
		FromLine:       from,
		ToLine:         to,
		ParentSymbolID: parent,
	})
	require.NoError(t, err)
	return id
}

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "symbols", "bindings", "inferences", "metadata"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.Migrate())
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

func TestInsertFile_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	id := insertTestFile(t, s, "/src/app.py", "app")
	require.NotZero(t, id)

	f, err := s.FileByPath("/src/app.py")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, id, f.ID)
	assert.Equal(t, "app", f.Module)
	assert.Equal(t, "abc123", f.Hash)
	assert.Equal(t, 10, f.LineCount)

	byMod, err := s.FileByModule("app")
	require.NoError(t, err)
	require.NotNil(t, byMod)
	assert.Equal(t, id, byMod.ID)
}

func TestFileByPath_MissReturnsNil(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f, err := s.FileByPath("/nope.py")
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = s.FileByModule("nope")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestFiles_OrderedByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "/src/b.py", "b")
	insertTestFile(t, s, "/src/a.py", "a")

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/src/a.py", files[0].Path)
	assert.Equal(t, "/src/b.py", files[1].Path)
}

// ---------------------------------------------------------------------------
// Symbols
// ---------------------------------------------------------------------------

func TestSymbols_NestingAndQueries(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	fileID := insertTestFile(t, s, "/src/app.py", "app")

	modID := insertTestSymbol(t, s, fileID, "app", "module", 1, 10, nil)
	clsID := insertTestSymbol(t, s, fileID, "Greeter", "class", 1, 5, ptr(modID))
	insertTestSymbol(t, s, fileID, "greet", "method", 2, 3, ptr(clsID))
	insertTestSymbol(t, s, fileID, "main", "function", 7, 9, ptr(modID))

	byFile, err := s.SymbolsByFile(fileID)
	require.NoError(t, err)
	assert.Len(t, byFile, 4)

	byName, err := s.SymbolsByName("Greeter")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "class", byName[0].Kind)

	byKind, err := s.SymbolsByKind("method")
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, "greet", byKind[0].Name)

	kids, err := s.SymbolChildren(modID)
	require.NoError(t, err)
	require.Len(t, kids, 2)
	assert.Equal(t, "Greeter", kids[0].Name)
	assert.Equal(t, "main", kids[1].Name)
}

func TestSymbolAt_PicksTheNarrowestCoveringSpan(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	fileID := insertTestFile(t, s, "/src/app.py", "app")

	modID := insertTestSymbol(t, s, fileID, "app", "module", 1, 10, nil)
	clsID := insertTestSymbol(t, s, fileID, "Greeter", "class", 1, 5, ptr(modID))
	insertTestSymbol(t, s, fileID, "greet", "method", 2, 3, ptr(clsID))

	sym, err := s.SymbolAt(fileID, 2)
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, "greet", sym.Name)

	sym, err = s.SymbolAt(fileID, 5)
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, "Greeter", sym.Name)

	sym, err = s.SymbolAt(fileID, 99)
	require.NoError(t, err)
	assert.Nil(t, sym)
}

// ---------------------------------------------------------------------------
// Bindings
// ---------------------------------------------------------------------------

func TestBindings_QueriesByFileNameAndScope(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	fileID := insertTestFile(t, s, "/src/app.py", "app")
	modID := insertTestSymbol(t, s, fileID, "app", "module", 1, 10, nil)
	fnID := insertTestSymbol(t, s, fileID, "main", "function", 3, 6, ptr(modID))

	for _, b := range []*Binding{
		{FileID: fileID, ScopeSymbolID: ptr(modID), Name: "x", Line: 1, Kind: "assign"},
		{FileID: fileID, ScopeSymbolID: ptr(fnID), Name: "x", Line: 4, Kind: "assign"},
		{FileID: fileID, ScopeSymbolID: ptr(fnID), Name: "y", Line: 5, Kind: "assign"},
	} {
		_, err := s.InsertBinding(b)
		require.NoError(t, err)
	}

	all, err := s.BindingsByFile(fileID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	xs, err := s.BindingsByName(fileID, "x")
	require.NoError(t, err)
	require.Len(t, xs, 2)
	assert.Equal(t, 1, xs[0].Line)
	assert.Equal(t, 4, xs[1].Line)

	scoped, err := s.BindingsByScope(fnID)
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	assert.Equal(t, "x", scoped[0].Name)
	assert.Equal(t, "y", scoped[1].Name)
}

// ---------------------------------------------------------------------------
// Inferences
// ---------------------------------------------------------------------------

func TestInferences_KeyedByFileLineName(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	fileID := insertTestFile(t, s, "/src/app.py", "app")

	_, err := s.InsertInference(&Inference{
		FileID: fileID, Name: "x", Line: 3, ResultKind: "const", Result: "Const(1)",
	})
	require.NoError(t, err)
	_, err = s.InsertInference(&Inference{
		FileID: fileID, Name: "x", Line: 3, ResultKind: "const", Result: "Const(2)",
	})
	require.NoError(t, err)

	got, err := s.InferencesAt(fileID, 3, "x")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Const(1)", got[0].Result)
	assert.Equal(t, "Const(2)", got[1].Result)

	none, err := s.InferencesAt(fileID, 4, "x")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInferencesByName_SpansLines(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	fileID := insertTestFile(t, s, "/src/app.py", "app")

	for _, inf := range []*Inference{
		{FileID: fileID, Name: "x", Line: 8, ResultKind: "const", Result: "Const(2)"},
		{FileID: fileID, Name: "x", Line: 3, ResultKind: "const", Result: "Const(1)"},
		{FileID: fileID, Name: "y", Line: 3, ResultKind: "unknown", Result: "Unknown"},
	} {
		_, err := s.InsertInference(inf)
		require.NoError(t, err)
	}

	got, err := s.InferencesByName(fileID, "x")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Line)
	assert.Equal(t, 8, got[1].Line)
}

// ---------------------------------------------------------------------------
// Deletion and metadata
// ---------------------------------------------------------------------------

func TestDeleteFileData_RemovesEverythingButTheFileRow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	fileID := insertTestFile(t, s, "/src/app.py", "app")
	modID := insertTestSymbol(t, s, fileID, "app", "module", 1, 10, nil)
	insertTestSymbol(t, s, fileID, "main", "function", 2, 4, ptr(modID))

	_, err := s.InsertBinding(&Binding{FileID: fileID, ScopeSymbolID: ptr(modID), Name: "x", Line: 1, Kind: "assign"})
	require.NoError(t, err)
	_, err = s.InsertInference(&Inference{FileID: fileID, Name: "x", Line: 1, ResultKind: "const", Result: "Const(1)"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteFileData(fileID))

	syms, err := s.SymbolsByFile(fileID)
	require.NoError(t, err)
	assert.Empty(t, syms)

	bindings, err := s.BindingsByFile(fileID)
	require.NoError(t, err)
	assert.Empty(t, bindings)

	infs, err := s.InferencesAt(fileID, 1, "x")
	require.NoError(t, err)
	assert.Empty(t, infs)

	f, err := s.FileByPath("/src/app.py")
	require.NoError(t, err)
	assert.NotNil(t, f, "the file row is the caller's to remove")
}

func TestMetadata_UpsertAndMiss(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("schema_version")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.SetMetadata("schema_version", "1"))
	require.NoError(t, s.SetMetadata("schema_version", "2"))

	v, err = s.GetMetadata("schema_version")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}
