package arbor

import (
	"fmt"

	"github.com/jward/arbor/internal/store"
)

// QueryBuilder provides a read-only query API over the Store.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder wraps an already-open Store for direct query access,
// bypassing the Engine.
func NewQueryBuilder(s *store.Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// Location represents a source line range.
type Location struct {
	File     string
	FromLine int
	ToLine   int
}

// SymbolAt returns the innermost symbol covering line in the given file, or
// nil when the file is not indexed.
func (q *QueryBuilder) SymbolAt(file string, line int) (*Symbol, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("symbol at: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	sym, err := q.store.SymbolAt(f.ID, line)
	if err != nil {
		return nil, fmt.Errorf("symbol at: %w", err)
	}
	return sym, nil
}

// SymbolsByName returns all symbols with the given name across the index.
func (q *QueryBuilder) SymbolsByName(name string) ([]*Symbol, error) {
	syms, err := q.store.SymbolsByName(name)
	if err != nil {
		return nil, fmt.Errorf("symbols by name: %w", err)
	}
	return syms, nil
}

// SymbolsByKind returns all symbols of the given kind (module, class,
// function, method, staticmethod, classmethod, lambda, genexpr).
func (q *QueryBuilder) SymbolsByKind(kind string) ([]*Symbol, error) {
	syms, err := q.store.SymbolsByKind(kind)
	if err != nil {
		return nil, fmt.Errorf("symbols by kind: %w", err)
	}
	return syms, nil
}

// SymbolsInFile returns all symbols of one file in line order.
func (q *QueryBuilder) SymbolsInFile(file string) ([]*Symbol, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("symbols in file: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	syms, err := q.store.SymbolsByFile(f.ID)
	if err != nil {
		return nil, fmt.Errorf("symbols in file: %w", err)
	}
	return syms, nil
}

// Children returns the symbols nested directly inside the given symbol.
func (q *QueryBuilder) Children(symbolID int64) ([]*Symbol, error) {
	return q.store.SymbolChildren(symbolID)
}

// BindingsOf returns every binding of name in the given file, in line order.
func (q *QueryBuilder) BindingsOf(file, name string) ([]*Binding, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("bindings of: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	bindings, err := q.store.BindingsByName(f.ID, name)
	if err != nil {
		return nil, fmt.Errorf("bindings of: %w", err)
	}
	return bindings, nil
}

// InferredValues returns every cached inference result for name in the
// given file, in line order. Only queries the cache; use
// [Engine.InferName] to compute fresh results.
func (q *QueryBuilder) InferredValues(file, name string) ([]*Inference, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("inferred values: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	infs, err := q.store.InferencesByName(f.ID, name)
	if err != nil {
		return nil, fmt.Errorf("inferred values: %w", err)
	}
	return infs, nil
}

// Files returns all indexed files in path order.
func (q *QueryBuilder) Files() ([]*File, error) {
	return q.store.Files()
}

// SymbolLocation resolves a symbol ID to its file path and line range.
func (q *QueryBuilder) SymbolLocation(symbolID int64) (*Location, error) {
	sym, err := q.store.ScanSymbolRow(q.store.DB().QueryRow(
		"SELECT "+store.SymbolCols+" FROM symbols WHERE id = ?", symbolID,
	))
	if err != nil {
		return nil, fmt.Errorf("symbol location: %w", err)
	}

	var path string
	if err := q.store.DB().QueryRow("SELECT path FROM files WHERE id = ?", sym.FileID).Scan(&path); err != nil {
		return nil, fmt.Errorf("symbol location: file path: %w", err)
	}

	return &Location{
		File:     path,
		FromLine: sym.FromLine,
		ToLine:   sym.ToLine,
	}, nil
}
