package arbor

import (
	"database/sql"
	"fmt"

	"github.com/jward/arbor/internal/store"
)

// SymbolDetail is a combined response that bundles a symbol with its
// structural context. One call replaces three separate Store lookups.
type SymbolDetail struct {
	Symbol   store.Symbol     // the symbol itself
	File     string           // owning file path
	Children []*store.Symbol  // directly nested symbols (empty for leaves)
	Bindings []*store.Binding // names bound in the symbol's scope
}

// SymbolDetail returns a combined response with the symbol, its file path,
// its directly nested symbols and the bindings of its scope. Returns nil
// with no error if the symbol ID does not exist.
func (q *QueryBuilder) SymbolDetail(symbolID int64) (*SymbolDetail, error) {
	sym, err := q.store.ScanSymbolRow(q.store.DB().QueryRow(
		"SELECT "+store.SymbolCols+" FROM symbols WHERE id = ?", symbolID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("symbol detail: %w", err)
	}

	var path string
	if err := q.store.DB().QueryRow("SELECT path FROM files WHERE id = ?", sym.FileID).Scan(&path); err != nil {
		return nil, fmt.Errorf("symbol detail: file path: %w", err)
	}

	children, err := q.store.SymbolChildren(symbolID)
	if err != nil {
		return nil, fmt.Errorf("symbol detail: children: %w", err)
	}
	bindings, err := q.store.BindingsByScope(symbolID)
	if err != nil {
		return nil, fmt.Errorf("symbol detail: bindings: %w", err)
	}

	if children == nil {
		children = []*store.Symbol{}
	}
	if bindings == nil {
		bindings = []*store.Binding{}
	}

	return &SymbolDetail{
		Symbol:   *sym,
		File:     path,
		Children: children,
		Bindings: bindings,
	}, nil
}

// SymbolDetailAt is a position-based convenience that resolves the
// innermost symbol at (file, line) and returns its SymbolDetail. Returns
// nil with no error if no symbol covers the position.
func (q *QueryBuilder) SymbolDetailAt(file string, line int) (*SymbolDetail, error) {
	sym, err := q.SymbolAt(file, line)
	if err != nil {
		return nil, fmt.Errorf("symbol detail at: %w", err)
	}
	if sym == nil {
		return nil, nil
	}
	return q.SymbolDetail(sym.ID)
}

// ScopeChainAt returns the symbol chain at a position, ordered from
// innermost to outermost. Finds the innermost symbol covering (file, line),
// then walks parent_symbol_id to the module symbol. Returns a nil slice
// with no error when the file is not indexed.
func (q *QueryBuilder) ScopeChainAt(file string, line int) ([]*store.Symbol, error) {
	sym, err := q.SymbolAt(file, line)
	if err != nil {
		return nil, fmt.Errorf("scope chain at: %w", err)
	}
	if sym == nil {
		return nil, nil
	}

	chain := []*store.Symbol{sym}
	for sym.ParentSymbolID != nil {
		parent, err := q.store.ScanSymbolRow(q.store.DB().QueryRow(
			"SELECT "+store.SymbolCols+" FROM symbols WHERE id = ?", *sym.ParentSymbolID,
		))
		if err != nil {
			return nil, fmt.Errorf("scope chain at: parent: %w", err)
		}
		chain = append(chain, parent)
		sym = parent
	}
	return chain, nil
}
