package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, module, hash, line_count, last_indexed) VALUES (?, ?, ?, ?, ?)",
		f.Path, f.Module, f.Hash, f.LineCount, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

const fileCols = "id, path, module, hash, line_count, last_indexed"

func (s *Store) scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	return f, scanner.Scan(&f.ID, &f.Path, &f.Module, &f.Hash, &f.LineCount, &f.LastIndexed)
}

func (s *Store) FileByPath(path string) (*File, error) {
	f, err := s.scanFile(s.db.QueryRow(
		"SELECT "+fileCols+" FROM files WHERE path = ?", path,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) FileByModule(module string) (*File, error) {
	f, err := s.scanFile(s.db.QueryRow(
		"SELECT "+fileCols+" FROM files WHERE module = ?", module,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by module: %w", err)
	}
	return f, nil
}

func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := s.scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Symbol operations ---

func (s *Store) InsertSymbol(sym *Symbol) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO symbols (file_id, name, kind, from_line, to_line, parent_symbol_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sym.FileID, sym.Name, sym.Kind, sym.FromLine, sym.ToLine, sym.ParentSymbolID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert symbol: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	sym.ID = id
	return id, nil
}

// SymbolCols is the column list for symbol queries, exported for use by
// QueryBuilder.
const SymbolCols = "id, file_id, name, kind, from_line, to_line, parent_symbol_id"

func (s *Store) scanSymbol(scanner interface{ Scan(...any) error }) (*Symbol, error) {
	sym := &Symbol{}
	err := scanner.Scan(
		&sym.ID, &sym.FileID, &sym.Name, &sym.Kind,
		&sym.FromLine, &sym.ToLine, &sym.ParentSymbolID,
	)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// ScanSymbolRow scans a single row into a Symbol. Exported for use by
// QueryBuilder.
func (s *Store) ScanSymbolRow(scanner interface{ Scan(...any) error }) (*Symbol, error) {
	return s.scanSymbol(scanner)
}

func (s *Store) querySymbols(query string, args ...any) ([]*Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var symbols []*Symbol
	for rows.Next() {
		sym, err := s.scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

func (s *Store) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE file_id = ? ORDER BY from_line", fileID)
}

func (s *Store) SymbolsByName(name string) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE name = ?", name)
}

func (s *Store) SymbolsByKind(kind string) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE kind = ?", kind)
}

func (s *Store) SymbolChildren(symbolID int64) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE parent_symbol_id = ? ORDER BY from_line", symbolID)
}

// SymbolAt returns the innermost symbol whose line range covers line in the
// given file, or nil when only the module covers it and no module symbol
// exists.
func (s *Store) SymbolAt(fileID int64, line int) (*Symbol, error) {
	sym, err := s.scanSymbol(s.db.QueryRow(
		`SELECT `+SymbolCols+` FROM symbols
		 WHERE file_id = ? AND from_line <= ? AND to_line >= ?
		 ORDER BY (to_line - from_line) ASC LIMIT 1`,
		fileID, line, line,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("symbol at: %w", err)
	}
	return sym, nil
}

// --- Binding operations ---

func (s *Store) InsertBinding(b *Binding) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO bindings (file_id, scope_symbol_id, name, line, kind)
		 VALUES (?, ?, ?, ?, ?)`,
		b.FileID, b.ScopeSymbolID, b.Name, b.Line, b.Kind,
	)
	if err != nil {
		return 0, fmt.Errorf("insert binding: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	b.ID = id
	return id, nil
}

const bindingCols = "id, file_id, scope_symbol_id, name, line, kind"

func (s *Store) queryBindings(query string, args ...any) ([]*Binding, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bindings []*Binding
	for rows.Next() {
		b := &Binding{}
		if err := rows.Scan(&b.ID, &b.FileID, &b.ScopeSymbolID, &b.Name, &b.Line, &b.Kind); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

func (s *Store) BindingsByFile(fileID int64) ([]*Binding, error) {
	return s.queryBindings("SELECT "+bindingCols+" FROM bindings WHERE file_id = ? ORDER BY line", fileID)
}

func (s *Store) BindingsByName(fileID int64, name string) ([]*Binding, error) {
	return s.queryBindings(
		"SELECT "+bindingCols+" FROM bindings WHERE file_id = ? AND name = ? ORDER BY line",
		fileID, name,
	)
}

func (s *Store) BindingsByScope(scopeSymbolID int64) ([]*Binding, error) {
	return s.queryBindings(
		"SELECT "+bindingCols+" FROM bindings WHERE scope_symbol_id = ? ORDER BY line",
		scopeSymbolID,
	)
}

// --- Inference cache operations ---

func (s *Store) InsertInference(inf *Inference) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO inferences (file_id, name, line, result_kind, result)
		 VALUES (?, ?, ?, ?, ?)`,
		inf.FileID, inf.Name, inf.Line, inf.ResultKind, inf.Result,
	)
	if err != nil {
		return 0, fmt.Errorf("insert inference: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	inf.ID = id
	return id, nil
}

const inferenceCols = "id, file_id, name, line, result_kind, result"

func (s *Store) InferencesAt(fileID int64, line int, name string) ([]*Inference, error) {
	return s.queryInferences(
		"SELECT "+inferenceCols+" FROM inferences WHERE file_id = ? AND line = ? AND name = ? ORDER BY id",
		fileID, line, name,
	)
}

// InferencesByName returns every cached inference for name anywhere in a
// file, ordered by line.
func (s *Store) InferencesByName(fileID int64, name string) ([]*Inference, error) {
	return s.queryInferences(
		"SELECT "+inferenceCols+" FROM inferences WHERE file_id = ? AND name = ? ORDER BY line, id",
		fileID, name,
	)
}

func (s *Store) queryInferences(query string, args ...any) ([]*Inference, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query inferences: %w", err)
	}
	defer rows.Close()
	var infs []*Inference
	for rows.Next() {
		inf := &Inference{}
		if err := rows.Scan(&inf.ID, &inf.FileID, &inf.Name, &inf.Line, &inf.ResultKind, &inf.Result); err != nil {
			return nil, fmt.Errorf("scan inference: %w", err)
		}
		infs = append(infs, inf)
	}
	return infs, rows.Err()
}
