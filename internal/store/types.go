package store

import "time"

// File is one indexed source file.
type File struct {
	ID          int64
	Path        string
	Module      string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

// Symbol is a scope-opening definition: a module, class, function, method
// or lambda. Nesting is recorded through ParentSymbolID.
type Symbol struct {
	ID             int64
	FileID         int64
	Name           string
	Kind           string
	FromLine       int
	ToLine         int
	ParentSymbolID *int64
}

// Binding is one name-binding occurrence inside a symbol's scope. Kind names
// the binding statement form (assign, def, class, import, param, global,
// except, for, with, augassign).
type Binding struct {
	ID            int64
	FileID        int64
	ScopeSymbolID *int64
	Name          string
	Line          int
	Kind          string
}

// Inference is one cached inference result for a (file, line, name) query.
// Result is the printable form of the inferred value; ResultKind classifies
// it (class, function, instance, const, module, unknown, ...).
type Inference struct {
	ID         int64
	FileID     int64
	Name       string
	Line       int
	ResultKind string
	Result     string
}
