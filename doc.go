// Package arbor provides best-effort static value inference for Python
// source, built on tree-sitter. It turns concrete syntax trees into an
// owned, scope-aware node model and resolves what names and expressions
// may evaluate to without executing any code.
//
// # Pipeline
//
// Arbor operates in two phases:
//
//  1. Build: For each source file, parse with tree-sitter, convert the CST
//     into arbor's node tree (parent links, line metadata, local-binding
//     tables, method and generator classification), and write the file,
//     symbol and binding records to SQLite.
//
//  2. Infer: On demand, resolve a name from any point in a tree through the
//     lexical scope chain and infer every binding candidate. Inference is
//     lazy, cycle-guarded and best-effort: what cannot be determined comes
//     back as the Unknown sentinel rather than an error.
//
// # Usage
//
// Create an Engine, index source files, and query:
//
//	e, err := arbor.New("arbor.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/project")
//
//	values, err := e.InferName("pkg/mod.py", 42, "client")
//	from, to, err := e.BlockRange("pkg/mod.py", 42)
//
// The node model is usable directly: [Engine.ModuleByPath] returns the
// built tree, and package functions ([Lookup], [InferName], [BlockRange],
// [Find], [StatementOf], [NextSibling]) operate on any node.
//
// # Inference results
//
// [Value.Infer] yields (value, error) pairs lazily. A result may be a
// syntax node (a class, function, constant or module is its own inferred
// value) or a runtime proxy: [Instance], [BoundMethod], [Generator], or the
// absorbing [Unknown] sentinel. Failures are typed: ErrNotFound and
// ErrUnresolvable mark candidates that cannot resolve at all, ErrInference
// marks constructs whose value cannot be determined.
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] reads the SQLite
// projection:
//
//   - [QueryBuilder.SymbolAt]: innermost definition covering a position.
//   - [QueryBuilder.SymbolsByName], [QueryBuilder.SymbolsByKind],
//     [QueryBuilder.SymbolsInFile]: symbol listings.
//   - [QueryBuilder.BindingsOf]: every binding of a name in a file.
//   - [QueryBuilder.Files]: the indexed file set.
//
// # Incremental Indexing
//
// [Engine.IndexFiles] detects unchanged files via content hashing and skips
// their database writes. Trees are rebuilt in memory on every run; the
// inferences table caches query results and is invalidated with its file.
package arbor
