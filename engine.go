package arbor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jward/arbor/internal/store"
)

// Engine orchestrates the arbor pipeline: file discovery, change detection,
// tree building, cross-module resolution, and query access. The built module
// trees stay in memory; the SQLite index holds the queryable projection
// (files, symbols, bindings) and the inference cache.
type Engine struct {
	store   *store.Store
	builder *Builder

	skipDirs map[string]bool
	useCache bool

	mu      sync.RWMutex
	modules map[string]*Module // by importable module name
	byPath  map[string]*Module // by absolute file path
}

// Option configures an Engine.
type Option func(*Engine)

// WithSkipDirs replaces the default set of directory names excluded from
// discovery walks.
func WithSkipDirs(names ...string) Option {
	return func(e *Engine) {
		e.skipDirs = make(map[string]bool, len(names))
		for _, name := range names {
			e.skipDirs[name] = true
		}
	}
}

// WithInferenceCache controls persistence of inference results. When true
// (default), InferName writes its results to the inferences table and
// answers repeat queries from it.
func WithInferenceCache(enabled bool) Option {
	return func(e *Engine) {
		e.useCache = enabled
	}
}

// defaultSkipDirs are directory names excluded from filesystem walks.
var defaultSkipDirs = map[string]bool{
	"__pycache__":  true,
	"node_modules": true,
	"venv":         true,
	".venv":        true,
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("arbor: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("arbor: migrate: %w", err)
	}

	e := &Engine{
		store:    s,
		builder:  NewBuilder(),
		skipDirs: defaultSkipDirs,
		useCache: true,
		modules:  make(map[string]*Module),
		byPath:   make(map[string]*Module),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// ResolveModule satisfies ModuleResolver over the indexed set. Dotted names
// fall back to their top-level package.
func (e *Engine) ResolveModule(name string) *Module {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if mod, ok := e.modules[name]; ok {
		return mod
	}
	if head, _, found := strings.Cut(name, "."); found {
		return e.modules[head]
	}
	return nil
}

// ModuleByPath returns the built module tree for an indexed file path.
func (e *Engine) ModuleByPath(path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("arbor: resolve path %q: %w", path, err)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	mod, ok := e.byPath[abs]
	if !ok {
		return nil, fmt.Errorf("arbor: module for %s: %w", path, ErrNotFound)
	}
	return mod, nil
}

// ModuleByName returns the built module tree for an importable module name.
func (e *Engine) ModuleByName(name string) (*Module, error) {
	if mod := e.ResolveModule(name); mod != nil {
		return mod, nil
	}
	return nil, fmt.Errorf("arbor: module %q: %w", name, ErrNotFound)
}

// IndexDirectory walks root and indexes all Python files. If root is inside
// a git repository, uses git ls-files to respect .gitignore. Falls back to a
// filesystem walk (skipping hidden dirs and the skip set) when git is
// unavailable.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.gitListFiles(root)
	if err != nil {
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	return e.IndexFiles(ctx, paths)
}

// IndexFiles indexes the given file paths. For each file:
//  1. Read and hash the content
//  2. Parse and build the module tree (always, for in-memory resolution)
//  3. Skip database writes for unchanged files (same content hash)
//  4. Delete stale rows, insert the file record, persist symbols and bindings
//
// Errors on individual files are collected; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.indexFile(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) indexFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	mod, err := e.builder.BuildSource(ctx, content, abs)
	if err != nil {
		return err
	}
	mod.SetResolver(e)

	e.mu.Lock()
	e.modules[mod.Name] = mod
	e.byPath[abs] = mod
	e.mu.Unlock()

	existing, err := e.store.FileByPath(abs)
	if err != nil {
		return fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return nil // unchanged
	}
	if existing != nil {
		if err := e.store.DeleteFileData(existing.ID); err != nil {
			return fmt.Errorf("delete old data: %w", err)
		}
		if _, err := e.store.DB().Exec("DELETE FROM files WHERE id = ?", existing.ID); err != nil {
			return fmt.Errorf("delete file record: %w", err)
		}
	}

	lineCount := bytes.Count(content, []byte{'\n'}) + 1
	fileID, err := e.store.InsertFile(&store.File{
		Path:        abs,
		Module:      mod.Name,
		Hash:        hash,
		LineCount:   lineCount,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}

	if err := e.persistScope(fileID, mod, nil); err != nil {
		return fmt.Errorf("persist symbols: %w", err)
	}
	return nil
}

// persistScope writes one scope's symbol row and bindings, then recurses
// into its directly nested scopes.
func (e *Engine) persistScope(fileID int64, sc Scope, parentID *int64) error {
	sym := &store.Symbol{
		FileID:         fileID,
		Name:           scopeName(sc),
		Kind:           scopeKind(sc),
		FromLine:       sc.FromLine(),
		ToLine:         LastLine(sc),
		ParentSymbolID: parentID,
	}
	id, err := e.store.InsertSymbol(sym)
	if err != nil {
		return err
	}

	for name, stmts := range sc.Locals() {
		for _, stmt := range stmts {
			scopeID := id
			if _, err := e.store.InsertBinding(&store.Binding{
				FileID:        fileID,
				ScopeSymbolID: &scopeID,
				Name:          name,
				Line:          stmt.FromLine(),
				Kind:          bindingKind(stmt),
			}); err != nil {
				return err
			}
		}
	}

	for _, child := range childScopes(sc) {
		if err := e.persistScope(fileID, child, &id); err != nil {
			return err
		}
	}
	return nil
}

// childScopes returns the scopes directly nested inside sc, not entering
// deeper scope levels.
func childScopes(sc Scope) []Scope {
	var out []Scope
	isScope := func(n Node) bool {
		_, ok := n.(Scope)
		return ok
	}
	for n := range Find(sc, isScope, isScope) {
		if n == Node(sc) {
			continue
		}
		out = append(out, n.(Scope))
	}
	return out
}

func scopeName(sc Scope) string {
	switch t := sc.(type) {
	case *Module:
		return t.Name
	case *FunctionDef:
		return t.Name
	case *ClassDef:
		return t.Name
	case *Lambda:
		return "<lambda>"
	case *GenExp:
		return "<genexpr>"
	}
	return ""
}

func scopeKind(sc Scope) string {
	switch t := sc.(type) {
	case *Module:
		return "module"
	case *FunctionDef:
		return t.Kind
	case *ClassDef:
		return "class"
	case *Lambda:
		return "lambda"
	case *GenExp:
		return "genexpr"
	}
	return ""
}

// bindingKind classifies the statement form that performed a binding.
func bindingKind(stmt Node) string {
	switch stmt.(type) {
	case *Assign:
		return "assign"
	case *Arguments:
		return "param"
	case *AssignName:
		return "for"
	case *AugAssign:
		return "augassign"
	case *FunctionDef:
		return "def"
	case *ClassDef:
		return "class"
	case *Import, *ImportFrom:
		return "import"
	case *Global:
		return "global"
	case *TryExcept:
		return "except"
	case *For:
		return "for"
	case *With:
		return "with"
	}
	return "assign"
}

// InferredValue is one result of a name inference query.
type InferredValue struct {
	Kind string `json:"kind"`
	Repr string `json:"repr"`
}

// InferName resolves name as seen from the innermost node covering line in
// the given file and infers every binding candidate. Results are cached in
// the inferences table when the cache is enabled.
func (e *Engine) InferName(path string, line int, name string) ([]InferredValue, error) {
	mod, err := e.ModuleByPath(path)
	if err != nil {
		return nil, err
	}

	var fileID int64
	if e.useCache {
		f, err := e.store.FileByPath(mod.Path)
		if err != nil {
			return nil, fmt.Errorf("arbor: lookup file: %w", err)
		}
		if f != nil {
			fileID = f.ID
			cached, err := e.store.InferencesAt(fileID, line, name)
			if err != nil {
				return nil, fmt.Errorf("arbor: inference cache: %w", err)
			}
			if len(cached) > 0 {
				out := make([]InferredValue, len(cached))
				for i, c := range cached {
					out[i] = InferredValue{Kind: c.ResultKind, Repr: c.Result}
				}
				return out, nil
			}
		}
	}

	node := NodeAt(mod, line)
	var values []Value
	for v, err := range InferName(node, name) {
		if err != nil {
			return nil, fmt.Errorf("arbor: infer %q at %s:%d: %w", name, path, line, err)
		}
		values = append(values, v)
	}

	out := make([]InferredValue, len(values))
	for i, v := range values {
		kind, repr := describeValue(v)
		out[i] = InferredValue{Kind: kind, Repr: repr}
	}

	if e.useCache && fileID != 0 {
		for _, iv := range out {
			if _, err := e.store.InsertInference(&store.Inference{
				FileID:     fileID,
				Name:       name,
				Line:       line,
				ResultKind: iv.Kind,
				Result:     iv.Repr,
			}); err != nil {
				return nil, fmt.Errorf("arbor: cache inference: %w", err)
			}
		}
	}
	return out, nil
}

// BlockRange returns the (from, to) line range of the block containing line
// within the statement covering line in the given file.
func (e *Engine) BlockRange(path string, line int) (int, int, error) {
	mod, err := e.ModuleByPath(path)
	if err != nil {
		return 0, 0, err
	}
	node := NodeAt(mod, line)
	from, to := BlockRange(blockOwner(node), line)
	return from, to, nil
}

// blockOwner walks up from n to the nearest ancestor with block-range
// structure: a branching statement, or failing that the enclosing
// definition or module.
func blockOwner(n Node) Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		switch cur.(type) {
		case *If, *TryExcept, *TryFinally, *For, *While,
			*FunctionDef, *ClassDef, *Module:
			return cur
		}
	}
	return n
}

// NodeAt returns the innermost node of mod whose line span covers line,
// or mod itself when no child does.
func NodeAt(mod *Module, line int) Node {
	var cur Node = mod
	for {
		var next Node
		for _, c := range cur.Children() {
			if c.FromLine() <= line && line <= LastLine(c) {
				next = c
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// describeValue classifies an inferred value for display and storage.
func describeValue(v Value) (kind, repr string) {
	switch t := v.(type) {
	case *UnknownValue:
		return "unknown", "Unknown"
	case *Module:
		return "module", t.String()
	case *ClassDef:
		return "class", t.String()
	case *FunctionDef:
		return "function", t.String()
	case *Lambda:
		return "lambda", "<lambda>"
	case *GenExp:
		return "genexpr", "<genexpr>"
	case *Instance:
		return "instance", t.String()
	case *BoundMethod:
		return "bound_method", t.String()
	case *Generator:
		return "generator", t.String()
	case *Const:
		return "const", t.String()
	case *NoneConst:
		return "const", t.String()
	case *BoolConst:
		return "const", t.String()
	case *Tuple:
		return "tuple", "Tuple"
	case *List:
		return "list", "List"
	case *Dict:
		return "dict", "Dict"
	case fmt.Stringer:
		return "node", t.String()
	}
	return "node", fmt.Sprintf("%T", v)
}

// isPythonFile reports whether path has a Python source extension.
func isPythonFile(path string) bool {
	return strings.HasSuffix(path, ".py")
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) Python files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if isPythonFile(absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers Python files by walking the filesystem, used as a
// fallback when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			if e.skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if isPythonFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
