package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jward/arbor"
	"github.com/jward/arbor/internal/store"
	"github.com/spf13/cobra"
)

// --- Helpers ---

// openStore opens the Store from the --db flag path (or default) for
// read-only queries against the persisted index.
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)
	dbPath := resolveDBPath(repoRoot)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'arbor index' first)", dbPath)
	}

	return store.NewStore(dbPath)
}

// openEngine creates an Engine and rebuilds the in-memory trees for the
// repository enclosing the current directory. Inference commands need the
// trees; unchanged files skip their database writes.
func openEngine(ctx context.Context) (*arbor.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)
	dbPath := resolveDBPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	engine, err := arbor.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	if err := engine.IndexDirectory(ctx, repoRoot); err != nil {
		engine.Close()
		return nil, fmt.Errorf("building trees: %w", err)
	}
	return engine, nil
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as a positive integer with a
// clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, value)
	}
	return n, nil
}

// --- infer ---

var inferCmd = &cobra.Command{
	Use:   "infer <file> <line> <name>",
	Short: "Infer the possible values of a name at a position",
	Long:  "Resolves the name through the lexical scope chain as seen from the given line and infers every binding candidate. Lines are 1-based.",
	Args:  cobra.ExactArgs(3),
	RunE:  runInfer,
}

func runInfer(cmd *cobra.Command, args []string) error {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return err
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return err
	}
	name := args[2]

	engine, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer engine.Close()

	values, err := engine.InferName(file, line, name)
	if err != nil {
		return outputError("infer", err)
	}
	return outputResult(CLIResult{Command: "infer", Results: values})
}

// --- block ---

var blockCmd = &cobra.Command{
	Use:   "block <file> <line>",
	Short: "Report the block line range containing a position",
	Long:  "Returns the (from, to) line range of the suite containing the given line within its enclosing statement. Lines are 1-based.",
	Args:  cobra.ExactArgs(2),
	RunE:  runBlock,
}

func runBlock(cmd *cobra.Command, args []string) error {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return err
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return err
	}

	engine, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer engine.Close()

	from, to, err := engine.BlockRange(file, line)
	if err != nil {
		return outputError("block", err)
	}
	return outputResult(CLIResult{
		Command: "block",
		Results: CLIBlockRange{File: file, Line: line, FromLine: from, ToLine: to},
	})
}

// --- hierarchy ---

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <file> <line>",
	Short: "Show the inheritance hierarchy of the class at a position",
	Args:  cobra.ExactArgs(2),
	RunE:  runHierarchy,
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return err
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return err
	}

	engine, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer engine.Close()

	h, err := engine.ClassHierarchy(file, line)
	if err != nil {
		return outputError("hierarchy", err)
	}
	return outputResult(CLIResult{Command: "hierarchy", Results: toCLIHierarchy(h)})
}

// --- query ---

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the persisted index",
	Long:  "Run queries against an indexed codebase. All line numbers are 1-based.",
}

func init() {
	queryCmd.AddCommand(symbolAtCmd)
	queryCmd.AddCommand(symbolsCmd)
	queryCmd.AddCommand(bindingsCmd)
	queryCmd.AddCommand(filesCmd)
}

var symbolAtCmd = &cobra.Command{
	Use:   "symbol-at <file> <line>",
	Short: "Find the innermost definition covering a position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := resolveFilePath(args[0])
		if err != nil {
			return err
		}
		line, err := parseIntArg(args[1], "line")
		if err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		qb := arbor.NewQueryBuilder(s)
		detail, err := qb.SymbolDetailAt(file, line)
		if err != nil {
			return outputError("symbol-at", err)
		}
		if detail == nil {
			return outputResult(CLIResult{Command: "symbol-at", Results: nil})
		}
		return outputResult(CLIResult{Command: "symbol-at", Results: toCLISymbolDetail(detail)})
	},
}

var flagKind string

var symbolsCmd = &cobra.Command{
	Use:   "symbols [name]",
	Short: "List symbols by name or kind",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		qb := arbor.NewQueryBuilder(s)
		var syms []*arbor.Symbol
		switch {
		case len(args) == 1:
			syms, err = qb.SymbolsByName(args[0])
		case flagKind != "":
			syms, err = qb.SymbolsByKind(flagKind)
		default:
			return fmt.Errorf("requires a name argument or --kind flag")
		}
		if err != nil {
			return outputError("symbols", err)
		}
		return outputResult(CLIResult{Command: "symbols", Results: toCLISymbols(qb, syms)})
	},
}

func init() {
	symbolsCmd.Flags().StringVar(&flagKind, "kind", "", "filter by kind: module|class|function|method|staticmethod|classmethod|lambda|genexpr")
}

var bindingsCmd = &cobra.Command{
	Use:   "bindings <file> <name>",
	Short: "List every binding of a name in a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := resolveFilePath(args[0])
		if err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		qb := arbor.NewQueryBuilder(s)
		bindings, err := qb.BindingsOf(file, args[1])
		if err != nil {
			return outputError("bindings", err)
		}
		out := make([]CLIBinding, 0, len(bindings))
		for _, b := range bindings {
			out = append(out, CLIBinding{Name: b.Name, Line: b.Line, Kind: b.Kind})
		}
		return outputResult(CLIResult{Command: "bindings", Results: out})
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		qb := arbor.NewQueryBuilder(s)
		files, err := qb.Files()
		if err != nil {
			return outputError("files", err)
		}
		out := make([]CLIFile, 0, len(files))
		for _, f := range files {
			out = append(out, CLIFile{ID: f.ID, Path: f.Path, Module: f.Module, LineCount: f.LineCount})
		}
		return outputResult(CLIResult{Command: "files", Results: out})
	},
}
