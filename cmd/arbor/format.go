package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jward/arbor"
)

// outputResult writes the result envelope to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError emits the error through the normal output path so JSON
// consumers get a structured envelope, then returns the error for the exit
// code.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// outputResultText dispatches to the appropriate text formatter based on
// the result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []arbor.InferredValue:
		formatInferredText(w, v)
	case []CLISymbol:
		formatSymbolsText(w, v)
	case CLISymbolDetail:
		formatSymbolDetailText(w, v)
	case []CLIBinding:
		formatBindingsText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case CLIBlockRange:
		fmt.Fprintf(w, "%s:%d block %d-%d\n", v.File, v.Line, v.FromLine, v.ToLine)
	case CLIHierarchy:
		formatHierarchyText(w, v)
	case nil:
		// No output for nil results (e.g., symbol-at with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatInferredText formats inference results as "kind  repr" lines.
func formatInferredText(w io.Writer, values []arbor.InferredValue) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tVALUE")
	for _, v := range values {
		fmt.Fprintf(tw, "%s\t%s\n", v.Kind, v.Repr)
	}
	tw.Flush()
}

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tFILE\tLINES")
	for _, s := range syms {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d-%d\n",
			s.ID, s.Name, s.Kind, s.File, s.FromLine, s.ToLine)
	}
	tw.Flush()
}

func formatSymbolDetailText(w io.Writer, d CLISymbolDetail) {
	fmt.Fprintf(w, "%s (%s) %s:%d-%d\n",
		d.Symbol.Name, d.Symbol.Kind, d.Symbol.File, d.Symbol.FromLine, d.Symbol.ToLine)
	if len(d.Children) > 0 {
		fmt.Fprintln(w, "Nested:")
		for _, c := range d.Children {
			fmt.Fprintf(w, "  %s (%s) lines %d-%d\n", c.Name, c.Kind, c.FromLine, c.ToLine)
		}
	}
	if len(d.Bindings) > 0 {
		fmt.Fprintln(w, "Bindings:")
		for _, b := range d.Bindings {
			fmt.Fprintf(w, "  %s (%s) line %d\n", b.Name, b.Kind, b.Line)
		}
	}
}

// formatBindingsText formats CLIBinding results as aligned columns.
func formatBindingsText(w io.Writer, bindings []CLIBinding) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tLINE")
	for _, b := range bindings {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", b.Name, b.Kind, b.Line)
	}
	tw.Flush()
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tMODULE\tLINES")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", f.ID, f.Path, f.Module, f.LineCount)
	}
	tw.Flush()
}

func formatHierarchyText(w io.Writer, h CLIHierarchy) {
	fmt.Fprintf(w, "Class: %s\n", h.Class)
	if len(h.Bases) > 0 {
		fmt.Fprintf(w, "Bases: %s\n", strings.Join(h.Bases, ", "))
	}
	if len(h.Subclasses) > 0 {
		fmt.Fprintf(w, "Subclasses: %s\n", strings.Join(h.Subclasses, ", "))
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
