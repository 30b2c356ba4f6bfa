package main

import "github.com/jward/arbor"

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLISymbol is a JSON-friendly symbol representation.
type CLISymbol struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	File     string `json:"file,omitempty"`
	FromLine int    `json:"from_line"`
	ToLine   int    `json:"to_line"`
}

// CLISymbolDetail bundles a symbol with its nested symbols and bindings.
type CLISymbolDetail struct {
	Symbol   CLISymbol    `json:"symbol"`
	Children []CLISymbol  `json:"children"`
	Bindings []CLIBinding `json:"bindings"`
}

// CLIBinding is a JSON-friendly binding representation.
type CLIBinding struct {
	Name string `json:"name"`
	Line int    `json:"line"`
	Kind string `json:"kind"`
}

// CLIFile is a JSON-friendly file representation.
type CLIFile struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Module    string `json:"module"`
	LineCount int    `json:"line_count"`
}

// CLIBlockRange is the result of a block query.
type CLIBlockRange struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	FromLine int    `json:"from_line"`
	ToLine   int    `json:"to_line"`
}

// CLIHierarchy is a JSON-friendly class hierarchy representation.
type CLIHierarchy struct {
	Class      string   `json:"class"`
	Bases      []string `json:"bases"`
	Subclasses []string `json:"subclasses"`
}

func toCLISymbol(qb *arbor.QueryBuilder, sym *arbor.Symbol) CLISymbol {
	out := CLISymbol{
		ID:       sym.ID,
		Name:     sym.Name,
		Kind:     sym.Kind,
		FromLine: sym.FromLine,
		ToLine:   sym.ToLine,
	}
	if loc, err := qb.SymbolLocation(sym.ID); err == nil && loc != nil {
		out.File = loc.File
	}
	return out
}

func toCLISymbols(qb *arbor.QueryBuilder, syms []*arbor.Symbol) []CLISymbol {
	out := make([]CLISymbol, 0, len(syms))
	for _, sym := range syms {
		out = append(out, toCLISymbol(qb, sym))
	}
	return out
}

func toCLISymbolDetail(detail *arbor.SymbolDetail) CLISymbolDetail {
	out := CLISymbolDetail{
		Symbol: CLISymbol{
			ID:       detail.Symbol.ID,
			Name:     detail.Symbol.Name,
			Kind:     detail.Symbol.Kind,
			File:     detail.File,
			FromLine: detail.Symbol.FromLine,
			ToLine:   detail.Symbol.ToLine,
		},
		Children: make([]CLISymbol, 0, len(detail.Children)),
		Bindings: make([]CLIBinding, 0, len(detail.Bindings)),
	}
	for _, c := range detail.Children {
		out.Children = append(out.Children, CLISymbol{
			ID: c.ID, Name: c.Name, Kind: c.Kind, FromLine: c.FromLine, ToLine: c.ToLine,
		})
	}
	for _, b := range detail.Bindings {
		out.Bindings = append(out.Bindings, CLIBinding{Name: b.Name, Line: b.Line, Kind: b.Kind})
	}
	return out
}

func toCLIHierarchy(h *arbor.ClassHierarchy) CLIHierarchy {
	out := CLIHierarchy{
		Class:      h.Class.Name,
		Bases:      make([]string, 0, len(h.Bases)),
		Subclasses: make([]string, 0, len(h.Subclasses)),
	}
	for _, b := range h.Bases {
		out.Bases = append(out.Bases, b.Name)
	}
	for _, s := range h.Subclasses {
		out.Subclasses = append(out.Subclasses, s.Name)
	}
	return out
}
