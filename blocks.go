package arbor

// BlockRange maps a line known to lie inside n to the (start, end) line
// span of the specific sub-block containing it. Raw line metadata is not
// enough once elif/except/else clauses are involved: the span a user would
// call "this line's block" has to be derived per statement kind.
func BlockRange(n Node, line int) (int, int) {
	switch t := n.(type) {
	case *Module, *FunctionDef, *ClassDef:
		// The whole body is one block anchored at the def/class header,
		// whatever line was asked about.
		return n.FromLine(), LastLine(n)
	case *If:
		return ifBlockRange(t, line)
	case *TryExcept:
		return tryExceptBlockRange(t, line)
	case *TryFinally:
		return tryFinallyBlockRange(t, line)
	case *For:
		return elsedBlockRange(t, t.Else, line, 0)
	case *While:
		return elsedBlockRange(t, t.Else, line, 0)
	default:
		return line, LastLine(n)
	}
}

// elsedBlockRange is the default rule for statements with an optional
// trailing else suite. last, when non-zero, is a caller-supplied fallback
// end used when the line precedes every clause the caller already tested.
func elsedBlockRange(n Node, orelse *Block, line, last int) (int, int) {
	if line == n.FromLine() {
		return line, line
	}
	if orelse != nil {
		if line >= orelse.FromLine() {
			return orelse.FromLine(), LastLine(orelse)
		}
		if last == 0 || orelse.FromLine()-1 < last {
			last = orelse.FromLine() - 1
		}
	}
	if last == 0 {
		last = LastLine(n)
	}
	return line, last
}

// ifBlockRange applies a three-way test per branch: the branch's own
// header line is a block of its own, a line inside the branch body gets
// the body's full span, and a line preceding the body falls through to
// the default rule with the line just before that body as the end.
func ifBlockRange(n *If, line int) (int, int) {
	last := 0
	for _, br := range n.Branches {
		if br.Cond != nil && line == br.Cond.FromLine() {
			return line, line
		}
		if br.Body == nil {
			continue
		}
		start, end := br.Body.FromLine(), LastLine(br.Body)
		if line < start {
			last = start - 1
			break
		}
		if line == start {
			return line, line
		}
		if line <= end {
			return start, end
		}
	}
	return elsedBlockRange(n, n.Else, line, last)
}

// tryExceptBlockRange runs the same test per handler clause, matching
// either the handler's guard-expression line or its body span.
func tryExceptBlockRange(n *TryExcept, line int) (int, int) {
	last := 0
	for _, h := range n.Handlers {
		if h.Type != nil && line == h.Type.FromLine() {
			return line, line
		}
		if h.Body == nil {
			continue
		}
		start, end := h.Body.FromLine(), LastLine(h.Body)
		if start <= line && line <= end {
			return start, end
		}
		if last == 0 {
			last = start - 1
		}
	}
	return elsedBlockRange(n, n.Else, line, last)
}

// tryFinallyBlockRange delegates to a nested try/except when the line
// falls inside it, and otherwise treats the finally suite the way the
// default rule treats an else suite.
func tryFinallyBlockRange(n *TryFinally, line int) (int, int) {
	if n.Body != nil && len(n.Body.Stmts) == 1 {
		if inner, ok := n.Body.Stmts[0].(*TryExcept); ok &&
			inner.FromLine() == n.FromLine() && line > n.FromLine() && line <= LastLine(inner) {
			return BlockRange(inner, line)
		}
	}
	return elsedBlockRange(n, n.Final, line, 0)
}
