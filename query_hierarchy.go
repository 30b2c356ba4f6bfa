package arbor

import (
	"fmt"
	"sort"
)

// ClassHierarchy describes one class's place in the inheritance graph:
// the classes it inherits from (resolved by inference, so aliased and
// imported bases count) and the indexed classes that inherit from it.
type ClassHierarchy struct {
	Class      *ClassDef
	Bases      []*ClassDef
	Subclasses []*ClassDef
}

// ClassHierarchy resolves the class enclosing (path, line) and returns its
// inferred base classes and known subclasses across the indexed set.
func (e *Engine) ClassHierarchy(path string, line int) (*ClassHierarchy, error) {
	mod, err := e.ModuleByPath(path)
	if err != nil {
		return nil, err
	}

	var cls *ClassDef
	for cur := NodeAt(mod, line); cur != nil; cur = cur.Parent() {
		if c, ok := cur.(*ClassDef); ok {
			cls = c
			break
		}
	}
	if cls == nil {
		return nil, fmt.Errorf("arbor: no class at %s:%d: %w", path, line, ErrNotFound)
	}

	h := &ClassHierarchy{Class: cls}
	h.Bases = inferredBases(cls)

	e.mu.RLock()
	mods := make([]*Module, 0, len(e.modules))
	for _, m := range e.modules {
		mods = append(mods, m)
	}
	e.mu.RUnlock()
	sort.Slice(mods, func(i, j int) bool { return mods[i].Path < mods[j].Path })

	for _, m := range mods {
		for n := range Find(m, OfType[*ClassDef](), nil) {
			c := n.(*ClassDef)
			if c == cls {
				continue
			}
			for _, base := range inferredBases(c) {
				if base == cls {
					h.Subclasses = append(h.Subclasses, c)
					break
				}
			}
		}
	}
	return h, nil
}

// inferredBases resolves a class's base expressions to class definitions,
// dropping bases that cannot be inferred.
func inferredBases(cls *ClassDef) []*ClassDef {
	var out []*ClassDef
	for _, base := range cls.Bases {
		for v, err := range base.Infer(nil) {
			if err != nil {
				break
			}
			if bc, ok := v.(*ClassDef); ok {
				out = append(out, bc)
			}
		}
	}
	return out
}
