package arbor

import "errors"

// The inference error taxonomy. Callers distinguish the three with
// errors.Is; everything is wrapped with fmt.Errorf("...: %w", ...) so the
// failing name survives in the message.
var (
	// ErrNotFound reports that a requested name or attribute has no binding
	// reachable from the given scope. Recoverable: multi-candidate
	// resolution skips the candidate and continues.
	ErrNotFound = errors.New("not found")

	// ErrUnresolvable reports that a name cannot be resolved syntactically
	// (unsupported construct, import outside the indexed set). Treated
	// exactly like ErrNotFound during multi-candidate resolution.
	ErrUnresolvable = errors.New("unresolvable")

	// ErrInference reports that no candidate produced any value at all.
	// The only failure that escapes Infer: it means "this query cannot be
	// answered", not "the program is invalid". A candidate that begins
	// resolution but cannot finish is converted to Unknown instead.
	ErrInference = errors.New("inference failed")
)
