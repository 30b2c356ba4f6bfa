package arbor

import "github.com/jward/arbor/internal/store"

// Public type aliases for internal store types used in the QueryBuilder API.
// These are Go type aliases (=), identical to the internal types at compile
// time. External consumers use these names; no conversion is needed.

type Store = store.Store
type File = store.File
type Symbol = store.Symbol
type Binding = store.Binding
type Inference = store.Inference
