package storytree

import "github.com/jward/storytree/internal/store"

// Public aliases for the archive's row types returned by QueryBuilder.

type Store = store.Store
type ExportRecord = store.Export
type NodeRecord = store.Node
type EdgeRecord = store.Edge
type DiagnosticRecord = store.Diagnostic
type PythonTargetRecord = store.PythonTarget

// ErrExportNotFound is returned when an export ID is not in the archive.
var ErrExportNotFound = store.ErrExportNotFound
