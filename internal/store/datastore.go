package store

import "database/sql"

// Reader is the read-side interface used by report scripts. *Store
// implements it; tests can substitute a fake.
type Reader interface {
	NodesByExport(exportID string) ([]*Node, error)
	NodeByKey(exportID, key string) (*Node, error)
	NodesByTag(exportID, tag string) ([]*Node, error)
	Leaves(exportID string) ([]*Node, error)
	Children(exportID, parentKey string) ([]string, error)
	Parents(exportID, childKey string) ([]string, error)
	GameFiles(exportID string) ([]string, error)
	Images(exportID string) ([]string, error)
	Diagnostics(exportID string) ([]*Diagnostic, error)
	PythonTargets(exportID string) ([]*PythonTarget, error)
	DB() *sql.DB
}

// Compile-time check: *Store satisfies Reader.
var _ Reader = (*Store)(nil)
