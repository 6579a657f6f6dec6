package storytree

import "github.com/jward/storytree/internal/ast"

// LabelResolver looks up a label's first statement by name. Implementations
// return an error wrapping ast.ErrLabelNotFound for unknown names.
type LabelResolver interface {
	FindLabel(name string) (*ast.Node, error)
}

// AssetIndex lists the asset file paths the host knows about.
type AssetIndex interface {
	ListFiles() []string
}

// ImageRegistry lists the host's image specifications as name parts.
type ImageRegistry interface {
	Images() [][]string
}

// Host is the read-only view of the engine that an export needs.
// *ast.Graph, as decoded from a snapshot, satisfies it.
type Host interface {
	LabelResolver
	AssetIndex
	ImageRegistry
}

var _ Host = (*ast.Graph)(nil)
