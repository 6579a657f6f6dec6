package store

import "time"

// Export is one stored traversal.
type Export struct {
	ID         string
	EntryLabel string
	NodeCount  int
	EdgeCount  int
	TreeHash   string
	CreatedAt  time.Time
}

// Node is one visited node. Key is the rendered node key; Ordinal is its
// position in visit order.
type Node struct {
	ID       int64
	ExportID string
	Key      string
	Tag      string
	File     string
	Line     int
	Ordinal  int
}

// Edge links a visited node to one of its successors.
type Edge struct {
	ExportID  string
	ParentKey string
	ChildKey  string
	Ordinal   int
}

// Diagnostic is a successor the walk could not follow.
type Diagnostic struct {
	ID       int64
	ExportID string
	Kind     string
	NodeKey  string
	File     string
	Line     int
	Target   string
	Message  string
}

// PythonTarget is a label transfer found in a visited code block.
type PythonTarget struct {
	ID       int64
	ExportID string
	NodeKey  string
	Function string
	Label    string
	Dynamic  bool
	File     string
	Line     int
}
