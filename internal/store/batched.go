package store

import "sync"

// ExportBatch buffers one export in memory so it can be written in a single
// transaction by CommitBatch. Ordinals are assigned in insertion order.
//
// The mutex protects slice appends; a batch may be filled from several
// goroutines.
type ExportBatch struct {
	mu sync.Mutex

	Export        Export
	Nodes         []Node
	Edges         []Edge
	GameFiles     []string
	Images        []string
	Diagnostics   []Diagnostic
	PythonTargets []PythonTarget

	edgeOrdinals map[string]int
}

// NewExportBatch starts a batch for the given export header.
func NewExportBatch(exp Export) *ExportBatch {
	return &ExportBatch{Export: exp, edgeOrdinals: make(map[string]int)}
}

// AddNode buffers a visited node and returns its ordinal.
func (b *ExportBatch) AddNode(n Node) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n.ExportID = b.Export.ID
	n.Ordinal = len(b.Nodes)
	b.Nodes = append(b.Nodes, n)
	return n.Ordinal
}

// AddEdge buffers a parent-child link. Edge ordinals count per parent.
func (b *ExportBatch) AddEdge(parentKey, childKey string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ord := b.edgeOrdinals[parentKey]
	b.edgeOrdinals[parentKey] = ord + 1
	b.Edges = append(b.Edges, Edge{ExportID: b.Export.ID, ParentKey: parentKey, ChildKey: childKey, Ordinal: ord})
}

func (b *ExportBatch) AddGameFile(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.GameFiles = append(b.GameFiles, path)
}

func (b *ExportBatch) AddImage(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Images = append(b.Images, name)
}

func (b *ExportBatch) AddDiagnostic(d Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d.ExportID = b.Export.ID
	b.Diagnostics = append(b.Diagnostics, d)
}

func (b *ExportBatch) AddPythonTarget(pt PythonTarget) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pt.ExportID = b.Export.ID
	b.PythonTargets = append(b.PythonTargets, pt)
}
