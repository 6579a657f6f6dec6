package storytree

import (
	"fmt"
	"sort"

	"github.com/jward/storytree/internal/store"
)

// QueryBuilder answers questions about one archived export.
type QueryBuilder struct {
	store    *store.Store
	exportID string
}

// Summary is an overview of an archived export.
type Summary struct {
	Export        *ExportRecord
	TagCounts     map[string]int
	Leaves        int
	DeadEnds      int
	Diagnostics   int
	PythonTargets int
	GameFiles     int
	Images        int
}

// ExportID returns the export the builder is bound to.
func (q *QueryBuilder) ExportID() string {
	return q.exportID
}

// Export returns the archived export header.
func (q *QueryBuilder) Export() (*ExportRecord, error) {
	exp, err := q.store.ExportByID(q.exportID)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if exp == nil {
		return nil, fmt.Errorf("export %s: %w", q.exportID, ErrExportNotFound)
	}
	return exp, nil
}

// Node returns the visited node with the given key, or nil if the key was
// not visited.
func (q *QueryBuilder) Node(key Key) (*NodeRecord, error) {
	return q.store.NodeByKey(q.exportID, key.String())
}

// NodesFor returns the visited nodes among keys, in visit order. Keys that
// were not visited are skipped.
func (q *QueryBuilder) NodesFor(keys []Key) ([]*NodeRecord, error) {
	lits := make([]string, len(keys))
	for i, k := range keys {
		lits[i] = k.String()
	}
	return q.store.NodesByKeys(q.exportID, lits)
}

// Nodes returns visited nodes in visit order, filtered by tag when tag is
// non-empty.
func (q *QueryBuilder) Nodes(tag string) ([]*NodeRecord, error) {
	if tag == "" {
		return q.store.NodesByExport(q.exportID)
	}
	return q.store.NodesByTag(q.exportID, tag)
}

// NodesInFile returns the visited nodes from one script file.
func (q *QueryBuilder) NodesInFile(file string) ([]*NodeRecord, error) {
	return q.store.NodesByFile(q.exportID, file)
}

// Children returns the ordered successor keys of key.
func (q *QueryBuilder) Children(key Key) ([]Key, error) {
	out, err := q.store.Children(q.exportID, key.String())
	if err != nil {
		return nil, err
	}
	return parseKeys(out)
}

// Parents returns the keys of the nodes that lead to key.
func (q *QueryBuilder) Parents(key Key) ([]Key, error) {
	out, err := q.store.Parents(q.exportID, key.String())
	if err != nil {
		return nil, err
	}
	return parseKeys(out)
}

// Leaves returns visited nodes with no successors.
func (q *QueryBuilder) Leaves() ([]*NodeRecord, error) {
	return q.store.Leaves(q.exportID)
}

// DeadEnds returns leaves that are not Return statements: places where the
// walk stopped without the script returning.
func (q *QueryBuilder) DeadEnds() ([]*NodeRecord, error) {
	leaves, err := q.store.Leaves(q.exportID)
	if err != nil {
		return nil, err
	}
	var out []*NodeRecord
	for _, n := range leaves {
		if n.Tag != "Return" {
			out = append(out, n)
		}
	}
	return out, nil
}

// PathTo returns the shortest chain of keys from the entry label to key,
// both ends included. It returns nil when key is unreachable.
func (q *QueryBuilder) PathTo(key Key) ([]Key, error) {
	exp, err := q.Export()
	if err != nil {
		return nil, err
	}
	edges, err := q.store.AllEdges(q.exportID)
	if err != nil {
		return nil, err
	}

	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.ParentKey] = append(adj[e.ParentKey], e.ChildKey)
	}

	start := LabelKey(exp.EntryLabel).String()
	target := key.String()
	prev := map[string]string{start: ""}
	queue := []string{start}
	found := start == target
	for len(queue) > 0 && !found {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == target {
				found = true
				break
			}
			queue = append(queue, next)
		}
	}
	if !found {
		return nil, nil
	}

	var path []string
	for k := target; k != ""; k = prev[k] {
		path = append(path, k)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return parseKeys(path)
}

// GameFiles returns the export's asset listing.
func (q *QueryBuilder) GameFiles() ([]string, error) {
	return q.store.GameFiles(q.exportID)
}

// Images returns the export's image names.
func (q *QueryBuilder) Images() ([]string, error) {
	return q.store.Images(q.exportID)
}

// Diagnostics returns the successors the walk could not follow.
func (q *QueryBuilder) Diagnostics() ([]*DiagnosticRecord, error) {
	return q.store.Diagnostics(q.exportID)
}

// PythonTargets returns label transfers found in code blocks.
func (q *QueryBuilder) PythonTargets() ([]*PythonTargetRecord, error) {
	return q.store.PythonTargets(q.exportID)
}

// Summary collects counts for the export.
func (q *QueryBuilder) Summary() (*Summary, error) {
	exp, err := q.Export()
	if err != nil {
		return nil, err
	}
	tags, err := q.store.TagCounts(q.exportID)
	if err != nil {
		return nil, err
	}
	leaves, err := q.Leaves()
	if err != nil {
		return nil, err
	}
	diags, err := q.Diagnostics()
	if err != nil {
		return nil, err
	}
	targets, err := q.PythonTargets()
	if err != nil {
		return nil, err
	}
	files, err := q.GameFiles()
	if err != nil {
		return nil, err
	}
	images, err := q.Images()
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Export:        exp,
		TagCounts:     tags,
		Leaves:        len(leaves),
		Diagnostics:   len(diags),
		PythonTargets: len(targets),
		GameFiles:     len(files),
		Images:        len(images),
	}
	for _, n := range leaves {
		if n.Tag != "Return" {
			s.DeadEnds++
		}
	}
	return s, nil
}

// Tags returns the summary's tags sorted by name.
func (s *Summary) Tags() []string {
	tags := make([]string, 0, len(s.TagCounts))
	for t := range s.TagCounts {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func parseKeys(ss []string) ([]Key, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	out := make([]Key, len(ss))
	for i, s := range ss {
		k, err := ParseKey(s)
		if err != nil {
			return nil, fmt.Errorf("stored key %q: %w", s, err)
		}
		out[i] = k
	}
	return out, nil
}
