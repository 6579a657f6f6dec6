package storytree

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jward/storytree/internal/ast"
)

// DefaultEntryLabel is the label the game starts from.
const DefaultEntryLabel = "begingame"

// Entry is one visited node and the keys of its successors, in order.
type Entry struct {
	Key      Key
	Node     *ast.Node
	Children []Key
}

// GameTree maps each reachable node's key to its successors' keys. Entries
// keep the order in which nodes were first visited. A GameTree is not
// modified after ReadGameTree returns it.
type GameTree struct {
	EntryLabel string
	index      map[string]int
	entries    []Entry
}

func newGameTree(entry string) *GameTree {
	return &GameTree{EntryLabel: entry, index: make(map[string]int)}
}

func (t *GameTree) add(e Entry) {
	t.index[e.Key.String()] = len(t.entries)
	t.entries = append(t.entries, e)
}

// Len returns the number of visited nodes.
func (t *GameTree) Len() int {
	return len(t.entries)
}

// Has reports whether k was visited.
func (t *GameTree) Has(k Key) bool {
	_, ok := t.index[k.String()]
	return ok
}

// Get returns the entry for k.
func (t *GameTree) Get(k Key) (Entry, bool) {
	i, ok := t.index[k.String()]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Keys returns the visited keys in visit order.
func (t *GameTree) Keys() []Key {
	keys := make([]Key, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns the entries in visit order.
func (t *GameTree) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// EdgeCount returns the total number of parent-child links.
func (t *GameTree) EdgeCount() int {
	n := 0
	for _, e := range t.entries {
		n += len(e.Children)
	}
	return n
}

// ReadGameTree walks the script graph from the entry label. Nodes are
// explored last-in first-out; the visited set alone bounds the walk, so
// cycles terminate. A missing entry label is an error; unfollowable
// successors are returned as diagnostics.
func ReadGameTree(host LabelResolver, entry string, log *zap.SugaredLogger) (*GameTree, []Diagnostic, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	w := &walker{host: host, log: log}
	t, err := w.read(entry)
	if err != nil {
		return nil, nil, err
	}
	return t, w.diags, nil
}

func (w *walker) read(entry string) (*GameTree, error) {
	start, err := w.host.FindLabel(entry)
	if err != nil {
		return nil, fmt.Errorf("entry label: %w", err)
	}

	tree := newGameTree(entry)
	stack := []*ast.Node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		key := NameNode(n)
		if tree.Has(key) {
			continue
		}
		children := w.children(n)
		keys := make([]Key, 0, len(children))
		for _, c := range children {
			keys = append(keys, c.Key)
			if c.Node != nil && !tree.Has(c.Key) {
				stack = append(stack, c.Node)
			}
		}
		tree.add(Entry{Key: key, Node: n, Children: keys})
	}
	w.log.Debugw("walked game tree", "entry", entry, "nodes", tree.Len())
	return tree, nil
}
