package storytree

import (
	"go.uber.org/zap"

	"github.com/jward/storytree/internal/ast"
)

// Diagnostic kinds.
const (
	DiagDynamicJump  = "dynamic-jump"
	DiagDynamicCall  = "dynamic-call"
	DiagMissingLabel = "missing-label"
)

// Diagnostic records a successor that could not be followed.
type Diagnostic struct {
	Kind    string
	Key     Key // node that produced the diagnostic
	File    string
	Line    int
	Target  string
	Message string
}

// Child is one successor of a node. Node is nil when the successor is a label
// the host could not resolve.
type Child struct {
	Key  Key
	Node *ast.Node
}

// childSet is an insertion-ordered mapping from key to node. Setting a key
// again keeps its position and replaces the node.
type childSet struct {
	index map[string]int
	list  []Child
}

func (c *childSet) put(k Key, n *ast.Node) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	id := k.String()
	if i, ok := c.index[id]; ok {
		c.list[i].Node = n
		return
	}
	c.index[id] = len(c.list)
	c.list = append(c.list, Child{Key: k, Node: n})
}

type walker struct {
	host  LabelResolver
	log   *zap.SugaredLogger
	diags []Diagnostic
}

// ChildrenOf enumerates the successors of n in traversal order. Successors
// that cannot be followed are reported as diagnostics.
func ChildrenOf(host LabelResolver, n *ast.Node) ([]Child, []Diagnostic) {
	w := &walker{host: host, log: zap.NewNop().Sugar()}
	children := w.children(n)
	return children, w.diags
}

func (w *walker) children(n *ast.Node) []Child {
	var set childSet
	if n == nil {
		return nil
	}
	putNext := func(next *ast.Node) {
		if next != nil {
			set.put(NameNode(next), next)
		}
	}

	switch n.Kind {
	case ast.KindHook:
		putNext(n.Next)
		putNext(n.OldNext)
	case ast.KindIf:
		for _, e := range n.Entries {
			if e.Enabled() {
				set.put(NameNode(e.Block[0]), e.Block[0])
			}
		}
	case ast.KindMenu:
		for _, it := range n.Items {
			if it.Enabled() {
				set.put(NameNode(it.Block[0]), it.Block[0])
			}
		}
	case ast.KindJump:
		if n.Expression {
			w.dynamic(n, DiagDynamicJump, n.Target)
		} else {
			w.label(&set, n, n.Target)
		}
	case ast.KindCall:
		if n.Expression {
			w.dynamic(n, DiagDynamicCall, n.Label)
		} else {
			w.label(&set, n, n.Label)
		}
		putNext(n.Next)
	default:
		putNext(n.Next)
	}
	return set.list
}

// label resolves a static jump or call target. An unresolvable target keeps
// its key so the edge is still visible in the tree.
func (w *walker) label(set *childSet, from *ast.Node, name string) {
	target, err := w.host.FindLabel(name)
	if err != nil {
		w.diags = append(w.diags, Diagnostic{
			Kind:    DiagMissingLabel,
			Key:     NameNode(from),
			File:    from.Filename,
			Line:    from.Line,
			Target:  name,
			Message: err.Error(),
		})
		w.log.Warnw("unresolved label", "target", name, "file", from.Filename, "line", from.Line)
		target = nil
	}
	set.put(LabelKey(name), target)
}

func (w *walker) dynamic(from *ast.Node, kind, expr string) {
	msg := "jump with expression"
	if kind == DiagDynamicCall {
		msg = "call with expression"
	}
	w.diags = append(w.diags, Diagnostic{
		Kind:    kind,
		Key:     NameNode(from),
		File:    from.Filename,
		Line:    from.Line,
		Target:  expr,
		Message: msg,
	})
	w.log.Errorw(msg, "expression", expr, "file", from.Filename, "line", from.Line)
}
