// Package ast models the host engine's script graph as read-only Go values.
//
// A Node mirrors one statement of the host's abstract syntax tree. Only the
// fields storytree reads are carried; everything else the host knows about a
// statement is dropped at snapshot time.
package ast

// Kind is the host's class name for a node. Class names the host adds later
// are carried verbatim and treated generically.
type Kind string

const (
	KindLabel           Kind = "Label"
	KindSay             Kind = "Say"
	KindMenu            Kind = "Menu"
	KindIf              Kind = "If"
	KindJump            Kind = "Jump"
	KindCall            Kind = "Call"
	KindReturn          Kind = "Return"
	KindPass            Kind = "Pass"
	KindScene           Kind = "Scene"
	KindShow            Kind = "Show"
	KindHide            Kind = "Hide"
	KindWith            Kind = "With"
	KindPython          Kind = "Python"
	KindEarlyPython     Kind = "EarlyPython"
	KindTranslatePython Kind = "TranslatePython"
	KindDefine          Kind = "Define"
	KindDefault         Kind = "Default"
	KindHook            Kind = "ASTHook"
)

// DisabledCondition is the condition text the host stores for a branch that
// can never be taken.
const DisabledCondition = "False"

// Node is one statement in the host's script graph.
type Node struct {
	Kind     Kind
	Filename string
	Line     int

	// Name is the label name for Label nodes and the hook name for ASTHook
	// nodes.
	Name string

	Next *Node
	// OldNext is the successor an ASTHook displaced when it was inserted.
	OldNext *Node

	// Say
	Who  *string // nil for narration
	What string

	// With
	Expr string

	// Jump target or Call label. Expression is set when the target is a
	// runtime expression rather than a static label name.
	Target     string
	Label      string
	Expression bool

	// Scene, Show, Hide: the image name parts of the image specification.
	Imspec []string

	// Python family, Define, Default.
	Code  string
	Store *string // nil when the node carries no store attribute

	Entries []IfEntry
	Items   []MenuItem
}

// IfEntry is one branch of an If node.
type IfEntry struct {
	Condition string
	Block     []*Node
}

// MenuItem is one choice of a Menu node. Caption-only items have no block.
type MenuItem struct {
	Caption   string
	Condition string
	Block     []*Node
}

// IsPythonFamily reports whether the node carries inline code.
func (n *Node) IsPythonFamily() bool {
	switch n.Kind {
	case KindPython, KindEarlyPython, KindTranslatePython, KindDefine, KindDefault:
		return true
	}
	return false
}

// Enabled reports whether the branch can be taken and leads somewhere.
func (e IfEntry) Enabled() bool {
	return e.Condition != DisabledCondition && len(e.Block) > 0
}

// Enabled reports whether the choice can be taken and leads somewhere.
func (m MenuItem) Enabled() bool {
	return m.Condition != DisabledCondition && len(m.Block) > 0
}
