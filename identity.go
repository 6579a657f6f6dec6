package storytree

import (
	"strings"

	"github.com/jward/storytree/internal/ast"
)

// imageTags and codeTags name the tuple tag used for each node kind that
// carries extra identity fields.
var (
	imageTags = map[ast.Kind]string{
		ast.KindScene: "scene",
		ast.KindShow:  "show",
		ast.KindHide:  "hide",
	}
	codeTags = map[ast.Kind]string{
		ast.KindDefine:          "define",
		ast.KindDefault:         "default",
		ast.KindPython:          "python",
		ast.KindTranslatePython: "TranslatePython",
	}
)

// NameNode derives the identity key of a node. Hooks are checked before
// labels since both carry a name.
func NameNode(n *ast.Node) Key {
	if n == nil {
		return Key{}
	}
	switch n.Kind {
	case ast.KindHook:
		return TupleKey(n.Filename, n.Line, "ASTHook", n.Name)
	case ast.KindLabel:
		return LabelKey(n.Name)
	case ast.KindSay:
		var who any
		if n.Who != nil {
			who = *n.Who
		}
		return TupleKey(n.Filename, n.Line, "say", who, n.What)
	case ast.KindWith:
		return TupleKey(n.Filename, n.Line, "with", n.Expr)
	case ast.KindCall:
		return TupleKey(n.Filename, n.Line, "call", n.Label)
	case ast.KindJump:
		return TupleKey(n.Filename, n.Line, "jump", n.Target)
	}
	if tag, ok := imageTags[n.Kind]; ok {
		return TupleKey(n.Filename, n.Line, tag, strings.Join(n.Imspec, " "))
	}
	if tag, ok := codeTags[n.Kind]; ok {
		if n.Store != nil {
			return TupleKey(n.Filename, n.Line, tag, *n.Store, n.Code)
		}
		return TupleKey(n.Filename, n.Line, tag, n.Code)
	}
	return TupleKey(n.Filename, n.Line, string(n.Kind))
}
