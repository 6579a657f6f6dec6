package storytree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jward/storytree/internal/ast"
)

func observedLogger(level zapcore.Level) (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core).Sugar(), logs
}

func keyStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// =============================================================================
// Traversal
// =============================================================================

func TestReadGameTree_CycleTerminates(t *testing.T) {
	t.Parallel()
	a := &ast.Node{Kind: ast.KindLabel, Filename: "a.rpy", Line: 1, Name: "a"}
	b := &ast.Node{Kind: ast.KindLabel, Filename: "a.rpy", Line: 5, Name: "b"}
	a.Next = b
	b.Next = a

	g := ast.NewGraph()
	g.AddLabel("a", a)
	g.AddLabel("b", b)

	tree, diags, err := ReadGameTree(g, "a", nil)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Equal(t, 2, tree.Len())

	seen := map[string]bool{}
	for _, k := range tree.Keys() {
		assert.False(t, seen[k.String()], "duplicate key %s", k)
		seen[k.String()] = true
	}

	ea, ok := tree.Get(LabelKey("a"))
	require.True(t, ok)
	assert.Equal(t, []string{"'b'"}, keyStrings(ea.Children))
	eb, ok := tree.Get(LabelKey("b"))
	require.True(t, ok)
	assert.Equal(t, []string{"'a'"}, keyStrings(eb.Children))
}

func TestReadGameTree_JumpCycle(t *testing.T) {
	t.Parallel()
	start := &ast.Node{Kind: ast.KindLabel, Filename: "a.rpy", Line: 1, Name: "loop"}
	say := &ast.Node{Kind: ast.KindSay, Filename: "a.rpy", Line: 2, What: "again"}
	jump := &ast.Node{Kind: ast.KindJump, Filename: "a.rpy", Line: 3, Target: "loop"}
	start.Next = say
	say.Next = jump

	g := ast.NewGraph()
	g.AddLabel("loop", start)

	tree, _, err := ReadGameTree(g, "loop", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"'loop'",
		"('a.rpy', 2, 'say', None, 'again')",
		"('a.rpy', 3, 'jump', 'loop')",
	}, keyStrings(tree.Keys()))
	assert.Equal(t, 3, tree.EdgeCount())
}

func TestReadGameTree_DynamicJump(t *testing.T) {
	t.Parallel()
	start := &ast.Node{Kind: ast.KindLabel, Filename: "a.rpy", Line: 1, Name: "begingame"}
	jump := &ast.Node{Kind: ast.KindJump, Filename: "a.rpy", Line: 2, Target: "'ch' + str(n)", Expression: true}
	start.Next = jump

	g := ast.NewGraph()
	g.AddLabel("begingame", start)

	log, logs := observedLogger(zap.ErrorLevel)
	tree, diags, err := ReadGameTree(g, DefaultEntryLabel, log)
	require.NoError(t, err)

	e, ok := tree.Get(NameNode(jump))
	require.True(t, ok)
	assert.Empty(t, e.Children)

	require.Len(t, diags, 1)
	assert.Equal(t, DiagDynamicJump, diags[0].Kind)
	assert.Equal(t, "'ch' + str(n)", diags[0].Target)
	assert.Equal(t, 2, diags[0].Line)
	assert.Equal(t, 1, logs.FilterMessage("jump with expression").Len())
}

func TestReadGameTree_DynamicCallKeepsNext(t *testing.T) {
	t.Parallel()
	start := &ast.Node{Kind: ast.KindLabel, Filename: "a.rpy", Line: 1, Name: "begingame"}
	after := &ast.Node{Kind: ast.KindReturn, Filename: "a.rpy", Line: 3}
	call := &ast.Node{Kind: ast.KindCall, Filename: "a.rpy", Line: 2, Label: "target_var", Expression: true, Next: after}
	start.Next = call

	g := ast.NewGraph()
	g.AddLabel("begingame", start)

	log, logs := observedLogger(zap.ErrorLevel)
	tree, diags, err := ReadGameTree(g, DefaultEntryLabel, log)
	require.NoError(t, err)

	e, ok := tree.Get(NameNode(call))
	require.True(t, ok)
	assert.Equal(t, []string{"('a.rpy', 3, 'Return')"}, keyStrings(e.Children))
	require.Len(t, diags, 1)
	assert.Equal(t, DiagDynamicCall, diags[0].Kind)
	assert.Equal(t, 1, logs.FilterMessage("call with expression").Len())
}

func TestReadGameTree_MissingEntry(t *testing.T) {
	t.Parallel()
	_, _, err := ReadGameTree(ast.NewGraph(), DefaultEntryLabel, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ast.ErrLabelNotFound))
}

func TestReadGameTree_MissingJumpTarget(t *testing.T) {
	t.Parallel()
	start := &ast.Node{Kind: ast.KindLabel, Filename: "a.rpy", Line: 1, Name: "begingame"}
	jump := &ast.Node{Kind: ast.KindJump, Filename: "a.rpy", Line: 2, Target: "cut_content"}
	start.Next = jump

	g := ast.NewGraph()
	g.AddLabel("begingame", start)

	log, logs := observedLogger(zap.WarnLevel)
	tree, diags, err := ReadGameTree(g, DefaultEntryLabel, log)
	require.NoError(t, err)

	e, ok := tree.Get(NameNode(jump))
	require.True(t, ok)
	assert.Equal(t, []string{"'cut_content'"}, keyStrings(e.Children))
	assert.False(t, tree.Has(LabelKey("cut_content")))
	require.Len(t, diags, 1)
	assert.Equal(t, DiagMissingLabel, diags[0].Kind)
	assert.Equal(t, 1, logs.Len())
}

func TestReadGameTree_Deterministic(t *testing.T) {
	t.Parallel()
	g := menuGraph()

	first, _, err := ReadGameTree(g, DefaultEntryLabel, nil)
	require.NoError(t, err)
	second, _, err := ReadGameTree(g, DefaultEntryLabel, nil)
	require.NoError(t, err)

	assert.Equal(t, keyStrings(first.Keys()), keyStrings(second.Keys()))
	for _, e := range first.Entries() {
		other, ok := second.Get(e.Key)
		require.True(t, ok)
		assert.Equal(t, keyStrings(e.Children), keyStrings(other.Children))
	}
}

func TestReadGameTree_LIFOOrder(t *testing.T) {
	t.Parallel()
	tree, _, err := ReadGameTree(menuGraph(), DefaultEntryLabel, nil)
	require.NoError(t, err)
	// The last menu choice is explored first.
	assert.Equal(t, []string{
		"'begingame'",
		"('a.rpy', 2, 'Menu')",
		"('a.rpy', 5, 'say', 'e', 'Right.')",
		"('a.rpy', 3, 'say', 'e', 'Left.')",
	}, keyStrings(tree.Keys()))
}

// menuGraph builds begingame -> menu with two enabled choices.
func menuGraph() *ast.Graph {
	start := &ast.Node{Kind: ast.KindLabel, Filename: "a.rpy", Line: 1, Name: "begingame"}
	left := &ast.Node{Kind: ast.KindSay, Filename: "a.rpy", Line: 3, Who: strp("e"), What: "Left."}
	right := &ast.Node{Kind: ast.KindSay, Filename: "a.rpy", Line: 5, Who: strp("e"), What: "Right."}
	menu := &ast.Node{Kind: ast.KindMenu, Filename: "a.rpy", Line: 2, Items: []ast.MenuItem{
		{Caption: "Left", Condition: "True", Block: []*ast.Node{left}},
		{Caption: "Right", Condition: "True", Block: []*ast.Node{right}},
	}}
	start.Next = menu

	g := ast.NewGraph()
	g.AddLabel("begingame", start)
	return g
}

// =============================================================================
// Child enumeration
// =============================================================================

func TestChildrenOf_MenuSkipsFalseBranch(t *testing.T) {
	t.Parallel()
	yes := &ast.Node{Kind: ast.KindSay, Filename: "a.rpy", Line: 3, What: "yes"}
	no := &ast.Node{Kind: ast.KindSay, Filename: "a.rpy", Line: 5, What: "no"}
	menu := &ast.Node{Kind: ast.KindMenu, Filename: "a.rpy", Line: 2, Items: []ast.MenuItem{
		{Caption: "Question?", Condition: "True"},
		{Caption: "Yes", Condition: "True", Block: []*ast.Node{yes}},
		{Caption: "No", Condition: "False", Block: []*ast.Node{no}},
	}}

	children, diags := ChildrenOf(ast.NewGraph(), menu)
	assert.Empty(t, diags)
	require.Len(t, children, 1)
	assert.Same(t, yes, children[0].Node)
}

func TestChildrenOf_IfSkipsFalseBranch(t *testing.T) {
	t.Parallel()
	then := &ast.Node{Kind: ast.KindPass, Filename: "a.rpy", Line: 3}
	never := &ast.Node{Kind: ast.KindPass, Filename: "a.rpy", Line: 5}
	after := &ast.Node{Kind: ast.KindPass, Filename: "a.rpy", Line: 7}
	ifNode := &ast.Node{Kind: ast.KindIf, Filename: "a.rpy", Line: 2, Next: after, Entries: []ast.IfEntry{
		{Condition: "False", Block: []*ast.Node{never}},
		{Condition: "True", Block: []*ast.Node{then}},
	}}

	children, _ := ChildrenOf(ast.NewGraph(), ifNode)
	require.Len(t, children, 1)
	assert.Same(t, then, children[0].Node)
}

func TestChildrenOf_HookHasBothLinks(t *testing.T) {
	t.Parallel()
	next := &ast.Node{Kind: ast.KindSay, Filename: "mods/m.rpy", Line: 2, What: "modded"}
	old := &ast.Node{Kind: ast.KindSay, Filename: "game/a.rpy", Line: 9, What: "original"}
	hook := &ast.Node{Kind: ast.KindHook, Filename: "mods/m.rpy", Line: 1, Name: "h", Next: next, OldNext: old}

	children, _ := ChildrenOf(ast.NewGraph(), hook)
	require.Len(t, children, 2)
	assert.Same(t, next, children[0].Node)
	assert.Same(t, old, children[1].Node)
}

func TestChildrenOf_HookWithoutOldNext(t *testing.T) {
	t.Parallel()
	next := &ast.Node{Kind: ast.KindPass, Filename: "mods/m.rpy", Line: 2}
	hook := &ast.Node{Kind: ast.KindHook, Filename: "mods/m.rpy", Line: 1, Name: "h", Next: next}

	children, _ := ChildrenOf(ast.NewGraph(), hook)
	require.Len(t, children, 1)
}

func TestChildrenOf_CallLabelThenNext(t *testing.T) {
	t.Parallel()
	sub := &ast.Node{Kind: ast.KindLabel, Filename: "b.rpy", Line: 1, Name: "sub"}
	after := &ast.Node{Kind: ast.KindPass, Filename: "a.rpy", Line: 3}
	call := &ast.Node{Kind: ast.KindCall, Filename: "a.rpy", Line: 2, Label: "sub", Next: after}

	g := ast.NewGraph()
	g.AddLabel("sub", sub)

	children, diags := ChildrenOf(g, call)
	assert.Empty(t, diags)
	assert.Equal(t, []string{"'sub'", "('a.rpy', 3, 'Pass')"}, []string{children[0].Key.String(), children[1].Key.String()})
	assert.Same(t, sub, children[0].Node)
}

func TestChildrenOf_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	t.Parallel()
	a1 := &ast.Node{Kind: ast.KindPass, Filename: "a.rpy", Line: 3}
	b := &ast.Node{Kind: ast.KindPass, Filename: "a.rpy", Line: 4}
	a2 := &ast.Node{Kind: ast.KindPass, Filename: "a.rpy", Line: 3}
	ifNode := &ast.Node{Kind: ast.KindIf, Filename: "a.rpy", Line: 2, Entries: []ast.IfEntry{
		{Condition: "x", Block: []*ast.Node{a1}},
		{Condition: "y", Block: []*ast.Node{b}},
		{Condition: "z", Block: []*ast.Node{a2}},
	}}

	children, _ := ChildrenOf(ast.NewGraph(), ifNode)
	require.Len(t, children, 2)
	assert.Equal(t, "('a.rpy', 3, 'Pass')", children[0].Key.String())
	assert.Same(t, a2, children[0].Node)
}

func TestChildrenOf_Nil(t *testing.T) {
	t.Parallel()
	children, diags := ChildrenOf(ast.NewGraph(), nil)
	assert.Nil(t, children)
	assert.Nil(t, diags)
}
