package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/storytree/internal/ast"
)

const menuSnapshot = `
labels:
  begingame: n1
  ending: n9
nodes:
  - {id: n1, type: Label, file: game/script.rpy, line: 1, name: begingame, next: n2}
  - {id: n2, type: Say, file: game/script.rpy, line: 2, who: e, what: "Pick one.", next: n3}
  - id: n3
    type: Menu
    file: game/script.rpy
    line: 3
    items:
      - {caption: "Pick one.", condition: "True"}
      - {caption: "Left", condition: "True", block: [n4]}
      - {caption: "Right", condition: "False", block: [n5]}
  - {id: n4, type: Jump, file: game/script.rpy, line: 5, target: ending}
  - {id: n5, type: Say, file: game/script.rpy, line: 7, who: null, what: "Never shown."}
  - id: h1
    type: ASTHook
    file: mods/hook.rpy
    line: 1
    name: after_menu
    next: n4
    old_next: n5
  - {id: n9, type: Label, file: game/script.rpy, line: 10, name: ending, next: n10}
  - {id: n10, type: Return, file: game/script.rpy, line: 11}
files: [game/script.rpy, mods/hook.rpy]
images:
  - [bg, room]
`

func TestDecode_LinksNodes(t *testing.T) {
	t.Parallel()
	g, err := Decode(strings.NewReader(menuSnapshot))
	require.NoError(t, err)

	start, err := g.FindLabel("begingame")
	require.NoError(t, err)
	assert.Equal(t, ast.KindLabel, start.Kind)
	assert.Equal(t, "begingame", start.Name)

	say := start.Next
	require.NotNil(t, say)
	assert.Equal(t, ast.KindSay, say.Kind)
	require.NotNil(t, say.Who)
	assert.Equal(t, "e", *say.Who)
	assert.Equal(t, "Pick one.", say.What)

	menu := say.Next
	require.NotNil(t, menu)
	require.Len(t, menu.Items, 3)
	assert.Empty(t, menu.Items[0].Block)
	require.Len(t, menu.Items[1].Block, 1)
	jump := menu.Items[1].Block[0]
	assert.Equal(t, "ending", jump.Target)
	assert.Equal(t, "False", menu.Items[2].Condition)
	assert.Nil(t, menu.Items[2].Block[0].Who, "null who should decode as narration")

	assert.Equal(t, []string{"game/script.rpy", "mods/hook.rpy"}, g.ListFiles())
	assert.Equal(t, [][]string{{"bg", "room"}}, g.Images())
	assert.Equal(t, 2, g.LabelCount())
}

func TestDecode_TerminalNode(t *testing.T) {
	t.Parallel()
	g, err := Decode(strings.NewReader(menuSnapshot))
	require.NoError(t, err)

	ending, err := g.FindLabel("ending")
	require.NoError(t, err)
	assert.Equal(t, ast.KindReturn, ending.Next.Kind)
	assert.Nil(t, ending.Next.Next)
}

func TestDecode_JSON(t *testing.T) {
	t.Parallel()
	src := `{
  "labels": {"begingame": "a"},
  "nodes": [
    {"id": "a", "type": "Label", "file": "game/a.rpy", "line": 1, "name": "begingame", "next": "b"},
    {"id": "b", "type": "Python", "file": "game/a.rpy", "line": 2, "code": "x = 1", "store": "store"}
  ],
  "files": ["game/a.rpy"],
  "images": []
}`
	g, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	start, err := g.FindLabel("begingame")
	require.NoError(t, err)
	require.NotNil(t, start.Next.Store)
	assert.Equal(t, "store", *start.Next.Store)
	assert.Equal(t, "x = 1", start.Next.Code)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", "empty document"},
		{"missing id", "nodes: [{type: Pass}]", "node 0 has no id"},
		{"missing type", "nodes: [{id: a}]", `node "a" has no type`},
		{"duplicate id", "nodes: [{id: a, type: Pass}, {id: a, type: Pass}]", `duplicate node id "a"`},
		{"dangling next", "nodes: [{id: a, type: Pass, next: zz}]", `unknown node "zz"`},
		{"dangling block", "nodes: [{id: a, type: If, entries: [{condition: 'True', block: [zz]}]}]", `unknown node "zz"`},
		{"dangling label", "labels: {start: zz}\nnodes: []", `label "start" refers to unknown node "zz"`},
		{"unknown field", "nodes: [{id: a, type: Pass, colour: red}]", "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_FromDisk(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "snap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(menuSnapshot), 0o644))

	g, err := Load(path)
	require.NoError(t, err)
	_, err = g.FindLabel("missing")
	assert.True(t, errors.Is(err, ast.ErrLabelNotFound))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot: open")
}
