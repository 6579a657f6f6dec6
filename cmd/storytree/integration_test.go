package main_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "storytree"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "storytree")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot returns the module root by walking up from the test file's
// directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// workspace creates a fake repo holding the chapter snapshot.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	data, err := os.ReadFile(filepath.Join(projectRoot(t), "testdata", "snapshots", "chapter.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chapter.yaml"), data, 0o644))
	return dir
}

func run(t *testing.T, bin, dir string, args ...string) ([]byte, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	return cmd.Output()
}

func runJSON(t *testing.T, bin, dir string, args ...string) map[string]any {
	t.Helper()
	stdout, err := run(t, bin, dir, args...)
	if err != nil && len(stdout) == 0 {
		t.Fatalf("%v failed with no output: %v", args, err)
	}
	var result map[string]any
	require.NoError(t, json.Unmarshal(stdout, &result), "invalid JSON output: %s", string(stdout))
	return result
}

// exportFixture builds the binary and exports the chapter snapshot into a
// fresh workspace.
func exportFixture(t *testing.T) (bin, dir, exportID string) {
	t.Helper()
	bin = buildBinary(t)
	dir = workspace(t)

	result := runJSON(t, bin, dir, "export", "chapter.yaml")
	require.Empty(t, result["error"])
	exp := result["results"].(map[string]any)
	require.FileExists(t, filepath.Join(dir, ".storytree", "exports.db"))
	return bin, dir, exp["id"].(string)
}

func TestExport_WritesDumpAndArchives(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := workspace(t)

	result := runJSON(t, bin, dir, "export", "chapter.yaml")
	assert.Equal(t, "export", result["command"])
	exp := result["results"].(map[string]any)
	assert.EqualValues(t, 11, exp["node_count"])
	assert.EqualValues(t, 10, exp["edge_count"])
	assert.EqualValues(t, 1, exp["diagnostics"])
	assert.Equal(t, true, exp["archived"])
	assert.NotEmpty(t, exp["tree_hash"])

	got, err := os.ReadFile(filepath.Join(dir, "game_tree.py"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(projectRoot(t), "testdata", "golden", "chapter.py"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestExport_NoSaveJSONDump(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := workspace(t)

	result := runJSON(t, bin, dir, "export", "chapter.yaml", "--no-save", "--dump-format", "json", "--out", "out/tree.json")
	assert.Empty(t, result["error"])
	assert.Equal(t, false, result["results"].(map[string]any)["archived"])

	data, err := os.ReadFile(filepath.Join(dir, "out", "tree.json"))
	require.NoError(t, err)
	var dump map[string]any
	require.NoError(t, json.Unmarshal(data, &dump))
	assert.Len(t, dump["tree"], 11)
	assert.NoFileExists(t, filepath.Join(dir, ".storytree", "exports.db"))
}

func TestExport_MissingEntry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := workspace(t)

	result := runJSON(t, bin, dir, "export", "chapter.yaml", "--entry", "nowhere")
	assert.Contains(t, result["error"], "nowhere")
	assert.NoFileExists(t, filepath.Join(dir, "game_tree.py"))
}

func TestExport_ConfigFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".storytree.yaml"), []byte("entry: side\nmod_prefix: \"\"\n"), 0o644))

	result := runJSON(t, bin, dir, "export", "chapter.yaml", "--no-save")
	exp := result["results"].(map[string]any)
	assert.Equal(t, "side", exp["entry_label"])
	assert.EqualValues(t, 2, exp["node_count"])
}

func TestQuery_Summary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir, id := exportFixture(t)

	result := runJSON(t, bin, dir, "query", "summary")
	assert.Equal(t, "summary", result["command"])
	s := result["results"].(map[string]any)
	assert.Equal(t, id, s["export"].(map[string]any)["id"])
	assert.EqualValues(t, 2, s["dead_ends"])
	assert.EqualValues(t, 3, s["tag_counts"].(map[string]any)["label"])
}

func TestQuery_ChildrenAndPath(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir, id := exportFixture(t)

	result := runJSON(t, bin, dir, "query", "children", "('game/script.rpy', 4, 'Menu')", "--export", id)
	children := result["results"].([]any)
	require.Len(t, children, 2)
	assert.Equal(t, "('game/script.rpy', 6, 'jump', 'chapter2')", children[0].(map[string]any)["literal"])

	result = runJSON(t, bin, dir, "query", "path", "side")
	path := result["results"].([]any)
	require.Len(t, path, 6)
	assert.Equal(t, "begingame", path[0].(map[string]any)["key"])

	result = runJSON(t, bin, dir, "query", "path", "cut_content")
	assert.Nil(t, result["results"])
}

func TestQuery_Listings(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir, _ := exportFixture(t)

	result := runJSON(t, bin, dir, "query", "files")
	assert.Len(t, result["results"], 4)

	result = runJSON(t, bin, dir, "query", "diagnostics")
	diags := result["results"].([]any)
	require.Len(t, diags, 1)
	assert.Equal(t, "dynamic-jump", diags[0].(map[string]any)["kind"])

	result = runJSON(t, bin, dir, "query", "leaves", "--dead-ends")
	assert.EqualValues(t, 2, result["total_count"])
}

func TestQuery_UnknownExport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir, _ := exportFixture(t)

	result := runJSON(t, bin, dir, "query", "nodes", "--export", "no-such-export")
	assert.Contains(t, result["error"], "export not found")
}

func TestQuery_NoArchive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := workspace(t)

	result := runJSON(t, bin, dir, "query", "exports")
	assert.Contains(t, result["error"], "archive not found")
}

func TestQuery_TextFormat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir, _ := exportFixture(t)

	out, err := run(t, bin, dir, "--format", "text", "query", "nodes", "--tag", "label")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "TAG")
}

func TestRun_EmbeddedReport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir, _ := exportFixture(t)

	result := runJSON(t, bin, dir, "run", "dead_ends")
	assert.Equal(t, "run", result["command"])
	assert.EqualValues(t, 2, result["total_count"])
}

func TestRun_DiskScript(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir, _ := exportFixture(t)
	script := filepath.Join(dir, "count.risor")
	require.NoError(t, os.WriteFile(script, []byte(`emit({"tag": tag, "n": len(nodes_by_tag(tag))})`), 0o644))

	result := runJSON(t, bin, dir, "run", script, "--var", "tag=jump")
	rows := result["results"].([]any)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0].(map[string]any)["n"])
}

func TestDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, dir, id := exportFixture(t)

	result := runJSON(t, bin, dir, "delete", id)
	assert.Empty(t, result["error"])

	result = runJSON(t, bin, dir, "query", "exports")
	assert.EqualValues(t, 0, result["total_count"])
}
