package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storytree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("entry", "begingame", "")
	fs.String("mod-prefix", "mods/", "")
	fs.String("format", "json", "")
	fs.Bool("python-targets", true, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "begingame", cfg.Entry)
	assert.Equal(t, "mods/", cfg.ModPrefix)
	assert.Equal(t, "py", cfg.DumpFormat)
	assert.True(t, cfg.PythonTargets)
	assert.False(t, cfg.Verbose)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
db: /tmp/archive.db
entry: start
mod_prefix: ""
dump_format: json
python_targets: false
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/archive.db", cfg.DB)
	assert.Equal(t, "start", cfg.Entry)
	assert.Equal(t, "", cfg.ModPrefix)
	assert.Equal(t, "json", cfg.DumpFormat)
	assert.False(t, cfg.PythonTargets)
	assert.Equal(t, "json", cfg.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "entry: start\n")
	t.Setenv("STORYTREE_ENTRY", "side")
	t.Setenv("STORYTREE_PYTHON_TARGETS", "false")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "side", cfg.Entry)
	assert.False(t, cfg.PythonTargets)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("STORYTREE_ENTRY", "side")

	cfg, err := Load("", testFlags(t, "--entry=chapter2"))
	require.NoError(t, err)
	assert.Equal(t, "chapter2", cfg.Entry)
}

func TestLoad_UnchangedFlagKeepsFile(t *testing.T) {
	path := writeConfig(t, "mod_prefix: addons/\nformat: text\n")

	cfg, err := Load(path, testFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "addons/", cfg.ModPrefix)
	assert.Equal(t, "text", cfg.Format)
}

func TestLoad_InvalidFormat(t *testing.T) {
	path := writeConfig(t, "format: xml\n")
	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format")
}

func TestLoad_InvalidDumpFormat(t *testing.T) {
	path := writeConfig(t, "dump_format: csv\n")
	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dump_format")
}

func TestDumpPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "game_tree.py", (&Config{DumpFormat: "py"}).DumpPath())
	assert.Equal(t, "game_tree.json", (&Config{DumpFormat: "json"}).DumpPath())
	assert.Equal(t, "out/tree.py", (&Config{Out: "out/tree.py", DumpFormat: "json"}).DumpPath())
}
