package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jward/storytree"
	"github.com/jward/storytree/internal/config"
	"github.com/jward/storytree/scripts"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose bool
)

// cfg is the resolved configuration, loaded before any subcommand runs.
var cfg = &config.Config{Format: "json", DumpFormat: "py", Entry: storytree.DefaultEntryLabel, ModPrefix: storytree.DefaultModPrefix}

var logger = zap.NewNop().Sugar()

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "storytree",
	Short:         "Static reachability trees for visual-novel scripts",
	Long:          "storytree walks an exported script graph from its entry label, writes the reachable tree with the game's asset and image listings, and archives exports in SQLite for queries and report scripts.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		loaded, err := config.Load(flagConfig, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		flagFormat = cfg.Format
		l, err := newLogger(cfg.Verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "archive path (default: .storytree/exports.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: "+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging on stderr")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(runCmd)
}

// newLogger builds a console logger on stderr. Diagnostics go through it;
// command results stay on stdout.
func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.Sampling = nil
	zc.DisableStacktrace = true
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return l.Sugar(), nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the archive path from --db (or the db config key) or
// the default.
func resolveDBPath(repoRoot string) string {
	if cfg.DB != "" {
		if filepath.IsAbs(cfg.DB) {
			return cfg.DB
		}
		return filepath.Join(repoRoot, cfg.DB)
	}
	return filepath.Join(repoRoot, ".storytree", "exports.db")
}

// archiveOptions wires the script source: --scripts-dir overrides the
// embedded report scripts.
func archiveOptions() []storytree.ArchiveOption {
	opts := []storytree.ArchiveOption{storytree.WithArchiveLogger(logger)}
	if cfg.ScriptsDir != "" {
		return append(opts, storytree.WithScriptsDir(cfg.ScriptsDir))
	}
	return append(opts, storytree.WithScriptsFS(scripts.FS))
}

// openArchive opens the archive at the resolved path. When create is false
// the database must already exist.
func openArchive(create bool) (*storytree.Archive, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))

	if create {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, "", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
		}
	} else if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, "", fmt.Errorf("archive not found: %s (run 'storytree export' first)", dbPath)
	}

	a, err := storytree.OpenArchive(dbPath, archiveOptions()...)
	if err != nil {
		return nil, "", err
	}
	return a, dbPath, nil
}
