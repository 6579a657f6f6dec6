package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/storytree"
	"github.com/jward/storytree/internal/snapshot"
)

var flagNoSave bool

var exportCmd = &cobra.Command{
	Use:   "export <snapshot>",
	Short: "Walk a script graph snapshot and write its game tree",
	Long:  "Decodes a host snapshot (YAML or JSON), walks it from the entry label, writes the tree, game file and image listings to the dump file, and archives the export unless --no-save is given.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().String("out", "", "dump path (default: game_tree.<dump-format>)")
	exportCmd.Flags().String("dump-format", "py", "dump format: py|json")
	exportCmd.Flags().String("entry", storytree.DefaultEntryLabel, "entry label")
	exportCmd.Flags().String("mod-prefix", storytree.DefaultModPrefix, "asset path prefix excluded from game_files")
	exportCmd.Flags().Bool("python-targets", true, "scan code blocks for renpy.jump/renpy.call targets")
	exportCmd.Flags().BoolVar(&flagNoSave, "no-save", false, "write the dump without archiving the export")
}

func runExport(cmd *cobra.Command, args []string) error {
	start := time.Now()

	format, err := storytree.ParseDumpFormat(cfg.DumpFormat)
	if err != nil {
		return outputError("export", err)
	}

	g, err := snapshot.Load(args[0])
	if err != nil {
		return outputError("export", err)
	}

	exporter := storytree.New(g,
		storytree.WithEntryLabel(cfg.Entry),
		storytree.WithModPrefix(cfg.ModPrefix),
		storytree.WithPythonTargets(cfg.PythonTargets),
		storytree.WithLogger(logger),
	)

	dumpPath := cfg.DumpPath()
	exp, err := exporter.ExportFile(context.Background(), dumpPath, format)
	if err != nil {
		return outputError("export", err)
	}
	exportDuration := time.Since(start)

	diags := len(exp.Diagnostics)
	archived := !flagNoSave
	result := CLIExport{
		ID:          exp.ID,
		EntryLabel:  exp.EntryLabel,
		NodeCount:   exp.Tree.Len(),
		EdgeCount:   exp.Tree.EdgeCount(),
		CreatedAt:   exp.CreatedAt.Format(time.RFC3339),
		Dump:        dumpPath,
		Diagnostics: &diags,
		Archived:    &archived,
	}

	if archived {
		a, dbPath, err := openArchive(true)
		if err != nil {
			return outputError("export", err)
		}
		defer a.Close()
		rec, err := a.Save(exp)
		if err != nil {
			return outputError("export", err)
		}
		result.TreeHash = rec.TreeHash
		fmt.Fprintf(os.Stderr, "Archive: %s\n", dbPath)
	}

	fmt.Fprintf(os.Stderr, "Exported %s in %s (%d nodes, %d edges, %d diagnostics)\n",
		args[0],
		exportDuration.Round(time.Millisecond),
		result.NodeCount,
		result.EdgeCount,
		diags,
	)
	fmt.Fprintf(os.Stderr, "Dump: %s\n", dumpPath)

	return outputResult(CLIResult{Command: "export", Results: result})
}
