package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var flagVars []string

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a report script over an archived export",
	Long:  "Runs an embedded report (summary, dead_ends, python_targets) or a .risor file and prints the rows it emits. --scripts-dir loads reports from disk instead of the embedded set.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().String("scripts-dir", "", "load report scripts from disk path instead of embedded")
	runCmd.Flags().StringVar(&flagExport, "export", "", "export ID (default: latest)")
	runCmd.Flags().StringArrayVar(&flagVars, "var", nil, "extra script global as name=value (repeatable)")
	rootCmd.AddCommand(deleteCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	globals, err := parseVars(flagVars)
	if err != nil {
		return outputError("run", err)
	}

	a, _, err := openArchive(false)
	if err != nil {
		return outputError("run", err)
	}
	defer a.Close()

	rows, err := a.RunScript(context.Background(), args[0], flagExport, globals)
	if err != nil {
		return outputError("run", err)
	}
	out := make(CLIRows, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	n := len(out)
	return outputResult(CLIResult{Command: "run", Results: out, TotalCount: &n})
}

// parseVars turns name=value pairs into script globals.
func parseVars(vars []string) (map[string]any, error) {
	if len(vars) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(vars))
	for _, v := range vars {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: want name=value", v)
		}
		out[name] = value
	}
	return out, nil
}

var deleteCmd = &cobra.Command{
	Use:   "delete <export-id>",
	Short: "Remove an export from the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := openArchive(false)
		if err != nil {
			return outputError("delete", err)
		}
		defer a.Close()

		if err := a.Delete(args[0]); err != nil {
			return outputError("delete", err)
		}
		fmt.Fprintf(os.Stderr, "Deleted %s\n", args[0])
		return outputResult(CLIResult{Command: "delete", Results: args[0]})
	},
}
