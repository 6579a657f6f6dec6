package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/storytree"
)

var (
	flagExport   string
	flagTag      string
	flagDeadEnds bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the export archive",
	Long:  "Run queries against an archived export. Node keys are given in their Python-literal form, e.g. \"('game/script.rpy', 4, 'Menu')\", or as a bare label name.",
}

func init() {
	queryCmd.PersistentFlags().StringVar(&flagExport, "export", "", "export ID (default: latest)")

	queryCmd.AddCommand(exportsCmd)
	queryCmd.AddCommand(childrenCmd)
	queryCmd.AddCommand(parentsCmd)
	queryCmd.AddCommand(nodesCmd)
	queryCmd.AddCommand(leavesCmd)
	queryCmd.AddCommand(pathCmd)
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(imagesCmd)
	queryCmd.AddCommand(diagnosticsCmd)
	queryCmd.AddCommand(pythonTargetsCmd)
	queryCmd.AddCommand(summaryCmd)
}

// --- Helpers ---

// withQuery opens the archive, binds a QueryBuilder to --export and writes
// whatever fn returns. fn reports the result count for total_count; a
// negative count omits it.
func withQuery(command string, fn func(q *storytree.QueryBuilder) (any, int, error)) error {
	a, _, err := openArchive(false)
	if err != nil {
		return outputError(command, err)
	}
	defer a.Close()

	q, err := a.Query(flagExport)
	if err != nil {
		return outputError(command, err)
	}
	results, count, err := fn(q)
	if err != nil {
		return outputError(command, err)
	}
	res := CLIResult{Command: command, Results: results}
	if count >= 0 {
		res.TotalCount = &count
	}
	return outputResult(res)
}

// parseKeyArg parses a node key argument.
func parseKeyArg(s string) (storytree.Key, error) {
	k, err := storytree.ParseKey(s)
	if err != nil {
		return storytree.Key{}, fmt.Errorf("invalid node key: %w", err)
	}
	return k, nil
}

func keyToCLI(k storytree.Key) CLIKey {
	raw, _ := json.Marshal(k)
	return CLIKey{Key: raw, Literal: k.String()}
}

func keysToCLI(keys []storytree.Key) []CLIKey {
	out := make([]CLIKey, len(keys))
	for i, k := range keys {
		out[i] = keyToCLI(k)
	}
	return out
}

// literalToCLI converts a stored key literal. Literals that fail to parse
// are reported as JSON strings.
func literalToCLI(lit string) CLIKey {
	k, err := storytree.ParseKey(lit)
	if err != nil {
		raw, _ := json.Marshal(lit)
		return CLIKey{Key: raw, Literal: lit}
	}
	return keyToCLI(k)
}

func nodesToCLI(nodes []*storytree.NodeRecord) []CLINode {
	out := make([]CLINode, len(nodes))
	for i, n := range nodes {
		ck := literalToCLI(n.Key)
		out[i] = CLINode{
			Key:     ck.Key,
			Literal: ck.Literal,
			Tag:     n.Tag,
			File:    n.File,
			Line:    n.Line,
			Ordinal: n.Ordinal,
		}
	}
	return out
}

func exportToCLI(e *storytree.ExportRecord) CLIExport {
	return CLIExport{
		ID:         e.ID,
		EntryLabel: e.EntryLabel,
		NodeCount:  e.NodeCount,
		EdgeCount:  e.EdgeCount,
		TreeHash:   e.TreeHash,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// --- Commands ---

var exportsCmd = &cobra.Command{
	Use:   "exports",
	Short: "List archived exports, newest first",
	Args:  cobra.NoArgs,
	RunE:  runExports,
}

func runExports(cmd *cobra.Command, args []string) error {
	a, _, err := openArchive(false)
	if err != nil {
		return outputError("exports", err)
	}
	defer a.Close()

	list, err := a.Exports()
	if err != nil {
		return outputError("exports", err)
	}
	out := make([]CLIExport, len(list))
	for i, e := range list {
		out[i] = exportToCLI(e)
	}
	n := len(out)
	return outputResult(CLIResult{Command: "exports", Results: out, TotalCount: &n})
}

var childrenCmd = &cobra.Command{
	Use:   "children <key>",
	Short: "List the successors of a node, in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeyQuery("children", args[0], (*storytree.QueryBuilder).Children)
	},
}

var parentsCmd = &cobra.Command{
	Use:   "parents <key>",
	Short: "List the nodes that lead to a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeyQuery("parents", args[0], (*storytree.QueryBuilder).Parents)
	},
}

var pathCmd = &cobra.Command{
	Use:   "path <key>",
	Short: "Shortest path from the entry label to a node",
	Long:  "Prints the chain of keys from the entry label to the node. Results are null when the node is unreachable.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeyQuery("path", args[0], (*storytree.QueryBuilder).PathTo)
	},
}

func runKeyQuery(command, arg string, fn func(*storytree.QueryBuilder, storytree.Key) ([]storytree.Key, error)) error {
	key, err := parseKeyArg(arg)
	if err != nil {
		return outputError(command, err)
	}
	return withQuery(command, func(q *storytree.QueryBuilder) (any, int, error) {
		keys, err := fn(q, key)
		if err != nil {
			return nil, 0, err
		}
		if keys == nil && command == "path" {
			return nil, 0, nil
		}
		return keysToCLI(keys), len(keys), nil
	})
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List visited nodes in visit order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("nodes", func(q *storytree.QueryBuilder) (any, int, error) {
			nodes, err := q.Nodes(flagTag)
			if err != nil {
				return nil, 0, err
			}
			return nodesToCLI(nodes), len(nodes), nil
		})
	},
}

func init() {
	nodesCmd.Flags().StringVar(&flagTag, "tag", "", "filter by tag (label, say, jump, Menu, ...)")
}

var leavesCmd = &cobra.Command{
	Use:   "leaves",
	Short: "List visited nodes with no successors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("leaves", func(q *storytree.QueryBuilder) (any, int, error) {
			var (
				nodes []*storytree.NodeRecord
				err   error
			)
			if flagDeadEnds {
				nodes, err = q.DeadEnds()
			} else {
				nodes, err = q.Leaves()
			}
			if err != nil {
				return nil, 0, err
			}
			return nodesToCLI(nodes), len(nodes), nil
		})
	},
}

func init() {
	leavesCmd.Flags().BoolVar(&flagDeadEnds, "dead-ends", false, "exclude Return statements")
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the export's game files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("files", func(q *storytree.QueryBuilder) (any, int, error) {
			files, err := q.GameFiles()
			return CLIListing(nonNil(files)), len(files), err
		})
	},
}

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List the export's image names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("images", func(q *storytree.QueryBuilder) (any, int, error) {
			images, err := q.Images()
			return CLIListing(nonNil(images)), len(images), err
		})
	},
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "List successors the walk could not follow",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("diagnostics", func(q *storytree.QueryBuilder) (any, int, error) {
			diags, err := q.Diagnostics()
			if err != nil {
				return nil, 0, err
			}
			out := make([]CLIDiagnostic, len(diags))
			for i, d := range diags {
				out[i] = CLIDiagnostic{
					Kind:    d.Kind,
					Node:    d.NodeKey,
					File:    d.File,
					Line:    d.Line,
					Target:  d.Target,
					Message: d.Message,
				}
			}
			return out, len(out), nil
		})
	},
}

var pythonTargetsCmd = &cobra.Command{
	Use:   "python-targets",
	Short: "List renpy.jump/renpy.call targets found in code blocks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("python-targets", func(q *storytree.QueryBuilder) (any, int, error) {
			pts, err := q.PythonTargets()
			if err != nil {
				return nil, 0, err
			}
			out := make([]CLIPythonTarget, len(pts))
			for i, pt := range pts {
				out[i] = CLIPythonTarget{
					Node:     pt.NodeKey,
					Function: pt.Function,
					Label:    pt.Label,
					Dynamic:  pt.Dynamic,
					File:     pt.File,
					Line:     pt.Line,
				}
			}
			return out, len(out), nil
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Counts for an export",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("summary", func(q *storytree.QueryBuilder) (any, int, error) {
			s, err := q.Summary()
			if err != nil {
				return nil, 0, err
			}
			return CLISummary{
				Export:        exportToCLI(s.Export),
				TagCounts:     s.TagCounts,
				Leaves:        s.Leaves,
				DeadEnds:      s.DeadEnds,
				Diagnostics:   s.Diagnostics,
				PythonTargets: s.PythonTargets,
				GameFiles:     s.GameFiles,
				Images:        s.Images,
			}, -1, nil
		})
	},
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}
