package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
)

// formatExportsText formats CLIExport results as aligned columns.
func formatExportsText(w io.Writer, exports []CLIExport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tENTRY\tNODES\tEDGES\tCREATED\tHASH")
	for _, e := range exports {
		hash := e.TreeHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			e.ID, e.EntryLabel, e.NodeCount, e.EdgeCount, e.CreatedAt, hash)
	}
	tw.Flush()
}

// formatKeysText prints one key literal per line.
func formatKeysText(w io.Writer, keys []CLIKey) {
	for _, k := range keys {
		fmt.Fprintln(w, k.Literal)
	}
}

// formatNodesText formats CLINode results as aligned columns.
func formatNodesText(w io.Writer, nodes []CLINode) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORD\tTAG\tFILE\tLINE\tKEY")
	for _, n := range nodes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", n.Ordinal, n.Tag, n.File, n.Line, n.Literal)
	}
	tw.Flush()
}

// formatDiagnosticsText formats CLIDiagnostic results as "file:line: kind: message".
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s:%d: %s: %s\n", d.File, d.Line, d.Kind, d.Message)
	}
}

// formatPythonTargetsText formats CLIPythonTarget results as aligned columns.
func formatPythonTargetsText(w io.Writer, pts []CLIPythonTarget) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FUNCTION\tLABEL\tDYNAMIC\tFILE\tLINE")
	for _, pt := range pts {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%d\n", pt.Function, pt.Label, pt.Dynamic, pt.File, pt.Line)
	}
	tw.Flush()
}

// formatSummaryText formats CLISummary as readable text.
func formatSummaryText(w io.Writer, s CLISummary) {
	fmt.Fprintf(w, "Export: %s\n", s.Export.ID)
	fmt.Fprintf(w, "Entry: %s\n", s.Export.EntryLabel)
	fmt.Fprintf(w, "Nodes: %d\n", s.Export.NodeCount)
	fmt.Fprintf(w, "Edges: %d\n", s.Export.EdgeCount)
	fmt.Fprintf(w, "Leaves: %d (%d dead ends)\n", s.Leaves, s.DeadEnds)
	fmt.Fprintf(w, "Diagnostics: %d\n", s.Diagnostics)
	fmt.Fprintf(w, "Python targets: %d\n", s.PythonTargets)
	fmt.Fprintf(w, "Game files: %d\n", s.GameFiles)
	fmt.Fprintf(w, "Images: %d\n", s.Images)

	if len(s.TagCounts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tags:")
		tags := make([]string, 0, len(s.TagCounts))
		for tag := range s.TagCounts {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			fmt.Fprintf(w, "  %s: %d\n", tag, s.TagCounts[tag])
		}
	}
}

// formatRowsText prints script rows as aligned columns over the union of
// their keys, sorted by name.
func formatRowsText(w io.Writer, rows CLIRows) {
	seen := map[string]bool{}
	var cols []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))
	for _, r := range rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := r[c]; ok && v != nil {
				vals[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(vals, "\t"))
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case CLIExport:
		formatExportsText(w, []CLIExport{v})
	case []CLIExport:
		formatExportsText(w, v)
	case []CLIKey:
		formatKeysText(w, v)
	case []CLINode:
		formatNodesText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case []CLIPythonTarget:
		formatPythonTargetsText(w, v)
	case CLISummary:
		formatSummaryText(w, v)
	case CLIListing:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case CLIRows:
		formatRowsText(w, v)
	case string:
		fmt.Fprintln(w, v)
	case nil:
		// No output for nil results (e.g. path to an unreachable node).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
