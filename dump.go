package storytree

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DumpFormat selects the on-disk layout of an export.
type DumpFormat string

const (
	// DumpPython writes three Python literal assignments: tree, game_files
	// and images.
	DumpPython DumpFormat = "py"
	// DumpJSON writes one JSON object with the same three members.
	DumpJSON DumpFormat = "json"
)

// DefaultModPrefix marks asset paths that belong to mods rather than the
// game itself.
const DefaultModPrefix = "mods/"

// ParseDumpFormat validates a format name.
func ParseDumpFormat(s string) (DumpFormat, error) {
	switch DumpFormat(s) {
	case DumpPython, DumpJSON:
		return DumpFormat(s), nil
	}
	return "", fmt.Errorf("invalid dump format %q: must be py or json", s)
}

// GameFiles returns paths that do not start with modPrefix, in order.
func GameFiles(paths []string, modPrefix string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if modPrefix != "" && strings.HasPrefix(p, modPrefix) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ImageNames joins each image's name parts with a space.
func ImageNames(images [][]string) []string {
	out := make([]string, len(images))
	for i, parts := range images {
		out[i] = strings.Join(parts, " ")
	}
	return out
}

// WriteDump serializes exp to w in the given format.
func WriteDump(w io.Writer, exp *Export, format DumpFormat) error {
	switch format {
	case DumpPython, "":
		return writePython(w, exp)
	case DumpJSON:
		return writeJSON(w, exp)
	}
	return fmt.Errorf("storytree: write dump: unsupported format %q", format)
}

func writePython(w io.Writer, exp *Export) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("tree={\n")
	for _, e := range exp.Tree.entries {
		fmt.Fprintf(bw, "%s:[\n", e.Key)
		for _, c := range e.Children {
			fmt.Fprintf(bw, "\t%s,\n", c)
		}
		bw.WriteString("],\n")
	}
	bw.WriteString("}\n")
	writePythonList(bw, "game_files", exp.GameFiles)
	writePythonList(bw, "images", exp.Images)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("storytree: write dump: %w", err)
	}
	return nil
}

func writePythonList(bw *bufio.Writer, name string, items []string) {
	fmt.Fprintf(bw, "%s=[\n", name)
	for _, it := range items {
		fmt.Fprintf(bw, "\t%s,\n", reprString(it))
	}
	bw.WriteString("]\n")
}

type jsonEntry struct {
	Key      Key   `json:"key"`
	Children []Key `json:"children"`
}

type jsonDump struct {
	Tree      []jsonEntry `json:"tree"`
	GameFiles []string    `json:"game_files"`
	Images    []string    `json:"images"`
}

func writeJSON(w io.Writer, exp *Export) error {
	d := jsonDump{
		Tree:      make([]jsonEntry, 0, exp.Tree.Len()),
		GameFiles: nonNil(exp.GameFiles),
		Images:    nonNil(exp.Images),
	}
	for _, e := range exp.Tree.entries {
		children := e.Children
		if children == nil {
			children = []Key{}
		}
		d.Tree = append(d.Tree, jsonEntry{Key: e.Key, Children: children})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("storytree: write dump: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
