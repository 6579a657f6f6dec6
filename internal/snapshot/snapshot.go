// Package snapshot decodes a host export of the script graph into an
// ast.Graph.
//
// The host writes its graph as a YAML document (JSON is accepted too, being a
// subset of YAML). Statements refer to each other by node id:
//
//	labels:
//	  begingame: n1
//	nodes:
//	  - {id: n1, type: Label, file: game/script.rpy, line: 1, name: begingame, next: n2}
//	  - {id: n2, type: Say, file: game/script.rpy, line: 2, who: e, what: "Hello.", next: n3}
//	  - {id: n3, type: Jump, file: game/script.rpy, line: 3, target: chapter2}
//	files: [game/script.rpy, images/bg room.png]
//	images: [[bg, room]]
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jward/storytree/internal/ast"
)

type document struct {
	Labels map[string]string `yaml:"labels"`
	Nodes  []nodeRecord      `yaml:"nodes"`
	Files  []string          `yaml:"files"`
	Images [][]string        `yaml:"images"`
}

type nodeRecord struct {
	ID         string        `yaml:"id"`
	Type       string        `yaml:"type"`
	File       string        `yaml:"file"`
	Line       int           `yaml:"line"`
	Name       string        `yaml:"name"`
	Next       string        `yaml:"next"`
	OldNext    string        `yaml:"old_next"`
	Who        *string       `yaml:"who"`
	What       string        `yaml:"what"`
	Expr       string        `yaml:"expr"`
	Target     string        `yaml:"target"`
	Label      string        `yaml:"label"`
	Expression bool          `yaml:"expression"`
	Imspec     []string      `yaml:"imspec"`
	Code       string        `yaml:"code"`
	Store      *string       `yaml:"store"`
	Entries    []entryRecord `yaml:"entries"`
	Items      []itemRecord  `yaml:"items"`
}

type entryRecord struct {
	Condition string   `yaml:"condition"`
	Block     []string `yaml:"block"`
}

type itemRecord struct {
	Caption   string   `yaml:"caption"`
	Condition string   `yaml:"condition"`
	Block     []string `yaml:"block"`
}

// Load reads and decodes the snapshot at path.
func Load(path string) (*ast.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open: %w", err)
	}
	defer f.Close()
	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Decode reads one snapshot document from r and links its nodes.
// Unknown fields, duplicate ids and dangling references are errors.
func Decode(r io.Reader) (*ast.Graph, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("snapshot: empty document")
		}
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return build(&doc)
}

func build(doc *document) (*ast.Graph, error) {
	// First pass allocates every node so links can point forward.
	byID := make(map[string]*ast.Node, len(doc.Nodes))
	for i, rec := range doc.Nodes {
		if rec.ID == "" {
			return nil, fmt.Errorf("snapshot: node %d has no id", i)
		}
		if rec.Type == "" {
			return nil, fmt.Errorf("snapshot: node %q has no type", rec.ID)
		}
		if _, dup := byID[rec.ID]; dup {
			return nil, fmt.Errorf("snapshot: duplicate node id %q", rec.ID)
		}
		byID[rec.ID] = &ast.Node{
			Kind:       ast.Kind(rec.Type),
			Filename:   rec.File,
			Line:       rec.Line,
			Name:       rec.Name,
			Who:        rec.Who,
			What:       rec.What,
			Expr:       rec.Expr,
			Target:     rec.Target,
			Label:      rec.Label,
			Expression: rec.Expression,
			Imspec:     rec.Imspec,
			Code:       rec.Code,
			Store:      rec.Store,
		}
	}

	lookup := func(from, id string) (*ast.Node, error) {
		if id == "" {
			return nil, nil
		}
		n, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("snapshot: node %q refers to unknown node %q", from, id)
		}
		return n, nil
	}
	block := func(from string, ids []string) ([]*ast.Node, error) {
		var out []*ast.Node
		for _, id := range ids {
			n, err := lookup(from, id)
			if err != nil {
				return nil, err
			}
			if n != nil {
				out = append(out, n)
			}
		}
		return out, nil
	}

	for _, rec := range doc.Nodes {
		n := byID[rec.ID]
		var err error
		if n.Next, err = lookup(rec.ID, rec.Next); err != nil {
			return nil, err
		}
		if n.OldNext, err = lookup(rec.ID, rec.OldNext); err != nil {
			return nil, err
		}
		for _, e := range rec.Entries {
			b, err := block(rec.ID, e.Block)
			if err != nil {
				return nil, err
			}
			n.Entries = append(n.Entries, ast.IfEntry{Condition: e.Condition, Block: b})
		}
		for _, it := range rec.Items {
			b, err := block(rec.ID, it.Block)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, ast.MenuItem{Caption: it.Caption, Condition: it.Condition, Block: b})
		}
	}

	g := ast.NewGraph()
	for name, id := range doc.Labels {
		n, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("snapshot: label %q refers to unknown node %q", name, id)
		}
		g.AddLabel(name, n)
	}
	g.AddFiles(doc.Files...)
	for _, img := range doc.Images {
		g.AddImage(img...)
	}
	return g, nil
}
