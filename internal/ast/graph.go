package ast

import (
	"errors"
	"fmt"
)

// ErrLabelNotFound is returned when a label name has no entry in the label
// table.
var ErrLabelNotFound = errors.New("label not found")

// Graph is an in-memory host: a label table plus the asset and image
// registries the host knew about when the snapshot was taken.
type Graph struct {
	labels map[string]*Node
	files  []string
	images [][]string
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{labels: make(map[string]*Node)}
}

// AddLabel registers node under name, replacing any previous entry.
func (g *Graph) AddLabel(name string, node *Node) {
	g.labels[name] = node
}

// AddFiles appends asset file paths in host order.
func (g *Graph) AddFiles(paths ...string) {
	g.files = append(g.files, paths...)
}

// AddImage registers an image by its name parts.
func (g *Graph) AddImage(parts ...string) {
	g.images = append(g.images, append([]string(nil), parts...))
}

// FindLabel returns the node registered under name.
func (g *Graph) FindLabel(name string) (*Node, error) {
	n, ok := g.labels[name]
	if !ok || n == nil {
		return nil, fmt.Errorf("find label %q: %w", name, ErrLabelNotFound)
	}
	return n, nil
}

// LabelCount returns the number of registered labels.
func (g *Graph) LabelCount() int {
	return len(g.labels)
}

// ListFiles returns the asset file paths in host order.
func (g *Graph) ListFiles() []string {
	return g.files
}

// Images returns the registered image names as name parts.
func (g *Graph) Images() [][]string {
	return g.images
}
