package storytree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jward/storytree/internal/pyscan"
)

// Export is the result of one traversal: the game tree plus the host's asset
// and image listings at the time of the walk.
type Export struct {
	ID            string
	EntryLabel    string
	CreatedAt     time.Time
	Tree          *GameTree
	GameFiles     []string
	Images        []string
	Diagnostics   []Diagnostic
	PythonTargets []PythonTarget
}

// PythonTarget is a label transfer found inside a visited code block.
type PythonTarget struct {
	From     Key
	Function string
	Label    string
	Dynamic  bool
	File     string
	Line     int
}

// Exporter walks a Host and produces Exports.
type Exporter struct {
	host          Host
	entry         string
	modPrefix     string
	pythonTargets bool
	log           *zap.SugaredLogger
	now           func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithEntryLabel sets the label the walk starts from.
func WithEntryLabel(name string) Option {
	return func(e *Exporter) {
		e.entry = name
	}
}

// WithModPrefix sets the path prefix excluded from the game file listing.
// An empty prefix keeps every path.
func WithModPrefix(prefix string) Option {
	return func(e *Exporter) {
		e.modPrefix = prefix
	}
}

// WithLogger routes diagnostics to log.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Exporter) {
		if log != nil {
			e.log = log
		}
	}
}

// WithPythonTargets controls scanning of visited code blocks for
// renpy.jump/renpy.call targets. Enabled by default.
func WithPythonTargets(enabled bool) Option {
	return func(e *Exporter) {
		e.pythonTargets = enabled
	}
}

// New creates an Exporter reading from host.
func New(host Host, opts ...Option) *Exporter {
	e := &Exporter{
		host:          host,
		entry:         DefaultEntryLabel,
		modPrefix:     DefaultModPrefix,
		pythonTargets: true,
		log:           zap.NewNop().Sugar(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export performs a single traversal of the host graph.
func (e *Exporter) Export(ctx context.Context) (*Export, error) {
	tree, diags, err := ReadGameTree(e.host, e.entry, e.log)
	if err != nil {
		return nil, fmt.Errorf("storytree: read game tree: %w", err)
	}

	exp := &Export{
		ID:          uuid.NewString(),
		EntryLabel:  e.entry,
		CreatedAt:   e.now().UTC(),
		Tree:        tree,
		GameFiles:   GameFiles(e.host.ListFiles(), e.modPrefix),
		Images:      ImageNames(e.host.Images()),
		Diagnostics: diags,
	}

	if e.pythonTargets {
		targets, err := e.scanPython(ctx, tree)
		if err != nil {
			return nil, fmt.Errorf("storytree: scan code blocks: %w", err)
		}
		exp.PythonTargets = targets
	}

	e.log.Infow("export complete",
		"export", exp.ID,
		"nodes", tree.Len(),
		"edges", tree.EdgeCount(),
		"game_files", len(exp.GameFiles),
		"images", len(exp.Images),
		"diagnostics", len(diags),
	)
	return exp, nil
}

func (e *Exporter) scanPython(ctx context.Context, tree *GameTree) ([]PythonTarget, error) {
	var out []PythonTarget
	for _, entry := range tree.entries {
		n := entry.Node
		if n == nil || !n.IsPythonFamily() {
			continue
		}
		found, err := pyscan.Scan(ctx, n.Code)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", n.Filename, n.Line, err)
		}
		for _, t := range found {
			out = append(out, PythonTarget{
				From:     entry.Key,
				Function: t.Function,
				Label:    t.Label,
				Dynamic:  t.Dynamic,
				File:     n.Filename,
				Line:     n.Line + t.Row,
			})
		}
	}
	return out, nil
}

// ExportFile exports and writes the dump to path. The file is created once
// and closed after the whole dump has been written.
func (e *Exporter) ExportFile(ctx context.Context, path string, format DumpFormat) (*Export, error) {
	exp, err := e.Export(ctx)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storytree: create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("storytree: create dump: %w", err)
	}
	if err := WriteDump(f, exp, format); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("storytree: close dump: %w", err)
	}
	return exp, nil
}
