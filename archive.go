package storytree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/jward/storytree/internal/runtime"
	"github.com/jward/storytree/internal/store"
)

// Archive stores exports in SQLite and runs report scripts over them.
type Archive struct {
	store      *store.Store
	runtime    *runtime.Runtime
	scriptsDir string
	scriptsFS  fs.FS
	log        *zap.SugaredLogger
}

// ArchiveOption configures an Archive.
type ArchiveOption func(*Archive)

// WithScriptsFS loads report scripts from fsys, typically the embedded
// scripts.FS. It takes precedence over WithScriptsDir.
func WithScriptsFS(fsys fs.FS) ArchiveOption {
	return func(a *Archive) {
		a.scriptsFS = fsys
	}
}

// WithScriptsDir loads report scripts from dir on disk.
func WithScriptsDir(dir string) ArchiveOption {
	return func(a *Archive) {
		a.scriptsDir = dir
	}
}

// WithArchiveLogger sets the logger used by the archive and its scripts.
func WithArchiveLogger(log *zap.SugaredLogger) ArchiveOption {
	return func(a *Archive) {
		if log != nil {
			a.log = log
		}
	}
}

// OpenArchive opens (creating if needed) the archive database at dbPath.
func OpenArchive(dbPath string, opts ...ArchiveOption) (*Archive, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("storytree: open archive: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("storytree: migrate: %w", err)
	}

	a := &Archive{store: s, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(a)
	}

	rtOpts := []runtime.RuntimeOption{
		runtime.WithRuntimeLogger(a.log),
		runtime.WithLabelKey(func(name string) string { return LabelKey(name).String() }),
	}
	if a.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(a.scriptsFS))
	}
	a.runtime = runtime.NewRuntime(s, a.scriptsDir, rtOpts...)
	return a, nil
}

// Close releases the archive's database resources.
func (a *Archive) Close() error {
	return a.store.Close()
}

// Store returns the underlying Store for direct access.
func (a *Archive) Store() *Store {
	return a.store
}

// Save writes exp to the archive in one transaction and makes it the latest
// export.
func (a *Archive) Save(exp *Export) (*ExportRecord, error) {
	if exp == nil || exp.Tree == nil {
		return nil, errors.New("storytree: save: empty export")
	}
	batch := store.NewExportBatch(store.Export{
		ID:         exp.ID,
		EntryLabel: exp.EntryLabel,
		CreatedAt:  exp.CreatedAt,
	})

	for _, entry := range exp.Tree.entries {
		parent := entry.Key.String()
		batch.AddNode(store.Node{
			Key:  parent,
			Tag:  entry.Key.Tag(),
			File: entry.Key.File(),
			Line: entry.Key.Line(),
		})
		for _, child := range entry.Children {
			batch.AddEdge(parent, child.String())
		}
	}
	for _, f := range exp.GameFiles {
		batch.AddGameFile(f)
	}
	for _, img := range exp.Images {
		batch.AddImage(img)
	}
	for _, d := range exp.Diagnostics {
		batch.AddDiagnostic(store.Diagnostic{
			Kind:    d.Kind,
			NodeKey: d.Key.String(),
			File:    d.File,
			Line:    d.Line,
			Target:  d.Target,
			Message: d.Message,
		})
	}
	for _, pt := range exp.PythonTargets {
		batch.AddPythonTarget(store.PythonTarget{
			NodeKey:  pt.From.String(),
			Function: pt.Function,
			Label:    pt.Label,
			Dynamic:  pt.Dynamic,
			File:     pt.File,
			Line:     pt.Line,
		})
	}

	if err := a.store.CommitBatch(batch); err != nil {
		return nil, fmt.Errorf("storytree: save %s: %w", exp.ID, err)
	}
	a.log.Infow("export archived",
		"export", exp.ID,
		"nodes", batch.Export.NodeCount,
		"edges", batch.Export.EdgeCount,
		"hash", batch.Export.TreeHash,
	)
	rec := batch.Export
	return &rec, nil
}

// Resolve returns exportID if it is archived, or the latest export's ID when
// exportID is empty.
func (a *Archive) Resolve(exportID string) (string, error) {
	if exportID == "" {
		id, err := a.store.LatestExportID()
		if err != nil {
			return "", fmt.Errorf("storytree: %w", err)
		}
		return id, nil
	}
	exp, err := a.store.ExportByID(exportID)
	if err != nil {
		return "", fmt.Errorf("storytree: %w", err)
	}
	if exp == nil {
		return "", fmt.Errorf("storytree: %s: %w", exportID, ErrExportNotFound)
	}
	return exp.ID, nil
}

// Exports lists archived exports, newest first.
func (a *Archive) Exports() ([]*ExportRecord, error) {
	out, err := a.store.Exports()
	if err != nil {
		return nil, fmt.Errorf("storytree: %w", err)
	}
	return out, nil
}

// Delete removes an archived export.
func (a *Archive) Delete(exportID string) error {
	if err := a.store.DeleteExport(exportID); err != nil {
		return fmt.Errorf("storytree: %w", err)
	}
	return nil
}

// Query returns a QueryBuilder bound to exportID (empty means latest).
func (a *Archive) Query(exportID string) (*QueryBuilder, error) {
	id, err := a.Resolve(exportID)
	if err != nil {
		return nil, err
	}
	return &QueryBuilder{store: a.store, exportID: id}, nil
}

// RunScript runs a report script against an archived export. name is either
// an embedded report name ("summary") or a path ending in .risor.
func (a *Archive) RunScript(ctx context.Context, name, exportID string, globals map[string]any) ([]runtime.Row, error) {
	id, err := a.Resolve(exportID)
	if err != nil {
		return nil, err
	}
	rows, err := a.runtime.RunScript(ctx, runtime.ReportScriptPath(name), id, globals)
	if err != nil {
		return nil, fmt.Errorf("storytree: %w", err)
	}
	return rows, nil
}
