package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"go.uber.org/zap"

	"github.com/jward/storytree/internal/store"
)

// Runtime embeds a Risor VM and exposes a stored export, tree-sitter host
// functions and a row collector to report scripts.
type Runtime struct {
	store      store.Reader
	scriptsDir string
	fsys       fs.FS
	sources    *sourceStore
	log        *zap.SugaredLogger
	labelKey   func(name string) string
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger routes the script-facing log object to log.
func WithRuntimeLogger(log *zap.SugaredLogger) RuntimeOption {
	return func(r *Runtime) {
		if log != nil {
			r.log = log
		}
	}
}

// WithLabelKey supplies the function behind the label_key global, which
// renders a label name as its stored node key.
func WithLabelKey(fn func(name string) string) RuntimeOption {
	return func(r *Runtime) {
		r.labelKey = fn
	}
}

// NewRuntime creates a Runtime reading from s and loading scripts from
// scriptsDir. s may be nil, in which case only the parsing and logging
// globals are available.
func NewRuntime(s store.Reader, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:      s,
		scriptsDir: scriptsDir,
		sources:    newSourceStore(),
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Row is one record emitted by a report script.
type Row = map[string]any

// RunScript loads and executes a Risor script against exportID. Rows the
// script passes to emit() are returned in emission order.
func (r *Runtime) RunScript(ctx context.Context, scriptPath, exportID string, extraGlobals map[string]any) ([]Row, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, exportID, extraGlobals)
}

// RunSource executes Risor source code directly. Useful for testing without
// script files.
func (r *Runtime) RunSource(ctx context.Context, source, exportID string, extraGlobals map[string]any) ([]Row, error) {
	return r.eval(ctx, source, "<inline>", exportID, extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label, exportID string, extraGlobals map[string]any) ([]Row, error) {
	out := &collector{}
	globals := r.buildGlobals(exportID, out, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Imported modules compile against the same names as the main script,
	// builtins included.
	names := risor.NewConfig(opts...).GlobalNames()
	if imp := r.buildImporter(names); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	r.log.Debugw("script finished", "script", label, "export", exportID, "rows", len(out.rows))
	return out.rows, nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globalNames []string) importer.Importer {
	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, relative paths are read from it. Absolute
// paths, and every path when no fs.FS is set, are read from disk with
// scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil && !filepath.IsAbs(path) {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// ReportScriptPath returns the path of a named report script. Names that
// already end in .risor are treated as paths.
func ReportScriptPath(name string) string {
	if strings.HasSuffix(name, ".risor") {
		return name
	}
	return filepath.Join("report", name+".risor")
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(exportID string, out *collector, extra map[string]any) map[string]any {
	globals := map[string]any{
		"export_id":  object.NewString(exportID),
		"emit":       makeEmitFn(out),
		"parse_src":  makeParseSrcFn(r.sources),
		"node_text":  makeNodeTextFn(r.sources),
		"node_child": makeNodeChildFn(),
		"query":      makeQueryFn(r.sources),
		"log":        mustProxy(&logObject{log: r.log.With("export", exportID)}),
	}

	// Archive access is absent when the Runtime has no store (tests, parse-only use).
	if r.store != nil {
		globals["node_keys"] = makeNodeKeysFn(r.store, exportID)
		globals["node"] = makeNodeFn(r.store, exportID)
		globals["children"] = makeChildrenFn(r.store, exportID)
		globals["parents"] = makeParentsFn(r.store, exportID)
		globals["nodes_by_tag"] = makeNodesByTagFn(r.store, exportID)
		globals["leaves"] = makeLeavesFn(r.store, exportID)
		globals["game_files"] = makeGameFilesFn(r.store, exportID)
		globals["images"] = makeImagesFn(r.store, exportID)
		globals["diagnostics"] = makeDiagnosticsFn(r.store, exportID)
		globals["python_targets"] = makePythonTargetsFn(r.store, exportID)
		globals["db_query"] = makeDBQueryFn(r.store)
	}
	if r.labelKey != nil {
		globals["label_key"] = makeLabelKeyFn(r.labelKey)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
