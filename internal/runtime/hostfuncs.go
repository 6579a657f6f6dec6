package runtime

import (
	"context"
	"sync"
	"unsafe"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/jward/storytree/internal/pyscan"
)

// ParserForLanguage returns the tree-sitter grammar for a language name.
// Code blocks are Python, so that is the only grammar scripts can parse.
func ParserForLanguage(lang string) (*sitter.Language, bool) {
	if lang == "python" {
		return pyscan.Language(), true
	}
	return nil, false
}

// sourceStore tracks source bytes and language for each parsed tree.
// node_text and query need to recover source/language from a Node, but
// smacker/go-tree-sitter doesn't expose Node.Tree(). Mappings are keyed by
// root node pointer.
type sourceStore struct {
	mu      sync.RWMutex
	sources map[uintptr][]byte
	langs   map[uintptr]*sitter.Language
}

func newSourceStore() *sourceStore {
	return &sourceStore{
		sources: make(map[uintptr][]byte),
		langs:   make(map[uintptr]*sitter.Language),
	}
}

func (s *sourceStore) store(tree *sitter.Tree, src []byte, lang *sitter.Language) {
	key := uintptr(unsafe.Pointer(tree.RootNode()))
	s.mu.Lock()
	s.sources[key] = src
	s.langs[key] = lang
	s.mu.Unlock()
}

func rootOf(node *sitter.Node) *sitter.Node {
	for node.Parent() != nil {
		node = node.Parent()
	}
	return node
}

// lookup returns the source and language of the tree node belongs to.
func (s *sourceStore) lookup(node *sitter.Node) ([]byte, *sitter.Language, bool) {
	key := uintptr(unsafe.Pointer(rootOf(node)))
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[key]
	if !ok {
		return nil, nil, false
	}
	return src, s.langs[key], true
}

// nodeArg unwraps a proxied *sitter.Node argument.
func nodeArg(fn string, obj object.Object) (*sitter.Node, *object.Error) {
	proxy, ok := obj.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected proxy (Node), got %s", fn, obj.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok {
		return nil, object.Errorf("%s: expected *sitter.Node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

// makeParseSrcFn creates "parse_src". The language defaults to python.
//
// parse_src(source[, language]) → *sitter.Tree
func makeParseSrcFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("parse_src: expected 1 or 2 arguments, got %d", len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_src: source %v", err)
		}
		langName := "python"
		if len(args) == 2 {
			if langName, err = toString(args[1]); err != nil {
				return object.Errorf("parse_src: language %v", err)
			}
		}
		lang, found := ParserForLanguage(langName)
		if !found {
			return object.Errorf("parse_src: unsupported language %q", langName)
		}

		parser := sitter.NewParser()
		defer parser.Close()
		parser.SetLanguage(lang)

		tree, perr := parser.ParseCtx(ctx, nil, []byte(src))
		if perr != nil {
			return object.Errorf("parse_src: tree-sitter parse failed: %v", perr)
		}
		ss.store(tree, []byte(src), lang)

		proxy, perr := object.NewProxy(tree)
		if perr != nil {
			return object.Errorf("parse_src: proxy error: %v", perr)
		}
		return proxy
	})
}

// makeNodeTextFn creates "node_text". Risor's proxy system cannot convert
// strings to []byte for node.Content([]byte).
//
// node_text(node) → string
func makeNodeTextFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		src, _, found := ss.lookup(node)
		if !found {
			return object.Errorf("node_text: no source found for node's tree")
		}
		return object.NewString(node.Content(src))
	})
}

// makeQueryFn creates "query". Each match is a map from capture name to
// proxied Node.
//
// query(pattern, node) → []map[string]Node
func makeQueryFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("query", 2, len(args))
		}
		pattern, err := toString(args[0])
		if err != nil {
			return object.Errorf("query: pattern %v", err)
		}
		node, errObj := nodeArg("query", args[1])
		if errObj != nil {
			return errObj
		}
		src, lang, found := ss.lookup(node)
		if !found {
			return object.Errorf("query: no source found for node's tree")
		}

		q, qerr := sitter.NewQuery([]byte(pattern), lang)
		if qerr != nil {
			return object.Errorf("query: invalid pattern: %v", qerr)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, src)
			captures := make(map[string]object.Object, len(match.Captures))
			for _, c := range match.Captures {
				name := q.CaptureNameForId(c.Index)
				p, perr := object.NewProxy(c.Node)
				if perr != nil {
					return object.Errorf("query: proxy error for capture %q: %v", name, perr)
				}
				captures[name] = p
			}
			results = append(results, object.NewMap(captures))
		}
		return object.NewList(results)
	})
}

// makeNodeChildFn creates "node_child", a ChildByFieldName wrapper that
// returns Risor nil instead of a proxied Go nil pointer.
//
// node_child(node, fieldName) → Node or nil
func makeNodeChildFn() *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}
		node, errObj := nodeArg("node_child", args[0])
		if errObj != nil {
			return errObj
		}
		field, err := toString(args[1])
		if err != nil {
			return object.Errorf("node_child: field %v", err)
		}
		child := node.ChildByFieldName(field)
		if child == nil {
			return object.Nil
		}
		p, perr := object.NewProxy(child)
		if perr != nil {
			return object.Errorf("node_child: proxy error: %v", perr)
		}
		return p
	})
}

// collector accumulates rows passed to emit().
type collector struct {
	mu   sync.Mutex
	rows []Row
}

// makeEmitFn creates "emit", which appends one report row.
//
// emit(map)
func makeEmitFn(c *collector) *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("emit", 1, len(args))
		}
		m, ok := args[0].(*object.Map)
		if !ok {
			return object.Errorf("emit: expected map, got %s", args[0].Type())
		}
		row, ok := m.Interface().(map[string]any)
		if !ok {
			return object.Errorf("emit: cannot convert %s", args[0].Type())
		}
		c.mu.Lock()
		c.rows = append(c.rows, row)
		c.mu.Unlock()
		return object.Nil
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	log *zap.SugaredLogger
}

func (l *logObject) Info(msg string) {
	l.log.Infow(msg, "source", "script")
}

func (l *logObject) Warn(msg string) {
	l.log.Warnw(msg, "source", "script")
}

func (l *logObject) Error(msg string) {
	l.log.Errorw(msg, "source", "script")
}
