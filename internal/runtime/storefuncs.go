package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/storytree/internal/store"
)

// Archive bridge functions. Each is bound to one export so scripts never pass
// the export ID themselves.

func makeNodeKeysFn(s store.Reader, exportID string) *object.Builtin {
	return object.NewBuiltin("node_keys", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("node_keys", 0, len(args))
		}
		nodes, err := s.NodesByExport(exportID)
		if err != nil {
			return object.Errorf("node_keys: %v", err)
		}
		keys := make([]string, len(nodes))
		for i, n := range nodes {
			keys[i] = n.Key
		}
		return stringsToList(keys)
	})
}

// node(key) → map or nil
func makeNodeFn(s store.Reader, exportID string) *object.Builtin {
	return object.NewBuiltin("node", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node", 1, len(args))
		}
		key, err := toString(args[0])
		if err != nil {
			return object.Errorf("node: %v", err)
		}
		n, err := s.NodeByKey(exportID, key)
		if err != nil {
			return object.Errorf("node: %v", err)
		}
		if n == nil {
			return object.Nil
		}
		return nodeToMap(n)
	})
}

// children(key) → []string
func makeChildrenFn(s store.Reader, exportID string) *object.Builtin {
	return makeKeyListFn("children", func(key string) ([]string, error) {
		return s.Children(exportID, key)
	})
}

// parents(key) → []string
func makeParentsFn(s store.Reader, exportID string) *object.Builtin {
	return makeKeyListFn("parents", func(key string) ([]string, error) {
		return s.Parents(exportID, key)
	})
}

func makeKeyListFn(name string, fn func(key string) ([]string, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		key, err := toString(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		out, err := fn(key)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return stringsToList(out)
	})
}

// nodes_by_tag(tag) → []map
func makeNodesByTagFn(s store.Reader, exportID string) *object.Builtin {
	return object.NewBuiltin("nodes_by_tag", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("nodes_by_tag", 1, len(args))
		}
		tag, err := toString(args[0])
		if err != nil {
			return object.Errorf("nodes_by_tag: %v", err)
		}
		nodes, err := s.NodesByTag(exportID, tag)
		if err != nil {
			return object.Errorf("nodes_by_tag: %v", err)
		}
		return nodesToList(nodes)
	})
}

// leaves() → []map
func makeLeavesFn(s store.Reader, exportID string) *object.Builtin {
	return object.NewBuiltin("leaves", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("leaves", 0, len(args))
		}
		nodes, err := s.Leaves(exportID)
		if err != nil {
			return object.Errorf("leaves: %v", err)
		}
		return nodesToList(nodes)
	})
}

func makeGameFilesFn(s store.Reader, exportID string) *object.Builtin {
	return makeListingFn("game_files", func() ([]string, error) { return s.GameFiles(exportID) })
}

func makeImagesFn(s store.Reader, exportID string) *object.Builtin {
	return makeListingFn("images", func() ([]string, error) { return s.Images(exportID) })
}

func makeListingFn(name string, fn func() ([]string, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError(name, 0, len(args))
		}
		out, err := fn()
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return stringsToList(out)
	})
}

// diagnostics() → []map
func makeDiagnosticsFn(s store.Reader, exportID string) *object.Builtin {
	return object.NewBuiltin("diagnostics", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("diagnostics", 0, len(args))
		}
		diags, err := s.Diagnostics(exportID)
		if err != nil {
			return object.Errorf("diagnostics: %v", err)
		}
		results := make([]object.Object, 0, len(diags))
		for _, d := range diags {
			results = append(results, object.NewMap(map[string]object.Object{
				"kind":    object.NewString(d.Kind),
				"key":     object.NewString(d.NodeKey),
				"file":    object.NewString(d.File),
				"line":    object.NewInt(int64(d.Line)),
				"target":  object.NewString(d.Target),
				"message": object.NewString(d.Message),
			}))
		}
		return object.NewList(results)
	})
}

// python_targets() → []map
func makePythonTargetsFn(s store.Reader, exportID string) *object.Builtin {
	return object.NewBuiltin("python_targets", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("python_targets", 0, len(args))
		}
		pts, err := s.PythonTargets(exportID)
		if err != nil {
			return object.Errorf("python_targets: %v", err)
		}
		results := make([]object.Object, 0, len(pts))
		for _, pt := range pts {
			results = append(results, object.NewMap(map[string]object.Object{
				"key":      object.NewString(pt.NodeKey),
				"function": object.NewString(pt.Function),
				"label":    object.NewString(pt.Label),
				"dynamic":  object.NewBool(pt.Dynamic),
				"file":     object.NewString(pt.File),
				"line":     object.NewInt(int64(pt.Line)),
			}))
		}
		return object.NewList(results)
	})
}

// label_key(name) → string
func makeLabelKeyFn(fn func(name string) string) *object.Builtin {
	return object.NewBuiltin("label_key", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("label_key", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("label_key: %v", err)
		}
		return object.NewString(fn(name))
	})
}

// makeDBQueryFn creates a db_query bridge that executes read-only SQL.
// Only statements starting with SELECT are accepted, and they run with
// query_only set. Returns a list of maps (column name → value).
//
// db_query(sql, args...) → []map
func makeDBQueryFn(s store.Reader) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		queryArgs := make([]any, 0, len(args)-1)
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		// The prefix check alone lets a trailing statement through, so the
		// query runs on a connection SQLite holds read-only.
		conn, err := s.DB().Conn(ctx)
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}
		defer conn.Close()
		if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			return object.Errorf("db_query: %v", err)
		}
		defer conn.ExecContext(context.Background(), "PRAGMA query_only = OFF")

		rows, err := conn.QueryContext(ctx, sqlStr, queryArgs...)
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return object.Errorf("db_query: columns: %v", err)
		}

		results := []object.Object{}
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return object.NewList(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func nodeToMap(n *store.Node) object.Object {
	return object.NewMap(map[string]object.Object{
		"key":     object.NewString(n.Key),
		"tag":     object.NewString(n.Tag),
		"file":    object.NewString(n.File),
		"line":    object.NewInt(int64(n.Line)),
		"ordinal": object.NewInt(int64(n.Ordinal)),
	})
}

func nodesToList(nodes []*store.Node) object.Object {
	results := make([]object.Object, 0, len(nodes))
	for _, n := range nodes {
		results = append(results, nodeToMap(n))
	}
	return object.NewList(results)
}

func stringsToList(ss []string) object.Object {
	results := make([]object.Object, 0, len(ss))
	for _, s := range ss {
		results = append(results, object.NewString(s))
	}
	return object.NewList(results)
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
