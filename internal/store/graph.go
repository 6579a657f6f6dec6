package store

import (
	"database/sql"
	"fmt"
)

// NodeCols is the column list for node queries.
const NodeCols = "id, export_id, key, tag, file, line, ordinal"

func scanNode(sc scanner) (*Node, error) {
	n := &Node{}
	if err := sc.Scan(&n.ID, &n.ExportID, &n.Key, &n.Tag, &n.File, &n.Line, &n.Ordinal); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) queryNodes(query string, args ...any) ([]*Node, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// NodesByExport returns every node of an export in visit order.
func (s *Store) NodesByExport(exportID string) ([]*Node, error) {
	nodes, err := s.queryNodes("SELECT "+NodeCols+" FROM nodes WHERE export_id = ? ORDER BY ordinal", exportID)
	if err != nil {
		return nil, fmt.Errorf("nodes by export: %w", err)
	}
	return nodes, nil
}

// NodeByKey returns one node, or nil if the export never visited key.
func (s *Store) NodeByKey(exportID, key string) (*Node, error) {
	n, err := scanNode(s.db.QueryRow("SELECT "+NodeCols+" FROM nodes WHERE export_id = ? AND key = ?", exportID, key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("node by key: %w", err)
	}
	return n, nil
}

// NodesByKeys returns the visited nodes among keys, in visit order.
func (s *Store) NodesByKeys(exportID string, keys []string) ([]*Node, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	nodes, err := s.queryNodes(
		"SELECT "+NodeCols+" FROM nodes WHERE export_id = ? AND key IN ("+placeholderList(len(keys))+") ORDER BY ordinal",
		keysToArgs(exportID, keys)...,
	)
	if err != nil {
		return nil, fmt.Errorf("nodes by keys: %w", err)
	}
	return nodes, nil
}

// NodesByTag returns nodes whose key tag matches, in visit order. Labels are
// tagged "label".
func (s *Store) NodesByTag(exportID, tag string) ([]*Node, error) {
	nodes, err := s.queryNodes("SELECT "+NodeCols+" FROM nodes WHERE export_id = ? AND tag = ? ORDER BY ordinal", exportID, tag)
	if err != nil {
		return nil, fmt.Errorf("nodes by tag: %w", err)
	}
	return nodes, nil
}

// NodesByFile returns nodes located in file, in visit order.
func (s *Store) NodesByFile(exportID, file string) ([]*Node, error) {
	nodes, err := s.queryNodes("SELECT "+NodeCols+" FROM nodes WHERE export_id = ? AND file = ? ORDER BY ordinal", exportID, file)
	if err != nil {
		return nil, fmt.Errorf("nodes by file: %w", err)
	}
	return nodes, nil
}

// Leaves returns visited nodes with no successors, in visit order.
func (s *Store) Leaves(exportID string) ([]*Node, error) {
	nodes, err := s.queryNodes(
		`SELECT `+NodeCols+` FROM nodes n
		 WHERE n.export_id = ?
		   AND NOT EXISTS (SELECT 1 FROM edges e WHERE e.export_id = n.export_id AND e.parent_key = n.key)
		 ORDER BY n.ordinal`,
		exportID,
	)
	if err != nil {
		return nil, fmt.Errorf("leaves: %w", err)
	}
	return nodes, nil
}

// Children returns the ordered successor keys of parentKey.
func (s *Store) Children(exportID, parentKey string) ([]string, error) {
	out, err := s.queryStrings(
		"SELECT child_key FROM edges WHERE export_id = ? AND parent_key = ? ORDER BY ordinal",
		exportID, parentKey,
	)
	if err != nil {
		return nil, fmt.Errorf("children: %w", err)
	}
	return out, nil
}

// Parents returns the keys of nodes that list childKey as a successor, in
// the parents' visit order.
func (s *Store) Parents(exportID, childKey string) ([]string, error) {
	out, err := s.queryStrings(
		`SELECT e.parent_key FROM edges e
		 JOIN nodes n ON n.export_id = e.export_id AND n.key = e.parent_key
		 WHERE e.export_id = ? AND e.child_key = ?
		 ORDER BY n.ordinal`,
		exportID, childKey,
	)
	if err != nil {
		return nil, fmt.Errorf("parents: %w", err)
	}
	return out, nil
}

// AllEdges returns every edge of an export ordered by parent visit order
// then child position.
func (s *Store) AllEdges(exportID string) ([]*Edge, error) {
	rows, err := s.db.Query(
		`SELECT e.export_id, e.parent_key, e.child_key, e.ordinal FROM edges e
		 JOIN nodes n ON n.export_id = e.export_id AND n.key = e.parent_key
		 WHERE e.export_id = ?
		 ORDER BY n.ordinal, e.ordinal`,
		exportID,
	)
	if err != nil {
		return nil, fmt.Errorf("all edges: %w", err)
	}
	defer rows.Close()
	var out []*Edge
	for rows.Next() {
		e := &Edge{}
		if err := rows.Scan(&e.ExportID, &e.ParentKey, &e.ChildKey, &e.Ordinal); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TagCounts returns the number of visited nodes per tag.
func (s *Store) TagCounts(exportID string) (map[string]int, error) {
	rows, err := s.db.Query("SELECT tag, COUNT(*) FROM nodes WHERE export_id = ? GROUP BY tag", exportID)
	if err != nil {
		return nil, fmt.Errorf("tag counts: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var tag string
		var n int
		if err := rows.Scan(&tag, &n); err != nil {
			return nil, fmt.Errorf("scan tag count: %w", err)
		}
		out[tag] = n
	}
	return out, rows.Err()
}
