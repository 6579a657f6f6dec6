package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch writes a buffered export within a single transaction and
// marks it as the latest export. NodeCount, EdgeCount and TreeHash are
// derived from the batch contents.
//
// Insert order respects FK dependencies:
//  1. Export header
//  2. Nodes and edges
//  3. Game files and images
//  4. Diagnostics and python targets
//  5. latest_export metadata
func (s *Store) CommitBatch(batch *ExportBatch) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	if batch.Export.ID == "" {
		return fmt.Errorf("commit batch: export has no id")
	}
	exp := batch.Export
	exp.NodeCount = len(batch.Nodes)
	exp.EdgeCount = len(batch.Edges)
	exp.TreeHash = ComputeTreeHash(batch.Nodes, batch.Edges)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	// 1. Export header
	if _, err := tx.Exec(
		"INSERT INTO exports (id, entry_label, node_count, edge_count, tree_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		exp.ID, exp.EntryLabel, exp.NodeCount, exp.EdgeCount, exp.TreeHash, exp.CreatedAt,
	); err != nil {
		return fmt.Errorf("commit batch: export %s: %w", exp.ID, err)
	}

	// 2. Nodes and edges
	if err := execEach(tx, "INSERT INTO nodes (export_id, key, tag, file, line, ordinal) VALUES (?, ?, ?, ?, ?, ?)",
		len(batch.Nodes), func(i int) []any {
			n := batch.Nodes[i]
			return []any{exp.ID, n.Key, n.Tag, n.File, n.Line, n.Ordinal}
		}); err != nil {
		return fmt.Errorf("commit batch: nodes: %w", err)
	}
	if err := execEach(tx, "INSERT INTO edges (export_id, parent_key, child_key, ordinal) VALUES (?, ?, ?, ?)",
		len(batch.Edges), func(i int) []any {
			e := batch.Edges[i]
			return []any{exp.ID, e.ParentKey, e.ChildKey, e.Ordinal}
		}); err != nil {
		return fmt.Errorf("commit batch: edges: %w", err)
	}

	// 3. Game files and images
	if err := execEach(tx, "INSERT INTO game_files (export_id, path, ordinal) VALUES (?, ?, ?)",
		len(batch.GameFiles), func(i int) []any {
			return []any{exp.ID, batch.GameFiles[i], i}
		}); err != nil {
		return fmt.Errorf("commit batch: game files: %w", err)
	}
	if err := execEach(tx, "INSERT INTO images (export_id, name, ordinal) VALUES (?, ?, ?)",
		len(batch.Images), func(i int) []any {
			return []any{exp.ID, batch.Images[i], i}
		}); err != nil {
		return fmt.Errorf("commit batch: images: %w", err)
	}

	// 4. Diagnostics and python targets
	if err := execEach(tx,
		"INSERT INTO diagnostics (export_id, kind, node_key, file, line, target, message) VALUES (?, ?, ?, ?, ?, ?, ?)",
		len(batch.Diagnostics), func(i int) []any {
			d := batch.Diagnostics[i]
			return []any{exp.ID, d.Kind, d.NodeKey, d.File, d.Line, d.Target, d.Message}
		}); err != nil {
		return fmt.Errorf("commit batch: diagnostics: %w", err)
	}
	if err := execEach(tx,
		"INSERT INTO python_targets (export_id, node_key, function, label, dynamic, file, line) VALUES (?, ?, ?, ?, ?, ?, ?)",
		len(batch.PythonTargets), func(i int) []any {
			pt := batch.PythonTargets[i]
			return []any{exp.ID, pt.NodeKey, pt.Function, pt.Label, pt.Dynamic, pt.File, pt.Line}
		}); err != nil {
		return fmt.Errorf("commit batch: python targets: %w", err)
	}

	// 5. Latest pointer
	if _, err := tx.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)", metaLatestExport, exp.ID); err != nil {
		return fmt.Errorf("commit batch: latest export: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	batch.Export = exp
	return nil
}

// execEach runs one prepared statement n times with the arguments args(i).
func execEach(tx *sql.Tx, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(args(i)...); err != nil {
			return err
		}
	}
	return nil
}
