package store

import (
	"database/sql"
	"fmt"
)

const exportCols = "id, entry_label, node_count, edge_count, tree_hash, created_at"

func scanExport(sc scanner) (*Export, error) {
	e := &Export{}
	if err := sc.Scan(&e.ID, &e.EntryLabel, &e.NodeCount, &e.EdgeCount, &e.TreeHash, &e.CreatedAt); err != nil {
		return nil, err
	}
	return e, nil
}

// Exports returns every stored export, newest first.
func (s *Store) Exports() ([]*Export, error) {
	rows, err := s.db.Query("SELECT " + exportCols + " FROM exports ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("exports: %w", err)
	}
	defer rows.Close()
	var out []*Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ExportByID returns the export with the given ID, or nil if none exists.
func (s *Store) ExportByID(id string) (*Export, error) {
	e, err := scanExport(s.db.QueryRow("SELECT "+exportCols+" FROM exports WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("export by id: %w", err)
	}
	return e, nil
}

// LatestExportID returns the ID of the most recently committed export, or
// ErrExportNotFound when the archive is empty.
func (s *Store) LatestExportID() (string, error) {
	id, err := s.GetMetadata(metaLatestExport)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("latest export: %w", ErrExportNotFound)
	}
	return id, nil
}

// GameFiles returns the export's game file listing in original order.
func (s *Store) GameFiles(exportID string) ([]string, error) {
	return s.queryStrings("SELECT path FROM game_files WHERE export_id = ? ORDER BY ordinal", exportID)
}

// Images returns the export's image names in original order.
func (s *Store) Images(exportID string) ([]string, error) {
	return s.queryStrings("SELECT name FROM images WHERE export_id = ? ORDER BY ordinal", exportID)
}

func (s *Store) queryStrings(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query strings: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan string: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Diagnostics returns the export's diagnostics in the order they were raised.
func (s *Store) Diagnostics(exportID string) ([]*Diagnostic, error) {
	rows, err := s.db.Query(
		"SELECT id, export_id, kind, node_key, file, line, target, message FROM diagnostics WHERE export_id = ? ORDER BY id",
		exportID,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	defer rows.Close()
	var out []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		if err := rows.Scan(&d.ID, &d.ExportID, &d.Kind, &d.NodeKey, &d.File, &d.Line, &d.Target, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PythonTargets returns the export's code-block transfers in scan order.
func (s *Store) PythonTargets(exportID string) ([]*PythonTarget, error) {
	rows, err := s.db.Query(
		"SELECT id, export_id, node_key, function, label, dynamic, file, line FROM python_targets WHERE export_id = ? ORDER BY id",
		exportID,
	)
	if err != nil {
		return nil, fmt.Errorf("python targets: %w", err)
	}
	defer rows.Close()
	var out []*PythonTarget
	for rows.Next() {
		pt := &PythonTarget{}
		if err := rows.Scan(&pt.ID, &pt.ExportID, &pt.NodeKey, &pt.Function, &pt.Label, &pt.Dynamic, &pt.File, &pt.Line); err != nil {
			return nil, fmt.Errorf("scan python target: %w", err)
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}
