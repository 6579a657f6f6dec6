package store

import "strings"

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// keysToArgs builds the argument list for "export_id = ? AND key IN (...)".
func keysToArgs(exportID string, keys []string) []any {
	args := make([]any, 0, len(keys)+1)
	args = append(args, exportID)
	for _, k := range keys {
		args = append(args, k)
	}
	return args
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface{ Scan(...any) error }
