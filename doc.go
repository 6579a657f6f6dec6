// Package storytree extracts a static reachability tree from a visual-novel
// engine's script graph, together with the game's asset and image listings,
// for offline analysis of its content structure.
//
// # Pipeline
//
// A host (usually an ast.Graph decoded from a snapshot by
// internal/snapshot) is walked once from a well-known entry label:
//
//  1. Walk: [ReadGameTree] pops nodes from a LIFO stack, records each newly
//     seen node's successors under its [Key] and pushes the unseen ones. A
//     visited set bounds the walk, so cycles terminate.
//  2. Write: [WriteDump] renders the tree, the game file list and the image
//     names as Python literals (the default) or JSON. [Exporter.ExportFile]
//     opens the dump file once around the whole write.
//  3. Archive (optional): [Archive.Save] stores the export in SQLite so it can
//     be queried with [QueryBuilder] or reported on with Risor scripts.
//
// # Usage
//
//	g, err := snapshot.Load("snapshot.yaml")
//	if err != nil { ... }
//
//	exp, err := storytree.New(g).ExportFile(ctx, "game_tree.py", storytree.DumpPython)
//	if err != nil { ... }
//
//	a, err := storytree.OpenArchive(".storytree/exports.db", storytree.WithScriptsFS(scripts.FS))
//	if err != nil { ... }
//	defer a.Close()
//	_, err = a.Save(exp)
//
//	q, err := a.Query(exp.ID)
//	path, err := q.PathTo(storytree.LabelKey("chapter2"))
//
// # Successors
//
// Jumps and calls whose target is a runtime expression cannot be followed.
// They are omitted from the tree and reported as [Diagnostic] values. A jump
// or call to a label the host does not know keeps the label's key as a child
// without expanding it. Code blocks are scanned with tree-sitter for
// renpy.jump and renpy.call targets, which are reported separately and never
// change the tree.
//
// # Scripts
//
// Report scripts live under scripts/report/{name}.risor and are embedded
// into the CLI. Scripts see the archived export through host functions such
// as node_keys(), children(key), leaves() and db_query(sql, args...), and
// return rows with emit(map). See the internal/runtime package for the full
// set of globals.
package storytree
