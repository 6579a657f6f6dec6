package main

import "encoding/json"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIExport describes one archived (or just written) export.
type CLIExport struct {
	ID          string `json:"id"`
	EntryLabel  string `json:"entry_label"`
	NodeCount   int    `json:"node_count"`
	EdgeCount   int    `json:"edge_count"`
	TreeHash    string `json:"tree_hash,omitempty"`
	CreatedAt   string `json:"created_at"`
	Dump        string `json:"dump,omitempty"`
	Diagnostics *int   `json:"diagnostics,omitempty"`
	Archived    *bool  `json:"archived,omitempty"`
}

// CLINode is a JSON-friendly visited node. Key is the node key in its JSON
// form: a string for labels, an array for tuples.
type CLINode struct {
	Key     json.RawMessage `json:"key"`
	Literal string          `json:"literal"`
	Tag     string          `json:"tag"`
	File    string          `json:"file,omitempty"`
	Line    int             `json:"line,omitempty"`
	Ordinal int             `json:"ordinal"`
}

// CLIKey is a node key in JSON and Python-literal form.
type CLIKey struct {
	Key     json.RawMessage `json:"key"`
	Literal string          `json:"literal"`
}

// CLIDiagnostic is a JSON-friendly diagnostic.
type CLIDiagnostic struct {
	Kind    string `json:"kind"`
	Node    string `json:"node"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
}

// CLIPythonTarget is a JSON-friendly code-block label transfer.
type CLIPythonTarget struct {
	Node     string `json:"node"`
	Function string `json:"function"`
	Label    string `json:"label"`
	Dynamic  bool   `json:"dynamic"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// CLISummary is a JSON-friendly export summary.
type CLISummary struct {
	Export        CLIExport      `json:"export"`
	TagCounts     map[string]int `json:"tag_counts"`
	Leaves        int            `json:"leaves"`
	DeadEnds      int            `json:"dead_ends"`
	Diagnostics   int            `json:"diagnostics"`
	PythonTargets int            `json:"python_targets"`
	GameFiles     int            `json:"game_files"`
	Images        int            `json:"images"`
}

// CLIListing is a flat list of names (files or images).
type CLIListing []string

// CLIRows are the rows a report script emitted.
type CLIRows []map[string]any
