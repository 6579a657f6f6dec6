// Package pyscan finds runtime control transfers inside inline code blocks.
//
// Code blocks can jump or call into labels with renpy.jump("name") and
// friends. The static walk cannot follow these, so the exporter lists them
// separately. Code is parsed with the tree-sitter Python grammar.
package pyscan

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// transferFuncs are the renpy module functions whose first argument is a
// label name.
var transferFuncs = map[string]bool{
	"jump":                true,
	"call":                true,
	"call_in_new_context": true,
	"jump_out_of_context": true,
	"call_replay":         true,
}

const callPattern = `(call
  function: (attribute object: (identifier) @obj attribute: (identifier) @fn)
  arguments: (argument_list) @args)`

var (
	lang     *sitter.Language
	langOnce sync.Once
)

// Language returns the tree-sitter Python grammar.
func Language() *sitter.Language {
	langOnce.Do(func() {
		lang = python.GetLanguage()
	})
	return lang
}

// Target is one control transfer found in a code block.
type Target struct {
	Function string // e.g. "renpy.jump"
	Label    string // empty when Dynamic
	Dynamic  bool   // the label is computed at runtime
	Row      int    // 0-based row within the code block
}

// Scan parses code and returns its control transfers in source order.
// Unparseable code yields whatever calls tree-sitter could still recover.
func Scan(ctx context.Context, code string) ([]Target, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	src := []byte(code)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(Language())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("pyscan: parse: %w", err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(callPattern), Language())
	if err != nil {
		return nil, fmt.Errorf("pyscan: query: %w", err)
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, tree.RootNode())

	var targets []Target
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		var obj, fn, args *sitter.Node
		for _, c := range match.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "obj":
				obj = c.Node
			case "fn":
				fn = c.Node
			case "args":
				args = c.Node
			}
		}
		if obj == nil || fn == nil || args == nil || obj.Content(src) != "renpy" {
			continue
		}
		name := fn.Content(src)
		if !transferFuncs[name] {
			continue
		}
		t := Target{Function: "renpy." + name, Row: int(fn.StartPoint().Row)}
		label, ok := firstStringArg(args, src)
		if ok {
			t.Label = label
		} else {
			t.Dynamic = true
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// firstStringArg returns the value of the first positional argument when it
// is a plain string literal.
func firstStringArg(args *sitter.Node, src []byte) (string, bool) {
	if args.NamedChildCount() == 0 {
		return "", false
	}
	first := args.NamedChild(0)
	if first.Type() != "string" {
		return "", false
	}
	return unquote(first.Content(src))
}

// unquote strips a Python string literal's prefix and quotes. Formatted
// strings are not literals.
func unquote(lit string) (string, bool) {
	i := 0
	for i < len(lit) && strings.ContainsRune("rRuUbBfF", rune(lit[i])) {
		if lit[i] == 'f' || lit[i] == 'F' {
			return "", false
		}
		i++
	}
	body := lit[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(body) >= 2*len(q) && strings.HasPrefix(body, q) && strings.HasSuffix(body, q) {
			return body[len(q) : len(body)-len(q)], true
		}
	}
	return "", false
}
