package storytree

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Key identifies a node for deduplication. It is either a bare label name or
// a tuple of fields, each a string, an int, or nil. The zero Key is the empty
// identity of an absent node.
type Key struct {
	bare   bool
	fields []any
}

// LabelKey returns the bare key for a label name.
func LabelKey(name string) Key {
	return Key{bare: true, fields: []any{name}}
}

// TupleKey returns a tuple key. Fields must be string, int or nil.
func TupleKey(fields ...any) Key {
	return Key{fields: fields}
}

// IsZero reports whether k is the empty identity.
func (k Key) IsZero() bool {
	return !k.bare && len(k.fields) == 0
}

// IsLabel reports whether k is a bare label name.
func (k Key) IsLabel() bool {
	return k.bare
}

// Fields returns a copy of the key's fields.
func (k Key) Fields() []any {
	return append([]any(nil), k.fields...)
}

// Tag returns the type tag of the key: "label" for bare keys, otherwise the
// third tuple field.
func (k Key) Tag() string {
	if k.bare {
		return "label"
	}
	if len(k.fields) >= 3 {
		if s, ok := k.fields[2].(string); ok {
			return s
		}
	}
	return ""
}

// File returns the source file of a tuple key.
func (k Key) File() string {
	if k.bare || len(k.fields) == 0 {
		return ""
	}
	s, _ := k.fields[0].(string)
	return s
}

// Line returns the source line of a tuple key.
func (k Key) Line() int {
	if k.bare || len(k.fields) < 2 {
		return 0
	}
	n, _ := k.fields[1].(int)
	return n
}

// Equal reports whether two keys have the same identity.
func (k Key) Equal(o Key) bool {
	return k.String() == o.String()
}

// String renders the key as a Python literal. This form is the canonical
// identity: two keys are the same node exactly when their strings match.
func (k Key) String() string {
	if k.IsZero() {
		return "''"
	}
	if k.bare {
		return reprValue(k.fields[0])
	}
	var b strings.Builder
	b.WriteByte('(')
	for i, f := range k.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(reprValue(f))
	}
	if len(k.fields) == 1 {
		b.WriteByte(',')
	}
	b.WriteByte(')')
	return b.String()
}

// MarshalJSON renders bare keys as strings and tuple keys as arrays.
func (k Key) MarshalJSON() ([]byte, error) {
	if k.IsZero() {
		return []byte(`""`), nil
	}
	if k.bare {
		return json.Marshal(k.fields[0])
	}
	return json.Marshal(k.fields)
}

// reprValue renders a key field the way Python's repr does.
func reprValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return reprString(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return reprString(fmt.Sprint(x))
	}
}

// reprString quotes s following Python 3 repr rules: single quotes unless the
// string contains a single quote and no double quote.
func reprString(s string) string {
	quote := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		quote = '"'
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r < utf8.RuneSelf || unicode.IsPrint(r):
			b.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r < 0x10000:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			fmt.Fprintf(&b, `\U%08x`, r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// ParseKey parses the Python-literal form produced by Key.String. Text that
// is neither quoted nor parenthesised is taken as a bare label name.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, fmt.Errorf("parse key: empty input")
	}
	switch s[0] {
	case '\'', '"':
		str, rest, err := scanString(s)
		if err != nil {
			return Key{}, fmt.Errorf("parse key %s: %w", s, err)
		}
		if strings.TrimSpace(rest) != "" {
			return Key{}, fmt.Errorf("parse key %s: trailing input %q", s, rest)
		}
		if str == "" {
			return Key{}, nil
		}
		return LabelKey(str), nil
	case '(':
		fields, err := scanTuple(s)
		if err != nil {
			return Key{}, fmt.Errorf("parse key %s: %w", s, err)
		}
		return TupleKey(fields...), nil
	default:
		return LabelKey(s), nil
	}
}

func scanTuple(s string) ([]any, error) {
	rest := strings.TrimSpace(s[1:])
	var fields []any
	for {
		if rest == "" {
			return nil, fmt.Errorf("unterminated tuple")
		}
		if rest[0] == ')' {
			if strings.TrimSpace(rest[1:]) != "" {
				return nil, fmt.Errorf("trailing input %q", rest[1:])
			}
			return fields, nil
		}
		var (
			v   any
			err error
		)
		switch {
		case rest[0] == '\'' || rest[0] == '"':
			v, rest, err = scanString(rest)
		case strings.HasPrefix(rest, "None"):
			v, rest = nil, rest[len("None"):]
		default:
			end := strings.IndexAny(rest, ",)")
			if end < 0 {
				return nil, fmt.Errorf("unterminated tuple")
			}
			var n int
			n, err = strconv.Atoi(strings.TrimSpace(rest[:end]))
			v, rest = n, rest[end:]
		}
		if err != nil {
			return nil, err
		}
		fields = append(fields, v)
		rest = strings.TrimSpace(rest)
		if strings.HasPrefix(rest, ",") {
			rest = strings.TrimSpace(rest[1:])
		} else if !strings.HasPrefix(rest, ")") {
			return nil, fmt.Errorf("expected ',' or ')' at %q", rest)
		}
	}
}

// scanString reads one quoted Python string literal from the front of s and
// returns its value and the remaining input.
func scanString(s string) (string, string, error) {
	quote := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == quote {
			return b.String(), s[i+1:], nil
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[s[i]]
			if i+width >= len(s) {
				return "", "", fmt.Errorf("short escape in %q", s)
			}
			n, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32)
			if err != nil {
				return "", "", fmt.Errorf("bad escape in %q: %w", s, err)
			}
			b.WriteRune(rune(n))
			i += width
		default:
			b.WriteByte(s[i])
		}
	}
	return "", "", fmt.Errorf("unterminated string")
}
