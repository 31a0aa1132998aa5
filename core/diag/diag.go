// Package diag defines path-qualified conformance diagnostics and the
// rules for aggregating them into a deterministic, deduplicated result.
package diag

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Segment is one step of a value path: either an object member key or an
// array element index.
type Segment struct {
	// Key is the object member key. Meaningful only when Index is -1.
	Key string

	// Index is the array element index, or -1 for a key segment.
	Index int
}

// KeySegment returns a path segment for an object member key.
func KeySegment(key string) Segment {
	return Segment{Key: key, Index: -1}
}

// IndexSegment returns a path segment for an array element index.
func IndexSegment(index int) Segment {
	return Segment{Index: index}
}

// IsIndex reports whether the segment addresses an array element.
func (s Segment) IsIndex() bool {
	return s.Index >= 0
}

// String renders the segment as a JSON Pointer reference token.
// Object keys have "~" and "/" escaped per RFC 6901.
func (s Segment) String() string {
	if s.IsIndex() {
		return strconv.Itoa(s.Index)
	}
	return escapeToken(s.Key)
}

func escapeToken(token string) string {
	if !strings.ContainsAny(token, "~/") {
		return token
	}
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// Path locates a value within the document that was validated, from the
// root down. The zero value addresses the document root.
type Path []Segment

// Key returns a new path extended by an object member key.
// The receiver is never modified.
func (p Path) Key(key string) Path {
	return p.extend(KeySegment(key))
}

// Index returns a new path extended by an array element index.
// The receiver is never modified.
func (p Path) Index(index int) Path {
	return p.extend(IndexSegment(index))
}

func (p Path) extend(s Segment) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = s
	return out
}

// IsRoot reports whether the path addresses the document root.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// String renders the path as a JSON Pointer. The root renders as "".
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range p {
		b.WriteByte('/')
		b.WriteString(s.String())
	}
	return b.String()
}

// comparePaths orders paths segment-wise: index segments before key
// segments, indices numerically, keys bytewise; a prefix sorts before its
// extensions.
func comparePaths(a, b Path) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sa, sb := a[i], b[i]
		switch {
		case sa.IsIndex() && sb.IsIndex():
			if sa.Index != sb.Index {
				if sa.Index < sb.Index {
					return -1
				}
				return 1
			}
		case sa.IsIndex():
			return -1
		case sb.IsIndex():
			return 1
		default:
			if c := strings.Compare(sa.Key, sb.Key); c != 0 {
				return c
			}
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// Diagnostic is a single conformance failure: the value path it applies
// to, the schema keyword that rejected the value, and a human-readable
// message. Combinator failures carry the competing branch failures in
// Causes.
type Diagnostic struct {
	Path    Path   `json:"path"`
	Keyword string `json:"keyword"`
	Message string `json:"message"`

	// Causes holds per-branch failures for combinator diagnostics
	// (anyOf/oneOf). They are attached, not merged into the top level.
	Causes []Diagnostic `json:"causes,omitempty"`
}

// Error formats the diagnostic for display.
func (d Diagnostic) Error() string {
	loc := d.Path.String()
	if loc == "" {
		loc = "document root"
	}
	return fmt.Sprintf("%s: %s: %s", loc, d.Keyword, d.Message)
}

// List is an ordered collection of diagnostics. An empty list means the
// value conforms.
type List []Diagnostic

// Add appends a diagnostic.
func (l *List) Add(d Diagnostic) {
	*l = append(*l, d)
}

// Merge appends all diagnostics from another list.
func (l *List) Merge(other List) {
	*l = append(*l, other...)
}

// Error returns a compact summary of the list.
func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no diagnostics"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", l[0].Error(), len(l)-1)
	}
}

// Finalize returns the list in its canonical order: stable-sorted by path,
// then keyword rank, then message, with exact (path, keyword, message)
// duplicates collapsed. The receiver is not modified.
func (l List) Finalize() List {
	if len(l) == 0 {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		if c := comparePaths(out[i].Path, out[j].Path); c != 0 {
			return c < 0
		}
		ri, rj := keywordRank(out[i].Keyword), keywordRank(out[j].Keyword)
		if ri != rj {
			return ri < rj
		}
		if out[i].Keyword != out[j].Keyword {
			return out[i].Keyword < out[j].Keyword
		}
		return out[i].Message < out[j].Message
	})

	dedup := out[:1]
	for _, d := range out[1:] {
		last := dedup[len(dedup)-1]
		if d.Keyword == last.Keyword && d.Message == last.Message &&
			comparePaths(d.Path, last.Path) == 0 {
			continue
		}
		dedup = append(dedup, d)
	}
	return dedup
}

// canonicalOrder fixes the keyword rank used when collating diagnostics:
// type, enum/const, numeric, string, array, object, combinators, ref.
var canonicalOrder = []string{
	"schema",
	"type",
	"enum",
	"const",
	"multipleOf",
	"maximum",
	"exclusiveMaximum",
	"minimum",
	"exclusiveMinimum",
	"maxLength",
	"minLength",
	"pattern",
	"maxItems",
	"minItems",
	"uniqueItems",
	"items",
	"additionalItems",
	"contains",
	"maxProperties",
	"minProperties",
	"required",
	"properties",
	"patternProperties",
	"additionalProperties",
	"propertyNames",
	"allOf",
	"anyOf",
	"oneOf",
	"not",
	"then",
	"else",
	"$ref",
}

var keywordRanks = func() map[string]int {
	m := make(map[string]int, len(canonicalOrder))
	for i, k := range canonicalOrder {
		m[k] = i
	}
	return m
}()

func keywordRank(keyword string) int {
	if r, ok := keywordRanks[keyword]; ok {
		return r
	}
	return len(canonicalOrder)
}
