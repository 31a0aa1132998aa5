package schema

import (
	"regexp"

	"github.com/artpar/conform/core/value"
)

// TypeName is one primitive type constraint accepted by the "type"
// keyword.
type TypeName uint8

const (
	TypeNull TypeName = iota
	TypeBoolean
	TypeObject
	TypeArray
	TypeNumber
	TypeString
	TypeInteger
)

// String returns the keyword spelling of the type name.
func (t TypeName) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeObject:
		return "object"
	case TypeArray:
		return "array"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	default:
		return "unknown"
	}
}

func parseTypeName(s string) (TypeName, bool) {
	switch s {
	case "null":
		return TypeNull, true
	case "boolean":
		return TypeBoolean, true
	case "object":
		return TypeObject, true
	case "array":
		return TypeArray, true
	case "number":
		return TypeNumber, true
	case "string":
		return TypeString, true
	case "integer":
		return TypeInteger, true
	default:
		return 0, false
	}
}

// Matches reports whether a value satisfies the type name. Integer
// matches any number without a fractional part, however it was written.
func (t TypeName) Matches(v value.Value) bool {
	switch t {
	case TypeNull:
		return v.Kind() == value.Null
	case TypeBoolean:
		return v.Kind() == value.Bool
	case TypeObject:
		return v.Kind() == value.Object
	case TypeArray:
		return v.Kind() == value.Array
	case TypeNumber:
		return v.Kind() == value.Number
	case TypeString:
		return v.Kind() == value.String
	case TypeInteger:
		return v.Kind() == value.Number && v.Num().IsInt()
	default:
		return false
	}
}

// Pattern is a compiled regular-expression keyword. Matching is a
// substring search; the expression must anchor itself if it wants
// full-string semantics.
type Pattern struct {
	// Source is the pattern text as written in the schema document.
	Source string

	re *regexp.Regexp
}

// ECMA 262 patterns may escape '/' as '\/'. Go's syntax tolerates the
// escape, but normalizing keeps the compiled source canonical. Runs of
// '\\' before the slash are preserved so a literal backslash is never
// eaten.
var ecmaSlash = regexp.MustCompile(`((^|[^\\])(\\\\)*)\\/`)

// CompilePattern compiles a schema pattern, normalizing ECMA 262 '\/'
// escapes first.
func CompilePattern(source string) (*Pattern, error) {
	normalized := ecmaSlash.ReplaceAllString(source, "${1}/")
	re, err := regexp.Compile(normalized)
	if err != nil {
		return nil, err
	}
	return &Pattern{Source: source, re: re}, nil
}

// MatchString reports whether any substring of s matches the pattern.
func (p *Pattern) MatchString(s string) bool {
	return p.re.MatchString(s)
}

// Prop is one named property schema, in document order.
type Prop struct {
	Key    string
	Schema int
}

// PatternProp is one patternProperties entry, in document order.
type PatternProp struct {
	Pattern *Pattern
	Schema  int
}

// Node is one schema object or boolean schema. Child schemas are arena
// indices into the owning Document; -1 marks an absent child.
type Node struct {
	// Bool is set for boolean schemas: true accepts every value, false
	// rejects every value. No other field is populated when set.
	Bool *bool

	// Pointer is the canonical document pointer of this node, used in
	// trace logs and reference diagnostics.
	Pointer string

	Types []TypeName

	Enum  []value.Value
	Const *value.Value

	MultipleOf       *value.Num
	Maximum          *value.Num
	ExclusiveMaximum *value.Num
	Minimum          *value.Num
	ExclusiveMinimum *value.Num

	MinLength *int
	MaxLength *int
	Pattern   *Pattern

	// ItemsAll is the uniform element schema; ItemsTuple the positional
	// list. Parsing populates at most one of the two forms.
	ItemsAll        int
	ItemsTuple      []int
	AdditionalItems int
	MinItems        *int
	MaxItems        *int
	UniqueItems     bool
	Contains        int

	Properties           []Prop
	PatternProperties    []PatternProp
	Required             []string
	AdditionalProperties int
	PropertyNames        int
	MinProperties        *int
	MaxProperties        *int

	AllOf []int
	AnyOf []int
	OneOf []int
	Not   int
	If    int
	Then  int
	Else  int

	// Ref is the reference text as written; RefNode the resolved arena
	// index, or -1 when the reference does not resolve in-document.
	Ref     string
	RefNode int
}

func newNode(pointer string) Node {
	return Node{
		Pointer:              pointer,
		ItemsAll:             -1,
		AdditionalItems:      -1,
		Contains:             -1,
		AdditionalProperties: -1,
		PropertyNames:        -1,
		Not:                  -1,
		If:                   -1,
		Then:                 -1,
		Else:                 -1,
		RefNode:              -1,
	}
}

// Document is a compiled schema graph. It is immutable after Parse and
// safe for concurrent evaluation.
type Document struct {
	nodes []Node
	root  int
	index map[string]int
}

// Root returns the arena index of the document root schema.
func (d *Document) Root() int {
	return d.root
}

// Node returns the node at an arena index. The returned pointer is into
// shared storage and must be treated as read-only.
func (d *Document) Node(i int) *Node {
	return &d.nodes[i]
}

// Len returns the number of compiled nodes.
func (d *Document) Len() int {
	return len(d.nodes)
}

// Resolve maps a canonical document pointer (for example
// "/definitions/node") to its arena index.
func (d *Document) Resolve(pointer string) (int, bool) {
	i, ok := d.index[pointer]
	return i, ok
}
