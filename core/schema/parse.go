package schema

import (
	"fmt"
	"math"

	"github.com/artpar/conform/core/value"
)

// ParseError reports a malformed schema document. Pointer locates the
// offending keyword within the document; the root is the empty pointer.
type ParseError struct {
	Pointer string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("schema parse error at %q: %s", "#"+e.Pointer, e.Message)
}

func parseErrf(pointer, format string, args ...any) error {
	return &ParseError{Pointer: pointer, Message: fmt.Sprintf(format, args...)}
}

// Parse compiles a schema document into a Document. The document must be
// an object or boolean schema. Keyword shapes are checked here, so the
// evaluation engine never sees a malformed node; references are resolved
// as far as the document allows, and unresolved ones surface as
// diagnostics at evaluation time rather than errors here.
func Parse(doc value.Value) (*Document, error) {
	c := &compiler{
		out:    &Document{index: make(map[string]int)},
		source: doc,
	}
	root, err := c.compile("", doc)
	if err != nil {
		return nil, err
	}
	c.out.root = root
	if err := c.resolveRefs(); err != nil {
		return nil, err
	}
	return c.out, nil
}

type compiler struct {
	out    *Document
	source value.Value
}

// compile builds the node for the schema at a document pointer. The
// pointer is registered before descending so self-references find their
// slot.
func (c *compiler) compile(pointer string, v value.Value) (int, error) {
	if idx, ok := c.out.index[pointer]; ok {
		return idx, nil
	}
	idx := len(c.out.nodes)
	c.out.nodes = append(c.out.nodes, Node{})
	c.out.index[pointer] = idx

	node, err := c.build(pointer, v)
	if err != nil {
		return 0, err
	}
	c.out.nodes[idx] = node
	return idx, nil
}

func (c *compiler) build(pointer string, v value.Value) (Node, error) {
	node := newNode(pointer)
	switch v.Kind() {
	case value.Bool:
		b := v.Bool()
		node.Bool = &b
		return node, nil
	case value.Object:
	default:
		return Node{}, parseErrf(pointer, "schema must be an object or boolean, found %s", v.Kind())
	}

	for _, m := range v.Members() {
		kw := pointer + "/" + escapeToken(m.Key)
		var err error
		switch m.Key {
		case "type":
			node.Types, err = parseTypes(kw, m.Value)
		case "enum":
			node.Enum, err = parseEnum(kw, m.Value)
		case "const":
			cv := m.Value
			node.Const = &cv
		case "multipleOf":
			node.MultipleOf, err = parseDivisor(kw, m.Value)
		case "maximum":
			node.Maximum, err = parseBound(kw, m.Value)
		case "exclusiveMaximum":
			node.ExclusiveMaximum, err = parseBound(kw, m.Value)
		case "minimum":
			node.Minimum, err = parseBound(kw, m.Value)
		case "exclusiveMinimum":
			node.ExclusiveMinimum, err = parseBound(kw, m.Value)
		case "maxLength":
			node.MaxLength, err = parseCount(kw, m.Value)
		case "minLength":
			node.MinLength, err = parseCount(kw, m.Value)
		case "pattern":
			node.Pattern, err = parsePatternKeyword(kw, m.Value)
		case "items":
			err = c.parseItems(&node, kw, m.Value)
		case "additionalItems":
			node.AdditionalItems, err = c.compile(kw, m.Value)
		case "maxItems":
			node.MaxItems, err = parseCount(kw, m.Value)
		case "minItems":
			node.MinItems, err = parseCount(kw, m.Value)
		case "uniqueItems":
			if m.Value.Kind() != value.Bool {
				err = parseErrf(kw, "uniqueItems must be a boolean, found %s", m.Value.Kind())
				break
			}
			node.UniqueItems = m.Value.Bool()
		case "contains":
			node.Contains, err = c.compile(kw, m.Value)
		case "maxProperties":
			node.MaxProperties, err = parseCount(kw, m.Value)
		case "minProperties":
			node.MinProperties, err = parseCount(kw, m.Value)
		case "required":
			node.Required, err = parseRequired(kw, m.Value)
		case "properties":
			node.Properties, err = c.parseProperties(kw, m.Value)
		case "patternProperties":
			node.PatternProperties, err = c.parsePatternProperties(kw, m.Value)
		case "additionalProperties":
			node.AdditionalProperties, err = c.compile(kw, m.Value)
		case "propertyNames":
			node.PropertyNames, err = c.compile(kw, m.Value)
		case "allOf":
			node.AllOf, err = c.compileList(kw, m.Value)
		case "anyOf":
			node.AnyOf, err = c.compileList(kw, m.Value)
		case "oneOf":
			node.OneOf, err = c.compileList(kw, m.Value)
		case "not":
			node.Not, err = c.compile(kw, m.Value)
		case "if":
			node.If, err = c.compile(kw, m.Value)
		case "then":
			node.Then, err = c.compile(kw, m.Value)
		case "else":
			node.Else, err = c.compile(kw, m.Value)
		case "$ref":
			switch {
			case m.Value.Kind() != value.String:
				err = parseErrf(kw, "$ref must be a string, found %s", m.Value.Kind())
			case m.Value.Str() == "":
				err = parseErrf(kw, "$ref must not be empty")
			default:
				node.Ref = m.Value.Str()
			}
		case "$defs", "definitions":
			err = c.parseDefs(kw, m.Value)
		default:
			// Unrecognized keywords are ignored, not rejected.
		}
		if err != nil {
			return Node{}, err
		}
	}

	if node.Const != nil && node.Enum != nil {
		return Node{}, parseErrf(pointer, "const and enum cannot both be present")
	}
	if node.If >= 0 && node.Then < 0 && node.Else < 0 {
		return Node{}, parseErrf(pointer, "an if schema requires a then or else schema")
	}
	if node.If < 0 && (node.Then >= 0 || node.Else >= 0) {
		return Node{}, parseErrf(pointer, "then and else schemas require an if schema")
	}
	return node, nil
}

// resolveRefs maps every $ref to an arena index. Targets the structural
// walk never reached, such as pointers into unrelated corners of the
// document, are compiled on demand; that may append nodes carrying
// further references, which the growing loop picks up. A pointer that
// addresses nothing leaves RefNode at -1 for the engine to report.
func (c *compiler) resolveRefs() error {
	for i := 0; i < len(c.out.nodes); i++ {
		if c.out.nodes[i].Ref == "" || c.out.nodes[i].RefNode >= 0 {
			continue
		}
		target, ok := normalizeRef(c.out.nodes[i].Ref)
		if !ok {
			continue
		}
		if idx, found := c.out.index[target]; found {
			c.out.nodes[i].RefNode = idx
			continue
		}
		raw, found := locate(c.source, target)
		if !found {
			continue
		}
		idx, err := c.compile(target, raw)
		if err != nil {
			return err
		}
		c.out.nodes[i].RefNode = idx
	}
	return nil
}

func (c *compiler) parseItems(node *Node, pointer string, v value.Value) error {
	if v.Kind() != value.Array {
		idx, err := c.compile(pointer, v)
		if err != nil {
			return err
		}
		node.ItemsAll = idx
		return nil
	}
	items := v.Items()
	node.ItemsTuple = make([]int, 0, len(items))
	for i, item := range items {
		idx, err := c.compile(fmt.Sprintf("%s/%d", pointer, i), item)
		if err != nil {
			return err
		}
		node.ItemsTuple = append(node.ItemsTuple, idx)
	}
	return nil
}

func (c *compiler) parseProperties(pointer string, v value.Value) ([]Prop, error) {
	if v.Kind() != value.Object {
		return nil, parseErrf(pointer, "properties must be an object, found %s", v.Kind())
	}
	props := make([]Prop, 0, len(v.Members()))
	for _, m := range v.Members() {
		idx, err := c.compile(pointer+"/"+escapeToken(m.Key), m.Value)
		if err != nil {
			return nil, err
		}
		props = append(props, Prop{Key: m.Key, Schema: idx})
	}
	return props, nil
}

func (c *compiler) parsePatternProperties(pointer string, v value.Value) ([]PatternProp, error) {
	if v.Kind() != value.Object {
		return nil, parseErrf(pointer, "patternProperties must be an object, found %s", v.Kind())
	}
	props := make([]PatternProp, 0, len(v.Members()))
	for _, m := range v.Members() {
		kw := pointer + "/" + escapeToken(m.Key)
		pat, err := CompilePattern(m.Key)
		if err != nil {
			return nil, parseErrf(kw, "invalid pattern %q: %v", m.Key, err)
		}
		idx, err := c.compile(kw, m.Value)
		if err != nil {
			return nil, err
		}
		props = append(props, PatternProp{Pattern: pat, Schema: idx})
	}
	return props, nil
}

func (c *compiler) compileList(pointer string, v value.Value) ([]int, error) {
	if v.Kind() != value.Array {
		return nil, parseErrf(pointer, "must be an array of schemas, found %s", v.Kind())
	}
	items := v.Items()
	if len(items) == 0 {
		return nil, parseErrf(pointer, "must be a non-empty array of schemas")
	}
	out := make([]int, 0, len(items))
	for i, item := range items {
		idx, err := c.compile(fmt.Sprintf("%s/%d", pointer, i), item)
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}

func (c *compiler) parseDefs(pointer string, v value.Value) error {
	if v.Kind() != value.Object {
		return parseErrf(pointer, "must be an object of named schemas, found %s", v.Kind())
	}
	for _, m := range v.Members() {
		if _, err := c.compile(pointer+"/"+escapeToken(m.Key), m.Value); err != nil {
			return err
		}
	}
	return nil
}

func parseTypes(pointer string, v value.Value) ([]TypeName, error) {
	switch v.Kind() {
	case value.String:
		t, ok := parseTypeName(v.Str())
		if !ok {
			return nil, parseErrf(pointer, "unknown type name %q", v.Str())
		}
		return []TypeName{t}, nil
	case value.Array:
		items := v.Items()
		if len(items) == 0 {
			return nil, parseErrf(pointer, "type array must not be empty")
		}
		out := make([]TypeName, 0, len(items))
		for i, item := range items {
			if item.Kind() != value.String {
				return nil, parseErrf(pointer, "type entry %d must be a string, found %s", i, item.Kind())
			}
			t, ok := parseTypeName(item.Str())
			if !ok {
				return nil, parseErrf(pointer, "unknown type name %q", item.Str())
			}
			out = append(out, t)
		}
		return out, nil
	default:
		return nil, parseErrf(pointer, "type must be a string or array of strings, found %s", v.Kind())
	}
}

func parseEnum(pointer string, v value.Value) ([]value.Value, error) {
	if v.Kind() != value.Array {
		return nil, parseErrf(pointer, "enum must be an array, found %s", v.Kind())
	}
	items := v.Items()
	if len(items) == 0 {
		return nil, parseErrf(pointer, "enum must not be empty")
	}
	out := make([]value.Value, len(items))
	copy(out, items)
	return out, nil
}

func parseBound(pointer string, v value.Value) (*value.Num, error) {
	if v.Kind() != value.Number {
		return nil, parseErrf(pointer, "must be a number, found %s", v.Kind())
	}
	return v.Num(), nil
}

func parseDivisor(pointer string, v value.Value) (*value.Num, error) {
	n, err := parseBound(pointer, v)
	if err != nil {
		return nil, err
	}
	if n.Rat.Sign() <= 0 {
		return nil, parseErrf(pointer, "multipleOf must be greater than zero")
	}
	return n, nil
}

func parseCount(pointer string, v value.Value) (*int, error) {
	if v.Kind() != value.Number || !v.Num().IsInt() {
		return nil, parseErrf(pointer, "must be a non-negative integer")
	}
	n := v.Num().Rat.Num()
	if n.Sign() < 0 {
		return nil, parseErrf(pointer, "must be a non-negative integer")
	}
	if !n.IsInt64() || n.Int64() > math.MaxInt32 {
		return nil, parseErrf(pointer, "value out of range")
	}
	count := int(n.Int64())
	return &count, nil
}

func parsePatternKeyword(pointer string, v value.Value) (*Pattern, error) {
	if v.Kind() != value.String {
		return nil, parseErrf(pointer, "pattern must be a string, found %s", v.Kind())
	}
	p, err := CompilePattern(v.Str())
	if err != nil {
		return nil, parseErrf(pointer, "invalid pattern %q: %v", v.Str(), err)
	}
	return p, nil
}

func parseRequired(pointer string, v value.Value) ([]string, error) {
	if v.Kind() != value.Array {
		return nil, parseErrf(pointer, "required must be an array of strings, found %s", v.Kind())
	}
	out := make([]string, 0, len(v.Items()))
	for i, item := range v.Items() {
		if item.Kind() != value.String {
			return nil, parseErrf(pointer, "required entry %d must be a string, found %s", i, item.Kind())
		}
		out = append(out, item.Str())
	}
	return out, nil
}
