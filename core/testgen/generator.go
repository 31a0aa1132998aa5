// Package testgen derives test fixtures from compiled schemas. For each
// schema it synthesizes a minimal conforming instance and a set of
// violating instances, one per constraint, suitable for seeding validator
// test suites and conformance corpora.
package testgen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/artpar/conform/core/schema"
	"github.com/artpar/conform/core/validation"
	"github.com/artpar/conform/core/value"
)

// maxSynthDepth bounds recursion while synthesizing, so cyclic schemas
// that never consume structure fail with an error instead of recursing
// forever.
const maxSynthDepth = 64

// Fixture is one generated instance together with its expected outcome.
type Fixture struct {
	// Name describes the fixture, e.g. "conforming" or "minimum violation".
	Name string

	// Data is the instance rendered as compact JSON.
	Data []byte

	// WantConform is true for the conforming fixture.
	WantConform bool

	// Keyword is the constraint the fixture was built to violate. Empty
	// for the conforming fixture.
	Keyword string
}

// Generator synthesizes fixtures for one compiled schema document.
//
// Synthesis is best effort: every candidate is checked against the real
// validation engine before it is returned, so a returned fixture always
// behaves as its WantConform flag promises. Generate returns an error for
// schemas whose conforming instance it cannot construct (a false schema,
// an unsatisfiable bound, a pattern with no obvious literal witness).
type Generator struct {
	doc    *schema.Document
	engine *validation.Engine
}

// New creates a generator for a compiled schema document.
func New(doc *schema.Document) *Generator {
	return &Generator{
		doc:    doc,
		engine: validation.New(doc, validation.Config{}),
	}
}

// ForJSON compiles a JSON schema document and returns its generator.
func ForJSON(data []byte) (*Generator, error) {
	v, err := value.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode schema document: %w", err)
	}
	doc, err := schema.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return New(doc), nil
}

// Generate synthesizes the fixture set for the document root: one
// conforming instance first, then one violating instance per root
// constraint that could be mutated into a failure.
func (g *Generator) Generate() ([]Fixture, error) {
	conforming, err := g.synthesize(g.doc.Root(), 0)
	if err != nil {
		return nil, err
	}
	diags, err := g.engine.Evaluate(conforming)
	if err != nil {
		return nil, fmt.Errorf("verify synthesized instance: %w", err)
	}
	if len(diags) > 0 {
		return nil, fmt.Errorf("synthesized instance %s does not conform: %s", conforming.JSON(), diags[0].Error())
	}

	fixtures := []Fixture{{
		Name:        "conforming",
		Data:        []byte(conforming.JSON()),
		WantConform: true,
	}}

	emitted := make(map[string]bool)
	for _, m := range g.mutations(conforming) {
		if emitted[m.keyword] {
			continue
		}
		diags, err := g.engine.Evaluate(m.instance)
		if err != nil || len(diags) == 0 {
			// The mutation missed (another branch rescued the value, or
			// the guess was wrong). Drop it rather than emit a fixture
			// with a lying expectation.
			continue
		}
		emitted[m.keyword] = true
		fixtures = append(fixtures, Fixture{
			Name:    m.keyword + " violation",
			Data:    []byte(m.instance.JSON()),
			Keyword: m.keyword,
		})
	}
	return fixtures, nil
}

// synthesize builds a value conforming to the node at an arena index.
func (g *Generator) synthesize(idx, depth int) (value.Value, error) {
	if depth > maxSynthDepth {
		return value.Value{}, fmt.Errorf("schema at %q is too deeply nested to synthesize", g.doc.Node(idx).Pointer)
	}
	n := g.doc.Node(idx)

	switch {
	case n.Bool != nil:
		if !*n.Bool {
			return value.Value{}, fmt.Errorf("schema at %q matches nothing", n.Pointer)
		}
		return value.NullValue(), nil
	case n.Ref != "":
		if n.RefNode < 0 {
			return value.Value{}, fmt.Errorf("reference %q does not resolve within the document", n.Ref)
		}
		return g.synthesize(n.RefNode, depth+1)
	case n.Const != nil:
		return *n.Const, nil
	case len(n.Enum) > 0:
		return n.Enum[0], nil
	}

	if t, ok := pickType(n); ok {
		return g.synthesizeType(n, t, depth)
	}

	// No shape of its own: defer to the first combinator branch.
	for _, branches := range [][]int{n.AllOf, n.AnyOf, n.OneOf} {
		if len(branches) > 0 {
			return g.synthesize(branches[0], depth+1)
		}
	}
	return value.NullValue(), nil
}

// pickType chooses the type to synthesize: the first declared type, or a
// type inferred from the constraints present.
func pickType(n *schema.Node) (schema.TypeName, bool) {
	if len(n.Types) > 0 {
		return n.Types[0], true
	}
	switch {
	case len(n.Properties) > 0 || len(n.Required) > 0 || n.MinProperties != nil || n.PropertyNames >= 0:
		return schema.TypeObject, true
	case n.ItemsAll >= 0 || len(n.ItemsTuple) > 0 || n.MinItems != nil || n.Contains >= 0:
		return schema.TypeArray, true
	case n.Minimum != nil || n.Maximum != nil || n.ExclusiveMinimum != nil || n.ExclusiveMaximum != nil || n.MultipleOf != nil:
		return schema.TypeNumber, true
	case n.MinLength != nil || n.MaxLength != nil || n.Pattern != nil:
		return schema.TypeString, true
	}
	return 0, false
}

func (g *Generator) synthesizeType(n *schema.Node, t schema.TypeName, depth int) (value.Value, error) {
	switch t {
	case schema.TypeNull:
		return value.NullValue(), nil
	case schema.TypeBoolean:
		return value.BoolValue(true), nil
	case schema.TypeString:
		return synthesizeString(n)
	case schema.TypeNumber:
		return synthesizeNumber(n, false)
	case schema.TypeInteger:
		return synthesizeNumber(n, true)
	case schema.TypeArray:
		return g.synthesizeArray(n, depth)
	case schema.TypeObject:
		return g.synthesizeObject(n, depth)
	default:
		return value.Value{}, fmt.Errorf("schema at %q has an unsynthesizable type", n.Pointer)
	}
}

func synthesizeString(n *schema.Node) (value.Value, error) {
	base := "text"
	if n.Pattern != nil {
		literal, ok := literalWitness(n.Pattern.Source)
		if !ok {
			return value.Value{}, fmt.Errorf("pattern %q at %q has no literal witness", n.Pattern.Source, n.Pointer)
		}
		base = literal
	}

	if n.MinLength != nil {
		for utf8.RuneCountInString(base) < *n.MinLength {
			if n.Pattern != nil && strings.HasSuffix(n.Pattern.Source, "$") {
				return value.Value{}, fmt.Errorf("pattern %q at %q cannot be padded to minLength %d", n.Pattern.Source, n.Pointer, *n.MinLength)
			}
			base += "a"
		}
	}
	if n.MaxLength != nil && utf8.RuneCountInString(base) > *n.MaxLength {
		if n.Pattern != nil {
			return value.Value{}, fmt.Errorf("pattern witness %q at %q exceeds maxLength %d", base, n.Pointer, *n.MaxLength)
		}
		base = string([]rune(base)[:*n.MaxLength])
	}
	return value.StringValue(base), nil
}

// literalWitness extracts a literal string matching a pattern, when the
// pattern is a plain anchored or unanchored literal. Patterns using any
// metacharacter are refused rather than guessed at.
func literalWitness(pattern string) (string, bool) {
	p := strings.TrimPrefix(pattern, "^")
	p = strings.TrimSuffix(p, "$")
	if strings.ContainsAny(p, `\.+*?()|[]{}^$`) {
		return "", false
	}
	return p, true
}

func synthesizeNumber(n *schema.Node, integer bool) (value.Value, error) {
	lo, hi := math.Inf(-1), math.Inf(1)
	loExcl, hiExcl := false, false
	if n.Minimum != nil {
		lo = n.Minimum.Float64()
	}
	if n.ExclusiveMinimum != nil && n.ExclusiveMinimum.Float64() >= lo {
		lo, loExcl = n.ExclusiveMinimum.Float64(), true
	}
	if n.Maximum != nil {
		hi = n.Maximum.Float64()
	}
	if n.ExclusiveMaximum != nil && n.ExclusiveMaximum.Float64() <= hi {
		hi, hiExcl = n.ExclusiveMaximum.Float64(), true
	}

	step := 0.0
	if n.MultipleOf != nil {
		step = n.MultipleOf.Float64()
	} else if integer {
		step = 1
	}

	candidate := 0.0
	if !math.IsInf(lo, -1) {
		candidate = lo
	} else if !math.IsInf(hi, 1) && (hi < 0 || hiExcl && hi <= 0) {
		candidate = hi
		if hiExcl {
			if step > 0 {
				candidate = hi - step
			} else {
				candidate = hi - 1
			}
		}
	}

	if step > 0 {
		k := math.Ceil(candidate/step - 1e-9)
		candidate = k * step
		for candidate < lo || (loExcl && candidate <= lo) {
			k++
			candidate = k * step
		}
	} else {
		if candidate < lo {
			candidate = lo
		}
		if loExcl && candidate <= lo {
			if !math.IsInf(hi, 1) {
				candidate = lo + (hi-lo)/2
			} else {
				candidate = lo + 1
			}
		}
	}
	if integer && candidate != math.Trunc(candidate) {
		next := math.Ceil(candidate)
		if step > 0 {
			next = math.Ceil(next/step) * step
		}
		candidate = next
	}

	if candidate > hi || (hiExcl && candidate >= hi) {
		return value.Value{}, fmt.Errorf("numeric bounds at %q admit no value", n.Pointer)
	}
	return numberValue(candidate)
}

func numberValue(f float64) (value.Value, error) {
	var text string
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		text = strconv.FormatInt(int64(f), 10)
	} else {
		text = strconv.FormatFloat(f, 'g', -1, 64)
	}
	num, err := value.ParseNum(text)
	if err != nil {
		return value.Value{}, err
	}
	return value.NumValue(num), nil
}

func (g *Generator) synthesizeArray(n *schema.Node, depth int) (value.Value, error) {
	var elems []value.Value

	switch {
	case len(n.ItemsTuple) > 0:
		for _, child := range n.ItemsTuple {
			elem, err := g.synthesize(child, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, elem)
		}
	case n.Contains >= 0:
		elem, err := g.synthesize(n.Contains, depth+1)
		if err != nil {
			return value.Value{}, err
		}
		elems = append(elems, elem)
	}

	want := len(elems)
	if n.MinItems != nil && *n.MinItems > want {
		want = *n.MinItems
	}
	for len(elems) < want {
		var filler value.Value
		var err error
		switch {
		case len(n.ItemsTuple) > 0 && n.AdditionalItems >= 0:
			filler, err = g.synthesize(n.AdditionalItems, depth+1)
		case len(n.ItemsTuple) > 0:
			filler = value.NullValue()
		case n.ItemsAll >= 0:
			filler, err = g.synthesize(n.ItemsAll, depth+1)
		default:
			filler = value.NullValue()
		}
		if err != nil {
			return value.Value{}, err
		}
		if n.UniqueItems && len(elems) > 0 && value.Equal(elems[len(elems)-1], filler) {
			return value.Value{}, fmt.Errorf("cannot synthesize %d distinct items at %q", want, n.Pointer)
		}
		elems = append(elems, filler)
	}

	if n.MaxItems != nil && len(elems) > *n.MaxItems {
		return value.Value{}, fmt.Errorf("array bounds at %q admit no instance", n.Pointer)
	}
	return value.ArrayValue(elems), nil
}

func (g *Generator) synthesizeObject(n *schema.Node, depth int) (value.Value, error) {
	required := make(map[string]bool, len(n.Required))
	for _, key := range n.Required {
		required[key] = true
	}

	var members []value.Member
	seen := make(map[string]bool)

	// Declared properties first, in document order. Include each one that
	// is required; the rest only as far as minProperties demands.
	need := len(n.Required)
	if n.MinProperties != nil && *n.MinProperties > need {
		need = *n.MinProperties
	}
	for _, prop := range n.Properties {
		if !required[prop.Key] && len(members) >= need {
			continue
		}
		v, err := g.synthesize(prop.Schema, depth+1)
		if err != nil {
			return value.Value{}, err
		}
		members = append(members, value.Member{Key: prop.Key, Value: v})
		seen[prop.Key] = true
	}

	// Required keys without a declared property schema.
	for _, key := range n.Required {
		if seen[key] {
			continue
		}
		v, err := g.synthesizeFreeMember(n, key, depth)
		if err != nil {
			return value.Value{}, err
		}
		members = append(members, value.Member{Key: key, Value: v})
		seen[key] = true
	}

	// Pad to minProperties with invented keys.
	for i := 0; len(members) < need; i++ {
		key := fmt.Sprintf("k%d", i)
		if seen[key] {
			continue
		}
		v, err := g.synthesizeFreeMember(n, key, depth)
		if err != nil {
			return value.Value{}, err
		}
		members = append(members, value.Member{Key: key, Value: v})
		seen[key] = true
	}

	if n.MaxProperties != nil && len(members) > *n.MaxProperties {
		return value.Value{}, fmt.Errorf("object bounds at %q admit no instance", n.Pointer)
	}
	return value.ObjectValue(members), nil
}

// synthesizeFreeMember picks a value for a key with no declared property
// schema: the first matching patternProperties schema if any, then the
// additionalProperties schema, then null.
func (g *Generator) synthesizeFreeMember(n *schema.Node, key string, depth int) (value.Value, error) {
	for _, pp := range n.PatternProperties {
		if pp.Pattern.MatchString(key) {
			return g.synthesize(pp.Schema, depth+1)
		}
	}
	if n.AdditionalProperties >= 0 {
		return g.synthesize(n.AdditionalProperties, depth+1)
	}
	return value.NullValue(), nil
}

// mutation is one candidate violating instance.
type mutation struct {
	keyword  string
	instance value.Value
}

// mutations derives violating candidates from the conforming instance by
// breaking one root constraint at a time. Candidates are raw guesses; the
// caller filters them through the engine.
func (g *Generator) mutations(conforming value.Value) []mutation {
	n := g.doc.Node(g.doc.Root())
	if n.Bool != nil {
		return nil
	}
	var out []mutation
	add := func(keyword string, v value.Value, err error) {
		if err == nil {
			out = append(out, mutation{keyword: keyword, instance: v})
		}
	}

	if len(n.Types) > 0 {
		if v, ok := outsideTypes(n.Types); ok {
			add("type", v, nil)
		}
	}
	if len(n.Enum) > 0 {
		if v, ok := outsideValues(n.Enum); ok {
			add("enum", v, nil)
		}
	}
	if n.Const != nil {
		if v, ok := outsideValues([]value.Value{*n.Const}); ok {
			add("const", v, nil)
		}
	}

	if conforming.Kind() == value.Number {
		f := conforming.Num().Float64()
		if n.Minimum != nil {
			v, err := numberValue(n.Minimum.Float64() - 1)
			add("minimum", v, err)
		}
		if n.ExclusiveMinimum != nil {
			add("exclusiveMinimum", value.NumValue(n.ExclusiveMinimum), nil)
		}
		if n.Maximum != nil {
			v, err := numberValue(n.Maximum.Float64() + 1)
			add("maximum", v, err)
		}
		if n.ExclusiveMaximum != nil {
			add("exclusiveMaximum", value.NumValue(n.ExclusiveMaximum), nil)
		}
		if n.MultipleOf != nil {
			v, err := numberValue(f + n.MultipleOf.Float64()/2)
			add("multipleOf", v, err)
		}
	}

	if conforming.Kind() == value.String {
		runes := []rune(conforming.Str())
		if n.MinLength != nil && *n.MinLength > 0 {
			add("minLength", value.StringValue(string(runes[:*n.MinLength-1])), nil)
		}
		if n.MaxLength != nil {
			add("maxLength", value.StringValue(strings.Repeat("a", *n.MaxLength+1)), nil)
		}
		if n.Pattern != nil {
			add("pattern", value.StringValue("\x01"), nil)
		}
	}

	if conforming.Kind() == value.Array {
		elems := conforming.Items()
		if n.MinItems != nil && *n.MinItems > 0 {
			add("minItems", value.ArrayValue(elems[:*n.MinItems-1]), nil)
		}
		if n.MaxItems != nil {
			grown := append(append([]value.Value{}, elems...), value.NullValue())
			for len(grown) <= *n.MaxItems {
				grown = append(grown, value.NullValue())
			}
			add("maxItems", value.ArrayValue(grown), nil)
		}
		if n.UniqueItems && len(elems) > 0 {
			dup := append(append([]value.Value{}, elems...), elems[0])
			add("uniqueItems", value.ArrayValue(dup), nil)
		}
		if n.Contains >= 0 {
			add("contains", value.ArrayValue(nil), nil)
		}
	}

	if conforming.Kind() == value.Object {
		members := conforming.Members()
		requiredSet := make(map[string]bool, len(n.Required))
		for _, key := range n.Required {
			requiredSet[key] = true
		}
		if len(n.Required) > 0 {
			add("required", withoutMember(members, n.Required[0]), nil)
		}
		if n.MinProperties != nil && len(members) > 0 && len(members)-1 < *n.MinProperties &&
			!requiredSet[members[len(members)-1].Key] {
			add("minProperties", value.ObjectValue(members[:len(members)-1]), nil)
		}
		if n.MaxProperties != nil {
			grown := append([]value.Member{}, members...)
			for i := 0; len(grown) <= *n.MaxProperties; i++ {
				grown = append(grown, value.Member{Key: fmt.Sprintf("x%d", i), Value: value.NullValue()})
			}
			add("maxProperties", value.ObjectValue(grown), nil)
		}
		if len(n.Properties) > 0 {
			add("properties", withMember(members, n.Properties[0].Key, value.NullValue()), nil)
			add("properties", withMember(members, n.Properties[0].Key, value.BoolValue(true)), nil)
		}
		if n.AdditionalProperties >= 0 || n.PropertyNames >= 0 {
			keyword := "additionalProperties"
			if n.AdditionalProperties < 0 {
				keyword = "propertyNames"
			}
			add(keyword, withMember(members, "\x01extra", value.NullValue()), nil)
		}
	}

	return out
}

// outsideTypes picks a probe value whose type matches none of the listed
// type names.
func outsideTypes(types []schema.TypeName) (value.Value, bool) {
	zero, _ := value.ParseNum("0")
	half, _ := value.ParseNum("0.5")
	probes := []value.Value{
		value.NullValue(),
		value.BoolValue(true),
		value.StringValue("probe"),
		value.NumValue(half),
		value.NumValue(zero),
		value.ArrayValue(nil),
		value.ObjectValue(nil),
	}
	for _, probe := range probes {
		matched := false
		for _, t := range types {
			if t.Matches(probe) {
				matched = true
				break
			}
		}
		if !matched {
			return probe, true
		}
	}
	return value.Value{}, false
}

// outsideValues picks a probe value equal to none of the given values.
func outsideValues(values []value.Value) (value.Value, bool) {
	marker, _ := value.ParseNum("999999999")
	probes := []value.Value{
		value.StringValue("\x01none"),
		value.NumValue(marker),
		value.NullValue(),
		value.BoolValue(true),
		value.ArrayValue([]value.Value{value.StringValue("\x01none")}),
	}
	for _, probe := range probes {
		collides := false
		for _, v := range values {
			if value.Equal(probe, v) {
				collides = true
				break
			}
		}
		if !collides {
			return probe, true
		}
	}
	return value.Value{}, false
}

func withoutMember(members []value.Member, key string) value.Value {
	out := make([]value.Member, 0, len(members))
	for _, m := range members {
		if m.Key != key {
			out = append(out, m)
		}
	}
	return value.ObjectValue(out)
}

func withMember(members []value.Member, key string, v value.Value) value.Value {
	out := make([]value.Member, 0, len(members)+1)
	replaced := false
	for _, m := range members {
		if m.Key == key {
			out = append(out, value.Member{Key: key, Value: v})
			replaced = true
			continue
		}
		out = append(out, m)
	}
	if !replaced {
		out = append(out, value.Member{Key: key, Value: v})
	}
	return value.ObjectValue(out)
}
