package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/conform/core/diag"
	"github.com/artpar/conform/core/schema"
	"github.com/artpar/conform/core/value"
)

func mustEngine(t *testing.T, schemaSrc string, cfg Config) *Engine {
	t.Helper()
	v, err := value.DecodeJSON([]byte(schemaSrc))
	if err != nil {
		t.Fatalf("decode schema %q: %v", schemaSrc, err)
	}
	doc, err := schema.Parse(v)
	if err != nil {
		t.Fatalf("parse schema %q: %v", schemaSrc, err)
	}
	cfg.Logger = zerolog.Nop()
	return New(doc, cfg)
}

func check(t *testing.T, schemaSrc, valueSrc string) diag.List {
	t.Helper()
	e := mustEngine(t, schemaSrc, Config{})
	v, err := value.DecodeJSON([]byte(valueSrc))
	if err != nil {
		t.Fatalf("decode value %q: %v", valueSrc, err)
	}
	out, err := e.Evaluate(v)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return out
}

func wantConforms(t *testing.T, schemaSrc, valueSrc string) {
	t.Helper()
	if out := check(t, schemaSrc, valueSrc); len(out) != 0 {
		t.Errorf("value %s unexpectedly fails schema %s: %v", valueSrc, schemaSrc, out)
	}
}

func wantFails(t *testing.T, schemaSrc, valueSrc, keyword string) diag.List {
	t.Helper()
	out := check(t, schemaSrc, valueSrc)
	if len(out) == 0 {
		t.Fatalf("value %s unexpectedly conforms to schema %s", valueSrc, schemaSrc)
	}
	for _, d := range out {
		if d.Keyword == keyword {
			return out
		}
	}
	t.Fatalf("no %q diagnostic in %v", keyword, out)
	return nil
}

func TestBooleanSchemas(t *testing.T) {
	values := []string{`null`, `true`, `0`, `"s"`, `[1]`, `{"a": 1}`}
	for _, v := range values {
		t.Run(v, func(t *testing.T) {
			wantConforms(t, `true`, v)
			out := wantFails(t, `false`, v, "schema")
			if len(out) != 1 {
				t.Errorf("false schema produced %d diagnostics, want 1", len(out))
			}
		})
	}
}

func TestEmptySchemaAcceptsEverything(t *testing.T) {
	for _, v := range []string{`null`, `42`, `"x"`, `{"deep": [1, {"n": null}]}`} {
		wantConforms(t, `{}`, v)
	}
}

func TestTypeKeyword(t *testing.T) {
	tests := []struct {
		schema  string
		value   string
		conform bool
	}{
		{`{"type": "string"}`, `"hi"`, true},
		{`{"type": "string"}`, `1`, false},
		{`{"type": "number"}`, `1.5`, true},
		{`{"type": "number"}`, `1`, true},
		{`{"type": "integer"}`, `1`, true},
		{`{"type": "integer"}`, `1.0`, true},
		{`{"type": "integer"}`, `1e3`, true},
		{`{"type": "integer"}`, `1.5`, false},
		{`{"type": "null"}`, `null`, true},
		{`{"type": "null"}`, `false`, false},
		{`{"type": "boolean"}`, `true`, true},
		{`{"type": "object"}`, `{}`, true},
		{`{"type": "object"}`, `[]`, false},
		{`{"type": "array"}`, `[]`, true},
		{`{"type": ["string", "null"]}`, `null`, true},
		{`{"type": ["string", "null"]}`, `"x"`, true},
		{`{"type": ["string", "null"]}`, `3`, false},
	}
	for _, tt := range tests {
		t.Run(tt.schema+" vs "+tt.value, func(t *testing.T) {
			if tt.conform {
				wantConforms(t, tt.schema, tt.value)
			} else {
				wantFails(t, tt.schema, tt.value, "type")
			}
		})
	}
}

func TestTypeDiagnosticMessage(t *testing.T) {
	out := wantFails(t, `{"type": ["integer", "string"]}`, `null`, "type")
	if out[0].Message != "expected one of integer, string, found null" {
		t.Errorf("message = %q", out[0].Message)
	}
}

func TestEnumAndConst(t *testing.T) {
	tests := []struct {
		schema  string
		value   string
		conform bool
	}{
		{`{"enum": ["red", "green"]}`, `"red"`, true},
		{`{"enum": ["red", "green"]}`, `"blue"`, false},
		{`{"enum": [1, 2]}`, `1.0`, true},
		{`{"enum": [[1, 2]]}`, `[1, 2]`, true},
		{`{"enum": [[1, 2]]}`, `[2, 1]`, false},
		{`{"enum": [{"a": 1, "b": 2}]}`, `{"b": 2, "a": 1}`, true},
		{`{"const": 10}`, `10`, true},
		{`{"const": 10}`, `1e1`, true},
		{`{"const": 10}`, `11`, false},
		{`{"const": {"k": [true]}}`, `{"k": [true]}`, true},
		{`{"const": null}`, `null`, true},
		{`{"const": null}`, `0`, false},
	}
	for _, tt := range tests {
		t.Run(tt.schema+" vs "+tt.value, func(t *testing.T) {
			if tt.conform {
				wantConforms(t, tt.schema, tt.value)
			} else {
				keyword := "enum"
				if strings.Contains(tt.schema, "const") {
					keyword = "const"
				}
				wantFails(t, tt.schema, tt.value, keyword)
			}
		})
	}
}

func TestNumericBounds(t *testing.T) {
	tests := []struct {
		schema  string
		value   string
		conform bool
	}{
		{`{"minimum": 3}`, `3`, true},
		{`{"minimum": 3}`, `2.999`, false},
		{`{"maximum": 3}`, `3`, true},
		{`{"maximum": 3}`, `3.001`, false},
		{`{"exclusiveMinimum": 3}`, `3`, false},
		{`{"exclusiveMinimum": 3}`, `3.001`, true},
		{`{"exclusiveMaximum": 3}`, `3`, false},
		{`{"exclusiveMaximum": 3}`, `2.999`, true},
		{`{"minimum": -2.5}`, `-2.5`, true},
		{`{"minimum": -2.5}`, `-2.6`, false},
		{`{"minimum": 10}`, `"not a number"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.schema+" vs "+tt.value, func(t *testing.T) {
			if tt.conform {
				wantConforms(t, tt.schema, tt.value)
				return
			}
			out := check(t, tt.schema, tt.value)
			if len(out) != 1 {
				t.Fatalf("diagnostics = %v, want exactly 1", out)
			}
		})
	}
}

func TestMultipleOf(t *testing.T) {
	tests := []struct {
		schema  string
		value   string
		conform bool
	}{
		{`{"multipleOf": 2}`, `6`, true},
		{`{"multipleOf": 2}`, `7`, false},
		{`{"multipleOf": 2}`, `6.0`, true},
		{`{"multipleOf": 2}`, `6.01`, false},
		{`{"multipleOf": 0.1}`, `3.0000000001`, true},
		{`{"multipleOf": 0.1}`, `3.05`, false},
		{`{"multipleOf": 0.1}`, `3`, true},
		{`{"multipleOf": 0.5}`, `2.5`, true},
		{`{"multipleOf": 0.01}`, `19.99`, true},
		{`{"multipleOf": 3}`, `123456789123456789123456789`, true},
		{`{"multipleOf": 3}`, `123456789123456789123456788`, false},
	}
	for _, tt := range tests {
		t.Run(tt.schema+" vs "+tt.value, func(t *testing.T) {
			if tt.conform {
				wantConforms(t, tt.schema, tt.value)
			} else {
				wantFails(t, tt.schema, tt.value, "multipleOf")
			}
		})
	}
}

func TestMultipleOfEpsilonConfigurable(t *testing.T) {
	e := mustEngine(t, `{"multipleOf": 0.1}`, Config{Epsilon: 1e-12})
	v, _ := value.DecodeJSON([]byte(`3.0000000001`))
	out, err := e.Evaluate(v)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) == 0 {
		t.Error("tight epsilon should reject 3.0000000001 as a multiple of 0.1")
	}
}

func TestStringConstraints(t *testing.T) {
	tests := []struct {
		schema  string
		value   string
		conform bool
		keyword string
	}{
		{`{"minLength": 3}`, `"abc"`, true, ""},
		{`{"minLength": 3}`, `"ab"`, false, "minLength"},
		{`{"maxLength": 3}`, `"abc"`, true, ""},
		{`{"maxLength": 3}`, `"abcd"`, false, "maxLength"},
		{`{"minLength": 5}`, `"héllo"`, true, ""},
		{`{"maxLength": 1}`, `"☃"`, true, ""},
		{`{"maxLength": 2}`, `"aéc"`, false, "maxLength"},
		{`{"pattern": "b+"}`, `"abbc"`, true, ""},
		{`{"pattern": "^ab$"}`, `"xab"`, false, "pattern"},
		{`{"pattern": "^a\\/b$"}`, `"a/b"`, true, ""},
		{`{"minLength": 3}`, `123`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.schema+" vs "+tt.value, func(t *testing.T) {
			if tt.conform {
				wantConforms(t, tt.schema, tt.value)
			} else {
				wantFails(t, tt.schema, tt.value, tt.keyword)
			}
		})
	}
}

func TestArrayConstraints(t *testing.T) {
	tests := []struct {
		schema  string
		value   string
		conform bool
		keyword string
	}{
		{`{"minItems": 2}`, `[1, 2]`, true, ""},
		{`{"minItems": 2}`, `[1]`, false, "minItems"},
		{`{"maxItems": 2}`, `[1, 2, 3]`, false, "maxItems"},
		{`{"uniqueItems": true}`, `[1, 2, 3]`, true, ""},
		{`{"uniqueItems": true}`, `[1, 2, 1]`, false, "uniqueItems"},
		{`{"uniqueItems": true}`, `[1, 1.0]`, false, "uniqueItems"},
		{`{"uniqueItems": true}`, `[{"a": 1}, {"a": 1}]`, false, "uniqueItems"},
		{`{"uniqueItems": false}`, `[1, 1]`, true, ""},
		{`{"items": {"type": "integer"}}`, `[1, 2, 3]`, true, ""},
		{`{"items": {"type": "integer"}}`, `[1, "x"]`, false, "type"},
		{`{"contains": {"type": "string"}}`, `[1, "x", 2]`, true, ""},
		{`{"contains": {"type": "string"}}`, `[1, 2]`, false, "contains"},
		{`{"minItems": 1}`, `"not an array"`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.schema+" vs "+tt.value, func(t *testing.T) {
			if tt.conform {
				wantConforms(t, tt.schema, tt.value)
			} else {
				wantFails(t, tt.schema, tt.value, tt.keyword)
			}
		})
	}
}

func TestItemsPathQualification(t *testing.T) {
	out := wantFails(t, `{"items": {"type": "integer"}}`, `[1, "x", 2, "y"]`, "type")
	if len(out) != 2 {
		t.Fatalf("diagnostics = %v, want 2", out)
	}
	if out[0].Path.String() != "/1" || out[1].Path.String() != "/3" {
		t.Errorf("paths = %s, %s; want /1, /3", out[0].Path, out[1].Path)
	}
}

func TestTupleItemsAndAdditionalItems(t *testing.T) {
	schemaSrc := `{"items": [{"type": "string"}, {"type": "integer"}], "additionalItems": {"type": "boolean"}}`
	wantConforms(t, schemaSrc, `["a", 1, true, false]`)
	wantConforms(t, schemaSrc, `["a"]`)

	out := wantFails(t, schemaSrc, `["a", 1, "no"]`, "type")
	if out[0].Path.String() != "/2" {
		t.Errorf("path = %s, want /2", out[0].Path)
	}

	strict := `{"items": [{"type": "string"}], "additionalItems": false}`
	wantConforms(t, strict, `["a"]`)
	out = wantFails(t, strict, `["a", "b"]`, "additionalItems")
	if out[0].Path.String() != "/1" {
		t.Errorf("path = %s, want /1", out[0].Path)
	}

	unbounded := `{"items": [{"type": "string"}]}`
	wantConforms(t, unbounded, `["a", 999, null]`)
}

func TestObjectConstraints(t *testing.T) {
	tests := []struct {
		schema  string
		value   string
		conform bool
		keyword string
	}{
		{`{"minProperties": 1}`, `{"a": 1}`, true, ""},
		{`{"minProperties": 1}`, `{}`, false, "minProperties"},
		{`{"maxProperties": 1}`, `{"a": 1, "b": 2}`, false, "maxProperties"},
		{`{"required": ["a"]}`, `{"a": null}`, true, ""},
		{`{"required": ["a"]}`, `{"b": 1}`, false, "required"},
		{`{"properties": {"a": {"type": "integer"}}}`, `{"a": 1}`, true, ""},
		{`{"properties": {"a": {"type": "integer"}}}`, `{"a": "x"}`, false, "type"},
		{`{"properties": {"a": {"type": "integer"}}}`, `{"b": "anything"}`, true, ""},
		{`{"additionalProperties": false}`, `{}`, true, ""},
		{`{"additionalProperties": false}`, `{"a": 1}`, false, "additionalProperties"},
		{`{"properties": {"a": {}}, "additionalProperties": false}`, `{"a": 1}`, true, ""},
		{`{"additionalProperties": {"type": "string"}}`, `{"x": "ok"}`, true, ""},
		{`{"additionalProperties": {"type": "string"}}`, `{"x": 1}`, false, "type"},
		{`{"propertyNames": {"pattern": "^[a-z]+$"}}`, `{"abc": 1}`, true, ""},
		{`{"propertyNames": {"pattern": "^[a-z]+$"}}`, `{"Abc": 1}`, false, "pattern"},
		{`{"required": ["x"]}`, `"not an object"`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.schema+" vs "+tt.value, func(t *testing.T) {
			if tt.conform {
				wantConforms(t, tt.schema, tt.value)
			} else {
				wantFails(t, tt.schema, tt.value, tt.keyword)
			}
		})
	}
}

func TestRequiredDiagnosticPath(t *testing.T) {
	schemaSrc := `{"type": "object", "properties": {"name": {"type": "string"}}, "required": ["name"]}`
	out := wantFails(t, schemaSrc, `{}`, "required")
	if len(out) != 1 {
		t.Fatalf("diagnostics = %v, want 1", out)
	}
	if got := out[0].Path.String(); got != "/name" {
		t.Errorf("path = %q, want /name", got)
	}
	if out[0].Message != `missing required property "name"` {
		t.Errorf("message = %q", out[0].Message)
	}
}

func TestPatternPropertiesApplyAlongsideProperties(t *testing.T) {
	schemaSrc := `{
		"properties": {"x-rate": {"type": "integer"}},
		"patternProperties": {"^x-": {"type": "integer", "minimum": 0}}
	}`
	wantConforms(t, schemaSrc, `{"x-rate": 3}`)

	out := check(t, schemaSrc, `{"x-rate": -1}`)
	if len(out) != 1 || out[0].Keyword != "minimum" {
		t.Errorf("diagnostics = %v, want one minimum failure", out)
	}

	out = check(t, schemaSrc, `{"x-rate": "s"}`)
	if len(out) != 1 || out[0].Keyword != "type" {
		t.Errorf("diagnostics = %v, want one deduplicated type failure", out)
	}
}

func TestPatternPropertiesExemptFromAdditionalProperties(t *testing.T) {
	schemaSrc := `{
		"patternProperties": {"^x-": {}},
		"additionalProperties": false
	}`
	wantConforms(t, schemaSrc, `{"x-custom": 1}`)
	wantFails(t, schemaSrc, `{"other": 1}`, "additionalProperties")
}

func TestAllOfConcatenatesChildDiagnostics(t *testing.T) {
	schemaSrc := `{"allOf": [{"minimum": 10}, {"multipleOf": 3}]}`
	wantConforms(t, schemaSrc, `12`)

	out := check(t, schemaSrc, `4`)
	if len(out) != 2 {
		t.Fatalf("diagnostics = %v, want 2", out)
	}
	if out[0].Keyword != "multipleOf" || out[1].Keyword != "minimum" {
		t.Errorf("keywords = %s, %s", out[0].Keyword, out[1].Keyword)
	}
}

func TestAnyOfProducesSingleAggregateDiagnostic(t *testing.T) {
	schemaSrc := `{"anyOf": [{"type": "string"}, {"type": "number"}]}`
	wantConforms(t, schemaSrc, `"s"`)
	wantConforms(t, schemaSrc, `3.5`)

	out := check(t, schemaSrc, `true`)
	if len(out) != 1 {
		t.Fatalf("diagnostics = %v, want exactly 1 aggregated", out)
	}
	d := out[0]
	if d.Keyword != "anyOf" {
		t.Errorf("keyword = %q", d.Keyword)
	}
	if d.Message != "value does not match any of 2 alternatives" {
		t.Errorf("message = %q", d.Message)
	}
	if len(d.Causes) != 2 {
		t.Fatalf("causes = %v, want 2", d.Causes)
	}
	if d.Causes[0].Keyword != "type" || d.Causes[1].Keyword != "type" {
		t.Errorf("cause keywords = %s, %s", d.Causes[0].Keyword, d.Causes[1].Keyword)
	}
}

func TestOneOfExclusivity(t *testing.T) {
	schemaSrc := `{"oneOf": [{"type": "integer"}, {"minimum": 0}]}`

	wantConforms(t, schemaSrc, `-3`)
	wantConforms(t, schemaSrc, `0.5`)

	out := check(t, schemaSrc, `2`)
	if len(out) != 1 {
		t.Fatalf("diagnostics = %v, want 1", out)
	}
	if out[0].Keyword != "oneOf" || out[0].Message != "2 branches matched, expected exactly 1" {
		t.Errorf("diagnostic = %v", out[0])
	}

	out = check(t, `{"oneOf": [{"type": "string"}, {"type": "boolean"}]}`, `7`)
	if len(out) != 1 || out[0].Message != "no branch matched" {
		t.Fatalf("diagnostics = %v, want a single no-branch-matched failure", out)
	}
	if len(out[0].Causes) != 2 {
		t.Errorf("causes = %v, want 2", out[0].Causes)
	}
}

func TestNotKeyword(t *testing.T) {
	wantConforms(t, `{"not": {"type": "string"}}`, `5`)
	out := wantFails(t, `{"not": {"type": "string"}}`, `"s"`, "not")
	if out[0].Message != "value matches the schema it must not match" {
		t.Errorf("message = %q", out[0].Message)
	}
}

func TestIfThenElse(t *testing.T) {
	schemaSrc := `{
		"if": {"type": "string"},
		"then": {"minLength": 3},
		"else": {"minimum": 10}
	}`
	wantConforms(t, schemaSrc, `"abc"`)
	wantFails(t, schemaSrc, `"ab"`, "minLength")
	wantConforms(t, schemaSrc, `12`)
	wantFails(t, schemaSrc, `5`, "minimum")

	thenOnly := `{"if": {"type": "string"}, "then": {"minLength": 3}}`
	wantConforms(t, thenOnly, `7`)
}

func TestRefWithSiblingKeywords(t *testing.T) {
	schemaSrc := `{
		"$defs": {"positive": {"minimum": 0}},
		"$ref": "#/$defs/positive",
		"multipleOf": 2
	}`
	wantConforms(t, schemaSrc, `4`)
	wantFails(t, schemaSrc, `-4`, "minimum")
	wantFails(t, schemaSrc, `3`, "multipleOf")

	out := check(t, schemaSrc, `-3`)
	if len(out) != 2 {
		t.Errorf("diagnostics = %v, want both sibling and referenced failures", out)
	}
}

func TestDanglingReferenceBecomesDiagnostic(t *testing.T) {
	schemaSrc := `{
		"properties": {
			"a": {"$ref": "#/definitions/missing"},
			"b": {"type": "integer"}
		}
	}`
	out := check(t, schemaSrc, `{"a": 1, "b": "bad"}`)
	if len(out) != 2 {
		t.Fatalf("diagnostics = %v, want dangling ref plus sibling failure", out)
	}
	if out[0].Keyword != "$ref" || out[0].Path.String() != "/a" {
		t.Errorf("first diagnostic = %v", out[0])
	}
	if out[1].Keyword != "type" || out[1].Path.String() != "/b" {
		t.Errorf("second diagnostic = %v", out[1])
	}
}

func TestCyclicSchemaAgainstFiniteValue(t *testing.T) {
	schemaSrc := `{
		"$ref": "#/definitions/node",
		"definitions": {
			"node": {
				"type": "object",
				"properties": {"next": {"$ref": "#/definitions/node"}}
			}
		}
	}`
	nested := `{"next": {"next": {"next": {"next": {"next": {}}}}}}`
	wantConforms(t, schemaSrc, nested)

	out := check(t, schemaSrc, `{"next": {"next": 5}}`)
	if len(out) != 1 || out[0].Keyword != "type" {
		t.Fatalf("diagnostics = %v", out)
	}
	if out[0].Path.String() != "/next/next" {
		t.Errorf("path = %s, want /next/next", out[0].Path)
	}
}

func TestSelfReferenceWithoutProgressIsACycle(t *testing.T) {
	out := check(t, `{"$ref": "#"}`, `1`)
	if len(out) != 1 {
		t.Fatalf("diagnostics = %v, want 1", out)
	}
	if out[0].Keyword != "$ref" || !strings.Contains(out[0].Message, "cycle") {
		t.Errorf("diagnostic = %v", out[0])
	}

	out = check(t, `{"anyOf": [{"$ref": "#"}]}`, `1`)
	if len(out) != 1 || out[0].Keyword != "anyOf" {
		t.Fatalf("diagnostics = %v", out)
	}
}

func TestMutuallyRecursiveSchemas(t *testing.T) {
	schemaSrc := `{
		"$ref": "#/$defs/a",
		"$defs": {
			"a": {"type": "object", "properties": {"b": {"$ref": "#/$defs/b"}}},
			"b": {"type": "object", "properties": {"a": {"$ref": "#/$defs/a"}}}
		}
	}`
	wantConforms(t, schemaSrc, `{"b": {"a": {"b": {}}}}`)
	out := check(t, schemaSrc, `{"b": {"a": []}}`)
	if len(out) != 1 || out[0].Path.String() != "/b/a" {
		t.Fatalf("diagnostics = %v", out)
	}
}

func TestDepthBound(t *testing.T) {
	e := mustEngine(t, `{"items": {"$ref": "#"}}`, Config{MaxDepth: 4})
	v, err := value.DecodeJSON([]byte(`[[[[[1]]]]]`))
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Evaluate(v)
	var de *DepthError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want DepthError", err)
	}
	if de.Limit != 4 {
		t.Errorf("Limit = %d, want 4", de.Limit)
	}
}

func TestFiniteDeepValueStaysUnderDefaultDepth(t *testing.T) {
	depth := 20
	val := strings.Repeat(`{"next": `, depth) + `{}` + strings.Repeat(`}`, depth)
	schemaSrc := `{
		"$ref": "#/definitions/node",
		"definitions": {
			"node": {"type": "object", "properties": {"next": {"$ref": "#/definitions/node"}}}
		}
	}`
	wantConforms(t, schemaSrc, val)
}

func TestFailFastStopsAtFirstDiagnostic(t *testing.T) {
	e := mustEngine(t, `{"properties": {"a": {"type": "integer"}, "b": {"type": "integer"}}}`, Config{FailFast: true})
	v, _ := value.DecodeJSON([]byte(`{"a": "x", "b": "y"}`))
	out, err := e.Evaluate(v)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Errorf("diagnostics = %v, want exactly 1 in fail-fast mode", out)
	}
}

func TestDiagnosticsAreDeterministicallyOrdered(t *testing.T) {
	schemaSrc := `{
		"properties": {
			"b": {"type": "string"},
			"a": {"type": "string", "minLength": 2}
		},
		"required": ["z"]
	}`
	valueSrc := `{"b": 1, "a": 5}`

	first := check(t, schemaSrc, valueSrc)
	if len(first) != 3 {
		t.Fatalf("diagnostics = %v, want 3", first)
	}
	wantOrder := []string{"/a", "/b", "/z"}
	for i, d := range first {
		if d.Path.String() != wantOrder[i] {
			t.Errorf("diagnostic %d at %s, want %s", i, d.Path, wantOrder[i])
		}
	}

	for run := 0; run < 5; run++ {
		again := check(t, schemaSrc, valueSrc)
		if fmt.Sprint(again) != fmt.Sprint(first) {
			t.Fatalf("run %d produced different output:\n%v\n%v", run, again, first)
		}
	}
}

func TestDuplicateDiagnosticsFromRefAreCollapsed(t *testing.T) {
	schemaSrc := `{"allOf": [{"minLength": 5}, {"$ref": "#/allOf/0"}]}`
	out := check(t, schemaSrc, `"ab"`)
	if len(out) != 1 {
		t.Errorf("diagnostics = %v, want the duplicated failure collapsed to 1", out)
	}
}

func TestKeywordsApplyOnlyToMatchingValueKinds(t *testing.T) {
	schemaSrc := `{
		"minimum": 100,
		"minLength": 100,
		"minItems": 100,
		"minProperties": 100
	}`
	for _, v := range []string{`null`, `true`} {
		wantConforms(t, schemaSrc, v)
	}
	wantFails(t, schemaSrc, `5`, "minimum")
	wantFails(t, schemaSrc, `"s"`, "minLength")
	wantFails(t, schemaSrc, `[]`, "minItems")
	wantFails(t, schemaSrc, `{}`, "minProperties")
}

type recordingObserver struct {
	outcomes    []Outcome
	diagnostics []int
}

func (o *recordingObserver) ObserveValidation(outcome Outcome, diagnostics int, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
	o.diagnostics = append(o.diagnostics, diagnostics)
}

func TestObserverSeesEveryOutcome(t *testing.T) {
	obs := &recordingObserver{}
	v, err := value.DecodeJSON([]byte(`{"type": "integer"}`))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := schema.Parse(v)
	if err != nil {
		t.Fatal(err)
	}
	e := New(doc, Config{Logger: zerolog.Nop(), Observer: obs})

	good, _ := value.DecodeJSON([]byte(`3`))
	bad, _ := value.DecodeJSON([]byte(`"s"`))
	if _, err := e.Evaluate(good); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Evaluate(bad); err != nil {
		t.Fatal(err)
	}

	deep := mustEngine(t, `{"items": {"$ref": "#"}}`, Config{MaxDepth: 3, Observer: obs})
	nested, _ := value.DecodeJSON([]byte(`[[[[1]]]]`))
	if _, err := deep.Evaluate(nested); err == nil {
		t.Fatal("expected depth error")
	}

	want := []Outcome{OutcomeConform, OutcomeViolation, OutcomeAborted}
	if len(obs.outcomes) != len(want) {
		t.Fatalf("outcomes = %v, want %v", obs.outcomes, want)
	}
	for i := range want {
		if obs.outcomes[i] != want[i] {
			t.Errorf("outcome %d = %s, want %s", i, obs.outcomes[i], want[i])
		}
	}
	if obs.diagnostics[0] != 0 || obs.diagnostics[1] != 1 {
		t.Errorf("diagnostic counts = %v", obs.diagnostics)
	}
}

func TestEvaluateSharedEngineConcurrently(t *testing.T) {
	e := mustEngine(t, `{"type": "object", "required": ["id"], "properties": {"id": {"type": "string"}}}`, Config{})
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		i := i
		go func() {
			src := fmt.Sprintf(`{"id": "item-%d"}`, i)
			v, err := value.DecodeJSON([]byte(src))
			if err != nil {
				done <- err
				return
			}
			out, err := e.Evaluate(v)
			if err == nil && len(out) != 0 {
				err = fmt.Errorf("unexpected diagnostics: %v", out)
			}
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Error(err)
		}
	}
}
